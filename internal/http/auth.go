package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ayushroy-246/hmp/internal/auth"
	"github.com/ayushroy-246/hmp/internal/crypto"
	"github.com/ayushroy-246/hmp/internal/model"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authResponse struct {
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
	User         userSummary `json:"user"`
}

// loginHandler builds the login endpoint for one role namespace. The same
// credential flow backs /admin/login, /warden/login and /student/login; only
// the accepted roles differ.
func (s *Server) loginHandler(allowedRoles ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := decodeJSON(r, &req); err != nil {
			writeAPIError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		req.Username = strings.ToLower(strings.TrimSpace(req.Username))
		if req.Username == "" || req.Password == "" {
			writeAPIError(w, http.StatusBadRequest, "Please provide username and password")
			return
		}

		user, err := s.store.GetUserByUsername(r.Context(), req.Username)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				writeAPIError(w, http.StatusNotFound, "User not found")
				return
			}
			writeAPIError(w, http.StatusInternalServerError, "Something went wrong")
			return
		}

		allowed := false
		for _, role := range allowedRoles {
			if user.Role == role {
				allowed = true
				break
			}
		}
		if !allowed {
			writeAPIError(w, http.StatusForbidden, "You are not allowed to login from this portal")
			return
		}

		if err := crypto.CheckPassword(user.PasswordHash, req.Password); err != nil {
			writeAPIError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}

		claims := auth.Claims{
			UserID:      user.ID,
			Username:    user.Username,
			Role:        user.Role,
			SubjectType: model.SubjectUser,
			HostelID:    user.HostelID,
		}
		accessToken, refreshToken, err := s.issueTokens(r.Context(), claims, uuid.NewString(), r.UserAgent(), clientIP(r))
		if err != nil {
			writeAPIError(w, http.StatusInternalServerError, "Could not create session")
			return
		}

		s.setAuthCookies(w, accessToken, refreshToken)
		writeData(w, http.StatusOK, "Logged in successfully", authResponse{
			AccessToken:  accessToken,
			RefreshToken: refreshToken,
			User:         mapUserSummary(user),
		})
	}
}

type staffLoginRequest struct {
	Phone string `json:"phone"`
	PIN   string `json:"pin"`
}

type staffSummary struct {
	ID       string   `json:"id"`
	Phone    string   `json:"phone"`
	FullName string   `json:"fullName"`
	Roles    []string `json:"roles"`
	HostelID string   `json:"hostelId"`
}

// handleStaffLogin authenticates a maintenance staff member by phone and PIN.
// The same phone can be registered in more than one hostel, so the PIN check
// runs over every candidate.
func (s *Server) handleStaffLogin(w http.ResponseWriter, r *http.Request) {
	var req staffLoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAPIError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Phone = strings.TrimSpace(req.Phone)
	if req.Phone == "" || req.PIN == "" {
		writeAPIError(w, http.StatusBadRequest, "Please provide phone and pin")
		return
	}

	members, err := s.store.ListStaffByPhone(r.Context(), req.Phone)
	if err != nil {
		writeAPIError(w, http.StatusInternalServerError, "Something went wrong")
		return
	}
	if len(members) == 0 {
		writeAPIError(w, http.StatusNotFound, "Staff not found")
		return
	}

	var staff model.Staff
	matched := false
	for _, candidate := range members {
		if crypto.CheckPassword(candidate.PINHash, req.PIN) == nil {
			staff = candidate
			matched = true
			break
		}
	}
	if !matched {
		writeAPIError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	hostelID := staff.HostelID
	claims := auth.Claims{
		UserID:      staff.ID,
		Username:    staff.Phone,
		Role:        model.RoleStaff,
		SubjectType: model.SubjectStaff,
		HostelID:    &hostelID,
	}
	accessToken, refreshToken, err := s.issueTokens(r.Context(), claims, uuid.NewString(), r.UserAgent(), clientIP(r))
	if err != nil {
		writeAPIError(w, http.StatusInternalServerError, "Could not create session")
		return
	}

	s.setAuthCookies(w, accessToken, refreshToken)
	writeData(w, http.StatusOK, "Logged in successfully", map[string]interface{}{
		"accessToken":  accessToken,
		"refreshToken": refreshToken,
		"staff": staffSummary{
			ID:       staff.ID,
			Phone:    staff.Phone,
			FullName: staff.FullName,
			Roles:    staff.Roles,
			HostelID: staff.HostelID,
		},
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	token := ""
	if cookie, err := r.Cookie("refreshToken"); err == nil {
		token = cookie.Value
	}
	if token == "" {
		var req refreshRequest
		if err := decodeJSON(r, &req); err == nil {
			token = req.RefreshToken
		}
	}
	if token == "" {
		writeAPIError(w, http.StatusBadRequest, "Refresh token missing")
		return
	}

	now := time.Now().UTC()
	session, err := s.store.GetRefreshSession(r.Context(), crypto.HashToken(token))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeAPIError(w, http.StatusUnauthorized, "Invalid refresh token")
			return
		}
		writeAPIError(w, http.StatusInternalServerError, "Something went wrong")
		return
	}

	if session.RevokedAt != nil {
		// Replay of a rotated token. Someone is holding a stale copy, so the
		// whole family is burned.
		_ = s.store.RevokeSessionFamily(r.Context(), session.FamilyID, now)
		writeAPIError(w, http.StatusUnauthorized, "Refresh token has been used, please login again")
		return
	}
	if session.ExpiresAt.Before(now) {
		writeAPIError(w, http.StatusUnauthorized, "Refresh token expired, please login again")
		return
	}

	claims, err := s.claimsForSubject(r.Context(), session.SubjectID, session.SubjectType)
	if err != nil {
		writeAPIError(w, http.StatusUnauthorized, "Account no longer exists")
		return
	}

	if err := s.store.RevokeRefreshSession(r.Context(), session.ID, now); err != nil {
		writeAPIError(w, http.StatusInternalServerError, "Something went wrong")
		return
	}

	accessToken, refreshToken, err := s.issueTokens(r.Context(), claims, session.FamilyID, r.UserAgent(), clientIP(r))
	if err != nil {
		writeAPIError(w, http.StatusInternalServerError, "Could not create session")
		return
	}

	s.setAuthCookies(w, accessToken, refreshToken)
	writeData(w, http.StatusOK, "Token refreshed", map[string]string{
		"accessToken":  accessToken,
		"refreshToken": refreshToken,
	})
}

func (s *Server) claimsForSubject(ctx context.Context, subjectID, subjectType string) (auth.Claims, error) {
	if subjectType == model.SubjectStaff {
		staff, err := s.store.GetStaffByID(ctx, subjectID)
		if err != nil {
			return auth.Claims{}, err
		}
		hostelID := staff.HostelID
		return auth.Claims{
			UserID:      staff.ID,
			Username:    staff.Phone,
			Role:        model.RoleStaff,
			SubjectType: model.SubjectStaff,
			HostelID:    &hostelID,
		}, nil
	}

	user, err := s.store.GetUserByID(ctx, subjectID)
	if err != nil {
		return auth.Claims{}, err
	}
	return auth.Claims{
		UserID:      user.ID,
		Username:    user.Username,
		Role:        user.Role,
		SubjectType: model.SubjectUser,
		HostelID:    user.HostelID,
	}, nil
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeAPIError(w, http.StatusUnauthorized, "Please login to access this resource")
		return
	}

	_ = s.store.RevokeSubjectSessions(r.Context(), claims.UserID, claims.SubjectType, time.Now().UTC())
	s.clearAuthCookies(w)
	writeData(w, http.StatusOK, "Logged out successfully", nil)
}

func (s *Server) handleGetMe(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeAPIError(w, http.StatusUnauthorized, "Please login to access this resource")
		return
	}
	if claims.SubjectType == model.SubjectStaff {
		staff, err := s.store.GetStaffByID(r.Context(), claims.UserID)
		if err != nil {
			writeAPIError(w, http.StatusNotFound, "Staff not found")
			return
		}
		writeData(w, http.StatusOK, "", staffSummary{
			ID:       staff.ID,
			Phone:    staff.Phone,
			FullName: staff.FullName,
			Roles:    staff.Roles,
			HostelID: staff.HostelID,
		})
		return
	}

	row, err := s.store.GetUserRowByID(r.Context(), claims.UserID)
	if err != nil {
		writeAPIError(w, http.StatusNotFound, "User not found")
		return
	}
	writeData(w, http.StatusOK, "", mapUserRowSummary(row))
}

type changePasswordRequest struct {
	OldPassword     string `json:"oldPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil || claims.SubjectType != model.SubjectUser {
		writeAPIError(w, http.StatusForbidden, "You are not allowed to access this resource")
		return
	}

	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAPIError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.OldPassword == "" || len(req.NewPassword) < 8 {
		writeAPIError(w, http.StatusBadRequest, "New password must be at least 8 characters")
		return
	}
	if req.NewPassword != req.ConfirmPassword {
		writeAPIError(w, http.StatusBadRequest, "Passwords do not match")
		return
	}

	user, err := s.store.GetUserByID(r.Context(), claims.UserID)
	if err != nil {
		writeAPIError(w, http.StatusNotFound, "User not found")
		return
	}
	if err := crypto.CheckPassword(user.PasswordHash, req.OldPassword); err != nil {
		writeAPIError(w, http.StatusUnauthorized, "Old password is incorrect")
		return
	}

	hash, err := crypto.HashPassword(req.NewPassword)
	if err != nil {
		writeAPIError(w, http.StatusInternalServerError, "Something went wrong")
		return
	}
	if err := s.store.UpdatePassword(r.Context(), user.ID, hash); err != nil {
		writeAPIError(w, http.StatusInternalServerError, "Something went wrong")
		return
	}

	// Changing the password logs out every device.
	_ = s.store.RevokeSubjectSessions(r.Context(), user.ID, model.SubjectUser, time.Now().UTC())
	s.clearAuthCookies(w)
	writeData(w, http.StatusOK, "Password updated successfully, please login again", nil)
}

type forgotPasswordRequest struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	NewPassword string `json:"newPassword"`
}

// handleForgotPassword resets a password when the caller proves knowledge of
// both the username and the registered email. No mailer is involved.
func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAPIError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Username = strings.ToLower(strings.TrimSpace(req.Username))
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Username == "" || req.Email == "" || len(req.NewPassword) < 8 {
		writeAPIError(w, http.StatusBadRequest, "Please provide username, email and a new password of at least 8 characters")
		return
	}

	user, err := s.store.GetUserByUsername(r.Context(), req.Username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeAPIError(w, http.StatusNotFound, "User not found")
			return
		}
		writeAPIError(w, http.StatusInternalServerError, "Something went wrong")
		return
	}
	if user.Email != req.Email {
		writeAPIError(w, http.StatusBadRequest, "Email does not match our records")
		return
	}

	hash, err := crypto.HashPassword(req.NewPassword)
	if err != nil {
		writeAPIError(w, http.StatusInternalServerError, "Something went wrong")
		return
	}
	if err := s.store.UpdatePassword(r.Context(), user.ID, hash); err != nil {
		writeAPIError(w, http.StatusInternalServerError, "Something went wrong")
		return
	}

	_ = s.store.RevokeSubjectSessions(r.Context(), user.ID, model.SubjectUser, time.Now().UTC())
	writeData(w, http.StatusOK, "Password reset successfully, please login", nil)
}

func (s *Server) issueTokens(ctx context.Context, claims auth.Claims, familyID, userAgent, ip string) (string, string, error) {
	accessToken, err := auth.NewAccessToken(s.cfg.JWTSecret, s.cfg.JWTIssuer, s.cfg.AccessTokenTTL, claims)
	if err != nil {
		return "", "", err
	}

	refreshToken, err := crypto.NewRefreshToken()
	if err != nil {
		return "", "", err
	}

	now := time.Now().UTC()
	session := model.RefreshSession{
		ID:          uuid.NewString(),
		SubjectID:   claims.UserID,
		SubjectType: claims.SubjectType,
		FamilyID:    familyID,
		TokenHash:   crypto.HashToken(refreshToken),
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.cfg.RefreshTokenTTL),
	}
	if userAgent != "" {
		session.UserAgent = &userAgent
	}
	if ip != "" {
		session.IPAddress = &ip
	}

	if err := s.store.CreateRefreshSession(ctx, session); err != nil {
		return "", "", err
	}

	return accessToken, refreshToken, nil
}
