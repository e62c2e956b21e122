package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ayushroy-246/hmp/internal/crypto"
	"github.com/ayushroy-246/hmp/internal/model"
	"github.com/ayushroy-246/hmp/internal/repository"
)

type userSummary struct {
	ID         string  `json:"id"`
	Username   string  `json:"username"`
	Email      string  `json:"email"`
	FullName   string  `json:"fullName"`
	Role       string  `json:"role"`
	Mobile     *string `json:"mobile,omitempty"`
	HostelID   *string `json:"hostelId,omitempty"`
	HostelName *string `json:"hostelName,omitempty"`
	RoomID     *string `json:"roomId,omitempty"`
	RoomNumber *string `json:"roomNumber,omitempty"`
	CreatedAt  string  `json:"createdAt"`
}

func mapUserSummary(user model.User) userSummary {
	return userSummary{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		FullName:  user.FullName,
		Role:      user.Role,
		Mobile:    user.Mobile,
		HostelID:  user.HostelID,
		RoomID:    user.RoomID,
		CreatedAt: user.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func mapUserRowSummary(row repository.UserRow) userSummary {
	summary := mapUserSummary(row.User)
	summary.HostelName = row.HostelName
	summary.RoomNumber = row.RoomNumber
	return summary
}

type createAccountRequest struct {
	Username string  `json:"username"`
	Email    string  `json:"email"`
	FullName string  `json:"fullName"`
	Password string  `json:"password"`
	Mobile   *string `json:"mobile,omitempty"`
	HostelID *string `json:"hostelId,omitempty"`
	RoomID   *string `json:"roomId,omitempty"`
}

func (r *createAccountRequest) normalize() {
	// Usernames are stored lowercased; the unique index is case-sensitive.
	r.Username = strings.ToLower(strings.TrimSpace(r.Username))
	r.Email = strings.TrimSpace(strings.ToLower(r.Email))
	r.FullName = strings.TrimSpace(r.FullName)
}

func (r *createAccountRequest) missingBasics() bool {
	return r.Username == "" || r.Email == "" || r.FullName == "" || r.Password == ""
}

// handleCreateSuperAdmin bootstraps the singleton superAdmin account. The
// route is unauthenticated but double-gated: an environment flag must allow
// it and no superAdmin may exist yet.
func (s *Server) handleCreateSuperAdmin(w http.ResponseWriter, r *http.Request) {
	if !s.cfg.AllowSuperAdminCreate {
		writeAPIError(w, http.StatusForbidden, "Super admin creation is disabled")
		return
	}
	if s.store.SuperAdminExists(r.Context()) {
		writeAPIError(w, http.StatusForbidden, "Super admin already exists")
		return
	}

	var req createAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAPIError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.normalize()
	if req.missingBasics() {
		writeAPIError(w, http.StatusBadRequest, "Please provide username, email, fullName and password")
		return
	}

	user, status, msg := s.insertAccount(r, req, model.RoleSuperAdmin, nil)
	if msg != "" {
		writeAPIError(w, status, msg)
		return
	}
	writeData(w, http.StatusCreated, "Super admin created successfully", mapUserSummary(user))
}

func (s *Server) handleCreateAdmin(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil || claims.Role != model.RoleSuperAdmin {
		writeAPIError(w, http.StatusForbidden, "Only super admin can create admins")
		return
	}

	var req createAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAPIError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.normalize()
	if req.missingBasics() {
		writeAPIError(w, http.StatusBadRequest, "Please provide username, email, fullName and password")
		return
	}

	user, status, msg := s.insertAccount(r, req, model.RoleAdmin, nil)
	if msg != "" {
		writeAPIError(w, status, msg)
		return
	}
	writeData(w, http.StatusCreated, "Admin created successfully", mapUserSummary(user))
}

func (s *Server) handleCreateWarden(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAPIError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.normalize()
	if req.missingBasics() || req.HostelID == nil || *req.HostelID == "" {
		writeAPIError(w, http.StatusBadRequest, "Please provide username, email, fullName, password and hostelId")
		return
	}

	if _, err := s.store.GetHostelByID(r.Context(), *req.HostelID); err != nil {
		writeAPIError(w, http.StatusNotFound, "Hostel not found")
		return
	}

	user, status, msg := s.insertAccount(r, req, model.RoleWarden, req.HostelID)
	if msg != "" {
		writeAPIError(w, status, msg)
		return
	}
	writeData(w, http.StatusCreated, "Warden created successfully", mapUserSummary(user))
}

// handleCreateStudent serves both the admin and the warden namespace; a
// warden may only enroll into their own hostel.
func (s *Server) handleCreateStudent(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	var req createAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAPIError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.normalize()
	if req.missingBasics() || req.HostelID == nil || *req.HostelID == "" || req.RoomID == nil || *req.RoomID == "" {
		writeAPIError(w, http.StatusBadRequest, "Please provide username, email, fullName, password, hostelId and roomId")
		return
	}

	if claims != nil && claims.Role == model.RoleWarden {
		if claims.HostelID == nil || *claims.HostelID != *req.HostelID {
			writeAPIError(w, http.StatusForbidden, "You can only enroll students into your own hostel")
			return
		}
	}

	if s.store.UsernameOrEmailTaken(r.Context(), req.Username, req.Email) {
		writeAPIError(w, http.StatusConflict, "Username or email already in use")
		return
	}

	hash, err := crypto.HashPassword(req.Password)
	if err != nil {
		writeAPIError(w, http.StatusInternalServerError, "Something went wrong")
		return
	}

	now := time.Now().UTC()
	user := model.User{
		ID:           uuid.NewString(),
		Username:     req.Username,
		Email:        req.Email,
		FullName:     req.FullName,
		PasswordHash: hash,
		Role:         model.RoleStudent,
		Mobile:       req.Mobile,
		HostelID:     req.HostelID,
		RoomID:       req.RoomID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.store.CreateStudentInRoom(r.Context(), user, *req.HostelID, *req.RoomID)
	switch {
	case err == nil:
	case errors.Is(err, pgx.ErrNoRows):
		writeAPIError(w, http.StatusNotFound, "Room not found")
		return
	case errors.Is(err, repository.ErrRoomHostelMismatch):
		writeAPIError(w, http.StatusConflict, "Room does not belong to the given hostel")
		return
	case errors.Is(err, repository.ErrRoomFull):
		writeAPIError(w, http.StatusConflict, "Room is already full")
		return
	default:
		writeAPIError(w, http.StatusInternalServerError, "Something went wrong")
		return
	}

	writeData(w, http.StatusCreated, "Student created successfully", mapUserSummary(user))
}

// insertAccount is the shared tail of the non-student provisioning handlers:
// uniqueness check, password hash, insert. A non-empty message means failure.
func (s *Server) insertAccount(r *http.Request, req createAccountRequest, role string, hostelID *string) (model.User, int, string) {
	if s.store.UsernameOrEmailTaken(r.Context(), req.Username, req.Email) {
		return model.User{}, http.StatusConflict, "Username or email already in use"
	}

	hash, err := crypto.HashPassword(req.Password)
	if err != nil {
		return model.User{}, http.StatusInternalServerError, "Something went wrong"
	}

	now := time.Now().UTC()
	user := model.User{
		ID:           uuid.NewString(),
		Username:     req.Username,
		Email:        req.Email,
		FullName:     req.FullName,
		PasswordHash: hash,
		Role:         role,
		Mobile:       req.Mobile,
		HostelID:     hostelID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateUser(r.Context(), user); err != nil {
		return model.User{}, http.StatusInternalServerError, "Something went wrong"
	}
	return user, 0, ""
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)
	filter := repository.UserFilter{
		Role:     strings.TrimSpace(r.URL.Query().Get("role")),
		HostelID: strings.TrimSpace(r.URL.Query().Get("hostel")),
		Search:   strings.TrimSpace(r.URL.Query().Get("search")),
		Page:     page,
		Limit:    limit,
	}

	rows, total, err := s.store.ListUsers(r.Context(), filter)
	if err != nil {
		writeAPIError(w, http.StatusInternalServerError, "Something went wrong")
		return
	}

	users := make([]userSummary, 0, len(rows))
	for _, row := range rows {
		users = append(users, mapUserRowSummary(row))
	}

	writeData(w, http.StatusOK, "", map[string]interface{}{
		"users":      users,
		"pagination": newPaginationMeta(total, page, limit),
	})
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	row, err := s.store.GetUserRowByID(r.Context(), userID)
	if err != nil {
		writeAPIError(w, http.StatusNotFound, "User not found")
		return
	}
	writeData(w, http.StatusOK, "", mapUserRowSummary(row))
}

type updateUserRequest struct {
	Username *string `json:"username,omitempty"`
	Email    *string `json:"email,omitempty"`
	FullName *string `json:"fullName,omitempty"`
	Mobile   *string `json:"mobile,omitempty"`
	HostelID *string `json:"hostelId,omitempty"`
	RoomID   *string `json:"roomId,omitempty"`
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var req updateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAPIError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	existing, err := s.store.GetUserByID(r.Context(), userID)
	if err != nil {
		writeAPIError(w, http.StatusNotFound, "User not found")
		return
	}

	if req.HostelID != nil && *req.HostelID != "" && (req.RoomID == nil || *req.RoomID == "") {
		writeAPIError(w, http.StatusBadRequest, "roomId is required when changing the hostel")
		return
	}

	// A room change re-runs the capacity check before the field update.
	if req.RoomID != nil && *req.RoomID != "" {
		hostelID := existing.HostelID
		if req.HostelID != nil && *req.HostelID != "" {
			hostelID = req.HostelID
		}
		if hostelID == nil {
			writeAPIError(w, http.StatusBadRequest, "hostelId is required when assigning a room")
			return
		}
		err := s.store.MoveUserToRoom(r.Context(), userID, *hostelID, *req.RoomID, time.Now().UTC())
		switch {
		case err == nil:
		case errors.Is(err, pgx.ErrNoRows):
			writeAPIError(w, http.StatusNotFound, "Room not found")
			return
		case errors.Is(err, repository.ErrRoomHostelMismatch):
			writeAPIError(w, http.StatusConflict, "Room does not belong to the given hostel")
			return
		case errors.Is(err, repository.ErrRoomFull):
			writeAPIError(w, http.StatusConflict, "Room is already full")
			return
		default:
			writeAPIError(w, http.StatusInternalServerError, "Something went wrong")
			return
		}
	}

	update := repository.UserUpdate{}
	if req.Username != nil {
		username := strings.ToLower(strings.TrimSpace(*req.Username))
		if username != "" {
			update.Username = &username
		}
	}
	if req.Email != nil {
		email := strings.TrimSpace(strings.ToLower(*req.Email))
		if email != "" {
			update.Email = &email
		}
	}
	if req.FullName != nil {
		name := strings.TrimSpace(*req.FullName)
		if name != "" {
			update.FullName = &name
		}
	}
	if req.Mobile != nil {
		update.Mobile = req.Mobile
	}

	if update.Username != nil || update.Email != nil {
		username := existing.Username
		if update.Username != nil {
			username = *update.Username
		}
		email := existing.Email
		if update.Email != nil {
			email = *update.Email
		}
		if s.store.UsernameOrEmailTakenByOther(r.Context(), username, email, userID) {
			writeAPIError(w, http.StatusConflict, "Username or email already in use")
			return
		}
	}

	if _, err := s.store.UpdateUser(r.Context(), userID, update); err != nil {
		writeAPIError(w, http.StatusInternalServerError, "Something went wrong")
		return
	}

	row, err := s.store.GetUserRowByID(r.Context(), userID)
	if err != nil {
		writeAPIError(w, http.StatusNotFound, "User not found")
		return
	}
	writeData(w, http.StatusOK, "User updated successfully", mapUserRowSummary(row))
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	deleted, err := s.store.DeleteUser(r.Context(), userID)
	if err != nil {
		writeAPIError(w, http.StatusInternalServerError, "Something went wrong")
		return
	}
	if !deleted {
		writeAPIError(w, http.StatusNotFound, "User not found")
		return
	}
	writeData(w, http.StatusOK, "User deleted successfully", nil)
}
