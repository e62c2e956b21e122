package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ayushroy-246/hmp/internal/crypto"
	"github.com/ayushroy-246/hmp/internal/enrollment"
	"github.com/ayushroy-246/hmp/internal/model"
	"github.com/ayushroy-246/hmp/internal/repository"
)

type rosterEntry struct {
	ID                string  `json:"id"`
	FullName          string  `json:"fullName"`
	Username          string  `json:"username"`
	Email             string  `json:"email"`
	Mobile            *string `json:"mobile,omitempty"`
	RoomNumber        *string `json:"roomNumber,omitempty"`
	HasChronicDisease *bool   `json:"hasChronicDisease,omitempty"`
	CreatedAt         string  `json:"createdAt"`
}

func (s *Server) handleWardenStudents(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims.HostelID == nil {
		writeAPIError(w, http.StatusForbidden, "No hostel is assigned to your account")
		return
	}

	page, limit := pageParams(r)
	filter := repository.RosterFilter{
		HostelID: *claims.HostelID,
		Search:   strings.TrimSpace(r.URL.Query().Get("search")),
		Page:     page,
		Limit:    limit,
	}
	switch strings.TrimSpace(r.URL.Query().Get("hasChronicDisease")) {
	case "true":
		yes := true
		filter.HasChronicDisease = &yes
	case "false":
		no := false
		filter.HasChronicDisease = &no
	}

	rows, total, err := s.store.ListStudentsForWarden(r.Context(), filter)
	if err != nil {
		writeAPIError(w, http.StatusInternalServerError, "Something went wrong")
		return
	}

	students := make([]rosterEntry, 0, len(rows))
	for _, row := range rows {
		students = append(students, rosterEntry{
			ID:                row.ID,
			FullName:          row.FullName,
			Username:          row.Username,
			Email:             row.Email,
			Mobile:            row.Mobile,
			RoomNumber:        row.RoomNumber,
			HasChronicDisease: row.HasChronicDisease,
			CreatedAt:         row.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	writeData(w, http.StatusOK, "", map[string]interface{}{
		"students":   students,
		"pagination": newPaginationMeta(total, page, limit),
	})
}

// handleWardenStudentDetail returns one student with profile and academic
// fields. Wardens only see students of their own hostel.
func (s *Server) handleWardenStudentDetail(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims.HostelID == nil {
		writeAPIError(w, http.StatusForbidden, "No hostel is assigned to your account")
		return
	}

	userID := chi.URLParam(r, "userID")
	row, err := s.store.GetUserRowByID(r.Context(), userID)
	if err != nil {
		writeAPIError(w, http.StatusNotFound, "Student not found")
		return
	}
	if row.Role != model.RoleStudent {
		writeAPIError(w, http.StatusNotFound, "Student not found")
		return
	}
	if row.HostelID == nil || *row.HostelID != *claims.HostelID {
		writeAPIError(w, http.StatusForbidden, "Student belongs to another hostel")
		return
	}

	resp := profileResponse{
		Username:   row.Username,
		FullName:   row.FullName,
		Email:      row.Email,
		Mobile:     row.Mobile,
		HostelName: row.HostelName,
		RoomNumber: row.RoomNumber,
		Academic:   enrollment.Decode(row.Username),
	}
	if profile, err := s.store.GetStudentProfile(r.Context(), userID); err == nil {
		resp.Profile = mapProfileDetails(profile)
	}

	writeData(w, http.StatusOK, "", resp)
}

type createStaffRequest struct {
	Phone    string   `json:"phone"`
	FullName string   `json:"fullName"`
	Roles    []string `json:"roles"`
	PIN      string   `json:"pin"`
}

// handleCreateStaff registers a maintenance staff member for the warden's
// hostel. Staff are a separate identity space from portal users.
func (s *Server) handleCreateStaff(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims.HostelID == nil {
		writeAPIError(w, http.StatusForbidden, "No hostel is assigned to your account")
		return
	}

	var req createStaffRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAPIError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Phone = strings.TrimSpace(req.Phone)
	req.FullName = strings.TrimSpace(req.FullName)
	if req.Phone == "" || req.FullName == "" || len(req.Roles) == 0 || req.PIN == "" {
		writeAPIError(w, http.StatusBadRequest, "Please provide phone, fullName, roles and pin")
		return
	}
	if len(req.PIN) < 4 {
		writeAPIError(w, http.StatusBadRequest, "PIN must be at least 4 digits")
		return
	}

	roles := make([]string, 0, len(req.Roles))
	for _, role := range req.Roles {
		role = strings.TrimSpace(strings.ToLower(role))
		if !model.ValidTradeRole(role) {
			writeAPIError(w, http.StatusBadRequest, "Unknown staff role", role)
			return
		}
		roles = append(roles, role)
	}

	if s.store.StaffPhoneTaken(r.Context(), req.Phone, *claims.HostelID) {
		writeAPIError(w, http.StatusConflict, "Staff with this phone already exists in your hostel")
		return
	}

	pinHash, err := crypto.HashPassword(req.PIN)
	if err != nil {
		writeAPIError(w, http.StatusInternalServerError, "Something went wrong")
		return
	}

	now := time.Now().UTC()
	staff := model.Staff{
		ID:        uuid.NewString(),
		Phone:     req.Phone,
		FullName:  req.FullName,
		Roles:     roles,
		HostelID:  *claims.HostelID,
		PINHash:   pinHash,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateStaff(r.Context(), staff); err != nil {
		writeAPIError(w, http.StatusInternalServerError, "Something went wrong")
		return
	}

	writeData(w, http.StatusCreated, "Staff created successfully", staffSummary{
		ID:       staff.ID,
		Phone:    staff.Phone,
		FullName: staff.FullName,
		Roles:    staff.Roles,
		HostelID: staff.HostelID,
	})
}
