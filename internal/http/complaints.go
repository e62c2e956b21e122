package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ayushroy-246/hmp/internal/model"
	"github.com/ayushroy-246/hmp/internal/repository"
)

type createComplaintRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	// assignedRole is the older client field name for category.
	AssignedRole string `json:"assignedRole"`
}

type complaintSummary struct {
	ID              string  `json:"id"`
	Title           string  `json:"title"`
	Description     string  `json:"description"`
	Category        string  `json:"category"`
	StudentID       string  `json:"studentId"`
	StudentName     *string `json:"studentName,omitempty"`
	Enrollment      *string `json:"enrollment,omitempty"`
	HostelName      *string `json:"hostelName,omitempty"`
	RoomNumber      *string `json:"roomNumber,omitempty"`
	Mobile          *string `json:"mobile,omitempty"`
	StatusByStudent string  `json:"statusByStudent"`
	StatusByStaff   string  `json:"statusByStaff"`
	ResolvedAt      *string `json:"resolvedAt,omitempty"`
	CreatedAt       string  `json:"createdAt"`
}

func mapComplaintSummary(c model.Complaint) complaintSummary {
	summary := complaintSummary{
		ID:              c.ID,
		Title:           c.Title,
		Description:     c.Description,
		Category:        c.AssignedRole,
		StudentID:       c.StudentID,
		Mobile:          c.Mobile,
		StatusByStudent: c.StatusByStudent,
		StatusByStaff:   c.StatusByStaff,
		CreatedAt:       c.CreatedAt.UTC().Format(time.RFC3339),
	}
	if c.ResolvedAt != nil {
		resolved := c.ResolvedAt.UTC().Format(time.RFC3339)
		summary.ResolvedAt = &resolved
	}
	return summary
}

func mapComplaintRowSummary(row repository.ComplaintRow) complaintSummary {
	summary := mapComplaintSummary(row.Complaint)
	summary.StudentName = row.StudentName
	summary.Enrollment = row.Enrollment
	summary.HostelName = row.HostelName
	summary.RoomNumber = row.RoomNumber
	return summary
}

// handleCreateComplaint files a ticket for the caller. Hostel, room and
// mobile are snapshotted from the student record at creation time; later
// profile changes do not rewrite existing tickets.
func (s *Server) handleCreateComplaint(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	var req createComplaintRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAPIError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	req.Category = strings.TrimSpace(strings.ToLower(req.Category))
	if req.Category == "" {
		req.Category = strings.TrimSpace(strings.ToLower(req.AssignedRole))
	}
	if req.Title == "" || req.Description == "" || req.Category == "" {
		writeAPIError(w, http.StatusBadRequest, "Please provide title, description and category")
		return
	}
	if !model.ValidTradeRole(req.Category) {
		writeAPIError(w, http.StatusBadRequest, "Unknown complaint category")
		return
	}

	student, err := s.store.GetUserByID(r.Context(), claims.UserID)
	if err != nil {
		writeAPIError(w, http.StatusNotFound, "User not found")
		return
	}
	if student.HostelID == nil || student.RoomID == nil {
		writeAPIError(w, http.StatusBadRequest, "You must be assigned a hostel and room before filing a complaint")
		return
	}

	now := time.Now().UTC()
	complaint := model.Complaint{
		ID:              uuid.NewString(),
		Title:           req.Title,
		Description:     req.Description,
		AssignedRole:    req.Category,
		StudentID:       student.ID,
		HostelID:        *student.HostelID,
		RoomID:          *student.RoomID,
		Mobile:          student.Mobile,
		StatusByStudent: model.ComplaintPending,
		StatusByStaff:   model.ComplaintUnsettled,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.store.CreateComplaint(r.Context(), complaint); err != nil {
		writeAPIError(w, http.StatusInternalServerError, "Something went wrong")
		return
	}

	writeData(w, http.StatusCreated, "Complaint filed successfully", mapComplaintSummary(complaint))
}

func (s *Server) handleMyComplaints(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	filter := repository.ComplaintFilter{
		StudentID:       claims.UserID,
		StatusByStudent: strings.TrimSpace(r.URL.Query().Get("status")),
		AssignedRole:    strings.TrimSpace(strings.ToLower(r.URL.Query().Get("role"))),
		Search:          strings.TrimSpace(r.URL.Query().Get("search")),
	}
	rows, err := s.store.ListComplaints(r.Context(), filter)
	if err != nil {
		writeAPIError(w, http.StatusInternalServerError, "Something went wrong")
		return
	}

	complaints := make([]complaintSummary, 0, len(rows))
	for _, row := range rows {
		complaints = append(complaints, mapComplaintRowSummary(row))
	}
	writeData(w, http.StatusOK, "", complaints)
}

func (s *Server) handleResolveComplaint(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	complaintID := chi.URLParam(r, "complaintID")

	complaint, err := s.store.ResolveComplaint(r.Context(), complaintID, claims.UserID, time.Now().UTC())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeAPIError(w, http.StatusNotFound, "Complaint not found")
			return
		}
		writeAPIError(w, http.StatusInternalServerError, "Something went wrong")
		return
	}

	writeData(w, http.StatusOK, "Complaint resolved", mapComplaintSummary(complaint))
}

func (s *Server) handleDeleteComplaint(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	complaintID := chi.URLParam(r, "complaintID")

	complaint, err := s.store.GetComplaintByID(r.Context(), complaintID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeAPIError(w, http.StatusNotFound, "Complaint not found")
			return
		}
		writeAPIError(w, http.StatusInternalServerError, "Something went wrong")
		return
	}

	if complaint.StudentID != claims.UserID {
		writeAPIError(w, http.StatusForbidden, "You can only delete your own complaints")
		return
	}
	if complaint.StatusByStaff == model.ComplaintSettled {
		writeAPIError(w, http.StatusConflict, "Complaint has already been settled by staff")
		return
	}

	if err := s.store.DeleteComplaint(r.Context(), complaintID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeAPIError(w, http.StatusNotFound, "Complaint not found")
			return
		}
		writeAPIError(w, http.StatusInternalServerError, "Something went wrong")
		return
	}

	writeData(w, http.StatusOK, "Complaint deleted successfully", nil)
}

// handleWardenComplaints is the hostel-scoped ticket board. The hostel filter
// always comes from the warden's claims, never from the query string.
func (s *Server) handleWardenComplaints(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims.HostelID == nil {
		// A warden without a hostel just sees an empty board.
		writeData(w, http.StatusOK, "", []complaintSummary{})
		return
	}

	filter := repository.ComplaintFilter{
		HostelID:        *claims.HostelID,
		StatusByStudent: strings.TrimSpace(r.URL.Query().Get("status")),
		AssignedRole:    strings.TrimSpace(strings.ToLower(r.URL.Query().Get("role"))),
		Search:          strings.TrimSpace(r.URL.Query().Get("search")),
	}
	rows, err := s.store.ListComplaints(r.Context(), filter)
	if err != nil {
		writeAPIError(w, http.StatusInternalServerError, "Something went wrong")
		return
	}

	complaints := make([]complaintSummary, 0, len(rows))
	for _, row := range rows {
		complaints = append(complaints, mapComplaintRowSummary(row))
	}
	writeData(w, http.StatusOK, "", complaints)
}

type complaintStats struct {
	Pending  int `json:"pending"`
	Resolved int `json:"resolved"`
	Total    int `json:"total"`
}

// handleComplaintStats serves both the admin (global) and warden (own hostel)
// variants. Counts are cached briefly in Redis when a client is configured.
func (s *Server) handleComplaintStats(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	hostelID := ""
	if claims.Role == model.RoleWarden {
		if claims.HostelID == nil {
			writeAPIError(w, http.StatusForbidden, "No hostel is assigned to your account")
			return
		}
		hostelID = *claims.HostelID
	}

	cacheKey := fmt.Sprintf("hmp:complaint-stats:%s", hostelID)
	if s.cache != nil {
		if cached, err := s.cache.Get(r.Context(), cacheKey).Result(); err == nil {
			var stats complaintStats
			if json.Unmarshal([]byte(cached), &stats) == nil {
				writeData(w, http.StatusOK, "", stats)
				return
			}
		}
	}

	pending, resolved, err := s.store.ComplaintStats(r.Context(), hostelID)
	if err != nil {
		writeAPIError(w, http.StatusInternalServerError, "Something went wrong")
		return
	}
	stats := complaintStats{Pending: pending, Resolved: resolved, Total: pending + resolved}

	if s.cache != nil {
		if payload, err := json.Marshal(stats); err == nil {
			_ = s.cache.Set(r.Context(), cacheKey, payload, s.cfg.StatsCacheTTL).Err()
		}
	}

	writeData(w, http.StatusOK, "", stats)
}
