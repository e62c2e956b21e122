package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ayushroy-246/hmp/internal/model"
)

type createHostelRequest struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

type hostelSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Code      string `json:"code"`
	RoomCount int    `json:"roomCount"`
	CreatedAt string `json:"createdAt"`
}

func (s *Server) handleCreateHostel(w http.ResponseWriter, r *http.Request) {
	var req createHostelRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAPIError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Code = strings.ToUpper(strings.TrimSpace(req.Code))
	if req.Name == "" || req.Code == "" {
		writeAPIError(w, http.StatusBadRequest, "Please provide name and code")
		return
	}

	if s.store.HostelCodeTaken(r.Context(), req.Code) {
		writeAPIError(w, http.StatusConflict, "Hostel code already in use")
		return
	}

	hostel := model.Hostel{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Code:      req.Code,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateHostel(r.Context(), hostel); err != nil {
		writeAPIError(w, http.StatusInternalServerError, "Something went wrong")
		return
	}

	writeData(w, http.StatusCreated, "Hostel created successfully", hostelSummary{
		ID:        hostel.ID,
		Name:      hostel.Name,
		Code:      hostel.Code,
		CreatedAt: hostel.CreatedAt.Format(time.RFC3339),
	})
}

func (s *Server) handleListHostels(w http.ResponseWriter, r *http.Request) {
	rows, err := s.store.ListHostels(r.Context())
	if err != nil {
		writeAPIError(w, http.StatusInternalServerError, "Something went wrong")
		return
	}

	hostels := make([]hostelSummary, 0, len(rows))
	for _, row := range rows {
		hostels = append(hostels, hostelSummary{
			ID:        row.ID,
			Name:      row.Name,
			Code:      row.Code,
			RoomCount: row.RoomCount,
			CreatedAt: row.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	writeData(w, http.StatusOK, "", hostels)
}

type createRoomRequest struct {
	Number   string `json:"number"`
	HostelID string `json:"hostelId"`
	Capacity int    `json:"capacity"`
}

type roomSummary struct {
	ID        string `json:"id"`
	Number    string `json:"number"`
	HostelID  string `json:"hostelId"`
	Capacity  int    `json:"capacity"`
	Occupants int    `json:"occupants"`
	CreatedAt string `json:"createdAt"`
}

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAPIError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Number = strings.TrimSpace(req.Number)
	if req.Number == "" || req.HostelID == "" {
		writeAPIError(w, http.StatusBadRequest, "Please provide number and hostelId")
		return
	}
	if req.Capacity <= 0 {
		req.Capacity = 1
	}

	if _, err := s.store.GetHostelByID(r.Context(), req.HostelID); err != nil {
		writeAPIError(w, http.StatusNotFound, "Hostel not found")
		return
	}
	if s.store.RoomNumberTaken(r.Context(), req.HostelID, req.Number) {
		writeAPIError(w, http.StatusConflict, "Room number already exists in this hostel")
		return
	}

	room := model.Room{
		ID:        uuid.NewString(),
		Number:    req.Number,
		HostelID:  req.HostelID,
		Capacity:  req.Capacity,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateRoom(r.Context(), room); err != nil {
		writeAPIError(w, http.StatusInternalServerError, "Something went wrong")
		return
	}

	writeData(w, http.StatusCreated, "Room created successfully", roomSummary{
		ID:        room.ID,
		Number:    room.Number,
		HostelID:  room.HostelID,
		Capacity:  room.Capacity,
		CreatedAt: room.CreatedAt.Format(time.RFC3339),
	})
}

func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	hostelID := strings.TrimSpace(r.URL.Query().Get("hostel"))

	rows, err := s.store.ListRooms(r.Context(), hostelID)
	if err != nil {
		writeAPIError(w, http.StatusInternalServerError, "Something went wrong")
		return
	}

	rooms := make([]roomSummary, 0, len(rows))
	for _, row := range rows {
		rooms = append(rooms, roomSummary{
			ID:        row.ID,
			Number:    row.Number,
			HostelID:  row.HostelID,
			Capacity:  row.Capacity,
			Occupants: row.Occupants,
			CreatedAt: row.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	writeData(w, http.StatusOK, "", rooms)
}
