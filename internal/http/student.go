package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ayushroy-246/hmp/internal/enrollment"
	"github.com/ayushroy-246/hmp/internal/model"
)

func (s *Server) handleDashboardStats(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	dashboard, err := s.store.GetStudentDashboard(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeAPIError(w, http.StatusNotFound, "User not found")
			return
		}
		writeAPIError(w, http.StatusInternalServerError, "Something went wrong")
		return
	}
	writeData(w, http.StatusOK, "", dashboard)
}

type profileResponse struct {
	Username   string              `json:"username"`
	FullName   string              `json:"fullName"`
	Email      string              `json:"email"`
	Mobile     *string             `json:"mobile,omitempty"`
	HostelName *string             `json:"hostelName,omitempty"`
	RoomNumber *string             `json:"roomNumber,omitempty"`
	Academic   enrollment.Academic `json:"academic"`
	Profile    *profileDetails     `json:"profile,omitempty"`
}

type profileDetails struct {
	Gender                 string  `json:"gender"`
	DateOfBirth            string  `json:"dateOfBirth"`
	BloodGroup             string  `json:"bloodGroup"`
	FatherName             string  `json:"fatherName"`
	FatherPhone            string  `json:"fatherPhone"`
	MotherName             string  `json:"motherName"`
	MotherPhone            *string `json:"motherPhone,omitempty"`
	AddressLine1           string  `json:"addressLine1"`
	AddressLine2           *string `json:"addressLine2,omitempty"`
	City                   string  `json:"city"`
	State                  string  `json:"state"`
	Pincode                string  `json:"pincode"`
	HasChronicDisease      bool    `json:"hasChronicDisease"`
	ChronicDiseaseDetails  *string `json:"chronicDiseaseDetails,omitempty"`
	EmergencyContactName   *string `json:"emergencyContactName,omitempty"`
	EmergencyContactNumber *string `json:"emergencyContactNumber,omitempty"`
}

func mapProfileDetails(p model.StudentProfile) *profileDetails {
	return &profileDetails{
		Gender:                 p.Gender,
		DateOfBirth:            p.DateOfBirth,
		BloodGroup:             p.BloodGroup,
		FatherName:             p.FatherName,
		FatherPhone:            p.FatherPhone,
		MotherName:             p.MotherName,
		MotherPhone:            p.MotherPhone,
		AddressLine1:           p.AddressLine1,
		AddressLine2:           p.AddressLine2,
		City:                   p.City,
		State:                  p.State,
		Pincode:                p.Pincode,
		HasChronicDisease:      p.HasChronicDisease,
		ChronicDiseaseDetails:  p.ChronicDiseaseDetails,
		EmergencyContactName:   p.EmergencyContactName,
		EmergencyContactNumber: p.EmergencyContactNumber,
	}
}

// handleGetProfile merges the account record, the stored profile form and the
// academic fields decoded from the enrollment id. Academic fields are never
// stored; the enrollment id is the single source.
func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	row, err := s.store.GetUserRowByID(r.Context(), claims.UserID)
	if err != nil {
		writeAPIError(w, http.StatusNotFound, "User not found")
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

	if profile, err := s.store.GetStudentProfile(r.Context(), claims.UserID); err == nil {
		resp.Profile = mapProfileDetails(profile)
	}

	writeData(w, http.StatusOK, "", resp)
}

type updateProfileRequest struct {
	Gender                 string  `json:"gender"`
	DateOfBirth            string  `json:"dateOfBirth"`
	BloodGroup             string  `json:"bloodGroup"`
	FatherName             string  `json:"fatherName"`
	FatherPhone            string  `json:"fatherPhone"`
	MotherName             string  `json:"motherName"`
	MotherPhone            *string `json:"motherPhone,omitempty"`
	AddressLine1           string  `json:"addressLine1"`
	AddressLine2           *string `json:"addressLine2,omitempty"`
	City                   string  `json:"city"`
	State                  string  `json:"state"`
	Pincode                string  `json:"pincode"`
	HasChronicDisease      bool    `json:"hasChronicDisease"`
	ChronicDiseaseDetails  *string `json:"chronicDiseaseDetails,omitempty"`
	EmergencyContactName   *string `json:"emergencyContactName,omitempty"`
	EmergencyContactNumber *string `json:"emergencyContactNumber,omitempty"`
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	var req updateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAPIError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	missing := []string{}
	required := map[string]string{
		"gender":       strings.TrimSpace(req.Gender),
		"dateOfBirth":  strings.TrimSpace(req.DateOfBirth),
		"bloodGroup":   strings.TrimSpace(req.BloodGroup),
		"fatherName":   strings.TrimSpace(req.FatherName),
		"fatherPhone":  strings.TrimSpace(req.FatherPhone),
		"motherName":   strings.TrimSpace(req.MotherName),
		"addressLine1": strings.TrimSpace(req.AddressLine1),
		"city":         strings.TrimSpace(req.City),
		"state":        strings.TrimSpace(req.State),
		"pincode":      strings.TrimSpace(req.Pincode),
	}
	for field, value := range required {
		if value == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		writeAPIError(w, http.StatusBadRequest, "Missing required profile fields", missing...)
		return
	}
	if req.HasChronicDisease && (req.ChronicDiseaseDetails == nil || strings.TrimSpace(*req.ChronicDiseaseDetails) == "") {
		writeAPIError(w, http.StatusBadRequest, "Please describe the chronic disease")
		return
	}

	now := time.Now().UTC()
	profile := model.StudentProfile{
		UserID:                 claims.UserID,
		Gender:                 strings.TrimSpace(req.Gender),
		DateOfBirth:            strings.TrimSpace(req.DateOfBirth),
		BloodGroup:             strings.TrimSpace(req.BloodGroup),
		FatherName:             strings.TrimSpace(req.FatherName),
		FatherPhone:            strings.TrimSpace(req.FatherPhone),
		MotherName:             strings.TrimSpace(req.MotherName),
		MotherPhone:            req.MotherPhone,
		AddressLine1:           strings.TrimSpace(req.AddressLine1),
		AddressLine2:           req.AddressLine2,
		City:                   strings.TrimSpace(req.City),
		State:                  strings.TrimSpace(req.State),
		Pincode:                strings.TrimSpace(req.Pincode),
		HasChronicDisease:      req.HasChronicDisease,
		ChronicDiseaseDetails:  req.ChronicDiseaseDetails,
		EmergencyContactName:   req.EmergencyContactName,
		EmergencyContactNumber: req.EmergencyContactNumber,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	if err := s.store.UpsertStudentProfile(r.Context(), profile); err != nil {
		writeAPIError(w, http.StatusInternalServerError, "Something went wrong")
		return
	}

	writeData(w, http.StatusOK, "Profile updated successfully", mapProfileDetails(profile))
}

func (s *Server) handleProfileStatus(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	complete := s.store.StudentProfileExists(r.Context(), claims.UserID)
	writeData(w, http.StatusOK, "", map[string]bool{"isComplete": complete})
}
