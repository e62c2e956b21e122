package repository

import (
	"context"

	"github.com/ayushroy-246/hmp/internal/model"
)

func (s *Store) UpsertStudentProfile(ctx context.Context, p model.StudentProfile) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO student_profiles (user_id, gender, date_of_birth, blood_group, father_name, father_phone,
			mother_name, mother_phone, address_line1, address_line2, city, state, pincode,
			has_chronic_disease, chronic_disease_details, emergency_contact_name, emergency_contact_number,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $18)
		ON CONFLICT (user_id) DO UPDATE SET
			gender = EXCLUDED.gender,
			date_of_birth = EXCLUDED.date_of_birth,
			blood_group = EXCLUDED.blood_group,
			father_name = EXCLUDED.father_name,
			father_phone = EXCLUDED.father_phone,
			mother_name = EXCLUDED.mother_name,
			mother_phone = EXCLUDED.mother_phone,
			address_line1 = EXCLUDED.address_line1,
			address_line2 = EXCLUDED.address_line2,
			city = EXCLUDED.city,
			state = EXCLUDED.state,
			pincode = EXCLUDED.pincode,
			has_chronic_disease = EXCLUDED.has_chronic_disease,
			chronic_disease_details = EXCLUDED.chronic_disease_details,
			emergency_contact_name = EXCLUDED.emergency_contact_name,
			emergency_contact_number = EXCLUDED.emergency_contact_number,
			updated_at = EXCLUDED.updated_at
	`, p.UserID, p.Gender, p.DateOfBirth, p.BloodGroup, p.FatherName, p.FatherPhone,
		p.MotherName, p.MotherPhone, p.AddressLine1, p.AddressLine2, p.City, p.State, p.Pincode,
		p.HasChronicDisease, p.ChronicDiseaseDetails, p.EmergencyContactName, p.EmergencyContactNumber,
		p.UpdatedAt)
	return err
}

func (s *Store) GetStudentProfile(ctx context.Context, userID string) (model.StudentProfile, error) {
	var p model.StudentProfile
	row := s.pool.QueryRow(ctx, `
		SELECT user_id, gender, date_of_birth, blood_group, father_name, father_phone,
			mother_name, mother_phone, address_line1, address_line2, city, state, pincode,
			has_chronic_disease, chronic_disease_details, emergency_contact_name, emergency_contact_number,
			created_at, updated_at
		FROM student_profiles
		WHERE user_id = $1
	`, userID)
	err := row.Scan(
		&p.UserID, &p.Gender, &p.DateOfBirth, &p.BloodGroup, &p.FatherName, &p.FatherPhone,
		&p.MotherName, &p.MotherPhone, &p.AddressLine1, &p.AddressLine2, &p.City, &p.State, &p.Pincode,
		&p.HasChronicDisease, &p.ChronicDiseaseDetails, &p.EmergencyContactName, &p.EmergencyContactNumber,
		&p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

func (s *Store) StudentProfileExists(ctx context.Context, userID string) bool {
	return exists(ctx, s.pool, `SELECT 1 FROM student_profiles WHERE user_id = $1`, userID)
}

// StudentDashboard is the student's home summary, assembled by one joined
// query mirroring what the original dashboard aggregation returned.
type StudentDashboard struct {
	FullName         string  `json:"fullName"`
	Enrollment       string  `json:"enrollment"`
	HostelName       *string `json:"hostelName"`
	RoomNumber       *string `json:"roomNumber"`
	WardenName       *string `json:"wardenName"`
	WardenPhone      *string `json:"wardenPhone"`
	ActiveComplaints int     `json:"activeComplaints"`
}

func (s *Store) GetStudentDashboard(ctx context.Context, studentID string) (StudentDashboard, error) {
	var d StudentDashboard
	row := s.pool.QueryRow(ctx, `
		SELECT u.full_name, u.username, h.name, r.number, w.full_name, w.mobile,
			(SELECT COUNT(*) FROM complaints c WHERE c.student_id = u.id AND c.status_by_student = 'PENDING')
		FROM users u
		LEFT JOIN hostels h ON h.id = u.hostel_id
		LEFT JOIN rooms r ON r.id = u.room_id
		LEFT JOIN users w ON w.hostel_id = u.hostel_id AND w.role = 'warden'
		WHERE u.id = $1
		LIMIT 1
	`, studentID)
	err := row.Scan(&d.FullName, &d.Enrollment, &d.HostelName, &d.RoomNumber, &d.WardenName, &d.WardenPhone, &d.ActiveComplaints)
	return d, err
}
