package repository

import (
	"context"

	"github.com/ayushroy-246/hmp/internal/model"
)

func (s *Store) CreateStaff(ctx context.Context, staff model.Staff) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO staff (id, phone, full_name, roles, hostel_id, pin_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, staff.ID, staff.Phone, staff.FullName, staff.Roles, staff.HostelID, staff.PINHash,
		staff.CreatedAt, staff.UpdatedAt)
	return err
}

func (s *Store) StaffPhoneTaken(ctx context.Context, phone, hostelID string) bool {
	return exists(ctx, s.pool, `SELECT 1 FROM staff WHERE phone = $1 AND hostel_id = $2`, phone, hostelID)
}

func (s *Store) GetStaffByID(ctx context.Context, staffID string) (model.Staff, error) {
	var staff model.Staff
	row := s.pool.QueryRow(ctx, `
		SELECT id, phone, full_name, roles, hostel_id, pin_hash, created_at, updated_at
		FROM staff
		WHERE id = $1
	`, staffID)
	err := row.Scan(&staff.ID, &staff.Phone, &staff.FullName, &staff.Roles, &staff.HostelID,
		&staff.PINHash, &staff.CreatedAt, &staff.UpdatedAt)
	return staff, err
}

// ListStaffByPhone returns every staff record for a phone number. The same
// number can exist in several hostels, so PIN verification picks the match.
func (s *Store) ListStaffByPhone(ctx context.Context, phone string) ([]model.Staff, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, phone, full_name, roles, hostel_id, pin_hash, created_at, updated_at
		FROM staff
		WHERE phone = $1
		ORDER BY created_at
	`, phone)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []model.Staff
	for rows.Next() {
		var staff model.Staff
		if err := rows.Scan(&staff.ID, &staff.Phone, &staff.FullName, &staff.Roles, &staff.HostelID,
			&staff.PINHash, &staff.CreatedAt, &staff.UpdatedAt); err != nil {
			return nil, err
		}
		members = append(members, staff)
	}
	return members, rows.Err()
}
