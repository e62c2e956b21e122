package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ayushroy-246/hmp/internal/model"
)

const complaintColumns = `id, title, description, assigned_role, student_id, hostel_id, room_id, mobile,
	status_by_student, status_by_staff, resolved_at, created_at, updated_at`

func scanComplaint(row pgx.Row) (model.Complaint, error) {
	var c model.Complaint
	err := row.Scan(
		&c.ID,
		&c.Title,
		&c.Description,
		&c.AssignedRole,
		&c.StudentID,
		&c.HostelID,
		&c.RoomID,
		&c.Mobile,
		&c.StatusByStudent,
		&c.StatusByStaff,
		&c.ResolvedAt,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	return c, err
}

func (s *Store) CreateComplaint(ctx context.Context, c model.Complaint) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO complaints (id, title, description, assigned_role, student_id, hostel_id, room_id, mobile,
			status_by_student, status_by_staff, resolved_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, c.ID, c.Title, c.Description, c.AssignedRole, c.StudentID, c.HostelID, c.RoomID, c.Mobile,
		c.StatusByStudent, c.StatusByStaff, c.ResolvedAt, c.CreatedAt, c.UpdatedAt)
	return err
}

func (s *Store) GetComplaintByID(ctx context.Context, complaintID string) (model.Complaint, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+complaintColumns+` FROM complaints WHERE id = $1`, complaintID)
	return scanComplaint(row)
}

// ResolveComplaint marks the student axis resolved, scoped to the owning
// student in the same statement. pgx.ErrNoRows means not found or not owned.
func (s *Store) ResolveComplaint(ctx context.Context, complaintID, studentID string, resolvedAt time.Time) (model.Complaint, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE complaints
		SET status_by_student = $1, resolved_at = $2, updated_at = $2
		WHERE id = $3 AND student_id = $4
		RETURNING `+complaintColumns+`
	`, model.ComplaintResolved, resolvedAt, complaintID, studentID)
	return scanComplaint(row)
}

func (s *Store) DeleteComplaint(ctx context.Context, complaintID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM complaints WHERE id = $1`, complaintID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ComplaintRow is a ticket with display fields joined in for list views.
type ComplaintRow struct {
	model.Complaint
	HostelName  *string
	RoomNumber  *string
	StudentName *string
	Enrollment  *string
}

type ComplaintFilter struct {
	StudentID       string
	HostelID        string
	StatusByStudent string
	AssignedRole    string
	Search          string
}

func (s *Store) ListComplaints(ctx context.Context, filter ComplaintFilter) ([]ComplaintRow, error) {
	where := []string{}
	args := []interface{}{}
	arg := func(value interface{}) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.StudentID != "" {
		where = append(where, "c.student_id = "+arg(filter.StudentID))
	}
	if filter.HostelID != "" {
		where = append(where, "c.hostel_id = "+arg(filter.HostelID))
	}
	if filter.StatusByStudent != "" {
		where = append(where, "c.status_by_student = "+arg(filter.StatusByStudent))
	}
	if filter.AssignedRole != "" {
		where = append(where, "c.assigned_role = "+arg(filter.AssignedRole))
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		where = append(where, "(u.full_name ILIKE "+arg(pattern)+" OR u.username ILIKE "+arg(pattern)+" OR c.title ILIKE "+arg(pattern)+")")
	}

	query := `
		SELECT c.id, c.title, c.description, c.assigned_role, c.student_id, c.hostel_id, c.room_id, c.mobile,
			c.status_by_student, c.status_by_staff, c.resolved_at, c.created_at, c.updated_at,
			h.name, r.number, u.full_name, u.username
		FROM complaints c
		LEFT JOIN hostels h ON h.id = c.hostel_id
		LEFT JOIN rooms r ON r.id = c.room_id
		LEFT JOIN users u ON u.id = c.student_id
	`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY c.created_at DESC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var complaints []ComplaintRow
	for rows.Next() {
		var c ComplaintRow
		if err := rows.Scan(
			&c.ID, &c.Title, &c.Description, &c.AssignedRole, &c.StudentID, &c.HostelID, &c.RoomID, &c.Mobile,
			&c.StatusByStudent, &c.StatusByStaff, &c.ResolvedAt, &c.CreatedAt, &c.UpdatedAt,
			&c.HostelName, &c.RoomNumber, &c.StudentName, &c.Enrollment,
		); err != nil {
			return nil, err
		}
		complaints = append(complaints, c)
	}
	return complaints, rows.Err()
}

// ComplaintStats counts the student axis, optionally scoped to one hostel.
func (s *Store) ComplaintStats(ctx context.Context, hostelID string) (pending, resolved int, err error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE status_by_student = 'PENDING'),
			COUNT(*) FILTER (WHERE status_by_student = 'RESOLVED')
		FROM complaints
	`
	args := []interface{}{}
	if hostelID != "" {
		query += ` WHERE hostel_id = $1`
		args = append(args, hostelID)
	}
	err = s.pool.QueryRow(ctx, query, args...).Scan(&pending, &resolved)
	return pending, resolved, err
}
