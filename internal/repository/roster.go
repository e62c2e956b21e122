package repository

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// StudentRosterRow is one entry of a warden's student roster, with room and
// profile flags joined in.
type StudentRosterRow struct {
	ID                string
	FullName          string
	Username          string
	Email             string
	Mobile            *string
	RoomNumber        *string
	HasChronicDisease *bool
	CreatedAt         time.Time
}

type RosterFilter struct {
	HostelID          string
	Search            string
	HasChronicDisease *bool
	Page              int
	Limit             int
}

// ListStudentsForWarden pages through the students of one hostel. Search is a
// case-insensitive substring over name, enrollment id and room number.
func (s *Store) ListStudentsForWarden(ctx context.Context, filter RosterFilter) ([]StudentRosterRow, int, error) {
	where := []string{"u.role = 'student'"}
	args := []interface{}{}
	arg := func(value interface{}) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", len(args))
	}

	where = append(where, "u.hostel_id = "+arg(filter.HostelID))
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		where = append(where, "(u.full_name ILIKE "+arg(pattern)+" OR u.username ILIKE "+arg(pattern)+" OR r.number ILIKE "+arg(pattern)+")")
	}
	if filter.HasChronicDisease != nil {
		where = append(where, "COALESCE(p.has_chronic_disease, false) = "+arg(*filter.HasChronicDisease))
	}

	from := `
		FROM users u
		LEFT JOIN rooms r ON r.id = u.room_id
		LEFT JOIN student_profiles p ON p.user_id = u.id
		WHERE ` + strings.Join(where, " AND ")

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) `+from, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	query := `
		SELECT u.id, u.full_name, u.username, u.email, u.mobile, r.number, p.has_chronic_disease, u.created_at
		` + from + `
		ORDER BY u.created_at DESC
		LIMIT ` + arg(filter.Limit) + ` OFFSET ` + arg(offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var students []StudentRosterRow
	for rows.Next() {
		var st StudentRosterRow
		if err := rows.Scan(&st.ID, &st.FullName, &st.Username, &st.Email, &st.Mobile, &st.RoomNumber, &st.HasChronicDisease, &st.CreatedAt); err != nil {
			return nil, 0, err
		}
		students = append(students, st)
	}
	return students, total, rows.Err()
}
