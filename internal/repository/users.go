package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ayushroy-246/hmp/internal/model"
)

// ErrRoomFull and ErrRoomHostelMismatch are returned by the capacity-checked
// assignment paths so handlers can map them to 409.
var (
	ErrRoomFull           = errors.New("room full")
	ErrRoomHostelMismatch = errors.New("room does not belong to hostel")
)

const userColumns = `id, username, email, full_name, password_hash, role, mobile, hostel_id, room_id, created_at, updated_at`

func scanUser(row pgx.Row) (model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.FullName,
		&user.PasswordHash,
		&user.Role,
		&user.Mobile,
		&user.HostelID,
		&user.RoomID,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	return user, err
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (model.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
	return scanUser(row)
}

func (s *Store) GetUserByID(ctx context.Context, userID string) (model.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID)
	return scanUser(row)
}

// UsernameOrEmailTakenByOther reports whether a different account already
// holds the username or email. Used by rename/re-email updates, where the
// target's own row must not count as a conflict.
func (s *Store) UsernameOrEmailTakenByOther(ctx context.Context, username, email, userID string) bool {
	return exists(ctx, s.pool, `SELECT 1 FROM users WHERE (username = $1 OR email = $2) AND id <> $3`, username, email, userID)
}

func (s *Store) UsernameOrEmailTaken(ctx context.Context, username, email string) bool {
	return exists(ctx, s.pool, `SELECT 1 FROM users WHERE username = $1 OR email = $2`, username, email)
}

func (s *Store) SuperAdminExists(ctx context.Context) bool {
	return exists(ctx, s.pool, `SELECT 1 FROM users WHERE role = $1`, model.RoleSuperAdmin)
}

func (s *Store) CreateUser(ctx context.Context, user model.User) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, username, email, full_name, password_hash, role, mobile, hostel_id, room_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, user.ID, user.Username, user.Email, user.FullName, user.PasswordHash, user.Role,
		user.Mobile, user.HostelID, user.RoomID, user.CreatedAt, user.UpdatedAt)
	return err
}

// CreateStudentInRoom inserts a student after validating the room inside one
// transaction: the room row is locked, so a concurrent enrollment into the
// last free slot cannot overfill the room.
func (s *Store) CreateStudentInRoom(ctx context.Context, user model.User, hostelID, roomID string) error {
	return s.WithTx(ctx, func(tx pgx.Tx) error {
		var roomHostelID string
		var capacity int
		row := tx.QueryRow(ctx, `SELECT hostel_id, capacity FROM rooms WHERE id = $1 FOR UPDATE`, roomID)
		if err := row.Scan(&roomHostelID, &capacity); err != nil {
			return err
		}
		if roomHostelID != hostelID {
			return ErrRoomHostelMismatch
		}

		var occupants int
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE room_id = $1`, roomID).Scan(&occupants); err != nil {
			return err
		}
		if occupants >= capacity {
			return ErrRoomFull
		}

		_, err := tx.Exec(ctx, `
			INSERT INTO users (id, username, email, full_name, password_hash, role, mobile, hostel_id, room_id, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`, user.ID, user.Username, user.Email, user.FullName, user.PasswordHash, user.Role,
			user.Mobile, user.HostelID, user.RoomID, user.CreatedAt, user.UpdatedAt)
		return err
	})
}

// MoveUserToRoom re-runs the capacity check when an admin update changes the
// room assignment. The moving user's own row is excluded from the count so a
// same-room update is a no-op.
func (s *Store) MoveUserToRoom(ctx context.Context, userID, hostelID, roomID string, updatedAt time.Time) error {
	return s.WithTx(ctx, func(tx pgx.Tx) error {
		var roomHostelID string
		var capacity int
		row := tx.QueryRow(ctx, `SELECT hostel_id, capacity FROM rooms WHERE id = $1 FOR UPDATE`, roomID)
		if err := row.Scan(&roomHostelID, &capacity); err != nil {
			return err
		}
		if roomHostelID != hostelID {
			return ErrRoomHostelMismatch
		}

		var occupants int
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE room_id = $1 AND id <> $2`, roomID, userID).Scan(&occupants); err != nil {
			return err
		}
		if occupants >= capacity {
			return ErrRoomFull
		}

		_, err := tx.Exec(ctx, `UPDATE users SET hostel_id = $1, room_id = $2, updated_at = $3 WHERE id = $4`, hostelID, roomID, updatedAt, userID)
		return err
	})
}

type UserUpdate struct {
	Username *string
	Email    *string
	FullName *string
	Mobile   *string
}

func (s *Store) UpdateUser(ctx context.Context, userID string, update UserUpdate) (model.User, error) {
	sets := []string{"updated_at = now()"}
	args := []interface{}{userID}
	add := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if update.Username != nil {
		add("username", *update.Username)
	}
	if update.Email != nil {
		add("email", *update.Email)
	}
	if update.FullName != nil {
		add("full_name", *update.FullName)
	}
	if update.Mobile != nil {
		add("mobile", *update.Mobile)
	}

	query := `UPDATE users SET ` + strings.Join(sets, ", ") + ` WHERE id = $1 RETURNING ` + userColumns
	return scanUser(s.pool.QueryRow(ctx, query, args...))
}

func (s *Store) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE users SET password_hash = $1, updated_at = now() WHERE id = $2`, passwordHash, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (s *Store) DeleteUser(ctx context.Context, userID string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// UserRow is a directory listing entry with its hostel and room joined in.
type UserRow struct {
	model.User
	HostelName *string
	HostelCode *string
	RoomNumber *string
}

type UserFilter struct {
	Role     string
	HostelID string
	Search   string
	Page     int
	Limit    int
}

// ListUsers returns one page of the directory plus the total match count.
// Without a role filter, admin and superAdmin accounts are excluded, matching
// what the admin directory screen shows.
func (s *Store) ListUsers(ctx context.Context, filter UserFilter) ([]UserRow, int, error) {
	where := []string{}
	args := []interface{}{}
	arg := func(value interface{}) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Role != "" {
		where = append(where, "u.role = "+arg(filter.Role))
	} else {
		where = append(where, "u.role NOT IN ('admin', 'superAdmin')")
	}
	if filter.HostelID != "" {
		where = append(where, "u.hostel_id = "+arg(filter.HostelID))
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		where = append(where, "(u.full_name ILIKE "+arg(pattern)+" OR u.username ILIKE "+arg(pattern)+")")
	}
	whereClause := "WHERE " + strings.Join(where, " AND ")

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users u `+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	query := `
		SELECT u.id, u.username, u.email, u.full_name, u.password_hash, u.role, u.mobile, u.hostel_id, u.room_id, u.created_at, u.updated_at,
			h.name, h.code, r.number
		FROM users u
		LEFT JOIN hostels h ON h.id = u.hostel_id
		LEFT JOIN rooms r ON r.id = u.room_id
		` + whereClause + `
		ORDER BY u.created_at DESC
		LIMIT ` + arg(filter.Limit) + ` OFFSET ` + arg(offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var users []UserRow
	for rows.Next() {
		var u UserRow
		if err := rows.Scan(
			&u.ID, &u.Username, &u.Email, &u.FullName, &u.PasswordHash, &u.Role, &u.Mobile,
			&u.HostelID, &u.RoomID, &u.CreatedAt, &u.UpdatedAt,
			&u.HostelName, &u.HostelCode, &u.RoomNumber,
		); err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}

func (s *Store) GetUserRowByID(ctx context.Context, userID string) (UserRow, error) {
	var u UserRow
	row := s.pool.QueryRow(ctx, `
		SELECT u.id, u.username, u.email, u.full_name, u.password_hash, u.role, u.mobile, u.hostel_id, u.room_id, u.created_at, u.updated_at,
			h.name, h.code, r.number
		FROM users u
		LEFT JOIN hostels h ON h.id = u.hostel_id
		LEFT JOIN rooms r ON r.id = u.room_id
		WHERE u.id = $1
	`, userID)
	err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.FullName, &u.PasswordHash, &u.Role, &u.Mobile,
		&u.HostelID, &u.RoomID, &u.CreatedAt, &u.UpdatedAt,
		&u.HostelName, &u.HostelCode, &u.RoomNumber,
	)
	return u, err
}
