package repository

import (
	"context"

	"github.com/ayushroy-246/hmp/internal/model"
)

func (s *Store) CreateHostel(ctx context.Context, hostel model.Hostel) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO hostels (id, name, code, created_at)
		VALUES ($1, $2, $3, $4)
	`, hostel.ID, hostel.Name, hostel.Code, hostel.CreatedAt)
	return err
}

func (s *Store) GetHostelByID(ctx context.Context, hostelID string) (model.Hostel, error) {
	var hostel model.Hostel
	row := s.pool.QueryRow(ctx, `SELECT id, name, code, created_at FROM hostels WHERE id = $1`, hostelID)
	err := row.Scan(&hostel.ID, &hostel.Name, &hostel.Code, &hostel.CreatedAt)
	return hostel, err
}

func (s *Store) HostelCodeTaken(ctx context.Context, code string) bool {
	return exists(ctx, s.pool, `SELECT 1 FROM hostels WHERE code = $1`, code)
}

type HostelRow struct {
	model.Hostel
	RoomCount int
}

func (s *Store) ListHostels(ctx context.Context) ([]HostelRow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT h.id, h.name, h.code, h.created_at, COUNT(r.id)
		FROM hostels h
		LEFT JOIN rooms r ON r.hostel_id = h.id
		GROUP BY h.id
		ORDER BY h.name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hostels []HostelRow
	for rows.Next() {
		var h HostelRow
		if err := rows.Scan(&h.ID, &h.Name, &h.Code, &h.CreatedAt, &h.RoomCount); err != nil {
			return nil, err
		}
		hostels = append(hostels, h)
	}
	return hostels, rows.Err()
}

func (s *Store) CreateRoom(ctx context.Context, room model.Room) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO rooms (id, number, hostel_id, capacity, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, room.ID, room.Number, room.HostelID, room.Capacity, room.CreatedAt)
	return err
}

func (s *Store) GetRoomByID(ctx context.Context, roomID string) (model.Room, error) {
	var room model.Room
	row := s.pool.QueryRow(ctx, `SELECT id, number, hostel_id, capacity, created_at FROM rooms WHERE id = $1`, roomID)
	err := row.Scan(&room.ID, &room.Number, &room.HostelID, &room.Capacity, &room.CreatedAt)
	return room, err
}

func (s *Store) RoomNumberTaken(ctx context.Context, hostelID, number string) bool {
	return exists(ctx, s.pool, `SELECT 1 FROM rooms WHERE hostel_id = $1 AND number = $2`, hostelID, number)
}

type RoomRow struct {
	model.Room
	Occupants int
}

func (s *Store) ListRooms(ctx context.Context, hostelID string) ([]RoomRow, error) {
	query := `
		SELECT r.id, r.number, r.hostel_id, r.capacity, r.created_at, COUNT(u.id)
		FROM rooms r
		LEFT JOIN users u ON u.room_id = r.id
	`
	args := []interface{}{}
	if hostelID != "" {
		query += ` WHERE r.hostel_id = $1`
		args = append(args, hostelID)
	}
	query += ` GROUP BY r.id ORDER BY r.number`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []RoomRow
	for rows.Next() {
		var r RoomRow
		if err := rows.Scan(&r.ID, &r.Number, &r.HostelID, &r.Capacity, &r.CreatedAt, &r.Occupants); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

func (s *Store) CountRoomOccupants(ctx context.Context, roomID string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE room_id = $1`, roomID).Scan(&count)
	return count, err
}
