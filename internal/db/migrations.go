package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Migrate applies the schema at startup. Statements are idempotent so a
// restart against an existing database is a no-op.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS hostels (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		code TEXT NOT NULL UNIQUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS rooms (
		id TEXT PRIMARY KEY,
		number TEXT NOT NULL,
		hostel_id TEXT NOT NULL REFERENCES hostels(id) ON DELETE CASCADE,
		capacity INT NOT NULL DEFAULT 1,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (hostel_id, number)
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL UNIQUE,
		full_name TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL CHECK (role IN ('student', 'warden', 'admin', 'superAdmin')),
		mobile TEXT,
		hostel_id TEXT REFERENCES hostels(id) ON DELETE SET NULL,
		room_id TEXT REFERENCES rooms(id) ON DELETE SET NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS users_room_idx ON users(room_id)`,
	`CREATE INDEX IF NOT EXISTS users_hostel_role_idx ON users(hostel_id, role)`,
	`CREATE TABLE IF NOT EXISTS staff (
		id TEXT PRIMARY KEY,
		phone TEXT NOT NULL,
		full_name TEXT NOT NULL,
		roles TEXT[] NOT NULL,
		hostel_id TEXT NOT NULL REFERENCES hostels(id) ON DELETE CASCADE,
		pin_hash TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (phone, hostel_id)
	)`,
	`CREATE TABLE IF NOT EXISTS complaints (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		assigned_role TEXT NOT NULL CHECK (assigned_role IN ('electrician', 'plumber', 'cleaner', 'network', 'carpenter')),
		student_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		hostel_id TEXT NOT NULL,
		room_id TEXT NOT NULL,
		mobile TEXT,
		status_by_student TEXT NOT NULL DEFAULT 'PENDING' CHECK (status_by_student IN ('PENDING', 'RESOLVED')),
		status_by_staff TEXT NOT NULL DEFAULT 'UNSETTLED' CHECK (status_by_staff IN ('UNSETTLED', 'SETTLED')),
		resolved_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS complaints_student_idx ON complaints(student_id)`,
	`CREATE INDEX IF NOT EXISTS complaints_hostel_idx ON complaints(hostel_id)`,
	`CREATE TABLE IF NOT EXISTS student_profiles (
		user_id TEXT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
		gender TEXT NOT NULL,
		date_of_birth TEXT NOT NULL,
		blood_group TEXT NOT NULL,
		father_name TEXT NOT NULL,
		father_phone TEXT NOT NULL,
		mother_name TEXT NOT NULL,
		mother_phone TEXT,
		address_line1 TEXT NOT NULL,
		address_line2 TEXT,
		city TEXT NOT NULL,
		state TEXT NOT NULL,
		pincode TEXT NOT NULL,
		has_chronic_disease BOOLEAN NOT NULL DEFAULT false,
		chronic_disease_details TEXT,
		emergency_contact_name TEXT,
		emergency_contact_number TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS refresh_sessions (
		id TEXT PRIMARY KEY,
		subject_id TEXT NOT NULL,
		subject_type TEXT NOT NULL CHECK (subject_type IN ('user', 'staff')),
		family_id TEXT NOT NULL,
		token_hash TEXT NOT NULL UNIQUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		expires_at TIMESTAMPTZ NOT NULL,
		revoked_at TIMESTAMPTZ,
		user_agent TEXT,
		ip_address TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS refresh_sessions_subject_idx ON refresh_sessions(subject_id, subject_type)`,
}

func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range migrations {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
