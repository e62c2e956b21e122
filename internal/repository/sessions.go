package repository

import (
	"context"
	"time"

	"github.com/ayushroy-246/hmp/internal/model"
)

func (s *Store) CreateRefreshSession(ctx context.Context, session model.RefreshSession) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO refresh_sessions (id, subject_id, subject_type, family_id, token_hash, created_at, expires_at, revoked_at, user_agent, ip_address)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, session.ID, session.SubjectID, session.SubjectType, session.FamilyID, session.TokenHash,
		session.CreatedAt, session.ExpiresAt, session.RevokedAt, session.UserAgent, session.IPAddress)
	return err
}

func (s *Store) GetRefreshSession(ctx context.Context, tokenHash string) (model.RefreshSession, error) {
	var session model.RefreshSession
	row := s.pool.QueryRow(ctx, `
		SELECT id, subject_id, subject_type, family_id, token_hash, created_at, expires_at, revoked_at, user_agent, ip_address
		FROM refresh_sessions
		WHERE token_hash = $1
	`, tokenHash)
	err := row.Scan(&session.ID, &session.SubjectID, &session.SubjectType, &session.FamilyID, &session.TokenHash,
		&session.CreatedAt, &session.ExpiresAt, &session.RevokedAt, &session.UserAgent, &session.IPAddress)
	return session, err
}

func (s *Store) RevokeRefreshSession(ctx context.Context, sessionID string, revokedAt time.Time) error {
	_, err := s.pool.Exec(ctx, `UPDATE refresh_sessions SET revoked_at = $1 WHERE id = $2 AND revoked_at IS NULL`, revokedAt, sessionID)
	return err
}

// RevokeSessionFamily revokes every live session descended from one login.
// Replay of an already-rotated token burns the whole family.
func (s *Store) RevokeSessionFamily(ctx context.Context, familyID string, revokedAt time.Time) error {
	_, err := s.pool.Exec(ctx, `UPDATE refresh_sessions SET revoked_at = $1 WHERE family_id = $2 AND revoked_at IS NULL`, revokedAt, familyID)
	return err
}

// RevokeSubjectSessions revokes every live session of an account, across all
// token families. Used on logout and on password change.
func (s *Store) RevokeSubjectSessions(ctx context.Context, subjectID, subjectType string, revokedAt time.Time) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE refresh_sessions
		SET revoked_at = $1
		WHERE subject_id = $2 AND subject_type = $3 AND revoked_at IS NULL
	`, revokedAt, subjectID, subjectType)
	return err
}
