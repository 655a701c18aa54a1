package db

import (
	"context"
)

func (s *DB) MarkEmailVerified(ctx context.Context, userID int64) (err error) {
	ctx, span := s.startSpan(ctx, "MarkEmailVerified")
	defer func() { s.endSpan(span, err) }()

	const query = `
		UPDATE users
		SET email_verified = TRUE, updated_at = NOW()
		WHERE id = $1`

	_, err = s.conn.Exec(ctx, query, userID)
	return s.mapError(err)
}

func (s *DB) UpsertUserPassword(ctx context.Context, userID int64, passwordHash string) (err error) {
	ctx, span := s.startSpan(ctx, "UpsertUserPassword")
	defer func() { s.endSpan(span, err) }()

	const query = `
		INSERT INTO user_credentials (user_id, password)
		VALUES ($1, $2)
		ON CONFLICT (user_id)
		DO UPDATE SET password = EXCLUDED.password, updated_at = NOW()`

	_, err = s.conn.Exec(ctx, query, userID, passwordHash)
	return s.mapError(err)
}

func (s *DB) RevokeSessions(ctx context.Context, userID int64) (err error) {
	ctx, span := s.startSpan(ctx, "RevokeSessions")
	defer func() { s.endSpan(span, err) }()

	const query = `DELETE FROM sessions WHERE user_id = $1`

	_, err = s.conn.Exec(ctx, query, userID)
	return s.mapError(err)
}
