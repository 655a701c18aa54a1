package db

import (
	"context"

	"github.com/wardenid/warden/internal/emailotp/entity"
)

func (s *DB) GetUserByEmail(ctx context.Context, email string) (_ *entity.User, err error) {
	ctx, span := s.startSpan(ctx, "GetUserByEmail")
	defer func() { s.endSpan(span, err) }()

	const query = `
		SELECT id, email, name, email_verified, status, created_at, updated_at
		FROM users
		WHERE email = $1`

	var user entity.User
	err = s.conn.QueryRow(ctx, query, email).Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.EmailVerified,
		&user.Status,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, s.mapError(err)
	}

	return &user, nil
}

func (s *DB) GetUserCredentialInfo(ctx context.Context, email string) (_ *entity.UserCredentialInfo, err error) {
	ctx, span := s.startSpan(ctx, "GetUserCredentialInfo")
	defer func() { s.endSpan(span, err) }()

	const query = `
		SELECT u.id, u.email, u.status, COALESCE(uc.password, '')
		FROM users u
		LEFT JOIN user_credentials uc ON uc.user_id = u.id
		WHERE u.email = $1`

	var info entity.UserCredentialInfo
	err = s.conn.QueryRow(ctx, query, email).Scan(
		&info.ID,
		&info.Email,
		&info.Status,
		&info.Password,
	)
	if err != nil {
		return nil, s.mapError(err)
	}

	return &info, nil
}
