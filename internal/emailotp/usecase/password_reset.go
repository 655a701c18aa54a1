package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/wardenid/warden/internal/emailotp/entity"
	"github.com/wardenid/warden/internal/pkg/goerror"
)

type PasswordResetInput struct {
	Email       string `validate:"required,email"`
	Code        string `validate:"required"`
	NewPassword string `validate:"required,password"`
}

// PasswordReset sets a new password for the account after consuming a
// forget-password code. Every existing session is revoked so a stolen
// session does not outlive the reset.
func (s *Usecase) PasswordReset(ctx context.Context, in PasswordResetInput) error {
	ctx, span := s.startSpan(ctx, "PasswordReset")
	defer span.End()

	in.Email = strings.TrimSpace(strings.ToLower(in.Email))

	if err := s.validateInput(in); err != nil {
		return err
	}

	if _, err := s.verifyCode(ctx, in.Email, entity.PurposeForgetPassword, in.Code); err != nil {
		return err
	}

	user, err := s.repoDB.GetUserByEmail(ctx, in.Email)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "password reset for unknown user", "email", in.Email)
		return goerror.NewBusiness("user account not found", goerror.CodeNotFound)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get user by email", "email", in.Email, "error", err)
		return goerror.NewServer(err)
	}

	if err := s.ensureUserStatusAllowed(ctx, user.ID, user.Status); err != nil {
		return err
	}

	passwordHash, err := s.bcrypt.Hash(in.NewPassword)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash new password", "user_id", user.ID, "error", err)
		return goerror.NewServer(err)
	}

	if err := s.repoDB.UpsertUserPassword(ctx, user.ID, string(passwordHash)); err != nil {
		slog.ErrorContext(ctx, "failed to repo upsert user password", "user_id", user.ID, "error", err)
		return goerror.NewServer(err)
	}

	if err := s.repoDB.RevokeSessions(ctx, user.ID); err != nil {
		slog.ErrorContext(ctx, "failed to repo revoke sessions", "user_id", user.ID, "error", err)
		return goerror.NewServer(err)
	}

	s.publish(ctx, "password_reset", func(ctx context.Context) error {
		return s.repoMessaging.PublishPasswordReset(ctx, PasswordResetEvent{
			UserID: user.ID,
			Email:  user.Email,
		})
	})

	return nil
}
