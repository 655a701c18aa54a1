package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/wardenid/warden/internal/emailotp/entity"
	"github.com/wardenid/warden/internal/pkg/goerror"
)

type VerifyEmailInput struct {
	Email string `validate:"required,email"`
	Code  string `validate:"required"`
}

type VerifyEmailOutput struct {
	Verified bool

	// Set only when auto sign-in after verification is enabled.
	AccessToken   string
	SessionToken  string
	CookieName    string
	SessionExpiry time.Time
}

// VerifyEmail consumes an email-verification code and marks the user's email
// as verified. Codes issued for other purposes never validate here.
func (s *Usecase) VerifyEmail(ctx context.Context, in VerifyEmailInput) (*VerifyEmailOutput, error) {
	ctx, span := s.startSpan(ctx, "VerifyEmail")
	defer span.End()

	in.Email = strings.TrimSpace(strings.ToLower(in.Email))

	if err := s.validateInput(in); err != nil {
		return nil, err
	}

	if _, err := s.verifyCode(ctx, in.Email, entity.PurposeEmailVerification, in.Code); err != nil {
		return nil, err
	}

	user, err := s.repoDB.GetUserByEmail(ctx, in.Email)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "email verification for unknown user", "email", in.Email)
		return nil, goerror.NewBusiness("user account not found", goerror.CodeNotFound)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get user by email", "email", in.Email, "error", err)
		return nil, goerror.NewServer(err)
	}

	if err := s.ensureUserStatusAllowed(ctx, user.ID, user.Status); err != nil {
		return nil, err
	}

	if !user.EmailVerified {
		if err := s.repoDB.MarkEmailVerified(ctx, user.ID); err != nil {
			slog.ErrorContext(ctx, "failed to repo mark email verified", "user_id", user.ID, "error", err)
			return nil, goerror.NewServer(err)
		}
	}

	if !s.cfg.GetBool("modules.emailotp.auto_sign_in_after_verification") {
		return &VerifyEmailOutput{Verified: true}, nil
	}

	session, err := s.issueSession(ctx, user)
	if err != nil {
		return nil, err
	}

	return &VerifyEmailOutput{
		Verified:      true,
		AccessToken:   session.AccessToken,
		SessionToken:  session.SessionToken,
		CookieName:    session.CookieName,
		SessionExpiry: session.ExpiresAt,
	}, nil
}
