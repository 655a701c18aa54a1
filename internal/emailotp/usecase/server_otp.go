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

type ServerCreateOTPInput struct {
	Email   string `validate:"required,email"`
	Purpose entity.Purpose
}

type ServerCreateOTPOutput struct {
	Code      string
	ExpiresAt time.Time
}

// ServerCreateOTP issues a code on behalf of a trusted server caller and
// returns it directly instead of emailing it. It supersedes any live code
// for the pair, exactly like the user-facing path.
func (s *Usecase) ServerCreateOTP(ctx context.Context, in ServerCreateOTPInput) (*ServerCreateOTPOutput, error) {
	ctx, span := s.startSpan(ctx, "ServerCreateOTP")
	defer span.End()

	in.Email = strings.TrimSpace(strings.ToLower(in.Email))

	if err := s.validateInput(in); err != nil {
		return nil, err
	}

	if in.Purpose.IsUnknown() {
		return nil, goerror.NewInvalidInput(nil, "purpose", "purpose must be one of sign-in, email-verification, forget-password")
	}

	rec, err := s.requestCode(ctx, in.Email, in.Purpose)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "otp issued for server caller", "email", in.Email, "purpose", in.Purpose.String())

	return &ServerCreateOTPOutput{Code: rec.Code, ExpiresAt: rec.ExpiresAt}, nil
}

type ServerGetOTPInput struct {
	Email   string `validate:"required,email"`
	Purpose entity.Purpose
}

type ServerGetOTPOutput struct {
	Found     bool
	Code      string
	ExpiresAt time.Time
}

// ServerGetOTP reports the live code for a pair, for test harnesses and
// support tooling. Consumed, expired, and missing records all read as not
// found; only a code that would still verify is ever returned.
func (s *Usecase) ServerGetOTP(ctx context.Context, in ServerGetOTPInput) (*ServerGetOTPOutput, error) {
	ctx, span := s.startSpan(ctx, "ServerGetOTP")
	defer span.End()

	in.Email = strings.TrimSpace(strings.ToLower(in.Email))

	if err := s.validateInput(in); err != nil {
		return nil, err
	}

	if in.Purpose.IsUnknown() {
		return nil, goerror.NewInvalidInput(nil, "purpose", "purpose must be one of sign-in, email-verification, forget-password")
	}

	rec, err := s.repoOTP.Find(ctx, in.Email, in.Purpose)
	if errors.Is(err, entity.ErrOTPNotFound) {
		return &ServerGetOTPOutput{Found: false}, nil
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo find otp record", "email", in.Email, "purpose", in.Purpose.String(), "error", err)
		return nil, goerror.NewServer(err)
	}

	if !rec.Active(s.clock.Now()) {
		return &ServerGetOTPOutput{Found: false}, nil
	}

	return &ServerGetOTPOutput{Found: true, Code: rec.Code, ExpiresAt: rec.ExpiresAt}, nil
}
