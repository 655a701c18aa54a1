package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/wardenid/warden/internal/emailotp/entity"
	"github.com/wardenid/warden/internal/pkg/goerror"
)

type SendVerificationOTPInput struct {
	Email   string `validate:"required,email"`
	Purpose entity.Purpose
}

// SendVerificationOTP issues a fresh code for the pair and hands it to the
// delivery sender. Any previously active code for the same email and purpose
// stops being valid the moment the new record is stored.
func (s *Usecase) SendVerificationOTP(ctx context.Context, in SendVerificationOTPInput) error {
	ctx, span := s.startSpan(ctx, "SendVerificationOTP")
	defer span.End()

	in.Email = strings.TrimSpace(strings.ToLower(in.Email))

	// The identifier is rejected before any code generation or store
	// mutation, so a malformed email never reaches the sender.
	if err := s.validateInput(in); err != nil {
		return err
	}

	if in.Purpose.IsUnknown() {
		return goerror.NewInvalidInput(nil, "purpose", "purpose must be one of sign-in, email-verification, forget-password")
	}

	rec, err := s.requestCode(ctx, in.Email, in.Purpose)
	if err != nil {
		return err
	}

	if err := s.sender.SendCode(ctx, in.Email, rec.Code, in.Purpose, rec.ExpiresAt); err != nil {
		slog.WarnContext(ctx, "failed to deliver otp code, rolling back record", "email", in.Email, "purpose", in.Purpose.String(), "error", err)

		// A code the user never received must never be verifiable. The
		// delete matches the code so a record stored by a concurrent
		// resend survives this rollback.
		if delErr := s.repoOTP.Delete(ctx, in.Email, in.Purpose, rec.Code); delErr != nil {
			slog.ErrorContext(ctx, "failed to roll back undelivered otp record", "email", in.Email, "purpose", in.Purpose.String(), "error", delErr)
		}

		return goerror.NewBusinessReason(ReasonDeliveryFailed, "failed to deliver the code, try again later", goerror.CodeInternal)
	}

	s.publish(ctx, "emailotp.code_sent", func(ctx context.Context) error {
		return s.repoMessaging.PublishCodeSent(ctx, CodeSentEvent{
			Email:     in.Email,
			Purpose:   in.Purpose.String(),
			ExpiresAt: rec.ExpiresAt,
		})
	})

	return nil
}
