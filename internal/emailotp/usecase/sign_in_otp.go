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

type SignInOTPInput struct {
	Email string `validate:"required,email"`
	Code  string `validate:"required"`
}

type SignInOTPOutput struct {
	UserID        int64
	Email         string
	NewUser       bool
	AccessToken   string
	SessionToken  string
	CookieName    string
	SessionExpiry time.Time
}

// SignInOTP authenticates a user with a sign-in code. When no account exists
// for the email yet, one is provisioned on the spot; a valid code proves
// control of the mailbox, so the new account starts out verified.
func (s *Usecase) SignInOTP(ctx context.Context, in SignInOTPInput) (*SignInOTPOutput, error) {
	ctx, span := s.startSpan(ctx, "SignInOTP")
	defer span.End()

	in.Email = strings.TrimSpace(strings.ToLower(in.Email))

	if err := s.validateInput(in); err != nil {
		return nil, err
	}

	if _, err := s.verifyCode(ctx, in.Email, entity.PurposeSignIn, in.Code); err != nil {
		return nil, err
	}

	user, err := s.repoDB.GetUserByEmail(ctx, in.Email)
	provisioned := false

	switch {
	case errors.Is(err, goerror.ErrNotFound):
		user, err = s.provisionUser(ctx, in.Email)
		if err != nil {
			return nil, err
		}
		provisioned = true

	case err != nil:
		slog.ErrorContext(ctx, "failed to repo get user by email", "email", in.Email, "error", err)
		return nil, goerror.NewServer(err)

	default:
		if err := s.ensureUserStatusAllowed(ctx, user.ID, user.Status); err != nil {
			return nil, err
		}

		if !user.EmailVerified {
			if err := s.repoDB.MarkEmailVerified(ctx, user.ID); err != nil {
				slog.ErrorContext(ctx, "failed to repo mark email verified", "user_id", user.ID, "error", err)
				return nil, goerror.NewServer(err)
			}
		}
	}

	session, err := s.issueSession(ctx, user)
	if err != nil {
		return nil, err
	}

	if provisioned {
		s.publish(ctx, "user_provisioned", func(ctx context.Context) error {
			return s.repoMessaging.PublishUserProvisioned(ctx, UserProvisionedEvent{
				UserID: user.ID,
				Email:  user.Email,
			})
		})
	}

	return &SignInOTPOutput{
		UserID:        user.ID,
		Email:         user.Email,
		NewUser:       provisioned,
		AccessToken:   session.AccessToken,
		SessionToken:  session.SessionToken,
		CookieName:    session.CookieName,
		SessionExpiry: session.ExpiresAt,
	}, nil
}

func (s *Usecase) provisionUser(ctx context.Context, email string) (*entity.User, error) {
	nu := entity.NewUser{
		ID:            s.uid.Generate(),
		Email:         email,
		Name:          email[:strings.IndexByte(email, '@')],
		EmailVerified: true,
		Status:        entity.UserStatusActive,
	}

	if err := s.repoDB.CreateUser(ctx, nu); err != nil {
		slog.ErrorContext(ctx, "failed to repo create user", "email", email, "error", err)
		return nil, goerror.NewBusinessReason(ReasonUserProvisionError, "could not create user account", goerror.CodeInternal)
	}

	now := s.clock.Now()

	return &entity.User{
		ID:            nu.ID,
		Email:         nu.Email,
		Name:          nu.Name,
		EmailVerified: nu.EmailVerified,
		Status:        nu.Status,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}
