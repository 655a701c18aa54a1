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

type LoginInput struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

type LoginOutput struct {
	UserID        int64
	Email         string
	AccessToken   string
	SessionToken  string
	CookieName    string
	SessionExpiry time.Time
}

// Login authenticates a user with an email and password. Unknown emails and
// wrong passwords produce the same error so the endpoint cannot be used to
// enumerate accounts.
func (s *Usecase) Login(ctx context.Context, in LoginInput) (*LoginOutput, error) {
	ctx, span := s.startSpan(ctx, "Login")
	defer span.End()

	in.Email = strings.TrimSpace(strings.ToLower(in.Email))

	if err := s.validateInput(in); err != nil {
		return nil, err
	}

	cred, err := s.repoDB.GetUserCredentialInfo(ctx, in.Email)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "login for unknown user", "email", in.Email)
		return nil, goerror.NewBusiness("email or password is wrong", goerror.CodeUnauthorized)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get user credential", "email", in.Email, "error", err)
		return nil, goerror.NewServer(err)
	}

	if cred.Password == "" || !s.bcrypt.Verify(cred.Password, in.Password) {
		slog.WarnContext(ctx, "login with wrong password", "user_id", cred.ID)
		return nil, goerror.NewBusiness("email or password is wrong", goerror.CodeUnauthorized)
	}

	if err := s.ensureUserStatusAllowed(ctx, cred.ID, cred.Status); err != nil {
		return nil, err
	}

	session, err := s.issueSession(ctx, &entity.User{ID: cred.ID, Email: cred.Email})
	if err != nil {
		return nil, err
	}

	return &LoginOutput{
		UserID:        cred.ID,
		Email:         cred.Email,
		AccessToken:   session.AccessToken,
		SessionToken:  session.SessionToken,
		CookieName:    session.CookieName,
		SessionExpiry: session.ExpiresAt,
	}, nil
}
