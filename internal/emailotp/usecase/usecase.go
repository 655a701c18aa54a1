package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/wardenid/warden/internal/emailotp/entity"
	"github.com/wardenid/warden/internal/pkg/clock"
	"github.com/wardenid/warden/internal/pkg/config"
	"github.com/wardenid/warden/internal/pkg/goerror"
	"github.com/wardenid/warden/internal/pkg/goroutine"
	"github.com/wardenid/warden/internal/pkg/hash"
	"github.com/wardenid/warden/internal/pkg/instrument"
	"github.com/wardenid/warden/internal/pkg/jwt"
	"github.com/wardenid/warden/internal/pkg/otp"
	"github.com/wardenid/warden/internal/pkg/uid"
	"github.com/wardenid/warden/internal/pkg/validator"
	"go.opentelemetry.io/otel/trace"
)

// Stable reason codes surfaced to API callers. They are part of the
// contract: clients branch on them, so they never change.
const (
	ReasonInvalidEmail       = "INVALID_EMAIL"
	ReasonOTPNotFound        = "OTP_NOT_FOUND"
	ReasonOTPExpired         = "OTP_EXPIRED"
	ReasonInvalidOTP         = "INVALID_OTP"
	ReasonDeliveryFailed     = "DELIVERY_FAILED"
	ReasonUserProvisionError = "USER_PROVISION_FAILED"
)

// ReasonOTPStoreError tags server errors caused by the code store being
// unreachable, so operators can tell them apart from other internals.
const ReasonOTPStoreError = "OTP_STORE_ERROR"

// Defaults applied when configuration does not override them.
const (
	defaultOTPLength  = 6
	defaultOTPTTL     = 5 * time.Minute
	defaultSessionTTL = 7 * 24 * time.Hour
	defaultCookieName = "warden.session_token"
)

type CodeSentEvent struct {
	Email     string
	Purpose   string
	ExpiresAt time.Time
}

type UserProvisionedEvent struct {
	UserID int64
	Email  string
}

type PasswordResetEvent struct {
	UserID int64
	Email  string
}

type repoMessaging interface {
	PublishCodeSent(ctx context.Context, msg CodeSentEvent) error
	PublishUserProvisioned(ctx context.Context, msg UserProvisionedEvent) error
	PublishPasswordReset(ctx context.Context, msg PasswordResetEvent) error
}

// repoOTP is the keyed passcode store. Implementations guarantee that all
// three mutating calls are serialized per (email, purpose) pair, and that
// Save replaces any prior record for the pair unconditionally.
type repoOTP interface {
	// Save stores rec, superseding any existing record for its pair.
	Save(ctx context.Context, rec entity.OTPRecord) error

	// Find returns the latest record for the pair regardless of state,
	// or entity.ErrOTPNotFound.
	Find(ctx context.Context, email string, p entity.Purpose) (*entity.OTPRecord, error)

	// Consume atomically validates and marks the pair's record consumed.
	// It fails with entity.ErrOTPNotFound when no unconsumed record exists,
	// entity.ErrOTPExpired when the window elapsed at now, and
	// entity.ErrOTPMismatch when the candidate differs. Only the first
	// matching call can ever succeed for a given record.
	Consume(ctx context.Context, email string, p entity.Purpose, candidate string, now time.Time) (*entity.OTPRecord, error)

	// Delete removes the pair's record only while it still holds code, used
	// to roll back an undelivered code without destroying a newer one.
	Delete(ctx context.Context, email string, p entity.Purpose, code string) error
}

type repoDB interface {
	GetUserByEmail(ctx context.Context, email string) (*entity.User, error)
	GetUserCredentialInfo(ctx context.Context, email string) (*entity.UserCredentialInfo, error)

	CreateUser(ctx context.Context, in entity.NewUser) error
	MarkEmailVerified(ctx context.Context, userID int64) error
	UpsertUserPassword(ctx context.Context, userID int64, passwordHash string) error

	CreateSession(ctx context.Context, in entity.Session) error
	RevokeSessions(ctx context.Context, userID int64) error
}

// sender delivers a generated code to its recipient. It is the injected
// delivery strategy: the engine trusts its result and rolls the code back
// when it fails.
type sender interface {
	SendCode(ctx context.Context, email, code string, p entity.Purpose, expiresAt time.Time) error
}

type Usecase struct {
	repoDB        repoDB
	repoOTP       repoOTP
	repoMessaging repoMessaging
	sender        sender
	validator     validator.Validator
	cfg           config.Config
	codes         otp.Generator
	hmac          hash.Hash
	bcrypt        hash.Hash
	uid           uid.NumberID
	oid           uid.StringID
	clock         clock.Clocker
	jwt           jwt.JWT
	ins           instrument.Instrumentation
	goroutine     *goroutine.Manager
}

type Dependency struct {
	RepoDB        repoDB
	RepoOTP       repoOTP
	RepoMessaging repoMessaging
	Sender        sender
	Validator     validator.Validator
	Config        config.Config
	Codes         otp.Generator
	HMAC          hash.Hash
	Bcrypt        hash.Hash
	UID           uid.NumberID
	OID           uid.StringID
	Clock         clock.Clocker
	JWT           jwt.JWT
	Instrument    instrument.Instrumentation
	Goroutine     *goroutine.Manager
}

func New(dep Dependency) *Usecase {
	return &Usecase{
		repoDB:        dep.RepoDB,
		repoOTP:       dep.RepoOTP,
		repoMessaging: dep.RepoMessaging,
		sender:        dep.Sender,
		validator:     dep.Validator,
		cfg:           dep.Config,
		codes:         dep.Codes,
		hmac:          dep.HMAC,
		bcrypt:        dep.Bcrypt,
		uid:           dep.UID,
		oid:           dep.OID,
		clock:         dep.Clock,
		jwt:           dep.JWT,
		ins:           dep.Instrument,
		goroutine:     dep.Goroutine,
	}
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("emailotp.usecase").Start(ctx, name)
}

func (s *Usecase) otpLength() int {
	if n := s.cfg.GetInt("modules.emailotp.otp_length"); n > 0 {
		return n
	}
	return defaultOTPLength
}

func (s *Usecase) otpTTL() time.Duration {
	if d := s.cfg.GetMinute("modules.emailotp.otp_ttl_minutes"); d > 0 {
		return d
	}
	return defaultOTPTTL
}

func (s *Usecase) sessionTTL() time.Duration {
	if d := s.cfg.GetDay("modules.emailotp.session_ttl_days"); d > 0 {
		return d
	}
	return defaultSessionTTL
}

func (s *Usecase) sessionCookieName() string {
	if name := s.cfg.GetString("modules.emailotp.session_cookie_name"); name != "" {
		return name
	}
	return defaultCookieName
}

// requestCode generates a fresh code and stores its record, superseding any
// prior record for the pair. The code is returned only after the record is
// durably stored; callers deliver it afterwards, never before.
func (s *Usecase) requestCode(ctx context.Context, email string, p entity.Purpose) (*entity.OTPRecord, error) {
	code, err := s.codes.Generate(s.otpLength())
	if err != nil {
		slog.ErrorContext(ctx, "secure random source unavailable", "error", err)
		return nil, goerror.NewServer(err)
	}

	now := s.clock.Now()
	rec := entity.OTPRecord{
		Email:     email,
		Purpose:   p,
		Code:      code,
		CreatedAt: now,
		ExpiresAt: now.Add(s.otpTTL()),
	}

	if err := s.repoOTP.Save(ctx, rec); err != nil {
		slog.ErrorContext(ctx, "failed to repo save otp record", "email", email, "purpose", p.String(), "error", err)
		return nil, goerror.NewServerReason(ReasonOTPStoreError, err)
	}

	return &rec, nil
}

// verifyCode atomically checks and consumes the pair's record. Superseded,
// consumed, and never-issued records all surface as OTP_NOT_FOUND so the
// response does not leak which one it was.
func (s *Usecase) verifyCode(ctx context.Context, email string, p entity.Purpose, candidate string) (*entity.OTPRecord, error) {
	rec, err := s.repoOTP.Consume(ctx, email, p, candidate, s.clock.Now())

	switch {
	case err == nil:
		return rec, nil

	case errors.Is(err, entity.ErrOTPNotFound):
		slog.WarnContext(ctx, "otp verification without active code", "email", email, "purpose", p.String())
		return nil, goerror.NewBusinessReason(ReasonOTPNotFound, "no active code for this email", goerror.CodeUnauthorized)

	case errors.Is(err, entity.ErrOTPExpired):
		slog.WarnContext(ctx, "otp verification with expired code", "email", email, "purpose", p.String())
		return nil, goerror.NewBusinessReason(ReasonOTPExpired, "code has expired, request a new one", goerror.CodeUnauthorized)

	case errors.Is(err, entity.ErrOTPMismatch):
		slog.WarnContext(ctx, "otp verification with wrong code", "email", email, "purpose", p.String())
		return nil, goerror.NewBusinessReason(ReasonInvalidOTP, "invalid code", goerror.CodeUnauthorized)

	default:
		slog.ErrorContext(ctx, "failed to repo consume otp record", "email", email, "purpose", p.String(), "error", err)
		return nil, goerror.NewServerReason(ReasonOTPStoreError, err)
	}
}

type sessionResult struct {
	AccessToken  string
	SessionToken string
	CookieName   string
	ExpiresAt    time.Time
}

// issueSession creates an opaque session token (stored hashed) plus a signed
// access token. The cookie name is configuration owned by the surrounding
// framework; the engine only passes it through.
func (s *Usecase) issueSession(ctx context.Context, user *entity.User) (*sessionResult, error) {
	acToken, err := s.jwt.Generate(user.ID, user.Email)
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate access token", "user_id", user.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	sToken := s.oid.Generate()
	sTokenHash, err := s.hmac.Hash(sToken)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash session token", "user_id", user.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	expiresAt := s.clock.Now().Add(s.sessionTTL())
	if err := s.repoDB.CreateSession(ctx, entity.Session{
		ID:        s.uid.Generate(),
		UserID:    user.ID,
		Token:     string(sTokenHash),
		ExpiresAt: expiresAt,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to repo create session", "user_id", user.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	return &sessionResult{
		AccessToken:  acToken,
		SessionToken: sToken,
		CookieName:   s.sessionCookieName(),
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *Usecase) ensureUserStatusAllowed(ctx context.Context, userID int64, status entity.UserStatus) error {
	switch status.Ensure() {
	case entity.UserStatusBanned:
		slog.WarnContext(ctx, "user account is banned", "user_id", userID)
		return goerror.NewBusiness("account is banned", goerror.CodeForbidden)

	case entity.UserStatusInactive:
		slog.WarnContext(ctx, "user account is deactivated", "user_id", userID)
		return goerror.NewBusiness("account is deactivated", goerror.CodeForbidden)

	case entity.UserStatusUnknown:
		slog.WarnContext(ctx, "user account status is unrecognized", "user_id", userID)
		return goerror.NewBusiness("account status is unrecognized", goerror.CodeForbidden)

	default:
		return nil
	}
}

// validateInput validates a tagged input struct. A malformed email surfaces
// as INVALID_EMAIL; every other violation stays a plain validation error.
func (s *Usecase) validateInput(in any) error {
	if err := s.validator.Validate(in); err != nil {
		var verr validator.V10ValidationError
		if errors.As(err, &verr) {
			if _, ok := verr.Values()["email"]; ok {
				return goerror.NewBusinessReason(ReasonInvalidEmail, "invalid email address", goerror.CodeInvalidInput)
			}
		}
		return goerror.NewInvalidInput(err)
	}

	return nil
}

// publish runs fn off the request path; event delivery is best effort and
// never fails the operation.
func (s *Usecase) publish(ctx context.Context, name string, fn func(ctx context.Context) error) {
	s.goroutine.Go(context.WithoutCancel(ctx), func(ctx context.Context) error {
		if err := fn(ctx); err != nil {
			slog.WarnContext(ctx, "failed to publish event", "event", name, "error", err)
		}
		return nil
	})
}
