package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/wardenid/warden/internal/emailotp/entity"
	"github.com/wardenid/warden/internal/emailotp/outbound/memstore"
	"github.com/wardenid/warden/internal/emailotp/usecase"
	"github.com/wardenid/warden/internal/pkg/clock"
	"github.com/wardenid/warden/internal/pkg/config"
	"github.com/wardenid/warden/internal/pkg/goerror"
	"github.com/wardenid/warden/internal/pkg/goroutine"
	"github.com/wardenid/warden/internal/pkg/hash"
	"github.com/wardenid/warden/internal/pkg/instrument"
	"github.com/wardenid/warden/internal/pkg/jwt"
	"github.com/wardenid/warden/internal/pkg/otp"
	"github.com/wardenid/warden/internal/pkg/validator"
)

const testConfigYAML = `
modules:
  emailotp:
    otp_length: 6
    otp_ttl_minutes: 5
    session_ttl_days: 7
    session_cookie_name: warden.session_token
    auto_sign_in_after_verification: false
`

type fakeDB struct {
	mu            sync.Mutex
	users         map[string]*entity.User
	creds         map[int64]string
	sessions      []entity.Session
	revoked       map[int64]int
	createUserErr error
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		users:   map[string]*entity.User{},
		creds:   map[int64]string{},
		revoked: map[int64]int{},
	}
}

func (f *fakeDB) addUser(u entity.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := u
	f.users[u.Email] = &cp
}

func (f *fakeDB) GetUserByEmail(_ context.Context, email string) (*entity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[email]
	if !ok {
		return nil, goerror.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeDB) GetUserCredentialInfo(_ context.Context, email string) (*entity.UserCredentialInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[email]
	if !ok {
		return nil, goerror.ErrNotFound
	}
	return &entity.UserCredentialInfo{
		ID:       u.ID,
		Email:    u.Email,
		Status:   u.Status,
		Password: f.creds[u.ID],
	}, nil
}

func (f *fakeDB) CreateUser(_ context.Context, in entity.NewUser) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createUserErr != nil {
		return f.createUserErr
	}
	f.users[in.Email] = &entity.User{
		ID:            in.ID,
		Email:         in.Email,
		Name:          in.Name,
		EmailVerified: in.EmailVerified,
		Status:        in.Status,
	}
	return nil
}

func (f *fakeDB) MarkEmailVerified(_ context.Context, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ID == userID {
			u.EmailVerified = true
			return nil
		}
	}
	return goerror.ErrNotFound
}

func (f *fakeDB) UpsertUserPassword(_ context.Context, userID int64, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creds[userID] = passwordHash
	return nil
}

func (f *fakeDB) CreateSession(_ context.Context, in entity.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions = append(f.sessions, in)
	return nil
}

func (f *fakeDB) RevokeSessions(_ context.Context, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked[userID]++
	kept := f.sessions[:0]
	for _, s := range f.sessions {
		if s.UserID != userID {
			kept = append(kept, s)
		}
	}
	f.sessions = kept
	return nil
}

type fakeSender struct {
	mu    sync.Mutex
	calls int
	last  struct {
		email, code string
		purpose     entity.Purpose
	}
	err error
}

func (f *fakeSender) SendCode(_ context.Context, email, code string, p entity.Purpose, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.last.email, f.last.code, f.last.purpose = email, code, p
	return f.err
}

func (f *fakeSender) lastCode() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last.code
}

func (f *fakeSender) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeMessaging struct {
	mu          sync.Mutex
	codeSent    int
	provisioned int
	reset       int
}

func (f *fakeMessaging) PublishCodeSent(context.Context, usecase.CodeSentEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.codeSent++
	return nil
}

func (f *fakeMessaging) PublishUserProvisioned(context.Context, usecase.UserProvisionedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.provisioned++
	return nil
}

func (f *fakeMessaging) PublishPasswordReset(context.Context, usecase.PasswordResetEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reset++
	return nil
}

type fakeJWT struct{}

func (fakeJWT) Generate(uid int64, _ string) (string, error) {
	return fmt.Sprintf("jwt-%d", uid), nil
}

func (fakeJWT) Verify(string) (jwt.Claims, error) {
	return jwt.Claims{}, jwt.ErrInvalidToken
}

type seqNumberID struct {
	mu   sync.Mutex
	next int64
}

func (s *seqNumberID) Generate() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	return s.next
}

type seqStringID struct {
	mu   sync.Mutex
	next int
}

func (s *seqStringID) Generate() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	return fmt.Sprintf("oid-%d", s.next)
}

type fixture struct {
	uc     *usecase.Usecase
	db     *fakeDB
	store  *memstore.Store
	sender *fakeSender
	msg    *fakeMessaging
	clock  *clock.Fixed
	gr     *goroutine.Manager
	bcrypt hash.Hash
}

func newFixture(t *testing.T, cfgYAML string) *fixture {
	t.Helper()

	cfg, err := config.NewViperFromBytes("yaml", []byte(cfgYAML))
	if err != nil {
		t.Fatalf("config: %v", err)
	}

	v10, err := validator.NewV10Validator()
	if err != nil {
		t.Fatalf("validator: %v", err)
	}

	f := &fixture{
		db:     newFakeDB(),
		store:  memstore.New(),
		sender: &fakeSender{},
		msg:    &fakeMessaging{},
		clock:  clock.NewFixed(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)),
		gr:     goroutine.NewManager(8),
		bcrypt: hash.NewBcrypt(4, ""),
	}

	f.uc = usecase.New(usecase.Dependency{
		RepoDB:        f.db,
		RepoOTP:       f.store,
		RepoMessaging: f.msg,
		Sender:        f.sender,
		Validator:     v10,
		Config:        cfg,
		Codes:         otp.NewNumericCode(),
		HMAC:          hash.NewHMACSHA256("test-secret"),
		Bcrypt:        f.bcrypt,
		UID:           &seqNumberID{},
		OID:           &seqStringID{},
		Clock:         f.clock,
		JWT:           fakeJWT{},
		Instrument:    instrument.NewNoop(),
		Goroutine:     f.gr,
	})

	return f
}

func reasonOf(t *testing.T, err error) string {
	t.Helper()
	var gerr *goerror.Error
	if !errors.As(err, &gerr) {
		t.Fatalf("expected *goerror.Error, got %T: %v", err, err)
	}
	return gerr.Reason()
}

func TestSendVerificationOTPDeliversCode(t *testing.T) {
	// Arrange
	ctx := context.Background()
	f := newFixture(t, testConfigYAML)

	// Act
	err := f.uc.SendVerificationOTP(ctx, usecase.SendVerificationOTPInput{
		Email:   "Alice@Example.com",
		Purpose: entity.PurposeSignIn,
	})

	// Assert
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	code := f.sender.lastCode()
	if len(code) != 6 || strings.Trim(code, "0123456789") != "" {
		t.Fatalf("expected 6-digit numeric code, got %q", code)
	}

	rec, err := f.store.Find(ctx, "alice@example.com", entity.PurposeSignIn)
	if err != nil {
		t.Fatalf("find stored record: %v", err)
	}
	if rec.Code != code {
		t.Fatalf("stored code %q does not match delivered code %q", rec.Code, code)
	}
	if got := rec.ExpiresAt.Sub(rec.CreatedAt); got != 5*time.Minute {
		t.Fatalf("expected 5 minute validity, got %v", got)
	}

	if err := f.gr.Wait(); err != nil {
		t.Fatalf("goroutines: %v", err)
	}
	if f.msg.codeSent != 1 {
		t.Fatalf("expected one code-sent event, got %d", f.msg.codeSent)
	}
}

func TestSendVerificationOTPRejectsMalformedEmail(t *testing.T) {
	// Arrange
	ctx := context.Background()
	f := newFixture(t, testConfigYAML)

	// Act
	err := f.uc.SendVerificationOTP(ctx, usecase.SendVerificationOTPInput{
		Email:   "invalid-email",
		Purpose: entity.PurposeSignIn,
	})

	// Assert
	if got := reasonOf(t, err); got != usecase.ReasonInvalidEmail {
		t.Fatalf("expected reason %s, got %s", usecase.ReasonInvalidEmail, got)
	}
	if f.sender.callCount() != 0 {
		t.Fatalf("sender must not be invoked for a malformed email")
	}
	if _, err := f.store.Find(ctx, "invalid-email", entity.PurposeSignIn); !errors.Is(err, entity.ErrOTPNotFound) {
		t.Fatalf("no record may be stored for a malformed email, got %v", err)
	}
}

func TestSendVerificationOTPRollsBackOnDeliveryFailure(t *testing.T) {
	// Arrange
	ctx := context.Background()
	f := newFixture(t, testConfigYAML)
	f.sender.err = errors.New("smtp: connection refused")

	// Act
	err := f.uc.SendVerificationOTP(ctx, usecase.SendVerificationOTPInput{
		Email:   "alice@example.com",
		Purpose: entity.PurposeEmailVerification,
	})

	// Assert
	if got := reasonOf(t, err); got != usecase.ReasonDeliveryFailed {
		t.Fatalf("expected reason %s, got %s", usecase.ReasonDeliveryFailed, got)
	}
	if _, err := f.store.Find(ctx, "alice@example.com", entity.PurposeEmailVerification); !errors.Is(err, entity.ErrOTPNotFound) {
		t.Fatalf("undelivered code must be rolled back, got %v", err)
	}
}

func TestSendVerificationOTPSupersedesPreviousCode(t *testing.T) {
	// Arrange
	ctx := context.Background()
	f := newFixture(t, testConfigYAML)

	if err := f.uc.SendVerificationOTP(ctx, usecase.SendVerificationOTPInput{
		Email:   "alice@example.com",
		Purpose: entity.PurposeSignIn,
	}); err != nil {
		t.Fatalf("send: %v", err)
	}
	firstCode := f.sender.lastCode()

	if err := f.uc.SendVerificationOTP(ctx, usecase.SendVerificationOTPInput{
		Email:   "alice@example.com",
		Purpose: entity.PurposeSignIn,
	}); err != nil {
		t.Fatalf("send: %v", err)
	}
	lastCode := f.sender.lastCode()

	// Act
	_, errOld := f.uc.SignInOTP(ctx, usecase.SignInOTPInput{Email: "alice@example.com", Code: firstCode})
	out, errNew := f.uc.SignInOTP(ctx, usecase.SignInOTPInput{Email: "alice@example.com", Code: lastCode})

	// Assert
	if firstCode == lastCode {
		t.Skip("codes collided, cannot distinguish supersession")
	}
	if got := reasonOf(t, errOld); got != usecase.ReasonInvalidOTP {
		t.Fatalf("superseded code should be invalid, got %s", got)
	}
	if errNew != nil {
		t.Fatalf("latest code should sign in, got %v", errNew)
	}
	if !out.NewUser {
		t.Fatalf("expected just-in-time provisioning for an unknown email")
	}
}

func TestSignInOTPProvisionsNewUser(t *testing.T) {
	// Arrange
	ctx := context.Background()
	f := newFixture(t, testConfigYAML)

	if err := f.uc.SendVerificationOTP(ctx, usecase.SendVerificationOTPInput{
		Email:   "alice@example.com",
		Purpose: entity.PurposeSignIn,
	}); err != nil {
		t.Fatalf("send: %v", err)
	}

	// Act
	out, err := f.uc.SignInOTP(ctx, usecase.SignInOTPInput{
		Email: "alice@example.com",
		Code:  f.sender.lastCode(),
	})

	// Assert
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if !out.NewUser {
		t.Fatalf("expected a newly provisioned user")
	}
	if out.AccessToken == "" || out.SessionToken == "" {
		t.Fatalf("expected both tokens, got access=%q session=%q", out.AccessToken, out.SessionToken)
	}
	if out.CookieName != "warden.session_token" {
		t.Fatalf("unexpected cookie name %q", out.CookieName)
	}

	user, err := f.db.GetUserByEmail(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("provisioned user missing: %v", err)
	}
	if !user.EmailVerified {
		t.Fatalf("user provisioned through OTP must start verified")
	}
	if user.Status != entity.UserStatusActive {
		t.Fatalf("expected active status, got %v", user.Status)
	}
	if len(f.db.sessions) != 1 {
		t.Fatalf("expected one session, got %d", len(f.db.sessions))
	}
	if f.db.sessions[0].Token == out.SessionToken {
		t.Fatalf("session token must be stored hashed, not in plaintext")
	}

	if err := f.gr.Wait(); err != nil {
		t.Fatalf("goroutines: %v", err)
	}
	if f.msg.provisioned != 1 {
		t.Fatalf("expected one user-provisioned event, got %d", f.msg.provisioned)
	}
}

func TestSignInOTPExistingUserIsNotReprovisioned(t *testing.T) {
	// Arrange
	ctx := context.Background()
	f := newFixture(t, testConfigYAML)
	f.db.addUser(entity.User{ID: 7, Email: "alice@example.com", EmailVerified: true, Status: entity.UserStatusActive})

	if err := f.uc.SendVerificationOTP(ctx, usecase.SendVerificationOTPInput{
		Email:   "alice@example.com",
		Purpose: entity.PurposeSignIn,
	}); err != nil {
		t.Fatalf("send: %v", err)
	}

	// Act
	out, err := f.uc.SignInOTP(ctx, usecase.SignInOTPInput{
		Email: "alice@example.com",
		Code:  f.sender.lastCode(),
	})

	// Assert
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if out.NewUser {
		t.Fatalf("existing user must not be re-provisioned")
	}
	if out.UserID != 7 {
		t.Fatalf("expected user 7, got %d", out.UserID)
	}
}

func TestSignInOTPCodeIsSingleUse(t *testing.T) {
	// Arrange
	ctx := context.Background()
	f := newFixture(t, testConfigYAML)

	if err := f.uc.SendVerificationOTP(ctx, usecase.SendVerificationOTPInput{
		Email:   "alice@example.com",
		Purpose: entity.PurposeSignIn,
	}); err != nil {
		t.Fatalf("send: %v", err)
	}
	code := f.sender.lastCode()

	// Act
	_, errFirst := f.uc.SignInOTP(ctx, usecase.SignInOTPInput{Email: "alice@example.com", Code: code})
	_, errSecond := f.uc.SignInOTP(ctx, usecase.SignInOTPInput{Email: "alice@example.com", Code: code})

	// Assert
	if errFirst != nil {
		t.Fatalf("first use should succeed, got %v", errFirst)
	}
	if got := reasonOf(t, errSecond); got != usecase.ReasonOTPNotFound {
		t.Fatalf("second use should report %s, got %s", usecase.ReasonOTPNotFound, got)
	}
}

func TestSignInOTPExpiryBoundary(t *testing.T) {
	// Arrange
	ctx := context.Background()
	f := newFixture(t, testConfigYAML)

	if err := f.uc.SendVerificationOTP(ctx, usecase.SendVerificationOTPInput{
		Email:   "alice@example.com",
		Purpose: entity.PurposeSignIn,
	}); err != nil {
		t.Fatalf("send: %v", err)
	}
	code := f.sender.lastCode()

	// Act: four minutes in, the code still verifies.
	f.clock.Advance(4 * time.Minute)
	if _, err := f.uc.SignInOTP(ctx, usecase.SignInOTPInput{Email: "alice@example.com", Code: code}); err != nil {
		t.Fatalf("code should verify one minute before expiry, got %v", err)
	}

	// A fresh code checked at exactly its expiry instant is already dead.
	if err := f.uc.SendVerificationOTP(ctx, usecase.SendVerificationOTPInput{
		Email:   "alice@example.com",
		Purpose: entity.PurposeSignIn,
	}); err != nil {
		t.Fatalf("send: %v", err)
	}
	code = f.sender.lastCode()
	f.clock.Advance(5 * time.Minute)
	_, err := f.uc.SignInOTP(ctx, usecase.SignInOTPInput{Email: "alice@example.com", Code: code})

	// Assert
	if got := reasonOf(t, err); got != usecase.ReasonOTPExpired {
		t.Fatalf("expected %s at the expiry boundary, got %s", usecase.ReasonOTPExpired, got)
	}
}

func TestSignInOTPPurposeIsolation(t *testing.T) {
	// Arrange
	ctx := context.Background()
	f := newFixture(t, testConfigYAML)

	if err := f.uc.SendVerificationOTP(ctx, usecase.SendVerificationOTPInput{
		Email:   "alice@example.com",
		Purpose: entity.PurposeEmailVerification,
	}); err != nil {
		t.Fatalf("send: %v", err)
	}

	// Act: a code issued for email verification must not sign anyone in.
	_, err := f.uc.SignInOTP(ctx, usecase.SignInOTPInput{
		Email: "alice@example.com",
		Code:  f.sender.lastCode(),
	})

	// Assert
	if got := reasonOf(t, err); got != usecase.ReasonOTPNotFound {
		t.Fatalf("expected %s across purposes, got %s", usecase.ReasonOTPNotFound, got)
	}
}

func TestSignInOTPBannedUserIsRejected(t *testing.T) {
	// Arrange
	ctx := context.Background()
	f := newFixture(t, testConfigYAML)
	f.db.addUser(entity.User{ID: 9, Email: "mallory@example.com", EmailVerified: true, Status: entity.UserStatusBanned})

	if err := f.uc.SendVerificationOTP(ctx, usecase.SendVerificationOTPInput{
		Email:   "mallory@example.com",
		Purpose: entity.PurposeSignIn,
	}); err != nil {
		t.Fatalf("send: %v", err)
	}

	// Act
	_, err := f.uc.SignInOTP(ctx, usecase.SignInOTPInput{
		Email: "mallory@example.com",
		Code:  f.sender.lastCode(),
	})

	// Assert
	var gerr *goerror.Error
	if !errors.As(err, &gerr) || gerr.Code() != goerror.CodeForbidden {
		t.Fatalf("expected forbidden error for a banned user, got %v", err)
	}
	if len(f.db.sessions) != 0 {
		t.Fatalf("no session may be created for a banned user")
	}
}

func TestSignInOTPProvisionFailure(t *testing.T) {
	// Arrange
	ctx := context.Background()
	f := newFixture(t, testConfigYAML)
	f.db.createUserErr = errors.New("db: constraint violation")

	if err := f.uc.SendVerificationOTP(ctx, usecase.SendVerificationOTPInput{
		Email:   "alice@example.com",
		Purpose: entity.PurposeSignIn,
	}); err != nil {
		t.Fatalf("send: %v", err)
	}

	// Act
	_, err := f.uc.SignInOTP(ctx, usecase.SignInOTPInput{
		Email: "alice@example.com",
		Code:  f.sender.lastCode(),
	})

	// Assert
	if got := reasonOf(t, err); got != usecase.ReasonUserProvisionError {
		t.Fatalf("expected %s, got %s", usecase.ReasonUserProvisionError, got)
	}
}

func TestVerifyEmailMarksUserVerified(t *testing.T) {
	// Arrange
	ctx := context.Background()
	f := newFixture(t, testConfigYAML)
	f.db.addUser(entity.User{ID: 3, Email: "bob@example.com", Status: entity.UserStatusActive})

	if err := f.uc.SendVerificationOTP(ctx, usecase.SendVerificationOTPInput{
		Email:   "bob@example.com",
		Purpose: entity.PurposeEmailVerification,
	}); err != nil {
		t.Fatalf("send: %v", err)
	}

	// Act
	out, err := f.uc.VerifyEmail(ctx, usecase.VerifyEmailInput{
		Email: "bob@example.com",
		Code:  f.sender.lastCode(),
	})

	// Assert
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !out.Verified {
		t.Fatalf("expected verified output")
	}
	if out.SessionToken != "" {
		t.Fatalf("auto sign-in is disabled, no session expected")
	}
	user, _ := f.db.GetUserByEmail(ctx, "bob@example.com")
	if !user.EmailVerified {
		t.Fatalf("user should be marked verified")
	}
}

func TestVerifyEmailAutoSignIn(t *testing.T) {
	// Arrange
	ctx := context.Background()
	cfgYAML := strings.Replace(testConfigYAML, "auto_sign_in_after_verification: false", "auto_sign_in_after_verification: true", 1)
	f := newFixture(t, cfgYAML)
	f.db.addUser(entity.User{ID: 3, Email: "bob@example.com", Status: entity.UserStatusActive})

	if err := f.uc.SendVerificationOTP(ctx, usecase.SendVerificationOTPInput{
		Email:   "bob@example.com",
		Purpose: entity.PurposeEmailVerification,
	}); err != nil {
		t.Fatalf("send: %v", err)
	}

	// Act
	out, err := f.uc.VerifyEmail(ctx, usecase.VerifyEmailInput{
		Email: "bob@example.com",
		Code:  f.sender.lastCode(),
	})

	// Assert
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if out.AccessToken == "" || out.SessionToken == "" {
		t.Fatalf("expected a session when auto sign-in is enabled")
	}
	if out.CookieName != "warden.session_token" {
		t.Fatalf("unexpected cookie name %q", out.CookieName)
	}
}

func TestVerifyEmailUnknownUser(t *testing.T) {
	// Arrange
	ctx := context.Background()
	f := newFixture(t, testConfigYAML)

	if err := f.uc.SendVerificationOTP(ctx, usecase.SendVerificationOTPInput{
		Email:   "ghost@example.com",
		Purpose: entity.PurposeEmailVerification,
	}); err != nil {
		t.Fatalf("send: %v", err)
	}

	// Act
	_, err := f.uc.VerifyEmail(ctx, usecase.VerifyEmailInput{
		Email: "ghost@example.com",
		Code:  f.sender.lastCode(),
	})

	// Assert
	var gerr *goerror.Error
	if !errors.As(err, &gerr) || gerr.Code() != goerror.CodeNotFound {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestPasswordResetRotatesCredentialAndRevokesSessions(t *testing.T) {
	// Arrange
	ctx := context.Background()
	f := newFixture(t, testConfigYAML)

	oldHash, err := f.bcrypt.Hash("OldSecret123!")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	f.db.addUser(entity.User{ID: 5, Email: "carol@example.com", EmailVerified: true, Status: entity.UserStatusActive})
	f.db.creds[5] = string(oldHash)

	if _, err := f.uc.Login(ctx, usecase.LoginInput{Email: "carol@example.com", Password: "OldSecret123!"}); err != nil {
		t.Fatalf("login with old password before reset: %v", err)
	}

	if err := f.uc.SendVerificationOTP(ctx, usecase.SendVerificationOTPInput{
		Email:   "carol@example.com",
		Purpose: entity.PurposeForgetPassword,
	}); err != nil {
		t.Fatalf("send: %v", err)
	}

	// Act
	err = f.uc.PasswordReset(ctx, usecase.PasswordResetInput{
		Email:       "carol@example.com",
		Code:        f.sender.lastCode(),
		NewPassword: "NewSecret456!",
	})

	// Assert
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if f.db.revoked[5] != 1 {
		t.Fatalf("expected sessions revoked once, got %d", f.db.revoked[5])
	}

	if _, err := f.uc.Login(ctx, usecase.LoginInput{Email: "carol@example.com", Password: "OldSecret123!"}); err == nil {
		t.Fatalf("old password must stop working after reset")
	}
	if _, err := f.uc.Login(ctx, usecase.LoginInput{Email: "carol@example.com", Password: "NewSecret456!"}); err != nil {
		t.Fatalf("new password should work after reset, got %v", err)
	}

	if err := f.gr.Wait(); err != nil {
		t.Fatalf("goroutines: %v", err)
	}
	if f.msg.reset != 1 {
		t.Fatalf("expected one password-reset event, got %d", f.msg.reset)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	// Arrange
	ctx := context.Background()
	f := newFixture(t, testConfigYAML)

	h, err := f.bcrypt.Hash("Correct123!")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	f.db.addUser(entity.User{ID: 2, Email: "dave@example.com", EmailVerified: true, Status: entity.UserStatusActive})
	f.db.creds[2] = string(h)

	// Act
	_, errWrong := f.uc.Login(ctx, usecase.LoginInput{Email: "dave@example.com", Password: "Wrong123!"})
	_, errUnknown := f.uc.Login(ctx, usecase.LoginInput{Email: "nobody@example.com", Password: "Wrong123!"})

	// Assert
	var gerr *goerror.Error
	if !errors.As(errWrong, &gerr) || gerr.Code() != goerror.CodeUnauthorized {
		t.Fatalf("expected unauthorized for a wrong password, got %v", errWrong)
	}
	if !errors.As(errUnknown, &gerr) || gerr.Code() != goerror.CodeUnauthorized {
		t.Fatalf("expected unauthorized for an unknown email, got %v", errUnknown)
	}
	if errWrong.Error() != errUnknown.Error() {
		t.Fatalf("wrong password and unknown email must be indistinguishable")
	}
}

func TestServerCreateAndGetOTP(t *testing.T) {
	// Arrange
	ctx := context.Background()
	f := newFixture(t, testConfigYAML)

	// Act
	created, err := f.uc.ServerCreateOTP(ctx, usecase.ServerCreateOTPInput{
		Email:   "alice@example.com",
		Purpose: entity.PurposeSignIn,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := f.uc.ServerGetOTP(ctx, usecase.ServerGetOTPInput{
		Email:   "alice@example.com",
		Purpose: entity.PurposeSignIn,
	})

	// Assert
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.Found || got.Code != created.Code {
		t.Fatalf("expected live code %q, got found=%v code=%q", created.Code, got.Found, got.Code)
	}
	if f.sender.callCount() != 0 {
		t.Fatalf("server issuance must not send email")
	}

	// A second create replaces the first code.
	created, err = f.uc.ServerCreateOTP(ctx, usecase.ServerCreateOTPInput{
		Email:   "alice@example.com",
		Purpose: entity.PurposeSignIn,
	})
	if err != nil {
		t.Fatalf("recreate: %v", err)
	}
	got, err = f.uc.ServerGetOTP(ctx, usecase.ServerGetOTPInput{
		Email:   "alice@example.com",
		Purpose: entity.PurposeSignIn,
	})
	if err != nil {
		t.Fatalf("get after recreate: %v", err)
	}
	if !got.Found || got.Code != created.Code {
		t.Fatalf("expected superseding code %q, got found=%v code=%q", created.Code, got.Found, got.Code)
	}

	// Consuming the code hides it from subsequent lookups.
	if _, err := f.uc.SignInOTP(ctx, usecase.SignInOTPInput{Email: "alice@example.com", Code: created.Code}); err != nil {
		t.Fatalf("sign in with server-issued code: %v", err)
	}
	got, err = f.uc.ServerGetOTP(ctx, usecase.ServerGetOTPInput{
		Email:   "alice@example.com",
		Purpose: entity.PurposeSignIn,
	})
	if err != nil {
		t.Fatalf("get after consume: %v", err)
	}
	if got.Found {
		t.Fatalf("consumed code must not be reported as live")
	}
}

func TestServerGetOTPExpired(t *testing.T) {
	// Arrange
	ctx := context.Background()
	f := newFixture(t, testConfigYAML)

	if _, err := f.uc.ServerCreateOTP(ctx, usecase.ServerCreateOTPInput{
		Email:   "alice@example.com",
		Purpose: entity.PurposeForgetPassword,
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	// Act
	f.clock.Advance(5 * time.Minute)
	got, err := f.uc.ServerGetOTP(ctx, usecase.ServerGetOTPInput{
		Email:   "alice@example.com",
		Purpose: entity.PurposeForgetPassword,
	})

	// Assert
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Found {
		t.Fatalf("expired code must not be reported as live")
	}
}

// downStore simulates an unreachable code store.
type downStore struct{ err error }

func (d downStore) Save(context.Context, entity.OTPRecord) error { return d.err }

func (d downStore) Find(context.Context, string, entity.Purpose) (*entity.OTPRecord, error) {
	return nil, d.err
}

func (d downStore) Consume(context.Context, string, entity.Purpose, string, time.Time) (*entity.OTPRecord, error) {
	return nil, d.err
}

func (d downStore) Delete(context.Context, string, entity.Purpose, string) error { return d.err }

func TestSendVerificationOTPStoreUnavailable(t *testing.T) {
	// Arrange
	ctx := context.Background()
	cfg, err := config.NewViperFromBytes("yaml", []byte(testConfigYAML))
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	v10, err := validator.NewV10Validator()
	if err != nil {
		t.Fatalf("validator: %v", err)
	}
	sender := &fakeSender{}
	gr := goroutine.NewManager(8)

	uc := usecase.New(usecase.Dependency{
		RepoDB:        newFakeDB(),
		RepoOTP:       downStore{err: errors.New("connection refused")},
		RepoMessaging: &fakeMessaging{},
		Sender:        sender,
		Validator:     v10,
		Config:        cfg,
		Codes:         otp.NewNumericCode(),
		HMAC:          hash.NewHMACSHA256("test-secret"),
		Bcrypt:        hash.NewBcrypt(4, ""),
		UID:           &seqNumberID{},
		OID:           &seqStringID{},
		Clock:         clock.NewFixed(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)),
		JWT:           fakeJWT{},
		Instrument:    instrument.NewNoop(),
		Goroutine:     gr,
	})

	// Act
	err = uc.SendVerificationOTP(ctx, usecase.SendVerificationOTPInput{
		Email:   "alice@example.com",
		Purpose: entity.PurposeSignIn,
	})

	// Assert
	if got := reasonOf(t, err); got != usecase.ReasonOTPStoreError {
		t.Fatalf("expected reason %q, got %q", usecase.ReasonOTPStoreError, got)
	}
	if sender.callCount() != 0 {
		t.Fatalf("no email may be sent when the store rejects the record")
	}
	if err := gr.Wait(); err != nil {
		t.Fatalf("goroutine wait: %v", err)
	}
}
