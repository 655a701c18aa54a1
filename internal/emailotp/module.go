package emailotp

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/wardenid/warden/internal/emailotp/entity"
	"github.com/wardenid/warden/internal/emailotp/inbound"
	"github.com/wardenid/warden/internal/emailotp/outbound/db"
	"github.com/wardenid/warden/internal/emailotp/outbound/mailer"
	"github.com/wardenid/warden/internal/emailotp/outbound/memstore"
	"github.com/wardenid/warden/internal/emailotp/outbound/mq"
	"github.com/wardenid/warden/internal/emailotp/outbound/redistore"
	"github.com/wardenid/warden/internal/emailotp/usecase"
	"github.com/wardenid/warden/internal/pkg/clock"
	"github.com/wardenid/warden/internal/pkg/config"
	"github.com/wardenid/warden/internal/pkg/goroutine"
	"github.com/wardenid/warden/internal/pkg/hash"
	"github.com/wardenid/warden/internal/pkg/instrument"
	"github.com/wardenid/warden/internal/pkg/jwt"
	"github.com/wardenid/warden/internal/pkg/mail"
	"github.com/wardenid/warden/internal/pkg/messaging"
	"github.com/wardenid/warden/internal/pkg/otp"
	"github.com/wardenid/warden/internal/pkg/router"
	"github.com/wardenid/warden/internal/pkg/uid"
	"github.com/wardenid/warden/internal/pkg/validator"
)

type Dependency struct {
	DBConn     *pgxpool.Pool              `validate:"required"`
	CacheConn  *redis.Client              `validate:"required"`
	Goroutine  *goroutine.Manager         `validate:"required"`
	Router     *router.Router             `validate:"required"`
	Messaging  messaging.Messaging        `validate:"required"`
	Mail       mail.Mail                  `validate:"required"`
	Config     config.Config              `validate:"required"`
	Instrument instrument.Instrumentation `validate:"required"`
	UID        uid.NumberID               `validate:"required"`
	OID        uid.StringID               `validate:"required"`
	HMAC       hash.Hash                  `validate:"required"`
	Bcrypt     hash.Hash                  `validate:"required"`
	Clock      clock.Clocker              `validate:"required"`
	Codes      otp.Generator              `validate:"required"`
	Validator  validator.Validator        `validate:"required"`
	JWT        jwt.JWT                    `validate:"required"`
}

func New(dep Dependency) error {
	if err := dep.Validator.Validate(dep); err != nil {
		return err
	}

	repoDB := db.NewDB(dep.DBConn, dep.Instrument)
	repoOTP := newOTPStore(dep)
	repoMsg := mq.NewMessaging(dep.Messaging, dep.Instrument)
	sender := mailer.New(dep.Mail, dep.Config.GetString("email.sender"), dep.Clock, dep.Instrument)

	uc := usecase.New(usecase.Dependency{
		RepoDB:        repoDB,
		RepoOTP:       repoOTP,
		RepoMessaging: repoMsg,
		Sender:        sender,
		Validator:     dep.Validator,
		Config:        dep.Config,
		Codes:         dep.Codes,
		HMAC:          dep.HMAC,
		Bcrypt:        dep.Bcrypt,
		UID:           dep.UID,
		OID:           dep.OID,
		Clock:         dep.Clock,
		JWT:           dep.JWT,
		Instrument:    dep.Instrument,
		Goroutine:     dep.Goroutine,
	})

	inbound.RegisterHTTPEndpoint(dep.Router, uc)

	return nil
}

// otpStore is the storage contract shared by the redis and in-memory
// implementations.
type otpStore interface {
	Save(ctx context.Context, rec entity.OTPRecord) error
	Find(ctx context.Context, email string, p entity.Purpose) (*entity.OTPRecord, error)
	Consume(ctx context.Context, email string, p entity.Purpose, candidate string, now time.Time) (*entity.OTPRecord, error)
	Delete(ctx context.Context, email string, p entity.Purpose, code string) error
}

// newOTPStore selects the code storage backend. Redis is the default;
// "memory" keeps codes in-process for single-node or local runs.
func newOTPStore(dep Dependency) otpStore {
	if dep.Config.GetString("modules.emailotp.otp_store") == "memory" {
		return memstore.New()
	}

	return redistore.New(dep.CacheConn, dep.Instrument)
}
