package app

import (
	"context"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
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

// App wires dependencies and manages service lifecycle.
type App struct {
	ctx    context.Context
	cancel context.CancelFunc

	// configuration
	config config.Config
	ins    instrument.Instrumentation

	// libraries
	goroutine *goroutine.Manager
	validator validator.Validator
	clock     clock.Clocker
	hmac      hash.Hash
	bcrypt    hash.Hash
	uid       uid.NumberID
	oid       uid.StringID
	uuid      uid.StringID
	codes     otp.Generator
	jwt       jwt.JWT

	// resources
	dbConn    *pgxpool.Pool
	cacheConn *redis.Client
	mail      mail.Mail
	messaging messaging.Messaging

	// server
	router     *router.Router
	httpServer *http.Server

	//
	closers []struct {
		name string
		fn   func(context.Context) error
	}
}

// New initializes the application with default wiring and returns an App instance.
func New() *App {
	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		ctx:    ctx,
		cancel: cancel,
	}

	app.initConfig()
	app.initInstrument()
	app.initLibraries()
	app.initJWT()
	app.initDatabase()
	app.initCache()
	app.initMail()
	app.initMessaging()
	app.initHTTPServer()
	app.initModules()
	app.initClosers()

	return app
}
