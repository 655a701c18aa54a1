package app

import (
	"log/slog"
	"os"

	"github.com/wardenid/warden/internal/emailotp"
)

func (a *App) initModules() {
	if a.config.GetBool("modules.emailotp.enabled") {
		if err := emailotp.New(emailotp.Dependency{
			Config:     a.config,
			Instrument: a.ins,
			UID:        a.uid,
			OID:        a.oid,
			Bcrypt:     a.bcrypt,
			HMAC:       a.hmac,
			Clock:      a.clock,
			Codes:      a.codes,
			Validator:  a.validator,
			Router:     a.router,
			DBConn:     a.dbConn,
			CacheConn:  a.cacheConn,
			Messaging:  a.messaging,
			Mail:       a.mail,
			Goroutine:  a.goroutine,
			JWT:        a.jwt,
		}); err != nil {
			slog.Error("failed to init module emailotp", "error", err)
			os.Exit(1)
		}
	}
}
