// Package mailer renders and delivers passcode emails. Transient SMTP
// failures are retried with a capped backoff; whatever error survives the
// retries is returned so the caller can roll the code back.
package mailer

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/wardenid/warden/internal/emailotp/entity"
	"github.com/wardenid/warden/internal/pkg/clock"
	"github.com/wardenid/warden/internal/pkg/instrument"
	"github.com/wardenid/warden/internal/pkg/mail"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type Mailer struct {
	mail  mail.Mail
	from  string
	clock clock.Clocker
	ins   instrument.Instrumentation
}

func New(m mail.Mail, from string, clk clock.Clocker, ins instrument.Instrumentation) *Mailer {
	return &Mailer{mail: m, from: from, clock: clk, ins: ins}
}

// SendCode emails the passcode to its recipient with a purpose-specific
// subject and body.
func (s *Mailer) SendCode(ctx context.Context, email, code string, p entity.Purpose, expiresAt time.Time) (err error) {
	ctx, span := s.ins.Tracer("emailotp.outbound.mailer").Start(ctx, "SendCode")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()
	span.SetAttributes(attribute.String("purpose", p.String()))

	msg := mail.Message{
		From:     s.from,
		To:       []string{email},
		Subject:  subject(p),
		TextBody: body(p, code, expiresAt.Sub(s.clock.Now())),
	}

	b := retry.WithMaxRetries(3, retry.NewFibonacci(300*time.Millisecond))
	b = retry.WithCappedDuration(2*time.Second, b)

	err = retry.Do(ctx, b, func(ctx context.Context) error {
		if sendErr := s.mail.Send(ctx, msg); sendErr != nil {
			return retry.RetryableError(sendErr)
		}
		return nil
	})
	return err
}

func subject(p entity.Purpose) string {
	switch p {
	case entity.PurposeSignIn:
		return "Your sign-in code"
	case entity.PurposeEmailVerification:
		return "Verify your email address"
	case entity.PurposeForgetPassword:
		return "Reset your password"
	default:
		return "Your verification code"
	}
}

func body(p entity.Purpose, code string, remaining time.Duration) string {
	minutes := int(remaining.Round(time.Minute) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}

	var action string
	switch p {
	case entity.PurposeSignIn:
		action = "sign in to your account"
	case entity.PurposeEmailVerification:
		action = "verify your email address"
	case entity.PurposeForgetPassword:
		action = "reset your password"
	default:
		action = "continue"
	}

	return fmt.Sprintf(
		"Use this code to %s:\n\n\t%s\n\nIt expires in %d minutes. If you did not request it, ignore this email.",
		action, code, minutes,
	)
}
