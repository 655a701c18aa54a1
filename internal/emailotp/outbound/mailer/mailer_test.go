package mailer_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/wardenid/warden/internal/emailotp/entity"
	"github.com/wardenid/warden/internal/emailotp/outbound/mailer"
	"github.com/wardenid/warden/internal/pkg/clock"
	"github.com/wardenid/warden/internal/pkg/instrument"
	"github.com/wardenid/warden/internal/pkg/mail"
)

type captureMail struct {
	sent []mail.Message
	errs []error
}

func (c *captureMail) Send(_ context.Context, msg mail.Message) error {
	if len(c.errs) > 0 {
		err := c.errs[0]
		c.errs = c.errs[1:]
		return err
	}
	c.sent = append(c.sent, msg)
	return nil
}

func (c *captureMail) Close() error { return nil }

func TestSendCodeRendersRemainingValidity(t *testing.T) {
	// Arrange
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	cm := &captureMail{}
	m := mailer.New(cm, "no-reply@warden.id", clock.NewFixed(now), instrument.NewNoop())

	// Act
	err := m.SendCode(ctx, "alice@example.com", "123456", entity.PurposeSignIn, now.Add(5*time.Minute))

	// Assert
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(cm.sent) != 1 {
		t.Fatalf("expected one message, got %d", len(cm.sent))
	}
	msg := cm.sent[0]
	if msg.From != "no-reply@warden.id" || msg.To[0] != "alice@example.com" {
		t.Fatalf("unexpected envelope: from=%q to=%v", msg.From, msg.To)
	}
	if msg.Subject != "Your sign-in code" {
		t.Fatalf("unexpected subject %q", msg.Subject)
	}
	if !strings.Contains(msg.TextBody, "123456") {
		t.Fatalf("body must carry the code, got %q", msg.TextBody)
	}
	if !strings.Contains(msg.TextBody, "expires in 5 minutes") {
		t.Fatalf("expected validity rendered from the injected clock, got %q", msg.TextBody)
	}
}

func TestSendCodeRetriesTransientFailures(t *testing.T) {
	// Arrange
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	cm := &captureMail{errs: []error{errors.New("451 temporary failure")}}
	m := mailer.New(cm, "no-reply@warden.id", clock.NewFixed(now), instrument.NewNoop())

	// Act
	err := m.SendCode(ctx, "alice@example.com", "654321", entity.PurposeForgetPassword, now.Add(5*time.Minute))

	// Assert
	if err != nil {
		t.Fatalf("expected retry to recover, got %v", err)
	}
	if len(cm.sent) != 1 {
		t.Fatalf("expected delivery after retry, got %d messages", len(cm.sent))
	}
}
