package mq

import (
	"context"
	"encoding/json"

	"github.com/wardenid/warden/internal/emailotp/usecase"
	"github.com/wardenid/warden/internal/pkg/instrument"
	"github.com/wardenid/warden/internal/pkg/messaging"
	"github.com/wardenid/warden/internal/shared/event"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const keyOfCorrelationID string = "cID"

type Messaging struct {
	client messaging.Messaging
	ins    instrument.Instrumentation
}

func NewMessaging(client messaging.Messaging, ins instrument.Instrumentation) *Messaging {
	return &Messaging{client: client, ins: ins}
}

func (m *Messaging) publish(ctx context.Context, span trace.Span, destination string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	cID := instrument.GetCorrelationID(ctx)
	if _, err := m.client.Publish(ctx, destination, messaging.OutgoingMessage{
		Body:    body,
		Headers: []messaging.Header{{Key: keyOfCorrelationID, Value: []byte(cID)}},
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}

func (m *Messaging) PublishCodeSent(ctx context.Context, msg usecase.CodeSentEvent) error {
	ctx, span := m.ins.Tracer("emailotp.outbound.mq").Start(ctx, "PublishCodeSent")
	defer span.End()

	return m.publish(ctx, span, event.OTPCodeSentDestination, event.OTPCodeSentMessage{
		Email:     msg.Email,
		Purpose:   msg.Purpose,
		ExpiresAt: msg.ExpiresAt.Unix(),
	})
}

func (m *Messaging) PublishUserProvisioned(ctx context.Context, msg usecase.UserProvisionedEvent) error {
	ctx, span := m.ins.Tracer("emailotp.outbound.mq").Start(ctx, "PublishUserProvisioned")
	defer span.End()

	return m.publish(ctx, span, event.UserProvisionedDestination, event.UserProvisionedMessage{
		UserID: msg.UserID,
		Email:  msg.Email,
	})
}

func (m *Messaging) PublishPasswordReset(ctx context.Context, msg usecase.PasswordResetEvent) error {
	ctx, span := m.ins.Tracer("emailotp.outbound.mq").Start(ctx, "PublishPasswordReset")
	defer span.End()

	return m.publish(ctx, span, event.PasswordResetDestination, event.PasswordResetMessage{
		UserID: msg.UserID,
		Email:  msg.Email,
	})
}
