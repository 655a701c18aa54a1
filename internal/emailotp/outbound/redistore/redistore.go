// Package redistore keeps passcode records in redis so multiple instances
// can share one issuance state. The consume path runs as a Lua script, which
// gives the same per-pair serialization the in-memory store gets from a lock.
package redistore

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/wardenid/warden/internal/emailotp/entity"
	"github.com/wardenid/warden/internal/pkg/instrument"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const keyPrefix = "warden:emailotp:"

// expiredGrace keeps a record readable past its validity window so a late
// verification reports "expired" rather than "not found".
const expiredGrace = time.Hour

// consumeScript checks and consumes a record in one atomic step. It returns
// the stored fields on success, or one of the status strings NOTFOUND,
// EXPIRED, MISMATCH.
var consumeScript = redis.NewScript(`
local rec = redis.call('HMGET', KEYS[1], 'code', 'created_at', 'expires_at', 'consumed_at')
if not rec[1] then
  return 'NOTFOUND'
end
if rec[4] ~= false then
  return 'NOTFOUND'
end
local now = tonumber(ARGV[2])
if now >= tonumber(rec[3]) then
  return 'EXPIRED'
end
if rec[1] ~= ARGV[1] then
  return 'MISMATCH'
end
redis.call('HSET', KEYS[1], 'consumed_at', ARGV[2])
return {rec[1], rec[2], rec[3]}
`)

// deleteScript removes a record only while it still holds the given code, so
// a rollback cannot destroy a record a concurrent save replaced it with.
var deleteScript = redis.NewScript(`
if redis.call('HGET', KEYS[1], 'code') == ARGV[1] then
  return redis.call('DEL', KEYS[1])
end
return 0
`)

type Store struct {
	rdb *redis.Client
	ins instrument.Instrumentation
}

func New(rdb *redis.Client, ins instrument.Instrumentation) *Store {
	return &Store{rdb: rdb, ins: ins}
}

func (s *Store) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("emailotp.outbound.redistore").Start(ctx, name)
}

func (s *Store) endSpan(span trace.Span, err error) {
	if err != nil &&
		!errors.Is(err, entity.ErrOTPNotFound) &&
		!errors.Is(err, entity.ErrOTPExpired) &&
		!errors.Is(err, entity.ErrOTPMismatch) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (s *Store) key(email string, p entity.Purpose) string {
	return keyPrefix + entity.Key(email, p)
}

// Save stores rec, replacing any record for the pair. The redis TTL extends
// past the validity window by expiredGrace; validity is enforced by the
// stored expiry timestamp, never by key eviction.
func (s *Store) Save(ctx context.Context, rec entity.OTPRecord) (err error) {
	ctx, span := s.startSpan(ctx, "Save")
	defer func() { s.endSpan(span, err) }()

	key := s.key(rec.Email, rec.Purpose)
	ttl := rec.ExpiresAt.Sub(rec.CreatedAt) + expiredGrace

	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key,
			"code", rec.Code,
			"created_at", rec.CreatedAt.UnixMilli(),
			"expires_at", rec.ExpiresAt.UnixMilli(),
		)
		pipe.PExpire(ctx, key, ttl)
		return nil
	})
	return err
}

// Find returns the pair's latest record whatever its state.
func (s *Store) Find(ctx context.Context, email string, p entity.Purpose) (_ *entity.OTPRecord, err error) {
	ctx, span := s.startSpan(ctx, "Find")
	defer func() { s.endSpan(span, err) }()

	vals, err := s.rdb.HGetAll(ctx, s.key(email, p)).Result()
	if err != nil {
		return nil, err
	}
	if len(vals) == 0 {
		return nil, entity.ErrOTPNotFound
	}

	return parseRecord(email, p, vals)
}

// Consume validates candidate against the pair's record and marks it
// consumed atomically via the Lua script.
func (s *Store) Consume(ctx context.Context, email string, p entity.Purpose, candidate string, now time.Time) (_ *entity.OTPRecord, err error) {
	ctx, span := s.startSpan(ctx, "Consume")
	defer func() { s.endSpan(span, err) }()

	res, err := consumeScript.Run(ctx, s.rdb, []string{s.key(email, p)}, candidate, now.UnixMilli()).Result()
	if err != nil {
		return nil, err
	}

	switch v := res.(type) {
	case string:
		switch v {
		case "NOTFOUND":
			return nil, entity.ErrOTPNotFound
		case "EXPIRED":
			return nil, entity.ErrOTPExpired
		case "MISMATCH":
			return nil, entity.ErrOTPMismatch
		}
		return nil, errors.New("redistore: unexpected consume status " + v)

	case []any:
		if len(v) != 3 {
			return nil, errors.New("redistore: malformed consume reply")
		}

		createdAt, err := strconv.ParseInt(toString(v[1]), 10, 64)
		if err != nil {
			return nil, err
		}
		expiresAt, err := strconv.ParseInt(toString(v[2]), 10, 64)
		if err != nil {
			return nil, err
		}

		consumedAt := now
		return &entity.OTPRecord{
			Email:      email,
			Purpose:    p,
			Code:       toString(v[0]),
			CreatedAt:  time.UnixMilli(createdAt),
			ExpiresAt:  time.UnixMilli(expiresAt),
			ConsumedAt: &consumedAt,
		}, nil

	default:
		return nil, errors.New("redistore: unexpected consume reply type")
	}
}

// Delete removes the pair's record when it still holds code.
func (s *Store) Delete(ctx context.Context, email string, p entity.Purpose, code string) (err error) {
	ctx, span := s.startSpan(ctx, "Delete")
	defer func() { s.endSpan(span, err) }()

	err = deleteScript.Run(ctx, s.rdb, []string{s.key(email, p)}, code).Err()
	return err
}

func parseRecord(email string, p entity.Purpose, vals map[string]string) (*entity.OTPRecord, error) {
	createdAt, err := strconv.ParseInt(vals["created_at"], 10, 64)
	if err != nil {
		return nil, err
	}
	expiresAt, err := strconv.ParseInt(vals["expires_at"], 10, 64)
	if err != nil {
		return nil, err
	}

	rec := &entity.OTPRecord{
		Email:     email,
		Purpose:   p,
		Code:      vals["code"],
		CreatedAt: time.UnixMilli(createdAt),
		ExpiresAt: time.UnixMilli(expiresAt),
	}

	if raw, ok := vals["consumed_at"]; ok && raw != "" {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, err
		}
		at := time.UnixMilli(ms)
		rec.ConsumedAt = &at
	}

	return rec, nil
}

func toString(v any) string {
	s, _ := v.(string)
	return s
}
