// Package memstore keeps passcode records in process memory. It backs tests
// and single-node deployments; multi-node deployments use the redis store.
package memstore

import (
	"context"
	"crypto/subtle"
	"sync"
	"time"

	"github.com/wardenid/warden/internal/emailotp/entity"
	"go.uber.org/atomic"
)

// Store is an in-memory passcode repository keyed by (email, purpose).
// All mutations for one pair run under that pair's lock, so only the first
// matching Consume for a record can ever succeed.
type Store struct {
	pairs sync.Map // entity.Key -> *pairEntry

	saved    atomic.Int64
	consumed atomic.Int64
}

type pairEntry struct {
	mu  sync.Mutex
	rec *entity.OTPRecord // nil after Delete
}

func New() *Store {
	return &Store{}
}

func (s *Store) entry(key string) *pairEntry {
	if e, ok := s.pairs.Load(key); ok {
		return e.(*pairEntry)
	}
	e, _ := s.pairs.LoadOrStore(key, &pairEntry{})
	return e.(*pairEntry)
}

// Save stores rec, unconditionally replacing any record for the pair.
func (s *Store) Save(_ context.Context, rec entity.OTPRecord) error {
	e := s.entry(entity.Key(rec.Email, rec.Purpose))

	e.mu.Lock()
	e.rec = &rec
	e.mu.Unlock()

	s.saved.Inc()
	return nil
}

// Find returns the pair's latest record whatever its state.
func (s *Store) Find(_ context.Context, email string, p entity.Purpose) (*entity.OTPRecord, error) {
	e := s.entry(entity.Key(email, p))

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.rec == nil {
		return nil, entity.ErrOTPNotFound
	}

	cp := *e.rec
	return &cp, nil
}

// Consume validates candidate against the pair's record and marks it
// consumed, all under the pair's lock.
func (s *Store) Consume(_ context.Context, email string, p entity.Purpose, candidate string, now time.Time) (*entity.OTPRecord, error) {
	e := s.entry(entity.Key(email, p))

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.rec == nil || e.rec.Consumed() {
		return nil, entity.ErrOTPNotFound
	}

	if e.rec.Expired(now) {
		return nil, entity.ErrOTPExpired
	}

	if subtle.ConstantTimeCompare([]byte(e.rec.Code), []byte(candidate)) != 1 {
		return nil, entity.ErrOTPMismatch
	}

	at := now
	e.rec.ConsumedAt = &at
	s.consumed.Inc()

	cp := *e.rec
	return &cp, nil
}

// Delete removes the pair's record when it still holds code. A missing or
// already superseded record is left alone.
func (s *Store) Delete(_ context.Context, email string, p entity.Purpose, code string) error {
	e := s.entry(entity.Key(email, p))

	e.mu.Lock()
	if e.rec != nil && e.rec.Code == code {
		e.rec = nil
	}
	e.mu.Unlock()

	return nil
}

// Stats reports how many records were saved and consumed since start.
func (s *Store) Stats() (saved, consumed int64) {
	return s.saved.Load(), s.consumed.Load()
}
