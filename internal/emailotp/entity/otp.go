package entity

import (
	"errors"
	"time"
)

var (
	// ErrOTPNotFound means no consumable record exists for the pair: never
	// issued, already consumed, or replaced by a newer code. Callers must not
	// distinguish these cases.
	ErrOTPNotFound = errors.New("emailotp: no active code for this email and purpose")

	// ErrOTPExpired means the record exists but its validity window elapsed.
	ErrOTPExpired = errors.New("emailotp: code has expired")

	// ErrOTPMismatch means the record is active but the candidate differs.
	ErrOTPMismatch = errors.New("emailotp: code does not match")
)

// OTPRecord is one issued passcode for an (email, purpose) pair.
//
// At most one record exists per pair at any instant: issuing a new code
// replaces the previous record unconditionally, whatever its remaining TTL.
// A record never leaves the consumed state once ConsumedAt is set.
type OTPRecord struct {
	Email      string
	Purpose    Purpose
	Code       string
	CreatedAt  time.Time
	ExpiresAt  time.Time
	ConsumedAt *time.Time
}

// Consumed reports whether the record has already been used.
func (r OTPRecord) Consumed() bool {
	return r.ConsumedAt != nil
}

// Expired reports whether the record's validity window has elapsed at now.
//
// The boundary is inclusive: a check at exactly ExpiresAt counts as expired.
func (r OTPRecord) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// Active reports whether the record can still be consumed at now.
func (r OTPRecord) Active(now time.Time) bool {
	return !r.Consumed() && !r.Expired(now)
}

// Key returns the storage key for an (email, purpose) pair.
func Key(email string, p Purpose) string {
	return p.String() + ":" + email
}
