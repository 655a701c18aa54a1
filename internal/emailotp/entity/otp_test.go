package entity

import (
	"testing"
	"time"
)

func TestPurposeRoundTrip(t *testing.T) {
	for _, p := range Purposes() {
		if got := PurposeFromString(p.String()); got != p {
			t.Fatalf("purpose %v round-trips to %v", p, got)
		}
		if p.IsUnknown() {
			t.Fatalf("purpose %v must not be unknown", p)
		}
	}

	if got := PurposeFromString("login"); !got.IsUnknown() {
		t.Fatalf("unrecognized purpose string should parse as unknown, got %v", got)
	}
}

func TestOTPRecordExpiryIsInclusive(t *testing.T) {
	issued := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	rec := OTPRecord{
		Email:     "a@example.com",
		Purpose:   PurposeSignIn,
		Code:      "123456",
		CreatedAt: issued,
		ExpiresAt: issued.Add(5 * time.Minute),
	}

	if rec.Expired(issued.Add(5*time.Minute - time.Nanosecond)) {
		t.Fatalf("record must be valid just before its expiry instant")
	}
	if !rec.Expired(issued.Add(5 * time.Minute)) {
		t.Fatalf("record must be expired at exactly its expiry instant")
	}
	if !rec.Active(issued) {
		t.Fatalf("fresh record must be active")
	}

	at := issued.Add(time.Minute)
	rec.ConsumedAt = &at
	if rec.Active(issued.Add(2 * time.Minute)) {
		t.Fatalf("consumed record must not be active")
	}
}
