package memstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/wardenid/warden/internal/emailotp/entity"
)

func record(email string, p entity.Purpose, code string, at time.Time) entity.OTPRecord {
	return entity.OTPRecord{
		Email:     email,
		Purpose:   p,
		Code:      code,
		CreatedAt: at,
		ExpiresAt: at.Add(5 * time.Minute),
	}
}

func TestStoreSaveSupersedes(t *testing.T) {
	// Arrange
	ctx := context.Background()
	store := New()
	now := time.Now()

	if err := store.Save(ctx, record("a@example.com", entity.PurposeSignIn, "111111", now)); err != nil {
		t.Fatalf("save first: %v", err)
	}
	if err := store.Save(ctx, record("a@example.com", entity.PurposeSignIn, "222222", now)); err != nil {
		t.Fatalf("save second: %v", err)
	}

	// Act
	_, errOld := store.Consume(ctx, "a@example.com", entity.PurposeSignIn, "111111", now)
	rec, errNew := store.Consume(ctx, "a@example.com", entity.PurposeSignIn, "222222", now)

	// Assert
	if !errors.Is(errOld, entity.ErrOTPMismatch) {
		t.Fatalf("superseded code should mismatch, got %v", errOld)
	}
	if errNew != nil {
		t.Fatalf("latest code should consume, got %v", errNew)
	}
	if !rec.Consumed() {
		t.Fatalf("consumed record should report Consumed")
	}
}

func TestStoreConsumeSingleUse(t *testing.T) {
	// Arrange
	ctx := context.Background()
	store := New()
	now := time.Now()

	if err := store.Save(ctx, record("a@example.com", entity.PurposeEmailVerification, "424242", now)); err != nil {
		t.Fatalf("save: %v", err)
	}

	// Act
	_, errFirst := store.Consume(ctx, "a@example.com", entity.PurposeEmailVerification, "424242", now)
	_, errSecond := store.Consume(ctx, "a@example.com", entity.PurposeEmailVerification, "424242", now)

	// Assert
	if errFirst != nil {
		t.Fatalf("first consume should succeed, got %v", errFirst)
	}
	if !errors.Is(errSecond, entity.ErrOTPNotFound) {
		t.Fatalf("second consume should report not found, got %v", errSecond)
	}
}

func TestStoreConsumeExpiryBoundary(t *testing.T) {
	// Arrange
	ctx := context.Background()
	store := New()
	issued := time.Now()

	if err := store.Save(ctx, record("a@example.com", entity.PurposeForgetPassword, "313131", issued)); err != nil {
		t.Fatalf("save: %v", err)
	}

	// Act
	_, errBefore := store.Consume(ctx, "a@example.com", entity.PurposeForgetPassword, "000000", issued.Add(4*time.Minute))
	_, errAt := store.Consume(ctx, "a@example.com", entity.PurposeForgetPassword, "313131", issued.Add(5*time.Minute))

	// Assert
	if !errors.Is(errBefore, entity.ErrOTPMismatch) {
		t.Fatalf("wrong code inside window should mismatch, got %v", errBefore)
	}
	if !errors.Is(errAt, entity.ErrOTPExpired) {
		t.Fatalf("consume at exact expiry should report expired, got %v", errAt)
	}
}

func TestStorePurposeIsolation(t *testing.T) {
	// Arrange
	ctx := context.Background()
	store := New()
	now := time.Now()

	if err := store.Save(ctx, record("a@example.com", entity.PurposeSignIn, "111111", now)); err != nil {
		t.Fatalf("save sign-in: %v", err)
	}
	if err := store.Save(ctx, record("a@example.com", entity.PurposeForgetPassword, "222222", now)); err != nil {
		t.Fatalf("save forget-password: %v", err)
	}

	// Act
	_, errCross := store.Consume(ctx, "a@example.com", entity.PurposeForgetPassword, "111111", now)
	_, errOwn := store.Consume(ctx, "a@example.com", entity.PurposeSignIn, "111111", now)

	// Assert
	if !errors.Is(errCross, entity.ErrOTPMismatch) {
		t.Fatalf("sign-in code should not consume forget-password record, got %v", errCross)
	}
	if errOwn != nil {
		t.Fatalf("sign-in code should consume its own record, got %v", errOwn)
	}
}

func TestStoreDeleteRollsBack(t *testing.T) {
	// Arrange
	ctx := context.Background()
	store := New()
	now := time.Now()

	if err := store.Save(ctx, record("a@example.com", entity.PurposeSignIn, "999999", now)); err != nil {
		t.Fatalf("save: %v", err)
	}

	// Act
	if err := store.Delete(ctx, "a@example.com", entity.PurposeSignIn, "999999"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	_, errFind := store.Find(ctx, "a@example.com", entity.PurposeSignIn)
	_, errConsume := store.Consume(ctx, "a@example.com", entity.PurposeSignIn, "999999", now)

	// Assert
	if !errors.Is(errFind, entity.ErrOTPNotFound) {
		t.Fatalf("deleted record should not be found, got %v", errFind)
	}
	if !errors.Is(errConsume, entity.ErrOTPNotFound) {
		t.Fatalf("deleted record should not be consumable, got %v", errConsume)
	}
}

func TestStoreDeleteSparesSupersedingRecord(t *testing.T) {
	// Arrange
	ctx := context.Background()
	store := New()
	now := time.Now()

	if err := store.Save(ctx, record("a@example.com", entity.PurposeSignIn, "111111", now)); err != nil {
		t.Fatalf("save first: %v", err)
	}
	if err := store.Save(ctx, record("a@example.com", entity.PurposeSignIn, "222222", now)); err != nil {
		t.Fatalf("save second: %v", err)
	}

	// Act: a late rollback of the first code must not remove the second.
	if err := store.Delete(ctx, "a@example.com", entity.PurposeSignIn, "111111"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	rec, err := store.Find(ctx, "a@example.com", entity.PurposeSignIn)

	// Assert
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if rec.Code != "222222" {
		t.Fatalf("superseding record should survive, got %q", rec.Code)
	}
}

func TestStoreConcurrentConsumeSingleWinner(t *testing.T) {
	// Arrange
	ctx := context.Background()
	store := New()
	now := time.Now()

	if err := store.Save(ctx, record("a@example.com", entity.PurposeSignIn, "654321", now)); err != nil {
		t.Fatalf("save: %v", err)
	}

	// Act
	const workers = 32
	var wg sync.WaitGroup
	results := make(chan error, workers)

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Consume(ctx, "a@example.com", entity.PurposeSignIn, "654321", now)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	// Assert
	wins := 0
	for err := range results {
		if err == nil {
			wins++
		} else if !errors.Is(err, entity.ErrOTPNotFound) {
			t.Fatalf("loser should see not found, got %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("exactly one consume should win, got %d", wins)
	}
}
