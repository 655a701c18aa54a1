package validator_test

import (
	"errors"
	"testing"

	"github.com/wardenid/warden/internal/pkg/validator"
)

var _ validator.Validator = (*validator.V10Validator)(nil)

type sampleRequest struct {
	Email       string `validate:"required,email"`
	NewPassword string `validate:"required,password"`
}

func TestV10ValidatorValidate(t *testing.T) {
	// Arrange
	v, err := validator.NewV10Validator()
	if err != nil {
		t.Fatalf("new validator: %v", err)
	}

	// Act
	err = v.Validate(sampleRequest{Email: "alice@example.com", NewPassword: "correct horse battery"})

	// Assert
	if err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}
}

func TestV10ValidatorValidateCollectsFieldErrors(t *testing.T) {
	// Arrange
	v, err := validator.NewV10Validator()
	if err != nil {
		t.Fatalf("new validator: %v", err)
	}

	// Act
	err = v.Validate(sampleRequest{Email: "not-an-email", NewPassword: "short"})

	// Assert
	var fieldErrs validator.V10ValidationError
	if !errors.As(err, &fieldErrs) {
		t.Fatalf("expected V10ValidationError, got %v", err)
	}
	if _, ok := fieldErrs["email"]; !ok {
		t.Fatalf("expected snake_case email key, got %v", fieldErrs)
	}
	if _, ok := fieldErrs["new_password"]; !ok {
		t.Fatalf("expected snake_case new_password key, got %v", fieldErrs)
	}
}
