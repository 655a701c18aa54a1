package otp

import "testing"

func TestNumericCodeGenerate(t *testing.T) {
	gen := NewNumericCode()

	code, err := gen.Generate(6)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(code) != 6 {
		t.Fatalf("expected 6 digits, got %q", code)
	}
	for _, c := range code {
		if c < '0' || c > '9' {
			t.Fatalf("expected numeric code, got %q", code)
		}
	}
}

func TestNumericCodeGenerateDefaultsLength(t *testing.T) {
	gen := NewNumericCode()

	code, err := gen.Generate(0)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(code) != DefaultLength {
		t.Fatalf("expected default length %d, got %q", DefaultLength, code)
	}
}

func TestNumericCodeGenerateVaries(t *testing.T) {
	gen := NewNumericCode()

	seen := map[string]struct{}{}
	for range 32 {
		code, err := gen.Generate(8)
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		seen[code] = struct{}{}
	}

	// 32 draws from 10^8 possibilities colliding down to a handful would
	// indicate a broken random source.
	if len(seen) < 30 {
		t.Fatalf("expected distinct codes, got %d unique of 32", len(seen))
	}
}
