// Package otp generates short-lived numeric one-time passcodes.
//
// Codes are random nonces, not derived from a shared secret: each digit is
// drawn independently from a cryptographically secure source. Validity and
// single-use semantics are the caller's concern; this package only produces
// the code string.
package otp
