// Package common defines shared constants, sentinel errors and small helpers
// used across the sync engine and the local store. Callers should use
// errors.Is to match the error values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Identity errors.
	ErrInvalidIdentity = errors.New("invalid sync id")

	// Relay errors. ErrNetwork is retryable by the caller.
	ErrAuthentication = errors.New("authentication failed")
	ErrNetwork        = errors.New("network failure")

	// Per-record crypto errors.
	ErrDecryptionFailed  = errors.New("decryption failed")
	ErrIntegrityMismatch = errors.New("integrity hash mismatch")
	ErrMalformedEnvelope = errors.New("malformed envelope")
)
