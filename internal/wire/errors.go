package wire

import "errors"

// Sentinel errors used for wrapping so callers can classify via
// errors.Is.
var (
	ErrDuplicateID   = errors.New("wire: duplicate message id")
	ErrDuplicateName = errors.New("wire: duplicate message name")
	ErrUnknownType   = errors.New("wire: unknown field type")

	ErrUnknownMessage = errors.New("wire: unknown message")
	ErrMissingField   = errors.New("wire: missing field")
	ErrNotConfigured  = errors.New("wire: origin not configured")
)

// Note: there is no 64-bit-unsupported error case here — int64/uint64
// fields are encoded and decoded natively (see codec.go).
