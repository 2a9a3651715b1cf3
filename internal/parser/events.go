package parser

import "github.com/kstaniek/go-mavcodec/internal/wire"

// MessageEvent is the payload of both the generic "message" channel
// and each per-message-name channel (§6).
type MessageEvent struct {
	Name   string
	Header wire.FrameHeader
	Fields wire.FieldMap
}

// SequenceError is the payload of the "sequence_error" channel (§6):
// the number of frames missed between the previous accepted sequence
// byte and this one, modulo 256.
type SequenceError struct {
	Gap byte
}

// ChecksumFail is the payload of the "checksum_fail" channel (§6).
type ChecksumFail struct {
	ID       int
	Seed     byte
	Computed uint16
	Received uint16
}
