// Package builder implements the Frame Builder (component D, §4.4):
// given a message id or name and a field map, it produces a complete,
// checksummed, sequenced frame ready for transmission.
//
// The header composition and trailing CRC append follow a CAN-over-
// serial frame encoder, generalized to this protocol's 8-byte framing.
package builder

import (
	"fmt"
	"sync"

	"github.com/kstaniek/go-mavcodec/internal/logging"
	"github.com/kstaniek/go-mavcodec/internal/schema"
	"github.com/kstaniek/go-mavcodec/internal/wire"
	"github.com/kstaniek/go-mavcodec/internal/xcrc"
)

// Builder is the Frame Builder. It is safe for concurrent use: the
// sequence counter is guarded by a mutex, the same pattern used for
// the analogous CAN transmit path this package's framing is modeled
// on.
type Builder struct {
	catalog     *wire.Catalog
	systemID    byte
	componentID byte
	version     schema.Version

	mu  sync.Mutex
	seq byte
}

// New constructs a Builder bound to catalog. systemID/componentID are
// the origin ids stamped into every built frame; both zero means the
// builder is unconfigured for sending (§7: ErrNotConfigured). start is
// the first sequence byte Build will emit.
func New(catalog *wire.Catalog, systemID, componentID byte, version schema.Version, start byte) *Builder {
	return &Builder{
		catalog:     catalog,
		systemID:    systemID,
		componentID: componentID,
		version:     version,
		seq:         start,
	}
}

// Build resolves idOrName (an int id or a string name) against the
// catalog and encodes fields into a complete frame (§4.4). Sequence
// advances exactly once per successful call, never on failure.
func (b *Builder) Build(idOrName any, fields wire.FieldMap) ([]byte, error) {
	if b.systemID == 0 && b.componentID == 0 {
		return nil, wire.ErrNotConfigured
	}

	desc, err := b.resolve(idOrName)
	if err != nil {
		return nil, err
	}

	for _, f := range desc.Fields {
		if _, ok := fields[f.Name]; !ok {
			return nil, fmt.Errorf("%w: %s", wire.ErrMissingField, f.Name)
		}
	}

	payload := make([]byte, desc.PayloadLength)
	off := 0
	for _, f := range desc.Fields {
		writeField(payload, off, f, fields[f.Name])
		off += f.TotalSize
	}

	b.mu.Lock()
	seq := b.seq
	b.seq = byte((int(b.seq) + 1) % 256)
	b.mu.Unlock()

	frame := make([]byte, 0, 8+len(payload))
	frame = append(frame, 0xFE, byte(desc.PayloadLength), seq, b.systemID, b.componentID, byte(desc.ID))
	frame = append(frame, payload...)

	crc := xcrc.X25(frame[1:], xcrc.Seed)
	if b.version != schema.V0_9 {
		crc = xcrc.X25([]byte{desc.CRCSeed}, crc)
	}
	frame = append(frame, byte(crc&0xFF), byte(crc>>8))

	return frame, nil
}

func (b *Builder) resolve(idOrName any) (*wire.MessageDescriptor, error) {
	switch v := idOrName.(type) {
	case string:
		if desc, ok := b.catalog.ByName(v); ok {
			return desc, nil
		}
	case int:
		if desc, ok := b.catalog.ByID(v); ok {
			return desc, nil
		}
	}
	return nil, fmt.Errorf("%w: %v", wire.ErrUnknownMessage, idOrName)
}

// writeField encodes one field's value(s) at off within payload, per
// §4.4 step 4. Char arrays (array_length > 1) are truncated with a
// logged warning if the supplied string is longer than the array
// length (§9.4); shorter strings leave the remaining bytes zero. A
// scalar char field (array_length <= 1) is not a string — it falls
// through to wire.WriteValue like any other scalar, matching
// decodePayload's raw-byte representation for that field shape.
func writeField(payload []byte, off int, f wire.FieldDescriptor, v any) {
	if f.BaseType == wire.Char && f.ArrayLength > 1 {
		s, _ := v.(string)
		if len(s) > f.ArrayLength {
			logging.L().Warn("char_field_truncated",
				"field", f.Name, "length", len(s), "capacity", f.ArrayLength)
			s = s[:f.ArrayLength]
		}
		copy(payload[off:off+f.ArrayLength], s)
		return
	}

	if f.ArrayLength <= 1 {
		wire.WriteValue(payload, off, f.BaseType, v)
		return
	}

	seq, ok := v.([]any)
	if !ok {
		logging.L().Warn("array_field_wrong_type", "field", f.Name)
		return
	}
	n := f.ArrayLength
	if len(seq) < n {
		n = len(seq)
	}
	for i := 0; i < n; i++ {
		wire.WriteValue(payload, off+i*f.TypeSize, f.BaseType, seq[i])
	}
}
