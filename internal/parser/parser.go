// Package parser implements the Frame Parser (component C, §4.3): a
// single-threaded, cooperative, byte-driven state machine that
// reassembles incoming bytes into framed messages, validates their
// checksum against the catalog's per-message CRC seed, and dispatches
// decoded payloads over an events.Bus.
//
// This is grounded primarily on librescoot-bluetooth-service's
// pkg/usock.Conn, which drives an explicit named-state byte-at-a-time
// reader the same way (processByte over State); the header/CRC framing
// itself is the one internal/builder produces on the transmit side.
package parser

import (
	"github.com/kstaniek/go-mavcodec/internal/events"
	"github.com/kstaniek/go-mavcodec/internal/metrics"
	"github.com/kstaniek/go-mavcodec/internal/schema"
	"github.com/kstaniek/go-mavcodec/internal/wire"
	"github.com/kstaniek/go-mavcodec/internal/xcrc"
)

type state int

const (
	stateIdle state = iota
	stateLen
	stateBody
)

// maxFrame is the largest possible frame: a 255-byte payload plus the
// fixed 8 framing bytes (§9: "any buffer of that size suffices").
const maxFrame = 255 + 8

// Parser is the Frame Parser state machine. It is not safe for
// concurrent use by multiple goroutines — callers drive it by calling
// Feed from whatever goroutine owns the transport (§5).
type Parser struct {
	catalog     *wire.Catalog
	bus         *events.Bus
	systemID    byte
	componentID byte
	version     schema.Version

	state         state
	buf           [maxFrame]byte
	cursor        int
	payloadLength int

	hasAccepted  bool
	lastSequence byte
}

// New constructs a Parser bound to catalog, dispatching through bus.
// systemID/componentID select receive filtering: both zero means
// promiscuous receive (§6); otherwise only frames whose sysid/compid
// match both are decoded and dispatched (sequence tracking and
// checksum validation still run on every frame regardless of filter).
func New(catalog *wire.Catalog, bus *events.Bus, systemID, componentID byte, version schema.Version) *Parser {
	return &Parser{
		catalog:     catalog,
		bus:         bus,
		systemID:    systemID,
		componentID: componentID,
		version:     version,
	}
}

func (p *Parser) startByte() byte {
	if p.version == schema.V0_9 {
		return 0x55
	}
	return 0xFE
}

// Feed consumes an arbitrary-sized chunk of bytes in arrival order.
// Decoded messages are dispatched synchronously, in byte-arrival
// order, from within Feed (§5).
func (p *Parser) Feed(data []byte) {
	for _, b := range data {
		p.processByte(b)
	}
}

func (p *Parser) processByte(b byte) {
	switch p.state {
	case stateIdle:
		if b == p.startByte() {
			p.buf[0] = b
			p.cursor = 1
			p.state = stateLen
		} else {
			metrics.AddResyncBytes(1)
		}
	case stateLen:
		p.buf[1] = b
		p.payloadLength = int(b)
		p.cursor = 2
		p.state = stateBody
	case stateBody:
		p.buf[p.cursor] = b
		p.cursor++
		if p.cursor == p.payloadLength+8 {
			p.check()
			p.reset()
		}
	}
}

// check runs the CHECK-state validation of §4.3: CRC verification,
// sequence-gap detection, and, on success, payload decode and
// dispatch.
func (p *Parser) check() {
	L := p.payloadLength
	id := int(p.buf[5])

	desc, known := p.catalog.ByID(id)
	var seed byte
	if known {
		seed = desc.CRCSeed
	}

	crc := xcrc.X25(p.buf[1:6+L], xcrc.Seed)
	if p.version != schema.V0_9 {
		crc = xcrc.X25([]byte{seed}, crc)
	}
	received := uint16(p.buf[6+L]) | uint16(p.buf[6+L+1])<<8

	if !known || crc != received {
		metrics.IncChecksumFail()
		p.bus.Publish("checksum_fail", ChecksumFail{
			ID:       id,
			Seed:     seed,
			Computed: crc,
			Received: received,
		})
		return
	}

	metrics.IncFramesParsed()

	seq := p.buf[2]
	// §9.2 redesign: the source skips the gap check whenever the
	// current byte is 0, conflating startup with a legitimate 255->0
	// wrap. hasAccepted distinguishes "no frame accepted yet" from
	// "last accepted sequence was 255", so 255->0 is validated like
	// any other step.
	if p.hasAccepted {
		diff := (int(seq) - int(p.lastSequence) + 256) % 256
		if diff != 1 {
			missed := byte((diff - 1 + 256) % 256)
			metrics.IncSequenceGap()
			p.bus.Publish("sequence_error", SequenceError{Gap: missed})
		}
	}
	p.lastSequence = seq
	p.hasAccepted = true

	sysid := p.buf[3]
	compid := p.buf[4]
	if !(p.systemID == 0 && p.componentID == 0) && !(sysid == p.systemID && compid == p.componentID) {
		return
	}

	fields := decodePayload(desc, p.buf[6:6+L])
	header := wire.FrameHeader{Sequence: seq, SystemID: sysid, ComponentID: compid, MessageID: id}
	evt := MessageEvent{Name: desc.Name, Header: header, Fields: fields}
	p.bus.Publish("message", evt)
	p.bus.Publish(desc.Name, evt)
}

func (p *Parser) reset() {
	p.state = stateIdle
	p.cursor = 0
	p.payloadLength = 0
}

// decodePayload implements §4.6: iterate fields in layout order,
// reading each according to its base type and array length.
func decodePayload(desc *wire.MessageDescriptor, payload []byte) wire.FieldMap {
	fields := make(wire.FieldMap, len(desc.Fields))
	off := 0
	for _, f := range desc.Fields {
		switch {
		case f.ArrayLength <= 1:
			fields[f.Name] = wire.ReadValue(payload, off, f.BaseType)
		case f.BaseType == wire.Char:
			fields[f.Name] = wire.TrimCharArray(payload[off : off+f.TotalSize])
		default:
			seq := make([]any, f.ArrayLength)
			for i := 0; i < f.ArrayLength; i++ {
				seq[i] = wire.ReadValue(payload, off+i*f.TypeSize, f.BaseType)
			}
			fields[f.Name] = seq
		}
		off += f.TotalSize
	}
	return fields
}
