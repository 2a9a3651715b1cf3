package parser

import (
	"context"
	"testing"

	"github.com/kstaniek/go-mavcodec/internal/builder"
	"github.com/kstaniek/go-mavcodec/internal/events"
	"github.com/kstaniek/go-mavcodec/internal/schema"
	"github.com/kstaniek/go-mavcodec/internal/wire"
	"github.com/kstaniek/go-mavcodec/internal/xcrc"
)

func testCatalog(t *testing.T) *wire.Catalog {
	t.Helper()
	doc := schema.Document{
		ID: "test",
		Messages: []schema.MessageDef{
			{
				ID:   30,
				Name: "ATTITUDE",
				Fields: []schema.FieldDef{
					{Type: "uint32", Name: "time_boot_ms"},
					{Type: "float", Name: "roll"},
					{Type: "float", Name: "pitch"},
					{Type: "float", Name: "yaw"},
					{Type: "float", Name: "rollspeed"},
					{Type: "float", Name: "pitchspeed"},
					{Type: "float", Name: "yawspeed"},
				},
			},
			{
				ID:   25,
				Name: "GPS_STATUS",
				Fields: []schema.FieldDef{
					{Type: "uint8", Name: "satellites_visible"},
					{Type: "uint8[5]", Name: "satellite_prn"},
					{Type: "uint8[5]", Name: "satellite_used"},
					{Type: "uint8[5]", Name: "satellite_elevation"},
					{Type: "uint8[5]", Name: "satellite_azimuth"},
					{Type: "uint8[5]", Name: "satellite_snr"},
				},
			},
		},
	}
	cat, err := (schema.Loader{}).Load(context.Background(), []schema.Document{doc}, schema.V1_0)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return cat
}

func attitudeFields() wire.FieldMap {
	return wire.FieldMap{
		"time_boot_ms": uint32(30),
		"roll":         float32(0.1),
		"pitch":        float32(0.2),
		"yaw":          float32(0.3),
		"rollspeed":    float32(0.4),
		"pitchspeed":   float32(0.5),
		"yawspeed":     float32(0.6),
	}
}

// TestParseAttitudeRoundTrip mirrors scenario 1: a built ATTITUDE
// frame parses back to a message event carrying the same fields.
func TestParseAttitudeRoundTrip(t *testing.T) {
	cat := testCatalog(t)
	b := builder.New(cat, 1, 1, schema.V1_0, 0)
	frame, err := b.Build(30, attitudeFields())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	bus := events.New(4, events.PolicyDrop)
	sub := bus.Subscribe("ATTITUDE")
	p := New(cat, bus, 1, 1, schema.V1_0)
	p.Feed(frame)

	select {
	case v := <-sub.C:
		evt := v.(MessageEvent)
		if evt.Name != "ATTITUDE" {
			t.Fatalf("event name = %q, want ATTITUDE", evt.Name)
		}
		if evt.Header.MessageID != 30 || evt.Header.SystemID != 1 || evt.Header.ComponentID != 1 {
			t.Fatalf("unexpected header: %+v", evt.Header)
		}
		if evt.Fields["time_boot_ms"] != uint32(30) {
			t.Fatalf("time_boot_ms = %v, want 30", evt.Fields["time_boot_ms"])
		}
	default:
		t.Fatalf("expected a decoded ATTITUDE event")
	}
}

// TestParseGPSStatusArrays mirrors scenario 3: round-tripping array
// fields of length 5 preserves element order.
func TestParseGPSStatusArrays(t *testing.T) {
	cat := testCatalog(t)
	b := builder.New(cat, 1, 1, schema.V1_0, 0)
	prn := []any{uint8(1), uint8(2), uint8(3), uint8(4), uint8(5)}
	frame, err := b.Build(25, wire.FieldMap{
		"satellites_visible":  uint8(5),
		"satellite_prn":       prn,
		"satellite_used":      []any{uint8(1), uint8(1), uint8(0), uint8(1), uint8(0)},
		"satellite_elevation": []any{uint8(10), uint8(20), uint8(30), uint8(40), uint8(50)},
		"satellite_azimuth":   []any{uint8(11), uint8(21), uint8(31), uint8(41), uint8(51)},
		"satellite_snr":       []any{uint8(99), uint8(98), uint8(97), uint8(96), uint8(95)},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	bus := events.New(4, events.PolicyDrop)
	sub := bus.Subscribe("GPS_STATUS")
	p := New(cat, bus, 1, 1, schema.V1_0)
	p.Feed(frame)

	v := <-sub.C
	evt := v.(MessageEvent)
	if evt.Fields["satellites_visible"] != uint8(5) {
		t.Fatalf("satellites_visible = %v, want 5", evt.Fields["satellites_visible"])
	}
	got, ok := evt.Fields["satellite_prn"].([]any)
	if !ok || len(got) != 5 {
		t.Fatalf("satellite_prn = %v, want 5-element sequence", evt.Fields["satellite_prn"])
	}
	for i, want := range prn {
		if got[i] != want {
			t.Fatalf("satellite_prn[%d] = %v, want %v", i, got[i], want)
		}
	}
}

// TestChecksumFailure mirrors scenario 4: flipping the last byte of a
// valid ATTITUDE frame emits checksum_fail with id=30.
func TestChecksumFailure(t *testing.T) {
	cat := testCatalog(t)
	b := builder.New(cat, 1, 1, schema.V1_0, 0)
	frame, err := b.Build(30, attitudeFields())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	frame[len(frame)-1] ^= 0x01

	bus := events.New(4, events.PolicyDrop)
	sub := bus.Subscribe("checksum_fail")
	p := New(cat, bus, 1, 1, schema.V1_0)
	p.Feed(frame)

	v := <-sub.C
	evt := v.(ChecksumFail)
	if evt.ID != 30 {
		t.Fatalf("checksum_fail id = %d, want 30", evt.ID)
	}
}

// TestSequenceGap mirrors scenario 5: feeding two valid frames with
// sequence bytes 5 then 9 emits sequence_error(3).
func TestSequenceGap(t *testing.T) {
	cat := testCatalog(t)
	bus := events.New(4, events.PolicyDrop)
	sub := bus.Subscribe("sequence_error")
	p := New(cat, bus, 1, 1, schema.V1_0)

	b := builder.New(cat, 1, 1, schema.V1_0, 5)
	first, err := b.Build(30, attitudeFields())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	p.Feed(first)

	// Fast-forward the builder's sequence counter to 9 by discarding
	// three intermediate frames (6, 7, 8) the way a lossy link would.
	for i := 0; i < 3; i++ {
		if _, err := b.Build(30, attitudeFields()); err != nil {
			t.Fatalf("Build: %v", err)
		}
	}
	ninth, err := b.Build(30, attitudeFields())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	p.Feed(ninth)

	v := <-sub.C
	evt := v.(SequenceError)
	if evt.Gap != 3 {
		t.Fatalf("sequence_error gap = %d, want 3", evt.Gap)
	}
}

// TestSequenceWrapAtBoundaryIsNotSuppressed covers the §9.2 redesign:
// a legitimate 255->0 wrap must not be treated as uninitialized state
// and must not spuriously report a gap.
func TestSequenceWrapAtBoundaryIsNotSuppressed(t *testing.T) {
	cat := testCatalog(t)
	bus := events.New(4, events.PolicyDrop)
	sub := bus.Subscribe("sequence_error")
	p := New(cat, bus, 1, 1, schema.V1_0)

	b := builder.New(cat, 1, 1, schema.V1_0, 255)
	wrapped, err := b.Build(30, attitudeFields()) // seq 255
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	p.Feed(wrapped)
	next, err := b.Build(30, attitudeFields()) // seq 0
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	p.Feed(next)

	select {
	case v := <-sub.C:
		t.Fatalf("unexpected sequence_error on legitimate wrap: %v", v)
	default:
	}
}

// TestPromiscuousReceive mirrors scenario 6: sysid=0, compid=0 still
// decodes a frame originating from (sysid=42, compid=7).
func TestPromiscuousReceive(t *testing.T) {
	cat := testCatalog(t)
	b := builder.New(cat, 42, 7, schema.V1_0, 0)
	frame, err := b.Build(30, attitudeFields())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	bus := events.New(4, events.PolicyDrop)
	sub := bus.Subscribe("message")
	p := New(cat, bus, 0, 0, schema.V1_0)
	p.Feed(frame)

	select {
	case v := <-sub.C:
		evt := v.(MessageEvent)
		if evt.Header.SystemID != 42 || evt.Header.ComponentID != 7 {
			t.Fatalf("unexpected header: %+v", evt.Header)
		}
	default:
		t.Fatalf("expected promiscuous delivery")
	}
}

// TestFilteredReceiveDropsMismatch ensures a configured (non-zero)
// sysid/compid filters out frames from other origins.
func TestFilteredReceiveDropsMismatch(t *testing.T) {
	cat := testCatalog(t)
	b := builder.New(cat, 42, 7, schema.V1_0, 0)
	frame, err := b.Build(30, attitudeFields())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	bus := events.New(4, events.PolicyDrop)
	sub := bus.Subscribe("message")
	p := New(cat, bus, 1, 1, schema.V1_0)
	p.Feed(frame)

	select {
	case v := <-sub.C:
		t.Fatalf("unexpected delivery for mismatched origin: %v", v)
	default:
	}
}

// TestResyncSkipsGarbageBeforeValidFrame covers the resync property:
// arbitrary garbage preceding a valid frame is discarded and the
// frame still delivered.
func TestResyncSkipsGarbageBeforeValidFrame(t *testing.T) {
	cat := testCatalog(t)
	b := builder.New(cat, 1, 1, schema.V1_0, 0)
	frame, err := b.Build(30, attitudeFields())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	garbage := []byte{0x00, 0x11, 0x22, 0x33, 0x44, 0x55, 0x66}

	bus := events.New(4, events.PolicyDrop)
	sub := bus.Subscribe("message")
	p := New(cat, bus, 1, 1, schema.V1_0)
	p.Feed(garbage)
	p.Feed(frame)

	select {
	case v := <-sub.C:
		evt := v.(MessageEvent)
		if evt.Name != "ATTITUDE" {
			t.Fatalf("event name = %q, want ATTITUDE", evt.Name)
		}
	default:
		t.Fatalf("expected delivery after resync")
	}
}

// TestUnknownMessageIDChecksumFail covers an id absent from the
// catalog: seed falls back to 0 and the frame is rejected.
func TestUnknownMessageIDChecksumFail(t *testing.T) {
	cat := testCatalog(t)
	// Hand-assemble a frame for an id the catalog doesn't know, with
	// a correctly computed CRC using seed 0 (as a real sender with a
	// mismatched dialect might do) -- the catalog's absence of the id
	// must still surface checksum_fail even though the bytes are
	// internally consistent, since the frame never reached a known
	// descriptor to validate the seed against.
	payload := []byte{1, 2, 3, 4}
	header := []byte{0xFE, byte(len(payload)), 0, 1, 1, 99}
	checksummable := append(append([]byte{}, header[1:]...), payload...)
	crc := xcrc.X25(checksummable, xcrc.Seed)
	crc = xcrc.X25([]byte{0}, crc) // unknown id: seed falls back to 0
	frame := append(append([]byte{}, header...), payload...)
	frame = append(frame, byte(crc&0xFF), byte(crc>>8))

	bus := events.New(4, events.PolicyDrop)
	sub := bus.Subscribe("checksum_fail")
	p := New(cat, bus, 1, 1, schema.V1_0)
	p.Feed(frame)

	v := <-sub.C
	evt := v.(ChecksumFail)
	if evt.ID != 99 {
		t.Fatalf("checksum_fail id = %d, want 99", evt.ID)
	}
}
