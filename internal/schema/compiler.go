package schema

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/kstaniek/go-mavcodec/internal/wire"
	"github.com/kstaniek/go-mavcodec/internal/xcrc"
)

// parseFieldType splits a raw dialect token into its base type and
// array length, per the grammar in §4.2: "<base>" or "<base>[<N>]"
// where N >= 1.
func parseFieldType(token string) (wire.BaseType, int, error) {
	base := token
	length := 1
	if i := strings.IndexByte(token, '['); i >= 0 {
		if !strings.HasSuffix(token, "]") {
			return 0, 0, fmt.Errorf("%w: malformed array token %q", wire.ErrUnknownType, token)
		}
		base = token[:i]
		n, err := strconv.Atoi(token[i+1 : len(token)-1])
		if err != nil || n < 1 {
			return 0, 0, fmt.Errorf("%w: invalid array length in %q", wire.ErrUnknownType, token)
		}
		length = n
	}
	bt, err := wire.ParseBaseType(base)
	if err != nil {
		return 0, 0, err
	}
	return bt, length, nil
}

// compileMessage runs the Layout & CRC-seed Compiler (§4.2) on one
// schema-order message definition, producing a fully laid-out
// wire.MessageDescriptor whose Fields are in wire-layout order.
func compileMessage(def MessageDef) (*wire.MessageDescriptor, error) {
	fields := make([]wire.FieldDescriptor, 0, len(def.Fields))
	for pos, fd := range def.Fields {
		bt, length, err := parseFieldType(fd.Type)
		if err != nil {
			return nil, fmt.Errorf("message %s field %s: %w", def.Name, fd.Name, err)
		}
		size := bt.Size()
		fields = append(fields, wire.FieldDescriptor{
			Name:           fd.Name,
			BaseType:       bt,
			ArrayLength:    length,
			TypeSize:       size,
			TotalSize:      size * length,
			SourcePosition: pos,
		})
	}

	// Layout rule (§4.2): stable sort by (-type_size, source_position) —
	// widest elements first, schema order as tie-breaker.
	sort.SliceStable(fields, func(i, j int) bool {
		return fields[i].TypeSize > fields[j].TypeSize
	})

	payloadLength := 0
	for _, f := range fields {
		payloadLength += f.TotalSize
	}

	return &wire.MessageDescriptor{
		ID:            def.ID,
		Name:          def.Name,
		Fields:        fields,
		PayloadLength: payloadLength,
		CRCSeed:       crcSeed(def.Name, fields),
	}, nil
}

// crcSeed computes the per-message CRC seed (§4.2 steps 1-3): build
// the canonical signature string over the name and layout-ordered
// fields, CRC it, fold the 16-bit result to a byte.
func crcSeed(name string, layoutFields []wire.FieldDescriptor) byte {
	var sb strings.Builder
	sb.WriteString(name)
	for _, f := range layoutFields {
		sb.WriteByte(' ')
		sb.WriteString(f.BaseType.String())
		sb.WriteByte(' ')
		sb.WriteString(f.Name)
		if f.ArrayLength > 1 {
			sb.WriteByte(byte(f.ArrayLength))
		}
	}
	crc := xcrc.X25([]byte(sb.String()), xcrc.Seed)
	return xcrc.Fold(crc)
}
