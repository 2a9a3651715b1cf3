// Package wire holds the data model shared by the schema compiler,
// frame parser, and frame builder: field and message descriptors, the
// message catalog, and the little-endian codec primitives used to
// read and write field values at an explicit byte offset.
package wire

import "fmt"

// BaseType is one of the eleven wire-level scalar types the dialect
// supports. Values double as the canonical signature token used by
// the CRC-seed computation (§4.2).
type BaseType uint8

const (
	Int8 BaseType = iota
	Uint8
	Int16
	Uint16
	Int32
	Uint32
	Int64
	Uint64
	Char
	Float
	Double
)

// typeSizes is the fixed per-element wire size table from §3, indexed
// in declaration order of the BaseType constants above.
var typeSizes = [...]byte{1, 1, 2, 2, 4, 4, 8, 8, 1, 4, 8}

// Size returns the wire size in bytes of a single element of t.
func (t BaseType) Size() int { return int(typeSizes[t]) }

// tokens is the canonical signature token used both for display and
// for the CRC-seed signature string (§4.2 step 1: "no brackets").
var tokens = [...]string{
	"int8", "uint8", "int16", "uint16", "int32", "uint32",
	"int64", "uint64", "char", "float", "double",
}

func (t BaseType) String() string { return tokens[t] }

// ParseBaseType resolves a raw dialect token to a BaseType, applying
// the load-time aliases from §3/§4.2:
//
//	uint8_t_mavlink_version -> uint8
//	array                   -> int8
func ParseBaseType(token string) (BaseType, error) {
	switch token {
	case "uint8_t_mavlink_version":
		token = "uint8"
	case "array":
		token = "int8"
	}
	for i, tok := range tokens {
		if tok == token {
			return BaseType(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownType, token)
}

// FieldDescriptor describes one field of one message, already
// normalized and annotated with its wire size. SourcePosition is the
// field's index in the schema document, used only as the layout sort
// tie-breaker (§4.2).
type FieldDescriptor struct {
	Name           string
	BaseType       BaseType
	ArrayLength    int
	TypeSize       int
	TotalSize      int
	SourcePosition int
}

// MessageDescriptor describes one catalog message: its id, name, the
// field list in wire-layout order (not schema order — see §4.2), the
// total payload length, and the folded per-message CRC seed.
type MessageDescriptor struct {
	ID            int
	Name          string
	Fields        []FieldDescriptor
	PayloadLength int
	CRCSeed       byte
}

// FieldByName returns the field descriptor with the given name, or
// false if the message has no such field.
func (m *MessageDescriptor) FieldByName(name string) (FieldDescriptor, bool) {
	for _, f := range m.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldDescriptor{}, false
}

// EnumEntry is one named value of a catalog enum, retained only for
// introspection by collaborators (§6) — the core codec never reads it.
type EnumEntry struct {
	Name  string
	Value int64
}

// Enum is a catalog enum, retained only for introspection (§6).
type Enum struct {
	Name    string
	Entries []EnumEntry
}

// Catalog is the immutable, queryable product of the Schema Loader and
// Layout/CRC-seed Compiler. Once built it may be shared by multiple
// parser/builder instances and multiple goroutines (§5).
type Catalog struct {
	byID   map[int]*MessageDescriptor
	byName map[string]*MessageDescriptor
	Enums  []Enum
}

// NewCatalog builds a Catalog from a fully compiled descriptor slice.
// Callers (the schema loader) are responsible for uniqueness checks;
// NewCatalog itself only indexes.
func NewCatalog(descs []*MessageDescriptor, enums []Enum) *Catalog {
	c := &Catalog{
		byID:   make(map[int]*MessageDescriptor, len(descs)),
		byName: make(map[string]*MessageDescriptor, len(descs)),
		Enums:  enums,
	}
	for _, d := range descs {
		c.byID[d.ID] = d
		c.byName[d.Name] = d
	}
	return c
}

// ByID looks up a message descriptor by numeric id.
func (c *Catalog) ByID(id int) (*MessageDescriptor, bool) {
	d, ok := c.byID[id]
	return d, ok
}

// ByName looks up a message descriptor by name.
func (c *Catalog) ByName(name string) (*MessageDescriptor, bool) {
	d, ok := c.byName[name]
	return d, ok
}

// Len returns the number of messages in the catalog.
func (c *Catalog) Len() int { return len(c.byID) }

// FieldMap is a decoded (or about-to-be-encoded) message: field name
// to value. Scalar fields hold a single Go value; array fields (other
// than char) hold a slice; char arrays are trimmed Go strings (§4.6).
type FieldMap map[string]any

// FrameHeader carries the fixed framing bytes of one accepted frame,
// handed to subscribers alongside the decoded FieldMap (§4.6, §6).
type FrameHeader struct {
	Sequence    byte
	SystemID    byte
	ComponentID byte
	MessageID   int
}
