// Package schema turns parsed definition documents into a compiled
// wire.Catalog: the Schema Loader (component A) and the Layout &
// CRC-seed Compiler (component B) from §4.1/§4.2.
package schema

// Document is one already-parsed definition tree (§3, §6): the
// syntactic XML-dialect parsing that produces it is an out-of-scope
// external collaborator, so Document is a plain data structure rather
// than an untyped node tree, per the Design Notes.
type Document struct {
	ID       string // document identifier, e.g. "common", "ardupilotmega"
	Enums    []EnumDef
	Messages []MessageDef
}

// EnumDef is one <enum> element, retained for introspection only.
type EnumDef struct {
	Name    string
	Entries []EnumEntryDef
}

// EnumEntryDef is one <entry> of an enum.
type EnumEntryDef struct {
	Name  string
	Value int64
}

// MessageDef is one <message> element: attributes {id, name} plus an
// ordered field list in schema (author-visible) order.
type MessageDef struct {
	ID     int
	Name   string
	Fields []FieldDef
}

// FieldDef is one <field> element: attributes {type, name}. Type is
// the raw dialect token, e.g. "float" or "uint8[5]".
type FieldDef struct {
	Type string
	Name string
}
