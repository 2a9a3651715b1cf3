// Package xmldef is the syntactic parser that turns on-disk MAVLink-
// dialect definition files into schema.Document values (§6: "a
// document tree with root mavlink containing enums[0].enum[] and
// messages[0].message[]"). It is an adapter, not core codec logic —
// the compiler and parser never see XML, only schema.Document.
package xmldef

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/kstaniek/go-mavcodec/internal/schema"
)

type xmlMavlink struct {
	Include  []string    `xml:"include"`
	Enums    xmlEnums    `xml:"enums"`
	Messages xmlMessages `xml:"messages"`
}

type xmlEnums struct {
	Enum []xmlEnum `xml:"enum"`
}

type xmlEnum struct {
	Name  string     `xml:"name,attr"`
	Entry []xmlEntry `xml:"entry"`
}

type xmlEntry struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

type xmlMessages struct {
	Message []xmlMessage `xml:"message"`
}

type xmlMessage struct {
	ID    string    `xml:"id,attr"`
	Name  string    `xml:"name,attr"`
	Field []xmlField `xml:"field"`
}

type xmlField struct {
	Type string `xml:"type,attr"`
	Name string `xml:"name,attr"`
}

// LoadFile parses one definition file from disk into a schema.Document
// keyed by id (the file's base identifier, e.g. "common").
func LoadFile(id, path string) (schema.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return schema.Document{}, fmt.Errorf("xmldef: open %s: %w", path, err)
	}
	defer f.Close()
	return Parse(id, f)
}

// Parse decodes a definition document from r.
func Parse(id string, r io.Reader) (schema.Document, error) {
	var root xmlMavlink
	if err := xml.NewDecoder(r).Decode(&root); err != nil {
		return schema.Document{}, fmt.Errorf("xmldef: decode %s: %w", id, err)
	}

	doc := schema.Document{ID: id}
	for _, e := range root.Enums.Enum {
		ed := schema.EnumDef{Name: e.Name}
		for _, entry := range e.Entry {
			v, err := parseEnumValue(entry.Value)
			if err != nil {
				return schema.Document{}, fmt.Errorf("xmldef: %s enum %s entry %s: %w", id, e.Name, entry.Name, err)
			}
			ed.Entries = append(ed.Entries, schema.EnumEntryDef{Name: entry.Name, Value: v})
		}
		doc.Enums = append(doc.Enums, ed)
	}

	for _, m := range root.Messages.Message {
		msgID, err := strconv.Atoi(m.ID)
		if err != nil {
			return schema.Document{}, fmt.Errorf("xmldef: %s message %s: bad id %q: %w", id, m.Name, m.ID, err)
		}
		md := schema.MessageDef{ID: msgID, Name: m.Name}
		for _, f := range m.Field {
			md.Fields = append(md.Fields, schema.FieldDef{Type: f.Type, Name: f.Name})
		}
		doc.Messages = append(doc.Messages, md)
	}

	return doc, nil
}

func parseEnumValue(raw string) (int64, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseInt(raw, 0, 64)
}
