package main

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/kstaniek/go-mavcodec/internal/schema"
	"github.com/kstaniek/go-mavcodec/internal/wire"
)

func testLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

// testCatalogBackoff builds a minimal single-message catalog shared by
// the backend tests; the message content itself is irrelevant to
// backoff/overflow behavior.
func testCatalogBackoff(t *testing.T) *wire.Catalog {
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
