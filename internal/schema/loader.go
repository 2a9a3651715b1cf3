package schema

import (
	"context"
	"fmt"
	"sync"

	"github.com/kstaniek/go-mavcodec/internal/wire"
)

// Version selects which framing mode a loaded catalog is compiled
// for. The loader itself does not change compilation per version —
// V0_9/V1_0 only matters to the parser/builder — but it is accepted
// here so callers have one place to pin the protocol version
// alongside the document set (§6 construction options).
type Version int

const (
	V1_0 Version = iota
	V0_9
)

// Loader ingests one or more parsed definition documents and produces
// a wire.Catalog (component A, §4.1). Loader holds no state — the
// documents are passed to Load — so a zero value can be constructed
// per call or reused across calls freely.
type Loader struct{}

// Load compiles docs into a ready wire.Catalog. Documents are loaded
// concurrently (one goroutine per document); ordering of compilation
// is unobservable to callers, but the returned catalog's contents are
// deterministic given the same input. Load fails with
// wire.ErrDuplicateID, wire.ErrDuplicateName, or wire.ErrUnknownType
// (wrapped with message/field context) on the first error observed
// across all documents; ctx cancellation aborts early with ctx.Err().
func (Loader) Load(ctx context.Context, docs []Document, _ Version) (*wire.Catalog, error) {
	type result struct {
		descs []*wire.MessageDescriptor
		enums []wire.Enum
		err   error
	}
	results := make([]result, len(docs))

	var wg sync.WaitGroup
	for i, doc := range docs {
		wg.Add(1)
		go func(i int, doc Document) {
			defer wg.Done()
			descs := make([]*wire.MessageDescriptor, 0, len(doc.Messages))
			for _, md := range doc.Messages {
				desc, err := compileMessage(md)
				if err != nil {
					results[i] = result{err: fmt.Errorf("document %s: %w", doc.ID, err)}
					return
				}
				descs = append(descs, desc)
			}
			enums := make([]wire.Enum, 0, len(doc.Enums))
			for _, ed := range doc.Enums {
				entries := make([]wire.EnumEntry, 0, len(ed.Entries))
				for _, e := range ed.Entries {
					entries = append(entries, wire.EnumEntry{Name: e.Name, Value: e.Value})
				}
				enums = append(enums, wire.Enum{Name: ed.Name, Entries: entries})
			}
			results[i] = result{descs: descs, enums: enums}
		}(i, doc)
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-done:
	}

	var all []*wire.MessageDescriptor
	var enums []wire.Enum
	byID := make(map[int]string, len(docs))
	byName := make(map[string]int, len(docs))
	for _, r := range results {
		if r.err != nil {
			return nil, r.err
		}
		for _, d := range r.descs {
			if existing, dup := byID[d.ID]; dup {
				return nil, fmt.Errorf("%w: id %d used by %q and %q", wire.ErrDuplicateID, d.ID, existing, d.Name)
			}
			if _, dup := byName[d.Name]; dup {
				return nil, fmt.Errorf("%w: %q", wire.ErrDuplicateName, d.Name)
			}
			byID[d.ID] = d.Name
			byName[d.Name] = d.ID
			all = append(all, d)
		}
		enums = append(enums, r.enums...)
	}

	return wire.NewCatalog(all, enums), nil
}
