package store

import (
	"testing"

	"github.com/google/uuid"

	"occlusion/internal/occlusion/entry"
)

var allKinds = []Kind{KindHashMap, KindVec, KindHybrid, KindFullHash}

func buildBackend(t *testing.T, kind Kind, entries []entry.Entry) Backend {
	t.Helper()
	b, err := NewBuilder(kind)
	if err != nil {
		t.Fatalf("NewBuilder(%s): %v", kind, err)
	}
	for _, e := range entries {
		b.Insert(e)
	}
	return b.Build()
}

func mustUUID(t *testing.T, s string) uuid.UUID {
	t.Helper()
	id, err := uuid.Parse(s)
	if err != nil {
		t.Fatalf("uuid.Parse(%q): %v", s, err)
	}
	return id
}

func TestBackends_InsertedKeyIsVisible(t *testing.T) {
	for _, kind := range allKinds {
		kind := kind
		t.Run(string(kind), func(t *testing.T) {
			id := mustUUID(t, "550e8400-e29b-41d4-a716-446655440000")
			b := buildBackend(t, kind, []entry.Entry{{UUID: id, Level: 8}})

			lvl, ok := b.GetLevel(id)
			if !ok || lvl != 8 {
				t.Fatalf("GetLevel = (%d, %v), want (8, true)", lvl, ok)
			}
		})
	}
}

func TestBackends_UnknownKeyMisses(t *testing.T) {
	for _, kind := range allKinds {
		kind := kind
		t.Run(string(kind), func(t *testing.T) {
			b := buildBackend(t, kind, nil)
			unknown := mustUUID(t, "6ba7b810-9dad-11d1-80b4-00c04fd430c8")
			if _, ok := b.GetLevel(unknown); ok {
				t.Fatal("expected miss on empty backend")
			}
			if b.Len() != 0 {
				t.Errorf("Len() = %d, want 0", b.Len())
			}
		})
	}
}

func TestBackends_DuplicateLastWriteWins(t *testing.T) {
	id := mustUUID(t, "aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa")
	for _, kind := range allKinds {
		kind := kind
		t.Run(string(kind), func(t *testing.T) {
			b := buildBackend(t, kind, []entry.Entry{
				{UUID: id, Level: 5},
				{UUID: id, Level: 200},
			})
			lvl, ok := b.GetLevel(id)
			if !ok || lvl != 200 {
				t.Fatalf("GetLevel = (%d, %v), want (200, true)", lvl, ok)
			}
			if b.Len() != 1 {
				t.Errorf("Len() = %d, want 1 (dedup)", b.Len())
			}
		})
	}
}

func TestBackends_HistogramMatchesLen(t *testing.T) {
	entries := []entry.Entry{
		{UUID: mustUUID(t, "550e8400-e29b-41d4-a716-446655440000"), Level: 8},
		{UUID: mustUUID(t, "6ba7b810-9dad-11d1-80b4-00c04fd430c8"), Level: 20},
		{UUID: mustUUID(t, "aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa"), Level: 0},
	}
	for _, kind := range allKinds {
		kind := kind
		t.Run(string(kind), func(t *testing.T) {
			b := buildBackend(t, kind, entries)
			hist := b.LevelHistogram()
			var sum uint64
			for _, c := range hist {
				sum += c
			}
			if sum != b.Len() {
				t.Errorf("sum(histogram) = %d, Len() = %d", sum, b.Len())
			}
		})
	}
}

// TestBackends_Agree checks cross-backend equivalence: for identical input,
// all four backends must agree on every lookup, in and out of the keyset.
func TestBackends_Agree(t *testing.T) {
	entries := make([]entry.Entry, 0, 64)
	for i := 0; i < 64; i++ {
		id := uuid.New()
		entries = append(entries, entry.Entry{UUID: id, Level: entry.Level(i % 256)})
	}
	outside := uuid.New()

	backends := make(map[Kind]Backend, len(allKinds))
	for _, kind := range allKinds {
		backends[kind] = buildBackend(t, kind, entries)
	}

	for _, e := range entries {
		var want entry.Level
		var wantOK bool
		for i, kind := range allKinds {
			lvl, ok := backends[kind].GetLevel(e.UUID)
			if i == 0 {
				want, wantOK = lvl, ok
				continue
			}
			if lvl != want || ok != wantOK {
				t.Fatalf("backend %s disagrees on %s: got (%d,%v), want (%d,%v)", kind, e.UUID, lvl, ok, want, wantOK)
			}
		}
	}

	for _, kind := range allKinds {
		if _, ok := backends[kind].GetLevel(outside); ok {
			t.Fatalf("backend %s unexpectedly has outside key", kind)
		}
	}
}

func TestBackends_ImmutableAfterBuild(t *testing.T) {
	entries := []entry.Entry{
		{UUID: mustUUID(t, "550e8400-e29b-41d4-a716-446655440000"), Level: 8},
	}
	for _, kind := range allKinds {
		kind := kind
		t.Run(string(kind), func(t *testing.T) {
			b := buildBackend(t, kind, entries)
			lenBefore := b.Len()
			histBefore := b.LevelHistogram()
			for i := 0; i < 3; i++ {
				b.GetLevel(mustUUID(t, "550e8400-e29b-41d4-a716-446655440000"))
			}
			if b.Len() != lenBefore {
				t.Errorf("Len() changed after reads: %d != %d", b.Len(), lenBefore)
			}
			if b.LevelHistogram() != histBefore {
				t.Error("LevelHistogram() changed after reads")
			}
		})
	}
}

func TestNewBuilder_UnknownKind(t *testing.T) {
	if _, err := NewBuilder("bogus"); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}
