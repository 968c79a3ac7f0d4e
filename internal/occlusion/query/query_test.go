package query

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"occlusion/internal/occlusion/entry"
	"occlusion/internal/occlusion/snapshot"
	"occlusion/internal/occlusion/store"
)

func newEngine(t *testing.T, entries []entry.Entry) *Engine {
	t.Helper()
	b, err := store.NewBuilder(store.KindHashMap)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		b.Insert(e)
	}
	backend := b.Build()
	var h snapshot.Holder
	h.Publish(&snapshot.Snapshot{
		Backend: backend,
		Stats:   store.StatsFromBackend(backend, "test", time.Now()),
	})
	return New(&h)
}

func mustUUID(t *testing.T, s string) uuid.UUID {
	t.Helper()
	id, err := uuid.Parse(s)
	if err != nil {
		t.Fatalf("uuid.Parse(%q): %v", s, err)
	}
	return id
}

func TestCheck_Scenarios(t *testing.T) {
	// trivial visibility.
	t.Run("S1 trivial visibility", func(t *testing.T) {
		e := newEngine(t, []entry.Entry{
			{UUID: mustUUID(t, "550e8400-e29b-41d4-a716-446655440000"), Level: 8},
		})
		d, err := e.Check("550e8400-e29b-41d4-a716-446655440000", 10)
		if err != nil || d != Visible {
			t.Fatalf("Check(mask=10) = (%v, %v), want (Visible, nil)", d, err)
		}
		d, err = e.Check("550e8400-e29b-41d4-a716-446655440000", 7)
		if err != nil || d != Hidden {
			t.Fatalf("Check(mask=7) = (%v, %v), want (Hidden, nil)", d, err)
		}
	})

	// unknown UUID.
	t.Run("S2 unknown uuid", func(t *testing.T) {
		e := newEngine(t, nil)
		d, err := e.Check("6ba7b810-9dad-11d1-80b4-00c04fd430c8", 255)
		if err != nil || d != Unknown {
			t.Fatalf("Check = (%v, %v), want (Unknown, nil)", d, err)
		}
	})

	// duplicate, last wins.
	t.Run("S3 duplicate last wins", func(t *testing.T) {
		id := "aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa"
		e := newEngine(t, []entry.Entry{
			{UUID: mustUUID(t, id), Level: 5},
			{UUID: mustUUID(t, id), Level: 200},
		})
		d, err := e.Check(id, 10)
		if err != nil || d != Hidden {
			t.Fatalf("Check = (%v, %v), want (Hidden, nil)", d, err)
		}
	})

	t.Run("boundary levels", func(t *testing.T) {
		e := newEngine(t, []entry.Entry{
			{UUID: mustUUID(t, "00000000-0000-0000-0000-000000000000"), Level: 0},
			{UUID: mustUUID(t, "11111111-1111-1111-1111-111111111111"), Level: 255},
		})
		if d, _ := e.Check("00000000-0000-0000-0000-000000000000", 0); d != Visible {
			t.Errorf("level 0 mask 0 = %v, want Visible", d)
		}
		if d, _ := e.Check("11111111-1111-1111-1111-111111111111", 254); d != Hidden {
			t.Errorf("level 255 mask 254 = %v, want Hidden", d)
		}
		if d, _ := e.Check("11111111-1111-1111-1111-111111111111", 255); d != Visible {
			t.Errorf("level 255 mask 255 = %v, want Visible", d)
		}
	})

	t.Run("malformed uuid", func(t *testing.T) {
		e := newEngine(t, nil)
		_, err := e.Check("not-a-uuid", 10)
		qerr, ok := err.(*Error)
		if !ok || qerr.Kind != KindMalformedUUID {
			t.Fatalf("err = %v, want KindMalformedUUID", err)
		}
	})

	t.Run("mask out of range", func(t *testing.T) {
		e := newEngine(t, nil)
		_, err := e.Check("550e8400-e29b-41d4-a716-446655440000", 256)
		qerr, ok := err.(*Error)
		if !ok || qerr.Kind != KindMaskOutOfRange {
			t.Fatalf("err = %v, want KindMaskOutOfRange", err)
		}
		_, err = e.Check("550e8400-e29b-41d4-a716-446655440000", -1)
		qerr, ok = err.(*Error)
		if !ok || qerr.Kind != KindMaskOutOfRange {
			t.Fatalf("err = %v, want KindMaskOutOfRange", err)
		}
	})
}

// batch with malformed element.
func TestCheckBatch_S4MalformedElement(t *testing.T) {
	e := newEngine(t, []entry.Entry{
		{UUID: mustUUID(t, "550e8400-e29b-41d4-a716-446655440000"), Level: 8},
		{UUID: mustUUID(t, "6ba7b810-9dad-11d1-80b4-00c04fd430c8"), Level: 20},
	})

	got, err := e.CheckBatch([]string{
		"550e8400-e29b-41d4-a716-446655440000",
		"not-a-uuid",
		"6ba7b810-9dad-11d1-80b4-00c04fd430c8",
	}, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []Decision{Visible, Unknown, Hidden}
	if len(got) != len(want) {
		t.Fatalf("len(got) = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("result[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestCheckBatch_MatchesCheckElementWise(t *testing.T) {
	ids := make([]string, 0, 64)
	entries := make([]entry.Entry, 0, 64)
	for i := 0; i < 64; i++ {
		id := uuid.New()
		ids = append(ids, id.String())
		entries = append(entries, entry.Entry{UUID: id, Level: entry.Level(i % 256)})
	}
	e := newEngine(t, entries)

	got, err := e.CheckBatch(ids, 30)
	if err != nil {
		t.Fatal(err)
	}
	for i, id := range ids {
		single, err := e.Check(id, 30)
		if err != nil {
			t.Fatal(err)
		}
		if got[i] != single {
			t.Errorf("result[%d] = %v, want %v (matches Check)", i, got[i], single)
		}
	}
}

func TestCheckBatch_ParallelPathPreservesOrder(t *testing.T) {
	const n = 1000
	ids := make([]string, n)
	entries := make([]entry.Entry, n)
	for i := 0; i < n; i++ {
		id := uuid.New()
		ids[i] = id.String()
		entries[i] = entry.Entry{UUID: id, Level: entry.Level(i % 256)}
	}
	e := newEngine(t, entries)

	got, err := e.CheckBatch(ids, 128)
	if err != nil {
		t.Fatal(err)
	}
	for i, ent := range entries {
		want := Hidden
		if int(ent.Level) <= 128 {
			want = Visible
		}
		if got[i] != want {
			t.Errorf("result[%d] = %v, want %v", i, got[i], want)
		}
	}
}

func TestCheckBatch_MaskValidatedOnce(t *testing.T) {
	e := newEngine(t, nil)
	_, err := e.CheckBatch([]string{"not-a-uuid"}, 999)
	qerr, ok := err.(*Error)
	if !ok || qerr.Kind != KindMaskOutOfRange {
		t.Fatalf("err = %v, want KindMaskOutOfRange", err)
	}
}

func TestStats_NotReady(t *testing.T) {
	var h snapshot.Holder
	e := New(&h)
	if _, ok := e.Stats(); ok {
		t.Fatal("Stats() ok=true before Publish")
	}
	if _, err := e.Check("550e8400-e29b-41d4-a716-446655440000", 10); err != ErrNotReady {
		t.Fatalf("Check before Publish = %v, want ErrNotReady", err)
	}
}

func TestStats_Ready(t *testing.T) {
	e := newEngine(t, []entry.Entry{
		{UUID: mustUUID(t, "550e8400-e29b-41d4-a716-446655440000"), Level: 8},
	})
	stats, ok := e.Stats()
	if !ok {
		t.Fatal("Stats() ok=false after Publish")
	}
	if stats.TotalEntries != 1 {
		t.Errorf("TotalEntries = %d, want 1", stats.TotalEntries)
	}
	if stats.PerLevelCount[8] != 1 {
		t.Errorf("PerLevelCount[8] = %d, want 1", stats.PerLevelCount[8])
	}
}
