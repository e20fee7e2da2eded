package entity

import (
	"bytes"
	"errors"
	"testing"
	"time"
)

func TestMapKeepsSortedKeys(t *testing.T) {
	m := NewMap()
	m.Set("zebra", String("z"))
	m.Set("alpha", String("a"))
	m.Set("mid", String("m"))

	keys := m.Keys()
	want := []string{"alpha", "mid", "zebra"}
	if len(keys) != len(want) {
		t.Fatalf("expected %d keys, got %d", len(want), len(keys))
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("key[%d] = %q, want %q", i, keys[i], want[i])
		}
	}

	m.Delete("mid")
	if _, ok := m.Get("mid"); ok {
		t.Error("expected mid to be deleted")
	}
	if m.Len() != 2 {
		t.Errorf("expected 2 keys after delete, got %d", m.Len())
	}
}

func TestCanonicalEncodingIsInsertionOrderIndependent(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	a := NewGeneric("id-1", TypeContext, "alice")
	a.CreatedAt, a.UpdatedAt = ts, ts
	a.Data.Set("title", String("t"))
	a.Data.Set("content", String("c"))

	b := NewGeneric("id-1", TypeContext, "alice")
	b.CreatedAt, b.UpdatedAt = ts, ts
	b.Data.Set("content", String("c"))
	b.Data.Set("title", String("t"))

	if !bytes.Equal(a.Encode(), b.Encode()) {
		t.Errorf("canonical encodings differ:\n%s\n%s", a.Encode(), b.Encode())
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	g := NewGeneric("id-7", TypeTask, "bob")
	g.Data.Set("title", String("quoted \"title\" with unicode ✓"))
	g.Data.Set("count", Number(42))
	g.Data.Set("ratio", Number(0.25))
	g.Data.Set("done", Bool(false))
	g.Data.Set("nothing", Null())
	inner := NewMap()
	inner.Set("k", String("v"))
	g.Data.Set("nested", MapValue(inner))
	g.Data.Set("tags", List(String("a"), String("b")))

	got, err := Decode(g.Encode())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ID != g.ID || got.Type != g.Type || got.Agent != g.Agent {
		t.Errorf("identity mismatch: %+v", got)
	}
	if !got.Data.Equal(g.Data) {
		t.Errorf("data mismatch:\n%s\n%s", g.Encode(), got.Encode())
	}
	if !got.CreatedAt.Equal(g.CreatedAt) || !got.UpdatedAt.Equal(g.UpdatedAt) {
		t.Errorf("timestamp mismatch: %v vs %v", got.CreatedAt, g.CreatedAt)
	}
}

func TestDecodeMalformed(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{"not json", "not json at all"},
		{"missing id", `{"type":"task","agent":"a","data":{},"metadata":{},"created_at":"2026-03-01T00:00:00Z","updated_at":"2026-03-01T00:00:00Z"}`},
		{"id not string", `{"id":7,"type":"task","agent":"a","data":{},"metadata":{},"created_at":"2026-03-01T00:00:00Z","updated_at":"2026-03-01T00:00:00Z"}`},
		{"data not object", `{"id":"x","type":"task","agent":"a","data":3,"metadata":{},"created_at":"2026-03-01T00:00:00Z","updated_at":"2026-03-01T00:00:00Z"}`},
		{"bad timestamp", `{"id":"x","type":"task","agent":"a","data":{},"metadata":{},"created_at":"yesterday","updated_at":"2026-03-01T00:00:00Z"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode([]byte(tc.data))
			if !errors.Is(err, ErrDecode) {
				t.Errorf("expected ErrDecode, got %v", err)
			}
		})
	}
}

func TestTombstone(t *testing.T) {
	g := Tombstone("id-1", TypeTask, "alice")
	if !g.IsTombstone() {
		t.Error("expected tombstone marker")
	}
	back, err := Decode(g.Encode())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !back.IsTombstone() {
		t.Error("tombstone marker lost through encode/decode")
	}
	if NewGeneric("id-2", TypeTask, "alice").IsTombstone() {
		t.Error("fresh entity should not be a tombstone")
	}
}
