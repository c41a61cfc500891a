package table

import (
	"testing"

	"loxvm/internal/value"
)

func TestSetGetDelete(t *testing.T) {
	tb := New()
	key := value.NewRawString("answer")

	if _, ok := tb.Get(key); ok {
		t.Fatalf("empty table should not contain key")
	}
	if !tb.Set(key, value.NewNumber(42)) {
		t.Fatalf("first Set of a key should report new")
	}
	if tb.Set(key, value.NewNumber(43)) {
		t.Fatalf("second Set of the same key should report replace, not new")
	}
	got, ok := tb.Get(key)
	if !ok || got.Number != 43 {
		t.Fatalf("Get after Set = %v, %v", got, ok)
	}
	if !tb.Delete(key) {
		t.Fatalf("Delete of present key should succeed")
	}
	if _, ok := tb.Get(key); ok {
		t.Fatalf("key should be gone after Delete")
	}
}

func TestGrowthPreservesEntries(t *testing.T) {
	tb := New()
	keys := make([]*value.ObjString, 0, 64)
	for i := 0; i < 64; i++ {
		k := value.NewRawString(string(rune('a' + i%26)) + string(rune(i)))
		keys = append(keys, k)
		tb.Set(k, value.NewNumber(float64(i)))
	}
	for i, k := range keys {
		got, ok := tb.Get(k)
		if !ok || got.Number != float64(i) {
			t.Fatalf("entry %d lost after growth: %v %v", i, got, ok)
		}
	}
}

func TestInternDeduplicatesByContent(t *testing.T) {
	heap := &value.Heap{}
	strs := NewStrings(heap)

	a := strs.Intern("hello")
	b := strs.Intern("hello")
	if a != b {
		t.Fatalf("equal strings must intern to the same object")
	}

	c := strs.Intern("world")
	if a == c {
		t.Fatalf("distinct strings must not share identity")
	}

	seen := map[*value.ObjString]bool{}
	heap.Walk(func(o value.Object) {
		if s, ok := o.(*value.ObjString); ok {
			if seen[s] {
				t.Fatalf("heap list contains a duplicate string entry")
			}
			seen[s] = true
		}
	})
	if len(seen) != 2 {
		t.Fatalf("expected 2 interned strings on the heap, got %d", len(seen))
	}
}
