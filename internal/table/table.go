// Package table implements the open-addressed hash table spec.md §4.4
// describes: keyed by interned-string identity, used for both the VM's
// globals table and its string intern set.
package table

import "loxvm/internal/value"

const maxLoadFactor = 0.75
const initialCapacity = 8

type entry struct {
	key   *value.ObjString // nil key + zero value -> empty; nil key + tombstone -> tombstone
	value value.Value
	tomb  bool
}

// Table is a linear-probed hash table keyed by *value.ObjString identity.
type Table struct {
	entries []entry
	count   int // occupied + tombstones, used to decide when to grow
}

// New returns an empty Table.
func New() *Table {
	return &Table{}
}

// Get looks up key, returning its value and whether it was present.
func (t *Table) Get(key *value.ObjString) (value.Value, bool) {
	if len(t.entries) == 0 {
		return value.Nil, false
	}
	e := t.find(key)
	if e.key == nil {
		return value.Nil, false
	}
	return e.value, true
}

// Set stores value under key, growing the table if needed. It returns true
// iff key was not already present.
func (t *Table) Set(key *value.ObjString, v value.Value) bool {
	if float64(t.count+1) > float64(len(t.entries))*maxLoadFactor {
		t.grow()
	}

	e := t.find(key)
	isNew := e.key == nil
	if isNew && !e.tomb {
		t.count++
	}
	e.key = key
	e.value = v
	e.tomb = false
	return isNew
}

// Delete replaces key's bucket with a tombstone, if present.
func (t *Table) Delete(key *value.ObjString) bool {
	if len(t.entries) == 0 {
		return false
	}
	e := t.find(key)
	if e.key == nil {
		return false
	}
	e.key = nil
	e.value = value.NewBool(true)
	e.tomb = true
	return true
}

// FindString is the interning probe: it compares length, hash, then bytes
// to collapse duplicate strings before they become Values, without
// allocating an *ObjString just to do the lookup.
func (t *Table) FindString(chars string, hash uint32) *value.ObjString {
	if len(t.entries) == 0 {
		return nil
	}
	mask := uint32(len(t.entries) - 1)
	idx := hash & mask
	for {
		e := &t.entries[idx]
		switch {
		case e.key == nil && !e.tomb:
			return nil
		case e.key != nil && e.key.Hash == hash && e.key.Chars == chars:
			return e.key
		}
		idx = (idx + 1) & mask
	}
}

// find performs the open-addressing probe used by Get/Set/Delete: it scans
// from key.Hash % capacity, skipping tombstones but stopping at the first
// empty bucket, reusing the first tombstone it passed for an insert.
func (t *Table) find(key *value.ObjString) *entry {
	mask := uint32(len(t.entries) - 1)
	idx := key.Hash & mask
	var tombstone *entry
	for {
		e := &t.entries[idx]
		switch {
		case e.key == nil:
			if !e.tomb {
				if tombstone != nil {
					return tombstone
				}
				return e
			}
			if tombstone == nil {
				tombstone = e
			}
		case e.key == key:
			return e
		}
		idx = (idx + 1) & mask
	}
}

func (t *Table) grow() {
	newCap := initialCapacity
	if len(t.entries) > 0 {
		newCap = len(t.entries) * 2
	}
	old := t.entries
	t.entries = make([]entry, newCap)
	t.count = 0
	for _, e := range old {
		if e.key == nil {
			continue
		}
		dst := t.find(e.key)
		dst.key = e.key
		dst.value = e.value
		t.count++
	}
}

// Walk visits every live (non-tombstone) key/value pair.
func (t *Table) Walk(fn func(key *value.ObjString, v value.Value)) {
	for _, e := range t.entries {
		if e.key != nil {
			fn(e.key, e.value)
		}
	}
}

// Count returns the number of live (non-tombstone) entries.
func (t *Table) Count() int {
	n := 0
	for _, e := range t.entries {
		if e.key != nil {
			n++
		}
	}
	return n
}

// Strings is the VM's interned-string table (spec.md §3's "interned string
// table"): a Table keyed on the strings themselves, backed by a Heap so
// every interned string is reachable from the VM's object list. Go's
// strings are already immutable value types, so the source's copyString
// (copy into owned storage) and takeString (adopt already-owned storage)
// collapse into a single Intern call here.
type Strings struct {
	table *Table
	heap  *value.Heap
}

// NewStrings creates an empty interned-string table backed by heap.
func NewStrings(heap *value.Heap) *Strings {
	return &Strings{table: New(), heap: heap}
}

// Intern returns the canonical *value.ObjString for chars, allocating and
// linking a new one into the heap only if an equal string isn't already
// interned.
func (s *Strings) Intern(chars string) *value.ObjString {
	hash := value.HashString(chars)
	if existing := s.table.FindString(chars, hash); existing != nil {
		return existing
	}
	str := value.NewRawString(chars)
	s.table.Set(str, value.Nil)
	s.heap.Add(str)
	return str
}
