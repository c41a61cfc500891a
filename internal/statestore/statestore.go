// Package statestore persists a VM's global-variable table across process
// invocations, so a REPL session (or a sequence of script runs) can resume
// where a previous one left off. It is the one place a snapshot of VM state
// crosses a process boundary, which is why it is where the teacher's
// database and cloud SDK dependencies are put back to work (see
// SPEC_FULL.md §3.1).
package statestore

import (
	"context"
	"fmt"

	"loxvm/internal/value"
)

// Snapshot is the serializable subset of a globals table: name to scalar
// value. Values.ObjFunction and ObjNative don't round-trip (spec.md's
// non-goal on closures makes function values inherently non-serializable
// here); Save skips them silently, without a warning, instead of failing
// the whole snapshot.
type Snapshot map[string]value.Value

// Store loads and saves a Snapshot. Implementations: Memory (no-op),
// SQLite (database/sql + modernc.org/sqlite), and DynamoDB
// (aws-sdk-go-v2).
type Store interface {
	Save(ctx context.Context, snap Snapshot) error
	Load(ctx context.Context) (Snapshot, error)
}

// Memory is the default backend: it keeps nothing, so a REPL run behaves
// exactly as spec.md describes with no persistence across processes.
type Memory struct{}

func (Memory) Save(context.Context, Snapshot) error        { return nil }
func (Memory) Load(context.Context) (Snapshot, error) { return Snapshot{}, nil }

// Scalar reports whether v is representable in a Snapshot: Nil, Bool,
// Number, or an interned String. Function and Native values are not.
func Scalar(v value.Value) bool {
	switch v.Kind {
	case value.KindNil, value.KindBool, value.KindNumber:
		return true
	case value.KindObject:
		_, isString := v.Obj.(*value.ObjString)
		return isString
	default:
		return false
	}
}

// row is the flattened, column-shaped form a scalar Value takes in both the
// sqlite and dynamodb backends: at most one of b/num/str is meaningful
// (none for nil), selected by kind.
type row struct {
	name string
	kind string // "nil" | "bool" | "number" | "string"
	b    bool
	num  float64
	str  string
}

func toRow(name string, v value.Value) (row, error) {
	r := row{name: name}
	switch v.Kind {
	case value.KindNil:
		r.kind = "nil"
	case value.KindBool:
		r.kind = "bool"
		r.b = v.Bool
	case value.KindNumber:
		r.kind = "number"
		r.num = v.Number
	case value.KindObject:
		s, ok := v.Obj.(*value.ObjString)
		if !ok {
			return row{}, fmt.Errorf("statestore: value for %q is not serializable", name)
		}
		r.kind = "string"
		r.str = s.Chars
	default:
		return row{}, fmt.Errorf("statestore: unknown value kind for %q", name)
	}
	return r, nil
}

// fromRow rebuilds a Value from a row. Strings are interned through strs so
// that restored globals share identity with any later literal of the same
// content, preserving the spec's interning invariant after a reload.
func fromRow(r row, strs interning) value.Value {
	switch r.kind {
	case "bool":
		return value.NewBool(r.b)
	case "number":
		return value.NewNumber(r.num)
	case "string":
		return value.FromObject(strs.Intern(r.str))
	default:
		return value.Nil
	}
}

// interning is the one method statestore needs from *table.Strings; kept
// narrow so this package doesn't have to import internal/table just to
// thread a concrete type through two call sites.
type interning interface {
	Intern(chars string) *value.ObjString
}
