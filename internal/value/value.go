// Package value implements the VM's tagged Value union and heap object
// model (spec.md §3, §4.3).
package value

import (
	"fmt"
	"hash/fnv"
	"strconv"
)

// Kind discriminates the variants of Value.
type Kind int

const (
	KindNil Kind = iota
	KindBool
	KindNumber
	KindObject
)

// Value is a tagged union: Nil, Bool(b), Number(f64), or Object(ref). Nil,
// Bool and Number are plain data; Object is a reference into the heap.
type Value struct {
	Kind   Kind
	Bool   bool
	Number float64
	Obj    Object
}

// Nil is the single nil value.
var Nil = Value{Kind: KindNil}

// NewBool wraps a boolean.
func NewBool(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// NewNumber wraps a float64.
func NewNumber(n float64) Value { return Value{Kind: KindNumber, Number: n} }

// FromObject wraps a heap object reference.
func FromObject(o Object) Value { return Value{Kind: KindObject, Obj: o} }

// IsFalsey reports whether v is nil or boolean false; every other value
// (including 0 and "") is truthy, per spec.md §4.6 and the Lox tradition.
func (v Value) IsFalsey() bool {
	switch v.Kind {
	case KindNil:
		return true
	case KindBool:
		return !v.Bool
	default:
		return false
	}
}

// Equal implements spec.md §3's Value equality: nil==nil; booleans and
// numbers compare by value; strings compare by identity after interning;
// other heap objects (functions, natives) also compare by identity; values
// of different variants are never equal.
func Equal(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindNil:
		return true
	case KindBool:
		return a.Bool == b.Bool
	case KindNumber:
		return a.Number == b.Number
	case KindObject:
		as, aIsStr := a.Obj.(*ObjString)
		bs, bIsStr := b.Obj.(*ObjString)
		if aIsStr && bIsStr {
			return as == bs // pointer identity after interning
		}
		return a.Obj == b.Obj
	default:
		return false
	}
}

// String renders a Value the way the VM's print statement and the REPL do:
// nil prints "nil", booleans "true"/"false", numbers round-trippably,
// strings their characters, functions "<fn NAME>" or "<script>".
func (v Value) String() string {
	switch v.Kind {
	case KindNil:
		return "nil"
	case KindBool:
		if v.Bool {
			return "true"
		}
		return "false"
	case KindNumber:
		return strconv.FormatFloat(v.Number, 'g', -1, 64)
	case KindObject:
		return v.Obj.String()
	default:
		return "<invalid value>"
	}
}

// Object is the common interface satisfied by every heap-allocated value.
// Concrete objects are linked into a singly-linked intrusive list rooted in
// the VM (spec.md §3), new objects pushed at the head, so that tearing down
// a VM can walk the whole heap in one pass.
type Object interface {
	fmt.Stringer
	next() Object
	setNext(Object)
}

type objHeader struct {
	nextObj Object
}

func (h *objHeader) next() Object     { return h.nextObj }
func (h *objHeader) setNext(o Object) { h.nextObj = o }

// Heap is the intrusive singly-linked list of every heap object a VM has
// allocated, rooted in the VM per spec.md §3/§5. New objects are pushed at
// the head; Walk visits them in allocation-recency order. Go's own garbage
// collector reclaims the underlying memory regardless, so Free here just
// drops the VM's references (the Go-idiomatic rendering of "freeVM walks
// the list and releases storage" — see DESIGN.md).
type Heap struct {
	head Object
}

// Add links o into the heap, at the head.
func (h *Heap) Add(o Object) {
	o.setNext(h.head)
	h.head = o
}

// Walk visits every object currently linked into the heap.
func (h *Heap) Walk(fn func(Object)) {
	for o := h.head; o != nil; o = o.next() {
		fn(o)
	}
}

// Free drops the VM's references into the heap list.
func (h *Heap) Free() {
	h.head = nil
}

// ObjString is an immutable, interned string. After interning, string
// equality reduces to pointer equality (see Equal above).
type ObjString struct {
	objHeader
	Chars string
	Hash  uint32
}

func (s *ObjString) String() string { return s.Chars }

// HashString computes the FNV-1a 32-bit hash spec.md §4.3 specifies.
func HashString(s string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return h.Sum32()
}

// NewRawString allocates an ObjString without interning it. Callers that
// want interning semantics go through the VM's string table (the
// copyString/takeString equivalents), which is where heap-list linkage
// happens too.
func NewRawString(chars string) *ObjString {
	return &ObjString{Chars: chars, Hash: HashString(chars)}
}

// ObjFunction is a compiled function: its arity, its chunk of bytecode, and
// an optional name (empty for the implicit top-level script function).
//
// Chunk is typed as `any` rather than *chunk.Chunk to avoid an import cycle
// (internal/chunk already imports internal/value for the constant pool);
// internal/compiler and internal/vm are the only callers that need to type
// assert it back to *chunk.Chunk. This mirrors the same workaround in the
// teacher's value.ObjFunction.Chunk field.
type ObjFunction struct {
	objHeader
	Name  string
	Arity int
	Chunk any
}

func (f *ObjFunction) String() string {
	if f.Name == "" {
		return "<script>"
	}
	return fmt.Sprintf("<fn %s>", f.Name)
}

// NativeFn is the signature of a VM-provided native function such as clock().
type NativeFn func(args []Value) Value

// ObjNative wraps a native function so it can flow through Value like any
// other callable.
type ObjNative struct {
	objHeader
	Name string
	Fn   NativeFn
}

func (n *ObjNative) String() string { return fmt.Sprintf("<native fn %s>", n.Name) }
