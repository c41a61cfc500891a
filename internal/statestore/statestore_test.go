package statestore

import (
	"context"
	"testing"

	"loxvm/internal/value"
)

type fakeInterning struct {
	seen map[string]*value.ObjString
}

func (f *fakeInterning) Intern(chars string) *value.ObjString {
	if f.seen == nil {
		f.seen = map[string]*value.ObjString{}
	}
	if s, ok := f.seen[chars]; ok {
		return s
	}
	s := value.NewRawString(chars)
	f.seen[chars] = s
	return s
}

func TestScalarAcceptsNilBoolNumberString(t *testing.T) {
	strs := &fakeInterning{}
	cases := []value.Value{
		value.Nil,
		value.NewBool(true),
		value.NewNumber(3.5),
		value.FromObject(strs.Intern("hi")),
	}
	for _, v := range cases {
		if !Scalar(v) {
			t.Errorf("expected %v to be scalar", v)
		}
	}
}

func TestScalarRejectsFunctionValues(t *testing.T) {
	fn := &value.ObjFunction{Name: "f"}
	if Scalar(value.FromObject(fn)) {
		t.Fatalf("function values must not be considered scalar")
	}
}

func TestRowRoundTripsThroughInterning(t *testing.T) {
	strs := &fakeInterning{}
	original := value.FromObject(strs.Intern("hello"))

	r, err := toRow("greeting", original)
	if err != nil {
		t.Fatalf("toRow: %v", err)
	}
	restored := fromRow(r, strs)

	if !value.Equal(original, restored) {
		t.Fatalf("round trip changed value identity: %v != %v", original, restored)
	}
}

func TestMemoryStoreIsANoop(t *testing.T) {
	var m Memory
	if err := m.Save(context.Background(), Snapshot{"a": value.NewNumber(1)}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	snap, err := m.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(snap) != 0 {
		t.Fatalf("memory store should never return persisted globals, got %v", snap)
	}
}
