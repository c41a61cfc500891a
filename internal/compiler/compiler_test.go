package compiler

import (
	"testing"

	"loxvm/internal/chunk"
	"loxvm/internal/table"
	"loxvm/internal/value"
)

func compile(t *testing.T, src string) *chunk.Chunk {
	t.Helper()
	fn, errs := Compile(src, table.NewStrings(&value.Heap{}))
	if len(errs) > 0 {
		t.Fatalf("unexpected compile errors: %v", errs)
	}
	return fn.Chunk.(*chunk.Chunk)
}

func TestSimpleExpressionStatementEndsWithPop(t *testing.T) {
	c := compile(t, "1 + 2;")
	ops := opcodes(c)
	last := ops[len(ops)-3] // ..., Pop, Nil, Return
	if chunk.OpCode(last) != chunk.OpPop {
		t.Fatalf("expected expression statement to end in OP_POP, got %v", chunk.OpCode(last))
	}
}

func TestGlobalVarDeclarationEmitsDefineGlobal(t *testing.T) {
	c := compile(t, "var a = 1;")
	if !containsOp(c, chunk.OpDefineGlobal) {
		t.Fatalf("expected OP_DEFINE_GLOBAL in %v", opcodes(c))
	}
}

func TestLocalDoesNotEmitGlobalOps(t *testing.T) {
	c := compile(t, "{ var a = 1; print a; }")
	if containsOp(c, chunk.OpDefineGlobal) || containsOp(c, chunk.OpGetGlobal) {
		t.Fatalf("local access should not touch globals: %v", opcodes(c))
	}
	if !containsOp(c, chunk.OpGetLocal) {
		t.Fatalf("expected OP_GET_LOCAL: %v", opcodes(c))
	}
}

func TestReadLocalInOwnInitializerIsError(t *testing.T) {
	_, errs := Compile("{ var a = a; }", table.NewStrings(&value.Heap{}))
	if len(errs) == 0 {
		t.Fatalf("expected a compile error")
	}
}

func TestRedeclareLocalInSameScopeIsError(t *testing.T) {
	_, errs := Compile("{ var a; var a; }", table.NewStrings(&value.Heap{}))
	if len(errs) == 0 {
		t.Fatalf("expected a compile error")
	}
}

func TestMissingExpressionIsError(t *testing.T) {
	_, errs := Compile("1 + ;", table.NewStrings(&value.Heap{}))
	if len(errs) == 0 {
		t.Fatalf("expected a compile error")
	}
}

func TestJumpPatchMathIsBigEndianOffset(t *testing.T) {
	c := compile(t, "if (true) print 1;")
	for i := 0; i < len(c.Code); i++ {
		if chunk.OpCode(c.Code[i]) == chunk.OpJumpIfFalse {
			hi, lo := int(c.Code[i+1]), int(c.Code[i+2])
			jump := hi<<8 | lo
			// The jump must land exactly past the then-branch (Pop,
			// Constant, Print, Jump), on the Pop that starts the else path.
			target := i + 3 + jump
			if target > len(c.Code) {
				t.Fatalf("jump target %d out of range (len=%d)", target, len(c.Code))
			}
			if target == len(c.Code) || chunk.OpCode(c.Code[target]) != chunk.OpPop {
				t.Fatalf("jump target %d is not the else-path OP_POP in %v", target, opcodes(c))
			}
			return
		}
	}
	t.Fatalf("expected a OP_JUMP_IF_FALSE in %v", opcodes(c))
}

func TestTooManyConstants(t *testing.T) {
	src := "var x = 0;\n"
	for i := 0; i < 300; i++ {
		src += "print " + itoa(i) + ";\n"
	}
	_, errs := Compile(src, table.NewStrings(&value.Heap{}))
	if len(errs) == 0 {
		t.Fatalf("expected 'too many constants' error")
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

func opcodes(c *chunk.Chunk) []byte { return c.Code }

func containsOp(c *chunk.Chunk, op chunk.OpCode) bool {
	for _, b := range c.Code {
		if chunk.OpCode(b) == op {
			return true
		}
	}
	return false
}
