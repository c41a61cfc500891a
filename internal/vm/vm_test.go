package vm

import (
	"strings"
	"testing"
)

func run(t *testing.T, src string) (stdout, stderr string, result Result) {
	t.Helper()
	v := New()
	var out, errOut strings.Builder
	v.Stdout = &out
	v.Stderr = &errOut
	result = v.Interpret(src)
	return out.String(), errOut.String(), result
}

func TestArithmeticPrecedence(t *testing.T) {
	out, _, res := run(t, "print 1 + 2 * 3;")
	if res != Ok {
		t.Fatalf("expected Ok, got %v", res)
	}
	if out != "7\n" {
		t.Fatalf("got %q, want %q", out, "7\n")
	}
}

func TestStringConcatenationInternsResult(t *testing.T) {
	// String equality is pointer identity, so the concatenation only
	// compares equal to the literal if its result was interned.
	out, _, res := run(t, `var s = "hi" + "!"; print s; print s == "hi!";`)
	if res != Ok {
		t.Fatalf("expected Ok, got %v", res)
	}
	if out != "hi!\ntrue\n" {
		t.Fatalf("got %q, want %q", out, "hi!\ntrue\n")
	}
}

func TestForLoopSumsZeroToFour(t *testing.T) {
	out, _, res := run(t, `
		var sum = 0;
		for (var i = 0; i < 5; i = i + 1) {
			sum = sum + i;
		}
		print sum;
	`)
	if res != Ok {
		t.Fatalf("expected Ok, got %v", res)
	}
	if out != "10\n" {
		t.Fatalf("got %q, want %q", out, "10\n")
	}
}

func TestOrShortCircuitsToTruthyOperand(t *testing.T) {
	out, _, res := run(t, `if (nil or 0) print "t"; else print "f";`)
	if res != Ok {
		t.Fatalf("expected Ok, got %v", res)
	}
	if out != "t\n" {
		t.Fatalf("got %q, want %q", out, "t\n")
	}
}

func TestNestedBlockScoping(t *testing.T) {
	out, _, res := run(t, `
		var a = 1;
		{
			var a = 2;
			print a;
		}
		print a;
	`)
	if res != Ok {
		t.Fatalf("expected Ok, got %v", res)
	}
	if out != "2\n1\n" {
		t.Fatalf("got %q, want %q", out, "2\n1\n")
	}
}

func TestUndefinedGlobalIsRuntimeError(t *testing.T) {
	_, errOut, res := run(t, "print a;")
	if res != RuntimeErr {
		t.Fatalf("expected RuntimeErr, got %v", res)
	}
	if !strings.Contains(errOut, "Undefined variable 'a'.") {
		t.Fatalf("stderr = %q, want message about undefined variable", errOut)
	}
	if !strings.Contains(errOut, "[line 1] in script") {
		t.Fatalf("stderr = %q, want a [line N] in script trailer", errOut)
	}
}

func TestAssignToUndefinedGlobalIsRuntimeError(t *testing.T) {
	_, errOut, res := run(t, "a = 1;")
	if res != RuntimeErr {
		t.Fatalf("expected RuntimeErr, got %v", res)
	}
	if !strings.Contains(errOut, "Undefined variable 'a'.") {
		t.Fatalf("stderr = %q", errOut)
	}
}

func TestAddingNumberAndStringIsRuntimeError(t *testing.T) {
	_, errOut, res := run(t, `print 1 + "x";`)
	if res != RuntimeErr {
		t.Fatalf("expected RuntimeErr, got %v", res)
	}
	if !strings.Contains(errOut, "Operands must be two numbers or two strings.") {
		t.Fatalf("stderr = %q", errOut)
	}
}

func TestNegateNonNumberIsRuntimeError(t *testing.T) {
	_, errOut, res := run(t, `print -"x";`)
	if res != RuntimeErr {
		t.Fatalf("expected RuntimeErr, got %v", res)
	}
	if !strings.Contains(errOut, "Operand must be a number.") {
		t.Fatalf("stderr = %q", errOut)
	}
}

func TestCompileErrorStopsBeforeRunning(t *testing.T) {
	out, _, res := run(t, "1 + ;")
	if res != CompileErr {
		t.Fatalf("expected CompileErr, got %v", res)
	}
	if out != "" {
		t.Fatalf("expected no output from a program that never ran, got %q", out)
	}
}

func TestClockIsObservableButNotCallable(t *testing.T) {
	out, _, res := run(t, "print clock;")
	if res != Ok {
		t.Fatalf("expected Ok, got %v", res)
	}
	if out != "<native fn clock>\n" {
		t.Fatalf("got %q, want %q", out, "<native fn clock>\n")
	}

	// There is no call syntax, so a call expression does not compile.
	if _, _, res := run(t, "clock();"); res != CompileErr {
		t.Fatalf("expected CompileErr for clock(), got %v", res)
	}
}

func TestReusedVMAcrossMultipleInterpretCallsKeepsLocalsCorrect(t *testing.T) {
	v := New()
	var out, errOut strings.Builder
	v.Stdout = &out
	v.Stderr = &errOut

	if res := v.Interpret("var a = 1;"); res != Ok {
		t.Fatalf("line 1: expected Ok, got %v, stderr=%q", res, errOut.String())
	}
	if res := v.Interpret(`
		for (var i = 0; i < 3; i = i + 1) {
			var doubled = i * 2;
			print doubled;
		}
		print a;
	`); res != Ok {
		t.Fatalf("line 2: expected Ok, got %v, stderr=%q", res, errOut.String())
	}

	want := "0\n2\n4\n1\n"
	if out.String() != want {
		t.Fatalf("got %q, want %q", out.String(), want)
	}
}

func TestEqualityComparesStringsByInternedIdentity(t *testing.T) {
	out, _, res := run(t, `
		var a = "hi";
		var b = "h" + "i";
		print a == b;
	`)
	if res != Ok {
		t.Fatalf("expected Ok, got %v", res)
	}
	if out != "true\n" {
		t.Fatalf("got %q, want %q", out, "true\n")
	}
}
