package scanner

import (
	"testing"

	"loxvm/internal/token"
)

func TestScanToken(t *testing.T) {
	src := `var a = "hi" + 1.5; // comment
print a;`
	want := []token.Type{
		token.Var, token.Identifier, token.Equal, token.String, token.Plus,
		token.Number, token.Semicolon, token.Print, token.Identifier,
		token.Semicolon, token.EOF,
	}

	s := New(src)
	for i, k := range want {
		tok := s.ScanToken()
		if tok.Type != k {
			t.Fatalf("token %d: got %s, want %s (%q)", i, tok.Type.Display(), k.Display(), tok.Lexeme)
		}
	}
}

func TestStringSpansLinesAndCountsThem(t *testing.T) {
	s := New("\"a\nb\" end")
	str := s.ScanToken()
	if str.Type != token.String {
		t.Fatalf("want string token, got %s", str.Type.Display())
	}
	ident := s.ScanToken()
	if ident.Line != 2 {
		t.Fatalf("want line 2 after embedded newline, got %d", ident.Line)
	}
}

func TestUnterminatedString(t *testing.T) {
	s := New(`"abc`)
	tok := s.ScanToken()
	if tok.Type != token.Error {
		t.Fatalf("want error token, got %s", tok.Type.Display())
	}
}

func TestKeywordsVsIdentifiers(t *testing.T) {
	cases := map[string]token.Type{
		"and": token.And, "classy": token.Identifier, "class": token.Class,
		"forest": token.Identifier, "for": token.For, "fun": token.Fun,
		"thistle": token.Identifier, "this": token.This, "true": token.True,
		"truee": token.Identifier, "superman": token.Identifier, "super": token.Super,
	}
	for src, want := range cases {
		s := New(src)
		tok := s.ScanToken()
		if tok.Type != want {
			t.Errorf("%q: got %s, want %s", src, tok.Type.Display(), want.Display())
		}
	}
}
