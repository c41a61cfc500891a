// Package token defines the lexical tokens produced by internal/scanner.
package token

import "fmt"

// Type identifies the kind of a lexical token.
type Type int

const (
	// Single-character punctuation.
	LeftParen Type = iota
	RightParen
	LeftBrace
	RightBrace
	Comma
	Dot
	Minus
	Plus
	Semicolon
	Slash
	Star

	// One or two character operators.
	Bang
	BangEqual
	Equal
	EqualEqual
	Greater
	GreaterEqual
	Less
	LessEqual

	// Literals.
	Identifier
	String
	Number

	// Keywords.
	And
	Class
	Else
	False
	For
	Fun
	If
	Nil
	Or
	Print
	Return
	Super
	This
	True
	Var
	While

	// Synthetic.
	Error
	EOF
)

var names = map[Type]string{
	LeftParen:    "'('",
	RightParen:   "')'",
	LeftBrace:    "'{'",
	RightBrace:   "'}'",
	Comma:        "','",
	Dot:          "'.'",
	Minus:        "'-'",
	Plus:         "'+'",
	Semicolon:    "';'",
	Slash:        "'/'",
	Star:         "'*'",
	Bang:         "'!'",
	BangEqual:    "'!='",
	Equal:        "'='",
	EqualEqual:   "'=='",
	Greater:      "'>'",
	GreaterEqual: "'>='",
	Less:         "'<'",
	LessEqual:    "'<='",
	Identifier:   "identifier",
	String:       "string",
	Number:       "number",
	And:          "'and'",
	Class:        "'class'",
	Else:         "'else'",
	False:        "'false'",
	For:          "'for'",
	Fun:          "'fun'",
	If:           "'if'",
	Nil:          "'nil'",
	Or:           "'or'",
	Print:        "'print'",
	Return:       "'return'",
	Super:        "'super'",
	This:         "'this'",
	True:         "'true'",
	Var:          "'var'",
	While:        "'while'",
	Error:        "error",
	EOF:          "end of file",
}

// Display renders a token kind the way compiler error messages quote it.
func (t Type) Display() string {
	if s, ok := names[t]; ok {
		return s
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// Keywords maps reserved identifiers to their keyword token kind. The
// scanner itself uses a small hand-coded trie over the first letters to
// avoid a hash lookup per identifier (spec.md §4.1); this table exists to
// name the mapping in one place for tests and tools.
var Keywords = map[string]Type{
	"and":    And,
	"class":  Class,
	"else":   Else,
	"false":  False,
	"for":    For,
	"fun":    Fun,
	"if":     If,
	"nil":    Nil,
	"or":     Or,
	"print":  Print,
	"return": Return,
	"super":  Super,
	"this":   This,
	"true":   True,
	"var":    Var,
	"while":  While,
}

// Token is a lexical token: a kind, a byte-range view into the source text
// (Lexeme), and a 1-based line number. Tokens borrow from the source
// buffer; the caller must keep the source alive until compilation
// completes.
type Token struct {
	Type   Type
	Lexeme string
	Line   int
}

func (t Token) String() string {
	return fmt.Sprintf("Token(%s, %q, line %d)", t.Type.Display(), t.Lexeme, t.Line)
}
