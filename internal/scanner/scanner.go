// Package scanner turns Lox source text into a lazy stream of tokens.
package scanner

import "loxvm/internal/token"

// Scanner is a single forward cursor over source text. It owns no heap
// storage of its own: every Token it yields borrows a slice of the source
// buffer, so the caller must keep that buffer alive for as long as tokens
// from it are in use.
type Scanner struct {
	source  string
	start   int
	current int
	line    int
}

// New creates a Scanner over src.
func New(src string) *Scanner {
	return &Scanner{source: src, line: 1}
}

// ScanToken yields the next token, or an Error token carrying a diagnostic
// message as its lexeme for unterminated strings and unknown characters.
func (s *Scanner) ScanToken() token.Token {
	s.skipWhitespace()
	s.start = s.current

	if s.atEnd() {
		return s.make(token.EOF)
	}

	c := s.advance()

	if isAlpha(c) {
		return s.identifier()
	}
	if isDigit(c) {
		return s.number()
	}

	switch c {
	case '(':
		return s.make(token.LeftParen)
	case ')':
		return s.make(token.RightParen)
	case '{':
		return s.make(token.LeftBrace)
	case '}':
		return s.make(token.RightBrace)
	case ';':
		return s.make(token.Semicolon)
	case ',':
		return s.make(token.Comma)
	case '.':
		return s.make(token.Dot)
	case '-':
		return s.make(token.Minus)
	case '+':
		return s.make(token.Plus)
	case '/':
		return s.make(token.Slash)
	case '*':
		return s.make(token.Star)
	case '!':
		return s.make(s.twoChar('=', token.BangEqual, token.Bang))
	case '=':
		return s.make(s.twoChar('=', token.EqualEqual, token.Equal))
	case '<':
		return s.make(s.twoChar('=', token.LessEqual, token.Less))
	case '>':
		return s.make(s.twoChar('=', token.GreaterEqual, token.Greater))
	case '"':
		return s.string()
	}

	return s.errorToken("Unexpected character.")
}

func (s *Scanner) twoChar(next byte, matched, unmatched token.Type) token.Type {
	if s.peek() == next {
		s.advance()
		return matched
	}
	return unmatched
}

func (s *Scanner) skipWhitespace() {
	for {
		switch s.peek() {
		case ' ', '\r', '\t':
			s.advance()
		case '\n':
			s.line++
			s.advance()
		case '/':
			if s.peekNext() == '/' {
				for s.peek() != '\n' && !s.atEnd() {
					s.advance()
				}
			} else {
				return
			}
		default:
			return
		}
	}
}

func (s *Scanner) string() token.Token {
	for s.peek() != '"' && !s.atEnd() {
		if s.peek() == '\n' {
			s.line++
		}
		s.advance()
	}
	if s.atEnd() {
		return s.errorToken("Unterminated string.")
	}
	s.advance() // closing quote
	return s.make(token.String)
}

func (s *Scanner) number() token.Token {
	for isDigit(s.peek()) {
		s.advance()
	}
	if s.peek() == '.' && isDigit(s.peekNext()) {
		s.advance()
		for isDigit(s.peek()) {
			s.advance()
		}
	}
	return s.make(token.Number)
}

// identifier recognizes [A-Za-z_][A-Za-z0-9_]* and classifies keywords with
// a hand-coded trie on the first 1-2 letters, per spec.md §4.1, rather than
// a hash-map lookup.
func (s *Scanner) identifier() token.Token {
	for isAlpha(s.peek()) || isDigit(s.peek()) {
		s.advance()
	}
	return s.make(s.identifierType())
}

func (s *Scanner) identifierType() token.Type {
	lexeme := s.source[s.start:s.current]
	switch lexeme[0] {
	case 'a':
		return s.keyword(lexeme, "and", token.And)
	case 'c':
		return s.keyword(lexeme, "class", token.Class)
	case 'e':
		return s.keyword(lexeme, "else", token.Else)
	case 'f':
		if len(lexeme) > 1 {
			switch lexeme[1] {
			case 'a':
				return s.keyword(lexeme, "false", token.False)
			case 'o':
				return s.keyword(lexeme, "for", token.For)
			case 'u':
				return s.keyword(lexeme, "fun", token.Fun)
			}
		}
	case 'i':
		return s.keyword(lexeme, "if", token.If)
	case 'n':
		return s.keyword(lexeme, "nil", token.Nil)
	case 'o':
		return s.keyword(lexeme, "or", token.Or)
	case 'p':
		return s.keyword(lexeme, "print", token.Print)
	case 'r':
		return s.keyword(lexeme, "return", token.Return)
	case 's':
		return s.keyword(lexeme, "super", token.Super)
	case 't':
		if len(lexeme) > 1 {
			switch lexeme[1] {
			case 'h':
				return s.keyword(lexeme, "this", token.This)
			case 'r':
				return s.keyword(lexeme, "true", token.True)
			}
		}
	case 'v':
		return s.keyword(lexeme, "var", token.Var)
	case 'w':
		return s.keyword(lexeme, "while", token.While)
	}
	return token.Identifier
}

func (s *Scanner) keyword(lexeme, want string, kind token.Type) token.Type {
	if lexeme == want {
		return kind
	}
	return token.Identifier
}

func (s *Scanner) advance() byte {
	c := s.source[s.current]
	s.current++
	return c
}

func (s *Scanner) peek() byte {
	if s.atEnd() {
		return 0
	}
	return s.source[s.current]
}

func (s *Scanner) peekNext() byte {
	if s.current+1 >= len(s.source) {
		return 0
	}
	return s.source[s.current+1]
}

func (s *Scanner) atEnd() bool {
	return s.current >= len(s.source)
}

func (s *Scanner) make(kind token.Type) token.Token {
	return token.Token{Type: kind, Lexeme: s.source[s.start:s.current], Line: s.line}
}

func (s *Scanner) errorToken(msg string) token.Token {
	return token.Token{Type: token.Error, Lexeme: msg, Line: s.line}
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isAlpha(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
