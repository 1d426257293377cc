package lexer

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/isb-lang/isb/internal/diag"
)

// caseFolder performs the Unicode-aware case fold used for ISB's
// case-insensitive keyword matching. Grounded on golang.org/x/text/cases,
// already an indirect dependency of the teacher's go.mod (pulled in by
// its SQLite driver for collation) and promoted here to direct, exercised
// use instead of strings.ToUpper/EqualFold hand-rolling.
var caseFolder = cases.Fold()

// Fold returns the case-folded form of s, used to match keywords and
// normalize identifiers for the case-insensitive memory lookup.
func Fold(s string) string {
	return caseFolder.String(s)
}

// Lexer scans ISB source text into tokens.
type Lexer struct {
	input string
	pos   int
	line  int
	col   int
	diags *diag.Bag
}

// New creates a Lexer over src, recording diagnostics (unterminated
// strings, stray characters) into diags.
func New(src string, diags *diag.Bag) *Lexer {
	return &Lexer{input: src, pos: 0, line: 1, col: 1, diags: diags}
}

func (l *Lexer) peekByte() byte {
	if l.pos >= len(l.input) {
		return 0
	}
	return l.input[l.pos]
}

func (l *Lexer) peekByteAt(off int) byte {
	if l.pos+off >= len(l.input) {
		return 0
	}
	return l.input[l.pos+off]
}

func (l *Lexer) advance() byte {
	ch := l.peekByte()
	l.pos++
	if ch == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return ch
}

func isSpace(ch byte) bool { return ch == ' ' || ch == '\t' || ch == '\r' }
func isDigit(ch byte) bool { return ch >= '0' && ch <= '9' }
func isIdentStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}
func isIdentPart(ch byte) bool { return isIdentStart(ch) || isDigit(ch) }

// Tokens scans the entire input and returns the token stream, terminated
// by a single EOF token. An unterminated string literal is appended to
// the diagnostic bag as UnexpectedEndOfStream, which is meaningful to the
// incremental driver (spec.md §4.2/§4.7); a stray character is appended
// as UnexpectedToken and skipped.
func (l *Lexer) Tokens() []Token {
	var out []Token
	for {
		tok := l.next()
		out = append(out, tok)
		if tok.Kind == EOF {
			break
		}
	}
	return out
}

func (l *Lexer) next() Token {
	for {
		for isSpace(l.peekByte()) {
			l.advance()
		}
		if l.peekByte() == '\'' {
			for l.peekByte() != '\n' && l.peekByte() != 0 {
				l.advance()
			}
			continue
		}
		break
	}

	line, col := l.line, l.col
	ch := l.peekByte()

	switch {
	case ch == 0:
		return Token{Kind: EOF, Line: line, Column: col}
	case ch == '\n':
		l.advance()
		return Token{Kind: Newline, Text: "\n", Line: line, Column: col}
	case isDigit(ch):
		return l.scanNumber(line, col)
	case isIdentStart(ch):
		return l.scanIdent(line, col)
	case ch == '"':
		return l.scanString(line, col)
	default:
		return l.scanPunct(line, col)
	}
}

func (l *Lexer) scanNumber(line, col int) Token {
	start := l.pos
	for isDigit(l.peekByte()) {
		l.advance()
	}
	if l.peekByte() == '.' && isDigit(l.peekByteAt(1)) {
		l.advance()
		for isDigit(l.peekByte()) {
			l.advance()
		}
	}
	return Token{Kind: Number, Text: l.input[start:l.pos], Line: line, Column: col}
}

func (l *Lexer) scanIdent(line, col int) Token {
	start := l.pos
	for isIdentPart(l.peekByte()) {
		l.advance()
	}
	text := l.input[start:l.pos]
	if kw, ok := keywords[Fold(text)]; ok {
		return Token{Kind: kw, Text: text, Line: line, Column: col}
	}
	return Token{Kind: Ident, Text: text, Line: line, Column: col}
}

func (l *Lexer) scanString(line, col int) Token {
	l.advance() // opening quote
	var sb strings.Builder
	for {
		ch := l.peekByte()
		if ch == 0 || ch == '\n' {
			l.diags.Add(diag.UnexpectedEndOfStream, diag.Range{
				Start: diag.Position{Line: line, Column: col},
				End:   diag.Position{Line: l.line, Column: l.col},
			}, "unterminated string literal")
			return Token{Kind: String, Text: sb.String(), Line: line, Column: col}
		}
		if ch == '"' {
			l.advance()
			return Token{Kind: String, Text: sb.String(), Line: line, Column: col}
		}
		if ch == '\\' {
			l.advance()
			esc := l.peekByte()
			switch esc {
			case '"':
				sb.WriteByte('"')
				l.advance()
			case '\\':
				sb.WriteByte('\\')
				l.advance()
			case 'n':
				sb.WriteByte('\n')
				l.advance()
			case 't':
				sb.WriteByte('\t')
				l.advance()
			default:
				sb.WriteByte('\\')
			}
			continue
		}
		sb.WriteByte(ch)
		l.advance()
	}
}

func (l *Lexer) scanPunct(line, col int) Token {
	ch := l.advance()
	mk := func(k Kind, text string) Token {
		return Token{Kind: k, Text: text, Line: line, Column: col}
	}
	switch ch {
	case '+':
		return mk(Plus, "+")
	case '-':
		return mk(Minus, "-")
	case '*':
		return mk(Star, "*")
	case '/':
		return mk(Slash, "/")
	case '(':
		return mk(LParen, "(")
	case ')':
		return mk(RParen, ")")
	case '[':
		return mk(LBracket, "[")
	case ']':
		return mk(RBracket, "]")
	case ',':
		return mk(Comma, ",")
	case '.':
		return mk(Dot, ".")
	case ':':
		return mk(Colon, ":")
	case '=':
		return mk(Eq, "=")
	case '<':
		switch l.peekByte() {
		case '>':
			l.advance()
			return mk(Ne, "<>")
		case '=':
			l.advance()
			return mk(Le, "<=")
		}
		return mk(Lt, "<")
	case '>':
		if l.peekByte() == '=' {
			l.advance()
			return mk(Ge, ">=")
		}
		return mk(Gt, ">")
	default:
		l.diags.Add(diag.UnexpectedToken, diag.Range{
			Start: diag.Position{Line: line, Column: col},
			End:   diag.Position{Line: line, Column: col + 1},
		}, "unexpected character %q", ch)
		return l.next()
	}
}
