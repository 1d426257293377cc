package parser

import (
	"github.com/isb-lang/isb/internal/diag"
	"github.com/isb-lang/isb/internal/lexer"
)

// Parser turns a token stream into a Program AST. Grounded on the
// teacher's line-oriented statement dispatch (pkg/tinybasic/bytecode.go
// compileStatement switching on the leading keyword) combined with its
// precedence-climbing expression grammar (expression_parser.go), here
// separated into a standalone recursive descent over statements and a
// precedence-climbing parseBinary for expressions.
type Parser struct {
	toks  []lexer.Token
	pos   int
	diags *diag.Bag
}

// New creates a Parser over toks (normally the full output of
// Lexer.Tokens, EOF included), recording syntax errors into diags.
func New(toks []lexer.Token, diags *diag.Bag) *Parser {
	return &Parser{toks: toks, diags: diags}
}

func (p *Parser) cur() lexer.Token  { return p.toks[p.pos] }
func (p *Parser) atEnd() bool       { return p.cur().Kind == lexer.EOF }
func (p *Parser) peekKind() lexer.Kind { return p.cur().Kind }

func (p *Parser) advance() lexer.Token {
	tok := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return tok
}

func (p *Parser) check(k lexer.Kind) bool { return p.peekKind() == k }

func (p *Parser) match(k lexer.Kind) (lexer.Token, bool) {
	if p.check(k) {
		return p.advance(), true
	}
	return lexer.Token{}, false
}

func (p *Parser) expect(k lexer.Kind, what string) lexer.Token {
	if tok, ok := p.match(k); ok {
		return tok
	}
	tok := p.cur()
	if tok.Kind == lexer.EOF {
		p.diags.Add(diag.UnexpectedEndOfStream, rangeAt(tok), "expected %s, reached end of input", what)
	} else {
		p.diags.Add(diag.UnexpectedToken, rangeAt(tok), "expected %s, found %q", what, tok.Text)
	}
	return tok
}

func rangeAt(tok lexer.Token) diag.Range {
	end := diag.Position{Line: tok.Line, Column: tok.Column + len(tok.Text)}
	return diag.Range{Start: diag.Position{Line: tok.Line, Column: tok.Column}, End: end}
}

// skipNewlines consumes any run of blank statement separators.
func (p *Parser) skipNewlines() {
	for p.check(lexer.Newline) {
		p.advance()
	}
}

// Parse consumes the whole token stream and returns the resulting
// Program. Parsing never stops on a malformed statement: it records a
// diagnostic and resynchronizes at the next Newline, so a single typo
// doesn't hide the rest of a multi-statement fragment's errors.
func (p *Parser) Parse() *Program {
	prog := &Program{}
	p.skipNewlines()
	for !p.atEnd() {
		if stmt := p.parseStatement(); stmt != nil {
			prog.Statements = append(prog.Statements, stmt)
		}
		p.skipNewlines()
	}
	return prog
}

// parseBlock parses statements until one of the given terminator
// keywords is found (not consumed), used for the bodies of If/For/
// While/Sub.
func (p *Parser) parseBlock(terminators ...lexer.Kind) []Stmt {
	var body []Stmt
	p.skipNewlines()
	for !p.atEnd() && !p.atAny(terminators) {
		if stmt := p.parseStatement(); stmt != nil {
			body = append(body, stmt)
		}
		p.skipNewlines()
	}
	return body
}

func (p *Parser) atAny(kinds []lexer.Kind) bool {
	for _, k := range kinds {
		if p.check(k) {
			return true
		}
	}
	return false
}

func (p *Parser) parseStatement() Stmt {
	tok := p.cur()
	switch tok.Kind {
	case lexer.KwIf:
		return p.parseIf()
	case lexer.KwFor:
		return p.parseFor()
	case lexer.KwWhile:
		return p.parseWhile()
	case lexer.KwSub:
		return p.parseSub()
	case lexer.KwGoTo:
		return p.parseGoto()
	case lexer.Ident:
		if p.peekAt(1).Kind == lexer.Colon {
			name := p.advance()
			p.advance() // colon
			return &LabelStmt{baseStmt{name.Line}, name.Text}
		}
		return p.parseAssignOrExpr()
	case lexer.Number, lexer.String, lexer.LParen, lexer.Minus:
		return &ExprStmt{baseStmt{tok.Line}, p.parseExpr()}
	case lexer.Newline:
		p.advance()
		return nil
	default:
		p.diags.Add(diag.UnexpectedToken, rangeAt(tok), "unexpected token %q at start of statement", tok.Text)
		p.syncToNewline()
		return nil
	}
}

func (p *Parser) peekAt(offset int) lexer.Token {
	idx := p.pos + offset
	if idx >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[idx]
}

func (p *Parser) syncToNewline() {
	for !p.atEnd() && !p.check(lexer.Newline) {
		p.advance()
	}
}

// parseAssignOrExpr disambiguates `name [indices] = expr` (assignment)
// from a bare expression statement (a call, or a value expression whose
// result becomes the fragment's value per spec.md §4.7), both of which
// start with an identifier.
func (p *Parser) parseAssignOrExpr() Stmt {
	start := p.cur()
	expr := p.parsePrimary()
	if _, ok := p.match(lexer.Eq); ok {
		name, indices, ok := designatorOf(expr)
		if !ok {
			p.diags.Add(diag.UnexpectedToken, rangeAt(start), "left-hand side of '=' is not assignable")
			value := p.parseExpr()
			return &ExprStmt{baseStmt{start.Line}, value}
		}
		value := p.parseExpr()
		return &AssignStmt{baseStmt{start.Line}, name, indices, value}
	}
	expr = p.parseBinaryRHS(0, expr)
	return &ExprStmt{baseStmt{start.Line}, expr}
}

// designatorOf reports whether expr is a valid assignment target
// (`name` or `name[k1][k2]...`), returning its name and index chain.
func designatorOf(expr Expr) (string, []Expr, bool) {
	switch e := expr.(type) {
	case *IdentExpr:
		return e.Name, nil, true
	case *IndexExpr:
		base, ok := e.Base.(*IdentExpr)
		if !ok {
			return "", nil, false
		}
		return base.Name, e.Keys, true
	default:
		return "", nil, false
	}
}

func (p *Parser) parseIf() Stmt {
	ifTok := p.advance()
	cond := p.parseExpr()
	p.expect(lexer.KwThen, "Then")
	then := p.parseBlock(lexer.KwElseIf, lexer.KwElse, lexer.KwEndIf)
	stmt := &IfStmt{baseStmt{ifTok.Line}, cond, then, nil, nil}
	for p.check(lexer.KwElseIf) {
		p.advance()
		econd := p.parseExpr()
		p.expect(lexer.KwThen, "Then")
		ebody := p.parseBlock(lexer.KwElseIf, lexer.KwElse, lexer.KwEndIf)
		stmt.ElseIfs = append(stmt.ElseIfs, ElseIfClause{econd, ebody})
	}
	if _, ok := p.match(lexer.KwElse); ok {
		stmt.Else = p.parseBlock(lexer.KwEndIf)
	}
	p.expect(lexer.KwEndIf, "EndIf")
	return stmt
}

func (p *Parser) parseFor() Stmt {
	forTok := p.advance()
	name := p.expect(lexer.Ident, "loop variable")
	p.expect(lexer.Eq, "'='")
	start := p.parseExpr()
	p.expect(lexer.KwTo, "To")
	end := p.parseExpr()
	var step Expr
	if _, ok := p.match(lexer.KwStep); ok {
		step = p.parseExpr()
	}
	body := p.parseBlock(lexer.KwEndFor)
	p.expect(lexer.KwEndFor, "EndFor")
	return &ForStmt{baseStmt{forTok.Line}, name.Text, start, end, step, body}
}

func (p *Parser) parseWhile() Stmt {
	whileTok := p.advance()
	cond := p.parseExpr()
	body := p.parseBlock(lexer.KwEndWhile)
	p.expect(lexer.KwEndWhile, "EndWhile")
	return &WhileStmt{baseStmt{whileTok.Line}, cond, body}
}

func (p *Parser) parseSub() Stmt {
	subTok := p.advance()
	name := p.expect(lexer.Ident, "sub name")
	body := p.parseBlock(lexer.KwEndSub)
	p.expect(lexer.KwEndSub, "EndSub")
	return &SubStmt{baseStmt{subTok.Line}, name.Text, body}
}

func (p *Parser) parseGoto() Stmt {
	gotoTok := p.advance()
	target := p.expect(lexer.Ident, "label name")
	return &GotoStmt{baseStmt{gotoTok.Line}, target.Text}
}

// Expression grammar, lowest to highest precedence:
//
//	or-expr    := and-expr (Or and-expr)*
//	and-expr   := rel-expr (And rel-expr)*
//	rel-expr   := add-expr ((= | <> | < | <= | > | >=) add-expr)*
//	add-expr   := mul-expr ((+ | -) mul-expr)*
//	mul-expr   := unary ((* | / | Mod) unary)*
//	unary      := (-) unary | primary
//	primary    := number | string | ident | ident(args) | ident[idx]... | (expr)
var precedence = map[lexer.Kind]int{
	lexer.KwOr:  1,
	lexer.KwAnd: 2,
	lexer.Eq:    3, lexer.Ne: 3, lexer.Lt: 3, lexer.Le: 3, lexer.Gt: 3, lexer.Ge: 3,
	lexer.Plus: 4, lexer.Minus: 4,
	lexer.Star: 5, lexer.Slash: 5, lexer.KwMod: 5,
}

func (p *Parser) parseExpr() Expr {
	return p.parseBinaryRHS(0, p.parseUnary())
}

func (p *Parser) parseBinaryRHS(minPrec int, lhs Expr) Expr {
	for {
		prec, ok := precedence[p.peekKind()]
		if !ok || prec < minPrec {
			return lhs
		}
		opTok := p.advance()
		rhs := p.parseUnary()
		for {
			nextPrec, ok := precedence[p.peekKind()]
			if !ok || nextPrec <= prec {
				break
			}
			rhs = p.parseBinaryRHS(prec+1, rhs)
		}
		lhs = &BinaryExpr{baseExpr{opTok.Line}, opTok.Kind, lhs, rhs}
	}
}

func (p *Parser) parseUnary() Expr {
	if tok, ok := p.match(lexer.Minus); ok {
		return &UnaryExpr{baseExpr{tok.Line}, lexer.Minus, p.parseUnary()}
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() Expr {
	tok := p.cur()
	switch tok.Kind {
	case lexer.Number:
		p.advance()
		return &NumberLit{baseExpr{tok.Line}, tok.Text}
	case lexer.String:
		p.advance()
		return &StringLit{baseExpr{tok.Line}, tok.Text}
	case lexer.LParen:
		p.advance()
		inner := p.parseExpr()
		p.expect(lexer.RParen, "')'")
		return inner
	case lexer.Ident:
		p.advance()
		var expr Expr = &IdentExpr{baseExpr{tok.Line}, tok.Text}
		if _, ok := p.match(lexer.LParen); ok {
			var args []Expr
			if !p.check(lexer.RParen) {
				args = append(args, p.parseExpr())
				for {
					if _, ok := p.match(lexer.Comma); !ok {
						break
					}
					args = append(args, p.parseExpr())
				}
			}
			p.expect(lexer.RParen, "')'")
			return &CallExpr{baseExpr{tok.Line}, tok.Text, args}
		}
		for p.check(lexer.LBracket) {
			p.advance()
			key := p.parseExpr()
			p.expect(lexer.RBracket, "']'")
			idx, ok := expr.(*IndexExpr)
			if ok {
				idx.Keys = append(idx.Keys, key)
			} else {
				expr = &IndexExpr{baseExpr{tok.Line}, expr, []Expr{key}}
			}
		}
		return expr
	default:
		if tok.Kind == lexer.EOF {
			p.diags.Add(diag.UnexpectedEndOfStream, rangeAt(tok), "expected expression, reached end of input")
		} else {
			p.diags.Add(diag.UnexpectedToken, rangeAt(tok), "expected expression, found %q", tok.Text)
		}
		return &StringLit{baseExpr{tok.Line}, ""}
	}
}
