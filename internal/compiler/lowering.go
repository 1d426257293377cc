package compiler

import (
	"github.com/isb-lang/isb/internal/diag"
	"github.com/isb-lang/isb/internal/lexer"
	"github.com/isb-lang/isb/internal/parser"
)

// Lower appends the instructions for prog to u, defining labels and
// resolving Sub calls against u's persistent label/sub tables (so a
// fragment compiled now can call a Sub declared by an earlier fragment,
// and vice versa for forward references within one fragment). GoTo
// targets are emitted by name and resolved by the VM at run time.
// Diagnostics (duplicate labels, unresolved calls, malformed assignment
// targets) are appended to diags; Lower never stops early on an error,
// matching spec.md §4.2's "diagnostics never abort the pipeline".
func Lower(prog *parser.Program, u *Unit, diags *diag.Bag) {
	l := &lowerer{unit: u, diags: diags}
	l.declareSubs(prog.Statements)
	for _, stmt := range prog.Statements {
		l.stmt(stmt)
	}
}

type lowerer struct {
	unit  *Unit
	diags *diag.Bag
}

// declareSubs pre-registers every top-level Sub so calls anywhere in
// this fragment (before or after the declaration) resolve correctly.
// Subs nested inside If/For/While/Sub bodies are not supported -- a
// deliberate simplification of classic BASIC's flat subroutine model,
// recorded in DESIGN.md.
func (l *lowerer) declareSubs(stmts []parser.Stmt) {
	for _, stmt := range stmts {
		sub, ok := stmt.(*parser.SubStmt)
		if !ok {
			continue
		}
		if _, exists := l.unit.Subs[sub.Name]; exists {
			l.diags.Add(diag.DuplicateLabel, lineRange(sub.Line()), "sub %q already declared", sub.Name)
			continue
		}
		l.unit.Subs[sub.Name] = l.unit.FreshLabel("sub_" + sub.Name)
	}
}

func lineRange(line int) diag.Range {
	pos := diag.Position{Line: line, Column: 1}
	return diag.Range{Start: pos, End: pos}
}

func (l *lowerer) defineLabel(name string, line int) {
	if _, exists := l.unit.Labels[name]; exists {
		l.diags.Add(diag.DuplicateLabel, lineRange(line), "label %q already defined", name)
		return
	}
	l.unit.Labels[name] = l.unit.Len()
}

func (l *lowerer) stmt(s parser.Stmt) {
	switch st := s.(type) {
	case *parser.AssignStmt:
		l.assign(st)
	case *parser.IfStmt:
		l.ifStmt(st)
	case *parser.ForStmt:
		l.forStmt(st)
	case *parser.WhileStmt:
		l.whileStmt(st)
	case *parser.SubStmt:
		l.subStmt(st)
	case *parser.GotoStmt:
		l.unit.emit(Instruction{Op: Br, Str: st.Target, Line: st.Line()})
	case *parser.LabelStmt:
		l.defineLabel(st.Name, st.Line())
	case *parser.ExprStmt:
		// A call used as a whole statement is evaluated for effect only:
		// unlike a call nested inside a larger expression, it must not
		// leave a stand-in value behind, since spec.md §6.3's opcode set
		// has no `pop` to discard one and repeated statement-level calls
		// (e.g. inside a loop body) would otherwise grow the stack
		// without bound.
		if call, ok := st.Expr.(*parser.CallExpr); ok {
			l.callStmt(call)
			return
		}
		l.expr(st.Expr)
	}
}

func (l *lowerer) assign(st *parser.AssignStmt) {
	if len(st.Indices) == 0 {
		l.expr(st.Value)
		l.unit.emit(Instruction{Op: Store, Str: st.Name, Line: st.Line()})
		return
	}
	for _, idx := range st.Indices {
		l.expr(idx)
	}
	l.expr(st.Value)
	l.unit.emit(Instruction{Op: StoreArr, Str: st.Name, Depth: len(st.Indices), Line: st.Line()})
}

func (l *lowerer) ifStmt(st *parser.IfStmt) {
	lend := l.unit.FreshLabel("endif")
	l.ifClause(st.Cond, st.Then, st.ElseIfs, st.Else, lend)
	l.defineLabel(lend, st.Line())
}

// ifClause lowers one If/ElseIf arm and recurses into the remaining
// ElseIf arms (and finally the Else body), all sharing a single join
// label lend.
func (l *lowerer) ifClause(cond parser.Expr, body []parser.Stmt, rest []parser.ElseIfClause, elseBody []parser.Stmt, lend string) {
	lthen := l.unit.FreshLabel("then")
	lnext := l.unit.FreshLabel("else")
	l.expr(cond)
	l.unit.emit(Instruction{Op: BrIf, Str: lthen, Str2: lnext, Line: cond.Line()})
	l.defineLabel(lthen, cond.Line())
	for _, s := range body {
		l.stmt(s)
	}
	l.unit.emit(Instruction{Op: Br, Str: lend, Line: cond.Line()})
	l.defineLabel(lnext, cond.Line())
	if len(rest) > 0 {
		l.ifClause(rest[0].Cond, rest[0].Body, rest[1:], elseBody, lend)
		return
	}
	for _, s := range elseBody {
		l.stmt(s)
	}
}

func (l *lowerer) forStmt(st *parser.ForStmt) {
	lcond := l.unit.FreshLabel("forcond")
	lbody := l.unit.FreshLabel("forbody")
	lend := l.unit.FreshLabel("forend")
	stepVar := l.unit.FreshLabel("forstep")

	l.expr(st.Start)
	l.unit.emit(Instruction{Op: Store, Str: st.Var, Line: st.Line()})

	if st.Step != nil {
		l.expr(st.Step)
	} else {
		l.unit.emit(Instruction{Op: Push, Num: "1", Line: st.Line()})
	}
	l.unit.emit(Instruction{Op: Store, Str: stepVar, Line: st.Line()})

	// A literal negative step counts down (ge); anything else (positive
	// literal, or a non-literal step whose sign can't be known at
	// compile time) counts up (le). A deliberate simplification of
	// direction-sensitive FOR loops, recorded in DESIGN.md.
	cmp := Op(Le)
	if isNegativeLiteral(st.Step) {
		cmp = Ge
	}

	l.defineLabel(lcond, st.Line())
	l.unit.emit(Instruction{Op: Load, Str: st.Var, Line: st.Line()})
	l.expr(st.End)
	l.unit.emit(Instruction{Op: cmp, Line: st.Line()})
	l.unit.emit(Instruction{Op: BrIf, Str: lbody, Str2: lend, Line: st.Line()})

	l.defineLabel(lbody, st.Line())
	for _, s := range st.Body {
		l.stmt(s)
	}
	l.unit.emit(Instruction{Op: Load, Str: st.Var, Line: st.Line()})
	l.unit.emit(Instruction{Op: Load, Str: stepVar, Line: st.Line()})
	l.unit.emit(Instruction{Op: Add, Line: st.Line()})
	l.unit.emit(Instruction{Op: Store, Str: st.Var, Line: st.Line()})
	l.unit.emit(Instruction{Op: Br, Str: lcond, Line: st.Line()})

	l.defineLabel(lend, st.Line())
}

// isNegativeLiteral reports whether e is a literal negative number
// (`-N`, parsed as a unary minus over a number literal) -- the only
// case the For-loop direction rule (see forStmt) can decide at compile
// time.
func isNegativeLiteral(e parser.Expr) bool {
	u, ok := e.(*parser.UnaryExpr)
	if !ok || u.Op != lexer.Minus {
		return false
	}
	_, ok = u.X.(*parser.NumberLit)
	return ok
}

func (l *lowerer) whileStmt(st *parser.WhileStmt) {
	lcond := l.unit.FreshLabel("whilecond")
	lbody := l.unit.FreshLabel("whilebody")
	lend := l.unit.FreshLabel("whileend")

	l.defineLabel(lcond, st.Line())
	l.expr(st.Cond)
	l.unit.emit(Instruction{Op: BrIf, Str: lbody, Str2: lend, Line: st.Line()})

	l.defineLabel(lbody, st.Line())
	for _, s := range st.Body {
		l.stmt(s)
	}
	l.unit.emit(Instruction{Op: Br, Str: lcond, Line: st.Line()})

	l.defineLabel(lend, st.Line())
}

func (l *lowerer) subStmt(st *parser.SubStmt) {
	entry := l.unit.Subs[st.Name]
	lskip := l.unit.FreshLabel("subskip_" + st.Name)
	l.unit.emit(Instruction{Op: Br, Str: lskip, Line: st.Line()})
	l.defineLabel(entry, st.Line())
	for _, s := range st.Body {
		l.stmt(s)
	}
	l.unit.emit(Instruction{Op: Ret, Line: st.Line()})
	l.defineLabel(lskip, st.Line())
}

var binaryOps = map[lexer.Kind]Op{
	lexer.Plus: Add, lexer.Minus: Sub, lexer.Star: Mul, lexer.Slash: Div, lexer.KwMod: Mod,
	lexer.Eq: Eq, lexer.Ne: Ne, lexer.Lt: Lt, lexer.Le: Le, lexer.Gt: Gt, lexer.Ge: Ge,
	lexer.KwAnd: And, lexer.KwOr: Or,
}

// expr lowers e, leaving exactly one value on the stack.
func (l *lowerer) expr(e parser.Expr) {
	switch ex := e.(type) {
	case *parser.NumberLit:
		l.unit.emit(Instruction{Op: Push, Num: ex.Text, Line: ex.Line()})
	case *parser.StringLit:
		l.unit.emit(Instruction{Op: Pushs, Str: ex.Value, Line: ex.Line()})
	case *parser.IdentExpr:
		l.unit.emit(Instruction{Op: Load, Str: ex.Name, Line: ex.Line()})
	case *parser.IndexExpr:
		base, ok := ex.Base.(*parser.IdentExpr)
		if !ok {
			l.diags.Add(diag.UnsupportedOperand, lineRange(ex.Line()), "indexing is only supported on a named array")
			l.unit.emit(Instruction{Op: Pushs, Str: "", Line: ex.Line()})
			return
		}
		for _, k := range ex.Keys {
			l.expr(k)
		}
		l.unit.emit(Instruction{Op: LoadArr, Str: base.Name, Depth: len(ex.Keys), Line: ex.Line()})
	case *parser.UnaryExpr:
		l.expr(ex.X)
		l.unit.emit(Instruction{Op: Neg, Line: ex.Line()})
	case *parser.BinaryExpr:
		l.expr(ex.L)
		l.expr(ex.R)
		op, ok := binaryOps[ex.Op]
		if !ok {
			l.diags.Add(diag.UnsupportedOperand, lineRange(ex.Line()), "unsupported operator %q", ex.Op.String())
			op = Nop
		}
		l.unit.emit(Instruction{Op: op, Line: ex.Line()})
	case *parser.CallExpr:
		l.call(ex)
	default:
		l.diags.Add(diag.UnsupportedOperand, lineRange(e.Line()), "unsupported expression")
		l.unit.emit(Instruction{Op: Pushs, Str: "", Line: e.Line()})
	}
}

// call lowers a name(args) site. spec.md §6.3's opcode set has no
// argument-passing or value-returning convention for `call`/`ret` (a
// plain GOSUB/RETURN pair), so: a call naming a declared Sub must take
// no arguments and produces no usable value (an empty string stand-in,
// so it still has *something* to combine with if used inside a larger
// expression); a call naming anything else is unresolved and reported
// as spec.md §4.5 describes ("emits a diagnostic if the target is not
// a recognized library call") -- this implementation recognizes no
// library calls at all, so every unresolved name diagnoses.
func (l *lowerer) call(ex *parser.CallExpr) {
	entry, ok := l.resolveCall(ex)
	if !ok {
		l.unit.emit(Instruction{Op: Pushs, Str: "", Line: ex.Line()})
		return
	}
	l.unit.emit(Instruction{Op: Call, Str: entry, Line: ex.Line()})
	l.unit.emit(Instruction{Op: Pushs, Str: "", Line: ex.Line()})
}

// callStmt lowers a call used as a whole statement: no stand-in value
// is left on the stack (see the ExprStmt case in stmt, above).
func (l *lowerer) callStmt(ex *parser.CallExpr) {
	entry, ok := l.resolveCall(ex)
	if !ok {
		return
	}
	l.unit.emit(Instruction{Op: Call, Str: entry, Line: ex.Line()})
}

func (l *lowerer) resolveCall(ex *parser.CallExpr) (string, bool) {
	entry, ok := l.unit.Subs[ex.Name]
	if !ok {
		l.diags.Add(diag.UnknownCall, lineRange(ex.Line()), "call to unknown sub or library function %q", ex.Name)
		return "", false
	}
	if len(ex.Args) > 0 {
		l.diags.Add(diag.UnsupportedOperand, lineRange(ex.Line()), "sub %q takes no arguments", ex.Name)
	}
	return entry, true
}
