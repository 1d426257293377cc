package compiler

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/isb-lang/isb/internal/diag"
)

// ParseAssembly is entry point (b) of spec.md §4.5: it appends the
// instructions a raw assembly-text listing describes directly to u,
// bypassing the AST lowerer entirely. One instruction (or label
// definition) per line; blank lines and lines starting with ';' are
// ignored. Diagnostics use the same codes as AST lowering, so a caller
// can't tell which entry point produced a given error.
func ParseAssembly(text string, u *Unit, diags *diag.Bag) {
	for i, raw := range strings.Split(text, "\n") {
		line := i + 1
		parseAssemblyLine(raw, line, u, diags)
	}
}

func parseAssemblyLine(raw string, line int, u *Unit, diags *diag.Bag) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || strings.HasPrefix(trimmed, ";") {
		return
	}
	if strings.HasSuffix(trimmed, ":") && !strings.ContainsAny(trimmed[:len(trimmed)-1], " \t") {
		name := trimmed[:len(trimmed)-1]
		if name == "" {
			diags.Add(diag.UnexpectedToken, lineRange(line), "empty label name")
			return
		}
		if _, exists := u.Labels[name]; exists {
			diags.Add(diag.DuplicateLabel, lineRange(line), "label %q already defined", name)
			return
		}
		u.Labels[name] = u.Len()
		return
	}

	mnemonic, rest := splitFirst(trimmed)
	op, ok := validOps[mnemonic]
	if !ok {
		diags.Add(diag.UnknownOpcode, lineRange(line), "unknown opcode %q", mnemonic)
		return
	}

	switch op {
	case Push:
		num := strings.TrimSpace(rest)
		if num == "" {
			diags.Add(diag.UnexpectedEndOfStream, lineRange(line), "push requires a numeric operand")
			return
		}
		u.emit(Instruction{Op: Push, Num: num, Line: line})
	case Pushs:
		str, ok := parseQuoted(strings.TrimSpace(rest))
		if !ok {
			diags.Add(diag.UnexpectedToken, lineRange(line), "pushs requires a quoted string operand")
			return
		}
		u.emit(Instruction{Op: Pushs, Str: str, Line: line})
	case StoreArr, LoadArr:
		name, depthStr := splitFirst(strings.TrimSpace(rest))
		depth, err := strconv.Atoi(strings.TrimSpace(depthStr))
		if name == "" || err != nil {
			diags.Add(diag.UnexpectedToken, lineRange(line), "%s requires a name and an index depth", op)
			return
		}
		u.emit(Instruction{Op: op, Str: name, Depth: depth, Line: line})
	case BrIf:
		// spec.md §4.6: "br_if Lt Lf" -- one instruction, two label
		// operands (true-target, false-target), not a conditional jump
		// paired with a separate unconditional one.
		lt, lf := splitFirst(strings.TrimSpace(rest))
		lf = strings.TrimSpace(lf)
		if lt == "" || lf == "" {
			diags.Add(diag.UnexpectedEndOfStream, lineRange(line), "br_if requires two label operands")
			return
		}
		u.emit(Instruction{Op: BrIf, Str: lt, Str2: lf, Line: line})
	default:
		need := arity[op]
		operand := strings.TrimSpace(rest)
		if need == 1 {
			if operand == "" {
				diags.Add(diag.UnexpectedEndOfStream, lineRange(line), "%s requires an operand", op)
				return
			}
			u.emit(Instruction{Op: op, Str: operand, Line: line})
			return
		}
		if operand != "" {
			diags.Add(diag.UnexpectedToken, lineRange(line), "%s takes no operand", op)
			return
		}
		u.emit(Instruction{Op: op, Line: line})
	}
}

func splitFirst(s string) (head, rest string) {
	s = strings.TrimSpace(s)
	idx := strings.IndexAny(s, " \t")
	if idx < 0 {
		return s, ""
	}
	return s[:idx], s[idx+1:]
}

func parseQuoted(s string) (string, bool) {
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return "", false
	}
	inner := s[1 : len(s)-1]
	var sb strings.Builder
	for i := 0; i < len(inner); i++ {
		ch := inner[i]
		if ch == '\\' && i+1 < len(inner) {
			i++
			switch inner[i] {
			case '"':
				sb.WriteByte('"')
			case '\\':
				sb.WriteByte('\\')
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			default:
				sb.WriteByte('\\')
				sb.WriteByte(inner[i])
			}
			continue
		}
		sb.WriteByte(ch)
	}
	return sb.String(), true
}

func quoteString(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

// Serialize renders u's instruction stream back to the same textual
// assembly format ParseAssembly reads, with label definitions emitted
// immediately before the instruction they point to (or at the end of
// the listing for a label pointing one past the last instruction).
// Re-parsing this text reproduces an instruction stream and label table
// equivalent to u -- spec.md §4.5's assembly round-trip requirement.
func Serialize(u *Unit) string {
	labelsAt := make(map[int][]string)
	for name, idx := range u.Labels {
		labelsAt[idx] = append(labelsAt[idx], name)
	}
	for idx := range labelsAt {
		sort.Strings(labelsAt[idx])
	}

	var sb strings.Builder
	for i, ins := range u.Instructions {
		for _, name := range labelsAt[i] {
			sb.WriteString(name)
			sb.WriteString(":\n")
		}
		sb.WriteString(formatInstruction(ins))
		sb.WriteByte('\n')
	}
	for _, name := range labelsAt[len(u.Instructions)] {
		sb.WriteString(name)
		sb.WriteString(":\n")
	}
	return sb.String()
}

func formatInstruction(ins Instruction) string {
	switch ins.Op {
	case Push:
		return fmt.Sprintf("push %s", ins.Num)
	case Pushs:
		return fmt.Sprintf("pushs %s", quoteString(ins.Str))
	case StoreArr, LoadArr:
		return fmt.Sprintf("%s %s %d", ins.Op, ins.Str, ins.Depth)
	case BrIf:
		return fmt.Sprintf("br_if %s %s", ins.Str, ins.Str2)
	default:
		if arity[ins.Op] == 1 {
			return fmt.Sprintf("%s %s", ins.Op, ins.Str)
		}
		return string(ins.Op)
	}
}
