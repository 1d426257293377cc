package vm

import (
	"strconv"

	"github.com/isb-lang/isb/internal/compiler"
	"github.com/isb-lang/isb/internal/diag"
	"github.com/isb-lang/isb/internal/value"
)

// Run executes instructions from the current IP until the stream is
// exhausted (StateTerminated) or, when stopOnError is true, until an
// instruction records a new diagnostic (StateErrored). With
// stopOnError false, execution keeps going after a faulting
// instruction using that instruction's recovery value -- spec.md §4.2's
// "diagnostics never abort the pipeline" applied to the runtime.
// Returns true if the run reached StateTerminated without error.
func (vm *VM) Run(stopOnError bool) bool {
	vm.State = StateRunning
	startDiags := vm.Diags.Len()
	for vm.State == StateRunning {
		beforeDiags := vm.Diags.Len()
		beforeIP := vm.IP
		vm.Step()
		if stopOnError && vm.Diags.Len() > beforeDiags {
			// spec.md §8: IP after a halted run must point at the
			// instruction that errored, not past it -- Step always
			// commits its computed next IP before Run gets a chance to
			// look at vm.Diags, so roll back to the faulting instruction.
			vm.IP = beforeIP
			vm.State = StateErrored
			return false
		}
	}
	return vm.State == StateTerminated && vm.Diags.Len() == startDiags
}

// Step executes exactly one instruction, advancing IP (or jumping, on
// a taken branch/call/ret), and transitions to StateTerminated if IP
// runs off the end of the instruction stream. Run calls it in a loop.
func (vm *VM) Step() {
	if vm.IP >= len(vm.Unit.Instructions) {
		vm.State = StateTerminated
		return
	}
	ins := vm.Unit.Instructions[vm.IP]
	next := vm.IP + 1

	switch ins.Op {
	case compiler.Nop:
		// no-op

	case compiler.Push:
		d, ok := value.ParseDecimal(ins.Num)
		if !ok {
			vm.Diags.Add(diag.UnsupportedOperand, vm.here(), "malformed numeric literal %q", ins.Num)
			d = value.Zero
		}
		vm.push(value.NewNumber(d))

	case compiler.Pushs:
		vm.push(value.NewString(ins.Str))

	case compiler.Store:
		v := vm.pop()
		vm.Memory[memKey(ins.Str)] = value.Clone(v)

	case compiler.Load:
		v, ok := vm.Memory[memKey(ins.Str)]
		if !ok {
			vm.Diags.Add(diag.UnassignedVariable, vm.here(), "variable %q used before assignment", ins.Str)
			v = value.String{}
		}
		vm.push(v)

	case compiler.StoreArr:
		val := vm.pop()
		keys := vm.popKeys(ins.Depth)
		root := vm.Memory[memKey(ins.Str)]
		vm.Memory[memKey(ins.Str)] = value.SetPath(root, keys, val)

	case compiler.LoadArr:
		keys := vm.popKeys(ins.Depth)
		root, ok := vm.Memory[memKey(ins.Str)]
		if !ok {
			root = value.String{}
		}
		vm.push(value.GetPath(root, keys))

	case compiler.Set:
		idx, val := vm.regIndex(ins.Str), vm.pop()
		vm.Registers[idx] = val

	case compiler.Get:
		idx := vm.regIndex(ins.Str)
		v, ok := vm.Registers[idx]
		if !ok {
			vm.Diags.Add(diag.UnassignedVariable, vm.here(), "register %d read before assignment", idx)
			v = value.NewNumber(value.Zero)
		}
		vm.push(v)

	case compiler.Br:
		if target, ok := vm.resolveLabel(ins.Str); ok {
			next = target
		}

	case compiler.BrIf:
		cond := vm.pop()
		label := ins.Str2
		if cond.Bool() {
			label = ins.Str
		}
		if target, ok := vm.resolveLabel(label); ok {
			next = target
		}

	case compiler.Call:
		target, ok := vm.resolveLabel(ins.Str)
		if !ok {
			break
		}
		vm.calls = append(vm.calls, next)
		next = target

	case compiler.Ret:
		if len(vm.calls) == 0 {
			vm.Diags.Add(diag.UnexpectedEmptyStack, vm.here(), "return with no matching call")
			vm.State = StateTerminated
			return
		}
		next = vm.calls[len(vm.calls)-1]
		vm.calls = vm.calls[:len(vm.calls)-1]

	case compiler.Add, compiler.Sub, compiler.Mul, compiler.Div, compiler.Mod:
		vm.arith(ins.Op)

	case compiler.Eq, compiler.Ne:
		b, a := vm.pop(), vm.pop()
		eq := a.Equal(b)
		if ins.Op == compiler.Ne {
			eq = !eq
		}
		vm.push(boolValue(eq))

	case compiler.Lt, compiler.Le, compiler.Gt, compiler.Ge:
		vm.compare(ins.Op)

	case compiler.And:
		b, a := vm.pop(), vm.pop()
		vm.push(boolValue(a.Bool() && b.Bool()))

	case compiler.Or:
		b, a := vm.pop(), vm.pop()
		vm.push(boolValue(a.Bool() || b.Bool()))

	case compiler.Neg:
		a := vm.numericOperand(vm.pop())
		vm.push(value.NewNumber(value.Neg(a)))

	case compiler.Not:
		a := vm.pop()
		vm.push(boolValue(!a.Bool()))

	default:
		vm.Diags.Add(diag.UnknownOpcode, vm.here(), "unknown opcode %q", ins.Op)
	}

	vm.IP = next
}

func boolValue(b bool) value.Value {
	if b {
		return value.NewNumber(value.NewFromInt(1))
	}
	return value.NewNumber(value.NewFromInt(0))
}

// numericOperand reports UnsupportedOperand for an Array used where a
// number is required, then returns its (zero) numeric view either way
// -- arithmetic never halts the engine by itself.
func (vm *VM) numericOperand(v value.Value) value.Decimal {
	if v.Kind() == value.KindArray {
		vm.Diags.Add(diag.UnsupportedOperand, vm.here(), "array value used as a number")
	}
	return v.AsNumber()
}

func (vm *VM) arith(op compiler.Op) {
	b, a := vm.pop(), vm.pop()
	bn, an := vm.numericOperand(b), vm.numericOperand(a)
	switch op {
	case compiler.Add:
		vm.push(value.NewNumber(value.Add(an, bn)))
	case compiler.Sub:
		vm.push(value.NewNumber(value.Sub(an, bn)))
	case compiler.Mul:
		vm.push(value.NewNumber(value.Mul(an, bn)))
	case compiler.Div:
		if bn.IsZero() {
			vm.Diags.Add(diag.DivisionByZero, vm.here(), "division by zero")
			vm.push(value.NewNumber(value.Zero))
			return
		}
		vm.push(value.NewNumber(value.Div(an, bn)))
	case compiler.Mod:
		if bn.IsZero() {
			vm.Diags.Add(diag.DivisionByZero, vm.here(), "division by zero")
			vm.push(value.NewNumber(value.Zero))
			return
		}
		vm.push(value.NewNumber(value.Mod(an, bn)))
	}
}

func (vm *VM) compare(op compiler.Op) {
	b, a := vm.pop(), vm.pop()
	c := value.Compare(a, b)
	var result bool
	switch op {
	case compiler.Lt:
		result = c < 0
	case compiler.Le:
		result = c <= 0
	case compiler.Gt:
		result = c > 0
	case compiler.Ge:
		result = c >= 0
	}
	vm.push(boolValue(result))
}

// popKeys pops depth values off the stack (the last pushed is the
// innermost index) and returns them as canonical key strings in their
// original left-to-right order.
func (vm *VM) popKeys(depth int) []string {
	keys := make([]string, depth)
	for i := depth - 1; i >= 0; i-- {
		keys[i] = value.CanonicalKey(vm.pop())
	}
	return keys
}

func (vm *VM) regIndex(text string) int {
	n, err := strconv.Atoi(text)
	if err != nil {
		vm.Diags.Add(diag.UnsupportedOperand, vm.here(), "register index %q is not an integer", text)
		return 0
	}
	return n
}

func (vm *VM) resolveLabel(name string) (int, bool) {
	idx, ok := vm.Unit.Labels[name]
	if !ok {
		vm.Diags.Add(diag.UndefinedAssemblyLabel, vm.here(), "undefined label %q", name)
		return 0, false
	}
	return idx, true
}
