package vm

import (
	"math"

	"xray/pkg/bytecode"
	"xray/pkg/xerr"
)

// arith implements ADD/SUB/MUL/MOD's numeric-promotion rule (§4.1, §4.5):
// int op int stays int; any float operand promotes the whole operation
// to float. DIV is handled separately since it always produces a float
// (§9 "integer vs. float division": true division, not truncating, to
// avoid the silent-precision-loss surprise of C-style integer division).
func (vm *VM) arith(op bytecode.OpCode, l, r bytecode.Value, line int) (bytecode.Value, *xerr.RuntimeError) {
	if !l.IsNumber() || !r.IsNumber() {
		return bytecode.Value{}, vm.newRuntimeError(xerr.RuntimeType, line, "arithmetic on non-numeric value")
	}
	if l.IsInt() && r.IsInt() {
		a, b := l.AsInt(), r.AsInt()
		switch op {
		case bytecode.ADD:
			return bytecode.Int(a + b), nil
		case bytecode.SUB:
			return bytecode.Int(a - b), nil
		case bytecode.MUL:
			return bytecode.Int(a * b), nil
		case bytecode.MOD:
			if b == 0 {
				return bytecode.Value{}, vm.newRuntimeError(xerr.RuntimeArith, line, "modulo by zero")
			}
			return bytecode.Int(a % b), nil
		}
	}
	a, b := l.AsFloat64(), r.AsFloat64()
	switch op {
	case bytecode.ADD:
		return bytecode.Float(a + b), nil
	case bytecode.SUB:
		return bytecode.Float(a - b), nil
	case bytecode.MUL:
		return bytecode.Float(a * b), nil
	case bytecode.MOD:
		if b == 0 {
			return bytecode.Value{}, vm.newRuntimeError(xerr.RuntimeArith, line, "modulo by zero")
		}
		return bytecode.Float(math.Mod(a, b)), nil
	}
	return bytecode.Value{}, vm.newRuntimeError(xerr.Internal, line, "unreachable arithmetic opcode %s", op)
}

// div implements DIV: always true (floating-point) division; dividing by
// exactly zero is a RuntimeArith error rather than an Inf/NaN result, so
// the failure surfaces at the point of the mistake instead of silently
// propagating (§4.6).
func (vm *VM) div(l, r bytecode.Value, line int) (bytecode.Value, *xerr.RuntimeError) {
	if !l.IsNumber() || !r.IsNumber() {
		return bytecode.Value{}, vm.newRuntimeError(xerr.RuntimeType, line, "arithmetic on non-numeric value")
	}
	b := r.AsFloat64()
	if b == 0 {
		return bytecode.Value{}, vm.newRuntimeError(xerr.RuntimeArith, line, "division by zero")
	}
	return bytecode.Float(l.AsFloat64() / b), nil
}

func (vm *VM) unm(x bytecode.Value, line int) (bytecode.Value, *xerr.RuntimeError) {
	switch {
	case x.IsInt():
		return bytecode.Int(-x.AsInt()), nil
	case x.IsFloat():
		return bytecode.Float(-x.AsFloat()), nil
	default:
		return bytecode.Value{}, vm.newRuntimeError(xerr.RuntimeType, line, "unary minus on non-numeric value")
	}
}

// compare implements LT/LE/GT/GE: numeric cross-kind comparison, or
// lexicographic byte comparison between two strings (§9 "string
// ordering" decision). Any other pairing is a type error.
func (vm *VM) compare(op bytecode.OpCode, l, r bytecode.Value, line int) (bool, *xerr.RuntimeError) {
	if l.IsNumber() && r.IsNumber() {
		a, b := l.AsFloat64(), r.AsFloat64()
		switch op {
		case bytecode.LT:
			return a < b, nil
		case bytecode.LE:
			return a <= b, nil
		case bytecode.GT:
			return a > b, nil
		case bytecode.GE:
			return a >= b, nil
		}
	}
	if ls, lok := asString(l); lok {
		if rs, rok := asString(r); rok {
			switch op {
			case bytecode.LT:
				return ls < rs, nil
			case bytecode.LE:
				return ls <= rs, nil
			case bytecode.GT:
				return ls > rs, nil
			case bytecode.GE:
				return ls >= rs, nil
			}
		}
	}
	return false, vm.newRuntimeError(xerr.RuntimeType, line, "comparison between incompatible types")
}

func asString(v bytecode.Value) (string, bool) {
	if !v.IsObj() {
		return "", false
	}
	s, ok := v.AsObj().(*bytecode.StringObj)
	if !ok {
		return "", false
	}
	return s.Value, true
}
