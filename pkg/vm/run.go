package vm

import (
	"fmt"

	"xray/pkg/bytecode"
	"xray/pkg/xerr"
)

// run is the dispatch loop (§4.5): fetch, decode, execute, repeat,
// always against the topmost frame. CALL/RETURN mutate vm.frameCount
// instead of recursing, so arbitrarily deep xray call chains cost one
// Go stack frame, not one per xray call.
func (vm *VM) run() (bytecode.Value, *xerr.RuntimeError) {
	for {
		fr := &vm.frames[vm.frameCount-1]
		proto := fr.closure.Proto
		if fr.pc >= len(proto.Code) {
			// Fell off the end without an explicit RETURN; equivalent to
			// `return;` (§4.1 RETURN semantics, b==0 -> Null).
			result, done := vm.doReturn(fr, 0, 0)
			if done {
				return result, nil
			}
			continue
		}

		ins := proto.Code[fr.pc]
		vm.traceStep(fr, ins)
		fr.pc++
		line := proto.LineInfo[fr.pc-1]
		base := fr.base

		switch ins.OpCode() {
		case bytecode.LOADNIL:
			a, n := ins.A(), ins.B()
			for i := uint8(0); i <= n; i++ {
				vm.regs[base+int(a)+int(i)] = bytecode.Null()
			}
		case bytecode.LOADTRUE:
			vm.regs[base+int(ins.A())] = bytecode.Bool(true)
		case bytecode.LOADFALSE:
			vm.regs[base+int(ins.A())] = bytecode.Bool(false)
		case bytecode.LOADI:
			vm.regs[base+int(ins.A())] = bytecode.Int(int64(ins.SBx()))
		case bytecode.LOADF:
			vm.regs[base+int(ins.A())] = bytecode.Float(float64(ins.SBx()))
		case bytecode.LOADK:
			vm.regs[base+int(ins.A())] = proto.Constants[ins.Bx()]
		case bytecode.MOVE:
			vm.regs[base+int(ins.A())] = vm.regs[base+int(ins.B())]

		case bytecode.ADD, bytecode.SUB, bytecode.MUL, bytecode.MOD:
			l, r := vm.regs[base+int(ins.B())], vm.regs[base+int(ins.C())]
			res, rerr := vm.arith(ins.OpCode(), l, r, line)
			if rerr != nil {
				return bytecode.Value{}, rerr
			}
			vm.regs[base+int(ins.A())] = res
		case bytecode.DIV:
			l, r := vm.regs[base+int(ins.B())], vm.regs[base+int(ins.C())]
			res, rerr := vm.div(l, r, line)
			if rerr != nil {
				return bytecode.Value{}, rerr
			}
			vm.regs[base+int(ins.A())] = res
		case bytecode.UNM:
			res, rerr := vm.unm(vm.regs[base+int(ins.B())], line)
			if rerr != nil {
				return bytecode.Value{}, rerr
			}
			vm.regs[base+int(ins.A())] = res
		case bytecode.NOT:
			vm.regs[base+int(ins.A())] = bytecode.Bool(!vm.regs[base+int(ins.B())].Truthy())

		case bytecode.EQ:
			eq := bytecode.Equal(vm.regs[base+int(ins.B())], vm.regs[base+int(ins.C())])
			vm.regs[base+int(ins.A())] = bytecode.Bool(eq != ins.K())
		case bytecode.LT, bytecode.LE, bytecode.GT, bytecode.GE:
			l, r := vm.regs[base+int(ins.B())], vm.regs[base+int(ins.C())]
			res, rerr := vm.compare(ins.OpCode(), l, r, line)
			if rerr != nil {
				return bytecode.Value{}, rerr
			}
			vm.regs[base+int(ins.A())] = bytecode.Bool(res)

		case bytecode.JMP:
			fr.pc += int(ins.SJ())
		case bytecode.TEST:
			if vm.regs[base+int(ins.A())].Truthy() != ins.K() {
				fr.pc++
			}
		case bytecode.TESTSET:
			rb := vm.regs[base+int(ins.B())]
			if rb.Truthy() == ins.K() {
				vm.regs[base+int(ins.A())] = rb
			} else {
				fr.pc++
			}

		case bytecode.CALL:
			if rerr := vm.doCall(fr, ins.A(), ins.B()); rerr != nil {
				return bytecode.Value{}, rerr
			}
		case bytecode.RETURN:
			result, done := vm.doReturn(fr, ins.A(), ins.B())
			if done {
				return result, nil
			}

		case bytecode.CLOSURE:
			child := proto.Protos[ins.Bx()]
			closure := vm.materializeClosure(fr, child)
			vm.regs[base+int(ins.A())] = bytecode.Obj(closure)
		case bytecode.GETUPVAL:
			vm.regs[base+int(ins.A())] = fr.closure.Upvalues[ins.B()].Get()
		case bytecode.SETUPVAL:
			fr.closure.Upvalues[ins.A()].Set(vm.regs[base+int(ins.B())])
		case bytecode.CLOSE:
			vm.closeUpvaluesFrom(base + int(ins.A()))

		case bytecode.GETGLOBAL:
			name := constName(proto, ins.Bx())
			val, ok := vm.globals.Get(name)
			if !ok {
				val = bytecode.Null()
			}
			vm.regs[base+int(ins.A())] = val
		case bytecode.SETGLOBAL:
			name := constName(proto, ins.Bx())
			if !vm.globals.Has(name) {
				return bytecode.Value{}, vm.newRuntimeError(xerr.RuntimeType, line, "assignment to undefined global %q", name)
			}
			vm.globals.Set(name, vm.regs[base+int(ins.A())])
		case bytecode.DEFGLOBAL:
			name := constName(proto, ins.Bx())
			vm.globals.Set(name, vm.regs[base+int(ins.A())])

		case bytecode.NEWTABLE:
			arr := vm.heap.NewArray(make([]bytecode.Value, 0, int(ins.B())))
			vm.regs[base+int(ins.A())] = bytecode.Obj(arr)
		case bytecode.GETI:
			res, rerr := vm.getIndex(vm.regs[base+int(ins.B())], vm.regs[base+int(ins.C())], line)
			if rerr != nil {
				return bytecode.Value{}, rerr
			}
			vm.regs[base+int(ins.A())] = res
		case bytecode.SETI:
			rerr := vm.setIndex(vm.regs[base+int(ins.A())], vm.regs[base+int(ins.B())], vm.regs[base+int(ins.C())], line)
			if rerr != nil {
				return bytecode.Value{}, rerr
			}
		case bytecode.SETLIST:
			arrVal := vm.regs[base+int(ins.A())]
			arr, ok := arrVal.AsObj().(*bytecode.ArrayObj)
			if !ok {
				return bytecode.Value{}, vm.newRuntimeError(xerr.RuntimeType, line, "SETLIST target is not an array")
			}
			count, first := int(ins.B()), int(ins.C())
			for i := 0; i < count; i++ {
				arr.Set(int64(i), vm.regs[base+first+i])
			}

		case bytecode.PRINT:
			fmt.Fprintln(vm.opts.stdout(), vm.regs[base+int(ins.A())].String())

		default:
			return bytecode.Value{}, vm.newRuntimeError(xerr.Internal, line, "unimplemented opcode %s", ins.OpCode())
		}
	}
}

func constName(proto *bytecode.Proto, idx uint32) string {
	return proto.Constants[idx].AsObj().(*bytecode.StringObj).Value
}

func (vm *VM) getIndex(target, index bytecode.Value, line int) (bytecode.Value, *xerr.RuntimeError) {
	arr, ok := target.AsObj().(*bytecode.ArrayObj)
	if !target.IsObj() || !ok {
		return bytecode.Value{}, vm.newRuntimeError(xerr.RuntimeType, line, "attempt to index a non-array value")
	}
	if !index.IsInt() {
		return bytecode.Value{}, vm.newRuntimeError(xerr.RuntimeType, line, "array index must be an integer")
	}
	val, ok := arr.Get(index.AsInt())
	if !ok {
		return bytecode.Value{}, vm.newRuntimeError(xerr.RuntimeBounds, line, "array index %d out of range (len %d)", index.AsInt(), arr.Len())
	}
	return val, nil
}

func (vm *VM) setIndex(target, index, value bytecode.Value, line int) *xerr.RuntimeError {
	arr, ok := target.AsObj().(*bytecode.ArrayObj)
	if !target.IsObj() || !ok {
		return vm.newRuntimeError(xerr.RuntimeType, line, "attempt to index a non-array value")
	}
	if !index.IsInt() {
		return vm.newRuntimeError(xerr.RuntimeType, line, "array index must be an integer")
	}
	if index.AsInt() < 0 {
		return vm.newRuntimeError(xerr.RuntimeBounds, line, "negative array index %d", index.AsInt())
	}
	arr.Set(index.AsInt(), value)
	return nil
}
