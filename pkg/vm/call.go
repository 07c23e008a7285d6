package vm

import (
	"sort"

	"xray/pkg/bytecode"
	"xray/pkg/xerr"
)

// doCall implements CALL A B: the callee sits in R[A], its B arguments in
// R[A+1..A+B]; the result eventually lands back in R[A] once the callee
// returns (§4.1, §4.3).
func (vm *VM) doCall(fr *callFrame, a, nargs uint8) *xerr.RuntimeError {
	calleeVal := vm.regs[fr.base+int(a)]
	if !calleeVal.IsObj() {
		return vm.newRuntimeError(xerr.RuntimeType, vm.currentLine(), "attempt to call a non-function value")
	}
	closure, ok := calleeVal.AsObj().(*bytecode.ClosureObj)
	if !ok {
		return vm.newRuntimeError(xerr.RuntimeType, vm.currentLine(), "attempt to call a non-function value")
	}

	if int(nargs) != closure.Proto.NumParams {
		return vm.newRuntimeError(xerr.RuntimeType, vm.currentLine(),
			"%s expects %d argument(s), got %d", closure.Proto.Name, closure.Proto.NumParams, nargs)
	}

	callerDest := fr.base + int(a)
	newBase := fr.base + int(a) + 1
	if newBase+closure.Proto.MaxStackSize > len(vm.regs) {
		return vm.newRuntimeError(xerr.RuntimeResource, vm.currentLine(), "register stack exhausted")
	}

	// Snapshot the caller's argument values before pushFrame zeroes the
	// callee's window — the two ranges can overlap when the callee's
	// register window starts before the args end.
	args := make([]bytecode.Value, nargs)
	copy(args, vm.regs[newBase:newBase+int(nargs)])

	var perr *xerr.RuntimeError
	func() {
		defer func() {
			if r := recover(); r != nil {
				if re, ok := r.(*xerr.RuntimeError); ok {
					perr = re
					return
				}
				panic(r)
			}
		}()
		vm.pushFrame(closure, newBase, callerDest)
	}()
	if perr != nil {
		return perr
	}

	copy(vm.regs[newBase:newBase+int(nargs)], args)
	return nil
}

// doReturn implements RETURN A b: b==0 returns Null, otherwise R[A]. It
// closes every open upvalue captured from the returning frame's window
// (§4.4: upvalues must close no later than the frame that owns their
// stack slot goes away) and reports whether the whole Interpret call is
// finished (the top-level frame just returned).
func (vm *VM) doReturn(fr *callFrame, a, b uint8) (result bytecode.Value, done bool) {
	if b == 0 {
		result = bytecode.Null()
	} else {
		result = vm.regs[fr.base+int(a)]
	}
	vm.closeUpvaluesFrom(fr.base)

	destReg := fr.destReg
	vm.frameCount--
	if vm.frameCount == 0 || destReg < 0 {
		return result, true
	}
	vm.regs[destReg] = result
	return result, false
}

// findOrCreateUpvalue returns the open upvalue for location, creating one
// if none exists yet (§4.3's closure-materialization routine). Keeping
// openUpvals sorted by descending address lets this find the slot (or the
// insertion point) by binary search, and lets CLOSE stop after the prefix
// of entries at or above its threshold.
func (vm *VM) findOrCreateUpvalue(location *bytecode.Value) *bytecode.UpvalueObj {
	addr := uintptrOf(location)
	i := sort.Search(len(vm.openUpvals), func(i int) bool {
		return vm.openUpvals[i].Addr() <= addr
	})
	if i < len(vm.openUpvals) && vm.openUpvals[i].Addr() == addr {
		return vm.openUpvals[i]
	}
	uv := vm.heap.NewOpenUpvalue(location)
	vm.openUpvals = append(vm.openUpvals, nil)
	copy(vm.openUpvals[i+1:], vm.openUpvals[i:])
	vm.openUpvals[i] = uv
	return uv
}

// closeUpvaluesFrom closes every open upvalue whose stack slot is at or
// above the absolute register index base, removing them from the open
// list — used both by CLOSE and by a frame's implicit close-on-return.
func (vm *VM) closeUpvaluesFrom(base int) {
	threshold := uintptrOf(&vm.regs[base])
	i := 0
	for i < len(vm.openUpvals) && vm.openUpvals[i].Addr() >= threshold {
		vm.openUpvals[i].Close()
		i++
	}
	vm.openUpvals = vm.openUpvals[i:]
}

// materializeClosure builds the closure for CLOSURE A Bx, resolving each
// of the child Proto's declared upvalues against the enclosing frame
// (§4.3's four-step algorithm, already resolved to IsLocal/Index pairs
// by the compiler).
func (vm *VM) materializeClosure(fr *callFrame, child *bytecode.Proto) *bytecode.ClosureObj {
	upvals := make([]*bytecode.UpvalueObj, len(child.Upvalues))
	for i, info := range child.Upvalues {
		if info.IsLocal {
			loc := &vm.regs[fr.base+int(info.Index)]
			upvals[i] = vm.findOrCreateUpvalue(loc)
		} else {
			upvals[i] = fr.closure.Upvalues[info.Index]
		}
	}
	return vm.heap.NewClosure(child, upvals)
}
