// Package vm implements the register-based bytecode interpreter — the
// third CORE component (§4.5). It executes the Proto chunks pkg/compiler
// produces, using pkg/bytecode's Value/Object model and pkg/xmap for the
// globals table.
package vm

import (
	"fmt"

	"github.com/davecgh/go-spew/spew"
	"github.com/google/uuid"

	"xray/pkg/bytecode"
	"xray/pkg/disasm"
	"xray/pkg/xerr"
	"xray/pkg/xmap"
)

// callFrame is one activation record (§3.7). base is the absolute index
// into VM.regs where this call's register window starts; destReg is the
// absolute register (in the *caller's* window) the eventual return value
// is written to.
type callFrame struct {
	closure *bytecode.ClosureObj
	pc      int
	base    int
	destReg int
}

// VM is one interpreter instance. Per §5, a VM is never shared across
// goroutines — all state below is single-threaded.
type VM struct {
	id    string
	opts  Options
	heap  *bytecode.Heap
	globals *xmap.Map[bytecode.Value]

	frames     []callFrame
	frameCount int

	regs []bytecode.Value

	// openUpvals is kept sorted by descending Addr() (§3.6, §4.4) so
	// CLOSE can work with a prefix scan and the find-or-create routine
	// with a binary search instead of a full pass.
	openUpvals []*bytecode.UpvalueObj
}

// New creates a VM ready to Interpret one or more Protos. Globals persist
// across successive Interpret calls on the same VM, matching a REPL
// session's expectations (§9 "shared global state").
func New(opts Options) *VM {
	return &VM{
		id:      uuid.New().String(),
		opts:    opts,
		heap:    bytecode.NewHeap(),
		globals: xmap.New[bytecode.Value](),
		frames:  make([]callFrame, opts.framesMax()),
		regs:    make([]bytecode.Value, opts.framesMax()*regFileSize),
	}
}

// ID returns this VM's identifier, attached to every RuntimeError it
// raises so a host embedding multiple VMs in one process can tell their
// diagnostics apart.
func (vm *VM) ID() string { return vm.id }

// Heap exposes the VM's object heap, mainly for tests inspecting the
// §5 reachability contract.
func (vm *VM) Heap() *bytecode.Heap { return vm.heap }

// Global reads a global by name, for host code and tests.
func (vm *VM) Global(name string) (bytecode.Value, bool) { return vm.globals.Get(name) }

// Interpret runs proto as a fresh top-level call and returns its result
// (the top frame's RETURN value, or Null for a bare return/fallthrough).
// Any runtime fault — a type error, an out-of-range access, a stack
// overflow, or an internal panic — comes back as a *xerr.RuntimeError,
// never a raw Go panic (§4.6).
func (vm *VM) Interpret(proto *bytecode.Proto) (result bytecode.Value, err *xerr.RuntimeError) {
	defer func() {
		if r := recover(); r != nil {
			err = vm.newRuntimeError(xerr.Internal, vm.currentLine(), "internal error: %v", r)
		}
	}()

	vm.internConstants(proto, make(map[*bytecode.Proto]bool))

	main := vm.heap.NewClosure(proto, nil)
	vm.frameCount = 0
	vm.openUpvals = vm.openUpvals[:0]
	vm.pushFrame(main, 0, -1)

	result, err = vm.run()
	return
}

// internConstants re-interns every string constant in proto (recursively,
// through nested Protos) against this VM's string intern table. The
// compiler builds constant pools with no VM in scope, so a compile-time
// string constant starts out as its own standalone StringObj; §3.3's
// pointer-equality-iff-content-equality invariant only holds once that
// constant is resolved against the table EQ actually consults. Re-interning
// is idempotent, so running the same cached Proto on the same VM twice
// does no extra work the second time beyond the intern-table lookup.
func (vm *VM) internConstants(proto *bytecode.Proto, seen map[*bytecode.Proto]bool) {
	if seen[proto] {
		return
	}
	seen[proto] = true
	for i, k := range proto.Constants {
		if s, ok := k.AsObj().(*bytecode.StringObj); ok {
			proto.Constants[i] = bytecode.Obj(vm.heap.NewString(s.Value))
		}
	}
	for _, child := range proto.Protos {
		vm.internConstants(child, seen)
	}
}

// pushFrame activates closure with its register window starting at base
// (an absolute index into vm.regs). destReg is the absolute register in
// the *caller's* window the return value will land in; -1 for the
// implicit top-level call, which has no caller to write back to.
func (vm *VM) pushFrame(closure *bytecode.ClosureObj, base, destReg int) *callFrame {
	if vm.frameCount >= len(vm.frames) {
		panic(vm.newRuntimeError(xerr.RuntimeResource, vm.currentLine(), "call stack overflow"))
	}
	vm.frameCount++
	fr := &vm.frames[vm.frameCount-1]
	fr.closure = closure
	fr.pc = 0
	fr.base = base
	fr.destReg = destReg
	for i := 0; i < closure.Proto.MaxStackSize; i++ {
		vm.regs[base+i] = bytecode.Null()
	}
	return fr
}

// currentLine reports the source line the active instruction came from,
// for error positions; 0 if no frame is active.
func (vm *VM) currentLine() int {
	if vm.frameCount == 0 {
		return 0
	}
	fr := &vm.frames[vm.frameCount-1]
	pc := fr.pc
	if pc > 0 {
		pc--
	}
	if pc < len(fr.closure.Proto.LineInfo) {
		return fr.closure.Proto.LineInfo[pc]
	}
	return 0
}

// backtrace walks the live frame stack, innermost first, for a
// RuntimeError (§7).
func (vm *VM) backtrace() []xerr.Frame {
	out := make([]xerr.Frame, 0, vm.frameCount)
	for i := vm.frameCount - 1; i >= 0; i-- {
		fr := &vm.frames[i]
		pc := fr.pc
		if pc > 0 {
			pc--
		}
		line := 0
		if pc < len(fr.closure.Proto.LineInfo) {
			line = fr.closure.Proto.LineInfo[pc]
		}
		name := fr.closure.Proto.Name
		if name == "" {
			name = "<anonymous>"
		}
		out = append(out, xerr.Frame{Name: name, Line: line})
	}
	return out
}

func (vm *VM) newRuntimeError(kind xerr.Kind, line int, format string, args ...interface{}) *xerr.RuntimeError {
	rerr := xerr.NewRuntime(kind, line, format, args...)
	rerr.VMID = vm.id
	rerr.Frames = vm.backtrace()
	return rerr
}

// traceStep logs the instruction about to execute and a register dump,
// when Options.TraceExecution is set. The full disassembly listing is
// printed only when a frame is about to run the instruction at pc 0 — its
// first step, or a jump back to offset 0 — so a loop elsewhere in the
// function does not reprint it on every iteration; other steps just point
// at the line within it.
func (vm *VM) traceStep(fr *callFrame, ins bytecode.Instruction) {
	if !vm.opts.TraceExecution {
		return
	}
	if fr.pc == 0 {
		fmt.Fprintln(vm.opts.stdout(), disasm.String(fr.closure.Proto.Name, fr.closure.Proto))
	}
	fmt.Fprintf(vm.opts.stdout(), "pc=%04d %s\n", fr.pc, ins.OpCode())
	fmt.Fprintln(vm.opts.stdout(), spew.Sdump(vm.regs[fr.base:fr.base+fr.closure.Proto.MaxStackSize]))
}
