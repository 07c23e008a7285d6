package compiler

import (
	"xray/pkg/ast"
	"xray/pkg/bytecode"
)

// compileExpr compiles x into a fresh register and returns it.
func (c *Compiler) compileExpr(x ast.Expr) uint8 {
	r := c.alloc()
	c.compileExprInto(x, r)
	return r
}

// compileExprInto compiles x with its result placed directly into dest,
// avoiding an extra MOVE for the common case (assignment, let-init).
func (c *Compiler) compileExprInto(x ast.Expr, dest uint8) {
	switch e := x.(type) {
	case *ast.NullLit:
		c.emit(bytecode.NewABC(bytecode.LOADNIL, dest, 0, 0, false), e.Line())
	case *ast.BoolLit:
		op := bytecode.LOADFALSE
		if e.Value {
			op = bytecode.LOADTRUE
		}
		c.emit(bytecode.NewABC(op, dest, 0, 0, false), e.Line())
	case *ast.IntLit:
		c.compileIntInto(e, dest)
	case *ast.FloatLit:
		k := c.constant(bytecode.Float(e.Value))
		c.emit(bytecode.NewABx(bytecode.LOADK, dest, k), e.Line())
	case *ast.StringLit:
		k := c.constant(bytecode.Obj(bytecode.NewConstantString(e.Value)))
		c.emit(bytecode.NewABx(bytecode.LOADK, dest, k), e.Line())
	case *ast.Identifier:
		c.compileIdentInto(e, dest)
	case *ast.ArrayLit:
		c.compileArrayLitInto(e, dest)
	case *ast.IndexExpr:
		base := c.nextReg
		tReg := c.compileExpr(e.Target)
		iReg := c.compileExpr(e.Index)
		c.emit(bytecode.NewABC(bytecode.GETI, dest, tReg, iReg, false), e.Line())
		c.freeTo(base)
	case *ast.UnaryExpr:
		c.compileUnaryInto(e, dest)
	case *ast.BinaryExpr:
		c.compileBinaryInto(e, dest)
	case *ast.CallExpr:
		c.compileCallInto(e, dest)
	case *ast.FunctionLit:
		c.compileFunctionLiteralInto(e.Name, e.Params, e.Body, e.Line(), dest)
	default:
		c.errorf(x.Line(), "internal: unhandled expression %T", x)
	}
}

func (c *Compiler) compileIntInto(e *ast.IntLit, dest uint8) {
	if e.Value >= bytecode.MinSBx && e.Value <= bytecode.MaxSBx {
		c.emit(bytecode.NewAsBx(bytecode.LOADI, dest, int32(e.Value)), e.Line())
		return
	}
	k := c.constant(bytecode.Int(e.Value))
	c.emit(bytecode.NewABx(bytecode.LOADK, dest, k), e.Line())
}

func (c *Compiler) compileIdentInto(e *ast.Identifier, dest uint8) {
	if reg, ok := c.resolveLocal(e.Name); ok {
		if reg != dest {
			c.emit(bytecode.NewABC(bytecode.MOVE, dest, reg, 0, false), e.Line())
		}
		return
	}
	if idx, ok := c.resolveUpvalue(e.Name); ok {
		c.emit(bytecode.NewABC(bytecode.GETUPVAL, dest, idx, 0, false), e.Line())
		return
	}
	k := c.constant(bytecode.Obj(bytecode.NewConstantString(e.Name)))
	c.emit(bytecode.NewABx(bytecode.GETGLOBAL, dest, k), e.Line())
}

func (c *Compiler) compileArrayLitInto(e *ast.ArrayLit, dest uint8) {
	c.emit(bytecode.NewABC(bytecode.NEWTABLE, dest, uint8(len(e.Elements)), 0, false), e.Line())
	if len(e.Elements) == 0 {
		return
	}
	base := c.nextReg
	first := c.alloc()
	for i, elem := range e.Elements {
		var r uint8
		if i == 0 {
			r = first
			c.compileExprInto(elem, r)
		} else {
			r = c.alloc()
			c.compileExprInto(elem, r)
		}
	}
	c.emit(bytecode.NewABC(bytecode.SETLIST, dest, uint8(len(e.Elements)), first, false), e.Line())
	c.freeTo(base)
}

func (c *Compiler) compileUnaryInto(e *ast.UnaryExpr, dest uint8) {
	xReg := c.compileExpr(e.X)
	switch e.Op {
	case "-":
		c.emit(bytecode.NewABC(bytecode.UNM, dest, xReg, 0, false), e.Line())
	case "!":
		c.emit(bytecode.NewABC(bytecode.NOT, dest, xReg, 0, false), e.Line())
	default:
		c.errorf(e.Line(), "internal: unknown unary operator %q", e.Op)
	}
	c.freeTo(xReg)
}

func (c *Compiler) compileBinaryInto(e *ast.BinaryExpr, dest uint8) {
	switch e.Op {
	case "&&":
		c.compileLogicalInto(e, dest, true)
		return
	case "||":
		c.compileLogicalInto(e, dest, false)
		return
	}

	base := c.nextReg
	lReg := c.compileExpr(e.Left)
	rReg := c.compileExpr(e.Right)

	switch e.Op {
	case "+":
		c.emit(bytecode.NewABC(bytecode.ADD, dest, lReg, rReg, false), e.Line())
	case "-":
		c.emit(bytecode.NewABC(bytecode.SUB, dest, lReg, rReg, false), e.Line())
	case "*":
		c.emit(bytecode.NewABC(bytecode.MUL, dest, lReg, rReg, false), e.Line())
	case "/":
		c.emit(bytecode.NewABC(bytecode.DIV, dest, lReg, rReg, false), e.Line())
	case "%":
		c.emit(bytecode.NewABC(bytecode.MOD, dest, lReg, rReg, false), e.Line())
	case "==":
		c.emit(bytecode.NewABC(bytecode.EQ, dest, lReg, rReg, false), e.Line())
	case "!=":
		c.emit(bytecode.NewABC(bytecode.EQ, dest, lReg, rReg, true), e.Line())
	case "<":
		c.emit(bytecode.NewABC(bytecode.LT, dest, lReg, rReg, false), e.Line())
	case "<=":
		c.emit(bytecode.NewABC(bytecode.LE, dest, lReg, rReg, false), e.Line())
	case ">":
		c.emit(bytecode.NewABC(bytecode.GT, dest, lReg, rReg, false), e.Line())
	case ">=":
		c.emit(bytecode.NewABC(bytecode.GE, dest, lReg, rReg, false), e.Line())
	default:
		c.errorf(e.Line(), "internal: unknown binary operator %q", e.Op)
	}
	c.freeTo(base)
}

// compileLogicalInto lowers short-circuit && and || via TESTSET + JMP:
// for &&, a false left operand skips evaluating the right side (and
// copies the left value into dest); for ||, a true left operand short
// circuits the same way. When the left operand does not short-circuit,
// the right operand is evaluated and copied into dest with a MOVE.
func (c *Compiler) compileLogicalInto(e *ast.BinaryExpr, dest uint8, isAnd bool) {
	lReg := c.compileExpr(e.Left)
	wantJumpOn := !isAnd // && short-circuits on falsey left; || on truthy left
	c.emit(bytecode.NewABC(bytecode.TESTSET, dest, lReg, 0, wantJumpOn), e.Line())
	c.freeTo(lReg)
	shortCircuit := c.emitJump(e.Line())

	rReg := c.compileExpr(e.Right)
	if rReg != dest {
		c.emit(bytecode.NewABC(bytecode.MOVE, dest, rReg, 0, false), e.Line())
	}
	c.freeTo(rReg)

	c.patchJump(shortCircuit)
}

// compileCallInto compiles a call expression. The calling convention
// requires the callee and its arguments to sit in one contiguous
// register run starting at the callee's register — always true here
// since calleeReg is the first register this call allocates.
func (c *Compiler) compileCallInto(e *ast.CallExpr, dest uint8) {
	calleeReg := c.compileExpr(e.Callee)
	for _, arg := range e.Args {
		c.compileExpr(arg)
	}
	c.emit(bytecode.NewABC(bytecode.CALL, calleeReg, uint8(len(e.Args)), 0, false), e.Line())
	if calleeReg != dest {
		c.emit(bytecode.NewABC(bytecode.MOVE, dest, calleeReg, 0, false), e.Line())
	}
	c.freeTo(calleeReg)
}

// compileFunctionLiteral compiles a nested function body into its own
// Proto and emits CLOSURE into a fresh register, returning it.
func (c *Compiler) compileFunctionLiteral(name string, params []string, body *ast.BlockStmt, line int) uint8 {
	dest := c.alloc()
	c.compileFunctionLiteralInto(name, params, body, line, dest)
	return dest
}

func (c *Compiler) compileFunctionLiteralInto(name string, params []string, body *ast.BlockStmt, line int, dest uint8) {
	child := New(name, c)
	child.beginScope()
	for _, p := range params {
		child.declareLocal(p, line)
	}
	child.proto.NumParams = len(params)
	for _, inner := range body.Statements {
		child.compileStmt(inner)
	}
	child.endScope(0)
	child.emit(bytecode.NewABC(bytecode.RETURN, 0, 0, 0, false), line)
	child.proto.MaxStackSize = int(child.maxReg) + 1
	c.errors = append(c.errors, child.errors...)

	idx := c.proto.AddProto(child.proto)
	c.emit(bytecode.NewABx(bytecode.CLOSURE, dest, idx), line)
}
