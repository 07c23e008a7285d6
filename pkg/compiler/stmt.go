package compiler

import (
	"xray/pkg/ast"
	"xray/pkg/bytecode"
)

func (c *Compiler) compileStmt(stmt ast.Stmt) {
	switch s := stmt.(type) {
	case *ast.LetStmt:
		c.compileLetStmt(s)
	case *ast.AssignStmt:
		c.compileAssignStmt(s)
	case *ast.ExprStmt:
		r := c.compileExpr(s.X)
		c.freeTo(r)
	case *ast.PrintStmt:
		r := c.compileExpr(s.Value)
		c.emit(bytecode.NewABC(bytecode.PRINT, r, 0, 0, false), s.Line())
		c.freeTo(r)
	case *ast.BlockStmt:
		base := c.nextReg
		c.beginScope()
		for _, inner := range s.Statements {
			c.compileStmt(inner)
		}
		c.endScope(base)
	case *ast.IfStmt:
		c.compileIfStmt(s)
	case *ast.WhileStmt:
		c.compileWhileStmt(s)
	case *ast.ForStmt:
		c.compileForStmt(s)
	case *ast.BreakStmt:
		c.compileBreakStmt(s)
	case *ast.ContinueStmt:
		c.compileContinueStmt(s)
	case *ast.ReturnStmt:
		c.compileReturnStmt(s)
	case *ast.FunctionDecl:
		c.compileFunctionDecl(s)
	default:
		c.errorf(stmt.Line(), "internal: unhandled statement %T", stmt)
	}
}

// compileLetStmt handles both local (nested scope) and global
// (top-level, scopeDepth == 1 counts as top level since Compile opens
// one implicit scope) declarations. Top-level declarations compile to
// DEFGLOBAL so the stricter global write-semantics (SPEC_FULL.md §12)
// can tell "declare" apart from "assign".
func (c *Compiler) compileLetStmt(s *ast.LetStmt) {
	if c.scopeDepth > 1 || c.parent != nil {
		reg := c.declareLocal(s.Name, s.Line())
		if s.Value != nil {
			c.compileExprInto(s.Value, reg)
		} else {
			c.emit(bytecode.NewABC(bytecode.LOADNIL, reg, 0, 0, false), s.Line())
		}
		return
	}
	r := c.nextReg
	if s.Value != nil {
		r = c.compileExpr(s.Value)
	} else {
		r = c.alloc()
		c.emit(bytecode.NewABC(bytecode.LOADNIL, r, 0, 0, false), s.Line())
	}
	k := c.constant(bytecode.Obj(bytecode.NewConstantString(s.Name)))
	c.emit(bytecode.NewABx(bytecode.DEFGLOBAL, r, k), s.Line())
	c.freeTo(r)
}

func (c *Compiler) compileAssignStmt(s *ast.AssignStmt) {
	switch target := s.Target.(type) {
	case *ast.Identifier:
		if reg, ok := c.resolveLocal(target.Name); ok {
			c.compileExprInto(s.Value, reg)
			return
		}
		if idx, ok := c.resolveUpvalue(target.Name); ok {
			r := c.compileExpr(s.Value)
			c.emit(bytecode.NewABC(bytecode.SETUPVAL, idx, r, 0, false), s.Line())
			c.freeTo(r)
			return
		}
		r := c.compileExpr(s.Value)
		k := c.constant(bytecode.Obj(bytecode.NewConstantString(target.Name)))
		c.emit(bytecode.NewABx(bytecode.SETGLOBAL, r, k), s.Line())
		c.freeTo(r)
	case *ast.IndexExpr:
		base := c.nextReg
		tReg := c.compileExpr(target.Target)
		iReg := c.compileExpr(target.Index)
		vReg := c.compileExpr(s.Value)
		c.emit(bytecode.NewABC(bytecode.SETI, tReg, iReg, vReg, false), s.Line())
		c.freeTo(base)
	default:
		c.errorf(s.Line(), "invalid assignment target")
	}
}

func (c *Compiler) compileIfStmt(s *ast.IfStmt) {
	base := c.nextReg
	condReg := c.compileExpr(s.Cond)
	c.emit(bytecode.NewABC(bytecode.TEST, condReg, 0, 0, false), s.Line())
	c.freeTo(base)
	elseJump := c.emitJump(s.Line())

	c.compileStmt(s.Then)

	if s.Else != nil {
		endJump := c.emitJump(s.Line())
		c.patchJump(elseJump)
		c.compileStmt(s.Else)
		c.patchJump(endJump)
	} else {
		c.patchJump(elseJump)
	}
}

func (c *Compiler) compileWhileStmt(s *ast.WhileStmt) {
	loopStart := c.here()
	lc := &loopCtx{continueTarget: loopStart, depth: c.scopeDepth}
	c.loops = append(c.loops, lc)

	base := c.nextReg
	condReg := c.compileExpr(s.Cond)
	c.emit(bytecode.NewABC(bytecode.TEST, condReg, 0, 0, false), s.Line())
	c.freeTo(base)
	exitJump := c.emitJump(s.Line())

	c.compileStmt(s.Body)
	c.emitLoopJump(loopStart, s.Line())

	c.patchJump(exitJump)
	for _, j := range lc.breakJumps {
		c.patchJump(j)
	}
	c.loops = c.loops[:len(c.loops)-1]
}

func (c *Compiler) compileForStmt(s *ast.ForStmt) {
	base := c.nextReg
	c.beginScope()
	if s.Init != nil {
		c.compileStmt(s.Init)
	}

	condStart := c.here()
	exitJump := -1
	if s.Cond != nil {
		cbase := c.nextReg
		condReg := c.compileExpr(s.Cond)
		c.emit(bytecode.NewABC(bytecode.TEST, condReg, 0, 0, false), s.Line())
		c.freeTo(cbase)
		exitJump = c.emitJump(s.Line())
	}

	// The continue target is the increment step (or, with no increment,
	// the condition re-check), matching a C-style for loop's semantics.
	bodyJump := -1
	var incrStart int
	if s.Incr != nil {
		bodyJump = c.emitJump(s.Line())
		incrStart = c.here()
		ibase := c.nextReg
		c.compileStmt(s.Incr)
		c.freeTo(ibase)
		c.emitLoopJump(condStart, s.Line())
		c.patchJump(bodyJump)
	} else {
		incrStart = condStart
	}

	lc := &loopCtx{continueTarget: incrStart, depth: c.scopeDepth}
	c.loops = append(c.loops, lc)

	c.compileStmt(s.Body)
	c.emitLoopJump(incrStart, s.Line())

	if exitJump >= 0 {
		c.patchJump(exitJump)
	}
	for _, j := range lc.breakJumps {
		c.patchJump(j)
	}
	c.loops = c.loops[:len(c.loops)-1]

	c.endScope(base)
}

func (c *Compiler) compileBreakStmt(s *ast.BreakStmt) {
	if len(c.loops) == 0 {
		c.errorf(s.Line(), "break outside of loop")
		return
	}
	lc := c.loops[len(c.loops)-1]
	j := c.emitJump(s.Line())
	lc.breakJumps = append(lc.breakJumps, j)
}

func (c *Compiler) compileContinueStmt(s *ast.ContinueStmt) {
	if len(c.loops) == 0 {
		c.errorf(s.Line(), "continue outside of loop")
		return
	}
	lc := c.loops[len(c.loops)-1]
	c.emitLoopJump(lc.continueTarget, s.Line())
}

func (c *Compiler) compileReturnStmt(s *ast.ReturnStmt) {
	if s.Value == nil {
		c.emit(bytecode.NewABC(bytecode.RETURN, 0, 0, 0, false), s.Line())
		return
	}
	r := c.compileExpr(s.Value)
	c.emit(bytecode.NewABC(bytecode.RETURN, r, 1, 0, false), s.Line())
	c.freeTo(r)
}

// compileFunctionDecl compiles `function name(...) { ... }` as sugar for
// declaring name and assigning a function literal to it — at the top
// level that's DEFGLOBAL with a CLOSURE value, in a nested scope it's an
// ordinary local declaration. In a nested scope the local is declared
// before the body compiles, so a recursive call by name resolves as an
// upvalue (§9 "recursive-closure fragility"); at the top level the
// DEFGLOBAL is emitted after the body, and a recursive call compiles to
// GETGLOBAL, which resolves at call time once DEFGLOBAL has run.
func (c *Compiler) compileFunctionDecl(s *ast.FunctionDecl) {
	if c.scopeDepth > 1 || c.parent != nil {
		reg := c.declareLocal(s.Name, s.Line())
		c.compileFunctionLiteralInto(s.Name, s.Params, s.Body, s.Line(), reg)
		return
	}
	r := c.compileFunctionLiteral(s.Name, s.Params, s.Body, s.Line())
	k := c.constant(bytecode.Obj(bytecode.NewConstantString(s.Name)))
	c.emit(bytecode.NewABx(bytecode.DEFGLOBAL, r, k), s.Line())
	c.freeTo(r)
}
