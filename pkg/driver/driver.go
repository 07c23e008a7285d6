// Package driver wires the pipeline stages — lexer, parser, compiler,
// vm — behind one session type, the way nooga-paserati's top-level
// driver.go does for its own front-end-to-engine handoff.
package driver

import (
	lru "github.com/hashicorp/golang-lru"

	"xray/pkg/ast"
	"xray/pkg/bytecode"
	"xray/pkg/compiler"
	"xray/pkg/lexer"
	"xray/pkg/parser"
	"xray/pkg/vm"
	"xray/pkg/xerr"
)

// cacheSize bounds the compiled-Proto cache below; a REPL session or a
// test suite that re-evaluates the same snippet repeatedly shouldn't
// re-run the lexer/parser/compiler each time.
const cacheSize = 128

// Session bundles one VM with a bounded compile cache, so a REPL or a
// batch of `-e` evaluations sharing a process reuses both global state
// and already-compiled snippets.
type Session struct {
	vm    *vm.VM
	cache *lru.Cache
}

// New creates a Session with a fresh VM and an empty compile cache.
func New(opts vm.Options) *Session {
	c, err := lru.New(cacheSize)
	if err != nil {
		// lru.New only errors on a non-positive size, which cacheSize
		// never is.
		panic(err)
	}
	return &Session{vm: vm.New(opts), cache: c}
}

// VM exposes the underlying VM, mainly for tests and the CLI's
// disassemble mode.
func (s *Session) VM() *vm.VM { return s.vm }

// CompileResult is what Compile returns: either a usable Proto, or
// diagnostics from whichever stage rejected the source.
type CompileResult struct {
	Proto  *bytecode.Proto
	Errors []*xerr.Error
}

// Compile lexes, parses and compiles src, short-circuiting at the first
// stage that reports errors (§4.6: a failed compile never reaches the
// VM). Successful compiles are cached by source text.
func (s *Session) Compile(name, src string) CompileResult {
	if cached, ok := s.cache.Get(src); ok {
		return CompileResult{Proto: cached.(*bytecode.Proto)}
	}

	l := lexer.New(src)
	p := parser.New(l)
	program := p.ParseProgram()

	if len(l.Errors) > 0 {
		return CompileResult{Errors: l.Errors}
	}
	if len(p.Errors) > 0 {
		return CompileResult{Errors: p.Errors}
	}

	proto, cerrs := compiler.Compile(program)
	if len(cerrs) > 0 {
		return CompileResult{Errors: cerrs}
	}

	s.cache.Add(src, proto)
	return CompileResult{Proto: proto}
}

// Run compiles and immediately executes src, returning the top-level
// RETURN value.
func (s *Session) Run(name, src string) (bytecode.Value, []*xerr.Error, *xerr.RuntimeError) {
	res := s.Compile(name, src)
	if len(res.Errors) > 0 {
		return bytecode.Value{}, res.Errors, nil
	}
	result, rerr := s.vm.Interpret(res.Proto)
	return result, nil, rerr
}

// Parse exposes just the parse stage, for disassemble-only tooling that
// wants the AST without running the compiler.
func Parse(src string) (*ast.Program, []*xerr.Error, []*xerr.Error) {
	l := lexer.New(src)
	p := parser.New(l)
	program := p.ParseProgram()
	return program, l.Errors, p.Errors
}
