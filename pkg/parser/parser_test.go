package parser

import (
	"testing"

	"xray/pkg/ast"
	"xray/pkg/lexer"
)

func parseProgram(t *testing.T, src string) *ast.Program {
	t.Helper()
	p := New(lexer.New(src))
	prog := p.ParseProgram()
	if len(p.Errors) > 0 {
		t.Fatalf("unexpected parse errors for %q: %v", src, p.Errors)
	}
	return prog
}

func TestLetStmtNoSemicolon(t *testing.T) {
	prog := parseProgram(t, "let x = 10")
	if len(prog.Statements) != 1 {
		t.Fatalf("got %d statements, want 1", len(prog.Statements))
	}
	let, ok := prog.Statements[0].(*ast.LetStmt)
	if !ok {
		t.Fatalf("statement is %T, want *ast.LetStmt", prog.Statements[0])
	}
	if let.Name != "x" {
		t.Errorf("Name = %q, want x", let.Name)
	}
	v, ok := let.Value.(*ast.IntLit)
	if !ok || v.Value != 10 {
		t.Errorf("Value = %v, want IntLit(10)", let.Value)
	}
}

// The spec's own §8 example programs separate same-line statements with
// nothing but whitespace, never a semicolon, and call `print` with parens.
func TestMultipleStatementsOnOneLineNoSemicolons(t *testing.T) {
	src := `let x = 10  let y = 20  print(x + y)  if (x + y > 25) { print(100) } else { print(200) }`
	prog := parseProgram(t, src)
	if len(prog.Statements) != 4 {
		t.Fatalf("got %d statements, want 4: %#v", len(prog.Statements), prog.Statements)
	}
	if _, ok := prog.Statements[0].(*ast.LetStmt); !ok {
		t.Errorf("statement 0 is %T, want *ast.LetStmt", prog.Statements[0])
	}
	if _, ok := prog.Statements[1].(*ast.LetStmt); !ok {
		t.Errorf("statement 1 is %T, want *ast.LetStmt", prog.Statements[1])
	}
	print, ok := prog.Statements[2].(*ast.PrintStmt)
	if !ok {
		t.Fatalf("statement 2 is %T, want *ast.PrintStmt", prog.Statements[2])
	}
	if _, ok := print.Value.(*ast.BinaryExpr); !ok {
		t.Errorf("print value is %T, want *ast.BinaryExpr", print.Value)
	}
	if _, ok := prog.Statements[3].(*ast.IfStmt); !ok {
		t.Errorf("statement 3 is %T, want *ast.IfStmt", prog.Statements[3])
	}
}

func TestSemicolonsAreOptionalButAccepted(t *testing.T) {
	prog := parseProgram(t, "let x = 1; let y = 2;")
	if len(prog.Statements) != 2 {
		t.Fatalf("got %d statements, want 2", len(prog.Statements))
	}
}

func TestForLoopHeaderRequiresSemicolons(t *testing.T) {
	prog := parseProgram(t, "for (let i = 0; i < 10; i = i + 1) { print(i) }")
	forStmt, ok := prog.Statements[0].(*ast.ForStmt)
	if !ok {
		t.Fatalf("statement is %T, want *ast.ForStmt", prog.Statements[0])
	}
	if forStmt.Init == nil || forStmt.Cond == nil || forStmt.Incr == nil {
		t.Fatalf("for-loop clauses not all parsed: %+v", forStmt)
	}
}

func TestForLoopEmptyClauses(t *testing.T) {
	prog := parseProgram(t, "for (;;) { break }")
	forStmt, ok := prog.Statements[0].(*ast.ForStmt)
	if !ok {
		t.Fatalf("statement is %T, want *ast.ForStmt", prog.Statements[0])
	}
	if forStmt.Init != nil || forStmt.Cond != nil || forStmt.Incr != nil {
		t.Fatalf("expected all-nil for-loop clauses, got %+v", forStmt)
	}
}

func TestOperatorPrecedence(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"1 + 2 * 3", "(1 + (2 * 3))"},
		{"(1 + 2) * 3", "((1 + 2) * 3)"},
		{"1 < 2 == 3 < 4", "((1 < 2) == (3 < 4))"},
		{"a || b && c", "(a || (b && c))"},
		{"-a * b", "((-a) * b)"},
		{"!-a", "(!(-a))"},
	}
	for _, tt := range tests {
		prog := parseProgram(t, tt.input)
		exprStmt, ok := prog.Statements[0].(*ast.ExprStmt)
		if !ok {
			t.Fatalf("%q: statement is %T, want *ast.ExprStmt", tt.input, prog.Statements[0])
		}
		got := stringify(exprStmt.X)
		if got != tt.want {
			t.Errorf("%q: got %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestFunctionLiteralAndCall(t *testing.T) {
	prog := parseProgram(t, "function add(a, b) { return a + b }  add(1, 2)")
	decl, ok := prog.Statements[0].(*ast.FunctionDecl)
	if !ok {
		t.Fatalf("statement 0 is %T, want *ast.FunctionDecl", prog.Statements[0])
	}
	if decl.Name != "add" || len(decl.Params) != 2 {
		t.Errorf("decl = %+v", decl)
	}
	exprStmt, ok := prog.Statements[1].(*ast.ExprStmt)
	if !ok {
		t.Fatalf("statement 1 is %T, want *ast.ExprStmt", prog.Statements[1])
	}
	call, ok := exprStmt.X.(*ast.CallExpr)
	if !ok || len(call.Args) != 2 {
		t.Fatalf("call = %+v", exprStmt.X)
	}
}

func TestArrayLiteralAndIndex(t *testing.T) {
	prog := parseProgram(t, "let a = [1, 2, 3]  a[0] = 9")
	let := prog.Statements[0].(*ast.LetStmt)
	arr, ok := let.Value.(*ast.ArrayLit)
	if !ok || len(arr.Elements) != 3 {
		t.Fatalf("array = %+v", let.Value)
	}
	assign, ok := prog.Statements[1].(*ast.AssignStmt)
	if !ok {
		t.Fatalf("statement 1 is %T, want *ast.AssignStmt", prog.Statements[1])
	}
	if _, ok := assign.Target.(*ast.IndexExpr); !ok {
		t.Errorf("assign target is %T, want *ast.IndexExpr", assign.Target)
	}
}

func TestParseErrorOnMissingToken(t *testing.T) {
	p := New(lexer.New("let x = "))
	p.ParseProgram()
	if len(p.Errors) == 0 {
		t.Fatalf("expected parse errors for incomplete let statement")
	}
}

// stringify renders an expression with fully parenthesized operators, for
// asserting precedence without depending on a full pretty-printer.
func stringify(x ast.Expr) string {
	switch e := x.(type) {
	case *ast.Identifier:
		return e.Name
	case *ast.IntLit:
		return itoa(e.Value)
	case *ast.UnaryExpr:
		return "(" + e.Op + stringify(e.X) + ")"
	case *ast.BinaryExpr:
		return "(" + stringify(e.Left) + " " + e.Op + " " + stringify(e.Right) + ")"
	default:
		return "?"
	}
}

func itoa(v int64) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var b []byte
	for v > 0 {
		b = append([]byte{byte('0' + v%10)}, b...)
		v /= 10
	}
	if neg {
		b = append([]byte{'-'}, b...)
	}
	return string(b)
}
