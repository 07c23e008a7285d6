package vm

import (
	"bytes"
	"strings"
	"testing"

	"xray/pkg/bytecode"
	"xray/pkg/compiler"
	"xray/pkg/lexer"
	"xray/pkg/parser"
	"xray/pkg/xerr"
)

// run compiles and executes src on a fresh VM, returning the captured
// stdout (trimmed) and any RuntimeError.
func run(t *testing.T, src string, opts Options) (string, *xerr.RuntimeError) {
	t.Helper()
	p := parser.New(lexer.New(src))
	prog := p.ParseProgram()
	if len(p.Errors) > 0 {
		t.Fatalf("unexpected parse errors for %q: %v", src, p.Errors)
	}
	proto, errs := compiler.Compile(prog)
	if len(errs) > 0 {
		t.Fatalf("unexpected compile errors for %q: %v", src, errs)
	}
	var buf bytes.Buffer
	opts.Stdout = &buf
	vmInstance := New(opts)
	_, rerr := vmInstance.Interpret(proto)
	return strings.TrimSpace(buf.String()), rerr
}

func runOK(t *testing.T, src string) string {
	t.Helper()
	out, err := run(t, src, Options{})
	if err != nil {
		t.Fatalf("unexpected runtime error for %q: %v", src, err)
	}
	return out
}

func TestArithmeticIntStaysInt(t *testing.T) {
	out := runOK(t, "print(1 + 2 * 3)")
	if out != "7" {
		t.Errorf("got %q, want %q", out, "7")
	}
}

func TestArithmeticPromotesToFloatWithFloatOperand(t *testing.T) {
	out := runOK(t, "print(1 + 2.5)")
	if out != "3.5" {
		t.Errorf("got %q, want %q", out, "3.5")
	}
}

func TestDivisionAlwaysProducesFloat(t *testing.T) {
	out := runOK(t, "print(4 / 2)")
	if out != "2" {
		t.Errorf("got %q, want %q", out, "2")
	}
}

func TestDivisionByZeroIsRuntimeArithError(t *testing.T) {
	_, err := run(t, "print(1 / 0)", Options{})
	if err == nil {
		t.Fatalf("expected a runtime error for division by zero")
	}
	if err.K != xerr.RuntimeArith {
		t.Errorf("Kind() = %v, want RuntimeArith", err.Kind())
	}
}

func TestModuloByZeroIsRuntimeArithError(t *testing.T) {
	_, err := run(t, "print(5 % 0)", Options{})
	if err == nil {
		t.Fatalf("expected a runtime error for modulo by zero")
	}
	if err.K != xerr.RuntimeArith {
		t.Errorf("Kind() = %v, want RuntimeArith", err.Kind())
	}
}

// ADD is numeric-only; strings have no arithmetic operators, so adding
// two strings is a RuntimeType error like any other non-numeric operand.
func TestStringAdditionIsRuntimeTypeError(t *testing.T) {
	_, err := run(t, `print("foo" + "bar")`, Options{})
	if err == nil {
		t.Fatalf("expected a runtime error adding two strings")
	}
	if err.K != xerr.RuntimeType {
		t.Errorf("Kind() = %v, want RuntimeType", err.Kind())
	}
}

func TestStringEqualityBetweenTwoConstantOccurrences(t *testing.T) {
	out := runOK(t, `
let a = "foobar"
let b = "foobar"
print(a == b)
`)
	if out != "true" {
		t.Errorf("got %q, want %q", out, "true")
	}
}

func TestComparisonOperators(t *testing.T) {
	out := runOK(t, `
print(1 < 2)
print(2 <= 2)
print(3 > 2)
print(2 >= 3)
`)
	want := "true\ntrue\ntrue\nfalse"
	if out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

func TestStringLexicographicComparison(t *testing.T) {
	out := runOK(t, `print("abc" < "abd")`)
	if out != "true" {
		t.Errorf("got %q, want %q", out, "true")
	}
}

func TestIfElseBranching(t *testing.T) {
	out := runOK(t, `
if (1 > 2) { print("no") } else { print("yes") }
`)
	if out != "yes" {
		t.Errorf("got %q, want %q", out, "yes")
	}
}

func TestWhileLoop(t *testing.T) {
	out := runOK(t, `
let i = 0
let sum = 0
while (i < 5) {
	sum = sum + i
	i = i + 1
}
print(sum)
`)
	if out != "10" {
		t.Errorf("got %q, want %q", out, "10")
	}
}

func TestForLoopZeroIterations(t *testing.T) {
	out := runOK(t, `
let count = 0
for (let i = 0; i < 0; i = i + 1) {
	count = count + 1
}
print(count)
`)
	if out != "0" {
		t.Errorf("got %q, want %q", out, "0")
	}
}

func TestForLoopBreakAndContinue(t *testing.T) {
	out := runOK(t, `
let sum = 0
for (let i = 0; i < 10; i = i + 1) {
	if (i == 5) { break }
	if (i % 2 == 0) { continue }
	sum = sum + i
}
print(sum)
`)
	// i = 1, 3 contribute (i=5 breaks before adding); 1+3 = 4
	if out != "4" {
		t.Errorf("got %q, want %q", out, "4")
	}
}

func TestLogicalAndShortCircuits(t *testing.T) {
	out := runOK(t, `print(false && (1 / 0 > 0))`)
	if out != "false" {
		t.Errorf("got %q, want %q; division should never execute", out, "false")
	}
}

func TestLogicalOrShortCircuits(t *testing.T) {
	out := runOK(t, `print(true || (1 / 0 > 0))`)
	if out != "true" {
		t.Errorf("got %q, want %q; division should never execute", out, "true")
	}
}

func TestClosureCapturesUpvalueByReference(t *testing.T) {
	out := runOK(t, `
function makeCounter() {
	let count = 0
	function increment() {
		count = count + 1
		return count
	}
	return increment
}
let counter = makeCounter()
print(counter())
print(counter())
print(counter())
`)
	want := "1\n2\n3"
	if out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

func TestTwoClosuresShareTheSameUpvalue(t *testing.T) {
	out := runOK(t, `
function makePair() {
	let shared = 0
	function get() { return shared }
	function set(v) { shared = v }
	print(get())
	set(42)
	print(get())
}
makePair()
`)
	want := "0\n42"
	if out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

func TestRecursiveFunction(t *testing.T) {
	out := runOK(t, `
function fact(n) {
	if (n <= 1) { return 1 }
	return n * fact(n - 1)
}
print(fact(5))
`)
	if out != "120" {
		t.Errorf("got %q, want %q", out, "120")
	}
}

// Regression test grounded on the recursive-closure-fragility case: a
// nested function declaration that calls itself by name, returned from a
// factory and then bound with `let`, must still be able to recurse.
func TestRecursiveClosureBoundViaLet(t *testing.T) {
	out := runOK(t, `
function makeFact() {
	function fact(n) {
		if (n <= 1) { return 1 }
		return n * fact(n - 1)
	}
	return fact
}
let fact = makeFact()
print(fact(5))
`)
	if out != "120" {
		t.Errorf("got %q, want %q", out, "120")
	}
}

func TestArrayLiteralAndIndexing(t *testing.T) {
	out := runOK(t, `
let a = [10, 20, 30]
print(a[0])
print(a[2])
`)
	want := "10\n30"
	if out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

func TestArrayAutoGrowthOnWrite(t *testing.T) {
	out := runOK(t, `
let a = [1]
a[3] = 99
print(a[1])
print(a[3])
`)
	want := "null\n99"
	if out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

func TestArrayOutOfRangeReadIsRuntimeBoundsError(t *testing.T) {
	_, err := run(t, `
let a = [1]
print(a[5])
`, Options{})
	if err == nil {
		t.Fatalf("expected a runtime error for an out-of-range array read")
	}
	if err.K != xerr.RuntimeBounds {
		t.Errorf("Kind() = %v, want RuntimeBounds", err.Kind())
	}
}

func TestGlobalsPersistAcrossInterpretCalls(t *testing.T) {
	var buf bytes.Buffer
	vmInstance := New(Options{Stdout: &buf})

	first := mustCompile(t, "let shared = 1")
	if _, err := vmInstance.Interpret(first); err != nil {
		t.Fatalf("unexpected error on first Interpret: %v", err)
	}

	second := mustCompile(t, "print(shared)")
	if _, err := vmInstance.Interpret(second); err != nil {
		t.Fatalf("unexpected error on second Interpret: %v", err)
	}
	if got := strings.TrimSpace(buf.String()); got != "1" {
		t.Errorf("got %q, want %q", got, "1")
	}
}

func TestDeepRecursionWithinFramesMaxSucceeds(t *testing.T) {
	opts := Options{FramesMax: 50}
	out, err := run(t, `
function countdown(n) {
	if (n <= 0) { return 0 }
	return countdown(n - 1)
}
print(countdown(40))
`, opts)
	if err != nil {
		t.Fatalf("unexpected runtime error: %v", err)
	}
	if out != "0" {
		t.Errorf("got %q, want %q", out, "0")
	}
}

func TestRecursionBeyondFramesMaxRaisesStackOverflow(t *testing.T) {
	opts := Options{FramesMax: 10}
	_, err := run(t, `
function recurse(n) {
	return recurse(n + 1)
}
recurse(0)
`, opts)
	if err == nil {
		t.Fatalf("expected a stack-overflow runtime error")
	}
	if err.K != xerr.RuntimeResource {
		t.Errorf("Kind() = %v, want RuntimeResource", err.Kind())
	}
}

func TestCallingNonFunctionIsRuntimeTypeError(t *testing.T) {
	_, err := run(t, `
let x = 5
x()
`, Options{})
	if err == nil {
		t.Fatalf("expected a runtime error for calling a non-function")
	}
	if err.K != xerr.RuntimeType {
		t.Errorf("Kind() = %v, want RuntimeType", err.Kind())
	}
}

func TestAssigningUndeclaredGlobalIsRuntimeTypeError(t *testing.T) {
	_, err := run(t, "neverDeclared = 1", Options{})
	if err == nil {
		t.Fatalf("expected a runtime error assigning to an undeclared global")
	}
	if err.K != xerr.RuntimeType {
		t.Errorf("Kind() = %v, want RuntimeType", err.Kind())
	}
}

func TestCallWithTooFewArgumentsIsRuntimeTypeError(t *testing.T) {
	_, err := run(t, `
function add(a, b) { return a + b }
add(1)
`, Options{})
	if err == nil {
		t.Fatalf("expected a runtime error for an arity mismatch")
	}
	if err.K != xerr.RuntimeType {
		t.Errorf("Kind() = %v, want RuntimeType", err.Kind())
	}
}

func TestCallWithTooManyArgumentsIsRuntimeTypeError(t *testing.T) {
	_, err := run(t, `
function add(a, b) { return a + b }
add(1, 2, 3)
`, Options{})
	if err == nil {
		t.Fatalf("expected a runtime error for an arity mismatch")
	}
	if err.K != xerr.RuntimeType {
		t.Errorf("Kind() = %v, want RuntimeType", err.Kind())
	}
}

func mustCompile(t *testing.T, src string) *bytecode.Proto {
	t.Helper()
	p := parser.New(lexer.New(src))
	prog := p.ParseProgram()
	if len(p.Errors) > 0 {
		t.Fatalf("unexpected parse errors for %q: %v", src, p.Errors)
	}
	proto, errs := compiler.Compile(prog)
	if len(errs) > 0 {
		t.Fatalf("unexpected compile errors for %q: %v", src, errs)
	}
	return proto
}
