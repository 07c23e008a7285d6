// Package bytecode defines the instruction set and function-prototype
// (chunk) format that is the contract between the compiler and the VM
// (§4.1, §6.1) — the first of the spec's three CORE components.
package bytecode

import "fmt"

// OpCode is a single 7-bit operation code.
type OpCode uint8

const (
	// Loads
	LOADNIL   OpCode = iota // A B: R[A..A+B] = Null
	LOADTRUE                // A: R[A] = true
	LOADFALSE               // A: R[A] = false
	LOADI                   // A sBx: R[A] = int(sBx)
	LOADF                   // A sBx: R[A] = float(sBx)
	LOADK                   // A Bx: R[A] = K[Bx]

	MOVE // A B: R[A] = R[B]

	// Arithmetic
	ADD // A B C: R[A] = R[B] + R[C]
	SUB // A B C: R[A] = R[B] - R[C]
	MUL // A B C: R[A] = R[B] * R[C]
	DIV // A B C: R[A] = R[B] / R[C]
	MOD // A B C: R[A] = R[B] % R[C]
	UNM // A B:   R[A] = -R[B]
	NOT // A B:   R[A] = !truthy(R[B])

	// Comparisons write a boolean result, unlike TEST/TESTSET below.
	EQ // A B C k: R[A] = (R[B] == R[C]) != k   (k=true gives !=)
	LT // A B C: R[A] = R[B] < R[C]
	LE // A B C: R[A] = R[B] <= R[C]
	GT // A B C: R[A] = R[B] > R[C]
	GE // A B C: R[A] = R[B] >= R[C]

	// Control flow
	JMP     // sJ: pc += sJ
	TEST    // A k: skip next if truthy(R[A]) != k
	TESTSET // A B k: if truthy(R[B]) == k, R[A] = R[B]; else skip next instruction

	// Calls
	CALL   // A nargs: call R[A](R[A+1..A+nargs]), result into R[A]
	RETURN // A b: return R[A] if b>0 else Null

	// Closures and upvalues
	CLOSURE  // A Bx: R[A] = closure over proto.protos[Bx]
	GETUPVAL // A B: R[A] = upvalues[B]
	SETUPVAL // A B: upvalues[A] = R[B]
	CLOSE    // A: close every open upvalue with location >= &R[A]

	// Globals
	GETGLOBAL // A Bx: R[A] = globals[K[Bx]]
	SETGLOBAL // A Bx: globals[K[Bx]] = R[A]
	DEFGLOBAL // A Bx: define globals[K[Bx]] = R[A]

	// Aggregates
	NEWTABLE // A size: R[A] = new Array(capacity size)
	GETI     // A B C: R[A] = R[B][R[C]]
	SETI     // A B C: R[A][R[B]] = R[C]
	SETLIST  // A B C: install R[C..C+B-1] into array R[A]

	// Host surface
	PRINT // A: print(R[A])

	numOpcodes
)

var opcodeNames = [...]string{
	LOADNIL: "LOADNIL", LOADTRUE: "LOADTRUE", LOADFALSE: "LOADFALSE",
	LOADI: "LOADI", LOADF: "LOADF", LOADK: "LOADK", MOVE: "MOVE",
	ADD: "ADD", SUB: "SUB", MUL: "MUL", DIV: "DIV", MOD: "MOD",
	UNM: "UNM", NOT: "NOT",
	EQ: "EQ", LT: "LT", LE: "LE", GT: "GT", GE: "GE",
	JMP: "JMP", TEST: "TEST", TESTSET: "TESTSET",
	CALL: "CALL", RETURN: "RETURN",
	CLOSURE: "CLOSURE", GETUPVAL: "GETUPVAL", SETUPVAL: "SETUPVAL", CLOSE: "CLOSE",
	GETGLOBAL: "GETGLOBAL", SETGLOBAL: "SETGLOBAL", DEFGLOBAL: "DEFGLOBAL",
	NEWTABLE: "NEWTABLE", GETI: "GETI", SETI: "SETI", SETLIST: "SETLIST",
	PRINT: "PRINT",
}

func (op OpCode) String() string {
	if int(op) < len(opcodeNames) && opcodeNames[op] != "" {
		return opcodeNames[op]
	}
	return fmt.Sprintf("UNKNOWN(%d)", op)
}

// Format identifies which of the four operand layouts an instruction uses.
type Format uint8

const (
	FormatABC Format = iota
	FormatABx
	FormatAsBx
	FormatsJ
)

var opcodeFormats = [...]Format{
	LOADNIL: FormatABC, LOADTRUE: FormatABC, LOADFALSE: FormatABC,
	LOADI: FormatAsBx, LOADF: FormatAsBx, LOADK: FormatABx, MOVE: FormatABC,
	ADD: FormatABC, SUB: FormatABC, MUL: FormatABC, DIV: FormatABC, MOD: FormatABC,
	UNM: FormatABC, NOT: FormatABC,
	EQ: FormatABC, LT: FormatABC, LE: FormatABC, GT: FormatABC, GE: FormatABC,
	JMP: FormatsJ, TEST: FormatABC, TESTSET: FormatABC,
	CALL: FormatABC, RETURN: FormatABC,
	CLOSURE: FormatABx, GETUPVAL: FormatABC, SETUPVAL: FormatABC, CLOSE: FormatABC,
	GETGLOBAL: FormatABx, SETGLOBAL: FormatABx, DEFGLOBAL: FormatABx,
	NEWTABLE: FormatABC, GETI: FormatABC, SETI: FormatABC, SETLIST: FormatABC,
	PRINT: FormatABC,
}

func (op OpCode) Format() Format { return opcodeFormats[op] }
