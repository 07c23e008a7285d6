package bytecode

// Instruction is a single fixed-width 32-bit bytecode word, little-endian
// on the wire (§6.1). Bit layout, LSB to MSB:
//
//	iABC:  opcode(7) A(8) B(8) C(8) k(1)
//	iABx:  opcode(7) A(8) Bx(17)
//	iAsBx: opcode(7) A(8) sBx(17, excess-BiasSBx)
//	isJ:   opcode(7) sJ(25, excess-BiasSJ)
//
// Two VMs built from different bias choices do not exchange bytecode —
// §6.1 only requires that a single implementation document its bias, not
// that it match any other.
type Instruction uint32

const (
	opShift = 0
	opMask  = 0x7F // 7 bits

	aShiftABC = 7
	aMaskABC  = 0xFF // 8 bits
	bShiftABC = 15
	bMaskABC  = 0xFF
	cShiftABC = 23
	cMaskABC  = 0xFF
	kShiftABC = 31
	kMaskABC  = 0x1

	aShiftABx = 7
	bxShiftABx = 15
	bxMaskABx  = 0x1FFFF // 17 bits

	// BiasSBx is the excess-K bias for the 17-bit signed sBx field.
	BiasSBx = 1 << 16
	// BiasSJ is the excess-K bias for the 25-bit signed sJ field.
	BiasSJ = 1 << 24

	sJShift = 7
)

// sJFieldMask covers the 25-bit sJ field: opcode(7) + sJ(25) = 32.
const sJFieldMask = (1 << 25) - 1

// MaxSBx and MinSBx bound the signed range an iAsBx jump/immediate field
// can encode with BiasSBx; a compiler emitting a larger value must report
// a compile error per §4.2 ("a jump offset out of the encodable signed
// range is a compile error").
const (
	MaxSBx = (1 << 17) - 1 - BiasSBx
	MinSBx = -BiasSBx
	MaxSJ  = (1 << 25) - 1 - BiasSJ
	MinSJ  = -BiasSJ
)

func NewABC(op OpCode, a, b, c uint8, k bool) Instruction {
	var kb uint32
	if k {
		kb = 1
	}
	return Instruction(uint32(op)&opMask |
		uint32(a)<<aShiftABC |
		uint32(b)<<bShiftABC |
		uint32(c)<<cShiftABC |
		kb<<kShiftABC)
}

func NewABx(op OpCode, a uint8, bx uint32) Instruction {
	return Instruction(uint32(op)&opMask |
		uint32(a)<<aShiftABx |
		(bx&bxMaskABx)<<bxShiftABx)
}

func NewAsBx(op OpCode, a uint8, sbx int32) Instruction {
	biased := uint32(sbx + BiasSBx)
	return Instruction(uint32(op)&opMask |
		uint32(a)<<aShiftABx |
		(biased&bxMaskABx)<<bxShiftABx)
}

func NewsJ(op OpCode, sj int32) Instruction {
	biased := uint32(sj + BiasSJ)
	return Instruction(uint32(op)&opMask | (biased&sJFieldMask)<<sJShift)
}

func (i Instruction) OpCode() OpCode { return OpCode(uint32(i) & opMask) }

func (i Instruction) A() uint8 { return uint8((uint32(i) >> aShiftABC) & aMaskABC) }
func (i Instruction) B() uint8 { return uint8((uint32(i) >> bShiftABC) & bMaskABC) }
func (i Instruction) C() uint8 { return uint8((uint32(i) >> cShiftABC) & cMaskABC) }
func (i Instruction) K() bool  { return (uint32(i)>>kShiftABC)&kMaskABC != 0 }

func (i Instruction) Bx() uint32 {
	return (uint32(i) >> bxShiftABx) & bxMaskABx
}

func (i Instruction) SBx() int32 {
	return int32(i.Bx()) - BiasSBx
}

func (i Instruction) SJ() int32 {
	biased := (uint32(i) >> sJShift) & sJFieldMask
	return int32(biased) - BiasSJ
}

// Encode serializes the instruction as 4 little-endian bytes.
func (i Instruction) Encode() [4]byte {
	v := uint32(i)
	return [4]byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}

// Decode reads a little-endian 32-bit instruction word.
func Decode(b [4]byte) Instruction {
	return Instruction(uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24)
}
