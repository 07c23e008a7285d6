package bytecode

import "testing"

func TestProtoEmitRecordsLineInfo(t *testing.T) {
	p := NewProto("main")
	off := p.Emit(NewABC(MOVE, 0, 1, 0, false), 10)
	if off != 0 {
		t.Fatalf("Emit returned offset %d, want 0", off)
	}
	off = p.Emit(NewABC(MOVE, 1, 2, 0, false), 11)
	if off != 1 {
		t.Fatalf("Emit returned offset %d, want 1", off)
	}
	if len(p.Code) != 2 || len(p.LineInfo) != 2 {
		t.Fatalf("Code/LineInfo length mismatch: %d/%d", len(p.Code), len(p.LineInfo))
	}
	if p.LineInfo[0] != 10 || p.LineInfo[1] != 11 {
		t.Fatalf("LineInfo = %v, want [10 11]", p.LineInfo)
	}
}

func TestProtoAddConstantNoDedup(t *testing.T) {
	p := NewProto("main")
	i0 := p.AddConstant(Int(1))
	i1 := p.AddConstant(Int(1))
	if i0 == i1 {
		t.Fatalf("AddConstant deduplicated; that is the compiler's job, not Proto's")
	}
	if len(p.Constants) != 2 {
		t.Fatalf("Constants len = %d, want 2", len(p.Constants))
	}
}

func TestProtoAddProto(t *testing.T) {
	p := NewProto("outer")
	child := NewProto("inner")
	idx := p.AddProto(child)
	if idx != 0 {
		t.Fatalf("AddProto index = %d, want 0", idx)
	}
	if p.Protos[0] != child {
		t.Fatalf("Protos[0] should be the registered child")
	}
}
