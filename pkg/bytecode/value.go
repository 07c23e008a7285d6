package bytecode

import (
	"fmt"
	"strconv"
)

// Kind is the runtime tag of a Value (§3.1).
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindObj
)

// Value is the tagged discriminated union every register, constant and
// upvalue slot holds. Obj payloads are shared — many Values may reference
// the same heap Object — per §3.1's invariant.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	obj  Object
}

func Null() Value             { return Value{kind: KindNull} }
func Bool(b bool) Value       { return Value{kind: KindBool, b: b} }
func Int(i int64) Value       { return Value{kind: KindInt, i: i} }
func Float(f float64) Value   { return Value{kind: KindFloat, f: f} }
func Obj(o Object) Value      { return Value{kind: KindObj, obj: o} }

func (v Value) Kind() Kind    { return v.kind }
func (v Value) IsNull() bool  { return v.kind == KindNull }
func (v Value) IsBool() bool  { return v.kind == KindBool }
func (v Value) IsInt() bool   { return v.kind == KindInt }
func (v Value) IsFloat() bool { return v.kind == KindFloat }
func (v Value) IsObj() bool   { return v.kind == KindObj }
func (v Value) IsNumber() bool { return v.kind == KindInt || v.kind == KindFloat }

func (v Value) AsBool() bool     { return v.b }
func (v Value) AsInt() int64     { return v.i }
func (v Value) AsFloat() float64 { return v.f }
func (v Value) AsObj() Object    { return v.obj }

// AsFloat64 returns the numeric value as a float64 regardless of whether
// it is stored as Int or Float — used by the VM's numeric-promotion rules
// (§4.1, §4.5).
func (v Value) AsFloat64() float64 {
	if v.kind == KindInt {
		return float64(v.i)
	}
	return v.f
}

// Truthy implements §4.1's falsey rule: only Null and Bool(false) are
// falsey; every other value, including Int(0), Float(0.0) and the empty
// string, is truthy.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindNull:
		return false
	case KindBool:
		return v.b
	default:
		return true
	}
}

// ObjKind distinguishes which concrete Object a Value's obj field holds.
type ObjKind uint8

const (
	ObjString ObjKind = iota
	ObjArray
	ObjClosure
	ObjUpvalue
)

// Object is implemented by every heap-allocated payload a Value.Obj can
// reference (§3.1, §3.2).
type Object interface {
	ObjKind() ObjKind
	header() *ObjHeader
}

// ObjHeader is the header every heap object carries: a kind tag, a
// collector-internal "next" link threading every live object into one
// list, and a mark bit (§3.2).
type ObjHeader struct {
	kind   ObjKind
	marked bool
	next   *ObjHeader
}

func (h *ObjHeader) ObjKind() ObjKind  { return h.kind }
func (h *ObjHeader) header() *ObjHeader { return h }

// NewConstantString builds a StringObj for use as a Proto constant pool
// entry at compile time, when no VM (and so no intern table) exists yet.
// It is not interned or heap-registered itself; the VM re-interns every
// string constant against its own table the first time it loads a Proto
// (see VM.internConstants), which is what gives constant-pool strings
// §3.3's pointer-equality-iff-content-equality guarantee at run time.
func NewConstantString(s string) *StringObj {
	return &StringObj{ObjHeader: ObjHeader{kind: ObjString}, Value: s, hash: fnvHash(s)}
}

// Equal implements the VM's EQ semantics (§4.5): numeric kinds compare by
// value across Int/Float, Null == Null, objects compare by reference
// except that interned strings compare equal iff their references match
// (which, since strings are always interned, is equivalent to content
// equality), and any other cross-kind comparison is false.
func Equal(a, b Value) bool {
	if a.kind == KindNull && b.kind == KindNull {
		return true
	}
	if a.IsNumber() && b.IsNumber() {
		if a.kind == KindInt && b.kind == KindInt {
			return a.i == b.i
		}
		return a.AsFloat64() == b.AsFloat64()
	}
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindBool:
		return a.b == b.b
	case KindObj:
		if as, ok := a.obj.(*StringObj); ok {
			if bs, ok := b.obj.(*StringObj); ok {
				return as == bs // pointer equality; interning makes this content equality
			}
			return false
		}
		return a.obj == b.obj
	}
	return false
}

// String renders the canonical textual representation used by `print`
// (§4.5): Null -> "null", Bool -> "true"/"false", Int -> decimal, Float ->
// shortest round-trip decimal, String -> raw bytes, Array -> "[e0, e1,
// ...]", Closure -> "<function>".
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindObj:
		switch o := v.obj.(type) {
		case *StringObj:
			return o.Value
		case *ArrayObj:
			s := "["
			for i, e := range o.Elements {
				if i > 0 {
					s += ", "
				}
				s += e.String()
			}
			return s + "]"
		case *ClosureObj:
			return "<function>"
		default:
			return fmt.Sprintf("<obj %T>", o)
		}
	}
	return "<invalid value>"
}
