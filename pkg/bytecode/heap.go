package bytecode

import "xray/pkg/xmap"

// Heap is the per-VM object registry and string intern table (§3.2, §3.3,
// §5). Every heap allocation threads through here so the collector
// contract's roots-and-reachability promise (§5) has one place to walk
// from; actual reclamation is left to the host's garbage collector (the
// spec explicitly leaves the reclamation algorithm unspecified — see
// DESIGN.md), so Heap's job is bookkeeping (the object list and mark
// bits), not freeing memory.
type Heap struct {
	objects *ObjHeader
	count   int
	interns *xmap.Map[*StringObj]
}

// NewHeap creates an empty, VM-owned heap.
func NewHeap() *Heap {
	return &Heap{interns: xmap.New[*StringObj]()}
}

func (h *Heap) register(hdr *ObjHeader) {
	hdr.next = h.objects
	h.objects = hdr
	h.count++
}

// Count returns the number of live heap objects, for diagnostics and
// tests.
func (h *Heap) Count() int { return h.count }

// Objects returns every registered object header, for collector-root
// walks and tests of the §5 reachability contract.
func (h *Heap) Objects() []*ObjHeader {
	out := make([]*ObjHeader, 0, h.count)
	for o := h.objects; o != nil; o = o.next {
		out = append(out, o)
	}
	return out
}

// UnmarkAll clears every object's mark bit, the first half of a
// mark-and-sweep pass.
func (h *Heap) UnmarkAll() {
	for o := h.objects; o != nil; o = o.next {
		o.marked = false
	}
}

// NewString returns the StringObj for s, reusing an existing interned
// StringObj if the content already exists (§3.3: "pointer equality ≡
// content equality for interned strings").
func (h *Heap) NewString(s string) *StringObj {
	if existing, ok := h.interns.Get(s); ok {
		return existing
	}
	obj := &StringObj{ObjHeader: ObjHeader{kind: ObjString}, Value: s, hash: fnvHash(s)}
	h.register(&obj.ObjHeader)
	h.interns.Set(s, obj)
	return obj
}

func fnvHash(s string) uint64 {
	const offset64 = 14695981039346656037
	const prime64 = 1099511628211
	h := uint64(offset64)
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= prime64
	}
	return h
}

// NewArray allocates a growable array object with the given initial
// elements (copied).
func (h *Heap) NewArray(elements []Value) *ArrayObj {
	obj := &ArrayObj{ObjHeader: ObjHeader{kind: ObjArray}}
	obj.Elements = append(obj.Elements, elements...)
	h.register(&obj.ObjHeader)
	return obj
}

// NewClosure allocates a closure over proto with upvalues already
// resolved by the VM's closure-materialization routine (§4.3).
func (h *Heap) NewClosure(proto *Proto, upvalues []*UpvalueObj) *ClosureObj {
	obj := &ClosureObj{ObjHeader: ObjHeader{kind: ObjClosure}, Proto: proto, Upvalues: upvalues}
	h.register(&obj.ObjHeader)
	return obj
}

// NewOpenUpvalue allocates an Upvalue in the open state, pointing at a
// live stack slot (§3.6).
func (h *Heap) NewOpenUpvalue(location *Value) *UpvalueObj {
	obj := &UpvalueObj{ObjHeader: ObjHeader{kind: ObjUpvalue}, location: location}
	h.register(&obj.ObjHeader)
	return obj
}
