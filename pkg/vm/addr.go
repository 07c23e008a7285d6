package vm

import (
	"unsafe"

	"xray/pkg/bytecode"
)

// uintptrOf is an ordering/identity key for a register slot's address,
// mirroring bytecode.UpvalueObj.Addr()'s own use of unsafe.Pointer — never
// dereferenced, only compared (§3.6, §4.4).
func uintptrOf(v *bytecode.Value) uintptr {
	return uintptr(unsafe.Pointer(v))
}
