package process

import "unsafe"

func uintptrOfByte(b *byte) uintptr { return uintptr(unsafe.Pointer(b)) }
