//go:build tinygo

package hal

import "unsafe"

// processImageBlockBytes is the size-aligned unit handed out to processes;
// it matches MAX_PROCESS_IMAGE_SIZE (kernel/config) on targets that support
// user processes. processImageArena is a fixed RAM region reserved by the
// linker script (outside scope, per spec.md §1) for process images; on
// targets without a linker-reserved section this falls back to a plain Go
// array, which is enough for the single-core default configuration.
const processImageBlockBytes = 16 * 1024

var processImageArena [64 * processImageBlockBytes]byte

func blockOffset(b *byte) int {
	return int(uintptr(unsafe.Pointer(b)) - uintptr(unsafe.Pointer(&processImageArena[0])))
}
