package kernel

import (
	"sync"
	"sync/atomic"

	"rtcore/kernel/port"
	"rtcore/kernel/thread"
)

// FatalInfo describes an unrecoverable kernel condition: a stack overflow
// caught by the watermark check. A process fault is not reported here; it
// ends only the offending process. Grounded on the
// teacher's sparkos/kernel PanicInfo/SetPanicHandler pair, generalized
// from "a goroutine panicked" to the kernel's own fault taxonomy.
type FatalInfo struct {
	ThreadName string
	Class      port.FaultClass
	Detail     string
}

var (
	fatalOnce    sync.Once
	fatalActive  atomic.Bool
	fatalHandler atomic.Value // func(FatalInfo)
)

// SetFatalHandler installs the process-wide fatal handler, called at most
// once, on the first fatal condition observed on any core. It must not
// itself panic or block indefinitely expecting the kernel to keep
// scheduling; by the time it runs, the dispatcher loops are not expected
// to make further progress.
func SetFatalHandler(fn func(FatalInfo)) { fatalHandler.Store(fn) }

// InFatalMode reports whether the kernel has already entered its fatal
// path, for any code that wants to stop touching shared state once true.
func InFatalMode() bool { return fatalActive.Load() }

func triggerFatal(info FatalInfo) {
	fatalOnce.Do(func() {
		fatalActive.Store(true)
		if v := fatalHandler.Load(); v != nil {
			if fn, ok := v.(func(FatalInfo)); ok && fn != nil {
				fn(info)
			}
		}
	})
}

func (k *Kernel) reportFatal(t *thread.Thread, class port.FaultClass, detail string) {
	name := "?"
	if t != nil {
		name = t.Name()
	}
	triggerFatal(FatalInfo{ThreadName: name, Class: class, Detail: detail})
}
