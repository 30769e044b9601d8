package app

import (
	"time"

	"rtcore/kernel"
)

// scheduleDemoWorkload creates cfg.Workers fixed-priority worker threads
// contending over one shared mutex and one counting semaphore, so a boot
// with no application code still exercises priority inheritance and the
// semaphore's FIFO wakeup order end to end.
func scheduleDemoWorkload(k *kernel.Kernel, cfg Config) {
	n := cfg.Workers
	if n <= 0 {
		return
	}

	mu := k.NewMutex()
	sem := k.NewSemaphore(0)

	for i := 0; i < n; i++ {
		priority := i % 8
		name := "worker"
		core := i % k.NumCores()

		k.CreateThread(name, priority, core, 0, func() {
			self := k.Current(core)
			for {
				if err := mu.Lock(self); err == nil {
					time.Sleep(time.Millisecond)
					mu.Unlock(self)
				}
				sem.Signal()
				k.Sleep(self, 10*time.Millisecond)
			}
		})
	}

	k.CreateThread("producer", 1, 0, 0, func() {
		self := k.Current(0)
		for {
			sem.Wait(self)
			k.Sleep(self, time.Millisecond)
		}
	})
}
