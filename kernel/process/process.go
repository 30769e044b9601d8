// Package process implements the userspace/MPU transition path of
// spec.md §4.F: a process image carved from hal.ImagePool, an MPU region
// set restricting it to that image, a two-context-save-slot model for
// crossing the syscall boundary, and fault-to-ExitStatus translation.
// Grounded on the teacher's sparkos/kernel process image handling,
// generalized from its fixed single-process layout to a pool of reusable
// process slots.
package process

import (
	"sync"

	"rtcore/hal"
	"rtcore/kernel/config"
	"rtcore/kernel/port"
	"rtcore/kernel/thread"
)

// ID identifies a process for the lifetime of its slot.
type ID uint32

// ctxSlots holds the two save areas a syscall crossing needs: the user
// frame the process was running on, and the kernel-mode frame that
// services the call on its behalf. Exactly one of the two is "live" at a
// time; SVC entry swaps from user to kernel, exception return swaps back.
type ctxSlots struct {
	user   *port.Frame
	kernel *port.Frame
}

// Process is one running (or exited, awaiting reap) user process.
type Process struct {
	ID ID

	image     []byte
	imageSize int
	mpu       port.MPU
	ctx       ctxSlots
	mainThr   *thread.Thread

	mu     sync.Mutex
	status *ExitStatus
	waitCh chan ExitStatus

	pool hal.ImagePool
}

// Pool hands out process slots backed by a hal.ImagePool, reusing a slot
// once its previous occupant has been reaped, per spec.md §4.F's note
// that a faulted process's slot becomes available again rather than
// being permanently retired.
type Pool struct {
	mu      sync.Mutex
	imgPool hal.ImagePool
	nextID  ID
	live    map[ID]*Process
}

func NewPool(imgPool hal.ImagePool) *Pool {
	return &Pool{imgPool: imgPool, live: make(map[ID]*Process)}
}

// Load allocates an image block, configures an MPU region over it, and
// builds the process's two context slots. Starting and scheduling the
// user frame is left to the caller (kernel.LoadProcess does both).
func (p *Pool) Load(size int, kernelStack, userStack []byte) (*Process, error) {
	if size > config.MaxProcessImageSize {
		return nil, hal.ErrNotImplemented
	}
	block, actual, ok := p.imgPool.Allocate(size)
	if !ok {
		return nil, hal.ErrNotImplemented
	}

	proc := &Process{
		image:     block,
		imageSize: actual,
		pool:      p.imgPool,
		waitCh:    make(chan ExitStatus, 1),
	}
	proc.mpu.Configure([]port.Region{{
		Base: addrOf(block),
		Size: uintptr(actual),
		Perm: port.PermRead | port.PermWrite | port.PermExecute,
	}})
	proc.ctx.user = port.NewFrame(userStack, true)
	proc.ctx.kernel = port.NewFrame(kernelStack, false)

	p.mu.Lock()
	p.nextID++
	proc.ID = p.nextID
	p.live[proc.ID] = proc
	p.mu.Unlock()

	return proc, nil
}

// Reap releases a process's image block back to the pool and drops its
// slot, making both available for the next Load. Calling Reap before the
// process has exited is a caller bug.
func (p *Pool) Reap(proc *Process) {
	proc.mu.Lock()
	exited := proc.status != nil
	proc.mu.Unlock()
	if !exited {
		return
	}
	p.mu.Lock()
	delete(p.live, proc.ID)
	p.mu.Unlock()
	p.imgPool.Deallocate(proc.image)
}

// Exit records proc's termination status and wakes any waiter.
func (proc *Process) Exit(status ExitStatus) {
	proc.mu.Lock()
	if proc.status != nil {
		proc.mu.Unlock()
		return
	}
	proc.status = &status
	proc.mu.Unlock()
	proc.waitCh <- status
}

// Wait blocks until proc exits and returns its status.
func (proc *Process) Wait() ExitStatus {
	proc.mu.Lock()
	if proc.status != nil {
		s := *proc.status
		proc.mu.Unlock()
		return s
	}
	proc.mu.Unlock()
	return <-proc.waitCh
}

// Image returns the process's backing image block. Only the process's own
// userspace frame should write into it; the kernel facade only reads it
// to copy syscall buffer contents out, the same single-peek discipline
// EnterSyscall uses for register arguments.
func (proc *Process) Image() []byte { return proc.image }

// ImageAddr returns the base address ValidateBuffer checks syscall
// pointer arguments against.
func (proc *Process) ImageAddr() uintptr { return addrOf(proc.image) }

// UserFrame returns the process's userspace dispatch frame, for the
// kernel facade to schedule as an ordinary thread.
func (proc *Process) UserFrame() *port.Frame { return proc.ctx.user }

// KernelFrame returns the process's kernel-mode syscall-servicing frame.
func (proc *Process) KernelFrame() *port.Frame { return proc.ctx.kernel }

// MainThread returns the thread running the process's userspace frame.
func (proc *Process) MainThread() *thread.Thread { return proc.mainThr }

// SetMainThread attaches the kernel thread object driving this process's
// user frame, set once by the caller after scheduling it.
func (proc *Process) SetMainThread(t *thread.Thread) { proc.mainThr = t }

// MPU returns the process's configured memory region set, so the CPU
// port's fault handler can tell an out-of-region access apart from one
// that is merely unaligned.
func (proc *Process) MPU() *port.MPU { return &proc.mpu }

func addrOf(b []byte) uintptr {
	if len(b) == 0 {
		return 0
	}
	return uintptrOfByte(&b[0])
}
