package kernel

import (
	"sync"
	"time"

	"github.com/GriffinCanCode/NanoOS/kernel/internal/kernel/event"
	"github.com/GriffinCanCode/NanoOS/kernel/internal/shared/id"
)

// Thread is a kernel thread: a saved context plus a state tag. A thread
// belongs to exactly one process for its entire lifetime.
type Thread struct {
	objectHeader

	id   id.TID
	proc *Process

	// nameMu guards name only; everything below is guarded by the kernel
	// mutex.
	nameMu sync.RWMutex
	name   string

	priority Priority
	state    State
	ctx      Context

	stackBase uint64
	stackSize uint64

	// recv is filled by port receive delivery before the thread is woken.
	recv *Message

	// wait describes what a Blocked/Sleeping thread is parked on.
	wait waitData

	// joinQ holds threads joined on this thread's termination.
	joinQ WaitQueue

	// Zombie bookkeeping.
	exitStatus int64
	cause      event.FaultCause

	// scheduler bookkeeping
	sleepIndex int // index in the sleep heap, -1 when absent
}

// waitData records the wait structure a parked thread can be removed from.
type waitData struct {
	queue    *WaitQueue
	deadline time.Time // zero when the wait is untimed
}

// ID returns the thread identifier.
func (t *Thread) ID() id.TID { return t.id }

// Process returns the owning process.
func (t *Thread) Process() *Process { return t.proc }

// Priority returns the scheduling class.
func (t *Thread) Priority() Priority { return t.priority }

// Name returns the thread name.
func (t *Thread) Name() string {
	t.nameMu.RLock()
	defer t.nameMu.RUnlock()
	return t.name
}

// SetName renames the thread.
func (t *Thread) SetName(name string) {
	t.nameMu.Lock()
	t.name = name
	t.nameMu.Unlock()
}

// State returns the thread's scheduling state under the kernel mutex.
func (t *Thread) State() State {
	k := t.proc.kernel
	k.mu.Lock()
	defer k.mu.Unlock()
	return t.state
}

// SyscallResult returns the value and errno delivered by the last completed
// syscall. Meaningful only while the thread is not Running inside a handler.
func (t *Thread) SyscallResult() Result {
	k := t.proc.kernel
	k.mu.Lock()
	defer k.mu.Unlock()
	return Result{Value: t.ctx.Result, Err: t.ctx.Errno}
}

// Context returns a copy of the saved register block.
func (t *Thread) Context() Context {
	k := t.proc.kernel
	k.mu.Lock()
	defer k.mu.Unlock()
	return t.ctx
}

// TakeMessage removes and returns the message delivered by the last port
// receive, if any.
func (t *Thread) TakeMessage() *Message {
	k := t.proc.kernel
	k.mu.Lock()
	defer k.mu.Unlock()
	m := t.recv
	t.recv = nil
	return m
}

// ExitStatus returns the exit status and fault cause of a Zombie thread.
func (t *Thread) ExitStatus() (int64, event.FaultCause) {
	k := t.proc.kernel
	k.mu.Lock()
	defer k.mu.Unlock()
	return t.exitStatus, t.cause
}

// complete writes a syscall result into the thread's own slot. Kernel mutex
// must be held. Legal only while the thread is Running (its handler writes
// on its behalf) or Blocked/Sleeping (a wake targeting it).
func (k *Kernel) complete(t *Thread, value uint64, err Errno) {
	if t.state == StateZombie {
		// A wake racing with teardown has nothing to deliver to.
		return
	}
	t.ctx.Result = value
	t.ctx.Errno = err
}
