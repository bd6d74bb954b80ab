package kernel

import (
	"sync"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/NanoOS/kernel/internal/kernel/event"
	"github.com/GriffinCanCode/NanoOS/kernel/internal/shared/id"
)

// Process owns a handle table, an address space, and a set of threads. A
// process with zero live threads is torn down: handles are released,
// mappings dropped, and dependents notified through the event stream.
type Process struct {
	objectHeader

	id     id.PID
	name   string
	kernel *Kernel

	handles  *HandleTable
	mappings *MappingTable

	// mu guards the thread set and termination bookkeeping.
	mu          sync.Mutex
	threads     map[id.TID]*Thread
	liveThreads int
	terminated  bool
	exitStatus  int64
	exitCause   event.FaultCause
}

// ID returns the process identifier.
func (p *Process) ID() id.PID { return p.id }

// Name returns the process name.
func (p *Process) Name() string { return p.name }

// Handles returns the process's handle table.
func (p *Process) Handles() *HandleTable { return p.handles }

// Terminated reports whether the process has been torn down.
func (p *Process) Terminated() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.terminated
}

// ExitStatus returns the aggregate exit status: the status of the thread
// that triggered teardown.
func (p *Process) ExitStatus() (int64, event.FaultCause) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exitStatus, p.exitCause
}

// newProcess builds a registered process object.
func (k *Kernel) newProcess(name string) *Process {
	p := &Process{
		objectHeader: objectHeader{id: k.ids.Next(), kind: KindProcess},
		id:           id.PID(0),
		name:         name,
		kernel:       k,
		handles:      newHandleTable(k, k.cfg.HandleCapacity),
		mappings:     newMappingTable(),
		threads:      make(map[id.TID]*Thread),
	}
	p.id = id.PID(p.objectHeader.id)
	k.register(p)
	return p
}

// ProcessCreate creates an empty process and opens a handle to it in the
// caller's process. The new process runs nothing until a thread is created
// inside it.
func (k *Kernel) ProcessCreate(caller *Thread, name string) (id.Handle, Errno) {
	p := k.newProcess(name)

	h, errno := caller.proc.handles.Insert(p, RightsAll)
	if !errno.Ok() {
		k.release(p)
		return id.Invalid, errno
	}

	k.publish(event.Event{Kind: event.ProcessCreated, ID: uint64(p.id)})
	k.log.Debug("process created", zap.Uint64("pid", uint64(p.id)), zap.String("name", name))
	return h, ErrNone
}

// ProcessGetID returns the caller's own process identifier.
func (k *Kernel) ProcessGetID(caller *Thread) (uint64, Errno) {
	return uint64(caller.proc.id), ErrNone
}

// ProcessExit terminates every thread of the caller's process with the
// given status and tears the process down. The caller never resumes.
func (k *Kernel) ProcessExit(caller *Thread, status int64) Outcome {
	k.terminateProcess(caller.proc, status, event.CauseNone)
	return blocked()
}

// terminateProcess kills all threads and runs teardown. The triggering
// status becomes the process's aggregate exit status.
func (k *Kernel) terminateProcess(p *Process, status int64, cause event.FaultCause) {
	p.mu.Lock()
	if p.terminated {
		p.mu.Unlock()
		return
	}
	victims := make([]*Thread, 0, len(p.threads))
	for _, t := range p.threads {
		victims = append(victims, t)
	}
	p.mu.Unlock()

	for _, t := range victims {
		k.killThread(t, status, cause)
	}
	// killThread of the last live thread runs teardown; a process that never
	// had threads is torn down here directly.
	p.mu.Lock()
	hadThreads := len(p.threads) > 0
	p.mu.Unlock()
	if !hadThreads {
		k.teardownProcess(p, status, cause)
	}
}

// teardownProcess releases everything the process owns. Runs once, after
// the last live thread is gone.
func (k *Kernel) teardownProcess(p *Process, status int64, cause event.FaultCause) {
	p.mu.Lock()
	if p.terminated {
		p.mu.Unlock()
		return
	}
	p.terminated = true
	p.exitStatus = status
	p.exitCause = cause
	zombies := make([]*Thread, 0, len(p.threads))
	for tid, t := range p.threads {
		zombies = append(zombies, t)
		delete(p.threads, tid)
	}
	p.mu.Unlock()

	k.log.Info("process teardown",
		zap.Uint64("pid", uint64(p.id)),
		zap.String("name", p.name),
		zap.Int64("status", status))

	// Close every handle the process holds.
	for _, obj := range p.handles.clear() {
		k.release(obj)
	}
	// Release the address space.
	for _, mobj := range p.mappings.clear() {
		k.release(mobj)
	}
	// Drop zombie contexts retained for join: process teardown is the other
	// path (besides join) that reaps them.
	for _, t := range zombies {
		k.release(t)
	}
}

// destroyProcess runs when the last reference vanishes. ProcessDeleted is
// posted exactly once, here.
func (k *Kernel) destroyProcess(p *Process) {
	// Teardown normally already ran via last-thread exit; a process whose
	// handles were closed before it ever ran threads is torn down now.
	k.teardownProcess(p, 0, event.CauseNone)
	k.publish(event.Event{Kind: event.ProcessDeleted, ID: uint64(p.id)})
}

// ReadBytes copies size bytes of process memory at addr. A failure is a
// fault attributable to the address, reported as ErrInvalidArgument to the
// syscall that supplied it.
func (p *Process) ReadBytes(addr uint64, size int) ([]byte, Errno) {
	mobj, offset, rights, ok := p.mappings.resolve(addr)
	if !ok || !rights.Covers(RightRead) {
		return nil, ErrInvalidArgument
	}
	buf := make([]byte, size)
	if !mobj.readBytes(offset, buf) {
		return nil, ErrInvalidArgument
	}
	return buf, ErrNone
}

// WriteBytes copies src into process memory at addr.
func (p *Process) WriteBytes(addr uint64, src []byte) Errno {
	mobj, offset, rights, ok := p.mappings.resolve(addr)
	if !ok || !rights.Covers(RightWrite) {
		return ErrInvalidArgument
	}
	if !mobj.writeBytes(offset, src) {
		return ErrInvalidArgument
	}
	return ErrNone
}

// WriteWord stores a 32-bit value in process memory. Exposed for the
// simulation driver: user code mutating a shared futex word.
func (p *Process) WriteWord(addr uint64, value uint32) Errno {
	mobj, offset, rights, ok := p.mappings.resolve(addr)
	if !ok || !rights.Covers(RightWrite) {
		return ErrInvalidArgument
	}
	if !mobj.storeWord(offset, value) {
		return ErrInvalidArgument
	}
	return ErrNone
}

// ReadWord loads a 32-bit value from process memory.
func (p *Process) ReadWord(addr uint64) (uint32, Errno) {
	mobj, offset, rights, ok := p.mappings.resolve(addr)
	if !ok || !rights.Covers(RightRead) {
		return 0, ErrInvalidArgument
	}
	v, ok := mobj.loadWord(offset)
	if !ok {
		return 0, ErrInvalidArgument
	}
	return v, ErrNone
}
