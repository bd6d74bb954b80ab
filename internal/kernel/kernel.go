package kernel

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/NanoOS/kernel/internal/kernel/mem"
	"github.com/GriffinCanCode/NanoOS/kernel/internal/logging"
	"github.com/GriffinCanCode/NanoOS/kernel/internal/shared/id"
)

// Metrics receives kernel counters. Implemented by the monitoring package;
// a nil Metrics disables collection.
type Metrics interface {
	IncSyscalls(name, errno string)
	IncPortMessages()
	IncEvents(kind string)
	IncObjects(kind string)
	DecObjects(kind string)
	IncContextSwitches()
	SetReadyThreads(n int)
}

// Config holds kernel tuning knobs.
type Config struct {
	// FrameCount is the number of simulated physical memory frames.
	FrameCount int
	// HandleCapacity caps each process's handle table.
	HandleCapacity int
	// Quantum is the round-robin time slice.
	Quantum time.Duration
}

// DefaultConfig returns a kernel configuration suitable for tests and the
// demo server.
func DefaultConfig() Config {
	return Config{
		FrameCount:     16384,
		HandleCapacity: 1024,
		Quantum:        10 * time.Millisecond,
	}
}

// Kernel is the single-core kernel state: the object registry, the
// scheduler, and the wait machinery. One driver goroutine performs syscalls
// on behalf of the Running thread and advances time through Tick; the
// kernel mutex makes the introspection surface safe to read from others.
type Kernel struct {
	cfg     Config
	log     *logging.Logger
	metrics Metrics

	// mu guards the scheduler, thread states, wait queues, port queues,
	// the object registry, and reference counts.
	mu       sync.Mutex
	objects  map[uint64]Object
	current  *Thread
	now      time.Time
	sliceEnd time.Time
	switches uint64
	ticks    uint64

	ids       *id.Generator
	frames    *mem.FrameAllocator
	sched     scheduler
	sleepers  sleepHeap
	futexes   *futexTable
	listeners *listenerRegistry
}

// New builds a kernel. Boot must run before the first Tick.
func New(cfg Config, log *logging.Logger, metrics Metrics) *Kernel {
	if log == nil {
		log = logging.Nop()
	}
	return &Kernel{
		cfg:       cfg,
		log:       log,
		metrics:   metrics,
		objects:   make(map[uint64]Object),
		ids:       id.NewGenerator(),
		frames:    mem.NewFrameAllocator(cfg.FrameCount),
		futexes:   newFutexTable(),
		listeners: newListenerRegistry(),
	}
}

// Boot creates the root process with one thread and dispatches it. The
// root thread holds no handle to itself; it lives until it exits.
func (k *Kernel) Boot(name string) (*Process, *Thread) {
	p := k.newProcess(name)

	t := &Thread{
		objectHeader: objectHeader{id: k.ids.Next(), kind: KindThread},
		proc:         p,
		name:         name + "/main",
		priority:     PriorityNormal,
		state:        StateReady,
		sleepIndex:   -1,
	}
	t.id = id.TID(t.objectHeader.id)
	k.register(t)
	k.retain(p)

	p.mu.Lock()
	p.threads[t.id] = t
	p.liveThreads++
	p.mu.Unlock()

	k.mu.Lock()
	k.sched.add(t)
	k.schedule()
	k.mu.Unlock()

	k.log.Info("kernel booted",
		zap.Uint64("pid", uint64(p.id)),
		zap.Uint64("tid", uint64(t.id)),
		zap.Int("frames", k.frames.Total()))
	return p, t
}

// CurrentThread returns the Running thread, or nil while the core is idle.
func (k *Kernel) CurrentThread() *Thread {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.current
}

// Now returns the kernel's virtual clock.
func (k *Kernel) Now() time.Time {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.now
}

// Tick advances the virtual clock: expired timed waits wake, the quantum
// accounting runs, and if the core is idle the next Ready thread is
// dispatched. Returns the thread Running after the tick, or nil.
func (k *Kernel) Tick(now time.Time) *Thread {
	k.mu.Lock()
	defer k.mu.Unlock()
	if now.After(k.now) {
		k.now = now
	}
	k.ticks++

	// Timer expiry. A Sleeping thread completed its sleep; a Blocked one
	// held a timed wait that ran out.
	for {
		t, ok := k.sleepers.popExpired(k.now)
		if !ok {
			break
		}
		switch t.state {
		case StateSleeping:
			k.ready(t, func(w *Thread) { k.complete(w, 0, ErrNone) })
		case StateBlocked:
			q := t.wait.queue
			k.removeWaiter(t)
			k.ready(t, func(w *Thread) { k.complete(w, 0, ErrTimedOut) })
			k.futexes.dropIfEmpty(q)
		default:
			panic("kernel: expired deadline on a thread that is not waiting")
		}
	}

	k.preempt()
	k.schedule()

	if k.metrics != nil {
		k.metrics.SetReadyThreads(k.sched.readyCount())
	}
	return k.current
}

// preempt ends the current thread's slice when a higher class is waiting,
// or when the quantum expired and an equal class waits its turn. Kernel
// mutex must be held.
func (k *Kernel) preempt() {
	t := k.current
	if t == nil {
		return
	}
	top, ok := k.sched.topPriority()
	if !ok {
		return
	}
	if top > t.priority || (top == t.priority && !k.now.Before(k.sliceEnd)) {
		k.setState(t, StateReady)
		k.sched.add(t)
		k.current = nil
	}
}

// schedule dispatches the next Ready thread if the core is idle. Kernel
// mutex must be held.
func (k *Kernel) schedule() {
	if k.current != nil {
		return
	}
	t := k.sched.next()
	if t == nil {
		return
	}
	k.setState(t, StateRunning)
	k.current = t
	k.sliceEnd = k.now.Add(k.cfg.Quantum)
	k.switches++
	if k.metrics != nil {
		k.metrics.IncContextSwitches()
	}
}

// Yield gives up the rest of the caller's slice. The caller re-enters the
// tail of its class. The result is written while the caller is still
// Running, before it leaves the core, so the returned outcome carries the
// blocked flag: there is nothing left for the gateway to deliver.
func (k *Kernel) Yield(caller *Thread) Outcome {
	k.mu.Lock()
	defer k.mu.Unlock()
	if caller != k.current {
		panic("kernel: yield of a thread that is not current")
	}
	k.complete(caller, 0, ErrNone)
	k.setState(caller, StateReady)
	k.sched.add(caller)
	k.current = nil
	k.schedule()
	return blocked()
}

// CaptureTrap saves the operand registers of a trap into the caller's
// context. Legal only while the caller holds the core.
func (k *Kernel) CaptureTrap(t *Thread, args [6]uint64) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if t.state != StateRunning {
		panic("kernel: trap capture on a thread that is not running")
	}
	t.ctx.GP = args
}

// Deliver writes the result of a completed syscall into the caller's
// context. Legal only while the caller still holds the core; parked or
// exited threads get their result from the wake path instead.
func (k *Kernel) Deliver(t *Thread, value uint64, err Errno) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if t.state != StateRunning {
		panic("kernel: result delivery to a thread that is not running")
	}
	t.ctx.Result = value
	t.ctx.Errno = err
}

// HandleClose closes a handle in the caller's table. The object is
// destroyed if this was its last reference.
func (k *Kernel) HandleClose(caller *Thread, h id.Handle) Errno {
	return caller.proc.handles.Close(h)
}

// HandleDuplicate opens a second handle to the object behind h. Requires
// RightDuplicate on the original.
func (k *Kernel) HandleDuplicate(caller *Thread, h id.Handle) (id.Handle, Errno) {
	return caller.proc.handles.Duplicate(h)
}

// SchedStats describes the scheduler for the introspection API.
type SchedStats struct {
	Ready     int     `json:"ready"`
	Sleeping  int     `json:"sleeping"`
	Switches  uint64  `json:"switches"`
	Ticks     uint64  `json:"ticks"`
	CurrentID *uint64 `json:"current_tid,omitempty"`
}

// SchedulerStats snapshots the scheduler.
func (k *Kernel) SchedulerStats() SchedStats {
	k.mu.Lock()
	defer k.mu.Unlock()
	s := SchedStats{
		Ready:    k.sched.readyCount(),
		Sleeping: k.sleepers.Len(),
		Switches: k.switches,
		Ticks:    k.ticks,
	}
	if k.current != nil {
		tid := uint64(k.current.id)
		s.CurrentID = &tid
	}
	return s
}

// MemStats describes physical memory for the introspection API.
type MemStats struct {
	FrameSize   uint64 `json:"frame_size"`
	TotalFrames int    `json:"total_frames"`
	FreeFrames  int    `json:"free_frames"`
}

// MemoryStats snapshots the frame allocator.
func (k *Kernel) MemoryStats() MemStats {
	return MemStats{
		FrameSize:   mem.PageSize,
		TotalFrames: k.frames.Total(),
		FreeFrames:  k.frames.FreeCount(),
	}
}

// ProcessInfo describes a process for the introspection API.
type ProcessInfo struct {
	PID      uint64 `json:"pid"`
	Name     string `json:"name"`
	Threads  int    `json:"threads"`
	Handles  int    `json:"handles"`
	Mappings int    `json:"mappings"`
	Zombie   bool   `json:"zombie"`
}

// ThreadInfo describes a thread for the introspection API.
type ThreadInfo struct {
	TID      uint64 `json:"tid"`
	PID      uint64 `json:"pid"`
	Name     string `json:"name"`
	State    string `json:"state"`
	Priority string `json:"priority"`
}

// Processes lists the live processes.
func (k *Kernel) Processes() []ProcessInfo {
	var procs []*Process
	k.mu.Lock()
	for _, o := range k.objects {
		if p, ok := o.(*Process); ok {
			procs = append(procs, p)
		}
	}
	k.mu.Unlock()

	infos := make([]ProcessInfo, 0, len(procs))
	for _, p := range procs {
		p.mu.Lock()
		threads := len(p.threads)
		zombie := p.terminated
		p.mu.Unlock()
		infos = append(infos, ProcessInfo{
			PID:      uint64(p.id),
			Name:     p.name,
			Threads:  threads,
			Handles:  p.handles.Count(),
			Mappings: p.mappings.count(),
			Zombie:   zombie,
		})
	}
	return infos
}

// Threads lists all threads in the registry, including unreaped zombies.
func (k *Kernel) Threads() []ThreadInfo {
	k.mu.Lock()
	defer k.mu.Unlock()
	infos := make([]ThreadInfo, 0, len(k.objects))
	for _, o := range k.objects {
		t, ok := o.(*Thread)
		if !ok {
			continue
		}
		infos = append(infos, ThreadInfo{
			TID:      uint64(t.id),
			PID:      uint64(t.proc.id),
			Name:     t.Name(),
			State:    t.state.String(),
			Priority: t.priority.String(),
		})
	}
	return infos
}

// Ports lists all ports in the registry.
func (k *Kernel) Ports() []PortStats {
	var ports []*Port
	k.mu.Lock()
	for _, o := range k.objects {
		if p, ok := o.(*Port); ok {
			ports = append(ports, p)
		}
	}
	k.mu.Unlock()

	stats := make([]PortStats, 0, len(ports))
	for _, p := range ports {
		stats = append(stats, k.portStats(p))
	}
	return stats
}

// ObjectCount returns the number of live kernel objects.
func (k *Kernel) ObjectCount() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.objects)
}
