package main

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/NanoOS/kernel/internal/kernel"
	"github.com/GriffinCanCode/NanoOS/kernel/internal/kernel/event"
	"github.com/GriffinCanCode/NanoOS/kernel/internal/kernel/syscall"
	"github.com/GriffinCanCode/NanoOS/kernel/internal/logging"
	"github.com/GriffinCanCode/NanoOS/kernel/internal/shared/id"
)

// step is one slice of simulated user code: it performs at most one syscall
// on behalf of the thread that holds the core.
type step func(t *kernel.Thread)

// driver is the simulated core. Each tick it advances the kernel clock and
// runs the next step of whichever thread the scheduler dispatched.
type driver struct {
	k   *kernel.Kernel
	gw  *syscall.Gateway
	log *logging.Logger

	mu       sync.Mutex
	programs map[uint64][]step
}

func newDriver(k *kernel.Kernel, gw *syscall.Gateway, log *logging.Logger) *driver {
	return &driver{
		k:        k,
		gw:       gw,
		log:      log,
		programs: make(map[uint64][]step),
	}
}

// install assigns a program to a thread.
func (d *driver) install(t *kernel.Thread, steps []step) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.programs[uint64(t.ID())] = steps
}

// push appends steps to a thread's program.
func (d *driver) push(t *kernel.Thread, steps ...step) {
	d.mu.Lock()
	defer d.mu.Unlock()
	tid := uint64(t.ID())
	d.programs[tid] = append(d.programs[tid], steps...)
}

// next pops the front step of a thread's program.
func (d *driver) next(t *kernel.Thread) step {
	d.mu.Lock()
	defer d.mu.Unlock()
	tid := uint64(t.ID())
	steps := d.programs[tid]
	if len(steps) == 0 {
		return nil
	}
	d.programs[tid] = steps[1:]
	return steps[0]
}

// run ticks the kernel until the context ends. A dispatched thread with an
// exhausted program exits.
func (d *driver) run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			t := d.k.Tick(now)
			if t == nil {
				continue
			}
			st := d.next(t)
			if st == nil {
				d.gw.Invoke(t, syscall.ThreadExit, syscall.Args{0})
				continue
			}
			st(t)
		}
	}
}

// demoState threads results between the boot script's steps.
type demoState struct {
	port    id.Handle
	memH    id.Handle
	base    uint64
	workerH id.Handle
}

// bootScript is the root thread's workload: it wires a lifecycle listener,
// maps shared memory, spawns a worker, meets it over a futex, joins it, and
// then settles into a steady churn that keeps the event stream alive.
func bootScript(d *driver) []step {
	s := &demoState{}

	return []step{
		func(t *kernel.Thread) {
			out := d.gw.Invoke(t, syscall.PortCreate, syscall.Args{})
			s.port = id.Handle(out.Value)
		},
		func(t *kernel.Thread) {
			d.gw.Invoke(t, syscall.ListenerRegister, syscall.Args{uint64(s.port), uint64(event.MaskAll)})
		},
		func(t *kernel.Thread) {
			out := d.gw.Invoke(t, syscall.MemoryCreate, syscall.Args{8192})
			s.memH = id.Handle(out.Value)
		},
		func(t *kernel.Thread) {
			rights := uint64(kernel.RightRead | kernel.RightWrite | kernel.RightMap)
			out := d.gw.Invoke(t, syscall.MemoryMap, syscall.Args{uint64(s.memH), 0, rights})
			s.base = out.Value
		},
		func(t *kernel.Thread) {
			out := d.gw.Invoke(t, syscall.ThreadCreate, syscall.Args{0, 0, 0, 0, uint64(kernel.PriorityNormal), 0})
			s.workerH = id.Handle(out.Value)
			if obj, errno := t.Process().Handles().Lookup(s.workerH, 0); errno.Ok() {
				if worker, ok := obj.(*kernel.Thread); ok {
					d.install(worker, workerScript(d, s))
				}
			}
		},
		func(t *kernel.Thread) {
			// Blocks until the worker flips the word and wakes us.
			d.gw.Invoke(t, syscall.FutexWait, syscall.Args{s.base, 0, 0})
		},
		func(t *kernel.Thread) {
			d.gw.Invoke(t, syscall.ThreadJoin, syscall.Args{uint64(s.workerH)})
		},
		func(t *kernel.Thread) {
			d.gw.Invoke(t, syscall.HandleClose, syscall.Args{uint64(s.workerH)})
			d.push(t, steadyScript(d, s)...)
		},
	}
}

// workerScript runs in the spawned thread: it completes the futex
// handshake, drops a message on the shared port, and exits.
func workerScript(d *driver, s *demoState) []step {
	return []step{
		func(t *kernel.Thread) {
			d.gw.Invoke(t, syscall.ThreadSleep, syscall.Args{uint64(5 * time.Millisecond)})
		},
		func(t *kernel.Thread) {
			t.Process().WriteWord(s.base, 1)
			d.gw.Invoke(t, syscall.FutexWake, syscall.Args{s.base, 1})
		},
		func(t *kernel.Thread) {
			t.Process().WriteBytes(s.base+8, []byte("ready"))
			d.gw.Invoke(t, syscall.PortPost, syscall.Args{uint64(s.port), s.base + 8, 5})
		},
		func(t *kernel.Thread) {
			d.gw.Invoke(t, syscall.ThreadExit, syscall.Args{0})
		},
	}
}

// steadyScript keeps the kernel visibly alive: churn one memory object,
// drain the notifications it produced, sleep, repeat.
func steadyScript(d *driver, s *demoState) []step {
	var churn id.Handle
	return []step{
		func(t *kernel.Thread) {
			d.gw.Invoke(t, syscall.ThreadSleep, syscall.Args{uint64(500 * time.Millisecond)})
		},
		func(t *kernel.Thread) {
			out := d.gw.Invoke(t, syscall.MemoryCreate, syscall.Args{4096})
			churn = id.Handle(out.Value)
		},
		func(t *kernel.Thread) {
			d.gw.Invoke(t, syscall.HandleClose, syscall.Args{uint64(churn)})
		},
		func(t *kernel.Thread) {
			out := d.gw.Invoke(t, syscall.PortReceive, syscall.Args{uint64(s.port)})
			if !out.Blocked {
				d.logMessage(t)
			}
		},
		func(t *kernel.Thread) {
			d.logMessage(t)
			d.push(t, steadyScript(d, s)...)
		},
	}
}

// logMessage reports the message delivered by the last receive, if any.
func (d *driver) logMessage(t *kernel.Thread) {
	msg := t.TakeMessage()
	if msg == nil {
		return
	}
	if msg.Event.Kind != 0 {
		d.log.Info("notification", zap.Stringer("event", msg.Event))
		return
	}
	d.log.Info("port message", zap.ByteString("data", msg.Data))
}
