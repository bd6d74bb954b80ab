package kernel

import (
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/NanoOS/kernel/internal/kernel/event"
	"github.com/GriffinCanCode/NanoOS/kernel/internal/shared/id"
)

// ThreadSpec carries the creation parameters for a new thread.
type ThreadSpec struct {
	// Process selects the hosting process: the caller's own when zero,
	// otherwise a process handle carrying RightManage.
	Process   id.Handle
	Name      string
	Priority  Priority
	EntryIP   uint64
	StackBase uint64
	StackSize uint64
	TLS       uint64
}

// ThreadCreate builds a Ready thread inside the selected process and opens
// a handle to it in the caller's table.
func (k *Kernel) ThreadCreate(caller *Thread, spec ThreadSpec) (id.Handle, Errno) {
	if spec.Priority >= numPriorities {
		return id.Invalid, ErrInvalidArgument
	}

	p := caller.proc
	if spec.Process != id.Invalid {
		obj, errno := caller.proc.handles.Lookup(spec.Process, RightManage)
		if !errno.Ok() {
			return id.Invalid, errno
		}
		target, ok := obj.(*Process)
		if !ok {
			return id.Invalid, ErrInvalidArgument
		}
		p = target
	}
	if p.Terminated() {
		return id.Invalid, ErrObjectGone
	}

	t := &Thread{
		objectHeader: objectHeader{id: k.ids.Next(), kind: KindThread},
		proc:         p,
		name:         spec.Name,
		priority:     spec.Priority,
		state:        StateReady,
		stackBase:    spec.StackBase,
		stackSize:    spec.StackSize,
		sleepIndex:   -1,
	}
	t.id = id.TID(t.objectHeader.id)
	t.ctx = Context{IP: spec.EntryIP, SP: spec.StackBase + spec.StackSize, TLS: spec.TLS}
	k.register(t)
	k.retain(p)

	h, errno := caller.proc.handles.Insert(t, RightsAll)
	if !errno.Ok() {
		k.release(t)
		return id.Invalid, errno
	}

	// The process keeps its own reference for as long as the thread is
	// unreaped, so a closed handle cannot drop a live thread's context.
	k.retain(t)
	p.mu.Lock()
	p.threads[t.id] = t
	p.liveThreads++
	p.mu.Unlock()

	k.mu.Lock()
	k.sched.add(t)
	k.mu.Unlock()

	k.publish(event.Event{Kind: event.ThreadCreated, ID: uint64(t.id)})
	k.log.Debug("thread created",
		zap.Uint64("tid", uint64(t.id)),
		zap.Uint64("pid", uint64(p.id)),
		zap.String("priority", spec.Priority.String()))
	return h, ErrNone
}

// ThreadGetID returns the caller's own thread identifier.
func (k *Kernel) ThreadGetID(caller *Thread) (uint64, Errno) {
	return uint64(caller.id), ErrNone
}

// ThreadExit terminates the calling thread with the given status. The
// caller never resumes.
func (k *Kernel) ThreadExit(caller *Thread, status int64) Outcome {
	k.killThread(caller, status, event.CauseNone)
	return blocked()
}

// ThreadFault terminates a thread that trapped with an unrecoverable
// cause. Joiners observe ErrThreadError; the event stream carries the
// cause.
func (k *Kernel) ThreadFault(t *Thread, cause event.FaultCause) {
	k.killThread(t, -1, cause)
}

// killThread moves a thread to Zombie from whatever state it is in, wakes
// its joiners, and publishes the termination. Idempotent.
func (k *Kernel) killThread(t *Thread, status int64, cause event.FaultCause) {
	k.mu.Lock()
	if t.state == StateZombie {
		k.mu.Unlock()
		return
	}
	switch t.state {
	case StateRunning:
		if t == k.current {
			k.current = nil
		}
	case StateReady:
		k.sched.remove(t)
	case StateBlocked, StateSleeping:
		q := t.wait.queue
		k.removeWaiter(t)
		k.sleepers.remove(t)
		t.wait = waitData{}
		k.futexes.dropIfEmpty(q)
	}
	k.setState(t, StateZombie)
	t.exitStatus = status
	t.cause = cause

	joinErr := ErrNone
	if cause != event.CauseNone {
		joinErr = ErrThreadError
	}
	k.wakeAll(&t.joinQ, func(w *Thread) {
		k.complete(w, uint64(status), joinErr)
	})
	k.mu.Unlock()

	if cause != event.CauseNone {
		k.publish(event.Event{Kind: event.ThreadError, ID: uint64(t.id), Cause: cause})
		k.log.Warn("thread faulted",
			zap.Uint64("tid", uint64(t.id)),
			zap.String("cause", cause.String()))
	} else {
		k.publish(event.Event{Kind: event.ThreadTerminated, ID: uint64(t.id)})
	}

	p := t.proc
	p.mu.Lock()
	p.liveThreads--
	last := p.liveThreads == 0 && !p.terminated
	p.mu.Unlock()
	if last {
		k.teardownProcess(p, status, cause)
	}
}

// reapThread drops the process's internal reference on a thread, making a
// closed last handle sufficient to destroy the context. Idempotent per
// thread.
func (k *Kernel) reapThread(t *Thread) {
	p := t.proc
	p.mu.Lock()
	_, present := p.threads[t.id]
	if present {
		delete(p.threads, t.id)
	}
	p.mu.Unlock()
	if present {
		k.release(t)
	}
}

// ThreadJoin blocks the caller until the thread named by h terminates and
// returns its exit status. Joining an already-dead thread returns at once
// and reaps it. Requires RightWait. A thread cannot join itself.
func (k *Kernel) ThreadJoin(caller *Thread, h id.Handle) Outcome {
	obj, errno := caller.proc.handles.Lookup(h, RightWait)
	if !errno.Ok() {
		return done(0, errno)
	}
	target, ok := obj.(*Thread)
	if !ok {
		return done(0, ErrInvalidArgument)
	}
	if target == caller {
		return done(0, ErrInvalidArgument)
	}

	k.mu.Lock()
	if target.state == StateZombie {
		status, cause := uint64(target.exitStatus), target.cause
		k.mu.Unlock()
		k.reapThread(target)
		if cause != event.CauseNone {
			return done(status, ErrThreadError)
		}
		return done(status, ErrNone)
	}
	k.park(&target.joinQ, caller)
	k.mu.Unlock()
	return blocked()
}

// ThreadSleep parks the caller until the duration elapses. The wake carries
// ErrNone: a sleep that runs its full course is a success, unlike a timed
// wait that expires.
func (k *Kernel) ThreadSleep(caller *Thread, d time.Duration) Outcome {
	if d <= 0 {
		return done(0, ErrNone)
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	if caller != k.current {
		panic("kernel: sleep of a thread that is not current")
	}
	k.setState(caller, StateSleeping)
	caller.wait = waitData{deadline: k.now.Add(d)}
	k.sleepers.push(caller, caller.wait.deadline)
	k.current = nil
	return blocked()
}

// ThreadGetName returns the name of the thread named by h, or the caller's
// own name when h is zero. Requires RightRead on a non-zero handle.
func (k *Kernel) ThreadGetName(caller *Thread, h id.Handle) (string, Errno) {
	if h == id.Invalid {
		return caller.Name(), ErrNone
	}
	obj, errno := caller.proc.handles.Lookup(h, RightRead)
	if !errno.Ok() {
		return "", errno
	}
	target, ok := obj.(*Thread)
	if !ok {
		return "", ErrInvalidArgument
	}
	return target.Name(), ErrNone
}

// ThreadSetName renames the thread named by h, or the caller itself when h
// is zero. Requires RightManage on a non-zero handle.
func (k *Kernel) ThreadSetName(caller *Thread, h id.Handle, name string) Errno {
	if h == id.Invalid {
		caller.SetName(name)
		return ErrNone
	}
	obj, errno := caller.proc.handles.Lookup(h, RightManage)
	if !errno.Ok() {
		return errno
	}
	target, ok := obj.(*Thread)
	if !ok {
		return ErrInvalidArgument
	}
	target.SetName(name)
	return ErrNone
}

// ThreadSetPriority moves the thread named by h to a new scheduling class.
// Requires RightManage. A Ready thread re-enters at the tail of its new
// class.
func (k *Kernel) ThreadSetPriority(caller *Thread, h id.Handle, prio Priority) Errno {
	if prio >= numPriorities {
		return ErrInvalidArgument
	}
	obj, errno := caller.proc.handles.Lookup(h, RightManage)
	if !errno.Ok() {
		return errno
	}
	target, ok := obj.(*Thread)
	if !ok {
		return ErrInvalidArgument
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	if target.state == StateReady {
		k.sched.remove(target)
		target.priority = prio
		k.sched.add(target)
	} else {
		target.priority = prio
	}
	return ErrNone
}

// destroyThread runs when the last reference to a dead thread vanishes.
func (k *Kernel) destroyThread(t *Thread) {
	k.release(t.proc)
	k.log.Debug("thread destroyed", zap.Uint64("tid", uint64(t.id)))
}
