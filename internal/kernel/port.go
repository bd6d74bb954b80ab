package kernel

import (
	"go.uber.org/zap"

	"github.com/GriffinCanCode/NanoOS/kernel/internal/kernel/event"
	"github.com/GriffinCanCode/NanoOS/kernel/internal/shared/id"
)

// Message is the payload carried by a port. Kernel lifecycle notifications
// set Event; user IPC carries opaque bytes in Data. Payloads are copied on
// post: a message never aliases sender memory.
type Message struct {
	Event event.Event `json:"event,omitzero"`
	Data  []byte      `json:"data,omitempty"`
}

// Port is an ordered message endpoint. Messages are delivered FIFO; a
// receive returns the oldest pending message or parks the caller. Queue and
// receiver list are guarded by the kernel mutex.
type Port struct {
	objectHeader

	name string

	queue  []Message
	recvQ  WaitQueue
	closed bool
}

// Name returns the port name.
func (p *Port) Name() string { return p.name }

// PortCreate allocates a new port and opens a handle to it in the calling
// thread's process.
func (k *Kernel) PortCreate(caller *Thread, name string) (id.Handle, Errno) {
	port := &Port{
		objectHeader: objectHeader{id: k.ids.Next(), kind: KindPort},
		name:         name,
	}
	k.register(port)

	h, errno := caller.proc.handles.Insert(port, RightsAll)
	if !errno.Ok() {
		k.release(port)
		return id.Invalid, errno
	}
	return h, ErrNone
}

// post appends a message and hands it to the earliest parked receiver, if
// any. A message that wakes a receiver is delivered directly into that
// receiver's slot and never queued: its result is written strictly before
// the receiver becomes Ready. Kernel mutex must be held.
func (k *Kernel) post(p *Port, msg Message) Errno {
	if p.closed {
		return ErrObjectGone
	}

	if t := k.wakeOne(&p.recvQ, func(t *Thread) {
		m := msg
		t.recv = &m
		k.complete(t, 0, ErrNone)
	}); t != nil {
		return ErrNone
	}

	p.queue = append(p.queue, msg)
	return ErrNone
}

// receive returns the oldest pending message or parks the caller on the
// port's receiver queue. Kernel mutex must be held; caller must be current.
func (k *Kernel) receive(p *Port, t *Thread) Outcome {
	if p.closed {
		return done(0, ErrObjectGone)
	}

	if len(p.queue) > 0 {
		msg := p.queue[0]
		p.queue = p.queue[1:]
		t.recv = &msg
		return done(0, ErrNone)
	}

	k.park(&p.recvQ, t)
	return blocked()
}

// PortPost appends a message to the port named by h, waking one blocked
// receiver if present. Requires RightPost.
func (k *Kernel) PortPost(caller *Thread, h id.Handle, msg Message) Errno {
	port, errno := k.lookupPort(caller, h, RightPost)
	if !errno.Ok() {
		return errno
	}

	k.mu.Lock()
	errno = k.post(port, msg)
	k.mu.Unlock()

	if k.metrics != nil && errno.Ok() {
		k.metrics.IncPortMessages()
	}
	return errno
}

// PortReceive returns the oldest pending message of the port named by h, or
// parks the caller until one is posted. The message lands in the caller's
// receive slot. Requires RightWait.
func (k *Kernel) PortReceive(caller *Thread, h id.Handle) Outcome {
	port, errno := k.lookupPort(caller, h, RightWait)
	if !errno.Ok() {
		return done(0, errno)
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	return k.receive(port, caller)
}

// lookupPort resolves a port handle in the caller's table.
func (k *Kernel) lookupPort(caller *Thread, h id.Handle, required Rights) (*Port, Errno) {
	obj, errno := caller.proc.handles.Lookup(h, required)
	if !errno.Ok() {
		return nil, errno
	}
	port, ok := obj.(*Port)
	if !ok {
		return nil, ErrInvalidArgument
	}
	return port, ErrNone
}

// destroyPort tears the port down when its last handle vanishes: blocked
// receivers wake with ErrObjectGone, pending messages are dropped, and any
// listener registration stops receiving events.
func (k *Kernel) destroyPort(p *Port) {
	k.listeners.unregister(p)

	k.mu.Lock()
	p.closed = true
	p.queue = nil
	woken := k.wakeAll(&p.recvQ, func(t *Thread) {
		k.complete(t, 0, ErrObjectGone)
	})
	k.mu.Unlock()

	if woken > 0 {
		k.log.Debug("port closed with blocked receivers",
			zap.Uint64("port", p.id), zap.Int("woken", woken))
	}
}

// PortStats describes a port for the introspection API.
type PortStats struct {
	ID       uint64 `json:"id"`
	Name     string `json:"name"`
	Pending  int    `json:"pending"`
	Blocked  int    `json:"blocked"`
	Closed   bool   `json:"closed"`
	Listener bool   `json:"listener"`
}

// stats snapshots the port under the kernel mutex.
func (k *Kernel) portStats(p *Port) PortStats {
	k.mu.Lock()
	defer k.mu.Unlock()
	return PortStats{
		ID:      p.id,
		Name:    p.name,
		Pending: len(p.queue),
		Blocked: p.recvQ.lenLocked(),
		Closed:  p.closed,
	}
}
