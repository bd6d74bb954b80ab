package kernel

import (
	"sync"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/NanoOS/kernel/internal/kernel/event"
	"github.com/GriffinCanCode/NanoOS/kernel/internal/shared/id"
)

// listenerEntry subscribes one port to a class of kernel events. The
// registry does not hold a reference on the port; a dying port removes
// itself before its queue shuts down.
type listenerEntry struct {
	port *Port
	mask event.Mask
}

// listenerRegistry fans kernel lifecycle events out to subscribed ports.
// It has its own lock so publication can run with the kernel mutex free.
type listenerRegistry struct {
	mu      sync.Mutex
	entries []listenerEntry

	// taps receive a copy of every event, regardless of masks. Used by the
	// API layer for live streaming.
	taps []chan event.Event
}

func newListenerRegistry() *listenerRegistry {
	return &listenerRegistry{}
}

// ListenerRegister subscribes the port behind h to the events selected by
// mask. Registering the same port again replaces its mask.
func (k *Kernel) ListenerRegister(caller *Thread, h id.Handle, mask event.Mask) Errno {
	p, errno := k.lookupPort(caller, h, RightPost)
	if !errno.Ok() {
		return errno
	}
	if mask&event.MaskAll == 0 {
		return ErrInvalidArgument
	}

	k.listeners.mu.Lock()
	defer k.listeners.mu.Unlock()
	for i := range k.listeners.entries {
		if k.listeners.entries[i].port == p {
			k.listeners.entries[i].mask = mask
			return ErrNone
		}
	}
	k.listeners.entries = append(k.listeners.entries, listenerEntry{port: p, mask: mask})
	k.log.Debug("listener registered",
		zap.Uint64("port", p.ObjectID()),
		zap.Uint32("mask", uint32(mask)))
	return ErrNone
}

// ListenerUnregister removes the port behind h from the registry.
func (k *Kernel) ListenerUnregister(caller *Thread, h id.Handle) Errno {
	p, errno := k.lookupPort(caller, h, RightPost)
	if !errno.Ok() {
		return errno
	}
	k.listeners.unregister(p)
	return ErrNone
}

func (r *listenerRegistry) unregister(p *Port) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.entries {
		if r.entries[i].port == p {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			return
		}
	}
}

// Subscribe attaches an event tap. The returned channel is buffered; a tap
// that falls behind loses events rather than stalling the kernel.
func (k *Kernel) Subscribe() <-chan event.Event {
	ch := make(chan event.Event, 256)
	k.listeners.mu.Lock()
	k.listeners.taps = append(k.listeners.taps, ch)
	k.listeners.mu.Unlock()
	return ch
}

// Unsubscribe detaches a tap returned by Subscribe.
func (k *Kernel) Unsubscribe(ch <-chan event.Event) {
	k.listeners.mu.Lock()
	defer k.listeners.mu.Unlock()
	for i, tap := range k.listeners.taps {
		if tap == ch {
			k.listeners.taps = append(k.listeners.taps[:i], k.listeners.taps[i+1:]...)
			close(tap)
			return
		}
	}
}

// publish delivers ev to every subscribed port whose mask selects it, in
// registration order. Delivery per port is a plain post: queued in arrival
// order, so events about one object reach each listener in the order they
// were published. Must be called with no kernel locks held.
func (k *Kernel) publish(ev event.Event) {
	k.listeners.mu.Lock()
	targets := make([]*Port, 0, len(k.listeners.entries))
	for _, e := range k.listeners.entries {
		if e.mask.Matches(ev.Kind) {
			targets = append(targets, e.port)
		}
	}
	for _, tap := range k.listeners.taps {
		select {
		case tap <- ev:
		default:
		}
	}
	k.listeners.mu.Unlock()

	if k.metrics != nil {
		k.metrics.IncEvents(ev.Kind.String())
	}
	for _, p := range targets {
		k.mu.Lock()
		errno := k.post(p, Message{Event: ev})
		k.mu.Unlock()
		if !errno.Ok() {
			k.log.Debug("event dropped on closed port",
				zap.Uint64("port", p.ObjectID()),
				zap.String("kind", ev.Kind.String()))
		}
	}
}
