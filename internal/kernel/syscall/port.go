package syscall

import (
	"github.com/GriffinCanCode/NanoOS/kernel/internal/kernel"
	"github.com/GriffinCanCode/NanoOS/kernel/internal/kernel/event"
	"github.com/GriffinCanCode/NanoOS/kernel/internal/shared/id"
)

// port_create(name_addr, name_len) -> handle
func handlePortCreate(g *Gateway, t *kernel.Thread, a Args) kernel.Outcome {
	name, errno := readName(t, a[0], a[1])
	if !errno.Ok() {
		return kernel.Outcome{Err: errno}
	}
	h, errno := g.k.PortCreate(t, name)
	return kernel.Outcome{Value: uint64(h), Err: errno}
}

// port_post(handle, data_addr, data_len). The payload is copied out of
// caller memory before it is queued.
func handlePortPost(g *Gateway, t *kernel.Thread, a Args) kernel.Outcome {
	var data []byte
	if a[2] > 0 {
		if a[2] > maxMessageLen {
			return kernel.Outcome{Err: kernel.ErrInvalidArgument}
		}
		buf, errno := t.Process().ReadBytes(a[1], int(a[2]))
		if !errno.Ok() {
			return kernel.Outcome{Err: errno}
		}
		data = buf
	}
	return kernel.Outcome{Err: g.k.PortPost(t, id.Handle(a[0]), kernel.Message{Data: data})}
}

// port_receive(handle). Blocks until a message is available; the message
// lands in the caller's receive slot.
func handlePortReceive(g *Gateway, t *kernel.Thread, a Args) kernel.Outcome {
	return g.k.PortReceive(t, id.Handle(a[0]))
}

// listener_register(handle, mask)
func handleListenerRegister(g *Gateway, t *kernel.Thread, a Args) kernel.Outcome {
	return kernel.Outcome{Err: g.k.ListenerRegister(t, id.Handle(a[0]), event.Mask(a[1]))}
}

// listener_unregister(handle)
func handleListenerUnregister(g *Gateway, t *kernel.Thread, a Args) kernel.Outcome {
	return kernel.Outcome{Err: g.k.ListenerUnregister(t, id.Handle(a[0]))}
}

const maxMessageLen = 64 * 1024
