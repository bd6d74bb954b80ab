package syscall

import (
	"github.com/GriffinCanCode/NanoOS/kernel/internal/kernel"
	"github.com/GriffinCanCode/NanoOS/kernel/internal/shared/id"
)

// process_create(name_addr, name_len) -> handle
func handleProcessCreate(g *Gateway, t *kernel.Thread, a Args) kernel.Outcome {
	name, errno := readName(t, a[0], a[1])
	if !errno.Ok() {
		return kernel.Outcome{Err: errno}
	}
	h, errno := g.k.ProcessCreate(t, name)
	return kernel.Outcome{Value: uint64(h), Err: errno}
}

// process_exit(status). Does not return.
func handleProcessExit(g *Gateway, t *kernel.Thread, a Args) kernel.Outcome {
	return g.k.ProcessExit(t, int64(a[0]))
}

// process_get_id() -> pid
func handleProcessGetID(g *Gateway, t *kernel.Thread, _ Args) kernel.Outcome {
	pid, errno := g.k.ProcessGetID(t)
	return kernel.Outcome{Value: pid, Err: errno}
}

// handle_close(handle)
func handleHandleClose(g *Gateway, t *kernel.Thread, a Args) kernel.Outcome {
	return kernel.Outcome{Err: g.k.HandleClose(t, id.Handle(a[0]))}
}

// handle_duplicate(handle) -> handle
func handleHandleDuplicate(g *Gateway, t *kernel.Thread, a Args) kernel.Outcome {
	h, errno := g.k.HandleDuplicate(t, id.Handle(a[0]))
	return kernel.Outcome{Value: uint64(h), Err: errno}
}
