package syscall

import (
	"time"

	"github.com/GriffinCanCode/NanoOS/kernel/internal/kernel"
	"github.com/GriffinCanCode/NanoOS/kernel/internal/shared/id"
)

// memory_create(size) -> handle
func handleMemoryCreate(g *Gateway, t *kernel.Thread, a Args) kernel.Outcome {
	h, errno := g.k.MemoryCreate(t, a[0])
	return kernel.Outcome{Value: uint64(h), Err: errno}
}

// memory_map(handle, hint, rights) -> base address
func handleMemoryMap(g *Gateway, t *kernel.Thread, a Args) kernel.Outcome {
	base, errno := g.k.MemoryMap(t, id.Handle(a[0]), a[1], kernel.Rights(a[2]))
	return kernel.Outcome{Value: base, Err: errno}
}

// memory_unmap(base)
func handleMemoryUnmap(g *Gateway, t *kernel.Thread, a Args) kernel.Outcome {
	return kernel.Outcome{Err: g.k.MemoryUnmap(t, a[0])}
}

// futex_wait(addr, expected, timeout_ns). A zero timeout waits forever.
func handleFutexWait(g *Gateway, t *kernel.Thread, a Args) kernel.Outcome {
	return g.k.FutexWait(t, a[0], uint32(a[1]), time.Duration(a[2]))
}

// futex_wake(addr, count) -> number woken
func handleFutexWake(g *Gateway, t *kernel.Thread, a Args) kernel.Outcome {
	n, errno := g.k.FutexWake(t, a[0], uint32(a[1]))
	return kernel.Outcome{Value: n, Err: errno}
}
