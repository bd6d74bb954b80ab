package syscall

import (
	"time"

	"github.com/GriffinCanCode/NanoOS/kernel/internal/kernel"
	"github.com/GriffinCanCode/NanoOS/kernel/internal/shared/id"
)

// thread_create(proc_handle, entry_ip, stack_base, stack_size, priority, tls) -> handle
func handleThreadCreate(g *Gateway, t *kernel.Thread, a Args) kernel.Outcome {
	h, errno := g.k.ThreadCreate(t, kernel.ThreadSpec{
		Process:   id.Handle(a[0]),
		EntryIP:   a[1],
		StackBase: a[2],
		StackSize: a[3],
		Priority:  kernel.Priority(a[4]),
		TLS:       a[5],
	})
	return kernel.Outcome{Value: uint64(h), Err: errno}
}

// thread_exit(status). Does not return.
func handleThreadExit(g *Gateway, t *kernel.Thread, a Args) kernel.Outcome {
	return g.k.ThreadExit(t, int64(a[0]))
}

// thread_join(handle) -> exit status. Blocks until the target terminates.
func handleThreadJoin(g *Gateway, t *kernel.Thread, a Args) kernel.Outcome {
	return g.k.ThreadJoin(t, id.Handle(a[0]))
}

// thread_sleep(duration_ns). Wakes with ErrNone after the duration.
func handleThreadSleep(g *Gateway, t *kernel.Thread, a Args) kernel.Outcome {
	return g.k.ThreadSleep(t, time.Duration(a[0]))
}

// thread_yield()
func handleThreadYield(g *Gateway, t *kernel.Thread, _ Args) kernel.Outcome {
	return g.k.Yield(t)
}

// thread_get_id() -> tid
func handleThreadGetID(g *Gateway, t *kernel.Thread, _ Args) kernel.Outcome {
	tid, errno := g.k.ThreadGetID(t)
	return kernel.Outcome{Value: tid, Err: errno}
}

// thread_get_name(handle, buf_addr, buf_len) -> name length. Handle zero
// names the caller. The buffer must hold the whole name.
func handleThreadGetName(g *Gateway, t *kernel.Thread, a Args) kernel.Outcome {
	name, errno := g.k.ThreadGetName(t, id.Handle(a[0]))
	if !errno.Ok() {
		return kernel.Outcome{Err: errno}
	}
	if uint64(len(name)) > a[2] {
		return kernel.Outcome{Err: kernel.ErrInvalidArgument}
	}
	if len(name) > 0 {
		if errno := t.Process().WriteBytes(a[1], []byte(name)); !errno.Ok() {
			return kernel.Outcome{Err: errno}
		}
	}
	return kernel.Outcome{Value: uint64(len(name))}
}

// thread_set_name(handle, name_addr, name_len). Handle zero renames the
// caller.
func handleThreadSetName(g *Gateway, t *kernel.Thread, a Args) kernel.Outcome {
	name, errno := readName(t, a[1], a[2])
	if !errno.Ok() {
		return kernel.Outcome{Err: errno}
	}
	return kernel.Outcome{Err: g.k.ThreadSetName(t, id.Handle(a[0]), name)}
}

// thread_set_priority(handle, priority)
func handleThreadSetPriority(g *Gateway, t *kernel.Thread, a Args) kernel.Outcome {
	return kernel.Outcome{Err: g.k.ThreadSetPriority(t, id.Handle(a[0]), kernel.Priority(a[1]))}
}
