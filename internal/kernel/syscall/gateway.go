// Package syscall is the trap gateway: the single entry point through which
// user threads reach the kernel. It decodes the trap frame's registers,
// dispatches through a closed handler table, and delivers results back into
// the caller's context following one rule: a caller that leaves the core
// gets its result written by the wake that releases it, never by the
// gateway.
package syscall

import (
	"go.uber.org/zap"

	"github.com/GriffinCanCode/NanoOS/kernel/internal/kernel"
	"github.com/GriffinCanCode/NanoOS/kernel/internal/kernel/event"
	"github.com/GriffinCanCode/NanoOS/kernel/internal/logging"
)

// Args is the register block a trap carries: up to six operands.
type Args [6]uint64

// handler decodes one syscall's operands and runs it.
type handler func(g *Gateway, t *kernel.Thread, a Args) kernel.Outcome

// Gateway dispatches syscalls for one kernel.
type Gateway struct {
	k        *kernel.Kernel
	log      *logging.Logger
	metrics  kernel.Metrics
	handlers [numSyscalls]handler
}

// New builds a gateway with the full handler table installed.
func New(k *kernel.Kernel, log *logging.Logger, metrics kernel.Metrics) *Gateway {
	if log == nil {
		log = logging.Nop()
	}
	g := &Gateway{k: k, log: log, metrics: metrics}
	g.handlers = [numSyscalls]handler{
		ProcessCreate:      handleProcessCreate,
		ProcessExit:        handleProcessExit,
		ProcessGetID:       handleProcessGetID,
		ThreadCreate:       handleThreadCreate,
		ThreadExit:         handleThreadExit,
		ThreadJoin:         handleThreadJoin,
		ThreadSleep:        handleThreadSleep,
		ThreadYield:        handleThreadYield,
		ThreadGetID:        handleThreadGetID,
		ThreadGetName:      handleThreadGetName,
		ThreadSetName:      handleThreadSetName,
		ThreadSetPriority:  handleThreadSetPriority,
		HandleClose:        handleHandleClose,
		HandleDuplicate:    handleHandleDuplicate,
		MemoryCreate:       handleMemoryCreate,
		MemoryMap:          handleMemoryMap,
		MemoryUnmap:        handleMemoryUnmap,
		PortCreate:         handlePortCreate,
		PortPost:           handlePortPost,
		PortReceive:        handlePortReceive,
		FutexWait:          handleFutexWait,
		FutexWake:          handleFutexWake,
		ListenerRegister:   handleListenerRegister,
		ListenerUnregister: handleListenerUnregister,
	}
	return g
}

// Invoke runs one syscall on behalf of t, which must be the Running thread.
// When the outcome is not blocked the result is delivered into t's context
// before Invoke returns; otherwise t has left the core and the result
// arrives with the wake.
func (g *Gateway) Invoke(t *kernel.Thread, n Number, a Args) kernel.Outcome {
	if t != g.k.CurrentThread() {
		panic("syscall: invoke on behalf of a thread that is not running")
	}
	g.k.CaptureTrap(t, [6]uint64(a))

	var out kernel.Outcome
	if n >= numSyscalls || g.handlers[n] == nil {
		out = kernel.Outcome{Err: kernel.ErrInvalidSyscall}
	} else {
		out = g.handlers[n](g, t, a)
	}

	if !out.Blocked {
		g.k.Deliver(t, out.Value, out.Err)
	}

	if g.metrics != nil {
		status := out.Err.String()
		if out.Blocked {
			status = "blocked"
		}
		g.metrics.IncSyscalls(n.String(), status)
	}
	g.log.Debug("syscall",
		zap.Uint64("tid", uint64(t.ID())),
		zap.String("number", n.String()),
		zap.Bool("blocked", out.Blocked),
		zap.String("errno", out.Err.String()))
	return out
}

// RaiseFault reports an unrecoverable trap on t: the thread is terminated
// and its joiners observe ErrThreadError.
func (g *Gateway) RaiseFault(t *kernel.Thread, cause event.FaultCause) {
	g.log.Warn("fault trap",
		zap.Uint64("tid", uint64(t.ID())),
		zap.String("cause", cause.String()))
	g.k.ThreadFault(t, cause)
}

// readName fetches a length-bounded name string from caller memory. A zero
// address with zero length is the anonymous name.
func readName(t *kernel.Thread, addr, length uint64) (string, kernel.Errno) {
	if length == 0 {
		return "", kernel.ErrNone
	}
	if length > maxNameLen {
		return "", kernel.ErrInvalidArgument
	}
	buf, errno := t.Process().ReadBytes(addr, int(length))
	if !errno.Ok() {
		return "", errno
	}
	return string(buf), kernel.ErrNone
}

const maxNameLen = 256
