package kernel

// Errno is the closed set of syscall-level error results. The zero value
// means success. Errors are returned to the calling thread's result slot;
// they never unwind across the trap boundary.
type Errno uint32

const (
	// ErrNone - success.
	ErrNone Errno = iota
	// ErrInvalidHandle - the handle slot is empty or out of range.
	ErrInvalidHandle
	// ErrAccessDenied - the stored rights mask does not cover the operation.
	ErrAccessDenied
	// ErrInvalidSyscall - unknown syscall number.
	ErrInvalidSyscall
	// ErrInvalidArgument - bad pointer, size, alignment, or object kind.
	ErrInvalidArgument
	// ErrResourceExhausted - no free handle slot or no physical frames.
	ErrResourceExhausted
	// ErrObjectGone - the object being waited on was destroyed.
	ErrObjectGone
	// ErrTimedOut - a timed wait expired.
	ErrTimedOut
	// ErrThreadError - the thread faulted during user execution.
	ErrThreadError
)

// Ok reports success.
func (e Errno) Ok() bool { return e == ErrNone }

// Error implements the error interface for non-zero errnos.
func (e Errno) Error() string { return e.String() }

// String returns the errno name.
func (e Errno) String() string {
	switch e {
	case ErrNone:
		return "ok"
	case ErrInvalidHandle:
		return "invalid_handle"
	case ErrAccessDenied:
		return "access_denied"
	case ErrInvalidSyscall:
		return "invalid_syscall"
	case ErrInvalidArgument:
		return "invalid_argument"
	case ErrResourceExhausted:
		return "resource_exhausted"
	case ErrObjectGone:
		return "object_gone"
	case ErrTimedOut:
		return "timed_out"
	case ErrThreadError:
		return "thread_error"
	default:
		return "unknown"
	}
}
