// Package event defines the kernel lifecycle notification payloads.
//
// Every create/destroy transition of a tracked kernel object produces one
// Event. Events are a closed set of tagged variants: consumers dispatch on
// Kind exhaustively instead of type-switching over an open hierarchy.
package event

import "fmt"

// Kind tags a lifecycle event variant.
type Kind uint8

const (
	// ProcessCreated - a process exists and can own threads.
	ProcessCreated Kind = iota + 1
	// ProcessDeleted - a process is gone; its id will never reappear.
	ProcessDeleted
	// ThreadCreated - a thread exists inside its owning process.
	ThreadCreated
	// ThreadTerminated - a thread exited; no more execution will happen in it.
	ThreadTerminated
	// ThreadError - a thread faulted during user execution. Carries the cause.
	ThreadError
	// MemoryObjectCreated - a memory object exists and holds frames.
	MemoryObjectCreated
	// MemoryObjectDeleted - a memory object is gone and its frames are freed.
	MemoryObjectDeleted
)

// String returns the event kind name.
func (k Kind) String() string {
	switch k {
	case ProcessCreated:
		return "process_created"
	case ProcessDeleted:
		return "process_deleted"
	case ThreadCreated:
		return "thread_created"
	case ThreadTerminated:
		return "thread_terminated"
	case ThreadError:
		return "thread_error"
	case MemoryObjectCreated:
		return "memory_object_created"
	case MemoryObjectDeleted:
		return "memory_object_deleted"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Mask selects event kinds a listener is interested in.
type Mask uint32

// Bit returns the mask bit for one kind.
func (k Kind) Bit() Mask { return 1 << (uint(k) - 1) }

// Masks for event classes.
const (
	MaskProcess = Mask(1<<(uint(ProcessCreated)-1)) | Mask(1<<(uint(ProcessDeleted)-1))
	MaskThread  = Mask(1<<(uint(ThreadCreated)-1)) | Mask(1<<(uint(ThreadTerminated)-1)) | Mask(1<<(uint(ThreadError)-1))
	MaskMemory  = Mask(1<<(uint(MemoryObjectCreated)-1)) | Mask(1<<(uint(MemoryObjectDeleted)-1))
	MaskAll     = MaskProcess | MaskThread | MaskMemory
)

// Matches reports whether the mask selects the given kind.
func (m Mask) Matches(k Kind) bool { return m&k.Bit() != 0 }

// FaultCause describes why a thread errored.
type FaultCause uint8

const (
	// CauseNone - not a fault (regular termination).
	CauseNone FaultCause = iota
	// CausePageFault - access outside any valid mapping.
	CausePageFault
	// CauseIllegalInstruction - undefined or privileged instruction.
	CauseIllegalInstruction
	// CauseDivideError - division by zero.
	CauseDivideError
)

// String returns the fault cause name.
func (c FaultCause) String() string {
	switch c {
	case CauseNone:
		return "none"
	case CausePageFault:
		return "page_fault"
	case CauseIllegalInstruction:
		return "illegal_instruction"
	case CauseDivideError:
		return "divide_error"
	default:
		return fmt.Sprintf("cause(%d)", uint8(c))
	}
}

// Event is one lifecycle notification.
//
// ID is the identifier of the object the transition happened on.
// Cause is meaningful only for ThreadError.
type Event struct {
	Kind  Kind       `json:"kind"`
	ID    uint64     `json:"id"`
	Cause FaultCause `json:"cause,omitempty"`
}

// String formats the event for logs.
func (e Event) String() string {
	if e.Kind == ThreadError {
		return fmt.Sprintf("%s(%d, %s)", e.Kind, e.ID, e.Cause)
	}
	return fmt.Sprintf("%s(%d)", e.Kind, e.ID)
}
