package syscall

// Number identifies a syscall. The table is closed: anything at or past
// numSyscalls, or any unassigned slot, fails with ErrInvalidSyscall.
type Number uint32

const (
	ProcessCreate Number = iota
	ProcessExit
	ProcessGetID
	ThreadCreate
	ThreadExit
	ThreadJoin
	ThreadSleep
	ThreadYield
	ThreadGetID
	ThreadGetName
	ThreadSetName
	ThreadSetPriority
	HandleClose
	HandleDuplicate
	MemoryCreate
	MemoryMap
	MemoryUnmap
	PortCreate
	PortPost
	PortReceive
	FutexWait
	FutexWake
	ListenerRegister
	ListenerUnregister

	numSyscalls
)

var names = [numSyscalls]string{
	ProcessCreate:      "process_create",
	ProcessExit:        "process_exit",
	ProcessGetID:       "process_get_id",
	ThreadCreate:       "thread_create",
	ThreadExit:         "thread_exit",
	ThreadJoin:         "thread_join",
	ThreadSleep:        "thread_sleep",
	ThreadYield:        "thread_yield",
	ThreadGetID:        "thread_get_id",
	ThreadGetName:      "thread_get_name",
	ThreadSetName:      "thread_set_name",
	ThreadSetPriority:  "thread_set_priority",
	HandleClose:        "handle_close",
	HandleDuplicate:    "handle_duplicate",
	MemoryCreate:       "memory_create",
	MemoryMap:          "memory_map",
	MemoryUnmap:        "memory_unmap",
	PortCreate:         "port_create",
	PortPost:           "port_post",
	PortReceive:        "port_receive",
	FutexWait:          "futex_wait",
	FutexWake:          "futex_wake",
	ListenerRegister:   "listener_register",
	ListenerUnregister: "listener_unregister",
}

// String returns the syscall name.
func (n Number) String() string {
	if n < numSyscalls {
		return names[n]
	}
	return "invalid"
}
