package kernel

// Context is a thread's saved register block. It is valid if and only if the
// thread is not the one currently executing: the gateway captures it on trap
// entry and restores it when the scheduler selects the thread again.
//
// Result is the designated syscall return register. It is written only by
// the handler executing on the thread's behalf while the thread is Running,
// or by a wake operation targeting the thread while it is Blocked, strictly
// before the thread is returned to Ready.
type Context struct {
	IP     uint64    `json:"ip"`
	SP     uint64    `json:"sp"`
	TLS    uint64    `json:"tls"`
	Result uint64    `json:"result"`
	Errno  Errno     `json:"errno"`
	GP     [6]uint64 `json:"gp"`
}

// Result is a completed syscall outcome as seen by the resuming thread.
type Result struct {
	Value uint64
	Err   Errno
}

// Outcome is what a syscall handler reports to the gateway. When Blocked is
// set the caller no longer holds the core and the gateway must not touch
// the result slot: a parked caller gets its result from the wake that
// releases it, a yielded or exited caller already has it.
type Outcome struct {
	Blocked bool
	Value   uint64
	Err     Errno
}

// done builds a completed outcome.
func done(value uint64, err Errno) Outcome {
	return Outcome{Value: value, Err: err}
}

// blocked reports that the caller was parked.
func blocked() Outcome {
	return Outcome{Blocked: true}
}
