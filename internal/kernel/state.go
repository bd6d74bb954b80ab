package kernel

import "fmt"

// State is a thread's scheduling state.
type State uint8

const (
	// StateReady - runnable, queued in the scheduler.
	StateReady State = iota + 1
	// StateRunning - executing on the core. Exactly one thread at a time.
	StateRunning
	// StateBlocked - parked on a wait queue or port receive.
	StateBlocked
	// StateSleeping - timed wait, woken by timer expiry.
	StateSleeping
	// StateZombie - exited; context retained until joined or process teardown.
	StateZombie
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateBlocked:
		return "blocked"
	case StateSleeping:
		return "sleeping"
	case StateZombie:
		return "zombie"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// stateTransition is one legal edge of the thread state machine.
type stateTransition struct {
	from State
	to   State
}

// validTransitions is the complete thread state machine.
var validTransitions = map[stateTransition]bool{
	// Scheduler selects the thread.
	{StateReady, StateRunning}: true,
	// Preemption or voluntary yield.
	{StateRunning, StateReady}: true,
	// Syscall handler parks the thread on a wait queue.
	{StateRunning, StateBlocked}: true,
	// Timed sleep.
	{StateRunning, StateSleeping}: true,
	// Wake from a queue or timer expiry.
	{StateBlocked, StateReady}:  true,
	{StateSleeping, StateReady}: true,
	// Explicit exit or unrecoverable fault.
	{StateRunning, StateZombie}: true,
	// Killed while parked or sleeping (process exit, object teardown).
	{StateBlocked, StateZombie}:  true,
	{StateSleeping, StateZombie}: true,
	{StateReady, StateZombie}:    true,
}

// setState moves a thread along one state machine edge. An illegal edge is
// kernel corruption and panics. Kernel mutex must be held.
func (k *Kernel) setState(t *Thread, to State) {
	from := t.state
	if !validTransitions[stateTransition{from, to}] {
		panic(fmt.Sprintf("kernel: illegal state transition %s -> %s on thread %d", from, to, t.id))
	}
	t.state = to
}
