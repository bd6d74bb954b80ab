// Package kernel implements the kernel object and concurrency core: processes,
// threads, memory objects and ports, the per-process handle tables that name
// them, the single-core scheduler with its thread state machine, FIFO wait
// queues, futex-style word wait/wake, and lifecycle event publication.
//
// User execution is abstract. The core is driven from outside: the syscall
// gateway invokes operations on behalf of the thread currently Running, and a
// periodic Tick supplies preemption and timer expiry. Exactly one thread is
// Running at a time.
//
// Locking discipline: the kernel mutex guards the scheduler, thread states,
// wait queue and port message lists, the object registry and reference counts.
// Handle tables and mapping tables are per-process with their own locks and
// are never held across kernel mutex sections. Memory object word access takes
// the object lock, ordered after the kernel mutex (queue before object).
// Object destruction and event delivery to taps run with no locks held.
package kernel
