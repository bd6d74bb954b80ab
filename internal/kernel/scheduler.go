package kernel

import (
	"container/heap"
	"time"
)

// Priority is a thread scheduling class. Scheduling is round-robin inside a
// class; higher classes always run first.
type Priority uint8

const (
	// PriorityIdle runs only when nothing else is Ready.
	PriorityIdle Priority = iota
	// PriorityLowest is the lowest regular class.
	PriorityLowest
	// PriorityBelowNormal sits under the default.
	PriorityBelowNormal
	// PriorityNormal is the default class.
	PriorityNormal
	// PriorityAboveNormal sits above the default.
	PriorityAboveNormal
	// PriorityHighest is the highest regular class.
	PriorityHighest
	// PriorityTimeCritical preempts everything else.
	PriorityTimeCritical

	numPriorities
)

// String returns the priority class name.
func (p Priority) String() string {
	switch p {
	case PriorityIdle:
		return "idle"
	case PriorityLowest:
		return "lowest"
	case PriorityBelowNormal:
		return "below_normal"
	case PriorityNormal:
		return "normal"
	case PriorityAboveNormal:
		return "above_normal"
	case PriorityHighest:
		return "highest"
	case PriorityTimeCritical:
		return "time_critical"
	default:
		return "unknown"
	}
}

// scheduler owns the per-class ready queues. Guarded by the kernel mutex.
// Queues are FIFO: threads run in the order they became Ready, which makes
// wake order and first-dispatch order deterministic (threads are created,
// and therefore first enqueued, in ascending id order).
type scheduler struct {
	classes [numPriorities][]*Thread
}

// index maps a priority to its queue so that classes[0] is the highest.
func (s *scheduler) index(p Priority) int {
	return int(PriorityTimeCritical - p)
}

// add enqueues a Ready thread.
func (s *scheduler) add(t *Thread) {
	if t.state != StateReady {
		panic("kernel: scheduling a thread that is not ready")
	}
	i := s.index(t.priority)
	s.classes[i] = append(s.classes[i], t)
}

// remove detaches a thread from its ready queue.
func (s *scheduler) remove(t *Thread) {
	i := s.index(t.priority)
	q := s.classes[i]
	for j, other := range q {
		if other == t {
			s.classes[i] = append(q[:j], q[j+1:]...)
			return
		}
	}
	panic("kernel: ready thread missing from its class queue")
}

// next pops the thread to run: highest class first, FIFO inside a class.
// Returns nil when no thread is Ready (the core goes idle).
func (s *scheduler) next() *Thread {
	for i := range s.classes {
		if len(s.classes[i]) > 0 {
			t := s.classes[i][0]
			s.classes[i] = s.classes[i][1:]
			return t
		}
	}
	return nil
}

// topPriority returns the class of the best Ready thread without dequeuing
// it.
func (s *scheduler) topPriority() (Priority, bool) {
	for i := range s.classes {
		if len(s.classes[i]) > 0 {
			return PriorityTimeCritical - Priority(i), true
		}
	}
	return 0, false
}

// readyCount returns the number of Ready threads across all classes.
func (s *scheduler) readyCount() int {
	n := 0
	for i := range s.classes {
		n += len(s.classes[i])
	}
	return n
}

// sleepHeap is a deadline min-heap over Sleeping threads and timed waiters.
// Guarded by the kernel mutex.
type sleepHeap struct {
	entries []sleepEntry
}

type sleepEntry struct {
	thread   *Thread
	deadline time.Time
}

func (h *sleepHeap) Len() int { return len(h.entries) }

func (h *sleepHeap) Less(i, j int) bool {
	if h.entries[i].deadline.Equal(h.entries[j].deadline) {
		return h.entries[i].thread.id < h.entries[j].thread.id
	}
	return h.entries[i].deadline.Before(h.entries[j].deadline)
}

func (h *sleepHeap) Swap(i, j int) {
	h.entries[i], h.entries[j] = h.entries[j], h.entries[i]
	h.entries[i].thread.sleepIndex = i
	h.entries[j].thread.sleepIndex = j
}

func (h *sleepHeap) Push(x interface{}) {
	e := x.(sleepEntry)
	e.thread.sleepIndex = len(h.entries)
	h.entries = append(h.entries, e)
}

func (h *sleepHeap) Pop() interface{} {
	old := h.entries
	n := len(old)
	e := old[n-1]
	h.entries = old[:n-1]
	e.thread.sleepIndex = -1
	return e
}

// push arms a deadline for a thread.
func (h *sleepHeap) push(t *Thread, deadline time.Time) {
	heap.Push(h, sleepEntry{thread: t, deadline: deadline})
}

// remove disarms a thread's deadline, if armed.
func (h *sleepHeap) remove(t *Thread) {
	if t.sleepIndex < 0 {
		return
	}
	heap.Remove(h, t.sleepIndex)
}

// peek returns the earliest entry without removing it.
func (h *sleepHeap) peek() (sleepEntry, bool) {
	if len(h.entries) == 0 {
		return sleepEntry{}, false
	}
	return h.entries[0], true
}

// popExpired removes and returns the earliest entry if its deadline is not
// after now.
func (h *sleepHeap) popExpired(now time.Time) (*Thread, bool) {
	e, ok := h.peek()
	if !ok || e.deadline.After(now) {
		return nil, false
	}
	heap.Pop(h)
	return e.thread, true
}
