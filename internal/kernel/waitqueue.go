package kernel

import "time"

// WaitQueue is a FIFO list of threads blocked on a condition. Waiters are
// released in park order; waking an empty queue is a no-op. The list is
// guarded by the kernel mutex.
type WaitQueue struct {
	waiters []*Thread
}

// lenLocked returns the waiter count. Kernel mutex must be held.
func (q *WaitQueue) lenLocked() int { return len(q.waiters) }

// Len returns the number of parked threads.
func (q *WaitQueue) Len(k *Kernel) int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(q.waiters)
}

// park moves the Running thread t to Blocked and appends it to the queue.
// Kernel mutex must be held; t must be the current thread. The thread's
// result slot is left untouched: only a subsequent wake may write it.
func (k *Kernel) park(q *WaitQueue, t *Thread) {
	if t != k.current {
		panic("kernel: park of a thread that is not current")
	}
	k.setState(t, StateBlocked)
	t.wait = waitData{queue: q}
	q.waiters = append(q.waiters, t)
	k.current = nil
}

// parkTimed parks like park and additionally arms a deadline. On expiry the
// thread is removed from the queue and woken with ErrTimedOut.
func (k *Kernel) parkTimed(q *WaitQueue, t *Thread, deadline time.Time) {
	k.park(q, t)
	t.wait.deadline = deadline
	k.sleepers.push(t, deadline)
}

// wakeOne releases the earliest-parked waiter: inject runs first (writing
// the waiter's result slot and any delivery payload), then the thread
// becomes Ready. Returns the woken thread, or nil if the queue was empty.
// Kernel mutex must be held.
func (k *Kernel) wakeOne(q *WaitQueue, inject func(*Thread)) *Thread {
	if len(q.waiters) == 0 {
		return nil
	}
	t := q.waiters[0]
	q.waiters = q.waiters[1:]
	k.ready(t, inject)
	return t
}

// wakeAll drains the queue in park order.
func (k *Kernel) wakeAll(q *WaitQueue, inject func(*Thread)) int {
	n := len(q.waiters)
	for len(q.waiters) > 0 {
		k.wakeOne(q, inject)
	}
	return n
}

// ready finalizes a wake: result injection strictly before the Ready
// transition, so the thread can never resume with a stale result.
func (k *Kernel) ready(t *Thread, inject func(*Thread)) {
	if inject != nil {
		inject(t)
	}
	if !t.wait.deadline.IsZero() {
		k.sleepers.remove(t)
	}
	t.wait = waitData{}
	k.setState(t, StateReady)
	k.sched.add(t)
}

// removeWaiter detaches a thread from whatever queue it is parked on, if
// any. Kernel mutex must be held.
func (k *Kernel) removeWaiter(t *Thread) {
	q := t.wait.queue
	if q == nil {
		return
	}
	for i, w := range q.waiters {
		if w == t {
			q.waiters = append(q.waiters[:i], q.waiters[i+1:]...)
			return
		}
	}
	panic("kernel: blocked thread missing from its wait queue")
}
