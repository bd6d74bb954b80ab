package kernel

import "time"

// futexKey identifies a 32-bit word inside a memory object. Two processes
// mapping the same object at different addresses share the key, and so
// share the wait queue.
type futexKey struct {
	objID  uint64
	offset uint64
}

// futexTable holds one wait queue per contended word. Guarded by k.mu.
type futexTable struct {
	queues map[futexKey]*WaitQueue
}

func newFutexTable() *futexTable {
	return &futexTable{queues: make(map[futexKey]*WaitQueue)}
}

func (ft *futexTable) get(key futexKey) *WaitQueue {
	q, ok := ft.queues[key]
	if !ok {
		q = &WaitQueue{}
		ft.queues[key] = q
	}
	return q
}

// dropIfEmpty removes a drained queue's table entry. Waiters can leave a
// futex queue without a wake (timeout, thread kill); the key must not
// outlive the last of them. Kernel mutex must be held.
func (ft *futexTable) dropIfEmpty(q *WaitQueue) {
	if q == nil || q.lenLocked() != 0 {
		return
	}
	for key, fq := range ft.queues {
		if fq == q {
			delete(ft.queues, key)
			return
		}
	}
}

// FutexWait blocks the caller until a wake on the word at addr, provided
// the word still holds expected. The load and the park happen under the
// same lock as FutexWake's queue scan, so a store plus wake between them
// cannot be missed. timeout of zero means wait forever.
func (k *Kernel) FutexWait(caller *Thread, addr uint64, expected uint32, timeout time.Duration) Outcome {
	mobj, offset, rights, ok := caller.proc.mappings.resolve(addr)
	if !ok || !rights.Covers(RightRead) {
		return done(0, ErrInvalidArgument)
	}
	if offset%4 != 0 {
		return done(0, ErrInvalidArgument)
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	current, loaded := mobj.loadWord(offset)
	if !loaded {
		return done(0, ErrInvalidArgument)
	}
	if current != expected {
		// The word already changed; the wake this caller was about to miss
		// has in effect been delivered.
		return done(0, ErrNone)
	}

	q := k.futexes.get(futexKey{objID: mobj.ObjectID(), offset: offset})
	if timeout > 0 {
		k.parkTimed(q, caller, k.now.Add(timeout))
	} else {
		k.park(q, caller)
	}
	return blocked()
}

// FutexWake wakes up to count threads blocked on the word at addr and
// returns how many it woke.
func (k *Kernel) FutexWake(caller *Thread, addr uint64, count uint32) (uint64, Errno) {
	mobj, offset, rights, ok := caller.proc.mappings.resolve(addr)
	if !ok || !rights.Covers(RightRead) {
		return 0, ErrInvalidArgument
	}
	if offset%4 != 0 {
		return 0, ErrInvalidArgument
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	key := futexKey{objID: mobj.ObjectID(), offset: offset}
	q, ok := k.futexes.queues[key]
	if !ok {
		return 0, ErrNone
	}
	var woken uint64
	for woken < uint64(count) {
		if k.wakeOne(q, func(t *Thread) { k.complete(t, 0, ErrNone) }) == nil {
			break
		}
		woken++
	}
	if q.lenLocked() == 0 {
		delete(k.futexes.queues, key)
	}
	return woken, ErrNone
}

// wakeFutexWaiters wakes every waiter on a dying memory object with
// ErrObjectGone. Called under k.mu from the object destructor.
func (k *Kernel) wakeFutexWaiters(objID uint64) {
	for key, q := range k.futexes.queues {
		if key.objID != objID {
			continue
		}
		k.wakeAll(q, func(t *Thread) { k.complete(t, 0, ErrObjectGone) })
		delete(k.futexes.queues, key)
	}
}
