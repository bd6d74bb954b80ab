package kernel

import (
	"container/heap"
	"sync"

	"github.com/GriffinCanCode/NanoOS/kernel/internal/shared/id"
)

// handleEntry is one occupied handle table slot: an object reference plus
// the capability mask the handle was granted.
type handleEntry struct {
	obj    Object
	rights Rights
}

// HandleTable maps process-scoped small-integer handles to kernel objects.
// It is private to its process and needs no cross-process locking. Slot 0 is
// reserved so that handle 0 is always invalid.
//
// Insert allocates the smallest unused slot: freed slots are kept in a
// min-heap, so allocation is O(1) amortized and ids stay small.
type HandleTable struct {
	mu       sync.RWMutex
	slots    []*handleEntry
	free     freeSlots
	capacity int
	kernel   *Kernel
}

// newHandleTable creates an empty table bounded by capacity slots.
func newHandleTable(k *Kernel, capacity int) *HandleTable {
	return &HandleTable{
		slots:    []*handleEntry{nil}, // slot 0 reserved
		capacity: capacity,
		kernel:   k,
	}
}

// Insert stores an object reference with the given rights and returns the
// new handle. The caller must already hold the reference being stored.
// Fails with ErrResourceExhausted when the table is full.
func (ht *HandleTable) Insert(obj Object, rights Rights) (id.Handle, Errno) {
	ht.mu.Lock()
	defer ht.mu.Unlock()

	entry := &handleEntry{obj: obj, rights: rights}

	if ht.free.Len() > 0 {
		slot := heap.Pop(&ht.free).(int)
		ht.slots[slot] = entry
		return id.Handle(slot), ErrNone
	}

	if len(ht.slots) > ht.capacity {
		return id.Invalid, ErrResourceExhausted
	}
	ht.slots = append(ht.slots, entry)
	return id.Handle(len(ht.slots) - 1), ErrNone
}

// Lookup resolves a handle, checking that its stored rights cover required.
// The returned reference is borrowed: it is valid while the handle stays
// open.
func (ht *HandleTable) Lookup(h id.Handle, required Rights) (Object, Errno) {
	ht.mu.RLock()
	defer ht.mu.RUnlock()

	entry, errno := ht.entry(h)
	if !errno.Ok() {
		return nil, errno
	}
	if !entry.rights.Covers(required) {
		return nil, ErrAccessDenied
	}
	return entry.obj, ErrNone
}

// Rights returns the capability mask stored for a handle.
func (ht *HandleTable) Rights(h id.Handle) (Rights, Errno) {
	ht.mu.RLock()
	defer ht.mu.RUnlock()

	entry, errno := ht.entry(h)
	if !errno.Ok() {
		return 0, errno
	}
	return entry.rights, ErrNone
}

// Close empties the slot and drops the handle's object reference. If that
// was the last reference the object's destroy path runs synchronously
// before Close returns. Closing an already-closed handle yields
// ErrInvalidHandle.
func (ht *HandleTable) Close(h id.Handle) Errno {
	ht.mu.Lock()
	entry, errno := ht.entry(h)
	if !errno.Ok() {
		ht.mu.Unlock()
		return errno
	}
	ht.slots[int(h)] = nil
	heap.Push(&ht.free, int(h))
	ht.mu.Unlock()

	// Reference drop happens outside the table lock: destruction may post
	// events and wake waiters.
	ht.kernel.release(entry.obj)
	return ErrNone
}

// Duplicate opens a second handle to the same object with the same rights.
// Requires RightDuplicate.
func (ht *HandleTable) Duplicate(h id.Handle) (id.Handle, Errno) {
	ht.mu.RLock()
	entry, errno := ht.entry(h)
	if !errno.Ok() {
		ht.mu.RUnlock()
		return id.Invalid, errno
	}
	if !entry.rights.Covers(RightDuplicate) {
		ht.mu.RUnlock()
		return id.Invalid, ErrAccessDenied
	}
	obj, rights := entry.obj, entry.rights
	ht.mu.RUnlock()

	ht.kernel.retain(obj)
	dup, errno := ht.Insert(obj, rights)
	if !errno.Ok() {
		ht.kernel.release(obj)
		return id.Invalid, errno
	}
	return dup, ErrNone
}

// Count returns the number of open handles.
func (ht *HandleTable) Count() int {
	ht.mu.RLock()
	defer ht.mu.RUnlock()

	n := 0
	for _, e := range ht.slots {
		if e != nil {
			n++
		}
	}
	return n
}

// clear closes every handle, returning the dropped references for release
// by the caller (outside the table lock).
func (ht *HandleTable) clear() []Object {
	ht.mu.Lock()
	defer ht.mu.Unlock()

	var objs []Object
	for i, e := range ht.slots {
		if e != nil {
			objs = append(objs, e.obj)
			ht.slots[i] = nil
		}
	}
	ht.slots = ht.slots[:1]
	ht.free = nil
	return objs
}

// entry fetches the occupied slot for h. Table lock must be held.
func (ht *HandleTable) entry(h id.Handle) (*handleEntry, Errno) {
	slot := int(h)
	if !h.Valid() || slot >= len(ht.slots) || ht.slots[slot] == nil {
		return nil, ErrInvalidHandle
	}
	return ht.slots[slot], ErrNone
}

// freeSlots is a min-heap of freed slot indexes.
type freeSlots []int

func (f freeSlots) Len() int            { return len(f) }
func (f freeSlots) Less(i, j int) bool  { return f[i] < f[j] }
func (f freeSlots) Swap(i, j int)       { f[i], f[j] = f[j], f[i] }
func (f *freeSlots) Push(x interface{}) { *f = append(*f, x.(int)) }
func (f *freeSlots) Pop() interface{} {
	old := *f
	n := len(old)
	x := old[n-1]
	*f = old[:n-1]
	return x
}
