package kernel

import (
	"encoding/binary"
	"sync"

	"github.com/GriffinCanCode/NanoOS/kernel/internal/kernel/event"
	"github.com/GriffinCanCode/NanoOS/kernel/internal/kernel/mem"
	"github.com/GriffinCanCode/NanoOS/kernel/internal/shared/id"
)

// MemoryObject is a sized set of owned frames. Mappings and handles each
// hold one reference; frames are returned to the allocator only when the
// last reference vanishes.
type MemoryObject struct {
	objectHeader

	size   uint64
	frames []mem.Frame

	// dataMu guards the backing bytes. Ordered after the kernel mutex.
	dataMu sync.Mutex
	data   []byte
}

// Size returns the object size in bytes.
func (m *MemoryObject) Size() uint64 { return m.size }

// MemoryCreate allocates an anonymous memory object of the given size and
// opens a handle to it in the caller's process. Fails with
// ErrResourceExhausted when the frame allocator cannot back it and with
// ErrInvalidArgument for a zero size.
func (k *Kernel) MemoryCreate(caller *Thread, size uint64) (id.Handle, Errno) {
	if size == 0 {
		return id.Invalid, ErrInvalidArgument
	}

	frames, ok := k.frames.AllocN(mem.PagesFor(size))
	if !ok {
		return id.Invalid, ErrResourceExhausted
	}

	mobj := &MemoryObject{
		objectHeader: objectHeader{id: k.ids.Next(), kind: KindMemoryObject},
		size:         size,
		frames:       frames,
		data:         make([]byte, len(frames)*mem.PageSize),
	}
	k.register(mobj)

	h, errno := caller.proc.handles.Insert(mobj, RightsAll)
	if !errno.Ok() {
		k.release(mobj)
		return id.Invalid, errno
	}

	k.publish(event.Event{Kind: event.MemoryObjectCreated, ID: mobj.id})
	return h, ErrNone
}

// MemoryMap maps the object named by h into the caller's address space and
// returns the base address. Requires RightMap plus the rights matching the
// requested page permissions.
func (k *Kernel) MemoryMap(caller *Thread, h id.Handle, hint uint64, rights Rights) (uint64, Errno) {
	required := RightMap
	if rights&RightRead != 0 {
		required |= RightRead
	}
	if rights&RightWrite != 0 {
		required |= RightWrite
	}
	if rights&RightExecute != 0 {
		required |= RightExecute
	}

	obj, errno := caller.proc.handles.Lookup(h, required)
	if !errno.Ok() {
		return 0, errno
	}
	mobj, ok := obj.(*MemoryObject)
	if !ok {
		return 0, ErrInvalidArgument
	}

	k.retain(mobj)
	base, errno := caller.proc.mappings.mapObject(mobj, hint, rights)
	if !errno.Ok() {
		k.release(mobj)
		return 0, errno
	}
	return base, ErrNone
}

// MemoryUnmap removes the mapping at base from the caller's address space
// and drops its object reference.
func (k *Kernel) MemoryUnmap(caller *Thread, base uint64) Errno {
	mobj, errno := caller.proc.mappings.unmapObject(base)
	if !errno.Ok() {
		return errno
	}
	k.release(mobj)
	return ErrNone
}

// loadWord reads the 32-bit futex word at offset.
func (m *MemoryObject) loadWord(offset uint64) (uint32, bool) {
	if offset%4 != 0 || offset+4 > uint64(len(m.data)) {
		return 0, false
	}
	m.dataMu.Lock()
	defer m.dataMu.Unlock()
	return binary.LittleEndian.Uint32(m.data[offset:]), true
}

// storeWord writes the 32-bit word at offset.
func (m *MemoryObject) storeWord(offset uint64, value uint32) bool {
	if offset%4 != 0 || offset+4 > uint64(len(m.data)) {
		return false
	}
	m.dataMu.Lock()
	defer m.dataMu.Unlock()
	binary.LittleEndian.PutUint32(m.data[offset:], value)
	return true
}

// readBytes copies len(dst) bytes starting at offset.
func (m *MemoryObject) readBytes(offset uint64, dst []byte) bool {
	if offset+uint64(len(dst)) > uint64(len(m.data)) {
		return false
	}
	m.dataMu.Lock()
	defer m.dataMu.Unlock()
	copy(dst, m.data[offset:])
	return true
}

// writeBytes copies src into the object starting at offset.
func (m *MemoryObject) writeBytes(offset uint64, src []byte) bool {
	if offset+uint64(len(src)) > uint64(len(m.data)) {
		return false
	}
	m.dataMu.Lock()
	defer m.dataMu.Unlock()
	copy(m.data[offset:], src)
	return true
}

// destroyMemoryObject returns the frames to the allocator and announces the
// deletion. Waiters still parked on a word of the object are woken with
// ErrObjectGone.
func (k *Kernel) destroyMemoryObject(m *MemoryObject) {
	k.mu.Lock()
	k.wakeFutexWaiters(m.id)
	k.mu.Unlock()

	k.frames.FreeAll(m.frames)
	m.frames = nil
	k.publish(event.Event{Kind: event.MemoryObjectDeleted, ID: m.id})
}
