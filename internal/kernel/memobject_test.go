package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/NanoOS/kernel/internal/kernel/event"
	"github.com/GriffinCanCode/NanoOS/kernel/internal/kernel/mem"
)

func TestMemoryCreateRejectsZeroSize(t *testing.T) {
	k, root := newTestKernel(t)

	_, errno := k.MemoryCreate(root, 0)
	assert.Equal(t, ErrInvalidArgument, errno)
}

func TestMemoryCreateRoundsToPages(t *testing.T) {
	k, root := newTestKernel(t)
	before := k.MemoryStats().FreeFrames

	_, errno := k.MemoryCreate(root, mem.PageSize+1)
	require.True(t, errno.Ok())
	assert.Equal(t, before-2, k.MemoryStats().FreeFrames)
}

func TestMemoryExhaustion(t *testing.T) {
	k, root := newTestKernel(t)
	free := k.MemoryStats().FreeFrames

	// One object larger than physical memory.
	_, errno := k.MemoryCreate(root, uint64(free+1)*mem.PageSize)
	assert.Equal(t, ErrResourceExhausted, errno)
	// The failed allocation must not leak partial frames.
	assert.Equal(t, free, k.MemoryStats().FreeFrames)
}

func TestMemoryFramesReturnOnDestroy(t *testing.T) {
	k, root := newTestKernel(t)
	free := k.MemoryStats().FreeFrames

	h, errno := k.MemoryCreate(root, 4*mem.PageSize)
	require.True(t, errno.Ok())
	assert.Equal(t, free-4, k.MemoryStats().FreeFrames)

	require.True(t, k.HandleClose(root, h).Ok())
	assert.Equal(t, free, k.MemoryStats().FreeFrames)
}

func TestMemoryMapAndWordAccess(t *testing.T) {
	k, root := newTestKernel(t)

	h, errno := k.MemoryCreate(root, 4096)
	require.True(t, errno.Ok())
	base, errno := k.MemoryMap(root, h, 0, RightRead|RightWrite|RightMap)
	require.True(t, errno.Ok())
	require.NotZero(t, base)

	p := root.Process()
	require.True(t, p.WriteWord(base+8, 0x1234).Ok())
	v, errno := p.ReadWord(base + 8)
	require.True(t, errno.Ok())
	assert.Equal(t, uint32(0x1234), v)

	// Unmapped addresses fault.
	_, errno = p.ReadWord(base + 2*4096)
	assert.Equal(t, ErrInvalidArgument, errno)
}

func TestMemoryMapRightsSubsetOfHandle(t *testing.T) {
	k, root := newTestKernel(t)
	ht := root.Process().Handles()

	h, errno := k.MemoryCreate(root, 4096)
	require.True(t, errno.Ok())

	// Reduce the handle to read+map and ask for a writable mapping.
	obj, _ := ht.Lookup(h, 0)
	k.retain(obj)
	require.True(t, ht.Close(h).Ok())
	limited, errno := ht.Insert(obj, RightRead|RightMap)
	require.True(t, errno.Ok())

	_, errno = k.MemoryMap(root, limited, 0, RightRead|RightWrite|RightMap)
	assert.Equal(t, ErrAccessDenied, errno)

	base, errno := k.MemoryMap(root, limited, 0, RightRead|RightMap)
	require.True(t, errno.Ok())

	// The mapping's rights stick: writes through it fault.
	assert.Equal(t, ErrInvalidArgument, root.Process().WriteWord(base, 1))
}

func TestMemoryUnmapReleasesObject(t *testing.T) {
	k, root := newTestKernel(t)
	free := k.MemoryStats().FreeFrames

	h, errno := k.MemoryCreate(root, 4096)
	require.True(t, errno.Ok())
	base, errno := k.MemoryMap(root, h, 0, RightRead|RightMap)
	require.True(t, errno.Ok())

	// Handle closed, mapping still holds the object alive.
	require.True(t, k.HandleClose(root, h).Ok())
	_, errno = root.Process().ReadWord(base)
	assert.Equal(t, ErrNone, errno)
	assert.Equal(t, free-1, k.MemoryStats().FreeFrames)

	require.True(t, k.MemoryUnmap(root, base).Ok())
	assert.Equal(t, free, k.MemoryStats().FreeFrames)
}

func TestMemoryUnmapUnknownBase(t *testing.T) {
	k, root := newTestKernel(t)

	assert.Equal(t, ErrInvalidArgument, k.MemoryUnmap(root, 0xdead0000))
}

func TestMemoryMapHintValidation(t *testing.T) {
	k, root := newTestKernel(t)

	h, errno := k.MemoryCreate(root, 4096)
	require.True(t, errno.Ok())

	// Unaligned hint.
	_, errno = k.MemoryMap(root, h, mappingBase+7, RightRead|RightMap)
	assert.Equal(t, ErrInvalidArgument, errno)

	// Overlapping hint.
	base, errno := k.MemoryMap(root, h, 0, RightRead|RightMap)
	require.True(t, errno.Ok())
	_, errno = k.MemoryMap(root, h, base, RightRead|RightMap)
	assert.Equal(t, ErrInvalidArgument, errno)
}

func TestMemoryObjectLifecycleEvents(t *testing.T) {
	k, root := newTestKernel(t)
	tap := k.Subscribe()
	defer k.Unsubscribe(tap)

	h, errno := k.MemoryCreate(root, 4096)
	require.True(t, errno.Ok())
	require.True(t, k.HandleClose(root, h).Ok())

	evs := drain(tap)
	require.Len(t, evs, 2)
	assert.Equal(t, event.MemoryObjectCreated, evs[0].Kind)
	assert.Equal(t, event.MemoryObjectDeleted, evs[1].Kind)
	assert.Equal(t, evs[0].ID, evs[1].ID)
}
