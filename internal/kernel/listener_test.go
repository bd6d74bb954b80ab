package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/NanoOS/kernel/internal/kernel/event"
	"github.com/GriffinCanCode/NanoOS/kernel/internal/shared/id"
)

// listenerPort creates a port and registers it for the given mask.
func listenerPort(t *testing.T, k *Kernel, caller *Thread, mask event.Mask) (id.Handle, *Port) {
	t.Helper()
	h, errno := k.PortCreate(caller, "listener")
	require.True(t, errno.Ok())
	require.True(t, k.ListenerRegister(caller, h, mask).Ok())
	obj, errno := caller.proc.handles.Lookup(h, 0)
	require.True(t, errno.Ok())
	return h, obj.(*Port)
}

// receiveEvent pops the oldest queued message and returns its event.
func receiveEvent(t *testing.T, k *Kernel, caller *Thread, h id.Handle) event.Event {
	t.Helper()
	out := k.PortReceive(caller, h)
	require.False(t, out.Blocked)
	require.Equal(t, ErrNone, out.Err)
	msg := caller.TakeMessage()
	require.NotNil(t, msg)
	return msg.Event
}

func TestListenerMaskFiltersEvents(t *testing.T) {
	k, root := newTestKernel(t)
	h, _ := listenerPort(t, k, root, event.MaskProcess)

	// A memory object's lifecycle is outside the mask, a process's inside.
	mh, errno := k.MemoryCreate(root, 4096)
	require.True(t, errno.Ok())
	require.True(t, k.HandleClose(root, mh).Ok())
	_, errno = k.ProcessCreate(root, "child")
	require.True(t, errno.Ok())

	ev := receiveEvent(t, k, root, h)
	assert.Equal(t, event.ProcessCreated, ev.Kind)

	out := k.PortReceive(root, h)
	require.True(t, out.Blocked)
}

func TestListenerSeesEventsInPublishOrder(t *testing.T) {
	k, root := newTestKernel(t)
	h, _ := listenerPort(t, k, root, event.MaskMemory)

	mh, errno := k.MemoryCreate(root, 4096)
	require.True(t, errno.Ok())
	require.True(t, k.HandleClose(root, mh).Ok())

	first := receiveEvent(t, k, root, h)
	second := receiveEvent(t, k, root, h)
	assert.Equal(t, event.MemoryObjectCreated, first.Kind)
	assert.Equal(t, event.MemoryObjectDeleted, second.Kind)
	assert.Equal(t, first.ID, second.ID)
}

func TestListenerRegisterRejectsEmptyMask(t *testing.T) {
	k, root := newTestKernel(t)
	h, errno := k.PortCreate(root, "listener")
	require.True(t, errno.Ok())

	assert.Equal(t, ErrInvalidArgument, k.ListenerRegister(root, h, 0))
}

func TestListenerRegisterRequiresPostRight(t *testing.T) {
	k, root := newTestKernel(t)
	ht := root.Process().Handles()
	h, errno := k.PortCreate(root, "listener")
	require.True(t, errno.Ok())

	obj, _ := ht.Lookup(h, 0)
	k.retain(obj)
	require.True(t, ht.Close(h).Ok())
	limited, errno := ht.Insert(obj, RightWait)
	require.True(t, errno.Ok())

	assert.Equal(t, ErrAccessDenied, k.ListenerRegister(root, limited, event.MaskAll))
}

func TestListenerReregisterReplacesMask(t *testing.T) {
	k, root := newTestKernel(t)
	h, _ := listenerPort(t, k, root, event.MaskMemory)
	require.True(t, k.ListenerRegister(root, h, event.MaskProcess).Ok())

	// Memory events no longer match; only the process event arrives.
	mh, errno := k.MemoryCreate(root, 4096)
	require.True(t, errno.Ok())
	require.True(t, k.HandleClose(root, mh).Ok())
	_, errno = k.ProcessCreate(root, "child")
	require.True(t, errno.Ok())

	ev := receiveEvent(t, k, root, h)
	assert.Equal(t, event.ProcessCreated, ev.Kind)
	assert.True(t, k.PortReceive(root, h).Blocked)
}

func TestListenerUnregisterStopsDelivery(t *testing.T) {
	k, root := newTestKernel(t)
	h, _ := listenerPort(t, k, root, event.MaskAll)
	require.True(t, k.ListenerUnregister(root, h).Ok())

	mh, errno := k.MemoryCreate(root, 4096)
	require.True(t, errno.Ok())
	require.True(t, k.HandleClose(root, mh).Ok())

	assert.True(t, k.PortReceive(root, h).Blocked)
}

func TestDyingPortLeavesRegistry(t *testing.T) {
	k, root := newTestKernel(t)
	h, _ := listenerPort(t, k, root, event.MaskAll)

	// Closing the last handle destroys the port, which must drop its own
	// registration. Publishing afterwards must not touch the dead port.
	require.True(t, k.HandleClose(root, h).Ok())

	mh, errno := k.MemoryCreate(root, 4096)
	require.True(t, errno.Ok())
	require.True(t, k.HandleClose(root, mh).Ok())

	k.listeners.mu.Lock()
	assert.Empty(t, k.listeners.entries)
	k.listeners.mu.Unlock()
}

func TestBlockedListenerWakesOnEvent(t *testing.T) {
	k, root := newTestKernel(t)
	h, _ := listenerPort(t, k, root, event.MaskThread)
	worker := spawn(t, k, root, PriorityNormal)

	// The spawn above already queued a ThreadCreated event.
	ev := receiveEvent(t, k, root, h)
	assert.Equal(t, event.ThreadCreated, ev.Kind)

	// Park on the empty port, then let the worker die: the termination
	// event is delivered straight into the parked receiver.
	require.True(t, k.PortReceive(root, h).Blocked)
	k.ThreadFault(worker, event.CausePageFault)

	assert.Equal(t, StateReady, root.State())
	msg := root.TakeMessage()
	require.NotNil(t, msg)
	assert.Equal(t, event.ThreadError, msg.Event.Kind)
	assert.Equal(t, event.CausePageFault, msg.Event.Cause)
}

func TestTapsSeeAllEventsRegardlessOfMask(t *testing.T) {
	k, root := newTestKernel(t)
	tap := k.Subscribe()
	defer k.Unsubscribe(tap)
	listenerPort(t, k, root, event.MaskProcess)

	mh, errno := k.MemoryCreate(root, 4096)
	require.True(t, errno.Ok())
	require.True(t, k.HandleClose(root, mh).Ok())

	evs := drain(tap)
	assert.Equal(t, 1, countKind(evs, event.MemoryObjectCreated))
	assert.Equal(t, 1, countKind(evs, event.MemoryObjectDeleted))
}
