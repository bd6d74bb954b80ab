package kernel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/NanoOS/kernel/internal/shared/id"
)

func TestPortDeliversInPostOrder(t *testing.T) {
	k, root := newTestKernel(t)

	h, errno := k.PortCreate(root, "fifo")
	require.True(t, errno.Ok())

	for _, payload := range []string{"one", "two", "three"} {
		require.True(t, k.PortPost(root, h, Message{Data: []byte(payload)}).Ok())
	}

	for _, want := range []string{"one", "two", "three"} {
		out := k.PortReceive(root, h)
		require.False(t, out.Blocked)
		require.True(t, out.Err.Ok())
		msg := root.TakeMessage()
		require.NotNil(t, msg)
		assert.Equal(t, want, string(msg.Data))
	}
}

func TestPortReceiveBlocksUntilPost(t *testing.T) {
	k, root := newTestKernel(t)
	worker := spawn(t, k, root, PriorityNormal)

	h, errno := k.PortCreate(root, "block")
	require.True(t, errno.Ok())

	out := k.PortReceive(root, h)
	require.True(t, out.Blocked)
	assert.Equal(t, StateBlocked, root.State())

	// The worker takes the core and posts; the post itself must hand the
	// message over and make the receiver Ready.
	k.Tick(testBase.Add(time.Millisecond))
	require.Equal(t, worker, k.CurrentThread())
	require.True(t, k.PortPost(worker, h, Message{Data: []byte("hi")}).Ok())

	assert.Equal(t, StateReady, root.State())
	res := root.SyscallResult()
	assert.Equal(t, ErrNone, res.Err)
	msg := root.TakeMessage()
	require.NotNil(t, msg)
	assert.Equal(t, "hi", string(msg.Data))
}

func TestPortWakesReceiversInParkOrder(t *testing.T) {
	k, root := newTestKernel(t)
	a := spawn(t, k, root, PriorityNormal)
	b := spawn(t, k, root, PriorityNormal)

	h, errno := k.PortCreate(root, "order")
	require.True(t, errno.Ok())

	// a parks first, then b, then root posts twice.
	k.Yield(root)
	require.Equal(t, a, k.CurrentThread())
	require.True(t, k.PortReceive(a, h).Blocked)

	k.Tick(testBase.Add(time.Millisecond))
	require.Equal(t, b, k.CurrentThread())
	require.True(t, k.PortReceive(b, h).Blocked)

	k.Tick(testBase.Add(2 * time.Millisecond))
	require.Equal(t, root, k.CurrentThread())
	require.True(t, k.PortPost(root, h, Message{Data: []byte("first")}).Ok())
	require.True(t, k.PortPost(root, h, Message{Data: []byte("second")}).Ok())

	assert.Equal(t, "first", string(a.TakeMessage().Data))
	assert.Equal(t, "second", string(b.TakeMessage().Data))
}

func TestWakeTargetsOnlyTheWokenThread(t *testing.T) {
	k, root := newTestKernel(t)
	a := spawn(t, k, root, PriorityNormal)
	b := spawn(t, k, root, PriorityNormal)

	h, errno := k.PortCreate(root, "isolate")
	require.True(t, errno.Ok())

	k.Yield(root)
	require.Equal(t, a, k.CurrentThread())
	require.True(t, k.PortReceive(a, h).Blocked)

	k.Tick(testBase.Add(time.Millisecond))
	require.Equal(t, b, k.CurrentThread())
	require.True(t, k.PortReceive(b, h).Blocked)

	// Poison both result slots, then wake only a.
	k.mu.Lock()
	a.ctx.Result, a.ctx.Errno = 0xdead, ErrThreadError
	b.ctx.Result, b.ctx.Errno = 0xdead, ErrThreadError
	k.mu.Unlock()

	k.Tick(testBase.Add(2 * time.Millisecond))
	require.Equal(t, root, k.CurrentThread())
	require.True(t, k.PortPost(root, h, Message{Data: []byte("x")}).Ok())

	// a's slot was rewritten by its wake; b's slot is untouched and b is
	// still parked.
	assert.Equal(t, StateReady, a.State())
	assert.Equal(t, Result{Value: 0, Err: ErrNone}, a.SyscallResult())
	assert.Equal(t, StateBlocked, b.State())
	assert.Equal(t, Result{Value: 0xdead, Err: ErrThreadError}, b.SyscallResult())
}

func TestPortDestroyWakesReceiversWithObjectGone(t *testing.T) {
	k, root := newTestKernel(t)
	waiter := spawn(t, k, root, PriorityNormal)

	h, errno := k.PortCreate(root, "doomed")
	require.True(t, errno.Ok())

	k.Yield(root)
	require.Equal(t, waiter, k.CurrentThread())
	require.True(t, k.PortReceive(waiter, h).Blocked)

	// Root closes the only handle; the port dies and the waiter wakes.
	k.Tick(testBase.Add(time.Millisecond))
	require.Equal(t, root, k.CurrentThread())
	require.True(t, k.HandleClose(root, h).Ok())

	assert.Equal(t, StateReady, waiter.State())
	assert.Equal(t, ErrObjectGone, waiter.SyscallResult().Err)
	assert.Nil(t, waiter.TakeMessage())
}

func TestPostToClosedPort(t *testing.T) {
	k, root := newTestKernel(t)

	h, errno := k.PortCreate(root, "gone")
	require.True(t, errno.Ok())
	dup, errno := k.HandleDuplicate(root, h)
	require.True(t, errno.Ok())

	// Keep the object alive through dup but close it underneath: both
	// handles still resolve, but the port logic itself is what refuses.
	obj, _ := root.Process().Handles().Lookup(h, 0)
	port := obj.(*Port)
	k.destroyPort(port)

	assert.Equal(t, ErrObjectGone, k.PortPost(root, dup, Message{Data: []byte("late")}))
	out := k.PortReceive(root, dup)
	assert.False(t, out.Blocked)
	assert.Equal(t, ErrObjectGone, out.Err)
}

func TestPortWrongObjectKind(t *testing.T) {
	k, root := newTestKernel(t)

	mh, errno := k.MemoryCreate(root, 4096)
	require.True(t, errno.Ok())

	assert.Equal(t, ErrInvalidArgument, k.PortPost(root, mh, Message{}))
}

func TestPortPostRequiresHandleInCallersProcess(t *testing.T) {
	k, root := newTestKernel(t)

	errno := k.PortPost(root, id.Handle(99), Message{})
	assert.Equal(t, ErrInvalidHandle, errno)
}
