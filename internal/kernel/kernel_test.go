package kernel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/NanoOS/kernel/internal/kernel/event"
	"github.com/GriffinCanCode/NanoOS/kernel/internal/logging"
)

var testBase = time.Unix(1000, 0)

func newTestKernel(t *testing.T) (*Kernel, *Thread) {
	t.Helper()
	k := New(Config{
		FrameCount:     64,
		HandleCapacity: 16,
		Quantum:        10 * time.Millisecond,
	}, logging.Nop(), nil)
	// Advance the clock before boot so the root thread's first slice starts
	// at the test epoch.
	k.Tick(testBase)
	_, root := k.Boot("test")
	require.NotNil(t, root)
	require.Equal(t, root, k.CurrentThread())
	return k, root
}

// spawn creates a Ready thread in the caller's process.
func spawn(t *testing.T, k *Kernel, caller *Thread, prio Priority) *Thread {
	t.Helper()
	h, errno := k.ThreadCreate(caller, ThreadSpec{Priority: prio})
	require.True(t, errno.Ok())
	obj, errno := caller.proc.handles.Lookup(h, 0)
	require.True(t, errno.Ok())
	th, ok := obj.(*Thread)
	require.True(t, ok)
	return th
}

// drain empties an event tap.
func drain(ch <-chan event.Event) []event.Event {
	var evs []event.Event
	for {
		select {
		case ev := <-ch:
			evs = append(evs, ev)
		default:
			return evs
		}
	}
}

func TestBootDispatchesRootThread(t *testing.T) {
	k, root := newTestKernel(t)

	assert.Equal(t, StateRunning, root.State())
	assert.Equal(t, root, k.CurrentThread())
	assert.Equal(t, 1, len(k.Processes()))
}

func TestYieldRoundRobinSameClass(t *testing.T) {
	k, root := newTestKernel(t)
	a := spawn(t, k, root, PriorityNormal)
	b := spawn(t, k, root, PriorityNormal)

	// Creation order fixes queue order: a before b.
	k.Yield(root)
	assert.Equal(t, a, k.CurrentThread())

	k.Yield(a)
	assert.Equal(t, b, k.CurrentThread())

	k.Yield(b)
	assert.Equal(t, root, k.CurrentThread())
}

func TestHigherPriorityRunsFirst(t *testing.T) {
	k, root := newTestKernel(t)
	low := spawn(t, k, root, PriorityLowest)
	high := spawn(t, k, root, PriorityHighest)
	_ = low

	k.Yield(root)
	assert.Equal(t, high, k.CurrentThread())
}

func TestQuantumExpiryPreemptsEqualClass(t *testing.T) {
	k, root := newTestKernel(t)
	other := spawn(t, k, root, PriorityNormal)

	// Half a quantum in: still root's slice.
	k.Tick(testBase.Add(5 * time.Millisecond))
	assert.Equal(t, root, k.CurrentThread())

	// Slice exhausted: equal-class waiter takes over.
	k.Tick(testBase.Add(15 * time.Millisecond))
	assert.Equal(t, other, k.CurrentThread())
	assert.Equal(t, StateReady, root.State())
}

func TestHigherClassPreemptsMidSlice(t *testing.T) {
	k, root := newTestKernel(t)
	urgent := spawn(t, k, root, PriorityTimeCritical)

	k.Tick(testBase.Add(time.Millisecond))
	assert.Equal(t, urgent, k.CurrentThread())
	assert.Equal(t, StateReady, root.State())
}

func TestNoPreemptionByLowerClass(t *testing.T) {
	k, root := newTestKernel(t)
	spawn(t, k, root, PriorityIdle)

	// Quantum long gone, but the only waiter is a lower class.
	k.Tick(testBase.Add(time.Second))
	assert.Equal(t, root, k.CurrentThread())
}

func TestSleepWakesAtDeadline(t *testing.T) {
	k, root := newTestKernel(t)

	out := k.ThreadSleep(root, 20*time.Millisecond)
	require.True(t, out.Blocked)
	assert.Equal(t, StateSleeping, root.State())
	assert.Nil(t, k.CurrentThread())

	k.Tick(testBase.Add(10 * time.Millisecond))
	assert.Equal(t, StateSleeping, root.State())

	k.Tick(testBase.Add(25 * time.Millisecond))
	assert.Equal(t, root, k.CurrentThread())
	assert.Equal(t, ErrNone, root.SyscallResult().Err)
}

func TestSleepersWakeInDeadlineOrder(t *testing.T) {
	k, root := newTestKernel(t)
	a := spawn(t, k, root, PriorityNormal)
	b := spawn(t, k, root, PriorityNormal)

	// root sleeps longest, a sleeps shortest, b in between.
	k.ThreadSleep(root, 30*time.Millisecond)
	k.Tick(testBase.Add(time.Millisecond))
	require.Equal(t, a, k.CurrentThread())
	k.ThreadSleep(a, 5*time.Millisecond)
	k.Tick(testBase.Add(2 * time.Millisecond))
	require.Equal(t, b, k.CurrentThread())
	k.ThreadSleep(b, 10*time.Millisecond)

	// All asleep. Expire everything at once: ready order follows deadline
	// order, so a runs first.
	k.Tick(testBase.Add(40 * time.Millisecond))
	assert.Equal(t, a, k.CurrentThread())

	k.Yield(a)
	assert.Equal(t, b, k.CurrentThread())
	k.Yield(b)
	assert.Equal(t, root, k.CurrentThread())
}

func TestYieldWritesResultBeforeLeavingCore(t *testing.T) {
	k, root := newTestKernel(t)

	out := k.Yield(root)
	assert.True(t, out.Blocked)
	assert.Equal(t, ErrNone, root.SyscallResult().Err)
	// Only thread in its class: it is dispatched again at once.
	assert.Equal(t, root, k.CurrentThread())
}

func TestSchedulerStats(t *testing.T) {
	k, root := newTestKernel(t)
	spawn(t, k, root, PriorityNormal)

	stats := k.SchedulerStats()
	assert.Equal(t, 1, stats.Ready)
	require.NotNil(t, stats.CurrentID)
	assert.Equal(t, uint64(root.ID()), *stats.CurrentID)

	k.ThreadSleep(root, time.Minute)
	stats = k.SchedulerStats()
	assert.Equal(t, 1, stats.Sleeping)
	assert.Nil(t, stats.CurrentID)
}

func TestIllegalStateTransitionPanics(t *testing.T) {
	k, root := newTestKernel(t)

	assert.Panics(t, func() {
		k.mu.Lock()
		defer k.mu.Unlock()
		// Running -> Running is not an edge of the machine.
		k.setState(root, StateRunning)
	})
}

func TestDeliverPanicsOffCore(t *testing.T) {
	k, root := newTestKernel(t)
	k.ThreadSleep(root, time.Minute)

	assert.Panics(t, func() {
		k.Deliver(root, 0, ErrNone)
	})
}
