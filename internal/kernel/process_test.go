package kernel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/NanoOS/kernel/internal/kernel/event"
	"github.com/GriffinCanCode/NanoOS/kernel/internal/shared/id"
)

// spawnInto creates a process plus one thread inside it, returning both
// handles plus the objects behind them.
func spawnInto(t *testing.T, k *Kernel, caller *Thread, name string) (ph, th id.Handle, p *Process, tr *Thread) {
	t.Helper()
	ph, errno := k.ProcessCreate(caller, name)
	require.True(t, errno.Ok())
	obj, errno := caller.proc.handles.Lookup(ph, 0)
	require.True(t, errno.Ok())
	p, ok := obj.(*Process)
	require.True(t, ok)

	th, errno = k.ThreadCreate(caller, ThreadSpec{Process: ph, Name: name + "/main", Priority: PriorityNormal})
	require.True(t, errno.Ok())
	obj, errno = caller.proc.handles.Lookup(th, 0)
	require.True(t, errno.Ok())
	tr, ok = obj.(*Thread)
	require.True(t, ok)
	return ph, th, p, tr
}

func TestProcessCreateOpensHandle(t *testing.T) {
	k, root := newTestKernel(t)
	tap := k.Subscribe()
	defer k.Unsubscribe(tap)

	ph, errno := k.ProcessCreate(root, "child")
	require.True(t, errno.Ok())

	obj, errno := root.proc.handles.Lookup(ph, RightManage)
	require.True(t, errno.Ok())
	p := obj.(*Process)
	assert.Equal(t, "child", p.Name())
	assert.False(t, p.Terminated())

	evs := drain(tap)
	require.Len(t, evs, 1)
	assert.Equal(t, event.ProcessCreated, evs[0].Kind)
	assert.Equal(t, uint64(p.ID()), evs[0].ID)
}

func TestProcessGetID(t *testing.T) {
	k, root := newTestKernel(t)

	pid, errno := k.ProcessGetID(root)
	require.True(t, errno.Ok())
	assert.Equal(t, uint64(root.Process().ID()), pid)
}

func TestProcessWithoutThreadsDiesWithHandle(t *testing.T) {
	k, root := newTestKernel(t)
	tap := k.Subscribe()
	defer k.Unsubscribe(tap)

	ph, errno := k.ProcessCreate(root, "stillborn")
	require.True(t, errno.Ok())
	require.True(t, k.HandleClose(root, ph).Ok())

	evs := drain(tap)
	require.Len(t, evs, 2)
	assert.Equal(t, event.ProcessCreated, evs[0].Kind)
	assert.Equal(t, event.ProcessDeleted, evs[1].Kind)
}

func TestProcessExitKillsAllThreads(t *testing.T) {
	k, root := newTestKernel(t)
	_, _, p, tr := spawnInto(t, k, root, "child")

	// Hand the core to the child's thread, then exit its whole process.
	k.Yield(root)
	require.Equal(t, tr, k.CurrentThread())

	out := k.ProcessExit(tr, 7)
	require.True(t, out.Blocked)

	assert.Equal(t, StateZombie, tr.State())
	assert.True(t, p.Terminated())
	status, cause := p.ExitStatus()
	assert.Equal(t, int64(7), status)
	assert.Equal(t, event.CauseNone, cause)

	// The core comes back to the surviving process.
	k.Tick(testBase.Add(time.Millisecond))
	assert.Equal(t, root, k.CurrentThread())
}

func TestLastThreadExitTearsDownProcess(t *testing.T) {
	k, root := newTestKernel(t)
	_, _, p, tr := spawnInto(t, k, root, "child")

	// Give the child a resource of its own so teardown has work to do.
	h, errno := k.MemoryCreate(root, 4096)
	require.True(t, errno.Ok())
	obj, errno := root.proc.handles.Lookup(h, 0)
	require.True(t, errno.Ok())
	k.retain(obj)
	_, errno = p.Handles().Insert(obj, RightsAll)
	require.True(t, errno.Ok())
	free := k.MemoryStats().FreeFrames

	k.Yield(root)
	require.Equal(t, tr, k.CurrentThread())
	require.True(t, k.ThreadExit(tr, 0).Blocked)

	assert.True(t, p.Terminated())
	// The child's handle was released; only root's remains.
	require.True(t, k.HandleClose(root, h).Ok())
	assert.Equal(t, free+1, k.MemoryStats().FreeFrames)
}

func TestSecondThreadKeepsProcessAlive(t *testing.T) {
	k, root := newTestKernel(t)
	ph, tha, p, a := spawnInto(t, k, root, "child")

	thb, errno := k.ThreadCreate(root, ThreadSpec{Process: ph, Name: "child/aux", Priority: PriorityNormal})
	require.True(t, errno.Ok())
	obj, errno := root.proc.handles.Lookup(thb, 0)
	require.True(t, errno.Ok())
	b := obj.(*Thread)

	tap := k.Subscribe()
	defer k.Unsubscribe(tap)

	k.Yield(root)
	require.Equal(t, a, k.CurrentThread())
	require.True(t, k.ThreadExit(a, 0).Blocked)

	// One thread down, one still live: the process survives.
	assert.False(t, p.Terminated())
	require.Zero(t, countKind(drain(tap), event.ProcessDeleted))

	k.Tick(testBase.Add(time.Millisecond))
	require.Equal(t, b, k.CurrentThread())
	require.True(t, k.ThreadExit(b, 0).Blocked)
	assert.True(t, p.Terminated())

	// Deletion is announced exactly once, when the last handle closes.
	require.True(t, k.HandleClose(root, tha).Ok())
	require.True(t, k.HandleClose(root, thb).Ok())
	require.Zero(t, countKind(drain(tap), event.ProcessDeleted))
	require.True(t, k.HandleClose(root, ph).Ok())
	assert.Equal(t, 1, countKind(drain(tap), event.ProcessDeleted))
}

func TestTerminatedProcessRejectsNewThreads(t *testing.T) {
	k, root := newTestKernel(t)
	ph, _, p, tr := spawnInto(t, k, root, "child")

	k.Yield(root)
	require.Equal(t, tr, k.CurrentThread())
	k.ProcessExit(tr, 0)
	require.True(t, p.Terminated())

	_, errno := k.ThreadCreate(root, ThreadSpec{Process: ph, Priority: PriorityNormal})
	assert.Equal(t, ErrObjectGone, errno)
}

func TestProcessDeletedPublishedExactlyOnce(t *testing.T) {
	k, root := newTestKernel(t)
	ph, th, p, tr := spawnInto(t, k, root, "child")
	tap := k.Subscribe()
	defer k.Unsubscribe(tap)

	k.Yield(root)
	require.Equal(t, tr, k.CurrentThread())
	k.ProcessExit(tr, 0)
	require.True(t, p.Terminated())

	// Teardown ran, but root still holds handles on the process and its
	// thread. Deletion is announced only when the last one closes.
	require.True(t, k.HandleClose(root, th).Ok())
	require.Zero(t, countKind(drain(tap), event.ProcessDeleted))

	require.True(t, k.HandleClose(root, ph).Ok())
	assert.Equal(t, 1, countKind(drain(tap), event.ProcessDeleted))
}

func countKind(evs []event.Event, kind event.Kind) int {
	n := 0
	for _, ev := range evs {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}
