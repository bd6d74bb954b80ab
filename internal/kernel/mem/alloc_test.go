package mem

import "testing"

func TestAllocFree(t *testing.T) {
	a := NewFrameAllocator(128)

	f1, ok := a.Alloc()
	if !ok {
		t.Fatal("alloc failed on fresh allocator")
	}
	f2, ok := a.Alloc()
	if !ok {
		t.Fatal("second alloc failed")
	}
	if f1 == f2 {
		t.Fatalf("allocator handed out frame %d twice", f1)
	}
	if got := a.FreeCount(); got != 126 {
		t.Fatalf("free count = %d, want 126", got)
	}

	a.Free(f1)
	if got := a.FreeCount(); got != 127 {
		t.Fatalf("free count after free = %d, want 127", got)
	}

	// Lowest frame is reused first.
	f3, _ := a.Alloc()
	if f3 != f1 {
		t.Errorf("expected frame %d to be reused, got %d", f1, f3)
	}
}

func TestExhaustion(t *testing.T) {
	a := NewFrameAllocator(4)

	for i := 0; i < 4; i++ {
		if _, ok := a.Alloc(); !ok {
			t.Fatalf("alloc %d failed before exhaustion", i)
		}
	}
	if _, ok := a.Alloc(); ok {
		t.Error("alloc succeeded on exhausted allocator")
	}
	if got := a.FreeCount(); got != 0 {
		t.Errorf("free count = %d, want 0", got)
	}
}

func TestAllocNAllOrNothing(t *testing.T) {
	a := NewFrameAllocator(8)

	frames, ok := a.AllocN(6)
	if !ok || len(frames) != 6 {
		t.Fatalf("AllocN(6) = %v, %v", frames, ok)
	}

	// Only 2 left; a request for 3 must not partially succeed.
	if _, ok := a.AllocN(3); ok {
		t.Fatal("AllocN(3) succeeded with 2 free frames")
	}
	if got := a.FreeCount(); got != 2 {
		t.Errorf("partial reservation leaked: free = %d, want 2", got)
	}

	a.FreeAll(frames)
	if got := a.FreeCount(); got != 8 {
		t.Errorf("free count after FreeAll = %d, want 8", got)
	}
}

func TestDoubleFreePanics(t *testing.T) {
	a := NewFrameAllocator(4)
	f, _ := a.Alloc()
	a.Free(f)

	defer func() {
		if recover() == nil {
			t.Error("double free did not panic")
		}
	}()
	a.Free(f)
}

func TestPagesFor(t *testing.T) {
	cases := []struct {
		size uint64
		want int
	}{
		{0, 0},
		{1, 1},
		{PageSize, 1},
		{PageSize + 1, 2},
		{3 * PageSize, 3},
	}
	for _, c := range cases {
		if got := PagesFor(c.size); got != c.want {
			t.Errorf("PagesFor(%d) = %d, want %d", c.size, got, c.want)
		}
	}
}
