package event

import "testing"

func TestMaskMatches(t *testing.T) {
	cases := []struct {
		mask Mask
		kind Kind
		want bool
	}{
		{MaskProcess, ProcessCreated, true},
		{MaskProcess, ProcessDeleted, true},
		{MaskProcess, ThreadCreated, false},
		{MaskThread, ThreadTerminated, true},
		{MaskThread, ThreadError, true},
		{MaskThread, MemoryObjectCreated, false},
		{MaskMemory, MemoryObjectDeleted, true},
		{MaskAll, ThreadError, true},
		{Mask(0), ProcessCreated, false},
	}

	for _, c := range cases {
		if got := c.mask.Matches(c.kind); got != c.want {
			t.Errorf("mask %b Matches(%s) = %v, want %v", c.mask, c.kind, got, c.want)
		}
	}
}

func TestMaskAllCoversEveryKind(t *testing.T) {
	kinds := []Kind{
		ProcessCreated, ProcessDeleted,
		ThreadCreated, ThreadTerminated, ThreadError,
		MemoryObjectCreated, MemoryObjectDeleted,
	}
	for _, k := range kinds {
		if !MaskAll.Matches(k) {
			t.Errorf("MaskAll does not cover %s", k)
		}
	}
}

func TestEventString(t *testing.T) {
	e := Event{Kind: ThreadCreated, ID: 5}
	if got := e.String(); got != "thread_created(5)" {
		t.Errorf("unexpected format %q", got)
	}

	e = Event{Kind: ThreadError, ID: 7, Cause: CausePageFault}
	if got := e.String(); got != "thread_error(7, page_fault)" {
		t.Errorf("unexpected format %q", got)
	}
}
