package kernel

import "strings"

// Rights is the capability mask stored alongside an object reference in a
// handle table slot. Lookup fails with ErrAccessDenied when the stored mask
// does not cover the rights an operation requires.
type Rights uint32

const (
	// RightRead - read the object's memory or state.
	RightRead Rights = 1 << iota
	// RightWrite - write the object's memory.
	RightWrite
	// RightExecute - map the object's memory executable.
	RightExecute
	// RightMap - map the object into an address space.
	RightMap
	// RightDuplicate - duplicate the handle.
	RightDuplicate
	// RightWait - block on the object (join, receive).
	RightWait
	// RightPost - post messages to the object.
	RightPost
	// RightManage - lifecycle control: exit, destroy, listener registration.
	RightManage
)

// RightsAll grants everything.
const RightsAll = RightRead | RightWrite | RightExecute | RightMap |
	RightDuplicate | RightWait | RightPost | RightManage

// Covers reports whether r grants every right in required.
func (r Rights) Covers(required Rights) bool { return r&required == required }

// String renders the mask for logs and the introspection API.
func (r Rights) String() string {
	if r == 0 {
		return "none"
	}
	names := []struct {
		bit  Rights
		name string
	}{
		{RightRead, "read"},
		{RightWrite, "write"},
		{RightExecute, "execute"},
		{RightMap, "map"},
		{RightDuplicate, "duplicate"},
		{RightWait, "wait"},
		{RightPost, "post"},
		{RightManage, "manage"},
	}
	var parts []string
	for _, n := range names {
		if r&n.bit != 0 {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "|")
}
