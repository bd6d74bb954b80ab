package kernel

import (
	"sync"

	"github.com/GriffinCanCode/NanoOS/kernel/internal/kernel/mem"
)

// mappingBase is the first address handed out when no hint is given. Low
// addresses stay unmapped so that nil-ish pointers always fault.
const mappingBase = 0x10_0000_0000

// mapping is one mapped range in a process address space. The range holds
// one reference on its object for as long as it exists.
type mapping struct {
	base   uint64
	length uint64
	obj    *MemoryObject
	rights Rights
}

// MappingTable is a process's address-space root: base address to mapped
// range. Private per process.
type MappingTable struct {
	mu       sync.RWMutex
	mappings map[uint64]*mapping
	nextBase uint64
}

func newMappingTable() *MappingTable {
	return &MappingTable{
		mappings: make(map[uint64]*mapping),
		nextBase: mappingBase,
	}
}

// mapObject inserts a mapping for the whole object. A non-zero page-aligned
// hint requests a fixed base; zero lets the table choose. The caller has
// already taken the object reference the mapping will hold.
func (mt *MappingTable) mapObject(obj *MemoryObject, hint uint64, rights Rights) (uint64, Errno) {
	length := uint64(mem.PagesFor(obj.size)) * mem.PageSize

	mt.mu.Lock()
	defer mt.mu.Unlock()

	base := hint
	if base == 0 {
		base = mt.nextBase
		mt.nextBase += length + mem.PageSize // guard page between ranges
	} else if base%mem.PageSize != 0 {
		return 0, ErrInvalidArgument
	}

	if mt.overlaps(base, length) {
		return 0, ErrInvalidArgument
	}

	mt.mappings[base] = &mapping{base: base, length: length, obj: obj, rights: rights}
	return base, ErrNone
}

// unmapObject removes the mapping at exactly base and returns its object so
// the caller can drop the mapping's reference.
func (mt *MappingTable) unmapObject(base uint64) (*MemoryObject, Errno) {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	m, ok := mt.mappings[base]
	if !ok {
		return nil, ErrInvalidArgument
	}
	delete(mt.mappings, base)
	return m.obj, ErrNone
}

// resolve translates a virtual address into (object, offset) with the
// mapping's rights. Returns false when addr is outside every mapping.
func (mt *MappingTable) resolve(addr uint64) (*MemoryObject, uint64, Rights, bool) {
	mt.mu.RLock()
	defer mt.mu.RUnlock()

	for _, m := range mt.mappings {
		if addr >= m.base && addr < m.base+m.length {
			return m.obj, addr - m.base, m.rights, true
		}
	}
	return nil, 0, 0, false
}

// overlaps reports whether [base, base+length) intersects an existing
// mapping. Table lock must be held.
func (mt *MappingTable) overlaps(base, length uint64) bool {
	end := base + length
	for _, m := range mt.mappings {
		if base < m.base+m.length && m.base < end {
			return true
		}
	}
	return false
}

// clear removes every mapping, returning the objects whose references the
// caller must drop.
func (mt *MappingTable) clear() []*MemoryObject {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	objs := make([]*MemoryObject, 0, len(mt.mappings))
	for base, m := range mt.mappings {
		objs = append(objs, m.obj)
		delete(mt.mappings, base)
	}
	return objs
}

// count returns the number of live mappings.
func (mt *MappingTable) count() int {
	mt.mu.RLock()
	defer mt.mu.RUnlock()
	return len(mt.mappings)
}
