package kernel

import "fmt"

// Kind identifies a kernel object type.
type Kind uint8

const (
	// KindProcess is a process object.
	KindProcess Kind = iota + 1
	// KindThread is a thread object.
	KindThread
	// KindMemoryObject is a memory object.
	KindMemoryObject
	// KindPort is a notification/IPC port.
	KindPort
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindProcess:
		return "process"
	case KindThread:
		return "thread"
	case KindMemoryObject:
		return "memory_object"
	case KindPort:
		return "port"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Object is implemented by the four kernel object kinds. User space never
// holds an Object; it holds process-scoped handles that resolve to one.
type Object interface {
	// ObjectID returns the object's unique 64-bit identifier.
	ObjectID() uint64
	// Kind returns the object's kind.
	Kind() Kind

	header() *objectHeader
}

// objectHeader carries identity and the reference count shared by all object
// kinds. The count is guarded by the kernel mutex; destruction runs with no
// locks held, exactly once, when the count reaches zero.
type objectHeader struct {
	id   uint64
	kind Kind
	refs int32
}

func (h *objectHeader) ObjectID() uint64      { return h.id }
func (h *objectHeader) Kind() Kind            { return h.kind }
func (h *objectHeader) header() *objectHeader { return h }

// retain adds a reference. The object must still be live.
func (k *Kernel) retain(o Object) {
	k.mu.Lock()
	defer k.mu.Unlock()
	h := o.header()
	if h.refs <= 0 {
		panic(fmt.Sprintf("kernel: retain of dead %s %d", h.kind, h.id))
	}
	h.refs++
}

// release drops a reference and destroys the object at zero. Must be called
// with no kernel locks held: destruction may cascade into further releases
// and posts lifecycle events.
func (k *Kernel) release(o Object) {
	k.mu.Lock()
	h := o.header()
	h.refs--
	if h.refs < 0 {
		k.mu.Unlock()
		panic(fmt.Sprintf("kernel: refcount underflow on %s %d", h.kind, h.id))
	}
	if h.refs > 0 {
		k.mu.Unlock()
		return
	}
	delete(k.objects, h.id)
	k.mu.Unlock()

	if k.metrics != nil {
		k.metrics.DecObjects(h.kind.String())
	}
	k.destroy(o)
}

// register inserts a fresh object with one reference into the registry.
func (k *Kernel) register(o Object) {
	k.mu.Lock()
	defer k.mu.Unlock()
	h := o.header()
	if h.refs != 0 {
		panic(fmt.Sprintf("kernel: double registration of %s %d", h.kind, h.id))
	}
	h.refs = 1
	k.objects[h.id] = o
	if k.metrics != nil {
		k.metrics.IncObjects(h.kind.String())
	}
}

// destroy runs the kind-specific teardown. Called exactly once per object.
func (k *Kernel) destroy(o Object) {
	switch obj := o.(type) {
	case *Process:
		k.destroyProcess(obj)
	case *Thread:
		k.destroyThread(obj)
	case *MemoryObject:
		k.destroyMemoryObject(obj)
	case *Port:
		k.destroyPort(obj)
	default:
		panic(fmt.Sprintf("kernel: destroy of unknown object kind %T", o))
	}
}
