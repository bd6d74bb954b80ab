// Package id provides centralized ID generation for kernel objects.
//
// Kernel object identifiers are dense monotonic 64-bit integers:
//   - Monotonic: allocation order is observable in logs and event streams
//   - Type-safe: separate types prevent mixing a PID with a TID
//   - Zero is reserved: the zero value of every ID type means "no object"
package id

import "sync/atomic"

// PID identifies a process
type PID uint64

// TID identifies a thread
type TID uint64

// ObjectID identifies any kernel object (memory objects, ports)
type ObjectID uint64

// Handle is a process-scoped name for a kernel object.
// Handle 0 is never valid.
type Handle uint64

// Invalid is the reserved invalid handle.
const Invalid Handle = 0

// Valid reports whether the handle may name an object.
func (h Handle) Valid() bool { return h != Invalid }

// IsZero reports the reserved "no object" value.
func (p PID) IsZero() bool      { return p == 0 }
func (t TID) IsZero() bool      { return t == 0 }
func (o ObjectID) IsZero() bool { return o == 0 }

// Generator hands out monotonic 64-bit identifiers starting at 1.
// Safe for concurrent use.
type Generator struct {
	last atomic.Uint64
}

// NewGenerator creates a new identifier generator.
func NewGenerator() *Generator {
	return &Generator{}
}

// Next returns the next identifier. Never returns 0.
func (g *Generator) Next() uint64 {
	return g.last.Add(1)
}

// NextPID returns a fresh process identifier.
func (g *Generator) NextPID() PID { return PID(g.Next()) }

// NextTID returns a fresh thread identifier.
func (g *Generator) NextTID() TID { return TID(g.Next()) }

// NextObjectID returns a fresh object identifier.
func (g *Generator) NextObjectID() ObjectID { return ObjectID(g.Next()) }
