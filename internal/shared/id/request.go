package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// RequestID identifies one API request. Request ids are ULIDs: sortable by
// issue time, unique across restarts, readable in logs.
type RequestID string

// RequestPrefix marks request ids in logs.
const RequestPrefix = "req"

// ulidGenerator generates ULIDs from a shared entropy source.
type ulidGenerator struct {
	entropy   io.Reader
	entropyMu sync.Mutex
}

var (
	defaultULID *ulidGenerator
	ulidOnce    sync.Once
)

func defaultULIDGenerator() *ulidGenerator {
	ulidOnce.Do(func() {
		defaultULID = &ulidGenerator{entropy: rand.Reader}
	})
	return defaultULID
}

func (g *ulidGenerator) generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// NewRequestID generates a new request id.
func NewRequestID() RequestID {
	return RequestID(fmt.Sprintf("%s_%s", RequestPrefix, defaultULIDGenerator().generate()))
}
