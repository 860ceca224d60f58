// Package idgen generates the opaque 128-bit identifiers used for transactions and dispense
// jobs. It is injectable the same way internal/clock is, so tests can assert against
// deterministic ids instead of parsing random UUIDs out of responses.
package idgen

import (
	"strconv"
	"sync"

	"github.com/google/uuid"
)

// Generator produces a new opaque identifier. Implementations must be safe for concurrent use.
type Generator interface {
	NewID() string
}

// UUIDGenerator is the production Generator, backed by google/uuid v4.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID() string {
	return uuid.NewString()
}

// Sequential is a deterministic Generator for tests: each call returns prefix-N, counting up
// from 1, so assertions can reference "tx-1", "tx-2" instead of opaque random values.
type Sequential struct {
	Prefix string
	mu     sync.Mutex
	next   int
}

func NewSequential(prefix string) *Sequential {
	return &Sequential{Prefix: prefix}
}

func (s *Sequential) NewID() string {
	s.mu.Lock()
	s.next++
	n := s.next
	s.mu.Unlock()
	prefix := s.Prefix
	if prefix == "" {
		prefix = "id"
	}
	return prefix + "-" + strconv.Itoa(n)
}
