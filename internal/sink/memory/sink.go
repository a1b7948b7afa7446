// Package memory contains an in-memory sink for development and tests.
package memory

import (
	"context"
	"sync"

	"github.com/kodexai/regwatch/internal/regulator"
)

// Sink stores published publications for inspection.
type Sink struct {
	mu   sync.RWMutex
	pubs []regulator.Publication
}

// New returns a memory Sink.
func New() *Sink {
	return &Sink{}
}

// Publish records the publication.
func (s *Sink) Publish(_ context.Context, pub regulator.Publication) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pubs = append(s.pubs, pub)
	return nil
}

// Publications returns the recorded publications.
func (s *Sink) Publications() []regulator.Publication {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]regulator.Publication, len(s.pubs))
	copy(out, s.pubs)
	return out
}
