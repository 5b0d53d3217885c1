// Package opguard serializes pipeline operations per operation type. A
// second invocation while one is in flight fails fast with ErrBusy instead
// of queueing.
package opguard

import (
	"sync"

	"github.com/coverhub/geostaging/internal/domain"
	"github.com/coverhub/geostaging/internal/pkg/constants"
)

type Guard struct {
	mu     sync.Mutex
	active map[domain.OperationType]string
}

func New() *Guard {
	return &Guard{active: make(map[domain.OperationType]string)}
}

// Acquire takes the lock for op. The returned release func must be called
// exactly once; releasing is idempotent against double calls.
func (g *Guard) Acquire(op domain.OperationType, batchID string) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, busy := g.active[op]; busy {
		return nil, constants.ErrBusy
	}
	g.active[op] = batchID

	var once sync.Once
	release := func() {
		once.Do(func() {
			g.mu.Lock()
			defer g.mu.Unlock()
			delete(g.active, op)
		})
	}

	return release, nil
}

// Active returns the batch id of the in-flight operation of the given type,
// if any.
func (g *Guard) Active(op domain.OperationType) (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	batchID, ok := g.active[op]
	return batchID, ok
}
