// Package concurrency implements the scoped mutual-exclusion wrapper
// around the storage engine (§4.5, §5): a single process-wide lock
// serializes every CRUD/history/reindex/index call, acquired after URL
// routing/parameter parsing and released before response body streaming.
package concurrency

import (
	"sync"

	"yardb/internal/engine"
)

// Guard serializes access to a single *engine.Engine.
type Guard struct {
	mu sync.Mutex
	e  *engine.Engine
}

// New wraps e behind a mutual-exclusion guard.
func New(e *engine.Engine) *Guard {
	return &Guard{e: e}
}

// With acquires the guard, sets the active collection, runs fn, and
// releases the guard on every exit path (including a panic from fn).
func (g *Guard) With(collection string, fn func(e *engine.Engine) error) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.e.Collection(collection)
	return fn(g.e)
}

// Close acquires the guard once more to close the underlying engine,
// ensuring no in-flight request races shutdown.
func (g *Guard) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.e.Close()
}
