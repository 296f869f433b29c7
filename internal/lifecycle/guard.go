package lifecycle

import "sync"

// Guard serializes operations per instance identifier. Two callers locking the
// same identifier run one after the other; different identifiers never block
// each other.
type Guard struct {
	mu    sync.Mutex
	locks map[string]*guardEntry
}

type guardEntry struct {
	mu   sync.Mutex
	refs int
}

// NewGuard creates an empty guard.
func NewGuard() *Guard {
	return &Guard{locks: make(map[string]*guardEntry)}
}

// Lock blocks until id is free and returns the function that releases it.
func (g *Guard) Lock(id string) (unlock func()) {
	g.mu.Lock()
	e, ok := g.locks[id]
	if !ok {
		e = &guardEntry{}
		g.locks[id] = e
	}
	e.refs++
	g.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()

		g.mu.Lock()
		defer g.mu.Unlock()
		e.refs--
		if e.refs == 0 {
			delete(g.locks, id)
		}
	}
}

// Held returns the number of identifiers currently locked or awaited.
func (g *Guard) Held() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.locks)
}
