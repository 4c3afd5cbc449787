package sync

import (
	"sync"
)

// TeardownGuard tracks readers of a resource that may be torn down
// concurrently, similar to an RCU read-side critical section. Readers
// call Enter() before dereferencing the resource and Leave() when they
// are done. Teardown() prevents new readers from entering and blocks
// until all existing readers have left.
//
// Unlike sync.RWMutex, readers may hold their side for the full
// duration of a slow operation without ever blocking each other, and
// the writer side is a one-shot transition.
type TeardownGuard struct {
	lock        sync.Mutex
	readers     uint
	tornDown    bool
	lastDrained chan struct{}
}

// Enter the read-side critical section. Returns false if teardown has
// already started, in which case the caller must not touch the guarded
// resource and must not call Leave().
func (g *TeardownGuard) Enter() bool {
	g.lock.Lock()
	defer g.lock.Unlock()

	if g.tornDown {
		return false
	}
	g.readers++
	return true
}

// Leave the read-side critical section.
func (g *TeardownGuard) Leave() {
	g.lock.Lock()
	defer g.lock.Unlock()

	if g.readers == 0 {
		panic("Called Leave() on TeardownGuard with no active readers")
	}
	g.readers--
	if g.readers == 0 && g.lastDrained != nil {
		close(g.lastDrained)
		g.lastDrained = nil
	}
}

// Teardown marks the guard as torn down and waits for all readers that
// entered before this call to leave. It may be called at most once.
func (g *TeardownGuard) Teardown() {
	g.lock.Lock()
	if g.tornDown {
		g.lock.Unlock()
		panic("Called Teardown() on TeardownGuard that is already torn down")
	}
	g.tornDown = true
	if g.readers == 0 {
		g.lock.Unlock()
		return
	}
	drained := make(chan struct{})
	g.lastDrained = drained
	g.lock.Unlock()

	<-drained
}
