package application

import (
	"sync"

	"github.com/draftea/saga-system/shared/models"
)

// sagaLocks serializes mutations of one saga inside this process.
// Entries are dropped once no goroutine holds or waits for them.
type sagaLocks struct {
	mu    sync.Mutex
	locks map[models.ID]*sagaLock
}

type sagaLock struct {
	mu   sync.Mutex
	refs int
}

func newSagaLocks() *sagaLocks {
	return &sagaLocks{locks: make(map[models.ID]*sagaLock)}
}

// lock blocks until the caller owns sagaID and returns the release func
func (l *sagaLocks) lock(sagaID models.ID) func() {
	l.mu.Lock()
	entry, ok := l.locks[sagaID]
	if !ok {
		entry = &sagaLock{}
		l.locks[sagaID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, sagaID)
		}
		l.mu.Unlock()
	}
}

func (l *sagaLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
