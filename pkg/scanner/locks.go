package scanner

import "sync"

// scanLocks enforces at most one running scan per library. Locks are
// non-blocking; a second scan request fails instead of queueing.
type scanLocks struct {
	mu     sync.Mutex
	active map[int]bool
}

func newScanLocks() *scanLocks {
	return &scanLocks{active: map[int]bool{}}
}

// tryLock reserves the library for scanning, reporting false when a scan is
// already running.
func (l *scanLocks) tryLock(libraryID int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.active[libraryID] {
		return false
	}
	l.active[libraryID] = true
	return true
}

func (l *scanLocks) unlock(libraryID int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.active, libraryID)
}
