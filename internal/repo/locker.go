package repo

import (
	"path/filepath"
	"sync"
)

// DirectoryLocker hands out one mutex per directory so that concurrent
// invocations never race on the same external mutable resource.
type DirectoryLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewDirectoryLocker() *DirectoryLocker {
	return &DirectoryLocker{locks: map[string]*sync.Mutex{}}
}

func (l *DirectoryLocker) lockFor(dir string) *sync.Mutex {
	key := filepath.Clean(dir)
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	return m
}

// WithLock runs fn while holding the lock of dir.
func (l *DirectoryLocker) WithLock(dir string, fn func() error) error {
	m := l.lockFor(dir)
	m.Lock()
	defer m.Unlock()
	return fn()
}
