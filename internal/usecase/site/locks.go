package site

import "sync"

// keyedLock is a non-blocking per-key mutex. A key only occupies memory while
// it is held, so the map never grows past the number of in-flight operations.
type keyedLock struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func newKeyedLock() *keyedLock {
	return &keyedLock{held: make(map[string]struct{})}
}

// TryAcquire takes the lock for key without waiting.
// It returns a release func and true on success.
func (l *keyedLock) TryAcquire(key string) (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, busy := l.held[key]; busy {
		return nil, false
	}
	l.held[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, key)
			l.mu.Unlock()
		})
	}, true
}

// Len returns the number of keys currently held.
func (l *keyedLock) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.held)
}
