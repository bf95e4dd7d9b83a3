// Package rangelock implements a reader/writer lock over half-open
// byte ranges. Exclusive holders of overlapping ranges are serialized,
// shared holders only wait for overlapping exclusive holders, and holders
// of disjoint ranges never wait for each other.
package rangelock

import "sync"

type span struct {
	start, end int64
	exclusive  bool
}

func (s span) overlaps(o span) bool {
	return s.start < o.end && o.start < s.end
}

// RangeLock is safe for concurrent use. The zero value is ready to use.
type RangeLock struct {
	mu     sync.Mutex
	cond   sync.Cond
	nextID uint64
	held   map[uint64]span
}

// Lock acquires [start, end) exclusively and returns the release func.
func (l *RangeLock) Lock(start, end int64) (unlock func()) {
	return l.acquire(span{start: start, end: end, exclusive: true})
}

// RLock acquires [start, end) in shared mode and returns the release func.
func (l *RangeLock) RLock(start, end int64) (unlock func()) {
	return l.acquire(span{start: start, end: end})
}

func (l *RangeLock) acquire(s span) func() {
	if s.end <= s.start {
		return func() {}
	}

	l.mu.Lock()
	if l.cond.L == nil {
		l.cond.L = &l.mu
	}
	if l.held == nil {
		l.held = make(map[uint64]span)
	}
	for l.conflicts(s) {
		l.cond.Wait()
	}
	id := l.nextID
	l.nextID++
	l.held[id] = s
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, id)
			l.mu.Unlock()
			l.cond.Broadcast()
		})
	}
}

// conflicts must be called with mu held.
func (l *RangeLock) conflicts(s span) bool {
	for _, h := range l.held {
		if !h.overlaps(s) {
			continue
		}
		if h.exclusive || s.exclusive {
			return true
		}
	}
	return false
}
