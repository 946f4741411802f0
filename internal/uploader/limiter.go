package uploader

import "sync"

// Limiter bounds the number of concurrent transfers. Admission never blocks;
// callers that fail to admit leave their item pending and wait for a settle
// to re-drain the queue.
type Limiter struct {
	mu     sync.Mutex
	limit  int
	active int
}

// NewLimiter returns a limiter with the given ceiling. Ceilings below one are
// raised to one.
func NewLimiter(limit int) *Limiter {
	if limit < 1 {
		limit = 1
	}
	return &Limiter{limit: limit}
}

// TryAdmit claims a transfer slot if one is free and reports whether it did.
func (l *Limiter) TryAdmit() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.active >= l.limit {
		return false
	}
	l.active++
	return true
}

// Release returns a previously claimed slot. The active count never drops
// below zero.
func (l *Limiter) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.active > 0 {
		l.active--
	}
}

// Active returns the number of claimed slots.
func (l *Limiter) Active() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

// Limit returns the concurrency ceiling.
func (l *Limiter) Limit() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.limit
}
