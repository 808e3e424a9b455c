package retry

import (
	"sync"
	"time"
)

// lifetime tracks how long the current connection has been up and decides
// when age alone warrants a forced reconnect.
type lifetime struct {
	max   time.Duration // <=0 disables age-based reconnect
	local bool          // a same-process target has no connection to age out

	mu   sync.Mutex
	last time.Time
}

func newLifetime(max time.Duration, local bool) *lifetime {
	return &lifetime{max: max, local: local, last: time.Now()}
}

// aged reports whether the connection has outlived its configured lifetime.
func (l *lifetime) aged(now time.Time) bool {
	if l.max <= 0 || l.local {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return now.Sub(l.last) >= l.max
}

// record marks a successful forced reconnect. Called only after a reconnect,
// never after a plain call. Concurrent reconnects race; last-writer-wins on
// the timestamp.
func (l *lifetime) record(now time.Time) {
	l.mu.Lock()
	l.last = now
	l.mu.Unlock()
}
