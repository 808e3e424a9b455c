package retry

import (
	"sync"
	"sync/atomic"
	"time"
)

// Timings accumulates wall-clock invocation time per method signature for the
// lifetime of the owning instance. Entries are created lazily on first use.
// Safe under arbitrary concurrent callers with no lost updates; a single
// Timings may be shared across several clients to aggregate their calls.
type Timings struct {
	m sync.Map // signature -> *atomic.Int64 (nanoseconds)
}

// NewTimings creates an empty timing table.
func NewTimings() *Timings {
	return &Timings{}
}

// Add atomically adds elapsed to the counter for sig, creating the entry if
// absent.
func (t *Timings) Add(sig string, elapsed time.Duration) {
	v, ok := t.m.Load(sig)
	if !ok {
		v, _ = t.m.LoadOrStore(sig, new(atomic.Int64))
	}
	v.(*atomic.Int64).Add(int64(elapsed))
}

// Get returns the accumulated time for sig, zero if never recorded.
func (t *Timings) Get(sig string) time.Duration {
	v, ok := t.m.Load(sig)
	if !ok {
		return 0
	}
	return time.Duration(v.(*atomic.Int64).Load())
}

// Snapshot copies every counter into a plain map for reporting.
func (t *Timings) Snapshot() map[string]time.Duration {
	out := make(map[string]time.Duration)
	t.m.Range(func(k, v any) bool {
		out[k.(string)] = time.Duration(v.(*atomic.Int64).Load())
		return true
	})
	return out
}
