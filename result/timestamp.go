package result

import (
	"sync"
	"time"
)

// Timestamper generates strictly increasing microsecond timestamps derived
// from the wall clock.  Detectors running in video mode reject a timestamp
// that does not advance, so two frames processed within the same
// microsecond, or a clock stepping backwards, still get distinct ordered
// values
type Timestamper struct {
	last int64
	now  func() time.Time
	sync.Mutex
}

// NewTimestamper returns a Timestamper using the system clock
func NewTimestamper() *Timestamper {
	return &Timestamper{
		now: time.Now,
	}
}

// Next returns the next timestamp in microseconds
func (t *Timestamper) Next() int64 {
	t.Lock()
	defer t.Unlock()

	ts := t.now().UnixMicro()

	if ts <= t.last {
		ts = t.last + 1
	}

	t.last = ts
	return ts
}
