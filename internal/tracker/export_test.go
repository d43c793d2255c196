package tracker

import "time"

// SetNow overrides the tracker clock for tests.
func (t *Tracker) SetNow(now func() time.Time) {
	t.now = now
}
