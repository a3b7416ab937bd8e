// Package ratelimit enforces hourly and daily generation caps over a
// persisted sequence of event timestamps.
package ratelimit

import (
	"time"

	"github.com/matthewxmurphy/creatornewsdesk/internal/store"
)

const (
	hourWindow = time.Hour
	dayWindow  = 24 * time.Hour
)

// Limiter counts generation events inside two independent rolling windows.
// An attempt is permitted only when both windows have remaining slots.
type Limiter struct {
	path       string
	hourlyCap  int
	dailyCap   int
	timestamps []float64
	now        func() time.Time
}

// Load reads the usage ledger from its JSON file. A missing or unreadable
// file yields an empty history.
func Load(path string, hourlyCap, dailyCap int) *Limiter {
	var ts []float64
	store.Load(path, &ts)

	return &Limiter{
		path:       path,
		hourlyCap:  hourlyCap,
		dailyCap:   dailyCap,
		timestamps: ts,
		now:        time.Now,
	}
}

// Remaining returns the unused slots in the hourly and daily windows.
func (l *Limiter) Remaining() (hourly, daily int) {
	now := l.now()

	hourlyUsed := l.countSince(now.Add(-hourWindow))
	dailyUsed := l.countSince(now.Add(-dayWindow))

	hourly = l.hourlyCap - hourlyUsed
	if hourly < 0 {
		hourly = 0
	}
	daily = l.dailyCap - dailyUsed
	if daily < 0 {
		daily = 0
	}
	return hourly, daily
}

// Allow reports whether another generation event fits under both caps.
func (l *Limiter) Allow() bool {
	hourly, daily := l.Remaining()
	return hourly > 0 && daily > 0
}

// Record appends a generation event at t. In-memory only until Persist.
func (l *Limiter) Record(t time.Time) {
	l.timestamps = append(l.timestamps, float64(t.Unix()))
}

// Persist writes the ledger back to disk. Entries older than the daily
// window are dropped on write; they can no longer affect any count and
// pruning keeps the file from growing without bound.
func (l *Limiter) Persist() error {
	cutoff := float64(l.now().Add(-dayWindow).Unix())

	kept := make([]float64, 0, len(l.timestamps))
	for _, ts := range l.timestamps {
		if ts > cutoff {
			kept = append(kept, ts)
		}
	}
	l.timestamps = kept

	return store.Save(l.path, l.timestamps)
}

// countSince counts events strictly after the cutoff. Filtering is lazy:
// stale entries stay in memory and are skipped here.
func (l *Limiter) countSince(cutoff time.Time) int {
	c := float64(cutoff.Unix())
	n := 0
	for _, ts := range l.timestamps {
		if ts > c {
			n++
		}
	}
	return n
}
