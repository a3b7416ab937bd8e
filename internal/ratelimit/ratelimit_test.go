package ratelimit

import (
	"path/filepath"
	"testing"
	"time"
)

func fixedNow() time.Time {
	return time.Unix(1_700_000_000, 0)
}

func newTestLimiter(t *testing.T, hourlyCap, dailyCap int) *Limiter {
	t.Helper()
	l := Load(filepath.Join(t.TempDir(), "usage.json"), hourlyCap, dailyCap)
	l.now = fixedNow
	return l
}

func TestRemainingWindows(t *testing.T) {
	now := fixedNow()

	tests := []struct {
		name       string
		events     []time.Duration // age of each event relative to now
		wantHourly int
		wantDaily  int
	}{
		{"no events", nil, 8, 180},
		{"one recent event", []time.Duration{10 * time.Second}, 7, 179},
		{"event outside hour, inside day", []time.Duration{2 * time.Hour}, 8, 179},
		{"event outside day", []time.Duration{25 * time.Hour}, 8, 180},
		{"mixed ages", []time.Duration{30 * time.Second, 30 * time.Minute, 3 * time.Hour, 26 * time.Hour}, 6, 177},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newTestLimiter(t, 8, 180)
			for _, age := range tt.events {
				l.Record(now.Add(-age))
			}

			hourly, daily := l.Remaining()
			if hourly != tt.wantHourly {
				t.Errorf("hourly remaining = %d, want %d", hourly, tt.wantHourly)
			}
			if daily != tt.wantDaily {
				t.Errorf("daily remaining = %d, want %d", daily, tt.wantDaily)
			}
		})
	}
}

func TestRemainingNeverNegative(t *testing.T) {
	l := newTestLimiter(t, 1, 2)
	for i := 0; i < 5; i++ {
		l.Record(fixedNow().Add(-time.Duration(i) * time.Second))
	}

	hourly, daily := l.Remaining()
	if hourly != 0 {
		t.Errorf("hourly remaining = %d, want 0", hourly)
	}
	if daily != 0 {
		t.Errorf("daily remaining = %d, want 0", daily)
	}
}

func TestAllowRequiresBothWindows(t *testing.T) {
	// Hourly cap of 1 with one event 10 seconds ago: hourly is exhausted
	// even though the daily window has room.
	l := newTestLimiter(t, 1, 180)
	l.Record(fixedNow().Add(-10 * time.Second))

	if hourly, _ := l.Remaining(); hourly != 0 {
		t.Fatalf("hourly remaining = %d, want 0", hourly)
	}
	if l.Allow() {
		t.Error("Allow() = true with exhausted hourly window")
	}

	// Daily exhaustion alone also blocks.
	l = newTestLimiter(t, 8, 1)
	l.Record(fixedNow().Add(-2 * time.Hour))

	if l.Allow() {
		t.Error("Allow() = true with exhausted daily window")
	}
}

func TestPersistPrunesOldEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "usage.json")

	l := Load(path, 8, 180)
	l.now = fixedNow
	l.Record(fixedNow().Add(-30 * time.Hour)) // prunable
	l.Record(fixedNow().Add(-30 * time.Minute))
	if err := l.Persist(); err != nil {
		t.Fatalf("Persist() error = %v", err)
	}

	reloaded := Load(path, 8, 180)
	reloaded.now = fixedNow
	if len(reloaded.timestamps) != 1 {
		t.Errorf("persisted %d timestamps, want 1 after pruning", len(reloaded.timestamps))
	}

	// Pruning must not change observable counts.
	hourly, daily := reloaded.Remaining()
	if hourly != 7 || daily != 179 {
		t.Errorf("after reload remaining = (%d, %d), want (7, 179)", hourly, daily)
	}
}

func TestRecordSurvivesReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "usage.json")

	l := Load(path, 8, 180)
	l.now = fixedNow
	l.Record(fixedNow().Add(-time.Minute))
	if err := l.Persist(); err != nil {
		t.Fatalf("Persist() error = %v", err)
	}

	reloaded := Load(path, 8, 180)
	reloaded.now = fixedNow
	hourly, _ := reloaded.Remaining()
	if hourly != 7 {
		t.Errorf("hourly remaining after reload = %d, want 7", hourly)
	}
}
