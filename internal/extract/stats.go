package extract

import (
	"slices"
	"sync"
	"time"
)

type run struct {
	at         time.Time
	durationMs int64
	items      int
	failed     bool
}

// StatsSnapshot aggregates the document runs still inside the window.
type StatsSnapshot struct {
	Documents int     `json:"documents"`
	Failed    int     `json:"failed"`
	Items     int     `json:"items"`
	MinMs     int64   `json:"min_ms"`
	MaxMs     int64   `json:"max_ms"`
	AvgMs     float64 `json:"avg_ms"`
	P50Ms     float64 `json:"p50_ms"`
	P95Ms     float64 `json:"p95_ms"`
	P99Ms     float64 `json:"p99_ms"`
}

// Stats keeps a rolling window of per-document extraction runs.
type Stats struct {
	mu     sync.Mutex
	runs   []run
	window time.Duration
}

func NewStats(window time.Duration) *Stats {
	if window <= 0 {
		window = time.Hour
	}
	return &Stats{runs: make([]run, 0, 256), window: window}
}

// Record adds one successful document run.
func (s *Stats) Record(durationMs int64, items int) {
	s.add(run{durationMs: durationMs, items: items})
}

// RecordFailure adds one aborted document run.
func (s *Stats) RecordFailure(durationMs int64) {
	s.add(run{durationMs: durationMs, failed: true})
}

func (s *Stats) add(r run) {
	r.at = time.Now()
	r.durationMs = max(r.durationMs, 0)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked(r.at)
	s.runs = append(s.runs, r)
}

func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked(time.Now())
	if len(s.runs) == 0 {
		return StatsSnapshot{}
	}

	var snap StatsSnapshot
	durations := make([]int64, 0, len(s.runs))
	var sum int64
	for _, r := range s.runs {
		snap.Documents++
		snap.Items += r.items
		if r.failed {
			snap.Failed++
		}
		durations = append(durations, r.durationMs)
		sum += r.durationMs
	}
	slices.Sort(durations)

	snap.MinMs = durations[0]
	snap.MaxMs = durations[len(durations)-1]
	snap.AvgMs = float64(sum) / float64(len(durations))
	snap.P50Ms = percentile(durations, 50)
	snap.P95Ms = percentile(durations, 95)
	snap.P99Ms = percentile(durations, 99)
	return snap
}

func (s *Stats) pruneLocked(now time.Time) {
	cutoff := now.Add(-s.window)
	s.runs = slices.DeleteFunc(s.runs, func(r run) bool { return r.at.Before(cutoff) })
}

// percentile interpolates linearly between the two closest ranks.
func percentile(sorted []int64, pct float64) float64 {
	switch {
	case len(sorted) == 0:
		return 0
	case pct <= 0:
		return float64(sorted[0])
	case pct >= 100:
		return float64(sorted[len(sorted)-1])
	}
	pos := float64(len(sorted)-1) * pct / 100
	lo := int(pos)
	if lo+1 >= len(sorted) {
		return float64(sorted[lo])
	}
	frac := pos - float64(lo)
	return float64(sorted[lo]) + (float64(sorted[lo+1])-float64(sorted[lo]))*frac
}
