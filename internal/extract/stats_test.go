package extract

import (
	"testing"
	"time"
)

func TestStatsSnapshotPercentiles(t *testing.T) {
	stats := NewStats(time.Hour)
	stats.Record(100, 1)
	stats.Record(200, 2)
	stats.Record(300, 0)
	stats.Record(400, 3)
	stats.RecordFailure(500)

	snap := stats.Snapshot()
	if snap.Documents != 5 {
		t.Fatalf("expected documents=5, got %d", snap.Documents)
	}
	if snap.Failed != 1 {
		t.Fatalf("expected failed=1, got %d", snap.Failed)
	}
	if snap.Items != 6 {
		t.Fatalf("expected items=6, got %d", snap.Items)
	}
	if snap.MinMs != 100 || snap.MaxMs != 500 {
		t.Fatalf("expected min=100 max=500, got min=%d max=%d", snap.MinMs, snap.MaxMs)
	}
	if snap.AvgMs != 300 {
		t.Fatalf("expected avg=300, got %f", snap.AvgMs)
	}
	if snap.P50Ms != 300 {
		t.Fatalf("expected p50=300, got %f", snap.P50Ms)
	}
	if snap.P95Ms != 480 {
		t.Fatalf("expected p95=480, got %f", snap.P95Ms)
	}
	if snap.P99Ms != 496 {
		t.Fatalf("expected p99=496, got %f", snap.P99Ms)
	}
}

func TestStatsPrunesExpiredRuns(t *testing.T) {
	stats := NewStats(10 * time.Millisecond)
	stats.Record(100, 1)
	time.Sleep(25 * time.Millisecond)

	if snap := stats.Snapshot(); snap.Documents != 0 {
		t.Fatalf("expected documents=0 after prune, got %d", snap.Documents)
	}

	stats.Record(200, 4)
	snap := stats.Snapshot()
	if snap.Documents != 1 || snap.Items != 4 {
		t.Fatalf("expected one fresh run with 4 items, got %+v", snap)
	}
	if snap.MinMs != 200 || snap.MaxMs != 200 {
		t.Fatalf("expected min=max=200, got min=%d max=%d", snap.MinMs, snap.MaxMs)
	}
}

func TestStatsClampsNegativeDuration(t *testing.T) {
	stats := NewStats(time.Hour)
	stats.Record(-10, 0)
	snap := stats.Snapshot()
	if snap.MinMs != 0 || snap.MaxMs != 0 {
		t.Fatalf("expected clamped duration=0, got min=%d max=%d", snap.MinMs, snap.MaxMs)
	}
}

func TestStatsEmpty(t *testing.T) {
	if snap := NewStats(0).Snapshot(); snap != (StatsSnapshot{}) {
		t.Fatalf("expected zero snapshot, got %+v", snap)
	}
}
