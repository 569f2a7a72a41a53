package perf

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gazette-app/valguard/internal/clock"
	"github.com/gazette-app/valguard/internal/metrics"
)

func newTestTracker(t *testing.T, cfg Config) (*Tracker, *clock.Mock) {
	t.Helper()
	clk := clock.NewMock(time.Time{})
	return New(cfg, WithClock(clk)), clk
}

func TestStats_NoRecords(t *testing.T) {
	tr, _ := newTestTracker(t, Config{})

	_, ok := tr.Stats("validate")
	assert.False(t, ok)
}

func TestStats_CacheHitRate(t *testing.T) {
	tr, _ := newTestTracker(t, Config{})

	tr.RecordMetric(Record{Operation: "validate", Duration: 10 * time.Millisecond, Success: true, Metadata: Metadata{"cached": false}})
	tr.RecordMetric(Record{Operation: "validate", Duration: 2 * time.Millisecond, Success: true, Metadata: Metadata{"cached": true}})

	stats, ok := tr.Stats("validate")
	require.True(t, ok)
	assert.Equal(t, 2, stats.TotalOperations)
	assert.Equal(t, 50.0, stats.CacheHitRate)
	assert.Equal(t, 100.0, stats.SuccessRate)
	assert.Equal(t, 6*time.Millisecond, stats.AverageDuration)
}

func TestStats_SuccessRateAndIsolation(t *testing.T) {
	tr, _ := newTestTracker(t, Config{})

	tr.RecordMetric(Record{Operation: "a", Success: true})
	tr.RecordMetric(Record{Operation: "a", Success: false})
	tr.RecordMetric(Record{Operation: "a", Success: false})
	tr.RecordMetric(Record{Operation: "a", Success: true, Metadata: Metadata{"cached": "yes"}})
	tr.RecordMetric(Record{Operation: "b", Success: false})

	stats, ok := tr.Stats("a")
	require.True(t, ok)
	assert.Equal(t, 4, stats.TotalOperations)
	assert.Equal(t, 50.0, stats.SuccessRate)
	assert.Zero(t, stats.CacheHitRate, "non-bool cached tag is not a hit")

	b, ok := tr.Stats("b")
	require.True(t, ok)
	assert.Zero(t, b.SuccessRate)
	assert.GreaterOrEqual(t, b.SuccessRate, 0.0)
	assert.LessOrEqual(t, b.CacheHitRate, 100.0)
}

func TestStartOperation_RecordsElapsed(t *testing.T) {
	tr, clk := newTestTracker(t, Config{})

	end := tr.StartOperation("validate.newsletter")
	clk.Advance(120 * time.Millisecond)
	end(true, Metadata{MetadataCached: false})
	end(false, nil) // second call ignored

	stats, ok := tr.Stats("validate.newsletter")
	require.True(t, ok)
	assert.Equal(t, 1, stats.TotalOperations)
	assert.Equal(t, 120*time.Millisecond, stats.AverageDuration)
	assert.Equal(t, 100.0, stats.SuccessRate)
}

func TestStats_IgnoresRecordsOutsideRetention(t *testing.T) {
	tr, clk := newTestTracker(t, Config{Retention: time.Minute})

	tr.RecordMetric(Record{Operation: "op", Success: false})
	clk.Advance(2 * time.Minute)
	tr.RecordMetric(Record{Operation: "op", Success: true})

	stats, ok := tr.Stats("op")
	require.True(t, ok)
	assert.Equal(t, 1, stats.TotalOperations)
	assert.Equal(t, 100.0, stats.SuccessRate)

	clk.Advance(2 * time.Minute)
	_, ok = tr.Stats("op")
	assert.False(t, ok)
}

func TestPrune(t *testing.T) {
	tr, clk := newTestTracker(t, Config{Retention: time.Minute})

	tr.RecordMetric(Record{Operation: "op"})
	tr.RecordMetric(Record{Operation: "op"})
	clk.Advance(45 * time.Second)
	tr.RecordMetric(Record{Operation: "op"})
	clk.Advance(30 * time.Second)

	assert.Equal(t, 2, tr.Prune())
	assert.Equal(t, 1, tr.Len())
	assert.Zero(t, tr.Prune())
}

func TestMaxRecords_DropsOldest(t *testing.T) {
	tr, clk := newTestTracker(t, Config{MaxRecords: 3})

	for i := 0; i < 5; i++ {
		tr.RecordMetric(Record{Operation: "op", Success: i >= 2})
		clk.Advance(time.Second)
	}

	assert.Equal(t, 3, tr.Len())
	stats, ok := tr.Stats("op")
	require.True(t, ok)
	assert.Equal(t, 100.0, stats.SuccessRate)
}

func TestMaxRecords_TrimsInBatches(t *testing.T) {
	tr, clk := newTestTracker(t, Config{MaxRecords: 20})

	for i := 0; i < 21; i++ {
		tr.RecordMetric(Record{Operation: "op", Success: i >= 3})
		clk.Advance(time.Millisecond)
	}

	// One over the cap drops the overflow plus a tenth of the cap.
	assert.Equal(t, 18, tr.Len())
	stats, ok := tr.Stats("op")
	require.True(t, ok)
	assert.Equal(t, 100.0, stats.SuccessRate, "the three oldest failures are gone")

	tr.RecordMetric(Record{Operation: "op", Success: true})
	tr.RecordMetric(Record{Operation: "op", Success: true})
	assert.Equal(t, 20, tr.Len(), "no trim until the cap is exceeded again")

	tr.RecordMetric(Record{Operation: "op", Success: false})
	assert.Equal(t, 18, tr.Len())
	stats, ok = tr.Stats("op")
	require.True(t, ok)
	assert.Equal(t, 18, stats.TotalOperations)
	assert.Less(t, stats.SuccessRate, 100.0, "newest record is kept")
}

func BenchmarkRecordMetric_AtCapacity(b *testing.B) {
	tr := New(Config{MaxRecords: DefaultMaxRecords}, WithClock(clock.NewMock(time.Time{})))
	for i := 0; i < DefaultMaxRecords; i++ {
		tr.RecordMetric(Record{Operation: "op", Success: true})
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tr.RecordMetric(Record{Operation: "op", Success: true})
	}
}

func TestClearMetrics(t *testing.T) {
	tr, _ := newTestTracker(t, Config{})
	tr.RecordMetric(Record{Operation: "op"})

	tr.ClearMetrics()

	assert.Zero(t, tr.Len())
	_, ok := tr.Stats("op")
	assert.False(t, ok)
}

func TestAllStatsAndOperations(t *testing.T) {
	tr, _ := newTestTracker(t, Config{})
	tr.RecordMetric(Record{Operation: "validate.digest", Success: true})
	tr.RecordMetric(Record{Operation: "validate.article", Success: false})
	tr.RecordMetric(Record{Operation: "validate.article", Success: true})

	all := tr.AllStats()
	require.Len(t, all, 2)
	assert.Equal(t, 2, all["validate.article"].TotalOperations)
	assert.Equal(t, []string{"validate.article", "validate.digest"}, tr.Operations())
}

func TestRecorderForwarding(t *testing.T) {
	rec := metrics.NewInMemory()
	tr := New(Config{}, WithRecorder(rec))

	tr.RecordMetric(Record{Operation: "op", Duration: time.Millisecond, Success: false})

	snap := rec.Snapshot()
	assert.Equal(t, uint64(1), snap.OperationCount)
	assert.Equal(t, uint64(1), snap.OperationFailures)
}

func TestConcurrentRecording(t *testing.T) {
	tr := New(Config{})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			end := tr.StartOperation("op")
			end(i%2 == 0, Metadata{MetadataCached: i%5 == 0})
			_, _ = tr.Stats("op")
		}(i)
	}
	wg.Wait()

	stats, ok := tr.Stats("op")
	require.True(t, ok)
	assert.Equal(t, 50, stats.TotalOperations)
	assert.Equal(t, 50.0, stats.SuccessRate)
	assert.Equal(t, 20.0, stats.CacheHitRate)
}
