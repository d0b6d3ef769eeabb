package result

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/cloud-bulldozer/writeperf/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNearestRank(t *testing.T) {
	t.Parallel()
	sorted := []int64{10, 20, 30, 40, 50}

	testCases := []struct {
		p        float64
		expected int64
	}{
		{0.1, 10},
		{1, 10},
		{20, 10},
		{21, 20},
		{50, 30},
		{75, 40},
		{90, 50},
		{99, 50},
		{100, 50},
	}

	for idx, tc := range testCases {
		tc := tc
		t.Run(fmt.Sprintf("case_%d", idx), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.expected, Percentile(sorted, tc.p), "p: %v", tc.p)
		})
	}
}

func TestOneObservation(t *testing.T) {
	for _, p := range []float64{0, 1, 50, 99, 100} {
		assert.Equal(t, int64(17), Percentile([]int64{17}, p), "p: %v", p)
	}
}

func TestPercentileBounds(t *testing.T) {
	vals := []int64{3, 8, 8, 13, 21, 34, 55, 89, 144, 233, 377}
	assert.Equal(t, vals[len(vals)-1], Percentile(vals, 100))
	assert.Equal(t, vals[0], Percentile(vals, 0.0001))
}

func TestSummarize(t *testing.T) {
	r, ok := Summarize([]int64{50, 10, 40, 20, 30})
	require.True(t, ok)
	assert.Equal(t, Report{Count: 5, P50: 30, P75: 40, P90: 50, P95: 50, P99: 50, Mean: 30, Min: 10, Max: 50}, r)
}

func TestMeanTruncates(t *testing.T) {
	r, ok := Summarize([]int64{1, 2, 4})
	require.True(t, ok)
	assert.Equal(t, int64(2), r.Mean)

	r, _ = Summarize([]int64{1, 2})
	assert.Equal(t, int64(1), r.Mean)
}

func TestSummarizeEmpty(t *testing.T) {
	r, ok := Summarize(nil)
	assert.False(t, ok)
	assert.Equal(t, Report{}, r)
	_, ok = Summarize([]int64{})
	assert.False(t, ok)
}

func TestSummarizeDoesNotMutate(t *testing.T) {
	vals := []int64{5, 3, 9, 1}
	_, ok := Summarize(vals)
	require.True(t, ok)
	assert.Equal(t, []int64{5, 3, 9, 1}, vals)
}

func TestSummarizeIdempotent(t *testing.T) {
	vals := []int64{12, 7, 99, 3, 45, 45, 8}
	first, _ := Summarize(vals)
	second, _ := Summarize(vals)
	assert.Equal(t, first, second)
}

func TestNewDataLaterHalf(t *testing.T) {
	cfg := config.Config{Name: "w", DataSize: 1024, DataBlockPerFile: 1024, FileCount: 7, Parallel: 2}
	start := time.Now()
	// insertion order, not sorted: the later half is {1, 2, 3, 4}
	samples := []int64{100, 90, 80, 1, 2, 3, 4}
	d := NewData(cfg, "s3", samples, 0, 0, start, start.Add(2*time.Second))

	require.True(t, d.HasReport)
	assert.Equal(t, 7, d.All.Count)
	assert.Equal(t, Report{Count: 4, P50: 2, P75: 3, P90: 4, P95: 4, P99: 4, Mean: 2, Min: 1, Max: 4}, d.LaterHalf)
	assert.InDelta(t, 3.5, d.Throughput, 1e-9)
	assert.Greater(t, d.StdDev, 0.0)
	assert.Less(t, d.ConfidenceLo, d.ConfidenceHi)
}

func TestNewDataNoSamples(t *testing.T) {
	cfg := config.Config{Name: "w", DataSize: 1, DataBlockPerFile: 1, FileCount: 3, Parallel: 1}
	now := time.Now()
	d := NewData(cfg, "local", nil, 3, 0, now, now)
	assert.False(t, d.HasReport)
	assert.Equal(t, 3, d.Failures)
	assert.Zero(t, d.Throughput)
	assert.Zero(t, WarmupDiff(d))

	var buf bytes.Buffer
	ShowReports(&buf, d)
	assert.Empty(t, buf.String())
}

func TestShowReports(t *testing.T) {
	cfg := config.Config{Name: "w", DataSize: 1, DataBlockPerFile: 1, FileCount: 4, Parallel: 1}
	now := time.Now()
	d := NewData(cfg, "s3", []int64{4, 3, 2, 1}, 0, 0, now, now.Add(time.Second))

	var buf bytes.Buffer
	ShowReports(&buf, d)
	out := buf.String()
	assert.Contains(t, out, "Latency percentiles for all requests:\n50th percentile (Median): 2 ms\n")
	assert.Contains(t, out, "Latency percentiles for last 50% of requests:\n50th percentile (Median): 1 ms\n")
	assert.Contains(t, out, "Max: 4 ms\n")
	assert.Equal(t, 3, strings.Count(out, separator))
}

func TestShowLatencyResult(t *testing.T) {
	cfg := config.Config{Name: "small", DataSize: 1, DataBlockPerFile: 1, FileCount: 2, Parallel: 1}
	now := time.Now()
	sr := ScenarioResults{Results: []Data{
		NewData(cfg, "gcs", []int64{5, 7}, 0, 0, now, now.Add(time.Second)),
		NewData(cfg, "gcs", nil, 2, 0, now, now),
	}}
	var buf bytes.Buffer
	ShowLatencyResult(&buf, sr)
	out := buf.String()
	assert.Contains(t, out, "Gcs Write Latency")
	assert.Contains(t, out, "7 ms")
}

func TestWarmupDiff(t *testing.T) {
	d := Data{HasReport: true, All: Report{Mean: 150}, LaterHalf: Report{Mean: 50}}
	assert.InDelta(t, 100.0, WarmupDiff(d), 1e-9)
}
