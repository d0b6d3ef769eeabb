package archive

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/cloud-bulldozer/writeperf/pkg/config"
	result "github.com/cloud-bulldozer/writeperf/pkg/results"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scenario() result.ScenarioResults {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := config.Config{
		Name:             "small",
		Bucket:           "bench",
		Dir:              "perf",
		DataSize:         1024,
		DataBlockPerFile: 4,
		FileCount:        4,
		Parallel:         2,
	}
	return result.ScenarioResults{
		Results: []result.Data{
			result.NewData(cfg, "s3", []int64{10, 20, 30, 40}, 0, 0, start, start.Add(time.Second)),
			result.NewData(cfg, "gcs", nil, 4, 0, start, start.Add(time.Second)),
		},
		Metadata: result.Metadata{UUID: "run-1", Driver: "s3", Hostname: "bench-host"},
	}
}

func TestBuildDocs(t *testing.T) {
	docs, err := BuildDocs(scenario(), "run-1")
	require.NoError(t, err)
	require.Len(t, docs, 2)

	d := docs[0].(Doc)
	assert.Equal(t, "run-1", d.UUID)
	assert.Equal(t, "small", d.Workload)
	assert.Equal(t, 4, d.Samples)
	assert.Equal(t, int64(4096), d.ObjectSize)
	assert.Equal(t, int64(20), d.Latency.P50)
	assert.Equal(t, 25.0, d.AvgLatency)
	assert.Equal(t, 1.0, d.Duration)
	assert.Len(t, d.Confidence, 2)

	failed := docs[1].(Doc)
	assert.Equal(t, 4, failed.Failures)
	assert.Zero(t, failed.AvgLatency)
}

func TestBuildDocsEmpty(t *testing.T) {
	_, err := BuildDocs(result.ScenarioResults{}, "run-1")
	assert.Error(t, err)
}

func TestWriteJSONResult(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSONResult(&buf, scenario()))

	var docs []map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &docs))
	require.Len(t, docs, 2)
	assert.Equal(t, "run-1", docs[0]["uuid"])
	assert.Equal(t, "s3", docs[0]["driver"])
}

func TestWriteCSVResult(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	fn, err := WriteCSVResult(scenario())
	require.NoError(t, err)

	f, err := os.Open(fn)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Driver", rows[0][0])
	assert.Equal(t, len(rows[0]), len(rows[1]))
	assert.Equal(t, len(rows[0]), len(rows[2]))
	assert.Equal(t, "s3", rows[1][0])
	assert.Equal(t, "ms", rows[1][len(rows[1])-1])
	assert.Equal(t, "", rows[2][len(rows[2])-2])
}
