package archive

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/cloud-bulldozer/go-commons/indexers"
	"github.com/cloud-bulldozer/writeperf/pkg/logging"
	result "github.com/cloud-bulldozer/writeperf/pkg/results"
)

const ltcyMetric = "ms"

// Doc struct of the JSON document to be indexed
type Doc struct {
	UUID             string          `json:"uuid"`
	Timestamp        time.Time       `json:"timestamp"`
	Driver           string          `json:"driver"`
	Workload         string          `json:"workload"`
	Bucket           string          `json:"bucket"`
	Dir              string          `json:"dir"`
	Region           string          `json:"region,omitempty"`
	DataSize         int             `json:"dataSize"`
	DataBlockPerFile int             `json:"dataBlockPerFile"`
	FileCount        int             `json:"fileCount"`
	Parallelism      int             `json:"parallelism"`
	ObjectSize       int64           `json:"objectSize"`
	Samples          int             `json:"samples"`
	Failures         int             `json:"failures"`
	Skipped          int             `json:"skipped"`
	Duration         float64         `json:"duration"`
	Throughput       float64         `json:"throughput"`
	TputMetric       string          `json:"tputMetric"`
	LtcyMetric       string          `json:"ltcyMetric"`
	Latency          result.Report   `json:"latency"`
	LaterHalf        result.Report   `json:"laterHalfLatency"`
	AvgLatency       float64         `json:"avgLatency"`
	StdDev           float64         `json:"stdDev"`
	Confidence       []float64       `json:"confidence"`
	Metadata         result.Metadata `json:"metadata"`
}

// Connect returns a client connected to the desired cluster.
func Connect(url, index string, skip bool) (*indexers.Indexer, error) {
	indexerConfig := indexers.IndexerConfig{
		Type:               "opensearch",
		Servers:            []string{url},
		Index:              index,
		InsecureSkipVerify: skip,
	}
	logging.Infof("📁 Creating indexer: %s", indexerConfig.Type)
	indexer, err := indexers.NewIndexer(indexerConfig)
	if err != nil {
		logging.Errorf("%v indexer: %v", indexerConfig.Type, err.Error())
		return nil, fmt.Errorf("failure while connecting to OpenSearch: %w", err)
	}
	logging.Infof("Connected to : %s ", url)
	return indexer, nil
}

// BuildDocs returns the documents that need to be indexed or an error.
func BuildDocs(sr result.ScenarioResults, uuid string) ([]interface{}, error) {
	now := time.Now().UTC()

	var docs []interface{}
	if len(sr.Results) < 1 {
		return nil, fmt.Errorf("no result documents")
	}
	for _, r := range sr.Results {
		if len(r.Driver) < 1 {
			continue
		}
		d := Doc{
			UUID:             uuid,
			Timestamp:        now,
			Driver:           r.Driver,
			Workload:         r.Name,
			Bucket:           r.Bucket,
			Dir:              r.Dir,
			Region:           r.Region,
			DataSize:         r.DataSize,
			DataBlockPerFile: r.DataBlockPerFile,
			FileCount:        r.FileCount,
			Parallelism:      r.Parallel,
			ObjectSize:       r.ObjectSize(),
			Samples:          len(r.Samples),
			Failures:         r.Failures,
			Skipped:          r.Skipped,
			Duration:         r.EndTime.Sub(r.StartTime).Seconds(),
			Throughput:       r.Throughput,
			TputMetric:       "MB/s",
			LtcyMetric:       ltcyMetric,
			Latency:          r.All,
			LaterHalf:        r.LaterHalf,
			StdDev:           r.StdDev,
			Confidence:       []float64{r.ConfidenceLo, r.ConfidenceHi},
			Metadata:         sr.Metadata,
		}
		avg, e := result.Average(toFloat(r.Samples))
		if e != nil {
			logging.Warn("Unable to process latency, setting value to zero")
			d.AvgLatency = 0
		} else {
			d.AvgLatency = avg
		}
		docs = append(docs, d)
	}
	return docs, nil
}

func toFloat(vals []int64) []float64 {
	out := make([]float64, len(vals))
	for i, v := range vals {
		out[i] = float64(v)
	}
	return out
}

// Common csv header fields.
func commonCsvHeaderFields() []string {
	return []string{
		"Driver",
		"Workload",
		"Bucket",
		"Dir",
		"Data Size",
		"Blocks Per File",
		"File Count",
		"Parallelism",
		"# of Samples",
		"Failures",
		"Skipped",
		"Confidence metric - low",
		"Confidence metric - high",
	}
}

// Common csv data fields.
func commonCsvDataFields(row result.Data) []string {
	return []string{
		row.Driver,
		row.Name,
		row.Bucket,
		row.Dir,
		strconv.Itoa(row.DataSize),
		strconv.Itoa(row.DataBlockPerFile),
		strconv.Itoa(row.FileCount),
		strconv.Itoa(row.Parallel),
		strconv.Itoa(len(row.Samples)),
		strconv.Itoa(row.Failures),
		strconv.Itoa(row.Skipped),
		strconv.FormatFloat(row.ConfidenceLo, 'f', -1, 64),
		strconv.FormatFloat(row.ConfidenceHi, 'f', -1, 64),
	}
}

// WriteJSONResult sends the results as JSON to w
func WriteJSONResult(w io.Writer, r result.ScenarioResults) error {
	docs, err := BuildDocs(r, r.UUID)
	if err != nil {
		return err
	}
	p, err := json.MarshalIndent(docs, " ", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(p))
	return err
}

// WriteCSVResult will write the latency result to the local filesystem
// and returns the name of the file.
func WriteCSVResult(r result.ScenarioResults) (string, error) {
	fn := fmt.Sprintf("result-%d.csv", time.Now().Unix())
	fp, err := os.Create(fn)
	if err != nil {
		return "", fmt.Errorf("failed to open archive file: %w", err)
	}
	defer fp.Close()
	archive := csv.NewWriter(fp)

	data := append(commonCsvHeaderFields(),
		"Throughput",
		"Throughput Metric",
		"50%tile Latency",
		"99%tile Latency",
		"Mean Latency",
		"Max Latency",
		"Later Half 99%tile Latency",
		"Latency Metric",
	)
	if err := archive.Write(data); err != nil {
		return "", fmt.Errorf("failed to write result archive to file")
	}
	for _, row := range r.Results {
		fields := append(commonCsvDataFields(row),
			fmt.Sprintf("%f", row.Throughput),
			"MB/s",
		)
		if row.HasReport {
			fields = append(fields,
				strconv.FormatInt(row.All.P50, 10),
				strconv.FormatInt(row.All.P99, 10),
				strconv.FormatInt(row.All.Mean, 10),
				strconv.FormatInt(row.All.Max, 10),
				strconv.FormatInt(row.LaterHalf.P99, 10),
			)
		} else {
			fields = append(fields, "", "", "", "", "")
		}
		fields = append(fields, ltcyMetric)
		if err := archive.Write(fields); err != nil {
			return "", fmt.Errorf("failed to write result archive to file")
		}
	}
	archive.Flush()
	return fn, archive.Error()
}
