package result

import (
	"fmt"
	"io"
	"math"
	"slices"
	"strconv"
	"time"

	moremath "github.com/aclements/go-moremath/stats"
	"github.com/cloud-bulldozer/writeperf/pkg/config"
	"github.com/cloud-bulldozer/writeperf/pkg/logging"
	"github.com/cloud-bulldozer/writeperf/pkg/sample"
	stats "github.com/montanaflynn/stats"
	"github.com/olekukonko/tablewriter"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Specify Language specific case wrapper as global variable
var caser = cases.Title(language.English)

const separator = "================================"

// Report holds the latency summary of one sample set, in milliseconds.
type Report struct {
	Count int   `json:"count"`
	P50   int64 `json:"p50"`
	P75   int64 `json:"p75"`
	P90   int64 `json:"p90"`
	P95   int64 `json:"p95"`
	P99   int64 `json:"p99"`
	Mean  int64 `json:"mean"`
	Min   int64 `json:"min"`
	Max   int64 `json:"max"`
}

// Data describes the result data of one workload
type Data struct {
	config.Config
	Driver       string
	StartTime    time.Time
	EndTime      time.Time
	Samples      []int64
	Failures     int
	Skipped      int
	HasReport    bool
	All          Report
	LaterHalf    Report
	Throughput   float64
	StdDev       float64
	ConfidenceLo float64
	ConfidenceHi float64
}

// ScenarioResults each run could have multiple workloads
type ScenarioResults struct {
	Results []Data
	Metadata
}

// Metadata for the run
type Metadata struct {
	UUID     string `json:"uuid"`
	Driver   string `json:"driver"`
	Hostname string `json:"hostname"`
}

// Percentile returns the nearest-rank p-th percentile of sorted:
// the element at rank ceil(p/100 * n), clamped to [1, n].
// REQUIRES: sorted is ascending and non-empty.
func Percentile(sorted []int64, p float64) int64 {
	n := len(sorted)
	idx := int(math.Ceil(p / 100.0 * float64(n)))
	if idx < 1 {
		idx = 1
	}
	if idx > n {
		idx = n
	}
	return sorted[idx-1]
}

// Summarize computes the latency report of vals without modifying it.
// It returns false, and computes nothing, when vals is empty.
func Summarize(vals []int64) (Report, bool) {
	if len(vals) == 0 {
		return Report{}, false
	}
	sorted := slices.Clone(vals)
	slices.Sort(sorted)
	var sum int64
	for _, v := range sorted {
		sum += v
	}
	return Report{
		Count: len(sorted),
		P50:   Percentile(sorted, 50),
		P75:   Percentile(sorted, 75),
		P90:   Percentile(sorted, 90),
		P95:   Percentile(sorted, 95),
		P99:   Percentile(sorted, 99),
		Mean:  sum / int64(len(sorted)),
		Min:   sorted[0],
		Max:   sorted[len(sorted)-1],
	}, true
}

// Average accepts array of floats to calculate average
func Average(vals []float64) (float64, error) {
	return stats.Mean(vals)
}

// ConfidenceInterval accepts array of floats and returns the mean and its
// confidence interval
func ConfidenceInterval(vals []float64, ci float64) (float64, float64, float64) {
	return moremath.MeanCI(vals, ci)
}

func toFloat(vals []int64) []float64 {
	out := make([]float64, len(vals))
	for i, v := range vals {
		out[i] = float64(v)
	}
	return out
}

// NewData builds the result of one workload from its samples, given in
// completion order.
func NewData(cfg config.Config, driver string, samples []int64, failures, skipped int, start, end time.Time) Data {
	d := Data{
		Config:    cfg,
		Driver:    driver,
		StartTime: start,
		EndTime:   end,
		Samples:   samples,
		Failures:  failures,
		Skipped:   skipped,
	}
	d.All, d.HasReport = Summarize(samples)
	if !d.HasReport {
		return d
	}
	d.LaterHalf, _ = Summarize(sample.LaterHalf(samples))
	if elapsed := end.Sub(start).Seconds(); elapsed > 0 {
		d.Throughput = float64(int64(len(samples))*cfg.ObjectSize()) / elapsed / (1024 * 1024)
	}
	fs := toFloat(samples)
	d.StdDev, _ = stats.StandardDeviation(fs)
	if len(fs) > 1 {
		_, d.ConfidenceLo, d.ConfidenceHi = ConfidenceInterval(fs, 0.95)
	}
	return d
}

// calDiff will determine the %diff between two values.
// returns a float64 which is the %diff
func calDiff(a float64, b float64) float64 {
	if a+b == 0 {
		return 0
	}
	return (a - b) / ((a + b) / 2) * 100
}

// WarmupDiff is the %diff between the mean latency of all requests and the
// mean latency of the later half.
func WarmupDiff(d Data) float64 {
	if !d.HasReport {
		return 0
	}
	return calDiff(float64(d.All.Mean), float64(d.LaterHalf.Mean))
}

// ShowPercentiles writes one latency report in the console format.
func ShowPercentiles(w io.Writer, title string, r Report) {
	fmt.Fprintln(w, separator)
	fmt.Fprintln(w, title)
	fmt.Fprintf(w, "50th percentile (Median): %d ms\n", r.P50)
	fmt.Fprintf(w, "75th percentile: %d ms\n", r.P75)
	fmt.Fprintf(w, "90th percentile: %d ms\n", r.P90)
	fmt.Fprintf(w, "95th percentile: %d ms\n", r.P95)
	fmt.Fprintf(w, "99th percentile: %d ms\n", r.P99)
	fmt.Fprintf(w, "Mean: %d ms\n", r.Mean)
	fmt.Fprintf(w, "Min: %d ms\n", r.Min)
	fmt.Fprintf(w, "Max: %d ms\n", r.Max)
}

// ShowReports writes the full and later-half reports of a workload.
// Nothing is written when the workload has no successful writes.
func ShowReports(w io.Writer, d Data) {
	if !d.HasReport {
		logging.Warnf("😥 No successful writes for workload %q, skipping latency report", d.Name)
		return
	}
	ShowPercentiles(w, "Latency percentiles for all requests:", d.All)
	ShowPercentiles(w, "Latency percentiles for last 50% of requests:", d.LaterHalf)
	fmt.Fprintln(w, separator)
}

// Method to init common table structure.
func initTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoWrapText(false)
	return table
}

// ShowLatencyResult renders one summary row per workload
func ShowLatencyResult(w io.Writer, s ScenarioResults) {
	if len(s.Results) < 1 {
		return
	}
	logging.Debug("Rendering write latency results")
	table := initTable(w, []string{"Result Type", "Driver", "Workload", "Parallel", "Data Size", "Blocks", "Files", "Failures", "P50", "P90", "P99", "Mean", "Max", "Late P99", "Warm-up %diff", "Throughput"})
	for _, r := range s.Results {
		row := []string{fmt.Sprintf("📊 %s Write Latency", caser.String(r.Driver)), r.Driver, r.Name, strconv.Itoa(r.Parallel), strconv.Itoa(r.DataSize), strconv.Itoa(r.DataBlockPerFile), strconv.Itoa(r.FileCount), strconv.Itoa(r.Failures)}
		if r.HasReport {
			row = append(row, ms(r.All.P50), ms(r.All.P90), ms(r.All.P99), ms(r.All.Mean), ms(r.All.Max), ms(r.LaterHalf.P99), fmt.Sprintf("%.1f", WarmupDiff(r)), fmt.Sprintf("%f (MB/s)", r.Throughput))
		} else {
			row = append(row, "-", "-", "-", "-", "-", "-", "-", "-")
		}
		table.Append(row)
	}
	table.Render()
}

func ms(v int64) string {
	return strconv.FormatInt(v, 10) + " ms"
}
