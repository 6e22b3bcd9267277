package report

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"ocrbench/internal/benchmark"
)

// WriteSummary prints per-engine means followed by every failed pair.
func WriteSummary(w io.Writer, table *benchmark.ResultsTable) error {
	stats := table.Aggregate()

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ENGINE\tCER\tWER\tTIME (s)\tOK\tFAILED")
	for _, name := range table.Engines {
		ok, failed := counts(table.Results[name])
		s, has := stats[name]
		if !has {
			fmt.Fprintf(tw, "%s\t-\t-\t-\t%d\t%d\n", name, ok, failed)
			continue
		}
		fmt.Fprintf(tw, "%s\t%.4f\t%.4f\t%.2f\t%d\t%d\n",
			name, s[benchmark.MetricCER], s[benchmark.MetricWER], s[benchmark.MetricTime], ok, failed)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	failures := table.Failures()
	if len(failures) == 0 {
		return nil
	}
	if _, err := fmt.Fprintf(w, "\n%d failed pair(s):\n", len(failures)); err != nil {
		return err
	}
	for _, f := range failures {
		if _, err := fmt.Fprintf(w, "  - %s / %s: %v\n", f.SampleID, f.Engine, f.Err); err != nil {
			return err
		}
	}
	return nil
}

func counts(results []benchmark.EngineResult) (ok, failed int) {
	for _, r := range results {
		if r.Failed() {
			failed++
		} else {
			ok++
		}
	}
	return ok, failed
}

// JSONReport is the machine-readable form of a run.
type JSONReport struct {
	RunID       string                        `json:"run_id"`
	GeneratedAt time.Time                     `json:"generated_at"`
	Engines     []string                      `json:"engines"`
	Averages    map[string]map[string]float64 `json:"averages"`
	Results     map[string][]JSONResult       `json:"results"`
}

// JSONResult is one (sample, engine) outcome.
type JSONResult struct {
	SampleID       string  `json:"sample_id"`
	CER            float64 `json:"cer"`
	WER            float64 `json:"wer"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
	Error          string  `json:"error,omitempty"`
}

// NewJSONReport converts a results table.
func NewJSONReport(runID string, table *benchmark.ResultsTable) JSONReport {
	rep := JSONReport{
		RunID:       runID,
		GeneratedAt: time.Now().UTC(),
		Engines:     table.Engines,
		Averages:    table.Aggregate(),
		Results:     make(map[string][]JSONResult, len(table.Engines)),
	}
	for _, name := range table.Engines {
		rows := make([]JSONResult, 0, len(table.Results[name]))
		for _, r := range table.Results[name] {
			row := JSONResult{
				SampleID:       r.SampleID,
				CER:            r.CER,
				WER:            r.WER,
				ElapsedSeconds: r.Elapsed.Seconds(),
			}
			if r.Err != nil {
				row.Error = r.Err.Error()
			}
			rows = append(rows, row)
		}
		rep.Results[name] = rows
	}
	return rep
}

// WriteJSON writes the indented JSON report to w.
func WriteJSON(w io.Writer, runID string, table *benchmark.ResultsTable) error {
	data, err := json.MarshalIndent(NewJSONReport(runID, table), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to create JSON output: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
