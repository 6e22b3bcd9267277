// Package benchmark runs a set of OCR engines over image/ground-truth pairs
// and collects per-pair error scores and timings.
package benchmark

import (
	"fmt"
	"time"
)

// Metric names used by AggregateStats.
const (
	MetricCER  = "cer"
	MetricWER  = "wer"
	MetricTime = "time"
)

// Metrics lists the aggregated metrics in display order.
var Metrics = []string{MetricCER, MetricWER, MetricTime}

// SampleInput is one image with its known-correct text.
type SampleInput struct {
	// ID names the sample in reports and scratch paths. Empty IDs are
	// derived from the image file name.
	ID              string
	ImagePath       string
	GroundTruthPath string
}

// EngineResult is the outcome of running one engine on one sample.
// A non-nil Err marks the pair as failed; CER and WER are zero then.
type EngineResult struct {
	SampleID string
	CER      float64
	WER      float64
	Elapsed  time.Duration
	Err      error
}

// Failed reports whether the pair failed.
func (r EngineResult) Failed() bool { return r.Err != nil }

// PairError wraps the failure of a single (sample, engine) pair.
type PairError struct {
	Engine   string
	SampleID string
	Err      error
}

func (e *PairError) Error() string {
	return fmt.Sprintf("sample %s, engine %s: %v", e.SampleID, e.Engine, e.Err)
}

func (e *PairError) Unwrap() error { return e.Err }

// ResultsTable maps engine names to one result per sample, in sample order.
type ResultsTable struct {
	// Engines holds the engine names in run order.
	Engines []string
	Results map[string][]EngineResult
}

func newResultsTable(engines []string, samples int) *ResultsTable {
	t := &ResultsTable{
		Engines: append([]string(nil), engines...),
		Results: make(map[string][]EngineResult, len(engines)),
	}
	for _, name := range engines {
		t.Results[name] = make([]EngineResult, samples)
	}
	return t
}

// Len returns the total number of results in the table.
func (t *ResultsTable) Len() int {
	n := 0
	for _, name := range t.Engines {
		n += len(t.Results[name])
	}
	return n
}

// Failures lists the failed pairs in engine, then sample order.
func (t *ResultsTable) Failures() []*PairError {
	var out []*PairError
	for _, name := range t.Engines {
		for _, r := range t.Results[name] {
			if r.Err != nil {
				out = append(out, &PairError{Engine: name, SampleID: r.SampleID, Err: r.Err})
			}
		}
	}
	return out
}

// AggregateStats maps engine name to metric name to the mean over that
// engine's successful results. Time is in seconds.
type AggregateStats map[string]map[string]float64

// Aggregate computes the per-engine means. Engines without any successful
// result are left out.
func (t *ResultsTable) Aggregate() AggregateStats {
	stats := make(AggregateStats, len(t.Engines))
	for _, name := range t.Engines {
		var cer, wer, secs float64
		n := 0
		for _, r := range t.Results[name] {
			if r.Failed() {
				continue
			}
			cer += r.CER
			wer += r.WER
			secs += r.Elapsed.Seconds()
			n++
		}
		if n == 0 {
			continue
		}
		stats[name] = map[string]float64{
			MetricCER:  cer / float64(n),
			MetricWER:  wer / float64(n),
			MetricTime: secs / float64(n),
		}
	}
	return stats
}
