package benchmark

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"ocrbench/internal/logger"
	"ocrbench/internal/metrics"
	"ocrbench/internal/ocr"
)

var (
	// ErrNoEngines is returned when a runner is built without engines.
	ErrNoEngines = errors.New("no OCR engines configured")

	// ErrNoSamples is returned when Run is called without samples.
	ErrNoSamples = errors.New("no samples to benchmark")

	// ErrDuplicateEngine is returned when two engines share a name.
	ErrDuplicateEngine = errors.New("duplicate engine name")
)

// DefaultScratchDir holds per-engine, per-sample artifacts.
const DefaultScratchDir = "output"

// Options tunes a benchmark run.
type Options struct {
	// ScratchDir is the root of the <engine>/<sample> artifact directories.
	ScratchDir string

	// Workers bounds the number of pairs run at once. 1 runs strictly
	// sequentially, one external process at a time.
	Workers int

	// FailFast aborts the run on the first failed pair and returns its error
	// without a table. By default failures are recorded and the run continues.
	FailFast bool

	// Scorer defaults to the ratio scorer.
	Scorer metrics.Scorer
}

// Runner runs every engine over every sample.
type Runner struct {
	engines []ocr.Engine
	opts    Options
	runID   string
	log     zerolog.Logger
}

// NewRunner validates the engine list and options.
func NewRunner(engines []ocr.Engine, opts Options) (*Runner, error) {
	if len(engines) == 0 {
		return nil, ErrNoEngines
	}
	seen := make(map[string]bool, len(engines))
	for _, e := range engines {
		if seen[e.Name()] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateEngine, e.Name())
		}
		seen[e.Name()] = true
	}
	if opts.ScratchDir == "" {
		opts.ScratchDir = DefaultScratchDir
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Scorer == nil {
		opts.Scorer = metrics.RatioScorer{}
	}

	runID := uuid.NewString()
	return &Runner{
		engines: engines,
		opts:    opts,
		runID:   runID,
		log:     logger.WithRunID("benchmark", runID),
	}, nil
}

// RunID identifies this runner's results in logs and reports.
func (r *Runner) RunID() string { return r.runID }

// EngineNames returns the engine names in run order.
func (r *Runner) EngineNames() []string {
	names := make([]string, len(r.engines))
	for i, e := range r.engines {
		names[i] = e.Name()
	}
	return names
}

type preparedSample struct {
	SampleInput
	reference string
	err       error
}

// Run benchmarks every engine on every sample.
//
// Ground truth is read and alpha channels are flattened in place before any
// engine runs. The returned table has one result per engine per sample in
// sample order, whatever the completion order. If ctx is canceled the partial
// table is returned together with ctx.Err(); pairs that never ran are marked
// failed.
func (r *Runner) Run(ctx context.Context, samples []SampleInput) (*ResultsTable, error) {
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}
	samples = assignIDs(samples)

	start := time.Now()
	r.log.Info().
		Int("samples", len(samples)).
		Strs("engines", r.EngineNames()).
		Int("workers", r.opts.Workers).
		Str("scorer", r.opts.Scorer.Name()).
		Bool("fail_fast", r.opts.FailFast).
		Msg("Starting benchmark")

	prepared := make([]preparedSample, len(samples))
	for i, s := range samples {
		prepared[i] = r.prepare(s)
		if prepared[i].err != nil && r.opts.FailFast {
			return nil, &PairError{SampleID: s.ID, Err: prepared[i].err}
		}
	}

	table := newResultsTable(r.EngineNames(), len(samples))

	grp, grpCtx := errgroup.WithContext(ctx)
	grp.SetLimit(r.opts.Workers)

	for i := range prepared {
		sample := prepared[i]
		for _, engine := range r.engines {
			engine := engine
			slot := &table.Results[engine.Name()][i]
			grp.Go(func() error {
				*slot = r.runPair(grpCtx, engine, sample)
				if slot.Err != nil && r.opts.FailFast {
					return &PairError{Engine: engine.Name(), SampleID: sample.ID, Err: slot.Err}
				}
				return nil
			})
		}
	}

	if err := grp.Wait(); err != nil {
		r.log.Error().Err(err).Msg("Benchmark aborted")
		return nil, err
	}

	failures := len(table.Failures())
	r.log.Info().
		Int("results", table.Len()).
		Int("failures", failures).
		Dur("elapsed", time.Since(start)).
		Msg("Benchmark finished")

	if err := ctx.Err(); err != nil {
		return table, err
	}
	return table, nil
}

func (r *Runner) prepare(s SampleInput) preparedSample {
	p := preparedSample{SampleInput: s}

	p.reference, p.err = ReadGroundTruth(s.GroundTruthPath)
	if p.err != nil {
		r.log.Warn().Err(p.err).Str("sample", s.ID).Msg("Cannot read ground truth")
		return p
	}

	changed, err := ocr.FlattenAlpha(s.ImagePath)
	if err != nil {
		p.err = err
		r.log.Warn().Err(err).Str("sample", s.ID).Msg("Cannot normalize image")
		return p
	}
	if changed {
		r.log.Debug().Str("sample", s.ID).Str("image", s.ImagePath).Msg("Flattened alpha channel")
	}
	return p
}

func (r *Runner) runPair(ctx context.Context, engine ocr.Engine, s preparedSample) EngineResult {
	result := EngineResult{SampleID: s.ID}
	log := r.log.With().Str("engine", engine.Name()).Str("sample", s.ID).Logger()

	if s.err != nil {
		result.Err = s.err
		return result
	}
	if err := ctx.Err(); err != nil {
		result.Err = err
		return result
	}

	scratch := filepath.Join(r.opts.ScratchDir, engine.Name(), s.ID)

	start := time.Now()
	text, err := engine.Extract(ctx, s.ImagePath, scratch)
	result.Elapsed = time.Since(start)
	if err != nil {
		result.Err = ocr.WrapOCRError(engine.Name(), "Extract", err, "")
		log.Warn().Err(err).Dur("elapsed", result.Elapsed).Msg("OCR failed")
		return result
	}

	score := r.opts.Scorer.Score(text, s.reference)
	result.CER = score.CER
	result.WER = score.WER

	log.Info().
		Float64("cer", result.CER).
		Float64("wer", result.WER).
		Dur("elapsed", result.Elapsed).
		Msg("Pair scored")

	return result
}

// ReadGroundTruth loads a reference text, rejecting invalid UTF-8 with
// ocr.ErrEncoding.
func ReadGroundTruth(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read ground truth: %w", err)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("ground truth %s: %w", path, ocr.ErrEncoding)
	}
	return string(data), nil
}

// assignIDs fills empty sample IDs from the image name and makes all IDs
// unique so scratch directories never collide.
func assignIDs(samples []SampleInput) []SampleInput {
	out := make([]SampleInput, len(samples))
	taken := make(map[string]bool, len(samples))
	for i, s := range samples {
		id := s.ID
		if id == "" {
			base := filepath.Base(s.ImagePath)
			id = strings.TrimSuffix(base, filepath.Ext(base))
		}
		if id == "" || id == "." || id == string(filepath.Separator) {
			id = "sample"
		}
		candidate := id
		for n := 2; taken[candidate]; n++ {
			candidate = id + "-" + strconv.Itoa(n)
		}
		taken[candidate] = true
		s.ID = candidate
		out[i] = s
	}
	return out
}
