package benchmark

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ocrbench/internal/metrics"
	"ocrbench/internal/ocr"
)

// stubEngine returns a fixed transcription per image base name.
type stubEngine struct {
	name    string
	outputs map[string]string
	fail    map[string]error
	delay   time.Duration

	mu       sync.Mutex
	scratch  []string
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func (e *stubEngine) Name() string { return e.name }

func (e *stubEngine) Extract(ctx context.Context, imagePath, scratchDir string) (string, error) {
	n := e.inFlight.Add(1)
	defer e.inFlight.Add(-1)
	for {
		m := e.maxSeen.Load()
		if n <= m || e.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}

	e.mu.Lock()
	e.scratch = append(e.scratch, scratchDir)
	e.mu.Unlock()

	if e.delay > 0 {
		select {
		case <-time.After(e.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	base := filepath.Base(imagePath)
	if err := e.fail[base]; err != nil {
		return "", err
	}
	return e.outputs[base], nil
}

func writeSample(t *testing.T, dir, name, truth string, img image.Image) SampleInput {
	t.Helper()
	if img == nil {
		img = image.NewGray(image.Rect(0, 0, 4, 4))
	}
	imgPath := filepath.Join(dir, name+".png")
	f, err := os.Create(imgPath)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())

	truthPath := filepath.Join(dir, name+".txt")
	require.NoError(t, os.WriteFile(truthPath, []byte(truth), 0o644))
	return SampleInput{ImagePath: imgPath, GroundTruthPath: truthPath}
}

func TestRunProducesOneResultPerPair(t *testing.T) {
	dir := t.TempDir()
	samples := []SampleInput{
		writeSample(t, dir, "a", "hello world", nil),
		writeSample(t, dir, "b", "good morning", nil),
		writeSample(t, dir, "c", "", nil),
	}
	perfect := &stubEngine{name: "perfect", outputs: map[string]string{
		"a.png": "hello world", "b.png": "good morning", "c.png": "",
	}}
	sloppy := &stubEngine{name: "sloppy", outputs: map[string]string{
		"a.png": "hello word", "b.png": "good", "c.png": "noise",
	}}

	runner, err := NewRunner([]ocr.Engine{perfect, sloppy}, Options{ScratchDir: filepath.Join(dir, "out")})
	require.NoError(t, err)
	assert.NotEmpty(t, runner.RunID())

	table, err := runner.Run(context.Background(), samples)
	require.NoError(t, err)

	assert.Equal(t, []string{"perfect", "sloppy"}, table.Engines)
	assert.Equal(t, len(samples)*2, table.Len())
	for _, name := range table.Engines {
		require.Len(t, table.Results[name], len(samples))
		for i, r := range table.Results[name] {
			assert.Equal(t, []string{"a", "b", "c"}[i], r.SampleID)
			assert.NoError(t, r.Err)
			assert.GreaterOrEqual(t, r.Elapsed, time.Duration(0))
			assert.GreaterOrEqual(t, r.CER, 0.0)
			assert.LessOrEqual(t, r.CER, 1.0)
		}
	}

	for _, r := range table.Results["perfect"] {
		assert.Zero(t, r.CER)
		assert.Zero(t, r.WER)
	}
	assert.Greater(t, table.Results["sloppy"][0].CER, 0.0)
	assert.Empty(t, table.Failures())

	stats := table.Aggregate()
	assert.Zero(t, stats["perfect"][MetricCER])
	assert.Greater(t, stats["sloppy"][MetricWER], 0.0)
}

func TestRunScratchDirsAreEngineAndSampleScoped(t *testing.T) {
	dir := t.TempDir()
	scratch := filepath.Join(dir, "out")
	samples := []SampleInput{
		writeSample(t, dir, "a", "x", nil),
		{ID: "a", ImagePath: filepath.Join(dir, "a.png"), GroundTruthPath: filepath.Join(dir, "a.txt")},
	}
	e1 := &stubEngine{name: "one"}
	e2 := &stubEngine{name: "two"}

	runner, err := NewRunner([]ocr.Engine{e1, e2}, Options{ScratchDir: scratch, Workers: 4})
	require.NoError(t, err)
	table, err := runner.Run(context.Background(), samples)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{filepath.Join(scratch, "one", "a"), filepath.Join(scratch, "one", "a-2")}, e1.scratch)
	assert.ElementsMatch(t, []string{filepath.Join(scratch, "two", "a"), filepath.Join(scratch, "two", "a-2")}, e2.scratch)
	assert.Equal(t, "a-2", table.Results["one"][1].SampleID)
}

func TestRunIsolatesFailures(t *testing.T) {
	dir := t.TempDir()
	samples := []SampleInput{
		writeSample(t, dir, "a", "alpha", nil),
		writeSample(t, dir, "b", "beta", nil),
	}
	boom := ocr.NewOCRError("flaky", "Extract", ocr.ErrArtifactMissing, "output.pdf")
	flaky := &stubEngine{name: "flaky",
		outputs: map[string]string{"b.png": "beta"},
		fail:    map[string]error{"a.png": boom},
	}
	steady := &stubEngine{name: "steady", outputs: map[string]string{"a.png": "alpha", "b.png": "beta"}}

	runner, err := NewRunner([]ocr.Engine{flaky, steady}, Options{ScratchDir: filepath.Join(dir, "out")})
	require.NoError(t, err)
	table, err := runner.Run(context.Background(), samples)
	require.NoError(t, err)

	assert.Equal(t, 4, table.Len())
	require.True(t, table.Results["flaky"][0].Failed())
	assert.True(t, errors.Is(table.Results["flaky"][0].Err, ocr.ErrArtifactMissing))
	assert.False(t, table.Results["flaky"][1].Failed())

	failures := table.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, "flaky", failures[0].Engine)
	assert.Equal(t, "a", failures[0].SampleID)
	assert.Contains(t, failures[0].Error(), "sample a, engine flaky")

	// the failed pair does not drag the mean
	assert.Zero(t, table.Aggregate()["flaky"][MetricCER])
}

func TestRunFailFast(t *testing.T) {
	dir := t.TempDir()
	samples := []SampleInput{
		writeSample(t, dir, "a", "alpha", nil),
		writeSample(t, dir, "b", "beta", nil),
	}
	broken := &stubEngine{name: "broken", fail: map[string]error{"a.png": ocr.ErrTimeout}}

	runner, err := NewRunner([]ocr.Engine{broken}, Options{ScratchDir: filepath.Join(dir, "out"), FailFast: true})
	require.NoError(t, err)
	table, err := runner.Run(context.Background(), samples)
	require.Error(t, err)
	assert.Nil(t, table)
	assert.True(t, errors.Is(err, ocr.ErrExternalProcess))

	var pairErr *PairError
	require.True(t, errors.As(err, &pairErr))
	assert.Equal(t, "broken", pairErr.Engine)
	assert.Equal(t, "a", pairErr.SampleID)
}

func TestRunPreparationFailures(t *testing.T) {
	dir := t.TempDir()
	good := writeSample(t, dir, "good", "fine", nil)
	badTruth := writeSample(t, dir, "latin1", "", nil)
	require.NoError(t, os.WriteFile(badTruth.GroundTruthPath, []byte{0x63, 0x61, 0x66, 0xe9}, 0o644))
	missing := SampleInput{ImagePath: good.ImagePath, GroundTruthPath: filepath.Join(dir, "nope.txt"), ID: "missing"}

	engine := &stubEngine{name: "e", outputs: map[string]string{"good.png": "fine"}}
	runner, err := NewRunner([]ocr.Engine{engine}, Options{ScratchDir: filepath.Join(dir, "out")})
	require.NoError(t, err)

	table, err := runner.Run(context.Background(), []SampleInput{good, badTruth, missing})
	require.NoError(t, err)

	results := table.Results["e"]
	require.Len(t, results, 3)
	assert.False(t, results[0].Failed())
	assert.True(t, errors.Is(results[1].Err, ocr.ErrEncoding))
	assert.True(t, errors.Is(results[2].Err, os.ErrNotExist))
	assert.Len(t, engine.scratch, 1, "engines never run on samples that failed preparation")
}

func TestRunFlattensAlphaBeforeOCR(t *testing.T) {
	dir := t.TempDir()
	rgba := image.NewNRGBA(image.Rect(0, 0, 3, 3))
	rgba.Set(1, 1, color.NRGBA{A: 128})
	sample := writeSample(t, dir, "transparent", "x", rgba)

	var decoded image.Image
	probe := &probeEngine{inspect: func(path string) {
		f, err := os.Open(path)
		require.NoError(t, err)
		defer f.Close()
		decoded, err = png.Decode(f)
		require.NoError(t, err)
	}}

	runner, err := NewRunner([]ocr.Engine{probe}, Options{ScratchDir: filepath.Join(dir, "out")})
	require.NoError(t, err)
	_, err = runner.Run(context.Background(), []SampleInput{sample})
	require.NoError(t, err)

	require.NotNil(t, decoded)
	assert.False(t, ocr.HasAlpha(decoded), "engine received %T", decoded)
}

type probeEngine struct {
	inspect func(path string)
}

func (p *probeEngine) Name() string { return "probe" }

func (p *probeEngine) Extract(_ context.Context, imagePath, _ string) (string, error) {
	p.inspect(imagePath)
	return "x", nil
}

func TestRunHonoursWorkerLimit(t *testing.T) {
	dir := t.TempDir()
	var samples []SampleInput
	for _, n := range []string{"a", "b", "c", "d", "e", "f"} {
		samples = append(samples, writeSample(t, dir, n, n, nil))
	}

	seq := &stubEngine{name: "seq", delay: 5 * time.Millisecond}
	runner, err := NewRunner([]ocr.Engine{seq}, Options{ScratchDir: filepath.Join(dir, "out")})
	require.NoError(t, err)
	_, err = runner.Run(context.Background(), samples)
	require.NoError(t, err)
	assert.Equal(t, int32(1), seq.maxSeen.Load())

	par := &stubEngine{name: "par", delay: 20 * time.Millisecond}
	runner, err = NewRunner([]ocr.Engine{par}, Options{ScratchDir: filepath.Join(dir, "out"), Workers: 2})
	require.NoError(t, err)
	table, err := runner.Run(context.Background(), samples)
	require.NoError(t, err)
	assert.LessOrEqual(t, par.maxSeen.Load(), int32(2))
	assert.Len(t, table.Results["par"], len(samples))
}

func TestRunCanceledContext(t *testing.T) {
	dir := t.TempDir()
	samples := []SampleInput{writeSample(t, dir, "a", "a", nil)}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner, err := NewRunner([]ocr.Engine{&stubEngine{name: "e"}}, Options{ScratchDir: filepath.Join(dir, "out")})
	require.NoError(t, err)
	table, err := runner.Run(ctx, samples)
	assert.True(t, errors.Is(err, context.Canceled))
	require.NotNil(t, table)
	assert.True(t, table.Results["e"][0].Failed())
}

func TestNewRunnerValidation(t *testing.T) {
	_, err := NewRunner(nil, Options{})
	assert.True(t, errors.Is(err, ErrNoEngines))

	_, err = NewRunner([]ocr.Engine{&stubEngine{name: "x"}, &stubEngine{name: "x"}}, Options{})
	assert.True(t, errors.Is(err, ErrDuplicateEngine))

	r, err := NewRunner([]ocr.Engine{&stubEngine{name: "x"}}, Options{Scorer: metrics.LevenshteinScorer{}})
	require.NoError(t, err)
	_, err = r.Run(context.Background(), nil)
	assert.True(t, errors.Is(err, ErrNoSamples))
}
