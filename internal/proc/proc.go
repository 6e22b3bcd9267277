// Package proc runs the external binaries (tesseract, ocrmypdf, pdftotext,
// pdftoppm) the OCR engines and PDF tools shell out to.
package proc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"ocrbench/internal/logger"
)

// DefaultTimeout bounds a single external invocation when none is configured.
const DefaultTimeout = 120 * time.Second

var (
	// ErrExternalProcess is returned when an external binary cannot be started,
	// exits non-zero or is killed.
	ErrExternalProcess = errors.New("external process failed")

	// ErrBinaryNotFound is returned when the binary is not on the execution path.
	ErrBinaryNotFound = fmt.Errorf("%w: binary not found", ErrExternalProcess)

	// ErrTimeout is returned when the binary outlives its timeout.
	ErrTimeout = fmt.Errorf("%w: timed out", ErrExternalProcess)
)

// Runner executes an external command and waits for it to finish.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) error
}

// ExecRunner runs commands with os/exec, one process per call.
type ExecRunner struct {
	// Timeout applies to every call; zero or negative disables it.
	Timeout time.Duration

	log zerolog.Logger
}

// NewExecRunner creates an ExecRunner with the given per-call timeout.
func NewExecRunner(timeout time.Duration) *ExecRunner {
	return &ExecRunner{
		Timeout: timeout,
		log:     logger.WithComponent("proc"),
	}
}

// Run starts name with args and waits for it. Stderr is captured and attached
// to the returned error.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) error {
	path, err := exec.LookPath(name)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrBinaryNotFound, name, err)
	}

	runCtx := ctx
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(runCtx, path, args...)
	cmd.Stderr = &stderr
	// children of a killed process may keep stderr open
	cmd.WaitDelay = 2 * time.Second

	start := time.Now()
	r.log.Debug().
		Strs("args", cmd.Args).
		Msg("Running external command")

	err = cmd.Run()
	elapsed := time.Since(start)
	if err == nil {
		r.log.Debug().
			Str("binary", name).
			Dur("duration", elapsed).
			Msg("External command finished")
		return nil
	}

	detail := strings.TrimSpace(stderr.String())
	switch {
	case errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
		r.log.Warn().
			Str("binary", name).
			Dur("timeout", r.Timeout).
			Msg("External command timed out")
		return fmt.Errorf("%w: %s after %s", ErrTimeout, name, r.Timeout)
	case ctx.Err() != nil:
		return fmt.Errorf("%w: %s: %w", ErrExternalProcess, name, ctx.Err())
	}

	r.log.Warn().
		Err(err).
		Str("binary", name).
		Str("stderr", detail).
		Msg("External command failed")
	if detail != "" {
		return fmt.Errorf("%w: %v: %v: %s", ErrExternalProcess, cmd.Args, err, detail)
	}
	return fmt.Errorf("%w: %v: %v", ErrExternalProcess, cmd.Args, err)
}
