package proc

import (
	"context"
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
}

func TestExecRunnerSuccess(t *testing.T) {
	skipOnWindows(t)

	r := NewExecRunner(5 * time.Second)
	require.NoError(t, r.Run(context.Background(), "sh", "-c", "exit 0"))
}

func TestExecRunnerMissingBinary(t *testing.T) {
	r := NewExecRunner(time.Second)
	err := r.Run(context.Background(), "ocrbench-definitely-missing-binary")

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBinaryNotFound))
	assert.True(t, errors.Is(err, ErrExternalProcess))
}

func TestExecRunnerNonZeroExit(t *testing.T) {
	skipOnWindows(t)

	r := NewExecRunner(5 * time.Second)
	err := r.Run(context.Background(), "sh", "-c", "echo boom >&2; exit 3")

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrExternalProcess))
	assert.False(t, errors.Is(err, ErrTimeout))
	assert.Contains(t, err.Error(), "boom")
}

func TestExecRunnerTimeout(t *testing.T) {
	skipOnWindows(t)

	r := NewExecRunner(100 * time.Millisecond)
	err := r.Run(context.Background(), "sh", "-c", "sleep 5")

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTimeout))
	assert.True(t, errors.Is(err, ErrExternalProcess))
}

func TestExecRunnerCanceledContext(t *testing.T) {
	skipOnWindows(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewExecRunner(0)
	err := r.Run(ctx, "sh", "-c", "sleep 5")

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, errors.Is(err, ErrTimeout))
}
