package ffmpeg

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeStub creates an executable shell script standing in for ffmpeg.
func writeStub(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ffmpeg-stub")
	script := "#!/bin/sh\n" + body + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func TestNormalizeCommitsOnSuccess(t *testing.T) {
	// The stub touches its last argument, mimicking ffmpeg writing its output.
	stub := writeStub(t, `for last; do :; done; : > "$last"`)
	r := NewRunner(stub, zerolog.Nop())

	out := filepath.Join(t.TempDir(), "normalized_001.mp4")
	require.NoError(t, r.Normalize(context.Background(), "in.mp4", out))

	_, err := os.Stat(out)
	assert.NoError(t, err, "output should be renamed into place")
	_, err = os.Stat(out + ".part.mp4")
	assert.True(t, os.IsNotExist(err), "temp file should be gone")
}

func TestNormalizeFailureLeavesNoOutput(t *testing.T) {
	stub := writeStub(t, `for last; do :; done; : > "$last"; echo "codec mismatch" >&2; exit 3`)
	r := NewRunner(stub, zerolog.Nop())

	out := filepath.Join(t.TempDir(), "normalized_001.mp4")
	err := r.Normalize(context.Background(), "in.mp4", out)
	require.Error(t, err)

	var engineErr *Error
	require.ErrorAs(t, err, &engineErr)
	assert.Equal(t, "normalize", engineErr.Op)
	assert.Equal(t, 3, engineErr.ExitCode)
	assert.Contains(t, engineErr.Stderr, "codec mismatch")

	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr), "no output on failure")
	_, statErr = os.Stat(out + ".part.mp4")
	assert.True(t, os.IsNotExist(statErr), "no partial output on failure")
}

func TestRunTimeout(t *testing.T) {
	stub := writeStub(t, `sleep 10`)
	r := NewRunner(stub, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := r.Concat(ctx, "list.txt", filepath.Join(t.TempDir(), "merged.mp4"), false)
	require.ErrorIs(t, err, ErrTimeout)
}

func TestSegmentRejectsBadDuration(t *testing.T) {
	r := NewRunner("ffmpeg", zerolog.Nop())
	assert.Error(t, r.Segment(context.Background(), "in.mp4", t.TempDir(), 0))
}

func TestNewRunnerDefaultsBinary(t *testing.T) {
	r := NewRunner("", zerolog.Nop())
	assert.Equal(t, "ffmpeg", r.bin)
}
