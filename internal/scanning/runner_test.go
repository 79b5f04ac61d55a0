package scanning

import (
	"context"
	"io"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func skipWithoutShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
}

func TestExecRunner_SeparatesStreams(t *testing.T) {
	skipWithoutShell(t)

	proc, err := ExecRunner{}.Start(context.Background(),
		[]string{"sh", "-c", "echo '<nmaprun/>'; echo progress 1>&2"})
	require.NoError(t, err)

	stderr, err := io.ReadAll(proc.Stderr())
	require.NoError(t, err)
	stdout, err := io.ReadAll(proc.Stdout())
	require.NoError(t, err)
	require.NoError(t, proc.Wait())

	assert.Equal(t, "<nmaprun/>\n", string(stdout))
	assert.Equal(t, "progress\n", string(stderr))
}

func TestExecRunner_Terminate(t *testing.T) {
	skipWithoutShell(t)

	proc, err := ExecRunner{}.Start(context.Background(), []string{"sleep", "30"})
	require.NoError(t, err)

	start := time.Now()
	require.NoError(t, proc.Terminate())
	_, _ = io.ReadAll(proc.Stdout())
	assert.Error(t, proc.Wait())
	assert.Less(t, time.Since(start), 10*time.Second)

	assert.NoError(t, proc.Terminate(), "terminating an exited process is not an error")
}

func TestExecRunner_NotFound(t *testing.T) {
	_, err := ExecRunner{}.Start(context.Background(), []string{"uplink-no-such-binary"})
	require.Error(t, err)
	assert.True(t, IsNotFound(err))

	_, err = ExecRunner{}.Start(context.Background(), nil)
	assert.True(t, IsNotFound(err))
}
