package securedisplay

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireShell(t *testing.T) string {
	t.Helper()
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}
	return sh
}

func shellDetector(t *testing.T, script string, timeout time.Duration) *SubprocessDetector {
	sh := requireShell(t)
	return NewSubprocessDetector([]string{sh, "-c", script}, timeout, discardLogger())
}

func TestSubprocessDetectorNotSecure(t *testing.T) {
	d := shellDetector(t, `printf 'Window #0\n  fl=0x81800008\n'`, time.Second)

	secure, err := d.Detect(context.Background())
	require.NoError(t, err)
	assert.False(t, secure)
}

func TestSubprocessDetectorSecure(t *testing.T) {
	d := shellDetector(t, `printf 'Window #0\n  fl=LAYOUT_IN_SCREEN SECURE\n'`, time.Second)

	secure, err := d.Detect(context.Background())
	require.NoError(t, err)
	assert.True(t, secure)
}

func TestSubprocessDetectorMergesStderr(t *testing.T) {
	d := shellDetector(t, `echo 'fl=0x00002000' 1>&2`, time.Second)

	secure, err := d.Detect(context.Background())
	require.NoError(t, err)
	assert.True(t, secure)
}

func TestSubprocessDetectorKillsOnEarlyMatch(t *testing.T) {
	d := shellDetector(t, `echo 'fl=0x2000'; sleep 10`, 5*time.Second)

	start := time.Now()
	secure, err := d.Detect(context.Background())
	require.NoError(t, err)
	assert.True(t, secure)
	assert.Less(t, time.Since(start), 2*time.Second, "process is not waited on after a match")
}

func TestSubprocessDetectorTimeout(t *testing.T) {
	d := shellDetector(t, `echo 'fl=0x0'; sleep 10`, DefaultSubprocessTimeout)

	start := time.Now()
	secure, err := d.Detect(context.Background())
	elapsed := time.Since(start)

	assert.ErrorIs(t, err, ErrTimeout)
	assert.False(t, secure)
	assert.GreaterOrEqual(t, elapsed, 900*time.Millisecond)
	assert.Less(t, elapsed, 3*time.Second)
}

func TestSubprocessDetectorNonZeroExitIsNotFailure(t *testing.T) {
	d := shellDetector(t, `echo 'fl=0x0'; exit 3`, time.Second)

	secure, err := d.Detect(context.Background())
	require.NoError(t, err)
	assert.False(t, secure)
}

func TestSubprocessDetectorSpawnFailure(t *testing.T) {
	d := NewSubprocessDetector([]string{"/nonexistent/mirrord-dumpsys"}, time.Second, discardLogger())

	_, err := d.Detect(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrTimeout)
}

func TestSubprocessDetectorDefaults(t *testing.T) {
	d := NewSubprocessDetector(nil, 0, nil)

	assert.Equal(t, DefaultFallbackCommand, d.command)
	assert.Equal(t, DefaultSubprocessTimeout, d.timeout)
}
