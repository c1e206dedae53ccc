//go:build unix

package reactor

import (
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSupportedMethodsIncludesSelect(t *testing.T) {
	methods := SupportedMethods()
	assert.Contains(t, methods, "select")
}

func TestInitializeStrictRejectsUnavailableMethod(t *testing.T) {
	err := Initialize(WithStrict(), WithMethods("not-a-real-backend"))
	assert.Error(t, err)
}

func TestInitializeSelectsFirstAvailableMethod(t *testing.T) {
	require.NoError(t, Initialize(WithMethods("select")))
	assert.Equal(t, "select", ActiveMethod())
	t.Cleanup(Abort)
}

func TestPackageLevelTimeoutUsesActiveReactor(t *testing.T) {
	require.NoError(t, Initialize(WithMethods("select")))
	t.Cleanup(Abort)

	fired := false
	Timeout(5*time.Millisecond, func(args ...interface{}) (bool, error) {
		fired = true
		return false, nil
	})

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) && !fired {
		_, err := Loop()
		require.NoError(t, err)
	}
	assert.True(t, fired)
}

func TestStartWiresSigintToAbort(t *testing.T) {
	require.NoError(t, Initialize(WithMethods("select")))

	Start()
	startDeadline := time.Now().Add(time.Second)
	for time.Now().Before(startDeadline) && !IsRunning() {
		time.Sleep(time.Millisecond)
	}
	require.True(t, IsRunning())

	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGINT))

	stopDeadline := time.Now().Add(time.Second)
	for time.Now().Before(stopDeadline) && IsRunning() {
		time.Sleep(time.Millisecond)
	}
	assert.False(t, IsRunning())
}

func TestStopTerminatesProcessWhenNotRunning(t *testing.T) {
	require.NoError(t, Initialize(WithMethods("select")))
	t.Cleanup(Abort)

	var exitCode int
	var exited bool
	orig := osExit
	osExit = func(code int) { exited = true; exitCode = code }
	defer func() { osExit = orig }()

	require.False(t, IsRunning())
	Stop()
	assert.True(t, exited)
	assert.Equal(t, 0, exitCode)
}

func TestThreadSwallowsAbortBranch(t *testing.T) {
	done := make(chan struct{})
	require.NoError(t, Thread(func() {
		defer close(done)
		AbortBranch()
	}))
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("thread callback never finished")
	}
}
