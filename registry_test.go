package reactor

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAbortBranchReturnedFromCallbackKeepsLoopRunning(t *testing.T) {
	r := newTestRegistry(t)
	sibling := false
	r.Timeout(1*time.Millisecond, func(args ...interface{}) (bool, error) {
		return false, ErrAbortBranch
	})
	r.Timeout(1*time.Millisecond, func(args ...interface{}) (bool, error) {
		sibling = true
		return false, nil
	})

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) && !sibling {
		_, err := r.Loop()
		require.NoError(t, err)
	}
	assert.True(t, sibling)
}

func TestAbortBranchPanicKeepsLoopRunning(t *testing.T) {
	r := newTestRegistry(t)
	sibling := false
	r.Timeout(1*time.Millisecond, func(args ...interface{}) (bool, error) {
		r.AbortBranch()
		panic("unreachable")
	})
	r.Timeout(1*time.Millisecond, func(args ...interface{}) (bool, error) {
		sibling = true
		return false, nil
	})

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) && !sibling {
		_, err := r.Loop()
		require.NoError(t, err)
	}
	assert.True(t, sibling)
}

func TestNonAbortErrorStopsDispatch(t *testing.T) {
	r := newTestRegistry(t)
	boom := errors.New("boom")
	r.Timeout(1*time.Millisecond, func(args ...interface{}) (bool, error) {
		return false, boom
	})

	err := r.Dispatch()
	assert.ErrorIs(t, err, boom)
	assert.False(t, r.IsRunning())
}

func TestGenuinePanicPropagates(t *testing.T) {
	r := newTestRegistry(t)
	r.Timeout(1*time.Millisecond, func(args ...interface{}) (bool, error) {
		panic("not an abort branch")
	})

	assert.Panics(t, func() {
		_, _ = r.Loop()
	})
}

func TestReportReflectsListenerCounts(t *testing.T) {
	r := newTestRegistry(t)
	r.Timeout(time.Minute, func(args ...interface{}) (bool, error) { return false, nil })

	rep := r.Report()
	assert.Equal(t, 1, rep.Timers)
	assert.Equal(t, 0, rep.Reads)
}

func TestInitClearsAllListeners(t *testing.T) {
	r := newTestRegistry(t)
	r.Timeout(time.Minute, func(args ...interface{}) (bool, error) { return false, nil })
	assert.Equal(t, 1, r.Report().Timers)

	r.Init()
	assert.Equal(t, 0, r.Report().Timers)
}

func TestAbortIsIdempotent(t *testing.T) {
	r := newTestRegistry(t)
	r.Abort()
	assert.NotPanics(t, r.Abort)
}
