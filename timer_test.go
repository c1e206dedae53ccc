package reactor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kffl/reactor/internal/backend"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	b, err := backend.New(backend.Select)
	if err != nil {
		t.Skipf("select backend unavailable: %v", err)
	}
	r := NewRegistry(b)
	t.Cleanup(r.Abort)
	return r
}

func TestTimerFiresAfterDelay(t *testing.T) {
	r := newTestRegistry(t)
	fired := false
	r.Timeout(10*time.Millisecond, func(args ...interface{}) (bool, error) {
		fired = true
		return false, nil
	})

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) && !fired {
		_, err := r.Loop()
		assert.NoError(t, err)
	}
	assert.True(t, fired)
}

func TestTimerRearmsOnTruthyReturn(t *testing.T) {
	r := newTestRegistry(t)
	count := 0
	timer := r.Timeout(5*time.Millisecond, func(args ...interface{}) (bool, error) {
		count++
		return count < 3, nil
	})

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) && count < 3 {
		_, err := r.Loop()
		assert.NoError(t, err)
	}
	assert.Equal(t, 3, count)
	assert.False(t, timer.Pending())
}

func TestTimerDeleteBeforeFiringPreventsCallback(t *testing.T) {
	r := newTestRegistry(t)
	fired := false
	timer := r.Timeout(50*time.Millisecond, func(args ...interface{}) (bool, error) {
		fired = true
		return false, nil
	})
	timer.Delete()

	for i := 0; i < 5; i++ {
		_, err := r.Loop()
		assert.NoError(t, err)
	}
	assert.False(t, fired)
	assert.False(t, timer.Pending())
}

func TestCheckTimersOrdersByExpiration(t *testing.T) {
	r := newTestRegistry(t)
	var order []int
	r.Timeout(30*time.Millisecond, func(args ...interface{}) (bool, error) {
		order = append(order, 2)
		return false, nil
	})
	r.Timeout(5*time.Millisecond, func(args ...interface{}) (bool, error) {
		order = append(order, 1)
		return false, nil
	})

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) && len(order) < 2 {
		_, err := r.Loop()
		assert.NoError(t, err)
	}
	assert.Equal(t, []int{1, 2}, order)
}
