//go:build unix

package reactor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestCompoundListenerFiresOnRead(t *testing.T) {
	r := newTestRegistry(t)
	a, b := socketpair(t)

	fired := 0
	ev := r.Event(func(l *CompoundListener, handle interface{}, evtype int, arg interface{}) (bool, error) {
		fired++
		buf := make([]byte, 64)
		unix.Read(a, buf)
		return false, nil
	}, nil, EvRead, a)
	require.NoError(t, ev.Add())

	_, err := unix.Write(b, []byte("x"))
	require.NoError(t, err)

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) && fired == 0 {
		_, err := r.Loop()
		require.NoError(t, err)
	}
	assert.Equal(t, 1, fired)
}

func TestCompoundListenerTimeoutChild(t *testing.T) {
	r := newTestRegistry(t)
	fired := false
	ev := r.Event(func(l *CompoundListener, handle interface{}, evtype int, arg interface{}) (bool, error) {
		fired = true
		return false, nil
	}, nil, EvTimeout, nil)
	require.NoError(t, ev.Add(10*time.Millisecond))

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) && !fired {
		_, err := r.Loop()
		require.NoError(t, err)
	}
	assert.True(t, fired)
}

func TestCompoundListenerDeleteTearsDownChildren(t *testing.T) {
	r := newTestRegistry(t)
	a, _ := socketpair(t)

	ev := r.Event(func(l *CompoundListener, handle interface{}, evtype int, arg interface{}) (bool, error) {
		return false, nil
	}, nil, EvRead|EvTimeout, a)
	require.NoError(t, ev.Add(time.Second))
	assert.True(t, ev.Pending())

	require.NoError(t, ev.Delete())
	assert.False(t, ev.Pending())
}

func TestCompoundListenerPersistStaysArmed(t *testing.T) {
	r := newTestRegistry(t)
	a, b := socketpair(t)

	fires := 0
	ev := r.Event(func(l *CompoundListener, handle interface{}, evtype int, arg interface{}) (bool, error) {
		fires++
		buf := make([]byte, 64)
		unix.Read(a, buf)
		return false, nil
	}, nil, EvRead|EvPersist, a)
	require.NoError(t, ev.Add())

	_, err := unix.Write(b, []byte("1"))
	require.NoError(t, err)
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) && fires < 1 {
		_, err := r.Loop()
		require.NoError(t, err)
	}

	_, err = unix.Write(b, []byte("2"))
	require.NoError(t, err)
	for time.Now().Before(deadline) && fires < 2 {
		_, err := r.Loop()
		require.NoError(t, err)
	}
	assert.Equal(t, 2, fires)
}
