package lock

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileLock_RunsAndReleases(t *testing.T) {
	l := NewFileLock(filepath.Join(t.TempDir(), "nested", "cycles.lock"))

	calls := 0
	require.NoError(t, l.Run(func() error { calls++; return nil }))
	require.NoError(t, l.Run(func() error { calls++; return nil }), "lock is released after each run")
	assert.Equal(t, 2, calls)
}

func TestFileLock_HeldElsewhere(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cycles.lock")
	outer := NewFileLock(path)
	inner := NewFileLock(path)

	innerCalled := false
	err := outer.Run(func() error {
		return inner.Run(func() error {
			innerCalled = true
			return nil
		})
	})

	assert.ErrorIs(t, err, ErrLocked)
	assert.False(t, innerCalled)
}

func TestFileLock_PropagatesError(t *testing.T) {
	l := NewFileLock(filepath.Join(t.TempDir(), "cycles.lock"))
	boom := errors.New("boom")

	assert.ErrorIs(t, l.Run(func() error { return boom }), boom)
	assert.NoError(t, l.Run(func() error { return nil }))
}
