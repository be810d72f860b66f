package site

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedLock(t *testing.T) {
	l := newKeyedLock()

	release, ok := l.TryAcquire("a")
	require.True(t, ok)

	_, ok = l.TryAcquire("a")
	assert.False(t, ok)

	releaseB, ok := l.TryAcquire("b")
	require.True(t, ok)
	assert.Equal(t, 2, l.Len())

	release()
	release()
	releaseB()
	assert.Zero(t, l.Len())

	again, ok := l.TryAcquire("a")
	require.True(t, ok)
	again()
}
