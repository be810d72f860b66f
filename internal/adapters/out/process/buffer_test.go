package process

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBoundedBuffer(t *testing.T) {
	b := newBoundedBuffer(5)

	n, err := b.Write([]byte("abc"))
	assert.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = b.Write([]byte("defgh"))
	assert.NoError(t, err)
	assert.Equal(t, 5, n)

	_, _ = b.Write([]byte("ij"))

	assert.Equal(t, "abcde\n...[truncated 5 bytes]", b.String())
}
