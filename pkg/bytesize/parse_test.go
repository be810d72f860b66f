package bytesize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input string
		want  int64
	}{
		{"0", 0},
		{"65536", 65536},
		{"512B", 512},
		{"64KB", 64 << 10},
		{"64k", 64 << 10},
		{"64 KiB", 64 << 10},
		{"1.5MiB", 3 << 19},
		{"2gb", 2 << 30},
		{"1T", 1 << 40},
		{" 8MB ", 8 << 20},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, input := range []string{"", "MB", "-1GB", "abcMB", "512XB", "1.2.3KB", "1KBB"} {
		t.Run(input, func(t *testing.T) {
			_, err := Parse(input)
			assert.Error(t, err)
		})
	}
}

func TestMustParse(t *testing.T) {
	assert.Equal(t, int64(1<<20), MustParse("1MB"))
	assert.Panics(t, func() { MustParse("lots") })
}
