package localproc

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStat(t *testing.T) {
	line := "4242 (node (worker) x) S 1 4242 4242 0 -1 4194560 1200 0 0 0 150 50 0 0 20 0 11 0 9000 1000000 5000 18446744073709551615\n"

	stat, err := parseStat(line)

	require.NoError(t, err)
	assert.Equal(t, 4242, stat.pgrp)
	assert.Equal(t, uint64(200), stat.cpuTicks)
	assert.Equal(t, uint64(9000), stat.startTick)
}

func TestParseStat_Malformed(t *testing.T) {
	_, err := parseStat("garbage")
	assert.Error(t, err)

	_, err = parseStat("1 (sh) S 1 2")
	assert.Error(t, err)
}

func TestGroupUsage_FakeProc(t *testing.T) {
	root := t.TempDir()
	old := procRoot
	procRoot = root
	t.Cleanup(func() { procRoot = old })

	write := func(rel, content string) {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	// 100s uptime; both processes started at tick 0 and used 10s of CPU each.
	write("uptime", "100.00 400.00\n")
	write("10/stat", "10 (sh) S 1 10 10 0 -1 0 0 0 0 0 500 500 0 0 20 0 1 0 0 0 0\n")
	write("10/status", "Name:\tsh\nVmRSS:\t    1024 kB\n")
	write("11/stat", "11 (node) S 10 10 10 0 -1 0 0 0 0 0 900 100 0 0 20 0 1 0 0 0 0\n")
	write("11/status", "Name:\tnode\nVmRSS:\t    2048 kB\n")
	write("12/stat", "12 (other) S 1 12 12 0 -1 0 0 0 0 0 900 100 0 0 20 0 1 0 0 0 0\n")
	write("self/stat", "ignored")

	usage, err := groupUsage(10)

	require.NoError(t, err)
	assert.InDelta(t, 20.0, usage.CPUPercent, 0.001)
	assert.Equal(t, uint64(3072*1024), usage.MemoryBytes)

	_, err = groupUsage(99)
	assert.Error(t, err)
}
