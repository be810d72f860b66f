package logwriter

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWriter(t *testing.T) (*LogWriter, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "sites")
	writer, err := New(Config{Dir: dir, MaxSize: 10, MaxBackups: 2, MaxAge: 7})
	require.NoError(t, err)
	t.Cleanup(func() { _ = writer.Close() })
	return writer, dir
}

func TestNew_CreatesDirectory(t *testing.T) {
	_, dir := newWriter(t)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestOpen_WritesSiteFile(t *testing.T) {
	writer, dir := newWriter(t)

	w := writer.Open("blog")
	_, err := w.Write([]byte("listening on 3000\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	content, err := os.ReadFile(filepath.Join(dir, "blog.log"))
	require.NoError(t, err)
	assert.Equal(t, "listening on 3000\n", string(content))
}

func TestStartLogging_DemultiplexesStream(t *testing.T) {
	writer, _ := newWriter(t)

	data := append(dockerLogEntry(1, "stdout line\n"), dockerLogEntry(2, "stderr line\n")...)
	err := writer.StartLogging(context.Background(), "ctr-1", "shop", io.NopCloser(bytes.NewReader(data)))
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		content, err := os.ReadFile(writer.Path("shop"))
		return err == nil && bytes.Contains(content, []byte("stdout line")) && bytes.Contains(content, []byte("stderr line"))
	}, time.Second, 10*time.Millisecond)
}

func TestStopLogging(t *testing.T) {
	writer, _ := newWriter(t)

	pr, pw := io.Pipe()
	require.NoError(t, writer.StartLogging(context.Background(), "ctr-1", "shop", pr))
	go func() { _, _ = pw.Write(dockerLogEntry(1, "hello\n")) }()

	require.NoError(t, writer.StopLogging("ctr-1"))
	assert.Empty(t, writer.streams)
	require.NoError(t, writer.StopLogging("unknown"))
	_ = pw.Close()
}

func TestRemove(t *testing.T) {
	writer, dir := newWriter(t)

	w := writer.Open("blog")
	_, _ = w.Write([]byte("x"))
	require.NoError(t, w.Close())
	backup := filepath.Join(dir, "blog-2026-01-01T00-00-00.000.log.gz")
	require.NoError(t, os.WriteFile(backup, []byte("old"), 0600))
	other := filepath.Join(dir, "blog-old.log")
	require.NoError(t, os.WriteFile(other, []byte("keep"), 0600))

	require.NoError(t, writer.Remove("blog"))

	assert.NoFileExists(t, writer.Path("blog"))
	assert.NoFileExists(t, backup)
	assert.FileExists(t, other)
	require.NoError(t, writer.Remove("never-existed"))
}

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "my-site_1", sanitizeName("my-site_1"))
	assert.Equal(t, "app_example_com", sanitizeName("app.example.com"))
	assert.Equal(t, "a_b_c", sanitizeName("a/b c"))
}

// dockerLogEntry builds a multiplexed frame: stream type, 3 reserved bytes, big endian size.
func dockerLogEntry(streamType byte, data string) []byte {
	size := len(data)
	header := []byte{streamType, 0, 0, 0, byte(size >> 24), byte(size >> 16), byte(size >> 8), byte(size)}
	return append(header, []byte(data)...)
}
