package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rotatedFiles(t *testing.T, logFile string) []string {
	t.Helper()
	files, err := filepath.Glob(logFile + ".*")
	require.NoError(t, err)
	return files
}

func TestNewRotatingWriter_CreatesDirectory(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "subdir", "pasokh.log")

	rw, err := NewRotatingWriter(logFile, 10, 7, false)
	require.NoError(t, err)
	defer rw.Close()

	_, err = os.Stat(logFile)
	assert.NoError(t, err)
}

func TestRotatingWriter_Write(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "pasokh.log")

	rw, err := NewRotatingWriter(logFile, 1, 7, false)
	require.NoError(t, err)
	defer rw.Close()

	data := []byte("reply scheduled\n")
	n, err := rw.Write(data)
	require.NoError(t, err)
	assert.Equal(t, len(data), n)

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Equal(t, "reply scheduled\n", string(content))
}

func TestRotatingWriter_RotatesBySize(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "pasokh.log")

	rw, err := NewRotatingWriter(logFile, 1, 7, false)
	require.NoError(t, err)
	defer rw.Close()

	chunk := []byte(strings.Repeat("a", 600*1024))
	_, err = rw.Write(chunk)
	require.NoError(t, err)
	assert.Empty(t, rotatedFiles(t, logFile))

	_, err = rw.Write(chunk)
	require.NoError(t, err)
	assert.Len(t, rotatedFiles(t, logFile), 1)

	info, err := os.Stat(logFile)
	require.NoError(t, err)
	assert.Equal(t, int64(len(chunk)), info.Size())
}

func TestRotatingWriter_Compress(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "pasokh.log")

	rw, err := NewRotatingWriter(logFile, 1, 7, true)
	require.NoError(t, err)
	defer rw.Close()

	_, err = rw.Write([]byte("before rotation\n"))
	require.NoError(t, err)
	require.NoError(t, rw.Rotate())

	files := rotatedFiles(t, logFile)
	require.Len(t, files, 1)
	assert.True(t, strings.HasSuffix(files[0], ".gz"))
}

func TestRotatingWriter_CleanupRemovesOldFiles(t *testing.T) {
	dir := t.TempDir()
	logFile := filepath.Join(dir, "pasokh.log")

	old := logFile + ".20200101-000000.000.gz"
	require.NoError(t, os.WriteFile(old, []byte("old"), 0644))
	past := time.Now().AddDate(0, 0, -30)
	require.NoError(t, os.Chtimes(old, past, past))

	recent := logFile + ".20990101-000000.000"
	require.NoError(t, os.WriteFile(recent, []byte("recent"), 0644))

	rw, err := NewRotatingWriter(logFile, 1, 7, false)
	require.NoError(t, err)
	defer rw.Close()

	_, err = os.Stat(old)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(recent)
	assert.NoError(t, err)
}

func TestRotatingWriter_WriteAfterClose(t *testing.T) {
	rw, err := NewRotatingWriter(filepath.Join(t.TempDir(), "pasokh.log"), 1, 0, false)
	require.NoError(t, err)
	require.NoError(t, rw.Close())
	require.NoError(t, rw.Close())

	_, err = rw.Write([]byte("late"))
	assert.ErrorIs(t, err, os.ErrClosed)
}
