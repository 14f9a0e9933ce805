package report

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWriter_DefaultPath(t *testing.T) {
	assert.Equal(t, DefaultPath, NewWriter("").Path())
}

func TestWriter_Write(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "final.md")
	w := NewWriter(path)

	got, err := w.Write("# 최종 보고서\n\n본문")
	require.NoError(t, err)
	assert.Equal(t, path, got)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "# 최종 보고서\n\n본문", string(data))
}

func TestWriter_Overwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "final.md")
	w := NewWriter(path)

	_, err := w.Write("first version that is longer")
	require.NoError(t, err)
	_, err = w.Write("second")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWriter_FailsWhenParentIsFile(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	_, err := NewWriter(filepath.Join(blocker, "final.md")).Write("text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "report: create dir")
}
