package metastore

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "meta.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestMarkAndGet(t *testing.T) {
	s := newTestStore(t)

	meta := FileMeta{ModTime: time.Now().Truncate(time.Second), Size: 1234}
	require.NoError(t, s.MarkImported("/watch/a.pdf", meta))

	got, found, err := s.Get("/watch/a.pdf")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, meta.Size, got.Size)
	assert.True(t, meta.ModTime.Equal(got.ModTime))

	_, found, err = s.Get("/watch/missing.pdf")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestIsImported(t *testing.T) {
	s := newTestStore(t)

	path := filepath.Join(t.TempDir(), "paper.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.7 original"), 0644))
	info, err := os.Stat(path)
	require.NoError(t, err)

	imported, err := s.IsImported(path, info)
	require.NoError(t, err)
	assert.False(t, imported)

	require.NoError(t, s.MarkImported(path, FileMeta{ModTime: info.ModTime(), Size: info.Size()}))

	imported, err = s.IsImported(path, info)
	require.NoError(t, err)
	assert.True(t, imported)

	// Changing the file invalidates the record.
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.7 replaced with more bytes"), 0644))
	newInfo, err := os.Stat(path)
	require.NoError(t, err)

	imported, err = s.IsImported(path, newInfo)
	require.NoError(t, err)
	assert.False(t, imported)
}

func TestForgetAndCount(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.MarkImported("/watch/a.pdf", FileMeta{Size: 1}))
	require.NoError(t, s.MarkImported("/watch/b.pdf", FileMeta{Size: 2}))

	count, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.NoError(t, s.Forget("/watch/a.pdf"))
	_, found, err := s.Get("/watch/a.pdf")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestForEachPrefix(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.MarkImported("/downloads/x.pdf", FileMeta{Size: 1}))
	require.NoError(t, s.MarkImported("/downloads/y.pdf", FileMeta{Size: 2}))
	require.NoError(t, s.MarkImported("/other/z.pdf", FileMeta{Size: 3}))

	var seen []string
	err := s.ForEachPrefix("/downloads/", func(path string, meta FileMeta) error {
		seen = append(seen, path)
		return nil
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"/downloads/x.pdf", "/downloads/y.pdf"}, seen)
}
