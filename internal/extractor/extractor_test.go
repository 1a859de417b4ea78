package extractor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/paperdex/paperdex/internal/errdefs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractPagesMissingFile(t *testing.T) {
	_, err := New().ExtractPages(filepath.Join(t.TempDir(), "nope.pdf"))
	require.Error(t, err)
	assert.True(t, errdefs.IsType(err, errdefs.ErrTypeExtraction))
}

func TestExtractPagesNotAPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.pdf")
	require.NoError(t, os.WriteFile(path, []byte("this is not a pdf"), 0644))

	_, err := New().ExtractPages(path)
	require.Error(t, err)
	assert.True(t, errdefs.IsType(err, errdefs.ErrTypeExtraction))
}

func TestExtractPagesTruncatedPDF(t *testing.T) {
	// A valid header with a garbage body exercises the panic guard.
	path := filepath.Join(t.TempDir(), "trunc.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.7\ngarbage"), 0644))

	_, err := New().ExtractPages(path)
	require.Error(t, err)
	assert.True(t, errdefs.IsType(err, errdefs.ErrTypeExtraction))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "a b c", normalize("  a\n\tb   c  "))
	assert.Equal(t, "", normalize("   \n\t "))
}
