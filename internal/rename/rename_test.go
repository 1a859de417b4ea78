package rename

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/paperdex/paperdex/internal/errdefs"
	"github.com/paperdex/paperdex/internal/models"
	"github.com/paperdex/paperdex/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilename(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name  string
		paper models.Paper
		cfg   Config
		want  string
	}{
		{
			"full metadata",
			models.Paper{Author: "Vaswani, Ashish", Year: 2017, Title: "Attention Is All You Need"},
			cfg,
			"Vaswani_2017_Attention_Is_All_You_Need.pdf",
		},
		{
			"missing author and year",
			models.Paper{Title: "Untitled Draft"},
			cfg,
			"Unknown_0000_Untitled_Draft.pdf",
		},
		{
			"first author from and-list",
			models.Paper{Author: "Smith and Jones", Year: 2020, Title: "Joint Work"},
			cfg,
			"Smith_2020_Joint_Work.pdf",
		},
		{
			"lowercase option",
			models.Paper{Author: "Knuth", Year: 1974, Title: "Literate Programming"},
			Config{Pattern: "{author}_{year}_{title}", MaxTitleLength: 50, SpaceReplacement: "_", Lowercase: true},
			"knuth_1974_literate_programming.pdf",
		},
		{
			"illegal characters replaced",
			models.Paper{Author: "O'Brien", Year: 2021, Title: "What? A Study: Part 1"},
			cfg,
			"O_Brien_2021_What__A_Study__Part_1.pdf",
		},
		{
			"keywords and publisher placeholders",
			models.Paper{Author: "Lee", Year: 2019, Title: "T", Keywords: "graphs, trees", Publisher: "ACM"},
			Config{Pattern: "{author}_{keywords}_{publisher}", MaxTitleLength: 50, SpaceReplacement: "_"},
			"Lee_graphs_ACM.pdf",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Filename(tt.paper, tt.cfg))
		})
	}
}

func TestTruncateTitleWordBoundary(t *testing.T) {
	// Cut lands mid-word; the last space past the halfway point wins.
	got := truncateTitle("one two three four five six seven eight nine ten eleven", 30)
	assert.Equal(t, "one two three four five six", got)

	// No space past the midpoint keeps the hard cut.
	got = truncateTitle("supercalifragilisticexpialidocious extra", 20)
	assert.Equal(t, "supercalifragilistic", got)

	assert.Equal(t, "short", truncateTitle("short", 50))
}

func TestSanitizePart(t *testing.T) {
	assert.Equal(t, "a_b", sanitizePart(" a b ", "_"))
	assert.Equal(t, "a-b.c", sanitizePart("a-b.c", "_"))
	assert.Equal(t, "x_y", sanitizePart("x/y", "_"))
	assert.Equal(t, "", sanitizePart("???", "_"))
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "library.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPreviewDoesNotTouchDisk(t *testing.T) {
	s := newTestStore(t)
	dir := t.TempDir()
	oldPath := filepath.Join(dir, "download.pdf")
	require.NoError(t, os.WriteFile(oldPath, []byte("%PDF-1.7"), 0644))

	paper, err := s.CreatePaper(store.CreatePaperInput{
		Title: "Sample", Author: "Doe", Year: 2024,
		PDFPath: oldPath, PDFFilename: "download.pdf",
	})
	require.NoError(t, err)

	r := New(s, nil)
	res, err := r.Preview(paper.ID, DefaultConfig())
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Contains(t, res.NewFilename, "Doe_2024_Sample.pdf")
	assert.FileExists(t, oldPath)
	assert.NoFileExists(t, res.NewPath)

	// record unchanged
	got, err := s.GetPaper(paper.ID)
	require.NoError(t, err)
	assert.Equal(t, oldPath, got.PDFPath)
}

func TestApplyRenamesFileAndRecord(t *testing.T) {
	s := newTestStore(t)
	dir := t.TempDir()
	oldPath := filepath.Join(dir, "messy name (1).pdf")
	require.NoError(t, os.WriteFile(oldPath, []byte("%PDF-1.7"), 0644))

	paper, err := s.CreatePaper(store.CreatePaperInput{
		Title: "Clean Title", Author: "Curie", Year: 1903,
		PDFPath: oldPath, PDFFilename: "messy name (1).pdf",
	})
	require.NoError(t, err)

	r := New(s, nil)
	res, err := r.Apply(paper.ID, DefaultConfig())
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.NoFileExists(t, oldPath)
	assert.FileExists(t, res.NewPath)

	got, err := s.GetPaper(paper.ID)
	require.NoError(t, err)
	assert.Equal(t, res.NewPath, got.PDFPath)
	assert.Equal(t, res.NewFilename, got.PDFFilename)
}

func TestApplyErrors(t *testing.T) {
	s := newTestStore(t)
	r := New(s, nil)

	_, err := r.Apply("missing", DefaultConfig())
	assert.True(t, errdefs.IsType(err, errdefs.ErrTypeNotFound))

	noPDF, err := s.CreatePaper(store.CreatePaperInput{Title: "No PDF"})
	require.NoError(t, err)
	_, err = r.Apply(noPDF.ID, DefaultConfig())
	assert.True(t, errdefs.IsType(err, errdefs.ErrTypeValidation))

	gone, err := s.CreatePaper(store.CreatePaperInput{Title: "Gone", PDFPath: "/nowhere/gone.pdf"})
	require.NoError(t, err)
	_, err = r.Apply(gone.ID, DefaultConfig())
	assert.True(t, errdefs.IsType(err, errdefs.ErrTypeNotFound))
}

func TestBatchCollectsFailures(t *testing.T) {
	s := newTestStore(t)
	dir := t.TempDir()
	oldPath := filepath.Join(dir, "ok.pdf")
	require.NoError(t, os.WriteFile(oldPath, []byte("%PDF-1.7"), 0644))

	ok, err := s.CreatePaper(store.CreatePaperInput{
		Title: "Works", Author: "Ada", Year: 1843,
		PDFPath: oldPath, PDFFilename: "ok.pdf",
	})
	require.NoError(t, err)

	r := New(s, nil)
	results := r.Batch([]string{ok.ID, "missing"}, DefaultConfig())
	require.Len(t, results, 2)

	assert.True(t, results[0].Success)
	assert.False(t, results[1].Success)
	assert.NotEmpty(t, results[1].Error)
}
