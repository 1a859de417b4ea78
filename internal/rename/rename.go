// Package rename derives tidy PDF filenames from paper metadata and applies
// them on disk.
package rename

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"github.com/paperdex/paperdex/internal/errdefs"
	"github.com/paperdex/paperdex/internal/events"
	"github.com/paperdex/paperdex/internal/log"
	"github.com/paperdex/paperdex/internal/models"
	"github.com/paperdex/paperdex/internal/store"
)

// Config controls filename generation. Pattern placeholders: {author},
// {year}, {title}, {keywords}, {publisher}.
type Config struct {
	Pattern          string `json:"pattern" toml:"pattern"`
	MaxTitleLength   int    `json:"maxTitleLength" toml:"max_title_length"`
	SpaceReplacement string `json:"spaceReplacement" toml:"space_replacement"`
	Lowercase        bool   `json:"lowercase" toml:"lowercase"`
}

func DefaultConfig() Config {
	return Config{
		Pattern:          "{author}_{year}_{title}",
		MaxTitleLength:   50,
		SpaceReplacement: "_",
	}
}

// Result reports one rename, attempted or previewed. Batch operations
// collect failures here instead of aborting.
type Result struct {
	PaperID     string `json:"paperId"`
	OldPath     string `json:"oldPath"`
	NewPath     string `json:"newPath"`
	OldFilename string `json:"oldFilename"`
	NewFilename string `json:"newFilename"`
	Success     bool   `json:"success"`
	Error       string `json:"error,omitempty"`
}

type Renamer struct {
	store *store.Store
	bus   *events.Bus
}

func New(s *store.Store, bus *events.Bus) *Renamer {
	return &Renamer{store: s, bus: bus}
}

// Filename builds the patterned name for a paper, always ending in .pdf.
func Filename(paper models.Paper, cfg Config) string {
	name := cfg.Pattern

	author := "Unknown"
	if paper.Author != "" {
		// First author only: cut at the usual separators.
		a := paper.Author
		a = strings.SplitN(a, ",", 2)[0]
		a = strings.SplitN(a, " and ", 2)[0]
		a = strings.SplitN(a, ";", 2)[0]
		author = strings.TrimSpace(a)
	}
	name = strings.ReplaceAll(name, "{author}", sanitizePart(author, cfg.SpaceReplacement))

	year := "0000"
	if paper.Year > 0 {
		year = strconv.Itoa(paper.Year)
	}
	name = strings.ReplaceAll(name, "{year}", year)

	name = strings.ReplaceAll(name, "{title}", sanitizePart(truncateTitle(paper.Title, cfg.MaxTitleLength), cfg.SpaceReplacement))

	keywords := ""
	if paper.Keywords != "" {
		keywords = strings.TrimSpace(strings.SplitN(paper.Keywords, ",", 2)[0])
	}
	name = strings.ReplaceAll(name, "{keywords}", sanitizePart(keywords, cfg.SpaceReplacement))
	name = strings.ReplaceAll(name, "{publisher}", sanitizePart(paper.Publisher, cfg.SpaceReplacement))

	if cfg.Lowercase {
		name = strings.ToLower(name)
	}
	if !strings.HasSuffix(strings.ToLower(name), ".pdf") {
		name += ".pdf"
	}
	return name
}

// truncateTitle cuts an overlong title, preferring the last word boundary
// as long as that keeps more than half the budget.
func truncateTitle(title string, max int) string {
	runes := []rune(title)
	if max <= 0 || len(runes) <= max {
		return title
	}
	cut := string(runes[:max])
	if idx := strings.LastIndex(cut, " "); idx > max/2 {
		cut = cut[:idx]
	}
	return cut
}

// sanitizePart keeps filename-safe runes; whitespace becomes the
// configured replacement, everything else an underscore. Leading and
// trailing underscores drop.
func sanitizePart(s, spaceReplacement string) string {
	space := '_'
	if spaceReplacement != "" {
		space = []rune(spaceReplacement)[0]
	}

	mapped := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' || r == '.':
			return r
		case unicode.IsSpace(r):
			return space
		default:
			return '_'
		}
	}, s)
	return strings.Trim(mapped, "_")
}

// finalFilename prefixes the patterned name with the first segment of the
// paper id so two papers with identical metadata cannot collide.
func finalFilename(paper models.Paper, cfg Config) string {
	idPrefix := strings.SplitN(paper.ID, "-", 2)[0]
	return idPrefix + "_" + Filename(paper, cfg)
}

// Preview computes the rename without touching the filesystem or the
// paper record.
func (r *Renamer) Preview(paperID string, cfg Config) (Result, error) {
	paper, err := r.store.GetPaper(paperID)
	if err != nil {
		return Result{}, err
	}
	if paper.PDFPath == "" {
		return Result{}, errdefs.NewCustomError(errdefs.ErrTypeValidation, "paper has no PDF attached", nil)
	}

	newName := finalFilename(paper, cfg)
	return Result{
		PaperID:     paper.ID,
		OldPath:     paper.PDFPath,
		NewPath:     filepath.Join(filepath.Dir(paper.PDFPath), newName),
		OldFilename: paper.PDFFilename,
		NewFilename: newName,
		Success:     true,
	}, nil
}

// Apply renames the PDF on disk and updates the paper record. Renaming to
// the current name is a no-op success.
func (r *Renamer) Apply(paperID string, cfg Config) (Result, error) {
	paper, err := r.store.GetPaper(paperID)
	if err != nil {
		return Result{}, err
	}
	if paper.PDFPath == "" {
		return Result{}, errdefs.NewCustomError(errdefs.ErrTypeValidation, "paper has no PDF attached", nil)
	}
	if _, err := os.Stat(paper.PDFPath); err != nil {
		return Result{}, errdefs.NewCustomError(errdefs.ErrTypeNotFound, "PDF file not found: "+paper.PDFPath, err)
	}

	newName := finalFilename(paper, cfg)
	newPath := filepath.Join(filepath.Dir(paper.PDFPath), newName)

	result := Result{
		PaperID:     paper.ID,
		OldPath:     paper.PDFPath,
		NewPath:     newPath,
		OldFilename: paper.PDFFilename,
		NewFilename: newName,
		Success:     true,
	}
	if newPath == paper.PDFPath {
		return result, nil
	}

	if _, err := os.Stat(newPath); err == nil {
		return Result{}, errdefs.NewCustomError(errdefs.ErrTypeValidation, "target file already exists: "+newPath, nil)
	}
	if err := os.Rename(paper.PDFPath, newPath); err != nil {
		return Result{}, errdefs.NewCustomError(errdefs.ErrTypeStorage, "rename pdf", err)
	}

	if _, err := r.store.UpdatePaper(paper.ID, store.UpdatePaperInput{
		PDFPath:     &newPath,
		PDFFilename: &newName,
	}); err != nil {
		return Result{}, err
	}

	log.Debugf("renamed %s to %s", paper.PDFFilename, newName)
	if r.bus != nil {
		r.bus.Emit(events.PaperRenamed, result)
	}
	return result, nil
}

// Batch applies the rename to each paper, recording failures per paper.
func (r *Renamer) Batch(paperIDs []string, cfg Config) []Result {
	results := make([]Result, 0, len(paperIDs))
	for _, id := range paperIDs {
		res, err := r.Apply(id, cfg)
		if err != nil {
			results = append(results, Result{PaperID: id, Error: err.Error()})
			continue
		}
		results = append(results, res)
	}
	return results
}
