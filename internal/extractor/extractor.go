// Package extractor pulls per-page plain text out of PDF files.
package extractor

import (
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/paperdex/paperdex/internal/errdefs"
	"github.com/paperdex/paperdex/internal/log"
)

// Extractor reads PDF text. The interface exists so indexing can be tested
// without real PDF fixtures.
type Extractor interface {
	// ExtractPages returns one string per page, in page order. A page that
	// yields no text still occupies its slot as an empty string so page
	// numbers stay aligned with the document.
	ExtractPages(path string) ([]string, error)
}

type pdfExtractor struct{}

func New() Extractor {
	return pdfExtractor{}
}

func (pdfExtractor) ExtractPages(path string) (pages []string, err error) {
	info, statErr := os.Stat(path)
	if statErr != nil {
		return nil, errdefs.NewCustomError(errdefs.ErrTypeExtraction, "pdf file not accessible: "+path, statErr)
	}

	f, openErr := os.Open(path)
	if openErr != nil {
		return nil, errdefs.NewCustomError(errdefs.ErrTypeExtraction, "open pdf: "+path, openErr)
	}
	defer f.Close()

	// The parser panics on some malformed documents instead of returning an
	// error, so the whole parse runs under a recover.
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = errdefs.NewCustomError(errdefs.ErrTypeExtraction,
				fmt.Sprintf("pdf parse panic: %v", r), nil)
		}
	}()

	reader, err := pdf.NewReader(f, info.Size())
	if err != nil {
		return nil, errdefs.NewCustomError(errdefs.ErrTypeExtraction, "parse pdf: "+path, err)
	}

	total := reader.NumPage()
	pages = make([]string, 0, total)
	for i := 1; i <= total; i++ {
		pages = append(pages, extractPage(reader, i))
	}

	if len(pages) == 0 {
		// Zero-page documents still get one empty page so the paper records
		// as indexed rather than looping forever in the pending queue.
		pages = []string{""}
	}
	return pages, nil
}

// extractPage reads one page, swallowing per-page panics so a single bad
// page does not lose the rest of the document.
func extractPage(reader *pdf.Reader, num int) (text string) {
	defer func() {
		if r := recover(); r != nil {
			log.Debugf("page %d extraction panic: %v", num, r)
			text = ""
		}
	}()

	page := reader.Page(num)
	if page.V.IsNull() {
		return ""
	}

	var b strings.Builder
	for _, t := range page.Content().Text {
		b.WriteString(t.S)
	}
	return normalize(b.String())
}

// normalize collapses runs of whitespace to single spaces.
func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
