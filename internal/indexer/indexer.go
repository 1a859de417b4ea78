// Package indexer drives full-text indexing: extract a paper's PDF into
// per-page text and store it where the search index picks it up.
package indexer

import (
	"sync"

	"github.com/paperdex/paperdex/internal/errdefs"
	"github.com/paperdex/paperdex/internal/events"
	"github.com/paperdex/paperdex/internal/extractor"
	"github.com/paperdex/paperdex/internal/log"
	"github.com/paperdex/paperdex/internal/models"
	"github.com/paperdex/paperdex/internal/store"
)

const noPDFMessage = "No PDF file attached"

// extractWorkers bounds concurrent PDF parsing. Page writes serialize on
// the store's single connection regardless.
const extractWorkers = 4

type Indexer struct {
	store     *store.Store
	extractor extractor.Extractor
	bus       *events.Bus

	mu      sync.Mutex
	running bool
}

func New(s *store.Store, ex extractor.Extractor, bus *events.Bus) *Indexer {
	return &Indexer{store: s, extractor: ex, bus: bus}
}

// IndexPaper extracts and stores one paper's pages. A missing or
// unparsable PDF reports through the status Error field; only an unknown
// paper id or a storage failure returns an error.
func (i *Indexer) IndexPaper(paperID string) (models.IndexingStatus, error) {
	paper, err := i.store.GetPaper(paperID)
	if err != nil {
		return models.IndexingStatus{}, err
	}
	return i.indexOne(paper.ID, paper.PDFPath)
}

func (i *Indexer) indexOne(paperID, pdfPath string) (models.IndexingStatus, error) {
	status := models.IndexingStatus{PaperID: paperID}

	if pdfPath == "" {
		status.Error = noPDFMessage
		return status, nil
	}

	pages, err := i.extractor.ExtractPages(pdfPath)
	if err != nil {
		log.Warnf("extraction failed for paper %s: %v", paperID, err)
		status.Error = err.Error()
		return status, nil
	}
	status.TotalPages = len(pages)

	if _, err := i.store.ReplacePages(paperID, pages); err != nil {
		return models.IndexingStatus{}, err
	}
	if err := i.store.MarkIndexed(paperID, models.Now()); err != nil {
		return models.IndexingStatus{}, err
	}

	status.IndexedPages = len(pages)
	status.IsComplete = true

	log.Debugf("indexed paper %s (%d pages)", paperID, status.IndexedPages)
	if i.bus != nil {
		i.bus.Emit(events.PaperIndexed, status)
	}
	return status, nil
}

// IndexAll indexes every paper with an attached PDF and no index yet.
// Per-paper failures land in that paper's status; the batch keeps going.
// Only one batch runs at a time.
func (i *Indexer) IndexAll() ([]models.IndexingStatus, error) {
	i.mu.Lock()
	if i.running {
		i.mu.Unlock()
		return nil, errdefs.NewCustomError(errdefs.ErrTypeValidation, "indexing already in progress", nil)
	}
	i.running = true
	i.mu.Unlock()
	defer func() {
		i.mu.Lock()
		i.running = false
		i.mu.Unlock()
	}()

	pending, err := i.store.UnindexedPapers()
	if err != nil {
		return nil, err
	}
	if len(pending) == 0 {
		return []models.IndexingStatus{}, nil
	}
	log.Infof("indexing %d papers", len(pending))

	statuses := make([]models.IndexingStatus, len(pending))
	jobs := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < extractWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				p := pending[idx]
				status, err := i.indexOne(p.ID, p.PDFPath)
				if err != nil {
					status = models.IndexingStatus{PaperID: p.ID, Error: err.Error()}
				}
				statuses[idx] = status
			}
		}()
	}
	for idx := range pending {
		jobs <- idx
	}
	close(jobs)
	wg.Wait()

	var done int
	for _, st := range statuses {
		if st.IsComplete {
			done++
		}
	}
	log.Infof("indexing finished: %d/%d complete", done, len(statuses))
	return statuses, nil
}

// Status reports indexing progress for one paper from stored state.
func (i *Indexer) Status(paperID string) (models.IndexingStatus, error) {
	paper, err := i.store.GetPaper(paperID)
	if err != nil {
		return models.IndexingStatus{}, err
	}

	status := models.IndexingStatus{PaperID: paper.ID, IsComplete: paper.IsIndexed}
	if paper.PDFPath == "" {
		status.Error = noPDFMessage
		return status, nil
	}

	count, err := i.store.PageCount(paper.ID)
	if err != nil {
		return models.IndexingStatus{}, err
	}
	status.TotalPages = count
	status.IndexedPages = count
	return status, nil
}
