package store

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/paperdex/paperdex/internal/models"
	"gorm.io/gorm"
)

// PutPage inserts one page of extracted text. It never upserts: page
// numbering is not stable across re-extractions, so callers clear the
// paper's pages first and insert a fresh set.
func (s *Store) PutPage(paperID string, pageNumber int, text string) (models.PdfPage, error) {
	page := models.PdfPage{
		ID:          uuid.NewString(),
		PaperID:     paperID,
		PageNumber:  pageNumber,
		TextContent: text,
		CreatedAt:   models.Now(),
	}

	if err := s.db.Create(&page).Error; err != nil {
		return models.PdfPage{}, storageErr("insert pdf page", err)
	}
	return page, nil
}

// ClearPages deletes every page for a paper. The FTS delete triggers fire
// per row, so the index drops the old content in the same transaction.
func (s *Store) ClearPages(paperID string) error {
	if err := s.db.Where("paper_id = ?", paperID).Delete(&models.PdfPage{}).Error; err != nil {
		return storageErr("clear pdf pages", err)
	}
	return nil
}

// ReplacePages clears a paper's pages and inserts the new set in one
// transaction, so a failure partway leaves neither half applied.
func (s *Store) ReplacePages(paperID string, texts []string) ([]models.PdfPage, error) {
	now := models.Now()
	pages := make([]models.PdfPage, 0, len(texts))
	for i, text := range texts {
		pages = append(pages, models.PdfPage{
			ID:          uuid.NewString(),
			PaperID:     paperID,
			PageNumber:  i + 1,
			TextContent: text,
			CreatedAt:   now,
		})
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("paper_id = ?", paperID).Delete(&models.PdfPage{}).Error; err != nil {
			return err
		}
		if len(pages) == 0 {
			return nil
		}
		return tx.Create(&pages).Error
	})
	if err != nil {
		return nil, storageErr("replace pdf pages", err)
	}
	return pages, nil
}

// PageCount returns the number of stored pages for a paper.
func (s *Store) PageCount(paperID string) (int, error) {
	var count int64
	if err := s.db.Model(&models.PdfPage{}).Where("paper_id = ?", paperID).Count(&count).Error; err != nil {
		return 0, storageErr("count pdf pages", err)
	}
	return int(count), nil
}

// SearchPages runs an FTS5 MATCH over page text, joined back to papers for
// display fields and the optional folder scope. Results order by bm25 rank
// ascending (lower is better); total comes from a separate count over the
// same predicate so pagination is exact.
func (s *Store) SearchPages(match string, folderID *string, limit, offset int) ([]models.SearchResult, int, error) {
	sel := fmt.Sprintf(`
		SELECT
			pp.paper_id,
			p.title,
			p.author,
			pp.page_number,
			snippet(pdf_pages_fts, 0, '<mark>', '</mark>', '...', %d) AS snippet,
			bm25(pdf_pages_fts) AS rank
		FROM pdf_pages_fts
		JOIN pdf_pages pp ON pdf_pages_fts.rowid = pp.rowid
		JOIN papers p ON pp.paper_id = p.id
		WHERE pdf_pages_fts MATCH ?`, snippetTokens)
	count := `
		SELECT COUNT(*)
		FROM pdf_pages_fts
		JOIN pdf_pages pp ON pdf_pages_fts.rowid = pp.rowid
		JOIN papers p ON pp.paper_id = p.id
		WHERE pdf_pages_fts MATCH ?`

	selArgs := []any{match}
	countArgs := []any{match}
	if folderID != nil {
		sel += " AND p.folder_id = ?"
		count += " AND p.folder_id = ?"
		selArgs = append(selArgs, *folderID)
		countArgs = append(countArgs, *folderID)
	}

	sel += " ORDER BY rank LIMIT ? OFFSET ?"
	selArgs = append(selArgs, limit, offset)

	var results []models.SearchResult
	rows, err := s.db.Raw(sel, selArgs...).Rows()
	if err != nil {
		return nil, 0, storageErr("fts query", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r models.SearchResult
		if err := rows.Scan(&r.PaperID, &r.PaperTitle, &r.PaperAuthor, &r.PageNumber, &r.Snippet, &r.Rank); err != nil {
			return nil, 0, storageErr("fts scan", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, storageErr("fts query", err)
	}

	var total int
	if err := s.db.Raw(count, countArgs...).Scan(&total).Error; err != nil {
		return nil, 0, storageErr("fts count", err)
	}

	return results, total, nil
}

// snippetTokens bounds highlighted excerpts, matching FTS5's snippet()
// token budget.
const snippetTokens = 32
