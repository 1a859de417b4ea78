package store

import (
	"errors"

	"github.com/google/uuid"
	"github.com/paperdex/paperdex/internal/errdefs"
	"github.com/paperdex/paperdex/internal/models"
	"gorm.io/gorm"
)

type CreatePaperInput struct {
	FolderID    string `json:"folderId"`
	Title       string `json:"title"`
	Author      string `json:"author,omitempty"`
	Year        int    `json:"year,omitempty"`
	PDFPath     string `json:"pdfPath,omitempty"`
	PDFFilename string `json:"pdfFilename,omitempty"`
}

type UpdatePaperInput struct {
	FolderID       *string   `json:"folderId,omitempty"`
	Title          *string   `json:"title,omitempty"`
	Author         *string   `json:"author,omitempty"`
	Year           *int      `json:"year,omitempty"`
	Keywords       *string   `json:"keywords,omitempty"`
	Publisher      *string   `json:"publisher,omitempty"`
	Subject        *string   `json:"subject,omitempty"`
	PDFPath        *string   `json:"pdfPath,omitempty"`
	PDFFilename    *string   `json:"pdfFilename,omitempty"`
	UserNotes      *string   `json:"userNotes,omitempty"`
	Tags           *[]string `json:"tags,omitempty"`
	IsRead         *bool     `json:"isRead,omitempty"`
	Importance     *int      `json:"importance,omitempty"`
	IsQualitative  *bool     `json:"isQualitative,omitempty"`
	IsQuantitative *bool     `json:"isQuantitative,omitempty"`
	LastAnalyzedAt *string   `json:"lastAnalyzedAt,omitempty"`
}

func (s *Store) CreatePaper(input CreatePaperInput) (models.Paper, error) {
	if input.Title == "" {
		return models.Paper{}, errdefs.NewCustomError(errdefs.ErrTypeValidation, "paper title is required", nil)
	}

	now := models.Now()
	paper := models.Paper{
		ID:          uuid.NewString(),
		FolderID:    input.FolderID,
		Title:       input.Title,
		Author:      input.Author,
		Year:        input.Year,
		PDFPath:     input.PDFPath,
		PDFFilename: input.PDFFilename,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.db.Create(&paper).Error; err != nil {
		return models.Paper{}, storageErr("insert paper", err)
	}
	return paper, nil
}

func (s *Store) GetPaper(id string) (models.Paper, error) {
	var paper models.Paper
	err := s.db.First(&paper, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Paper{}, errdefs.NewCustomError(errdefs.ErrTypeNotFound, "paper not found: "+id, nil)
	}
	if err != nil {
		return models.Paper{}, storageErr("get paper", err)
	}
	return paper, nil
}

// ListPapers returns papers, optionally scoped to a folder, newest first.
func (s *Store) ListPapers(folderID *string) ([]models.Paper, error) {
	q := s.db.Model(&models.Paper{}).Order("created_at DESC")
	if folderID != nil {
		q = q.Where("folder_id = ?", *folderID)
	}

	var papers []models.Paper
	if err := q.Find(&papers).Error; err != nil {
		return nil, storageErr("list papers", err)
	}
	return papers, nil
}

func (s *Store) UpdatePaper(id string, input UpdatePaperInput) (models.Paper, error) {
	paper, err := s.GetPaper(id)
	if err != nil {
		return models.Paper{}, err
	}

	updates := map[string]any{"updated_at": models.Now()}
	set := func(col string, v any) { updates[col] = v }

	if input.FolderID != nil {
		set("folder_id", *input.FolderID)
	}
	if input.Title != nil {
		set("title", *input.Title)
	}
	if input.Author != nil {
		set("author", *input.Author)
	}
	if input.Year != nil {
		set("year", *input.Year)
	}
	if input.Keywords != nil {
		set("keywords", *input.Keywords)
	}
	if input.Publisher != nil {
		set("publisher", *input.Publisher)
	}
	if input.Subject != nil {
		set("subject", *input.Subject)
	}
	if input.PDFPath != nil {
		set("pdf_path", *input.PDFPath)
	}
	if input.PDFFilename != nil {
		set("pdf_filename", *input.PDFFilename)
	}
	if input.UserNotes != nil {
		set("user_notes", *input.UserNotes)
	}
	if input.Tags != nil {
		paper.Tags = *input.Tags
		set("tags", paper.Tags)
	}
	if input.IsRead != nil {
		set("is_read", *input.IsRead)
	}
	if input.Importance != nil {
		set("importance", *input.Importance)
	}
	if input.IsQualitative != nil {
		set("is_qualitative", *input.IsQualitative)
	}
	if input.IsQuantitative != nil {
		set("is_quantitative", *input.IsQuantitative)
	}
	if input.LastAnalyzedAt != nil {
		set("last_analyzed_at", *input.LastAnalyzedAt)
	}

	if err := s.db.Model(&models.Paper{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return models.Paper{}, storageErr("update paper", err)
	}
	return s.GetPaper(id)
}

// DeletePaper removes a paper and its pages. Page deletion goes through the
// normal delete path so the FTS triggers clean up the index entries.
func (s *Store) DeletePaper(id string) error {
	if _, err := s.GetPaper(id); err != nil {
		return err
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("paper_id = ?", id).Delete(&models.PdfPage{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Paper{}, "id = ?", id).Error
	})
	if err != nil {
		return storageErr("delete paper", err)
	}
	return nil
}

// MarkIndexed flips the paper's indexed flag and records when.
func (s *Store) MarkIndexed(id string, indexedAt string) error {
	err := s.db.Model(&models.Paper{}).Where("id = ?", id).Updates(map[string]any{
		"is_indexed": true,
		"indexed_at": indexedAt,
	}).Error
	if err != nil {
		return storageErr("mark indexed", err)
	}
	return nil
}

// UnindexedPaper identifies a paper awaiting indexing.
type UnindexedPaper struct {
	ID      string
	PDFPath string
}

// UnindexedPapers lists papers that have a PDF attached but no index yet.
func (s *Store) UnindexedPapers() ([]UnindexedPaper, error) {
	rows, err := s.db.Raw(
		"SELECT id, pdf_path FROM papers WHERE COALESCE(is_indexed, 0) = 0 AND pdf_path != ''",
	).Rows()
	if err != nil {
		return nil, storageErr("list unindexed papers", err)
	}
	defer rows.Close()

	var papers []UnindexedPaper
	for rows.Next() {
		var p UnindexedPaper
		if err := rows.Scan(&p.ID, &p.PDFPath); err != nil {
			return nil, storageErr("scan unindexed paper", err)
		}
		papers = append(papers, p)
	}
	return papers, rows.Err()
}

// IsIndexed reports whether a paper has been indexed. Unknown ids read as
// not indexed.
func (s *Store) IsIndexed(id string) (bool, error) {
	var indexed int
	err := s.db.Raw("SELECT COALESCE(is_indexed, 0) FROM papers WHERE id = ?", id).Scan(&indexed).Error
	if err != nil {
		return false, storageErr("read index status", err)
	}
	return indexed != 0, nil
}
