package models

import (
	"time"

	"gorm.io/datatypes"
)

// TimeFormat is the timestamp layout stored in the database. Smart-group
// recency criteria parse stored values with this exact layout.
const TimeFormat = "2006-01-02 15:04:05"

func Now() string {
	return time.Now().UTC().Format(TimeFormat)
}

type Topic struct {
	ID        string `gorm:"primaryKey" json:"id"`
	Name      string `gorm:"not null" json:"name"`
	SortOrder int    `gorm:"column:sort_order" json:"sortOrder"`
	CreatedAt string `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt string `gorm:"column:updated_at" json:"updatedAt"`
}

func (Topic) TableName() string { return "topics" }

type Folder struct {
	ID        string `gorm:"primaryKey" json:"id"`
	TopicID   string `gorm:"column:topic_id;index" json:"topicId"`
	Name      string `gorm:"not null" json:"name"`
	SortOrder int    `gorm:"column:sort_order" json:"sortOrder"`
	CreatedAt string `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt string `gorm:"column:updated_at" json:"updatedAt"`
}

func (Folder) TableName() string { return "folders" }

// Paper is a bibliographic record with an optional attached PDF.
type Paper struct {
	ID       string `gorm:"primaryKey" json:"id"`
	FolderID string `gorm:"column:folder_id;index" json:"folderId"`

	Title     string `json:"title"`
	Author    string `json:"author"`
	Year      int    `gorm:"index" json:"year"`
	Keywords  string `json:"keywords"`
	Publisher string `json:"publisher"`
	Subject   string `json:"subject"`

	IsQualitative  bool `gorm:"column:is_qualitative" json:"isQualitative"`
	IsQuantitative bool `gorm:"column:is_quantitative" json:"isQuantitative"`

	PDFPath     string `gorm:"column:pdf_path" json:"pdfPath"`
	PDFFilename string `gorm:"column:pdf_filename" json:"pdfFilename"`

	UserNotes  string                      `gorm:"column:user_notes" json:"userNotes"`
	Tags       datatypes.JSONSlice[string] `json:"tags"`
	IsRead     bool                        `gorm:"column:is_read" json:"isRead"`
	Importance int                         `json:"importance"`

	IsIndexed bool   `gorm:"column:is_indexed" json:"isIndexed"`
	IndexedAt string `gorm:"column:indexed_at" json:"indexedAt"`

	CreatedAt      string `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt      string `gorm:"column:updated_at" json:"updatedAt"`
	LastAnalyzedAt string `gorm:"column:last_analyzed_at" json:"lastAnalyzedAt"`
}

func (Paper) TableName() string { return "papers" }

// PdfPage is one unit of extracted text for a paper. At most one row per
// (paper_id, page_number); re-indexing clears then reinserts.
type PdfPage struct {
	ID          string `gorm:"primaryKey" json:"id"`
	PaperID     string `gorm:"column:paper_id;uniqueIndex:idx_pages_paper_page" json:"paperId"`
	PageNumber  int    `gorm:"column:page_number;uniqueIndex:idx_pages_paper_page" json:"pageNumber"`
	TextContent string `gorm:"column:text_content;type:text" json:"textContent"`
	CreatedAt   string `gorm:"column:created_at" json:"createdAt"`
}

func (PdfPage) TableName() string { return "pdf_pages" }

// SmartGroupRow is the persisted form of a smart group; criteria are stored
// as a JSON array.
type SmartGroupRow struct {
	ID        string `gorm:"primaryKey"`
	Name      string `gorm:"not null;index"`
	Criteria  string `gorm:"not null;default:'[]'"`
	MatchMode string `gorm:"column:match_mode;not null;default:'and'"`
	Icon      string
	Color     string
	CreatedAt string `gorm:"column:created_at"`
}

func (SmartGroupRow) TableName() string { return "smart_groups" }

// WatchFolder is a directory monitored for new PDFs. Files that appear
// there import into the target folder.
type WatchFolder struct {
	ID             string `gorm:"primaryKey" json:"id"`
	Path           string `gorm:"not null" json:"path"`
	TargetFolderID string `gorm:"column:target_folder_id;not null" json:"targetFolderId"`
	AutoRename     bool   `gorm:"column:auto_rename" json:"autoRename"`
	IsActive       bool   `gorm:"column:is_active;default:true" json:"isActive"`
	CreatedAt      string `gorm:"column:created_at" json:"createdAt"`
}

func (WatchFolder) TableName() string { return "watch_folders" }

// SearchResult is one ranked full-text hit. Rank is a cost-style value from
// bm25: lower means more relevant.
type SearchResult struct {
	PaperID     string  `json:"paperId"`
	PaperTitle  string  `json:"paperTitle"`
	PaperAuthor string  `json:"paperAuthor"`
	PageNumber  int     `json:"pageNumber"`
	Snippet     string  `json:"snippet"`
	Rank        float64 `json:"rank"`
}

type SearchQuery struct {
	Query    string  `json:"query"`
	Limit    int     `json:"limit,omitempty"`
	Offset   int     `json:"offset,omitempty"`
	FolderID *string `json:"folderId,omitempty"`
}

type SearchResponse struct {
	Total   int            `json:"total"`
	Results []SearchResult `json:"results"`
}

// IndexingStatus reports the outcome of indexing one paper. Error carries
// non-fatal per-paper failures so batch indexing can continue.
type IndexingStatus struct {
	PaperID      string `json:"paperId"`
	TotalPages   int    `json:"totalPages"`
	IndexedPages int    `json:"indexedPages"`
	IsComplete   bool   `json:"isComplete"`
	Error        string `json:"error,omitempty"`
}
