// Package search turns raw user queries into safe FTS5 match expressions
// and runs them against the page index.
package search

import (
	"strings"
	"unicode"

	"github.com/paperdex/paperdex/internal/log"
	"github.com/paperdex/paperdex/internal/models"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// PageSearcher is the slice of the store the engine needs.
type PageSearcher interface {
	SearchPages(match string, folderID *string, limit, offset int) ([]models.SearchResult, int, error)
}

type Engine struct {
	pages PageSearcher
}

func NewEngine(pages PageSearcher) *Engine {
	return &Engine{pages: pages}
}

// Search runs a full-text query. Queries that sanitize down to nothing
// return an empty response without touching the index.
func (e *Engine) Search(q models.SearchQuery) (models.SearchResponse, error) {
	match := Sanitize(q.Query)
	if match == "" {
		return models.SearchResponse{Results: []models.SearchResult{}}, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	log.Debugf("fts query %q (limit=%d offset=%d)", match, limit, offset)
	results, total, err := e.pages.SearchPages(match, q.FolderID, limit, offset)
	if err != nil {
		return models.SearchResponse{}, err
	}
	if results == nil {
		results = []models.SearchResult{}
	}
	return models.SearchResponse{Total: total, Results: results}, nil
}

// Sanitize converts free-form input into an FTS5 match expression. Only
// letters, digits, whitespace, hyphens and underscores survive; every other
// rune is removed, so "foo.bar" collapses to the single token foobar. Each
// remaining token is double-quoted so FTS5 operators like NEAR or * in user
// input stay inert. Tokens combine with the implicit AND.
func Sanitize(query string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' {
			return r
		}
		if unicode.IsSpace(r) {
			return r
		}
		return -1
	}, query)

	fields := strings.Fields(cleaned)
	if len(fields) == 0 {
		return ""
	}

	quoted := make([]string, 0, len(fields))
	for _, f := range fields {
		quoted = append(quoted, `"`+f+`"`)
	}
	return strings.Join(quoted, " ")
}
