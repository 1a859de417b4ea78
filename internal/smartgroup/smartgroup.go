// Package smartgroup evaluates saved and predefined paper filters. A group
// is a list of criteria combined with an "and"/"or" match mode; each
// criterion is one predicate over a paper's fields.
package smartgroup

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/paperdex/paperdex/internal/models"
)

const (
	MatchAnd = "and"
	MatchOr  = "or"
)

// Criterion kinds. The JSON encoding is a tagged union:
// {"type": "byYear", "value": 2023}.
const (
	ByYear           = "byYear"
	ByYearRange      = "byYearRange"
	ByAuthor         = "byAuthor"
	ByKeyword        = "byKeyword"
	ByTag            = "byTag"
	ByReadStatus     = "byReadStatus"
	ByImportance     = "byImportance"
	ByResearchType   = "byResearchType"
	RecentlyAdded    = "recentlyAdded"
	RecentlyAnalyzed = "recentlyAnalyzed"
	ByPublisher      = "byPublisher"
	BySubject        = "bySubject"
	NoPdf            = "noPdf"
	HasPdf           = "hasPdf"
	Unread           = "unread"
	Favorites        = "favorites"
)

// Criterion is one predicate of the smart-group language.
type Criterion struct {
	Type string

	// Populated depending on Type.
	Year         int
	YearStart    int
	YearEnd      int
	Text         string
	Flag         bool
	Importance   int
	Qualitative  bool
	Quantitative bool
	Days         int
}

type criterionJSON struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value,omitempty"`
}

func (c Criterion) MarshalJSON() ([]byte, error) {
	var value any
	switch c.Type {
	case ByYear:
		value = c.Year
	case ByYearRange:
		value = map[string]int{"start": c.YearStart, "end": c.YearEnd}
	case ByAuthor, ByKeyword, ByTag, ByPublisher, BySubject:
		value = c.Text
	case ByReadStatus:
		value = c.Flag
	case ByImportance:
		value = c.Importance
	case ByResearchType:
		value = map[string]bool{"qualitative": c.Qualitative, "quantitative": c.Quantitative}
	case RecentlyAdded, RecentlyAnalyzed:
		value = c.Days
	case NoPdf, HasPdf, Unread, Favorites:
		return json.Marshal(criterionJSON{Type: c.Type})
	default:
		return nil, fmt.Errorf("unknown criterion type: %s", c.Type)
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return json.Marshal(criterionJSON{Type: c.Type, Value: raw})
}

func (c *Criterion) UnmarshalJSON(data []byte) error {
	var cj criterionJSON
	if err := json.Unmarshal(data, &cj); err != nil {
		return err
	}

	c.Type = cj.Type
	switch cj.Type {
	case ByYear:
		return json.Unmarshal(cj.Value, &c.Year)
	case ByYearRange:
		var v struct {
			Start int `json:"start"`
			End   int `json:"end"`
		}
		if err := json.Unmarshal(cj.Value, &v); err != nil {
			return err
		}
		c.YearStart, c.YearEnd = v.Start, v.End
	case ByAuthor, ByKeyword, ByTag, ByPublisher, BySubject:
		return json.Unmarshal(cj.Value, &c.Text)
	case ByReadStatus:
		return json.Unmarshal(cj.Value, &c.Flag)
	case ByImportance:
		return json.Unmarshal(cj.Value, &c.Importance)
	case ByResearchType:
		var v struct {
			Qualitative  bool `json:"qualitative"`
			Quantitative bool `json:"quantitative"`
		}
		if err := json.Unmarshal(cj.Value, &v); err != nil {
			return err
		}
		c.Qualitative, c.Quantitative = v.Qualitative, v.Quantitative
	case RecentlyAdded, RecentlyAnalyzed:
		return json.Unmarshal(cj.Value, &c.Days)
	case NoPdf, HasPdf, Unread, Favorites:
		// no payload
	default:
		return fmt.Errorf("unknown criterion type: %s", cj.Type)
	}
	return nil
}

// SmartGroup is a named criteria set with display metadata. Predefined
// groups are synthesized per call and never persisted.
type SmartGroup struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Criteria  []Criterion `json:"criteria"`
	MatchMode string      `json:"matchMode"`
	Icon      string      `json:"icon,omitempty"`
	Color     string      `json:"color,omitempty"`
	CreatedAt string      `json:"createdAt"`
}

// Evaluate filters papers by the criteria. Mode "or" passes a paper when
// any criterion holds; anything else means "and". An empty criteria list
// passes everything.
func Evaluate(papers []models.Paper, criteria []Criterion, mode string) []models.Paper {
	return evaluateAt(papers, criteria, mode, time.Now().UTC())
}

func evaluateAt(papers []models.Paper, criteria []Criterion, mode string, now time.Time) []models.Paper {
	if len(criteria) == 0 {
		return papers
	}

	var filtered []models.Paper
	for _, paper := range papers {
		if matchesAll(paper, criteria, mode, now) {
			filtered = append(filtered, paper)
		}
	}
	return filtered
}

func matchesAll(paper models.Paper, criteria []Criterion, mode string, now time.Time) bool {
	if mode == MatchOr {
		for _, c := range criteria {
			if Matches(paper, c, now) {
				return true
			}
		}
		return false
	}

	for _, c := range criteria {
		if !Matches(paper, c, now) {
			return false
		}
	}
	return true
}

// Matches evaluates a single criterion against a paper. Recency windows
// compare stored timestamps to now; a stored value that does not parse
// makes the criterion false, never an error.
func Matches(paper models.Paper, c Criterion, now time.Time) bool {
	switch c.Type {
	case ByYear:
		return paper.Year == c.Year
	case ByYearRange:
		return paper.Year >= c.YearStart && paper.Year <= c.YearEnd
	case ByAuthor:
		return containsFold(paper.Author, c.Text)
	case ByKeyword:
		return containsFold(paper.Keywords, c.Text)
	case ByTag:
		for _, tag := range paper.Tags {
			if strings.EqualFold(tag, c.Text) {
				return true
			}
		}
		return false
	case ByReadStatus:
		return paper.IsRead == c.Flag
	case ByImportance:
		return paper.Importance == c.Importance
	case ByResearchType:
		return paper.IsQualitative == c.Qualitative && paper.IsQuantitative == c.Quantitative
	case RecentlyAdded:
		return withinDays(paper.CreatedAt, c.Days, now)
	case RecentlyAnalyzed:
		return withinDays(paper.LastAnalyzedAt, c.Days, now)
	case ByPublisher:
		return containsFold(paper.Publisher, c.Text)
	case BySubject:
		return containsFold(paper.Subject, c.Text)
	case NoPdf:
		return paper.PDFPath == ""
	case HasPdf:
		return paper.PDFPath != ""
	case Unread:
		return !paper.IsRead
	case Favorites:
		return paper.Importance >= 4
	}
	return false
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// withinDays counts whole elapsed days, so a paper 7.5 days old still
// falls inside a 7-day window.
func withinDays(stored string, days int, now time.Time) bool {
	if stored == "" {
		return false
	}
	t, err := time.Parse(models.TimeFormat, stored)
	if err != nil {
		return false
	}
	elapsed := int(now.Sub(t).Hours() / 24)
	return elapsed <= days
}

// DecodeCriteria parses a stored criteria JSON array. Malformed data
// decodes to an empty list so an old group stays usable after a format
// change instead of erroring forever.
func DecodeCriteria(raw string) []Criterion {
	var criteria []Criterion
	if err := json.Unmarshal([]byte(raw), &criteria); err != nil {
		return nil
	}
	return criteria
}

func EncodeCriteria(criteria []Criterion) (string, error) {
	if criteria == nil {
		criteria = []Criterion{}
	}
	raw, err := json.Marshal(criteria)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// Predefined returns the built-in groups, regenerated from the current
// date so recency windows and "this year" stay fresh.
func Predefined() []SmartGroup {
	return predefinedAt(time.Now().UTC())
}

func predefinedAt(now time.Time) []SmartGroup {
	created := now.Format(models.TimeFormat)
	year := now.Year()

	return []SmartGroup{
		{
			ID:        "unread",
			Name:      "Unread Papers",
			Criteria:  []Criterion{{Type: Unread}},
			MatchMode: MatchAnd,
			Icon:      "book-open",
			Color:     "#3b82f6",
			CreatedAt: created,
		},
		{
			ID:        "favorites",
			Name:      "Favorites",
			Criteria:  []Criterion{{Type: Favorites}},
			MatchMode: MatchAnd,
			Icon:      "star",
			Color:     "#eab308",
			CreatedAt: created,
		},
		{
			ID:        "recent-week",
			Name:      "Added This Week",
			Criteria:  []Criterion{{Type: RecentlyAdded, Days: 7}},
			MatchMode: MatchAnd,
			Icon:      "clock",
			Color:     "#22c55e",
			CreatedAt: created,
		},
		{
			ID:        "recent-month",
			Name:      "Added This Month",
			Criteria:  []Criterion{{Type: RecentlyAdded, Days: 30}},
			MatchMode: MatchAnd,
			Icon:      "calendar",
			Color:     "#06b6d4",
			CreatedAt: created,
		},
		{
			ID:        "this-year",
			Name:      fmt.Sprintf("Published in %d", year),
			Criteria:  []Criterion{{Type: ByYear, Year: year}},
			MatchMode: MatchAnd,
			Icon:      "calendar-days",
			Color:     "#8b5cf6",
			CreatedAt: created,
		},
		{
			ID:        "no-pdf",
			Name:      "Missing PDFs",
			Criteria:  []Criterion{{Type: NoPdf}},
			MatchMode: MatchAnd,
			Icon:      "file-x",
			Color:     "#ef4444",
			CreatedAt: created,
		},
		{
			ID:        "qualitative",
			Name:      "Qualitative Research",
			Criteria:  []Criterion{{Type: ByResearchType, Qualitative: true}},
			MatchMode: MatchAnd,
			Icon:      "message-square",
			Color:     "#f97316",
			CreatedAt: created,
		},
		{
			ID:        "quantitative",
			Name:      "Quantitative Research",
			Criteria:  []Criterion{{Type: ByResearchType, Quantitative: true}},
			MatchMode: MatchAnd,
			Icon:      "bar-chart",
			Color:     "#14b8a6",
			CreatedAt: created,
		},
		{
			ID:        "mixed-methods",
			Name:      "Mixed Methods",
			Criteria:  []Criterion{{Type: ByResearchType, Qualitative: true, Quantitative: true}},
			MatchMode: MatchAnd,
			Icon:      "git-merge",
			Color:     "#ec4899",
			CreatedAt: created,
		},
	}
}
