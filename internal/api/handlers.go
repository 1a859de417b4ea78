package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"github.com/paperdex/paperdex/internal/errdefs"
	"github.com/paperdex/paperdex/internal/log"
	"github.com/paperdex/paperdex/internal/models"
	"github.com/paperdex/paperdex/internal/smartgroup"
	"github.com/paperdex/paperdex/internal/store"
)

type SearcherInterface interface {
	Search(q models.SearchQuery) (models.SearchResponse, error)
}

type IndexerInterface interface {
	IndexPaper(paperID string) (models.IndexingStatus, error)
	IndexAll() ([]models.IndexingStatus, error)
	Status(paperID string) (models.IndexingStatus, error)
}

type WatcherInterface interface {
	Start() error
	Stop() error
	IsRunning() bool
	ScanAll() (int, error)
}

// LibraryInterface is the slice of the store the HTTP API serves.
type LibraryInterface interface {
	CreatePaper(input store.CreatePaperInput) (models.Paper, error)
	GetPaper(id string) (models.Paper, error)
	ListPapers(folderID *string) ([]models.Paper, error)
	DeletePaper(id string) error
	CreateSmartGroup(name string, criteria []smartgroup.Criterion, matchMode, icon, color string) (smartgroup.SmartGroup, error)
	ListSmartGroups() ([]smartgroup.SmartGroup, error)
	GetSmartGroup(id string) (smartgroup.SmartGroup, error)
	DeleteSmartGroup(id string) error
}

type Server struct {
	Library  LibraryInterface
	Searcher SearcherInterface
	Indexer  IndexerInterface
	Watcher  WatcherInterface
}

// humaErr maps the internal error taxonomy onto HTTP statuses.
func humaErr(err error) error {
	switch {
	case errdefs.IsType(err, errdefs.ErrTypeNotFound):
		return huma.Error404NotFound(err.Error())
	case errdefs.IsType(err, errdefs.ErrTypeValidation):
		return huma.Error422UnprocessableEntity(err.Error())
	default:
		return huma.Error500InternalServerError("internal error", err)
	}
}

type SearchInput struct {
	Query    string `query:"q" minLength:"1" doc:"Full-text query" example:"neural networks"`
	Limit    int    `query:"limit" default:"20" minimum:"1" maximum:"100" doc:"Maximum results"`
	Offset   int    `query:"offset" default:"0" minimum:"0" doc:"Result offset for pagination"`
	FolderID string `query:"folder_id" doc:"Restrict to one folder"`
}

type SearchOutput struct {
	Body models.SearchResponse
}

type PaperInput struct {
	Body store.CreatePaperInput
}

type PaperOutput struct {
	Body models.Paper
}

type PapersOutput struct {
	Body []models.Paper
}

type PaperIDInput struct {
	ID string `path:"id" doc:"Paper id"`
}

type ListPapersInput struct {
	FolderID string `query:"folder_id" doc:"Restrict to one folder"`
}

type IndexStatusOutput struct {
	Body models.IndexingStatus
}

type IndexAllOutput struct {
	Body []models.IndexingStatus
}

type GroupInput struct {
	Body struct {
		Name      string                 `json:"name" minLength:"1"`
		Criteria  []smartgroup.Criterion `json:"criteria"`
		MatchMode string                 `json:"matchMode,omitempty" enum:"and,or,"`
		Icon      string                 `json:"icon,omitempty"`
		Color     string                 `json:"color,omitempty"`
	}
}

type GroupOutput struct {
	Body smartgroup.SmartGroup
}

type GroupsOutput struct {
	Body []smartgroup.SmartGroup
}

type GroupIDInput struct {
	ID string `path:"id" doc:"Group id"`
}

type GroupPapersInput struct {
	ID       string `path:"id" doc:"Group id, saved or predefined"`
	FolderID string `query:"folder_id" doc:"Restrict to one folder"`
}

type StatusOutput struct {
	Body struct {
		Status string `json:"status" example:"ok"`
	}
}

type WatchStatusOutput struct {
	Body struct {
		Status string `json:"status" enum:"running,stopped" example:"running"`
	}
}

type ScanOutput struct {
	Body struct {
		Imported int `json:"imported" doc:"Number of PDFs imported"`
	}
}

func statusBody(s string) StatusOutput {
	return StatusOutput{Body: struct {
		Status string `json:"status" example:"ok"`
	}{Status: s}}
}

func RegisterHandlers(srv *Server, api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "search",
		Summary:     "Full-text search",
		Description: "Search extracted PDF page text with snippets and relevance ranking",
		Method:      "GET",
		Path:        "/search",
		Tags:        []string{"Search"},
	}, func(ctx context.Context, input *SearchInput) (*SearchOutput, error) {
		q := models.SearchQuery{Query: input.Query, Limit: input.Limit, Offset: input.Offset}
		if input.FolderID != "" {
			q.FolderID = &input.FolderID
		}

		resp, err := srv.Searcher.Search(q)
		if err != nil {
			return nil, huma.Error400BadRequest("search failed", err)
		}
		return &SearchOutput{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "createPaper",
		Summary:     "Create a paper",
		Method:      "POST",
		Path:        "/papers",
		Tags:        []string{"Papers"},
	}, func(ctx context.Context, input *PaperInput) (*PaperOutput, error) {
		paper, err := srv.Library.CreatePaper(input.Body)
		if err != nil {
			return nil, humaErr(err)
		}
		return &PaperOutput{Body: paper}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "listPapers",
		Summary:     "List papers",
		Method:      "GET",
		Path:        "/papers",
		Tags:        []string{"Papers"},
	}, func(ctx context.Context, input *ListPapersInput) (*PapersOutput, error) {
		var folderID *string
		if input.FolderID != "" {
			folderID = &input.FolderID
		}
		papers, err := srv.Library.ListPapers(folderID)
		if err != nil {
			return nil, humaErr(err)
		}
		return &PapersOutput{Body: papers}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "getPaper",
		Summary:     "Get a paper",
		Method:      "GET",
		Path:        "/papers/{id}",
		Tags:        []string{"Papers"},
	}, func(ctx context.Context, input *PaperIDInput) (*PaperOutput, error) {
		paper, err := srv.Library.GetPaper(input.ID)
		if err != nil {
			return nil, humaErr(err)
		}
		return &PaperOutput{Body: paper}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "deletePaper",
		Summary:     "Delete a paper",
		Description: "Removes the paper, its extracted pages, and their index entries",
		Method:      "DELETE",
		Path:        "/papers/{id}",
		Tags:        []string{"Papers"},
	}, func(ctx context.Context, input *PaperIDInput) (*StatusOutput, error) {
		if err := srv.Library.DeletePaper(input.ID); err != nil {
			return nil, humaErr(err)
		}
		out := statusBody("deleted")
		return &out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "indexPaper",
		Summary:     "Index one paper",
		Description: "Extract the paper's PDF into per-page text and update the search index",
		Method:      "POST",
		Path:        "/index/{id}",
		Tags:        []string{"Index"},
	}, func(ctx context.Context, input *PaperIDInput) (*IndexStatusOutput, error) {
		status, err := srv.Indexer.IndexPaper(input.ID)
		if err != nil {
			return nil, humaErr(err)
		}
		return &IndexStatusOutput{Body: status}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "indexAll",
		Summary:     "Index all pending papers",
		Method:      "POST",
		Path:        "/index",
		Tags:        []string{"Index"},
	}, func(ctx context.Context, input *struct{}) (*IndexAllOutput, error) {
		statuses, err := srv.Indexer.IndexAll()
		if err != nil {
			return nil, humaErr(err)
		}
		return &IndexAllOutput{Body: statuses}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "indexStatus",
		Summary:     "Get indexing status for a paper",
		Method:      "GET",
		Path:        "/index/{id}",
		Tags:        []string{"Index"},
	}, func(ctx context.Context, input *PaperIDInput) (*IndexStatusOutput, error) {
		status, err := srv.Indexer.Status(input.ID)
		if err != nil {
			return nil, humaErr(err)
		}
		return &IndexStatusOutput{Body: status}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "createGroup",
		Summary:     "Create a smart group",
		Method:      "POST",
		Path:        "/groups",
		Tags:        []string{"Groups"},
	}, func(ctx context.Context, input *GroupInput) (*GroupOutput, error) {
		group, err := srv.Library.CreateSmartGroup(input.Body.Name, input.Body.Criteria, input.Body.MatchMode, input.Body.Icon, input.Body.Color)
		if err != nil {
			return nil, humaErr(err)
		}
		return &GroupOutput{Body: group}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "listGroups",
		Summary:     "List saved smart groups",
		Method:      "GET",
		Path:        "/groups",
		Tags:        []string{"Groups"},
	}, func(ctx context.Context, input *struct{}) (*GroupsOutput, error) {
		groups, err := srv.Library.ListSmartGroups()
		if err != nil {
			return nil, humaErr(err)
		}
		return &GroupsOutput{Body: groups}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "predefinedGroups",
		Summary:     "List predefined smart groups",
		Method:      "GET",
		Path:        "/groups/predefined",
		Tags:        []string{"Groups"},
	}, func(ctx context.Context, input *struct{}) (*GroupsOutput, error) {
		return &GroupsOutput{Body: smartgroup.Predefined()}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "deleteGroup",
		Summary:     "Delete a smart group",
		Method:      "DELETE",
		Path:        "/groups/{id}",
		Tags:        []string{"Groups"},
	}, func(ctx context.Context, input *GroupIDInput) (*StatusOutput, error) {
		if err := srv.Library.DeleteSmartGroup(input.ID); err != nil {
			return nil, humaErr(err)
		}
		out := statusBody("deleted")
		return &out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "groupPapers",
		Summary:     "List papers matching a smart group",
		Description: "Works for saved groups and predefined group ids like 'unread' or 'favorites'",
		Method:      "GET",
		Path:        "/groups/{id}/papers",
		Tags:        []string{"Groups"},
	}, func(ctx context.Context, input *GroupPapersInput) (*PapersOutput, error) {
		group, err := srv.Library.GetSmartGroup(input.ID)
		if err != nil {
			found := false
			for _, g := range smartgroup.Predefined() {
				if g.ID == input.ID {
					group = g
					found = true
					break
				}
			}
			if !found {
				return nil, humaErr(err)
			}
		}

		var folderID *string
		if input.FolderID != "" {
			folderID = &input.FolderID
		}
		papers, err := srv.Library.ListPapers(folderID)
		if err != nil {
			return nil, humaErr(err)
		}

		matched := smartgroup.Evaluate(papers, group.Criteria, group.MatchMode)
		if matched == nil {
			matched = []models.Paper{}
		}
		return &PapersOutput{Body: matched}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "watchStart",
		Summary:     "Start watch-folder monitoring",
		Method:      "POST",
		Path:        "/watch/start",
		Tags:        []string{"Watch"},
	}, func(ctx context.Context, input *struct{}) (*StatusOutput, error) {
		if srv.Watcher.IsRunning() {
			return nil, huma.Error409Conflict("watcher already running")
		}
		if err := srv.Watcher.Start(); err != nil {
			return nil, huma.Error500InternalServerError("failed to start watcher", err)
		}
		out := statusBody("watcher started")
		return &out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "watchStop",
		Summary:     "Stop watch-folder monitoring",
		Method:      "POST",
		Path:        "/watch/stop",
		Tags:        []string{"Watch"},
	}, func(ctx context.Context, input *struct{}) (*StatusOutput, error) {
		if !srv.Watcher.IsRunning() {
			return nil, huma.Error409Conflict("watcher not running")
		}
		if err := srv.Watcher.Stop(); err != nil {
			return nil, huma.Error500InternalServerError("failed to stop watcher", err)
		}
		out := statusBody("watcher stopped")
		return &out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "watchStatus",
		Summary:     "Get watcher status",
		Method:      "GET",
		Path:        "/watch/status",
		Tags:        []string{"Watch"},
	}, func(ctx context.Context, input *struct{}) (*WatchStatusOutput, error) {
		status := "stopped"
		if srv.Watcher.IsRunning() {
			status = "running"
		}
		return &WatchStatusOutput{Body: struct {
			Status string `json:"status" enum:"running,stopped" example:"running"`
		}{Status: status}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "watchScan",
		Summary:     "Scan watch folders",
		Description: "Import PDFs already present in active watch folders",
		Method:      "POST",
		Path:        "/watch/scan",
		Tags:        []string{"Watch"},
	}, func(ctx context.Context, input *struct{}) (*ScanOutput, error) {
		imported, err := srv.Watcher.ScanAll()
		if err != nil {
			log.Errorf("scan failed: %v", err)
			return nil, huma.Error500InternalServerError("scan failed", err)
		}
		return &ScanOutput{Body: struct {
			Imported int `json:"imported" doc:"Number of PDFs imported"`
		}{Imported: imported}}, nil
	})
}
