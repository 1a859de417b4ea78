package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net"

	"github.com/paperdex/paperdex/internal/events"
	"github.com/paperdex/paperdex/internal/log"
	"github.com/paperdex/paperdex/internal/models"
	"github.com/paperdex/paperdex/internal/rename"
	"github.com/paperdex/paperdex/internal/search"
	servermodels "github.com/paperdex/paperdex/internal/server/models"
	"github.com/paperdex/paperdex/internal/smartgroup"
	"github.com/paperdex/paperdex/internal/store"
)

type IndexerInterface interface {
	IndexPaper(paperID string) (models.IndexingStatus, error)
	IndexAll() ([]models.IndexingStatus, error)
	Status(paperID string) (models.IndexingStatus, error)
}

type WatcherInterface interface {
	Start() error
	Stop() error
	IsRunning() bool
	Scan(watchFolderID string) ([]string, error)
	ScanAll() (int, error)
}

type RenamerInterface interface {
	Preview(paperID string, cfg rename.Config) (rename.Result, error)
	Apply(paperID string, cfg rename.Config) (rename.Result, error)
	Batch(paperIDs []string, cfg rename.Config) []rename.Result
}

type Router struct {
	store     *store.Store
	engine    *search.Engine
	indexer   IndexerInterface
	watcher   WatcherInterface
	renamer   RenamerInterface
	renameCfg rename.Config
	bus       *events.Bus
}

func NewRouter(s *store.Store, engine *search.Engine, idx IndexerInterface, w WatcherInterface, rn RenamerInterface, renameCfg rename.Config, bus *events.Bus) *Router {
	return &Router{
		store:     s,
		engine:    engine,
		indexer:   idx,
		watcher:   w,
		renamer:   rn,
		renameCfg: renameCfg,
		bus:       bus,
	}
}

func (r *Router) RouteRequest(conn net.Conn, req servermodels.Request) {
	log.Debugf("API request: method=%s id=%d", req.Method, req.ID)

	switch req.Method {
	case "ping":
		servermodels.Respond(conn, req.ID, "pong")
	case "search.fulltext":
		r.handleSearch(conn, req)
	case "index.paper":
		r.handleIndexPaper(conn, req)
	case "index.all":
		r.handleIndexAll(conn, req)
	case "index.status":
		r.handleIndexStatus(conn, req)
	case "paper.create":
		r.handlePaperCreate(conn, req)
	case "paper.get":
		r.handlePaperGet(conn, req)
	case "paper.list":
		r.handlePaperList(conn, req)
	case "paper.update":
		r.handlePaperUpdate(conn, req)
	case "paper.delete":
		r.handlePaperDelete(conn, req)
	case "group.create":
		r.handleGroupCreate(conn, req)
	case "group.list":
		r.handleGroupList(conn, req)
	case "group.predefined":
		servermodels.Respond(conn, req.ID, smartgroup.Predefined())
	case "group.delete":
		r.handleGroupDelete(conn, req)
	case "group.papers":
		r.handleGroupPapers(conn, req)
	case "watch.start":
		r.handleWatchStart(conn, req)
	case "watch.stop":
		r.handleWatchStop(conn, req)
	case "watch.status":
		r.handleWatchStatus(conn, req)
	case "watch.scan":
		r.handleWatchScan(conn, req)
	case "watchfolder.add":
		r.handleWatchFolderAdd(conn, req)
	case "watchfolder.list":
		r.handleWatchFolderList(conn, req)
	case "watchfolder.remove":
		r.handleWatchFolderRemove(conn, req)
	case "watchfolder.toggle":
		r.handleWatchFolderToggle(conn, req)
	case "rename.preview":
		r.handleRenamePreview(conn, req)
	case "rename.apply":
		r.handleRenameApply(conn, req)
	case "rename.batch":
		r.handleRenameBatch(conn, req)
	case "events.subscribe":
		r.handleEventsSubscribe(conn, req)
	default:
		servermodels.RespondError(conn, req.ID, fmt.Sprintf("unknown method: %s", req.Method))
	}
}

// decodeParams round-trips the loosely typed params map into a concrete
// request struct.
func decodeParams(params map[string]any, dst any) error {
	raw, err := json.Marshal(params)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}

func stringParam(params map[string]any, key string) (string, bool) {
	v, ok := params[key].(string)
	return v, ok && v != ""
}

func optionalString(params map[string]any, key string) *string {
	if v, ok := params[key].(string); ok && v != "" {
		return &v
	}
	return nil
}

func (r *Router) handleSearch(conn net.Conn, req servermodels.Request) {
	query, ok := stringParam(req.Params, "query")
	if !ok {
		servermodels.RespondError(conn, req.ID, "query parameter required")
		return
	}

	sq := models.SearchQuery{Query: query, FolderID: optionalString(req.Params, "folderId")}
	if l, ok := req.Params["limit"].(float64); ok {
		sq.Limit = int(l)
	}
	if o, ok := req.Params["offset"].(float64); ok {
		sq.Offset = int(o)
	}

	resp, err := r.engine.Search(sq)
	if err != nil {
		servermodels.RespondError(conn, req.ID, fmt.Sprintf("search failed: %v", err))
		return
	}
	servermodels.Respond(conn, req.ID, resp)
}

func (r *Router) handleIndexPaper(conn net.Conn, req servermodels.Request) {
	paperID, ok := stringParam(req.Params, "paperId")
	if !ok {
		servermodels.RespondError(conn, req.ID, "paperId parameter required")
		return
	}

	status, err := r.indexer.IndexPaper(paperID)
	if err != nil {
		servermodels.RespondError(conn, req.ID, err.Error())
		return
	}
	servermodels.Respond(conn, req.ID, status)
}

func (r *Router) handleIndexAll(conn net.Conn, req servermodels.Request) {
	statuses, err := r.indexer.IndexAll()
	if err != nil {
		servermodels.RespondError(conn, req.ID, err.Error())
		return
	}
	servermodels.Respond(conn, req.ID, statuses)
}

func (r *Router) handleIndexStatus(conn net.Conn, req servermodels.Request) {
	paperID, ok := stringParam(req.Params, "paperId")
	if !ok {
		servermodels.RespondError(conn, req.ID, "paperId parameter required")
		return
	}

	status, err := r.indexer.Status(paperID)
	if err != nil {
		servermodels.RespondError(conn, req.ID, err.Error())
		return
	}
	servermodels.Respond(conn, req.ID, status)
}

func (r *Router) handlePaperCreate(conn net.Conn, req servermodels.Request) {
	var input store.CreatePaperInput
	if err := decodeParams(req.Params, &input); err != nil {
		servermodels.RespondError(conn, req.ID, "invalid params")
		return
	}

	paper, err := r.store.CreatePaper(input)
	if err != nil {
		servermodels.RespondError(conn, req.ID, err.Error())
		return
	}
	servermodels.Respond(conn, req.ID, paper)
}

func (r *Router) handlePaperGet(conn net.Conn, req servermodels.Request) {
	paperID, ok := stringParam(req.Params, "paperId")
	if !ok {
		servermodels.RespondError(conn, req.ID, "paperId parameter required")
		return
	}

	paper, err := r.store.GetPaper(paperID)
	if err != nil {
		servermodels.RespondError(conn, req.ID, err.Error())
		return
	}
	servermodels.Respond(conn, req.ID, paper)
}

func (r *Router) handlePaperList(conn net.Conn, req servermodels.Request) {
	papers, err := r.store.ListPapers(optionalString(req.Params, "folderId"))
	if err != nil {
		servermodels.RespondError(conn, req.ID, err.Error())
		return
	}
	servermodels.Respond(conn, req.ID, papers)
}

func (r *Router) handlePaperUpdate(conn net.Conn, req servermodels.Request) {
	paperID, ok := stringParam(req.Params, "paperId")
	if !ok {
		servermodels.RespondError(conn, req.ID, "paperId parameter required")
		return
	}

	var input store.UpdatePaperInput
	if err := decodeParams(req.Params, &input); err != nil {
		servermodels.RespondError(conn, req.ID, "invalid params")
		return
	}

	paper, err := r.store.UpdatePaper(paperID, input)
	if err != nil {
		servermodels.RespondError(conn, req.ID, err.Error())
		return
	}
	servermodels.Respond(conn, req.ID, paper)
}

func (r *Router) handlePaperDelete(conn net.Conn, req servermodels.Request) {
	paperID, ok := stringParam(req.Params, "paperId")
	if !ok {
		servermodels.RespondError(conn, req.ID, "paperId parameter required")
		return
	}

	if err := r.store.DeletePaper(paperID); err != nil {
		servermodels.RespondError(conn, req.ID, err.Error())
		return
	}
	servermodels.Respond(conn, req.ID, map[string]string{"status": "deleted"})
}

func (r *Router) handleGroupCreate(conn net.Conn, req servermodels.Request) {
	var input struct {
		Name      string                 `json:"name"`
		Criteria  []smartgroup.Criterion `json:"criteria"`
		MatchMode string                 `json:"matchMode"`
		Icon      string                 `json:"icon"`
		Color     string                 `json:"color"`
	}
	if err := decodeParams(req.Params, &input); err != nil {
		servermodels.RespondError(conn, req.ID, "invalid params: "+err.Error())
		return
	}

	group, err := r.store.CreateSmartGroup(input.Name, input.Criteria, input.MatchMode, input.Icon, input.Color)
	if err != nil {
		servermodels.RespondError(conn, req.ID, err.Error())
		return
	}
	servermodels.Respond(conn, req.ID, group)
}

func (r *Router) handleGroupList(conn net.Conn, req servermodels.Request) {
	groups, err := r.store.ListSmartGroups()
	if err != nil {
		servermodels.RespondError(conn, req.ID, err.Error())
		return
	}
	servermodels.Respond(conn, req.ID, groups)
}

func (r *Router) handleGroupDelete(conn net.Conn, req servermodels.Request) {
	groupID, ok := stringParam(req.Params, "groupId")
	if !ok {
		servermodels.RespondError(conn, req.ID, "groupId parameter required")
		return
	}

	if err := r.store.DeleteSmartGroup(groupID); err != nil {
		servermodels.RespondError(conn, req.ID, err.Error())
		return
	}
	servermodels.Respond(conn, req.ID, map[string]string{"status": "deleted"})
}

// handleGroupPapers filters the paper list through smart-group criteria,
// given either inline criteria or the ID of a saved or predefined group.
func (r *Router) handleGroupPapers(conn net.Conn, req servermodels.Request) {
	var group smartgroup.SmartGroup

	if _, hasCriteria := req.Params["criteria"]; hasCriteria {
		var input struct {
			Criteria  []smartgroup.Criterion `json:"criteria"`
			MatchMode string                 `json:"matchMode"`
		}
		if err := decodeParams(req.Params, &input); err != nil {
			servermodels.RespondError(conn, req.ID, "invalid criteria: "+err.Error())
			return
		}
		group = smartgroup.SmartGroup{Criteria: input.Criteria, MatchMode: input.MatchMode}
	} else {
		groupID, ok := stringParam(req.Params, "groupId")
		if !ok {
			servermodels.RespondError(conn, req.ID, "groupId or criteria parameter required")
			return
		}

		var err error
		group, err = r.store.GetSmartGroup(groupID)
		if err != nil {
			found := false
			for _, g := range smartgroup.Predefined() {
				if g.ID == groupID {
					group = g
					found = true
					break
				}
			}
			if !found {
				servermodels.RespondError(conn, req.ID, err.Error())
				return
			}
		}
	}

	papers, err := r.store.ListPapers(optionalString(req.Params, "folderId"))
	if err != nil {
		servermodels.RespondError(conn, req.ID, err.Error())
		return
	}

	matched := smartgroup.Evaluate(papers, group.Criteria, group.MatchMode)
	if matched == nil {
		matched = []models.Paper{}
	}
	servermodels.Respond(conn, req.ID, matched)
}

func (r *Router) handleWatchStart(conn net.Conn, req servermodels.Request) {
	if r.watcher.IsRunning() {
		servermodels.RespondError(conn, req.ID, "watcher already running")
		return
	}
	if err := r.watcher.Start(); err != nil {
		servermodels.RespondError(conn, req.ID, fmt.Sprintf("failed to start watcher: %v", err))
		return
	}
	servermodels.Respond(conn, req.ID, map[string]string{"status": "watcher started"})
}

func (r *Router) handleWatchStop(conn net.Conn, req servermodels.Request) {
	if !r.watcher.IsRunning() {
		servermodels.RespondError(conn, req.ID, "watcher not running")
		return
	}
	if err := r.watcher.Stop(); err != nil {
		servermodels.RespondError(conn, req.ID, fmt.Sprintf("failed to stop watcher: %v", err))
		return
	}
	servermodels.Respond(conn, req.ID, map[string]string{"status": "watcher stopped"})
}

func (r *Router) handleWatchStatus(conn net.Conn, req servermodels.Request) {
	status := "stopped"
	if r.watcher.IsRunning() {
		status = "running"
	}
	servermodels.Respond(conn, req.ID, map[string]string{"status": status})
}

func (r *Router) handleWatchScan(conn net.Conn, req servermodels.Request) {
	if id, ok := stringParam(req.Params, "watchFolderId"); ok {
		imported, err := r.watcher.Scan(id)
		if err != nil {
			servermodels.RespondError(conn, req.ID, err.Error())
			return
		}
		servermodels.Respond(conn, req.ID, map[string]any{"imported": len(imported), "paths": imported})
		return
	}

	total, err := r.watcher.ScanAll()
	if err != nil {
		servermodels.RespondError(conn, req.ID, err.Error())
		return
	}
	servermodels.Respond(conn, req.ID, map[string]any{"imported": total})
}

func (r *Router) handleWatchFolderAdd(conn net.Conn, req servermodels.Request) {
	path, ok := stringParam(req.Params, "path")
	if !ok {
		servermodels.RespondError(conn, req.ID, "path parameter required")
		return
	}
	target, ok := stringParam(req.Params, "targetFolderId")
	if !ok {
		servermodels.RespondError(conn, req.ID, "targetFolderId parameter required")
		return
	}
	autoRename, _ := req.Params["autoRename"].(bool)

	wf, err := r.store.CreateWatchFolder(path, target, autoRename)
	if err != nil {
		servermodels.RespondError(conn, req.ID, err.Error())
		return
	}
	servermodels.Respond(conn, req.ID, wf)
}

func (r *Router) handleWatchFolderList(conn net.Conn, req servermodels.Request) {
	folders, err := r.store.ListWatchFolders()
	if err != nil {
		servermodels.RespondError(conn, req.ID, err.Error())
		return
	}
	servermodels.Respond(conn, req.ID, folders)
}

func (r *Router) handleWatchFolderRemove(conn net.Conn, req servermodels.Request) {
	id, ok := stringParam(req.Params, "watchFolderId")
	if !ok {
		servermodels.RespondError(conn, req.ID, "watchFolderId parameter required")
		return
	}

	if err := r.store.DeleteWatchFolder(id); err != nil {
		servermodels.RespondError(conn, req.ID, err.Error())
		return
	}
	servermodels.Respond(conn, req.ID, map[string]string{"status": "deleted"})
}

func (r *Router) handleWatchFolderToggle(conn net.Conn, req servermodels.Request) {
	id, ok := stringParam(req.Params, "watchFolderId")
	if !ok {
		servermodels.RespondError(conn, req.ID, "watchFolderId parameter required")
		return
	}

	wf, err := r.store.ToggleWatchFolder(id)
	if err != nil {
		servermodels.RespondError(conn, req.ID, err.Error())
		return
	}
	servermodels.Respond(conn, req.ID, wf)
}

func (r *Router) handleRenamePreview(conn net.Conn, req servermodels.Request) {
	paperID, ok := stringParam(req.Params, "paperId")
	if !ok {
		servermodels.RespondError(conn, req.ID, "paperId parameter required")
		return
	}

	result, err := r.renamer.Preview(paperID, r.renameCfg)
	if err != nil {
		servermodels.RespondError(conn, req.ID, err.Error())
		return
	}
	servermodels.Respond(conn, req.ID, result)
}

func (r *Router) handleRenameApply(conn net.Conn, req servermodels.Request) {
	paperID, ok := stringParam(req.Params, "paperId")
	if !ok {
		servermodels.RespondError(conn, req.ID, "paperId parameter required")
		return
	}

	result, err := r.renamer.Apply(paperID, r.renameCfg)
	if err != nil {
		servermodels.RespondError(conn, req.ID, err.Error())
		return
	}
	servermodels.Respond(conn, req.ID, result)
}

func (r *Router) handleRenameBatch(conn net.Conn, req servermodels.Request) {
	var input struct {
		PaperIDs []string `json:"paperIds"`
	}
	if err := decodeParams(req.Params, &input); err != nil || len(input.PaperIDs) == 0 {
		servermodels.RespondError(conn, req.ID, "paperIds parameter required")
		return
	}
	servermodels.Respond(conn, req.ID, r.renamer.Batch(input.PaperIDs, r.renameCfg))
}

// handleEventsSubscribe holds the connection open and streams every bus
// event as a response line until the client disconnects.
func (r *Router) handleEventsSubscribe(conn net.Conn, req servermodels.Request) {
	if r.bus == nil {
		servermodels.RespondError(conn, req.ID, "events not available")
		return
	}

	ch, cancel := r.bus.SubscribeAll()
	defer cancel()

	servermodels.Respond(conn, req.ID, map[string]string{"status": "subscribed"})

	done := make(chan struct{})
	go func() {
		io.Copy(io.Discard, conn)
		close(done)
	}()

	for {
		select {
		case <-done:
			return
		case ev := <-ch:
			data, err := json.Marshal(servermodels.Response[events.Event]{ID: req.ID, Result: &ev})
			if err != nil {
				continue
			}
			if _, err := conn.Write(append(data, '\n')); err != nil {
				return
			}
		}
	}
}
