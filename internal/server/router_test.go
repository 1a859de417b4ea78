package server

import (
	"bufio"
	"encoding/json"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/paperdex/paperdex/internal/events"
	"github.com/paperdex/paperdex/internal/models"
	"github.com/paperdex/paperdex/internal/rename"
	"github.com/paperdex/paperdex/internal/search"
	servermodels "github.com/paperdex/paperdex/internal/server/models"
	"github.com/paperdex/paperdex/internal/smartgroup"
	"github.com/paperdex/paperdex/internal/store"
)

type mockRouterIndexer struct {
	indexed []string
}

func (m *mockRouterIndexer) IndexPaper(paperID string) (models.IndexingStatus, error) {
	m.indexed = append(m.indexed, paperID)
	return models.IndexingStatus{PaperID: paperID, TotalPages: 3, IndexedPages: 3, IsComplete: true}, nil
}

func (m *mockRouterIndexer) IndexAll() ([]models.IndexingStatus, error) {
	return []models.IndexingStatus{}, nil
}

func (m *mockRouterIndexer) Status(paperID string) (models.IndexingStatus, error) {
	return models.IndexingStatus{PaperID: paperID, IsComplete: true}, nil
}

type mockRouterWatcher struct {
	running bool
}

func (m *mockRouterWatcher) Start() error {
	m.running = true
	return nil
}

func (m *mockRouterWatcher) Stop() error {
	m.running = false
	return nil
}

func (m *mockRouterWatcher) IsRunning() bool {
	return m.running
}

func (m *mockRouterWatcher) Scan(watchFolderID string) ([]string, error) {
	return []string{"/watch/a.pdf"}, nil
}

func (m *mockRouterWatcher) ScanAll() (int, error) {
	return 2, nil
}

type mockConn struct {
	net.Conn
	written []byte
}

func (m *mockConn) Write(b []byte) (n int, err error) {
	m.written = append(m.written, b...)
	return len(b), nil
}

func (m *mockConn) Close() error {
	return nil
}

func newTestRouter(t *testing.T) (*Router, *store.Store, *mockRouterWatcher) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "library.db"))
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })

	w := &mockRouterWatcher{}
	router := NewRouter(s, search.NewEngine(s), &mockRouterIndexer{}, w, rename.New(s, nil), rename.DefaultConfig(), events.NewBus())
	return router, s, w
}

func decode[T any](t *testing.T, data []byte) servermodels.Response[T] {
	t.Helper()
	var resp servermodels.Response[T]
	if err := json.Unmarshal(data, &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	return resp
}

func TestRouter_Ping(t *testing.T) {
	router, _, _ := newTestRouter(t)

	conn := &mockConn{}
	router.RouteRequest(conn, servermodels.Request{ID: 1, Method: "ping"})

	resp := decode[string](t, conn.written)
	if resp.ID != 1 {
		t.Errorf("ID = %v, want 1", resp.ID)
	}
	if resp.Result == nil || *resp.Result != "pong" {
		t.Errorf("Result = %v, want pong", resp.Result)
	}
}

func TestRouter_UnknownMethod(t *testing.T) {
	router, _, _ := newTestRouter(t)

	conn := &mockConn{}
	router.RouteRequest(conn, servermodels.Request{ID: 9, Method: "nope"})

	resp := decode[any](t, conn.written)
	if resp.Error == nil {
		t.Fatal("expected an error for unknown method")
	}
}

func TestRouter_SearchRequiresQuery(t *testing.T) {
	router, _, _ := newTestRouter(t)

	conn := &mockConn{}
	router.RouteRequest(conn, servermodels.Request{ID: 2, Method: "search.fulltext"})

	resp := decode[any](t, conn.written)
	if resp.Error == nil {
		t.Fatal("expected an error without query param")
	}
}

func TestRouter_SearchRoundTrip(t *testing.T) {
	router, s, _ := newTestRouter(t)

	paper, err := s.CreatePaper(store.CreatePaperInput{Title: "Indexed"})
	if err != nil {
		t.Fatalf("CreatePaper() error = %v", err)
	}
	if _, err := s.ReplacePages(paper.ID, []string{"the quick brown fox"}); err != nil {
		t.Fatalf("ReplacePages() error = %v", err)
	}

	conn := &mockConn{}
	router.RouteRequest(conn, servermodels.Request{
		ID:     3,
		Method: "search.fulltext",
		Params: map[string]any{"query": "fox", "limit": float64(10)},
	})

	resp := decode[models.SearchResponse](t, conn.written)
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", *resp.Error)
	}
	if resp.Result.Total != 1 {
		t.Errorf("Total = %v, want 1", resp.Result.Total)
	}
	if len(resp.Result.Results) != 1 || resp.Result.Results[0].PaperID != paper.ID {
		t.Errorf("unexpected results: %+v", resp.Result.Results)
	}
}

func TestRouter_PaperLifecycle(t *testing.T) {
	router, _, _ := newTestRouter(t)

	conn := &mockConn{}
	router.RouteRequest(conn, servermodels.Request{
		ID:     4,
		Method: "paper.create",
		Params: map[string]any{"title": "New Paper", "author": "Doe", "year": float64(2024)},
	})
	created := decode[models.Paper](t, conn.written)
	if created.Error != nil {
		t.Fatalf("create error: %v", *created.Error)
	}
	paperID := created.Result.ID

	conn = &mockConn{}
	router.RouteRequest(conn, servermodels.Request{
		ID:     5,
		Method: "paper.update",
		Params: map[string]any{"paperId": paperID, "isRead": true},
	})
	updated := decode[models.Paper](t, conn.written)
	if updated.Error != nil {
		t.Fatalf("update error: %v", *updated.Error)
	}
	if !updated.Result.IsRead {
		t.Error("paper should be marked read")
	}

	conn = &mockConn{}
	router.RouteRequest(conn, servermodels.Request{
		ID:     6,
		Method: "paper.delete",
		Params: map[string]any{"paperId": paperID},
	})
	deleted := decode[map[string]string](t, conn.written)
	if deleted.Error != nil {
		t.Fatalf("delete error: %v", *deleted.Error)
	}

	conn = &mockConn{}
	router.RouteRequest(conn, servermodels.Request{
		ID:     7,
		Method: "paper.get",
		Params: map[string]any{"paperId": paperID},
	})
	gone := decode[any](t, conn.written)
	if gone.Error == nil {
		t.Error("expected an error for a deleted paper")
	}
}

func TestRouter_IndexPaper(t *testing.T) {
	router, _, _ := newTestRouter(t)

	conn := &mockConn{}
	router.RouteRequest(conn, servermodels.Request{
		ID:     8,
		Method: "index.paper",
		Params: map[string]any{"paperId": "p-1"},
	})

	resp := decode[models.IndexingStatus](t, conn.written)
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", *resp.Error)
	}
	if !resp.Result.IsComplete || resp.Result.TotalPages != 3 {
		t.Errorf("unexpected status: %+v", resp.Result)
	}
}

func TestRouter_GroupPapersPredefined(t *testing.T) {
	router, s, _ := newTestRouter(t)

	if _, err := s.CreatePaper(store.CreatePaperInput{Title: "Unread One"}); err != nil {
		t.Fatalf("CreatePaper() error = %v", err)
	}
	read, err := s.CreatePaper(store.CreatePaperInput{Title: "Read One"})
	if err != nil {
		t.Fatalf("CreatePaper() error = %v", err)
	}
	isRead := true
	if _, err := s.UpdatePaper(read.ID, store.UpdatePaperInput{IsRead: &isRead}); err != nil {
		t.Fatalf("UpdatePaper() error = %v", err)
	}

	conn := &mockConn{}
	router.RouteRequest(conn, servermodels.Request{
		ID:     10,
		Method: "group.papers",
		Params: map[string]any{"groupId": "unread"},
	})

	resp := decode[[]models.Paper](t, conn.written)
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", *resp.Error)
	}
	if len(*resp.Result) != 1 || (*resp.Result)[0].Title != "Unread One" {
		t.Errorf("unexpected papers: %+v", *resp.Result)
	}
}

func TestRouter_GroupCreateAndPapers(t *testing.T) {
	router, s, _ := newTestRouter(t)

	if _, err := s.CreatePaper(store.CreatePaperInput{Title: "Old", Year: 2019}); err != nil {
		t.Fatalf("CreatePaper() error = %v", err)
	}
	if _, err := s.CreatePaper(store.CreatePaperInput{Title: "Recent", Year: 2024}); err != nil {
		t.Fatalf("CreatePaper() error = %v", err)
	}

	conn := &mockConn{}
	router.RouteRequest(conn, servermodels.Request{
		ID:     11,
		Method: "group.create",
		Params: map[string]any{
			"name":     "From 2024",
			"criteria": []any{map[string]any{"type": "byYear", "value": float64(2024)}},
		},
	})
	created := decode[smartgroup.SmartGroup](t, conn.written)
	if created.Error != nil {
		t.Fatalf("create error: %v", *created.Error)
	}

	conn = &mockConn{}
	router.RouteRequest(conn, servermodels.Request{
		ID:     12,
		Method: "group.papers",
		Params: map[string]any{"groupId": created.Result.ID},
	})
	resp := decode[[]models.Paper](t, conn.written)
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", *resp.Error)
	}
	if len(*resp.Result) != 1 || (*resp.Result)[0].Title != "Recent" {
		t.Errorf("unexpected papers: %+v", *resp.Result)
	}
}

func TestRouter_WatchLifecycle(t *testing.T) {
	router, _, w := newTestRouter(t)

	conn := &mockConn{}
	router.RouteRequest(conn, servermodels.Request{ID: 13, Method: "watch.status"})
	status := decode[map[string]string](t, conn.written)
	if (*status.Result)["status"] != "stopped" {
		t.Errorf("status = %v, want stopped", (*status.Result)["status"])
	}

	conn = &mockConn{}
	router.RouteRequest(conn, servermodels.Request{ID: 14, Method: "watch.start"})
	if !w.running {
		t.Error("watcher should be running")
	}

	// starting twice errors
	conn = &mockConn{}
	router.RouteRequest(conn, servermodels.Request{ID: 15, Method: "watch.start"})
	again := decode[any](t, conn.written)
	if again.Error == nil {
		t.Error("expected an error starting a running watcher")
	}

	conn = &mockConn{}
	router.RouteRequest(conn, servermodels.Request{ID: 16, Method: "watch.stop"})
	if w.running {
		t.Error("watcher should be stopped")
	}
}

func TestRouter_WatchScan(t *testing.T) {
	router, _, _ := newTestRouter(t)

	conn := &mockConn{}
	router.RouteRequest(conn, servermodels.Request{ID: 17, Method: "watch.scan"})
	resp := decode[map[string]any](t, conn.written)
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", *resp.Error)
	}
	if (*resp.Result)["imported"] != float64(2) {
		t.Errorf("imported = %v, want 2", (*resp.Result)["imported"])
	}
}

func TestRouter_EventsSubscribe(t *testing.T) {
	s, err := store.Open(filepath.Join(t.TempDir(), "library.db"))
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })

	bus := events.NewBus()
	router := NewRouter(s, search.NewEngine(s), &mockRouterIndexer{}, &mockRouterWatcher{}, rename.New(s, nil), rename.DefaultConfig(), bus)

	serverSide, clientSide := net.Pipe()
	routed := make(chan struct{})
	go func() {
		router.RouteRequest(serverSide, servermodels.Request{ID: 7, Method: "events.subscribe"})
		close(routed)
	}()

	reader := bufio.NewScanner(clientSide)
	if !reader.Scan() {
		t.Fatal("no subscription confirmation")
	}
	ack := decode[map[string]string](t, reader.Bytes())
	if ack.Result == nil || (*ack.Result)["status"] != "subscribed" {
		t.Fatalf("unexpected ack %s", reader.Text())
	}

	bus.Emit(events.PaperIndexed, map[string]string{"paperId": "p1"})

	if !reader.Scan() {
		t.Fatal("no event line")
	}
	ev := decode[events.Event](t, reader.Bytes())
	if ev.Result == nil || ev.Result.Name != events.PaperIndexed {
		t.Fatalf("unexpected event %s", reader.Text())
	}

	clientSide.Close()
	select {
	case <-routed:
	case <-time.After(2 * time.Second):
		t.Fatal("subscription did not end on disconnect")
	}
}

func TestRouter_EventsSubscribeWithoutBus(t *testing.T) {
	s, err := store.Open(filepath.Join(t.TempDir(), "library.db"))
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })

	router := NewRouter(s, search.NewEngine(s), &mockRouterIndexer{}, &mockRouterWatcher{}, rename.New(s, nil), rename.DefaultConfig(), nil)

	conn := &mockConn{}
	router.RouteRequest(conn, servermodels.Request{ID: 1, Method: "events.subscribe"})

	resp := decode[any](t, conn.written)
	if resp.Error == nil {
		t.Fatal("expected error when no bus is wired")
	}
}

func TestRouter_GroupPapersInlineCriteria(t *testing.T) {
	router, s, _ := newTestRouter(t)

	if _, err := s.CreatePaper(store.CreatePaperInput{Title: "Old", Year: 2019}); err != nil {
		t.Fatalf("CreatePaper() error = %v", err)
	}
	if _, err := s.CreatePaper(store.CreatePaperInput{Title: "Recent", Year: 2024}); err != nil {
		t.Fatalf("CreatePaper() error = %v", err)
	}

	conn := &mockConn{}
	router.RouteRequest(conn, servermodels.Request{
		ID:     11,
		Method: "group.papers",
		Params: map[string]any{
			"criteria": []any{map[string]any{"type": "byYear", "value": float64(2024)}},
		},
	})

	resp := decode[[]models.Paper](t, conn.written)
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", *resp.Error)
	}
	if len(*resp.Result) != 1 || (*resp.Result)[0].Title != "Recent" {
		t.Errorf("unexpected papers: %+v", *resp.Result)
	}
}
