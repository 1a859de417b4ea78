package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/paperdex/paperdex/internal/api"
	"github.com/paperdex/paperdex/internal/models"
	"github.com/paperdex/paperdex/internal/search"
	"github.com/paperdex/paperdex/internal/store"
)

type mockHTTPIndexer struct{}

func (m *mockHTTPIndexer) IndexPaper(paperID string) (models.IndexingStatus, error) {
	return models.IndexingStatus{PaperID: paperID, IsComplete: true}, nil
}

func (m *mockHTTPIndexer) IndexAll() ([]models.IndexingStatus, error) {
	return []models.IndexingStatus{}, nil
}

func (m *mockHTTPIndexer) Status(paperID string) (models.IndexingStatus, error) {
	return models.IndexingStatus{PaperID: paperID}, nil
}

type mockHTTPWatcher struct {
	running bool
}

func (m *mockHTTPWatcher) Start() error {
	m.running = true
	return nil
}

func (m *mockHTTPWatcher) Stop() error {
	m.running = false
	return nil
}

func (m *mockHTTPWatcher) IsRunning() bool {
	return m.running
}

func (m *mockHTTPWatcher) ScanAll() (int, error) {
	return 0, nil
}

func newHTTPServer(t *testing.T, addr string) *HTTPServer {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "library.db"))
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })

	srv := &api.Server{
		Library:  s,
		Searcher: search.NewEngine(s),
		Indexer:  &mockHTTPIndexer{},
		Watcher:  &mockHTTPWatcher{},
	}
	return NewHTTP(addr, srv)
}

func TestNewHTTP(t *testing.T) {
	srv := newHTTPServer(t, ":8080")

	if srv == nil {
		t.Fatal("NewHTTP() returned nil")
	}
	if srv.server == nil {
		t.Error("server should not be nil")
	}
	if srv.server.Addr != ":8080" {
		t.Errorf("Addr = %v, want :8080", srv.server.Addr)
	}
}

func TestHTTPServer_Routes(t *testing.T) {
	srv := newHTTPServer(t, ":8080")

	tests := []struct {
		name   string
		path   string
		method string
		status int
	}{
		{
			name:   "health endpoint",
			path:   "/health",
			method: http.MethodGet,
			status: http.StatusOK,
		},
		{
			name:   "search endpoint",
			path:   "/search?q=test",
			method: http.MethodGet,
			status: http.StatusOK,
		},
		{
			name:   "papers endpoint",
			path:   "/papers",
			method: http.MethodGet,
			status: http.StatusOK,
		},
		{
			name:   "unknown paper",
			path:   "/papers/nope",
			method: http.MethodGet,
			status: http.StatusNotFound,
		},
		{
			name:   "predefined groups endpoint",
			path:   "/groups/predefined",
			method: http.MethodGet,
			status: http.StatusOK,
		},
		{
			name:   "watch status endpoint",
			path:   "/watch/status",
			method: http.MethodGet,
			status: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			rec := httptest.NewRecorder()

			srv.server.Handler.ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Errorf("status = %v, want %v", rec.Code, tt.status)
			}
		})
	}
}

func TestHTTPServer_Shutdown(t *testing.T) {
	srv := newHTTPServer(t, ":0")

	go func() {
		srv.Start()
	}()

	time.Sleep(100 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}
