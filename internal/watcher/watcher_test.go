package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/paperdex/paperdex/internal/metastore"
	"github.com/paperdex/paperdex/internal/models"
	"github.com/paperdex/paperdex/internal/rename"
	"github.com/paperdex/paperdex/internal/store"
)

type fixture struct {
	store    *store.Store
	meta     *metastore.Store
	watcher  *Watcher
	watchDir string
	pdfDir   string
	folder   models.Folder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	base := t.TempDir()

	s, err := store.Open(filepath.Join(base, "library.db"))
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })

	meta, err := metastore.New(filepath.Join(base, "meta.db"))
	if err != nil {
		t.Fatalf("metastore.New() error = %v", err)
	}
	t.Cleanup(func() { meta.Close() })

	topic, err := s.CreateTopic("inbox")
	if err != nil {
		t.Fatalf("CreateTopic() error = %v", err)
	}
	folder, err := s.CreateFolder(topic.ID, "imports")
	if err != nil {
		t.Fatalf("CreateFolder() error = %v", err)
	}

	watchDir := filepath.Join(base, "downloads")
	if err := os.Mkdir(watchDir, 0755); err != nil {
		t.Fatalf("Mkdir() error = %v", err)
	}
	pdfDir := filepath.Join(base, "pdfs")

	importer := NewImporter(s, meta, nil, nil, nil, pdfDir, rename.DefaultConfig())
	w, err := New(s, importer)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	return &fixture{store: s, meta: meta, watcher: w, watchDir: watchDir, pdfDir: pdfDir, folder: folder}
}

func (f *fixture) addWatchFolder(t *testing.T) models.WatchFolder {
	t.Helper()
	wf, err := f.store.CreateWatchFolder(f.watchDir, f.folder.ID, false)
	if err != nil {
		t.Fatalf("CreateWatchFolder() error = %v", err)
	}
	return wf
}

func (f *fixture) paperCount(t *testing.T) int {
	t.Helper()
	papers, err := f.store.ListPapers(nil)
	if err != nil {
		t.Fatalf("ListPapers() error = %v", err)
	}
	return len(papers)
}

func waitFor(t *testing.T, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return cond()
}

func TestWatcher_StartStop(t *testing.T) {
	f := newFixture(t)
	f.addWatchFolder(t)

	if f.watcher.IsRunning() {
		t.Error("watcher should not be running initially")
	}

	if err := f.watcher.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !f.watcher.IsRunning() {
		t.Error("watcher should be running after Start()")
	}

	if err := f.watcher.Start(); err != nil {
		t.Error("Start() should be idempotent")
	}

	if err := f.watcher.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
	if f.watcher.IsRunning() {
		t.Error("watcher should not be running after Stop()")
	}

	// Restart after Stop recreates the fsnotify instance.
	if err := f.watcher.Start(); err != nil {
		t.Fatalf("restart error = %v", err)
	}
	f.watcher.Stop()
}

func TestWatcher_ImportsNewPDF(t *testing.T) {
	f := newFixture(t)
	f.addWatchFolder(t)

	if err := f.watcher.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer f.watcher.Stop()

	pdfPath := filepath.Join(f.watchDir, "new paper.pdf")
	if err := os.WriteFile(pdfPath, []byte("%PDF-1.7"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if !waitFor(t, func() bool { return f.paperCount(t) == 1 }) {
		t.Fatal("expected the pdf to import")
	}

	papers, _ := f.store.ListPapers(nil)
	paper := papers[0]
	if paper.Title != "new paper" {
		t.Errorf("title = %q, want %q", paper.Title, "new paper")
	}
	if paper.FolderID != f.folder.ID {
		t.Errorf("folder = %q, want %q", paper.FolderID, f.folder.ID)
	}
	if _, err := os.Stat(paper.PDFPath); err != nil {
		t.Errorf("copied pdf missing: %v", err)
	}
	if filepath.Dir(paper.PDFPath) != f.pdfDir {
		t.Errorf("pdf not copied into managed dir: %s", paper.PDFPath)
	}
}

func TestWatcher_IgnoresNonPDF(t *testing.T) {
	f := newFixture(t)
	f.addWatchFolder(t)

	if err := f.watcher.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer f.watcher.Stop()

	if err := os.WriteFile(filepath.Join(f.watchDir, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	time.Sleep(150 * time.Millisecond)
	if n := f.paperCount(t); n != 0 {
		t.Errorf("paper count = %d, want 0", n)
	}
}

func TestWatcher_ScanImportsExistingOnce(t *testing.T) {
	f := newFixture(t)
	wf := f.addWatchFolder(t)

	for _, name := range []string{"a.pdf", "b.pdf", "skip.txt"} {
		if err := os.WriteFile(filepath.Join(f.watchDir, name), []byte("%PDF-1.7"), 0644); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
	}

	imported, err := f.watcher.Scan(wf.ID)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(imported) != 2 {
		t.Fatalf("imported %d files, want 2", len(imported))
	}

	// A second scan finds nothing new.
	imported, err = f.watcher.Scan(wf.ID)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(imported) != 0 {
		t.Errorf("second scan imported %d files, want 0", len(imported))
	}
	if n := f.paperCount(t); n != 2 {
		t.Errorf("paper count = %d, want 2", n)
	}
}

func TestWatcher_ScanUnknownFolder(t *testing.T) {
	f := newFixture(t)
	if _, err := f.watcher.Scan("missing"); err == nil {
		t.Error("expected error for unknown watch folder")
	}
}
