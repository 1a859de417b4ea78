// Package watcher monitors watch folders and imports PDFs that appear in
// them.
package watcher

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/paperdex/paperdex/internal/errdefs"
	"github.com/paperdex/paperdex/internal/log"
	"github.com/paperdex/paperdex/internal/models"
	"github.com/paperdex/paperdex/internal/store"
)

type Watcher struct {
	watcher  *fsnotify.Watcher
	store    *store.Store
	importer *Importer

	mu      sync.Mutex
	running bool
	done    chan struct{}
	// watched maps a directory path to the watch folder it belongs to, so
	// events resolve back to an import target.
	watched map[string]models.WatchFolder
}

func New(s *store.Store, importer *Importer) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errdefs.NewCustomError(errdefs.ErrTypeWatcherFailed, "failed to create watcher", err)
	}

	return &Watcher{
		watcher:  w,
		store:    s,
		importer: importer,
		done:     make(chan struct{}),
		watched:  make(map[string]models.WatchFolder),
	}, nil
}

// Start begins watching every active watch folder. Folders whose path is
// missing on disk are skipped with a warning rather than failing startup.
func (w *Watcher) Start() error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}

	// Recreate the fsnotify instance if a previous Stop closed it
	if w.watcher == nil {
		nw, err := fsnotify.NewWatcher()
		if err != nil {
			w.mu.Unlock()
			return errdefs.NewCustomError(errdefs.ErrTypeWatcherFailed, "failed to create watcher", err)
		}
		w.watcher = nw
		w.done = make(chan struct{})
	}

	w.running = true
	w.mu.Unlock()

	folders, err := w.store.ActiveWatchFolders()
	if err != nil {
		return err
	}
	for _, folder := range folders {
		if err := w.Watch(folder); err != nil {
			log.Warnf("skipping watch folder %s: %v", folder.Path, err)
		}
	}

	go w.eventLoop()
	log.Infof("watcher started (%d folders)", len(folders))
	return nil
}

func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}

	w.running = false
	close(w.done)
	err := w.watcher.Close()
	w.watcher = nil // allow recreation on next Start
	w.watched = make(map[string]models.WatchFolder)
	log.Infof("watcher stopped")
	return err
}

func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// Watch adds one folder to the running watcher.
func (w *Watcher) Watch(folder models.WatchFolder) error {
	info, err := os.Stat(folder.Path)
	if err != nil || !info.IsDir() {
		return errdefs.NewCustomError(errdefs.ErrTypeValidation, "watch folder path does not exist: "+folder.Path, err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watcher == nil {
		return errdefs.NewCustomError(errdefs.ErrTypeWatcherFailed, "watcher not running", nil)
	}
	if err := w.watcher.Add(folder.Path); err != nil {
		return errdefs.NewCustomError(errdefs.ErrTypeWatcherFailed, "failed to watch "+folder.Path, err)
	}
	w.watched[filepath.Clean(folder.Path)] = folder
	log.Debugf("watching %s", folder.Path)
	return nil
}

// Unwatch removes a folder from the running watcher.
func (w *Watcher) Unwatch(folder models.WatchFolder) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watcher == nil {
		return nil
	}
	delete(w.watched, filepath.Clean(folder.Path))
	return w.watcher.Remove(folder.Path)
}

// Scan imports PDFs already sitting in a watch folder, returning the
// paths it imported. Already-imported files do not repeat.
func (w *Watcher) Scan(watchFolderID string) ([]string, error) {
	folder, err := w.store.GetWatchFolder(watchFolderID)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(folder.Path)
	if err != nil {
		return nil, errdefs.NewCustomError(errdefs.ErrTypeValidation, "watch folder path does not exist: "+folder.Path, err)
	}

	var imported []string
	for _, entry := range entries {
		if entry.IsDir() || !isPDF(entry.Name()) {
			continue
		}
		path := filepath.Join(folder.Path, entry.Name())
		_, ok, err := w.importer.Import(folder, path)
		if err != nil {
			log.Warnf("import failed for %s: %v", path, err)
			continue
		}
		if ok {
			imported = append(imported, path)
		}
	}
	return imported, nil
}

// ScanAll scans every active watch folder.
func (w *Watcher) ScanAll() (int, error) {
	folders, err := w.store.ActiveWatchFolders()
	if err != nil {
		return 0, err
	}

	total := 0
	for _, folder := range folders {
		imported, err := w.Scan(folder.ID)
		if err != nil {
			log.Warnf("scan failed for %s: %v", folder.Path, err)
			continue
		}
		total += len(imported)
	}
	return total, nil
}

func (w *Watcher) eventLoop() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Errorf("watcher error: %v", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Rename) == 0 {
		return
	}
	path := event.Name
	if !isPDF(path) {
		return
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		// Rename events also fire for the vanished old name.
		return
	}

	w.mu.Lock()
	folder, ok := w.watched[filepath.Clean(filepath.Dir(path))]
	w.mu.Unlock()
	if !ok {
		return
	}

	log.Debugf("new pdf detected: %s", path)
	if _, _, err := w.importer.Import(folder, path); err != nil {
		log.Warnf("import failed for %s: %v", path, err)
	}
}

func isPDF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}
