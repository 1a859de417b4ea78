package watcher

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/paperdex/paperdex/internal/errdefs"
	"github.com/paperdex/paperdex/internal/events"
	"github.com/paperdex/paperdex/internal/indexer"
	"github.com/paperdex/paperdex/internal/log"
	"github.com/paperdex/paperdex/internal/metastore"
	"github.com/paperdex/paperdex/internal/models"
	"github.com/paperdex/paperdex/internal/rename"
	"github.com/paperdex/paperdex/internal/store"
)

// Importer turns a PDF file found in a watch folder into a paper: copy the
// file into the managed PDF directory, create the record, index it, and
// optionally apply the rename pattern.
type Importer struct {
	store     *store.Store
	meta      *metastore.Store
	indexer   *indexer.Indexer
	renamer   *rename.Renamer
	bus       *events.Bus
	pdfDir    string
	renameCfg rename.Config
}

func NewImporter(s *store.Store, meta *metastore.Store, idx *indexer.Indexer, rn *rename.Renamer, bus *events.Bus, pdfDir string, renameCfg rename.Config) *Importer {
	return &Importer{
		store:     s,
		meta:      meta,
		indexer:   idx,
		renamer:   rn,
		bus:       bus,
		pdfDir:    pdfDir,
		renameCfg: renameCfg,
	}
}

// Import ingests one file. Files already imported unchanged are skipped;
// the bool reports whether a paper was created.
func (im *Importer) Import(folder models.WatchFolder, srcPath string) (models.Paper, bool, error) {
	info, err := os.Stat(srcPath)
	if err != nil {
		return models.Paper{}, false, errdefs.NewCustomError(errdefs.ErrTypeValidation, "source file not accessible: "+srcPath, err)
	}

	imported, err := im.meta.IsImported(srcPath, info)
	if err != nil {
		return models.Paper{}, false, err
	}
	if imported {
		log.Debugf("skipping already-imported file %s", srcPath)
		return models.Paper{}, false, nil
	}

	fileName := filepath.Base(srcPath)
	title := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	if title == "" {
		title = "Untitled"
	}

	paper, err := im.store.CreatePaper(store.CreatePaperInput{
		FolderID:    folder.TargetFolderID,
		Title:       title,
		PDFFilename: fileName,
	})
	if err != nil {
		return models.Paper{}, false, err
	}

	if err := os.MkdirAll(im.pdfDir, 0755); err != nil {
		return models.Paper{}, false, errdefs.NewCustomError(errdefs.ErrTypeStorage, "create pdf dir", err)
	}
	destPath := filepath.Join(im.pdfDir, paper.ID+"_"+fileName)
	if err := copyFile(srcPath, destPath); err != nil {
		return models.Paper{}, false, errdefs.NewCustomError(errdefs.ErrTypeStorage, "copy pdf", err)
	}

	paper, err = im.store.UpdatePaper(paper.ID, store.UpdatePaperInput{
		PDFPath:     &destPath,
		PDFFilename: &fileName,
	})
	if err != nil {
		return models.Paper{}, false, err
	}

	if err := im.meta.MarkImported(srcPath, metastore.FileMeta{ModTime: info.ModTime(), Size: info.Size()}); err != nil {
		return models.Paper{}, false, err
	}

	if folder.AutoRename && im.renamer != nil {
		if res, err := im.renamer.Apply(paper.ID, im.renameCfg); err != nil {
			log.Warnf("auto-rename failed for %s: %v", paper.ID, err)
		} else {
			paper.PDFPath = res.NewPath
			paper.PDFFilename = res.NewFilename
		}
	}

	if im.indexer != nil {
		if status, err := im.indexer.IndexPaper(paper.ID); err != nil {
			log.Warnf("indexing failed for imported paper %s: %v", paper.ID, err)
		} else if status.Error != "" {
			log.Warnf("indexing incomplete for imported paper %s: %s", paper.ID, status.Error)
		}
	}

	log.Infof("imported %s into folder %s", fileName, folder.TargetFolderID)
	if im.bus != nil {
		im.bus.Emit(events.PaperImported, paper)
	}
	return paper, true, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
