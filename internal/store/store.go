package store

import (
	"os"
	"path/filepath"

	"github.com/paperdex/paperdex/internal/errdefs"
	"github.com/paperdex/paperdex/internal/log"
	"github.com/paperdex/paperdex/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

// Store is the single storage handle for the paper library. SQLite allows
// one writer at a time; the handle caps the pool at a single connection so
// callers get serialized access through the handle itself rather than an
// ambient global lock.
type Store struct {
	db *gorm.DB
}

func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errdefs.NewCustomError(errdefs.ErrTypeStorage, "create data dir", err)
	}

	dsn := path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := gorm.Open(sqlite.Dialector{
		// modernc driver: pure Go, FTS5 compiled in
		DriverName: "sqlite",
		DSN:        dsn,
	}, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, errdefs.NewCustomError(errdefs.ErrTypeStorage, "open database", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errdefs.NewCustomError(errdefs.ErrTypeStorage, "open database", err)
	}
	sqlDB.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}

	log.Debugf("opened store at %s", path)
	return s, nil
}

func (s *Store) migrate() error {
	err := s.db.AutoMigrate(
		&models.Topic{},
		&models.Folder{},
		&models.Paper{},
		&models.PdfPage{},
		&models.SmartGroupRow{},
		&models.WatchFolder{},
	)
	if err != nil {
		return errdefs.NewCustomError(errdefs.ErrTypeStorage, "auto migrate", err)
	}

	// The FTS5 virtual table and its sync triggers need raw SQL; GORM has no
	// notion of virtual tables. The triggers keep pdf_pages_fts consistent
	// with pdf_pages inside the same transaction as every page mutation:
	// insert-after, delete-before-with-old-content, update as delete+insert.
	ftsSchema := `
	CREATE VIRTUAL TABLE IF NOT EXISTS pdf_pages_fts USING fts5(
		text_content,
		content='pdf_pages',
		content_rowid='rowid',
		tokenize='unicode61 remove_diacritics 2'
	);

	CREATE TRIGGER IF NOT EXISTS pdf_pages_ai AFTER INSERT ON pdf_pages BEGIN
		INSERT INTO pdf_pages_fts(rowid, text_content) VALUES (new.rowid, new.text_content);
	END;

	CREATE TRIGGER IF NOT EXISTS pdf_pages_ad AFTER DELETE ON pdf_pages BEGIN
		INSERT INTO pdf_pages_fts(pdf_pages_fts, rowid, text_content) VALUES('delete', old.rowid, old.text_content);
	END;

	CREATE TRIGGER IF NOT EXISTS pdf_pages_au AFTER UPDATE ON pdf_pages BEGIN
		INSERT INTO pdf_pages_fts(pdf_pages_fts, rowid, text_content) VALUES('delete', old.rowid, old.text_content);
		INSERT INTO pdf_pages_fts(rowid, text_content) VALUES (new.rowid, new.text_content);
	END;
	`
	if err := s.db.Exec(ftsSchema).Error; err != nil {
		return errdefs.NewCustomError(errdefs.ErrTypeStorage, "create fts schema", err)
	}

	return nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func storageErr(op string, err error) error {
	return errdefs.NewCustomError(errdefs.ErrTypeStorage, op, err)
}
