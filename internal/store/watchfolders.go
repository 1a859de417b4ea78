package store

import (
	"errors"

	"github.com/google/uuid"
	"github.com/paperdex/paperdex/internal/errdefs"
	"github.com/paperdex/paperdex/internal/models"
	"gorm.io/gorm"
)

func (s *Store) CreateWatchFolder(path, targetFolderID string, autoRename bool) (models.WatchFolder, error) {
	if path == "" {
		return models.WatchFolder{}, errdefs.NewCustomError(errdefs.ErrTypeValidation, "watch folder path is required", nil)
	}
	if _, err := s.GetFolder(targetFolderID); err != nil {
		return models.WatchFolder{}, err
	}

	wf := models.WatchFolder{
		ID:             uuid.NewString(),
		Path:           path,
		TargetFolderID: targetFolderID,
		AutoRename:     autoRename,
		IsActive:       true,
		CreatedAt:      models.Now(),
	}
	if err := s.db.Create(&wf).Error; err != nil {
		return models.WatchFolder{}, storageErr("insert watch folder", err)
	}
	return wf, nil
}

func (s *Store) GetWatchFolder(id string) (models.WatchFolder, error) {
	var wf models.WatchFolder
	err := s.db.First(&wf, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.WatchFolder{}, errdefs.NewCustomError(errdefs.ErrTypeNotFound, "watch folder not found: "+id, nil)
	}
	if err != nil {
		return models.WatchFolder{}, storageErr("get watch folder", err)
	}
	return wf, nil
}

func (s *Store) ListWatchFolders() ([]models.WatchFolder, error) {
	var folders []models.WatchFolder
	if err := s.db.Order("created_at DESC").Find(&folders).Error; err != nil {
		return nil, storageErr("list watch folders", err)
	}
	return folders, nil
}

// ActiveWatchFolders lists only folders currently being monitored.
func (s *Store) ActiveWatchFolders() ([]models.WatchFolder, error) {
	var folders []models.WatchFolder
	if err := s.db.Where("is_active = ?", true).Find(&folders).Error; err != nil {
		return nil, storageErr("list active watch folders", err)
	}
	return folders, nil
}

func (s *Store) DeleteWatchFolder(id string) error {
	if _, err := s.GetWatchFolder(id); err != nil {
		return err
	}
	if err := s.db.Delete(&models.WatchFolder{}, "id = ?", id).Error; err != nil {
		return storageErr("delete watch folder", err)
	}
	return nil
}

// ToggleWatchFolder flips is_active and returns the updated row.
func (s *Store) ToggleWatchFolder(id string) (models.WatchFolder, error) {
	wf, err := s.GetWatchFolder(id)
	if err != nil {
		return models.WatchFolder{}, err
	}
	if err := s.db.Model(&models.WatchFolder{}).Where("id = ?", id).
		Update("is_active", !wf.IsActive).Error; err != nil {
		return models.WatchFolder{}, storageErr("toggle watch folder", err)
	}
	return s.GetWatchFolder(id)
}
