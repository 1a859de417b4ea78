package store

import (
	"errors"

	"github.com/google/uuid"
	"github.com/paperdex/paperdex/internal/errdefs"
	"github.com/paperdex/paperdex/internal/models"
	"gorm.io/gorm"
)

func (s *Store) CreateTopic(name string) (models.Topic, error) {
	if name == "" {
		return models.Topic{}, errdefs.NewCustomError(errdefs.ErrTypeValidation, "topic name is required", nil)
	}

	now := models.Now()
	topic := models.Topic{
		ID:        uuid.NewString(),
		Name:      name,
		SortOrder: s.nextSortOrder(&models.Topic{}, "1 = 1"),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.db.Create(&topic).Error; err != nil {
		return models.Topic{}, storageErr("insert topic", err)
	}
	return topic, nil
}

func (s *Store) ListTopics() ([]models.Topic, error) {
	var topics []models.Topic
	if err := s.db.Order("sort_order ASC").Find(&topics).Error; err != nil {
		return nil, storageErr("list topics", err)
	}
	return topics, nil
}

func (s *Store) CreateFolder(topicID, name string) (models.Folder, error) {
	if name == "" {
		return models.Folder{}, errdefs.NewCustomError(errdefs.ErrTypeValidation, "folder name is required", nil)
	}

	now := models.Now()
	folder := models.Folder{
		ID:        uuid.NewString(),
		TopicID:   topicID,
		Name:      name,
		SortOrder: s.nextSortOrder(&models.Folder{}, "topic_id = ?", topicID),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.db.Create(&folder).Error; err != nil {
		return models.Folder{}, storageErr("insert folder", err)
	}
	return folder, nil
}

func (s *Store) GetFolder(id string) (models.Folder, error) {
	var folder models.Folder
	err := s.db.First(&folder, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Folder{}, errdefs.NewCustomError(errdefs.ErrTypeNotFound, "folder not found: "+id, nil)
	}
	if err != nil {
		return models.Folder{}, storageErr("get folder", err)
	}
	return folder, nil
}

func (s *Store) ListFolders(topicID *string) ([]models.Folder, error) {
	q := s.db.Order("sort_order ASC")
	if topicID != nil {
		q = q.Where("topic_id = ?", *topicID)
	}

	var folders []models.Folder
	if err := q.Find(&folders).Error; err != nil {
		return nil, storageErr("list folders", err)
	}
	return folders, nil
}

func (s *Store) DeleteFolder(id string) error {
	if _, err := s.GetFolder(id); err != nil {
		return err
	}
	if err := s.db.Delete(&models.Folder{}, "id = ?", id).Error; err != nil {
		return storageErr("delete folder", err)
	}
	return nil
}

func (s *Store) nextSortOrder(model any, cond string, args ...any) int {
	var max *int
	s.db.Model(model).Where(cond, args...).Select("MAX(sort_order)").Scan(&max)
	if max == nil {
		return 0
	}
	return *max + 1
}
