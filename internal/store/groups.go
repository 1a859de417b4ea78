package store

import (
	"errors"

	"github.com/google/uuid"
	"github.com/paperdex/paperdex/internal/errdefs"
	"github.com/paperdex/paperdex/internal/models"
	"github.com/paperdex/paperdex/internal/smartgroup"
	"gorm.io/gorm"
)

func (s *Store) CreateSmartGroup(name string, criteria []smartgroup.Criterion, matchMode, icon, color string) (smartgroup.SmartGroup, error) {
	if name == "" {
		return smartgroup.SmartGroup{}, errdefs.NewCustomError(errdefs.ErrTypeValidation, "group name is required", nil)
	}
	if matchMode != smartgroup.MatchOr {
		matchMode = smartgroup.MatchAnd
	}

	encoded, err := smartgroup.EncodeCriteria(criteria)
	if err != nil {
		return smartgroup.SmartGroup{}, errdefs.NewCustomError(errdefs.ErrTypeValidation, "encode criteria", err)
	}

	row := models.SmartGroupRow{
		ID:        uuid.NewString(),
		Name:      name,
		Criteria:  encoded,
		MatchMode: matchMode,
		Icon:      icon,
		Color:     color,
		CreatedAt: models.Now(),
	}
	if err := s.db.Create(&row).Error; err != nil {
		return smartgroup.SmartGroup{}, storageErr("insert smart group", err)
	}
	return groupFromRow(row), nil
}

// ListSmartGroups returns saved groups ordered by name. Rows whose stored
// criteria no longer parse come back with an empty criteria list rather
// than failing the whole listing.
func (s *Store) ListSmartGroups() ([]smartgroup.SmartGroup, error) {
	var rows []models.SmartGroupRow
	if err := s.db.Order("name ASC").Find(&rows).Error; err != nil {
		return nil, storageErr("list smart groups", err)
	}

	groups := make([]smartgroup.SmartGroup, 0, len(rows))
	for _, row := range rows {
		groups = append(groups, groupFromRow(row))
	}
	return groups, nil
}

func (s *Store) GetSmartGroup(id string) (smartgroup.SmartGroup, error) {
	var row models.SmartGroupRow
	err := s.db.First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return smartgroup.SmartGroup{}, errdefs.NewCustomError(errdefs.ErrTypeNotFound, "smart group not found: "+id, nil)
	}
	if err != nil {
		return smartgroup.SmartGroup{}, storageErr("get smart group", err)
	}
	return groupFromRow(row), nil
}

func (s *Store) DeleteSmartGroup(id string) error {
	if _, err := s.GetSmartGroup(id); err != nil {
		return err
	}
	if err := s.db.Delete(&models.SmartGroupRow{}, "id = ?", id).Error; err != nil {
		return storageErr("delete smart group", err)
	}
	return nil
}

func groupFromRow(row models.SmartGroupRow) smartgroup.SmartGroup {
	return smartgroup.SmartGroup{
		ID:        row.ID,
		Name:      row.Name,
		Criteria:  smartgroup.DecodeCriteria(row.Criteria),
		MatchMode: row.MatchMode,
		Icon:      row.Icon,
		Color:     row.Color,
		CreatedAt: row.CreatedAt,
	}
}
