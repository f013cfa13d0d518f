package repository

import (
	"context"
	"errors"

	"github.com/sangkips/pos-engine/internal/domain/entity"
	"github.com/sangkips/pos-engine/internal/domain/repository"
	"gorm.io/gorm"
)

type settingsRepository struct {
	db *gorm.DB
}

// NewSettingsRepository creates a new settings repository
func NewSettingsRepository(db *gorm.DB) repository.SettingsRepository {
	return &settingsRepository{db: db}
}

// Get retrieves the store settings row
func (r *settingsRepository) Get(ctx context.Context) (*entity.StoreSettings, error) {
	var settings entity.StoreSettings
	err := conn(ctx, r.db).Order("created_at ASC").First(&settings).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &settings, nil
}

// Create creates the store settings row
func (r *settingsRepository) Create(ctx context.Context, settings *entity.StoreSettings) error {
	return conn(ctx, r.db).Create(settings).Error
}

// Update updates the store settings row
func (r *settingsRepository) Update(ctx context.Context, settings *entity.StoreSettings) error {
	return conn(ctx, r.db).Save(settings).Error
}
