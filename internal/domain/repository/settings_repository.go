package repository

import (
	"context"

	"github.com/sangkips/pos-engine/internal/domain/entity"
)

// SettingsRepository defines the interface for store settings access
type SettingsRepository interface {
	// Get returns the settings row, or nil if none has been stored yet
	Get(ctx context.Context) (*entity.StoreSettings, error)
	Create(ctx context.Context, settings *entity.StoreSettings) error
	Update(ctx context.Context, settings *entity.StoreSettings) error
}
