package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/sangkips/pos-engine/internal/domain/entity"
	"github.com/sangkips/pos-engine/pkg/pagination"
)

// CashCutRepository persists sealed cash cuts
type CashCutRepository interface {
	Create(ctx context.Context, cut *entity.CashCut) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.CashCut, error)
	List(ctx context.Context, params *pagination.PaginationParams) ([]entity.CashCut, int64, error)
	// FindOverlapping returns a sealed cut whose window overlaps window, or nil
	FindOverlapping(ctx context.Context, window entity.Window) (*entity.CashCut, error)
	// LockSealing serialises concurrent seals until the surrounding
	// transaction ends
	LockSealing(ctx context.Context) error
}
