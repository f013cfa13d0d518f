package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/pos-engine/internal/domain/entity"
	"github.com/sangkips/pos-engine/internal/domain/enum"
	"github.com/sangkips/pos-engine/internal/domain/errs"
	"github.com/sangkips/pos-engine/internal/domain/event"
	"github.com/sangkips/pos-engine/internal/domain/repository"
	"github.com/sangkips/pos-engine/pkg/money"
	"github.com/sangkips/pos-engine/pkg/pagination"
	"go.uber.org/zap"
)

// CatalogService handles product records and inventory adjustments
type CatalogService struct {
	productRepo repository.ProductRepository
	tx          repository.Transactor
	dispatcher  event.Dispatcher
	logger      *zap.Logger
	weightScale int32
}

// NewCatalogService creates a new catalog service. weightScale is the
// number of decimals accepted for weight products that do not set their own.
func NewCatalogService(
	productRepo repository.ProductRepository,
	tx repository.Transactor,
	dispatcher event.Dispatcher,
	logger *zap.Logger,
	weightScale int32,
) *CatalogService {
	if weightScale <= 0 || weightScale > money.QuantityScale {
		weightScale = money.QuantityScale
	}
	return &CatalogService{
		productRepo: productRepo,
		tx:          tx,
		dispatcher:  dispatcher,
		logger:      logger.Named("catalog"),
		weightScale: weightScale,
	}
}

// ProductInput represents the editable fields of a product
type ProductInput struct {
	SKU               string
	Barcode           string
	Name              string
	Category          string
	UnitType          enum.UnitType
	QuantityScale     *int32
	UnitPrice         money.Amount
	TaxRate           money.Rate
	Stock             money.Quantity
	LowStockThreshold money.Quantity
	OperatorID        *uuid.UUID
}

func (s *CatalogService) apply(p *entity.Product, in *ProductInput) {
	p.SKU = strings.TrimSpace(in.SKU)
	p.Name = strings.TrimSpace(in.Name)
	p.Category = strings.TrimSpace(in.Category)
	p.UnitType = in.UnitType
	p.UnitPrice = in.UnitPrice
	p.TaxRate = in.TaxRate
	p.LowStockThreshold = in.LowStockThreshold

	if code := strings.TrimSpace(in.Barcode); code != "" {
		p.Barcode = &code
	} else {
		p.Barcode = nil
	}

	switch {
	case in.QuantityScale != nil:
		p.QuantityScale = *in.QuantityScale
	case p.UnitType == enum.UnitTypeWeight && p.QuantityScale == 0:
		p.QuantityScale = s.weightScale
	case p.UnitType == enum.UnitTypePiece:
		p.QuantityScale = 0
	}
}

// CreateProduct creates a new product. Initial stock is recorded as a
// correction movement.
func (s *CatalogService) CreateProduct(ctx context.Context, input *ProductInput) (*entity.Product, error) {
	product := &entity.Product{}
	s.apply(product, input)
	product.Stock = input.Stock
	if err := product.Validate(); err != nil {
		return nil, err
	}

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.productRepo.Create(ctx, product); err != nil {
			return err
		}
		if product.Stock == 0 {
			return nil
		}
		return s.productRepo.RecordMovement(ctx, &entity.StockMovement{
			ProductID:  product.ID,
			Delta:      product.Stock,
			Balance:    product.Stock,
			Reason:     enum.StockReasonCorrection,
			Reference:  "initial stock",
			OperatorID: input.OperatorID,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("product created", zap.String("sku", product.SKU), zap.Stringer("id", product.ID))
	return product, nil
}

// UpdateProduct updates the descriptive and pricing fields of a product.
// Stock only changes through AdjustStock.
func (s *CatalogService) UpdateProduct(ctx context.Context, id uuid.UUID, input *ProductInput) (*entity.Product, error) {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.apply(product, input)
	if err := product.Validate(); err != nil {
		return nil, err
	}
	if err := s.productRepo.Update(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

// DeleteProduct soft deletes a product. Past sales keep their snapshot.
func (s *CatalogService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	return s.productRepo.Delete(ctx, id)
}

// GetProductByID retrieves a product by ID
func (s *CatalogService) GetProductByID(ctx context.Context, id uuid.UUID) (*entity.Product, error) {
	return s.productRepo.GetByID(ctx, id)
}

// LookupByCode finds a product by barcode or SKU
func (s *CatalogService) LookupByCode(ctx context.Context, code string) (*entity.Product, error) {
	return s.productRepo.GetByCode(ctx, code)
}

// LookupByBarcode lets the cart resolve scanned codes
func (s *CatalogService) LookupByBarcode(ctx context.Context, code string) (*entity.Product, error) {
	return s.productRepo.GetByCode(ctx, code)
}

// GetProduct lets the cart refresh captured prices
func (s *CatalogService) GetProduct(ctx context.Context, id uuid.UUID) (*entity.Product, error) {
	return s.productRepo.GetByID(ctx, id)
}

// ListProducts lists products with filtering
func (s *CatalogService) ListProducts(ctx context.Context, params *repository.ProductFilterParams) (*pagination.PaginatedResult[entity.Product], error) {
	if params.Pagination == nil {
		params.Pagination = pagination.DefaultPagination()
	}
	products, total, err := s.productRepo.List(ctx, params)
	if err != nil {
		return nil, err
	}

	pag := pagination.NewPagination(params.Pagination.Page, params.Pagination.PerPage, total)
	return pagination.NewPaginatedResult(products, pag), nil
}

// GetLowStockProducts returns the products at or below their alert threshold
func (s *CatalogService) GetLowStockProducts(ctx context.Context) ([]entity.Product, error) {
	return s.productRepo.GetLowStock(ctx)
}

// AdjustStockInput represents a manual inventory adjustment
type AdjustStockInput struct {
	ProductID  uuid.UUID
	Delta      money.Quantity
	Reason     enum.StockReason
	Reference  string
	Note       string
	OperatorID *uuid.UUID
}

// AdjustStock applies a signed stock change outside of the sale flow and
// records the movement. Stock never goes negative.
func (s *CatalogService) AdjustStock(ctx context.Context, input *AdjustStockInput) (*entity.StockMovement, error) {
	if !input.Reason.IsManual() {
		return nil, fmt.Errorf("%w: reason %q is reserved for sales", errs.ErrInvalidAdjustment, input.Reason)
	}

	var change stockChange
	var movement *entity.StockMovement
	_, err := runInTx(ctx, s.tx, s.logger, "adjust_stock", func(ctx context.Context) error {
		var err error
		change, movement, err = s.applyDelta(ctx, input)
		return err
	})
	if err != nil {
		return nil, err
	}

	publishStockChanges(ctx, s.dispatcher, s.logger, []stockChange{change})
	return movement, nil
}

func (s *CatalogService) applyDelta(ctx context.Context, input *AdjustStockInput) (stockChange, *entity.StockMovement, error) {
	product, err := s.productRepo.GetByID(ctx, input.ProductID)
	if err != nil {
		return stockChange{}, nil, err
	}
	if err := product.ValidateDelta(input.Delta); err != nil {
		return stockChange{}, nil, err
	}

	updated, err := s.productRepo.AdjustStock(ctx, input.ProductID, input.Delta)
	if err != nil {
		return stockChange{}, nil, err
	}

	movement := &entity.StockMovement{
		ProductID:  updated.ID,
		Delta:      input.Delta,
		Balance:    updated.Stock,
		Reason:     input.Reason,
		Reference:  input.Reference,
		Note:       input.Note,
		OperatorID: input.OperatorID,
	}
	if err := s.productRepo.RecordMovement(ctx, movement); err != nil {
		return stockChange{}, nil, err
	}
	return stockChange{product: updated, delta: input.Delta, reason: input.Reason, reference: input.Reference}, movement, nil
}

// PurchaseLine is one received product of a purchase
type PurchaseLine struct {
	ProductID uuid.UUID
	Quantity  money.Quantity
}

// ReceivePurchaseInput represents goods received from a supplier
type ReceivePurchaseInput struct {
	Reference  string
	Note       string
	OperatorID *uuid.UUID
	Lines      []PurchaseLine
}

// ReceivePurchase increments the stock of every line in one transaction
func (s *CatalogService) ReceivePurchase(ctx context.Context, input *ReceivePurchaseInput) ([]entity.StockMovement, error) {
	if len(input.Lines) == 0 {
		return nil, fmt.Errorf("%w: purchase has no lines", errs.ErrInvalidAdjustment)
	}
	for _, l := range input.Lines {
		if l.Quantity <= 0 {
			return nil, fmt.Errorf("%w: received quantity must be positive", errs.ErrInvalidQuantity)
		}
	}

	var changes []stockChange
	var movements []entity.StockMovement
	_, err := runInTx(ctx, s.tx, s.logger, "receive_purchase", func(ctx context.Context) error {
		changes = changes[:0]
		movements = movements[:0]
		for _, l := range input.Lines {
			change, movement, err := s.applyDelta(ctx, &AdjustStockInput{
				ProductID:  l.ProductID,
				Delta:      l.Quantity,
				Reason:     enum.StockReasonPurchase,
				Reference:  input.Reference,
				Note:       input.Note,
				OperatorID: input.OperatorID,
			})
			if err != nil {
				return err
			}
			changes = append(changes, change)
			movements = append(movements, *movement)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("purchase received", zap.String("reference", input.Reference), zap.Int("lines", len(movements)))
	publishStockChanges(ctx, s.dispatcher, s.logger, changes)
	return movements, nil
}

// ListMovements lists the stock history of a product, newest first
func (s *CatalogService) ListMovements(ctx context.Context, productID uuid.UUID, params *pagination.CursorParams) (*pagination.CursorPaginatedResult[entity.StockMovement], error) {
	if _, err := s.productRepo.GetByID(ctx, productID); err != nil {
		return nil, err
	}
	if params == nil {
		params = pagination.DefaultCursorParams()
	}
	params.Validate()

	movements, err := s.productRepo.ListMovements(ctx, productID, params)
	if err != nil {
		return nil, err
	}

	pag, movements := pagination.NewCursorPagination(movements, params,
		func(m entity.StockMovement) string { return m.ID.String() },
		func(m entity.StockMovement) time.Time { return m.CreatedAt },
	)
	return pagination.NewCursorPaginatedResult(movements, pag), nil
}

// stockChange is a committed stock movement waiting to be published
type stockChange struct {
	product   *entity.Product
	delta     money.Quantity
	reason    enum.StockReason
	reference string
}

// crossedThreshold reports whether the movement took the product from above
// its alert threshold to at or below it
func (c stockChange) crossedThreshold() bool {
	if !c.product.IsLowStock() {
		return false
	}
	return c.product.Stock-c.delta > c.product.LowStockThreshold
}

// publishStockChanges emits StockChanged per product, plus LowStock for
// products that crossed their threshold. Delivery failures are logged only;
// the stock change is already committed.
func publishStockChanges(ctx context.Context, d event.Dispatcher, log *zap.Logger, changes []stockChange) {
	sort.SliceStable(changes, func(i, j int) bool {
		return changes[i].product.SKU < changes[j].product.SKU
	})
	at := now()
	for _, c := range changes {
		dispatch(ctx, d, log, event.StockChanged{
			ProductID: c.product.ID,
			SKU:       c.product.SKU,
			Delta:     c.delta,
			Stock:     c.product.Stock,
			Reason:    c.reason,
			Reference: c.reference,
			At:        at,
		})
		if c.crossedThreshold() {
			dispatch(ctx, d, log, event.LowStock{
				ProductID: c.product.ID,
				SKU:       c.product.SKU,
				Name:      c.product.Name,
				Stock:     c.product.Stock,
				Threshold: c.product.LowStockThreshold,
				At:        at,
			})
		}
	}
}

func dispatch(ctx context.Context, d event.Dispatcher, log *zap.Logger, e event.Event) {
	if d == nil {
		return
	}
	if err := d.Dispatch(ctx, e); err != nil {
		log.Warn("event dispatch failed", zap.String("event", e.Type()), zap.Error(err))
	}
}
