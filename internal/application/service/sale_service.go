package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/sangkips/pos-engine/internal/domain/cart"
	"github.com/sangkips/pos-engine/internal/domain/entity"
	"github.com/sangkips/pos-engine/internal/domain/enum"
	"github.com/sangkips/pos-engine/internal/domain/errs"
	"github.com/sangkips/pos-engine/internal/domain/event"
	"github.com/sangkips/pos-engine/internal/domain/pricing"
	"github.com/sangkips/pos-engine/internal/domain/repository"
	"github.com/sangkips/pos-engine/pkg/money"
	"github.com/sangkips/pos-engine/pkg/pagination"
	"go.uber.org/zap"
)

// SaleService commits carts as immutable sales and manages their voids
type SaleService struct {
	tx           repository.Transactor
	productRepo  repository.ProductRepository
	saleRepo     repository.SaleRepository
	settingsRepo repository.SettingsRepository
	dispatcher   event.Dispatcher
	logger       *zap.Logger
	methods      map[enum.PaymentMethod]bool
}

// NewSaleService creates a new sale service accepting the given payment
// methods. An empty list accepts every known method.
func NewSaleService(
	tx repository.Transactor,
	productRepo repository.ProductRepository,
	saleRepo repository.SaleRepository,
	settingsRepo repository.SettingsRepository,
	dispatcher event.Dispatcher,
	logger *zap.Logger,
	methods []enum.PaymentMethod,
) *SaleService {
	if len(methods) == 0 {
		methods = enum.PaymentMethods
	}
	allowed := make(map[enum.PaymentMethod]bool, len(methods))
	for _, m := range methods {
		allowed[m] = true
	}
	return &SaleService{
		tx:           tx,
		productRepo:  productRepo,
		saleRepo:     saleRepo,
		settingsRepo: settingsRepo,
		dispatcher:   dispatcher,
		logger:       logger.Named("sales"),
		methods:      allowed,
	}
}

// PaymentInput represents how the customer pays
type PaymentInput struct {
	Method         enum.PaymentMethod
	AmountTendered money.Amount
}

// CommitInput represents a cart ready to be committed
type CommitInput struct {
	Cart     cart.Snapshot
	Payment  PaymentInput
	Operator entity.Operator
	Note     string
}

// CommitResult is the committed sale and its receipt payload
type CommitResult struct {
	Sale    *entity.Sale    `json:"sale"`
	Receipt *entity.Receipt `json:"receipt"`
}

// Commit validates the cart against the catalog, decrements stock and stores
// the sale in one transaction. Either everything is applied or nothing is.
//
// Cancellation of ctx is honoured only until the transaction starts; from
// then on the commit runs to completion or full rollback. A transient
// conflict is retried once. Every failure is returned as *errs.CommitError
// wrapping the cause, so errors.Is and errors.As reach InsufficientStock,
// PriceChanged and the other domain errors.
func (s *SaleService) Commit(ctx context.Context, input *CommitInput) (*CommitResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, &errs.CommitError{Attempts: 0, Err: err}
	}
	if len(input.Cart.Lines) == 0 {
		return nil, &errs.CommitError{Attempts: 0, Err: errs.ErrEmptyCart}
	}
	tendered, change, err := s.settle(input.Payment, input.Cart.Totals.GrandTotal)
	if err != nil {
		return nil, &errs.CommitError{Attempts: 0, Err: err}
	}

	ctx = context.WithoutCancel(ctx)

	var sale *entity.Sale
	var changes []stockChange
	attempts, err := runInTx(ctx, s.tx, s.logger, "commit_sale", func(ctx context.Context) error {
		var err error
		sale, changes, err = s.commitOnce(ctx, input, tendered, change)
		return err
	})
	if err != nil {
		s.logger.Info("sale rejected",
			zap.Stringer("cart_id", input.Cart.ID),
			zap.Int("attempts", attempts),
			zap.Error(err),
		)
		return nil, &errs.CommitError{Attempts: attempts, Err: err}
	}

	s.logger.Info("sale committed",
		zap.String("number", sale.Number),
		zap.Stringer("grand_total", sale.GrandTotal),
		zap.String("payment_method", sale.PaymentMethod.String()),
		zap.Int("lines", len(sale.Lines)),
	)

	publishStockChanges(ctx, s.dispatcher, s.logger, changes)
	dispatch(ctx, s.dispatcher, s.logger, event.SaleCommitted{
		SaleID:        sale.ID,
		Number:        sale.Number,
		GrandTotal:    sale.GrandTotal,
		PaymentMethod: sale.PaymentMethod,
		OperatorID:    sale.OperatorID,
		LineCount:     len(sale.Lines),
		At:            sale.CreatedAt,
	})

	return &CommitResult{Sale: sale, Receipt: s.receipt(ctx, sale)}, nil
}

// settle validates the payment and returns the amount tendered and the change
func (s *SaleService) settle(p PaymentInput, total money.Amount) (money.Amount, money.Amount, error) {
	if !p.Method.IsValid() || !s.methods[p.Method] {
		return 0, 0, fmt.Errorf("%w: method %q is not accepted", errs.ErrInvalidPayment, p.Method)
	}
	if !p.Method.RequiresTender() {
		return total, 0, nil
	}
	if p.AmountTendered < total {
		return 0, 0, fmt.Errorf("%w: tendered %s, total %s", errs.ErrInsufficientPayment, p.AmountTendered, total)
	}
	return p.AmountTendered, p.AmountTendered - total, nil
}

func (s *SaleService) commitOnce(ctx context.Context, input *CommitInput, tendered, change money.Amount) (*entity.Sale, []stockChange, error) {
	snap := input.Cart
	createdAt := now()
	number := "S-" + ulid.Make().String()

	// Re-read every product and check the captured price and tax
	lines := make([]entity.SaleLine, len(snap.Lines))
	prices := make([]pricing.LinePrice, len(snap.Lines))
	reserve := make(map[uuid.UUID]money.Quantity)
	for i, item := range snap.Lines {
		product, err := s.productRepo.GetByID(ctx, item.ProductID)
		if err != nil {
			return nil, nil, err
		}
		if err := product.ValidateQuantity(item.Quantity); err != nil {
			return nil, nil, err
		}
		if product.UnitPrice != item.UnitPrice {
			return nil, nil, &errs.PriceChangedError{
				ProductID: product.ID,
				SKU:       product.SKU,
				Field:     "unit_price",
				Displayed: item.UnitPrice.String(),
				Current:   product.UnitPrice.String(),
			}
		}
		if product.TaxRate != item.TaxRate {
			return nil, nil, &errs.PriceChangedError{
				ProductID: product.ID,
				SKU:       product.SKU,
				Field:     "tax_rate",
				Displayed: item.TaxRate.String(),
				Current:   product.TaxRate.String(),
			}
		}

		price, err := pricing.PriceProduct(product, item.Quantity)
		if err != nil {
			return nil, nil, err
		}
		prices[i] = price
		lines[i] = entity.SaleLine{
			LineNo:    i + 1,
			ProductID: product.ID,
			SKU:       product.SKU,
			Name:      product.Name,
			Category:  product.Category,
			UnitType:  product.UnitType,
			Quantity:  item.Quantity,
			UnitPrice: product.UnitPrice,
			TaxRate:   product.TaxRate,
			Subtotal:  prices[i].Subtotal,
			Tax:       prices[i].Tax,
		}
		reserve[product.ID] += item.Quantity
	}

	// Recompute totals from current data and compare with what was displayed
	totals := pricing.Compute(prices, snap.Discount)
	if err := totals.CheckRange(); err != nil {
		return nil, nil, err
	}
	if totals != snap.Totals {
		return nil, nil, &errs.PriceChangedError{
			Field:     "grand_total",
			Displayed: snap.Totals.GrandTotal.String(),
			Current:   totals.GrandTotal.String(),
		}
	}

	// Reserve stock in a stable order so concurrent commits lock rows alike
	ids := make([]uuid.UUID, 0, len(reserve))
	for id := range reserve {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	changes := make([]stockChange, 0, len(ids))
	for _, id := range ids {
		qty := reserve[id]
		product, err := s.productRepo.ReserveAndDecrement(ctx, id, qty)
		if err != nil {
			return nil, nil, err
		}
		operatorID := input.Operator.ID
		if err := s.productRepo.RecordMovement(ctx, &entity.StockMovement{
			ProductID:  id,
			Delta:      -qty,
			Balance:    product.Stock,
			Reason:     enum.StockReasonSale,
			Reference:  number,
			OperatorID: &operatorID,
			CreatedAt:  createdAt,
		}); err != nil {
			return nil, nil, err
		}
		changes = append(changes, stockChange{product: product, delta: -qty, reason: enum.StockReasonSale, reference: number})
	}

	discount := snap.Discount
	sale := &entity.Sale{
		ID:             uuid.New(),
		Number:         number,
		Kind:           enum.SaleKindSale,
		OperatorID:     input.Operator.ID,
		OperatorName:   input.Operator.Name,
		PaymentMethod:  input.Payment.Method,
		DiscountKind:   discount.Kind,
		Subtotal:       totals.Subtotal,
		Discount:       totals.Discount,
		Tax:            totals.Tax,
		GrandTotal:     totals.GrandTotal,
		AmountTendered: tendered,
		ChangeDue:      change,
		Note:           input.Note,
		CreatedAt:      createdAt,
		Lines:          lines,
	}
	if discount.Kind == enum.DiscountKindPercentage {
		sale.DiscountRate = discount.Percent
	}
	if sale.DiscountKind == "" {
		sale.DiscountKind = enum.DiscountKindNone
	}
	if err := sale.CheckBalance(); err != nil {
		return nil, nil, err
	}
	if err := s.saleRepo.Create(ctx, sale); err != nil {
		return nil, nil, err
	}
	return sale, changes, nil
}

// VoidInput represents a request to void a sale
type VoidInput struct {
	SaleID   uuid.UUID
	Operator entity.Operator
	Reason   string
}

// VoidSale stores a compensating record that negates every line and total
// of the original sale and puts the sold quantities back in stock. A sale
// can be voided once; voids cannot be voided.
func (s *SaleService) VoidSale(ctx context.Context, input *VoidInput) (*entity.Sale, error) {
	ctx = context.WithoutCancel(ctx)

	var void *entity.Sale
	var changes []stockChange
	_, err := runInTx(ctx, s.tx, s.logger, "void_sale", func(ctx context.Context) error {
		var err error
		void, changes, err = s.voidOnce(ctx, input)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("sale voided",
		zap.String("number", void.Number),
		zap.Stringer("original_id", input.SaleID),
		zap.Stringer("grand_total", void.GrandTotal),
	)

	publishStockChanges(ctx, s.dispatcher, s.logger, changes)
	dispatch(ctx, s.dispatcher, s.logger, event.SaleVoided{
		VoidID:         void.ID,
		OriginalSaleID: input.SaleID,
		Number:         void.Number,
		GrandTotal:     void.GrandTotal,
		OperatorID:     void.OperatorID,
		At:             void.CreatedAt,
	})
	return void, nil
}

func (s *SaleService) voidOnce(ctx context.Context, input *VoidInput) (*entity.Sale, []stockChange, error) {
	original, err := s.saleRepo.GetByID(ctx, input.SaleID)
	if err != nil {
		return nil, nil, err
	}
	if original.IsVoid() {
		return nil, nil, fmt.Errorf("%w: %s is itself a void", errs.ErrNotVoidable, original.Number)
	}
	existing, err := s.saleRepo.GetVoidFor(ctx, original.ID)
	if err != nil {
		return nil, nil, err
	}
	if existing != nil {
		return nil, nil, fmt.Errorf("%w: %s by %s", errs.ErrAlreadyVoided, original.Number, existing.Number)
	}

	createdAt := now()
	number := "V-" + ulid.Make().String()
	operatorID := input.Operator.ID

	lines := make([]entity.SaleLine, len(original.Lines))
	restock := make(map[uuid.UUID]money.Quantity)
	for i, l := range original.Lines {
		lines[i] = entity.SaleLine{
			LineNo:    l.LineNo,
			ProductID: l.ProductID,
			SKU:       l.SKU,
			Name:      l.Name,
			Category:  l.Category,
			UnitType:  l.UnitType,
			Quantity:  -l.Quantity,
			UnitPrice: l.UnitPrice,
			TaxRate:   l.TaxRate,
			Subtotal:  -l.Subtotal,
			Tax:       -l.Tax,
		}
		restock[l.ProductID] += l.Quantity
	}

	ids := make([]uuid.UUID, 0, len(restock))
	for id := range restock {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	changes := make([]stockChange, 0, len(ids))
	for _, id := range ids {
		qty := restock[id]
		product, err := s.productRepo.AdjustStock(ctx, id, qty)
		if errors.Is(err, errs.ErrProductNotFound) {
			// Deleted from the catalog since; the void still stands
			s.logger.Warn("void of a product no longer in the catalog", zap.Stringer("product_id", id))
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		if err := s.productRepo.RecordMovement(ctx, &entity.StockMovement{
			ProductID:  id,
			Delta:      qty,
			Balance:    product.Stock,
			Reason:     enum.StockReasonVoid,
			Reference:  number,
			Note:       input.Reason,
			OperatorID: &operatorID,
			CreatedAt:  createdAt,
		}); err != nil {
			return nil, nil, err
		}
		changes = append(changes, stockChange{product: product, delta: qty, reason: enum.StockReasonVoid, reference: number})
	}

	originalID := original.ID
	void := &entity.Sale{
		ID:              uuid.New(),
		Number:          number,
		Kind:            enum.SaleKindVoid,
		ReferenceSaleID: &originalID,
		OperatorID:      operatorID,
		OperatorName:    input.Operator.Name,
		PaymentMethod:   original.PaymentMethod,
		DiscountKind:    original.DiscountKind,
		DiscountRate:    original.DiscountRate,
		Subtotal:        -original.Subtotal,
		Discount:        -original.Discount,
		Tax:             -original.Tax,
		GrandTotal:      -original.GrandTotal,
		AmountTendered:  -original.GrandTotal,
		ChangeDue:       0,
		Note:            input.Reason,
		CreatedAt:       createdAt,
		Lines:           lines,
	}
	if err := void.CheckBalance(); err != nil {
		return nil, nil, err
	}
	if err := s.saleRepo.Create(ctx, void); err != nil {
		return nil, nil, err
	}
	return void, changes, nil
}

// GetSale retrieves a sale with its lines
func (s *SaleService) GetSale(ctx context.Context, id uuid.UUID) (*entity.Sale, error) {
	return s.saleRepo.GetByID(ctx, id)
}

// GetSaleByNumber retrieves a sale by its receipt number
func (s *SaleService) GetSaleByNumber(ctx context.Context, number string) (*entity.Sale, error) {
	return s.saleRepo.GetByNumber(ctx, number)
}

// ListSales lists sales, newest first
func (s *SaleService) ListSales(ctx context.Context, params *repository.SaleFilterParams) (*pagination.PaginatedResult[entity.Sale], error) {
	if params.Pagination == nil {
		params.Pagination = pagination.DefaultPagination()
	}
	sales, total, err := s.saleRepo.List(ctx, params)
	if err != nil {
		return nil, err
	}
	pag := pagination.NewPagination(params.Pagination.Page, params.Pagination.PerPage, total)
	return pagination.NewPaginatedResult(sales, pag), nil
}

// GetReceipt rebuilds the receipt payload of a stored sale
func (s *SaleService) GetReceipt(ctx context.Context, id uuid.UUID) (*entity.Receipt, error) {
	sale, err := s.saleRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.receipt(ctx, sale), nil
}

func (s *SaleService) receipt(ctx context.Context, sale *entity.Sale) *entity.Receipt {
	settings, err := s.settingsRepo.Get(ctx)
	if err != nil {
		s.logger.Warn("store settings unavailable for receipt", zap.Error(err))
	}
	return BuildReceipt(sale, settings)
}
