package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/sangkips/pos-engine/internal/domain/entity"
	"github.com/sangkips/pos-engine/internal/domain/enum"
	"github.com/sangkips/pos-engine/internal/domain/errs"
	"github.com/sangkips/pos-engine/internal/domain/event"
	"github.com/sangkips/pos-engine/internal/domain/repository"
	"github.com/sangkips/pos-engine/pkg/money"
	"github.com/sangkips/pos-engine/pkg/pagination"
	"go.uber.org/zap"
)

// topProductsLimit is the length of the ranked product list of a cut
const topProductsLimit = 10

// CashCutService aggregates committed sales into daily cash cuts
type CashCutService struct {
	tx         repository.Transactor
	saleRepo   repository.SaleRepository
	cutRepo    repository.CashCutRepository
	dispatcher event.Dispatcher
	logger     *zap.Logger
	location   *time.Location
	dayStart   time.Duration
}

// NewCashCutService creates a new cash cut service. Business days open at
// dayStart after local midnight in location.
func NewCashCutService(
	tx repository.Transactor,
	saleRepo repository.SaleRepository,
	cutRepo repository.CashCutRepository,
	dispatcher event.Dispatcher,
	logger *zap.Logger,
	location *time.Location,
	dayStart time.Duration,
) *CashCutService {
	if location == nil {
		location = time.UTC
	}
	return &CashCutService{
		tx:         tx,
		saleRepo:   saleRepo,
		cutRepo:    cutRepo,
		dispatcher: dispatcher,
		logger:     logger.Named("cashcut"),
		location:   location,
		dayStart:   dayStart,
	}
}

// BusinessDay returns the window of the business day containing date
func (s *CashCutService) BusinessDay(date time.Time) entity.Window {
	local := date.In(s.location)
	if local.Sub(time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.location)) < s.dayStart {
		local = local.AddDate(0, 0, -1)
	}
	return entity.BusinessDay(local, s.location, s.dayStart)
}

// BusinessDate returns the window of the business day that opens on date,
// given as YYYY-MM-DD in the store timezone
func (s *CashCutService) BusinessDate(date string) (entity.Window, error) {
	d, err := time.ParseInLocation("2006-01-02", date, s.location)
	if err != nil {
		return entity.Window{}, fmt.Errorf("%w: %q is not a YYYY-MM-DD date", errs.ErrInvalidWindow, date)
	}
	return entity.BusinessDay(d, s.location, s.dayStart), nil
}

// ComputeCut builds a draft cut of the window from the sales committed so
// far. Nothing is stored; calling it again without new commits returns the
// same figures.
func (s *CashCutService) ComputeCut(ctx context.Context, window entity.Window) (*entity.CashCut, error) {
	window, err := entity.NewWindow(window.Start, window.End)
	if err != nil {
		return nil, err
	}
	sales, err := s.saleRepo.ListInWindow(ctx, window, false)
	if err != nil {
		return nil, err
	}
	return Aggregate(window, sales), nil
}

// SealCut aggregates the window and stores the result as an immutable cut.
// Sales committed after the seal are never added to it, even when their
// timestamp falls inside the window.
func (s *CashCutService) SealCut(ctx context.Context, window entity.Window, operator entity.Operator) (*entity.CashCut, error) {
	window, err := entity.NewWindow(window.Start, window.End)
	if err != nil {
		return nil, err
	}
	ctx = context.WithoutCancel(ctx)

	var cut *entity.CashCut
	_, err = runInTx(ctx, s.tx, s.logger, "seal_cash_cut", func(ctx context.Context) error {
		if err := s.cutRepo.LockSealing(ctx); err != nil {
			return err
		}
		existing, err := s.cutRepo.FindOverlapping(ctx, window)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%w: %s covers %s", errs.ErrAlreadySealed, existing.Number, existing.Window())
		}

		sales, err := s.saleRepo.ListInWindow(ctx, window, true)
		if err != nil {
			return err
		}

		cut = Aggregate(window, sales)
		sealedAt := now()
		sealedBy := operator.ID
		cut.ID = uuid.New()
		cut.Number = "CC-" + ulid.Make().String()
		cut.Status = enum.CashCutStatusSealed
		cut.SealedAt = &sealedAt
		cut.SealedBy = &sealedBy
		cut.Checksum = cut.ComputeChecksum()
		return s.cutRepo.Create(ctx, cut)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("cash cut sealed",
		zap.String("number", cut.Number),
		zap.Stringer("window", cut.Window()),
		zap.Int("sales", cut.SaleCount),
		zap.Int("voids", cut.VoidCount),
		zap.Stringer("grand_total", cut.GrandTotal),
	)
	dispatch(ctx, s.dispatcher, s.logger, event.CashCutSealed{
		CashCutID:  cut.ID,
		Number:     cut.Number,
		Start:      cut.WindowStart,
		End:        cut.WindowEnd,
		SaleCount:  cut.SaleCount,
		GrandTotal: cut.GrandTotal,
		Checksum:   cut.Checksum,
		At:         *cut.SealedAt,
	})
	return cut, nil
}

// GetCut retrieves a sealed cut
func (s *CashCutService) GetCut(ctx context.Context, id uuid.UUID) (*entity.CashCut, error) {
	return s.cutRepo.GetByID(ctx, id)
}

// ListCuts lists sealed cuts, newest window first
func (s *CashCutService) ListCuts(ctx context.Context, params *pagination.PaginationParams) (*pagination.PaginatedResult[entity.CashCut], error) {
	if params == nil {
		params = pagination.DefaultPagination()
	}
	cuts, total, err := s.cutRepo.List(ctx, params)
	if err != nil {
		return nil, err
	}
	pag := pagination.NewPagination(params.Page, params.PerPage, total)
	return pagination.NewPaginatedResult(cuts, pag), nil
}

// VerifyResult reports whether a sealed cut still matches its checksum and
// the sales it was built from
type VerifyResult struct {
	CashCutID        uuid.UUID `json:"cash_cut_id"`
	Valid            bool      `json:"valid"`
	StoredChecksum   string    `json:"stored_checksum"`
	ComputedChecksum string    `json:"computed_checksum"`
	Problems         []string  `json:"problems,omitempty"`
}

// VerifyCut recomputes the checksum of the stored cut and re-aggregates the
// sales it includes
func (s *CashCutService) VerifyCut(ctx context.Context, id uuid.UUID) (*VerifyResult, error) {
	cut, err := s.cutRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	result := &VerifyResult{
		CashCutID:        cut.ID,
		StoredChecksum:   cut.Checksum,
		ComputedChecksum: cut.ComputeChecksum(),
	}
	if !cut.IsSealed() {
		result.Problems = append(result.Problems, "cut is not sealed")
	}
	if result.ComputedChecksum != cut.Checksum {
		result.Problems = append(result.Problems, "stored figures do not match the checksum")
	}

	sales, err := s.saleRepo.GetByIDs(ctx, cut.SaleIDs)
	if err != nil {
		return nil, err
	}
	if len(sales) != len(cut.SaleIDs) {
		result.Problems = append(result.Problems, fmt.Sprintf("%d of %d included sales are missing", len(cut.SaleIDs)-len(sales), len(cut.SaleIDs)))
	}

	rebuilt := Aggregate(cut.Window(), sales)
	rebuilt.SealedAt = cut.SealedAt
	rebuilt.SealedBy = cut.SealedBy
	if rebuilt.ComputeChecksum() != cut.Checksum {
		result.Problems = append(result.Problems, "included sales no longer add up to the sealed figures")
	}

	result.Valid = len(result.Problems) == 0
	if !result.Valid {
		s.logger.Warn("cash cut verification failed", zap.String("number", cut.Number), zap.Strings("problems", result.Problems))
	}
	return result, nil
}

// Aggregate builds a draft cut of window from sales. Voids carry negative
// figures, so every total is net of voids.
func Aggregate(window entity.Window, sales []entity.Sale) *entity.CashCut {
	cut := &entity.CashCut{
		Status:      enum.CashCutStatusDraft,
		WindowStart: window.Start,
		WindowEnd:   window.End,
		Payments:    []entity.CashCutPayment{},
		Categories:  []entity.CashCutCategory{},
		TopProducts: []entity.CashCutProduct{},
		SaleIDs:     make([]uuid.UUID, 0, len(sales)),
	}

	payments := make(map[enum.PaymentMethod]*entity.CashCutPayment)
	categories := make(map[string]money.Amount)
	products := make(map[uuid.UUID]*entity.CashCutProduct)

	for _, sale := range sales {
		if !window.Contains(sale.CreatedAt) {
			continue
		}
		cut.SaleIDs = append(cut.SaleIDs, sale.ID)
		if sale.IsVoid() {
			cut.VoidCount++
		} else {
			cut.SaleCount++
		}
		cut.Subtotal += sale.Subtotal
		cut.Discount += sale.Discount
		cut.Tax += sale.Tax
		cut.GrandTotal += sale.GrandTotal

		p, ok := payments[sale.PaymentMethod]
		if !ok {
			p = &entity.CashCutPayment{Method: sale.PaymentMethod}
			payments[sale.PaymentMethod] = p
		}
		if !sale.IsVoid() {
			p.Count++
		}
		p.Total += sale.GrandTotal

		for _, l := range sale.Lines {
			categories[l.Category] += l.Subtotal
			tp, ok := products[l.ProductID]
			if !ok {
				tp = &entity.CashCutProduct{ProductID: l.ProductID, SKU: l.SKU, Name: l.Name}
				products[l.ProductID] = tp
			}
			tp.Quantity += l.Quantity
			tp.Revenue += l.Subtotal
		}
	}

	for _, p := range payments {
		cut.Payments = append(cut.Payments, *p)
	}
	sort.Slice(cut.Payments, func(i, j int) bool { return cut.Payments[i].Method < cut.Payments[j].Method })

	for name, total := range categories {
		cut.Categories = append(cut.Categories, entity.CashCutCategory{Category: name, Total: total})
	}
	sort.Slice(cut.Categories, func(i, j int) bool {
		a, b := cut.Categories[i], cut.Categories[j]
		if a.Total != b.Total {
			return a.Total > b.Total
		}
		return a.Category < b.Category
	})

	ranked := make([]entity.CashCutProduct, 0, len(products))
	for _, p := range products {
		if p.Quantity == 0 && p.Revenue == 0 {
			continue // fully voided
		}
		ranked = append(ranked, *p)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Revenue != ranked[j].Revenue {
			return ranked[i].Revenue > ranked[j].Revenue
		}
		return ranked[i].ProductID.String() < ranked[j].ProductID.String()
	})
	if len(ranked) > topProductsLimit {
		ranked = ranked[:topProductsLimit]
	}
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	cut.TopProducts = ranked

	return cut
}
