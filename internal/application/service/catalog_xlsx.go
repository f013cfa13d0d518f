package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/sangkips/pos-engine/internal/domain/entity"
	"github.com/sangkips/pos-engine/internal/domain/enum"
	"github.com/sangkips/pos-engine/internal/domain/errs"
	"github.com/sangkips/pos-engine/internal/domain/repository"
	"github.com/sangkips/pos-engine/pkg/money"
	"github.com/sangkips/pos-engine/pkg/pagination"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const productSheet = "Products"

var productColumns = []string{
	"SKU",
	"Barcode",
	"Name",
	"Category",
	"Unit Type",
	"Quantity Scale",
	"Unit Price",
	"Tax Rate",
	"Stock",
	"Low Stock Threshold",
}

// ImportRowError describes a spreadsheet row that was skipped
type ImportRowError struct {
	Row     int    `json:"row"`
	SKU     string `json:"sku,omitempty"`
	Message string `json:"message"`
}

// ImportResult summarises a catalog import
type ImportResult struct {
	Created int              `json:"created"`
	Updated int              `json:"updated"`
	Skipped []ImportRowError `json:"skipped,omitempty"`
}

// ExportProducts writes the whole catalog as an xlsx workbook
func (s *CatalogService) ExportProducts(ctx context.Context, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", productSheet); err != nil {
		return err
	}
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	for i, h := range productColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(productSheet, cell, h)
		f.SetCellStyle(productSheet, cell, cell, headerStyle)
	}

	row := 2
	params := &repository.ProductFilterParams{
		Pagination: &pagination.PaginationParams{Page: 1, PerPage: 100},
		SortBy:     "sku",
	}
	for {
		products, total, err := s.productRepo.List(ctx, params)
		if err != nil {
			return err
		}
		for _, p := range products {
			barcode := ""
			if p.Barcode != nil {
				barcode = *p.Barcode
			}
			values := []interface{}{
				p.SKU,
				barcode,
				p.Name,
				p.Category,
				p.UnitType.String(),
				p.QuantityScale,
				p.UnitPrice.String(),
				p.TaxRate.String(),
				p.Stock.String(),
				p.LowStockThreshold.String(),
			}
			cell, _ := excelize.CoordinatesToCellName(1, row)
			if err := f.SetSheetRow(productSheet, cell, &values); err != nil {
				return err
			}
			row++
		}
		if int64(params.Pagination.Page*params.Pagination.PerPage) >= total {
			break
		}
		params.Pagination.Page++
	}

	f.SetPanes(productSheet, &excelize.Panes{Freeze: true, Split: true, YSplit: 1})
	_, err := f.WriteTo(w)
	return err
}

// ImportProducts reads a workbook laid out like ExportProducts and upserts
// each row by SKU. Invalid rows are skipped and reported; valid rows are
// applied in a single transaction. Stock differences are recorded as import
// movements.
func (s *CatalogService) ImportProducts(ctx context.Context, r io.Reader, operatorID *uuid.UUID) (*ImportResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: unreadable workbook: %v", errs.ErrInvalidProduct, err)
	}
	defer f.Close()

	sheet := productSheet
	if idx, _ := f.GetSheetIndex(sheet); idx < 0 {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{}
	var inputs []*ProductInput
	seen := make(map[string]int)
	for i, cols := range rows {
		if i == 0 || isBlankRow(cols) {
			continue
		}
		input, err := parseProductRow(cols)
		if err != nil {
			result.Skipped = append(result.Skipped, ImportRowError{Row: i + 1, SKU: cell(cols, 0), Message: err.Error()})
			continue
		}
		if prev, dup := seen[input.SKU]; dup {
			result.Skipped = append(result.Skipped, ImportRowError{Row: i + 1, SKU: input.SKU, Message: fmt.Sprintf("duplicate of row %d", prev)})
			continue
		}
		seen[input.SKU] = i + 1
		input.OperatorID = operatorID
		inputs = append(inputs, input)
	}

	var changes []stockChange
	_, err = runInTx(ctx, s.tx, s.logger, "import_products", func(ctx context.Context) error {
		result.Created, result.Updated, changes = 0, 0, changes[:0]
		for _, input := range inputs {
			change, created, err := s.upsert(ctx, input)
			if err != nil {
				return fmt.Errorf("sku %s: %w", input.SKU, err)
			}
			if created {
				result.Created++
			} else {
				result.Updated++
			}
			if change != nil {
				changes = append(changes, *change)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("catalog imported",
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
		zap.Int("skipped", len(result.Skipped)),
	)
	publishStockChanges(ctx, s.dispatcher, s.logger, changes)
	return result, nil
}

func (s *CatalogService) upsert(ctx context.Context, input *ProductInput) (*stockChange, bool, error) {
	existing, err := s.productRepo.GetBySKU(ctx, input.SKU)
	if err != nil && !errors.Is(err, errs.ErrProductNotFound) {
		return nil, false, err
	}

	if existing == nil {
		product := &entity.Product{}
		s.apply(product, input)
		product.Stock = input.Stock
		if err := product.Validate(); err != nil {
			return nil, false, err
		}
		if err := s.productRepo.Create(ctx, product); err != nil {
			return nil, false, err
		}
		if product.Stock == 0 {
			return nil, true, nil
		}
		err := s.productRepo.RecordMovement(ctx, &entity.StockMovement{
			ProductID:  product.ID,
			Delta:      product.Stock,
			Balance:    product.Stock,
			Reason:     enum.StockReasonImport,
			OperatorID: input.OperatorID,
		})
		return &stockChange{product: product, delta: product.Stock, reason: enum.StockReasonImport}, true, err
	}

	s.apply(existing, input)
	if err := existing.Validate(); err != nil {
		return nil, false, err
	}
	if err := s.productRepo.Update(ctx, existing); err != nil {
		return nil, false, err
	}
	delta := input.Stock - existing.Stock
	if delta == 0 {
		return nil, false, nil
	}
	change, _, err := s.applyDelta(ctx, &AdjustStockInput{
		ProductID:  existing.ID,
		Delta:      delta,
		Reason:     enum.StockReasonImport,
		OperatorID: input.OperatorID,
	})
	if err != nil {
		return nil, false, err
	}
	return &change, false, nil
}

func parseProductRow(cols []string) (*ProductInput, error) {
	input := &ProductInput{
		SKU:      cell(cols, 0),
		Barcode:  cell(cols, 1),
		Name:     cell(cols, 2),
		Category: cell(cols, 3),
		UnitType: enum.UnitType(strings.ToLower(cell(cols, 4))),
	}
	if input.UnitType == "" {
		input.UnitType = enum.UnitTypePiece
	}

	if v := cell(cols, 5); v != "" {
		scale, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("quantity scale %q is not a number", v)
		}
		s := int32(scale)
		input.QuantityScale = &s
	}

	var err error
	if input.UnitPrice, err = money.ParseAmount(orZero(cell(cols, 6))); err != nil {
		return nil, fmt.Errorf("unit price: %w", err)
	}
	if input.TaxRate, err = money.ParseRate(orZero(cell(cols, 7))); err != nil {
		return nil, fmt.Errorf("tax rate: %w", err)
	}
	if input.Stock, err = money.ParseQuantity(orZero(cell(cols, 8))); err != nil {
		return nil, fmt.Errorf("stock: %w", err)
	}
	if input.LowStockThreshold, err = money.ParseQuantity(orZero(cell(cols, 9))); err != nil {
		return nil, fmt.Errorf("low stock threshold: %w", err)
	}
	if input.SKU == "" {
		return nil, errors.New("sku is required")
	}
	return input, nil
}

func cell(cols []string, i int) string {
	if i < len(cols) {
		return strings.TrimSpace(cols[i])
	}
	return ""
}

func orZero(s string) string {
	if s == "" {
		return "0"
	}
	return s
}

func isBlankRow(cols []string) bool {
	for _, c := range cols {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
