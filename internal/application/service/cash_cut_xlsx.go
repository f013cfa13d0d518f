package service

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

// ExportCut writes a sealed cut as an xlsx workbook with one sheet per
// breakdown
func (s *CashCutService) ExportCut(ctx context.Context, id uuid.UUID, w io.Writer) error {
	cut, err := s.cutRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	writeRows := func(sheet string, headers []string, rows [][]interface{}) error {
		for i, h := range headers {
			cell, _ := excelize.CoordinatesToCellName(i+1, 1)
			f.SetCellValue(sheet, cell, h)
			f.SetCellStyle(sheet, cell, cell, headerStyle)
		}
		for r, row := range rows {
			cell, _ := excelize.CoordinatesToCellName(1, r+2)
			if err := f.SetSheetRow(sheet, cell, &row); err != nil {
				return err
			}
		}
		return nil
	}

	sheetSummary := "Summary"
	if err := f.SetSheetName("Sheet1", sheetSummary); err != nil {
		return err
	}
	sealedAt := ""
	if cut.SealedAt != nil {
		sealedAt = cut.SealedAt.In(s.location).Format(time.RFC3339)
	}
	summary := [][]interface{}{
		{"Number", cut.Number},
		{"Window start", cut.WindowStart.In(s.location).Format(time.RFC3339)},
		{"Window end", cut.WindowEnd.In(s.location).Format(time.RFC3339)},
		{"Sales", cut.SaleCount},
		{"Voids", cut.VoidCount},
		{"Subtotal", cut.Subtotal.String()},
		{"Discount", cut.Discount.String()},
		{"Tax", cut.Tax.String()},
		{"Grand total", cut.GrandTotal.String()},
		{"Sealed at", sealedAt},
		{"Checksum", cut.Checksum},
	}
	if err := writeRows(sheetSummary, []string{"Field", "Value"}, summary); err != nil {
		return err
	}

	sheetPayments := "Payments"
	f.NewSheet(sheetPayments)
	payments := make([][]interface{}, 0, len(cut.Payments))
	for _, p := range cut.Payments {
		payments = append(payments, []interface{}{p.Method.String(), p.Count, p.Total.String()})
	}
	if err := writeRows(sheetPayments, []string{"Method", "Sales", "Total"}, payments); err != nil {
		return err
	}

	sheetCategories := "Categories"
	f.NewSheet(sheetCategories)
	categories := make([][]interface{}, 0, len(cut.Categories))
	for _, c := range cut.Categories {
		categories = append(categories, []interface{}{c.Category, c.Total.String()})
	}
	if err := writeRows(sheetCategories, []string{"Category", "Total"}, categories); err != nil {
		return err
	}

	sheetProducts := "Top products"
	f.NewSheet(sheetProducts)
	products := make([][]interface{}, 0, len(cut.TopProducts))
	for _, p := range cut.TopProducts {
		products = append(products, []interface{}{p.Rank, p.SKU, p.Name, p.Quantity.String(), p.Revenue.String()})
	}
	if err := writeRows(sheetProducts, []string{"Rank", "SKU", "Name", "Quantity", "Revenue"}, products); err != nil {
		return err
	}

	f.SetActiveSheet(0)
	_, err = f.WriteTo(w)
	return err
}
