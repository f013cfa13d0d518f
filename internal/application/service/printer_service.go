package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sangkips/pos-engine/internal/domain/entity"
	"github.com/sangkips/pos-engine/internal/domain/enum"
	"github.com/sangkips/pos-engine/internal/domain/event"
	"github.com/sangkips/pos-engine/internal/domain/repository"
	"github.com/sangkips/pos-engine/pkg/money"
	"github.com/sangkips/pos-engine/pkg/printer"
	"go.uber.org/zap"
)

// PrinterService handles receipt formatting and thermal printing.
type PrinterService struct {
	printer      printer.Printer
	sales        *SaleService
	settingsRepo repository.SettingsRepository
	logger       *zap.Logger
	printerType  string
	paperWidth   int
}

// NewPrinterService creates a new printer service.
func NewPrinterService(
	p printer.Printer,
	sales *SaleService,
	settingsRepo repository.SettingsRepository,
	logger *zap.Logger,
	printerType string,
	paperWidth int,
) *PrinterService {
	return &PrinterService{
		printer:      p,
		sales:        sales,
		settingsRepo: settingsRepo,
		logger:       logger.Named("printer"),
		printerType:  printerType,
		paperWidth:   paperWidth,
	}
}

// PrinterStatus returns the current printer status information.
type PrinterStatus struct {
	Configured bool   `json:"configured"`
	Connected  bool   `json:"connected"`
	Type       string `json:"type"`
}

// GetStatus returns printer connection status.
func (s *PrinterService) GetStatus() *PrinterStatus {
	return &PrinterStatus{
		Configured: s.printerType != "none" && s.printerType != "",
		Connected:  s.printer.IsConnected(),
		Type:       s.printerType,
	}
}

// PrintSale rebuilds the receipt of a stored sale and sends it to the
// printer. The receipt is returned even when printing fails.
func (s *PrinterService) PrintSale(ctx context.Context, saleID uuid.UUID) (*entity.Receipt, error) {
	receipt, err := s.sales.GetReceipt(ctx, saleID)
	if err != nil {
		return nil, err
	}

	data := FormatReceipt(receipt, s.paperWidth)
	if err := s.printer.Print(data); err != nil {
		s.logger.Warn("print failed", zap.String("number", receipt.Number), zap.Error(err))
		return receipt, fmt.Errorf("failed to print receipt: %w", err)
	}
	return receipt, nil
}

// Subscribe prints every committed sale when the store settings ask for it
func (s *PrinterService) Subscribe(ctx context.Context, e event.Event) error {
	committed, ok := e.(event.SaleCommitted)
	if !ok {
		return nil
	}
	settings, err := s.settingsRepo.Get(ctx)
	if err != nil || settings == nil || !settings.PrintOnCommit {
		return err
	}
	_, err = s.PrintSale(ctx, committed.SaleID)
	return err
}

// FormatReceipt converts a Receipt into ESC/POS bytes.
func FormatReceipt(r *entity.Receipt, width int) []byte {
	doc := printer.NewDocument(width)
	amount := func(a money.Amount) string { return a.Format(r.CurrencySymbol) }

	// Header
	doc.SetAlign(printer.AlignCenter).
		SetBold(true).
		SetFontSize(printer.FontDouble).
		Text(r.Header.StoreName).
		SetFontSize(printer.FontNormal).
		SetBold(false)

	if r.Header.Address != "" {
		doc.Text(r.Header.Address)
	}
	if r.Header.Phone != "" {
		doc.Text(r.Header.Phone)
	}
	if r.Header.TaxID != "" {
		doc.TextF("Tax ID: %s", r.Header.TaxID)
	}
	if r.Kind == enum.SaleKindVoid {
		doc.SetBold(true).Text("*** VOID ***").SetBold(false)
	}

	doc.SetAlign(printer.AlignLeft).
		Separator('-')

	doc.KeyValue("Ticket:", r.Number).
		KeyValue("Date:", r.Date)
	if r.Cashier != "" {
		doc.KeyValue("Cashier:", r.Cashier)
	}
	doc.KeyValue("Payment:", r.PaymentMethod.String())

	doc.Separator('-')

	// Items
	for _, item := range r.Items {
		doc.ItemLine(item.Quantity.String(), item.Name, amount(item.Subtotal))
		if item.Quantity != money.Units(1) && item.Quantity != -money.Units(1) {
			doc.TextF("  @ %s each", amount(item.UnitPrice))
		}
	}

	doc.Separator('-')

	// Totals
	doc.KeyValue("Subtotal:", amount(r.Subtotal))
	if r.Discount != 0 {
		doc.KeyValue("Discount:", "-"+amount(r.Discount))
	}
	if r.Tax != 0 {
		doc.KeyValue("Tax:", amount(r.Tax))
	}
	doc.SetBold(true).
		KeyValue("TOTAL:", amount(r.Total)).
		SetBold(false)

	if r.Tendered != 0 {
		doc.KeyValue("Paid:", amount(r.Tendered))
	}
	if r.Change > 0 {
		doc.KeyValue("Change:", amount(r.Change))
	}

	doc.Separator('-')

	// Footer
	footer := r.Footer
	if footer == "" {
		footer = "Thank you for your purchase!"
	}
	doc.SetAlign(printer.AlignCenter).
		LineFeed().
		Text(footer).
		LineFeed().
		SetAlign(printer.AlignLeft)

	doc.FeedLines(3).
		PartialCut()

	return doc.Bytes()
}
