package service

import (
	"github.com/sangkips/pos-engine/internal/domain/entity"
)

const receiptDateLayout = "2006-01-02 15:04"

// BuildReceipt composes the receipt payload of a sale from the stored
// snapshot and the store settings
func BuildReceipt(sale *entity.Sale, settings *entity.StoreSettings) *entity.Receipt {
	receipt := &entity.Receipt{
		SaleID:        sale.ID,
		Number:        sale.Number,
		Kind:          sale.Kind,
		Date:          sale.CreatedAt.Format(receiptDateLayout),
		Cashier:       sale.OperatorName,
		PaymentMethod: sale.PaymentMethod,
		Items:         make([]entity.ReceiptItem, 0, len(sale.Lines)),
		Subtotal:      sale.Subtotal,
		Discount:      sale.Discount,
		Tax:           sale.Tax,
		Total:         sale.GrandTotal,
		Tendered:      sale.AmountTendered,
		Change:        sale.ChangeDue,
	}

	if settings != nil {
		receipt.Header = entity.ReceiptHeader{
			StoreName: settings.CompanyName,
			Address:   settings.Address,
			Phone:     settings.Phone,
			TaxID:     settings.TaxID,
		}
		receipt.CurrencySymbol = settings.CurrencySymbol
		receipt.Footer = settings.TicketFooter
	}

	for _, l := range sale.Lines {
		receipt.Items = append(receipt.Items, entity.ReceiptItem{
			Name:      l.Name,
			SKU:       l.SKU,
			UnitType:  l.UnitType,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			TaxRate:   l.TaxRate,
			Subtotal:  l.Subtotal,
			Tax:       l.Tax,
		})
	}
	return receipt
}
