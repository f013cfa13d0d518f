package request

import (
	"github.com/sangkips/pos-engine/internal/domain/enum"
	"github.com/sangkips/pos-engine/pkg/money"
)

// ProductRequest represents a product creation or replacement request
type ProductRequest struct {
	SKU               string         `json:"sku" binding:"required,max=64"`
	Barcode           string         `json:"barcode" binding:"omitempty,max=64"`
	Name              string         `json:"name" binding:"required,min=1,max=255"`
	Category          string         `json:"category" binding:"omitempty,max=100"`
	UnitType          enum.UnitType  `json:"unit_type" binding:"required"`
	QuantityScale     *int32         `json:"quantity_scale" binding:"omitempty,min=0,max=3"`
	UnitPrice         money.Amount   `json:"unit_price"`
	TaxRate           money.Rate     `json:"tax_rate"`
	Stock             money.Quantity `json:"stock"`
	LowStockThreshold money.Quantity `json:"low_stock_threshold"`
}

// ProductFilterRequest represents product filter parameters
type ProductFilterRequest struct {
	Search    string `form:"search"`
	Category  string `form:"category"`
	LowStock  bool   `form:"low_stock"`
	SortBy    string `form:"sort_by"`
	SortOrder string `form:"sort_order" binding:"omitempty,oneof=asc desc ASC DESC"`
	Page      int    `form:"page"`
	PerPage   int    `form:"per_page"`
}

// AdjustStockRequest represents a manual stock adjustment
type AdjustStockRequest struct {
	Delta     money.Quantity   `json:"delta"`
	Reason    enum.StockReason `json:"reason" binding:"required"`
	Reference string           `json:"reference" binding:"omitempty,max=100"`
	Note      string           `json:"note" binding:"omitempty,max=255"`
}

// PurchaseLineRequest is one received product
type PurchaseLineRequest struct {
	ProductID string         `json:"product_id" binding:"required,uuid"`
	Quantity  money.Quantity `json:"quantity"`
}

// ReceivePurchaseRequest represents goods received from a supplier
type ReceivePurchaseRequest struct {
	Reference string                `json:"reference" binding:"omitempty,max=100"`
	Note      string                `json:"note" binding:"omitempty,max=255"`
	Lines     []PurchaseLineRequest `json:"lines" binding:"required,min=1,dive"`
}
