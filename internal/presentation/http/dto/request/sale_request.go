package request

// VoidSaleRequest represents a request to void a sale
type VoidSaleRequest struct {
	Reason string `json:"reason" binding:"required,min=3,max=255"`
}

// SaleFilterRequest represents sale filter parameters. Dates are RFC 3339
// instants or YYYY-MM-DD business days.
type SaleFilterRequest struct {
	From          string `form:"from"`
	To            string `form:"to"`
	Kind          string `form:"kind" binding:"omitempty,oneof=sale void"`
	PaymentMethod string `form:"payment_method"`
	OperatorID    string `form:"operator_id" binding:"omitempty,uuid"`
	Page          int    `form:"page"`
	PerPage       int    `form:"per_page"`
}
