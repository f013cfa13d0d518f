package request

// UpdateSettingsRequest represents the store settings form
type UpdateSettingsRequest struct {
	CompanyName    string `json:"company_name" binding:"required,max=255"`
	Address        string `json:"address" binding:"omitempty,max=255"`
	Phone          string `json:"phone" binding:"omitempty,max=50"`
	TaxID          string `json:"tax_id" binding:"omitempty,max=50"`
	TicketFooter   string `json:"ticket_footer" binding:"omitempty,max=255"`
	CurrencySymbol string `json:"currency_symbol" binding:"required,max=5"`
	CurrencyCode   string `json:"currency_code" binding:"omitempty,len=3"`
	PrintOnCommit  bool   `json:"print_on_commit"`
}
