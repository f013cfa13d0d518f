package request

// CashCutWindowRequest selects the window of a cash cut: either a business
// day (YYYY-MM-DD) or an explicit [start, end) pair of RFC 3339 instants.
// With neither, the current business day is used.
type CashCutWindowRequest struct {
	Date  string `form:"date" json:"date"`
	Start string `form:"start" json:"start"`
	End   string `form:"end" json:"end"`
}
