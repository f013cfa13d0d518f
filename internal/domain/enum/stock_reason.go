package enum

import (
	"database/sql/driver"
	"encoding/json"
)

// StockReason records why a product's stock moved
type StockReason string

const (
	StockReasonSale       StockReason = "sale"
	StockReasonVoid       StockReason = "void"
	StockReasonPurchase   StockReason = "purchase"
	StockReasonCorrection StockReason = "correction"
	StockReasonImport     StockReason = "import"
)

func (r StockReason) String() string {
	return string(r)
}

// IsManual reports whether the reason may be used by an inventory adjustment
// made outside of the sale flow
func (r StockReason) IsManual() bool {
	return r == StockReasonPurchase || r == StockReasonCorrection || r == StockReasonImport
}

func (r StockReason) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(r))
}

func (r *StockReason) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	*r = StockReason(str)
	return nil
}

func (r StockReason) Value() (driver.Value, error) {
	return string(r), nil
}

func (r *StockReason) Scan(value interface{}) error {
	if value == nil {
		*r = StockReasonCorrection
		return nil
	}
	switch v := value.(type) {
	case string:
		*r = StockReason(v)
	case []byte:
		*r = StockReason(string(v))
	}
	return nil
}
