package enum

import (
	"database/sql/driver"
	"encoding/json"
)

// SaleKind distinguishes regular sales from the compensating records that cancel them
type SaleKind string

const (
	SaleKindSale SaleKind = "sale"
	SaleKindVoid SaleKind = "void"
)

func (k SaleKind) String() string {
	return string(k)
}

func (k SaleKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(k))
}

func (k *SaleKind) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	*k = SaleKind(str)
	return nil
}

func (k SaleKind) Value() (driver.Value, error) {
	return string(k), nil
}

func (k *SaleKind) Scan(value interface{}) error {
	if value == nil {
		*k = SaleKindSale
		return nil
	}
	switch v := value.(type) {
	case string:
		*k = SaleKind(v)
	case []byte:
		*k = SaleKind(string(v))
	}
	return nil
}
