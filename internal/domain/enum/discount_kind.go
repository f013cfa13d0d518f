package enum

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// DiscountKind is the shape of a cart-wide discount
type DiscountKind string

const (
	DiscountKindNone       DiscountKind = "none"
	DiscountKindPercentage DiscountKind = "percentage"
	DiscountKindFixed      DiscountKind = "fixed"
)

func (k DiscountKind) String() string {
	if k == "" {
		return string(DiscountKindNone)
	}
	return string(k)
}

func (k DiscountKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

func (k *DiscountKind) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	switch DiscountKind(str) {
	case "", DiscountKindNone:
		*k = DiscountKindNone
	case DiscountKindPercentage, DiscountKindFixed:
		*k = DiscountKind(str)
	default:
		return fmt.Errorf("unknown discount kind %q", str)
	}
	return nil
}

func (k DiscountKind) Value() (driver.Value, error) {
	return k.String(), nil
}

func (k *DiscountKind) Scan(value interface{}) error {
	if value == nil {
		*k = DiscountKindNone
		return nil
	}
	switch v := value.(type) {
	case string:
		*k = DiscountKind(v)
	case []byte:
		*k = DiscountKind(string(v))
	}
	return nil
}
