package enum

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// UnitType describes how a product is measured at the register
type UnitType string

const (
	UnitTypePiece  UnitType = "piece"
	UnitTypeWeight UnitType = "weight"
)

func (t UnitType) String() string {
	return string(t)
}

// IsValid reports whether t is a known unit type
func (t UnitType) IsValid() bool {
	return t == UnitTypePiece || t == UnitTypeWeight
}

func (t UnitType) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(t))
}

func (t *UnitType) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	v := UnitType(str)
	if !v.IsValid() {
		return fmt.Errorf("unknown unit type %q", str)
	}
	*t = v
	return nil
}

func (t UnitType) Value() (driver.Value, error) {
	return string(t), nil
}

func (t *UnitType) Scan(value interface{}) error {
	if value == nil {
		*t = UnitTypePiece
		return nil
	}
	switch v := value.(type) {
	case string:
		*t = UnitType(v)
	case []byte:
		*t = UnitType(string(v))
	}
	return nil
}
