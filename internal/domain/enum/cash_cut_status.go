package enum

import (
	"database/sql/driver"
	"encoding/json"
)

// CashCutStatus is the lifecycle state of a cash cut. Draft cuts are previews
// and never stored; Sealed is terminal.
type CashCutStatus string

const (
	CashCutStatusDraft  CashCutStatus = "draft"
	CashCutStatusSealed CashCutStatus = "sealed"
)

func (s CashCutStatus) String() string {
	return string(s)
}

func (s CashCutStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(s))
}

func (s *CashCutStatus) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	*s = CashCutStatus(str)
	return nil
}

func (s CashCutStatus) Value() (driver.Value, error) {
	return string(s), nil
}

func (s *CashCutStatus) Scan(value interface{}) error {
	if value == nil {
		*s = CashCutStatusDraft
		return nil
	}
	switch v := value.(type) {
	case string:
		*s = CashCutStatus(v)
	case []byte:
		*s = CashCutStatus(string(v))
	}
	return nil
}
