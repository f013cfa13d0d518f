package entity

import "github.com/google/uuid"

// Operator is the cashier or manager performing an operation. Operators are
// authenticated elsewhere and arrive here as token claims.
type Operator struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Permissions []string  `json:"permissions,omitempty"`
}

// Can reports whether the operator holds permission
func (o Operator) Can(permission string) bool {
	for _, p := range o.Permissions {
		if p == permission || p == "*" {
			return true
		}
	}
	return false
}

// Permissions checked by the HTTP layer
const (
	PermissionCatalogWrite = "catalog:write"
	PermissionSalesVoid    = "sales:void"
	PermissionCashCutSeal  = "cashcut:seal"
)
