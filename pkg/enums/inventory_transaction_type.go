package enums

import "fmt"

// InventoryTransactionType classifies an immutable stock-ledger row.
type InventoryTransactionType string

const (
	InventoryTransactionTypeSale    InventoryTransactionType = "sale"
	InventoryTransactionTypeRestock InventoryTransactionType = "restock"
	InventoryTransactionTypeRelease InventoryTransactionType = "release"
)

var validInventoryTransactionTypes = []InventoryTransactionType{
	InventoryTransactionTypeSale,
	InventoryTransactionTypeRestock,
	InventoryTransactionTypeRelease,
}

// IsValid reports whether the value is a known InventoryTransactionType.
func (t InventoryTransactionType) IsValid() bool {
	for _, candidate := range validInventoryTransactionTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseInventoryTransactionType converts raw input into an InventoryTransactionType.
func ParseInventoryTransactionType(value string) (InventoryTransactionType, error) {
	for _, candidate := range validInventoryTransactionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid inventory transaction type %q", value)
}
