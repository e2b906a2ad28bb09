package enums

import "fmt"

// MovementKind maps to the kind column on stock_movements.
type MovementKind string

const (
	MovementKindPurchase   MovementKind = "purchase"
	MovementKindSale       MovementKind = "sale"
	MovementKindAdjustment MovementKind = "adjustment"
)

var validMovementKinds = []MovementKind{
	MovementKindPurchase,
	MovementKindSale,
	MovementKindAdjustment,
}

// IsValid reports whether the value matches the canonical movement kind enum.
func (k MovementKind) IsValid() bool {
	for _, candidate := range validMovementKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseMovementKind converts raw input into MovementKind.
func ParseMovementKind(value string) (MovementKind, error) {
	for _, candidate := range validMovementKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid movement kind %q", value)
}

func (k MovementKind) String() string {
	return string(k)
}
