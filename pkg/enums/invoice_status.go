package enums

import "fmt"

// InvoiceStatus tracks the invoice lifecycle. Drafts are never persisted;
// a stored invoice is either finalized or void.
type InvoiceStatus string

const (
	InvoiceStatusFinalized InvoiceStatus = "finalized"
	InvoiceStatusVoid      InvoiceStatus = "void"
)

var validInvoiceStatuses = []InvoiceStatus{
	InvoiceStatusFinalized,
	InvoiceStatusVoid,
}

// IsValid reports whether the value matches the canonical invoice status enum.
func (s InvoiceStatus) IsValid() bool {
	for _, candidate := range validInvoiceStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseInvoiceStatus converts raw input into InvoiceStatus.
func ParseInvoiceStatus(value string) (InvoiceStatus, error) {
	for _, candidate := range validInvoiceStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid invoice status %q", value)
}

func (s InvoiceStatus) String() string {
	return string(s)
}
