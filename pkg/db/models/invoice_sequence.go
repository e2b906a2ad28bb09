package models

// InvoiceSequence is the single persisted counter row behind invoice number
// allocation. Incremented with a row-locked UPDATE inside the invoice
// transaction; never derived from row counts, so voids and restarts cannot
// cause reuse.
type InvoiceSequence struct {
	ID         int   `gorm:"column:id;primaryKey"`
	NextNumber int64 `gorm:"column:next_number;not null"`
}

// InvoiceSequenceRowID is the fixed primary key of the only sequence row.
const InvoiceSequenceRowID = 1
