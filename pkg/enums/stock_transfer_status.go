package enums

import "slices"

// StockTransferStatus is derived from line completion.
type StockTransferStatus string

const (
	StockTransferStatusDraft      StockTransferStatus = "Draft"
	StockTransferStatusReleased   StockTransferStatus = "Released"
	StockTransferStatusInProgress StockTransferStatus = "In Progress"
	StockTransferStatusCompleted  StockTransferStatus = "Completed"
)

var validStockTransferStatuses = []StockTransferStatus{
	StockTransferStatusDraft,
	StockTransferStatusReleased,
	StockTransferStatusInProgress,
	StockTransferStatusCompleted,
}

func (s StockTransferStatus) IsValid() bool {
	return slices.Contains(validStockTransferStatuses, s)
}
