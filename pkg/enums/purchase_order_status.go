package enums

import "slices"

// PurchaseOrderStatus tracks the lifecycle of a supplier order.
type PurchaseOrderStatus string

const (
	PurchaseOrderStatusDraft               PurchaseOrderStatus = "Draft"
	PurchaseOrderStatusPlanned             PurchaseOrderStatus = "Planned"
	PurchaseOrderStatusToReview            PurchaseOrderStatus = "To Review"
	PurchaseOrderStatusToReceive           PurchaseOrderStatus = "To Receive"
	PurchaseOrderStatusToReceiveAndInvoice PurchaseOrderStatus = "To Receive and Invoice"
	PurchaseOrderStatusToInvoice           PurchaseOrderStatus = "To Invoice"
	PurchaseOrderStatusCompleted           PurchaseOrderStatus = "Completed"
	PurchaseOrderStatusClosed              PurchaseOrderStatus = "Closed"
	PurchaseOrderStatusRejected            PurchaseOrderStatus = "Rejected"
)

var validPurchaseOrderStatuses = []PurchaseOrderStatus{
	PurchaseOrderStatusDraft,
	PurchaseOrderStatusPlanned,
	PurchaseOrderStatusToReview,
	PurchaseOrderStatusToReceive,
	PurchaseOrderStatusToReceiveAndInvoice,
	PurchaseOrderStatusToInvoice,
	PurchaseOrderStatusCompleted,
	PurchaseOrderStatusClosed,
	PurchaseOrderStatusRejected,
}

func (s PurchaseOrderStatus) String() string {
	return string(s)
}

func (s PurchaseOrderStatus) IsValid() bool {
	return slices.Contains(validPurchaseOrderStatuses, s)
}

// ParsePurchaseOrderStatus converts raw input into a PurchaseOrderStatus.
func ParsePurchaseOrderStatus(value string) (PurchaseOrderStatus, error) {
	return parseEnum(validPurchaseOrderStatuses, value, "purchase order status")
}

// ReusablePurchaseOrderStatuses are the statuses in which new lines may be appended.
func ReusablePurchaseOrderStatuses() []PurchaseOrderStatus {
	return []PurchaseOrderStatus{PurchaseOrderStatusPlanned, PurchaseOrderStatusDraft}
}

// OpenPurchaseOrderStatuses are the statuses whose lines still count as incoming supply.
func OpenPurchaseOrderStatuses() []PurchaseOrderStatus {
	return []PurchaseOrderStatus{
		PurchaseOrderStatusDraft,
		PurchaseOrderStatusPlanned,
		PurchaseOrderStatusToReview,
		PurchaseOrderStatusToReceive,
		PurchaseOrderStatusToReceiveAndInvoice,
	}
}
