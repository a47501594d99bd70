package enums

// MethodType describes how a bill-of-material line is sourced.
type MethodType string

const (
	MethodTypeBuy  MethodType = "Buy"
	MethodTypeMake MethodType = "Make"
	MethodTypePick MethodType = "Pick"
)

func (m MethodType) IsValid() bool {
	switch m {
	case MethodTypeBuy, MethodTypeMake, MethodTypePick:
		return true
	default:
		return false
	}
}

// LotSizingRule rounds a net shortage into an orderable quantity.
type LotSizingRule string

const (
	LotForLot       LotSizingRule = "Lot for Lot"
	LotMinimumQty   LotSizingRule = "Minimum Quantity"
	LotStandardPack LotSizingRule = "Standard Pack"
)

func (l LotSizingRule) IsValid() bool {
	switch l {
	case LotForLot, LotMinimumQty, LotStandardPack:
		return true
	default:
		return false
	}
}

// SuggestedActionType is the planner recommendation for a period.
type SuggestedActionType string

const (
	SuggestedActionNone SuggestedActionType = "None"
	SuggestedActionMake SuggestedActionType = "Make"
	SuggestedActionBuy  SuggestedActionType = "Buy"
)
