package enums

import "slices"

// ReplenishmentSystem decides whether an item is produced in-house or bought.
type ReplenishmentSystem string

const (
	ReplenishmentBuy        ReplenishmentSystem = "Buy"
	ReplenishmentMake       ReplenishmentSystem = "Make"
	ReplenishmentBuyAndMake ReplenishmentSystem = "Buy and Make"
)

var validReplenishmentSystems = []ReplenishmentSystem{
	ReplenishmentBuy,
	ReplenishmentMake,
	ReplenishmentBuyAndMake,
}

func (r ReplenishmentSystem) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ReplenishmentSystem.
func (r ReplenishmentSystem) IsValid() bool {
	return slices.Contains(validReplenishmentSystems, r)
}

// ParseReplenishmentSystem converts raw input into a ReplenishmentSystem.
func ParseReplenishmentSystem(value string) (ReplenishmentSystem, error) {
	return parseEnum(validReplenishmentSystems, value, "replenishment system")
}
