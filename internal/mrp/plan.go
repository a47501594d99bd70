package mrp

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/mesflow-backend/pkg/db/models"
	"github.com/angelmondragon/mesflow-backend/pkg/enums"
)

const day = 24 * time.Hour

// Key identifies one planned item at one location.
type Key struct {
	ItemID     uuid.UUID
	LocationID uuid.UUID
}

// Movement is a dated quantity of demand or supply. A nil date or a date
// before the horizon lands in the first bucket.
type Movement struct {
	Key
	Date     *time.Time
	Quantity decimal.Decimal
}

// Policy carries the planning attributes of an item.
type Policy struct {
	System  enums.ReplenishmentSystem
	Rule    enums.LotSizingRule
	LotSize decimal.Decimal
}

// PlanInput is everything netting needs for one run.
type PlanInput struct {
	CompanyID    uuid.UUID
	Start        time.Time
	Weeks        int
	CalculatedAt time.Time
	Keys         []Key
	OnHand       map[Key]decimal.Decimal
	Demand       []Movement
	Supply       []Movement
	Policies     map[uuid.UUID]Policy
}

// WeekStart returns midnight UTC of the Monday of t's week.
func WeekStart(t time.Time) time.Time {
	t = t.UTC()
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(midnight.Weekday()) + 6) % 7
	return midnight.AddDate(0, 0, -offset)
}

// Plan nets demand against supply per key and weekly bucket. Output is sorted
// by item, location and period so identical input yields identical rows.
func Plan(in PlanInput) []models.SuggestedAction {
	if in.Weeks <= 0 || len(in.Keys) == 0 {
		return nil
	}
	start := WeekStart(in.Start)

	demand := bucketize(in.Demand, start, in.Weeks)
	supply := bucketize(in.Supply, start, in.Weeks)

	keys := uniqueKeys(in.Keys)

	out := make([]models.SuggestedAction, 0, len(keys)*in.Weeks)
	for _, key := range keys {
		policy := in.Policies[key.ItemID]
		projected := in.OnHand[key]
		for period := 0; period < in.Weeks; period++ {
			gross := at(demand, key, period)
			scheduled := at(supply, key, period)
			projected = projected.Add(scheduled).Sub(gross)

			suggested := decimal.Zero
			if projected.IsNegative() {
				suggested = LotSize(projected.Neg(), policy.Rule, policy.LotSize)
				projected = projected.Add(suggested)
			}

			periodStart := start.AddDate(0, 0, 7*period)
			row := models.SuggestedAction{
				CompanyID:         in.CompanyID,
				ItemID:            key.ItemID,
				LocationID:        key.LocationID,
				PeriodStart:       periodStart,
				GrossDemand:       gross,
				ScheduledSupply:   scheduled,
				ProjectedOnHand:   projected,
				SuggestedQuantity: suggested,
				Action:            enums.SuggestedActionNone,
				CalculatedAt:      in.CalculatedAt,
			}
			if suggested.IsPositive() {
				due := periodStart
				row.DueDate = &due
				row.Action = actionFor(policy.System)
			}
			out = append(out, row)
		}
	}
	return out
}

// LotSize turns a net shortage into an order quantity.
func LotSize(net decimal.Decimal, rule enums.LotSizingRule, lot decimal.Decimal) decimal.Decimal {
	if !net.IsPositive() {
		return decimal.Zero
	}
	switch rule {
	case enums.LotMinimumQty:
		if net.LessThan(lot) {
			return lot
		}
		return net
	case enums.LotStandardPack:
		if !lot.IsPositive() {
			return net
		}
		return net.Div(lot).Ceil().Mul(lot)
	default:
		return net
	}
}

func actionFor(system enums.ReplenishmentSystem) enums.SuggestedActionType {
	switch system {
	case enums.ReplenishmentMake, enums.ReplenishmentBuyAndMake:
		return enums.SuggestedActionMake
	default:
		return enums.SuggestedActionBuy
	}
}

func bucketize(moves []Movement, start time.Time, weeks int) map[Key][]decimal.Decimal {
	horizonEnd := start.AddDate(0, 0, 7*weeks)
	out := map[Key][]decimal.Decimal{}
	for _, mv := range moves {
		if mv.Quantity.IsZero() {
			continue
		}
		period := 0
		if mv.Date != nil {
			d := mv.Date.UTC()
			if !d.Before(horizonEnd) {
				continue
			}
			if d.After(start) {
				period = int(d.Sub(start) / (7 * day))
			}
		}
		buckets, ok := out[mv.Key]
		if !ok {
			buckets = make([]decimal.Decimal, weeks)
			out[mv.Key] = buckets
		}
		buckets[period] = buckets[period].Add(mv.Quantity)
	}
	return out
}

func at(buckets map[Key][]decimal.Decimal, key Key, period int) decimal.Decimal {
	if row, ok := buckets[key]; ok {
		return row[period]
	}
	return decimal.Zero
}

func uniqueKeys(in []Key) []Key {
	seen := make(map[Key]bool, len(in))
	keys := make([]Key, 0, len(in))
	for _, key := range in {
		if seen[key] {
			continue
		}
		seen[key] = true
		keys = append(keys, key)
	}
	sortKeys(keys)
	return keys
}

func sortKeys(keys []Key) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].ItemID != keys[j].ItemID {
			return keys[i].ItemID.String() < keys[j].ItemID.String()
		}
		return keys[i].LocationID.String() < keys[j].LocationID.String()
	})
}
