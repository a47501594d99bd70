package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/mesflow-backend/pkg/enums"
)

// SuggestedAction is one MRP output row, unique per company, item, location and period.
type SuggestedAction struct {
	ID                uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	CompanyID         uuid.UUID                 `gorm:"column:company_id;uniqueIndex:ux_suggested_actions_scope;type:uuid;not null"`
	ItemID            uuid.UUID                 `gorm:"column:item_id;uniqueIndex:ux_suggested_actions_scope;type:uuid;not null"`
	LocationID        uuid.UUID                 `gorm:"column:location_id;uniqueIndex:ux_suggested_actions_scope;type:uuid;not null"`
	PeriodStart       time.Time                 `gorm:"column:period_start;uniqueIndex:ux_suggested_actions_scope;type:date;not null"`
	GrossDemand       decimal.Decimal           `gorm:"column:gross_demand;type:numeric;not null"`
	ScheduledSupply   decimal.Decimal           `gorm:"column:scheduled_supply;type:numeric;not null"`
	ProjectedOnHand   decimal.Decimal           `gorm:"column:projected_on_hand;type:numeric;not null"`
	SuggestedQuantity decimal.Decimal           `gorm:"column:suggested_quantity;type:numeric;not null"`
	Action            enums.SuggestedActionType `gorm:"column:action;type:text;not null"`
	DueDate           *time.Time                `gorm:"column:due_date;type:date"`
	CalculatedAt      time.Time                 `gorm:"column:calculated_at;not null"`
}
