package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/mesflow-backend/pkg/enums"
)

// Kanban is a reusable replenishment signal for one item at one location.
type Kanban struct {
	ID                        uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	CompanyID                 uuid.UUID                 `gorm:"column:company_id;type:uuid;not null"`
	ItemID                    uuid.UUID                 `gorm:"column:item_id;type:uuid;not null"`
	LocationID                uuid.UUID                 `gorm:"column:location_id;type:uuid;not null"`
	ShelfID                   *uuid.UUID                `gorm:"column:shelf_id;type:uuid"`
	Quantity                  decimal.Decimal           `gorm:"column:quantity;type:numeric;not null"`
	ReplenishmentSystem       enums.ReplenishmentSystem `gorm:"column:replenishment_system;type:text;not null"`
	SupplierID                *uuid.UUID                `gorm:"column:supplier_id;type:uuid"`
	ConversionFactor          *decimal.Decimal          `gorm:"column:conversion_factor;type:numeric"`
	PurchaseUnitOfMeasureCode *string                   `gorm:"column:purchase_unit_of_measure_code"`
	AutoRelease               bool                      `gorm:"column:auto_release;not null"`
	Active                    bool                      `gorm:"column:active;not null"`
	CreatedAt                 time.Time                 `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt                 time.Time                 `gorm:"column:updated_at;autoUpdateTime"`
}
