package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/mesflow-backend/pkg/enums"
)

// Item is a part, material, tool or consumable.
type Item struct {
	ID                  uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	CompanyID           uuid.UUID                 `gorm:"column:company_id;type:uuid;not null"`
	ReadableID          string                    `gorm:"column:readable_id;not null"`
	Name                string                    `gorm:"column:name;not null"`
	Type                string                    `gorm:"column:type;not null"`
	ReplenishmentSystem enums.ReplenishmentSystem `gorm:"column:replenishment_system;type:text;not null"`
	DefaultMethodType   enums.MethodType          `gorm:"column:default_method_type;type:text;not null"`
	UnitOfMeasureCode   string                    `gorm:"column:unit_of_measure_code;not null"`
	Active              bool                      `gorm:"column:active;not null"`
	CreatedAt           time.Time                 `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time                 `gorm:"column:updated_at;autoUpdateTime"`
}

// ItemReplenishment holds the planning attributes settings admins maintain per item.
type ItemReplenishment struct {
	ItemID                      uuid.UUID           `gorm:"column:item_id;type:uuid;primaryKey"`
	CompanyID                   uuid.UUID           `gorm:"column:company_id;type:uuid;not null"`
	LeadTime                    int                 `gorm:"column:lead_time;not null"`
	ManufacturingLeadTime       int                 `gorm:"column:manufacturing_lead_time;not null"`
	LotSize                     decimal.Decimal     `gorm:"column:lot_size;type:numeric;not null"`
	LotSizingRule               enums.LotSizingRule `gorm:"column:lot_sizing_rule;type:text;not null"`
	PurchasingUnitOfMeasureCode *string             `gorm:"column:purchasing_unit_of_measure_code"`
	ConversionFactor            *decimal.Decimal    `gorm:"column:conversion_factor;type:numeric"`
	ManufacturingBlocked        bool                `gorm:"column:manufacturing_blocked;not null"`
	PurchasingBlocked           bool                `gorm:"column:purchasing_blocked;not null"`
	PreferredSupplierID         *uuid.UUID          `gorm:"column:preferred_supplier_id;type:uuid"`
	UpdatedAt                   time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// ItemCost carries the standard cost used as a price fallback.
type ItemCost struct {
	ItemID       uuid.UUID       `gorm:"column:item_id;type:uuid;primaryKey"`
	CompanyID    uuid.UUID       `gorm:"column:company_id;type:uuid;not null"`
	StandardCost decimal.Decimal `gorm:"column:standard_cost;type:numeric;not null"`
}

// SupplierPart is a supplier's offer for an item.
type SupplierPart struct {
	ID                        uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	CompanyID                 uuid.UUID        `gorm:"column:company_id;type:uuid;not null"`
	ItemID                    uuid.UUID        `gorm:"column:item_id;type:uuid;not null"`
	SupplierID                uuid.UUID        `gorm:"column:supplier_id;type:uuid;not null"`
	UnitPrice                 *decimal.Decimal `gorm:"column:unit_price;type:numeric"`
	SupplierUnitOfMeasureCode *string          `gorm:"column:supplier_unit_of_measure_code"`
	ConversionFactor          *decimal.Decimal `gorm:"column:conversion_factor;type:numeric"`
	MinimumOrderQuantity      *decimal.Decimal `gorm:"column:minimum_order_quantity;type:numeric"`
	CreatedAt                 time.Time        `gorm:"column:created_at;autoCreateTime"`
}
