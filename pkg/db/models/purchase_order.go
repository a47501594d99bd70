package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/mesflow-backend/pkg/enums"
)

// PurchaseOrder is a supplier order. Lines are appended while it is Draft or Planned.
type PurchaseOrder struct {
	ID              uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	CompanyID       uuid.UUID                 `gorm:"column:company_id;type:uuid;not null;uniqueIndex:ux_purchase_orders_company_readable"`
	PurchaseOrderID string                    `gorm:"column:purchase_order_id;not null;uniqueIndex:ux_purchase_orders_company_readable"`
	SupplierID      uuid.UUID                 `gorm:"column:supplier_id;type:uuid;not null"`
	LocationID      *uuid.UUID                `gorm:"column:location_id;type:uuid"`
	Status          enums.PurchaseOrderStatus `gorm:"column:status;type:text;not null"`
	OrderDate       *time.Time                `gorm:"column:order_date;type:date"`
	CreatedBy       uuid.UUID                 `gorm:"column:created_by;type:uuid;not null"`
	CreatedAt       time.Time                 `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time                 `gorm:"column:updated_at;autoUpdateTime"`
}

// PurchaseOrderLine is one requested item on a purchase order.
type PurchaseOrderLine struct {
	ID                         uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	CompanyID                  uuid.UUID       `gorm:"column:company_id;type:uuid;not null"`
	PurchaseOrderID            uuid.UUID       `gorm:"column:purchase_order_id;type:uuid;not null"`
	ItemID                     uuid.UUID       `gorm:"column:item_id;type:uuid;not null"`
	KanbanID                   *uuid.UUID      `gorm:"column:kanban_id;type:uuid"`
	LocationID                 *uuid.UUID      `gorm:"column:location_id;type:uuid"`
	ShelfID                    *uuid.UUID      `gorm:"column:shelf_id;type:uuid"`
	PurchaseQuantity           decimal.Decimal `gorm:"column:purchase_quantity;type:numeric;not null"`
	QuantityReceived           decimal.Decimal `gorm:"column:quantity_received;type:numeric;not null"`
	UnitPrice                  decimal.Decimal `gorm:"column:unit_price;type:numeric;not null"`
	ConversionFactor           decimal.Decimal `gorm:"column:conversion_factor;type:numeric;not null"`
	PurchaseUnitOfMeasureCode  *string         `gorm:"column:purchase_unit_of_measure_code"`
	InventoryUnitOfMeasureCode string          `gorm:"column:inventory_unit_of_measure_code;not null"`
	PromisedDate               *time.Time      `gorm:"column:promised_date;type:date"`
	CreatedBy                  uuid.UUID       `gorm:"column:created_by;type:uuid;not null"`
	CreatedAt                  time.Time       `gorm:"column:created_at;autoCreateTime"`
}

// OutstandingInventoryQuantity is the quantity still to be received, in inventory units.
func (l PurchaseOrderLine) OutstandingInventoryQuantity() decimal.Decimal {
	factor := l.ConversionFactor
	if factor.IsZero() {
		factor = decimal.NewFromInt(1)
	}
	outstanding := l.PurchaseQuantity.Sub(l.QuantityReceived)
	if outstanding.IsNegative() {
		return decimal.Zero
	}
	return outstanding.Mul(factor)
}
