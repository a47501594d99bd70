package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/mesflow-backend/pkg/enums"
)

// StockTransfer is a directive to move stock between shelves of a location.
type StockTransfer struct {
	ID              uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	CompanyID       uuid.UUID                 `gorm:"column:company_id;type:uuid;not null"`
	StockTransferID string                    `gorm:"column:stock_transfer_id;not null"`
	LocationID      uuid.UUID                 `gorm:"column:location_id;type:uuid;not null"`
	Status          enums.StockTransferStatus `gorm:"column:status;type:text;not null"`
	CompletedAt     *time.Time                `gorm:"column:completed_at"`
	CreatedAt       time.Time                 `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time                 `gorm:"column:updated_at;autoUpdateTime"`
}

// StockTransferLine is one item movement of a transfer.
type StockTransferLine struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	CompanyID       uuid.UUID       `gorm:"column:company_id;type:uuid;not null"`
	StockTransferID uuid.UUID       `gorm:"column:stock_transfer_id;type:uuid;not null"`
	ItemID          uuid.UUID       `gorm:"column:item_id;type:uuid;not null"`
	LocationID      uuid.UUID       `gorm:"column:location_id;type:uuid;not null"`
	FromShelfID     *uuid.UUID      `gorm:"column:from_shelf_id;type:uuid"`
	ToShelfID       *uuid.UUID      `gorm:"column:to_shelf_id;type:uuid"`
	Quantity        decimal.Decimal `gorm:"column:quantity;type:numeric;not null"`
	PickedQuantity  decimal.Decimal `gorm:"column:picked_quantity;type:numeric;not null"`
	UpdatedBy       *uuid.UUID      `gorm:"column:updated_by;type:uuid"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
