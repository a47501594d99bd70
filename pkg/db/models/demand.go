package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SalesOrderLine is the slice of a sales line planning reads as open demand.
type SalesOrderLine struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	CompanyID    uuid.UUID       `gorm:"column:company_id;type:uuid;not null"`
	ItemID       uuid.UUID       `gorm:"column:item_id;type:uuid;not null"`
	LocationID   uuid.UUID       `gorm:"column:location_id;type:uuid;not null"`
	Quantity     decimal.Decimal `gorm:"column:quantity;type:numeric;not null"`
	QuantitySent decimal.Decimal `gorm:"column:quantity_sent;type:numeric;not null"`
	PromisedDate *time.Time      `gorm:"column:promised_date;type:date"`
	Status       string          `gorm:"column:status;not null"`
}

// DemandForecast is an externally computed forecast quantity for one period.
type DemandForecast struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	CompanyID   uuid.UUID       `gorm:"column:company_id;type:uuid;not null"`
	ItemID      uuid.UUID       `gorm:"column:item_id;type:uuid;not null"`
	LocationID  uuid.UUID       `gorm:"column:location_id;type:uuid;not null"`
	PeriodStart time.Time       `gorm:"column:period_start;type:date;not null"`
	Quantity    decimal.Decimal `gorm:"column:quantity;type:numeric;not null"`
}
