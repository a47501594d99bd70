package models

import (
	"time"

	"github.com/google/uuid"
)

// PickMethod stores the default shelf for an item at a location.
type PickMethod struct {
	ItemID         uuid.UUID  `gorm:"column:item_id;type:uuid;primaryKey"`
	LocationID     uuid.UUID  `gorm:"column:location_id;type:uuid;primaryKey"`
	CompanyID      uuid.UUID  `gorm:"column:company_id;type:uuid;not null"`
	DefaultShelfID *uuid.UUID `gorm:"column:default_shelf_id;type:uuid"`
	UpdatedAt      time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
