package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/mesflow-backend/pkg/enums"
)

// MakeMethod is the active bill of materials and operations for a Make item.
type MakeMethod struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	CompanyID uuid.UUID `gorm:"column:company_id;type:uuid;not null"`
	ItemID    uuid.UUID `gorm:"column:item_id;type:uuid;not null"`
	Version   int       `gorm:"column:version;not null"`
	Active    bool      `gorm:"column:active;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// MethodMaterial is one component line of a make method. When MethodType is
// Make, the component's own active make method is expanded beneath it.
type MethodMaterial struct {
	ID                uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	CompanyID         uuid.UUID        `gorm:"column:company_id;type:uuid;not null"`
	MakeMethodID      uuid.UUID        `gorm:"column:make_method_id;type:uuid;not null"`
	ItemID            uuid.UUID        `gorm:"column:item_id;type:uuid;not null"`
	MethodType        enums.MethodType `gorm:"column:method_type;type:text;not null"`
	Quantity          decimal.Decimal  `gorm:"column:quantity;type:numeric;not null"`
	UnitOfMeasureCode string           `gorm:"column:unit_of_measure_code;not null"`
	Order             int              `gorm:"column:sort_order;not null"`
}

// MethodOperation is one routing step of a make method.
type MethodOperation struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	CompanyID    uuid.UUID       `gorm:"column:company_id;type:uuid;not null"`
	MakeMethodID uuid.UUID       `gorm:"column:make_method_id;type:uuid;not null"`
	Order        int             `gorm:"column:sort_order;not null"`
	Description  string          `gorm:"column:description;not null"`
	ProcessID    *uuid.UUID      `gorm:"column:process_id;type:uuid"`
	SetupTime    decimal.Decimal `gorm:"column:setup_time;type:numeric;not null"`
	LaborTime    decimal.Decimal `gorm:"column:labor_time;type:numeric;not null"`
	MachineTime  decimal.Decimal `gorm:"column:machine_time;type:numeric;not null"`
}
