package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/mesflow-backend/pkg/enums"
)

// Job is a manufacturing order.
type Job struct {
	ID                uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	CompanyID         uuid.UUID       `gorm:"column:company_id;type:uuid;not null;uniqueIndex:ux_jobs_company_job_id"`
	JobID             string          `gorm:"column:job_id;not null;uniqueIndex:ux_jobs_company_job_id"`
	ItemID            uuid.UUID       `gorm:"column:item_id;type:uuid;not null"`
	KanbanID          *uuid.UUID      `gorm:"column:kanban_id;type:uuid"`
	LocationID        uuid.UUID       `gorm:"column:location_id;type:uuid;not null"`
	ShelfID           *uuid.UUID      `gorm:"column:shelf_id;type:uuid"`
	Quantity          decimal.Decimal `gorm:"column:quantity;type:numeric;not null"`
	ScrapQuantity     decimal.Decimal `gorm:"column:scrap_quantity;type:numeric;not null"`
	QuantityComplete  decimal.Decimal `gorm:"column:quantity_complete;type:numeric;not null"`
	UnitOfMeasureCode string          `gorm:"column:unit_of_measure_code;not null"`
	StartDate         *time.Time      `gorm:"column:start_date;type:date"`
	DueDate           *time.Time      `gorm:"column:due_date;type:date"`
	ReleasedDate      *time.Time      `gorm:"column:released_date"`
	Status            enums.JobStatus `gorm:"column:status;type:text;not null"`
	Assignee          *uuid.UUID      `gorm:"column:assignee;type:uuid"`
	CreatedBy         uuid.UUID       `gorm:"column:created_by;type:uuid;not null"`
	UpdatedBy         *uuid.UUID      `gorm:"column:updated_by;type:uuid"`
	CreatedAt         time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// ProductionQuantity is the quantity the shop floor must start, scrap included.
func (j Job) ProductionQuantity() decimal.Decimal {
	return j.Quantity.Add(j.ScrapQuantity)
}

// JobMakeMethod is a node of the job's method tree. The root has no parent material.
type JobMakeMethod struct {
	ID                uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	CompanyID         uuid.UUID       `gorm:"column:company_id;type:uuid;not null"`
	JobID             uuid.UUID       `gorm:"column:job_id;type:uuid;not null"`
	ParentMaterialID  *uuid.UUID      `gorm:"column:parent_material_id;type:uuid"`
	ItemID            uuid.UUID       `gorm:"column:item_id;type:uuid;not null"`
	MakeMethodID      *uuid.UUID      `gorm:"column:make_method_id;type:uuid"`
	QuantityPerParent decimal.Decimal `gorm:"column:quantity_per_parent;type:numeric;not null"`
	CreatedAt         time.Time       `gorm:"column:created_at;autoCreateTime"`
}

// JobMaterial is a component requirement of a job make method.
type JobMaterial struct {
	ID                uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	CompanyID         uuid.UUID        `gorm:"column:company_id;type:uuid;not null"`
	JobID             uuid.UUID        `gorm:"column:job_id;type:uuid;not null"`
	JobMakeMethodID   uuid.UUID        `gorm:"column:job_make_method_id;type:uuid;not null"`
	ItemID            uuid.UUID        `gorm:"column:item_id;type:uuid;not null"`
	MethodType        enums.MethodType `gorm:"column:method_type;type:text;not null"`
	QuantityPerParent decimal.Decimal  `gorm:"column:quantity_per_parent;type:numeric;not null"`
	EstimatedQuantity decimal.Decimal  `gorm:"column:estimated_quantity;type:numeric;not null"`
	QuantityIssued    decimal.Decimal  `gorm:"column:quantity_issued;type:numeric;not null"`
	UnitOfMeasureCode string           `gorm:"column:unit_of_measure_code;not null"`
	ShelfID           *uuid.UUID       `gorm:"column:shelf_id;type:uuid"`
	Order             int              `gorm:"column:sort_order;not null"`
}

// JobOperation is a routing step copied from the item's method.
type JobOperation struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	CompanyID       uuid.UUID       `gorm:"column:company_id;type:uuid;not null"`
	JobID           uuid.UUID       `gorm:"column:job_id;type:uuid;not null"`
	JobMakeMethodID uuid.UUID       `gorm:"column:job_make_method_id;type:uuid;not null"`
	Order           int             `gorm:"column:sort_order;not null"`
	Description     string          `gorm:"column:description;not null"`
	ProcessID       *uuid.UUID      `gorm:"column:process_id;type:uuid"`
	SetupTime       decimal.Decimal `gorm:"column:setup_time;type:numeric;not null"`
	LaborTime       decimal.Decimal `gorm:"column:labor_time;type:numeric;not null"`
	MachineTime     decimal.Decimal `gorm:"column:machine_time;type:numeric;not null"`
	Status          string          `gorm:"column:status;not null"`
}
