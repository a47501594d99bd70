package models

import (
	"time"

	"github.com/google/uuid"
)

// Company is the tenant every document and ledger row is scoped to.
type Company struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name      string    `gorm:"column:name;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
