package models

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/mesflow-backend/pkg/enums"
)

// Sequence is the per-company counter behind readable document ids.
type Sequence struct {
	CompanyID uuid.UUID           `gorm:"column:company_id;type:uuid;primaryKey"`
	Table     enums.SequenceTable `gorm:"column:table_name;type:text;primaryKey"`
	Prefix    string              `gorm:"column:prefix;not null"`
	Suffix    string              `gorm:"column:suffix;not null"`
	Next      int64               `gorm:"column:next;not null"`
	Size      int                 `gorm:"column:size;not null"`
	Step      int64               `gorm:"column:step;not null"`
}
