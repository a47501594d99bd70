package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/mesflow-backend/pkg/enums"
)

// ItemLedgerEntry is an immutable signed quantity movement. On-hand stock is
// the sum of entries per item, location and shelf.
type ItemLedgerEntry struct {
	ID             uuid.UUID                    `gorm:"column:id;type:uuid;primaryKey"`
	CompanyID      uuid.UUID                    `gorm:"column:company_id;type:uuid;not null"`
	ItemID         uuid.UUID                    `gorm:"column:item_id;type:uuid;not null"`
	LocationID     uuid.UUID                    `gorm:"column:location_id;type:uuid;not null"`
	ShelfID        *uuid.UUID                   `gorm:"column:shelf_id;type:uuid"`
	Quantity       decimal.Decimal              `gorm:"column:quantity;type:numeric;not null"`
	EntryType      enums.ItemLedgerEntryType    `gorm:"column:entry_type;type:text;not null"`
	DocumentType   enums.ItemLedgerDocumentType `gorm:"column:document_type;type:text;not null"`
	DocumentID     uuid.UUID                    `gorm:"column:document_id;type:uuid;not null"`
	DocumentLineID *uuid.UUID                   `gorm:"column:document_line_id;type:uuid"`
	PostingDate    time.Time                    `gorm:"column:posting_date;type:date;not null"`
	CreatedBy      uuid.UUID                    `gorm:"column:created_by;type:uuid;not null"`
	CreatedAt      time.Time                    `gorm:"column:created_at;autoCreateTime"`
}
