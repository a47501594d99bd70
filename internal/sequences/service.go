package sequences

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/mesflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/mesflow-backend/pkg/errors"
)

const defaultSize = 6

// defaultPrefixes seed the counter row the first time a company asks for a
// document family.
var defaultPrefixes = map[enums.SequenceTable]string{
	enums.SequenceJob:           "J",
	enums.SequencePurchaseOrder: "PO",
	enums.SequenceStockTransfer: "ST",
}

// Generator issues readable document ids.
type Generator interface {
	Next(ctx context.Context, table enums.SequenceTable, companyID uuid.UUID) (string, error)
}

// Service issues readable ids from the per-company sequences table.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

type issued struct {
	Prefix string
	Suffix string
	Next   int64
	Size   int
}

// Next increments and returns the counter in one statement, so concurrent
// callers can never observe the same value.
func (s *Service) Next(ctx context.Context, table enums.SequenceTable, companyID uuid.UUID) (string, error) {
	if !table.IsValid() {
		return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown sequence %q", table))
	}
	if companyID == uuid.Nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "company id is required")
	}

	var row issued
	err := s.db.WithContext(ctx).Raw(`
INSERT INTO sequences (company_id, table_name, prefix, suffix, next, size, step)
VALUES (?, ?, ?, '', 1, ?, 1)
ON CONFLICT (company_id, table_name)
DO UPDATE SET next = sequences.next + sequences.step
RETURNING prefix, suffix, next, size`,
		companyID, string(table), defaultPrefixes[table], defaultSize,
	).Scan(&row).Error
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "allocate sequence")
	}
	if row.Next == 0 {
		return "", pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("sequence %s returned no value", table))
	}
	return Format(row.Prefix, row.Next, row.Size, row.Suffix), nil
}

// Format renders prefix + zero-padded value + suffix. Values wider than size
// are never truncated.
func Format(prefix string, value int64, size int, suffix string) string {
	digits := fmt.Sprintf("%d", value)
	if pad := size - len(digits); pad > 0 {
		digits = strings.Repeat("0", pad) + digits
	}
	return prefix + digits + suffix
}
