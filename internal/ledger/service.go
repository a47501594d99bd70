package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/mesflow-backend/pkg/db/models"
	"github.com/angelmondragon/mesflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/mesflow-backend/pkg/errors"
)

// Service records inventory movements.
type Service interface {
	WithTx(tx *gorm.DB) Service
	PostTransfer(ctx context.Context, input TransferInput) ([]models.ItemLedgerEntry, error)
	RemoveEntries(ctx context.Context, companyID uuid.UUID, ids []uuid.UUID) error
	DocumentBalance(ctx context.Context, companyID, documentID uuid.UUID) (decimal.Decimal, error)
}

// TransferInput describes a shelf-to-shelf move of one item inside a location.
// Quantity is signed: a negative value moves stock back to the source shelf.
type TransferInput struct {
	CompanyID      uuid.UUID
	ItemID         uuid.UUID
	LocationID     uuid.UUID
	FromShelfID    *uuid.UUID
	ToShelfID      *uuid.UUID
	Quantity       decimal.Decimal
	DocumentID     uuid.UUID
	DocumentLineID *uuid.UUID
	UserID         uuid.UUID
	PostingDate    time.Time
}

type service struct {
	repo Repository
	now  func() time.Time
}

// NewService wires a ledger service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

func (s *service) WithTx(tx *gorm.DB) Service {
	return &service{repo: s.repo.WithTx(tx), now: s.now}
}

// PostTransfer inserts the destination and source entries together. The
// returned entries sum to zero.
func (s *service) PostTransfer(ctx context.Context, input TransferInput) ([]models.ItemLedgerEntry, error) {
	if input.CompanyID == uuid.Nil || input.ItemID == uuid.Nil || input.LocationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "company, item and location are required")
	}
	if input.DocumentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "document id is required")
	}
	if input.Quantity.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transfer quantity must be non-zero")
	}
	posting := input.PostingDate
	if posting.IsZero() {
		posting = s.now().UTC()
	}
	posting = time.Date(posting.Year(), posting.Month(), posting.Day(), 0, 0, 0, 0, time.UTC)

	base := models.ItemLedgerEntry{
		CompanyID:      input.CompanyID,
		ItemID:         input.ItemID,
		LocationID:     input.LocationID,
		EntryType:      enums.LedgerEntryTransfer,
		DocumentType:   enums.LedgerDocumentDirectTransfer,
		DocumentID:     input.DocumentID,
		DocumentLineID: input.DocumentLineID,
		PostingDate:    posting,
		CreatedBy:      input.UserID,
	}
	inbound := base
	inbound.ID = uuid.New()
	inbound.ShelfID = input.ToShelfID
	inbound.Quantity = input.Quantity

	outbound := base
	outbound.ID = uuid.New()
	outbound.ShelfID = input.FromShelfID
	outbound.Quantity = input.Quantity.Neg()

	entries := []models.ItemLedgerEntry{inbound, outbound}
	if err := s.repo.InsertEntries(ctx, entries); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert ledger entries")
	}
	return entries, nil
}

// RemoveEntries deletes entries inserted earlier by the same operation. It
// fails when fewer rows than requested were removed.
func (s *service) RemoveEntries(ctx context.Context, companyID uuid.UUID, ids []uuid.UUID) error {
	removed, err := s.repo.DeleteEntries(ctx, companyID, ids)
	if err != nil {
		return err
	}
	if removed != int64(len(ids)) {
		return fmt.Errorf("removed %d of %d ledger entries", removed, len(ids))
	}
	return nil
}

func (s *service) DocumentBalance(ctx context.Context, companyID, documentID uuid.UUID) (decimal.Decimal, error) {
	return s.repo.SumByDocument(ctx, companyID, documentID)
}

// EntryIDs collects the ids of entries, in order.
func EntryIDs(entries []models.ItemLedgerEntry) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(entries))
	for _, entry := range entries {
		ids = append(ids, entry.ID)
	}
	return ids
}
