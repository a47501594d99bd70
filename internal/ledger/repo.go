package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/mesflow-backend/internal/repo"
	"github.com/angelmondragon/mesflow-backend/pkg/db/models"
)

// ShelfBalance is the cumulative quantity of an item on one shelf.
type ShelfBalance struct {
	ShelfID  uuid.UUID
	Quantity decimal.Decimal
}

// Balance is the on-hand quantity of an item at a location across all shelves.
type Balance struct {
	ItemID     uuid.UUID
	LocationID uuid.UUID
	Quantity   decimal.Decimal
}

// BalanceFilter narrows OnHand to a company and optionally a set of items and a location.
type BalanceFilter struct {
	CompanyID  uuid.UUID
	ItemIDs    []uuid.UUID
	LocationID *uuid.UUID
}

// Repository manages persistence for item ledger entries. Entries are only
// ever inserted or, as compensation for an insert of the same call, deleted.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	InsertEntries(ctx context.Context, entries []models.ItemLedgerEntry) error
	DeleteEntries(ctx context.Context, companyID uuid.UUID, ids []uuid.UUID) (int64, error)
	SumByDocument(ctx context.Context, companyID, documentID uuid.UUID) (decimal.Decimal, error)
	PositiveShelfBalances(ctx context.Context, companyID, itemID, locationID uuid.UUID) ([]ShelfBalance, error)
	OnHand(ctx context.Context, filter BalanceFilter) ([]Balance, error)
}

type repository struct {
	repo.Base
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: repo.NewBase(tx)}
}

// InsertEntries writes every entry in a single INSERT statement.
func (r *repository) InsertEntries(ctx context.Context, entries []models.ItemLedgerEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return r.DB(ctx).Create(&entries).Error
}

func (r *repository) DeleteEntries(ctx context.Context, companyID uuid.UUID, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.DB(ctx).
		Where("company_id = ? AND id IN ?", companyID, ids).
		Delete(&models.ItemLedgerEntry{})
	return res.RowsAffected, res.Error
}

func (r *repository) SumByDocument(ctx context.Context, companyID, documentID uuid.UUID) (decimal.Decimal, error) {
	var row struct {
		Total decimal.NullDecimal
	}
	err := r.DB(ctx).
		Model(&models.ItemLedgerEntry{}).
		Select("SUM(quantity) AS total").
		Where("company_id = ? AND document_id = ?", companyID, documentID).
		Scan(&row).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !row.Total.Valid {
		return decimal.Zero, nil
	}
	return row.Total.Decimal, nil
}

// PositiveShelfBalances returns shelves holding a positive total, largest first.
// Entries without a shelf are ignored.
func (r *repository) PositiveShelfBalances(ctx context.Context, companyID, itemID, locationID uuid.UUID) ([]ShelfBalance, error) {
	var rows []ShelfBalance
	err := r.DB(ctx).
		Model(&models.ItemLedgerEntry{}).
		Select("shelf_id, SUM(quantity) AS quantity").
		Where("company_id = ? AND item_id = ? AND location_id = ? AND shelf_id IS NOT NULL", companyID, itemID, locationID).
		Group("shelf_id").
		Having("SUM(quantity) > 0").
		Order("quantity DESC").
		Order("shelf_id ASC").
		Scan(&rows).Error
	return rows, err
}

func (r *repository) OnHand(ctx context.Context, filter BalanceFilter) ([]Balance, error) {
	query := r.DB(ctx).
		Model(&models.ItemLedgerEntry{}).
		Select("item_id, location_id, SUM(quantity) AS quantity").
		Where("company_id = ?", filter.CompanyID)
	if len(filter.ItemIDs) > 0 {
		query = query.Where("item_id IN ?", filter.ItemIDs)
	}
	if filter.LocationID != nil {
		query = query.Where("location_id = ?", *filter.LocationID)
	}
	var rows []Balance
	err := query.
		Group("item_id, location_id").
		Order("item_id ASC").
		Order("location_id ASC").
		Scan(&rows).Error
	return rows, err
}
