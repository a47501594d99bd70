package shelves

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/mesflow-backend/internal/repo"
	"github.com/angelmondragon/mesflow-backend/pkg/db/models"
)

// Repository reads and writes pick method defaults.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindPickMethod(ctx context.Context, companyID, itemID, locationID uuid.UUID) (*models.PickMethod, error)
	SetDefaultIfUnset(ctx context.Context, companyID, itemID, locationID, shelfID uuid.UUID) (bool, error)
}

type repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{Base: r.Bind(tx)}
}

func (r *repository) FindPickMethod(ctx context.Context, companyID, itemID, locationID uuid.UUID) (*models.PickMethod, error) {
	var pm models.PickMethod
	err := r.Scoped(ctx, companyID).
		Where("item_id = ? AND location_id = ?", itemID, locationID).
		First(&pm).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &pm, nil
}

// SetDefaultIfUnset inserts the pick method or fills a null default. An
// existing non-null default is never overwritten.
func (r *repository) SetDefaultIfUnset(ctx context.Context, companyID, itemID, locationID, shelfID uuid.UUID) (bool, error) {
	row := models.PickMethod{
		ItemID:         itemID,
		LocationID:     locationID,
		CompanyID:      companyID,
		DefaultShelfID: &shelfID,
		UpdatedAt:      time.Now().UTC(),
	}
	res := r.DB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "item_id"}, {Name: "location_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"default_shelf_id", "updated_at"}),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Expr{SQL: "pick_methods.default_shelf_id IS NULL"},
		}},
	}).Create(&row)
	return res.RowsAffected > 0, res.Error
}
