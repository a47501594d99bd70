package replenishment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/mesflow-backend/internal/repo"
	"github.com/angelmondragon/mesflow-backend/pkg/db/models"
	"github.com/angelmondragon/mesflow-backend/pkg/enums"
)

// Repository is the persistence the kanban engine needs. Finders return
// nil without error when no row matches.
type Repository interface {
	FindKanban(ctx context.Context, id uuid.UUID) (*models.Kanban, error)
	FindItem(ctx context.Context, companyID, itemID uuid.UUID) (*models.Item, error)
	FindReplenishment(ctx context.Context, companyID, itemID uuid.UUID) (*models.ItemReplenishment, error)
	CreateJob(ctx context.Context, job *models.Job) error
	DeleteJob(ctx context.Context, companyID, jobID uuid.UUID) error
	ReleaseJob(ctx context.Context, companyID, jobID, userID uuid.UUID, releasedAt time.Time) error
	FindReusablePurchaseOrder(ctx context.Context, companyID, supplierID uuid.UUID) (*models.PurchaseOrder, error)
	CreatePurchaseOrder(ctx context.Context, order *models.PurchaseOrder) error
	DeletePurchaseOrder(ctx context.Context, companyID, orderID uuid.UUID) error
	CreatePurchaseOrderLine(ctx context.Context, line *models.PurchaseOrderLine) error
	SupplierPrice(ctx context.Context, companyID, itemID, supplierID uuid.UUID) (*decimal.Decimal, error)
	StandardCost(ctx context.Context, companyID, itemID uuid.UUID) (*decimal.Decimal, error)
}

type repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func first[T any](query *gorm.DB) (*T, error) {
	var row T
	if err := query.First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *repository) FindKanban(ctx context.Context, id uuid.UUID) (*models.Kanban, error) {
	return first[models.Kanban](r.DB(ctx).Where("id = ?", id))
}

func (r *repository) FindItem(ctx context.Context, companyID, itemID uuid.UUID) (*models.Item, error) {
	return first[models.Item](r.Scoped(ctx, companyID).Where("id = ?", itemID))
}

func (r *repository) FindReplenishment(ctx context.Context, companyID, itemID uuid.UUID) (*models.ItemReplenishment, error) {
	return first[models.ItemReplenishment](r.Scoped(ctx, companyID).Where("item_id = ?", itemID))
}

func (r *repository) CreateJob(ctx context.Context, job *models.Job) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	return r.DB(ctx).Create(job).Error
}

func (r *repository) DeleteJob(ctx context.Context, companyID, jobID uuid.UUID) error {
	return r.Scoped(ctx, companyID).Where("id = ?", jobID).Delete(&models.Job{}).Error
}

// ReleaseJob moves a freshly created job to Ready. The status guard keeps a
// concurrent manual transition from being overwritten, and a job whose item
// is manufacturing blocked is never released.
func (r *repository) ReleaseJob(ctx context.Context, companyID, jobID, userID uuid.UUID, releasedAt time.Time) error {
	blocked := r.DB(ctx).
		Model(&models.ItemReplenishment{}).
		Select("1").
		Where("item_replenishments.item_id = jobs.item_id AND item_replenishments.company_id = jobs.company_id").
		Where("item_replenishments.manufacturing_blocked = ?", true)
	res := r.Scoped(ctx, companyID).
		Model(&models.Job{}).
		Where("id = ? AND status = ?", jobID, enums.JobStatusDraft).
		Where("NOT EXISTS (?)", blocked).
		Updates(map[string]any{
			"status":        enums.JobStatusReady,
			"released_date": releasedAt,
			"updated_by":    userID,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) FindReusablePurchaseOrder(ctx context.Context, companyID, supplierID uuid.UUID) (*models.PurchaseOrder, error) {
	return first[models.PurchaseOrder](r.Scoped(ctx, companyID).
		Where("supplier_id = ? AND status IN ?", supplierID, enums.ReusablePurchaseOrderStatuses()).
		Order("created_at DESC").
		Order("purchase_order_id DESC"))
}

func (r *repository) CreatePurchaseOrder(ctx context.Context, order *models.PurchaseOrder) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	return r.DB(ctx).Create(order).Error
}

func (r *repository) DeletePurchaseOrder(ctx context.Context, companyID, orderID uuid.UUID) error {
	return r.Scoped(ctx, companyID).Where("id = ?", orderID).Delete(&models.PurchaseOrder{}).Error
}

func (r *repository) CreatePurchaseOrderLine(ctx context.Context, line *models.PurchaseOrderLine) error {
	if line.ID == uuid.Nil {
		line.ID = uuid.New()
	}
	return r.DB(ctx).Create(line).Error
}

// SupplierPrice returns the supplier's unit price for the item, or nil when
// the supplier has no priced offer.
func (r *repository) SupplierPrice(ctx context.Context, companyID, itemID, supplierID uuid.UUID) (*decimal.Decimal, error) {
	part, err := first[models.SupplierPart](r.Scoped(ctx, companyID).
		Where("item_id = ? AND supplier_id = ? AND unit_price IS NOT NULL", itemID, supplierID).
		Order("created_at DESC"))
	if err != nil || part == nil {
		return nil, err
	}
	return part.UnitPrice, nil
}

func (r *repository) StandardCost(ctx context.Context, companyID, itemID uuid.UUID) (*decimal.Decimal, error) {
	cost, err := first[models.ItemCost](r.Scoped(ctx, companyID).Where("item_id = ?", itemID))
	if err != nil || cost == nil {
		return nil, err
	}
	return &cost.StandardCost, nil
}
