package mrp

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/mesflow-backend/internal/repo"
	"github.com/angelmondragon/mesflow-backend/pkg/db/models"
	"github.com/angelmondragon/mesflow-backend/pkg/enums"
)

const upsertBatchSize = 200

// closedSalesStatuses are sales line statuses that no longer represent demand.
var closedSalesStatuses = []string{"Completed", "Closed", "Cancelled"}

// Filter restricts every read of a run. Nil or empty fields are unrestricted.
type Filter struct {
	CompanyID  uuid.UUID
	ItemIDs    []uuid.UUID
	LocationID *uuid.UUID
}

// Repository loads demand and supply and persists suggested actions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindJob(ctx context.Context, companyID, jobID uuid.UUID) (*models.Job, error)
	JobMaterialItems(ctx context.Context, companyID, jobID uuid.UUID) ([]uuid.UUID, error)
	SalesDemand(ctx context.Context, f Filter) ([]Movement, error)
	JobMaterialDemand(ctx context.Context, f Filter) ([]Movement, error)
	ForecastDemand(ctx context.Context, f Filter, from, to time.Time) ([]Movement, error)
	PurchaseSupply(ctx context.Context, f Filter) ([]Movement, error)
	JobSupply(ctx context.Context, f Filter) ([]Movement, error)
	Policies(ctx context.Context, companyID uuid.UUID, itemIDs []uuid.UUID) (map[uuid.UUID]Policy, error)
	UpsertSuggestions(ctx context.Context, rows []models.SuggestedAction) error
	Prune(ctx context.Context, f Filter, from, to time.Time, keep []Key) error
	Suggestions(ctx context.Context, f Filter) ([]models.SuggestedAction, error)
	CompanyIDs(ctx context.Context) ([]uuid.UUID, error)
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

func (r *repository) FindJob(ctx context.Context, companyID, jobID uuid.UUID) (*models.Job, error) {
	var job models.Job
	err := r.Scoped(ctx, companyID).Where("id = ?", jobID).First(&job).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &job, nil
}

func (r *repository) JobMaterialItems(ctx context.Context, companyID, jobID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.Scoped(ctx, companyID).
		Model(&models.JobMaterial{}).
		Where("job_id = ?", jobID).
		Distinct().
		Pluck("item_id", &ids).Error
	return ids, err
}

func (r *repository) SalesDemand(ctx context.Context, f Filter) ([]Movement, error) {
	var rows []struct {
		ItemID       uuid.UUID
		LocationID   uuid.UUID
		PromisedDate *time.Time
		Quantity     decimal.Decimal
		QuantitySent decimal.Decimal
	}
	err := apply(r.Scoped(ctx, f.CompanyID), f, "item_id", "location_id").
		Model(&models.SalesOrderLine{}).
		Select("item_id, location_id, promised_date, quantity, quantity_sent").
		Where("status NOT IN ? AND quantity > quantity_sent", closedSalesStatuses).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]Movement, 0, len(rows))
	for _, row := range rows {
		out = append(out, Movement{
			Key:      Key{ItemID: row.ItemID, LocationID: row.LocationID},
			Date:     row.PromisedDate,
			Quantity: row.Quantity.Sub(row.QuantitySent),
		})
	}
	return out, nil
}

// JobMaterialDemand counts outstanding components of open jobs, needed at the
// job start. Make materials are produced inside the job and carry no demand.
func (r *repository) JobMaterialDemand(ctx context.Context, f Filter) ([]Movement, error) {
	var rows []struct {
		ItemID            uuid.UUID
		LocationID        uuid.UUID
		StartDate         *time.Time
		DueDate           *time.Time
		EstimatedQuantity decimal.Decimal
		QuantityIssued    decimal.Decimal
	}
	query := r.DB(ctx).
		Table("job_materials").
		Select("job_materials.item_id, jobs.location_id, jobs.start_date, jobs.due_date, job_materials.estimated_quantity, job_materials.quantity_issued").
		Joins("JOIN jobs ON jobs.id = job_materials.job_id").
		Where("jobs.company_id = ? AND jobs.status IN ? AND job_materials.method_type <> ?", f.CompanyID, enums.OpenJobStatuses(), enums.MethodTypeMake)
	err := apply(query, f, "job_materials.item_id", "jobs.location_id").Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]Movement, 0, len(rows))
	for _, row := range rows {
		qty := row.EstimatedQuantity.Sub(row.QuantityIssued)
		if !qty.IsPositive() {
			continue
		}
		date := row.StartDate
		if date == nil {
			date = row.DueDate
		}
		out = append(out, Movement{Key: Key{ItemID: row.ItemID, LocationID: row.LocationID}, Date: date, Quantity: qty})
	}
	return out, nil
}

func (r *repository) ForecastDemand(ctx context.Context, f Filter, from, to time.Time) ([]Movement, error) {
	var rows []models.DemandForecast
	err := apply(r.Scoped(ctx, f.CompanyID), f, "item_id", "location_id").
		Where("period_start >= ? AND period_start < ?", from, to).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]Movement, 0, len(rows))
	for _, row := range rows {
		date := row.PeriodStart
		out = append(out, Movement{Key: Key{ItemID: row.ItemID, LocationID: row.LocationID}, Date: &date, Quantity: row.Quantity})
	}
	return out, nil
}

// PurchaseSupply converts outstanding PO line quantities to inventory units.
// A line without a location inherits the order's location.
func (r *repository) PurchaseSupply(ctx context.Context, f Filter) ([]Movement, error) {
	var rows []struct {
		models.PurchaseOrderLine
		OrderLocationID *uuid.UUID
	}
	query := r.DB(ctx).
		Table("purchase_order_lines").
		Select("purchase_order_lines.*, purchase_orders.location_id AS order_location_id").
		Joins("JOIN purchase_orders ON purchase_orders.id = purchase_order_lines.purchase_order_id").
		Where("purchase_orders.company_id = ? AND purchase_orders.status IN ?", f.CompanyID, enums.OpenPurchaseOrderStatuses())
	if len(f.ItemIDs) > 0 {
		query = query.Where("purchase_order_lines.item_id IN ?", f.ItemIDs)
	}
	if f.LocationID != nil {
		query = query.Where("COALESCE(purchase_order_lines.location_id, purchase_orders.location_id) = ?", *f.LocationID)
	}
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]Movement, 0, len(rows))
	for _, row := range rows {
		location := row.LocationID
		if location == nil {
			location = row.OrderLocationID
		}
		if location == nil {
			continue
		}
		qty := row.OutstandingInventoryQuantity()
		if !qty.IsPositive() {
			continue
		}
		out = append(out, Movement{Key: Key{ItemID: row.ItemID, LocationID: *location}, Date: row.PromisedDate, Quantity: qty})
	}
	return out, nil
}

func (r *repository) JobSupply(ctx context.Context, f Filter) ([]Movement, error) {
	var jobs []models.Job
	err := apply(r.Scoped(ctx, f.CompanyID), f, "item_id", "location_id").
		Where("status IN ?", enums.OpenJobStatuses()).
		Find(&jobs).Error
	if err != nil {
		return nil, err
	}
	out := make([]Movement, 0, len(jobs))
	for _, job := range jobs {
		qty := job.Quantity.Sub(job.QuantityComplete)
		if !qty.IsPositive() {
			continue
		}
		out = append(out, Movement{Key: Key{ItemID: job.ItemID, LocationID: job.LocationID}, Date: job.DueDate, Quantity: qty})
	}
	return out, nil
}

func (r *repository) Policies(ctx context.Context, companyID uuid.UUID, itemIDs []uuid.UUID) (map[uuid.UUID]Policy, error) {
	out := make(map[uuid.UUID]Policy, len(itemIDs))
	if len(itemIDs) == 0 {
		return out, nil
	}
	var items []models.Item
	if err := r.Scoped(ctx, companyID).Where("id IN ?", itemIDs).Find(&items).Error; err != nil {
		return nil, err
	}
	for _, item := range items {
		out[item.ID] = Policy{System: item.ReplenishmentSystem, Rule: enums.LotForLot}
	}
	var settings []models.ItemReplenishment
	if err := r.Scoped(ctx, companyID).Where("item_id IN ?", itemIDs).Find(&settings).Error; err != nil {
		return nil, err
	}
	for _, s := range settings {
		policy := out[s.ItemID]
		if s.LotSizingRule.IsValid() {
			policy.Rule = s.LotSizingRule
		}
		policy.LotSize = s.LotSize
		out[s.ItemID] = policy
	}
	return out, nil
}

func (r *repository) UpsertSuggestions(ctx context.Context, rows []models.SuggestedAction) error {
	if len(rows) == 0 {
		return nil
	}
	for i := range rows {
		if rows[i].ID == uuid.Nil {
			rows[i].ID = uuid.New()
		}
	}
	return r.DB(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "company_id"}, {Name: "item_id"}, {Name: "location_id"}, {Name: "period_start"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"gross_demand", "scheduled_supply", "projected_on_hand",
			"suggested_quantity", "action", "due_date", "calculated_at",
		}),
	}).CreateInBatches(&rows, upsertBatchSize).Error
}

// Prune drops suggestions a run no longer produces: periods outside
// [from, to) and item/location pairs missing from keep.
func (r *repository) Prune(ctx context.Context, f Filter, from, to time.Time, keep []Key) error {
	err := apply(r.Scoped(ctx, f.CompanyID), f, "item_id", "location_id").
		Where("period_start < ? OR period_start >= ?", from, to).
		Delete(&models.SuggestedAction{}).Error
	if err != nil {
		return err
	}

	var stored []Key
	err = apply(r.Scoped(ctx, f.CompanyID).Model(&models.SuggestedAction{}), f, "item_id", "location_id").
		Distinct("item_id", "location_id").
		Scan(&stored).Error
	if err != nil {
		return err
	}
	planned := make(map[Key]bool, len(keep))
	for _, key := range keep {
		planned[key] = true
	}
	for _, key := range stored {
		if planned[key] {
			continue
		}
		err := r.Scoped(ctx, f.CompanyID).
			Where("item_id = ? AND location_id = ?", key.ItemID, key.LocationID).
			Delete(&models.SuggestedAction{}).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *repository) Suggestions(ctx context.Context, f Filter) ([]models.SuggestedAction, error) {
	var rows []models.SuggestedAction
	err := apply(r.Scoped(ctx, f.CompanyID), f, "item_id", "location_id").
		Order("item_id ASC").
		Order("location_id ASC").
		Order("period_start ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) CompanyIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.DB(ctx).Model(&models.Company{}).Order("id ASC").Pluck("id", &ids).Error
	return ids, err
}

func apply(query *gorm.DB, f Filter, itemColumn, locationColumn string) *gorm.DB {
	if len(f.ItemIDs) > 0 {
		query = query.Where(itemColumn+" IN ?", f.ItemIDs)
	}
	if f.LocationID != nil {
		query = query.Where(locationColumn+" = ?", *f.LocationID)
	}
	return query
}
