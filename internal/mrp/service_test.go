package mrp

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/mesflow-backend/internal/ledger"
	"github.com/angelmondragon/mesflow-backend/pkg/db"
	"github.com/angelmondragon/mesflow-backend/pkg/db/dbtest"
	"github.com/angelmondragon/mesflow-backend/pkg/db/models"
	"github.com/angelmondragon/mesflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/mesflow-backend/pkg/errors"
	"github.com/angelmondragon/mesflow-backend/pkg/logger"
	"github.com/angelmondragon/mesflow-backend/pkg/metrics"
)

var clock = time.Date(2026, time.October, 14, 10, 0, 0, 0, time.UTC)

type fixture struct {
	db         *gorm.DB
	svc        *Service
	registry   *prometheus.Registry
	companyID  uuid.UUID
	itemID     uuid.UUID
	locationID uuid.UUID
}

func newFixture(t *testing.T, weeks int) fixture {
	t.Helper()
	conn := dbtest.Open(t)
	reg := prometheus.NewRegistry()
	svc, err := NewService(ServiceParams{
		DB:           db.Wrap(conn),
		Repo:         NewRepository(conn),
		Balances:     ledger.NewRepository(conn),
		Logger:       logger.New(logger.Options{Output: io.Discard}),
		Metrics:      metrics.NewEngineMetrics(reg),
		HorizonWeeks: weeks,
		Now:          func() time.Time { return clock },
	})
	require.NoError(t, err)
	f := fixture{db: conn, svc: svc, registry: reg, companyID: uuid.New(), itemID: uuid.New(), locationID: uuid.New()}
	f.company(t, f.companyID)
	f.item(t, f.itemID, enums.ReplenishmentBuy)
	return f
}

func (f fixture) company(t *testing.T, id uuid.UUID) {
	t.Helper()
	require.NoError(t, f.db.Create(&models.Company{ID: id, Name: "Acme"}).Error)
}

func (f fixture) item(t *testing.T, id uuid.UUID, system enums.ReplenishmentSystem) {
	t.Helper()
	require.NoError(t, f.db.Create(&models.Item{
		ID: id, CompanyID: f.companyID, ReadableID: id.String()[:8], Name: "Part", Type: "Part",
		ReplenishmentSystem: system, DefaultMethodType: enums.MethodTypeBuy, UnitOfMeasureCode: "EA", Active: true,
	}).Error)
	require.NoError(t, f.db.Create(&models.ItemReplenishment{
		ItemID: id, CompanyID: f.companyID, LotSizingRule: enums.LotForLot, LotSize: qty("0"),
	}).Error)
}

func (f fixture) onHand(t *testing.T, itemID uuid.UUID, amount string) {
	t.Helper()
	shelf := uuid.New()
	require.NoError(t, f.db.Create(&models.ItemLedgerEntry{
		ID: uuid.New(), CompanyID: f.companyID, ItemID: itemID, LocationID: f.locationID, ShelfID: &shelf,
		Quantity: qty(amount), EntryType: enums.LedgerEntryPositive, DocumentType: enums.LedgerDocumentPurchaseReceipt,
		DocumentID: uuid.New(), PostingDate: clock, CreatedBy: uuid.New(),
	}).Error)
}

func (f fixture) salesLine(t *testing.T, itemID uuid.UUID, quantity, sent string, promised *time.Time) {
	t.Helper()
	require.NoError(t, f.db.Create(&models.SalesOrderLine{
		ID: uuid.New(), CompanyID: f.companyID, ItemID: itemID, LocationID: f.locationID,
		Quantity: qty(quantity), QuantitySent: qty(sent), PromisedDate: promised, Status: "Confirmed",
	}).Error)
}

func (f fixture) scope() Scope {
	item, location := f.itemID, f.locationID
	return Scope{CompanyID: f.companyID, ItemID: &item, LocationID: &location}
}

func (f fixture) rows(t *testing.T) []models.SuggestedAction {
	t.Helper()
	rows, err := f.svc.Suggestions(context.Background(), f.scope())
	require.NoError(t, err)
	return rows
}

func TestRunNetsSalesPurchasesAndStock(t *testing.T) {
	f := newFixture(t, 4)
	ctx := context.Background()

	f.onHand(t, f.itemID, "4")
	f.salesLine(t, f.itemID, "12", "2", date(2026, time.October, 21))
	f.salesLine(t, f.itemID, "5", "0", nil)
	require.NoError(t, f.db.Model(&models.SalesOrderLine{}).Where("quantity = ?", 5).Update("status", "Closed").Error)

	po := models.PurchaseOrder{
		ID: uuid.New(), CompanyID: f.companyID, PurchaseOrderID: "PO000001", SupplierID: uuid.New(),
		LocationID: &f.locationID, Status: enums.PurchaseOrderStatusToReceive, CreatedBy: uuid.New(),
	}
	require.NoError(t, f.db.Create(&po).Error)
	require.NoError(t, f.db.Create(&models.PurchaseOrderLine{
		ID: uuid.New(), CompanyID: f.companyID, PurchaseOrderID: po.ID, ItemID: f.itemID,
		PurchaseQuantity: qty("2"), QuantityReceived: qty("0"), UnitPrice: qty("1"), ConversionFactor: qty("3"),
		InventoryUnitOfMeasureCode: "EA", PromisedDate: date(2026, time.October, 28), CreatedBy: uuid.New(),
	}).Error)

	result, err := f.svc.Run(ctx, f.scope())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Keys)
	assert.Equal(t, 4, result.Rows)
	assert.True(t, date(2026, time.October, 12).Equal(result.PeriodStart))

	rows := f.rows(t)
	require.Len(t, rows, 4)
	assert.True(t, qty("4").Equal(rows[0].ProjectedOnHand))
	assert.Equal(t, enums.SuggestedActionNone, rows[0].Action)

	assert.True(t, qty("10").Equal(rows[1].GrossDemand))
	assert.True(t, qty("6").Equal(rows[1].SuggestedQuantity))
	assert.Equal(t, enums.SuggestedActionBuy, rows[1].Action)

	assert.True(t, qty("6").Equal(rows[2].ScheduledSupply))
	assert.True(t, qty("6").Equal(rows[2].ProjectedOnHand))
	assert.True(t, qty("6").Equal(rows[3].ProjectedOnHand))

	series, err := testutil.GatherAndCount(f.registry, "mesflow_mrp_runs_total")
	require.NoError(t, err)
	assert.Equal(t, 1, series)
}

func TestRunIsIdempotentForUnchangedInput(t *testing.T) {
	f := newFixture(t, 6)
	ctx := context.Background()
	f.onHand(t, f.itemID, "3")
	f.salesLine(t, f.itemID, "9", "0", date(2026, time.November, 2))

	_, err := f.svc.Run(ctx, f.scope())
	require.NoError(t, err)
	first := render(f.rows(t))

	_, err = f.svc.Run(ctx, f.scope())
	require.NoError(t, err)
	second := f.rows(t)

	assert.Equal(t, first, render(second))
	var count int64
	require.NoError(t, f.db.Model(&models.SuggestedAction{}).Count(&count).Error)
	assert.EqualValues(t, 6, count)
}

func TestRunDropsPeriodsBeforeHorizon(t *testing.T) {
	f := newFixture(t, 2)
	stale := models.SuggestedAction{
		ID: uuid.New(), CompanyID: f.companyID, ItemID: f.itemID, LocationID: f.locationID,
		PeriodStart: *date(2026, time.September, 28), Action: enums.SuggestedActionNone, CalculatedAt: clock,
	}
	require.NoError(t, f.db.Create(&stale).Error)

	_, err := f.svc.Run(context.Background(), f.scope())
	require.NoError(t, err)

	rows := f.rows(t)
	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.NotEqual(t, stale.ID, row.ID)
	}
}

func TestRunJobScopeIncludesMaterials(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()
	component := uuid.New()
	f.item(t, component, enums.ReplenishmentBuy)

	job := models.Job{
		ID: uuid.New(), CompanyID: f.companyID, JobID: "J000001", ItemID: f.itemID, LocationID: f.locationID,
		Quantity: qty("5"), ScrapQuantity: qty("0"), QuantityComplete: qty("0"), UnitOfMeasureCode: "EA",
		StartDate: date(2026, time.October, 20), DueDate: date(2026, time.October, 28),
		Status: enums.JobStatusReady, CreatedBy: uuid.New(),
	}
	require.NoError(t, f.db.Create(&job).Error)
	jmm := models.JobMakeMethod{ID: uuid.New(), CompanyID: f.companyID, JobID: job.ID, ItemID: f.itemID, QuantityPerParent: qty("1")}
	require.NoError(t, f.db.Create(&jmm).Error)
	require.NoError(t, f.db.Create(&models.JobMaterial{
		ID: uuid.New(), CompanyID: f.companyID, JobID: job.ID, JobMakeMethodID: jmm.ID, ItemID: component,
		MethodType: enums.MethodTypeBuy, QuantityPerParent: qty("2"), EstimatedQuantity: qty("10"),
		QuantityIssued: qty("4"), UnitOfMeasureCode: "EA",
	}).Error)

	result, err := f.svc.Run(ctx, Scope{CompanyID: f.companyID, JobID: &job.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Keys)
	assert.Equal(t, 6, result.Rows)

	var componentRows []models.SuggestedAction
	require.NoError(t, f.db.Where("item_id = ?", component).Order("period_start ASC").Find(&componentRows).Error)
	require.Len(t, componentRows, 3)
	assert.True(t, qty("6").Equal(componentRows[1].GrossDemand))
	assert.True(t, qty("6").Equal(componentRows[1].SuggestedQuantity))

	var productRows []models.SuggestedAction
	require.NoError(t, f.db.Where("item_id = ?", f.itemID).Order("period_start ASC").Find(&productRows).Error)
	require.Len(t, productRows, 3)
	assert.True(t, qty("5").Equal(productRows[2].ScheduledSupply))
}

func TestRunUnknownJobIsNotFound(t *testing.T) {
	f := newFixture(t, 2)
	missing := uuid.New()
	_, err := f.svc.Run(context.Background(), Scope{CompanyID: f.companyID, JobID: &missing})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestRunRequiresCompany(t *testing.T) {
	f := newFixture(t, 2)
	_, err := f.svc.Run(context.Background(), Scope{})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestSweepCompaniesPlansEveryCompany(t *testing.T) {
	f := newFixture(t, 2)
	f.onHand(t, f.itemID, "1")
	f.company(t, uuid.New())

	planned, err := f.svc.SweepCompanies(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, planned)
	assert.Len(t, f.rows(t), 2)
}

func TestSweepRemovesSuggestionsWhenDemandDisappears(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()
	f.salesLine(t, f.itemID, "10", "0", date(2026, time.October, 19))

	_, err := f.svc.SweepCompanies(ctx)
	require.NoError(t, err)
	rows := f.rows(t)
	require.Len(t, rows, 3)
	assert.Equal(t, enums.SuggestedActionBuy, rows[1].Action)

	require.NoError(t, f.db.Model(&models.SalesOrderLine{}).
		Where("item_id = ?", f.itemID).Update("status", "Cancelled").Error)
	_, err = f.svc.SweepCompanies(ctx)
	require.NoError(t, err)
	assert.Empty(t, f.rows(t))
}

func TestRunKeepsOtherKeysAndTrimsShrunkHorizon(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	other := uuid.New()
	f.item(t, other, enums.ReplenishmentBuy)
	f.onHand(t, f.itemID, "1")
	f.onHand(t, other, "1")

	beyond := models.SuggestedAction{
		ID: uuid.New(), CompanyID: f.companyID, ItemID: f.itemID, LocationID: f.locationID,
		PeriodStart: *date(2026, time.November, 30), Action: enums.SuggestedActionBuy, CalculatedAt: clock,
	}
	require.NoError(t, f.db.Create(&beyond).Error)

	_, err := f.svc.Run(ctx, Scope{CompanyID: f.companyID})
	require.NoError(t, err)

	assert.Len(t, f.rows(t), 2)
	var count int64
	require.NoError(t, f.db.Model(&models.SuggestedAction{}).Where("item_id = ?", other).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestScopeKind(t *testing.T) {
	id := uuid.New()
	assert.Equal(t, "job", Scope{JobID: &id, ItemID: &id}.Kind())
	assert.Equal(t, "item", Scope{ItemID: &id}.Kind())
	assert.Equal(t, "company", Scope{}.Kind())
}
