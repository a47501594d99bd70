package replenishment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/mesflow-backend/internal/methods"
	"github.com/angelmondragon/mesflow-backend/internal/sequences"
	"github.com/angelmondragon/mesflow-backend/internal/shelves"
	"github.com/angelmondragon/mesflow-backend/internal/tasks"
	"github.com/angelmondragon/mesflow-backend/pkg/db"
	"github.com/angelmondragon/mesflow-backend/pkg/db/models"
	"github.com/angelmondragon/mesflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/mesflow-backend/pkg/errors"
	"github.com/angelmondragon/mesflow-backend/pkg/logger"
	"github.com/angelmondragon/mesflow-backend/pkg/metrics"
	"github.com/angelmondragon/mesflow-backend/pkg/outbox/payloads"
)

// Document types returned to the caller.
const (
	DocumentJob           = "job"
	DocumentPurchaseOrder = "purchaseOrder"
)

type methodCopier interface {
	ItemToJob(ctx context.Context, input methods.ItemToJobInput) (*models.JobMakeMethod, error)
	DeleteJobTree(ctx context.Context, companyID, jobID uuid.UUID) error
}

// FulfillInput is one kanban scan.
type FulfillInput struct {
	KanbanID  uuid.UUID
	CompanyID uuid.UUID
	UserID    uuid.UUID
}

// DocumentRef points the caller at the document a scan produced.
type DocumentRef struct {
	Type       string    `json:"type"`
	ID         uuid.UUID `json:"id"`
	ReadableID string    `json:"readableId"`
	Redirect   string    `json:"redirect"`
}

// Fulfiller turns kanban scans into jobs or purchase order lines.
type Fulfiller interface {
	FulfillKanban(ctx context.Context, input FulfillInput) (*DocumentRef, error)
}

// ServiceParams wires a Service.
type ServiceParams struct {
	Repo      Repository
	Sequences sequences.Generator
	Methods   methodCopier
	Shelves   shelves.Resolver
	Tasks     tasks.Queue
	Logger    *logger.Logger
	Metrics   *metrics.EngineMetrics
	Now       func() time.Time
}

type Service struct {
	repo      Repository
	sequences sequences.Generator
	methods   methodCopier
	shelves   shelves.Resolver
	tasks     tasks.Queue
	logg      *logger.Logger
	metrics   *metrics.EngineMetrics
	now       func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Repo == nil:
		return nil, fmt.Errorf("replenishment repository required")
	case params.Sequences == nil:
		return nil, fmt.Errorf("sequence generator required")
	case params.Methods == nil:
		return nil, fmt.Errorf("method copier required")
	case params.Shelves == nil:
		return nil, fmt.Errorf("shelf resolver required")
	case params.Tasks == nil:
		return nil, fmt.Errorf("task queue required")
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:      params.Repo,
		sequences: params.Sequences,
		methods:   params.Methods,
		shelves:   params.Shelves,
		tasks:     params.Tasks,
		logg:      params.Logger,
		metrics:   params.Metrics,
		now:       now,
	}, nil
}

// FulfillKanban materializes one scan. The returned reference always points
// at a complete document; a failed step removes the rows this call created.
func (s *Service) FulfillKanban(ctx context.Context, input FulfillInput) (*DocumentRef, error) {
	if input.KanbanID == uuid.Nil || input.CompanyID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "kanban and company are required")
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"kanban_id":  input.KanbanID.String(),
		"company_id": input.CompanyID.String(),
		"user_id":    input.UserID.String(),
	})

	kanban, err := s.repo.FindKanban(ctx, input.KanbanID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load kanban")
	}
	if kanban == nil || !kanban.Active || kanban.CompanyID != input.CompanyID {
		return nil, pkgerrors.New(pkgerrors.CodeNotActive, "kanban is not active")
	}

	var ref *DocumentRef
	switch kanban.ReplenishmentSystem {
	case enums.ReplenishmentMake:
		ref, err = s.fulfillMake(ctx, input, kanban)
	case enums.ReplenishmentBuy:
		ref, err = s.fulfillBuy(ctx, input, kanban)
	default:
		return nil, pkgerrors.New(pkgerrors.CodeUnsupported, fmt.Sprintf("replenishment system %q is not supported", kanban.ReplenishmentSystem))
	}

	documentType := DocumentPurchaseOrder
	if kanban.ReplenishmentSystem == enums.ReplenishmentMake {
		documentType = DocumentJob
	}
	if err != nil {
		s.metrics.IncDocument(documentType, "failed")
		return nil, err
	}
	s.metrics.IncDocument(documentType, "created")
	return ref, nil
}

func (s *Service) today() time.Time {
	now := s.now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

func (s *Service) fulfillMake(ctx context.Context, input FulfillInput, kanban *models.Kanban) (*DocumentRef, error) {
	item, err := s.repo.FindItem(ctx, input.CompanyID, kanban.ItemID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load item")
	}
	if item == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
	}
	settings, err := s.repo.FindReplenishment(ctx, input.CompanyID, item.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load item replenishment")
	}
	leadTime, blocked := 0, false
	if settings != nil {
		leadTime = settings.ManufacturingLeadTime
		blocked = settings.ManufacturingBlocked
	}

	readableID, err := s.sequences.Next(ctx, enums.SequenceJob, input.CompanyID)
	if err != nil {
		return nil, err
	}

	start := s.today()
	due := start.AddDate(0, 0, leadTime)
	kanbanID := kanban.ID
	job := &models.Job{
		ID:                uuid.New(),
		CompanyID:         input.CompanyID,
		JobID:             readableID,
		ItemID:            item.ID,
		KanbanID:          &kanbanID,
		LocationID:        kanban.LocationID,
		ShelfID:           kanban.ShelfID,
		Quantity:          kanban.Quantity,
		ScrapQuantity:     decimal.Zero,
		QuantityComplete:  decimal.Zero,
		UnitOfMeasureCode: item.UnitOfMeasureCode,
		StartDate:         &start,
		DueDate:           &due,
		Status:            enums.JobStatusDraft,
		CreatedBy:         input.UserID,
	}
	if err := s.repo.CreateJob(ctx, job); err != nil {
		if db.IsUniqueViolation(err, "ux_jobs_company_job_id") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, fmt.Sprintf("job id %s already exists", job.JobID))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create job")
	}
	ctx = s.logg.WithDocument(ctx, DocumentJob, job.ID.String())

	_, err = s.methods.ItemToJob(ctx, methods.ItemToJobInput{
		CompanyID:          input.CompanyID,
		JobID:              job.ID,
		ItemID:             item.ID,
		ProductionQuantity: job.ProductionQuantity(),
	})
	if err != nil {
		s.compensate(ctx, "job_create", func(ctx context.Context) error {
			if err := s.methods.DeleteJobTree(ctx, input.CompanyID, job.ID); err != nil {
				return err
			}
			return s.repo.DeleteJob(ctx, input.CompanyID, job.ID)
		})
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "copy method tree")
	}

	if kanban.AutoRelease {
		s.autoRelease(ctx, input, job, blocked)
	}

	s.logg.Info(ctx, "kanban fulfilled with job")
	return &DocumentRef{
		Type:       DocumentJob,
		ID:         job.ID,
		ReadableID: job.JobID,
		Redirect:   JobPath(job.ID),
	}, nil
}

// autoRelease fires the release steps concurrently. Every failure is logged
// and none affects the created job. A blocked item keeps its job in Draft.
func (s *Service) autoRelease(ctx context.Context, input FulfillInput, job *models.Job, blocked bool) {
	jobID := job.ID
	steps := map[string]func(context.Context) error{
		"job_requirements": func(ctx context.Context) error {
			return s.tasks.EnqueueJobRequirements(ctx, input.CompanyID, jobID, input.UserID)
		},
		"mrp": func(ctx context.Context) error {
			return s.tasks.EnqueueMRP(ctx, payloads.MRPTask{CompanyID: input.CompanyID, UserID: input.UserID, JobID: &jobID})
		},
		"schedule": func(ctx context.Context) error {
			return s.tasks.EnqueueSchedule(ctx, input.CompanyID, jobID, input.UserID)
		},
	}
	if blocked {
		s.logg.Warn(ctx, "manufacturing blocked, job left in draft")
	} else {
		steps["release"] = func(ctx context.Context) error {
			return s.repo.ReleaseJob(ctx, input.CompanyID, jobID, input.UserID, s.now().UTC())
		}
	}
	var g errgroup.Group
	for name, step := range steps {
		g.Go(func() error {
			if err := step(ctx); err != nil {
				s.logg.Error(s.logg.WithField(ctx, "auto_release_step", name), "auto release step failed", err)
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (s *Service) fulfillBuy(ctx context.Context, input FulfillInput, kanban *models.Kanban) (*DocumentRef, error) {
	if kanban.SupplierID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "kanban has no supplier")
	}
	supplierID := *kanban.SupplierID

	item, err := s.repo.FindItem(ctx, input.CompanyID, kanban.ItemID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load item")
	}
	if item == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
	}
	settings, err := s.repo.FindReplenishment(ctx, input.CompanyID, item.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load item replenishment")
	}

	order, err := s.repo.FindReusablePurchaseOrder(ctx, input.CompanyID, supplierID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find open purchase order")
	}
	created := false
	if order == nil {
		readableID, err := s.sequences.Next(ctx, enums.SequencePurchaseOrder, input.CompanyID)
		if err != nil {
			return nil, err
		}
		today := s.today()
		location := kanban.LocationID
		order = &models.PurchaseOrder{
			ID:              uuid.New(),
			CompanyID:       input.CompanyID,
			PurchaseOrderID: readableID,
			SupplierID:      supplierID,
			LocationID:      &location,
			Status:          enums.PurchaseOrderStatusDraft,
			OrderDate:       &today,
			CreatedBy:       input.UserID,
		}
		if err := s.repo.CreatePurchaseOrder(ctx, order); err != nil {
			if db.IsUniqueViolation(err, "ux_purchase_orders_company_readable") {
				return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, fmt.Sprintf("purchase order id %s already exists", order.PurchaseOrderID))
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create purchase order")
		}
		created = true
	}
	ctx = s.logg.WithDocument(ctx, DocumentPurchaseOrder, order.ID.String())

	price, err := s.unitPrice(ctx, input.CompanyID, item.ID, supplierID)
	if err != nil {
		s.compensateOrder(ctx, created, order)
		return nil, err
	}

	shelfID, err := s.shelves.Resolve(ctx, input.CompanyID, item.ID, kanban.LocationID, kanban.ShelfID)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "shelf resolution failed, line left unassigned")
		shelfID = nil
	}

	location := kanban.LocationID
	kanbanID := kanban.ID
	line := &models.PurchaseOrderLine{
		ID:                         uuid.New(),
		CompanyID:                  input.CompanyID,
		PurchaseOrderID:            order.ID,
		ItemID:                     item.ID,
		KanbanID:                   &kanbanID,
		LocationID:                 &location,
		ShelfID:                    shelfID,
		PurchaseQuantity:           kanban.Quantity,
		QuantityReceived:           decimal.Zero,
		UnitPrice:                  price,
		ConversionFactor:           ConversionFactor(kanban, settings),
		PurchaseUnitOfMeasureCode:  purchaseUnit(kanban, settings),
		InventoryUnitOfMeasureCode: item.UnitOfMeasureCode,
		CreatedBy:                  input.UserID,
	}
	if err := s.repo.CreatePurchaseOrderLine(ctx, line); err != nil {
		s.compensateOrder(ctx, created, order)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create purchase order line")
	}

	itemID := item.ID
	if err := s.tasks.EnqueueMRP(ctx, payloads.MRPTask{
		CompanyID: input.CompanyID, UserID: input.UserID, ItemID: &itemID, LocationID: &location,
	}); err != nil {
		s.logg.Error(ctx, "enqueue mrp after purchase line failed", err)
	}

	s.logg.Info(s.logg.WithField(ctx, "reused_purchase_order", !created), "kanban fulfilled with purchase order line")
	return &DocumentRef{
		Type:       DocumentPurchaseOrder,
		ID:         order.ID,
		ReadableID: order.PurchaseOrderID,
		Redirect:   PurchaseOrderPath(order.ID),
	}, nil
}

// unitPrice prefers the supplier's price, then the item's standard cost, then zero.
func (s *Service) unitPrice(ctx context.Context, companyID, itemID, supplierID uuid.UUID) (decimal.Decimal, error) {
	price, err := s.repo.SupplierPrice(ctx, companyID, itemID, supplierID)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load supplier price")
	}
	if price != nil {
		return *price, nil
	}
	cost, err := s.repo.StandardCost(ctx, companyID, itemID)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load standard cost")
	}
	if cost != nil {
		return *cost, nil
	}
	return decimal.Zero, nil
}

// ConversionFactor prefers the kanban's factor, then the item's purchasing
// factor, then 1. Non-positive factors are ignored.
func ConversionFactor(kanban *models.Kanban, settings *models.ItemReplenishment) decimal.Decimal {
	if kanban != nil && kanban.ConversionFactor != nil && kanban.ConversionFactor.IsPositive() {
		return *kanban.ConversionFactor
	}
	if settings != nil && settings.ConversionFactor != nil && settings.ConversionFactor.IsPositive() {
		return *settings.ConversionFactor
	}
	return decimal.NewFromInt(1)
}

func purchaseUnit(kanban *models.Kanban, settings *models.ItemReplenishment) *string {
	if kanban.PurchaseUnitOfMeasureCode != nil {
		return kanban.PurchaseUnitOfMeasureCode
	}
	if settings != nil {
		return settings.PurchasingUnitOfMeasureCode
	}
	return nil
}

func (s *Service) compensateOrder(ctx context.Context, created bool, order *models.PurchaseOrder) {
	if !created {
		return
	}
	s.compensate(ctx, "purchase_order_create", func(ctx context.Context) error {
		return s.repo.DeletePurchaseOrder(ctx, order.CompanyID, order.ID)
	})
}

// compensate runs an undo step. A failed undo leaves an orphaned row behind
// and is logged with its own code so operators can reconcile it.
func (s *Service) compensate(ctx context.Context, operation string, undo func(context.Context) error) {
	if err := undo(ctx); err != nil {
		s.metrics.IncCompensation(operation, "failed")
		s.logg.Error(s.logg.WithFields(ctx, map[string]any{
			"operation":  operation,
			"error_code": string(pkgerrors.CodeCompensation),
		}), "compensation failed", err)
		return
	}
	s.metrics.IncCompensation(operation, "ok")
}

func JobPath(id uuid.UUID) string {
	return "/x/job/" + id.String()
}

func PurchaseOrderPath(id uuid.UUID) string {
	return "/x/purchase-order/" + id.String()
}
