package mrp

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/mesflow-backend/internal/ledger"
	"github.com/angelmondragon/mesflow-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/mesflow-backend/pkg/errors"
	"github.com/angelmondragon/mesflow-backend/pkg/logger"
	"github.com/angelmondragon/mesflow-backend/pkg/metrics"
)

// DefaultHorizonWeeks is used when no horizon is configured.
const DefaultHorizonWeeks = 48

// Scope selects what a run recalculates. JobID wins over item and location;
// with neither the whole company is planned.
type Scope struct {
	CompanyID  uuid.UUID
	ItemID     *uuid.UUID
	LocationID *uuid.UUID
	JobID      *uuid.UUID
}

// Kind names the scope for logs and metrics.
func (s Scope) Kind() string {
	switch {
	case s.JobID != nil:
		return "job"
	case s.ItemID != nil || s.LocationID != nil:
		return "item"
	default:
		return "company"
	}
}

// Result summarizes a completed run.
type Result struct {
	Scope       Scope
	PeriodStart time.Time
	Keys        int
	Rows        int
}

// Runner is the planning entry point used by the job state machine and task handlers.
type Runner interface {
	Run(ctx context.Context, scope Scope) (*Result, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type onHandReader interface {
	OnHand(ctx context.Context, filter ledger.BalanceFilter) ([]ledger.Balance, error)
}

// ServiceParams wires a Service.
type ServiceParams struct {
	DB           txRunner
	Repo         Repository
	Balances     onHandReader
	Logger       *logger.Logger
	Metrics      *metrics.EngineMetrics
	Exporter     Exporter
	HorizonWeeks int
	Now          func() time.Time
}

// Service recalculates suggested actions.
type Service struct {
	db       txRunner
	repo     Repository
	balances onHandReader
	logg     *logger.Logger
	metrics  *metrics.EngineMetrics
	exporter Exporter
	weeks    int
	now      func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("mrp repository required")
	}
	if params.Balances == nil {
		return nil, fmt.Errorf("ledger balance reader required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	weeks := params.HorizonWeeks
	if weeks <= 0 {
		weeks = DefaultHorizonWeeks
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		db:       params.DB,
		repo:     params.Repo,
		balances: params.Balances,
		logg:     params.Logger,
		metrics:  params.Metrics,
		exporter: params.Exporter,
		weeks:    weeks,
		now:      now,
	}, nil
}

// Run loads demand, supply and on-hand for the scope, nets them and upserts
// the suggestions. Concurrent runs of the same scope are last write wins.
func (s *Service) Run(ctx context.Context, scope Scope) (*Result, error) {
	started := s.now()
	result, err := s.run(ctx, scope, started)
	s.metrics.ObserveMRPRun(scope.Kind(), s.now().Sub(started), err)
	if err != nil {
		s.logg.Error(s.logg.WithField(ctx, "mrp_scope", scope.Kind()), "mrp run failed", err)
		return nil, err
	}
	return result, nil
}

func (s *Service) run(ctx context.Context, scope Scope, now time.Time) (*Result, error) {
	filter, seeds, err := s.resolve(ctx, scope)
	if err != nil {
		return nil, err
	}

	start := WeekStart(now)
	end := start.AddDate(0, 0, 7*s.weeks)

	input := PlanInput{
		CompanyID:    filter.CompanyID,
		Start:        start,
		Weeks:        s.weeks,
		CalculatedAt: now.UTC(),
		OnHand:       map[Key]decimal.Decimal{},
	}
	if err := s.collect(ctx, filter, start, end, &input); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load planning data")
	}
	input.Keys = append(seeds, keysOf(input)...)

	items := make([]uuid.UUID, 0, len(input.Keys))
	seen := map[uuid.UUID]bool{}
	for _, key := range input.Keys {
		if !seen[key.ItemID] {
			seen[key.ItemID] = true
			items = append(items, key.ItemID)
		}
	}
	input.Policies, err = s.repo.Policies(ctx, filter.CompanyID, items)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load planning policies")
	}

	rows := Plan(input)
	planned := uniqueKeys(input.Keys)
	keyCount := len(planned)
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if err := txRepo.UpsertSuggestions(ctx, rows); err != nil {
			return err
		}
		return txRepo.Prune(ctx, filter, start, end, planned)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist suggested actions")
	}

	// The export is a reporting copy. A failure never fails the run.
	if s.exporter != nil && len(rows) > 0 {
		if err := s.exporter.ExportSuggestions(ctx, rows); err != nil {
			s.logg.Error(s.logg.WithField(ctx, "mrp_scope", scope.Kind()), "suggested action export failed", err)
		}
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"mrp_scope": scope.Kind(),
		"keys":      keyCount,
		"rows":      len(rows),
	}), "mrp run completed")

	return &Result{Scope: scope, PeriodStart: start, Keys: keyCount, Rows: len(rows)}, nil
}

// resolve turns a scope into a read filter and the keys that must be planned
// even when no demand or supply exists for them.
func (s *Service) resolve(ctx context.Context, scope Scope) (Filter, []Key, error) {
	if scope.CompanyID == uuid.Nil {
		return Filter{}, nil, pkgerrors.New(pkgerrors.CodeValidation, "company is required")
	}
	filter := Filter{CompanyID: scope.CompanyID}

	if scope.JobID != nil {
		job, err := s.repo.FindJob(ctx, scope.CompanyID, *scope.JobID)
		if err != nil {
			return Filter{}, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load job")
		}
		if job == nil {
			return Filter{}, nil, pkgerrors.New(pkgerrors.CodeNotFound, "job not found")
		}
		materials, err := s.repo.JobMaterialItems(ctx, scope.CompanyID, job.ID)
		if err != nil {
			return Filter{}, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load job materials")
		}
		location := job.LocationID
		filter.LocationID = &location
		filter.ItemIDs = append([]uuid.UUID{job.ItemID}, materials...)
		seeds := make([]Key, 0, len(filter.ItemIDs))
		for _, itemID := range filter.ItemIDs {
			seeds = append(seeds, Key{ItemID: itemID, LocationID: location})
		}
		return filter, seeds, nil
	}

	filter.LocationID = scope.LocationID
	if scope.ItemID != nil {
		filter.ItemIDs = []uuid.UUID{*scope.ItemID}
		if scope.LocationID != nil {
			return filter, []Key{{ItemID: *scope.ItemID, LocationID: *scope.LocationID}}, nil
		}
	}
	return filter, nil, nil
}

func (s *Service) collect(ctx context.Context, f Filter, start, end time.Time, in *PlanInput) error {
	sales, err := s.repo.SalesDemand(ctx, f)
	if err != nil {
		return err
	}
	materials, err := s.repo.JobMaterialDemand(ctx, f)
	if err != nil {
		return err
	}
	forecasts, err := s.repo.ForecastDemand(ctx, f, start, end)
	if err != nil {
		return err
	}
	purchases, err := s.repo.PurchaseSupply(ctx, f)
	if err != nil {
		return err
	}
	jobs, err := s.repo.JobSupply(ctx, f)
	if err != nil {
		return err
	}
	balances, err := s.balances.OnHand(ctx, ledger.BalanceFilter{CompanyID: f.CompanyID, ItemIDs: f.ItemIDs, LocationID: f.LocationID})
	if err != nil {
		return err
	}

	in.Demand = append(append(sales, materials...), forecasts...)
	in.Supply = append(purchases, jobs...)
	for _, b := range balances {
		key := Key{ItemID: b.ItemID, LocationID: b.LocationID}
		in.OnHand[key] = in.OnHand[key].Add(b.Quantity)
	}
	return nil
}

func keysOf(in PlanInput) []Key {
	keys := make([]Key, 0, len(in.Demand)+len(in.Supply)+len(in.OnHand))
	for _, mv := range in.Demand {
		keys = append(keys, mv.Key)
	}
	for _, mv := range in.Supply {
		keys = append(keys, mv.Key)
	}
	for key := range in.OnHand {
		keys = append(keys, key)
	}
	return keys
}

// Suggestions lists the stored suggestions for a scope in plan order.
func (s *Service) Suggestions(ctx context.Context, scope Scope) ([]models.SuggestedAction, error) {
	filter, _, err := s.resolve(ctx, scope)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.Suggestions(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list suggested actions")
	}
	return rows, nil
}

// SweepCompanies runs a company scoped plan for every company. A failed
// company is logged and skipped; the joined failures are returned at the end.
func (s *Service) SweepCompanies(ctx context.Context) (int, error) {
	companies, err := s.repo.CompanyIDs(ctx)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list companies")
	}
	var failures []error
	planned := 0
	for _, companyID := range companies {
		if err := ctx.Err(); err != nil {
			failures = append(failures, err)
			break
		}
		if _, err := s.Run(s.logg.WithCompanyID(ctx, companyID.String()), Scope{CompanyID: companyID}); err != nil {
			failures = append(failures, fmt.Errorf("company %s: %w", companyID, err))
			continue
		}
		planned++
	}
	return planned, multierr.Combine(failures...)
}
