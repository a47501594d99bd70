package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/angelmondragon/mesflow-backend/internal/mrp"
	"github.com/angelmondragon/mesflow-backend/pkg/db/models"
	"github.com/angelmondragon/mesflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/mesflow-backend/pkg/errors"
	"github.com/angelmondragon/mesflow-backend/pkg/functions"
	"github.com/angelmondragon/mesflow-backend/pkg/logger"
)

// ErrManufacturingBlocked is the message returned when a blocked item is released.
const ErrManufacturingBlocked = "Manufacturing is blocked"

type requirementsCalculator interface {
	RecalculateJob(ctx context.Context, job models.Job) (int, error)
}

// TransitionInput is a status change request for one job.
type TransitionInput struct {
	JobID                    uuid.UUID
	TargetStatus             string
	ScheduleRequested        bool
	PurchaseOrdersBySupplier map[string]string
	CompanyID                uuid.UUID
	UserID                   uuid.UUID
}

// TransitionResult carries the updated job and where the caller goes next.
// Warnings describe side effects that failed without aborting the transition.
type TransitionResult struct {
	Job      *models.Job `json:"job"`
	Redirect string      `json:"redirect"`
	Warnings []string    `json:"warnings,omitempty"`
}

// StateMachine drives jobs through their lifecycle.
type StateMachine interface {
	RequestTransition(ctx context.Context, input TransitionInput) (*TransitionResult, error)
	RecalculateRequirements(ctx context.Context, companyID, jobID uuid.UUID) (int, error)
}

// ServiceParams wires a Service.
type ServiceParams struct {
	Repo           Repository
	Requirements   requirementsCalculator
	MRP            mrp.Runner
	Scheduler      functions.Scheduler
	PurchaseOrders functions.PurchaseOrderGenerator
	Logger         *logger.Logger
	Now            func() time.Time
}

type Service struct {
	repo           Repository
	requirements   requirementsCalculator
	mrp            mrp.Runner
	scheduler      functions.Scheduler
	purchaseOrders functions.PurchaseOrderGenerator
	logg           *logger.Logger
	now            func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Repo == nil:
		return nil, fmt.Errorf("jobs repository required")
	case params.Requirements == nil:
		return nil, fmt.Errorf("requirements calculator required")
	case params.MRP == nil:
		return nil, fmt.Errorf("mrp runner required")
	case params.Scheduler == nil:
		return nil, fmt.Errorf("scheduler required")
	case params.PurchaseOrders == nil:
		return nil, fmt.Errorf("purchase order generator required")
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:           params.Repo,
		requirements:   params.Requirements,
		mrp:            params.MRP,
		scheduler:      params.Scheduler,
		purchaseOrders: params.PurchaseOrders,
		logg:           params.Logger,
		now:            now,
	}, nil
}

// RequestTransition validates and applies a status change. Every gating
// step runs before the status is written, so a failure leaves the job as it was.
func (s *Service) RequestTransition(ctx context.Context, input TransitionInput) (*TransitionResult, error) {
	target, err := enums.ParseJobStatus(input.TargetStatus)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, fmt.Sprintf("unknown job status %q", input.TargetStatus))
	}
	if input.JobID == uuid.Nil || input.CompanyID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "job and company are required")
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"job_id":        input.JobID.String(),
		"company_id":    input.CompanyID.String(),
		"target_status": string(target),
	})

	job, err := s.repo.FindJob(ctx, input.CompanyID, input.JobID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load job")
	}
	if job == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "job not found")
	}
	if !CanTransition(job.Status, target) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot move job from %s to %s", job.Status, target))
	}

	if target == enums.JobStatusReady {
		blocked, err := s.repo.ManufacturingBlocked(ctx, input.CompanyID, job.ItemID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load item replenishment")
		}
		if blocked {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, ErrManufacturingBlocked)
		}
	}

	if requiresRecalculation(target) {
		if _, err := s.requirements.RecalculateJob(ctx, *job); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "recalculate job requirements")
		}
		jobID := job.ID
		if _, err := s.mrp.Run(ctx, mrp.Scope{CompanyID: input.CompanyID, JobID: &jobID}); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "run mrp for job")
		}
	}

	update := StatusUpdate{
		From:          job.Status,
		Status:        target,
		UpdatedBy:     input.UserID,
		ClearAssignee: target == enums.JobStatusCancelled,
	}
	var warnings []string
	if input.ScheduleRequested && requiresRecalculation(target) {
		warnings, err = s.schedule(ctx, input, job)
		if err != nil {
			return nil, err
		}
		if target == enums.JobStatusReady {
			released := s.now().UTC()
			update.ReleasedDate = &released
		}
	}

	if err := s.repo.UpdateStatus(ctx, input.CompanyID, job.ID, update); err != nil {
		switch {
		case errors.Is(err, ErrStatusChanged):
			return nil, pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, fmt.Sprintf("job is no longer %s", update.From))
		case errors.Is(err, gorm.ErrRecordNotFound):
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "job not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update job status")
	}
	job.Status = update.Status
	job.UpdatedBy = &input.UserID
	if update.ReleasedDate != nil {
		job.ReleasedDate = update.ReleasedDate
	}
	if update.ClearAssignee {
		job.Assignee = nil
	}

	s.logg.Info(ctx, "job status updated")
	return &TransitionResult{Job: job, Redirect: RedirectFor(job.ID, target), Warnings: warnings}, nil
}

// schedule calls the scheduler and the purchase order function in parallel.
// A scheduler failure aborts; a purchase order failure becomes a warning.
func (s *Service) schedule(ctx context.Context, input TransitionInput, job *models.Job) ([]string, error) {
	var warnings []string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := s.scheduler.Schedule(gctx, functions.ScheduleRequest{
			JobID: job.ID, CompanyID: input.CompanyID, UserID: input.UserID,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "schedule job")
		}
		return nil
	})
	g.Go(func() error {
		err := s.purchaseOrders.GeneratePurchaseOrders(gctx, functions.PurchaseOrdersRequest{
			JobID: job.ID, PurchaseOrdersBySupplier: input.PurchaseOrdersBySupplier,
			CompanyID: input.CompanyID, UserID: input.UserID,
		})
		if err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "purchase order generation failed")
			warnings = append(warnings, "Failed to generate purchase orders")
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return warnings, nil
}

// RecalculateRequirements refreshes the estimated quantities of a job's
// materials. It is also the handler of the jobRequirements task.
func (s *Service) RecalculateRequirements(ctx context.Context, companyID, jobID uuid.UUID) (int, error) {
	job, err := s.repo.FindJob(ctx, companyID, jobID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load job")
	}
	if job == nil {
		return 0, pkgerrors.New(pkgerrors.CodeNotFound, "job not found")
	}
	changed, err := s.requirements.RecalculateJob(ctx, *job)
	if err != nil {
		if pkgerrors.As(err) != nil {
			return 0, err
		}
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "recalculate job requirements")
	}
	return changed, nil
}

// RedirectFor is the view a caller lands on after a transition.
func RedirectFor(jobID uuid.UUID, status enums.JobStatus) string {
	if status == enums.JobStatusPlanned {
		return "/x/job/" + jobID.String() + "/materials"
	}
	return "/x/job/" + jobID.String()
}
