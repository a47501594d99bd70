package tasks

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/mesflow-backend/pkg/enums"
	"github.com/angelmondragon/mesflow-backend/pkg/outbox"
	"github.com/angelmondragon/mesflow-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type emitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Queue enqueues background tasks. Enqueueing only records an outbox row;
// delivery is at least once through the outbox publisher.
type Queue interface {
	EnqueueJobRequirements(ctx context.Context, companyID, jobID, userID uuid.UUID) error
	EnqueueSchedule(ctx context.Context, companyID, jobID, userID uuid.UUID) error
	EnqueueMRP(ctx context.Context, task payloads.MRPTask) error
}

// Dispatcher records tasks in the outbox, each in its own transaction.
type Dispatcher struct {
	db     txRunner
	outbox emitter
}

func NewDispatcher(db txRunner, outbox emitter) (*Dispatcher, error) {
	if db == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &Dispatcher{db: db, outbox: outbox}, nil
}

func (d *Dispatcher) EnqueueJobRequirements(ctx context.Context, companyID, jobID, userID uuid.UUID) error {
	return d.db.WithTx(ctx, func(tx *gorm.DB) error {
		return d.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventJobRequirementsRequested,
			AggregateType: enums.AggregateJob,
			AggregateID:   jobID,
			Actor:         &outbox.ActorRef{UserID: userID, CompanyID: companyID},
			Data: payloads.JobRequirementsTask{
				Type: payloads.TaskJobRequirements, ID: jobID, CompanyID: companyID, UserID: userID,
			},
		})
	})
}

func (d *Dispatcher) EnqueueSchedule(ctx context.Context, companyID, jobID, userID uuid.UUID) error {
	return d.db.WithTx(ctx, func(tx *gorm.DB) error {
		return d.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventJobScheduleRequested,
			AggregateType: enums.AggregateJob,
			AggregateID:   jobID,
			Actor:         &outbox.ActorRef{UserID: userID, CompanyID: companyID},
			Data: payloads.ScheduleTask{
				Type: payloads.TaskSchedule, JobID: jobID, CompanyID: companyID, UserID: userID,
			},
		})
	})
}

// EnqueueMRP coalesces with a pending run of the same scope: a recalculation
// that has not been published yet will read the latest data anyway.
func (d *Dispatcher) EnqueueMRP(ctx context.Context, task payloads.MRPTask) error {
	if task.CompanyID == uuid.Nil {
		return fmt.Errorf("mrp task requires a company")
	}
	task.Type = payloads.TaskMRP
	aggregateType, aggregateID := MRPAggregate(task)
	return d.db.WithTx(ctx, func(tx *gorm.DB) error {
		return d.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventMRPRequested,
			AggregateType: aggregateType,
			AggregateID:   aggregateID,
			Actor:         &outbox.ActorRef{UserID: task.UserID, CompanyID: task.CompanyID},
			Data:          task,
		})
	})
}

// MRPAggregate derives the outbox aggregate of an MRP task. Item scopes are
// keyed by item and location together so different locations never coalesce.
func MRPAggregate(task payloads.MRPTask) (enums.OutboxAggregateType, uuid.UUID) {
	switch {
	case task.JobID != nil:
		return enums.AggregateJob, *task.JobID
	case task.ItemID != nil:
		name := task.ItemID.String()
		if task.LocationID != nil {
			name += "/" + task.LocationID.String()
		}
		return enums.AggregateItem, uuid.NewSHA1(task.CompanyID, []byte(name))
	default:
		return enums.AggregateCompany, task.CompanyID
	}
}
