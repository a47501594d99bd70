package tasks

import (
	"context"
	"errors"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/mesflow-backend/internal/mrp"
	"github.com/angelmondragon/mesflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/mesflow-backend/pkg/errors"
	"github.com/angelmondragon/mesflow-backend/pkg/functions"
	"github.com/angelmondragon/mesflow-backend/pkg/logger"
	"github.com/angelmondragon/mesflow-backend/pkg/metrics"
	"github.com/angelmondragon/mesflow-backend/pkg/outbox"
	"github.com/angelmondragon/mesflow-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/mesflow-backend/pkg/outbox/registry"
)

const consumerName = "tasks"

type processedTracker interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Delete(ctx context.Context, consumer string, eventID uuid.UUID) error
}

type requirementsCalculator interface {
	RecalculateRequirements(ctx context.Context, companyID, jobID uuid.UUID) (int, error)
}

// Handlers are the services a task ends up in.
type Handlers struct {
	Requirements requirementsCalculator
	Scheduler    functions.Scheduler
	MRP          mrp.Runner
}

type ConsumerParams struct {
	Subscription *pubsub.Subscriber
	Idempotency  processedTracker
	Handlers     Handlers
	Logger       *logger.Logger
	Metrics      *metrics.EngineMetrics
}

// Consumer drains the task subscription and runs each task once per event id.
type Consumer struct {
	subscription *pubsub.Subscriber
	idempotency  processedTracker
	decoders     *registry.Decoders
	handlers     Handlers
	logg         *logger.Logger
	metrics      *metrics.EngineMetrics
}

func NewConsumer(params ConsumerParams) (*Consumer, error) {
	switch {
	case params.Idempotency == nil:
		return nil, fmt.Errorf("idempotency manager required")
	case params.Handlers.Requirements == nil:
		return nil, fmt.Errorf("requirements calculator required")
	case params.Handlers.Scheduler == nil:
		return nil, fmt.Errorf("scheduler required")
	case params.Handlers.MRP == nil:
		return nil, fmt.Errorf("mrp runner required")
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		subscription: params.Subscription,
		idempotency:  params.Idempotency,
		decoders:     registry.TaskDecoders(),
		handlers:     params.Handlers,
		logg:         params.Logger,
		metrics:      params.Metrics,
	}, nil
}

// Run receives until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	if c.subscription == nil {
		return errors.New("tasks subscription not configured")
	}
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if c.Process(ctx, msg.ID, msg.Attributes, msg.Data) {
			msg.Ack()
			return
		}
		msg.Nack()
	})
}

// Process handles one delivery and reports whether it should be acked.
// Malformed messages are acked so they do not loop; handler failures are
// nacked and released for redelivery.
func (c *Consumer) Process(ctx context.Context, messageID string, attributes map[string]string, data []byte) bool {
	eventType := enums.OutboxEventType(attributes["event_type"])
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": messageID,
		"event_type": string(eventType),
	})

	envelope, err := outbox.DecodeEnvelope(data)
	if err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		c.metrics.IncTask(string(eventType), "invalid")
		return true
	}
	eventID, _ := envelope.ID()
	logCtx = c.logg.WithField(logCtx, "event_id", eventID.String())

	task, err := c.decoders.Decode(eventType, envelope.Version, envelope.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to decode task", err)
		c.metrics.IncTask(string(eventType), "invalid")
		return true
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, consumerName, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return false
	}
	if already {
		c.logg.Info(logCtx, "task already processed")
		c.metrics.IncTask(string(eventType), "duplicate")
		return true
	}

	if err := c.handle(logCtx, task); err != nil {
		c.logg.Error(logCtx, "task failed", err)
		c.metrics.IncTask(string(eventType), "failed")
		if permanent(err) {
			return true
		}
		if delErr := c.idempotency.Delete(ctx, consumerName, eventID); delErr != nil {
			c.logg.Error(logCtx, "release idempotency key", delErr)
		}
		return false
	}
	c.metrics.IncTask(string(eventType), "ok")
	return true
}

func (c *Consumer) handle(ctx context.Context, task interface{}) error {
	switch t := task.(type) {
	case payloads.JobRequirementsTask:
		ctx = c.logg.WithDocument(ctx, "job", t.ID.String())
		updated, err := c.handlers.Requirements.RecalculateRequirements(ctx, t.CompanyID, t.ID)
		if err != nil {
			return err
		}
		c.logg.Info(c.logg.WithField(ctx, "materials_updated", updated), "job requirements recalculated")
		return nil
	case payloads.ScheduleTask:
		ctx = c.logg.WithDocument(ctx, "job", t.JobID.String())
		if err := c.handlers.Scheduler.Schedule(ctx, functions.ScheduleRequest{
			JobID: t.JobID, CompanyID: t.CompanyID, UserID: t.UserID,
		}); err != nil {
			return err
		}
		c.logg.Info(ctx, "job scheduled")
		return nil
	case payloads.MRPTask:
		_, err := c.handlers.MRP.Run(ctx, mrp.Scope{
			CompanyID:  t.CompanyID,
			ItemID:     t.ItemID,
			LocationID: t.LocationID,
			JobID:      t.JobID,
		})
		return err
	default:
		return pkgerrors.New(pkgerrors.CodeUnsupported, fmt.Sprintf("unsupported task %T", task))
	}
}

// permanent errors will fail the same way on every redelivery.
func permanent(err error) bool {
	for _, code := range []pkgerrors.Code{pkgerrors.CodeValidation, pkgerrors.CodeNotFound, pkgerrors.CodeUnsupported} {
		if pkgerrors.IsCode(err, code) {
			return true
		}
	}
	return false
}
