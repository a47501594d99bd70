package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/mesflow-backend/pkg/db/models"
	"github.com/angelmondragon/mesflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/mesflow-backend/pkg/errors"
	"github.com/angelmondragon/mesflow-backend/pkg/logger"
)

var errTxRequired = errors.New("transaction required")

// DomainEvent is a task to record. Version and OccurredAt default to the
// current envelope version and the emit time.
type DomainEvent struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   uuid.UUID
	Actor         *ActorRef
	Data          any
	Version       int
	OccurredAt    time.Time
}

func (e DomainEvent) validate() error {
	switch {
	case !e.EventType.IsValid():
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown outbox event type %q", e.EventType))
	case !e.AggregateType.IsValid():
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown outbox aggregate type %q", e.AggregateType))
	case e.AggregateID == uuid.Nil:
		return pkgerrors.New(pkgerrors.CodeValidation, "outbox event requires an aggregate id")
	case e.Data == nil:
		return pkgerrors.New(pkgerrors.CodeValidation, "outbox event requires data")
	}
	return nil
}

// EventRepository persists outbox rows inside caller transactions.
type EventRepository interface {
	Insert(tx *gorm.DB, event models.OutboxEvent) error
	ExistsTx(tx *gorm.DB, eventType enums.OutboxEventType, aggregateType enums.OutboxAggregateType, aggregateID uuid.UUID) (bool, error)
}

// Service writes outbox rows. Rows become visible to the publisher only when
// the caller's transaction commits.
type Service struct {
	repo EventRepository
	logg *logger.Logger
	now  func() time.Time
}

func NewService(repo EventRepository, logg *logger.Logger) *Service {
	return &Service{repo: repo, logg: logg, now: time.Now}
}

func (s *Service) Emit(ctx context.Context, tx *gorm.DB, event DomainEvent) error {
	if tx == nil {
		return errTxRequired
	}
	if err := event.validate(); err != nil {
		return err
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.now()
	}
	envelope, err := newEnvelope(event.Data, event.Actor, event.Version, event.OccurredAt)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build outbox envelope")
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode outbox envelope")
	}

	if err := s.repo.Insert(tx, models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       payload,
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert outbox event")
	}

	s.logQueued(ctx, event, envelope.EventID)
	return nil
}

// EmitIfNotExists coalesces with an unpublished event of the same type that
// is already pending for the aggregate.
func (s *Service) EmitIfNotExists(ctx context.Context, tx *gorm.DB, event DomainEvent) error {
	if tx == nil {
		return errTxRequired
	}
	pending, err := s.repo.ExistsTx(tx, event.EventType, event.AggregateType, event.AggregateID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check pending outbox event")
	}
	if pending {
		if s.logg != nil {
			s.logg.Debug(s.eventContext(ctx, event), "outbox event coalesced")
		}
		return nil
	}
	return s.Emit(ctx, tx, event)
}

func (s *Service) logQueued(ctx context.Context, event DomainEvent, eventID string) {
	if s.logg == nil {
		return
	}
	s.logg.Info(s.logg.WithField(s.eventContext(ctx, event), "event_id", eventID), "outbox event queued")
}

func (s *Service) eventContext(ctx context.Context, event DomainEvent) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return s.logg.WithFields(ctx, map[string]any{
		"event_type":     string(event.EventType),
		"aggregate_type": string(event.AggregateType),
		"aggregate_id":   event.AggregateID.String(),
	})
}
