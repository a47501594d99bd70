package registry

import (
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/angelmondragon/mesflow-backend/pkg/config"
	"github.com/angelmondragon/mesflow-backend/pkg/db/models"
	"github.com/angelmondragon/mesflow-backend/pkg/enums"
	"github.com/angelmondragon/mesflow-backend/pkg/outbox"
	"github.com/angelmondragon/mesflow-backend/pkg/outbox/payloads"
)

// taskAggregates lists the aggregates each task event may be keyed by. MRP
// runs are keyed by the scope they recalculate.
var taskAggregates = map[enums.OutboxEventType][]enums.OutboxAggregateType{
	enums.EventJobRequirementsRequested: {enums.AggregateJob},
	enums.EventJobScheduleRequested:     {enums.AggregateJob},
	enums.EventMRPRequested:             {enums.AggregateJob, enums.AggregateItem, enums.AggregateCompany},
}

// TaskDecoders binds every task payload at envelope version 1. The publisher
// and the worker share it so both sides agree on the wire schema.
func TaskDecoders() *Decoders {
	d := NewDecoders()
	Bind[payloads.JobRequirementsTask](d, enums.EventJobRequirementsRequested, 1)
	Bind[payloads.ScheduleTask](d, enums.EventJobScheduleRequested, 1)
	Bind[payloads.MRPTask](d, enums.EventMRPRequested, 1)
	return d
}

// EventDescriptor routes one event type to its topic.
type EventDescriptor struct {
	EventType  enums.OutboxEventType
	Aggregates []enums.OutboxAggregateType
	Topic      string
}

// ResolvedEvent is an outbox row that passed validation, with its decoded
// envelope and typed payload.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

// EventRegistry validates outbox rows before they are published.
type EventRegistry struct {
	descriptors map[enums.OutboxEventType]EventDescriptor
	decoders    *Decoders
}

func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	if cfg.TasksTopic == "" {
		return nil, fmt.Errorf("tasks topic is required")
	}
	descriptors := make(map[enums.OutboxEventType]EventDescriptor, len(taskAggregates))
	for eventType, aggregates := range taskAggregates {
		descriptors[eventType] = EventDescriptor{EventType: eventType, Aggregates: aggregates, Topic: cfg.TasksTopic}
	}
	return &EventRegistry{descriptors: descriptors, decoders: TaskDecoders()}, nil
}

// Resolve checks the row against its descriptor and decodes the payload.
// Every failure is non-retryable: the stored row will never get better.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.descriptors[event.EventType]
	if !ok {
		return nil, NewNonRetryableError(fmt.Errorf("unsupported event type %q", event.EventType))
	}
	if !slices.Contains(desc.Aggregates, event.AggregateType) {
		return nil, NewNonRetryableError(fmt.Errorf("%s cannot be keyed by aggregate %q", event.EventType, event.AggregateType))
	}
	if event.AggregateID == uuid.Nil {
		return nil, NewNonRetryableError(fmt.Errorf("%s is missing its aggregate id", event.EventType))
	}

	envelope, err := outbox.DecodeEnvelope(event.Payload)
	if err != nil {
		return nil, NewNonRetryableError(err)
	}
	payload, err := r.decoders.Decode(event.EventType, envelope.Version, envelope.Data)
	if err != nil {
		return nil, NewNonRetryableError(err)
	}
	return &ResolvedEvent{Descriptor: desc, Envelope: envelope, Payload: payload}, nil
}
