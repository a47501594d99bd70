package registry

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/mesflow-backend/pkg/config"
	"github.com/angelmondragon/mesflow-backend/pkg/db/models"
	"github.com/angelmondragon/mesflow-backend/pkg/enums"
	"github.com/angelmondragon/mesflow-backend/pkg/outbox"
	"github.com/angelmondragon/mesflow-backend/pkg/outbox/payloads"
)

func newTestEventRegistry(t *testing.T) *EventRegistry {
	t.Helper()
	reg, err := NewEventRegistry(config.PubSubConfig{TasksTopic: "tasks-topic"})
	require.NoError(t, err)
	return reg
}

func envelopeFor(t *testing.T, data any) json.RawMessage {
	t.Helper()
	body, err := json.Marshal(data)
	require.NoError(t, err)
	raw, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       body,
	})
	require.NoError(t, err)
	return raw
}

func TestResolveDecodesTypedPayload(t *testing.T) {
	reg := newTestEventRegistry(t)
	jobID := uuid.New()

	resolved, err := reg.Resolve(models.OutboxEvent{
		EventType:     enums.EventJobRequirementsRequested,
		AggregateType: enums.AggregateJob,
		AggregateID:   jobID,
		Payload:       envelopeFor(t, payloads.JobRequirementsTask{Type: payloads.TaskJobRequirements, ID: jobID}),
	})
	require.NoError(t, err)
	assert.Equal(t, "tasks-topic", resolved.Descriptor.Topic)
	assert.NotEmpty(t, resolved.Envelope.EventID)

	task, ok := resolved.Payload.(payloads.JobRequirementsTask)
	require.True(t, ok, "unexpected payload %T", resolved.Payload)
	assert.Equal(t, jobID, task.ID)
}

func TestResolveMRPAcceptsEveryScopeAggregate(t *testing.T) {
	reg := newTestEventRegistry(t)
	for _, aggregate := range []enums.OutboxAggregateType{enums.AggregateJob, enums.AggregateItem, enums.AggregateCompany} {
		_, err := reg.Resolve(models.OutboxEvent{
			EventType:     enums.EventMRPRequested,
			AggregateType: aggregate,
			AggregateID:   uuid.New(),
			Payload:       envelopeFor(t, payloads.MRPTask{Type: payloads.TaskMRP, CompanyID: uuid.New()}),
		})
		assert.NoError(t, err, "aggregate %s", aggregate)
	}
}

func TestResolveRejectsBrokenRows(t *testing.T) {
	reg := newTestEventRegistry(t)
	task := payloads.ScheduleTask{Type: payloads.TaskSchedule, JobID: uuid.New()}
	badID, err := json.Marshal(outbox.PayloadEnvelope{Version: 1, EventID: "nope", Data: json.RawMessage(`{}`)})
	require.NoError(t, err)

	cases := map[string]models.OutboxEvent{
		"unknown event": {
			EventType: "order_created", AggregateType: enums.AggregateJob, AggregateID: uuid.New(), Payload: envelopeFor(t, task),
		},
		"aggregate mismatch": {
			EventType: enums.EventJobScheduleRequested, AggregateType: enums.AggregatePurchaseOrder, AggregateID: uuid.New(), Payload: envelopeFor(t, task),
		},
		"mrp keyed by purchase order": {
			EventType: enums.EventMRPRequested, AggregateType: enums.AggregatePurchaseOrder, AggregateID: uuid.New(), Payload: envelopeFor(t, task),
		},
		"missing aggregate id": {
			EventType: enums.EventJobScheduleRequested, AggregateType: enums.AggregateJob, Payload: envelopeFor(t, task),
		},
		"null data": {
			EventType: enums.EventJobScheduleRequested, AggregateType: enums.AggregateJob, AggregateID: uuid.New(), Payload: envelopeFor(t, nil),
		},
		"broken envelope": {
			EventType: enums.EventJobScheduleRequested, AggregateType: enums.AggregateJob, AggregateID: uuid.New(), Payload: json.RawMessage(`{"data":`),
		},
		"invalid event id": {
			EventType: enums.EventJobScheduleRequested, AggregateType: enums.AggregateJob, AggregateID: uuid.New(), Payload: badID,
		},
	}
	for name, event := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := reg.Resolve(event)
			require.Error(t, err)
			var permanent NonRetryableError
			assert.True(t, errors.As(err, &permanent), "expected non-retryable, got %T", err)
		})
	}
}

func TestNewEventRegistryRequiresTopic(t *testing.T) {
	_, err := NewEventRegistry(config.PubSubConfig{})
	require.Error(t, err)
}

func TestNonRetryableErrorUnwraps(t *testing.T) {
	cause := errors.New("boom")
	err := NewNonRetryableError(cause)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "non-retryable error", NonRetryableError{}.Error())
}
