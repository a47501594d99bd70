package outbox

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const envelopeVersion = 1

// ActorRef is the user and company a task runs on behalf of.
type ActorRef struct {
	UserID    uuid.UUID `json:"userId"`
	CompanyID uuid.UUID `json:"companyId"`
}

// PayloadEnvelope wraps every task stored in outbox_events.payload and sent
// on the wire unchanged. EventID is the dedupe key across redeliveries.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

// ID returns the parsed event id.
func (e PayloadEnvelope) ID() (uuid.UUID, error) {
	id, err := uuid.Parse(e.EventID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("envelope event id %q: %w", e.EventID, err)
	}
	return id, nil
}

// DecodeEnvelope parses raw bytes into an envelope and checks the fields every
// consumer relies on.
func DecodeEnvelope(raw []byte) (PayloadEnvelope, error) {
	var env PayloadEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return PayloadEnvelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Version < 1 {
		return PayloadEnvelope{}, fmt.Errorf("envelope version %d is not supported", env.Version)
	}
	if _, err := env.ID(); err != nil {
		return PayloadEnvelope{}, err
	}
	return env, nil
}

func newEnvelope(data any, actor *ActorRef, version int, occurredAt time.Time) (PayloadEnvelope, error) {
	body, err := json.Marshal(data)
	if err != nil {
		return PayloadEnvelope{}, fmt.Errorf("encode payload: %w", err)
	}
	if version == 0 {
		version = envelopeVersion
	}
	return PayloadEnvelope{
		Version:    version,
		EventID:    uuid.NewString(),
		OccurredAt: occurredAt.UTC(),
		Actor:      actor,
		Data:       body,
	}, nil
}
