// Package idempotency remembers which task events a consumer already ran so
// Pub/Sub redeliveries become no-ops.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/mesflow-backend/pkg/instance"
	"github.com/angelmondragon/mesflow-backend/pkg/redis"
)

const scopePrefix = "task:processed"

// DefaultTTL covers the Pub/Sub retention window with room to spare.
const DefaultTTL = 30 * 24 * time.Hour

// Tracker claims event ids in Redis. A claim is a SETNX marker that names the
// instance which took it, under mes:idempotency:task:processed:<consumer>:<event_id>.
type Tracker struct {
	store redis.IdempotencyStore
	ttl   time.Duration
	owner string
	now   func() time.Time
}

// NewTracker builds a tracker. A zero ttl selects DefaultTTL.
func NewTracker(store redis.IdempotencyStore, ttl time.Duration) (*Tracker, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, fmt.Errorf("idempotency ttl must not be negative, got %s", ttl)
	}
	if ttl == 0 {
		ttl = DefaultTTL
	}
	return &Tracker{store: store, ttl: ttl, owner: instance.GetID(), now: time.Now}, nil
}

// CheckAndMarkProcessed claims eventID for consumer. It reports true when an
// earlier delivery already holds the claim.
func (t *Tracker) CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error) {
	key, err := t.key(consumer, eventID)
	if err != nil {
		return false, err
	}
	claimed, err := t.store.SetNX(ctx, key, t.marker(), t.ttl)
	if err != nil {
		return false, fmt.Errorf("claim %s: %w", key, err)
	}
	return !claimed, nil
}

// Delete drops the claim so a failed task can run again on redelivery.
func (t *Tracker) Delete(ctx context.Context, consumer string, eventID uuid.UUID) error {
	key, err := t.key(consumer, eventID)
	if err != nil {
		return err
	}
	if err := t.store.Del(ctx, key); err != nil {
		return fmt.Errorf("release %s: %w", key, err)
	}
	return nil
}

func (t *Tracker) marker() string {
	return t.owner + "@" + t.now().UTC().Format(time.RFC3339)
}

func (t *Tracker) key(consumer string, eventID uuid.UUID) (string, error) {
	consumer = strings.TrimSpace(consumer)
	switch {
	case consumer == "":
		return "", errors.New("consumer name is required")
	case eventID == uuid.Nil:
		return "", errors.New("event id is required")
	}
	return t.store.IdempotencyKey(scopePrefix+":"+consumer, eventID.String()), nil
}
