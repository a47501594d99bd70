package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/mesflow-backend/pkg/db/models"
	"github.com/angelmondragon/mesflow-backend/pkg/outbox"
	"github.com/angelmondragon/mesflow-backend/pkg/outbox/registry"
)

type pubSubClient interface {
	Ping(context.Context) error
	TasksPublisher() *gcppubsub.Publisher
	Publisher(name string) *gcppubsub.Publisher
}

type publisherFactory func(topic string) publisher

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

// defaultPublisherFactory reuses the long-lived tasks publisher and opens
// named publishers for any other topic.
func defaultPublisherFactory(client pubSubClient, tasksTopic string) publisherFactory {
	return func(topic string) publisher {
		var p *gcppubsub.Publisher
		if topic == tasksTopic {
			p = client.TasksPublisher()
		} else {
			p = client.Publisher(topic)
		}
		if p == nil {
			return nil
		}
		return gcpPublisher{p}
	}
}

// publish sends the stored payload bytes unchanged. A missing publisher is
// a configuration fault and will not heal on retry.
func (s *Service) publish(ctx context.Context, event models.OutboxEvent, resolved *registry.ResolvedEvent) error {
	topic := resolved.Descriptor.Topic
	pub := s.publishers(topic)
	if pub == nil {
		return registry.NewNonRetryableError(fmt.Errorf("no publisher for topic %s", topic))
	}

	publishCtx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()
	result := pub.Publish(publishCtx, &gcppubsub.Message{
		Data:       event.Payload,
		Attributes: messageAttributes(event, resolved.Envelope),
	})
	if result == nil {
		return registry.NewNonRetryableError(fmt.Errorf("publisher for topic %s returned no result", topic))
	}
	_, err := result.Get(publishCtx)
	return err
}

// messageAttributes lets subscribers route and dedupe without decoding the
// payload. The worker dedupes on the envelope event id.
func messageAttributes(event models.OutboxEvent, envelope outbox.PayloadEnvelope) map[string]string {
	attrs := map[string]string{
		"event_id":       envelope.EventID,
		"event_type":     string(event.EventType),
		"aggregate_type": string(event.AggregateType),
		"aggregate_id":   event.AggregateID.String(),
		"created_at":     event.CreatedAt.Format(time.RFC3339Nano),
		"version":        strconv.Itoa(envelope.Version),
	}
	if actor := envelope.Actor; actor != nil {
		attrs["company_id"] = actor.CompanyID.String()
		if actor.UserID != uuid.Nil {
			attrs["user_id"] = actor.UserID.String()
		}
	}
	return attrs
}

type gcpPublisher struct {
	*gcppubsub.Publisher
}

func (p gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return gcpResult{p.Publisher.Publish(ctx, msg)}
}

type gcpResult struct {
	*gcppubsub.PublishResult
}

func (r gcpResult) Get(ctx context.Context) (string, error) {
	if r.PublishResult == nil {
		return "", errors.New("publish result is nil")
	}
	return r.PublishResult.Get(ctx)
}
