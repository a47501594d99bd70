package enums

import "slices"

// OutboxAggregateType maps to the aggregate_type column of outbox_events.
type OutboxAggregateType string

const (
	AggregateJob           OutboxAggregateType = "job"
	AggregatePurchaseOrder OutboxAggregateType = "purchase_order"
	AggregateStockTransfer OutboxAggregateType = "stock_transfer"
	AggregateItem          OutboxAggregateType = "item"
	AggregateCompany       OutboxAggregateType = "company"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateJob,
	AggregatePurchaseOrder,
	AggregateStockTransfer,
	AggregateItem,
	AggregateCompany,
}

// IsValid reports whether the value matches a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	return slices.Contains(validAggregateTypes, a)
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	return parseEnum(validAggregateTypes, value, "aggregate type")
}

// OutboxEventType maps to the event_type column of outbox_events. Every event
// type is a background task consumed by the worker.
type OutboxEventType string

const (
	EventJobRequirementsRequested OutboxEventType = "job_requirements_requested"
	EventJobScheduleRequested     OutboxEventType = "job_schedule_requested"
	EventMRPRequested             OutboxEventType = "mrp_requested"
)

var validOutboxEventTypes = []OutboxEventType{
	EventJobRequirementsRequested,
	EventJobScheduleRequested,
	EventMRPRequested,
}

// IsValid reports whether the value matches a known event type.
func (e OutboxEventType) IsValid() bool {
	return slices.Contains(validOutboxEventTypes, e)
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	return parseEnum(validOutboxEventTypes, value, "event type")
}

// OutboxDLQErrorReason records why the publisher gave up on an event.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)

func (r OutboxDLQErrorReason) IsValid() bool {
	return r == OutboxDLQReasonMaxAttempts || r == OutboxDLQReasonNonRetryable
}
