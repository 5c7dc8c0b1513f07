package enums

import "fmt"

// OutboxEventType names a domain event queued for publication.
type OutboxEventType string

const (
	EventOrderCreated           OutboxEventType = "order.created"
	EventReconciliationRequired OutboxEventType = "checkout.reconciliation_required"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderCreated,
	EventReconciliationRequired,
}

// IsValid reports whether the value is a known OutboxEventType.
func (t OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into an OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid outbox event type %q", value)
}

// OutboxAggregateType names the aggregate an outbox event is anchored to.
type OutboxAggregateType string

const (
	AggregateCheckout OutboxAggregateType = "checkout"
	AggregateOrder    OutboxAggregateType = "order"
)

// IsValid reports whether the value is a known OutboxAggregateType.
func (t OutboxAggregateType) IsValid() bool {
	return t == AggregateCheckout || t == AggregateOrder
}
