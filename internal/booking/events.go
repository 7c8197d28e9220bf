package booking

import "context"

// EventPublisher receives lifecycle events (booking.reserved, order.created,
// booking.confirmed, booking.expired) keyed by routing key.
type EventPublisher interface {
	PublishJSON(ctx context.Context, key string, payload map[string]interface{}) error
}

// NopPublisher drops all events. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishJSON(ctx context.Context, key string, payload map[string]interface{}) error {
	return nil
}
