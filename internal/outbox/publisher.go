package outbox

import (
	"context"
	"time"

	"github.com/escapehq/escape/internal/adapters/crdb"
	"github.com/escapehq/escape/internal/adapters/rabbit"
	"github.com/escapehq/escape/internal/observability"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher drains NEW outbox records to the broker in order, marking each
// one PUBLISHED once the broker accepted it. Records that fail to publish are
// retried on the next tick.
type Publisher struct {
	ledger    *crdb.Ledger
	rabbitPub *rabbit.Publisher
	logger    observability.Logger
}

func NewPublisher(ledger *crdb.Ledger, rabbitPub *rabbit.Publisher, logger observability.Logger) *Publisher {
	return &Publisher{ledger: ledger, rabbitPub: rabbitPub, logger: logger}
}

func (p *Publisher) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.drain(ctx)
		}
	}
}

func (p *Publisher) drain(ctx context.Context) {
	records, err := p.ledger.GetUnpublishedOutbox(ctx, 10)
	if err != nil {
		p.logger.WithError(err).Error("failed to fetch outbox records")
		return
	}

	for _, rec := range records {
		observability.OutboxLag.Set(time.Since(rec.CreatedAt).Seconds())

		msg := amqp.Publishing{
			MessageId:   rec.DedupeKey,
			ContentType: "application/json",
			Body:        rec.Payload,
		}
		if err := p.rabbitPub.Publish(ctx, rec.EventType, msg); err != nil {
			observability.RabbitPublishRetries.Inc()
			p.logger.WithError(err).WithField("event", rec.EventType).Warn("failed to publish outbox record")
			continue
		}
		if err := p.ledger.MarkPublished(ctx, rec.ID, time.Now(), rec.DedupeKey); err != nil {
			p.logger.WithError(err).Error("failed to mark outbox record published")
		}
	}
}
