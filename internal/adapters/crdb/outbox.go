package crdb

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type OutboxRecord struct {
	ID            uuid.UUID
	AggregateType string
	AggregateID   uuid.UUID
	EventType     string
	Payload       []byte
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Status        string // NEW, PUBLISHED, FAILED
	DedupeKey     string
}

func (l *Ledger) InsertOutbox(ctx context.Context, record OutboxRecord) error {
	_, err := l.pool.Exec(ctx, `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload_json, status, dedupe_key)
		VALUES ($1, $2, $3, $4, $5, 'NEW', $6)
	`, record.ID, record.AggregateType, record.AggregateID, record.EventType, record.Payload, record.DedupeKey)
	return err
}

func (l *Ledger) GetUnpublishedOutbox(ctx context.Context, limit int) ([]OutboxRecord, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT id, aggregate_type, aggregate_id, event_type, payload_json, created_at, published_at, status, dedupe_key
		FROM outbox WHERE status = 'NEW' ORDER BY created_at ASC LIMIT $1 FOR UPDATE SKIP LOCKED
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []OutboxRecord
	for rows.Next() {
		var rec OutboxRecord
		err := rows.Scan(&rec.ID, &rec.AggregateType, &rec.AggregateID, &rec.EventType, &rec.Payload, &rec.CreatedAt, &rec.PublishedAt, &rec.Status, &rec.DedupeKey)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (l *Ledger) MarkPublished(ctx context.Context, id uuid.UUID, publishedAt time.Time, dedupeKey string) error {
	_, err := l.pool.Exec(ctx, `
		UPDATE outbox SET status = 'PUBLISHED', published_at = $2, dedupe_key = $3 WHERE id = $1
	`, id, publishedAt, dedupeKey)
	return err
}

// OutboxWriter records lifecycle events in the outbox table instead of
// publishing them directly. The outbox-publisher binary drains NEW records to
// the broker, so an event survives a broker outage that outlives the request.
type OutboxWriter struct {
	ledger *Ledger
}

func NewOutboxWriter(ledger *Ledger) *OutboxWriter {
	return &OutboxWriter{ledger: ledger}
}

func (w *OutboxWriter) PublishJSON(ctx context.Context, key string, payload map[string]interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	aggregateID := uuid.Nil
	if raw, ok := payload["booking_id"]; ok {
		if id, ok := raw.(uuid.UUID); ok {
			aggregateID = id
		}
	}

	return w.ledger.InsertOutbox(ctx, OutboxRecord{
		ID:            uuid.New(),
		AggregateType: "booking",
		AggregateID:   aggregateID,
		EventType:     key,
		Payload:       data,
		DedupeKey:     uuid.New().String(),
	})
}
