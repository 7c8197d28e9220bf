package mongo

import (
	"context"
	"time"

	"github.com/escapehq/escape/internal/domain"
	"github.com/escapehq/escape/internal/observability"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type AuditLogger struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewAuditLogger(db *mongo.Database, logger observability.Logger) *AuditLogger {
	return &AuditLogger{
		coll:   db.Collection("audit_logs"),
		logger: logger,
	}
}

type AuditLog struct {
	ID        uuid.UUID `bson:"_id"`
	Action    string    `bson:"action"`
	UserID    uuid.UUID `bson:"user_id"`
	Timestamp time.Time `bson:"timestamp"`
	Data      bson.M    `bson:"data"`
}

func (a *AuditLogger) LogEvent(ctx context.Context, action string, userID uuid.UUID, data map[string]interface{}) error {
	log := AuditLog{
		ID:        uuid.New(),
		Action:    action,
		UserID:    userID,
		Timestamp: time.Now(),
		Data:      bson.M(data),
	}
	_, err := a.coll.InsertOne(ctx, log)
	if err != nil {
		a.logger.WithError(err).Error("failed to insert audit log")
		return err
	}
	return nil
}

func (a *AuditLogger) LogReservation(ctx context.Context, booking domain.Booking) error {
	data := map[string]interface{}{
		"booking_id":    booking.ID,
		"experience_id": booking.ExperienceID,
		"slot_id":       booking.SlotID,
		"participants":  booking.Participants,
		"total_amount":  booking.TotalAmount,
		"expires_at":    booking.ExpiresAt.Format(time.RFC3339),
	}
	return a.LogEvent(ctx, "booking.reserved", booking.UserID, data)
}

func (a *AuditLogger) LogConfirmation(ctx context.Context, booking domain.Booking) error {
	data := map[string]interface{}{
		"booking_id":  booking.ID,
		"payment_ref": booking.PaymentRef,
		"order_ref":   booking.OrderRef,
		"total":       booking.TotalAmount,
	}
	return a.LogEvent(ctx, "booking.confirmed", booking.UserID, data)
}
