package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/escapehq/escape/internal/catalog"
	"github.com/escapehq/escape/internal/domain"
	"github.com/escapehq/escape/internal/ledger"
	"github.com/escapehq/escape/internal/observability"
	"github.com/google/uuid"
)

// Manager drives a booking from slot selection to confirmation: seats are
// taken atomically at reserve time, a payment order reference is attached,
// and Confirm flips the booking to confirmed. Tentative bookings left behind
// by abandoned flows are cancelled by ExpireStale and their seats restored.
type Manager struct {
	ledger  ledger.Ledger
	catalog catalog.Catalog
	events  EventPublisher
	logger  observability.Logger
	ttl     time.Duration
}

func NewManager(led ledger.Ledger, cat catalog.Catalog, events EventPublisher, logger observability.Logger, ttl time.Duration) *Manager {
	return &Manager{
		ledger:  led,
		catalog: cat,
		events:  events,
		logger:  logger,
		ttl:     ttl,
	}
}

// Reserve creates a tentative booking for participants seats on the given
// slot. The seat decrement and the capacity check are a single atomic step in
// the catalog, so concurrent reservations cannot oversell a slot.
func (m *Manager) Reserve(ctx context.Context, userID, experienceID, slotID uuid.UUID, participants int) (domain.Booking, error) {
	if participants < 1 {
		return domain.Booking{}, domain.ErrInvalidInput
	}

	slot, err := m.catalog.GetSlot(ctx, experienceID, slotID)
	if err != nil {
		return domain.Booking{}, err
	}

	if err := m.catalog.ReserveSeats(ctx, experienceID, slotID, participants); err != nil {
		if errors.Is(err, domain.ErrCapacityExceeded) {
			observability.CapacityRejections.Inc()
		}
		return domain.Booking{}, err
	}

	b := domain.NewBooking(experienceID, slotID, userID, participants, slot.Price, m.ttl)
	if err := m.ledger.Append(ctx, b); err != nil {
		if relErr := m.catalog.ReleaseSeats(ctx, experienceID, slotID, participants); relErr != nil {
			m.logger.WithError(relErr).WithField("slot_id", slotID).Error("failed to release seats after append failure")
		}
		return domain.Booking{}, err
	}

	observability.BookingsReserved.Inc()
	m.publish(ctx, "booking.reserved", map[string]interface{}{
		"booking_id":    b.ID,
		"experience_id": experienceID,
		"slot_id":       slotID,
		"user_id":       userID,
		"participants":  participants,
		"total_amount":  b.TotalAmount,
	})
	return b, nil
}

// CreateOrder attaches a payment order reference to an existing tentative
// booking and returns it. The reference is persisted for auditability.
func (m *Manager) CreateOrder(ctx context.Context, bookingID uuid.UUID, amount float64) (string, error) {
	b, err := m.ledger.FindByID(ctx, bookingID)
	if err != nil {
		return "", err
	}
	if b.Status != domain.BookingTentative {
		return "", domain.ErrConflict
	}

	orderRef := fmt.Sprintf("order_rcptid_%d", time.Now().UnixMilli())
	if err := m.ledger.SetOrderRef(ctx, bookingID, orderRef); err != nil {
		return "", err
	}

	m.publish(ctx, "order.created", map[string]interface{}{
		"booking_id": bookingID,
		"order_ref":  orderRef,
		"amount":     amount,
	})
	return orderRef, nil
}

// ValidatePaymentDetails applies the method-specific field rules. It never
// advances the booking and holds no state.
func (m *Manager) ValidatePaymentDetails(method domain.PaymentMethod, details domain.PaymentDetails) bool {
	return domain.ValidatePaymentDetails(method, details)
}

// Confirm flips a tentative booking to confirmed and records the payment
// reference. Unknown ids fail with domain.ErrBookingNotFound; bookings that
// already left the tentative state fail with domain.ErrConflict.
func (m *Manager) Confirm(ctx context.Context, bookingID uuid.UUID, paymentRef string) (domain.Booking, error) {
	b, err := m.ledger.UpdateStatus(ctx, bookingID, domain.BookingConfirmed, paymentRef)
	if err != nil {
		return domain.Booking{}, err
	}

	observability.BookingsConfirmed.Inc()
	m.publish(ctx, "booking.confirmed", map[string]interface{}{
		"booking_id":  b.ID,
		"user_id":     b.UserID,
		"payment_ref": paymentRef,
	})
	return b, nil
}

// GetUserBookings returns the user's confirmed bookings, newest first.
func (m *Manager) GetUserBookings(ctx context.Context, userID uuid.UUID) ([]domain.Booking, error) {
	return m.ledger.FilterByUser(ctx, userID, domain.BookingConfirmed)
}

type PartitionedBookings struct {
	Upcoming []domain.Booking
	Past     []domain.Booking
}

// PartitionBookings splits the user's confirmed bookings into upcoming and
// past by comparing each booking's slot start time against now. Bookings
// whose slot can no longer be resolved are skipped.
func (m *Manager) PartitionBookings(ctx context.Context, userID uuid.UUID, now time.Time) (PartitionedBookings, error) {
	bookings, err := m.ledger.FilterByUser(ctx, userID, domain.BookingConfirmed)
	if err != nil {
		return PartitionedBookings{}, err
	}

	var out PartitionedBookings
	for _, b := range bookings {
		slot, err := m.catalog.GetSlot(ctx, b.ExperienceID, b.SlotID)
		if err != nil {
			m.logger.WithField("booking_id", b.ID).Warn("slot not resolvable, skipping booking in partition")
			continue
		}
		if slot.StartTime.After(now) {
			out.Upcoming = append(out.Upcoming, b)
		} else {
			out.Past = append(out.Past, b)
		}
	}
	return out, nil
}

// ExpireStale cancels tentative bookings whose TTL elapsed before now,
// restores their seats and publishes booking.expired. Returns how many were
// cancelled.
func (m *Manager) ExpireStale(ctx context.Context, now time.Time) (int, error) {
	stale, err := m.ledger.ExpiredTentative(ctx, now)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, b := range stale {
		if _, err := m.ledger.UpdateStatus(ctx, b.ID, domain.BookingCancelled, ""); err != nil {
			// raced with a confirm, the booking is no longer ours to cancel
			if errors.Is(err, domain.ErrConflict) {
				continue
			}
			m.logger.WithError(err).WithField("booking_id", b.ID).Error("failed to cancel stale booking")
			continue
		}
		if err := m.catalog.ReleaseSeats(ctx, b.ExperienceID, b.SlotID, b.Participants); err != nil {
			m.logger.WithError(err).WithField("booking_id", b.ID).Error("failed to restore seats for expired booking")
		}
		observability.BookingsExpired.Inc()
		m.publish(ctx, "booking.expired", map[string]interface{}{
			"booking_id": b.ID,
			"user_id":    b.UserID,
		})
		expired++
	}
	return expired, nil
}

func (m *Manager) publish(ctx context.Context, key string, payload map[string]interface{}) {
	if err := m.events.PublishJSON(ctx, key, payload); err != nil {
		m.logger.WithError(err).WithField("event", key).Warn("failed to publish event")
	}
}
