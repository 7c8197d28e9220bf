package booking_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/escapehq/escape/internal/booking"
	"github.com/escapehq/escape/internal/catalog"
	"github.com/escapehq/escape/internal/domain"
	"github.com/escapehq/escape/internal/ledger"
	"github.com/escapehq/escape/internal/observability"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	manager      *booking.Manager
	ledger       *ledger.Memory
	catalog      *catalog.Memory
	experienceID uuid.UUID
	slotID       uuid.UUID
	pastSlotID   uuid.UUID
	userID       uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	experienceID := uuid.New()
	slotID := uuid.New()
	pastSlotID := uuid.New()

	cat := catalog.NewMemory([]domain.Experience{{
		ID:       experienceID,
		Title:    "Midnight Kayak Tour",
		HostName: "Asha",
		Slots: []domain.Slot{
			{ID: slotID, StartTime: time.Now().Add(48 * time.Hour), SeatsAvailable: 5, TotalSeats: 8, Price: 1800},
			{ID: pastSlotID, StartTime: time.Now().Add(-48 * time.Hour), SeatsAvailable: 3, TotalSeats: 8, Price: 1200},
		},
	}})
	led := ledger.NewMemory()

	return &fixture{
		manager:      booking.NewManager(led, cat, booking.NopPublisher{}, observability.NewLogger(), 15*time.Minute),
		ledger:       led,
		catalog:      cat,
		experienceID: experienceID,
		slotID:       slotID,
		pastSlotID:   pastSlotID,
		userID:       uuid.New(),
	}
}

func TestManager_Reserve(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	b, err := f.manager.Reserve(ctx, f.userID, f.experienceID, f.slotID, 2)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, b.ID)
	assert.Equal(t, domain.BookingTentative, b.Status)
	assert.Equal(t, 2, b.Participants)
	assert.Equal(t, 3600.0, b.TotalAmount)
	assert.Empty(t, b.PaymentRef)

	slot, err := f.catalog.GetSlot(ctx, f.experienceID, f.slotID)
	require.NoError(t, err)
	assert.Equal(t, 3, slot.SeatsAvailable)
}

func TestManager_ReserveValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.manager.Reserve(ctx, f.userID, f.experienceID, f.slotID, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.manager.Reserve(ctx, f.userID, f.experienceID, uuid.New(), 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.manager.Reserve(ctx, f.userID, f.experienceID, f.slotID, 6)
	assert.ErrorIs(t, err, domain.ErrCapacityExceeded)

	// rejected reservations must not leak seats or ledger entries
	slot, err := f.catalog.GetSlot(ctx, f.experienceID, f.slotID)
	require.NoError(t, err)
	assert.Equal(t, 5, slot.SeatsAvailable)

	bookings, err := f.ledger.FilterByUser(ctx, f.userID, domain.BookingTentative)
	require.NoError(t, err)
	assert.Empty(t, bookings)
}

func TestManager_CreateOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	b, err := f.manager.Reserve(ctx, f.userID, f.experienceID, f.slotID, 1)
	require.NoError(t, err)

	ref, err := f.manager.CreateOrder(ctx, b.ID, b.TotalAmount)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ref, "order_rcptid_"))

	stored, err := f.ledger.FindByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, ref, stored.OrderRef)

	_, err = f.manager.CreateOrder(ctx, uuid.New(), 100)
	assert.ErrorIs(t, err, domain.ErrBookingNotFound)

	_, err = f.manager.Confirm(ctx, b.ID, "pay_1")
	require.NoError(t, err)
	_, err = f.manager.CreateOrder(ctx, b.ID, b.TotalAmount)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestManager_ConfirmFlow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	b, err := f.manager.Reserve(ctx, f.userID, f.experienceID, f.slotID, 2)
	require.NoError(t, err)

	_, err = f.manager.CreateOrder(ctx, b.ID, b.TotalAmount)
	require.NoError(t, err)

	confirmed, err := f.manager.Confirm(ctx, b.ID, "pay_123")
	require.NoError(t, err)
	assert.Equal(t, domain.BookingConfirmed, confirmed.Status)
	assert.Equal(t, "pay_123", confirmed.PaymentRef)
	assert.Equal(t, 2, confirmed.Participants)
}

func TestManager_ConfirmUnknownID(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	b, err := f.manager.Reserve(ctx, f.userID, f.experienceID, f.slotID, 1)
	require.NoError(t, err)

	_, err = f.manager.Confirm(ctx, uuid.New(), "pay_999")
	assert.ErrorIs(t, err, domain.ErrBookingNotFound)

	// the failed confirm must leave the ledger untouched
	stored, err := f.ledger.FindByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingTentative, stored.Status)
	assert.Empty(t, stored.PaymentRef)
}

func TestManager_GetUserBookingsOrdering(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		b, err := f.manager.Reserve(ctx, f.userID, f.experienceID, f.slotID, 1)
		require.NoError(t, err)
		_, err = f.manager.Confirm(ctx, b.ID, "pay_1")
		require.NoError(t, err)
		ids = append(ids, b.ID)
		time.Sleep(2 * time.Millisecond)
	}

	got, err := f.manager.GetUserBookings(ctx, f.userID)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, ids[2], got[0].ID)
	assert.Equal(t, ids[1], got[1].ID)
	assert.Equal(t, ids[0], got[2].ID)

	again, err := f.manager.GetUserBookings(ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, got, again)
}

func TestManager_PartitionBookings(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	future, err := f.manager.Reserve(ctx, f.userID, f.experienceID, f.slotID, 1)
	require.NoError(t, err)
	_, err = f.manager.Confirm(ctx, future.ID, "pay_1")
	require.NoError(t, err)

	past, err := f.manager.Reserve(ctx, f.userID, f.experienceID, f.pastSlotID, 1)
	require.NoError(t, err)
	_, err = f.manager.Confirm(ctx, past.ID, "pay_2")
	require.NoError(t, err)

	parts, err := f.manager.PartitionBookings(ctx, f.userID, time.Now())
	require.NoError(t, err)
	require.Len(t, parts.Upcoming, 1)
	require.Len(t, parts.Past, 1)
	assert.Equal(t, future.ID, parts.Upcoming[0].ID)
	assert.Equal(t, past.ID, parts.Past[0].ID)
}

func TestManager_ExpireStale(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	// a stale tentative booking holding 2 seats
	stale := domain.NewBooking(f.experienceID, f.slotID, f.userID, 2, 1800, -time.Minute)
	require.NoError(t, f.catalog.ReserveSeats(ctx, f.experienceID, f.slotID, 2))
	require.NoError(t, f.ledger.Append(ctx, stale))

	fresh, err := f.manager.Reserve(ctx, f.userID, f.experienceID, f.slotID, 1)
	require.NoError(t, err)

	n, err := f.manager.ExpireStale(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	cancelled, err := f.ledger.FindByID(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingCancelled, cancelled.Status)
	assert.Empty(t, cancelled.PaymentRef)

	kept, err := f.ledger.FindByID(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingTentative, kept.Status)

	// stale booking's 2 seats restored, fresh booking's seat still taken
	slot, err := f.catalog.GetSlot(ctx, f.experienceID, f.slotID)
	require.NoError(t, err)
	assert.Equal(t, 4, slot.SeatsAvailable)
}
