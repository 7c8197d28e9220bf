package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/escapehq/escape/internal/domain"
	"github.com/google/uuid"
)

// Memory is the in-process ledger. Records live for the lifetime of the
// process; nothing is ever physically deleted.
type Memory struct {
	mu       sync.RWMutex
	bookings []domain.Booking
	byID     map[uuid.UUID]int
}

func NewMemory() *Memory {
	return &Memory{byID: make(map[uuid.UUID]int)}
}

func (m *Memory) Append(ctx context.Context, booking domain.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[booking.ID]; ok {
		return domain.ErrConflict
	}
	m.byID[booking.ID] = len(m.bookings)
	m.bookings = append(m.bookings, booking)
	return nil
}

func (m *Memory) FindByID(ctx context.Context, id uuid.UUID) (domain.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i, ok := m.byID[id]
	if !ok {
		return domain.Booking{}, domain.ErrBookingNotFound
	}
	return m.bookings[i], nil
}

func (m *Memory) SetOrderRef(ctx context.Context, id uuid.UUID, orderRef string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.byID[id]
	if !ok {
		return domain.ErrBookingNotFound
	}
	m.bookings[i].OrderRef = orderRef
	return nil
}

func (m *Memory) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.BookingStatus, paymentRef string) (domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.byID[id]
	if !ok {
		return domain.Booking{}, domain.ErrBookingNotFound
	}
	if m.bookings[i].Status != domain.BookingTentative {
		return domain.Booking{}, domain.ErrConflict
	}
	m.bookings[i].Status = status
	m.bookings[i].PaymentRef = paymentRef
	return m.bookings[i], nil
}

func (m *Memory) FilterByUser(ctx context.Context, userID uuid.UUID, status domain.BookingStatus) ([]domain.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.Booking
	for _, b := range m.bookings {
		if b.UserID == userID && b.Status == status {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *Memory) ExpiredTentative(ctx context.Context, now time.Time) ([]domain.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.Booking
	for _, b := range m.bookings {
		if b.Status == domain.BookingTentative && !b.ExpiresAt.After(now) {
			out = append(out, b)
		}
	}
	return out, nil
}
