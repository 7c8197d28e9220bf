package ledger

import (
	"context"
	"time"

	"github.com/escapehq/escape/internal/domain"
	"github.com/google/uuid"
)

// Ledger is the append-mostly collection of all bookings. Implementations must
// treat status transitions as one-directional: UpdateStatus only moves a
// tentative booking forward and returns domain.ErrConflict otherwise.
type Ledger interface {
	Append(ctx context.Context, booking domain.Booking) error
	FindByID(ctx context.Context, id uuid.UUID) (domain.Booking, error)
	SetOrderRef(ctx context.Context, id uuid.UUID, orderRef string) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.BookingStatus, paymentRef string) (domain.Booking, error)
	FilterByUser(ctx context.Context, userID uuid.UUID, status domain.BookingStatus) ([]domain.Booking, error)
	ExpiredTentative(ctx context.Context, now time.Time) ([]domain.Booking, error)
}
