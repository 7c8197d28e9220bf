package catalog

import (
	"context"

	"github.com/escapehq/escape/internal/domain"
	"github.com/google/uuid"
)

// Catalog is the read side of the experience store plus the seat counters.
// ReserveSeats is an atomic check-and-decrement: it either takes all n seats
// or fails with domain.ErrCapacityExceeded without taking any.
type Catalog interface {
	GetExperiences(ctx context.Context) ([]domain.Experience, error)
	GetExperience(ctx context.Context, id uuid.UUID) (*domain.Experience, error)
	GetSlot(ctx context.Context, experienceID, slotID uuid.UUID) (domain.Slot, error)
	ReserveSeats(ctx context.Context, experienceID, slotID uuid.UUID, n int) error
	ReleaseSeats(ctx context.Context, experienceID, slotID uuid.UUID, n int) error
}
