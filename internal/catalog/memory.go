package catalog

import (
	"context"
	"sync"

	"github.com/escapehq/escape/internal/domain"
	"github.com/google/uuid"
)

// Memory serves a fixed set of experiences from process memory. Seat counters
// are mutated under the lock, so reservations cannot oversell a slot.
type Memory struct {
	mu          sync.RWMutex
	experiences map[uuid.UUID]*domain.Experience
	order       []uuid.UUID
}

func NewMemory(experiences []domain.Experience) *Memory {
	m := &Memory{experiences: make(map[uuid.UUID]*domain.Experience)}
	for i := range experiences {
		exp := cloneExperience(experiences[i])
		m.experiences[exp.ID] = &exp
		m.order = append(m.order, exp.ID)
	}
	return m
}

func (m *Memory) GetExperiences(ctx context.Context) ([]domain.Experience, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Experience, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, cloneExperience(*m.experiences[id]))
	}
	return out, nil
}

func (m *Memory) GetExperience(ctx context.Context, id uuid.UUID) (*domain.Experience, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	exp, ok := m.experiences[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := cloneExperience(*exp)
	return &cp, nil
}

func (m *Memory) GetSlot(ctx context.Context, experienceID, slotID uuid.UUID) (domain.Slot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	slot, err := m.slotLocked(experienceID, slotID)
	if err != nil {
		return domain.Slot{}, err
	}
	return *slot, nil
}

func (m *Memory) ReserveSeats(ctx context.Context, experienceID, slotID uuid.UUID, n int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	slot, err := m.slotLocked(experienceID, slotID)
	if err != nil {
		return err
	}
	if n > slot.SeatsAvailable {
		return domain.ErrCapacityExceeded
	}
	slot.SeatsAvailable -= n
	return nil
}

func (m *Memory) ReleaseSeats(ctx context.Context, experienceID, slotID uuid.UUID, n int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	slot, err := m.slotLocked(experienceID, slotID)
	if err != nil {
		return err
	}
	slot.SeatsAvailable += n
	if slot.SeatsAvailable > slot.TotalSeats {
		slot.SeatsAvailable = slot.TotalSeats
	}
	return nil
}

// cloneExperience detaches the slices, so snapshots handed to callers never
// alias the store's state and reads of a snapshot cannot race a seat update.
func cloneExperience(exp domain.Experience) domain.Experience {
	exp.Slots = append([]domain.Slot(nil), exp.Slots...)
	exp.Reviews = append([]domain.Review(nil), exp.Reviews...)
	exp.Categories = append([]domain.Category(nil), exp.Categories...)
	return exp
}

func (m *Memory) slotLocked(experienceID, slotID uuid.UUID) (*domain.Slot, error) {
	exp, ok := m.experiences[experienceID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	for i := range exp.Slots {
		if exp.Slots[i].ID == slotID {
			return &exp.Slots[i], nil
		}
	}
	return nil, domain.ErrNotFound
}
