package catalog_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/escapehq/escape/internal/catalog"
	"github.com/escapehq/escape/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededMemory(seats int) (*catalog.Memory, uuid.UUID, uuid.UUID) {
	experienceID := uuid.New()
	slotID := uuid.New()
	m := catalog.NewMemory([]domain.Experience{{
		ID:         experienceID,
		Title:      "Night Kayaking",
		Categories: []domain.Category{domain.CategoryAdventure},
		Reviews: []domain.Review{
			{ID: uuid.New(), UserName: "Ananya", Rating: 5, Comment: "Absolutely loved it!"},
		},
		Slots: []domain.Slot{
			{ID: slotID, StartTime: time.Now().Add(24 * time.Hour), SeatsAvailable: seats, TotalSeats: seats, Price: 1800},
		},
	}})
	return m, experienceID, slotID
}

func TestMemory_SnapshotsDoNotAliasStore(t *testing.T) {
	ctx := context.Background()
	m, experienceID, slotID := seededMemory(10)

	snap, err := m.GetExperience(ctx, experienceID)
	require.NoError(t, err)
	require.Len(t, snap.Slots, 1)
	assert.Equal(t, 10, snap.Slots[0].SeatsAvailable)

	require.NoError(t, m.ReserveSeats(ctx, experienceID, slotID, 4))

	// the snapshot keeps the seat count it was taken with
	assert.Equal(t, 10, snap.Slots[0].SeatsAvailable)

	// mutating the snapshot must not leak back into the store
	snap.Slots[0].SeatsAvailable = 0
	snap.Reviews[0].Comment = "edited"
	slot, err := m.GetSlot(ctx, experienceID, slotID)
	require.NoError(t, err)
	assert.Equal(t, 6, slot.SeatsAvailable)
	fresh, err := m.GetExperience(ctx, experienceID)
	require.NoError(t, err)
	assert.Equal(t, "Absolutely loved it!", fresh.Reviews[0].Comment)

	list, err := m.GetExperiences(ctx)
	require.NoError(t, err)
	list[0].Slots[0].SeatsAvailable = 99
	slot, err = m.GetSlot(ctx, experienceID, slotID)
	require.NoError(t, err)
	assert.Equal(t, 6, slot.SeatsAvailable)
}

func TestMemory_SeedSliceDetached(t *testing.T) {
	ctx := context.Background()
	experienceID := uuid.New()
	slotID := uuid.New()
	seed := []domain.Experience{{
		ID:    experienceID,
		Slots: []domain.Slot{{ID: slotID, SeatsAvailable: 5, TotalSeats: 5, Price: 900}},
	}}
	m := catalog.NewMemory(seed)

	seed[0].Slots[0].SeatsAvailable = 0

	slot, err := m.GetSlot(ctx, experienceID, slotID)
	require.NoError(t, err)
	assert.Equal(t, 5, slot.SeatsAvailable)
}

func TestMemory_ConcurrentReadsDuringReservations(t *testing.T) {
	ctx := context.Background()
	m, experienceID, slotID := seededMemory(1000)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = m.ReserveSeats(ctx, experienceID, slotID, 1)
			}
		}()
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				exp, err := m.GetExperience(ctx, experienceID)
				if err != nil {
					return
				}
				// reads of the snapshot must be safe while reservations land
				_ = exp.Slots[0].SeatsAvailable
			}
		}()
	}
	wg.Wait()

	slot, err := m.GetSlot(ctx, experienceID, slotID)
	require.NoError(t, err)
	assert.Equal(t, 600, slot.SeatsAvailable)
}
