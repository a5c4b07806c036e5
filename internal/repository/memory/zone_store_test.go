package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parking-control/internal/domain/zone"
	"parking-control/internal/repository"
)

func TestIncrementIfCapacityBounds(t *testing.T) {
	s := NewZoneStore()
	z := s.Seed(zone.Zone{Name: "Zone A", TotalSlots: 2})
	ctx := context.Background()

	snap, ok, err := s.IncrementIfCapacity(ctx, z.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, snap.OccupiedSlots)

	snap, ok, err = s.IncrementIfCapacity(ctx, z.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, snap.OccupiedSlots)

	snap, ok, err = s.IncrementIfCapacity(ctx, z.ID)
	require.NoError(t, err)
	assert.False(t, ok, "a full zone must refuse the increment")
	assert.Equal(t, 2, snap.OccupiedSlots)
}

func TestIncrementUnknownZone(t *testing.T) {
	s := NewZoneStore()
	_, _, err := s.IncrementIfCapacity(context.Background(), 99)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestDecrementFlooredAtZero(t *testing.T) {
	s := NewZoneStore()
	z := s.Seed(zone.Zone{Name: "Zone A", TotalSlots: 3, OccupiedSlots: 1})
	ctx := context.Background()

	snap, err := s.Decrement(ctx, z.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, snap.OccupiedSlots)

	snap, err = s.Decrement(ctx, z.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, snap.OccupiedSlots, "decrement never drives occupancy negative")
}

func TestConcurrentIncrementsNeverExceedCapacity(t *testing.T) {
	const capacity = 10
	const callers = 100
	s := NewZoneStore()
	z := s.Seed(zone.Zone{Name: "Zone A", TotalSlots: capacity})
	ctx := context.Background()

	var wg sync.WaitGroup
	wins := make(chan struct{}, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok, err := s.IncrementIfCapacity(ctx, z.ID); err == nil && ok {
				wins <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(wins)

	won := 0
	for range wins {
		won++
	}
	assert.Equal(t, capacity, won)

	snap, err := s.Snapshot(ctx, z.ID)
	require.NoError(t, err)
	assert.Equal(t, capacity, snap.OccupiedSlots)
}

func TestSoftDeleteHidesZone(t *testing.T) {
	s := NewZoneStore()
	a := s.Seed(zone.Zone{Name: "Zone A", TotalSlots: 5})
	s.Seed(zone.Zone{Name: "Zone B", TotalSlots: 5})
	ctx := context.Background()

	require.NoError(t, s.SoftDelete(ctx, a.ID))

	zones, err := s.FindAllActive(ctx)
	require.NoError(t, err)
	require.Len(t, zones, 1)
	assert.Equal(t, "Zone B", zones[0].Name)

	// soft-deleted zones are still addressable by id for ledger joins
	stale, err := s.FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, stale.IsActive)

	first, err := s.FirstActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Zone B", first.Name)
}

func TestCreateRejectsDuplicateName(t *testing.T) {
	s := NewZoneStore()
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, &zone.Zone{Name: "Zone A", TotalSlots: 5}))
	err := s.Create(ctx, &zone.Zone{Name: "Zone A", TotalSlots: 9})
	assert.ErrorIs(t, err, repository.ErrDuplicateName)
}
