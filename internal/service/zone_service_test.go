package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parking-control/internal/domain/zone"
	"parking-control/internal/realtime"
	"parking-control/internal/repository"
	"parking-control/internal/repository/memory"
)

func newZoneService(t *testing.T) (*ZoneService, *memory.ZoneStore) {
	t.Helper()
	store := memory.NewZoneStore()
	bus := realtime.NewBus(16, zerolog.Nop())
	return NewZoneService(store, bus, zerolog.Nop()), store
}

func TestZoneCreate(t *testing.T) {
	svc, _ := newZoneService(t)
	ctx := context.Background()

	view, err := svc.Create(ctx, ZoneInput{Name: "Zone A", TotalSlots: 20, Location: "North gate"})
	require.NoError(t, err)
	assert.Equal(t, 20, view.TotalSlots)
	assert.Equal(t, 20, view.AvailableSlots)
	assert.Equal(t, zone.DefaultThresholdPercentage, view.ThresholdPercentage)
	assert.True(t, view.IsActive)

	_, err = svc.Create(ctx, ZoneInput{Name: "Zone A", TotalSlots: 5})
	assert.ErrorIs(t, err, repository.ErrDuplicateName)
}

func TestZoneCreateValidation(t *testing.T) {
	svc, _ := newZoneService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, ZoneInput{TotalSlots: 5})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.Create(ctx, ZoneInput{Name: "Zone A", TotalSlots: 0})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.Create(ctx, ZoneInput{Name: "Zone A", TotalSlots: 5, ThresholdPercentage: 101})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestZoneUpdateCannotShrinkBelowOccupancy(t *testing.T) {
	svc, store := newZoneService(t)
	ctx := context.Background()
	z := store.Seed(zone.Zone{Name: "Zone A", TotalSlots: 10, OccupiedSlots: 6})

	_, err := svc.Update(ctx, z.ID, ZoneInput{Name: "Zone A", TotalSlots: 5, ThresholdPercentage: 90})
	assert.ErrorIs(t, err, ErrInvalidInput)

	view, err := svc.Update(ctx, z.ID, ZoneInput{Name: "Zone A", TotalSlots: 8, ThresholdPercentage: 80})
	require.NoError(t, err)
	assert.Equal(t, 8, view.TotalSlots)
	assert.Equal(t, 6, view.OccupiedSlots, "occupancy is untouched by administrative updates")
	assert.Equal(t, 80, view.ThresholdPercentage)
}

func TestZoneDelete(t *testing.T) {
	svc, store := newZoneService(t)
	ctx := context.Background()
	z := store.Seed(zone.Zone{Name: "Zone A", TotalSlots: 10})

	require.NoError(t, svc.Delete(ctx, z.ID))
	views, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, views)

	assert.ErrorIs(t, svc.Delete(ctx, z.ID), repository.ErrNotFound)
}
