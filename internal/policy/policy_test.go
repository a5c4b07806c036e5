package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"parking-control/internal/domain/vehicle"
	"parking-control/internal/domain/zone"
)

func snap(total, occupied, threshold int) zone.Snapshot {
	return zone.Snapshot{
		ZoneID:              1,
		Name:                "Zone A",
		TotalSlots:          total,
		OccupiedSlots:       occupied,
		ThresholdPercentage: threshold,
	}
}

func TestDecide(t *testing.T) {
	cases := []struct {
		name     string
		category vehicle.Category
		snap     zone.Snapshot
		want     vehicle.Decision
	}{
		{"half full allows", vehicle.CategoryPrivate, snap(10, 5, 90), vehicle.DecisionAllow},
		{"at threshold warns", vehicle.CategoryPrivate, snap(10, 9, 90), vehicle.DecisionWarn},
		{"above threshold warns", vehicle.CategoryPrivate, snap(10, 10, 90), vehicle.DecisionWarn},
		{"just below threshold allows", vehicle.CategoryPrivate, snap(100, 89, 90), vehicle.DecisionAllow},
		{"full zone warns even with low threshold hit first", vehicle.CategoryPrivate, snap(2, 2, 99), vehicle.DecisionWarn},
		{"empty zone allows", vehicle.CategoryPrivate, snap(10, 0, 90), vehicle.DecisionAllow},
		{"commercial ignored regardless of space", vehicle.CategoryCommercial, snap(10, 0, 90), vehicle.DecisionIgnore},
		{"commercial ignored when full", vehicle.CategoryCommercial, snap(10, 10, 90), vehicle.DecisionIgnore},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Decide(tc.category, tc.snap))
		})
	}
}

func TestDecideIsPure(t *testing.T) {
	s := snap(10, 5, 90)
	for i := 0; i < 3; i++ {
		assert.Equal(t, vehicle.DecisionAllow, Decide(vehicle.CategoryPrivate, s))
	}
	// the snapshot must not be mutated by a decision
	assert.Equal(t, 5, s.OccupiedSlots)
}

func TestPollutionScores(t *testing.T) {
	assert.Equal(t, 0, vehicle.FuelEV.PollutionScore())
	assert.Equal(t, 20, vehicle.FuelCNG.PollutionScore())
	assert.Equal(t, 50, vehicle.FuelPetrol.PollutionScore())
	assert.Equal(t, 80, vehicle.FuelDiesel.PollutionScore())
	assert.Equal(t, 80, vehicle.FuelICE.PollutionScore())
}
