package policy

import (
	"parking-control/internal/domain/vehicle"
	"parking-control/internal/domain/zone"
)

// Decide applies the admission policy to a classified detection against
// a zone snapshot. It is pure: no side effects, no I/O, deterministic
// for a given input.
//
// Commercial vehicles are never subject to capacity control and are
// ignored unconditionally. Private vehicles are admitted while the
// snapshot occupancy is below the zone's warn threshold and at least
// one slot is free; otherwise the facility is treated as full and the
// vehicle is warned away.
//
// The snapshot is advisory only. An Allow here is re-validated by the
// store's conditional increment before it is persisted.
func Decide(category vehicle.Category, snap zone.Snapshot) vehicle.Decision {
	if category == vehicle.CategoryCommercial {
		return vehicle.DecisionIgnore
	}
	if snap.OccupancyPercentage() < float64(snap.ThresholdPercentage) && snap.HasFreeSlot() {
		return vehicle.DecisionAllow
	}
	return vehicle.DecisionWarn
}
