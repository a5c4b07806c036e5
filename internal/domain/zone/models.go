package zone

import (
	"time"
)

// DefaultThresholdPercentage is applied to zones created without an
// explicit warn threshold.
const DefaultThresholdPercentage = 90

// Zone is a bounded parking area with a live occupancy count.
// OccupiedSlots is only ever mutated through the store's atomic
// increment/decrement operations and always satisfies
// 0 <= OccupiedSlots <= TotalSlots.
type Zone struct {
	ID                  int64     `json:"id"`
	Name                string    `json:"name"`
	TotalSlots          int       `json:"total_slots"`
	OccupiedSlots       int       `json:"occupied_slots"`
	ThresholdPercentage int       `json:"threshold_percentage"`
	Location            string    `json:"location"`
	IsActive            bool      `json:"is_active"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

func (z *Zone) AvailableSlots() int {
	return z.TotalSlots - z.OccupiedSlots
}

func (z *Zone) OccupancyPercentage() int {
	if z.TotalSlots <= 0 {
		return 0
	}
	return int(float64(z.OccupiedSlots) / float64(z.TotalSlots) * 100)
}

// Snapshot returns the point-in-time view used as policy input.
func (z *Zone) Snapshot() Snapshot {
	return Snapshot{
		ZoneID:              z.ID,
		Name:                z.Name,
		TotalSlots:          z.TotalSlots,
		OccupiedSlots:       z.OccupiedSlots,
		ThresholdPercentage: z.ThresholdPercentage,
	}
}

// Snapshot is a read of a zone's capacity and occupancy at a point in
// time. It feeds the admission policy but is never trusted for the
// final mutation; the store re-checks capacity at increment time.
type Snapshot struct {
	ZoneID              int64  `json:"zone_id"`
	Name                string `json:"name"`
	TotalSlots          int    `json:"total_slots"`
	OccupiedSlots       int    `json:"occupied_slots"`
	ThresholdPercentage int    `json:"threshold_percentage"`
}

func (s Snapshot) AvailableSlots() int {
	return s.TotalSlots - s.OccupiedSlots
}

func (s Snapshot) OccupancyPercentage() float64 {
	if s.TotalSlots <= 0 {
		return 0
	}
	return float64(s.OccupiedSlots) / float64(s.TotalSlots) * 100
}

func (s Snapshot) HasFreeSlot() bool {
	return s.OccupiedSlots < s.TotalSlots
}
