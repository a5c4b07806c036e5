package repository

import (
	"context"
	"errors"
	"time"

	"parking-control/internal/domain/vehicle"
	"parking-control/internal/domain/zone"
)

var (
	// ErrNotFound is returned when a referenced zone or record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExited guards the exit transition: it fires on the second
	// and any later attempt to mark the same record as exited.
	ErrAlreadyExited = errors.New("vehicle already exited")
	// ErrDuplicateName is returned when a zone name collides with an
	// existing active zone.
	ErrDuplicateName = errors.New("zone name already exists")
)

// ZoneRepository is the durable store for zone capacity and occupancy.
// Occupancy is mutated exclusively through IncrementIfCapacity and
// Decrement; both are atomic and totally ordered per zone, so no two
// concurrent callers can win the same last slot.
type ZoneRepository interface {
	FindByID(ctx context.Context, id int64) (*zone.Zone, error)
	FindByName(ctx context.Context, name string) (*zone.Zone, error)
	FirstActive(ctx context.Context) (*zone.Zone, error)
	FindAllActive(ctx context.Context) ([]zone.Zone, error)

	Create(ctx context.Context, z *zone.Zone) error
	Update(ctx context.Context, z *zone.Zone) error
	SoftDelete(ctx context.Context, id int64) error

	// Snapshot reads the zone state as policy input.
	Snapshot(ctx context.Context, id int64) (zone.Snapshot, error)

	// IncrementIfCapacity reserves one slot if and only if the live
	// occupied count is still below capacity at mutation time. The
	// returned bool reports whether the reservation won; on a lost
	// race the snapshot reflects the unmodified zone.
	IncrementIfCapacity(ctx context.Context, id int64) (zone.Snapshot, bool, error)

	// Decrement frees one slot, floored at zero.
	Decrement(ctx context.Context, id int64) (zone.Snapshot, error)
}

// RecordFilter narrows ledger listings. Zero values mean "no filter".
type RecordFilter struct {
	FuelType *vehicle.FuelClass
	Decision *vehicle.Decision
	Search   string // substring match on the number plate
	From     *time.Time
	To       *time.Time
	Limit    int
	Offset   int
}

// VehicleRepository is the append-only ledger of admission decisions.
// A record's decision is immutable after Append; only the processed
// flag, finalized-at and exit-at fields change afterwards.
type VehicleRepository interface {
	// Append stores a new record and assigns its id.
	Append(ctx context.Context, rec *vehicle.Record) error

	Find(ctx context.Context, id int64) (*vehicle.Record, error)
	ListPending(ctx context.Context, limit int) ([]vehicle.Record, error)
	List(ctx context.Context, filter RecordFilter) ([]vehicle.Record, error)

	// Finalize moves a pending record to the permanent ledger. It is
	// idempotent: finalizing an already-finalized record is a no-op.
	Finalize(ctx context.Context, id int64, at time.Time) (*vehicle.Record, error)

	// MarkExit sets the exit timestamp exactly once. A second call for
	// the same record returns ErrAlreadyExited.
	MarkExit(ctx context.Context, id int64, at time.Time) (*vehicle.Record, error)

	StatsSince(ctx context.Context, since time.Time) (vehicle.Stats, error)
	FuelDistribution(ctx context.Context) ([]vehicle.FuelCount, error)
	PollutionIndexSince(ctx context.Context, since time.Time) (int, error)

	// PurgeFinalized deletes finalized records detected before the cutoff.
	PurgeFinalized(ctx context.Context, cutoff time.Time) (int64, error)
}
