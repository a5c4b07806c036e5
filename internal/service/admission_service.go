package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"parking-control/internal/domain/vehicle"
	"parking-control/internal/domain/zone"
	"parking-control/internal/policy"
	"parking-control/internal/realtime"
	"parking-control/internal/repository"
	"parking-control/internal/utils"
)

var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrNotFound      = repository.ErrNotFound
	ErrAlreadyExited = repository.ErrAlreadyExited
)

// ZoneResolver picks the target zone for a detection. The default
// implementation resolves an explicit zone id first, then the
// configured default zone, then the first active zone.
type ZoneResolver interface {
	Resolve(ctx context.Context, explicit *int64) (*zone.Zone, error)
}

type defaultZoneResolver struct {
	zones       repository.ZoneRepository
	defaultName string
}

func NewDefaultZoneResolver(zones repository.ZoneRepository, defaultName string) ZoneResolver {
	return &defaultZoneResolver{zones: zones, defaultName: defaultName}
}

func (r *defaultZoneResolver) Resolve(ctx context.Context, explicit *int64) (*zone.Zone, error) {
	if explicit != nil {
		z, err := r.zones.FindByID(ctx, *explicit)
		if err != nil {
			return nil, err
		}
		if !z.IsActive {
			return nil, repository.ErrNotFound
		}
		return z, nil
	}
	if r.defaultName != "" {
		if z, err := r.zones.FindByName(ctx, r.defaultName); err == nil && z.IsActive {
			return z, nil
		}
	}
	return r.zones.FirstActive(ctx)
}

// AdmissionResult is the outcome of a processed detection. Zone is nil
// when the vehicle was not subject to parking control.
type AdmissionResult struct {
	Record *vehicle.Record `json:"record"`
	Zone   *zone.Snapshot  `json:"zone,omitempty"`
}

// ExitResult reports a recorded departure.
type ExitResult struct {
	Record *vehicle.Record `json:"record"`
	Zone   *zone.Snapshot  `json:"zone,omitempty"`
}

// AdmissionService is the admission and occupancy engine. It validates
// detections, applies the admission policy, mutates zone occupancy
// atomically, persists the decision and publishes it to subscribers.
type AdmissionService struct {
	zones    repository.ZoneRepository
	vehicles repository.VehicleRepository
	resolver ZoneResolver
	bus      *realtime.Bus
	log      zerolog.Logger
}

func NewAdmissionService(
	zones repository.ZoneRepository,
	vehicles repository.VehicleRepository,
	resolver ZoneResolver,
	bus *realtime.Bus,
	log zerolog.Logger,
) *AdmissionService {
	return &AdmissionService{
		zones:    zones,
		vehicles: vehicles,
		resolver: resolver,
		bus:      bus,
		log:      log,
	}
}

// Admit processes one inbound detection end to end. Detections are
// synchronous: the record is finalized immediately, a pending state
// only exists for records created by external back-fill.
//
// An Allow from the policy is optimistic; the store's conditional
// increment is the authority. Losing the capacity race downgrades the
// outcome to Warn before anything is persisted.
func (s *AdmissionService) Admit(ctx context.Context, det vehicle.Detection) (*AdmissionResult, error) {
	normalized := utils.NormalizePlate(det.NumberPlate)
	if normalized == "" {
		return nil, fmt.Errorf("%w: number plate is required", ErrInvalidInput)
	}
	if !det.Category.Valid() {
		return nil, fmt.Errorf("%w: unknown vehicle category %q", ErrInvalidInput, det.Category)
	}
	if !det.FuelType.Valid() {
		return nil, fmt.Errorf("%w: unknown fuel type %q", ErrInvalidInput, det.FuelType)
	}
	if det.Confidence < 0 || det.Confidence > 100 {
		return nil, fmt.Errorf("%w: confidence must be within [0,100]", ErrInvalidInput)
	}

	detectedAt := det.DetectedAt
	if detectedAt.IsZero() {
		detectedAt = time.Now()
	}
	now := time.Now()

	rec := &vehicle.Record{
		NumberPlate:     det.NumberPlate,
		NormalizedPlate: normalized,
		Category:        det.Category,
		FuelType:        det.FuelType,
		Confidence:      det.Confidence,
		PollutionScore:  det.FuelType.PollutionScore(),
		DetectedAt:      detectedAt,
		Processed:       true,
		FinalizedAt:     &now,
		RawPayload:      det.RawPayload,
	}

	// Commercial vehicles bypass capacity control entirely.
	if det.Category == vehicle.CategoryCommercial {
		rec.Decision = vehicle.DecisionIgnore
		if err := s.vehicles.Append(ctx, rec); err != nil {
			return nil, fmt.Errorf("failed to store admission record: %w", err)
		}
		s.log.Info().
			Int64("record_id", rec.ID).
			Str("plate", normalized).
			Str("decision", string(rec.Decision)).
			Msg("commercial vehicle ignored")
		s.bus.Publish(realtime.TopicVehicleAdmitted, rec)
		return &AdmissionResult{Record: rec}, nil
	}

	z, err := s.resolver.Resolve(ctx, det.ZoneID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: parking zone", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to resolve zone: %w", err)
	}

	snap, err := s.zones.Snapshot(ctx, z.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to read zone snapshot: %w", err)
	}

	decision := policy.Decide(det.Category, snap)

	zoneMutated := false
	if decision == vehicle.DecisionAllow {
		after, ok, incErr := s.zones.IncrementIfCapacity(ctx, z.ID)
		if incErr != nil {
			return nil, fmt.Errorf("failed to reserve slot: %w", incErr)
		}
		if ok {
			snap = after
			zoneMutated = true
		} else {
			// lost the race for the last slot; the optimistic Allow is
			// not trusted past the mutation boundary
			decision = vehicle.DecisionWarn
			s.log.Info().
				Str("plate", normalized).
				Int64("zone_id", z.ID).
				Msg("capacity race lost, downgrading to Warn")
		}
	}

	rec.Decision = decision
	rec.ZoneID = &z.ID

	if err := s.vehicles.Append(ctx, rec); err != nil {
		if zoneMutated {
			if _, decErr := s.zones.Decrement(ctx, z.ID); decErr != nil {
				s.log.Error().
					Err(decErr).
					Int64("zone_id", z.ID).
					Msg("compensating decrement failed after ledger write failure")
			}
		}
		return nil, fmt.Errorf("failed to store admission record: %w", err)
	}

	s.log.Info().
		Int64("record_id", rec.ID).
		Str("plate", normalized).
		Str("decision", string(decision)).
		Int64("zone_id", z.ID).
		Int("occupied", snap.OccupiedSlots).
		Int("capacity", snap.TotalSlots).
		Msg("admission decision recorded")

	// fan-out happens after all zone mutations are done; the bus never
	// blocks the admission path
	s.bus.Publish(realtime.TopicVehicleAdmitted, rec)
	if zoneMutated {
		s.publishZoneUpdate(ctx, z.ID)
	}

	return &AdmissionResult{Record: rec, Zone: &snap}, nil
}

// RecordExit marks a vehicle as departed and releases its slot. The
// ledger's exit guard makes duplicate calls fail with ErrAlreadyExited
// before any decrement happens, so occupancy drops exactly once.
func (s *AdmissionService) RecordExit(ctx context.Context, recordID int64) (*ExitResult, error) {
	rec, err := s.vehicles.MarkExit(ctx, recordID, time.Now())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrAlreadyExited) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to record exit: %w", err)
	}

	result := &ExitResult{Record: rec}
	if rec.Decision == vehicle.DecisionAllow && rec.ZoneID != nil {
		snap, decErr := s.zones.Decrement(ctx, *rec.ZoneID)
		if decErr != nil {
			return nil, fmt.Errorf("failed to release slot: %w", decErr)
		}
		result.Zone = &snap
		s.publishZoneUpdate(ctx, *rec.ZoneID)
	}

	s.log.Info().
		Int64("record_id", rec.ID).
		Str("plate", rec.NormalizedPlate).
		Msg("vehicle exit recorded")
	return result, nil
}

// Reprocess finalizes a previously recorded pending detection. It is
// idempotent and never touches occupancy; the slot accounting happened
// when the record was admitted.
func (s *AdmissionService) Reprocess(ctx context.Context, recordID int64) (*vehicle.Record, error) {
	rec, err := s.vehicles.Finalize(ctx, recordID, time.Now())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to finalize record: %w", err)
	}
	return rec, nil
}

func (s *AdmissionService) ListPending(ctx context.Context, limit int) ([]vehicle.Record, error) {
	return s.vehicles.ListPending(ctx, limit)
}

func (s *AdmissionService) ListRecords(ctx context.Context, filter repository.RecordFilter) ([]vehicle.Record, error) {
	return s.vehicles.List(ctx, filter)
}

func (s *AdmissionService) FindRecord(ctx context.Context, id int64) (*vehicle.Record, error) {
	return s.vehicles.Find(ctx, id)
}

// IngestStats summarizes the last hour of detections.
func (s *AdmissionService) IngestStats(ctx context.Context) (vehicle.Stats, error) {
	return s.vehicles.StatsSince(ctx, time.Now().Add(-time.Hour))
}

// PollutionReport is the analytics read path for the dashboard.
type PollutionReport struct {
	FuelDistribution []vehicle.FuelCount `json:"fuel_distribution"`
	PollutionIndex   int                 `json:"pollution_index"`
}

func (s *AdmissionService) Pollution(ctx context.Context) (*PollutionReport, error) {
	dist, err := s.vehicles.FuelDistribution(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compute fuel distribution: %w", err)
	}
	index, err := s.vehicles.PollutionIndexSince(ctx, time.Now().Add(-time.Hour))
	if err != nil {
		return nil, fmt.Errorf("failed to compute pollution index: %w", err)
	}
	return &PollutionReport{FuelDistribution: dist, PollutionIndex: index}, nil
}

// FinalizeStale finalizes pending records older than maxAge. Run
// periodically; external back-fill writers can leave records pending.
func (s *AdmissionService) FinalizeStale(ctx context.Context, maxAge time.Duration) (int, error) {
	pending, err := s.vehicles.ListPending(ctx, 500)
	if err != nil {
		return 0, fmt.Errorf("failed to list pending records: %w", err)
	}
	cutoff := time.Now().Add(-maxAge)
	finalized := 0
	for i := range pending {
		if pending[i].DetectedAt.After(cutoff) {
			continue
		}
		if _, err := s.vehicles.Finalize(ctx, pending[i].ID, time.Now()); err != nil {
			s.log.Error().Err(err).Int64("record_id", pending[i].ID).Msg("failed to finalize stale record")
			continue
		}
		finalized++
	}
	return finalized, nil
}

// PurgeOldRecords deletes finalized ledger entries detected before the
// cutoff. Allow records still inside the facility are kept.
func (s *AdmissionService) PurgeOldRecords(ctx context.Context, olderThan time.Duration) (int64, error) {
	purged, err := s.vehicles.PurgeFinalized(ctx, time.Now().Add(-olderThan))
	if err != nil {
		return 0, err
	}
	if purged > 0 {
		s.log.Info().Int64("purged", purged).Msg("purged old ledger records")
	}
	return purged, nil
}

func (s *AdmissionService) publishZoneUpdate(ctx context.Context, zoneID int64) {
	z, err := s.zones.FindByID(ctx, zoneID)
	if err != nil {
		s.log.Error().Err(err).Int64("zone_id", zoneID).Msg("failed to load zone for update event")
		return
	}
	s.bus.Publish(realtime.TopicZoneUpdated, NewZoneView(z))
}
