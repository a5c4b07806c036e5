package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"parking-control/internal/domain/vehicle"
	"parking-control/internal/repository"
)

type VehicleStore struct {
	mu      sync.Mutex
	nextID  int64
	records map[int64]*vehicle.Record

	// FailAppend forces the next Append to fail; used to exercise the
	// engine's compensating-decrement path.
	FailAppend error
}

func NewVehicleStore() *VehicleStore {
	return &VehicleStore{
		nextID:  1,
		records: make(map[int64]*vehicle.Record),
	}
}

func (s *VehicleStore) Append(_ context.Context, rec *vehicle.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailAppend != nil {
		err := s.FailAppend
		s.FailAppend = nil
		return err
	}
	rec.ID = s.nextID
	s.nextID++
	cp := *rec
	s.records[rec.ID] = &cp
	return nil
}

func (s *VehicleStore) Find(_ context.Context, id int64) (*vehicle.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *VehicleStore) ListPending(_ context.Context, limit int) ([]vehicle.Record, error) {
	if limit <= 0 {
		limit = 50
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []vehicle.Record
	for _, rec := range s.records {
		if !rec.Processed {
			out = append(out, *rec)
		}
	}
	sortByDetectedAtDesc(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *VehicleStore) List(_ context.Context, filter repository.RecordFilter) ([]vehicle.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []vehicle.Record
	for _, rec := range s.records {
		if filter.FuelType != nil && rec.FuelType != *filter.FuelType {
			continue
		}
		if filter.Decision != nil && rec.Decision != *filter.Decision {
			continue
		}
		if filter.Search != "" && !strings.Contains(
			strings.ToUpper(rec.NumberPlate), strings.ToUpper(filter.Search)) {
			continue
		}
		if filter.From != nil && rec.DetectedAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && rec.DetectedAt.After(*filter.To) {
			continue
		}
		out = append(out, *rec)
	}
	sortByDetectedAtDesc(out)
	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *VehicleStore) Finalize(_ context.Context, id int64, at time.Time) (*vehicle.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if !rec.Processed {
		rec.Processed = true
		t := at
		rec.FinalizedAt = &t
	}
	cp := *rec
	return &cp, nil
}

func (s *VehicleStore) MarkExit(_ context.Context, id int64, at time.Time) (*vehicle.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if rec.ExitAt != nil {
		return nil, repository.ErrAlreadyExited
	}
	t := at
	rec.ExitAt = &t
	cp := *rec
	return &cp, nil
}

func (s *VehicleStore) StatsSince(_ context.Context, since time.Time) (vehicle.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var stats vehicle.Stats
	var pollutionSum int64
	for _, rec := range s.records {
		if rec.DetectedAt.Before(since) {
			continue
		}
		stats.Total++
		if rec.Processed {
			stats.Processed++
		} else {
			stats.Unprocessed++
		}
		pollutionSum += int64(rec.PollutionScore)
	}
	if stats.Total > 0 {
		stats.AvgPollution = float64(pollutionSum) / float64(stats.Total)
	}
	return stats, nil
}

func (s *VehicleStore) FuelDistribution(_ context.Context) ([]vehicle.FuelCount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byFuel := make(map[vehicle.FuelClass]int64)
	for _, rec := range s.records {
		byFuel[rec.FuelType]++
	}
	out := make([]vehicle.FuelCount, 0, len(byFuel))
	for fuel, count := range byFuel {
		out = append(out, vehicle.FuelCount{FuelType: fuel, Count: count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FuelType < out[j].FuelType })
	return out, nil
}

func (s *VehicleStore) PollutionIndexSince(_ context.Context, since time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sum, n int
	for _, rec := range s.records {
		if rec.DetectedAt.Before(since) {
			continue
		}
		sum += rec.PollutionScore
		n++
	}
	if n == 0 {
		return 0, nil
	}
	return int(float64(sum)/float64(n) + 0.5), nil
}

func (s *VehicleStore) PurgeFinalized(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var purged int64
	for id, rec := range s.records {
		if !rec.Processed || !rec.DetectedAt.Before(cutoff) {
			continue
		}
		if rec.Decision == vehicle.DecisionAllow && rec.ExitAt == nil {
			continue
		}
		delete(s.records, id)
		purged++
	}
	return purged, nil
}

// Count reports how many records are stored. Test helper.
func (s *VehicleStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func sortByDetectedAtDesc(records []vehicle.Record) {
	sort.Slice(records, func(i, j int) bool {
		return records[i].DetectedAt.After(records[j].DetectedAt)
	})
}
