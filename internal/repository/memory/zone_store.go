// Package memory provides in-memory repository implementations with the
// same atomicity guarantees as the postgres versions. They back the
// service tests and the storage-less development mode.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"parking-control/internal/domain/zone"
	"parking-control/internal/repository"
)

type ZoneStore struct {
	mu     sync.Mutex
	nextID int64
	zones  map[int64]*zone.Zone
}

func NewZoneStore() *ZoneStore {
	return &ZoneStore{
		nextID: 1,
		zones:  make(map[int64]*zone.Zone),
	}
}

// Seed inserts a zone directly, bypassing name checks. Test helper.
func (s *ZoneStore) Seed(z zone.Zone) *zone.Zone {
	s.mu.Lock()
	defer s.mu.Unlock()
	if z.ID == 0 {
		z.ID = s.nextID
		s.nextID++
	} else if z.ID >= s.nextID {
		s.nextID = z.ID + 1
	}
	if z.ThresholdPercentage == 0 {
		z.ThresholdPercentage = zone.DefaultThresholdPercentage
	}
	z.IsActive = true
	cp := z
	s.zones[z.ID] = &cp
	return &z
}

func (s *ZoneStore) FindByID(_ context.Context, id int64) (*zone.Zone, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	z, ok := s.zones[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *z
	return &cp, nil
}

func (s *ZoneStore) FindByName(_ context.Context, name string) (*zone.Zone, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, z := range s.zones {
		if z.Name == name {
			cp := *z
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *ZoneStore) FirstActive(_ context.Context) (*zone.Zone, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var first *zone.Zone
	for _, z := range s.zones {
		if !z.IsActive {
			continue
		}
		if first == nil || z.Name < first.Name {
			first = z
		}
	}
	if first == nil {
		return nil, repository.ErrNotFound
	}
	cp := *first
	return &cp, nil
}

func (s *ZoneStore) FindAllActive(_ context.Context) ([]zone.Zone, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var zones []zone.Zone
	for _, z := range s.zones {
		if z.IsActive {
			zones = append(zones, *z)
		}
	}
	sort.Slice(zones, func(i, j int) bool { return zones[i].Name < zones[j].Name })
	return zones, nil
}

func (s *ZoneStore) Create(_ context.Context, z *zone.Zone) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.zones {
		if existing.Name == z.Name && existing.IsActive {
			return repository.ErrDuplicateName
		}
	}
	if z.ThresholdPercentage == 0 {
		z.ThresholdPercentage = zone.DefaultThresholdPercentage
	}
	z.ID = s.nextID
	s.nextID++
	z.IsActive = true
	z.CreatedAt = time.Now()
	z.UpdatedAt = z.CreatedAt
	cp := *z
	s.zones[z.ID] = &cp
	return nil
}

func (s *ZoneStore) Update(_ context.Context, z *zone.Zone) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.zones[z.ID]
	if !ok {
		return repository.ErrNotFound
	}
	for id, other := range s.zones {
		if id != z.ID && other.Name == z.Name && other.IsActive {
			return repository.ErrDuplicateName
		}
	}
	existing.Name = z.Name
	existing.TotalSlots = z.TotalSlots
	existing.ThresholdPercentage = z.ThresholdPercentage
	existing.Location = z.Location
	existing.UpdatedAt = time.Now()
	return nil
}

func (s *ZoneStore) SoftDelete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	z, ok := s.zones[id]
	if !ok || !z.IsActive {
		return repository.ErrNotFound
	}
	z.IsActive = false
	z.UpdatedAt = time.Now()
	return nil
}

func (s *ZoneStore) Snapshot(_ context.Context, id int64) (zone.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	z, ok := s.zones[id]
	if !ok {
		return zone.Snapshot{}, repository.ErrNotFound
	}
	return z.Snapshot(), nil
}

func (s *ZoneStore) IncrementIfCapacity(_ context.Context, id int64) (zone.Snapshot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	z, ok := s.zones[id]
	if !ok {
		return zone.Snapshot{}, false, repository.ErrNotFound
	}
	if z.OccupiedSlots >= z.TotalSlots {
		return z.Snapshot(), false, nil
	}
	z.OccupiedSlots++
	z.UpdatedAt = time.Now()
	return z.Snapshot(), true, nil
}

func (s *ZoneStore) Decrement(_ context.Context, id int64) (zone.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	z, ok := s.zones[id]
	if !ok {
		return zone.Snapshot{}, repository.ErrNotFound
	}
	if z.OccupiedSlots > 0 {
		z.OccupiedSlots--
	}
	z.UpdatedAt = time.Now()
	return z.Snapshot(), nil
}
