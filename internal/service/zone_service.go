package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"parking-control/internal/domain/zone"
	"parking-control/internal/realtime"
	"parking-control/internal/repository"
)

// ZoneView is the wire representation of a zone, with the derived
// fields the dashboard renders.
type ZoneView struct {
	ID                  int64     `json:"id"`
	Name                string    `json:"name"`
	TotalSlots          int       `json:"total_slots"`
	OccupiedSlots       int       `json:"occupied_slots"`
	AvailableSlots      int       `json:"available_slots"`
	OccupancyPercentage int       `json:"occupancy_percentage"`
	ThresholdPercentage int       `json:"threshold_percentage"`
	Location            string    `json:"location"`
	IsActive            bool      `json:"is_active"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

func NewZoneView(z *zone.Zone) ZoneView {
	return ZoneView{
		ID:                  z.ID,
		Name:                z.Name,
		TotalSlots:          z.TotalSlots,
		OccupiedSlots:       z.OccupiedSlots,
		AvailableSlots:      z.AvailableSlots(),
		OccupancyPercentage: z.OccupancyPercentage(),
		ThresholdPercentage: z.ThresholdPercentage,
		Location:            z.Location,
		IsActive:            z.IsActive,
		CreatedAt:           z.CreatedAt,
		UpdatedAt:           z.UpdatedAt,
	}
}

// ZoneInput carries the administrator-editable zone fields.
type ZoneInput struct {
	Name                string `json:"name"`
	TotalSlots          int    `json:"total_slots"`
	ThresholdPercentage int    `json:"threshold_percentage"`
	Location            string `json:"location"`
}

// ZoneService covers the administrative zone surface. Occupancy is
// deliberately absent here: it only moves through the admission engine.
type ZoneService struct {
	zones repository.ZoneRepository
	bus   *realtime.Bus
	log   zerolog.Logger
}

func NewZoneService(zones repository.ZoneRepository, bus *realtime.Bus, log zerolog.Logger) *ZoneService {
	return &ZoneService{zones: zones, bus: bus, log: log}
}

func (s *ZoneService) List(ctx context.Context) ([]ZoneView, error) {
	zones, err := s.zones.FindAllActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list zones: %w", err)
	}
	views := make([]ZoneView, 0, len(zones))
	for i := range zones {
		views = append(views, NewZoneView(&zones[i]))
	}
	return views, nil
}

func (s *ZoneService) Get(ctx context.Context, id int64) (*ZoneView, error) {
	z, err := s.zones.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	view := NewZoneView(z)
	return &view, nil
}

func (s *ZoneService) Create(ctx context.Context, in ZoneInput) (*ZoneView, error) {
	if err := validateZoneInput(in); err != nil {
		return nil, err
	}
	z := &zone.Zone{
		Name:                in.Name,
		TotalSlots:          in.TotalSlots,
		ThresholdPercentage: in.ThresholdPercentage,
		Location:            in.Location,
	}
	if err := s.zones.Create(ctx, z); err != nil {
		if errors.Is(err, repository.ErrDuplicateName) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create zone: %w", err)
	}
	s.log.Info().Int64("zone_id", z.ID).Str("name", z.Name).Int("total_slots", z.TotalSlots).Msg("zone created")
	view := NewZoneView(z)
	s.bus.Publish(realtime.TopicZoneUpdated, view)
	return &view, nil
}

func (s *ZoneService) Update(ctx context.Context, id int64, in ZoneInput) (*ZoneView, error) {
	if err := validateZoneInput(in); err != nil {
		return nil, err
	}
	current, err := s.zones.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.TotalSlots < current.OccupiedSlots {
		return nil, fmt.Errorf("%w: total slots cannot drop below current occupancy (%d)",
			ErrInvalidInput, current.OccupiedSlots)
	}

	current.Name = in.Name
	current.TotalSlots = in.TotalSlots
	current.ThresholdPercentage = in.ThresholdPercentage
	current.Location = in.Location
	if err := s.zones.Update(ctx, current); err != nil {
		if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrDuplicateName) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update zone: %w", err)
	}

	updated, err := s.zones.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	view := NewZoneView(updated)
	s.bus.Publish(realtime.TopicZoneUpdated, view)
	return &view, nil
}

// Delete soft-deletes: the zone stays referenced by ledger records.
func (s *ZoneService) Delete(ctx context.Context, id int64) error {
	if err := s.zones.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.log.Info().Int64("zone_id", id).Msg("zone deactivated")
	return nil
}

func validateZoneInput(in ZoneInput) error {
	if in.Name == "" {
		return fmt.Errorf("%w: zone name is required", ErrInvalidInput)
	}
	if in.TotalSlots <= 0 {
		return fmt.Errorf("%w: total slots must be positive", ErrInvalidInput)
	}
	if in.ThresholdPercentage < 0 || in.ThresholdPercentage > 100 {
		return fmt.Errorf("%w: threshold percentage must be within [0,100]", ErrInvalidInput)
	}
	return nil
}
