package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"parking-control/internal/domain/zone"
	"parking-control/internal/repository"
)

type ZoneRepository struct {
	db *gorm.DB
}

func NewZoneRepository(db *gorm.DB) *ZoneRepository {
	return &ZoneRepository{db: db}
}

type parkingZone struct {
	ID                  int64  `gorm:"primaryKey"`
	Name                string `gorm:"not null;uniqueIndex"`
	TotalSlots          int    `gorm:"not null"`
	OccupiedSlots       int    `gorm:"not null;default:0"`
	ThresholdPercentage int    `gorm:"not null"`
	Location            string
	IsActive            bool `gorm:"not null;default:true"`
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (parkingZone) TableName() string { return "parking_zones" }

func (p *parkingZone) toDomain() *zone.Zone {
	return &zone.Zone{
		ID:                  p.ID,
		Name:                p.Name,
		TotalSlots:          p.TotalSlots,
		OccupiedSlots:       p.OccupiedSlots,
		ThresholdPercentage: p.ThresholdPercentage,
		Location:            p.Location,
		IsActive:            p.IsActive,
		CreatedAt:           p.CreatedAt,
		UpdatedAt:           p.UpdatedAt,
	}
}

func (r *ZoneRepository) FindByID(ctx context.Context, id int64) (*zone.Zone, error) {
	var row parkingZone
	err := r.db.WithContext(ctx).First(&row, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

func (r *ZoneRepository) FindByName(ctx context.Context, name string) (*zone.Zone, error) {
	var row parkingZone
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

func (r *ZoneRepository) FirstActive(ctx context.Context) (*zone.Zone, error) {
	var row parkingZone
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("name ASC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

func (r *ZoneRepository) FindAllActive(ctx context.Context) ([]zone.Zone, error) {
	var rows []parkingZone
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("name ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	zones := make([]zone.Zone, 0, len(rows))
	for i := range rows {
		zones = append(zones, *rows[i].toDomain())
	}
	return zones, nil
}

func (r *ZoneRepository) Create(ctx context.Context, z *zone.Zone) error {
	if z.ThresholdPercentage == 0 {
		z.ThresholdPercentage = zone.DefaultThresholdPercentage
	}
	row := parkingZone{
		Name:                z.Name,
		TotalSlots:          z.TotalSlots,
		OccupiedSlots:       z.OccupiedSlots,
		ThresholdPercentage: z.ThresholdPercentage,
		Location:            z.Location,
		IsActive:            true,
		CreatedAt:           time.Now(),
		UpdatedAt:           time.Now(),
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return repository.ErrDuplicateName
		}
		return err
	}
	z.ID = row.ID
	z.IsActive = true
	z.CreatedAt = row.CreatedAt
	z.UpdatedAt = row.UpdatedAt
	return nil
}

func (r *ZoneRepository) Update(ctx context.Context, z *zone.Zone) error {
	res := r.db.WithContext(ctx).Model(&parkingZone{}).
		Where("id = ?", z.ID).
		Updates(map[string]interface{}{
			"name":                 z.Name,
			"total_slots":          z.TotalSlots,
			"threshold_percentage": z.ThresholdPercentage,
			"location":             z.Location,
			"updated_at":           time.Now(),
		})
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return repository.ErrDuplicateName
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *ZoneRepository) SoftDelete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Model(&parkingZone{}).
		Where("id = ? AND is_active = ?", id, true).
		Updates(map[string]interface{}{"is_active": false, "updated_at": time.Now()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *ZoneRepository) Snapshot(ctx context.Context, id int64) (zone.Snapshot, error) {
	z, err := r.FindByID(ctx, id)
	if err != nil {
		return zone.Snapshot{}, err
	}
	return z.Snapshot(), nil
}

// IncrementIfCapacity relies on a single conditional UPDATE so the
// capacity check and the increment are one atomic statement on the
// database row. RowsAffected distinguishes the race winner from the
// losers; losers get the unmodified snapshot back.
func (r *ZoneRepository) IncrementIfCapacity(ctx context.Context, id int64) (zone.Snapshot, bool, error) {
	res := r.db.WithContext(ctx).Exec(
		`UPDATE parking_zones
		 SET occupied_slots = occupied_slots + 1, updated_at = ?
		 WHERE id = ? AND occupied_slots < total_slots`,
		time.Now(), id,
	)
	if res.Error != nil {
		return zone.Snapshot{}, false, res.Error
	}
	snap, err := r.Snapshot(ctx, id)
	if err != nil {
		return zone.Snapshot{}, false, err
	}
	return snap, res.RowsAffected > 0, nil
}

func (r *ZoneRepository) Decrement(ctx context.Context, id int64) (zone.Snapshot, error) {
	res := r.db.WithContext(ctx).Exec(
		`UPDATE parking_zones
		 SET occupied_slots = GREATEST(occupied_slots - 1, 0), updated_at = ?
		 WHERE id = ?`,
		time.Now(), id,
	)
	if res.Error != nil {
		return zone.Snapshot{}, res.Error
	}
	if res.RowsAffected == 0 {
		return zone.Snapshot{}, repository.ErrNotFound
	}
	return r.Snapshot(ctx, id)
}
