package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"parking-control/internal/domain/vehicle"
	"parking-control/internal/repository"
)

type VehicleRepository struct {
	db *gorm.DB
}

func NewVehicleRepository(db *gorm.DB) *VehicleRepository {
	return &VehicleRepository{db: db}
}

type vehicleRecord struct {
	ID              int64  `gorm:"primaryKey"`
	NumberPlate     string `gorm:"not null"`
	NormalizedPlate string `gorm:"not null;index"`
	VehicleCategory string `gorm:"not null"`
	FuelType        string `gorm:"not null"`
	Confidence      float64
	Decision        string `gorm:"not null"`
	ZoneID          *int64 `gorm:"index"`
	PollutionScore  int
	DetectedAt      time.Time `gorm:"not null;index"`
	Processed       bool      `gorm:"not null;default:false"`
	FinalizedAt     *time.Time
	ExitAt          *time.Time
	RawPayload      datatypes.JSON
	CreatedAt       time.Time
}

func (vehicleRecord) TableName() string { return "vehicle_records" }

func (v *vehicleRecord) toDomain() *vehicle.Record {
	rec := &vehicle.Record{
		ID:              v.ID,
		NumberPlate:     v.NumberPlate,
		NormalizedPlate: v.NormalizedPlate,
		Category:        vehicle.Category(v.VehicleCategory),
		FuelType:        vehicle.FuelClass(v.FuelType),
		Confidence:      v.Confidence,
		Decision:        vehicle.Decision(v.Decision),
		ZoneID:          v.ZoneID,
		PollutionScore:  v.PollutionScore,
		DetectedAt:      v.DetectedAt,
		Processed:       v.Processed,
		FinalizedAt:     v.FinalizedAt,
		ExitAt:          v.ExitAt,
	}
	if len(v.RawPayload) > 0 {
		_ = json.Unmarshal(v.RawPayload, &rec.RawPayload)
	}
	return rec
}

func (r *VehicleRepository) Append(ctx context.Context, rec *vehicle.Record) error {
	row := vehicleRecord{
		NumberPlate:     rec.NumberPlate,
		NormalizedPlate: rec.NormalizedPlate,
		VehicleCategory: string(rec.Category),
		FuelType:        string(rec.FuelType),
		Confidence:      rec.Confidence,
		Decision:        string(rec.Decision),
		ZoneID:          rec.ZoneID,
		PollutionScore:  rec.PollutionScore,
		DetectedAt:      rec.DetectedAt,
		Processed:       rec.Processed,
		FinalizedAt:     rec.FinalizedAt,
		CreatedAt:       time.Now(),
	}
	if len(rec.RawPayload) > 0 {
		raw, err := json.Marshal(rec.RawPayload)
		if err == nil {
			row.RawPayload = datatypes.JSON(raw)
		}
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return err
	}
	rec.ID = row.ID
	return nil
}

func (r *VehicleRepository) Find(ctx context.Context, id int64) (*vehicle.Record, error) {
	var row vehicleRecord
	err := r.db.WithContext(ctx).First(&row, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

func (r *VehicleRepository) ListPending(ctx context.Context, limit int) ([]vehicle.Record, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []vehicleRecord
	err := r.db.WithContext(ctx).
		Where("processed = ?", false).
		Order("detected_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toDomainList(rows), nil
}

func (r *VehicleRepository) List(ctx context.Context, filter repository.RecordFilter) ([]vehicle.Record, error) {
	query := r.db.WithContext(ctx).Model(&vehicleRecord{})

	if filter.FuelType != nil {
		query = query.Where("fuel_type = ?", string(*filter.FuelType))
	}
	if filter.Decision != nil {
		query = query.Where("decision = ?", string(*filter.Decision))
	}
	if filter.Search != "" {
		query = query.Where("number_plate ILIKE ?", "%"+filter.Search+"%")
	}
	if filter.From != nil {
		query = query.Where("detected_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("detected_at <= ?", *filter.To)
	}

	query = query.Order("detected_at DESC")

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	query = query.Limit(limit)
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var rows []vehicleRecord
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return toDomainList(rows), nil
}

func (r *VehicleRepository) Finalize(ctx context.Context, id int64, at time.Time) (*vehicle.Record, error) {
	res := r.db.WithContext(ctx).Model(&vehicleRecord{}).
		Where("id = ? AND processed = ?", id, false).
		Updates(map[string]interface{}{"processed": true, "finalized_at": at})
	if res.Error != nil {
		return nil, res.Error
	}
	return r.Find(ctx, id)
}

// MarkExit sets the exit timestamp with a conditional UPDATE so that a
// duplicate or racing exit call can never decrement occupancy twice:
// only the caller whose UPDATE matched the IS NULL guard wins.
func (r *VehicleRepository) MarkExit(ctx context.Context, id int64, at time.Time) (*vehicle.Record, error) {
	res := r.db.WithContext(ctx).Model(&vehicleRecord{}).
		Where("id = ? AND exit_at IS NULL", id).
		Update("exit_at", at)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		rec, err := r.Find(ctx, id)
		if err != nil {
			return nil, err
		}
		if rec.Exited() {
			return nil, repository.ErrAlreadyExited
		}
		return nil, repository.ErrNotFound
	}
	return r.Find(ctx, id)
}

func (r *VehicleRepository) StatsSince(ctx context.Context, since time.Time) (vehicle.Stats, error) {
	var stats vehicle.Stats
	err := r.db.WithContext(ctx).Model(&vehicleRecord{}).
		Select(`COUNT(*) AS total,
			COUNT(*) FILTER (WHERE processed = false) AS unprocessed,
			COUNT(*) FILTER (WHERE processed = true) AS processed,
			COALESCE(AVG(pollution_score), 0) AS avg_pollution`).
		Where("detected_at >= ?", since).
		Scan(&stats).Error
	return stats, err
}

func (r *VehicleRepository) FuelDistribution(ctx context.Context) ([]vehicle.FuelCount, error) {
	var counts []vehicle.FuelCount
	err := r.db.WithContext(ctx).Model(&vehicleRecord{}).
		Select("fuel_type, COUNT(*) as count").
		Group("fuel_type").
		Scan(&counts).Error
	return counts, err
}

func (r *VehicleRepository) PollutionIndexSince(ctx context.Context, since time.Time) (int, error) {
	var index float64
	err := r.db.WithContext(ctx).Model(&vehicleRecord{}).
		Select("COALESCE(AVG(pollution_score), 0)").
		Where("detected_at >= ?", since).
		Scan(&index).Error
	if err != nil {
		return 0, err
	}
	return int(index + 0.5), nil
}

// PurgeFinalized never deletes an Allow record that is still inside the
// facility; those keep holding a slot until an exit is recorded.
func (r *VehicleRepository) PurgeFinalized(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("processed = ? AND detected_at < ? AND (decision <> ? OR exit_at IS NOT NULL)",
			true, cutoff, string(vehicle.DecisionAllow)).
		Delete(&vehicleRecord{})
	return res.RowsAffected, res.Error
}

func toDomainList(rows []vehicleRecord) []vehicle.Record {
	records := make([]vehicle.Record, 0, len(rows))
	for i := range rows {
		records = append(records, *rows[i].toDomain())
	}
	return records
}
