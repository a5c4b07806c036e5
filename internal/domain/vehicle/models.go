package vehicle

import (
	"time"
)

// VehicleCategory classifies a detection as supplied by the ANPR pipeline.
type Category string

const (
	CategoryPrivate    Category = "Private"
	CategoryCommercial Category = "Commercial"
)

func (c Category) Valid() bool {
	return c == CategoryPrivate || c == CategoryCommercial
}

// FuelClass is the fuel classification reported alongside a detection.
// "ICE" is the legacy catch-all for combustion engines; new deployments
// report the concrete sub-class.
type FuelClass string

const (
	FuelEV     FuelClass = "EV"
	FuelCNG    FuelClass = "CNG"
	FuelPetrol FuelClass = "Petrol"
	FuelDiesel FuelClass = "Diesel"
	FuelICE    FuelClass = "ICE"
)

func (f FuelClass) Valid() bool {
	switch f {
	case FuelEV, FuelCNG, FuelPetrol, FuelDiesel, FuelICE:
		return true
	}
	return false
}

// PollutionScore maps a fuel class to its reporting score. The legacy
// "ICE" class scores the same as Diesel.
func (f FuelClass) PollutionScore() int {
	switch f {
	case FuelEV:
		return 0
	case FuelCNG:
		return 20
	case FuelPetrol:
		return 50
	case FuelDiesel, FuelICE:
		return 80
	}
	return 0
}

// Decision is the admission outcome for a detection.
type Decision string

const (
	DecisionAllow  Decision = "Allow"
	DecisionWarn   Decision = "Warn"
	DecisionIgnore Decision = "Ignore"
)

// Detection is a single inbound ANPR event as posted by the sensor
// pipeline. It is consumed by the admission service and never stored
// as-is.
type Detection struct {
	NumberPlate string                 `json:"numberPlate"`
	Category    Category               `json:"vehicleCategory"`
	FuelType    FuelClass              `json:"fuelType"`
	Confidence  float64                `json:"confidence"`
	ZoneID      *int64                 `json:"zoneId,omitempty"`
	DetectedAt  time.Time              `json:"detectedAt,omitempty"`
	RawPayload  map[string]interface{} `json:"rawPayload,omitempty"`
}

// Record is a persisted admission decision. The decision itself is
// immutable after creation; only Processed, FinalizedAt and ExitAt may
// change afterwards.
type Record struct {
	ID              int64                  `json:"id"`
	NumberPlate     string                 `json:"number_plate"`
	NormalizedPlate string                 `json:"normalized_plate"`
	Category        Category               `json:"vehicle_category"`
	FuelType        FuelClass              `json:"fuel_type"`
	Confidence      float64                `json:"confidence"`
	Decision        Decision               `json:"decision"`
	ZoneID          *int64                 `json:"zone_id,omitempty"`
	PollutionScore  int                    `json:"pollution_score"`
	DetectedAt      time.Time              `json:"detected_at"`
	Processed       bool                   `json:"processed"`
	FinalizedAt     *time.Time             `json:"finalized_at,omitempty"`
	ExitAt          *time.Time             `json:"exit_at,omitempty"`
	RawPayload      map[string]interface{} `json:"raw_payload,omitempty"`
}

// Exited reports whether the vehicle has already been recorded as gone.
func (r *Record) Exited() bool {
	return r.ExitAt != nil
}

// Stats is the rolling ingest summary used by the dashboard.
type Stats struct {
	Total        int64   `json:"total"`
	Unprocessed  int64   `json:"unprocessed"`
	Processed    int64   `json:"processed"`
	AvgPollution float64 `json:"avg_pollution"`
}

// FuelCount is one bucket of the fuel distribution report.
type FuelCount struct {
	FuelType FuelClass `json:"fuel_type"`
	Count    int64     `json:"count"`
}
