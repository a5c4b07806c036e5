package db

import (
	"fmt"

	"gorm.io/gorm"
)

var migrationStatements = []string{
	`CREATE TABLE IF NOT EXISTS parking_zones (
		id                   BIGSERIAL PRIMARY KEY,
		name                 TEXT NOT NULL,
		total_slots          INT NOT NULL CHECK (total_slots > 0),
		occupied_slots       INT NOT NULL DEFAULT 0 CHECK (occupied_slots >= 0 AND occupied_slots <= total_slots),
		threshold_percentage INT NOT NULL DEFAULT 90,
		location             TEXT,
		is_active            BOOLEAN NOT NULL DEFAULT TRUE,
		created_at           TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at           TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_parking_zones_name ON parking_zones(name);`,
	`CREATE TABLE IF NOT EXISTS vehicle_records (
		id               BIGSERIAL PRIMARY KEY,
		number_plate     TEXT NOT NULL,
		normalized_plate TEXT NOT NULL,
		vehicle_category TEXT NOT NULL,
		fuel_type        TEXT NOT NULL,
		confidence       NUMERIC(5,2),
		decision         TEXT NOT NULL,
		zone_id          BIGINT REFERENCES parking_zones(id),
		pollution_score  INT NOT NULL DEFAULT 0,
		detected_at      TIMESTAMPTZ NOT NULL,
		processed        BOOLEAN NOT NULL DEFAULT FALSE,
		finalized_at     TIMESTAMPTZ,
		exit_at          TIMESTAMPTZ,
		raw_payload      JSONB,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_vehicle_records_plate ON vehicle_records(normalized_plate);`,
	`CREATE INDEX IF NOT EXISTS idx_vehicle_records_zone_id ON vehicle_records(zone_id);`,
	`CREATE INDEX IF NOT EXISTS idx_vehicle_records_detected_at ON vehicle_records(detected_at);`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM parking_zones WHERE name = 'Zone A') THEN
			INSERT INTO parking_zones (name, total_slots, threshold_percentage, location)
			VALUES ('Zone A', 100, 90, 'Main entrance');
		END IF;
	END
	$$;`,
}

func runMigrations(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
