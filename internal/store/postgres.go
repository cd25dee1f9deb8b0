package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"wattwise/internal/domain"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps an existing pool. Call Init once at startup to
// bootstrap the schema.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Close() { s.pool.Close() }

// Init creates the tables and indexes the adapter depends on, matching the
// "history", "systems", and "prediction-models" collections named in the
// persisted-state contract.
func (s *PostgresStore) Init(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS historical_records (
	id BIGSERIAL PRIMARY KEY,
	system_id TEXT NOT NULL,
	ts TIMESTAMPTZ NOT NULL,
	analysis JSONB NOT NULL,
	weather JSONB,
	alerts TEXT[]
);
CREATE INDEX IF NOT EXISTS idx_historical_records_system_ts ON historical_records (system_id, ts);

CREATE TABLE IF NOT EXISTS systems (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	chemistry TEXT,
	nominal_voltage DOUBLE PRECISION NOT NULL,
	rated_capacity DOUBLE PRECISION NOT NULL,
	max_solar_charge_current DOUBLE PRECISION,
	max_generator_charge_current DOUBLE PRECISION,
	latitude DOUBLE PRECISION,
	longitude DOUBLE PRECISION,
	associated_devices TEXT[]
);

CREATE TABLE IF NOT EXISTS prediction_models (
	system_id TEXT NOT NULL,
	kind TEXT NOT NULL,
	model JSONB NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (system_id, kind)
);
`)
	return err
}

func (s *PostgresStore) Records(ctx context.Context, systemID string, from, to time.Time) ([]domain.HistoricalRecord, error) {
	return withRetry(ctx, "Records", func(ctx context.Context) ([]domain.HistoricalRecord, error) {
		rows, err := s.pool.Query(ctx, `
SELECT ts, analysis, weather, alerts
FROM historical_records
WHERE system_id = $1 AND ts >= $2 AND ts <= $3
ORDER BY ts ASC`, systemID, from, to)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		var out []domain.HistoricalRecord
		for rows.Next() {
			var (
				ts           time.Time
				analysisRaw  []byte
				weatherRaw   []byte
				alerts       []string
			)
			if err := rows.Scan(&ts, &analysisRaw, &weatherRaw, &alerts); err != nil {
				return nil, err
			}
			rec := domain.HistoricalRecord{SystemID: systemID, Timestamp: ts, Alerts: alerts}
			if err := json.Unmarshal(analysisRaw, &rec.Analysis); err != nil {
				return nil, err
			}
			if len(weatherRaw) > 0 {
				var w domain.WeatherObservation
				if err := json.Unmarshal(weatherRaw, &w); err != nil {
					return nil, err
				}
				rec.Weather = &w
			}
			out = append(out, rec)
		}
		return out, rows.Err()
	})
}

func (s *PostgresStore) System(ctx context.Context, systemID string) (*domain.SystemProfile, error) {
	return withRetry(ctx, "System", func(ctx context.Context) (*domain.SystemProfile, error) {
		row := s.pool.QueryRow(ctx, `
SELECT id, name, chemistry, nominal_voltage, rated_capacity,
       max_solar_charge_current, max_generator_charge_current,
       latitude, longitude, associated_devices
FROM systems WHERE id = $1`, systemID)

		var (
			id, name                  string
			chemistry                 sql.NullString
			nominalVoltage, rated     float64
			maxSolar, maxGen          sql.NullFloat64
			lat, lon                  sql.NullFloat64
			devices                   []string
		)
		if err := row.Scan(&id, &name, &chemistry, &nominalVoltage, &rated, &maxSolar, &maxGen, &lat, &lon, &devices); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, nil
			}
			return nil, err
		}

		profile := &domain.SystemProfile{
			ID:             id,
			Name:           name,
			NominalVoltage: nominalVoltage,
			RatedCapacity:  rated,
			AssociatedDevices: devices,
		}
		if chemistry.Valid {
			profile.Chemistry = domain.Known(chemistry.String)
		}
		if maxSolar.Valid {
			profile.MaxSolarChargeCurrent = domain.Known(maxSolar.Float64)
		}
		if maxGen.Valid {
			profile.MaxGeneratorChargeCurrent = domain.Known(maxGen.Float64)
		}
		if lat.Valid && lon.Valid {
			profile.Location = &domain.Location{Latitude: lat.Float64, Longitude: lon.Float64}
		}
		return profile, nil
	})
}

func (s *PostgresStore) RecentSnapshots(ctx context.Context, systemID string, n int) ([]domain.Snapshot, error) {
	return withRetry(ctx, "RecentSnapshots", func(ctx context.Context) ([]domain.Snapshot, error) {
		rows, err := s.pool.Query(ctx, `
SELECT analysis FROM historical_records
WHERE system_id = $1
ORDER BY ts DESC
LIMIT $2`, systemID, n)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		var out []domain.Snapshot
		for rows.Next() {
			var raw []byte
			if err := rows.Scan(&raw); err != nil {
				return nil, err
			}
			var snap domain.Snapshot
			if err := json.Unmarshal(raw, &snap); err != nil {
				return nil, err
			}
			out = append(out, snap)
		}
		return out, rows.Err()
	})
}

func (s *PostgresStore) CachedModel(ctx context.Context, systemID, kind string) (json.RawMessage, bool, error) {
	type result struct {
		model json.RawMessage
		found bool
	}
	r, err := withRetry(ctx, "CachedModel", func(ctx context.Context) (result, error) {
		row := s.pool.QueryRow(ctx, `
SELECT model FROM prediction_models
WHERE system_id = $1 AND kind = $2 AND expires_at > now()`, systemID, kind)
		var raw []byte
		if err := row.Scan(&raw); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return result{}, nil
			}
			return result{}, err
		}
		return result{model: raw, found: true}, nil
	})
	if err != nil {
		return nil, false, err
	}
	return r.model, r.found, nil
}

func (s *PostgresStore) PutCachedModel(ctx context.Context, systemID, kind string, model json.RawMessage) error {
	_, err := withRetry(ctx, "PutCachedModel", func(ctx context.Context) (struct{}, error) {
		_, err := s.pool.Exec(ctx, `
INSERT INTO prediction_models (system_id, kind, model, expires_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (system_id, kind) DO UPDATE SET model = EXCLUDED.model, expires_at = EXCLUDED.expires_at`,
			systemID, kind, []byte(model), time.Now().Add(ModelTTL))
		return struct{}{}, err
	})
	return err
}
