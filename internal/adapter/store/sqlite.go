package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/berfenger/kwb2mqtt/internal/core/domain"
	"github.com/berfenger/kwb2mqtt/internal/core/port"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const sqliteDriverName = "sqlite"

const schemaHeaterState = `
CREATE TABLE IF NOT EXISTS heater_state (
    unique_id TEXT PRIMARY KEY,
    last_timestamp_ms INTEGER NOT NULL,
    boiler_run_time_s REAL NOT NULL,
    boiler_energy_kwh REAL NOT NULL,
    pellet_consumption_kg REAL NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
`

const (
	upsertSeedSQL = `
		INSERT INTO heater_state (unique_id, last_timestamp_ms, boiler_run_time_s, boiler_energy_kwh, pellet_consumption_kg, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(unique_id) DO UPDATE SET
			last_timestamp_ms=excluded.last_timestamp_ms,
			boiler_run_time_s=excluded.boiler_run_time_s,
			boiler_energy_kwh=excluded.boiler_energy_kwh,
			pellet_consumption_kg=excluded.pellet_consumption_kg,
			updated_at=excluded.updated_at
	`

	selectSeedSQL = `
		SELECT last_timestamp_ms, boiler_run_time_s, boiler_energy_kwh, pellet_consumption_kg
		FROM heater_state WHERE unique_id=?
	`
)

type SQLiteSeedStore struct {
	db     *sql.DB
	logger *zap.Logger
}

var _ port.SeedStore = (*SQLiteSeedStore)(nil)

// OpenSQLite opens or creates the database file and makes sure the schema exists.
func OpenSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open(sqliteDriverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite at %q: %w", path, err)
	}
	// single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode = WAL;", "PRAGMA busy_timeout = 5000;"} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schemaHeaterState); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return db, nil
}

func NewSQLiteSeedStore(db *sql.DB, logger *zap.Logger) *SQLiteSeedStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SQLiteSeedStore{db: db, logger: logger}
}

func (s *SQLiteSeedStore) Load(ctx context.Context, uniqueId string) (domain.Seed, bool, error) {
	row := s.db.QueryRowContext(ctx, selectSeedSQL, uniqueId)

	var tsMillis int64
	var seed domain.Seed
	if err := row.Scan(&tsMillis, &seed.BoilerRunTime, &seed.BoilerEnergy, &seed.PelletConsumption); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Seed{}, false, nil
		}
		return domain.Seed{}, false, fmt.Errorf("load seed %q: %w", uniqueId, err)
	}
	if tsMillis > 0 {
		seed.Timestamp = time.UnixMilli(tsMillis)
	}
	s.logger.Debug("store: seed loaded", zap.String("unique_id", uniqueId), zap.Float64("energy", seed.BoilerEnergy))
	return seed, true, nil
}

func (s *SQLiteSeedStore) Save(ctx context.Context, uniqueId string, seed domain.Seed) error {
	var tsMillis int64
	if !seed.Timestamp.IsZero() {
		tsMillis = seed.Timestamp.UnixMilli()
	}
	_, err := s.db.ExecContext(ctx, upsertSeedSQL,
		uniqueId,
		tsMillis,
		seed.BoilerRunTime,
		seed.BoilerEnergy,
		seed.PelletConsumption,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("save seed %q: %w", uniqueId, err)
	}
	return nil
}
