package storage

// sqlite.go: cache de alquileres e histórico de ejecuciones.
//
// Tablas:
//   - `rent_cache`: UNA fila por dirección (UPSERT). Las estimaciones de
//     RentCast cuestan dinero y se reutilizan entre ejecuciones.
//   - `runs`: resumen por ejecución del pipeline.
//   - `run_listings`: listings evaluados de cada ejecución, en orden de salida.
//   - Prune automático al arrancar: runs > 90d (y sus listings).

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alejandrodnm/proprun/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS rent_cache (
    address    TEXT PRIMARY KEY,
    rent       REAL     NOT NULL,
    rent_low   REAL     NOT NULL,
    rent_high  REAL     NOT NULL,
    fetched_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS runs (
    id          TEXT PRIMARY KEY,
    location    TEXT     NOT NULL,
    requested   INTEGER  NOT NULL DEFAULT 0,
    fetched     INTEGER  NOT NULL DEFAULT 0,
    evaluated   INTEGER  NOT NULL DEFAULT 0,
    failed      INTEGER  NOT NULL DEFAULT 0,
    profitable  INTEGER  NOT NULL DEFAULT 0,
    timed_out   INTEGER  NOT NULL DEFAULT 0,
    started_at  DATETIME NOT NULL,
    duration_ms INTEGER  NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS run_listings (
    run_id          TEXT    NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    position        INTEGER NOT NULL,
    address         TEXT    NOT NULL,
    list_price      REAL    NOT NULL,
    mortgage        REAL    NOT NULL,
    property_tax    REAL    NOT NULL DEFAULT 0,
    insurance       REAL    NOT NULL DEFAULT 0,
    maintenance     REAL    NOT NULL DEFAULT 0,
    total_cost      REAL    NOT NULL,
    rental_value    REAL    NOT NULL,
    rental_price    REAL    NOT NULL,
    differential    REAL    NOT NULL,
    is_profitable   INTEGER NOT NULL DEFAULT 0,
    adjusted_profit REAL,
    rent_low        REAL    NOT NULL,
    rent_high       REAL    NOT NULL,
    PRIMARY KEY (run_id, position)
);

CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at DESC);
`

const retentionRuns = 90 * 24 * time.Hour

// SQLiteStorage implementa ports.Storage y ports.RentCache usando SQLite (pure Go, sin CGo).
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada.
// Aplica el schema y limpia ejecuciones antiguas.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: enable foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}

	s := &SQLiteStorage{db: db}
	s.pruneOld(context.Background())
	return s, nil
}

// GetRent devuelve la estimación cacheada para address.
func (s *SQLiteStorage) GetRent(ctx context.Context, address string) (domain.RentEstimate, time.Time, bool, error) {
	var est domain.RentEstimate
	var fetchedAt time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT rent, rent_low, rent_high, fetched_at FROM rent_cache WHERE address = ?`,
		address,
	).Scan(&est.Value, &est.Low, &est.High, &fetchedAt)
	if err == sql.ErrNoRows {
		return domain.RentEstimate{}, time.Time{}, false, nil
	}
	if err != nil {
		return domain.RentEstimate{}, time.Time{}, false, fmt.Errorf("storage.GetRent: %w", err)
	}
	return est, fetchedAt, true, nil
}

// PutRent hace upsert de la estimación de address.
func (s *SQLiteStorage) PutRent(ctx context.Context, address string, est domain.RentEstimate) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rent_cache (address, rent, rent_low, rent_high, fetched_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(address) DO UPDATE SET
			rent       = excluded.rent,
			rent_low   = excluded.rent_low,
			rent_high  = excluded.rent_high,
			fetched_at = excluded.fetched_at
	`, address, est.Value, est.Low, est.High, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("storage.PutRent %q: %w", address, err)
	}
	return nil
}

// SaveRun persiste el resumen de la ejecución y sus listings en una transacción.
func (s *SQLiteStorage) SaveRun(ctx context.Context, run domain.Run, listings []domain.EvaluatedListing) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SaveRun: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO runs
			(id, location, requested, fetched, evaluated, failed, profitable, timed_out, started_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Location, run.Requested, run.Fetched, run.Evaluated, run.Failed,
		run.Profitable, boolToInt(run.TimedOut), run.StartedAt.UTC(), run.Duration.Milliseconds(),
	); err != nil {
		return fmt.Errorf("storage.SaveRun: insert run %s: %w", run.ID, err)
	}

	if len(listings) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO run_listings
				(run_id, position, address, list_price, mortgage, property_tax, insurance,
				 maintenance, total_cost, rental_value, rental_price, differential,
				 is_profitable, adjusted_profit, rent_low, rent_high)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("storage.SaveRun: prepare: %w", err)
		}
		defer stmt.Close()

		for i, l := range listings {
			if _, err := stmt.ExecContext(ctx,
				run.ID, i, l.Address, l.ListPrice, l.Mortgage, l.PropertyTax, l.Insurance,
				l.Maintenance, l.TotalOperatingCost, l.RentalValue, l.RentalPrice, l.Differential,
				boolToInt(l.IsProfitable), l.AdjustedProfit, l.RentLow, l.RentHigh,
			); err != nil {
				return fmt.Errorf("storage.SaveRun: insert listing %q: %w", l.Address, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.SaveRun: commit: %w", err)
	}
	return nil
}

// GetRuns devuelve las ejecuciones iniciadas en [from, to], las más recientes primero.
func (s *SQLiteStorage) GetRuns(ctx context.Context, from, to time.Time) ([]domain.Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, location, requested, fetched, evaluated, failed, profitable,
		       timed_out, started_at, duration_ms
		FROM runs
		WHERE started_at BETWEEN ? AND ?
		ORDER BY started_at DESC
	`, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("storage.GetRuns: query: %w", err)
	}
	defer rows.Close()

	var runs []domain.Run
	for rows.Next() {
		var r domain.Run
		var timedOut int
		var durationMs int64
		if err := rows.Scan(
			&r.ID, &r.Location, &r.Requested, &r.Fetched, &r.Evaluated, &r.Failed,
			&r.Profitable, &timedOut, &r.StartedAt, &durationMs,
		); err != nil {
			return nil, fmt.Errorf("storage.GetRuns: scan row: %w", err)
		}
		r.TimedOut = timedOut == 1
		r.Duration = time.Duration(durationMs) * time.Millisecond
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRunListings devuelve los listings de una ejecución en el orden en que se guardaron.
func (s *SQLiteStorage) GetRunListings(ctx context.Context, runID string) ([]domain.EvaluatedListing, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT address, list_price, mortgage, property_tax, insurance, maintenance,
		       total_cost, rental_value, rental_price, differential, is_profitable,
		       adjusted_profit, rent_low, rent_high
		FROM run_listings
		WHERE run_id = ?
		ORDER BY position
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("storage.GetRunListings: query: %w", err)
	}
	defer rows.Close()

	var out []domain.EvaluatedListing
	for rows.Next() {
		var l domain.EvaluatedListing
		var profitable int
		var adjusted sql.NullFloat64
		if err := rows.Scan(
			&l.Address, &l.ListPrice, &l.Mortgage, &l.PropertyTax, &l.Insurance, &l.Maintenance,
			&l.TotalOperatingCost, &l.RentalValue, &l.RentalPrice, &l.Differential, &profitable,
			&adjusted, &l.RentLow, &l.RentHigh,
		); err != nil {
			return nil, fmt.Errorf("storage.GetRunListings: scan row: %w", err)
		}
		l.IsProfitable = profitable == 1
		if adjusted.Valid {
			v := adjusted.Float64
			l.AdjustedProfit = &v
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// --- helpers internos ---

// pruneOld elimina ejecuciones antiguas; sus listings caen por ON DELETE CASCADE.
// La cache de alquileres no se poda: la caducidad la decide el lector.
func (s *SQLiteStorage) pruneOld(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-retentionRuns)
	s.db.ExecContext(ctx, `DELETE FROM runs WHERE started_at < ?`, cutoff)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
