// Package registry keeps a persistent record of processed scenes so reruns
// can skip work already done.
package registry

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/metno/sarwind/internal/domain"
	"github.com/metno/sarwind/internal/usecase"
)

// SQLite is a retrieval store on a single-file sqlite database.
type SQLite struct {
	db *sql.DB
}

// Open creates (if needed) and opens the registry database.
func Open(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening registry database: %w", err)
	}
	_, _ = db.Exec("PRAGMA journal_mode=WAL")
	_, _ = db.Exec("PRAGMA synchronous=NORMAL")

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS retrievals (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			sar_id TEXT NOT NULL,
			wind_id TEXT NOT NULL,
			output_path TEXT NOT NULL,
			processed_at DATETIME NOT NULL,
			valid_px INTEGER NOT NULL,
			land_px INTEGER NOT NULL,
			no_aux_px INTEGER NOT NULL,
			out_of_range_px INTEGER NOT NULL,
			failed_px INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_retrievals_sar_id ON retrievals(sar_id);
	`)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating retrievals table: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

// Seen reports whether a scene has a recorded retrieval.
func (s *SQLite) Seen(ctx context.Context, sarID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM retrievals WHERE sar_id = ?", sarID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("querying retrievals for %q: %w", sarID, err)
	}
	return n > 0, nil
}

// Record stores one completed retrieval.
func (s *SQLite) Record(ctx context.Context, rec usecase.RetrievalRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO retrievals (sar_id, wind_id, output_path, processed_at,
			valid_px, land_px, no_aux_px, out_of_range_px, failed_px)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.SARID, rec.WindID, rec.OutputPath, rec.ProcessedAt.UTC().Format(time.RFC3339),
		rec.FlagCounts[domain.FlagValid],
		rec.FlagCounts[domain.FlagLandMasked],
		rec.FlagCounts[domain.FlagNoAuxiliaryData],
		rec.FlagCounts[domain.FlagOutOfRange],
		rec.FlagCounts[domain.FlagInversionFailed],
	)
	if err != nil {
		return fmt.Errorf("inserting retrieval of %q: %w", rec.SARID, err)
	}
	return nil
}

// List returns the recorded retrievals, most recent first, at most limit
// rows (all rows when limit <= 0).
func (s *SQLite) List(ctx context.Context, limit int) ([]usecase.RetrievalRecord, error) {
	q := `SELECT sar_id, wind_id, output_path, processed_at,
		valid_px, land_px, no_aux_px, out_of_range_px, failed_px
		FROM retrievals ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("listing retrievals: %w", err)
	}
	defer rows.Close()

	var out []usecase.RetrievalRecord
	for rows.Next() {
		var rec usecase.RetrievalRecord
		var processedAt string
		var valid, land, noAux, oor, failed int
		if err := rows.Scan(&rec.SARID, &rec.WindID, &rec.OutputPath, &processedAt,
			&valid, &land, &noAux, &oor, &failed); err != nil {
			return nil, fmt.Errorf("scanning retrieval row: %w", err)
		}
		if t, err := time.Parse(time.RFC3339, processedAt); err == nil {
			rec.ProcessedAt = t
		}
		rec.FlagCounts = map[domain.Flag]int{
			domain.FlagValid:           valid,
			domain.FlagLandMasked:      land,
			domain.FlagNoAuxiliaryData: noAux,
			domain.FlagOutOfRange:      oor,
			domain.FlagInversionFailed: failed,
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
