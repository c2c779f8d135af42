package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// Run is one recorded weekly publisher execution.
type Run struct {
	RunDate   string
	Status    string
	Stats     map[string]any
	Errors    map[string]any
	CreatedAt time.Time
}

// InsertRunLog upserts the run record for runDate. Re-running the same
// week overwrites the previous record, matching the unique(run_date)
// contract.
func (db *DB) InsertRunLog(ctx context.Context, runDate, status string, stats, errs map[string]any) error {
	statsJSON, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("marshal run stats: %w", err)
	}

	errsJSON, err := json.Marshal(errs)
	if err != nil {
		return fmt.Errorf("marshal run errors: %w", err)
	}

	if _, err := db.Pool.Exec(ctx, `
		INSERT INTO runs (run_date, status, stats, errors)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (run_date) DO UPDATE SET
			status = EXCLUDED.status,
			stats = EXCLUDED.stats,
			errors = EXCLUDED.errors
	`, toDate(runDate), status, statsJSON, errsJSON); err != nil {
		return fmt.Errorf("insert run log: %w", err)
	}

	return nil
}

// LatestSuccessfulRun returns the most recent successful run, or nil
// when no run has succeeded yet. The scheduler uses it to seed its
// last-run state across restarts.
func (db *DB) LatestSuccessfulRun(ctx context.Context) (*Run, error) {
	row := db.Pool.QueryRow(ctx, `
		SELECT run_date, status, created_at
		FROM runs
		WHERE status = $1
		ORDER BY run_date DESC
		LIMIT 1
	`, RunStatusSuccess)

	var (
		runDate   pgtype.Date
		status    string
		createdAt pgtype.Timestamptz
	)

	err := row.Scan(&runDate, &status, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("latest successful run: %w", err)
	}

	return &Run{
		RunDate:   fromDate(runDate),
		Status:    status,
		CreatedAt: fromTimestamptz(createdAt),
	}, nil
}
