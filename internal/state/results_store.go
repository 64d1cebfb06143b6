package state

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/convex-community/curvesim/internal/metrics"
	"github.com/convex-community/curvesim/internal/types"
)

// SaveRunResult persists one run's recorded series and optional summary under
// a sweep name. Existing rows for the same (sweep, run) are replaced so a
// sweep can be re-run idempotently.
func SaveRunResult(sweepName string, run *types.RunResult, summary *metrics.Summary) (int64, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	stepsJSON, err := json.Marshal(run.Steps)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal steps: %w", err)
	}

	var summaryJSON []byte
	if summary != nil {
		summaryJSON, err = json.Marshal(summary)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal summary: %w", err)
		}
	}

	query := `
		INSERT INTO sweep_runs (
			sweep_name, run_key, series_id, amp, fee, admin_fee,
			status, incomplete, run_error, steps, summary
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (sweep_name, run_key) DO UPDATE SET
			status = EXCLUDED.status,
			incomplete = EXCLUDED.incomplete,
			run_error = EXCLUDED.run_error,
			steps = EXCLUDED.steps,
			summary = EXCLUDED.summary,
			created_at = CURRENT_TIMESTAMP
		RETURNING run_id;
	`

	var runID int64
	err = DB.QueryRow(
		query,
		sweepName, run.Key, run.SeriesID, int64(run.Config.Amp), run.Config.Fee, run.Config.AdminFee,
		string(run.Status), run.Incomplete, run.Err, stepsJSON, summaryJSON,
	).Scan(&runID)
	if err != nil {
		return 0, fmt.Errorf("failed to save run result: %w", err)
	}

	log.Info().
		Int64("run_id", runID).
		Str("run", run.Key).
		Str("status", string(run.Status)).
		Msg("Run result saved to database")
	return runID, nil
}

// LoadSummaries returns the stored summaries for a sweep, keyed by run key.
// Runs persisted without a summary are omitted.
func LoadSummaries(sweepName string) (map[string]metrics.Summary, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	rows, err := DB.Query(
		`SELECT run_key, summary FROM sweep_runs WHERE sweep_name = $1 AND summary IS NOT NULL`,
		sweepName,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query summaries: %w", err)
	}
	defer rows.Close()

	out := make(map[string]metrics.Summary)
	for rows.Next() {
		var key string
		var raw []byte
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan summary row: %w", err)
		}
		var s metrics.Summary
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("failed to unmarshal summary for %s: %w", key, err)
		}
		out[key] = s
	}
	return out, rows.Err()
}
