package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/bobarin/placeguide/internal/models"
)

const runColumns = `
	id, job_id, place_name, language, mode, voice_selector, profile_known,
	voice_id, status, error_kind, error_message, prompt_chars, script_chars,
	audio_bytes, audio_duration_ms, elapsed_ms, created_at
`

// RecordRun inserts one pipeline execution.
func (db *DB) RecordRun(ctx context.Context, run *models.GuideRun) error {
	query := `
		INSERT INTO guide_runs (` + runColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	_, err := db.ExecContext(
		ctx, query,
		run.ID, run.JobID, run.PlaceName, run.Language, run.Mode, run.VoiceSelector,
		run.ProfileKnown, run.VoiceID, run.Status, run.ErrorKind, run.ErrorMessage,
		run.PromptChars, run.ScriptChars, run.AudioBytes, run.AudioDurationMs,
		run.ElapsedMs, run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert guide run: %w", err)
	}
	return nil
}

// RunFilter narrows ListRuns and CountRuns. Empty Status matches every run.
type RunFilter struct {
	Status string
	Limit  int
	Offset int
}

// whereClause returns the WHERE fragment and its arguments.
func (f RunFilter) whereClause() (string, []interface{}) {
	var (
		conds []string
		args  []interface{}
	)
	if f.Status != "" {
		args = append(args, f.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// ListRuns returns runs ordered by creation date (newest first).
func (db *DB) ListRuns(ctx context.Context, filter RunFilter) ([]models.GuideRun, error) {
	where, args := filter.whereClause()
	args = append(args, filter.Limit, filter.Offset)

	query := fmt.Sprintf(`SELECT %s FROM guide_runs%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		runColumns, where, len(args)-1, len(args))

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query guide runs: %w", err)
	}
	defer rows.Close()

	runs := []models.GuideRun{}
	for rows.Next() {
		var run models.GuideRun
		err := rows.Scan(
			&run.ID, &run.JobID, &run.PlaceName, &run.Language, &run.Mode,
			&run.VoiceSelector, &run.ProfileKnown, &run.VoiceID, &run.Status,
			&run.ErrorKind, &run.ErrorMessage, &run.PromptChars, &run.ScriptChars,
			&run.AudioBytes, &run.AudioDurationMs, &run.ElapsedMs, &run.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan guide run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate guide runs: %w", err)
	}

	return runs, nil
}

// CountRuns returns the number of runs matching filter, ignoring paging.
func (db *DB) CountRuns(ctx context.Context, filter RunFilter) (int, error) {
	where, args := filter.whereClause()

	var total int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM guide_runs"+where, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count guide runs: %w", err)
	}
	return total, nil
}
