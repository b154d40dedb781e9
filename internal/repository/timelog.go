package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/tallyhours/tally/internal/model"
)

const timeLogColumns = `
	t.id, t.user_id, t.project_id, t.start_time, t.end_time,
	t.description, t.duration_minutes, t.created_at, p.name
`

// InsertTimeLog persists a new log if its owner is on the project's roster.
// An open log (nil EndTime) is only inserted when the user has no other open log;
// otherwise ErrTimerRunning is returned and nothing is written.
func (r *Repository) InsertTimeLog(ctx context.Context, log *model.TimeLog) error {
	query := `
		WITH inserted AS (
			INSERT INTO time_logs (id, user_id, project_id, start_time, end_time, description, duration_minutes, created_at)
			SELECT $1::text, $2::text, $3::text, $4::timestamptz, $5::timestamptz, $6::text, $7::integer, $8::timestamptz
			WHERE EXISTS (
				SELECT 1 FROM project_members
				WHERE project_id = $3::text AND user_id = $2::text
			)
			RETURNING project_id
		)
		SELECT p.name FROM inserted JOIN projects p ON p.id = inserted.project_id
	`

	err := r.pool.QueryRow(ctx, query,
		log.ID,
		log.UserID,
		log.ProjectID,
		log.StartTime,
		log.EndTime,
		log.Description,
		log.DurationMinutes,
		log.CreatedAt,
	).Scan(&log.ProjectName)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotProjectMember
		}
		if isUniqueViolation(err, activeTimerIndex) {
			return ErrTimerRunning
		}
		return fmt.Errorf("failed to insert time log: %w", err)
	}

	return nil
}

// GetActiveTimeLog returns the user's running timer.
func (r *Repository) GetActiveTimeLog(ctx context.Context, userID string) (*model.TimeLog, error) {
	query := `
		SELECT ` + timeLogColumns + `
		FROM time_logs t
		JOIN projects p ON p.id = t.project_id
		WHERE t.user_id = $1 AND t.end_time IS NULL
	`

	log, err := scanTimeLog(r.pool.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoActiveTimeLog
		}
		return nil, fmt.Errorf("failed to get active time log: %w", err)
	}
	return log, nil
}

// CloseActiveTimeLog stops the user's running timer at end.
// The open row is locked, so concurrent stops close it exactly once.
func (r *Repository) CloseActiveTimeLog(ctx context.Context, userID string, end time.Time) (*model.TimeLog, error) {
	var closed *model.TimeLog

	err := r.withTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		query := `
			SELECT ` + timeLogColumns + `
			FROM time_logs t
			JOIN projects p ON p.id = t.project_id
			WHERE t.user_id = $1 AND t.end_time IS NULL
			FOR UPDATE OF t
		`

		log, err := scanTimeLog(tx.QueryRow(ctx, query, userID))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNoActiveTimeLog
			}
			return fmt.Errorf("failed to lock active time log: %w", err)
		}

		if err := log.Close(end); err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			UPDATE time_logs
			SET end_time = $2, duration_minutes = $3
			WHERE id = $1 AND end_time IS NULL
		`, log.ID, log.EndTime, log.DurationMinutes)
		if err != nil {
			return fmt.Errorf("failed to close time log: %w", err)
		}

		closed = log
		return nil
	})
	if err != nil {
		return nil, err
	}

	return closed, nil
}

// GetTimeLogForUser retrieves a log owned by userID.
// Logs owned by someone else are reported as not found.
func (r *Repository) GetTimeLogForUser(ctx context.Context, id, userID string) (*model.TimeLog, error) {
	query := `
		SELECT ` + timeLogColumns + `
		FROM time_logs t
		JOIN projects p ON p.id = t.project_id
		WHERE t.id = $1 AND t.user_id = $2
	`

	log, err := scanTimeLog(r.pool.QueryRow(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTimeLogNotFound
		}
		return nil, fmt.Errorf("failed to get time log: %w", err)
	}
	return log, nil
}

// UpdateTimeLog writes an edited log. The write only applies while the stored
// end time still equals prevEnd; otherwise ErrTimeLogConflict is returned.
func (r *Repository) UpdateTimeLog(ctx context.Context, log *model.TimeLog, prevEnd *time.Time) error {
	query := `
		WITH updated AS (
			UPDATE time_logs
			SET project_id = $3, start_time = $4, end_time = $5, description = $6, duration_minutes = $7
			WHERE id = $1 AND user_id = $2 AND end_time IS NOT DISTINCT FROM $8::timestamptz
			RETURNING project_id
		)
		SELECT p.name FROM updated JOIN projects p ON p.id = updated.project_id
	`

	err := r.pool.QueryRow(ctx, query,
		log.ID,
		log.UserID,
		log.ProjectID,
		log.StartTime,
		log.EndTime,
		log.Description,
		log.DurationMinutes,
		prevEnd,
	).Scan(&log.ProjectName)

	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("failed to update time log: %w", err)
	}

	if _, getErr := r.GetTimeLogForUser(ctx, log.ID, log.UserID); getErr != nil {
		return getErr
	}
	return ErrTimeLogConflict
}

// DeleteTimeLog removes a log owned by userID.
func (r *Repository) DeleteTimeLog(ctx context.Context, id, userID string) error {
	query := `DELETE FROM time_logs WHERE id = $1 AND user_id = $2`

	result, err := r.pool.Exec(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete time log: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrTimeLogNotFound
	}
	return nil
}

func scanTimeLog(row pgx.Row) (*model.TimeLog, error) {
	var log model.TimeLog
	err := row.Scan(
		&log.ID,
		&log.UserID,
		&log.ProjectID,
		&log.StartTime,
		&log.EndTime,
		&log.Description,
		&log.DurationMinutes,
		&log.CreatedAt,
		&log.ProjectName,
	)
	return &log, err
}
