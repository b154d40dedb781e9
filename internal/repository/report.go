package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/tallyhours/tally/internal/model"
)

// SummarizeTimeLogs sums a user's closed minutes per window and per project.
// Both aggregates read the same snapshot.
func (r *Repository) SummarizeTimeLogs(ctx context.Context, userID string, windows model.SummaryWindows) (*model.Summary, error) {
	summary := &model.Summary{Projects: []model.ProjectTotal{}}

	err := r.withTx(ctx, readSnapshot, func(tx pgx.Tx) error {
		totals := `
			SELECT
				COALESCE(SUM(duration_minutes) FILTER (WHERE start_time >= $2 AND start_time < $3), 0),
				COALESCE(SUM(duration_minutes) FILTER (WHERE start_time >= $4 AND start_time < $5), 0),
				COALESCE(SUM(duration_minutes) FILTER (WHERE start_time >= $6 AND start_time < $7), 0),
				COALESCE(SUM(duration_minutes), 0)
			FROM time_logs
			WHERE user_id = $1 AND duration_minutes IS NOT NULL
		`

		err := tx.QueryRow(ctx, totals, userID,
			windows.Today.Start, windows.Today.End,
			windows.Week.Start, windows.Week.End,
			windows.Month.Start, windows.Month.End,
		).Scan(&summary.TodayMinutes, &summary.WeekMinutes, &summary.MonthMinutes, &summary.TotalMinutes)
		if err != nil {
			return fmt.Errorf("failed to sum time logs: %w", err)
		}

		perProject := `
			SELECT t.project_id, p.name, SUM(t.duration_minutes) AS total
			FROM time_logs t
			JOIN projects p ON p.id = t.project_id
			WHERE t.user_id = $1 AND t.duration_minutes IS NOT NULL
			GROUP BY t.project_id, p.name
			ORDER BY total DESC, t.project_id ASC
		`

		rows, err := tx.Query(ctx, perProject, userID)
		if err != nil {
			return fmt.Errorf("failed to sum time logs per project: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var total model.ProjectTotal
			if err := rows.Scan(&total.ProjectID, &total.ProjectName, &total.TotalMinutes); err != nil {
				return fmt.Errorf("failed to scan project total: %w", err)
			}
			summary.Projects = append(summary.Projects, total)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	return summary, nil
}

// ListTimeLogsFiltered returns logs across users with owner and project names,
// newest start first.
func (r *Repository) ListTimeLogsFiltered(ctx context.Context, filter model.TimeLogFilter) ([]*model.TimeLogDetail, error) {
	var (
		conditions []string
		args       []any
	)

	if filter.UserID != "" {
		args = append(args, filter.UserID)
		conditions = append(conditions, fmt.Sprintf("t.user_id = $%d", len(args)))
	}
	if filter.ProjectID != "" {
		args = append(args, filter.ProjectID)
		conditions = append(conditions, fmt.Sprintf("t.project_id = $%d", len(args)))
	}

	query := `
		SELECT ` + timeLogColumns + `, u.name, u.email
		FROM time_logs t
		JOIN projects p ON p.id = t.project_id
		JOIN users u ON u.id = t.user_id
	`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY t.start_time DESC, t.id DESC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list time logs: %w", err)
	}
	defer rows.Close()

	details := []*model.TimeLogDetail{}
	for rows.Next() {
		var d model.TimeLogDetail
		err := rows.Scan(
			&d.ID,
			&d.UserID,
			&d.ProjectID,
			&d.StartTime,
			&d.EndTime,
			&d.Description,
			&d.DurationMinutes,
			&d.CreatedAt,
			&d.ProjectName,
			&d.UserName,
			&d.UserEmail,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan time log: %w", err)
		}
		details = append(details, &d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating time logs: %w", err)
	}
	return details, nil
}

// ListTimeLogsByUser returns one page of a user's logs, newest created first,
// with the total count from the same snapshot.
func (r *Repository) ListTimeLogsByUser(ctx context.Context, userID string, limit, offset int) ([]*model.TimeLog, int, error) {
	logs := []*model.TimeLog{}
	var total int

	err := r.withTx(ctx, readSnapshot, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM time_logs WHERE user_id = $1`, userID).Scan(&total); err != nil {
			return fmt.Errorf("failed to count time logs: %w", err)
		}

		query := `
			SELECT ` + timeLogColumns + `
			FROM time_logs t
			JOIN projects p ON p.id = t.project_id
			WHERE t.user_id = $1
			ORDER BY t.created_at DESC, t.id DESC
			LIMIT $2 OFFSET $3
		`

		rows, err := tx.Query(ctx, query, userID, limit, offset)
		if err != nil {
			return fmt.Errorf("failed to list time logs: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			log, err := scanTimeLog(rows)
			if err != nil {
				return fmt.Errorf("failed to scan time log: %w", err)
			}
			logs = append(logs, log)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, 0, err
	}

	return logs, total, nil
}
