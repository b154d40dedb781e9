package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/tallyhours/tally/internal/metrics"
	"github.com/tallyhours/tally/internal/model"
)

// Pagination limits for a user's log listing.
const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// ReportService aggregates time logs for dashboards and admin reports.
type ReportService struct {
	store     ReportStore
	metrics   metrics.Recorder
	loc       *time.Location
	weekStart time.Weekday
	now       Clock
}

// NewReportService creates a new ReportService. Calendar windows are computed
// in loc, with weeks beginning on weekStart.
func NewReportService(store ReportStore, recorder metrics.Recorder, loc *time.Location, weekStart time.Weekday) *ReportService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if loc == nil {
		loc = time.Local
	}
	return &ReportService{
		store:     store,
		metrics:   recorder,
		loc:       loc,
		weekStart: weekStart,
		now:       time.Now,
	}
}

// PersonalSummary returns the user's closed minutes for today, this week,
// this month and all time, plus per-project totals ordered by minutes.
// Running timers contribute nothing.
func (s *ReportService) PersonalSummary(ctx context.Context, identity *model.AuthContext) (*model.Summary, error) {
	if identity == nil {
		return nil, ErrUnauthenticated
	}

	started := time.Now()
	windows := computeWindows(s.now(), s.loc, s.weekStart)

	summary, err := s.store.SummarizeTimeLogs(ctx, identity.UserID, windows)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize time logs: %w", err)
	}

	sort.SliceStable(summary.Projects, func(i, j int) bool {
		a, b := summary.Projects[i], summary.Projects[j]
		if a.TotalMinutes != b.TotalMinutes {
			return a.TotalMinutes > b.TotalMinutes
		}
		return a.ProjectID < b.ProjectID
	})

	s.metrics.ObserveSummaryDuration(time.Since(started))
	return summary, nil
}

// FilteredLogs lists logs across users for admins, newest first.
func (s *ReportService) FilteredLogs(ctx context.Context, filter model.TimeLogFilter) ([]*model.TimeLogDetail, error) {
	logs, err := s.store.ListTimeLogsFiltered(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list time logs: %w", err)
	}
	return logs, nil
}

// PaginatedUserLogs returns one page of the user's logs, newest first.
// Out of range page and limit values fall back to the defaults; limit is capped.
func (s *ReportService) PaginatedUserLogs(ctx context.Context, identity *model.AuthContext, page, limit int) (*model.Page, error) {
	if identity == nil {
		return nil, ErrUnauthenticated
	}

	page, limit = normalizePage(page, limit)

	logs, total, err := s.store.ListTimeLogsByUser(ctx, identity.UserID, limit, (page-1)*limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list time logs: %w", err)
	}

	return &model.Page{
		TimeLogs:   logs,
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: (total + limit - 1) / limit,
	}, nil
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return page, limit
}

// computeWindows returns the day, week and month containing now, as seen in loc.
// Boundaries are local midnights, built with time.Date so DST days stay calendar days.
func computeWindows(now time.Time, loc *time.Location, weekStart time.Weekday) model.SummaryWindows {
	local := now.In(loc)
	year, month, day := local.Date()
	offset := (int(local.Weekday()) - int(weekStart) + 7) % 7

	midnight := func(y int, m time.Month, d int) time.Time {
		return time.Date(y, m, d, 0, 0, 0, 0, loc)
	}

	return model.SummaryWindows{
		Today: model.Window{Start: midnight(year, month, day), End: midnight(year, month, day+1)},
		Week:  model.Window{Start: midnight(year, month, day-offset), End: midnight(year, month, day-offset+7)},
		Month: model.Window{Start: midnight(year, month, 1), End: midnight(year, month+1, 1)},
	}
}
