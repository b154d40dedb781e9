package dto

import "github.com/tallyhours/tally/internal/model"

// DashboardStatsResponse is the caller's personal summary.
type DashboardStatsResponse struct {
	TodayMinutes int            `json:"todayMinutes"`
	WeekMinutes  int            `json:"weekMinutes"`
	MonthMinutes int            `json:"monthMinutes"`
	TotalMinutes int            `json:"totalMinutes"`
	ProjectStats []ProjectStats `json:"projectStats"`
}

// ProjectStats is the all-time total for one project.
type ProjectStats struct {
	ProjectID    string `json:"projectId"`
	ProjectName  string `json:"projectName"`
	TotalMinutes int    `json:"totalMinutes"`
}

// ToDashboardStatsResponse converts a Summary model.
func ToDashboardStatsResponse(summary *model.Summary) *DashboardStatsResponse {
	stats := make([]ProjectStats, 0, len(summary.Projects))
	for _, p := range summary.Projects {
		stats = append(stats, ProjectStats{
			ProjectID:    p.ProjectID,
			ProjectName:  p.ProjectName,
			TotalMinutes: p.TotalMinutes,
		})
	}
	return &DashboardStatsResponse{
		TodayMinutes: summary.TodayMinutes,
		WeekMinutes:  summary.WeekMinutes,
		MonthMinutes: summary.MonthMinutes,
		TotalMinutes: summary.TotalMinutes,
		ProjectStats: stats,
	}
}
