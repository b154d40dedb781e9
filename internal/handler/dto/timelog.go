package dto

import (
	"time"

	"github.com/tallyhours/tally/internal/model"
)

// CreateTimeLogRequest represents the request body for a manual entry.
type CreateTimeLogRequest struct {
	ProjectID   string     `json:"projectId"`
	StartTime   *time.Time `json:"startTime"`
	EndTime     *time.Time `json:"endTime"`
	Description string     `json:"description"`
}

// UpdateTimeLogRequest is a partial edit. Omitted fields keep their value.
type UpdateTimeLogRequest struct {
	ProjectID   *string    `json:"projectId,omitempty"`
	StartTime   *time.Time `json:"startTime,omitempty"`
	EndTime     *time.Time `json:"endTime,omitempty"`
	Description *string    `json:"description,omitempty"`
}

// StartTimerRequest represents the request body for starting the timer.
type StartTimerRequest struct {
	ProjectID   string `json:"projectId"`
	Description string `json:"description"`
}

// ProjectRef is the project summary embedded in time log responses.
type ProjectRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// UserRef is the user summary embedded in admin report rows.
type UserRef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// TimeLogResponse represents a time log in API responses.
// Duration is in whole minutes and null while the timer runs.
type TimeLogResponse struct {
	ID          string     `json:"id"`
	UserID      string     `json:"userId"`
	ProjectID   string     `json:"projectId"`
	StartTime   time.Time  `json:"startTime"`
	EndTime     *time.Time `json:"endTime"`
	Description string     `json:"description"`
	Duration    *int       `json:"duration"`
	CreatedAt   time.Time  `json:"createdAt"`
	Project     ProjectRef `json:"project"`
}

// TimeLogDetailResponse is a report row with its owner.
type TimeLogDetailResponse struct {
	TimeLogResponse
	User UserRef `json:"user"`
}

// TimeLogPageResponse is one page of the caller's logs.
type TimeLogPageResponse struct {
	TimeLogs   []*TimeLogResponse `json:"timeLogs"`
	Pagination PageInfo           `json:"pagination"`
}

// PageInfo provides offset pagination info.
type PageInfo struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// TimerStatusResponse reports the running timer, or null.
type TimerStatusResponse struct {
	ActiveTimer *TimeLogResponse `json:"activeTimer"`
}

// ToTimeLogResponse converts a TimeLog model to TimeLogResponse DTO.
func ToTimeLogResponse(log *model.TimeLog) *TimeLogResponse {
	return &TimeLogResponse{
		ID:          log.ID,
		UserID:      log.UserID,
		ProjectID:   log.ProjectID,
		StartTime:   log.StartTime,
		EndTime:     log.EndTime,
		Description: log.Description,
		Duration:    log.DurationMinutes,
		CreatedAt:   log.CreatedAt,
		Project: ProjectRef{
			ID:   log.ProjectID,
			Name: log.ProjectName,
		},
	}
}

// ToTimeLogDetailResponses converts report rows, keeping their order.
func ToTimeLogDetailResponses(details []*model.TimeLogDetail) []*TimeLogDetailResponse {
	out := make([]*TimeLogDetailResponse, 0, len(details))
	for _, d := range details {
		out = append(out, &TimeLogDetailResponse{
			TimeLogResponse: *ToTimeLogResponse(&d.TimeLog),
			User: UserRef{
				ID:    d.UserID,
				Name:  d.UserName,
				Email: d.UserEmail,
			},
		})
	}
	return out
}

// ToTimeLogPageResponse converts a page of logs.
func ToTimeLogPageResponse(page *model.Page) *TimeLogPageResponse {
	logs := make([]*TimeLogResponse, 0, len(page.TimeLogs))
	for _, l := range page.TimeLogs {
		logs = append(logs, ToTimeLogResponse(l))
	}
	return &TimeLogPageResponse{
		TimeLogs: logs,
		Pagination: PageInfo{
			Page:       page.Page,
			Limit:      page.Limit,
			Total:      page.Total,
			TotalPages: page.TotalPages,
		},
	}
}
