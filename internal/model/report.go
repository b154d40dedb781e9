package model

import "time"

// Window is a half-open time range [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// SummaryWindows are the calendar windows a personal summary is bucketed into.
type SummaryWindows struct {
	Today Window
	Week  Window
	Month Window
}

// ProjectTotal is the closed minutes a user logged on one project.
type ProjectTotal struct {
	ProjectID    string
	ProjectName  string
	TotalMinutes int
}

// Summary is a user's aggregated closed minutes.
type Summary struct {
	TodayMinutes int
	WeekMinutes  int
	MonthMinutes int
	TotalMinutes int
	Projects     []ProjectTotal
}

// Page is a slice of a user's time logs.
type Page struct {
	TimeLogs   []*TimeLog
	Page       int
	Limit      int
	Total      int
	TotalPages int
}
