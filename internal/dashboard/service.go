// Package dashboard serves hour totals and period reports computed from
// stored time entries.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"cloud.google.com/go/civil"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/bissquit/timesheet/internal/aggregate"
	"github.com/bissquit/timesheet/internal/domain"
	"github.com/bissquit/timesheet/internal/timesheet"
)

// ErrPeriodRequired is returned when a breakdown has neither a week nor a month.
var ErrPeriodRequired = errors.New("week or month and year is required")

// EntryLister lists time entries.
type EntryLister interface {
	ListEntries(ctx context.Context, filter timesheet.EntryFilter) ([]domain.TimeEntryWithProject, error)
}

// Directory provides the users and projects reports refer to.
type Directory interface {
	GetUser(ctx context.Context, id string) (*domain.User, error)
	GetProject(ctx context.Context, id string) (*domain.Project, error)
	ListProjectsForManager(ctx context.Context, managerID string) ([]domain.Project, error)
}

// Service computes dashboard figures.
type Service struct {
	entries   EntryLister
	directory Directory
	lang      language.Tag
}

// NewService creates a dashboard service. Report rows are collated for lang.
func NewService(entries EntryLister, directory Directory, lang language.Tag) *Service {
	return &Service{entries: entries, directory: directory, lang: lang}
}

// Period selects a breakdown window: a week starting at WeekStart, or a calendar month.
type Period struct {
	WeekStart *civil.Date
	Month     time.Month
	Year      int
}

// ProjectHours is one row of a breakdown by project.
type ProjectHours struct {
	Project string       `json:"project"`
	Hours   domain.Hours `json:"hours"`
}

// DayHours is one row of a breakdown by day.
type DayHours struct {
	Date  civil.Date   `json:"date"`
	Hours domain.Hours `json:"hours"`
}

// Breakdown summarizes a user's hours over a period.
type Breakdown struct {
	UserID    string         `json:"user_id"`
	From      civil.Date     `json:"from"`
	To        civil.Date     `json:"to"`
	Total     domain.Hours   `json:"total"`
	ByProject []ProjectHours `json:"by_project"`
	ByDay     []DayHours     `json:"by_day"`
}

// UserHours is one row of a project summary.
type UserHours struct {
	UserID string       `json:"user_id"`
	Name   string       `json:"name"`
	Hours  domain.Hours `json:"hours"`
}

// SummaryEntry is a project summary line.
type SummaryEntry struct {
	domain.TimeEntry
	UserName string `json:"user_name"`
}

// ProjectSummary reports all time logged against a project.
type ProjectSummary struct {
	Project    domain.Project `json:"project"`
	TotalHours domain.Hours   `json:"total_hours"`
	EntryCount int            `json:"entry_count"`
	ByUser     []UserHours    `json:"by_user"`
	Entries    []SummaryEntry `json:"entries"`
}

// DailyHours returns the hours userID logged on date.
func (s *Service) DailyHours(ctx context.Context, userID string, date civil.Date) (domain.Hours, error) {
	entries, err := s.userEntries(ctx, userID, date, date)
	if err != nil {
		return 0, err
	}
	return aggregate.DailyHours(entries, userID, date), nil
}

// WeeklyHours returns the hours userID logged in the week starting at weekStart.
func (s *Service) WeeklyHours(ctx context.Context, userID string, weekStart civil.Date) (domain.Hours, error) {
	from, to := aggregate.WeekWindow(weekStart)
	entries, err := s.userEntries(ctx, userID, from, to)
	if err != nil {
		return 0, err
	}
	return aggregate.WeeklyHours(entries, userID, weekStart), nil
}

// TeamHours returns the hours logged on managerID's projects in the week
// starting at weekStart. A manager without projects has zero team hours.
func (s *Service) TeamHours(ctx context.Context, managerID string, weekStart civil.Date) (domain.Hours, error) {
	projects, err := s.directory.ListProjectsForManager(ctx, managerID)
	if err != nil {
		return 0, fmt.Errorf("list managed projects: %w", err)
	}
	if len(projects) == 0 {
		return 0, nil
	}

	ids := make([]string, 0, len(projects))
	for _, p := range projects {
		ids = append(ids, p.ID)
	}

	from, to := aggregate.WeekWindow(weekStart)
	rows, err := s.entries.ListEntries(ctx, timesheet.EntryFilter{ProjectIDs: ids, From: &from, To: &to})
	if err != nil {
		return 0, fmt.Errorf("list team entries: %w", err)
	}

	return aggregate.TeamHours(aggregate.Entries(rows), projects, managerID, weekStart), nil
}

// Breakdown returns a user's hours over period grouped by project and day.
func (s *Service) Breakdown(ctx context.Context, userID string, period Period) (*Breakdown, error) {
	var from, to civil.Date
	switch {
	case period.WeekStart != nil:
		from, to = aggregate.WeekWindow(*period.WeekStart)
	case period.Month != 0 && period.Year != 0:
		from, to = aggregate.MonthWindow(period.Year, period.Month)
	default:
		return nil, ErrPeriodRequired
	}

	if _, err := s.directory.GetUser(ctx, userID); err != nil {
		return nil, err
	}

	rows, err := s.entries.ListEntries(ctx, timesheet.EntryFilter{UserID: &userID, From: &from, To: &to})
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	if period.WeekStart == nil {
		rows = monthRows(rows, userID, period.Year, period.Month)
	}
	entries := aggregate.Entries(rows)

	return &Breakdown{
		UserID:    userID,
		From:      from,
		To:        to,
		Total:     aggregate.Total(entries),
		ByProject: s.projectRows(aggregate.GroupByProject(rows)),
		ByDay:     dayRows(aggregate.GroupByDay(entries)),
	}, nil
}

// ProjectSummary returns every entry of a project with per-user totals.
// Nil bounds leave the date range open.
func (s *Service) ProjectSummary(ctx context.Context, projectID string, from, to *civil.Date) (*ProjectSummary, error) {
	project, err := s.directory.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	rows, err := s.entries.ListEntries(ctx, timesheet.EntryFilter{ProjectIDs: []string{projectID}, From: from, To: to})
	if err != nil {
		return nil, fmt.Errorf("list project entries: %w", err)
	}
	entries := aggregate.Entries(rows)

	names := make(map[string]string)
	summary := &ProjectSummary{
		Project:    *project,
		TotalHours: aggregate.Total(entries),
		EntryCount: len(entries),
		ByUser:     make([]UserHours, 0),
		Entries:    make([]SummaryEntry, 0, len(entries)),
	}

	for _, e := range entries {
		name, ok := names[e.UserID]
		if !ok {
			user, err := s.directory.GetUser(ctx, e.UserID)
			if err != nil {
				return nil, fmt.Errorf("get user %s: %w", e.UserID, err)
			}
			name = user.Name
			names[e.UserID] = name
		}
		summary.Entries = append(summary.Entries, SummaryEntry{TimeEntry: e, UserName: name})
	}

	for userID, hours := range aggregate.GroupByUser(entries) {
		summary.ByUser = append(summary.ByUser, UserHours{UserID: userID, Name: names[userID], Hours: hours})
	}
	c := collate.New(s.lang)
	sort.Slice(summary.ByUser, func(i, j int) bool {
		if cmp := c.CompareString(summary.ByUser[i].Name, summary.ByUser[j].Name); cmp != 0 {
			return cmp < 0
		}
		return summary.ByUser[i].UserID < summary.ByUser[j].UserID
	})

	return summary, nil
}

func (s *Service) userEntries(ctx context.Context, userID string, from, to civil.Date) ([]domain.TimeEntry, error) {
	rows, err := s.entries.ListEntries(ctx, timesheet.EntryFilter{UserID: &userID, From: &from, To: &to})
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return aggregate.Entries(rows), nil
}

// projectRows orders project totals by collated project name.
func (s *Service) projectRows(byProject map[string]domain.Hours) []ProjectHours {
	rows := make([]ProjectHours, 0, len(byProject))
	for name, hours := range byProject {
		rows = append(rows, ProjectHours{Project: name, Hours: hours})
	}

	c := collate.New(s.lang)
	sort.Slice(rows, func(i, j int) bool {
		return c.CompareString(rows[i].Project, rows[j].Project) < 0
	})
	return rows
}

func dayRows(byDay map[civil.Date]domain.Hours) []DayHours {
	rows := make([]DayHours, 0, len(byDay))
	for d, hours := range byDay {
		rows = append(rows, DayHours{Date: d, Hours: hours})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })
	return rows
}

// monthRows keeps the joined rows whose entries fall in the month.
func monthRows(rows []domain.TimeEntryWithProject, userID string, year int, month time.Month) []domain.TimeEntryWithProject {
	keep := make(map[string]bool)
	for _, e := range aggregate.MonthlyEntries(aggregate.Entries(rows), userID, year, month) {
		keep[e.ID] = true
	}

	result := make([]domain.TimeEntryWithProject, 0, len(keep))
	for _, r := range rows {
		if keep[r.ID] {
			result = append(result, r)
		}
	}
	return result
}
