// Package aggregate provides pure reducers that sum time entries over
// day, week, month, project and team dimensions.
//
// Every reducer is total: empty or non-matching input yields zero or an
// empty result, never an error.
package aggregate

import (
	"time"

	"cloud.google.com/go/civil"

	"github.com/bissquit/timesheet/internal/domain"
)

// WeekLength is the number of days in a reporting week.
const WeekLength = 7

// WeekWindow returns the inclusive date range [weekStart, weekStart+6].
// The week start is caller-supplied and not aligned to any weekday.
func WeekWindow(weekStart civil.Date) (from, to civil.Date) {
	return weekStart, weekStart.AddDays(WeekLength - 1)
}

// MonthWindow returns the inclusive date range of a calendar month.
// Month is 1-indexed.
func MonthWindow(year int, month time.Month) (from, to civil.Date) {
	from = civil.Date{Year: year, Month: month, Day: 1}
	to = civil.DateOf(time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC))
	return from, to
}

// InRange reports whether d lies in the inclusive range [from, to].
func InRange(d, from, to civil.Date) bool {
	return !d.Before(from) && !d.After(to)
}

// Total sums the hours of all entries.
func Total(entries []domain.TimeEntry) domain.Hours {
	var total domain.Hours
	for i := range entries {
		total += entries[i].Hours
	}
	return total
}

// DailyHours sums hours logged by userID on date.
func DailyHours(entries []domain.TimeEntry, userID string, date civil.Date) domain.Hours {
	var total domain.Hours
	for i := range entries {
		if entries[i].UserID == userID && entries[i].Date == date {
			total += entries[i].Hours
		}
	}
	return total
}

// WeeklyHours sums hours logged by userID in the week starting at weekStart.
func WeeklyHours(entries []domain.TimeEntry, userID string, weekStart civil.Date) domain.Hours {
	from, to := WeekWindow(weekStart)

	var total domain.Hours
	for i := range entries {
		if entries[i].UserID == userID && InRange(entries[i].Date, from, to) {
			total += entries[i].Hours
		}
	}
	return total
}

// MonthlyEntries returns the entries of userID in the given calendar month.
// Month is 1-indexed. Order of the input is preserved.
func MonthlyEntries(entries []domain.TimeEntry, userID string, year int, month time.Month) []domain.TimeEntry {
	result := make([]domain.TimeEntry, 0)
	for i := range entries {
		d := entries[i].Date
		if entries[i].UserID == userID && d.Year == year && d.Month == month {
			result = append(result, entries[i])
		}
	}
	return result
}

// ManagedProjectIDs returns the set of project IDs managed by managerID.
func ManagedProjectIDs(projects []domain.Project, managerID string) map[string]struct{} {
	ids := make(map[string]struct{})
	for i := range projects {
		if projects[i].IsManagedBy(managerID) {
			ids[projects[i].ID] = struct{}{}
		}
	}
	return ids
}

// TeamHours sums hours logged on projects managed by managerID during the
// week starting at weekStart. A manager without projects has zero team hours.
func TeamHours(entries []domain.TimeEntry, projects []domain.Project, managerID string, weekStart civil.Date) domain.Hours {
	managed := ManagedProjectIDs(projects, managerID)
	if len(managed) == 0 {
		return 0
	}

	from, to := WeekWindow(weekStart)

	var total domain.Hours
	for i := range entries {
		if _, ok := managed[entries[i].ProjectID]; !ok {
			continue
		}
		if InRange(entries[i].Date, from, to) {
			total += entries[i].Hours
		}
	}
	return total
}

// GroupByProject sums hours per project name. Two projects sharing a display
// name share a bucket.
func GroupByProject(entries []domain.TimeEntryWithProject) map[string]domain.Hours {
	groups := make(map[string]domain.Hours)
	for i := range entries {
		groups[entries[i].Project.Name] += entries[i].Hours
	}
	return groups
}

// GroupByDay sums hours per calendar date.
func GroupByDay(entries []domain.TimeEntry) map[civil.Date]domain.Hours {
	groups := make(map[civil.Date]domain.Hours)
	for i := range entries {
		groups[entries[i].Date] += entries[i].Hours
	}
	return groups
}

// GroupByUser sums hours per user ID.
func GroupByUser(entries []domain.TimeEntry) map[string]domain.Hours {
	groups := make(map[string]domain.Hours)
	for i := range entries {
		groups[entries[i].UserID] += entries[i].Hours
	}
	return groups
}

// Entries strips the project join from a list of entries.
func Entries(joined []domain.TimeEntryWithProject) []domain.TimeEntry {
	result := make([]domain.TimeEntry, 0, len(joined))
	for i := range joined {
		result = append(result, joined[i].TimeEntry)
	}
	return result
}
