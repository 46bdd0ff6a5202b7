package timesheet

import (
	"errors"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bissquit/timesheet/internal/domain"
)

func hours(f float64) domain.Hours {
	return domain.HoursFromFloat(f)
}

func dayEntries(hs ...float64) []domain.TimeEntry {
	entries := make([]domain.TimeEntry, 0, len(hs))
	for i, h := range hs {
		entries = append(entries, domain.TimeEntry{
			ID:     string(rune('a' + i)),
			UserID: "u1",
			Date:   civil.Date{Year: 2024, Month: 1, Day: 15},
			Hours:  hours(h),
		})
	}
	return entries
}

func TestValidateNewEntry(t *testing.T) {
	active := &domain.Project{ID: "p1", Status: domain.ProjectStatusActive}
	pending := &domain.Project{ID: "p2", Status: domain.ProjectStatusPending}
	priority := &domain.Project{ID: "p3", Status: domain.ProjectStatusActive, IsPriority: true}
	closed := &domain.Project{ID: "p4", Status: domain.ProjectStatusClosed}
	closedPriority := &domain.Project{ID: "p5", Status: domain.ProjectStatusClosed, IsPriority: true}

	tests := []struct {
		name      string
		project   *domain.Project
		existing  []domain.TimeEntry
		candidate float64
		wantErr   error
	}{
		{name: "first entry of the day", project: active, candidate: 4},
		{name: "exactly at cap", project: active, existing: dayEntries(4, 2.5), candidate: 1.5},
		{name: "pending project accepts time", project: pending, existing: dayEntries(3), candidate: 5},
		{name: "one tenth over cap", project: active, existing: dayEntries(4, 4), candidate: 0.5, wantErr: ErrDailyLimitExceeded},
		{name: "over cap in one entry", project: active, candidate: 9, wantErr: ErrDailyLimitExceeded},
		{name: "priority lifts cap", project: priority, existing: dayEntries(8), candidate: 10},
		{name: "priority up to entry cap", project: priority, existing: dayEntries(8, 8), candidate: 24},
		{name: "closed rejects any hours", project: closed, candidate: 0.5, wantErr: ErrProjectClosed},
		{name: "closed checked before cap", project: closed, existing: dayEntries(8), candidate: 8, wantErr: ErrProjectClosed},
		{name: "closed priority still closed", project: closedPriority, candidate: 1, wantErr: ErrProjectClosed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			draft := domain.TimeEntryDraft{UserID: "u1", ProjectID: tt.project.ID, Hours: hours(tt.candidate)}

			err := ValidateNewEntry(draft, tt.project, tt.existing)

			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidateNewEntry_ReportsTotals(t *testing.T) {
	project := &domain.Project{ID: "b", Status: domain.ProjectStatusActive}
	draft := domain.TimeEntryDraft{UserID: "u1", ProjectID: "b", Hours: hours(5)}

	err := ValidateNewEntry(draft, project, dayEntries(4))

	var limitErr *DailyLimitError
	require.True(t, errors.As(err, &limitErr))
	assert.Equal(t, hours(4), limitErr.CurrentTotal)
	assert.Equal(t, hours(9), limitErr.AttemptedTotal)
	assert.Equal(t, "4.0", limitErr.CurrentTotal.String())
	assert.Equal(t, "9.0", limitErr.AttemptedTotal.String())
}

func TestValidateNewEntry_TenthsDoNotDrift(t *testing.T) {
	project := &domain.Project{ID: "p", Status: domain.ProjectStatusActive}
	// 0.1 summed 79 times plus 0.1 lands exactly on 8.0.
	existing := make([]domain.TimeEntry, 79)
	for i := range existing {
		existing[i] = domain.TimeEntry{Hours: hours(0.1)}
	}

	assert.NoError(t, ValidateNewEntry(domain.TimeEntryDraft{Hours: hours(0.1)}, project, existing))
	assert.ErrorIs(t, ValidateNewEntry(domain.TimeEntryDraft{Hours: hours(0.2)}, project, existing), ErrDailyLimitExceeded)
}

func TestValidateEntryChange_ExcludesEditedEntry(t *testing.T) {
	project := &domain.Project{ID: "p", Status: domain.ProjectStatusActive}
	existing := dayEntries(6, 2) // ids "a" and "b"

	// Resaving "a" at 6 keeps the day at 8.
	err := ValidateEntryChange(domain.TimeEntryDraft{Hours: hours(6)}, project, existing, "a")
	assert.NoError(t, err)

	// Raising "a" to 6.5 makes the day 8.5.
	err = ValidateEntryChange(domain.TimeEntryDraft{Hours: hours(6.5)}, project, existing, "a")
	var limitErr *DailyLimitError
	require.ErrorAs(t, err, &limitErr)
	assert.Equal(t, hours(2), limitErr.CurrentTotal)
	assert.Equal(t, hours(8.5), limitErr.AttemptedTotal)
}
