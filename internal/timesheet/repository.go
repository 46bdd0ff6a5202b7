package timesheet

import (
	"context"

	"cloud.google.com/go/civil"

	"github.com/bissquit/timesheet/internal/domain"
)

// Repository defines the interface for time entry storage.
type Repository interface {
	// CreateEntry stores the entry and fills ID, CreatedAt and UpdatedAt.
	CreateEntry(ctx context.Context, entry *domain.TimeEntry) error
	GetEntry(ctx context.Context, id string) (*domain.TimeEntryWithProject, error)
	// UpdateEntry replaces the mutable fields and refreshes UpdatedAt.
	UpdateEntry(ctx context.Context, entry *domain.TimeEntry) error
	DeleteEntry(ctx context.Context, id string) error
	// ListEntries returns matching entries joined with their project, newest date first.
	ListEntries(ctx context.Context, filter EntryFilter) ([]domain.TimeEntryWithProject, error)
}

// EntryFilter represents filter criteria for listing time entries.
type EntryFilter struct {
	UserID *string
	// ProjectIDs restricts to the given projects. Nil means any project,
	// an empty slice matches nothing.
	ProjectIDs []string
	// From and To bound the entry date, both inclusive.
	From *civil.Date
	To   *civil.Date
}

// Matches reports whether the entry satisfies the filter.
func (f EntryFilter) Matches(e *domain.TimeEntry) bool {
	if f.UserID != nil && e.UserID != *f.UserID {
		return false
	}
	if f.ProjectIDs != nil {
		found := false
		for _, id := range f.ProjectIDs {
			if id == e.ProjectID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.From != nil && e.Date.Before(*f.From) {
		return false
	}
	if f.To != nil && e.Date.After(*f.To) {
		return false
	}
	return true
}
