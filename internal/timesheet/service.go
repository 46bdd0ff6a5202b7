// Package timesheet implements time entry validation, edit authorization
// and the service that records, edits and lists entries.
package timesheet

import (
	"context"
	"fmt"
	"sort"
	"time"

	"cloud.google.com/go/civil"

	"github.com/bissquit/timesheet/internal/aggregate"
	"github.com/bissquit/timesheet/internal/daylock"
	"github.com/bissquit/timesheet/internal/domain"
)

// maxLockAttempts bounds retries when an entry moves while its day is being locked.
const maxLockAttempts = 3

// ProjectReader provides project lookups.
type ProjectReader interface {
	GetProject(ctx context.Context, id string) (*domain.Project, error)
}

// UserReader provides user lookups.
type UserReader interface {
	GetUser(ctx context.Context, id string) (*domain.User, error)
}

// Service implements time entry business logic.
type Service struct {
	repo     Repository
	projects ProjectReader
	users    UserReader
	locker   daylock.Locker
	now      func() time.Time
}

// NewService creates a new timesheet service.
func NewService(repo Repository, projects ProjectReader, users UserReader, locker daylock.Locker) *Service {
	return &Service{
		repo:     repo,
		projects: projects,
		users:    users,
		locker:   locker,
		now:      time.Now,
	}
}

// EntryChange holds a partial entry update. Nil fields are left unchanged;
// an empty Description clears it.
type EntryChange struct {
	ProjectID   *string
	Date        *civil.Date
	Hours       *domain.Hours
	Description *string
}

// ListQuery selects entries for GET /time-entries.
// The first combination that is fully set wins: user and date, user and
// week, user and month with year, user, project.
type ListQuery struct {
	UserID    string
	ProjectID string
	Date      *civil.Date
	WeekStart *civil.Date
	Month     time.Month
	Year      int
}

// CreateEntry validates and stores a new time entry.
func (s *Service) CreateEntry(ctx context.Context, draft domain.TimeEntryDraft) (*domain.TimeEntryWithProject, error) {
	entry, err := s.createEntry(ctx, draft)
	recordDecision("create", err)
	return entry, err
}

func (s *Service) createEntry(ctx context.Context, draft domain.TimeEntryDraft) (*domain.TimeEntryWithProject, error) {
	project, err := s.projects.GetProject(ctx, draft.ProjectID)
	if err != nil {
		return nil, err
	}
	if _, err := s.users.GetUser(ctx, draft.UserID); err != nil {
		return nil, err
	}

	unlock, err := s.lockDay(ctx, draft.UserID, draft.Date)
	if err != nil {
		return nil, err
	}
	defer unlock()

	existing, err := s.dayEntries(ctx, draft.UserID, draft.Date)
	if err != nil {
		return nil, err
	}

	if err := ValidateNewEntry(draft, project, existing); err != nil {
		return nil, err
	}

	entry := &domain.TimeEntry{
		UserID:      draft.UserID,
		ProjectID:   draft.ProjectID,
		Date:        draft.Date,
		Hours:       draft.Hours,
		Description: draft.Description,
	}
	if err := s.repo.CreateEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("create entry: %w", err)
	}

	return &domain.TimeEntryWithProject{TimeEntry: *entry, Project: *project}, nil
}

// GetEntry retrieves a time entry by ID.
func (s *Service) GetEntry(ctx context.Context, id string) (*domain.TimeEntryWithProject, error) {
	return s.repo.GetEntry(ctx, id)
}

// UpdateEntry applies a change on behalf of actor.
// Moving an entry or raising its hours is validated like a new entry.
func (s *Service) UpdateEntry(ctx context.Context, id string, change EntryChange, actor domain.Actor) (*domain.TimeEntryWithProject, error) {
	entry, err := s.updateEntry(ctx, id, change, actor)
	recordDecision("update", err)
	return entry, err
}

func (s *Service) updateEntry(ctx context.Context, id string, change EntryChange, actor domain.Actor) (*domain.TimeEntryWithProject, error) {
	current, unlock, err := s.lockEntry(ctx, id, change.Date)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if !CanMutate(&current.TimeEntry, actor, s.now()) {
		return nil, ErrForbidden
	}

	updated := current.TimeEntry
	if change.ProjectID != nil {
		updated.ProjectID = *change.ProjectID
	}
	if change.Date != nil {
		updated.Date = *change.Date
	}
	if change.Hours != nil {
		updated.Hours = *change.Hours
	}
	if change.Description != nil {
		updated.Description = change.Description
		if *change.Description == "" {
			updated.Description = nil
		}
	}

	if needsValidation(&current.TimeEntry, &updated) {
		project, err := s.projects.GetProject(ctx, updated.ProjectID)
		if err != nil {
			return nil, err
		}

		existing, err := s.dayEntries(ctx, updated.UserID, updated.Date)
		if err != nil {
			return nil, err
		}

		if err := ValidateEntryChange(draftOf(&updated), project, existing, updated.ID); err != nil {
			return nil, err
		}
	}

	if err := s.repo.UpdateEntry(ctx, &updated); err != nil {
		return nil, fmt.Errorf("update entry: %w", err)
	}

	return s.repo.GetEntry(ctx, id)
}

// lockEntry locks the entry's day, and the target day when it moves, then
// reads the entry under those locks. An entry moved to another day between
// the first read and the locking is retried a few times.
func (s *Service) lockEntry(ctx context.Context, id string, target *civil.Date) (*domain.TimeEntryWithProject, func(), error) {
	for attempt := 0; attempt < maxLockAttempts; attempt++ {
		seen, err := s.repo.GetEntry(ctx, id)
		if err != nil {
			return nil, nil, err
		}

		days := []civil.Date{seen.Date}
		if target != nil {
			days = append(days, *target)
		}
		unlock, err := s.lockDays(ctx, seen.UserID, days...)
		if err != nil {
			return nil, nil, err
		}

		current, err := s.repo.GetEntry(ctx, id)
		if err != nil {
			unlock()
			return nil, nil, err
		}
		if current.Date == seen.Date {
			return current, unlock, nil
		}
		unlock()
	}
	return nil, nil, ErrEntryChanged
}

// lockDays locks the distinct days of a user in date order.
func (s *Service) lockDays(ctx context.Context, userID string, dates ...civil.Date) (func(), error) {
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	var unlocks []func()
	release := func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}

	for i, d := range dates {
		if i > 0 && d == dates[i-1] {
			continue
		}
		unlock, err := s.lockDay(ctx, userID, d)
		if err != nil {
			release()
			return nil, err
		}
		unlocks = append(unlocks, unlock)
	}
	return release, nil
}

// DeleteEntry removes a time entry on behalf of actor.
func (s *Service) DeleteEntry(ctx context.Context, id string, actor domain.Actor) error {
	err := s.deleteEntry(ctx, id, actor)
	recordDecision("delete", err)
	return err
}

func (s *Service) deleteEntry(ctx context.Context, id string, actor domain.Actor) error {
	current, err := s.repo.GetEntry(ctx, id)
	if err != nil {
		return err
	}

	if !CanMutate(&current.TimeEntry, actor, s.now()) {
		return ErrForbidden
	}

	return s.repo.DeleteEntry(ctx, id)
}

// ListEntries returns the entries selected by query.
func (s *Service) ListEntries(ctx context.Context, query ListQuery) ([]domain.TimeEntryWithProject, error) {
	filter, err := query.filter()
	if err != nil {
		return nil, err
	}
	return s.repo.ListEntries(ctx, filter)
}

func (q ListQuery) filter() (EntryFilter, error) {
	if q.UserID != "" {
		filter := EntryFilter{UserID: &q.UserID}
		switch {
		case q.Date != nil:
			filter.From, filter.To = q.Date, q.Date
		case q.WeekStart != nil:
			from, to := aggregate.WeekWindow(*q.WeekStart)
			filter.From, filter.To = &from, &to
		case q.Month != 0 && q.Year != 0:
			from, to := aggregate.MonthWindow(q.Year, q.Month)
			filter.From, filter.To = &from, &to
		}
		return filter, nil
	}

	if q.ProjectID != "" {
		return EntryFilter{ProjectIDs: []string{q.ProjectID}}, nil
	}

	return EntryFilter{}, ErrFilterRequired
}

func (s *Service) dayEntries(ctx context.Context, userID string, date civil.Date) ([]domain.TimeEntry, error) {
	rows, err := s.repo.ListEntries(ctx, EntryFilter{UserID: &userID, From: &date, To: &date})
	if err != nil {
		return nil, fmt.Errorf("list day entries: %w", err)
	}
	return aggregate.Entries(rows), nil
}

func needsValidation(before, after *domain.TimeEntry) bool {
	return before.ProjectID != after.ProjectID ||
		before.Date != after.Date ||
		after.Hours > before.Hours
}

func draftOf(e *domain.TimeEntry) domain.TimeEntryDraft {
	return domain.TimeEntryDraft{
		UserID:      e.UserID,
		ProjectID:   e.ProjectID,
		Date:        e.Date,
		Hours:       e.Hours,
		Description: e.Description,
	}
}
