// Package memstore is an in-process implementation of the directory and
// timesheet repositories. All state lives in one Store guarded by a RWMutex.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bissquit/timesheet/internal/directory"
	"github.com/bissquit/timesheet/internal/domain"
	"github.com/bissquit/timesheet/internal/timesheet"
)

// Store holds users, projects, assignments and time entries in memory.
type Store struct {
	mu          sync.RWMutex
	users       map[string]domain.User
	projects    map[string]domain.Project
	assignments map[string]domain.ProjectAssignment
	entries     map[string]domain.TimeEntry
	now         func() time.Time
}

// New creates an empty store.
func New() *Store {
	return &Store{
		users:       make(map[string]domain.User),
		projects:    make(map[string]domain.Project),
		assignments: make(map[string]domain.ProjectAssignment),
		entries:     make(map[string]domain.TimeEntry),
		now:         time.Now,
	}
}

var (
	_ directory.Repository = (*Store)(nil)
	_ timesheet.Repository = (*Store)(nil)
)

// CreateUser stores a user with a unique username.
func (s *Store) CreateUser(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Username == user.Username {
			return directory.ErrUsernameExists
		}
	}

	user.ID = uuid.NewString()
	s.users[user.ID] = *user
	return nil
}

// GetUser retrieves a user by ID.
func (s *Store) GetUser(_ context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, directory.ErrUserNotFound
	}
	return &u, nil
}

// GetUserByUsername retrieves a user by username.
func (s *Store) GetUserByUsername(_ context.Context, username string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, directory.ErrUserNotFound
}

// ListUsers returns all users ordered by name.
func (s *Store) ListUsers(_ context.Context) ([]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].Name != users[j].Name {
			return users[i].Name < users[j].Name
		}
		return users[i].Username < users[j].Username
	})
	return users, nil
}

// CreateProject stores a project.
func (s *Store) CreateProject(_ context.Context, project *domain.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	project.ID = uuid.NewString()
	s.projects[project.ID] = *project
	return nil
}

// GetProject retrieves a project by ID.
func (s *Store) GetProject(_ context.Context, id string) (*domain.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.projects[id]
	if !ok {
		return nil, directory.ErrProjectNotFound
	}
	return &p, nil
}

// ListProjects returns projects matching the filter ordered by name.
func (s *Store) ListProjects(_ context.Context, filter directory.ProjectFilter) ([]domain.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var assigned map[string]bool
	if filter.AssignedUserID != nil {
		assigned = make(map[string]bool)
		for _, a := range s.assignments {
			if a.UserID == *filter.AssignedUserID {
				assigned[a.ProjectID] = true
			}
		}
	}

	projects := make([]domain.Project, 0)
	for _, p := range s.projects {
		if assigned != nil && !assigned[p.ID] {
			continue
		}
		if filter.ManagerID != nil && !p.IsManagedBy(*filter.ManagerID) {
			continue
		}
		projects = append(projects, p)
	}
	sort.Slice(projects, func(i, j int) bool {
		if projects[i].Name != projects[j].Name {
			return projects[i].Name < projects[j].Name
		}
		return projects[i].ID < projects[j].ID
	})
	return projects, nil
}

// UpdateProject replaces a stored project.
func (s *Store) UpdateProject(_ context.Context, project *domain.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.projects[project.ID]; !ok {
		return directory.ErrProjectNotFound
	}
	s.projects[project.ID] = *project
	return nil
}

// CreateAssignment links a user to a project once.
func (s *Store) CreateAssignment(_ context.Context, assignment *domain.ProjectAssignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.assignments {
		if a.UserID == assignment.UserID && a.ProjectID == assignment.ProjectID {
			return directory.ErrAssignmentExists
		}
	}

	assignment.ID = uuid.NewString()
	s.assignments[assignment.ID] = *assignment
	return nil
}

// ListAssignmentsForUser returns the assignments of a user.
func (s *Store) ListAssignmentsForUser(_ context.Context, userID string) ([]domain.ProjectAssignment, error) {
	return s.listAssignments(func(a domain.ProjectAssignment) bool { return a.UserID == userID }), nil
}

// ListAssignmentsForProject returns the assignments of a project.
func (s *Store) ListAssignmentsForProject(_ context.Context, projectID string) ([]domain.ProjectAssignment, error) {
	return s.listAssignments(func(a domain.ProjectAssignment) bool { return a.ProjectID == projectID }), nil
}

// DeleteAssignment unlinks a user from a project.
func (s *Store) DeleteAssignment(_ context.Context, userID, projectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, a := range s.assignments {
		if a.UserID == userID && a.ProjectID == projectID {
			delete(s.assignments, id)
			return nil
		}
	}
	return directory.ErrAssignmentNotFound
}

func (s *Store) listAssignments(match func(domain.ProjectAssignment) bool) []domain.ProjectAssignment {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.ProjectAssignment, 0)
	for _, a := range s.assignments {
		if match(a) {
			result = append(result, a)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// CreateEntry stores a time entry. The user and project must exist.
func (s *Store) CreateEntry(_ context.Context, entry *domain.TimeEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkRefs(entry); err != nil {
		return err
	}

	now := s.now()
	entry.ID = uuid.NewString()
	entry.CreatedAt = now
	entry.UpdatedAt = now
	s.entries[entry.ID] = *entry
	return nil
}

// GetEntry retrieves a time entry with its project.
func (s *Store) GetEntry(_ context.Context, id string) (*domain.TimeEntryWithProject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, timesheet.ErrEntryNotFound
	}
	return &domain.TimeEntryWithProject{TimeEntry: e, Project: s.projects[e.ProjectID]}, nil
}

// UpdateEntry replaces the mutable fields of an entry and refreshes UpdatedAt.
func (s *Store) UpdateEntry(_ context.Context, entry *domain.TimeEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.entries[entry.ID]
	if !ok {
		return timesheet.ErrEntryNotFound
	}
	if err := s.checkRefs(entry); err != nil {
		return err
	}

	current.ProjectID = entry.ProjectID
	current.Date = entry.Date
	current.Hours = entry.Hours
	current.Description = entry.Description
	current.UpdatedAt = s.now()
	s.entries[entry.ID] = current

	*entry = current
	return nil
}

// DeleteEntry removes a time entry.
func (s *Store) DeleteEntry(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[id]; !ok {
		return timesheet.ErrEntryNotFound
	}
	delete(s.entries, id)
	return nil
}

// ListEntries returns entries matching the filter, newest date first.
func (s *Store) ListEntries(_ context.Context, filter timesheet.EntryFilter) ([]domain.TimeEntryWithProject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.TimeEntryWithProject, 0)
	for _, e := range s.entries {
		if !filter.Matches(&e) {
			continue
		}
		result = append(result, domain.TimeEntryWithProject{TimeEntry: e, Project: s.projects[e.ProjectID]})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Date != result[j].Date {
			return result[i].Date.After(result[j].Date)
		}
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// checkRefs mirrors the foreign keys of the SQL schema. Caller holds mu.
func (s *Store) checkRefs(entry *domain.TimeEntry) error {
	if _, ok := s.users[entry.UserID]; !ok {
		return directory.ErrUserNotFound
	}
	if _, ok := s.projects[entry.ProjectID]; !ok {
		return directory.ErrProjectNotFound
	}
	return nil
}
