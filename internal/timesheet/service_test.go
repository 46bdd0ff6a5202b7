package timesheet

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bissquit/timesheet/internal/daylock"
	"github.com/bissquit/timesheet/internal/directory"
	"github.com/bissquit/timesheet/internal/domain"
)

// mockRepository implements Repository for testing.
type mockRepository struct {
	mu       sync.Mutex
	entries  map[string]domain.TimeEntry
	projects map[string]*domain.Project
	nextID   int
	now      func() time.Time
}

func newMockRepository(projects map[string]*domain.Project, now func() time.Time) *mockRepository {
	return &mockRepository{
		entries:  make(map[string]domain.TimeEntry),
		projects: projects,
		now:      now,
	}
}

func (m *mockRepository) CreateEntry(_ context.Context, entry *domain.TimeEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	entry.ID = fmt.Sprintf("entry-%d", m.nextID)
	entry.CreatedAt = m.now()
	entry.UpdatedAt = entry.CreatedAt
	m.entries[entry.ID] = *entry
	return nil
}

func (m *mockRepository) GetEntry(_ context.Context, id string) (*domain.TimeEntryWithProject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return nil, ErrEntryNotFound
	}
	return &domain.TimeEntryWithProject{TimeEntry: e, Project: *m.projects[e.ProjectID]}, nil
}

func (m *mockRepository) UpdateEntry(_ context.Context, entry *domain.TimeEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[entry.ID]; !ok {
		return ErrEntryNotFound
	}
	entry.UpdatedAt = m.now()
	m.entries[entry.ID] = *entry
	return nil
}

func (m *mockRepository) DeleteEntry(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[id]; !ok {
		return ErrEntryNotFound
	}
	delete(m.entries, id)
	return nil
}

func (m *mockRepository) ListEntries(_ context.Context, filter EntryFilter) ([]domain.TimeEntryWithProject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]domain.TimeEntryWithProject, 0)
	for _, e := range m.entries {
		if filter.Matches(&e) {
			result = append(result, domain.TimeEntryWithProject{TimeEntry: e, Project: *m.projects[e.ProjectID]})
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.After(result[j].Date) })
	return result, nil
}

// put stores an entry as is, bypassing timestamps.
func (m *mockRepository) put(e domain.TimeEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[e.ID] = e
}

type mockProjects map[string]*domain.Project

func (m mockProjects) GetProject(_ context.Context, id string) (*domain.Project, error) {
	if p, ok := m[id]; ok {
		c := *p
		return &c, nil
	}
	return nil, directory.ErrProjectNotFound
}

type mockUsers map[string]*domain.User

func (m mockUsers) GetUser(_ context.Context, id string) (*domain.User, error) {
	if u, ok := m[id]; ok {
		c := *u
		return &c, nil
	}
	return nil, directory.ErrUserNotFound
}

// slowRepository widens the window between reading the day and writing.
type slowRepository struct {
	*mockRepository
}

func (s slowRepository) ListEntries(ctx context.Context, filter EntryFilter) ([]domain.TimeEntryWithProject, error) {
	time.Sleep(20 * time.Millisecond)
	return s.mockRepository.ListEntries(ctx, filter)
}

// gatedRepository holds the first UpdateEntry call until release is closed.
type gatedRepository struct {
	*mockRepository
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func newGatedRepository(m *mockRepository) *gatedRepository {
	return &gatedRepository{mockRepository: m, entered: make(chan struct{}), release: make(chan struct{})}
}

func (g *gatedRepository) UpdateEntry(ctx context.Context, entry *domain.TimeEntry) error {
	first := false
	g.once.Do(func() { first = true })
	if first {
		close(g.entered)
		<-g.release
	}
	return g.mockRepository.UpdateEntry(ctx, entry)
}

type fixture struct {
	svc  *Service
	repo *mockRepository
	now  time.Time
}

var (
	employee = domain.Actor{ID: "john", Role: domain.RoleEmployee}
	manager  = domain.Actor{ID: "jane", Role: domain.RoleManager}
	admin    = domain.Actor{ID: "root", Role: domain.RoleAdmin}
	day      = civil.Date{Year: 2024, Month: time.January, Day: 15}
)

func newFixture() *fixture {
	now := time.Date(2024, 1, 20, 9, 0, 0, 0, time.UTC)
	projects := mockProjects{
		"a": {ID: "a", Name: "Alpha", Status: domain.ProjectStatusActive},
		"b": {ID: "b", Name: "Beta", Status: domain.ProjectStatusActive},
		"c": {ID: "c", Name: "Critical", Status: domain.ProjectStatusActive, IsPriority: true},
		"z": {ID: "z", Name: "Zombie", Status: domain.ProjectStatusClosed},
	}
	users := mockUsers{
		"john": {ID: "john", Username: "john", Name: "John Doe", Role: domain.RoleEmployee},
		"jane": {ID: "jane", Username: "jane", Name: "Jane Smith", Role: domain.RoleManager},
	}

	repo := newMockRepository(projects, func() time.Time { return now })
	svc := NewService(repo, projects, users, daylock.NewLocal())
	svc.now = func() time.Time { return now }

	return &fixture{svc: svc, repo: repo, now: now}
}

func draft(projectID string, h float64) domain.TimeEntryDraft {
	return domain.TimeEntryDraft{UserID: "john", ProjectID: projectID, Date: day, Hours: hours(h)}
}

func TestService_CreateEntry_DailyCapScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	// Arrange
	_, err := f.svc.CreateEntry(ctx, draft("a", 4))
	require.NoError(t, err)

	// Act
	_, err = f.svc.CreateEntry(ctx, draft("b", 5))

	// Assert
	var limitErr *DailyLimitError
	require.ErrorAs(t, err, &limitErr)
	assert.Equal(t, "4.0", limitErr.CurrentTotal.String())
	assert.Equal(t, "9.0", limitErr.AttemptedTotal.String())

	created, err := f.svc.CreateEntry(ctx, draft("c", 5))
	require.NoError(t, err)
	assert.Equal(t, "Critical", created.Project.Name)

	rows, err := f.svc.ListEntries(ctx, ListQuery{UserID: "john", Date: &day})
	require.NoError(t, err)
	var total domain.Hours
	for _, r := range rows {
		total += r.Hours
	}
	assert.Equal(t, "9.0", total.String())
}

func TestService_CreateEntry_Errors(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	_, err := f.svc.CreateEntry(ctx, draft("z", 1))
	assert.ErrorIs(t, err, ErrProjectClosed)

	_, err = f.svc.CreateEntry(ctx, draft("missing", 1))
	assert.ErrorIs(t, err, directory.ErrProjectNotFound)

	d := draft("a", 1)
	d.UserID = "ghost"
	_, err = f.svc.CreateEntry(ctx, d)
	assert.ErrorIs(t, err, directory.ErrUserNotFound)

	rows, err := f.svc.ListEntries(ctx, ListQuery{ProjectID: "a"})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestService_CreateEntry_SerializesSameDay(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.svc.repo = slowRepository{f.repo}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.CreateEntry(ctx, draft("a", 5))
		}(i)
	}
	wg.Wait()

	accepted, rejected := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			accepted++
		case errors.Is(err, ErrDailyLimitExceeded):
			rejected++
		}
	}
	assert.Equal(t, 1, accepted)
	assert.Equal(t, 1, rejected)
}

func TestService_UpdateEntry_Policy(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		age     time.Duration
		actor   domain.Actor
		wantErr error
	}{
		{name: "manager inside window", age: 10 * time.Hour, actor: manager, wantErr: ErrForbidden},
		{name: "manager past window", age: 49 * time.Hour, actor: manager},
		{name: "owner inside window", age: time.Hour, actor: employee},
		{name: "admin inside window", age: time.Hour, actor: admin},
		{name: "other employee", age: 100 * time.Hour, actor: domain.Actor{ID: "peer", Role: domain.RoleEmployee}, wantErr: ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.repo.put(domain.TimeEntry{
				ID: "e1", UserID: "john", ProjectID: "a", Date: day, Hours: hours(4),
				UpdatedAt: f.now.Add(-tt.age),
			})

			desc := "reviewed"
			updated, err := f.svc.UpdateEntry(ctx, "e1", EntryChange{Description: &desc}, tt.actor)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "reviewed", *updated.Description)
			assert.Equal(t, f.now, updated.UpdatedAt)
		})
	}
}

func TestService_UpdateEntry_Revalidates(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.repo.put(domain.TimeEntry{ID: "e1", UserID: "john", ProjectID: "a", Date: day, Hours: hours(6), UpdatedAt: f.now})
	f.repo.put(domain.TimeEntry{ID: "e2", UserID: "john", ProjectID: "b", Date: day, Hours: hours(2), UpdatedAt: f.now})

	more := hours(7)
	_, err := f.svc.UpdateEntry(ctx, "e1", EntryChange{Hours: &more}, employee)
	var limitErr *DailyLimitError
	require.ErrorAs(t, err, &limitErr)
	assert.Equal(t, hours(2), limitErr.CurrentTotal)
	assert.Equal(t, hours(9), limitErr.AttemptedTotal)

	less := hours(3)
	updated, err := f.svc.UpdateEntry(ctx, "e1", EntryChange{Hours: &less}, employee)
	require.NoError(t, err)
	assert.Equal(t, hours(3), updated.Hours)

	closed := "z"
	_, err = f.svc.UpdateEntry(ctx, "e1", EntryChange{ProjectID: &closed}, employee)
	assert.ErrorIs(t, err, ErrProjectClosed)

	priority := "c"
	big := hours(12)
	moved, err := f.svc.UpdateEntry(ctx, "e1", EntryChange{ProjectID: &priority, Hours: &big}, employee)
	require.NoError(t, err)
	assert.Equal(t, "Critical", moved.Project.Name)

	_, err = f.svc.UpdateEntry(ctx, "nope", EntryChange{}, admin)
	assert.ErrorIs(t, err, ErrEntryNotFound)
}

func TestService_UpdateEntry_DescriptionEditHoldsDayLock(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	gated := newGatedRepository(f.repo)
	f.svc.repo = gated
	f.repo.put(domain.TimeEntry{ID: "e1", UserID: "john", ProjectID: "a", Date: day, Hours: hours(6), UpdatedAt: f.now})

	descErr := make(chan error, 1)
	go func() {
		desc := "reviewed"
		_, err := f.svc.UpdateEntry(ctx, "e1", EntryChange{Description: &desc}, employee)
		descErr <- err
	}()
	<-gated.entered

	lowerErr := make(chan error, 1)
	go func() {
		less := hours(2)
		_, err := f.svc.UpdateEntry(ctx, "e1", EntryChange{Hours: &less}, employee)
		lowerErr <- err
	}()

	select {
	case err := <-lowerErr:
		t.Fatalf("hours update finished while the day was locked: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(gated.release)
	require.NoError(t, <-descErr)
	require.NoError(t, <-lowerErr)

	_, err := f.svc.CreateEntry(ctx, draft("b", 6))
	require.NoError(t, err)

	entry, err := f.svc.GetEntry(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, hours(2), entry.Hours)
	require.NotNil(t, entry.Description)
	assert.Equal(t, "reviewed", *entry.Description)

	rows, err := f.svc.ListEntries(ctx, ListQuery{UserID: "john", Date: &day})
	require.NoError(t, err)
	var total domain.Hours
	for _, r := range rows {
		total += r.Hours
	}
	assert.Equal(t, "8.0", total.String())
}

func TestService_UpdateEntry_MovesBetweenDays(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	next := day.AddDays(1)
	f.repo.put(domain.TimeEntry{ID: "e1", UserID: "john", ProjectID: "a", Date: day, Hours: hours(4), UpdatedAt: f.now})
	f.repo.put(domain.TimeEntry{ID: "e2", UserID: "john", ProjectID: "b", Date: next, Hours: hours(5), UpdatedAt: f.now})

	_, err := f.svc.UpdateEntry(ctx, "e1", EntryChange{Date: &next}, employee)
	assert.ErrorIs(t, err, ErrDailyLimitExceeded)

	less := hours(3)
	moved, err := f.svc.UpdateEntry(ctx, "e1", EntryChange{Date: &next, Hours: &less}, employee)
	require.NoError(t, err)
	assert.Equal(t, next, moved.Date)

	// Both day locks were released.
	_, err = f.svc.CreateEntry(ctx, draft("a", 8))
	require.NoError(t, err)
}

func TestService_UpdateEntry_ClearsDescription(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	desc := "standup"
	f.repo.put(domain.TimeEntry{ID: "e1", UserID: "john", ProjectID: "a", Date: day, Hours: hours(1), Description: &desc, UpdatedAt: f.now})

	empty := ""
	updated, err := f.svc.UpdateEntry(ctx, "e1", EntryChange{Description: &empty}, employee)

	require.NoError(t, err)
	assert.Nil(t, updated.Description)
	assert.Equal(t, hours(1), updated.Hours)
}

func TestService_DeleteEntry_EnforcesPolicy(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.repo.put(domain.TimeEntry{ID: "e1", UserID: "john", ProjectID: "a", Date: day, Hours: hours(4), UpdatedAt: f.now.Add(-time.Hour)})

	err := f.svc.DeleteEntry(ctx, "e1", domain.Actor{ID: "peer", Role: domain.RoleEmployee})
	assert.ErrorIs(t, err, ErrForbidden)

	err = f.svc.DeleteEntry(ctx, "e1", manager)
	assert.ErrorIs(t, err, ErrForbidden)

	require.NoError(t, f.svc.DeleteEntry(ctx, "e1", employee))

	_, err = f.svc.GetEntry(ctx, "e1")
	assert.ErrorIs(t, err, ErrEntryNotFound)

	assert.ErrorIs(t, f.svc.DeleteEntry(ctx, "e1", admin), ErrEntryNotFound)
}

func TestService_ListEntries_Queries(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	put := func(id, user, project, d string) {
		parsed, err := civil.ParseDate(d)
		require.NoError(t, err)
		f.repo.put(domain.TimeEntry{ID: id, UserID: user, ProjectID: project, Date: parsed, Hours: hours(1)})
	}
	put("1", "john", "a", "2024-01-15")
	put("2", "john", "b", "2024-01-17")
	put("3", "john", "a", "2024-01-22")
	put("4", "john", "a", "2024-02-01")
	put("5", "jane", "a", "2024-01-15")

	ids := func(rows []domain.TimeEntryWithProject) []string {
		out := make([]string, 0, len(rows))
		for _, r := range rows {
			out = append(out, r.ID)
		}
		return out
	}

	tests := []struct {
		name  string
		query ListQuery
		want  []string
	}{
		{"user and date", ListQuery{UserID: "john", Date: &day}, []string{"1"}},
		{"user and week", ListQuery{UserID: "john", WeekStart: &day}, []string{"2", "1"}},
		{"user and month", ListQuery{UserID: "john", Month: time.January, Year: 2024}, []string{"3", "2", "1"}},
		{"month without year falls back to user", ListQuery{UserID: "john", Month: time.January}, []string{"4", "3", "2", "1"}},
		{"project", ListQuery{ProjectID: "b"}, []string{"2"}},
		{"user wins over project", ListQuery{UserID: "jane", ProjectID: "b"}, []string{"5"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := f.svc.ListEntries(ctx, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(rows))
		})
	}

	_, err := f.svc.ListEntries(ctx, ListQuery{})
	assert.ErrorIs(t, err, ErrFilterRequired)
}
