package directory

import (
	"context"
	"fmt"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bissquit/timesheet/internal/domain"
)

// mockRepository implements Repository for testing.
type mockRepository struct {
	users       map[string]*domain.User
	projects    map[string]*domain.Project
	assignments []domain.ProjectAssignment
	nextID      int
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		users:    make(map[string]*domain.User),
		projects: make(map[string]*domain.Project),
	}
}

func (m *mockRepository) id() string {
	m.nextID++
	return fmt.Sprintf("id-%d", m.nextID)
}

func (m *mockRepository) CreateUser(_ context.Context, user *domain.User) error {
	user.ID = m.id()
	u := *user
	m.users[user.ID] = &u
	return nil
}

func (m *mockRepository) GetUser(_ context.Context, id string) (*domain.User, error) {
	if u, ok := m.users[id]; ok {
		c := *u
		return &c, nil
	}
	return nil, ErrUserNotFound
}

func (m *mockRepository) GetUserByUsername(_ context.Context, username string) (*domain.User, error) {
	for _, u := range m.users {
		if u.Username == username {
			c := *u
			return &c, nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *mockRepository) ListUsers(_ context.Context) ([]domain.User, error) {
	users := make([]domain.User, 0, len(m.users))
	for _, u := range m.users {
		users = append(users, *u)
	}
	return users, nil
}

func (m *mockRepository) CreateProject(_ context.Context, project *domain.Project) error {
	project.ID = m.id()
	p := *project
	m.projects[project.ID] = &p
	return nil
}

func (m *mockRepository) GetProject(_ context.Context, id string) (*domain.Project, error) {
	if p, ok := m.projects[id]; ok {
		c := *p
		return &c, nil
	}
	return nil, ErrProjectNotFound
}

func (m *mockRepository) ListProjects(_ context.Context, filter ProjectFilter) ([]domain.Project, error) {
	projects := make([]domain.Project, 0)
	for _, p := range m.projects {
		if filter.ManagerID != nil && !p.IsManagedBy(*filter.ManagerID) {
			continue
		}
		projects = append(projects, *p)
	}
	return projects, nil
}

func (m *mockRepository) UpdateProject(_ context.Context, project *domain.Project) error {
	if _, ok := m.projects[project.ID]; !ok {
		return ErrProjectNotFound
	}
	p := *project
	m.projects[project.ID] = &p
	return nil
}

func (m *mockRepository) CreateAssignment(_ context.Context, assignment *domain.ProjectAssignment) error {
	assignment.ID = m.id()
	m.assignments = append(m.assignments, *assignment)
	return nil
}

func (m *mockRepository) ListAssignmentsForUser(_ context.Context, userID string) ([]domain.ProjectAssignment, error) {
	var result []domain.ProjectAssignment
	for _, a := range m.assignments {
		if a.UserID == userID {
			result = append(result, a)
		}
	}
	return result, nil
}

func (m *mockRepository) ListAssignmentsForProject(_ context.Context, projectID string) ([]domain.ProjectAssignment, error) {
	var result []domain.ProjectAssignment
	for _, a := range m.assignments {
		if a.ProjectID == projectID {
			result = append(result, a)
		}
	}
	return result, nil
}

func (m *mockRepository) DeleteAssignment(_ context.Context, userID, projectID string) error {
	for i, a := range m.assignments {
		if a.UserID == userID && a.ProjectID == projectID {
			m.assignments = append(m.assignments[:i], m.assignments[i+1:]...)
			return nil
		}
	}
	return ErrAssignmentNotFound
}

func date(s string) civil.Date {
	d, err := civil.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestService_CreateUser(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMockRepository())

	user, err := svc.CreateUser(ctx, CreateUserInput{Username: "jdoe", Name: "John Doe", Role: domain.RoleEmployee})
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)

	_, err = svc.CreateUser(ctx, CreateUserInput{Username: "jdoe", Name: "Other", Role: domain.RoleEmployee})
	assert.ErrorIs(t, err, ErrUsernameExists)

	_, err = svc.CreateUser(ctx, CreateUserInput{Username: "x", Name: "X", Role: "root"})
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestService_CreateProject_Validation(t *testing.T) {
	ctx := context.Background()
	repo := newMockRepository()
	svc := NewService(repo)

	manager, err := svc.CreateUser(ctx, CreateUserInput{Username: "jane", Name: "Jane Smith", Role: domain.RoleManager})
	require.NoError(t, err)
	missing := "missing"

	tests := []struct {
		name    string
		input   CreateProjectInput
		wantErr error
	}{
		{
			name: "valid",
			input: CreateProjectInput{
				Name: "Website", StartDate: date("2024-01-01"), EndDate: date("2024-12-31"),
				Status: domain.ProjectStatusActive, ManagerID: &manager.ID,
			},
		},
		{
			name: "single day project",
			input: CreateProjectInput{
				Name: "Hackday", StartDate: date("2024-05-05"), EndDate: date("2024-05-05"),
				Status: domain.ProjectStatusPending,
			},
		},
		{
			name: "end before start",
			input: CreateProjectInput{
				Name: "Bad", StartDate: date("2024-02-01"), EndDate: date("2024-01-31"),
				Status: domain.ProjectStatusActive,
			},
			wantErr: ErrInvalidDateRange,
		},
		{
			name: "unknown manager",
			input: CreateProjectInput{
				Name: "Orphan", StartDate: date("2024-01-01"), EndDate: date("2024-01-31"),
				Status: domain.ProjectStatusActive, ManagerID: &missing,
			},
			wantErr: ErrManagerNotFound,
		},
		{
			name: "invalid status",
			input: CreateProjectInput{
				Name: "Weird", StartDate: date("2024-01-01"), EndDate: date("2024-01-31"),
				Status: "archived",
			},
			wantErr: ErrInvalidStatus,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			project, err := svc.CreateProject(ctx, tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, project.ID)
		})
	}
}

func TestService_UpdateProject_Partial(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMockRepository())

	desc := "original"
	project, err := svc.CreateProject(ctx, CreateProjectInput{
		Name: "Mobile App", Description: &desc, StartDate: date("2024-01-01"), EndDate: date("2024-06-30"),
		Status: domain.ProjectStatusPending,
	})
	require.NoError(t, err)

	// Act
	closed := domain.ProjectStatusClosed
	priority := true
	updated, err := svc.UpdateProject(ctx, project.ID, ProjectChange{Status: &closed, IsPriority: &priority})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "Mobile App", updated.Name)
	assert.Equal(t, "original", *updated.Description)
	assert.Equal(t, domain.ProjectStatusClosed, updated.Status)
	assert.True(t, updated.IsPriority)

	stored, err := svc.GetProject(ctx, project.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsClosed())
}

func TestService_UpdateProject_ClearsOptionalFields(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMockRepository())

	manager, err := svc.CreateUser(ctx, CreateUserInput{Username: "jane", Name: "Jane Smith", Role: domain.RoleManager})
	require.NoError(t, err)

	desc := "original"
	project, err := svc.CreateProject(ctx, CreateProjectInput{
		Name: "Mobile App", Description: &desc, StartDate: date("2024-01-01"), EndDate: date("2024-06-30"),
		Status: domain.ProjectStatusActive, ManagerID: &manager.ID,
	})
	require.NoError(t, err)

	empty := ""
	updated, err := svc.UpdateProject(ctx, project.ID, ProjectChange{Description: &empty, ManagerID: &empty})

	require.NoError(t, err)
	assert.Nil(t, updated.Description)
	assert.Nil(t, updated.ManagerID)
}

func TestService_UpdateProject_RejectsInvalidRange(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMockRepository())

	project, err := svc.CreateProject(ctx, CreateProjectInput{
		Name: "Migration", StartDate: date("2024-03-01"), EndDate: date("2024-03-31"),
		Status: domain.ProjectStatusActive,
	})
	require.NoError(t, err)

	end := date("2024-02-01")
	_, err = svc.UpdateProject(ctx, project.ID, ProjectChange{EndDate: &end})
	assert.ErrorIs(t, err, ErrInvalidDateRange)

	_, err = svc.UpdateProject(ctx, "nope", ProjectChange{})
	assert.ErrorIs(t, err, ErrProjectNotFound)
}

func TestService_Assignments(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMockRepository())

	user, err := svc.CreateUser(ctx, CreateUserInput{Username: "jdoe", Name: "John Doe", Role: domain.RoleEmployee})
	require.NoError(t, err)
	project, err := svc.CreateProject(ctx, CreateProjectInput{
		Name: "Website", StartDate: date("2024-01-01"), EndDate: date("2024-12-31"),
		Status: domain.ProjectStatusActive,
	})
	require.NoError(t, err)

	_, err = svc.AssignUser(ctx, user.ID, project.ID)
	require.NoError(t, err)

	_, err = svc.AssignUser(ctx, user.ID, project.ID)
	assert.ErrorIs(t, err, ErrAssignmentExists)

	_, err = svc.AssignUser(ctx, "ghost", project.ID)
	assert.ErrorIs(t, err, ErrUserNotFound)

	assigned, err := svc.ListProjectAssignments(ctx, project.ID)
	require.NoError(t, err)
	require.Len(t, assigned, 1)
	assert.Equal(t, "John Doe", assigned[0].User.Name)

	require.NoError(t, svc.RemoveAssignment(ctx, user.ID, project.ID))
	assert.ErrorIs(t, svc.RemoveAssignment(ctx, user.ID, project.ID), ErrAssignmentNotFound)
}
