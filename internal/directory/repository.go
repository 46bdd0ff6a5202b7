package directory

import (
	"context"

	"github.com/bissquit/timesheet/internal/domain"
)

// Repository defines the interface for users, projects and assignments storage.
type Repository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUser(ctx context.Context, id string) (*domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)

	CreateProject(ctx context.Context, project *domain.Project) error
	GetProject(ctx context.Context, id string) (*domain.Project, error)
	ListProjects(ctx context.Context, filter ProjectFilter) ([]domain.Project, error)
	UpdateProject(ctx context.Context, project *domain.Project) error

	CreateAssignment(ctx context.Context, assignment *domain.ProjectAssignment) error
	ListAssignmentsForUser(ctx context.Context, userID string) ([]domain.ProjectAssignment, error)
	ListAssignmentsForProject(ctx context.Context, projectID string) ([]domain.ProjectAssignment, error)
	DeleteAssignment(ctx context.Context, userID, projectID string) error
}

// ProjectFilter represents filter criteria for listing projects.
// At most one of the fields is expected to be set.
type ProjectFilter struct {
	// AssignedUserID restricts to projects the user is assigned to.
	AssignedUserID *string
	// ManagerID restricts to projects managed by the user.
	ManagerID *string
}
