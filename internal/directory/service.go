// Package directory manages users, projects and project assignments.
package directory

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/civil"

	"github.com/bissquit/timesheet/internal/domain"
)

// Service implements directory business logic.
type Service struct {
	repo Repository
}

// NewService creates a new directory service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateUserInput holds data for creating a user.
type CreateUserInput struct {
	Username string
	Name     string
	Role     domain.Role
}

// CreateProjectInput holds data for creating a project.
type CreateProjectInput struct {
	Name        string
	Description *string
	StartDate   civil.Date
	EndDate     civil.Date
	Status      domain.ProjectStatus
	IsPriority  bool
	ManagerID   *string
}

// ProjectChange holds a partial project update. Nil fields are left unchanged;
// an empty Description or ManagerID clears it.
type ProjectChange struct {
	Name        *string
	Description *string
	StartDate   *civil.Date
	EndDate     *civil.Date
	Status      *domain.ProjectStatus
	IsPriority  *bool
	ManagerID   *string
}

// AssignmentWithUser is a project assignment joined with its user.
type AssignmentWithUser struct {
	domain.ProjectAssignment
	User domain.User `json:"user"`
}

// CreateUser creates a user with a unique username.
func (s *Service) CreateUser(ctx context.Context, input CreateUserInput) (*domain.User, error) {
	if !input.Role.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRole, input.Role)
	}

	_, err := s.repo.GetUserByUsername(ctx, input.Username)
	switch {
	case err == nil:
		return nil, ErrUsernameExists
	case !errors.Is(err, ErrUserNotFound):
		return nil, fmt.Errorf("check username: %w", err)
	}

	user := &domain.User{
		Username: input.Username,
		Name:     input.Name,
		Role:     input.Role,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// GetUser retrieves a user by ID.
func (s *Service) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return s.repo.GetUser(ctx, id)
}

// ListUsers retrieves all users.
func (s *Service) ListUsers(ctx context.Context) ([]domain.User, error) {
	return s.repo.ListUsers(ctx)
}

// CreateProject validates and creates a project.
func (s *Service) CreateProject(ctx context.Context, input CreateProjectInput) (*domain.Project, error) {
	project := &domain.Project{
		Name:        input.Name,
		Description: input.Description,
		StartDate:   input.StartDate,
		EndDate:     input.EndDate,
		Status:      input.Status,
		IsPriority:  input.IsPriority,
		ManagerID:   input.ManagerID,
	}

	if err := s.validateProject(ctx, project); err != nil {
		return nil, err
	}

	if err := s.repo.CreateProject(ctx, project); err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	return project, nil
}

// GetProject retrieves a project by ID.
func (s *Service) GetProject(ctx context.Context, id string) (*domain.Project, error) {
	return s.repo.GetProject(ctx, id)
}

// ListProjects retrieves projects matching the filter.
func (s *Service) ListProjects(ctx context.Context, filter ProjectFilter) ([]domain.Project, error) {
	return s.repo.ListProjects(ctx, filter)
}

// ListProjectsForManager retrieves projects managed by the given user.
func (s *Service) ListProjectsForManager(ctx context.Context, managerID string) ([]domain.Project, error) {
	return s.repo.ListProjects(ctx, ProjectFilter{ManagerID: &managerID})
}

// UpdateProject applies a partial update to a project.
func (s *Service) UpdateProject(ctx context.Context, id string, change ProjectChange) (*domain.Project, error) {
	project, err := s.repo.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}

	if change.Name != nil {
		project.Name = *change.Name
	}
	if change.Description != nil {
		project.Description = emptyToNil(change.Description)
	}
	if change.StartDate != nil {
		project.StartDate = *change.StartDate
	}
	if change.EndDate != nil {
		project.EndDate = *change.EndDate
	}
	if change.Status != nil {
		project.Status = *change.Status
	}
	if change.IsPriority != nil {
		project.IsPriority = *change.IsPriority
	}
	if change.ManagerID != nil {
		project.ManagerID = emptyToNil(change.ManagerID)
	}

	if err := s.validateProject(ctx, project); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateProject(ctx, project); err != nil {
		return nil, fmt.Errorf("update project: %w", err)
	}
	return project, nil
}

// AssignUser links a user to a project.
func (s *Service) AssignUser(ctx context.Context, userID, projectID string) (*domain.ProjectAssignment, error) {
	if _, err := s.repo.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetProject(ctx, projectID); err != nil {
		return nil, err
	}

	existing, err := s.repo.ListAssignmentsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list user assignments: %w", err)
	}
	for _, a := range existing {
		if a.ProjectID == projectID {
			return nil, ErrAssignmentExists
		}
	}

	assignment := &domain.ProjectAssignment{UserID: userID, ProjectID: projectID}
	if err := s.repo.CreateAssignment(ctx, assignment); err != nil {
		return nil, fmt.Errorf("create assignment: %w", err)
	}
	return assignment, nil
}

// RemoveAssignment unlinks a user from a project.
func (s *Service) RemoveAssignment(ctx context.Context, userID, projectID string) error {
	return s.repo.DeleteAssignment(ctx, userID, projectID)
}

// ListProjectAssignments returns a project's assignments with their users.
func (s *Service) ListProjectAssignments(ctx context.Context, projectID string) ([]AssignmentWithUser, error) {
	if _, err := s.repo.GetProject(ctx, projectID); err != nil {
		return nil, err
	}

	assignments, err := s.repo.ListAssignmentsForProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("list project assignments: %w", err)
	}

	result := make([]AssignmentWithUser, 0, len(assignments))
	for _, a := range assignments {
		user, err := s.repo.GetUser(ctx, a.UserID)
		if err != nil {
			return nil, fmt.Errorf("get assigned user %s: %w", a.UserID, err)
		}
		result = append(result, AssignmentWithUser{ProjectAssignment: a, User: *user})
	}
	return result, nil
}

// emptyToNil maps an explicit empty string to a cleared field.
func emptyToNil(v *string) *string {
	if *v == "" {
		return nil
	}
	return v
}

func (s *Service) validateProject(ctx context.Context, project *domain.Project) error {
	if !project.Status.IsValid() {
		return fmt.Errorf("%w: %s", ErrInvalidStatus, project.Status)
	}

	if project.EndDate.Before(project.StartDate) {
		return ErrInvalidDateRange
	}

	if project.ManagerID != nil {
		if _, err := s.repo.GetUser(ctx, *project.ManagerID); err != nil {
			if errors.Is(err, ErrUserNotFound) {
				return ErrManagerNotFound
			}
			return fmt.Errorf("get manager: %w", err)
		}
	}

	return nil
}
