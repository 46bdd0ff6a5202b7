// Package postgres provides PostgreSQL implementation of the directory repository.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bissquit/timesheet/internal/directory"
	"github.com/bissquit/timesheet/internal/domain"
)

const uniqueViolation = "23505"

// Repository implements the directory.Repository interface using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// CreateUser creates a new user.
func (r *Repository) CreateUser(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (username, name, role)
		VALUES ($1, $2, $3)
		RETURNING id
	`
	err := r.db.QueryRow(ctx, query, user.Username, user.Name, user.Role).Scan(&user.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return directory.ErrUsernameExists
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// GetUser retrieves a user by ID.
func (r *Repository) GetUser(ctx context.Context, id string) (*domain.User, error) {
	if uuid.Validate(id) != nil {
		return nil, directory.ErrUserNotFound
	}

	query := `SELECT id, username, name, role FROM users WHERE id = $1`
	user, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, directory.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// GetUserByUsername retrieves a user by username.
func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	query := `SELECT id, username, name, role FROM users WHERE username = $1`
	user, err := scanUser(r.db.QueryRow(ctx, query, username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, directory.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by username: %w", err)
	}
	return user, nil
}

// ListUsers retrieves all users ordered by name.
func (r *Repository) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := r.db.Query(ctx, `SELECT id, username, name, role FROM users ORDER BY name, username`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]domain.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

// CreateProject creates a new project.
func (r *Repository) CreateProject(ctx context.Context, project *domain.Project) error {
	query := `
		INSERT INTO projects (name, description, start_date, end_date, status, is_priority, manager_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	err := r.db.QueryRow(ctx, query,
		project.Name,
		project.Description,
		toTime(project.StartDate),
		toTime(project.EndDate),
		project.Status,
		project.IsPriority,
		project.ManagerID,
	).Scan(&project.ID)
	if err != nil {
		return fmt.Errorf("create project: %w", err)
	}
	return nil
}

const projectColumns = `p.id, p.name, p.description, p.start_date, p.end_date, p.status, p.is_priority, p.manager_id`

// GetProject retrieves a project by ID.
func (r *Repository) GetProject(ctx context.Context, id string) (*domain.Project, error) {
	if uuid.Validate(id) != nil {
		return nil, directory.ErrProjectNotFound
	}

	query := `SELECT ` + projectColumns + ` FROM projects p WHERE p.id = $1`
	project, err := scanProject(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, directory.ErrProjectNotFound
		}
		return nil, fmt.Errorf("get project: %w", err)
	}
	return project, nil
}

// ListProjects retrieves projects ordered by name.
func (r *Repository) ListProjects(ctx context.Context, filter directory.ProjectFilter) ([]domain.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects p`
	var args []interface{}

	switch {
	case filter.AssignedUserID != nil:
		if uuid.Validate(*filter.AssignedUserID) != nil {
			return []domain.Project{}, nil
		}
		query += ` JOIN project_assignments pa ON pa.project_id = p.id WHERE pa.user_id = $1`
		args = append(args, *filter.AssignedUserID)
	case filter.ManagerID != nil:
		if uuid.Validate(*filter.ManagerID) != nil {
			return []domain.Project{}, nil
		}
		query += ` WHERE p.manager_id = $1`
		args = append(args, *filter.ManagerID)
	}
	query += ` ORDER BY p.name, p.id`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	projects := make([]domain.Project, 0)
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, *project)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}
	return projects, nil
}

// UpdateProject replaces all mutable project fields.
func (r *Repository) UpdateProject(ctx context.Context, project *domain.Project) error {
	query := `
		UPDATE projects
		SET name = $2, description = $3, start_date = $4, end_date = $5,
		    status = $6, is_priority = $7, manager_id = $8
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query,
		project.ID,
		project.Name,
		project.Description,
		toTime(project.StartDate),
		toTime(project.EndDate),
		project.Status,
		project.IsPriority,
		project.ManagerID,
	)
	if err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return directory.ErrProjectNotFound
	}
	return nil
}

// CreateAssignment links a user to a project.
func (r *Repository) CreateAssignment(ctx context.Context, assignment *domain.ProjectAssignment) error {
	query := `
		INSERT INTO project_assignments (user_id, project_id)
		VALUES ($1, $2)
		RETURNING id
	`
	err := r.db.QueryRow(ctx, query, assignment.UserID, assignment.ProjectID).Scan(&assignment.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return directory.ErrAssignmentExists
		}
		return fmt.Errorf("create assignment: %w", err)
	}
	return nil
}

// ListAssignmentsForUser retrieves the assignments of a user.
func (r *Repository) ListAssignmentsForUser(ctx context.Context, userID string) ([]domain.ProjectAssignment, error) {
	if uuid.Validate(userID) != nil {
		return []domain.ProjectAssignment{}, nil
	}
	return r.listAssignments(ctx, `SELECT id, user_id, project_id FROM project_assignments WHERE user_id = $1 ORDER BY id`, userID)
}

// ListAssignmentsForProject retrieves the assignments of a project.
func (r *Repository) ListAssignmentsForProject(ctx context.Context, projectID string) ([]domain.ProjectAssignment, error) {
	if uuid.Validate(projectID) != nil {
		return []domain.ProjectAssignment{}, nil
	}
	return r.listAssignments(ctx, `SELECT id, user_id, project_id FROM project_assignments WHERE project_id = $1 ORDER BY id`, projectID)
}

// DeleteAssignment unlinks a user from a project.
func (r *Repository) DeleteAssignment(ctx context.Context, userID, projectID string) error {
	if uuid.Validate(userID) != nil || uuid.Validate(projectID) != nil {
		return directory.ErrAssignmentNotFound
	}

	tag, err := r.db.Exec(ctx,
		`DELETE FROM project_assignments WHERE user_id = $1 AND project_id = $2`,
		userID, projectID,
	)
	if err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return directory.ErrAssignmentNotFound
	}
	return nil
}

func (r *Repository) listAssignments(ctx context.Context, query string, arg string) ([]domain.ProjectAssignment, error) {
	rows, err := r.db.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	defer rows.Close()

	assignments := make([]domain.ProjectAssignment, 0)
	for rows.Next() {
		var a domain.ProjectAssignment
		if err := rows.Scan(&a.ID, &a.UserID, &a.ProjectID); err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		assignments = append(assignments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assignments: %w", err)
	}
	return assignments, nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(&user.ID, &user.Username, &user.Name, &user.Role); err != nil {
		return nil, err
	}
	return &user, nil
}

func scanProject(row pgx.Row) (*domain.Project, error) {
	var (
		project    domain.Project
		start, end time.Time
	)
	err := row.Scan(
		&project.ID,
		&project.Name,
		&project.Description,
		&start,
		&end,
		&project.Status,
		&project.IsPriority,
		&project.ManagerID,
	)
	if err != nil {
		return nil, err
	}
	project.StartDate = civil.DateOf(start)
	project.EndDate = civil.DateOf(end)
	return &project, nil
}

func toTime(d civil.Date) time.Time {
	return d.In(time.UTC)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
