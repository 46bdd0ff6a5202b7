// Package postgres provides PostgreSQL implementation of the timesheet repository.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bissquit/timesheet/internal/domain"
	"github.com/bissquit/timesheet/internal/timesheet"
)

// Hours are stored as NUMERIC(4,1) and exchanged with the database in tenths.
const entryColumns = `
	e.id, e.user_id, e.project_id, e.date, (e.hours * 10)::bigint, e.description, e.created_at, e.updated_at,
	p.id, p.name, p.description, p.start_date, p.end_date, p.status, p.is_priority, p.manager_id`

// Repository implements the timesheet.Repository interface using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// CreateEntry creates a new time entry.
func (r *Repository) CreateEntry(ctx context.Context, entry *domain.TimeEntry) error {
	query := `
		INSERT INTO time_entries (user_id, project_id, date, hours, description)
		VALUES ($1, $2, $3, $4::numeric / 10, $5)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		entry.UserID,
		entry.ProjectID,
		entry.Date.In(time.UTC),
		entry.Hours.Tenths(),
		entry.Description,
	).Scan(&entry.ID, &entry.CreatedAt, &entry.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create time entry: %w", err)
	}
	return nil
}

// GetEntry retrieves a time entry with its project.
func (r *Repository) GetEntry(ctx context.Context, id string) (*domain.TimeEntryWithProject, error) {
	if uuid.Validate(id) != nil {
		return nil, timesheet.ErrEntryNotFound
	}

	query := `SELECT ` + entryColumns + `
		FROM time_entries e
		JOIN projects p ON p.id = e.project_id
		WHERE e.id = $1`

	entry, err := scanEntry(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, timesheet.ErrEntryNotFound
		}
		return nil, fmt.Errorf("get time entry: %w", err)
	}
	return entry, nil
}

// UpdateEntry replaces the mutable fields of an entry and refreshes updated_at.
func (r *Repository) UpdateEntry(ctx context.Context, entry *domain.TimeEntry) error {
	query := `
		UPDATE time_entries
		SET project_id = $2, date = $3, hours = $4::numeric / 10, description = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.db.QueryRow(ctx, query,
		entry.ID,
		entry.ProjectID,
		entry.Date.In(time.UTC),
		entry.Hours.Tenths(),
		entry.Description,
	).Scan(&entry.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return timesheet.ErrEntryNotFound
		}
		return fmt.Errorf("update time entry: %w", err)
	}
	return nil
}

// DeleteEntry removes a time entry.
func (r *Repository) DeleteEntry(ctx context.Context, id string) error {
	if uuid.Validate(id) != nil {
		return timesheet.ErrEntryNotFound
	}

	tag, err := r.db.Exec(ctx, `DELETE FROM time_entries WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete time entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return timesheet.ErrEntryNotFound
	}
	return nil
}

// ListEntries retrieves entries matching the filter, newest date first.
func (r *Repository) ListEntries(ctx context.Context, filter timesheet.EntryFilter) ([]domain.TimeEntryWithProject, error) {
	var (
		conditions []string
		args       []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.UserID != nil {
		if uuid.Validate(*filter.UserID) != nil {
			return []domain.TimeEntryWithProject{}, nil
		}
		conditions = append(conditions, "e.user_id = "+arg(*filter.UserID))
	}
	if filter.ProjectIDs != nil {
		ids := validIDs(filter.ProjectIDs)
		if len(ids) == 0 {
			return []domain.TimeEntryWithProject{}, nil
		}
		conditions = append(conditions, "e.project_id = ANY("+arg(ids)+"::uuid[])")
	}
	if filter.From != nil {
		conditions = append(conditions, "e.date >= "+arg(filter.From.In(time.UTC)))
	}
	if filter.To != nil {
		conditions = append(conditions, "e.date <= "+arg(filter.To.In(time.UTC)))
	}

	query := `SELECT ` + entryColumns + `
		FROM time_entries e
		JOIN projects p ON p.id = e.project_id`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY e.date DESC, e.created_at DESC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list time entries: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.TimeEntryWithProject, 0)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan time entry: %w", err)
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate time entries: %w", err)
	}
	return entries, nil
}

func scanEntry(row pgx.Row) (*domain.TimeEntryWithProject, error) {
	var (
		e                domain.TimeEntryWithProject
		date, start, end time.Time
		tenths           int64
	)
	err := row.Scan(
		&e.ID,
		&e.UserID,
		&e.ProjectID,
		&date,
		&tenths,
		&e.Description,
		&e.CreatedAt,
		&e.UpdatedAt,
		&e.Project.ID,
		&e.Project.Name,
		&e.Project.Description,
		&start,
		&end,
		&e.Project.Status,
		&e.Project.IsPriority,
		&e.Project.ManagerID,
	)
	if err != nil {
		return nil, err
	}
	e.Date = civil.DateOf(date)
	e.Hours = domain.Hours(tenths)
	e.Project.StartDate = civil.DateOf(start)
	e.Project.EndDate = civil.DateOf(end)
	return &e, nil
}

// validIDs drops strings that cannot match a UUID column.
func validIDs(ids []string) []string {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if uuid.Validate(id) == nil {
			valid = append(valid, id)
		}
	}
	return valid
}
