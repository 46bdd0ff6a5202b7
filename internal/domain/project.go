package domain

import "cloud.google.com/go/civil"

// ProjectStatus represents the lifecycle state of a project.
type ProjectStatus string

// Project statuses.
const (
	ProjectStatusActive  ProjectStatus = "active"
	ProjectStatusPending ProjectStatus = "pending"
	ProjectStatusClosed  ProjectStatus = "closed"
)

// IsValid checks if the project status is valid.
func (s ProjectStatus) IsValid() bool {
	switch s {
	case ProjectStatusActive, ProjectStatusPending, ProjectStatusClosed:
		return true
	}
	return false
}

// Project represents something time is logged against.
type Project struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description *string       `json:"description"`
	StartDate   civil.Date    `json:"start_date"`
	EndDate     civil.Date    `json:"end_date"`
	Status      ProjectStatus `json:"status"`
	IsPriority  bool          `json:"is_priority"`
	ManagerID   *string       `json:"manager_id"`
}

// IsClosed returns true if no new time may be logged against the project.
func (p *Project) IsClosed() bool {
	return p.Status == ProjectStatusClosed
}

// IsManagedBy reports whether the given user manages the project.
func (p *Project) IsManagedBy(userID string) bool {
	return p.ManagerID != nil && *p.ManagerID == userID
}

// ProjectAssignment links a user to a project.
type ProjectAssignment struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	ProjectID string `json:"project_id"`
}
