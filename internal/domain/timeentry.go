package domain

import (
	"time"

	"cloud.google.com/go/civil"
)

// TimeEntry represents hours a user logged against a project on a calendar date.
type TimeEntry struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	ProjectID   string     `json:"project_id"`
	Date        civil.Date `json:"date"`
	Hours       Hours      `json:"hours"`
	Description *string    `json:"description"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TimeEntryDraft is a time entry that has not been persisted yet.
type TimeEntryDraft struct {
	UserID      string
	ProjectID   string
	Date        civil.Date
	Hours       Hours
	Description *string
}

// TimeEntryWithProject is a time entry joined with its project.
type TimeEntryWithProject struct {
	TimeEntry
	Project Project `json:"project"`
}

// IsOwnedBy reports whether the entry belongs to the given user.
func (e *TimeEntry) IsOwnedBy(userID string) bool {
	return e.UserID == userID
}
