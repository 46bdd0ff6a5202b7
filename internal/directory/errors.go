package directory

import "errors"

// Directory errors.
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUsernameExists     = errors.New("username already exists")
	ErrProjectNotFound    = errors.New("project not found")
	ErrManagerNotFound    = errors.New("manager not found")
	ErrInvalidDateRange   = errors.New("project end date is before start date")
	ErrAssignmentNotFound = errors.New("assignment not found")
	ErrAssignmentExists   = errors.New("user is already assigned to project")
	ErrInvalidRole        = errors.New("invalid role")
	ErrInvalidStatus      = errors.New("invalid project status")
)
