package timesheet

import (
	"time"

	"github.com/bissquit/timesheet/internal/domain"
)

// EditWindow is how long after its last update an entry stays reserved to
// its owner and admins.
const EditWindow = 48 * time.Hour

// CanMutate reports whether actor may update or delete entry at now.
func CanMutate(entry *domain.TimeEntry, actor domain.Actor, now time.Time) bool {
	switch {
	case actor.Role == domain.RoleAdmin:
		return true
	case actor.ID != "" && entry.IsOwnedBy(actor.ID):
		return true
	case actor.Role == domain.RoleManager:
		return now.Sub(entry.UpdatedAt) > EditWindow
	default:
		return false
	}
}
