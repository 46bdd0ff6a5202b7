package timesheet

import (
	"errors"
	"fmt"

	"github.com/bissquit/timesheet/internal/domain"
)

// Timesheet errors.
var (
	ErrEntryNotFound      = errors.New("time entry not found")
	ErrProjectClosed      = errors.New("cannot log time to a closed project")
	ErrDailyLimitExceeded = errors.New("daily limit exceeded")
	ErrForbidden          = errors.New("not allowed to modify this time entry")
	ErrFilterRequired     = errors.New("user_id or project_id is required")
	ErrEntryChanged       = errors.New("time entry changed concurrently, retry")
)

// DailyLimitError reports the totals of a rejected entry.
type DailyLimitError struct {
	CurrentTotal   domain.Hours
	AttemptedTotal domain.Hours
}

func (e *DailyLimitError) Error() string {
	return fmt.Sprintf("daily limit of %s hours exceeded: current total %s, attempted total %s",
		DailyCap, e.CurrentTotal, e.AttemptedTotal)
}

// ErrorFields adds both totals to the error response.
func (e *DailyLimitError) ErrorFields() map[string]interface{} {
	return map[string]interface{}{
		"current_total":   e.CurrentTotal,
		"attempted_total": e.AttemptedTotal,
	}
}

// Is makes errors.Is(err, ErrDailyLimitExceeded) match.
func (e *DailyLimitError) Is(target error) bool {
	return target == ErrDailyLimitExceeded
}
