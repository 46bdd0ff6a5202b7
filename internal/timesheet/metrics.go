package timesheet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"

	"github.com/bissquit/timesheet/internal/daylock"
	"github.com/bissquit/timesheet/internal/pkg/metrics"
)

// recordDecision records the outcome of a create, update or delete.
func recordDecision(operation string, err error) {
	metrics.EntryDecisions.WithLabelValues(operation, outcome(err)).Inc()
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "accepted"
	case errors.Is(err, ErrProjectClosed):
		return "project_closed"
	case errors.Is(err, ErrDailyLimitExceeded):
		return "daily_limit"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrEntryNotFound):
		return "not_found"
	case errors.Is(err, ErrEntryChanged):
		return "conflict"
	default:
		return "error"
	}
}

// lockDay acquires the lock of a user's day and records the wait.
func (s *Service) lockDay(ctx context.Context, userID string, date civil.Date) (func(), error) {
	start := time.Now()
	unlock, err := s.locker.Lock(ctx, daylock.Key(userID, date))
	metrics.DayLockWait.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("lock day: %w", err)
	}
	return unlock, nil
}
