package timesheet

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "accepted"},
		{ErrProjectClosed, "project_closed"},
		{&DailyLimitError{CurrentTotal: 40, AttemptedTotal: 90}, "daily_limit"},
		{fmt.Errorf("update: %w", ErrForbidden), "forbidden"},
		{ErrEntryNotFound, "not_found"},
		{ErrEntryChanged, "conflict"},
		{errors.New("connection reset"), "error"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, outcome(tt.err))
		})
	}
}
