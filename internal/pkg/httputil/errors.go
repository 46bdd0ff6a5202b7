package httputil

import (
	"context"
	"errors"
	"net/http"

	"github.com/bissquit/timesheet/internal/pkg/ctxlog"
)

// ErrorMapping maps a sentinel error to a response status.
type ErrorMapping struct {
	Error   error
	Status  int
	Message string // overrides err.Error() when set
}

// FieldsError is implemented by errors that add fields to the error envelope,
// such as the totals of a rejected time entry.
type FieldsError interface {
	error
	ErrorFields() map[string]interface{}
}

// HandleError writes the first mapping err matches. Extra fields of a
// FieldsError in the chain go next to the message. Unmapped errors are logged
// and answered with 500.
func HandleError(ctx context.Context, w http.ResponseWriter, err error, mappings []ErrorMapping) {
	for _, m := range mappings {
		if !errors.Is(err, m.Error) {
			continue
		}

		msg := m.Message
		if msg == "" {
			msg = err.Error()
		}

		var fe FieldsError
		if errors.As(err, &fe) {
			ErrorWithFields(w, m.Status, msg, fe.ErrorFields())
			return
		}
		Error(w, m.Status, msg)
		return
	}

	ctxlog.FromContext(ctx).Error("unhandled error", "error", err)
	Error(w, http.StatusInternalServerError, "internal error")
}
