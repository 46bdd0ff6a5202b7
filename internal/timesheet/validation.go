package timesheet

import "github.com/bissquit/timesheet/internal/domain"

// DailyCap is the most hours a user may log on one day against non-priority projects.
const DailyCap = 8 * domain.Hour

// ValidateNewEntry checks a candidate entry against its project and the
// entries the user already logged on the candidate's date.
//
// It returns ErrProjectClosed for closed projects and a *DailyLimitError when
// the projected day total exceeds DailyCap on a non-priority project.
// Candidate hours are expected to be range-checked already.
func ValidateNewEntry(candidate domain.TimeEntryDraft, project *domain.Project, existing []domain.TimeEntry) error {
	return ValidateEntryChange(candidate, project, existing, "")
}

// ValidateEntryChange is ValidateNewEntry for an edited entry: the entry with
// excludeID is left out of the current total.
func ValidateEntryChange(candidate domain.TimeEntryDraft, project *domain.Project, existing []domain.TimeEntry, excludeID string) error {
	if project.IsClosed() {
		return ErrProjectClosed
	}

	var current domain.Hours
	for _, e := range existing {
		if excludeID != "" && e.ID == excludeID {
			continue
		}
		current += e.Hours
	}

	projected := current + candidate.Hours
	if projected > DailyCap && !project.IsPriority {
		return &DailyLimitError{CurrentTotal: current, AttemptedTotal: projected}
	}

	return nil
}
