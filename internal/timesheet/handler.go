package timesheet

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"cloud.google.com/go/civil"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/bissquit/timesheet/internal/directory"
	"github.com/bissquit/timesheet/internal/domain"
	"github.com/bissquit/timesheet/internal/pkg/httputil"
)

var errorMappings = []httputil.ErrorMapping{
	{Error: ErrEntryNotFound, Status: http.StatusNotFound},
	{Error: directory.ErrProjectNotFound, Status: http.StatusNotFound},
	{Error: directory.ErrUserNotFound, Status: http.StatusNotFound},
	{Error: ErrProjectClosed, Status: http.StatusBadRequest},
	{Error: ErrDailyLimitExceeded, Status: http.StatusBadRequest},
	{Error: ErrFilterRequired, Status: http.StatusBadRequest},
	{Error: ErrForbidden, Status: http.StatusForbidden},
	{Error: ErrEntryChanged, Status: http.StatusConflict},
}

// Handler handles HTTP requests for time entries.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new timesheet handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

// RegisterRoutes registers time entry routes.
// Update and delete need an identified actor.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/time-entries", func(r chi.Router) {
		r.Get("/", h.ListEntries)
		r.Post("/", h.CreateEntry)
		r.Get("/{id}", h.GetEntry)

		r.Group(func(r chi.Router) {
			r.Use(httputil.RequireActor)
			r.Put("/{id}", h.UpdateEntry)
			r.Delete("/{id}", h.DeleteEntry)
		})
	})
}

// CreateEntryRequest represents the request body for logging time.
type CreateEntryRequest struct {
	UserID      string  `json:"user_id" validate:"required"`
	ProjectID   string  `json:"project_id" validate:"required"`
	Date        string  `json:"date" validate:"required,datetime=2006-01-02"`
	Hours       float64 `json:"hours" validate:"required,gte=0.5,lte=24"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
}

// ToDraft converts the request to an entry draft. Date must already be validated.
func (r *CreateEntryRequest) ToDraft() domain.TimeEntryDraft {
	d, _ := civil.ParseDate(r.Date)
	return domain.TimeEntryDraft{
		UserID:      r.UserID,
		ProjectID:   r.ProjectID,
		Date:        d,
		Hours:       domain.HoursFromFloat(r.Hours),
		Description: r.Description,
	}
}

// UpdateEntryRequest represents the request body for editing an entry.
type UpdateEntryRequest struct {
	ProjectID   *string  `json:"project_id" validate:"omitempty,min=1"`
	Date        *string  `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Hours       *float64 `json:"hours" validate:"omitempty,gte=0.5,lte=24"`
	Description *string  `json:"description" validate:"omitempty,max=1000"`
}

// ToChange converts the request to an entry change. Date must already be validated.
func (r *UpdateEntryRequest) ToChange() EntryChange {
	change := EntryChange{
		ProjectID:   r.ProjectID,
		Description: r.Description,
	}
	if r.Date != nil {
		d, _ := civil.ParseDate(*r.Date)
		change.Date = &d
	}
	if r.Hours != nil {
		h := domain.HoursFromFloat(*r.Hours)
		change.Hours = &h
	}
	return change
}

// CreateEntry handles POST /time-entries request.
func (h *Handler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	var req CreateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	entry, err := h.service.CreateEntry(r.Context(), req.ToDraft())
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusCreated, entry)
}

// GetEntry handles GET /time-entries/{id} request.
func (h *Handler) GetEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := h.service.GetEntry(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, entry)
}

// ListEntries handles GET /time-entries request.
// Query: user_id with one of date, week (start date) or month and year; or project_id.
func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	query, err := parseListQuery(r)
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	entries, err := h.service.ListEntries(r.Context(), query)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, entries)
}

// UpdateEntry handles PUT /time-entries/{id} request.
func (h *Handler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	var req UpdateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	actor, _ := httputil.GetActor(r.Context())
	entry, err := h.service.UpdateEntry(r.Context(), chi.URLParam(r, "id"), req.ToChange(), actor)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, entry)
}

// DeleteEntry handles DELETE /time-entries/{id} request.
func (h *Handler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	actor, _ := httputil.GetActor(r.Context())
	if err := h.service.DeleteEntry(r.Context(), chi.URLParam(r, "id"), actor); err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func parseListQuery(r *http.Request) (ListQuery, error) {
	q := r.URL.Query()
	query := ListQuery{
		UserID:    q.Get("user_id"),
		ProjectID: q.Get("project_id"),
	}

	if v := q.Get("date"); v != "" {
		d, err := civil.ParseDate(v)
		if err != nil {
			return query, errors.New("invalid date")
		}
		query.Date = &d
	}

	if v := q.Get("week"); v != "" {
		d, err := civil.ParseDate(v)
		if err != nil {
			return query, errors.New("invalid week")
		}
		query.WeekStart = &d
	}

	if v := q.Get("month"); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			return query, errors.New("invalid month")
		}
		query.Month = time.Month(m)
	}

	if v := q.Get("year"); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1 {
			return query, errors.New("invalid year")
		}
		query.Year = y
	}

	return query, nil
}
