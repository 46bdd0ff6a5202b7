package dashboard

import (
	"net/http"
	"strconv"
	"time"

	"cloud.google.com/go/civil"
	"github.com/go-chi/chi/v5"

	"github.com/bissquit/timesheet/internal/directory"
	"github.com/bissquit/timesheet/internal/domain"
	"github.com/bissquit/timesheet/internal/pkg/httputil"
)

var errorMappings = []httputil.ErrorMapping{
	{Error: directory.ErrUserNotFound, Status: http.StatusNotFound},
	{Error: directory.ErrProjectNotFound, Status: http.StatusNotFound},
	{Error: ErrPeriodRequired, Status: http.StatusBadRequest},
}

// Handler handles dashboard and report requests.
type Handler struct {
	service *Service
}

// NewHandler creates a new dashboard handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers dashboard and report routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/dashboard", func(r chi.Router) {
		r.Get("/daily-hours/{userID}/{date}", h.DailyHours)
		r.Get("/weekly-hours/{userID}/{startDate}", h.WeeklyHours)
		r.Get("/team-hours/{managerID}/{startDate}", h.TeamHours)
	})

	r.Route("/reports", func(r chi.Router) {
		r.Get("/breakdown", h.Breakdown)
		r.Get("/projects/{projectID}", h.ProjectSummary)
	})
}

// HoursResponse wraps a single total.
type HoursResponse struct {
	Hours domain.Hours `json:"hours"`
}

// DailyHours handles GET /dashboard/daily-hours/{userID}/{date} request.
func (h *Handler) DailyHours(w http.ResponseWriter, r *http.Request) {
	date, err := civil.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid date")
		return
	}

	hours, err := h.service.DailyHours(r.Context(), chi.URLParam(r, "userID"), date)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, HoursResponse{Hours: hours})
}

// WeeklyHours handles GET /dashboard/weekly-hours/{userID}/{startDate} request.
func (h *Handler) WeeklyHours(w http.ResponseWriter, r *http.Request) {
	start, err := civil.ParseDate(chi.URLParam(r, "startDate"))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid start date")
		return
	}

	hours, err := h.service.WeeklyHours(r.Context(), chi.URLParam(r, "userID"), start)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, HoursResponse{Hours: hours})
}

// TeamHours handles GET /dashboard/team-hours/{managerID}/{startDate} request.
func (h *Handler) TeamHours(w http.ResponseWriter, r *http.Request) {
	start, err := civil.ParseDate(chi.URLParam(r, "startDate"))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid start date")
		return
	}

	hours, err := h.service.TeamHours(r.Context(), chi.URLParam(r, "managerID"), start)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, HoursResponse{Hours: hours})
}

// Breakdown handles GET /reports/breakdown?user_id=&week= or &month=&year= request.
func (h *Handler) Breakdown(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	userID := q.Get("user_id")
	if userID == "" {
		httputil.Error(w, http.StatusBadRequest, "user_id is required")
		return
	}

	var period Period
	if v := q.Get("week"); v != "" {
		d, err := civil.ParseDate(v)
		if err != nil {
			httputil.Error(w, http.StatusBadRequest, "invalid week")
			return
		}
		period.WeekStart = &d
	}
	if v := q.Get("month"); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			httputil.Error(w, http.StatusBadRequest, "invalid month")
			return
		}
		period.Month = time.Month(m)
	}
	if v := q.Get("year"); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1 {
			httputil.Error(w, http.StatusBadRequest, "invalid year")
			return
		}
		period.Year = y
	}

	breakdown, err := h.service.Breakdown(r.Context(), userID, period)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, breakdown)
}

// ProjectSummary handles GET /reports/projects/{projectID}?from=&to= request.
func (h *Handler) ProjectSummary(w http.ResponseWriter, r *http.Request) {
	from, ok := optionalDate(w, r, "from")
	if !ok {
		return
	}
	to, ok := optionalDate(w, r, "to")
	if !ok {
		return
	}

	summary, err := h.service.ProjectSummary(r.Context(), chi.URLParam(r, "projectID"), from, to)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, summary)
}

// optionalDate parses a date query parameter. It writes a 400 response and
// returns ok=false when the value is malformed.
func optionalDate(w http.ResponseWriter, r *http.Request, name string) (*civil.Date, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil, true
	}
	d, err := civil.ParseDate(v)
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid "+name)
		return nil, false
	}
	return &d, true
}
