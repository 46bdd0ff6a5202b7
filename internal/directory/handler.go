package directory

import (
	"encoding/json"
	"net/http"

	"cloud.google.com/go/civil"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/bissquit/timesheet/internal/domain"
	"github.com/bissquit/timesheet/internal/pkg/httputil"
)

var errorMappings = []httputil.ErrorMapping{
	{Error: ErrUserNotFound, Status: http.StatusNotFound},
	{Error: ErrProjectNotFound, Status: http.StatusNotFound},
	{Error: ErrAssignmentNotFound, Status: http.StatusNotFound},
	{Error: ErrUsernameExists, Status: http.StatusConflict},
	{Error: ErrAssignmentExists, Status: http.StatusConflict},
	{Error: ErrManagerNotFound, Status: http.StatusBadRequest},
	{Error: ErrInvalidDateRange, Status: http.StatusBadRequest},
	{Error: ErrInvalidRole, Status: http.StatusBadRequest},
	{Error: ErrInvalidStatus, Status: http.StatusBadRequest},
}

// Handler handles HTTP requests for users, projects and assignments.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new directory handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

// RegisterRoutes registers directory routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/users", func(r chi.Router) {
		r.Get("/", h.ListUsers)
		r.Post("/", h.CreateUser)
		r.Get("/{id}", h.GetUser)
	})

	r.Route("/projects", func(r chi.Router) {
		r.Get("/", h.ListProjects)
		r.Post("/", h.CreateProject)
		r.Get("/{id}", h.GetProject)
		r.Put("/{id}", h.UpdateProject)
		r.Get("/{id}/assignments", h.ListProjectAssignments)
	})

	r.Route("/project-assignments", func(r chi.Router) {
		r.Post("/", h.CreateAssignment)
		r.Delete("/{userID}/{projectID}", h.DeleteAssignment)
	})
}

// CreateUserRequest represents the request body for creating a user.
type CreateUserRequest struct {
	Username string `json:"username" validate:"required,min=1,max=100"`
	Name     string `json:"name" validate:"required,min=1,max=255"`
	Role     string `json:"role" validate:"required,oneof=employee manager admin"`
}

// CreateProjectRequest represents the request body for creating a project.
type CreateProjectRequest struct {
	Name        string  `json:"name" validate:"required,min=1,max=255"`
	Description *string `json:"description"`
	StartDate   string  `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate     string  `json:"end_date" validate:"required,datetime=2006-01-02"`
	Status      string  `json:"status" validate:"omitempty,oneof=active pending closed"`
	IsPriority  bool    `json:"is_priority"`
	ManagerID   *string `json:"manager_id" validate:"omitempty,min=1"`
}

// ToInput converts the request to service input. Dates must already be validated.
func (r *CreateProjectRequest) ToInput() CreateProjectInput {
	start, _ := civil.ParseDate(r.StartDate)
	end, _ := civil.ParseDate(r.EndDate)

	status := domain.ProjectStatus(r.Status)
	if status == "" {
		status = domain.ProjectStatusActive
	}

	return CreateProjectInput{
		Name:        r.Name,
		Description: r.Description,
		StartDate:   start,
		EndDate:     end,
		Status:      status,
		IsPriority:  r.IsPriority,
		ManagerID:   r.ManagerID,
	}
}

// UpdateProjectRequest represents the request body for a partial project update.
type UpdateProjectRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=255"`
	Description *string `json:"description"`
	StartDate   *string `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate     *string `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	Status      *string `json:"status" validate:"omitempty,oneof=active pending closed"`
	IsPriority  *bool   `json:"is_priority"`
	ManagerID   *string `json:"manager_id" validate:"omitempty,min=1"`
}

// ToChange converts the request to a project change. Dates must already be validated.
func (r *UpdateProjectRequest) ToChange() ProjectChange {
	change := ProjectChange{
		Name:        r.Name,
		Description: r.Description,
		IsPriority:  r.IsPriority,
		ManagerID:   r.ManagerID,
	}
	if r.StartDate != nil {
		d, _ := civil.ParseDate(*r.StartDate)
		change.StartDate = &d
	}
	if r.EndDate != nil {
		d, _ := civil.ParseDate(*r.EndDate)
		change.EndDate = &d
	}
	if r.Status != nil {
		status := domain.ProjectStatus(*r.Status)
		change.Status = &status
	}
	return change
}

// CreateAssignmentRequest represents the request body for assigning a user to a project.
type CreateAssignmentRequest struct {
	UserID    string `json:"user_id" validate:"required"`
	ProjectID string `json:"project_id" validate:"required"`
}

// CreateUser handles POST /users request.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	user, err := h.service.CreateUser(r.Context(), CreateUserInput{
		Username: req.Username,
		Name:     req.Name,
		Role:     domain.Role(req.Role),
	})
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusCreated, user)
}

// GetUser handles GET /users/{id} request.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, user)
}

// ListUsers handles GET /users request.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, users)
}

// CreateProject handles POST /projects request.
func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req CreateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	project, err := h.service.CreateProject(r.Context(), req.ToInput())
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusCreated, project)
}

// GetProject handles GET /projects/{id} request.
func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	project, err := h.service.GetProject(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, project)
}

// ListProjects handles GET /projects request.
// Supports filtering by user_id (assigned user) and manager_id.
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	filter := ProjectFilter{}

	if userID := r.URL.Query().Get("user_id"); userID != "" {
		filter.AssignedUserID = &userID
	}
	if managerID := r.URL.Query().Get("manager_id"); managerID != "" {
		filter.ManagerID = &managerID
	}

	projects, err := h.service.ListProjects(r.Context(), filter)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, projects)
}

// UpdateProject handles PUT /projects/{id} request.
func (h *Handler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	var req UpdateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	project, err := h.service.UpdateProject(r.Context(), chi.URLParam(r, "id"), req.ToChange())
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, project)
}

// ListProjectAssignments handles GET /projects/{id}/assignments request.
func (h *Handler) ListProjectAssignments(w http.ResponseWriter, r *http.Request) {
	assignments, err := h.service.ListProjectAssignments(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, assignments)
}

// CreateAssignment handles POST /project-assignments request.
func (h *Handler) CreateAssignment(w http.ResponseWriter, r *http.Request) {
	var req CreateAssignmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	assignment, err := h.service.AssignUser(r.Context(), req.UserID, req.ProjectID)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusCreated, assignment)
}

// DeleteAssignment handles DELETE /project-assignments/{userID}/{projectID} request.
func (h *Handler) DeleteAssignment(w http.ResponseWriter, r *http.Request) {
	err := h.service.RemoveAssignment(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "projectID"))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
