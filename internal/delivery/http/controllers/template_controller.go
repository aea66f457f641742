package controllers

import (
	"errors"
	"log/slog"
	"net/http"

	"eventroster/internal/delivery/http/helpers"
	"eventroster/internal/delivery/http/middleware"
	"eventroster/internal/domain"
)

// DefineTemplateRequest is the request body for POST /templates. Slots is the
// raw comma-separated Role:Capacity spec, e.g. "Tank:2,Healer:2,DPS:8".
type DefineTemplateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Slots       string `json:"slots"`
}

// Validate implements Validator. Returns error messages for required fields.
func (d DefineTemplateRequest) Validate() []string {
	var errs []string
	if d.Name == "" {
		errs = append(errs, "name is required")
	}
	if d.Slots == "" {
		errs = append(errs, "slots is required")
	}
	return errs
}

// DefineTemplateSuccessResponse is the success response envelope for POST /templates (201).
type DefineTemplateSuccessResponse struct {
	Data  *domain.Template  `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// ListTemplatesResponse is the response body for GET /templates.
type ListTemplatesResponse struct {
	Templates  []*domain.Template     `json:"templates"`
	Pagination helpers.PaginationMeta `json:"pagination"`
}

// ListTemplatesSuccessResponse is the success response envelope for GET /templates (200).
type ListTemplatesSuccessResponse struct {
	Data  ListTemplatesResponse `json:"data"`
	Error *helpers.APIError     `json:"error"`
}

type TemplateController struct {
	Logger  *slog.Logger
	Service domain.TemplateService
}

func NewTemplateController(logger *slog.Logger, svc domain.TemplateService) *TemplateController {
	return &TemplateController{
		Logger:  logger,
		Service: svc,
	}
}

// Define godoc
// @Summary Define an event template
// @Description Create a reusable template for the authenticated community. Slots is parsed as a comma-separated list of Role:Capacity pairs; the whole spec is rejected if any pair is malformed. Template names are unique per community.
// @Tags templates
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param template body DefineTemplateRequest true "Template definition"
// @Success 201 {object} controllers.DefineTemplateSuccessResponse "data contains the created template"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /templates [post]
func (c *TemplateController) Define(w http.ResponseWriter, r *http.Request) {
	var req DefineTemplateRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	communityID, ok := middleware.CommunityIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	template, err := c.Service.Define(r.Context(), communityID, req.Name, req.Description, req.Slots)
	if err != nil {
		var parseErr *domain.SchemaParseError
		switch {
		case errors.As(err, &parseErr):
			helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, parseErr.Error())
		case errors.Is(err, domain.ErrDuplicateTemplate):
			helpers.WriteJSONError(w, http.StatusConflict, helpers.ErrCodeConflict, "a template with this name already exists")
		default:
			c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
			helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		}
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, template)
}

// List godoc
// @Summary List the community's templates
// @Description Returns the authenticated community's templates in creation order, paginated.
// @Tags templates
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Success 200 {object} controllers.ListTemplatesSuccessResponse "data contains templates and pagination"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /templates [get]
func (c *TemplateController) List(w http.ResponseWriter, r *http.Request) {
	communityID, ok := middleware.CommunityIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	templates, err := c.Service.List(r.Context(), communityID)
	if err != nil {
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	p := helpers.ParsePagination(r)
	lo, hi := p.Window(len(templates))
	helpers.WriteJSONSuccess(w, http.StatusOK, ListTemplatesResponse{
		Templates:  templates[lo:hi],
		Pagination: helpers.NewPaginationMeta(p, len(templates)),
	})
}

// Get godoc
// @Summary Get a template by name
// @Description Returns the named template for the authenticated community.
// @Tags templates
// @Produce json
// @Security BearerAuth
// @Param name path string true "Template name"
// @Success 200 {object} controllers.DefineTemplateSuccessResponse "data contains the template"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /templates/{name} [get]
func (c *TemplateController) Get(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if name == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing template name")
		return
	}
	communityID, ok := middleware.CommunityIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	template, err := c.Service.Get(r.Context(), communityID, name)
	if err != nil {
		if errors.Is(err, domain.ErrTemplateNotFound) {
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "template not found")
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, template)
}
