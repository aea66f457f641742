package controllers

import (
	"errors"
	"log/slog"
	"net/http"

	"eventroster/internal/delivery/http/helpers"
	"eventroster/internal/delivery/http/middleware"
	"eventroster/internal/domain"
)

// InstantiateEventRequest is the request body for POST /events. StartTime
// accepts RFC 3339 or "YYYY-MM-DDTHH:MM" / "YYYY-MM-DD HH:MM" (UTC).
type InstantiateEventRequest struct {
	Name       string `json:"name"`
	Template   string `json:"template"`
	ChannelRef string `json:"channel_ref"`
	StartTime  string `json:"start_time"`
}

// Validate implements Validator. Returns error messages for required fields.
func (i InstantiateEventRequest) Validate() []string {
	var errs []string
	if i.Name == "" {
		errs = append(errs, "name is required")
	}
	if i.Template == "" {
		errs = append(errs, "template is required")
	}
	if i.StartTime == "" {
		errs = append(errs, "start_time is required")
	}
	return errs
}

// EventSuccessResponse is the success response envelope for single-event endpoints.
type EventSuccessResponse struct {
	Data  *domain.Event     `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// ListEventsResponse is the response body for GET /events.
type ListEventsResponse struct {
	Events     []*domain.Event        `json:"events"`
	Pagination helpers.PaginationMeta `json:"pagination"`
}

// ListEventsSuccessResponse is the success response envelope for GET /events (200).
type ListEventsSuccessResponse struct {
	Data  ListEventsResponse `json:"data"`
	Error *helpers.APIError  `json:"error"`
}

type EventController struct {
	Logger  *slog.Logger
	Service domain.EventService
}

func NewEventController(logger *slog.Logger, svc domain.EventService) *EventController {
	return &EventController{
		Logger:  logger,
		Service: svc,
	}
}

// Instantiate godoc
// @Summary Create an event from a template
// @Description Instantiate an event for the authenticated community. The named template's role schema and description are snapshotted into the event; later template edits do not affect it. All rosters start empty.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param event body InstantiateEventRequest true "Event data"
// @Success 201 {object} controllers.EventSuccessResponse "data contains the created event"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events [post]
func (c *EventController) Instantiate(w http.ResponseWriter, r *http.Request) {
	var req InstantiateEventRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	communityID, ok := middleware.CommunityIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	event, err := c.Service.Instantiate(r.Context(), communityID, req.ChannelRef, req.Name, req.Template, req.StartTime)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrTemplateNotFound):
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "template not found")
		case errors.Is(err, domain.ErrInvalidTime):
			helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "unrecognized start_time format")
		default:
			c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
			helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		}
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, event)
}

// GetByID godoc
// @Summary Get an event by ID
// @Description Returns the event with its snapshotted role schema and current rosters. Events belonging to other communities are reported as not found.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Success 200 {object} controllers.EventSuccessResponse "data contains the event"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID} [get]
func (c *EventController) GetByID(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if eventID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID")
		return
	}
	communityID, ok := middleware.CommunityIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	event, err := c.Service.GetByID(r.Context(), communityID, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrEventNotFound) {
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "event not found")
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}

// GetByName godoc
// @Summary Get an event by name
// @Description Returns the most recently created event with the given name for the authenticated community. Event names are not unique; ID lookup is the primary path.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param name path string true "Event name"
// @Success 200 {object} controllers.EventSuccessResponse "data contains the event"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/by-name/{name} [get]
func (c *EventController) GetByName(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if name == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing event name")
		return
	}
	communityID, ok := middleware.CommunityIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	event, err := c.Service.GetByName(r.Context(), communityID, name)
	if err != nil {
		if errors.Is(err, domain.ErrEventNotFound) {
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "event not found")
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}

// ListUpcoming godoc
// @Summary List upcoming events
// @Description Returns the authenticated community's events that have not yet started, soonest first, paginated.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Success 200 {object} controllers.ListEventsSuccessResponse "data contains events and pagination"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events [get]
func (c *EventController) ListUpcoming(w http.ResponseWriter, r *http.Request) {
	communityID, ok := middleware.CommunityIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	events, err := c.Service.ListUpcoming(r.Context(), communityID)
	if err != nil {
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	p := helpers.ParsePagination(r)
	lo, hi := p.Window(len(events))
	helpers.WriteJSONSuccess(w, http.StatusOK, ListEventsResponse{
		Events:     events[lo:hi],
		Pagination: helpers.NewPaginationMeta(p, len(events)),
	})
}
