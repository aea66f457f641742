package controllers

import (
	"errors"
	"log/slog"
	"net/http"

	"eventroster/internal/delivery/http/helpers"
	"eventroster/internal/delivery/http/middleware"
	"eventroster/internal/domain"
)

// RosterStateSuccessResponse is the success response envelope for join/leave endpoints.
type RosterStateSuccessResponse struct {
	Data  domain.RosterState `json:"data"`
	Error *helpers.APIError  `json:"error"`
}

// RosterResponse is the response body for GET /events/{eventID}/roster.
type RosterResponse struct {
	Roles []domain.RosterState `json:"roles"`
}

// RosterSuccessResponse is the success response envelope for GET /events/{eventID}/roster (200).
type RosterSuccessResponse struct {
	Data  RosterResponse    `json:"data"`
	Error *helpers.APIError `json:"error"`
}

type RegistrationController struct {
	Logger  *slog.Logger
	Service domain.RegistrationService
}

func NewRegistrationController(logger *slog.Logger, svc domain.RegistrationService) *RegistrationController {
	return &RegistrationController{
		Logger:  logger,
		Service: svc,
	}
}

// Join godoc
// @Summary Claim a role slot
// @Description Registers the authenticated participant for the role on the event. A participant holds at most one role per event; a role accepts at most its snapshotted capacity.
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Param role path string true "Role name from the event's schema"
// @Success 201 {object} controllers.RosterStateSuccessResponse "data contains the role's occupancy after the join"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/roles/{role}/participants [post]
func (c *RegistrationController) Join(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	role := r.PathValue("role")
	if eventID == "" || role == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID or role")
		return
	}
	participantID, ok := middleware.ParticipantIDFromContext(r.Context())
	communityID, ok2 := middleware.CommunityIDFromContext(r.Context())
	if !ok || !ok2 {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	state, err := c.Service.Join(r.Context(), communityID, eventID, role, participantID)
	if err != nil {
		c.writeRegistrationError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, state)
}

// Leave godoc
// @Summary Release a role slot
// @Description Removes the authenticated participant from the role on the event, freeing the slot immediately.
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Param role path string true "Role name from the event's schema"
// @Success 200 {object} controllers.RosterStateSuccessResponse "data contains the role's occupancy after the leave"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/roles/{role}/participants [delete]
func (c *RegistrationController) Leave(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	role := r.PathValue("role")
	if eventID == "" || role == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID or role")
		return
	}
	participantID, ok := middleware.ParticipantIDFromContext(r.Context())
	communityID, ok2 := middleware.CommunityIDFromContext(r.Context())
	if !ok || !ok2 {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	state, err := c.Service.Leave(r.Context(), communityID, eventID, role, participantID)
	if err != nil {
		c.writeRegistrationError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, state)
}

// Roster godoc
// @Summary Get per-role occupancy
// @Description Returns filled and capacity counts for every role on the event, in schema order.
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Success 200 {object} controllers.RosterSuccessResponse "data contains per-role counts"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/roster [get]
func (c *RegistrationController) Roster(w http.ResponseWriter, r *http.Request) {
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
	roles, err := c.Service.Counts(r.Context(), communityID, eventID)
	if err != nil {
		c.writeRegistrationError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, RosterResponse{Roles: roles})
}

// writeRegistrationError maps registration sentinel errors to HTTP responses.
func (c *RegistrationController) writeRegistrationError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrEventNotFound):
		helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "event not found")
	case errors.Is(err, domain.ErrUnknownRole):
		helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "role is not part of this event")
	case errors.Is(err, domain.ErrNotRegistered):
		helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "participant is not registered for this role")
	case errors.Is(err, domain.ErrAlreadyRegistered):
		helpers.WriteJSONError(w, http.StatusConflict, helpers.ErrCodeConflict, "participant already holds a role on this event")
	case errors.Is(err, domain.ErrRoleFull):
		helpers.WriteJSONError(w, http.StatusConflict, helpers.ErrCodeConflict, "role is full")
	default:
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
	}
}
