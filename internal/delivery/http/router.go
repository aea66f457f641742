package http

import (
	"log/slog"
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	"eventroster/internal/delivery/http/controllers"
	"eventroster/internal/delivery/http/helpers"
	"eventroster/internal/delivery/http/middleware"
)

// NewRouter initializes the HTTP router with all application routes.
func NewRouter(
	templateController *controllers.TemplateController,
	eventController *controllers.EventController,
	registrationController *controllers.RegistrationController,
	verifier middleware.TokenVerifier,
	logger *slog.Logger,
) *http.ServeMux {
	mux := http.NewServeMux()
	member := middleware.RequireMembership(verifier, logger)

	// Templates
	mux.HandleFunc("POST /templates", member(templateController.Define))
	mux.HandleFunc("GET /templates", member(templateController.List))
	mux.HandleFunc("GET /templates/{name}", member(templateController.Get))

	// Events
	mux.HandleFunc("POST /events", member(eventController.Instantiate))
	mux.HandleFunc("GET /events", member(eventController.ListUpcoming))
	mux.HandleFunc("GET /events/by-name/{name}", member(eventController.GetByName))
	mux.HandleFunc("GET /events/{eventID}", member(eventController.GetByID))

	// Registrations
	mux.HandleFunc("POST /events/{eventID}/roles/{role}/participants", member(registrationController.Join))
	mux.HandleFunc("DELETE /events/{eventID}/roles/{role}/participants", member(registrationController.Leave))
	mux.HandleFunc("GET /events/{eventID}/roster", member(registrationController.Roster))

	// Health
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		helpers.WriteJSONSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}
