package http

import (
	"net/http"

	"eventcore/internal/delivery/http/controllers"
	"eventcore/internal/delivery/http/helpers"

	httpSwagger "github.com/swaggo/http-swagger"
)

// NewRouter initializes the HTTP router with all application routes
func NewRouter(
	events *controllers.EventController,
	participants *controllers.ParticipantController,
	attendances *controllers.AttendanceController,
) *http.ServeMux {
	mux := http.NewServeMux()

	// Events
	mux.HandleFunc("POST /events", events.CreateEvent)
	mux.HandleFunc("GET /events", events.ListEvents)
	mux.HandleFunc("GET /events/upcoming", events.ListUpcomingEvents)
	mux.HandleFunc("GET /events/{eventID}", events.GetEventByID)
	mux.HandleFunc("PUT /events/{eventID}", events.UpdateEvent)
	mux.HandleFunc("PATCH /events/{eventID}/cancel", events.CancelEvent)
	mux.HandleFunc("DELETE /events/{eventID}", events.DeleteEvent)
	mux.HandleFunc("GET /events/{eventID}/availability", events.GetEventAvailability)
	mux.HandleFunc("POST /events/{eventID}/reconcile", attendances.ReconcileEvent)

	// Participants
	mux.HandleFunc("POST /participants", participants.CreateParticipant)
	mux.HandleFunc("GET /participants", participants.ListParticipants)
	mux.HandleFunc("GET /participants/email/{email}", participants.GetParticipantByEmail)
	mux.HandleFunc("GET /participants/{participantID}", participants.GetParticipantByID)
	mux.HandleFunc("PUT /participants/{participantID}", participants.UpdateParticipant)
	mux.HandleFunc("PATCH /participants/{participantID}/status", participants.UpdateParticipantStatus)
	mux.HandleFunc("DELETE /participants/{participantID}", participants.DeleteParticipant)

	// Attendances
	mux.HandleFunc("POST /attendances", attendances.Register)
	mux.HandleFunc("GET /attendances/{attendanceID}", attendances.GetAttendanceByID)
	mux.HandleFunc("PATCH /attendances/{attendanceID}/check-in", attendances.CheckIn)
	mux.HandleFunc("PATCH /attendances/{attendanceID}/cancel", attendances.Cancel)
	mux.HandleFunc("GET /attendances/event/{eventID}", attendances.ListByEvent)
	mux.HandleFunc("GET /attendances/event/{eventID}/statistics", attendances.GetEventStatistics)
	mux.HandleFunc("GET /attendances/participant/{participantID}", attendances.ListByParticipant)

	mux.HandleFunc("GET /health", Health)

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}

// Health godoc
// @Summary Liveness probe
// @Tags health
// @Produce json
// @Success 200 {object} helpers.APIResponse
// @Router /health [get]
func Health(w http.ResponseWriter, _ *http.Request) {
	helpers.WriteJSONSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
}
