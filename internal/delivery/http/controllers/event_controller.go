package controllers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"eventcore/internal/delivery/http/helpers"
	"eventcore/internal/domain"
)

// EventRequest is the request body for POST /events and PUT /events/{eventID}.
type EventRequest struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	Capacity    int       `json:"capacity"`
}

// Validate implements Validator. Returns error messages for required, length and range rules.
func (e EventRequest) Validate() []string {
	var errs []string
	name := strings.TrimSpace(e.Name)
	switch n := utf8.RuneCountInString(name); {
	case n == 0:
		errs = append(errs, "name is required")
	case n < 3 || n > 200:
		errs = append(errs, "name must be between 3 and 200 characters")
	}
	if strings.TrimSpace(e.Description) == "" {
		errs = append(errs, "description is required")
	}
	switch loc := strings.TrimSpace(e.Location); {
	case loc == "":
		errs = append(errs, "location is required")
	case utf8.RuneCountInString(loc) > 200:
		errs = append(errs, "location must not exceed 200 characters")
	}
	if e.StartDate.IsZero() {
		errs = append(errs, "start_date is required")
	}
	if e.EndDate.IsZero() {
		errs = append(errs, "end_date is required")
	}
	if e.Capacity < 1 || e.Capacity > 10000 {
		errs = append(errs, "capacity must be between 1 and 10000")
	}
	return errs
}

func (e EventRequest) toDomain() *domain.Event {
	return domain.NewEvent(
		strings.TrimSpace(e.Name),
		strings.TrimSpace(e.Description),
		strings.TrimSpace(e.Location),
		e.StartDate, e.EndDate, e.Capacity,
	)
}

// EventSuccessResponse is the success response envelope for single-event endpoints.
type EventSuccessResponse struct {
	Data  *domain.Event     `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// EventListSuccessResponse is the success response envelope for event list endpoints.
type EventListSuccessResponse struct {
	Data  []*domain.Event   `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// EventAvailabilitySuccessResponse is the success response envelope for GET /events/{eventID}/availability.
type EventAvailabilitySuccessResponse struct {
	Data  *domain.EventAvailability `json:"data"`
	Error *helpers.APIError         `json:"error"`
}

type EventController struct {
	Logger  *slog.Logger
	Service domain.EventService
	Cache   *helpers.ResponseCache
}

func NewEventController(logger *slog.Logger, svc domain.EventService, cache *helpers.ResponseCache) *EventController {
	return &EventController{
		Logger:  logger,
		Service: svc,
		Cache:   cache,
	}
}

// fail logs unexpected errors and writes the mapped error response.
func (c *EventController) fail(w http.ResponseWriter, r *http.Request, err error) {
	logServiceError(c.Logger, r, err)
	helpers.WriteServiceError(w, err)
}

// CreateEvent godoc
// @Summary Create a new event
// @Description Creates an ACTIVE event with no attendees. Start date must not be in the past and end date must be after start date.
// @Tags events
// @Accept json
// @Produce json
// @Param event body EventRequest true "Event data"
// @Success 201 {object} controllers.EventSuccessResponse "data contains the created event"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request or business_rule"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events [post]
func (c *EventController) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req EventRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	event, keys, err := c.Service.CreateEvent(r.Context(), req.toDomain())
	if err != nil {
		c.fail(w, r, err)
		return
	}
	c.Cache.Invalidate(r.Context(), keys...)
	helpers.WriteJSONSuccess(w, http.StatusCreated, event)
}

// ListEvents godoc
// @Summary List events
// @Description Lists every event, or only those in the given status.
// @Tags events
// @Produce json
// @Param status query string false "Event status filter" Enums(DRAFT, ACTIVE, CANCELLED, COMPLETED)
// @Success 200 {object} controllers.EventListSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: business_rule (unknown status)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events [get]
func (c *EventController) ListEvents(w http.ResponseWriter, r *http.Request) {
	var (
		events []*domain.Event
		err    error
	)
	if status := r.URL.Query().Get("status"); status != "" {
		events, err = c.Service.ListEventsByStatus(r.Context(), domain.EventStatus(strings.ToUpper(status)))
	} else {
		events, err = c.Service.ListEvents(r.Context())
	}
	if err != nil {
		c.fail(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, nonNil(events))
}

// ListUpcomingEvents godoc
// @Summary List upcoming events
// @Description Active events that have not started yet, soonest first.
// @Tags events
// @Produce json
// @Success 200 {object} controllers.EventListSuccessResponse
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/upcoming [get]
func (c *EventController) ListUpcomingEvents(w http.ResponseWriter, r *http.Request) {
	var cached []*domain.Event
	if c.Cache.Fetch(r.Context(), domain.UpcomingEventsCacheKey, &cached) {
		helpers.WriteJSONSuccess(w, http.StatusOK, nonNil(cached))
		return
	}
	events, err := c.Service.ListUpcomingEvents(r.Context())
	if err != nil {
		c.fail(w, r, err)
		return
	}
	events = nonNil(events)
	c.Cache.Put(r.Context(), domain.UpcomingEventsCacheKey, events)
	helpers.WriteJSONSuccess(w, http.StatusOK, events)
}

// GetEventByID godoc
// @Summary Get an event by ID
// @Tags events
// @Produce json
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.EventSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID} [get]
func (c *EventController) GetEventByID(w http.ResponseWriter, r *http.Request) {
	eventID, ok := helpers.PathID(w, r, "eventID")
	if !ok {
		return
	}
	key := domain.EventCacheKey(eventID)
	var cached domain.Event
	if c.Cache.Fetch(r.Context(), key, &cached) {
		helpers.WriteJSONSuccess(w, http.StatusOK, &cached)
		return
	}
	event, err := c.Service.GetEventByID(r.Context(), eventID)
	if err != nil {
		c.fail(w, r, err)
		return
	}
	c.Cache.Put(r.Context(), key, event)
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}

// GetEventAvailability godoc
// @Summary Get event availability
// @Description Capacity, committed attendees and remaining spots of an event.
// @Tags events
// @Produce json
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.EventAvailabilitySuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/availability [get]
func (c *EventController) GetEventAvailability(w http.ResponseWriter, r *http.Request) {
	eventID, ok := helpers.PathID(w, r, "eventID")
	if !ok {
		return
	}
	key := domain.EventAvailabilityCacheKey(eventID)
	var cached domain.EventAvailability
	if c.Cache.Fetch(r.Context(), key, &cached) {
		helpers.WriteJSONSuccess(w, http.StatusOK, &cached)
		return
	}
	availability, err := c.Service.GetEventAvailability(r.Context(), eventID)
	if err != nil {
		c.fail(w, r, err)
		return
	}
	c.Cache.Put(r.Context(), key, availability)
	helpers.WriteJSONSuccess(w, http.StatusOK, availability)
}

// UpdateEvent godoc
// @Summary Update an event
// @Description Replaces name, description, location, dates and capacity. Capacity cannot drop below the current attendee count.
// @Tags events
// @Accept json
// @Produce json
// @Param eventID path string true "Event ID (UUID)"
// @Param event body EventRequest true "Event data"
// @Success 200 {object} controllers.EventSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request or business_rule"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 503 {object} helpers.APIResponse "error.code: unavailable"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID} [put]
func (c *EventController) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := helpers.PathID(w, r, "eventID")
	if !ok {
		return
	}
	var req EventRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	event, keys, err := c.Service.UpdateEvent(r.Context(), eventID, req.toDomain())
	if err != nil {
		c.fail(w, r, err)
		return
	}
	c.Cache.Invalidate(r.Context(), keys...)
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}

// CancelEvent godoc
// @Summary Cancel an event
// @Description Marks the event CANCELLED. Events that already ended cannot be cancelled.
// @Tags events
// @Produce json
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.EventSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request or business_rule"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/cancel [patch]
func (c *EventController) CancelEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := helpers.PathID(w, r, "eventID")
	if !ok {
		return
	}
	event, keys, err := c.Service.CancelEvent(r.Context(), eventID)
	if err != nil {
		c.fail(w, r, err)
		return
	}
	c.Cache.Invalidate(r.Context(), keys...)
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}

// DeleteEvent godoc
// @Summary Delete an event
// @Description Events with attendances cannot be deleted.
// @Tags events
// @Param eventID path string true "Event ID (UUID)"
// @Success 204 "No Content"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request or business_rule"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID} [delete]
func (c *EventController) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := helpers.PathID(w, r, "eventID")
	if !ok {
		return
	}
	keys, err := c.Service.DeleteEvent(r.Context(), eventID)
	if err != nil {
		c.fail(w, r, err)
		return
	}
	c.Cache.Invalidate(r.Context(), keys...)
	w.WriteHeader(http.StatusNoContent)
}

// logServiceError logs errors that map to 5xx. Client errors are expected
// traffic and are left to the request log.
func logServiceError(logger *slog.Logger, r *http.Request, err error) {
	status, _ := helpers.ErrorStatus(err)
	if status < http.StatusInternalServerError {
		return
	}
	logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "status", status, "err", err)
}

// nonNil keeps empty lists encoded as [] rather than null.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

