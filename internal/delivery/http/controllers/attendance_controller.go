package controllers

import (
	"log/slog"
	"net/http"

	"eventcore/internal/delivery/http/helpers"
	"eventcore/internal/domain"

	"github.com/google/uuid"
)

// RegisterAttendanceRequest is the request body for POST /attendances.
type RegisterAttendanceRequest struct {
	EventID       string `json:"event_id"`
	ParticipantID string `json:"participant_id"`
}

// Validate implements Validator.
func (a RegisterAttendanceRequest) Validate() []string {
	var errs []string
	if a.EventID == "" {
		errs = append(errs, "event_id is required")
	} else if _, err := uuid.Parse(a.EventID); err != nil {
		errs = append(errs, "event_id must be a valid UUID")
	}
	if a.ParticipantID == "" {
		errs = append(errs, "participant_id is required")
	} else if _, err := uuid.Parse(a.ParticipantID); err != nil {
		errs = append(errs, "participant_id must be a valid UUID")
	}
	return errs
}

// AttendanceSuccessResponse is the success response envelope for single-attendance endpoints.
type AttendanceSuccessResponse struct {
	Data  *domain.Attendance `json:"data"`
	Error *helpers.APIError  `json:"error"`
}

// AttendanceListSuccessResponse is the success response envelope for attendance list endpoints.
type AttendanceListSuccessResponse struct {
	Data  []*domain.Attendance `json:"data"`
	Error *helpers.APIError    `json:"error"`
}

// EventStatisticsSuccessResponse is the success response envelope for GET /attendances/event/{eventID}/statistics.
type EventStatisticsSuccessResponse struct {
	Data  *domain.EventStatistics `json:"data"`
	Error *helpers.APIError       `json:"error"`
}

type AttendanceController struct {
	Logger  *slog.Logger
	Service domain.AttendanceService
	Cache   *helpers.ResponseCache
}

func NewAttendanceController(logger *slog.Logger, svc domain.AttendanceService, cache *helpers.ResponseCache) *AttendanceController {
	return &AttendanceController{
		Logger:  logger,
		Service: svc,
		Cache:   cache,
	}
}

func (c *AttendanceController) fail(w http.ResponseWriter, r *http.Request, err error) {
	logServiceError(c.Logger, r, err)
	helpers.WriteServiceError(w, err)
}

// Register godoc
// @Summary Register a participant for an event
// @Description Takes one spot of the event. The participant and the event must be active, the event must not have ended, the pair must not already be registered and a spot must be free.
// @Tags attendances
// @Accept json
// @Produce json
// @Param body body RegisterAttendanceRequest true "Event and participant IDs"
// @Success 201 {object} controllers.AttendanceSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request or business_rule"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (already registered)"
// @Failure 503 {object} helpers.APIResponse "error.code: unavailable (retry)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /attendances [post]
func (c *AttendanceController) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterAttendanceRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	a, keys, err := c.Service.Register(r.Context(), req.EventID, req.ParticipantID)
	if err != nil {
		c.fail(w, r, err)
		return
	}
	c.Cache.Invalidate(r.Context(), keys...)
	helpers.WriteJSONSuccess(w, http.StatusCreated, a)
}

// GetAttendanceByID godoc
// @Summary Get an attendance by ID
// @Tags attendances
// @Produce json
// @Param attendanceID path string true "Attendance ID (UUID)"
// @Success 200 {object} controllers.AttendanceSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /attendances/{attendanceID} [get]
func (c *AttendanceController) GetAttendanceByID(w http.ResponseWriter, r *http.Request) {
	attendanceID, ok := helpers.PathID(w, r, "attendanceID")
	if !ok {
		return
	}
	a, err := c.Service.GetAttendanceByID(r.Context(), attendanceID)
	if err != nil {
		c.fail(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, a)
}

// CheckIn godoc
// @Summary Check in an attendance
// @Tags attendances
// @Produce json
// @Param attendanceID path string true "Attendance ID (UUID)"
// @Success 200 {object} controllers.AttendanceSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request or business_rule"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 503 {object} helpers.APIResponse "error.code: unavailable (retry)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /attendances/{attendanceID}/check-in [patch]
func (c *AttendanceController) CheckIn(w http.ResponseWriter, r *http.Request) {
	attendanceID, ok := helpers.PathID(w, r, "attendanceID")
	if !ok {
		return
	}
	a, keys, err := c.Service.CheckIn(r.Context(), attendanceID)
	if err != nil {
		c.fail(w, r, err)
		return
	}
	c.Cache.Invalidate(r.Context(), keys...)
	helpers.WriteJSONSuccess(w, http.StatusOK, a)
}

// Cancel godoc
// @Summary Cancel an attendance
// @Description Releases the spot held by the attendance. Cancelled attendances are final.
// @Tags attendances
// @Produce json
// @Param attendanceID path string true "Attendance ID (UUID)"
// @Success 200 {object} controllers.AttendanceSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request or business_rule"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 503 {object} helpers.APIResponse "error.code: unavailable (retry)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /attendances/{attendanceID}/cancel [patch]
func (c *AttendanceController) Cancel(w http.ResponseWriter, r *http.Request) {
	attendanceID, ok := helpers.PathID(w, r, "attendanceID")
	if !ok {
		return
	}
	a, keys, err := c.Service.Cancel(r.Context(), attendanceID)
	if err != nil {
		c.fail(w, r, err)
		return
	}
	c.Cache.Invalidate(r.Context(), keys...)
	helpers.WriteJSONSuccess(w, http.StatusOK, a)
}

// ListByEvent godoc
// @Summary List the attendances of an event
// @Tags attendances
// @Produce json
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.AttendanceListSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /attendances/event/{eventID} [get]
func (c *AttendanceController) ListByEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := helpers.PathID(w, r, "eventID")
	if !ok {
		return
	}
	as, err := c.Service.ListByEvent(r.Context(), eventID)
	if err != nil {
		c.fail(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, nonNil(as))
}

// ListByParticipant godoc
// @Summary List the attendances of a participant
// @Tags attendances
// @Produce json
// @Param participantID path string true "Participant ID (UUID)"
// @Success 200 {object} controllers.AttendanceListSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /attendances/participant/{participantID} [get]
func (c *AttendanceController) ListByParticipant(w http.ResponseWriter, r *http.Request) {
	participantID, ok := helpers.PathID(w, r, "participantID")
	if !ok {
		return
	}
	as, err := c.Service.ListByParticipant(r.Context(), participantID)
	if err != nil {
		c.fail(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, nonNil(as))
}

// GetEventStatistics godoc
// @Summary Get attendance statistics of an event
// @Description Per-status attendance counts, available spots and occupancy percentage.
// @Tags attendances
// @Produce json
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.EventStatisticsSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /attendances/event/{eventID}/statistics [get]
func (c *AttendanceController) GetEventStatistics(w http.ResponseWriter, r *http.Request) {
	eventID, ok := helpers.PathID(w, r, "eventID")
	if !ok {
		return
	}
	key := domain.EventStatsCacheKey(eventID)
	var cached domain.EventStatistics
	if c.Cache.Fetch(r.Context(), key, &cached) {
		helpers.WriteJSONSuccess(w, http.StatusOK, &cached)
		return
	}
	stats, err := c.Service.GetEventStatistics(r.Context(), eventID)
	if err != nil {
		c.fail(w, r, err)
		return
	}
	c.Cache.PutStats(r.Context(), key, stats)
	helpers.WriteJSONSuccess(w, http.StatusOK, stats)
}

// ReconcileEvent godoc
// @Summary Recompute an event's attendee counter
// @Description Sets current_attendees to the number of REGISTERED and CHECKED_IN attendances, capped at capacity.
// @Tags events
// @Produce json
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.EventSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 503 {object} helpers.APIResponse "error.code: unavailable (retry)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/reconcile [post]
func (c *AttendanceController) ReconcileEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := helpers.PathID(w, r, "eventID")
	if !ok {
		return
	}
	event, keys, err := c.Service.ReconcileAttendees(r.Context(), eventID)
	if err != nil {
		c.fail(w, r, err)
		return
	}
	c.Cache.Invalidate(r.Context(), keys...)
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}
