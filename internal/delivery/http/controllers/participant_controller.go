package controllers

import (
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"eventcore/internal/delivery/http/helpers"
	"eventcore/internal/domain"
)

// emailRegex matches a simple email format (local@domain with at least one dot in domain).
var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

var phoneRegex = regexp.MustCompile(`^[0-9]{10,20}$`)

// ParticipantRequest is the request body for POST /participants and PUT /participants/{participantID}.
type ParticipantRequest struct {
	FirstName      string  `json:"first_name"`
	LastName       string  `json:"last_name"`
	Email          string  `json:"email"`
	Phone          *string `json:"phone"`
	DocumentNumber string  `json:"document_number"`
}

// Validate implements Validator.
func (p ParticipantRequest) Validate() []string {
	var errs []string
	errs = appendLengthErr(errs, "first_name", p.FirstName, 2, 100)
	errs = appendLengthErr(errs, "last_name", p.LastName, 2, 100)
	switch email := strings.TrimSpace(p.Email); {
	case email == "":
		errs = append(errs, "email is required")
	case utf8.RuneCountInString(email) > 150:
		errs = append(errs, "email must not exceed 150 characters")
	case !emailRegex.MatchString(email):
		errs = append(errs, "email must be valid")
	}
	if p.Phone != nil && *p.Phone != "" && !phoneRegex.MatchString(*p.Phone) {
		errs = append(errs, "phone must be a valid number with 10-20 digits")
	}
	errs = appendLengthErr(errs, "document_number", p.DocumentNumber, 5, 50)
	return errs
}

func appendLengthErr(errs []string, field, value string, minLen, maxLen int) []string {
	n := utf8.RuneCountInString(strings.TrimSpace(value))
	if n == 0 {
		return append(errs, field+" is required")
	}
	if n < minLen || n > maxLen {
		return append(errs, field+" must be between "+strconv.Itoa(minLen)+" and "+strconv.Itoa(maxLen)+" characters")
	}
	return errs
}

func (p ParticipantRequest) toDomain() *domain.Participant {
	var phone *string
	if p.Phone != nil && *p.Phone != "" {
		v := *p.Phone
		phone = &v
	}
	return domain.NewParticipant(
		strings.TrimSpace(p.FirstName),
		strings.TrimSpace(p.LastName),
		strings.ToLower(strings.TrimSpace(p.Email)),
		phone,
		strings.TrimSpace(p.DocumentNumber),
	)
}

// UpdateParticipantStatusRequest is the request body for PATCH /participants/{participantID}/status.
type UpdateParticipantStatusRequest struct {
	Status domain.ParticipantStatus `json:"status"`
}

// Validate implements Validator.
func (u UpdateParticipantStatusRequest) Validate() []string {
	if u.Status == "" {
		return []string{"status is required"}
	}
	if !u.Status.Valid() {
		return []string{"status must be one of ACTIVE, INACTIVE, BLOCKED"}
	}
	return nil
}

// ParticipantSuccessResponse is the success response envelope for single-participant endpoints.
type ParticipantSuccessResponse struct {
	Data  *domain.Participant `json:"data"`
	Error *helpers.APIError   `json:"error"`
}

// ParticipantListSuccessResponse is the success response envelope for participant list endpoints.
type ParticipantListSuccessResponse struct {
	Data  []*domain.Participant `json:"data"`
	Error *helpers.APIError     `json:"error"`
}

type ParticipantController struct {
	Logger  *slog.Logger
	Service domain.ParticipantService
	Cache   *helpers.ResponseCache
}

func NewParticipantController(logger *slog.Logger, svc domain.ParticipantService, cache *helpers.ResponseCache) *ParticipantController {
	return &ParticipantController{
		Logger:  logger,
		Service: svc,
		Cache:   cache,
	}
}

func (c *ParticipantController) fail(w http.ResponseWriter, r *http.Request, err error) {
	logServiceError(c.Logger, r, err)
	helpers.WriteServiceError(w, err)
}

// CreateParticipant godoc
// @Summary Create a participant
// @Description Registers a new ACTIVE participant. Email and document number must be unique.
// @Tags participants
// @Accept json
// @Produce json
// @Param participant body ParticipantRequest true "Participant data"
// @Success 201 {object} controllers.ParticipantSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (email or document number in use)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /participants [post]
func (c *ParticipantController) CreateParticipant(w http.ResponseWriter, r *http.Request) {
	var req ParticipantRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	p, err := c.Service.CreateParticipant(r.Context(), req.toDomain())
	if err != nil {
		c.fail(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, p)
}

// ListParticipants godoc
// @Summary List participants
// @Description Lists every participant, or only those in the given status.
// @Tags participants
// @Produce json
// @Param status query string false "Participant status filter" Enums(ACTIVE, INACTIVE, BLOCKED)
// @Success 200 {object} controllers.ParticipantListSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: business_rule (unknown status)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /participants [get]
func (c *ParticipantController) ListParticipants(w http.ResponseWriter, r *http.Request) {
	var (
		ps  []*domain.Participant
		err error
	)
	if status := r.URL.Query().Get("status"); status != "" {
		ps, err = c.Service.ListParticipantsByStatus(r.Context(), domain.ParticipantStatus(strings.ToUpper(status)))
	} else {
		ps, err = c.Service.ListParticipants(r.Context())
	}
	if err != nil {
		c.fail(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, nonNil(ps))
}

// GetParticipantByEmail godoc
// @Summary Get a participant by email
// @Tags participants
// @Produce json
// @Param email path string true "Participant email"
// @Success 200 {object} controllers.ParticipantSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /participants/email/{email} [get]
func (c *ParticipantController) GetParticipantByEmail(w http.ResponseWriter, r *http.Request) {
	email := strings.ToLower(strings.TrimSpace(r.PathValue("email")))
	if !emailRegex.MatchString(email) {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "email must be valid")
		return
	}
	p, err := c.Service.GetParticipantByEmail(r.Context(), email)
	if err != nil {
		c.fail(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, p)
}

// GetParticipantByID godoc
// @Summary Get a participant by ID
// @Tags participants
// @Produce json
// @Param participantID path string true "Participant ID (UUID)"
// @Success 200 {object} controllers.ParticipantSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /participants/{participantID} [get]
func (c *ParticipantController) GetParticipantByID(w http.ResponseWriter, r *http.Request) {
	participantID, ok := helpers.PathID(w, r, "participantID")
	if !ok {
		return
	}
	key := domain.ParticipantCacheKey(participantID)
	var cached domain.Participant
	if c.Cache.Fetch(r.Context(), key, &cached) {
		helpers.WriteJSONSuccess(w, http.StatusOK, &cached)
		return
	}
	p, err := c.Service.GetParticipantByID(r.Context(), participantID)
	if err != nil {
		c.fail(w, r, err)
		return
	}
	c.Cache.Put(r.Context(), key, p)
	helpers.WriteJSONSuccess(w, http.StatusOK, p)
}

// UpdateParticipant godoc
// @Summary Update a participant
// @Description Replaces the participant's details. Email and document number stay unique.
// @Tags participants
// @Accept json
// @Produce json
// @Param participantID path string true "Participant ID (UUID)"
// @Param participant body ParticipantRequest true "Participant data"
// @Success 200 {object} controllers.ParticipantSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /participants/{participantID} [put]
func (c *ParticipantController) UpdateParticipant(w http.ResponseWriter, r *http.Request) {
	participantID, ok := helpers.PathID(w, r, "participantID")
	if !ok {
		return
	}
	var req ParticipantRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	p, keys, err := c.Service.UpdateParticipant(r.Context(), participantID, req.toDomain())
	if err != nil {
		c.fail(w, r, err)
		return
	}
	c.Cache.Invalidate(r.Context(), keys...)
	helpers.WriteJSONSuccess(w, http.StatusOK, p)
}

// UpdateParticipantStatus godoc
// @Summary Change a participant's status
// @Description Only ACTIVE participants can register for events.
// @Tags participants
// @Accept json
// @Produce json
// @Param participantID path string true "Participant ID (UUID)"
// @Param body body UpdateParticipantStatusRequest true "New status"
// @Success 200 {object} controllers.ParticipantSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /participants/{participantID}/status [patch]
func (c *ParticipantController) UpdateParticipantStatus(w http.ResponseWriter, r *http.Request) {
	participantID, ok := helpers.PathID(w, r, "participantID")
	if !ok {
		return
	}
	var req UpdateParticipantStatusRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	p, keys, err := c.Service.UpdateParticipantStatus(r.Context(), participantID, req.Status)
	if err != nil {
		c.fail(w, r, err)
		return
	}
	c.Cache.Invalidate(r.Context(), keys...)
	helpers.WriteJSONSuccess(w, http.StatusOK, p)
}

// DeleteParticipant godoc
// @Summary Delete a participant
// @Description Participants with attendances cannot be deleted.
// @Tags participants
// @Param participantID path string true "Participant ID (UUID)"
// @Success 204 "No Content"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request or business_rule"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /participants/{participantID} [delete]
func (c *ParticipantController) DeleteParticipant(w http.ResponseWriter, r *http.Request) {
	participantID, ok := helpers.PathID(w, r, "participantID")
	if !ok {
		return
	}
	keys, err := c.Service.DeleteParticipant(r.Context(), participantID)
	if err != nil {
		c.fail(w, r, err)
		return
	}
	c.Cache.Invalidate(r.Context(), keys...)
	w.WriteHeader(http.StatusNoContent)
}
