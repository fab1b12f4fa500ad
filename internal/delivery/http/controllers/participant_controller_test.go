package controllers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"eventcore/internal/delivery/http/helpers"
	"eventcore/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParticipantRequest_Validate(t *testing.T) {
	phone := func(s string) *string { return &s }
	valid := ParticipantRequest{
		FirstName:      "Ada",
		LastName:       "Lovelace",
		Email:          "ada@example.com",
		Phone:          phone("3001234567"),
		DocumentNumber: "CC-12345",
	}

	tests := []struct {
		name    string
		mutate  func(p *ParticipantRequest)
		wantErr string
	}{
		{name: "valid", mutate: func(*ParticipantRequest) {}},
		{name: "no phone", mutate: func(p *ParticipantRequest) { p.Phone = nil }},
		{name: "first name too short", mutate: func(p *ParticipantRequest) { p.FirstName = "A" }, wantErr: "first_name must be between 2 and 100"},
		{name: "last name missing", mutate: func(p *ParticipantRequest) { p.LastName = "  " }, wantErr: "last_name is required"},
		{name: "bad email", mutate: func(p *ParticipantRequest) { p.Email = "ada.example.com" }, wantErr: "email must be valid"},
		{name: "long email", mutate: func(p *ParticipantRequest) { p.Email = strings.Repeat("a", 140) + "@example.com" }, wantErr: "email must not exceed 150"},
		{name: "short phone", mutate: func(p *ParticipantRequest) { p.Phone = phone("12345") }, wantErr: "phone must be a valid number"},
		{name: "letters in phone", mutate: func(p *ParticipantRequest) { p.Phone = phone("300123456a") }, wantErr: "phone must be a valid number"},
		{name: "short document", mutate: func(p *ParticipantRequest) { p.DocumentNumber = "1234" }, wantErr: "document_number must be between 5 and 50"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)
			errs := req.Validate()
			if tt.wantErr == "" {
				assert.Empty(t, errs)
				return
			}
			require.Len(t, errs, 1)
			assert.Contains(t, errs[0], tt.wantErr)
		})
	}
}

func TestParticipantController_CreateParticipant(t *testing.T) {
	body := map[string]any{
		"first_name":      " Ada ",
		"last_name":       "Lovelace",
		"email":           "Ada@Example.com",
		"document_number": "CC-12345",
	}

	t.Run("success normalizes input", func(t *testing.T) {
		fake := &fakeParticipantService{}
		ctrl := NewParticipantController(testLogger, fake, nil)
		rr := httptest.NewRecorder()
		ctrl.CreateParticipant(rr, httptest.NewRequest(http.MethodPost, "http://test/participants", jsonBody(t, body)))

		require.Equal(t, http.StatusCreated, rr.Code)
		var got domain.Participant
		decodeEnvelope(t, rr, &got)
		assert.Equal(t, testParticipantID, got.ID)
		assert.Equal(t, "Ada", fake.lastChanges.FirstName)
		assert.Equal(t, "ada@example.com", fake.lastChanges.Email)
		assert.Nil(t, fake.lastChanges.Phone)
	})

	t.Run("duplicate email", func(t *testing.T) {
		fake := &fakeParticipantService{err: domain.ErrDuplicateEmail}
		ctrl := NewParticipantController(testLogger, fake, nil)
		rr := httptest.NewRecorder()
		ctrl.CreateParticipant(rr, httptest.NewRequest(http.MethodPost, "http://test/participants", jsonBody(t, body)))

		require.Equal(t, http.StatusConflict, rr.Code)
		envelope := decodeEnvelope(t, rr, nil)
		assert.Equal(t, helpers.ErrCodeConflict, envelope.Error.Code)
	})

	t.Run("validation short-circuits service", func(t *testing.T) {
		fake := &fakeParticipantService{}
		ctrl := NewParticipantController(testLogger, fake, nil)
		rr := httptest.NewRecorder()
		ctrl.CreateParticipant(rr, httptest.NewRequest(http.MethodPost, "http://test/participants", jsonBody(t, map[string]any{"email": "x"})))

		require.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, 0, fake.calls)
	})
}

func TestParticipantController_GetParticipant(t *testing.T) {
	p := &domain.Participant{ID: testParticipantID, Email: "ada@example.com", Status: domain.ParticipantStatusActive}

	t.Run("by id is cached", func(t *testing.T) {
		fake := &fakeParticipantService{participant: p}
		cache := newMemCache()
		ctrl := NewParticipantController(testLogger, fake, cache.responseCache())
		for i := 0; i < 2; i++ {
			req := httptest.NewRequest(http.MethodGet, "http://test/participants/"+testParticipantID, nil)
			req.SetPathValue("participantID", testParticipantID)
			rr := httptest.NewRecorder()
			ctrl.GetParticipantByID(rr, req)
			require.Equal(t, http.StatusOK, rr.Code)
		}
		assert.Equal(t, 1, fake.calls)
		assert.Contains(t, cache.entries, domain.ParticipantCacheKey(testParticipantID))
	})

	t.Run("by email", func(t *testing.T) {
		fake := &fakeParticipantService{participant: p}
		ctrl := NewParticipantController(testLogger, fake, nil)
		req := httptest.NewRequest(http.MethodGet, "http://test/participants/email/ADA@example.com", nil)
		req.SetPathValue("email", "ADA@example.com")
		rr := httptest.NewRecorder()
		ctrl.GetParticipantByEmail(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "ada@example.com", fake.lastEmail)
	})

	t.Run("by malformed email", func(t *testing.T) {
		fake := &fakeParticipantService{participant: p}
		ctrl := NewParticipantController(testLogger, fake, nil)
		req := httptest.NewRequest(http.MethodGet, "http://test/participants/email/nobody", nil)
		req.SetPathValue("email", "nobody")
		rr := httptest.NewRecorder()
		ctrl.GetParticipantByEmail(rr, req)

		require.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, 0, fake.calls)
	})

	t.Run("not found", func(t *testing.T) {
		fake := &fakeParticipantService{err: domain.ErrNotFound}
		ctrl := NewParticipantController(testLogger, fake, nil)
		req := httptest.NewRequest(http.MethodGet, "http://test/participants/"+testParticipantID, nil)
		req.SetPathValue("participantID", testParticipantID)
		rr := httptest.NewRecorder()
		ctrl.GetParticipantByID(rr, req)

		require.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestParticipantController_ListParticipants(t *testing.T) {
	fake := &fakeParticipantService{participants: []*domain.Participant{{ID: testParticipantID}}}
	ctrl := NewParticipantController(testLogger, fake, nil)
	rr := httptest.NewRecorder()
	ctrl.ListParticipants(rr, httptest.NewRequest(http.MethodGet, "http://test/participants?status=blocked", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, domain.ParticipantStatusBlocked, fake.lastStatus)
	var got []*domain.Participant
	decodeEnvelope(t, rr, &got)
	require.Len(t, got, 1)
}

func TestParticipantController_UpdateParticipantStatus(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		fakeErr    error
		wantStatus int
		wantCalls  int
	}{
		{name: "blocked", body: `{"status":"BLOCKED"}`, wantStatus: http.StatusOK, wantCalls: 1},
		{name: "unknown status", body: `{"status":"LATE"}`, wantStatus: http.StatusBadRequest},
		{name: "missing status", body: `{}`, wantStatus: http.StatusBadRequest},
		{name: "service error", body: `{"status":"INACTIVE"}`, fakeErr: errors.New("db down"), wantStatus: http.StatusInternalServerError, wantCalls: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeParticipantService{
				err:         tt.fakeErr,
				participant: &domain.Participant{ID: testParticipantID, Status: domain.ParticipantStatusBlocked},
				keys:        []string{domain.ParticipantCacheKey(testParticipantID)},
			}
			cache := newMemCache()
			ctrl := NewParticipantController(testLogger, fake, cache.responseCache())
			req := httptest.NewRequest(http.MethodPatch, "http://test/participants/"+testParticipantID+"/status", strings.NewReader(tt.body))
			req.SetPathValue("participantID", testParticipantID)
			rr := httptest.NewRecorder()
			ctrl.UpdateParticipantStatus(rr, req)

			require.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.wantCalls, fake.calls)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, domain.ParticipantStatusBlocked, fake.lastStatus)
				assert.Equal(t, []string{domain.ParticipantCacheKey(testParticipantID)}, cache.deleted)
			}
		})
	}
}

func TestParticipantController_DeleteParticipant(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		fake := &fakeParticipantService{keys: []string{domain.ParticipantCacheKey(testParticipantID)}}
		cache := newMemCache()
		ctrl := NewParticipantController(testLogger, fake, cache.responseCache())
		req := httptest.NewRequest(http.MethodDelete, "http://test/participants/"+testParticipantID, nil)
		req.SetPathValue("participantID", testParticipantID)
		rr := httptest.NewRecorder()
		ctrl.DeleteParticipant(rr, req)

		require.Equal(t, http.StatusNoContent, rr.Code)
		assert.Equal(t, []string{domain.ParticipantCacheKey(testParticipantID)}, cache.deleted)
	})

	t.Run("has attendances", func(t *testing.T) {
		fake := &fakeParticipantService{err: domain.ErrParticipantHasAttendances}
		ctrl := NewParticipantController(testLogger, fake, nil)
		req := httptest.NewRequest(http.MethodDelete, "http://test/participants/"+testParticipantID, nil)
		req.SetPathValue("participantID", testParticipantID)
		rr := httptest.NewRecorder()
		ctrl.DeleteParticipant(rr, req)

		require.Equal(t, http.StatusBadRequest, rr.Code)
		envelope := decodeEnvelope(t, rr, nil)
		assert.Equal(t, helpers.ErrCodeBusinessRule, envelope.Error.Code)
	})
}
