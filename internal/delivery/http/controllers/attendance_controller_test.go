package controllers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"eventcore/internal/delivery/http/helpers"
	"eventcore/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttendanceController_Register(t *testing.T) {
	occupancy := []string{
		domain.EventCacheKey(testEventID),
		domain.EventStatsCacheKey(testEventID),
		domain.EventAvailabilityCacheKey(testEventID),
	}
	validBody := `{"event_id":"` + testEventID + `","participant_id":"` + testParticipantID + `"}`

	tests := []struct {
		name       string
		body       string
		fakeErr    error
		wantStatus int
		wantCode   string
		wantCalls  int
	}{
		{name: "success", body: validBody, wantStatus: http.StatusCreated, wantCalls: 1},
		{name: "missing ids", body: `{}`, wantStatus: http.StatusBadRequest, wantCode: helpers.ErrCodeBadRequest},
		{name: "malformed event id", body: `{"event_id":"1","participant_id":"` + testParticipantID + `"}`, wantStatus: http.StatusBadRequest, wantCode: helpers.ErrCodeBadRequest},
		{name: "event full", body: validBody, fakeErr: domain.ErrCapacityReached, wantStatus: http.StatusBadRequest, wantCode: helpers.ErrCodeBusinessRule, wantCalls: 1},
		{name: "already registered", body: validBody, fakeErr: domain.ErrDuplicateAttendance, wantStatus: http.StatusConflict, wantCode: helpers.ErrCodeConflict, wantCalls: 1},
		{name: "participant missing", body: validBody, fakeErr: fmt.Errorf("participant %w: x", domain.ErrNotFound), wantStatus: http.StatusNotFound, wantCode: helpers.ErrCodeNotFound, wantCalls: 1},
		{name: "contention", body: validBody, fakeErr: fmt.Errorf("register: %w", domain.ErrConcurrentUpdate), wantStatus: http.StatusServiceUnavailable, wantCode: helpers.ErrCodeUnavailable, wantCalls: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeAttendanceService{
				err:        tt.fakeErr,
				attendance: &domain.Attendance{ID: testAttendanceID, EventID: testEventID, ParticipantID: testParticipantID, Status: domain.AttendanceStatusRegistered},
				keys:       occupancy,
			}
			cache := newMemCache()
			ctrl := NewAttendanceController(testLogger, fake, cache.responseCache())
			rr := httptest.NewRecorder()
			ctrl.Register(rr, httptest.NewRequest(http.MethodPost, "http://test/attendances", strings.NewReader(tt.body)))

			require.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.wantCalls, fake.calls)
			if tt.wantStatus == http.StatusCreated {
				var got domain.Attendance
				decodeEnvelope(t, rr, &got)
				assert.Equal(t, testAttendanceID, got.ID)
				assert.Equal(t, domain.AttendanceStatusRegistered, got.Status)
				assert.Equal(t, testEventID, fake.lastEventID)
				assert.Equal(t, testParticipantID, fake.lastParticipantID)
				assert.Equal(t, occupancy, cache.deleted)
				return
			}
			envelope := decodeEnvelope(t, rr, nil)
			require.NotNil(t, envelope.Error)
			assert.Equal(t, tt.wantCode, envelope.Error.Code)
			assert.Empty(t, cache.deleted)
		})
	}
}

func TestAttendanceController_Transitions(t *testing.T) {
	tests := []struct {
		name       string
		call       func(c *AttendanceController, w http.ResponseWriter, r *http.Request)
		fakeErr    error
		wantStatus int
	}{
		{name: "check in", call: (*AttendanceController).CheckIn, wantStatus: http.StatusOK},
		{name: "check in twice", call: (*AttendanceController).CheckIn, fakeErr: domain.ErrAlreadyCheckedIn, wantStatus: http.StatusBadRequest},
		{name: "cancel", call: (*AttendanceController).Cancel, wantStatus: http.StatusOK},
		{name: "cancel cancelled", call: (*AttendanceController).Cancel, fakeErr: domain.ErrAlreadyCancelled, wantStatus: http.StatusBadRequest},
		{name: "cancel missing", call: (*AttendanceController).Cancel, fakeErr: domain.ErrNotFound, wantStatus: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeAttendanceService{
				err:        tt.fakeErr,
				attendance: &domain.Attendance{ID: testAttendanceID},
				keys:       []string{domain.EventStatsCacheKey(testEventID)},
			}
			cache := newMemCache()
			ctrl := NewAttendanceController(testLogger, fake, cache.responseCache())
			req := httptest.NewRequest(http.MethodPatch, "http://test/attendances/"+testAttendanceID, nil)
			req.SetPathValue("attendanceID", testAttendanceID)
			rr := httptest.NewRecorder()
			tt.call(ctrl, rr, req)

			require.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, testAttendanceID, fake.lastAttendanceID)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, []string{domain.EventStatsCacheKey(testEventID)}, cache.deleted)
			}
		})
	}
}

func TestAttendanceController_Reads(t *testing.T) {
	t.Run("statistics are cached", func(t *testing.T) {
		fake := &fakeAttendanceService{stats: &domain.EventStatistics{TotalRegistered: 3, TotalCheckedIn: 2, TotalCancelled: 1, TotalNoShow: 1, AvailableSpots: 7, OccupancyPercentage: 30}}
		cache := newMemCache()
		ctrl := NewAttendanceController(testLogger, fake, cache.responseCache())
		for i := 0; i < 2; i++ {
			req := httptest.NewRequest(http.MethodGet, "http://test/attendances/event/"+testEventID+"/statistics", nil)
			req.SetPathValue("eventID", testEventID)
			rr := httptest.NewRecorder()
			ctrl.GetEventStatistics(rr, req)

			require.Equal(t, http.StatusOK, rr.Code)
			var got domain.EventStatistics
			decodeEnvelope(t, rr, &got)
			assert.Equal(t, int64(3), got.TotalRegistered)
			assert.InDelta(t, 30.0, got.OccupancyPercentage, 1e-9)
		}
		assert.Equal(t, 1, fake.calls)
		assert.Contains(t, cache.entries, domain.EventStatsCacheKey(testEventID))
	})

	t.Run("list by event", func(t *testing.T) {
		fake := &fakeAttendanceService{attendances: []*domain.Attendance{{ID: testAttendanceID}}}
		ctrl := NewAttendanceController(testLogger, fake, nil)
		req := httptest.NewRequest(http.MethodGet, "http://test/attendances/event/"+testEventID, nil)
		req.SetPathValue("eventID", testEventID)
		rr := httptest.NewRecorder()
		ctrl.ListByEvent(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		var got []*domain.Attendance
		decodeEnvelope(t, rr, &got)
		require.Len(t, got, 1)
	})

	t.Run("list by unknown participant", func(t *testing.T) {
		fake := &fakeAttendanceService{err: domain.ErrNotFound}
		ctrl := NewAttendanceController(testLogger, fake, nil)
		req := httptest.NewRequest(http.MethodGet, "http://test/attendances/participant/"+testParticipantID, nil)
		req.SetPathValue("participantID", testParticipantID)
		rr := httptest.NewRecorder()
		ctrl.ListByParticipant(rr, req)

		require.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("get by malformed id", func(t *testing.T) {
		fake := &fakeAttendanceService{}
		ctrl := NewAttendanceController(testLogger, fake, nil)
		req := httptest.NewRequest(http.MethodGet, "http://test/attendances/nope", nil)
		req.SetPathValue("attendanceID", "nope")
		rr := httptest.NewRecorder()
		ctrl.GetAttendanceByID(rr, req)

		require.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, 0, fake.calls)
	})
}

func TestAttendanceController_ReconcileEvent(t *testing.T) {
	keys := []string{domain.EventCacheKey(testEventID)}
	fake := &fakeAttendanceService{event: &domain.Event{ID: testEventID, Capacity: 10, CurrentAttendees: 4}, keys: keys}
	cache := newMemCache()
	ctrl := NewAttendanceController(testLogger, fake, cache.responseCache())
	req := httptest.NewRequest(http.MethodPost, "http://test/events/"+testEventID+"/reconcile", nil)
	req.SetPathValue("eventID", testEventID)
	rr := httptest.NewRecorder()
	ctrl.ReconcileEvent(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var got domain.Event
	decodeEnvelope(t, rr, &got)
	assert.Equal(t, 4, got.CurrentAttendees)
	assert.Equal(t, keys, cache.deleted)
}
