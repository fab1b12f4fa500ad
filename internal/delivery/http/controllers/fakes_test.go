package controllers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"eventcore/internal/delivery/http/helpers"
	"eventcore/internal/domain"

	"github.com/stretchr/testify/require"
)

// testLogger is a no-op logger for controller tests so we don't assert on log output.
var testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

const (
	testEventID       = "6f1c2d3e-4b5a-4c6d-8e7f-0a1b2c3d4e5f"
	testParticipantID = "0d9e8f7a-6b5c-4d3e-9f2a-1b0c9d8e7f6a"
	testAttendanceID  = "a1b2c3d4-e5f6-4a7b-8c9d-0e1f2a3b4c5d"
)

// memCache implements domain.CacheStore and records invalidations.
type memCache struct {
	entries map[string][]byte
	deleted []string
}

func newMemCache() *memCache {
	return &memCache{entries: map[string][]byte{}}
}

func (m *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m.entries[key]
	return v, ok, nil
}

func (m *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.entries[key] = value
	return nil
}

func (m *memCache) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.entries, k)
		m.deleted = append(m.deleted, k)
	}
	return nil
}

func (m *memCache) responseCache() *helpers.ResponseCache {
	return helpers.NewResponseCache(m, testLogger, time.Minute, time.Minute)
}

// decodeEnvelope decodes the response envelope and, when dest is non-nil,
// re-decodes its data into dest.
func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder, dest any) helpers.APIResponse {
	t.Helper()
	var envelope helpers.APIResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&envelope), "response must be valid JSON envelope")
	if dest != nil {
		require.Nil(t, envelope.Error, "success response must have error nil")
		raw, err := json.Marshal(envelope.Data)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, dest))
	}
	return envelope
}

// fakeEventService implements domain.EventService for handler tests.
type fakeEventService struct {
	err          error
	event        *domain.Event
	events       []*domain.Event
	availability *domain.EventAvailability
	keys         []string
	calls        map[string]int
	lastEventID  string
	lastChanges  *domain.Event
	lastStatus   domain.EventStatus
}

func (f *fakeEventService) record(op string) {
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[op]++
}

func (f *fakeEventService) CreateEvent(_ context.Context, e *domain.Event) (*domain.Event, []string, error) {
	f.record("CreateEvent")
	f.lastChanges = e
	if f.err != nil {
		return nil, nil, f.err
	}
	created := *e
	created.ID = testEventID
	created.Status = domain.EventStatusActive
	return &created, f.keys, nil
}

func (f *fakeEventService) UpdateEvent(_ context.Context, id string, changes *domain.Event) (*domain.Event, []string, error) {
	f.record("UpdateEvent")
	f.lastEventID = id
	f.lastChanges = changes
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.event, f.keys, nil
}

func (f *fakeEventService) GetEventByID(_ context.Context, id string) (*domain.Event, error) {
	f.record("GetEventByID")
	f.lastEventID = id
	return f.event, f.err
}

func (f *fakeEventService) GetEventAvailability(_ context.Context, id string) (*domain.EventAvailability, error) {
	f.record("GetEventAvailability")
	f.lastEventID = id
	return f.availability, f.err
}

func (f *fakeEventService) ListEvents(context.Context) ([]*domain.Event, error) {
	f.record("ListEvents")
	return f.events, f.err
}

func (f *fakeEventService) ListUpcomingEvents(context.Context) ([]*domain.Event, error) {
	f.record("ListUpcomingEvents")
	return f.events, f.err
}

func (f *fakeEventService) ListEventsByStatus(_ context.Context, status domain.EventStatus) ([]*domain.Event, error) {
	f.record("ListEventsByStatus")
	f.lastStatus = status
	return f.events, f.err
}

func (f *fakeEventService) CancelEvent(_ context.Context, id string) (*domain.Event, []string, error) {
	f.record("CancelEvent")
	f.lastEventID = id
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.event, f.keys, nil
}

func (f *fakeEventService) DeleteEvent(_ context.Context, id string) ([]string, error) {
	f.record("DeleteEvent")
	f.lastEventID = id
	if f.err != nil {
		return nil, f.err
	}
	return f.keys, nil
}

// fakeParticipantService implements domain.ParticipantService for handler tests.
type fakeParticipantService struct {
	err          error
	participant  *domain.Participant
	participants []*domain.Participant
	keys         []string
	calls        int
	lastID       string
	lastEmail    string
	lastStatus   domain.ParticipantStatus
	lastChanges  *domain.Participant
}

func (f *fakeParticipantService) CreateParticipant(_ context.Context, p *domain.Participant) (*domain.Participant, error) {
	f.calls++
	f.lastChanges = p
	if f.err != nil {
		return nil, f.err
	}
	created := *p
	created.ID = testParticipantID
	created.Status = domain.ParticipantStatusActive
	return &created, nil
}

func (f *fakeParticipantService) UpdateParticipant(_ context.Context, id string, changes *domain.Participant) (*domain.Participant, []string, error) {
	f.calls++
	f.lastID = id
	f.lastChanges = changes
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.participant, f.keys, nil
}

func (f *fakeParticipantService) UpdateParticipantStatus(_ context.Context, id string, status domain.ParticipantStatus) (*domain.Participant, []string, error) {
	f.calls++
	f.lastID = id
	f.lastStatus = status
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.participant, f.keys, nil
}

func (f *fakeParticipantService) GetParticipantByID(_ context.Context, id string) (*domain.Participant, error) {
	f.calls++
	f.lastID = id
	return f.participant, f.err
}

func (f *fakeParticipantService) GetParticipantByEmail(_ context.Context, email string) (*domain.Participant, error) {
	f.calls++
	f.lastEmail = email
	return f.participant, f.err
}

func (f *fakeParticipantService) ListParticipants(context.Context) ([]*domain.Participant, error) {
	f.calls++
	return f.participants, f.err
}

func (f *fakeParticipantService) ListParticipantsByStatus(_ context.Context, status domain.ParticipantStatus) ([]*domain.Participant, error) {
	f.calls++
	f.lastStatus = status
	return f.participants, f.err
}

func (f *fakeParticipantService) DeleteParticipant(_ context.Context, id string) ([]string, error) {
	f.calls++
	f.lastID = id
	if f.err != nil {
		return nil, f.err
	}
	return f.keys, nil
}

// fakeAttendanceService implements domain.AttendanceService for handler tests.
type fakeAttendanceService struct {
	err               error
	attendance        *domain.Attendance
	attendances       []*domain.Attendance
	stats             *domain.EventStatistics
	event             *domain.Event
	keys              []string
	calls             int
	lastEventID       string
	lastParticipantID string
	lastAttendanceID  string
}

func (f *fakeAttendanceService) Register(_ context.Context, eventID, participantID string) (*domain.Attendance, []string, error) {
	f.calls++
	f.lastEventID = eventID
	f.lastParticipantID = participantID
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.attendance, f.keys, nil
}

func (f *fakeAttendanceService) CheckIn(_ context.Context, id string) (*domain.Attendance, []string, error) {
	f.calls++
	f.lastAttendanceID = id
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.attendance, f.keys, nil
}

func (f *fakeAttendanceService) Cancel(_ context.Context, id string) (*domain.Attendance, []string, error) {
	f.calls++
	f.lastAttendanceID = id
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.attendance, f.keys, nil
}

func (f *fakeAttendanceService) GetAttendanceByID(_ context.Context, id string) (*domain.Attendance, error) {
	f.calls++
	f.lastAttendanceID = id
	return f.attendance, f.err
}

func (f *fakeAttendanceService) ListByEvent(_ context.Context, id string) ([]*domain.Attendance, error) {
	f.calls++
	f.lastEventID = id
	return f.attendances, f.err
}

func (f *fakeAttendanceService) ListByParticipant(_ context.Context, id string) ([]*domain.Attendance, error) {
	f.calls++
	f.lastParticipantID = id
	return f.attendances, f.err
}

func (f *fakeAttendanceService) GetEventStatistics(_ context.Context, id string) (*domain.EventStatistics, error) {
	f.calls++
	f.lastEventID = id
	return f.stats, f.err
}

func (f *fakeAttendanceService) ReconcileAttendees(_ context.Context, id string) (*domain.Event, []string, error) {
	f.calls++
	f.lastEventID = id
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.event, f.keys, nil
}
