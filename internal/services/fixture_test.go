package services

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"eventcore/internal/domain"
	"eventcore/internal/repository/memory"

	"github.com/stretchr/testify/require"
)

var (
	testNow     = time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)
	testLogger  = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
	testTimeout = 5 * time.Second
)

type fixture struct {
	store        *memory.Store
	repos        domain.Repositories
	events       *eventService
	participants *participantService
	attendance   *attendanceService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	return newFixtureWithTx(t, store, store)
}

func newFixtureWithTx(t *testing.T, store *memory.Store, tx domain.TxManager) *fixture {
	t.Helper()
	repos := store.Repositories()
	clock := func() time.Time { return testNow }

	events := NewEventService(repos, tx, testLogger, 3, testTimeout).(*eventService)
	events.now = clock
	participants := NewParticipantService(repos, tx, testLogger, 3, testTimeout).(*participantService)
	participants.now = clock
	attendance := NewAttendanceService(repos, tx, testLogger, 3, testTimeout).(*attendanceService)
	attendance.now = clock

	return &fixture{
		store:        store,
		repos:        repos,
		events:       events,
		participants: participants,
		attendance:   attendance,
	}
}

func (f *fixture) createEvent(t *testing.T, capacity int) *domain.Event {
	t.Helper()
	start := testNow.Add(30 * 24 * time.Hour)
	e := domain.NewEvent("GopherCon", "talks", "Hall A", start, start.Add(8*time.Hour), capacity)
	created, keys, err := f.events.CreateEvent(context.Background(), e)
	require.NoError(t, err)
	require.Equal(t, []string{domain.UpcomingEventsCacheKey}, keys)
	return created
}

var participantSeq atomic.Int64

func (f *fixture) createParticipant(t *testing.T) *domain.Participant {
	t.Helper()
	n := participantSeq.Add(1)
	p := domain.NewParticipant("Ada", "Lovelace",
		"ada"+strconv.FormatInt(n, 10)+"@example.com", nil, "DOC"+strconv.FormatInt(10000+n, 10))
	created, err := f.participants.CreateParticipant(context.Background(), p)
	require.NoError(t, err)
	return created
}

func (f *fixture) reloadEvent(t *testing.T, id string) *domain.Event {
	t.Helper()
	e, err := f.repos.Events.GetByID(context.Background(), id)
	require.NoError(t, err)
	return e
}

// flakyTx fails the first conflicts calls with ErrConcurrentUpdate and then
// delegates to the wrapped TxManager.
type flakyTx struct {
	next      domain.TxManager
	conflicts int
	calls     int
}

func (f *flakyTx) WithinTx(ctx context.Context, fn func(ctx context.Context, repos domain.Repositories) error) error {
	f.calls++
	if f.calls <= f.conflicts {
		return domain.ErrConcurrentUpdate
	}
	return f.next.WithinTx(ctx, fn)
}
