// Package memory is an in-process implementation of the domain repositories
// and TxManager. It backs STORAGE_DRIVER=memory and the service tests.
//
// Writers are serialised by a single mutex. A transaction works on a private
// copy of the state that is published atomically only when the callback
// succeeds, so readers never observe a partial unit of work.
package memory

import (
	"context"
	"maps"
	"sync"
	"sync/atomic"

	"eventcore/internal/domain"
)

type state struct {
	events       map[string]domain.Event
	participants map[string]domain.Participant
	attendances  map[string]domain.Attendance
}

func newState() *state {
	return &state{
		events:       map[string]domain.Event{},
		participants: map[string]domain.Participant{},
		attendances:  map[string]domain.Attendance{},
	}
}

func (s *state) clone() *state {
	return &state{
		events:       maps.Clone(s.events),
		participants: maps.Clone(s.participants),
		attendances:  maps.Clone(s.attendances),
	}
}

// Store holds the committed state.
type Store struct {
	mu      sync.Mutex
	current atomic.Pointer[state]
}

// New returns an empty Store.
func New() *Store {
	s := &Store{}
	s.current.Store(newState())
	return s
}

// Repositories returns repositories that read the latest committed state and
// commit every write on its own.
func (s *Store) Repositories() domain.Repositories {
	return bind(autoCommit{store: s})
}

// WithinTx implements domain.TxManager.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos domain.Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}

	draft := s.current.Load().clone()
	if err := fn(ctx, bind(txView{draft: draft})); err != nil {
		return err
	}
	s.current.Store(draft)
	return nil
}

// view abstracts over a transaction draft and the committed state.
type view interface {
	read() *state
	write(fn func(st *state) error) error
}

type txView struct {
	draft *state
}

func (v txView) read() *state { return v.draft }

func (v txView) write(fn func(st *state) error) error { return fn(v.draft) }

type autoCommit struct {
	store *Store
}

func (v autoCommit) read() *state { return v.store.current.Load() }

func (v autoCommit) write(fn func(st *state) error) error {
	v.store.mu.Lock()
	defer v.store.mu.Unlock()
	draft := v.store.current.Load().clone()
	if err := fn(draft); err != nil {
		return err
	}
	v.store.current.Store(draft)
	return nil
}

func bind(v view) domain.Repositories {
	return domain.Repositories{
		Events:       &eventRepository{v: v},
		Participants: &participantRepository{v: v},
		Attendances:  &attendanceRepository{v: v},
	}
}
