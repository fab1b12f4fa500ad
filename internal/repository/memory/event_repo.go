package memory

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/google/uuid"

	"eventcore/internal/domain"
)

type eventRepository struct {
	v view
}

func (r *eventRepository) Create(ctx context.Context, e *domain.Event) error {
	return r.v.write(func(st *state) error {
		if err := checkEventCounter(e); err != nil {
			return err
		}
		e.ID = uuid.NewString()
		st.events[e.ID] = *e
		return nil
	})
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	e, ok := r.v.read().events[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &e, nil
}

// GetByIDForUpdate needs no extra locking: transactions already run one at a time.
func (r *eventRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Event, error) {
	return r.GetByID(ctx, id)
}

func (r *eventRepository) Update(ctx context.Context, e *domain.Event) error {
	return r.v.write(func(st *state) error {
		if _, ok := st.events[e.ID]; !ok {
			return domain.ErrNotFound
		}
		if err := checkEventCounter(e); err != nil {
			return err
		}
		st.events[e.ID] = *e
		return nil
	})
}

func (r *eventRepository) Delete(ctx context.Context, id string) error {
	return r.v.write(func(st *state) error {
		if _, ok := st.events[id]; !ok {
			return domain.ErrNotFound
		}
		for _, a := range st.attendances {
			if a.EventID == id {
				return domain.ErrEventHasAttendances
			}
		}
		delete(st.events, id)
		return nil
	})
}

func (r *eventRepository) List(ctx context.Context) ([]*domain.Event, error) {
	return r.filter(func(*domain.Event) bool { return true }), nil
}

func (r *eventRepository) ListByStatus(ctx context.Context, status domain.EventStatus) ([]*domain.Event, error) {
	return r.filter(func(e *domain.Event) bool { return e.Status == status }), nil
}

func (r *eventRepository) ListUpcoming(ctx context.Context, now time.Time) ([]*domain.Event, error) {
	return r.filter(func(e *domain.Event) bool { return e.IsActive() && e.IsFuture(now) }), nil
}

func (r *eventRepository) filter(keep func(*domain.Event) bool) []*domain.Event {
	events := make([]*domain.Event, 0)
	for _, e := range r.v.read().events {
		if keep(&e) {
			events = append(events, &e)
		}
	}
	slices.SortFunc(events, func(a, b *domain.Event) int {
		if c := a.StartDate.Compare(b.StartDate); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return events
}

// checkEventCounter mirrors the events_attendees_within_capacity constraint.
func checkEventCounter(e *domain.Event) error {
	if e.CurrentAttendees < 0 || e.CurrentAttendees > e.Capacity {
		return domain.ErrCapacityReached
	}
	return nil
}
