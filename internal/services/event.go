package services

import (
	"context"
	"log/slog"
	"time"

	"eventcore/internal/domain"
)

type eventService struct {
	repos          domain.Repositories
	uow            unitOfWork
	contextTimeout time.Duration
	now            func() time.Time
}

// NewEventService creates an EventService. Reads go through repos; capacity
// and lifecycle mutations run through tx with up to maxAttempts tries.
func NewEventService(
	repos domain.Repositories,
	tx domain.TxManager,
	logger *slog.Logger,
	maxAttempts int,
	timeout time.Duration,
) domain.EventService {
	return &eventService{
		repos:          repos,
		uow:            newUnitOfWork(tx, maxAttempts, logger),
		contextTimeout: timeout,
		now:            time.Now,
	}
}

func (s *eventService) CreateEvent(ctx context.Context, event *domain.Event) (*domain.Event, []string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	now := s.now()
	if err := validateEventSchedule(event, now); err != nil {
		return nil, nil, err
	}
	if event.Capacity <= 0 {
		return nil, nil, domain.ErrInvalidCapacity
	}

	event.CurrentAttendees = 0
	event.Status = domain.EventStatusActive
	event.CreatedAt = now
	event.UpdatedAt = now
	if err := s.repos.Events.Create(ctx, event); err != nil {
		return nil, nil, storeErr("create event", err)
	}
	return event, []string{domain.UpcomingEventsCacheKey}, nil
}

// UpdateEvent replaces the descriptive fields, dates and capacity of an event.
// Status and the attendee counter are left as they are.
func (s *eventService) UpdateEvent(ctx context.Context, eventID string, changes *domain.Event) (*domain.Event, []string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	var updated *domain.Event
	err := s.uow.run(ctx, "update event", func(ctx context.Context, repos domain.Repositories) error {
		existing, err := repos.Events.GetByIDForUpdate(ctx, eventID)
		if err != nil {
			return lookupErr("event", eventID, err)
		}

		now := s.now()
		if err := validateEventSchedule(changes, now); err != nil {
			return err
		}
		if changes.Capacity <= 0 {
			return domain.ErrInvalidCapacity
		}
		if changes.Capacity < existing.CurrentAttendees {
			return domain.CapacityBelowAttendees(existing.CurrentAttendees)
		}

		existing.Name = changes.Name
		existing.Description = changes.Description
		existing.Location = changes.Location
		existing.StartDate = changes.StartDate
		existing.EndDate = changes.EndDate
		existing.Capacity = changes.Capacity
		existing.UpdatedAt = now
		if err := repos.Events.Update(ctx, existing); err != nil {
			return storeErr("update event", err)
		}
		updated = existing
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return updated, eventChangedKeys(eventID), nil
}

func (s *eventService) GetEventByID(ctx context.Context, eventID string) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.repos.Events.GetByID(ctx, eventID)
	if err != nil {
		return nil, lookupErr("event", eventID, err)
	}
	return event, nil
}

func (s *eventService) GetEventAvailability(ctx context.Context, eventID string) (*domain.EventAvailability, error) {
	event, err := s.GetEventByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return event.Availability(), nil
}

func (s *eventService) ListEvents(ctx context.Context) ([]*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	events, err := s.repos.Events.List(ctx)
	if err != nil {
		return nil, storeErr("list events", err)
	}
	return events, nil
}

func (s *eventService) ListUpcomingEvents(ctx context.Context) ([]*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	events, err := s.repos.Events.ListUpcoming(ctx, s.now())
	if err != nil {
		return nil, storeErr("list upcoming events", err)
	}
	return events, nil
}

func (s *eventService) ListEventsByStatus(ctx context.Context, status domain.EventStatus) ([]*domain.Event, error) {
	if !status.Valid() {
		return nil, domain.ErrInvalidStatus
	}
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	events, err := s.repos.Events.ListByStatus(ctx, status)
	if err != nil {
		return nil, storeErr("list events by status", err)
	}
	return events, nil
}

// CancelEvent marks the event cancelled. Existing attendances are kept as they are.
func (s *eventService) CancelEvent(ctx context.Context, eventID string) (*domain.Event, []string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	var cancelled *domain.Event
	err := s.uow.run(ctx, "cancel event", func(ctx context.Context, repos domain.Repositories) error {
		event, err := repos.Events.GetByIDForUpdate(ctx, eventID)
		if err != nil {
			return lookupErr("event", eventID, err)
		}
		now := s.now()
		if event.HasEnded(now) {
			return domain.ErrCancelEndedEvent
		}
		event.Status = domain.EventStatusCancelled
		event.UpdatedAt = now
		if err := repos.Events.Update(ctx, event); err != nil {
			return storeErr("update event", err)
		}
		cancelled = event
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return cancelled, []string{domain.EventCacheKey(eventID), domain.UpcomingEventsCacheKey}, nil
}

func (s *eventService) DeleteEvent(ctx context.Context, eventID string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	err := s.uow.run(ctx, "delete event", func(ctx context.Context, repos domain.Repositories) error {
		if _, err := repos.Events.GetByIDForUpdate(ctx, eventID); err != nil {
			return lookupErr("event", eventID, err)
		}
		n, err := repos.Attendances.CountByEventID(ctx, eventID)
		if err != nil {
			return storeErr("count attendances", err)
		}
		if n > 0 {
			return domain.ErrEventHasAttendances
		}
		if err := repos.Events.Delete(ctx, eventID); err != nil {
			return storeErr("delete event", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return eventChangedKeys(eventID), nil
}

// validateEventSchedule checks that both dates are set, the event ends after
// it starts and it starts in the future.
func validateEventSchedule(e *domain.Event, now time.Time) error {
	if e.StartDate.IsZero() || e.EndDate.IsZero() {
		return domain.ErrEventDatesRequired
	}
	if !e.EndDate.After(e.StartDate) {
		return domain.ErrEventDatesOrder
	}
	if e.StartDate.Before(now) {
		return domain.ErrEventStartInPast
	}
	return nil
}

// eventChangedKeys lists every cached view derived from an event's own row.
func eventChangedKeys(eventID string) []string {
	return []string{
		domain.EventCacheKey(eventID),
		domain.UpcomingEventsCacheKey,
		domain.EventStatsCacheKey(eventID),
		domain.EventAvailabilityCacheKey(eventID),
	}
}
