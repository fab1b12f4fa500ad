package domain

import (
	"context"
	"time"
)

// EventStatus is the lifecycle state of an event.
type EventStatus string

const (
	EventStatusDraft     EventStatus = "DRAFT"
	EventStatusActive    EventStatus = "ACTIVE"
	EventStatusCancelled EventStatus = "CANCELLED"
	EventStatusCompleted EventStatus = "COMPLETED"
)

// Valid reports whether s is one of the known event statuses.
func (s EventStatus) Valid() bool {
	switch s {
	case EventStatusDraft, EventStatusActive, EventStatusCancelled, EventStatusCompleted:
		return true
	}
	return false
}

// Event represents a scheduled event with a bounded number of spots.
// CurrentAttendees is owned by the attendance service; it only changes on
// registration, cancellation and reconciliation.
// swagger:model Event
type Event struct {
	ID               string      `json:"id"`
	Name             string      `json:"name"`
	Description      string      `json:"description"`
	Location         string      `json:"location"`
	StartDate        time.Time   `json:"start_date"`
	EndDate          time.Time   `json:"end_date"`
	Capacity         int         `json:"capacity"`
	CurrentAttendees int         `json:"current_attendees"`
	Status           EventStatus `json:"status"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

// NewEvent returns a new Event with the given fields. ID is typically set by the repository on create.
func NewEvent(name, description, location string, startDate, endDate time.Time, capacity int) *Event {
	return &Event{
		Name:        name,
		Description: description,
		Location:    location,
		StartDate:   startDate,
		EndDate:     endDate,
		Capacity:    capacity,
	}
}

// HasAvailableSpots reports whether one more attendee fits.
func (e *Event) HasAvailableSpots() bool {
	return e.CurrentAttendees < e.Capacity
}

// RemainingCapacity returns capacity minus committed attendees.
func (e *Event) RemainingCapacity() int {
	return e.Capacity - e.CurrentAttendees
}

func (e *Event) IsActive() bool {
	return e.Status == EventStatusActive
}

// IsFuture reports whether the event starts after now.
func (e *Event) IsFuture(now time.Time) bool {
	return !e.StartDate.IsZero() && e.StartDate.After(now)
}

// HasEnded reports whether the event ended before now.
func (e *Event) HasEnded(now time.Time) bool {
	return !e.EndDate.IsZero() && e.EndDate.Before(now)
}

// IncrementAttendees takes one spot.
func (e *Event) IncrementAttendees() {
	e.CurrentAttendees++
}

// DecrementAttendees releases one spot, never going below zero.
func (e *Event) DecrementAttendees() {
	if e.CurrentAttendees > 0 {
		e.CurrentAttendees--
	}
}

// EventAvailability is the capacity view of an event served by the availability endpoint.
// swagger:model EventAvailability
type EventAvailability struct {
	EventID           string `json:"event_id"`
	Capacity          int    `json:"capacity"`
	CurrentAttendees  int    `json:"current_attendees"`
	RemainingCapacity int    `json:"remaining_capacity"`
	HasAvailableSpots bool   `json:"has_available_spots"`
}

// Availability returns the capacity view of e.
func (e *Event) Availability() *EventAvailability {
	return &EventAvailability{
		EventID:           e.ID,
		Capacity:          e.Capacity,
		CurrentAttendees:  e.CurrentAttendees,
		RemainingCapacity: e.RemainingCapacity(),
		HasAvailableSpots: e.HasAvailableSpots(),
	}
}

// EventRepository defines the interface for event storage.
type EventRepository interface {
	Create(ctx context.Context, event *Event) error
	GetByID(ctx context.Context, id string) (*Event, error)
	// GetByIDForUpdate loads the event and holds its row lock until the
	// surrounding transaction ends. Outside a transaction it behaves like GetByID.
	GetByIDForUpdate(ctx context.Context, id string) (*Event, error)
	Update(ctx context.Context, event *Event) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*Event, error)
	ListByStatus(ctx context.Context, status EventStatus) ([]*Event, error)
	// ListUpcoming returns active events starting after now, soonest first.
	ListUpcoming(ctx context.Context, now time.Time) ([]*Event, error)
}

// EventService defines the event lifecycle operations. Mutations return the
// cache keys made stale by the committed write.
type EventService interface {
	CreateEvent(ctx context.Context, event *Event) (*Event, []string, error)
	UpdateEvent(ctx context.Context, eventID string, changes *Event) (*Event, []string, error)
	GetEventByID(ctx context.Context, eventID string) (*Event, error)
	GetEventAvailability(ctx context.Context, eventID string) (*EventAvailability, error)
	ListEvents(ctx context.Context) ([]*Event, error)
	ListUpcomingEvents(ctx context.Context) ([]*Event, error)
	ListEventsByStatus(ctx context.Context, status EventStatus) ([]*Event, error)
	CancelEvent(ctx context.Context, eventID string) (*Event, []string, error)
	DeleteEvent(ctx context.Context, eventID string) ([]string, error)
}
