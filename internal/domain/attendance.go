package domain

import (
	"context"
	"time"
)

// AttendanceStatus is the state of one participant's registration for one event.
type AttendanceStatus string

const (
	AttendanceStatusRegistered AttendanceStatus = "REGISTERED"
	AttendanceStatusCheckedIn  AttendanceStatus = "CHECKED_IN"
	AttendanceStatusCancelled  AttendanceStatus = "CANCELLED"
	AttendanceStatusNoShow     AttendanceStatus = "NO_SHOW"
)

// AttendanceStatuses lists every status in reporting order.
var AttendanceStatuses = []AttendanceStatus{
	AttendanceStatusRegistered,
	AttendanceStatusCheckedIn,
	AttendanceStatusCancelled,
	AttendanceStatusNoShow,
}

// Valid reports whether s is one of the known attendance statuses.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceStatusRegistered, AttendanceStatusCheckedIn, AttendanceStatusCancelled, AttendanceStatusNoShow:
		return true
	}
	return false
}

// HoldsSpot reports whether an attendance in this status counts against capacity.
func (s AttendanceStatus) HoldsSpot() bool {
	return s == AttendanceStatusRegistered || s == AttendanceStatusCheckedIn
}

// blockedTransitions maps (from, to) to the rule that forbids it.
// Any pair not listed is allowed.
var blockedTransitions = map[[2]AttendanceStatus]*RuleError{
	{AttendanceStatusCheckedIn, AttendanceStatusCheckedIn}: ErrAlreadyCheckedIn,
	{AttendanceStatusCancelled, AttendanceStatusCheckedIn}: ErrCheckInCancelled,
	{AttendanceStatusCancelled, AttendanceStatusCancelled}: ErrAlreadyCancelled,
}

// Attendance represents a participant's registration for an event.
// swagger:model Attendance
type Attendance struct {
	ID               string           `json:"id"`
	EventID          string           `json:"event_id"`
	ParticipantID    string           `json:"participant_id"`
	Status           AttendanceStatus `json:"status"`
	RegistrationDate time.Time        `json:"registration_date"`
	CheckInDate      *time.Time       `json:"check_in_date,omitempty"`
	Notes            string           `json:"notes,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// NewAttendance creates a REGISTERED attendance. ID is typically set by the repository on create.
func NewAttendance(eventID, participantID string, now time.Time) *Attendance {
	return &Attendance{
		EventID:          eventID,
		ParticipantID:    participantID,
		Status:           AttendanceStatusRegistered,
		RegistrationDate: now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// CanTransition returns the rule error that forbids moving a to status, or nil.
func (a *Attendance) CanTransition(to AttendanceStatus) error {
	if rule, ok := blockedTransitions[[2]AttendanceStatus{a.Status, to}]; ok {
		return rule
	}
	return nil
}

// CheckIn moves a to CHECKED_IN and stamps the check-in date.
func (a *Attendance) CheckIn(now time.Time) error {
	if err := a.CanTransition(AttendanceStatusCheckedIn); err != nil {
		return err
	}
	a.Status = AttendanceStatusCheckedIn
	a.CheckInDate = &now
	a.UpdatedAt = now
	return nil
}

// Cancel moves a to CANCELLED.
func (a *Attendance) Cancel(now time.Time) error {
	if err := a.CanTransition(AttendanceStatusCancelled); err != nil {
		return err
	}
	a.Status = AttendanceStatusCancelled
	a.UpdatedAt = now
	return nil
}

// EventStatistics aggregates attendance counts for one event.
// swagger:model EventStatistics
type EventStatistics struct {
	EventID             string  `json:"event_id"`
	TotalCapacity       int     `json:"total_capacity"`
	TotalRegistered     int64   `json:"total_registered"`
	TotalCheckedIn      int64   `json:"total_checked_in"`
	TotalCancelled      int64   `json:"total_cancelled"`
	TotalNoShow         int64   `json:"total_no_show"`
	AvailableSpots      int     `json:"available_spots"`
	OccupancyPercentage float64 `json:"occupancy_percentage"`
}

// OccupancyPercentage is registered*100/capacity, or 0 for a zero capacity.
// Checked-in attendees are not part of the numerator and the result is not capped.
func OccupancyPercentage(capacity int, registered int64) float64 {
	if capacity == 0 {
		return 0
	}
	return float64(registered) * 100.0 / float64(capacity)
}

// AttendanceRepository defines storage operations for attendances.
// Create returns ErrDuplicateAttendance when the (event, participant) pair already exists.
type AttendanceRepository interface {
	Create(ctx context.Context, a *Attendance) error
	GetByID(ctx context.Context, id string) (*Attendance, error)
	Update(ctx context.Context, a *Attendance) error
	ListByEventID(ctx context.Context, eventID string) ([]*Attendance, error)
	ListByParticipantID(ctx context.Context, participantID string) ([]*Attendance, error)
	ExistsByEventAndParticipant(ctx context.Context, eventID, participantID string) (bool, error)
	CountByEventID(ctx context.Context, eventID string) (int64, error)
	CountByParticipantID(ctx context.Context, participantID string) (int64, error)
	CountByEventIDAndStatus(ctx context.Context, eventID string, status AttendanceStatus) (int64, error)
}

// AttendanceService defines the registration, check-in and cancellation
// operations. Mutations return the cache keys made stale by the committed write.
type AttendanceService interface {
	Register(ctx context.Context, eventID, participantID string) (*Attendance, []string, error)
	CheckIn(ctx context.Context, attendanceID string) (*Attendance, []string, error)
	Cancel(ctx context.Context, attendanceID string) (*Attendance, []string, error)
	GetAttendanceByID(ctx context.Context, attendanceID string) (*Attendance, error)
	ListByEvent(ctx context.Context, eventID string) ([]*Attendance, error)
	ListByParticipant(ctx context.Context, participantID string) ([]*Attendance, error)
	GetEventStatistics(ctx context.Context, eventID string) (*EventStatistics, error)
	// ReconcileAttendees recomputes the event's attendee counter from its
	// attendances. The returned keys are empty when nothing changed.
	ReconcileAttendees(ctx context.Context, eventID string) (*Event, []string, error)
}
