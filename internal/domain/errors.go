package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by repositories, services and controllers.
var (
	// ErrNotFound is returned when a referenced entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a uniqueness constraint would be violated.
	ErrDuplicate = errors.New("duplicate resource")
	// ErrBusinessRule is the parent of every *RuleError.
	ErrBusinessRule = errors.New("business rule violation")
	// ErrConcurrentUpdate is returned when the store aborted a unit of work
	// because of a conflicting writer. It is safe to retry.
	ErrConcurrentUpdate = errors.New("concurrent update conflict")
)

// Uniqueness violations.
var (
	ErrDuplicateAttendance = fmt.Errorf("%w: attendance for this event and participant already exists", ErrDuplicate)
	ErrDuplicateEmail      = fmt.Errorf("%w: participant email already in use", ErrDuplicate)
	ErrDuplicateDocument   = fmt.Errorf("%w: participant document number already in use", ErrDuplicate)
)

// RuleError is a deterministic precondition or invariant failure.
// Two RuleErrors match under errors.Is when their codes are equal, so callers
// can test against the exported values below even when the message differs.
type RuleError struct {
	Code    string
	Message string
}

// NewRuleError returns a RuleError with the given code and message.
func NewRuleError(code, message string) *RuleError {
	return &RuleError{Code: code, Message: message}
}

func (e *RuleError) Error() string { return e.Message }

func (e *RuleError) Unwrap() error { return ErrBusinessRule }

func (e *RuleError) Is(target error) bool {
	t, ok := target.(*RuleError)
	return ok && t.Code == e.Code
}

// Business rules enforced by the services.
var (
	ErrParticipantNotActive      = NewRuleError("participant_not_active", "participant is not active")
	ErrEventNotActive            = NewRuleError("event_not_active", "event is not active")
	ErrEventEnded                = NewRuleError("event_ended", "cannot register to an event that has already ended")
	ErrCapacityReached           = NewRuleError("capacity_reached", "event has reached maximum capacity")
	ErrAlreadyCheckedIn          = NewRuleError("already_checked_in", "participant has already checked in")
	ErrCheckInCancelled          = NewRuleError("check_in_cancelled", "cannot check in a cancelled attendance")
	ErrAlreadyCancelled          = NewRuleError("already_cancelled", "attendance is already cancelled")
	ErrEventDatesRequired        = NewRuleError("event_dates_required", "event start and end dates are required")
	ErrEventDatesOrder           = NewRuleError("event_dates_order", "event end date must be after start date")
	ErrEventStartInPast          = NewRuleError("event_start_in_past", "event start date must be in the future")
	ErrInvalidCapacity           = NewRuleError("invalid_capacity", "event capacity must be greater than zero")
	ErrCapacityBelowAttendees    = NewRuleError("capacity_below_attendees", "cannot reduce capacity below current attendees")
	ErrCancelEndedEvent          = NewRuleError("cancel_ended_event", "cannot cancel an event that has already ended")
	ErrEventHasAttendances       = NewRuleError("event_has_attendances", "cannot delete an event with registered attendances")
	ErrParticipantHasAttendances = NewRuleError("participant_has_attendances", "cannot delete a participant with registered attendances")
	ErrInvalidStatus             = NewRuleError("invalid_status", "invalid status")
)

// CapacityBelowAttendees returns a rule error that names the committed attendee count.
func CapacityBelowAttendees(current int) *RuleError {
	return NewRuleError(ErrCapacityBelowAttendees.Code,
		fmt.Sprintf("cannot reduce capacity below current attendees (%d)", current))
}
