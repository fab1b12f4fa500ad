package services

import (
	"context"
	"log/slog"
	"time"

	"eventcore/internal/domain"
)

type attendanceService struct {
	repos          domain.Repositories
	uow            unitOfWork
	logger         *slog.Logger
	contextTimeout time.Duration
	now            func() time.Time
}

// NewAttendanceService creates the AttendanceService. Every change to an
// event's attendee counter happens inside one transaction that holds the
// event row lock, together with the attendance write that caused it.
func NewAttendanceService(
	repos domain.Repositories,
	tx domain.TxManager,
	logger *slog.Logger,
	maxAttempts int,
	timeout time.Duration,
) domain.AttendanceService {
	uow := newUnitOfWork(tx, maxAttempts, logger)
	return &attendanceService{
		repos:          repos,
		uow:            uow,
		logger:         uow.logger,
		contextTimeout: timeout,
		now:            time.Now,
	}
}

// Register checks, in order: event exists, participant exists, participant
// active, event active, event not ended, no existing attendance for the pair,
// free capacity. The first failing check decides the error.
func (s *attendanceService) Register(ctx context.Context, eventID, participantID string) (*domain.Attendance, []string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	var created *domain.Attendance
	err := s.uow.run(ctx, "register attendance", func(ctx context.Context, repos domain.Repositories) error {
		event, err := repos.Events.GetByIDForUpdate(ctx, eventID)
		if err != nil {
			return lookupErr("event", eventID, err)
		}
		participant, err := repos.Participants.GetByID(ctx, participantID)
		if err != nil {
			return lookupErr("participant", participantID, err)
		}

		now := s.now()
		if !participant.IsActive() {
			return domain.ErrParticipantNotActive
		}
		if !event.IsActive() {
			return domain.ErrEventNotActive
		}
		if event.HasEnded(now) {
			return domain.ErrEventEnded
		}
		exists, err := repos.Attendances.ExistsByEventAndParticipant(ctx, eventID, participantID)
		if err != nil {
			return storeErr("check attendance", err)
		}
		if exists {
			return domain.ErrDuplicateAttendance
		}
		if !event.HasAvailableSpots() {
			return domain.ErrCapacityReached
		}

		attendance := domain.NewAttendance(eventID, participantID, now)
		if err := repos.Attendances.Create(ctx, attendance); err != nil {
			return storeErr("create attendance", err)
		}
		event.IncrementAttendees()
		event.UpdatedAt = now
		if err := repos.Events.Update(ctx, event); err != nil {
			return storeErr("update event", err)
		}
		created = attendance
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return created, occupancyKeys(eventID), nil
}

// CheckIn marks a held spot as used. The attendee counter is unchanged.
func (s *attendanceService) CheckIn(ctx context.Context, attendanceID string) (*domain.Attendance, []string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	var checkedIn *domain.Attendance
	err := s.uow.run(ctx, "check in attendance", func(ctx context.Context, repos domain.Repositories) error {
		attendance, _, err := s.lockAttendance(ctx, repos, attendanceID, domain.AttendanceStatusCheckedIn)
		if err != nil {
			return err
		}
		if err := attendance.CheckIn(s.now()); err != nil {
			return err
		}
		if err := repos.Attendances.Update(ctx, attendance); err != nil {
			return storeErr("update attendance", err)
		}
		checkedIn = attendance
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return checkedIn, []string{domain.EventStatsCacheKey(checkedIn.EventID)}, nil
}

// Cancel releases the attendance's spot. The counter never drops below zero.
func (s *attendanceService) Cancel(ctx context.Context, attendanceID string) (*domain.Attendance, []string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	var cancelled *domain.Attendance
	err := s.uow.run(ctx, "cancel attendance", func(ctx context.Context, repos domain.Repositories) error {
		attendance, event, err := s.lockAttendance(ctx, repos, attendanceID, domain.AttendanceStatusCancelled)
		if err != nil {
			return err
		}
		now := s.now()
		if err := attendance.Cancel(now); err != nil {
			return err
		}
		if err := repos.Attendances.Update(ctx, attendance); err != nil {
			return storeErr("update attendance", err)
		}
		event.DecrementAttendees()
		event.UpdatedAt = now
		if err := repos.Events.Update(ctx, event); err != nil {
			return storeErr("update event", err)
		}
		cancelled = attendance
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return cancelled, occupancyKeys(cancelled.EventID), nil
}

// lockAttendance loads the attendance, rejects a forbidden transition early,
// then takes the owning event's row lock and re-reads the attendance so the
// transition is decided on the state that will be written over.
func (s *attendanceService) lockAttendance(ctx context.Context, repos domain.Repositories, attendanceID string, to domain.AttendanceStatus) (*domain.Attendance, *domain.Event, error) {
	attendance, err := repos.Attendances.GetByID(ctx, attendanceID)
	if err != nil {
		return nil, nil, lookupErr("attendance", attendanceID, err)
	}
	if err := attendance.CanTransition(to); err != nil {
		return nil, nil, err
	}
	event, err := repos.Events.GetByIDForUpdate(ctx, attendance.EventID)
	if err != nil {
		return nil, nil, lookupErr("event", attendance.EventID, err)
	}
	attendance, err = repos.Attendances.GetByID(ctx, attendanceID)
	if err != nil {
		return nil, nil, lookupErr("attendance", attendanceID, err)
	}
	return attendance, event, nil
}

func (s *attendanceService) GetAttendanceByID(ctx context.Context, attendanceID string) (*domain.Attendance, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	attendance, err := s.repos.Attendances.GetByID(ctx, attendanceID)
	if err != nil {
		return nil, lookupErr("attendance", attendanceID, err)
	}
	return attendance, nil
}

func (s *attendanceService) ListByEvent(ctx context.Context, eventID string) ([]*domain.Attendance, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if _, err := s.repos.Events.GetByID(ctx, eventID); err != nil {
		return nil, lookupErr("event", eventID, err)
	}
	list, err := s.repos.Attendances.ListByEventID(ctx, eventID)
	if err != nil {
		return nil, storeErr("list attendances", err)
	}
	return list, nil
}

func (s *attendanceService) ListByParticipant(ctx context.Context, participantID string) ([]*domain.Attendance, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if _, err := s.repos.Participants.GetByID(ctx, participantID); err != nil {
		return nil, lookupErr("participant", participantID, err)
	}
	list, err := s.repos.Attendances.ListByParticipantID(ctx, participantID)
	if err != nil {
		return nil, storeErr("list attendances", err)
	}
	return list, nil
}

// GetEventStatistics counts attendances per status with exact queries. It
// takes no lock and may observe a slightly older state than a concurrent write.
func (s *attendanceService) GetEventStatistics(ctx context.Context, eventID string) (*domain.EventStatistics, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.repos.Events.GetByID(ctx, eventID)
	if err != nil {
		return nil, lookupErr("event", eventID, err)
	}

	counts := make(map[domain.AttendanceStatus]int64, len(domain.AttendanceStatuses))
	for _, status := range domain.AttendanceStatuses {
		n, err := s.repos.Attendances.CountByEventIDAndStatus(ctx, eventID, status)
		if err != nil {
			return nil, storeErr("count attendances", err)
		}
		counts[status] = n
	}

	registered := counts[domain.AttendanceStatusRegistered]
	return &domain.EventStatistics{
		EventID:             eventID,
		TotalCapacity:       event.Capacity,
		TotalRegistered:     registered,
		TotalCheckedIn:      counts[domain.AttendanceStatusCheckedIn],
		TotalCancelled:      counts[domain.AttendanceStatusCancelled],
		TotalNoShow:         counts[domain.AttendanceStatusNoShow],
		AvailableSpots:      event.RemainingCapacity(),
		OccupancyPercentage: domain.OccupancyPercentage(event.Capacity, registered),
	}, nil
}

// ReconcileAttendees sets the attendee counter to the number of attendances
// holding a spot, clamped to the event's capacity.
func (s *attendanceService) ReconcileAttendees(ctx context.Context, eventID string) (*domain.Event, []string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	var (
		reconciled *domain.Event
		changed    bool
	)
	err := s.uow.run(ctx, "reconcile attendees", func(ctx context.Context, repos domain.Repositories) error {
		changed = false
		event, err := repos.Events.GetByIDForUpdate(ctx, eventID)
		if err != nil {
			return lookupErr("event", eventID, err)
		}

		var holding int64
		for _, status := range domain.AttendanceStatuses {
			if !status.HoldsSpot() {
				continue
			}
			n, err := repos.Attendances.CountByEventIDAndStatus(ctx, eventID, status)
			if err != nil {
				return storeErr("count attendances", err)
			}
			holding += n
		}
		if holding > int64(event.Capacity) {
			// The counter stays clamped; the surplus rows need an operator.
			s.logger.ErrorContext(ctx, "attendances exceed event capacity",
				"event_id", eventID, "counted", holding, "capacity", event.Capacity)
		}
		want := int(min(holding, int64(event.Capacity)))
		reconciled = event
		if want == event.CurrentAttendees {
			return nil
		}

		s.logger.WarnContext(ctx, "attendee counter drift corrected",
			"event_id", eventID, "stored", event.CurrentAttendees, "counted", holding, "capacity", event.Capacity)
		event.CurrentAttendees = want
		event.UpdatedAt = s.now()
		if err := repos.Events.Update(ctx, event); err != nil {
			return storeErr("update event", err)
		}
		changed = true
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	if !changed {
		return reconciled, nil, nil
	}
	return reconciled, occupancyKeys(eventID), nil
}

// occupancyKeys lists the cached views that depend on an event's attendee counter.
func occupancyKeys(eventID string) []string {
	return []string{
		domain.EventCacheKey(eventID),
		domain.EventStatsCacheKey(eventID),
		domain.EventAvailabilityCacheKey(eventID),
	}
}
