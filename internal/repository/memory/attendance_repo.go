package memory

import (
	"cmp"
	"context"
	"slices"

	"github.com/google/uuid"

	"eventcore/internal/domain"
)

type attendanceRepository struct {
	v view
}

func (r *attendanceRepository) Create(ctx context.Context, a *domain.Attendance) error {
	return r.v.write(func(st *state) error {
		if _, ok := st.events[a.EventID]; !ok {
			return domain.ErrNotFound
		}
		if _, ok := st.participants[a.ParticipantID]; !ok {
			return domain.ErrNotFound
		}
		for _, other := range st.attendances {
			if other.EventID == a.EventID && other.ParticipantID == a.ParticipantID {
				return domain.ErrDuplicateAttendance
			}
		}
		a.ID = uuid.NewString()
		st.attendances[a.ID] = cloneCheckIn(*a)
		return nil
	})
}

func (r *attendanceRepository) GetByID(ctx context.Context, id string) (*domain.Attendance, error) {
	a, ok := r.v.read().attendances[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	a = cloneCheckIn(a)
	return &a, nil
}

func (r *attendanceRepository) Update(ctx context.Context, a *domain.Attendance) error {
	return r.v.write(func(st *state) error {
		if _, ok := st.attendances[a.ID]; !ok {
			return domain.ErrNotFound
		}
		st.attendances[a.ID] = cloneCheckIn(*a)
		return nil
	})
}

func (r *attendanceRepository) ListByEventID(ctx context.Context, eventID string) ([]*domain.Attendance, error) {
	list := r.filter(func(a *domain.Attendance) bool { return a.EventID == eventID })
	slices.SortFunc(list, func(a, b *domain.Attendance) int {
		return cmp.Or(a.RegistrationDate.Compare(b.RegistrationDate), cmp.Compare(a.ID, b.ID))
	})
	return list, nil
}

func (r *attendanceRepository) ListByParticipantID(ctx context.Context, participantID string) ([]*domain.Attendance, error) {
	list := r.filter(func(a *domain.Attendance) bool { return a.ParticipantID == participantID })
	slices.SortFunc(list, func(a, b *domain.Attendance) int {
		return cmp.Or(b.RegistrationDate.Compare(a.RegistrationDate), cmp.Compare(a.ID, b.ID))
	})
	return list, nil
}

func (r *attendanceRepository) ExistsByEventAndParticipant(ctx context.Context, eventID, participantID string) (bool, error) {
	n := r.count(func(a *domain.Attendance) bool {
		return a.EventID == eventID && a.ParticipantID == participantID
	})
	return n > 0, nil
}

func (r *attendanceRepository) CountByEventID(ctx context.Context, eventID string) (int64, error) {
	return r.count(func(a *domain.Attendance) bool { return a.EventID == eventID }), nil
}

func (r *attendanceRepository) CountByParticipantID(ctx context.Context, participantID string) (int64, error) {
	return r.count(func(a *domain.Attendance) bool { return a.ParticipantID == participantID }), nil
}

func (r *attendanceRepository) CountByEventIDAndStatus(ctx context.Context, eventID string, status domain.AttendanceStatus) (int64, error) {
	return r.count(func(a *domain.Attendance) bool { return a.EventID == eventID && a.Status == status }), nil
}

func (r *attendanceRepository) filter(keep func(*domain.Attendance) bool) []*domain.Attendance {
	list := make([]*domain.Attendance, 0)
	for _, a := range r.v.read().attendances {
		if keep(&a) {
			a = cloneCheckIn(a)
			list = append(list, &a)
		}
	}
	return list
}

func (r *attendanceRepository) count(match func(*domain.Attendance) bool) int64 {
	var n int64
	for _, a := range r.v.read().attendances {
		if match(&a) {
			n++
		}
	}
	return n
}

func cloneCheckIn(a domain.Attendance) domain.Attendance {
	if a.CheckInDate != nil {
		t := *a.CheckInDate
		a.CheckInDate = &t
	}
	return a
}
