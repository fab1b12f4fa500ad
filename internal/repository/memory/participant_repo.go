package memory

import (
	"cmp"
	"context"
	"slices"

	"github.com/google/uuid"

	"eventcore/internal/domain"
)

type participantRepository struct {
	v view
}

func (r *participantRepository) Create(ctx context.Context, p *domain.Participant) error {
	return r.v.write(func(st *state) error {
		if err := checkParticipantUnique(st, p, ""); err != nil {
			return err
		}
		p.ID = uuid.NewString()
		st.participants[p.ID] = clonePhone(*p)
		return nil
	})
}

func (r *participantRepository) GetByID(ctx context.Context, id string) (*domain.Participant, error) {
	p, ok := r.v.read().participants[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	p = clonePhone(p)
	return &p, nil
}

func (r *participantRepository) GetByEmail(ctx context.Context, email string) (*domain.Participant, error) {
	for _, p := range r.v.read().participants {
		if p.Email == email {
			p = clonePhone(p)
			return &p, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *participantRepository) Update(ctx context.Context, p *domain.Participant) error {
	return r.v.write(func(st *state) error {
		if _, ok := st.participants[p.ID]; !ok {
			return domain.ErrNotFound
		}
		if err := checkParticipantUnique(st, p, p.ID); err != nil {
			return err
		}
		st.participants[p.ID] = clonePhone(*p)
		return nil
	})
}

func (r *participantRepository) Delete(ctx context.Context, id string) error {
	return r.v.write(func(st *state) error {
		if _, ok := st.participants[id]; !ok {
			return domain.ErrNotFound
		}
		for _, a := range st.attendances {
			if a.ParticipantID == id {
				return domain.ErrParticipantHasAttendances
			}
		}
		delete(st.participants, id)
		return nil
	})
}

func (r *participantRepository) List(ctx context.Context) ([]*domain.Participant, error) {
	return r.filter(func(*domain.Participant) bool { return true }), nil
}

func (r *participantRepository) ListByStatus(ctx context.Context, status domain.ParticipantStatus) ([]*domain.Participant, error) {
	return r.filter(func(p *domain.Participant) bool { return p.Status == status }), nil
}

func (r *participantRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	for _, p := range r.v.read().participants {
		if p.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (r *participantRepository) ExistsByDocumentNumber(ctx context.Context, documentNumber string) (bool, error) {
	for _, p := range r.v.read().participants {
		if p.DocumentNumber == documentNumber {
			return true, nil
		}
	}
	return false, nil
}

func (r *participantRepository) filter(keep func(*domain.Participant) bool) []*domain.Participant {
	participants := make([]*domain.Participant, 0)
	for _, p := range r.v.read().participants {
		if keep(&p) {
			p = clonePhone(p)
			participants = append(participants, &p)
		}
	}
	slices.SortFunc(participants, func(a, b *domain.Participant) int {
		return cmp.Or(
			cmp.Compare(a.LastName, b.LastName),
			cmp.Compare(a.FirstName, b.FirstName),
			cmp.Compare(a.ID, b.ID),
		)
	})
	return participants
}

// checkParticipantUnique enforces the email and document number constraints,
// ignoring the row with id self.
func checkParticipantUnique(st *state, p *domain.Participant, self string) error {
	for id, other := range st.participants {
		if id == self {
			continue
		}
		if other.Email == p.Email {
			return domain.ErrDuplicateEmail
		}
		if other.DocumentNumber == p.DocumentNumber {
			return domain.ErrDuplicateDocument
		}
	}
	return nil
}

// clonePhone detaches the optional phone pointer from the caller's copy.
func clonePhone(p domain.Participant) domain.Participant {
	if p.Phone != nil {
		phone := *p.Phone
		p.Phone = &phone
	}
	return p
}
