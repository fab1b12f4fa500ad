package services

import (
	"context"
	"log/slog"
	"time"

	"eventcore/internal/domain"
)

type participantService struct {
	repos          domain.Repositories
	uow            unitOfWork
	contextTimeout time.Duration
	now            func() time.Time
}

// NewParticipantService creates a ParticipantService.
func NewParticipantService(
	repos domain.Repositories,
	tx domain.TxManager,
	logger *slog.Logger,
	maxAttempts int,
	timeout time.Duration,
) domain.ParticipantService {
	return &participantService{
		repos:          repos,
		uow:            newUnitOfWork(tx, maxAttempts, logger),
		contextTimeout: timeout,
		now:            time.Now,
	}
}

func (s *participantService) CreateParticipant(ctx context.Context, p *domain.Participant) (*domain.Participant, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if err := checkEmailFree(ctx, s.repos.Participants, p.Email); err != nil {
		return nil, err
	}
	if err := checkDocumentFree(ctx, s.repos.Participants, p.DocumentNumber); err != nil {
		return nil, err
	}

	now := s.now()
	p.Status = domain.ParticipantStatusActive
	p.CreatedAt = now
	p.UpdatedAt = now
	// The unique constraints still guard against a racing create.
	if err := s.repos.Participants.Create(ctx, p); err != nil {
		return nil, storeErr("create participant", err)
	}
	return p, nil
}

// UpdateParticipant replaces the contact fields. Uniqueness is only
// re-checked for an email or document number that actually changed.
func (s *participantService) UpdateParticipant(ctx context.Context, participantID string, changes *domain.Participant) (*domain.Participant, []string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	var updated *domain.Participant
	err := s.uow.run(ctx, "update participant", func(ctx context.Context, repos domain.Repositories) error {
		existing, err := repos.Participants.GetByID(ctx, participantID)
		if err != nil {
			return lookupErr("participant", participantID, err)
		}
		if existing.Email != changes.Email {
			if err := checkEmailFree(ctx, repos.Participants, changes.Email); err != nil {
				return err
			}
		}
		if existing.DocumentNumber != changes.DocumentNumber {
			if err := checkDocumentFree(ctx, repos.Participants, changes.DocumentNumber); err != nil {
				return err
			}
		}

		existing.FirstName = changes.FirstName
		existing.LastName = changes.LastName
		existing.Email = changes.Email
		existing.Phone = changes.Phone
		existing.DocumentNumber = changes.DocumentNumber
		existing.UpdatedAt = s.now()
		if err := repos.Participants.Update(ctx, existing); err != nil {
			return storeErr("update participant", err)
		}
		updated = existing
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return updated, []string{domain.ParticipantCacheKey(participantID)}, nil
}

func (s *participantService) UpdateParticipantStatus(ctx context.Context, participantID string, status domain.ParticipantStatus) (*domain.Participant, []string, error) {
	if !status.Valid() {
		return nil, nil, domain.ErrInvalidStatus
	}
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	var updated *domain.Participant
	err := s.uow.run(ctx, "update participant status", func(ctx context.Context, repos domain.Repositories) error {
		p, err := repos.Participants.GetByID(ctx, participantID)
		if err != nil {
			return lookupErr("participant", participantID, err)
		}
		p.Status = status
		p.UpdatedAt = s.now()
		if err := repos.Participants.Update(ctx, p); err != nil {
			return storeErr("update participant", err)
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return updated, []string{domain.ParticipantCacheKey(participantID)}, nil
}

func (s *participantService) GetParticipantByID(ctx context.Context, participantID string) (*domain.Participant, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	p, err := s.repos.Participants.GetByID(ctx, participantID)
	if err != nil {
		return nil, lookupErr("participant", participantID, err)
	}
	return p, nil
}

func (s *participantService) GetParticipantByEmail(ctx context.Context, email string) (*domain.Participant, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	p, err := s.repos.Participants.GetByEmail(ctx, email)
	if err != nil {
		return nil, lookupErr("participant", email, err)
	}
	return p, nil
}

func (s *participantService) ListParticipants(ctx context.Context) ([]*domain.Participant, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	participants, err := s.repos.Participants.List(ctx)
	if err != nil {
		return nil, storeErr("list participants", err)
	}
	return participants, nil
}

func (s *participantService) ListParticipantsByStatus(ctx context.Context, status domain.ParticipantStatus) ([]*domain.Participant, error) {
	if !status.Valid() {
		return nil, domain.ErrInvalidStatus
	}
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	participants, err := s.repos.Participants.ListByStatus(ctx, status)
	if err != nil {
		return nil, storeErr("list participants by status", err)
	}
	return participants, nil
}

func (s *participantService) DeleteParticipant(ctx context.Context, participantID string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	err := s.uow.run(ctx, "delete participant", func(ctx context.Context, repos domain.Repositories) error {
		if _, err := repos.Participants.GetByID(ctx, participantID); err != nil {
			return lookupErr("participant", participantID, err)
		}
		n, err := repos.Attendances.CountByParticipantID(ctx, participantID)
		if err != nil {
			return storeErr("count attendances", err)
		}
		if n > 0 {
			return domain.ErrParticipantHasAttendances
		}
		if err := repos.Participants.Delete(ctx, participantID); err != nil {
			return storeErr("delete participant", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return []string{domain.ParticipantCacheKey(participantID)}, nil
}

func checkEmailFree(ctx context.Context, repo domain.ParticipantRepository, email string) error {
	taken, err := repo.ExistsByEmail(ctx, email)
	if err != nil {
		return storeErr("check email", err)
	}
	if taken {
		return domain.ErrDuplicateEmail
	}
	return nil
}

func checkDocumentFree(ctx context.Context, repo domain.ParticipantRepository, documentNumber string) error {
	taken, err := repo.ExistsByDocumentNumber(ctx, documentNumber)
	if err != nil {
		return storeErr("check document number", err)
	}
	if taken {
		return domain.ErrDuplicateDocument
	}
	return nil
}
