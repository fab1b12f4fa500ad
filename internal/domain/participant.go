package domain

import (
	"context"
	"time"
)

// ParticipantStatus is the account state of a participant.
type ParticipantStatus string

const (
	ParticipantStatusActive   ParticipantStatus = "ACTIVE"
	ParticipantStatusInactive ParticipantStatus = "INACTIVE"
	ParticipantStatusBlocked  ParticipantStatus = "BLOCKED"
)

// Valid reports whether s is one of the known participant statuses.
func (s ParticipantStatus) Valid() bool {
	switch s {
	case ParticipantStatusActive, ParticipantStatusInactive, ParticipantStatusBlocked:
		return true
	}
	return false
}

// Participant represents a person who can register for events.
// swagger:model Participant
type Participant struct {
	ID             string            `json:"id"`
	FirstName      string            `json:"first_name"`
	LastName       string            `json:"last_name"`
	Email          string            `json:"email"`
	Phone          *string           `json:"phone,omitempty"`
	DocumentNumber string            `json:"document_number"`
	Status         ParticipantStatus `json:"status"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// NewParticipant returns a new Participant with the given fields. ID is typically set by the repository on create.
func NewParticipant(firstName, lastName, email string, phone *string, documentNumber string) *Participant {
	return &Participant{
		FirstName:      firstName,
		LastName:       lastName,
		Email:          email,
		Phone:          phone,
		DocumentNumber: documentNumber,
	}
}

func (p *Participant) IsActive() bool {
	return p.Status == ParticipantStatusActive
}

// ParticipantRepository defines the interface for participant storage.
// Create and Update return ErrDuplicateEmail or ErrDuplicateDocument when a
// uniqueness constraint is hit.
type ParticipantRepository interface {
	Create(ctx context.Context, p *Participant) error
	GetByID(ctx context.Context, id string) (*Participant, error)
	GetByEmail(ctx context.Context, email string) (*Participant, error)
	Update(ctx context.Context, p *Participant) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*Participant, error)
	ListByStatus(ctx context.Context, status ParticipantStatus) ([]*Participant, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByDocumentNumber(ctx context.Context, documentNumber string) (bool, error)
}

// ParticipantService defines participant management operations.
type ParticipantService interface {
	CreateParticipant(ctx context.Context, p *Participant) (*Participant, error)
	UpdateParticipant(ctx context.Context, participantID string, changes *Participant) (*Participant, []string, error)
	UpdateParticipantStatus(ctx context.Context, participantID string, status ParticipantStatus) (*Participant, []string, error)
	GetParticipantByID(ctx context.Context, participantID string) (*Participant, error)
	GetParticipantByEmail(ctx context.Context, email string) (*Participant, error)
	ListParticipants(ctx context.Context) ([]*Participant, error)
	ListParticipantsByStatus(ctx context.Context, status ParticipantStatus) ([]*Participant, error)
	DeleteParticipant(ctx context.Context, participantID string) ([]string, error)
}
