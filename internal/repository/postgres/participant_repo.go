package postgres

import (
	"context"
	"database/sql"

	"eventcore/internal/domain"
)

type participantRepository struct {
	DB Querier
}

func NewParticipantRepository(db Querier) domain.ParticipantRepository {
	return &participantRepository{DB: db}
}

const participantColumns = `id, first_name, last_name, email, phone, document_number, status, created_at, updated_at`

func scanParticipant(row rowScanner) (*domain.Participant, error) {
	p := &domain.Participant{}
	var phone sql.NullString
	err := row.Scan(&p.ID, &p.FirstName, &p.LastName, &p.Email, &phone, &p.DocumentNumber, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	if phone.Valid {
		p.Phone = &phone.String
	}
	return p, nil
}

func (r *participantRepository) Create(ctx context.Context, p *domain.Participant) error {
	query := `
		INSERT INTO participants (first_name, last_name, email, phone, document_number, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	err := r.DB.QueryRowContext(ctx, query,
		p.FirstName, p.LastName, p.Email, p.Phone, p.DocumentNumber, p.Status, p.CreatedAt, p.UpdatedAt,
	).Scan(&p.ID)
	return mapError(err)
}

func (r *participantRepository) GetByID(ctx context.Context, id string) (*domain.Participant, error) {
	query := `SELECT ` + participantColumns + ` FROM participants WHERE id = $1`
	return scanParticipant(r.DB.QueryRowContext(ctx, query, id))
}

func (r *participantRepository) GetByEmail(ctx context.Context, email string) (*domain.Participant, error) {
	query := `SELECT ` + participantColumns + ` FROM participants WHERE email = $1`
	return scanParticipant(r.DB.QueryRowContext(ctx, query, email))
}

func (r *participantRepository) Update(ctx context.Context, p *domain.Participant) error {
	query := `
		UPDATE participants
		SET first_name = $1, last_name = $2, email = $3, phone = $4, document_number = $5, status = $6, updated_at = $7
		WHERE id = $8
	`
	result, err := r.DB.ExecContext(ctx, query,
		p.FirstName, p.LastName, p.Email, p.Phone, p.DocumentNumber, p.Status, p.UpdatedAt, p.ID,
	)
	if err != nil {
		return mapError(err)
	}
	return checkAffected(result)
}

func (r *participantRepository) Delete(ctx context.Context, id string) error {
	result, err := r.DB.ExecContext(ctx, `DELETE FROM participants WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrParticipantHasAttendances
		}
		return mapError(err)
	}
	return checkAffected(result)
}

func (r *participantRepository) List(ctx context.Context) ([]*domain.Participant, error) {
	query := `SELECT ` + participantColumns + ` FROM participants ORDER BY last_name, first_name`
	return r.list(ctx, query)
}

func (r *participantRepository) ListByStatus(ctx context.Context, status domain.ParticipantStatus) ([]*domain.Participant, error) {
	query := `SELECT ` + participantColumns + ` FROM participants WHERE status = $1 ORDER BY last_name, first_name`
	return r.list(ctx, query, status)
}

func (r *participantRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Participant, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()
	participants := make([]*domain.Participant, 0)
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, err
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

func (r *participantRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM participants WHERE email = $1)`, email)
}

func (r *participantRepository) ExistsByDocumentNumber(ctx context.Context, documentNumber string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM participants WHERE document_number = $1)`, documentNumber)
}

func (r *participantRepository) exists(ctx context.Context, query string, arg string) (bool, error) {
	var ok bool
	if err := r.DB.QueryRowContext(ctx, query, arg).Scan(&ok); err != nil {
		return false, mapError(err)
	}
	return ok, nil
}
