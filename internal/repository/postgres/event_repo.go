package postgres

import (
	"context"
	"time"

	"eventcore/internal/domain"
)

type eventRepository struct {
	DB Querier
}

func NewEventRepository(db Querier) domain.EventRepository {
	return &eventRepository{
		DB: db,
	}
}

const eventColumns = `id, name, description, location, start_date, end_date, capacity, current_attendees, status, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*domain.Event, error) {
	e := &domain.Event{}
	err := row.Scan(
		&e.ID, &e.Name, &e.Description, &e.Location, &e.StartDate, &e.EndDate,
		&e.Capacity, &e.CurrentAttendees, &e.Status, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, mapError(err)
	}
	return e, nil
}

func (r *eventRepository) Create(ctx context.Context, e *domain.Event) error {
	query := `
		INSERT INTO events (name, description, location, start_date, end_date, capacity, current_attendees, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`
	err := r.DB.QueryRowContext(ctx, query,
		e.Name, e.Description, e.Location, e.StartDate, e.EndDate,
		e.Capacity, e.CurrentAttendees, e.Status, e.CreatedAt, e.UpdatedAt,
	).Scan(&e.ID)
	return mapError(err)
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	return scanEvent(r.DB.QueryRowContext(ctx, query, id))
}

func (r *eventRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1 FOR UPDATE`
	return scanEvent(r.DB.QueryRowContext(ctx, query, id))
}

func (r *eventRepository) Update(ctx context.Context, e *domain.Event) error {
	query := `
		UPDATE events
		SET name = $1, description = $2, location = $3, start_date = $4, end_date = $5,
			capacity = $6, current_attendees = $7, status = $8, updated_at = $9
		WHERE id = $10
	`
	result, err := r.DB.ExecContext(ctx, query,
		e.Name, e.Description, e.Location, e.StartDate, e.EndDate,
		e.Capacity, e.CurrentAttendees, e.Status, e.UpdatedAt, e.ID,
	)
	if err != nil {
		return mapError(err)
	}
	return checkAffected(result)
}

func (r *eventRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM events WHERE id = $1`
	result, err := r.DB.ExecContext(ctx, query, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrEventHasAttendances
		}
		return mapError(err)
	}
	return checkAffected(result)
}

func (r *eventRepository) List(ctx context.Context) ([]*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events ORDER BY start_date`
	return r.list(ctx, query)
}

func (r *eventRepository) ListByStatus(ctx context.Context, status domain.EventStatus) ([]*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE status = $1 ORDER BY start_date`
	return r.list(ctx, query, status)
}

func (r *eventRepository) ListUpcoming(ctx context.Context, now time.Time) ([]*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE status = $1 AND start_date > $2 ORDER BY start_date`
	return r.list(ctx, query, domain.EventStatusActive, now)
}

func (r *eventRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Event, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()
	events := make([]*domain.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
