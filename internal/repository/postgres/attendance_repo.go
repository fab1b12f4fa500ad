package postgres

import (
	"context"
	"database/sql"

	"eventcore/internal/domain"
)

type attendanceRepository struct {
	DB Querier
}

func NewAttendanceRepository(db Querier) domain.AttendanceRepository {
	return &attendanceRepository{
		DB: db,
	}
}

const attendanceColumns = `id, event_id, participant_id, status, registration_date, check_in_date, notes, created_at, updated_at`

func scanAttendance(row rowScanner) (*domain.Attendance, error) {
	a := &domain.Attendance{}
	var checkIn sql.NullTime
	err := row.Scan(&a.ID, &a.EventID, &a.ParticipantID, &a.Status, &a.RegistrationDate, &checkIn, &a.Notes, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	if checkIn.Valid {
		a.CheckInDate = &checkIn.Time
	}
	return a, nil
}

func (r *attendanceRepository) Create(ctx context.Context, a *domain.Attendance) error {
	query := `
		INSERT INTO attendances (event_id, participant_id, status, registration_date, check_in_date, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	err := r.DB.QueryRowContext(ctx, query,
		a.EventID, a.ParticipantID, a.Status, a.RegistrationDate, a.CheckInDate, a.Notes, a.CreatedAt, a.UpdatedAt,
	).Scan(&a.ID)
	return mapError(err)
}

func (r *attendanceRepository) GetByID(ctx context.Context, id string) (*domain.Attendance, error) {
	query := `SELECT ` + attendanceColumns + ` FROM attendances WHERE id = $1`
	return scanAttendance(r.DB.QueryRowContext(ctx, query, id))
}

func (r *attendanceRepository) Update(ctx context.Context, a *domain.Attendance) error {
	query := `
		UPDATE attendances
		SET status = $1, check_in_date = $2, notes = $3, updated_at = $4
		WHERE id = $5
	`
	result, err := r.DB.ExecContext(ctx, query, a.Status, a.CheckInDate, a.Notes, a.UpdatedAt, a.ID)
	if err != nil {
		return mapError(err)
	}
	return checkAffected(result)
}

func (r *attendanceRepository) ListByEventID(ctx context.Context, eventID string) ([]*domain.Attendance, error) {
	query := `SELECT ` + attendanceColumns + ` FROM attendances WHERE event_id = $1 ORDER BY registration_date`
	return r.list(ctx, query, eventID)
}

func (r *attendanceRepository) ListByParticipantID(ctx context.Context, participantID string) ([]*domain.Attendance, error) {
	query := `SELECT ` + attendanceColumns + ` FROM attendances WHERE participant_id = $1 ORDER BY registration_date DESC`
	return r.list(ctx, query, participantID)
}

func (r *attendanceRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Attendance, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	attendances := make([]*domain.Attendance, 0)
	for rows.Next() {
		a, err := scanAttendance(rows)
		if err != nil {
			return nil, err
		}
		attendances = append(attendances, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return attendances, nil
}

func (r *attendanceRepository) ExistsByEventAndParticipant(ctx context.Context, eventID, participantID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM attendances WHERE event_id = $1 AND participant_id = $2)`
	var ok bool
	if err := r.DB.QueryRowContext(ctx, query, eventID, participantID).Scan(&ok); err != nil {
		return false, mapError(err)
	}
	return ok, nil
}

func (r *attendanceRepository) CountByEventID(ctx context.Context, eventID string) (int64, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM attendances WHERE event_id = $1`, eventID)
}

func (r *attendanceRepository) CountByParticipantID(ctx context.Context, participantID string) (int64, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM attendances WHERE participant_id = $1`, participantID)
}

func (r *attendanceRepository) CountByEventIDAndStatus(ctx context.Context, eventID string, status domain.AttendanceStatus) (int64, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM attendances WHERE event_id = $1 AND status = $2`, eventID, status)
}

func (r *attendanceRepository) count(ctx context.Context, query string, args ...any) (int64, error) {
	var n int64
	if err := r.DB.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, mapError(err)
	}
	return n, nil
}
