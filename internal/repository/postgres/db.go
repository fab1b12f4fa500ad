package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"

	"github.com/lib/pq"

	"eventcore/internal/domain"
)

// Querier is satisfied by both *sql.DB and *sql.Tx, so every repository can
// run standalone or inside a transaction opened by the TxManager.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

//go:embed schema.sql
var schema string

// Migrate creates the tables and constraints if they do not exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return err
}

// Constraint names declared in schema.sql.
const (
	constraintParticipantEmail    = "participants_email_key"
	constraintParticipantDocument = "participants_document_number_key"
	constraintAttendancePair      = "attendances_event_participant_key"
	constraintEventCapacity       = "events_attendees_within_capacity"
)

// mapError translates driver errors into domain errors. Errors it does not
// recognise are returned unchanged.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code {
	case "23505": // unique_violation
		switch pqErr.Constraint {
		case constraintParticipantEmail:
			return domain.ErrDuplicateEmail
		case constraintParticipantDocument:
			return domain.ErrDuplicateDocument
		case constraintAttendancePair:
			return domain.ErrDuplicateAttendance
		}
		return domain.ErrDuplicate
	case "23514": // check_violation
		if pqErr.Constraint == constraintEventCapacity {
			return domain.ErrCapacityReached
		}
	case "23503": // foreign_key_violation
		return domain.ErrNotFound
	case "40001", "40P01", "55P03": // serialization_failure, deadlock_detected, lock_not_available
		return domain.ErrConcurrentUpdate
	}
	return err
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23503"
}

// checkAffected returns ErrNotFound when an UPDATE or DELETE touched no rows.
func checkAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
