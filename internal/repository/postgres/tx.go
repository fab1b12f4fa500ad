package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"eventcore/internal/domain"
)

type txManager struct {
	DB *sql.DB
}

// NewTxManager returns a TxManager that runs each unit of work in a
// READ COMMITTED transaction. Serialisation of writers on the same event
// relies on the row lock taken by GetByIDForUpdate.
func NewTxManager(db *sql.DB) domain.TxManager {
	return &txManager{DB: db}
}

// Repositories returns repositories bound to the connection pool.
func Repositories(db *sql.DB) domain.Repositories {
	return bind(db)
}

func bind(q Querier) domain.Repositories {
	return domain.Repositories{
		Events:       NewEventRepository(q),
		Participants: NewParticipantRepository(q),
		Attendances:  NewAttendanceRepository(q),
	}
}

func (m *txManager) WithinTx(ctx context.Context, fn func(ctx context.Context, repos domain.Repositories) error) (err error) {
	tx, err := m.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", mapError(err))
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				err = errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
			}
		}
	}()

	if err = fn(ctx, bind(tx)); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", mapError(err))
	}
	return nil
}
