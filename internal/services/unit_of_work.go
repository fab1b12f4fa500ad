package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"eventcore/internal/domain"
)

// unitOfWork runs a transactional callback and retries it when the store
// aborts the transaction because of a conflicting writer. Business-rule
// failures are deterministic and are never retried.
type unitOfWork struct {
	tx          domain.TxManager
	maxAttempts int
	logger      *slog.Logger
}

func newUnitOfWork(tx domain.TxManager, maxAttempts int, logger *slog.Logger) unitOfWork {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return unitOfWork{tx: tx, maxAttempts: maxAttempts, logger: logger}
}

func (u unitOfWork) run(ctx context.Context, op string, fn func(ctx context.Context, repos domain.Repositories) error) error {
	var err error
	for attempt := 1; attempt <= u.maxAttempts; attempt++ {
		err = u.tx.WithinTx(ctx, fn)
		if err == nil || !errors.Is(err, domain.ErrConcurrentUpdate) {
			return err
		}
		if ctx.Err() != nil {
			break
		}
		u.logger.WarnContext(ctx, "transaction conflict, retrying",
			"op", op, "attempt", attempt, "max_attempts", u.maxAttempts, "err", err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// notFound names the missing entity while keeping domain.ErrNotFound in the chain.
func notFound(entity, id string) error {
	return fmt.Errorf("%s %w: %s", entity, domain.ErrNotFound, id)
}

// lookupErr converts a repository lookup failure into a service error.
func lookupErr(entity, id string, err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return notFound(entity, id)
	}
	return storeErr("get "+entity, err)
}

// storeErr passes domain errors through untouched and wraps infrastructure
// failures with the operation name.
func storeErr(op string, err error) error {
	if isDomainErr(err) {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isDomainErr(err error) bool {
	return errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrDuplicate) ||
		errors.Is(err, domain.ErrBusinessRule) ||
		errors.Is(err, domain.ErrConcurrentUpdate)
}
