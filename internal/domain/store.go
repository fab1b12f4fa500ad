package domain

import (
	"context"
	"time"
)

// Repositories bundles the entity repositories bound to one unit of work.
type Repositories struct {
	Events       EventRepository
	Participants ParticipantRepository
	Attendances  AttendanceRepository
}

// TxManager runs fn inside a single transaction. The transaction commits when
// fn returns nil and rolls back otherwise. Implementations report aborted
// transactions caused by conflicting writers as ErrConcurrentUpdate.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}

// CacheStore is a best-effort key/value store with per-entry TTL.
type CacheStore interface {
	// Get returns the cached value and whether a live entry was found.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}
