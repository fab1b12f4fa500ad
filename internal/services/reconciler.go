package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"eventcore/internal/domain"
)

const defaultReconcileWorkers = 4

// Reconciler periodically recomputes every event's attendee counter from its
// attendances and reports the cache keys of events that were corrected.
type Reconciler struct {
	events     domain.EventRepository
	attendance domain.AttendanceService
	onChange   func(ctx context.Context, keys []string)
	interval   time.Duration
	workers    int
	logger     *slog.Logger
}

// NewReconciler returns a Reconciler. onChange may be nil.
func NewReconciler(
	events domain.EventRepository,
	attendance domain.AttendanceService,
	onChange func(ctx context.Context, keys []string),
	interval time.Duration,
	logger *slog.Logger,
) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		events:     events,
		attendance: attendance,
		onChange:   onChange,
		interval:   interval,
		workers:    defaultReconcileWorkers,
		logger:     logger,
	}
}

// Run sweeps once immediately and then on every tick until ctx is done.
// It returns nil when the interval is not positive.
func (r *Reconciler) Run(ctx context.Context) error {
	if r.interval <= 0 {
		return nil
	}
	r.sweepAndLog(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.sweepAndLog(ctx)
		}
	}
}

func (r *Reconciler) sweepAndLog(ctx context.Context) {
	fixed, err := r.Sweep(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		r.logger.ErrorContext(ctx, "reconcile sweep failed", "err", err)
		return
	}
	if fixed > 0 {
		r.logger.InfoContext(ctx, "reconcile sweep corrected events", "count", fixed)
	}
}

// Sweep reconciles all events and returns how many were corrected. A failure
// on one event does not stop the others; the errors are joined.
func (r *Reconciler) Sweep(ctx context.Context) (int, error) {
	events, err := r.events.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list events: %w", err)
	}

	var (
		fixed atomic.Int64
		errs  = make([]error, len(events))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, e := range events {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			_, keys, err := r.attendance.ReconcileAttendees(gctx, e.ID)
			if err != nil {
				errs[i] = fmt.Errorf("event %s: %w", e.ID, err)
				return nil
			}
			if len(keys) > 0 {
				fixed.Add(1)
				if r.onChange != nil {
					r.onChange(gctx, keys)
				}
			}
			return nil
		})
	}
	_ = g.Wait()
	return int(fixed.Load()), errors.Join(errs...)
}
