package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/wnt/rebalancer/internal/metrics"
	"github.com/wnt/rebalancer/internal/models"
)

// StatusStore is the read-only persistence surface the status projection
// needs
type StatusStore interface {
	CountRebalanceNeeded(ctx context.Context) (int64, error)
	LatestErrorEvent(ctx context.Context) (*models.PoolEvent, error)
}

// Status is the read-only projection of the worker state for external
// callers
type Status struct {
	Running           bool       `json:"running"`
	LastCheckTime     *time.Time `json:"last_check_time,omitempty"`
	PendingRebalances int64      `json:"pending_rebalances"`
	LastError         *LastError `json:"last_error,omitempty"`
}

// LastError summarizes the most recent error-severity pool event
type LastError struct {
	PoolID      uint      `json:"pool_id"`
	Description string    `json:"description"`
	At          time.Time `json:"at"`
}

// StatusReporter combines the reconciler's run state with the persisted
// audit trail into one projection. Read-only; no mutation.
type StatusReporter struct {
	reconciler *Reconciler
	store      StatusStore
}

// NewStatusReporter creates a status reporter
func NewStatusReporter(reconciler *Reconciler, store StatusStore) *StatusReporter {
	return &StatusReporter{
		reconciler: reconciler,
		store:      store,
	}
}

// Status builds the current projection
func (s *StatusReporter) Status(ctx context.Context) (Status, error) {
	status := Status{
		Running: s.reconciler.IsRunning(),
	}

	if last := s.reconciler.LastCheckTime(); !last.IsZero() {
		status.LastCheckTime = &last
	}

	pending, err := s.store.CountRebalanceNeeded(ctx)
	if err != nil {
		return status, fmt.Errorf("failed to count pending rebalances: %w", err)
	}
	status.PendingRebalances = pending
	metrics.PendingRebalances.Set(float64(pending))

	lastError, err := s.store.LatestErrorEvent(ctx)
	if err != nil {
		return status, fmt.Errorf("failed to query latest error: %w", err)
	}
	if lastError != nil {
		status.LastError = &LastError{
			PoolID:      lastError.PoolID,
			Description: lastError.Description,
			At:          lastError.CreatedAt,
		}
	}

	return status, nil
}
