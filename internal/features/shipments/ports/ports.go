package ports

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shipsync/internal/features/shipments/domain"
)

// ErrNotFound is returned when no record matches the given key or identifier.
var ErrNotFound = errors.New("shipment record not found")

// ErrVersionConflict is returned when CompareAndSwap loses a write race.
// The caller re-reads the record and reconciles again.
var ErrVersionConflict = errors.New("shipment record version conflict")

// Record is one stored shipment plus the version the store arbitrates
// concurrent writes with.
type Record struct {
	// OrderKey uniquely identifies the order in the store.
	OrderKey string `json:"order_key"`
	// Version increments on every successful write.
	Version int64 `json:"version"`
	// State is the reconciled shipment view.
	State domain.ShipmentState `json:"state"`
}

// OrderStore persists shipment records. Writes go through CompareAndSwap
// so that two concurrent reconciliations of the same order cannot produce
// a lost update.
type OrderStore interface {
	// Get returns the record for an order key.
	Get(ctx context.Context, orderKey string) (*Record, error)

	// FindByIdentifier resolves a provider order id, AWB or shipment id to
	// its record. Returns ErrNotFound when no identifier matches.
	FindByIdentifier(ctx context.Context, identifier string) (*Record, error)

	// CompareAndSwap writes state for orderKey only if the stored version
	// still equals expectedVersion. expectedVersion 0 creates the record.
	// Returns ErrVersionConflict when another writer got there first.
	CompareAndSwap(ctx context.Context, orderKey string, expectedVersion int64, state domain.ShipmentState) error

	// SelectSyncCandidates returns up to limit records whose LastSyncedAt
	// is older than lookback, or whose AWB/status is still unset,
	// most-recently-updated first.
	SelectSyncCandidates(ctx context.Context, lookback time.Duration, limit int) ([]Record, error)

	// Ping checks that the backing store is reachable.
	Ping(ctx context.Context) error
}

// FailureClass divides provider fetch errors into retryable and not.
type FailureClass int

const (
	// FailureTransient covers 5xx, timeouts, resets and DNS failures; retried with backoff.
	FailureTransient FailureClass = iota
	// FailurePermanent covers 4xx and auth problems; logged and skipped, never retried.
	FailurePermanent
)

// String returns the log label for the failure class.
func (c FailureClass) String() string {
	if c == FailurePermanent {
		return "permanent"
	}
	return "transient"
}

// FetchError is a classified provider API failure.
type FetchError struct {
	// Class decides whether the call is retried.
	Class FailureClass
	// Err is the underlying failure.
	Err error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	return fmt.Sprintf("provider fetch failed (%s): %v", e.Class, e.Err)
}

// Unwrap exposes the underlying error to errors.Is/As.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// TrackingFetcher is the outbound carrier tracking API, one lookup method
// per identifier kind. Each returns the raw provider payload bytes or a
// classified *FetchError.
type TrackingFetcher interface {
	FetchByShipmentID(ctx context.Context, shipmentID string) ([]byte, error)
	FetchByOrderID(ctx context.Context, orderID string) ([]byte, error)
	FetchByAWB(ctx context.Context, awb string) ([]byte, error)
}

// TransitionNotifier is invoked once per observed status transition, never
// per reconciliation call, so downstream email/SMS systems are not spammed
// by no-op syncs. Implementations must be fire-and-forget cheap.
type TransitionNotifier interface {
	StatusChanged(ctx context.Context, orderKey string, from, to domain.CanonicalStatus)
}
