package service

import (
	"time"

	"shipsync/internal/core/logger"
	"shipsync/internal/features/shipments/domain"

	"go.uber.org/zap"
)

// Result is the outcome of one reconciliation pass.
type Result struct {
	// State is the staged shipment state. LastSyncedAt is always refreshed.
	State domain.ShipmentState
	// Changed is true iff at least one staged field differs from the stored
	// state (LastSyncedAt excluded). Callers persist only when true.
	Changed bool
	// StatusChanged is true iff the canonical status moved. Drives the
	// transition notifier, so no-op syncs never trigger notifications.
	StatusChanged bool
	// From and To are the statuses around the transition, valid when
	// StatusChanged is true.
	From domain.CanonicalStatus
	To   domain.CanonicalStatus
}

// Reconciler merges raw provider payloads into stored shipment state.
// It is a pure computation over a snapshot; both the webhook handler and
// the sync daemon call the same instance concurrently, and the store's
// compare-and-swap arbitrates racing writes.
type Reconciler struct {
	log *zap.Logger
}

// NewReconciler creates a Reconciler.
func NewReconciler() *Reconciler {
	return &Reconciler{
		log: logger.Get(),
	}
}

// Reconcile applies one payload to stored state: extract, normalize, guard,
// back-fill metadata, merge scans, diff. A payload with nothing extractable
// is a no-op convergence step, not an error.
func (r *Reconciler) Reconcile(orderKey string, stored domain.ShipmentState, payload *TrackingPayload, now time.Time) Result {
	res := Result{State: stored}
	res.State.LastSyncedAt = now

	if payload == nil {
		return res
	}

	ext := payload.extract()
	if ext.empty() {
		r.log.Debug("Payload carried no extractable fields, skipping",
			zap.String("order_key", orderKey),
		)
		return res
	}

	if canonical, ok := domain.Normalize(ext.statusText, ext.statusCode, ext.hasCode); ok {
		if domain.AllowTransition(stored.Status, stored.StatusKnown, canonical) {
			if !stored.StatusKnown || canonical != stored.Status {
				res.StatusChanged = true
				res.From = stored.Status
				res.To = canonical
				res.Changed = true
			}
			res.State.Status = canonical
			res.State.StatusKnown = true
		} else {
			r.log.Info("Status transition rejected by progression guard",
				zap.String("order_key", orderKey),
				zap.String("current", stored.Status.String()),
				zap.String("incoming", canonical.String()),
			)
		}
	} else if ext.statusText != "" || ext.hasCode {
		r.log.Warn("Unrecognized provider status",
			zap.String("order_key", orderKey),
			zap.String("status_text", ext.statusText),
			zap.Int("status_code", ext.statusCode),
		)
	}

	var changed bool
	res.State.AWB, changed = domain.BackfillField(stored.AWB, ext.awb)
	res.Changed = res.Changed || changed
	res.State.CourierName, changed = domain.BackfillField(stored.CourierName, ext.courier)
	res.Changed = res.Changed || changed
	res.State.TrackURL, changed = domain.BackfillField(stored.TrackURL, ext.trackURL)
	res.Changed = res.Changed || changed
	res.State.ShipmentID, changed = domain.BackfillField(stored.ShipmentID, ext.shipmentID)
	res.Changed = res.Changed || changed

	res.State.Events = domain.MergeEvents(stored.Events, ext.scans)
	if !domain.EqualEvents(stored.Events, res.State.Events) {
		res.Changed = true
	}

	return res
}
