package domain

import "time"

// ShipmentState is the locally stored view of one shipment, mutated only
// by the reconciliation pipeline and retained for audit (never deleted).
type ShipmentState struct {
	// ShipmentID is the provider's shipment identifier.
	ShipmentID string `json:"shipment_id,omitempty"`
	// AWB is the carrier-assigned tracking number.
	AWB string `json:"awb,omitempty"`
	// CourierName is the carrier handling the shipment.
	CourierName string `json:"courier_name,omitempty"`
	// Status is the canonical shipment status. Meaningful only when StatusKnown.
	Status CanonicalStatus `json:"status"`
	// StatusKnown is false until a recognized status has been assigned.
	StatusKnown bool `json:"status_known"`
	// TrackURL is the customer-facing tracking page.
	TrackURL string `json:"track_url,omitempty"`
	// Events is the deduplicated scan log, in first-seen order.
	Events []ShipmentEvent `json:"events,omitempty"`
	// LastSyncedAt is when the record last went through reconciliation.
	LastSyncedAt time.Time `json:"last_synced_at"`
}

// BackfillField applies the metadata write policy: an empty field may be
// filled, a same value is a no-op, and a conflicting non-empty value is
// kept as stored (concurrent writers are arbitrated by the store's
// version check, not here). Returns the resulting value and whether it
// differs from current.
func BackfillField(current, incoming string) (string, bool) {
	if incoming == "" || incoming == current {
		return current, false
	}
	if current == "" {
		return incoming, true
	}
	return current, false
}

// EqualEvents reports whether two event logs are identical element-wise.
func EqualEvents(a, b []ShipmentEvent) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
