package domain

import "strings"

// ShipmentEvent is a single carrier scan.
// Timestamp is kept as the provider's original string; event identity is
// textual, so reformatting the date would split one event into two.
type ShipmentEvent struct {
	// Activity is the scan description (e.g., "Picked Up", "Delivered").
	Activity string `json:"activity"`
	// Timestamp is the provider-supplied scan time, verbatim.
	Timestamp string `json:"timestamp,omitempty"`
	// Location is where the scan happened.
	Location string `json:"location"`
}

// identity returns the dedup key: the case-folded, trimmed
// (activity, timestamp, location) triple. Two events with equal identity
// are the same scan no matter what other fields the payload carried.
func (e ShipmentEvent) identity() string {
	return strings.ToLower(strings.TrimSpace(e.Activity)) + "\x00" +
		strings.ToLower(strings.TrimSpace(e.Timestamp)) + "\x00" +
		strings.ToLower(strings.TrimSpace(e.Location))
}

// MergeEvents returns existing followed by every incoming event whose
// identity is not already present, preserving both relative orders.
// Stored events are never reordered or dropped; the provider does not
// guarantee scan ordering within a push, so first-seen order is the only
// stable one. Idempotent: MergeEvents(l, l) == l.
func MergeEvents(existing, incoming []ShipmentEvent) []ShipmentEvent {
	seen := make(map[string]struct{}, len(existing))
	for _, e := range existing {
		seen[e.identity()] = struct{}{}
	}

	merged := make([]ShipmentEvent, len(existing), len(existing)+len(incoming))
	copy(merged, existing)
	for _, e := range incoming {
		id := e.identity()
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		merged = append(merged, e)
	}
	return merged
}
