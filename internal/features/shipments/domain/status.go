package domain

import "strings"

// CanonicalStatus is the provider-agnostic shipment status vocabulary.
// The linear states are ordered by rank; ReturnedToOrigin and Cancelled
// sit outside the linear order and are compared only by finality.
type CanonicalStatus int

const (
	// StatusUnshipped means no carrier has the package yet.
	StatusUnshipped CanonicalStatus = iota
	// StatusManifested means the shipment has been registered with a carrier.
	StatusManifested
	// StatusInTransit means the package is moving through the carrier network.
	StatusInTransit
	// StatusOutForDelivery means the package is on the last-mile vehicle.
	StatusOutForDelivery
	// StatusDelivered means the package reached the recipient.
	StatusDelivered
	// StatusReturnedToOrigin means the carrier sent the package back to the seller.
	StatusReturnedToOrigin
	// StatusCancelled means the shipment was voided before completion.
	StatusCancelled
)

// String returns the storefront-facing label for the status.
func (s CanonicalStatus) String() string {
	switch s {
	case StatusUnshipped:
		return "UNSHIPPED"
	case StatusManifested:
		return "MANIFESTED"
	case StatusInTransit:
		return "IN_TRANSIT"
	case StatusOutForDelivery:
		return "OUT_FOR_DELIVERY"
	case StatusDelivered:
		return "DELIVERED"
	case StatusReturnedToOrigin:
		return "RETURNED_TO_ORIGIN"
	case StatusCancelled:
		return "CANCELLED"
	default:
		return "UNKNOWN"
	}
}

// IsFinal reports whether the status is write-once: once a shipment is
// delivered, returned or cancelled, no later payload may change it.
func (s CanonicalStatus) IsFinal() bool {
	return s == StatusDelivered || s == StatusReturnedToOrigin || s == StatusCancelled
}

// IsLinear reports whether the status participates in the rank order.
func (s CanonicalStatus) IsLinear() bool {
	return s >= StatusUnshipped && s <= StatusDelivered
}

// Rank returns the position of a linear status in the progression.
// Only meaningful when IsLinear is true.
func (s CanonicalStatus) Rank() int {
	return int(s)
}

// codeStatuses maps provider numeric status ids to canonical statuses.
// Consulted only when no text rule matched.
var codeStatuses = map[int]CanonicalStatus{
	7:  StatusDelivered,
	16: StatusDelivered,
	26: StatusDelivered,
	19: StatusOutForDelivery,
	20: StatusInTransit,
	6:  StatusInTransit,
	61: StatusInTransit,
}

// Normalize maps a provider status label and/or numeric code to a canonical
// status. Text rules run first, in order; "out for" must be checked before
// "deliv" because "out for delivery" contains "delivery". hasCode indicates
// whether code carries a value (payloads often omit it). The second return
// is false when the input is unrecognized; callers must not change the
// stored status in that case.
func Normalize(text string, code int, hasCode bool) (CanonicalStatus, bool) {
	t := strings.ToLower(strings.TrimSpace(text))

	switch {
	case t == "":
		// fall through to the code table
	case strings.Contains(t, "rto") || strings.Contains(t, "return"):
		return StatusReturnedToOrigin, true
	case strings.Contains(t, "cancel"):
		return StatusCancelled, true
	case strings.Contains(t, "out for") || strings.Contains(t, "ofd"):
		return StatusOutForDelivery, true
	case strings.Contains(t, "deliv"):
		return StatusDelivered, true
	case strings.Contains(t, "transit"):
		return StatusInTransit, true
	case strings.Contains(t, "ship") || strings.Contains(t, "ready") || strings.Contains(t, "manifest"):
		return StatusManifested, true
	}

	if hasCode {
		if s, ok := codeStatuses[code]; ok {
			return s, true
		}
	}

	return StatusUnshipped, false
}

// AllowTransition decides whether incoming may replace current.
// known is false when no status was ever assigned, in which case anything
// is allowed. Final states are locked. Terminal alternates are reachable
// from any non-final state. Between linear states the rank must not
// decrease; equal rank passes so a repeat payload can refresh metadata.
func AllowTransition(current CanonicalStatus, known bool, incoming CanonicalStatus) bool {
	if !known {
		return true
	}
	if current.IsFinal() {
		return false
	}
	if incoming == StatusReturnedToOrigin || incoming == StatusCancelled {
		return true
	}
	return incoming.Rank() >= current.Rank()
}
