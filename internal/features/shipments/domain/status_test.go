package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestNormalize_TextRules verifies the documented label mappings.
func TestNormalize_TextRules(t *testing.T) {
	tests := []struct {
		name string
		text string
		want CanonicalStatus
	}{
		{"OutForDelivery", "Out For Delivery", StatusOutForDelivery},
		{"OFDAbbrev", "OFD - handed to rider", StatusOutForDelivery},
		{"Delivered", "Delivered", StatusDelivered},
		{"DeliveredVerbose", "Delivered - Shipment delivered to recipient", StatusDelivered},
		{"InTransit", "In Transit", StatusInTransit},
		{"InTransitTypo", "In Transit - Shipment Recieved", StatusInTransit},
		{"Shipped", "Shipped", StatusManifested},
		{"ReadyToShip", "Ready To Ship", StatusManifested},
		{"Manifested", "Manifest Generated", StatusManifested},
		{"RTO", "RTO Initiated", StatusReturnedToOrigin},
		{"Returned", "Returned to seller", StatusReturnedToOrigin},
		{"Cancelled", "Canceled", StatusCancelled},
		{"CaseInsensitive", "dELiVeReD", StatusDelivered},
		{"Whitespace", "  out for delivery  ", StatusOutForDelivery},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Normalize(tt.text, 0, false)
			assert.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

// TestNormalize_OrderingPrecedence pins the load-bearing rule order:
// "out for delivery" contains "delivery" and must not classify as Delivered.
func TestNormalize_OrderingPrecedence(t *testing.T) {
	got, ok := Normalize("Out for Delivery - OFD", 0, false)
	assert.True(t, ok)
	assert.Equal(t, StatusOutForDelivery, got)
}

// TestNormalize_CodeTable verifies numeric code fallback when no text matches.
func TestNormalize_CodeTable(t *testing.T) {
	tests := []struct {
		code int
		want CanonicalStatus
	}{
		{7, StatusDelivered},
		{16, StatusDelivered},
		{26, StatusDelivered},
		{19, StatusOutForDelivery},
		{20, StatusInTransit},
		{6, StatusInTransit},
		{61, StatusInTransit},
	}

	for _, tt := range tests {
		got, ok := Normalize("", tt.code, true)
		assert.True(t, ok, "code %d", tt.code)
		assert.Equal(t, tt.want, got, "code %d", tt.code)
	}
}

// TestNormalize_TextBeforeCode verifies that a matching label wins over the code.
func TestNormalize_TextBeforeCode(t *testing.T) {
	got, ok := Normalize("In Transit", 7, true)
	assert.True(t, ok)
	assert.Equal(t, StatusInTransit, got)
}

// TestNormalize_Unrecognized verifies that unknown input reports false, never panics.
func TestNormalize_Unrecognized(t *testing.T) {
	_, ok := Normalize("", 0, false)
	assert.False(t, ok)

	_, ok = Normalize("some opaque label", 0, false)
	assert.False(t, ok)

	_, ok = Normalize("", 999, true)
	assert.False(t, ok)

	_, ok = Normalize("some opaque label", 999, true)
	assert.False(t, ok)
}

// TestAllowTransition_Monotonic verifies that rank never decreases between
// linear states and that equal rank passes.
func TestAllowTransition_Monotonic(t *testing.T) {
	linear := []CanonicalStatus{
		StatusUnshipped, StatusManifested, StatusInTransit, StatusOutForDelivery, StatusDelivered,
	}

	for _, cur := range linear {
		for _, in := range linear {
			got := AllowTransition(cur, true, in)
			if cur == StatusDelivered {
				assert.False(t, got, "final %v must lock out %v", cur, in)
				continue
			}
			assert.Equal(t, in.Rank() >= cur.Rank(), got, "current=%v incoming=%v", cur, in)
		}
	}
}

// TestAllowTransition_FinalLock verifies that final states are write-once.
func TestAllowTransition_FinalLock(t *testing.T) {
	all := []CanonicalStatus{
		StatusUnshipped, StatusManifested, StatusInTransit, StatusOutForDelivery,
		StatusDelivered, StatusReturnedToOrigin, StatusCancelled,
	}

	for _, final := range []CanonicalStatus{StatusDelivered, StatusReturnedToOrigin, StatusCancelled} {
		for _, in := range all {
			assert.False(t, AllowTransition(final, true, in), "final=%v incoming=%v", final, in)
		}
	}
}

// TestAllowTransition_TerminalAlternates verifies RTO/Cancelled are reachable
// from any non-final state regardless of rank.
func TestAllowTransition_TerminalAlternates(t *testing.T) {
	for _, cur := range []CanonicalStatus{StatusUnshipped, StatusManifested, StatusInTransit, StatusOutForDelivery} {
		assert.True(t, AllowTransition(cur, true, StatusReturnedToOrigin), "current=%v", cur)
		assert.True(t, AllowTransition(cur, true, StatusCancelled), "current=%v", cur)
	}
}

// TestAllowTransition_UnknownCurrent verifies anything is allowed before the
// first assignment.
func TestAllowTransition_UnknownCurrent(t *testing.T) {
	for _, in := range []CanonicalStatus{StatusUnshipped, StatusDelivered, StatusCancelled} {
		assert.True(t, AllowTransition(StatusUnshipped, false, in))
	}
}

// TestCanonicalStatus_Predicates covers the finality and rank helpers.
func TestCanonicalStatus_Predicates(t *testing.T) {
	assert.True(t, StatusDelivered.IsFinal())
	assert.True(t, StatusReturnedToOrigin.IsFinal())
	assert.True(t, StatusCancelled.IsFinal())
	assert.False(t, StatusInTransit.IsFinal())

	assert.True(t, StatusUnshipped.IsLinear())
	assert.True(t, StatusDelivered.IsLinear())
	assert.False(t, StatusReturnedToOrigin.IsLinear())
	assert.False(t, StatusCancelled.IsLinear())

	assert.Equal(t, "OUT_FOR_DELIVERY", StatusOutForDelivery.String())
	assert.Equal(t, "UNKNOWN", CanonicalStatus(42).String())
}
