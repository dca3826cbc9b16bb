package service

import (
	"testing"
	"time"

	"shipsync/internal/features/shipments/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2023, 5, 24, 13, 0, 0, 0, time.UTC)

func mustParse(t *testing.T, raw string) *TrackingPayload {
	t.Helper()
	p, err := ParsePayload([]byte(raw))
	require.NoError(t, err)
	return p
}

// TestReconcile_WebhookThenPollAgree walks the two-channel convergence
// scenario: a webhook push followed by a poll response carrying the same
// scan plus a newer one.
func TestReconcile_WebhookThenPollAgree(t *testing.T) {
	r := NewReconciler()

	webhook := mustParse(t, `{
		"awb": "AWB777",
		"courier_name": "Delhivery",
		"current_status": "In Transit",
		"order_id": "ORD-1",
		"scans": [
			{"activity": "Picked Up", "date": "2023-05-19T11:59:16", "location": "Jaipur"}
		]
	}`)

	res := r.Reconcile("ORD-1", domain.ShipmentState{}, webhook, testNow)
	require.True(t, res.Changed)
	assert.True(t, res.StatusChanged)
	assert.Equal(t, domain.StatusInTransit, res.To)
	assert.Equal(t, domain.StatusInTransit, res.State.Status)
	assert.Equal(t, "AWB777", res.State.AWB)
	assert.Len(t, res.State.Events, 1)

	poll := mustParse(t, `{
		"tracking_data": {
			"shipment_status": 7,
			"shipment_track": [
				{"awb_code": "AWB777", "courier_name": "Delhivery", "current_status": "Delivered"}
			],
			"shipment_track_activities": [
				{"activity": "Picked Up", "date": "2023-05-19T11:59:16", "location": "Jaipur"},
				{"activity": "Delivered", "date": "2023-05-24T12:30:00", "location": "Mumbai"}
			]
		}
	}`)

	res2 := r.Reconcile("ORD-1", res.State, poll, testNow.Add(time.Hour))
	require.True(t, res2.Changed)
	assert.True(t, res2.StatusChanged)
	assert.Equal(t, domain.StatusInTransit, res2.From)
	assert.Equal(t, domain.StatusDelivered, res2.State.Status)
	require.Len(t, res2.State.Events, 2)
	assert.Equal(t, "Picked Up", res2.State.Events[0].Activity)
	assert.Equal(t, "Delivered", res2.State.Events[1].Activity)
}

// TestReconcile_StalePollCannotRegress verifies a stale cached provider
// response cannot move a delivered shipment backwards.
func TestReconcile_StalePollCannotRegress(t *testing.T) {
	r := NewReconciler()
	stored := domain.ShipmentState{
		Status:      domain.StatusDelivered,
		StatusKnown: true,
		AWB:         "AWB777",
	}

	stale := mustParse(t, `{"current_status": "In Transit", "awb": "AWB777"}`)

	res := r.Reconcile("ORD-1", stored, stale, testNow)
	assert.False(t, res.Changed)
	assert.False(t, res.StatusChanged)
	assert.Equal(t, domain.StatusDelivered, res.State.Status)
}

// TestReconcile_WriteAvoidance verifies a repeat payload on a converged
// state reports Changed=false.
func TestReconcile_WriteAvoidance(t *testing.T) {
	r := NewReconciler()
	payload := mustParse(t, `{
		"awb": "AWB777",
		"courier_name": "Delhivery",
		"current_status": "In Transit",
		"scans": [
			{"activity": "Picked Up", "date": "2023-05-19T11:59:16", "location": "Jaipur"}
		]
	}`)

	first := r.Reconcile("ORD-1", domain.ShipmentState{}, payload, testNow)
	require.True(t, first.Changed)

	second := r.Reconcile("ORD-1", first.State, payload, testNow.Add(time.Minute))
	assert.False(t, second.Changed)
	assert.False(t, second.StatusChanged)
	// LastSyncedAt still refreshes so the daemon does not re-select the order.
	assert.Equal(t, testNow.Add(time.Minute), second.State.LastSyncedAt)
}

// TestReconcile_MalformedPayloadIsNoOp verifies an empty-but-valid document
// converges as a no-op, not an error.
func TestReconcile_MalformedPayloadIsNoOp(t *testing.T) {
	r := NewReconciler()
	stored := domain.ShipmentState{Status: domain.StatusInTransit, StatusKnown: true}

	res := r.Reconcile("ORD-1", stored, mustParse(t, `{"unrelated": true}`), testNow)
	assert.False(t, res.Changed)
	assert.Equal(t, stored.Status, res.State.Status)

	res = r.Reconcile("ORD-1", stored, nil, testNow)
	assert.False(t, res.Changed)
}

// TestReconcile_UnrecognizedStatusKeepsStored verifies a payload with an
// unknown label still back-fills metadata without touching the status.
func TestReconcile_UnrecognizedStatusKeepsStored(t *testing.T) {
	r := NewReconciler()
	stored := domain.ShipmentState{Status: domain.StatusManifested, StatusKnown: true}

	p := mustParse(t, `{"current_status": "some opaque milestone", "awb": "AWB42"}`)
	res := r.Reconcile("ORD-1", stored, p, testNow)

	assert.True(t, res.Changed)
	assert.False(t, res.StatusChanged)
	assert.Equal(t, domain.StatusManifested, res.State.Status)
	assert.Equal(t, "AWB42", res.State.AWB)
}

// TestReconcile_NumericIDAndCodeFallback verifies numeric order ids and the
// status code table path.
func TestReconcile_NumericIDAndCodeFallback(t *testing.T) {
	r := NewReconciler()

	p := mustParse(t, `{"order_id": 12345, "current_status_id": 19}`)
	assert.Equal(t, []string{"12345"}, p.Identifiers())

	res := r.Reconcile("12345", domain.ShipmentState{}, p, testNow)
	require.True(t, res.StatusChanged)
	assert.Equal(t, domain.StatusOutForDelivery, res.State.Status)
}

// TestReconcile_PerScanLabelPreferred verifies the most specific status
// source wins: the newest scan's label over the shipment-level status.
func TestReconcile_PerScanLabelPreferred(t *testing.T) {
	r := NewReconciler()

	p := mustParse(t, `{
		"current_status": "In Transit",
		"scans": [
			{"activity": "Handed to rider", "date": "2023-05-24T07:00:00", "location": "Mumbai", "sr-status-label": "Out For Delivery"}
		]
	}`)

	res := r.Reconcile("ORD-1", domain.ShipmentState{}, p, testNow)
	require.True(t, res.StatusChanged)
	assert.Equal(t, domain.StatusOutForDelivery, res.State.Status)
}

// TestReconcile_MetadataNotOverwritten verifies the back-fill policy keeps
// a stored AWB when a payload carries a different one.
func TestReconcile_MetadataNotOverwritten(t *testing.T) {
	r := NewReconciler()
	stored := domain.ShipmentState{AWB: "AWB-OLD", Status: domain.StatusInTransit, StatusKnown: true}

	p := mustParse(t, `{"awb": "AWB-NEW", "current_status": "In Transit"}`)
	res := r.Reconcile("ORD-1", stored, p, testNow)

	assert.Equal(t, "AWB-OLD", res.State.AWB)
	assert.False(t, res.Changed)
}

// TestParsePayload_InvalidJSON verifies only broken documents error.
func TestParsePayload_InvalidJSON(t *testing.T) {
	_, err := ParsePayload([]byte("not json"))
	assert.Error(t, err)

	p, err := ParsePayload([]byte(`{}`))
	require.NoError(t, err)
	assert.Empty(t, p.Identifiers())
}

// TestPayload_IdentifierResolutionOrder verifies order id > AWB > shipment id.
func TestPayload_IdentifierResolutionOrder(t *testing.T) {
	p := mustParse(t, `{"order_id": "ORD-1", "awb": "AWB777", "shipment_id": 42}`)
	assert.Equal(t, []string{"ORD-1", "AWB777", "42"}, p.Identifiers())
}
