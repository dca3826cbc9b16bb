package service

import (
	"encoding/json"
	"strconv"
	"strings"

	"shipsync/internal/features/shipments/domain"
)

// flexString tolerates provider fields that arrive as either JSON strings
// or numbers (order ids and AWBs switch types between payload shapes).
type flexString string

// UnmarshalJSON accepts a string, a number, or null.
func (f *flexString) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), "\"")
	if s == "null" {
		*f = ""
		return nil
	}
	*f = flexString(s)
	return nil
}

// flexInt tolerates numeric codes that arrive as numbers or numeric strings.
// Set reports whether a usable value was present.
type flexInt struct {
	Value int
	Set   bool
}

// UnmarshalJSON accepts a number, a numeric string, or null.
func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), "\"")
	if s == "" || s == "null" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		// Non-numeric shipment_status strings are handled as text elsewhere.
		return nil
	}
	f.Value = n
	f.Set = true
	return nil
}

// payloadScan is one scan entry in either payload shape.
type payloadScan struct {
	// Activity is the scan description.
	Activity string `json:"activity"`
	// Date is the scan timestamp as the provider formats it.
	Date string `json:"date"`
	// Location is where the scan happened.
	Location string `json:"location"`
	// StatusLabel is the per-scan status label some feeds attach.
	StatusLabel string `json:"sr-status-label"`
}

// shipmentTrackEntry is one element of the polling API's shipment_track list.
type shipmentTrackEntry struct {
	AWB           flexString `json:"awb_code"`
	CourierName   string     `json:"courier_name"`
	CurrentStatus string     `json:"current_status"`
	ShipmentID    flexString `json:"shipment_id"`
	OrderID       flexString `json:"order_id"`
}

// trackingData is the polling API's envelope.
type trackingData struct {
	ShipmentStatus flexInt              `json:"shipment_status"`
	ShipmentTrack  []shipmentTrackEntry `json:"shipment_track"`
	Activities     []payloadScan        `json:"shipment_track_activities"`
	TrackURL       string               `json:"track_url"`
}

// TrackingPayload is the union of the webhook push shape and the polling
// API response shape. Absent fields stay zero; extraction decides which
// shape actually carried data.
type TrackingPayload struct {
	// Webhook push fields.
	AWB             flexString    `json:"awb"`
	CourierName     string        `json:"courier_name"`
	CurrentStatus   string        `json:"current_status"`
	CurrentStatusID flexInt       `json:"current_status_id"`
	ShipmentStatus  flexInt       `json:"shipment_status"`
	OrderID         flexString    `json:"order_id"`
	ShipmentID      flexString    `json:"shipment_id"`
	Scans           []payloadScan `json:"scans"`
	TrackURL        string        `json:"track_url"`

	// Polling response envelope.
	TrackingData *trackingData `json:"tracking_data"`
}

// ParsePayload decodes raw provider bytes. It fails only on invalid JSON;
// a valid document with none of the known fields is an empty payload and
// reconciles as a no-op.
func ParsePayload(raw []byte) (*TrackingPayload, error) {
	var p TrackingPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Identifiers returns every order identifier the payload carries, most
// specific resolution order first: provider order id, AWB, shipment id.
func (p *TrackingPayload) Identifiers() []string {
	var ids []string
	add := func(s flexString) {
		if s != "" {
			ids = append(ids, string(s))
		}
	}
	add(p.OrderID)
	add(p.AWB)
	add(p.ShipmentID)
	if p.TrackingData != nil && len(p.TrackingData.ShipmentTrack) > 0 {
		entry := p.TrackingData.ShipmentTrack[0]
		add(entry.OrderID)
		add(entry.AWB)
		add(entry.ShipmentID)
	}
	return ids
}

// extracted is the provider-shape-independent view the pipeline works on.
type extracted struct {
	statusText string
	statusCode int
	hasCode    bool
	awb        string
	courier    string
	trackURL   string
	shipmentID string
	scans      []domain.ShipmentEvent
}

// empty reports whether the payload carried nothing the pipeline can use.
func (e extracted) empty() bool {
	return e.statusText == "" && !e.hasCode && e.awb == "" && e.courier == "" &&
		e.trackURL == "" && e.shipmentID == "" && len(e.scans) == 0
}

// extract flattens both payload shapes. Status text preference, most
// specific first: the newest scan's status label, then the shipment_track
// entry, then the top-level current_status. The numeric code is a fallback
// for feeds that omit labels entirely.
func (p *TrackingPayload) extract() extracted {
	var e extracted

	e.awb = string(p.AWB)
	e.courier = p.CourierName
	e.trackURL = p.TrackURL
	e.shipmentID = string(p.ShipmentID)

	scans := p.Scans
	statusFromTrack := ""

	if p.TrackingData != nil {
		td := p.TrackingData
		if len(td.Activities) > 0 {
			scans = td.Activities
		}
		if e.trackURL == "" {
			e.trackURL = td.TrackURL
		}
		if len(td.ShipmentTrack) > 0 {
			entry := td.ShipmentTrack[0]
			statusFromTrack = entry.CurrentStatus
			if e.awb == "" {
				e.awb = string(entry.AWB)
			}
			if e.courier == "" {
				e.courier = entry.CourierName
			}
			if e.shipmentID == "" {
				e.shipmentID = string(entry.ShipmentID)
			}
		}
		if !p.CurrentStatusID.Set && td.ShipmentStatus.Set {
			e.statusCode = td.ShipmentStatus.Value
			e.hasCode = true
		}
	}

	for _, s := range scans {
		e.scans = append(e.scans, domain.ShipmentEvent{
			Activity:  s.Activity,
			Timestamp: s.Date,
			Location:  s.Location,
		})
	}

	switch {
	case len(scans) > 0 && scans[len(scans)-1].StatusLabel != "":
		e.statusText = scans[len(scans)-1].StatusLabel
	case statusFromTrack != "":
		e.statusText = statusFromTrack
	default:
		e.statusText = p.CurrentStatus
	}

	if p.CurrentStatusID.Set {
		e.statusCode = p.CurrentStatusID.Value
		e.hasCode = true
	} else if !e.hasCode && p.ShipmentStatus.Set {
		e.statusCode = p.ShipmentStatus.Value
		e.hasCode = true
	}

	return e
}
