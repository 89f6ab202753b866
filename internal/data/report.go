package data

import "time"

// DeliveryStatus is the acknowledgement state reported for a message.
type DeliveryStatus string

const (
	DeliveryDelivered DeliveryStatus = "delivered"
	DeliveryDisplayed DeliveryStatus = "displayed"
	DeliveryFailed    DeliveryStatus = "failed"
)

// ReportTransport records which channel actually carried a delivery report.
type ReportTransport string

const (
	// TransportInSession piggybacks the report on an established media path.
	TransportInSession ReportTransport = "in-session"
	// TransportOutOfBand sends a standalone control message addressed with
	// the remote instance identifier.
	TransportOutOfBand ReportTransport = "out-of-band"
)

// DeliveryReport is one acknowledgement for one message. At most one report
// per (MessageID, Status) pair is ever dispatched.
type DeliveryReport struct {
	MessageID string          `json:"messageId"`
	Contact   string          `json:"contact"`
	Status    DeliveryStatus  `json:"status"`
	Timestamp time.Time       `json:"timestamp"`
	Transport ReportTransport `json:"transport,omitempty"`
}
