package transport

import "encoding/json"

// Envelope is one inbound frame from a client: an operation name, its
// JSON payload, and an optional ack id the client wants its result
// correlated with (the request/response half of the protocol).
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
	AckID *int64          `json:"ackId,omitempty"`
}

// frame is one outbound frame. Acks reuse the same shape with the
// reserved event name "ack" and the mirrored AckID.
type frame struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
	AckID *int64 `json:"ackId,omitempty"`
}

const ackEvent = "ack"
