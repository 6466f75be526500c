package ws

import "encoding/json"

// Envelope wraps every WS frame.
type Envelope struct {
	Event string          `json:"event"`          // e.g. "listings/bid"
	Body  json.RawMessage `json:"body,omitempty"` // arbitrary JSON object
}

// BidRequest is the body for "listings/bid". Amount bounds are enforced by
// the bidding service, which rejects non-positive amounts before touching
// state.
type BidRequest struct {
	Amount float64 `json:"amount"`
}

// AckBody is the empty success reply.
type AckBody struct{}

// ErrorBody is returned for failures, same taxonomy as the REST surface.
type ErrorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}
