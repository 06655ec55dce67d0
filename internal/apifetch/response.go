package apifetch

import "encoding/json"

// RequireAllValidate asks the batch endpoint to validate every sub-request
// before executing any of them: one invalid request fails the whole batch.
const RequireAllValidate = "require-all-validate"

// BatchEnvelope is the body of the combined call to the batch endpoint
type BatchEnvelope struct {
	Validation string        `json:"validation"`
	Requests   []WireRequest `json:"requests"`
}

// NewBatchEnvelope builds the combined request body for a set of requests,
// preserving input order
func NewBatchEnvelope(requests []*Request) BatchEnvelope {
	wire := make([]WireRequest, len(requests))
	for i, req := range requests {
		wire[i] = req.ToWire()
	}
	return BatchEnvelope{
		Validation: RequireAllValidate,
		Requests:   wire,
	}
}

// ResponseItem is one entry of the batch endpoint's "responses" array,
// positionally aligned with the requests array
type ResponseItem struct {
	Body    json.RawMessage   `json:"body"`
	Status  int               `json:"status"`
	Headers map[string]string `json:"headers,omitempty"`
}

// BatchResponse is the batch endpoint's response envelope
type BatchResponse struct {
	Failed    bool           `json:"failed"`
	Responses []ResponseItem `json:"responses"`
}

// Bodies returns the body of every response item, in response order
func (b *BatchResponse) Bodies() []json.RawMessage {
	bodies := make([]json.RawMessage, len(b.Responses))
	for i, item := range b.Responses {
		bodies[i] = item.Body
	}
	return bodies
}
