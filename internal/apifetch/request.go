package apifetch

import (
	"encoding/json"
)

// EffectAPIFetch is the effect type under which batch-eligible requests are
// enqueued and the batch processor is registered.
const EffectAPIFetch = "API_FETCH"

// Supported HTTP methods
const (
	MethodGet    = "GET"
	MethodPost   = "POST"
	MethodPut    = "PUT"
	MethodPatch  = "PATCH"
	MethodDelete = "DELETE"
)

// Request describes a single API fetch as plain data. Action code builds a
// Request and hands it to a dispatcher instead of performing the call itself.
type Request struct {
	Path    string            `json:"path"`
	Method  string            `json:"method"`
	Data    json.RawMessage   `json:"data,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
	BatchAs string            `json:"batchAs,omitempty"`
}

// NewRequest creates a new Request
func NewRequest(method, path string, data json.RawMessage) *Request {
	return &Request{
		Path:   path,
		Method: method,
		Data:   data,
	}
}

// IsMutation returns true for methods that modify server state
func (r *Request) IsMutation() bool {
	switch r.Method {
	case MethodPost, MethodPut, MethodPatch, MethodDelete:
		return true
	}
	return false
}

// Clone creates a copy of the request
func (r *Request) Clone() *Request {
	clone := &Request{
		Path:    r.Path,
		Method:  r.Method,
		BatchAs: r.BatchAs,
	}
	if r.Data != nil {
		clone.Data = make(json.RawMessage, len(r.Data))
		copy(clone.Data, r.Data)
	}
	if r.Headers != nil {
		clone.Headers = make(map[string]string, len(r.Headers))
		for k, v := range r.Headers {
			clone.Headers[k] = v
		}
	}
	return clone
}

// ToWire projects the request into the shape the batch endpoint expects
func (r *Request) ToWire() WireRequest {
	return WireRequest{
		Path:    r.Path,
		Body:    r.Data,
		Method:  r.Method,
		Headers: r.Headers,
	}
}

// WireRequest is one entry of the batch endpoint's "requests" array
type WireRequest struct {
	Path    string            `json:"path"`
	Body    json.RawMessage   `json:"body,omitempty"`
	Method  string            `json:"method"`
	Headers map[string]string `json:"headers,omitempty"`
}

// ToRequest converts a wire entry back into a Request
func (w WireRequest) ToRequest() *Request {
	return &Request{
		Path:    w.Path,
		Method:  w.Method,
		Data:    w.Body,
		Headers: w.Headers,
	}
}
