package batch

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"batchfetch/internal/apifetch"
	"batchfetch/internal/transaction"
)

// Endpoint is the path of the combined-call endpoint
const Endpoint = "/__experimental/batch"

// Fetcher performs a single network fetch for a request descriptor
type Fetcher interface {
	Do(ctx context.Context, req *apifetch.Request) (json.RawMessage, error)
}

// Processor turns an accumulated transaction window into one combined call to
// the batch endpoint and demultiplexes the combined response back into
// per-request bodies, in request order.
type Processor struct {
	fetcher Fetcher
	logger  zerolog.Logger
}

// NewProcessor creates a new Processor
func NewProcessor(fetcher Fetcher, logger zerolog.Logger) *Processor {
	return &Processor{
		fetcher: fetcher,
		logger:  logger.With().Str("component", "batch").Logger(),
	}
}

// Process handles one flushed transaction window. It returns one body per
// request, in request order, or an error that fails every request in the
// window. No retry is performed here; a failed combined call fails the whole
// window and the caller decides what to do next.
func (p *Processor) Process(ctx context.Context, requests []*apifetch.Request, txn *transaction.Transaction) ([]json.RawMessage, error) {
	if txn.HasError() {
		return nil, apifetch.NewTransactionFailedError()
	}

	envelope := apifetch.NewBatchEnvelope(requests)
	body, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal batch envelope: %w", err)
	}

	p.logger.Debug().
		Str("transaction", txn.ID).
		Int("requests", len(requests)).
		Msg("sending combined call")

	raw, err := p.fetcher.Do(ctx, &apifetch.Request{
		Path:   Endpoint,
		Method: apifetch.MethodPost,
		Data:   body,
	})
	if err != nil {
		return nil, err
	}

	var resp apifetch.BatchResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse batch response: %w", err)
	}

	bodies := resp.Bodies()
	if len(bodies) != len(requests) {
		p.logger.Error().
			Str("transaction", txn.ID).
			Int("expected", len(requests)).
			Int("got", len(bodies)).
			Msg("batch response size mismatch")
		return nil, apifetch.NewError(apifetch.CodeInvalidResponse,
			fmt.Sprintf("batch response size mismatch: expected %d, got %d", len(requests), len(bodies)), 500)
	}

	if resp.Failed {
		return nil, &apifetch.BatchError{Bodies: bodies}
	}

	return bodies, nil
}
