package dispatch

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rs/zerolog"

	"batchfetch/internal/apifetch"
	"batchfetch/internal/batch"
	"batchfetch/internal/transaction"
)

// batchGroupID tags every batch-eligible request into one shared group.
// TODO: derive the group from Request.BatchAs so distinct batch groups can
// coexist in one transaction window.
const batchGroupID = "abc"

// batchEligiblePathFragment marks endpoints whose mutations may be batched.
// Substring policy; needs to become more sophisticated.
const batchEligiblePathFragment = "/v2/template-parts"

// Dispatcher routes request descriptors either to an immediate fetch or into
// the shared transaction registry's accumulation window. It never controls
// when an accumulated window commits; the registry does.
type Dispatcher struct {
	fetcher   batch.Fetcher
	registry  transaction.Registry
	processor *batch.Processor
	logger    zerolog.Logger
}

// NewDispatcher creates a new Dispatcher
func NewDispatcher(fetcher batch.Fetcher, registry transaction.Registry, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		fetcher:   fetcher,
		registry:  registry,
		processor: batch.NewProcessor(fetcher, logger),
		logger:    logger.With().Str("component", "dispatch").Logger(),
	}
}

// Dispatch performs a request. Batch-eligible mutations are enqueued into the
// registry and resolve once their transaction window commits; everything else
// is fetched immediately and its result or error passed through verbatim.
func (d *Dispatcher) Dispatch(ctx context.Context, req *apifetch.Request) (json.RawMessage, error) {
	if !ShouldBatch(req) {
		return d.fetcher.Do(ctx, req)
	}

	batch.EnsureRegistered(d.registry, d.processor)

	d.logger.Debug().
		Str("method", req.Method).
		Str("path", req.Path).
		Str("batchAs", req.BatchAs).
		Msg("enqueueing request for batching")

	resultChan := d.registry.EnqueueItemAndAutocommit(ctx, apifetch.EffectAPIFetch, batchGroupID, req)

	select {
	case res := <-resultChan:
		return res.Body, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ShouldBatch reports whether a request qualifies for the batching path: a
// mutation, tagged with a batch group, against a batch-eligible endpoint
func ShouldBatch(req *apifetch.Request) bool {
	return req.IsMutation() &&
		req.BatchAs != "" &&
		strings.Contains(req.Path, batchEligiblePathFragment)
}
