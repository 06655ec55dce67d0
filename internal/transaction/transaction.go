package transaction

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"batchfetch/internal/apifetch"
)

// State is the lifecycle state of a transaction
type State string

const (
	StatePending    State = "TRANSACTION_PENDING"
	StateInProgress State = "TRANSACTION_IN_PROGRESS"
	StateDone       State = "TRANSACTION_DONE"
	// StateError marks a transaction that can no longer be committed.
	// Processors must not perform any work for a transaction in this state.
	StateError State = "TRANSACTION_ERROR"
)

// Transaction is one accumulation window of enqueued requests. Processors
// receive it read-only alongside the requests collected in the window.
type Transaction struct {
	ID    string
	State State
}

// HasError returns true if the transaction is in the error state
func (t *Transaction) HasError() bool {
	return t.State == StateError
}

// Result is the per-request outcome of a flushed transaction
type Result struct {
	Body json.RawMessage
	Err  error
}

// ProcessorFunc handles every request accumulated in one transaction window.
// It must return one body per request, in request order, or an error that
// fails the whole window. It is never invoked twice for the same transaction.
type ProcessorFunc func(ctx context.Context, requests []*apifetch.Request, txn *Transaction) ([]json.RawMessage, error)

// Registry accumulates enqueued requests into transaction windows and invokes
// the processor registered for their effect type when a window commits. The
// registry alone decides when a window commits; callers only learn the
// outcome through the returned channel.
type Registry interface {
	// EnqueueItemAndAutocommit adds a request to the open window for
	// (effectType, groupID) and schedules an automatic commit. The returned
	// channel receives exactly one Result.
	EnqueueItemAndAutocommit(ctx context.Context, effectType, groupID string, req *apifetch.Request) <-chan Result

	// RegisterProcessor installs the processor for an effect type
	RegisterProcessor(effectType string, fn ProcessorFunc)
}

var txnSeq atomic.Uint64

func nextTransactionID() string {
	return fmt.Sprintf("txn-%d", txnSeq.Add(1))
}
