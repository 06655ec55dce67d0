package transaction

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"batchfetch/internal/apifetch"
)

// ErrNoProcessor is reported to every item of a window whose effect type has
// no registered processor at commit time
var ErrNoProcessor = errors.New("no processor registered for effect type")

// windowKey identifies one accumulation window
type windowKey struct {
	effectType string
	groupID    string
}

// InMemoryRegistry is a Registry that accumulates requests in per-key windows
// and autocommits each window after a wait interval, or earlier when the
// window reaches its size limit. It serializes commit timing itself; callers
// never observe a window mid-commit.
type InMemoryRegistry struct {
	maxWait    time.Duration
	maxSize    int
	windows    map[windowKey]*window
	processors map[string]ProcessorFunc
	logger     zerolog.Logger
	mu         sync.RWMutex
}

// NewInMemoryRegistry creates a new in-memory registry. maxWait bounds how
// long an open window waits before autocommit; maxSize (0 = unlimited) commits
// a window early once enough requests accumulate.
func NewInMemoryRegistry(maxWait time.Duration, maxSize int, logger zerolog.Logger) *InMemoryRegistry {
	return &InMemoryRegistry{
		maxWait:    maxWait,
		maxSize:    maxSize,
		windows:    make(map[windowKey]*window),
		processors: make(map[string]ProcessorFunc),
		logger:     logger.With().Str("component", "transaction").Logger(),
	}
}

// RegisterProcessor installs the processor for an effect type. A later call
// for the same effect type replaces the previous processor.
func (r *InMemoryRegistry) RegisterProcessor(effectType string, fn ProcessorFunc) {
	r.mu.Lock()
	r.processors[effectType] = fn
	r.mu.Unlock()

	r.logger.Debug().Str("effectType", effectType).Msg("processor registered")
}

// EnqueueItemAndAutocommit adds a request to the open window for the key and
// arms the autocommit timer. The returned channel receives exactly one Result
// once the window's processor has run.
func (r *InMemoryRegistry) EnqueueItemAndAutocommit(ctx context.Context, effectType, groupID string, req *apifetch.Request) <-chan Result {
	item := &queueItem{
		req:        req,
		resultChan: make(chan Result, 1),
	}

	key := windowKey{effectType: effectType, groupID: groupID}

	r.mu.Lock()
	win := r.windows[key]
	if win == nil || win.isEmpty() {
		win = newWindow(effectType, groupID)
		r.windows[key] = win
	}

	shouldCommit := win.add(item, r.maxSize)

	win.startTimer(r.maxWait, func() {
		r.commit(ctx, key)
	})
	r.mu.Unlock()

	if shouldCommit {
		go r.commit(ctx, key)
	}

	return item.resultChan
}

// commit flushes the window for a key and demultiplexes the processor's
// output back to each item's channel by position
func (r *InMemoryRegistry) commit(ctx context.Context, key windowKey) {
	r.mu.Lock()
	win := r.windows[key]
	if win == nil || win.isEmpty() {
		r.mu.Unlock()
		return
	}

	// Open a fresh window so requests enqueued during the commit land in the
	// next transaction
	r.windows[key] = newWindow(key.effectType, key.groupID)
	processor := r.processors[key.effectType]
	r.mu.Unlock()

	items := win.takeItems()
	if len(items) == 0 {
		return
	}

	if processor == nil {
		win.txn.State = StateError
		for _, item := range items {
			item.resultChan <- Result{Err: ErrNoProcessor}
		}
		r.logger.Error().
			Str("effectType", key.effectType).
			Str("transaction", win.txn.ID).
			Msg("commit with no registered processor")
		return
	}

	requests := make([]*apifetch.Request, len(items))
	for i, item := range items {
		requests[i] = item.req
	}

	r.logger.Debug().
		Str("transaction", win.txn.ID).
		Str("effectType", key.effectType).
		Str("groupId", key.groupID).
		Int("requests", len(requests)).
		Msg("committing transaction")

	bodies, err := processor(ctx, requests, win.txn)
	if err != nil {
		win.txn.State = StateError
		for _, item := range items {
			item.resultChan <- Result{Err: err}
		}
		return
	}

	if len(bodies) != len(items) {
		win.txn.State = StateError
		mismatch := apifetch.NewError(apifetch.CodeInvalidResponse, "batch response count does not match request count", 500)
		r.logger.Error().
			Str("transaction", win.txn.ID).
			Int("expected", len(items)).
			Int("got", len(bodies)).
			Msg("processor result size mismatch")
		for _, item := range items {
			item.resultChan <- Result{Err: mismatch}
		}
		return
	}

	win.txn.State = StateDone
	for i, item := range items {
		item.resultChan <- Result{Body: bodies[i]}
	}
}

// CommitAll commits every open window (for graceful shutdown)
func (r *InMemoryRegistry) CommitAll(ctx context.Context) {
	r.mu.RLock()
	keys := make([]windowKey, 0, len(r.windows))
	for key := range r.windows {
		keys = append(keys, key)
	}
	r.mu.RUnlock()

	for _, key := range keys {
		r.commit(ctx, key)
	}
}

// Close disarms all timers and commits pending windows
func (r *InMemoryRegistry) Close(ctx context.Context) {
	r.mu.Lock()
	for _, win := range r.windows {
		win.stopTimer()
	}
	r.mu.Unlock()

	r.CommitAll(ctx)
}
