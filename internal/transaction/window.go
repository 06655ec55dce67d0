package transaction

import (
	"sync"
	"time"

	"batchfetch/internal/apifetch"
)

// queueItem pairs an enqueued request with the channel its caller waits on
type queueItem struct {
	req        *apifetch.Request
	resultChan chan Result
}

// window accumulates requests for one (effectType, groupID) key until the
// registry commits it
type window struct {
	txn        *Transaction
	effectType string
	groupID    string
	items      []*queueItem
	timer      *time.Timer
	committing bool
	mu         sync.Mutex
}

func newWindow(effectType, groupID string) *window {
	return &window{
		txn: &Transaction{
			ID:    nextTransactionID(),
			State: StatePending,
		},
		effectType: effectType,
		groupID:    groupID,
	}
}

// add appends an item to the window.
// Returns true if the window should be committed (maxSize reached).
func (w *window) add(item *queueItem, maxSize int) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.committing {
		return false
	}

	w.items = append(w.items, item)

	return maxSize > 0 && len(w.items) >= maxSize
}

// startTimer arms the autocommit timer if not already armed
func (w *window) startTimer(maxWait time.Duration, onCommit func()) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer == nil && !w.committing {
		w.timer = time.AfterFunc(maxWait, onCommit)
	}
}

// stopTimer disarms the autocommit timer
func (w *window) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

// takeItems takes all items from the window for committing and moves the
// transaction to in-progress. Returns nil if already committing or empty.
func (w *window) takeItems() []*queueItem {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.committing || len(w.items) == 0 {
		return nil
	}

	w.committing = true
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}

	items := w.items
	w.items = nil
	w.txn.State = StateInProgress

	return items
}

// isEmpty returns true if the window has no pending items and is not mid-commit
func (w *window) isEmpty() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.items) == 0 && !w.committing
}
