package batch

import (
	"sync"

	"batchfetch/internal/apifetch"
	"batchfetch/internal/transaction"
)

// registrations tracks which registries already have the processor installed.
// Keyed on the registry instance rather than a process-wide flag so that
// distinct registries in one process each get exactly one registration.
var registrations sync.Map

// EnsureRegistered installs the processor against the registry under the
// API fetch effect type, at most once per registry instance. Safe to call
// from concurrent dispatches; losers of the store race do nothing.
func EnsureRegistered(registry transaction.Registry, processor *Processor) {
	if _, loaded := registrations.LoadOrStore(registry, true); loaded {
		return
	}
	registry.RegisterProcessor(apifetch.EffectAPIFetch, processor.Process)
}
