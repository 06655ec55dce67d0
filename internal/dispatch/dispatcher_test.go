package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"batchfetch/internal/apifetch"
	"batchfetch/internal/transaction"
)

// fakeFetcher records direct fetches and plays back a canned body
type fakeFetcher struct {
	mu    sync.Mutex
	calls []*apifetch.Request
	body  json.RawMessage
	err   error
}

func (f *fakeFetcher) Do(ctx context.Context, req *apifetch.Request) (json.RawMessage, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	return f.body, f.err
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// fakeRegistry records enqueues and answers each with a canned result
type fakeRegistry struct {
	mu       sync.Mutex
	enqueued []*apifetch.Request
	groupIDs []string
	result   transaction.Result
	block    bool
}

func (r *fakeRegistry) EnqueueItemAndAutocommit(ctx context.Context, effectType, groupID string, req *apifetch.Request) <-chan transaction.Result {
	r.mu.Lock()
	r.enqueued = append(r.enqueued, req)
	r.groupIDs = append(r.groupIDs, groupID)
	r.mu.Unlock()

	ch := make(chan transaction.Result, 1)
	if !r.block {
		ch <- r.result
	}
	return ch
}

func (r *fakeRegistry) RegisterProcessor(effectType string, fn transaction.ProcessorFunc) {}

func (r *fakeRegistry) enqueueCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.enqueued)
}

func TestDispatch_DirectFetch(t *testing.T) {
	tests := []struct {
		name string
		req  *apifetch.Request
	}{
		{
			name: "GET is never batched",
			req:  &apifetch.Request{Path: "/wp/v2/template-parts/a", Method: apifetch.MethodGet, BatchAs: "v1"},
		},
		{
			name: "missing batchAs",
			req:  &apifetch.Request{Path: "/wp/v2/template-parts/a", Method: apifetch.MethodPost},
		},
		{
			name: "ineligible path",
			req:  &apifetch.Request{Path: "/wp/v2/posts/7", Method: apifetch.MethodPut, BatchAs: "v1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher := &fakeFetcher{body: json.RawMessage(`{"ok":true}`)}
			registry := &fakeRegistry{}
			d := NewDispatcher(fetcher, registry, zerolog.Nop())

			body, err := d.Dispatch(context.Background(), tt.req)
			if err != nil {
				t.Fatalf("Dispatch: %v", err)
			}
			if string(body) != `{"ok":true}` {
				t.Errorf("body = %s", body)
			}
			if fetcher.callCount() != 1 {
				t.Errorf("fetcher called %d times, want 1", fetcher.callCount())
			}
			if registry.enqueueCount() != 0 {
				t.Errorf("registry touched %d times, want 0", registry.enqueueCount())
			}
		})
	}
}

func TestDispatch_DirectFetchErrorPassthrough(t *testing.T) {
	wantErr := errors.New("connection refused")
	fetcher := &fakeFetcher{err: wantErr}
	d := NewDispatcher(fetcher, &fakeRegistry{}, zerolog.Nop())

	req := &apifetch.Request{Path: "/wp/v2/posts/1", Method: apifetch.MethodGet}
	_, err := d.Dispatch(context.Background(), req)
	if !errors.Is(err, wantErr) {
		t.Errorf("err = %v, want %v", err, wantErr)
	}
}

func TestDispatch_EnqueuesEligibleMutations(t *testing.T) {
	for _, method := range []string{apifetch.MethodPost, apifetch.MethodPut, apifetch.MethodPatch, apifetch.MethodDelete} {
		t.Run(method, func(t *testing.T) {
			fetcher := &fakeFetcher{}
			registry := &fakeRegistry{result: transaction.Result{Body: json.RawMessage(`{"id":9}`)}}
			d := NewDispatcher(fetcher, registry, zerolog.Nop())

			req := &apifetch.Request{
				Path:    "/wp/v2/template-parts/header",
				Method:  method,
				BatchAs: "v1",
			}
			body, err := d.Dispatch(context.Background(), req)
			if err != nil {
				t.Fatalf("Dispatch: %v", err)
			}
			if string(body) != `{"id":9}` {
				t.Errorf("body = %s", body)
			}
			if fetcher.callCount() != 0 {
				t.Errorf("fetcher called %d times, want 0", fetcher.callCount())
			}
			if registry.enqueueCount() != 1 {
				t.Fatalf("enqueued %d times, want 1", registry.enqueueCount())
			}
			if registry.groupIDs[0] != batchGroupID {
				t.Errorf("groupID = %s, want %s", registry.groupIDs[0], batchGroupID)
			}
		})
	}
}

func TestDispatch_BatchedErrorPassthrough(t *testing.T) {
	wantErr := apifetch.NewTransactionFailedError()
	registry := &fakeRegistry{result: transaction.Result{Err: wantErr}}
	d := NewDispatcher(&fakeFetcher{}, registry, zerolog.Nop())

	req := &apifetch.Request{
		Path:    "/wp/v2/template-parts/header",
		Method:  apifetch.MethodPost,
		BatchAs: "v1",
	}
	_, err := d.Dispatch(context.Background(), req)

	var apiErr *apifetch.Error
	if !errors.As(err, &apiErr) || apiErr.Code != apifetch.CodeTransactionFailed {
		t.Errorf("err = %v, want transaction_failed", err)
	}
}

func TestDispatch_ContextCancellation(t *testing.T) {
	registry := &fakeRegistry{block: true}
	d := NewDispatcher(&fakeFetcher{}, registry, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req := &apifetch.Request{
		Path:    "/wp/v2/template-parts/header",
		Method:  apifetch.MethodPost,
		BatchAs: "v1",
	}
	_, err := d.Dispatch(ctx, req)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestShouldBatch(t *testing.T) {
	tests := []struct {
		name string
		req  *apifetch.Request
		want bool
	}{
		{"eligible POST", &apifetch.Request{Path: "/wp/v2/template-parts/a", Method: apifetch.MethodPost, BatchAs: "v1"}, true},
		{"eligible DELETE", &apifetch.Request{Path: "/wp/v2/template-parts/a", Method: apifetch.MethodDelete, BatchAs: "v1"}, true},
		{"GET", &apifetch.Request{Path: "/wp/v2/template-parts/a", Method: apifetch.MethodGet, BatchAs: "v1"}, false},
		{"no batchAs", &apifetch.Request{Path: "/wp/v2/template-parts/a", Method: apifetch.MethodPost}, false},
		{"other endpoint", &apifetch.Request{Path: "/wp/v2/posts/1", Method: apifetch.MethodPost, BatchAs: "v1"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldBatch(tt.req); got != tt.want {
				t.Errorf("ShouldBatch = %v, want %v", got, tt.want)
			}
		})
	}
}

// End to end through a real registry: concurrent eligible mutations collapse
// into one combined call and each caller gets its own body back.
func TestDispatch_BatchesConcurrentMutations(t *testing.T) {
	fetcher := &batchAwareFetcher{}
	registry := transaction.NewInMemoryRegistry(50*time.Millisecond, 0, zerolog.Nop())
	d := NewDispatcher(fetcher, registry, zerolog.Nop())

	ctx := context.Background()
	paths := []string{
		"/wp/v2/template-parts/header",
		"/wp/v2/template-parts/footer",
		"/wp/v2/template-parts/sidebar",
	}

	var wg sync.WaitGroup
	bodies := make([]json.RawMessage, len(paths))
	errs := make([]error, len(paths))
	for i, path := range paths {
		wg.Add(1)
		go func(i int, path string) {
			defer wg.Done()
			req := &apifetch.Request{Path: path, Method: apifetch.MethodPut, BatchAs: "v1"}
			bodies[i], errs[i] = d.Dispatch(ctx, req)
		}(i, path)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("Dispatch[%d]: %v", i, err)
		}
	}
	for i, path := range paths {
		want := `{"saved":"` + path + `"}`
		if string(bodies[i]) != want {
			t.Errorf("bodies[%d] = %s, want %s", i, bodies[i], want)
		}
	}
	if got := fetcher.batchCalls(); got != 1 {
		t.Errorf("combined calls = %d, want 1", got)
	}
}

// batchAwareFetcher answers a combined call by echoing each sub-request's path
type batchAwareFetcher struct {
	mu    sync.Mutex
	calls int
}

func (f *batchAwareFetcher) Do(ctx context.Context, req *apifetch.Request) (json.RawMessage, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	var envelope apifetch.BatchEnvelope
	if err := json.Unmarshal(req.Data, &envelope); err != nil {
		return nil, err
	}

	resp := apifetch.BatchResponse{Responses: make([]apifetch.ResponseItem, len(envelope.Requests))}
	for i, wire := range envelope.Requests {
		resp.Responses[i] = apifetch.ResponseItem{
			Body:   json.RawMessage(`{"saved":"` + wire.Path + `"}`),
			Status: 200,
		}
	}
	return json.Marshal(resp)
}

func (f *batchAwareFetcher) batchCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
