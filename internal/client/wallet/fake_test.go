package wallet

import (
	"context"
	"encoding/json"
	"sync"
)

type handlerFunc func(params []any) (json.RawMessage, error)

// fakeProvider answers wallet methods from a table and records calls.
type fakeProvider struct {
	emitter

	mu       sync.Mutex
	handlers map[string]handlerFunc
	calls    []string
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{handlers: make(map[string]handlerFunc)}
}

func (f *fakeProvider) handle(method string, fn handlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[method] = fn
}

func (f *fakeProvider) reply(method string, v any) {
	f.handle(method, func([]any) (json.RawMessage, error) { return json.Marshal(v) })
}

func (f *fakeProvider) fail(method string, code int) {
	f.handle(method, func([]any) (json.RawMessage, error) {
		return nil, &RPCError{Code: code, Message: "failed"}
	})
}

func (f *fakeProvider) Request(_ context.Context, method string, params ...any) (json.RawMessage, error) {
	f.mu.Lock()
	f.calls = append(f.calls, method)
	h := f.handlers[method]
	f.mu.Unlock()

	if h == nil {
		return nil, &RPCError{Code: CodeUnsupportedMethod, Message: "unsupported"}
	}
	return h(params)
}

func (f *fakeProvider) On(event string, fn func(json.RawMessage)) func() {
	return f.on(event, fn)
}

func (f *fakeProvider) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeProvider) notify(event string, v any) {
	b, _ := json.Marshal(v)
	f.emit(event, b)
}
