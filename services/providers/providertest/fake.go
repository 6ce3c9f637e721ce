// Package providertest offers a scripted Provider for tests.
package providertest

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/upb/persona-relay/services/providers"
)

// Fake is a Provider whose reply, error and delay are set per instance.
// It counts invocations and remembers the last request.
type Fake struct {
	name  string
	reply string
	err   error
	delay time.Duration

	// Respond, when set, decides the outcome of each call and overrides reply/err.
	Respond func(ctx context.Context, req *providers.ChatRequest) (string, error)

	calls atomic.Int64
	mu    sync.Mutex
	last  *providers.ChatRequest
}

// New returns a Fake that answers with reply.
func New(name, reply string) *Fake {
	return &Fake{name: name, reply: reply}
}

// Failing returns a Fake that always fails with err.
func Failing(name string, err error) *Fake {
	return &Fake{name: name, err: err}
}

// Slow returns a Fake that waits for delay (or ctx) before answering with reply.
func Slow(name, reply string, delay time.Duration) *Fake {
	return &Fake{name: name, reply: reply, delay: delay}
}

func (f *Fake) Name() string {
	return f.name
}

func (f *Fake) ChatCompletion(ctx context.Context, req *providers.ChatRequest) (*providers.ChatResponse, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.last = req
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, providers.NewProviderError(f.name, "HTTP_ERROR", "request aborted", 0, ctx.Err())
		}
	}

	reply, err := f.reply, f.err
	if f.Respond != nil {
		reply, err = f.Respond(ctx, req)
	}
	if err != nil {
		return nil, err
	}

	return &providers.ChatResponse{
		ID:       "fake-" + f.name,
		Model:    req.Model,
		Provider: f.name,
		Choices: []providers.Choice{
			{Message: providers.Message{Role: providers.RoleAssistant, Content: reply}, FinishReason: "stop"},
		},
		Latency: f.delay,
	}, nil
}

// Calls returns how many times ChatCompletion was invoked.
func (f *Fake) Calls() int {
	return int(f.calls.Load())
}

// LastRequest returns the most recent request, or nil.
func (f *Fake) LastRequest() *providers.ChatRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

// Slot returns a registry slot that hands out f.
func (f *Fake) Slot(credential string) providers.Slot {
	return providers.Slot{
		ID:         f.name,
		Credential: credential,
		Endpoint:   "https://fake.invalid/" + f.name,
		Model:      f.name + "-model",
		Timeout:    time.Second,
		Factory: func(providers.Slot) (providers.Provider, error) {
			return f, nil
		},
	}
}
