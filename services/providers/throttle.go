package providers

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Throttled wraps a provider with a client-side request budget. When the budget
// is spent the call fails immediately with a 429 ProviderError instead of waiting,
// so the dispatcher can move on to the next provider.
type Throttled struct {
	Provider
	limiter *rate.Limiter
}

// NewThrottled allows rpm requests per minute with a burst of rpm.
func NewThrottled(p Provider, rpm int) *Throttled {
	return &Throttled{
		Provider: p,
		limiter:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), rpm),
	}
}

// ChatCompletion performs the wrapped call when the budget allows it
func (t *Throttled) ChatCompletion(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	if !t.limiter.Allow() {
		return nil, NewProviderError(t.Name(), "RATE_LIMITED", "client-side rate limit reached", http.StatusTooManyRequests, nil)
	}
	return t.Provider.ChatCompletion(ctx, req)
}
