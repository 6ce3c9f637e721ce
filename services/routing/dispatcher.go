// Package routing implements the fallback dispatcher: every message walks a
// fixed provider priority order until one provider answers, and falls back to
// a canned persona reply when none does.
package routing

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/upb/persona-relay/internal/observability"
	"github.com/upb/persona-relay/services/persona"
	"github.com/upb/persona-relay/services/providers"
)

// outcomeSuccess is the metrics outcome label of a successful attempt
const outcomeSuccess = "success"

var (
	// ErrEmptyReply is recorded when a provider answers with no text
	ErrEmptyReply = errors.New("provider returned an empty reply")

	// ErrNoEmergencyReplies is returned when the persona has nothing to fall back to
	ErrNoEmergencyReplies = errors.New("persona has no emergency replies")
)

// Config holds dispatcher settings
type Config struct {
	// Priority is the order providers are attempted in. IDs missing from the
	// registry are skipped.
	Priority []string

	// DefaultTimeout bounds an attempt whose registry entry has no timeout
	DefaultTimeout time.Duration

	Temperature float64
	MaxTokens   int

	// Random overrides the emergency reply picker (tests)
	Random func(n int) int
}

// DefaultConfig returns the dispatcher defaults
func DefaultConfig() Config {
	return Config{
		Priority:       []string{"gemini", "deepseek", "groq"},
		DefaultTimeout: 20 * time.Second,
		Temperature:    0.7,
	}
}

// Outcome describes one provider attempt within a single Dispatch call
type Outcome struct {
	Provider string
	Success  bool
	// Kind is empty on success
	Kind    ErrorKind
	Latency time.Duration
	Err     error
}

// Result is the reply plus the attempt log of one Dispatch call
type Result struct {
	Reply string
	// Provider is empty when the reply came from the emergency set
	Provider string
	Fallback bool
	Attempts []Outcome
}

// Dispatcher holds only immutable state and is safe for concurrent use
type Dispatcher struct {
	priority     []string
	timeout      time.Duration
	temperature  float64
	maxTokens    int
	instructions string
	replies      []string
	random       picker
	registry     *providers.Registry
	metrics      observability.Metrics
	logger       *zap.Logger
}

// NewDispatcher creates a dispatcher over registry speaking as p
func NewDispatcher(cfg Config, registry *providers.Registry, p *persona.Persona, metrics observability.Metrics, logger *zap.Logger) (*Dispatcher, error) {
	if registry == nil {
		return nil, errors.New("registry is required")
	}
	if p == nil || len(p.EmergencyReplies) == 0 {
		return nil, ErrNoEmergencyReplies
	}
	if metrics == nil {
		metrics = observability.NopMetrics{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = DefaultConfig().DefaultTimeout
	}
	random := picker(cfg.Random)
	if random == nil {
		random = defaultPicker
	}

	return &Dispatcher{
		priority:     append([]string(nil), cfg.Priority...),
		timeout:      cfg.DefaultTimeout,
		temperature:  cfg.Temperature,
		maxTokens:    cfg.MaxTokens,
		instructions: p.Instructions,
		replies:      append([]string(nil), p.EmergencyReplies...),
		random:       random,
		registry:     registry,
		metrics:      metrics,
		logger:       logger,
	}, nil
}

// Ask returns a reply for message. It never fails: when no provider answers
// the reply comes from the emergency set.
func (d *Dispatcher) Ask(ctx context.Context, message string) string {
	return d.Dispatch(ctx, message).Reply
}

// Dispatch walks the priority order and stops at the first provider that
// answers. Attempts are strictly sequential.
func (d *Dispatcher) Dispatch(ctx context.Context, message string) *Result {
	logger := observability.WithContext(ctx, d.logger)
	logger.Debug("message received", zap.String("message", message))

	result := &Result{}
	for _, id := range d.priority {
		if ctx.Err() != nil {
			break
		}
		entry, ok := d.registry.Get(id)
		if !ok {
			continue
		}

		outcome, reply := d.attempt(ctx, entry, message)
		result.Attempts = append(result.Attempts, outcome)

		label := outcomeSuccess
		if !outcome.Success {
			label = string(outcome.Kind)
		}
		d.metrics.RecordAttempt(ctx, observability.AttemptLabels{
			Provider: entry.ID,
			Model:    entry.Model,
			Outcome:  label,
		}, outcome.Latency)

		if outcome.Success {
			logger.Info("provider answered",
				zap.String("provider", entry.ID),
				zap.String("model", entry.Model),
				zap.Duration("latency", outcome.Latency),
				zap.Int("attempt", len(result.Attempts)))
			result.Reply = reply
			result.Provider = entry.ID
			return result
		}

		logger.Warn("provider attempt failed",
			zap.String("provider", entry.ID),
			zap.String("model", entry.Model),
			zap.String("kind", string(outcome.Kind)),
			zap.Duration("latency", outcome.Latency),
			zap.Error(outcome.Err))
	}

	result.Reply = d.emergencyReply()
	result.Fallback = true
	d.metrics.RecordEmergencyReply(ctx)
	logger.Warn("all providers exhausted, answering from emergency set",
		zap.Int("attempts", len(result.Attempts)),
		zap.Bool("caller_gone", ctx.Err() != nil))

	return result
}

// attempt calls one provider under its own deadline
func (d *Dispatcher) attempt(ctx context.Context, entry providers.Entry, message string) (Outcome, string) {
	timeout := entry.Timeout
	if timeout <= 0 {
		timeout = d.timeout
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	resp, err := entry.Client.ChatCompletion(attemptCtx, &providers.ChatRequest{
		Model:       entry.Model,
		Messages:    providers.SystemAndUser(d.instructions, message),
		MaxTokens:   d.maxTokens,
		Temperature: d.temperature,
	})
	outcome := Outcome{Provider: entry.ID, Latency: time.Since(start)}

	var reply string
	if err == nil && resp != nil {
		reply = resp.Text()
	}
	if err == nil && strings.TrimSpace(reply) == "" {
		err = ErrEmptyReply
	}
	if err != nil {
		outcome.Err = err
		outcome.Kind = Classify(err)
		// Our own deadline fired while the caller was still waiting
		if ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
			outcome.Kind = KindTimeout
		}
		return outcome, ""
	}

	outcome.Success = true
	return outcome, reply
}
