package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/upb/persona-relay/config"
	"github.com/upb/persona-relay/internal/observability"
	"github.com/upb/persona-relay/middleware"
	"github.com/upb/persona-relay/services/persona"
	"github.com/upb/persona-relay/services/providers"
	"github.com/upb/persona-relay/services/providers/gemini"
	"github.com/upb/persona-relay/services/providers/openai"
	"github.com/upb/persona-relay/services/routing"
)

// Version is reported by the status endpoint
const Version = "0.1.0"

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	Logger *zap.Logger

	// Observability; MetricsRegistry is nil when metrics are disabled
	Metrics         observability.Metrics
	MetricsRegistry *prometheus.Registry

	// Relay
	Registry   *providers.Registry
	Persona    *persona.Persona
	Dispatcher *routing.Dispatcher

	// AuthMiddleware is nil when no JWT secret is configured
	AuthMiddleware *middleware.AuthMiddleware
}

// NewDependencies creates and wires up all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	deps.initMetrics(cfg)

	if err := deps.initPersona(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize persona: %w", err)
	}

	if err := deps.initProviders(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize providers: %w", err)
	}

	if err := deps.initDispatcher(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize dispatcher: %w", err)
	}

	deps.initAuth(cfg)

	logger.Info("all dependencies initialized successfully",
		zap.Strings("providers", deps.Registry.IDs()),
		zap.Strings("priority", cfg.Relay.Priority))
	return deps, nil
}

func (d *Dependencies) initMetrics(cfg *config.Config) {
	if !cfg.Observability.MetricsEnabled {
		d.Metrics = observability.NopMetrics{}
		d.Logger.Info("metrics disabled")
		return
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	d.MetricsRegistry = reg
	d.Metrics = observability.NewPrometheusMetrics(reg)
}

func (d *Dependencies) initPersona(cfg *config.Config) error {
	if cfg.Relay.PersonaFile == "" {
		d.Persona = persona.Default()
		return nil
	}

	p, err := persona.Load(cfg.Relay.PersonaFile)
	if err != nil {
		return err
	}
	d.Persona = p
	d.Logger.Info("persona loaded",
		zap.String("file", cfg.Relay.PersonaFile),
		zap.String("name", p.Name),
		zap.Int("emergency_replies", len(p.EmergencyReplies)))
	return nil
}

// initProviders builds the registry from every known slot. Slots without a
// credential are left out.
func (d *Dependencies) initProviders(cfg *config.Config) error {
	registry, err := providers.BuildRegistry(ProviderSlots(cfg), d.Logger)
	if err != nil {
		return err
	}

	if registry.Len() == 0 {
		d.Logger.Warn("no LLM providers configured, every message will get an emergency reply")
	}

	d.Registry = registry
	return nil
}

func (d *Dependencies) initDispatcher(cfg *config.Config) error {
	dispatcher, err := routing.NewDispatcher(routing.Config{
		Priority:    cfg.Relay.Priority,
		Temperature: cfg.Relay.Temperature,
		MaxTokens:   cfg.Relay.MaxTokens,
	}, d.Registry, d.Persona, d.Metrics, d.Logger)
	if err != nil {
		return err
	}
	d.Dispatcher = dispatcher
	return nil
}

func (d *Dependencies) initAuth(cfg *config.Config) {
	if cfg.Auth.JWTSecret == "" {
		d.Logger.Warn("AUTH_JWT_SECRET not set, API is unauthenticated")
		return
	}
	validator := middleware.NewHMACValidator(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer)
	d.AuthMiddleware = middleware.NewAuthMiddleware(validator, d.Logger)
	d.Logger.Info("bearer token auth enabled")
}

// ProviderSlots returns one slot per known provider, in KnownProviders order
func ProviderSlots(cfg *config.Config) []providers.Slot {
	slots := make([]providers.Slot, 0, len(config.KnownProviders))
	for _, id := range config.KnownProviders {
		p, _ := cfg.Providers.Get(id)

		factory := newOpenAICompatible
		if id == config.ProviderGemini {
			factory = newGemini
		}

		slots = append(slots, providers.Slot{
			ID:           id,
			Credential:   p.APIKey,
			Endpoint:     p.BaseURL,
			Model:        p.Model,
			Timeout:      p.Timeout,
			RateLimitRPM: p.RateLimitRPM,
			Factory:      factory,
		})
	}
	return slots
}

func newGemini(slot providers.Slot) (providers.Provider, error) {
	return gemini.NewAdapter(gemini.Config{
		Name:    slot.ID,
		APIKey:  slot.Credential,
		BaseURL: slot.Endpoint,
	})
}

func newOpenAICompatible(slot providers.Slot) (providers.Provider, error) {
	return openai.NewAdapter(openai.Config{
		Name:    slot.ID,
		APIKey:  slot.Credential,
		BaseURL: slot.Endpoint,
	})
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	// Sync reports EINVAL for console sinks on some platforms
	_ = d.Logger.Sync()
	return nil
}
