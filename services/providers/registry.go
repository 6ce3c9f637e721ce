package providers

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrProviderAlreadyRegistered is returned when two slots share an ID
	ErrProviderAlreadyRegistered = errors.New("provider already registered")

	// ErrNilProvider is returned when a factory yields no client
	ErrNilProvider = errors.New("provider factory returned nil")
)

// Factory builds the client handle of a slot. It must not perform network I/O.
type Factory func(slot Slot) (Provider, error)

// Slot describes one known provider. A slot with an empty Credential is not built.
type Slot struct {
	ID           string
	Credential   string
	Endpoint     string
	Model        string
	Timeout      time.Duration
	RateLimitRPM int
	Factory      Factory
}

// Entry is a built provider: its client handle plus the settings the dispatcher needs
type Entry struct {
	ID       string
	Endpoint string
	Model    string
	Timeout  time.Duration
	Client   Provider
}

// Registry maps provider IDs to entries. It is read-only once built,
// so lookups need no locking.
type Registry struct {
	entries map[string]Entry
}

// BuildRegistry builds an entry for every slot whose credential is present.
func BuildRegistry(slots []Slot, logger *zap.Logger) (*Registry, error) {
	entries := make(map[string]Entry, len(slots))
	seen := make(map[string]bool, len(slots))

	for _, slot := range slots {
		if seen[slot.ID] {
			return nil, fmt.Errorf("%w: %s", ErrProviderAlreadyRegistered, slot.ID)
		}
		seen[slot.ID] = true

		if slot.Credential == "" {
			logger.Debug("provider not configured", zap.String("provider", slot.ID))
			continue
		}

		client, err := slot.Factory(slot)
		if err != nil {
			return nil, fmt.Errorf("failed to build provider %s: %w", slot.ID, err)
		}
		if client == nil {
			return nil, fmt.Errorf("failed to build provider %s: %w", slot.ID, ErrNilProvider)
		}
		if slot.RateLimitRPM > 0 {
			client = NewThrottled(client, slot.RateLimitRPM)
		}

		entries[slot.ID] = Entry{
			ID:       slot.ID,
			Endpoint: slot.Endpoint,
			Model:    slot.Model,
			Timeout:  slot.Timeout,
			Client:   client,
		}
		logger.Info("provider registered",
			zap.String("provider", slot.ID),
			zap.String("model", slot.Model),
			zap.String("endpoint", slot.Endpoint),
			zap.Duration("timeout", slot.Timeout),
			zap.Int("rate_limit_rpm", slot.RateLimitRPM))
	}

	return &Registry{entries: entries}, nil
}

// Get retrieves a provider entry by ID
func (r *Registry) Get(id string) (Entry, bool) {
	entry, ok := r.entries[id]
	return entry, ok
}

// IDs returns all registered provider IDs, sorted
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of registered providers
func (r *Registry) Len() int {
	return len(r.entries)
}
