package adapters

import (
	"sort"
	"strings"
	"sync"

	"github.com/smallbiznis/invoicepadi/internal/payment/domain"
)

// Registry maps a webhook path segment to the provider's adapter. Adapters
// are built on first use and reused for later deliveries.
type Registry struct {
	factories map[string]domain.AdapterFactory

	mu       sync.Mutex
	adapters map[string]domain.PaymentAdapter
}

func NewRegistry(factories ...domain.AdapterFactory) *Registry {
	registry := &Registry{
		factories: make(map[string]domain.AdapterFactory, len(factories)),
		adapters:  make(map[string]domain.PaymentAdapter, len(factories)),
	}
	for _, factory := range factories {
		if factory == nil {
			continue
		}
		if provider := normalizeProvider(factory.Provider()); provider != "" {
			registry.factories[provider] = factory
		}
	}
	return registry
}

// Providers lists the registered provider names in order.
func (r *Registry) Providers() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Adapter returns the adapter for provider, building it from cfg the first
// time. A failed build is not cached.
func (r *Registry) Adapter(provider string, cfg domain.AdapterConfig) (domain.PaymentAdapter, error) {
	if r == nil {
		return nil, domain.ErrProviderNotFound
	}
	provider = normalizeProvider(provider)
	factory, ok := r.factories[provider]
	if !ok {
		return nil, domain.ErrProviderNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if adapter, ok := r.adapters[provider]; ok {
		return adapter, nil
	}

	cfg.Provider = provider
	adapter, err := factory.NewAdapter(cfg)
	if err != nil {
		return nil, err
	}
	r.adapters[provider] = adapter
	return adapter, nil
}

func normalizeProvider(provider string) string {
	return strings.ToLower(strings.TrimSpace(provider))
}
