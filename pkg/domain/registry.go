package domain

import (
	"context"
	"sync"

	"github.com/XiaoConstantine/evogo/pkg/errors"
	"github.com/XiaoConstantine/evogo/pkg/logging"
)

// MaxDomains caps how many domains one registry holds.
const MaxDomains = 32

// Registry maps domain names to implementations. Registries are plain values
// handed to whoever needs them; there is no process-global instance, so tests
// and embedders can hold independent domain sets. Safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	domains map[string]Domain
	order   []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{domains: make(map[string]Domain)}
}

// Register adds a domain. Duplicate names and nil domains are rejected.
func (r *Registry) Register(d Domain) error {
	if d == nil {
		return errors.New(errors.InvalidArgument, "nil domain")
	}
	name := d.Name()
	if name == "" {
		return errors.New(errors.InvalidArgument, "domain name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.domains[name]; exists {
		return errors.WithFields(
			errors.New(errors.InvalidArgument, "domain already registered"),
			errors.Fields{"name": name},
		)
	}
	if len(r.domains) >= MaxDomains {
		return errors.WithFields(
			errors.New(errors.ResourceExhausted, "domain registry full"),
			errors.Fields{"max": MaxDomains},
		)
	}

	r.domains[name] = d
	r.order = append(r.order, name)

	logging.GetLogger().Info(context.Background(),
		"registered domain %q version %s (genome size: %d)",
		name, d.Version(), d.GenomeSize())
	return nil
}

// Unregister removes a domain by name.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.domains[name]; !exists {
		return errors.WithFields(
			errors.New(errors.InvalidArgument, "domain not registered"),
			errors.Fields{"name": name},
		)
	}

	delete(r.domains, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}

	logging.GetLogger().Info(context.Background(), "unregistered domain %q", name)
	return nil
}

// Get returns the domain registered under name.
func (r *Registry) Get(name string) (Domain, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, exists := r.domains[name]
	if !exists {
		return nil, errors.WithFields(
			errors.New(errors.InvalidArgument, "domain not registered"),
			errors.Fields{"name": name},
		)
	}
	return d, nil
}

// Count returns the number of registered domains.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.domains)
}

// Names lists registered domain names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
