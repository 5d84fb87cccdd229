package resilience

import (
	"sort"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// Breaker exposes the state of a component guarded by a circuit breaker.
type Breaker interface {
	CircuitBreakerState() gobreaker.State
	CircuitBreakerCounts() gobreaker.Counts
}

// ComponentHealth represents the health status of a guarded component.
type ComponentHealth struct {
	// Name is the component identifier.
	Name string

	// CircuitState is the current circuit breaker state.
	CircuitState gobreaker.State

	// Counts contains circuit breaker statistics.
	Counts gobreaker.Counts

	// LastSuccessAt is the timestamp of the last successful call.
	LastSuccessAt *time.Time

	// LastFailureAt is the timestamp of the last failed call.
	LastFailureAt *time.Time

	// LastError is the most recent error message, if any.
	LastError string
}

// IsHealthy returns true if the component is considered healthy.
func (h *ComponentHealth) IsHealthy() bool {
	return h.CircuitState == gobreaker.StateClosed
}

// IsDegraded returns true if the component is in a degraded state (half-open).
func (h *ComponentHealth) IsDegraded() bool {
	return h.CircuitState == gobreaker.StateHalfOpen
}

// IsUnhealthy returns true if the component is unhealthy (circuit open).
func (h *ComponentHealth) IsUnhealthy() bool {
	return h.CircuitState == gobreaker.StateOpen
}

// Registry tracks guarded components and their health status.
type Registry struct {
	mu         sync.RWMutex
	components map[string]*registeredComponent
}

type registeredComponent struct {
	breaker       Breaker
	lastSuccessAt *time.Time
	lastFailureAt *time.Time
	lastError     string
}

// NewRegistry creates a new component registry.
func NewRegistry() *Registry {
	return &Registry{
		components: make(map[string]*registeredComponent),
	}
}

// Register adds a component to the registry, replacing any previous entry.
func (r *Registry) Register(name string, b Breaker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.components[name] = &registeredComponent{breaker: b}
}

// Unregister removes a component from the registry.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.components, name)
}

// RecordSuccess records a successful call for a component.
func (r *Registry) RecordSuccess(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.components[name]; ok {
		now := time.Now()
		c.lastSuccessAt = &now
	}
}

// RecordFailure records a failed call for a component.
func (r *Registry) RecordFailure(name string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.components[name]; ok {
		now := time.Now()
		c.lastFailureAt = &now
		if err != nil {
			c.lastError = err.Error()
		}
	}
}

// GetHealth returns the health status of a specific component, or nil.
func (r *Registry) GetHealth(name string) *ComponentHealth {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.components[name]
	if !ok {
		return nil
	}
	return c.health(name)
}

// GetAllHealth returns the health status of all components sorted by name.
func (r *Registry) GetAllHealth() []*ComponentHealth {
	r.mu.RLock()
	defer r.mu.RUnlock()

	health := make([]*ComponentHealth, 0, len(r.components))
	for name, c := range r.components {
		health = append(health, c.health(name))
	}
	sort.Slice(health, func(i, j int) bool { return health[i].Name < health[j].Name })

	return health
}

// Len returns the number of registered components.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.components)
}

func (c *registeredComponent) health(name string) *ComponentHealth {
	h := &ComponentHealth{
		Name:          name,
		LastSuccessAt: c.lastSuccessAt,
		LastFailureAt: c.lastFailureAt,
		LastError:     c.lastError,
	}
	if c.breaker != nil {
		h.CircuitState = c.breaker.CircuitBreakerState()
		h.Counts = c.breaker.CircuitBreakerCounts()
	}
	return h
}
