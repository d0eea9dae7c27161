// internal/registry/registry.go
package registry

import (
	"fmt"
	"sync"

	"escrow-service/internal/domain"
	"escrow-service/internal/escrow"
)

// Registry maps service identifiers to their escrow instances. Instances
// are registered at boot and never unregistered; the read lock keeps
// resolution cheap on the hot path.
type Registry struct {
	mu       sync.RWMutex
	services map[uint64]*escrow.Escrow
}

func New() *Registry {
	return &Registry{
		services: make(map[uint64]*escrow.Escrow),
	}
}

func (r *Registry) Register(esc *escrow.Escrow) error {
	if esc == nil || esc.ServiceID() == 0 {
		return fmt.Errorf("%w: escrow instance with positive service id required", domain.ErrInvalidArgument)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.services[esc.ServiceID()]; exists {
		return fmt.Errorf("%w: service %d already registered", domain.ErrInvalidArgument, esc.ServiceID())
	}
	r.services[esc.ServiceID()] = esc
	return nil
}

func (r *Registry) Resolve(serviceID uint64) (*escrow.Escrow, error) {
	if serviceID == 0 {
		return nil, fmt.Errorf("%w: service id must be positive", domain.ErrInvalidArgument)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	esc, ok := r.services[serviceID]
	if !ok {
		return nil, domain.ErrServiceNotFound
	}
	return esc, nil
}
