package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

var ErrRelationshipConflict = errors.New("owner type is already registered")

// OwnerResolver loads the owning entity behind a (type tag, id) pair.
type OwnerResolver func(ctx context.Context, id string) (any, error)

// Registry maps owner-type tags to resolvers. Tags are registered once at
// startup; registering the same tag twice fails immediately instead of
// silently shadowing the earlier resolver.
type Registry struct {
	mu        sync.RWMutex
	resolvers map[string]OwnerResolver
}

func NewRegistry() *Registry {
	return &Registry{resolvers: make(map[string]OwnerResolver)}
}

func (r *Registry) Register(tag string, resolver OwnerResolver) error {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return errors.New("owner type tag must not be empty")
	}
	if resolver == nil {
		return errors.New("owner type resolver must not be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.resolvers[tag]; ok {
		return fmt.Errorf("%w: %s", ErrRelationshipConflict, tag)
	}
	r.resolvers[tag] = resolver
	return nil
}

func (r *Registry) Known(tag string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.resolvers[tag]
	return ok
}

// Resolve loads the owner for a registered tag.
func (r *Registry) Resolve(ctx context.Context, tag, id string) (any, error) {
	r.mu.RLock()
	resolver, ok := r.resolvers[tag]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown owner type: %s", tag)
	}
	return resolver(ctx, id)
}
