package platform

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

type Registry struct {
	mu        sync.RWMutex
	platforms map[string]Platform
}

// NewRegistry returns a registry with every built-in platform registered.
func NewRegistry(opts Options) *Registry {
	registry := NewEmptyRegistry()

	registry.Register(NewSlack(opts))
	registry.Register(NewMSTeams(opts))
	registry.Register(NewOutlook(opts))
	registry.Register(NewGeneric(opts))
	registry.Register(NewMatrix(opts))

	return registry
}

func NewEmptyRegistry() *Registry {
	return &Registry{platforms: make(map[string]Platform)}
}

func (r *Registry) Register(p Platform) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.platforms[strings.ToLower(p.ID())] = p
}

func (r *Registry) Get(platformID string) (Platform, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, exists := r.platforms[strings.ToLower(platformID)]
	if !exists {
		return nil, fmt.Errorf("unsupported platform: %s (supported: %s)", platformID, strings.Join(r.idsLocked(), ", "))
	}

	return p, nil
}

// OutboundHandler resolves the sending side of a platform.
func (r *Registry) OutboundHandler(platformID string) (OutboundHandler, error) {
	return r.Get(platformID)
}

func (r *Registry) MustGet(platformID string) Platform {
	p, err := r.Get(platformID)
	if err != nil {
		panic(err)
	}
	return p
}

// All returns the registered platforms ordered by id.
func (r *Registry) All() []Platform {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Platform, 0, len(r.platforms))
	for _, id := range r.idsLocked() {
		out = append(out, r.platforms[id])
	}
	return out
}

func (r *Registry) idsLocked() []string {
	ids := make([]string, 0, len(r.platforms))
	for id := range r.platforms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
