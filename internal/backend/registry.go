package backend

import (
	"context"
	"fmt"
	"sync"
)

var (
	registryMu sync.RWMutex
	registry   = map[string]registration{}
)

type registration struct {
	meta    Meta
	factory Factory
}

// Register adds a backend factory under the given metadata's key
// (name:auth-method). Called from each vendor subpackage's init().
func Register(meta Meta, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[meta.Key()] = registration{meta: meta, factory: factory}
}

// Key returns the unique registry key for this metadata.
func (m Meta) Key() string {
	return string(m.Name) + ":" + string(m.AuthMethod)
}

// Available returns the metadata for every registered backend.
func Available() []Meta {
	registryMu.RLock()
	defer registryMu.RUnlock()
	metas := make([]Meta, 0, len(registry))
	for _, r := range registry {
		metas = append(metas, r.meta)
	}
	return metas
}

// New constructs the backend registered under key (name:auth-method).
func New(ctx context.Context, key string) (Provider, error) {
	registryMu.RLock()
	r, ok := registry[key]
	registryMu.RUnlock()
	if !ok {
		return nil, NewError(ErrorInvalidRequest, fmt.Errorf("unknown backend %q", key))
	}
	return r.factory(ctx)
}
