package pool

import (
	"termpool/core"
)

// Registry the per-process set of market engines. Each market registers
// exactly once.
type Registry struct {
	engines map[string]core.IPoolAccounting
}

// NewRegistry new empty registry
func NewRegistry() *Registry {
	return &Registry{engines: map[string]core.IPoolAccounting{}}
}

// Register adds a market engine; registering the same market twice fails.
func (r *Registry) Register(engine core.IPoolAccounting) error {
	if _, ok := r.engines[engine.AssetID()]; ok {
		return core.ErrAlreadyInitialized
	}
	r.engines[engine.AssetID()] = engine
	return nil
}

// Get the engine for the market
func (r *Registry) Get(assetID string) (core.IPoolAccounting, error) {
	engine, ok := r.engines[assetID]
	if !ok {
		return nil, core.ErrMarketNotFound
	}
	return engine, nil
}

// All every registered engine
func (r *Registry) All() []core.IPoolAccounting {
	out := make([]core.IPoolAccounting, 0, len(r.engines))
	for _, engine := range r.engines {
		out = append(out, engine)
	}
	return out
}
