package shim

// Registry resolves a shim key to its configured adapter. Unconfigured shims
// stay registered so their keys are known, but resolving one fails with
// ErrShimNotConfigured.
type Registry struct {
	shims map[string]Shim
	order []string
}

// NewRegistry builds a registry from the given shims, preserving
// registration order. A later shim with a duplicate key replaces the earlier
// one.
func NewRegistry(shims ...Shim) *Registry {
	r := &Registry{shims: make(map[string]Shim, len(shims))}
	for _, s := range shims {
		if _, exists := r.shims[s.Key()]; !exists {
			r.order = append(r.order, s.Key())
		}
		r.shims[s.Key()] = s
	}
	return r
}

// Get resolves a shim key. Unknown keys fail with ErrUnknownShim,
// known-but-unconfigured ones with ErrShimNotConfigured.
func (r *Registry) Get(key string) (Shim, error) {
	s, ok := r.shims[key]
	if !ok {
		return nil, ErrUnknownShim
	}
	if !s.Configured() {
		return nil, ErrShimNotConfigured
	}
	return s, nil
}

// Keys returns the usable (configured) shim keys in registration order.
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.order))
	for _, key := range r.order {
		if r.shims[key].Configured() {
			keys = append(keys, key)
		}
	}
	return keys
}
