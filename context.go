package lumetric

import (
	"context"
	"maps"
	"sync"
)

// ScopeAll is the shared fallback scope: properties registered under it are
// attached to every captured event regardless of event name.
const ScopeAll = "all"

// PropertyStore is a scope-keyed store of ambient event properties. The
// client consults it on every capture with a two-level lookup: properties
// registered under the event's name layered on top of the ScopeAll scope.
// The merge is shallow; a scoped property replaces an all-scope property of
// the same key wholesale rather than merging nested values.
type PropertyStore struct {
	mu     sync.RWMutex
	scopes map[string]map[string]any
}

// NewPropertyStore creates an empty property store.
func NewPropertyStore() *PropertyStore {
	return &PropertyStore{scopes: make(map[string]map[string]any)}
}

// Register adds properties under a scope, overwriting existing keys.
func (s *PropertyStore) Register(scope string, props map[string]any) {
	if len(props) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.scopes[scope]
	if !ok {
		existing = make(map[string]any, len(props))
		s.scopes[scope] = existing
	}
	maps.Copy(existing, props)
}

// Get looks a key up in the given scope, falling back to ScopeAll.
func (s *PropertyStore) Get(scope, key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if v, ok := s.scopes[scope][key]; ok {
		return v, true
	}
	v, ok := s.scopes[ScopeAll][key]
	return v, ok
}

// Resolve returns the shallow merge of the ScopeAll properties and the
// given scope's properties, scope winning on conflicts. The returned map is
// a fresh copy the caller may mutate.
func (s *PropertyStore) Resolve(scope string) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	merged := make(map[string]any, len(s.scopes[ScopeAll])+len(s.scopes[scope]))
	maps.Copy(merged, s.scopes[ScopeAll])
	if scope != ScopeAll {
		maps.Copy(merged, s.scopes[scope])
	}
	return merged
}

// Clear removes every property registered under a scope.
func (s *PropertyStore) Clear(scope string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.scopes, scope)
}

type ctxPropsKey struct{}

// WithProperties returns a context carrying additional event properties.
// Properties travel with the call and take precedence over the client's
// registered ambient properties; the event's own properties still win over
// both. Repeated calls layer shallowly.
func WithProperties(ctx context.Context, props map[string]any) context.Context {
	if len(props) == 0 {
		return ctx
	}
	merged := maps.Clone(PropertiesFromContext(ctx))
	if merged == nil {
		merged = make(map[string]any, len(props))
	}
	maps.Copy(merged, props)
	return context.WithValue(ctx, ctxPropsKey{}, merged)
}

// PropertiesFromContext returns the call-scoped properties carried by ctx,
// or nil. The returned map must not be mutated.
func PropertiesFromContext(ctx context.Context) map[string]any {
	props, _ := ctx.Value(ctxPropsKey{}).(map[string]any)
	return props
}
