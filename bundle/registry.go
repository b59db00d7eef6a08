/*
Copyright © 2026 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/
package bundle

import (
	"fmt"
	"slices"
	"sync"
)

// Factory creates a fresh bundle. Each call must return a new value that the
// caller may mutate.
type Factory func() *Bundle

// Registry maps bundle names to factories. It replaces discovery by type
// name: every bundle that can be registered is declared here at startup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	order     []string
}

// NewRegistry creates an empty bundle registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Register declares a bundle under name. Registering a name twice replaces
// the earlier factory but keeps its declaration order.
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[name]; !exists {
		r.order = append(r.order, name)
	}
	r.factories[name] = factory
}

// Define declares a bundle from a template. Lookups return clones, so the
// template itself is never mutated.
func (r *Registry) Define(name string, template *Bundle) {
	tmpl := template.Clone()
	tmpl.Name = name
	r.Register(name, tmpl.Clone)
}

// Lookup creates the bundle declared under name.
func (r *Registry) Lookup(name string) (*Bundle, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBundle, name)
	}
	b := factory()
	if b == nil {
		return nil, fmt.Errorf("%w: factory for %q returned no bundle", ErrInvalidConfig, name)
	}
	b.Name = name
	return b, nil
}

// Has reports whether a bundle is declared under name.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[name]
	return ok
}

// Names returns the declared bundle names in declaration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}
