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

// Package manager resolves bundle dependencies and render positions and
// keeps the ordered registries of every registered bundle.
package manager

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"bennypowers.dev/satchel/bundle"
	"bennypowers.dev/satchel/export"
	"bennypowers.dev/satchel/loader"
	"bennypowers.dev/satchel/publish"
	"bennypowers.dev/satchel/register"
)

// Logger receives debug output about registrations.
type Logger interface {
	Debug(msg any, keyvals ...any)
}

type bundleState int

const (
	unregistered bundleState = iota
	resolving
	registered
)

// state is everything one Register call may change. Register works on a
// copy and swaps it in only when the whole call succeeds.
type state struct {
	states  map[string]bundleState
	bundles map[string]*bundle.Bundle
	// order lists registered bundles, dependencies first
	order []string
	// fileOrder lists bundles in the order their files were first registered
	fileOrder []string
	results   map[string]*register.Result
	registry  *register.Result
	graph     *DependencyGraph
	// configured holds the positions bundles were loaded with, so that
	// positions adopted from dependents stay distinguishable
	configured map[string]positions
}

type positions struct {
	js, css bundle.Position
}

func newState() *state {
	return &state{
		states:   make(map[string]bundleState),
		bundles:  make(map[string]*bundle.Bundle),
		results:    make(map[string]*register.Result),
		registry:   &register.Result{},
		graph:      NewDependencyGraph(),
		configured: make(map[string]positions),
	}
}

func (s *state) clone() *state {
	c := &state{
		states:     maps.Clone(s.states),
		bundles:    make(map[string]*bundle.Bundle, len(s.bundles)),
		order:      slices.Clone(s.order),
		fileOrder:  slices.Clone(s.fileOrder),
		results:    maps.Clone(s.results),
		registry:   s.registry,
		graph:      s.graph.Clone(),
		configured: maps.Clone(s.configured),
	}
	for name, b := range s.bundles {
		c.bundles[name] = b.Clone()
	}
	return c
}

// recompose rebuilds the global registries from the per-bundle results.
func (s *state) recompose() {
	registry := &register.Result{}
	for _, name := range s.fileOrder {
		registry.Merge(s.results[name])
	}
	s.registry = registry
}

// Manager registers bundles with their dependencies. A Manager is not safe
// for concurrent use; create one per page or request.
type Manager struct {
	loader     *loader.Loader
	publisher  *publish.Publisher
	registrar  *register.Registrar
	logger     Logger
	disabled   map[string]bool
	allowed    []string
	customized map[string]bundle.Override

	state *state
}

// New creates a Manager. The publisher may be nil when no bundle has a
// source path.
func New(l *loader.Loader, p *publish.Publisher, r *register.Registrar) *Manager {
	return &Manager{
		loader:    l,
		publisher: p,
		registrar: r,
		state:     newState(),
	}
}

func (m *Manager) clone() *Manager {
	clone := *m
	clone.disabled = maps.Clone(m.disabled)
	clone.allowed = slices.Clone(m.allowed)
	clone.customized = maps.Clone(m.customized)
	clone.state = newState()
	return &clone
}

// WithLogger returns a new Manager that logs to logger.
func (m *Manager) WithLogger(logger Logger) *Manager {
	clone := m.clone()
	clone.logger = logger
	return clone
}

// WithDisabledBundles returns a new Manager that resolves the named
// bundles to empty placeholders.
func (m *Manager) WithDisabledBundles(names ...string) *Manager {
	clone := m.clone()
	clone.disabled = make(map[string]bool, len(names))
	for _, name := range names {
		clone.disabled[name] = true
	}
	return clone
}

// WithAllowedBundles returns a new Manager that only registers the named
// bundles and their dependencies.
func (m *Manager) WithAllowedBundles(names ...string) *Manager {
	clone := m.clone()
	clone.allowed = slices.Clone(names)
	return clone
}

// WithCustomizedBundles returns a new Manager that applies the overrides
// to the named bundles whenever they are loaded.
func (m *Manager) WithCustomizedBundles(overrides map[string]bundle.Override) *Manager {
	clone := m.clone()
	clone.customized = maps.Clone(overrides)
	return clone
}

// Register registers the named bundles, their dependencies first. When
// jsPosition or cssPosition is set, it is the latest position at which the
// named bundles and their dependencies may render.
//
// On error nothing is registered: the Manager is left as it was before
// the call.
func (m *Manager) Register(ctx context.Context, names []string, jsPosition, cssPosition bundle.Position) error {
	if err := m.checkAllowed(names); err != nil {
		return err
	}

	s := m.state.clone()
	for _, name := range names {
		if err := m.registerBundle(s, name, jsPosition, cssPosition); err != nil {
			return err
		}
	}

	visited := make(map[string]bool)
	for _, name := range names {
		if err := m.registerFiles(ctx, s, name, visited); err != nil {
			return err
		}
	}
	s.recompose()

	m.state = s
	return nil
}

// Reset forgets every registration.
func (m *Manager) Reset() {
	m.state = newState()
}

// registerBundle moves name from unregistered through resolving to
// registered, registering its dependencies on the way, and then applies
// the positions requested by a dependent.
func (m *Manager) registerBundle(s *state, name string, jsPosition, cssPosition bundle.Position) error {
	switch s.states[name] {
	case resolving:
		return fmt.Errorf("%w: bundle %q", bundle.ErrCircularDependency, name)
	case unregistered:
		s.states[name] = resolving
		b, err := m.loadBundle(name)
		if err != nil {
			return err
		}
		s.bundles[name] = b
		s.configured[name] = positions{js: b.EffectiveJSPosition(), css: b.EffectiveCSSPosition()}
		for _, dep := range b.Depends {
			s.graph.AddDependency(name, dep)
			if err := m.registerBundle(s, dep, b.EffectiveJSPosition(), b.EffectiveCSSPosition()); err != nil {
				return err
			}
		}
		s.states[name] = registered
		s.order = append(s.order, name)
		if m.logger != nil {
			m.logger.Debug("Registered bundle", "bundle", name, "depends", b.Depends)
		}
	}

	if jsPosition == bundle.PositionUnset && cssPosition == bundle.PositionUnset {
		return nil
	}

	b := s.bundles[name]
	configured := s.configured[name]
	before := positions{js: b.EffectiveJSPosition(), css: b.EffectiveCSSPosition()}
	js, err := adoptPosition(name, "js", configured.js, before.js, jsPosition)
	if err != nil {
		return err
	}
	css, err := adoptPosition(name, "css", configured.css, before.css, cssPosition)
	if err != nil {
		return err
	}
	if configured.js == bundle.PositionUnset {
		b.JSPosition = js
	}
	if configured.css == bundle.PositionUnset {
		b.CSSPosition = css
	}
	if js == before.js && css == before.css {
		// the dependencies already received these positions
		return nil
	}

	// the dependencies inherit the tightened positions
	if jsPosition == bundle.PositionUnset {
		js = bundle.PositionUnset
	}
	if cssPosition == bundle.PositionUnset {
		css = bundle.PositionUnset
	}
	for _, dep := range b.Depends {
		if err := m.registerBundle(s, dep, js, css); err != nil {
			return err
		}
	}
	return nil
}

// adoptPosition returns the position a bundle renders at when a dependent
// requires it to render no later than requested. Only a configured
// position can conflict; an adopted one moves to the earliest request.
func adoptPosition(name, kind string, configured, current, requested bundle.Position) (bundle.Position, error) {
	switch {
	case requested == bundle.PositionUnset:
		return current, nil
	case configured != bundle.PositionUnset:
		if configured > requested {
			return configured, fmt.Errorf("%w: a bundle depending on %q requires %s position %s, but %q renders at %s",
				bundle.ErrPositionConflict, name, kind, requested, name, configured)
		}
		return configured, nil
	case current == bundle.PositionUnset || requested < current:
		return requested, nil
	default:
		return current, nil
	}
}

// loadBundle loads a bundle and publishes its source directory.
func (m *Manager) loadBundle(name string) (*bundle.Bundle, error) {
	if m.disabled[name] {
		return bundle.Dummy(name), nil
	}
	b, err := m.loader.LoadBundle(name, m.customized[name])
	if err != nil {
		return nil, err
	}
	if b.SourcePath != "" {
		if m.publisher == nil {
			return nil, fmt.Errorf("%w: bundle %q has a source path but no publisher is configured", bundle.ErrInvalidConfig, name)
		}
		published, err := m.publisher.Publish(b)
		if err != nil {
			return nil, err
		}
		b.BasePath, b.BaseURL = published.Path, published.URL
	}
	return b, nil
}

// registerFiles registers the files of name after those of its
// dependencies, once per call.
func (m *Manager) registerFiles(ctx context.Context, s *state, name string, visited map[string]bool) error {
	if visited[name] {
		return nil
	}
	visited[name] = true

	b := s.bundles[name]
	for _, dep := range b.Depends {
		if err := m.registerFiles(ctx, s, dep, visited); err != nil {
			return err
		}
	}

	res, err := m.registrar.Register(ctx, b)
	if err != nil {
		return err
	}
	if _, seen := s.results[name]; !seen {
		s.fileOrder = append(s.fileOrder, name)
	}
	s.results[name] = res
	return nil
}

// checkAllowed rejects names outside the allowed bundles and their
// dependencies.
func (m *Manager) checkAllowed(names []string) error {
	if len(m.allowed) == 0 {
		return nil
	}
	allowed, err := m.dependencyOrder(m.allowed)
	if err != nil {
		return err
	}
	for _, name := range names {
		if !slices.ContainsFunc(allowed, func(b *bundle.Bundle) bool { return b.Name == name }) {
			return fmt.Errorf("%w: bundle %q", bundle.ErrNotAllowed, name)
		}
	}
	return nil
}

// dependencyOrder loads names and their transitive dependencies, without
// publishing, dependencies first.
func (m *Manager) dependencyOrder(names []string) ([]*bundle.Bundle, error) {
	var out []*bundle.Bundle
	states := make(map[string]bundleState)

	var visit func(name string) error
	visit = func(name string) error {
		switch states[name] {
		case resolving:
			return fmt.Errorf("%w: bundle %q", bundle.ErrCircularDependency, name)
		case registered:
			return nil
		}
		states[name] = resolving

		var b *bundle.Bundle
		if m.disabled[name] {
			b = bundle.Dummy(name)
		} else {
			var err error
			if b, err = m.loader.LoadBundle(name, m.customized[name]); err != nil {
				return err
			}
		}
		for _, dep := range b.Depends {
			if err := visit(dep); err != nil {
				return err
			}
		}
		states[name] = registered
		out = append(out, b)
		return nil
	}

	for _, name := range names {
		if err := visit(name); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Export hands the exportable bundles to e, dependencies first. These are
// the allowed bundles if any are configured, else the customized bundles,
// else every declared bundle. Nothing is published or registered.
func (m *Manager) Export(ctx context.Context, e export.Exporter) error {
	names := m.allowed
	if len(names) == 0 {
		names = slices.Sorted(maps.Keys(m.customized))
	}
	if len(names) == 0 {
		names = m.loader.Registry().Names()
	}
	bundles, err := m.dependencyOrder(names)
	if err != nil {
		return err
	}
	return e.Export(ctx, bundles)
}
