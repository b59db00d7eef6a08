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

package manager

import (
	"fmt"
	"slices"

	"bennypowers.dev/satchel/bundle"
	"bennypowers.dev/satchel/register"
)

// CSSFiles returns the registered CSS files in render order.
func (m *Manager) CSSFiles() []register.File {
	return m.state.registry.CSSFiles.Values()
}

// CSSStrings returns the registered CSS blocks in render order.
func (m *Manager) CSSStrings() []register.Inline {
	return m.state.registry.CSSStrings.Values()
}

// JSFiles returns the registered JS files in render order.
func (m *Manager) JSFiles() []register.File {
	return m.state.registry.JSFiles.Values()
}

// JSStrings returns the registered JS blocks in render order.
func (m *Manager) JSStrings() []register.Inline {
	return m.state.registry.JSStrings.Values()
}

// JSVars returns the registered JS variables in render order.
func (m *Manager) JSVars() []register.Var {
	return m.state.registry.JSVars.Values()
}

// RegisteredBundles returns the names of the registered bundles,
// dependencies first.
func (m *Manager) RegisteredBundles() []string {
	return slices.Clone(m.state.order)
}

// IsRegistered reports whether name has been registered.
func (m *Manager) IsRegistered(name string) bool {
	return m.state.states[name] == registered
}

// Bundle returns a copy of a registered bundle.
func (m *Manager) Bundle(name string) (*bundle.Bundle, error) {
	b, ok := m.state.bundles[name]
	if !ok || m.state.states[name] != registered {
		return nil, fmt.Errorf("%w: bundle %q is not registered", bundle.ErrUnknownBundle, name)
	}
	return b.Clone(), nil
}

// PublishedPath returns the directory a registered bundle was published
// to, or "" for bundles without a source path.
func (m *Manager) PublishedPath(name string) (string, error) {
	b, err := m.publishedBundle(name)
	if err != nil || b == nil {
		return "", err
	}
	return m.publisher.PublishedPath(b.SourcePath), nil
}

// PublishedURL returns the URL a registered bundle was published at, or
// "" for bundles without a source path.
func (m *Manager) PublishedURL(name string) (string, error) {
	b, err := m.publishedBundle(name)
	if err != nil || b == nil {
		return "", err
	}
	return m.publisher.PublishedURL(b.SourcePath), nil
}

func (m *Manager) publishedBundle(name string) (*bundle.Bundle, error) {
	b, err := m.Bundle(name)
	if err != nil {
		return nil, err
	}
	if b.SourcePath == "" || m.publisher == nil {
		return nil, nil
	}
	return b, nil
}

// AssetURL returns the URL of a file of a registered bundle.
func (m *Manager) AssetURL(name, path string) (string, error) {
	b, ok := m.state.bundles[name]
	if !ok || m.state.states[name] != registered {
		return "", fmt.Errorf("%w: bundle %q is not registered", bundle.ErrUnknownBundle, name)
	}
	return m.loader.AssetURL(b, path)
}

// Dependents returns the registered bundles that directly depend on name.
func (m *Manager) Dependents(name string) []string {
	return m.state.graph.Dependents(name)
}

// TransitiveDependents returns the registered bundles that directly or
// indirectly depend on name.
func (m *Manager) TransitiveDependents(name string) []string {
	return m.state.graph.TransitiveDependents(name)
}

// DependsOn returns the direct dependencies of a registered bundle.
func (m *Manager) DependsOn(name string) []string {
	return m.state.graph.DependsOn(name)
}
