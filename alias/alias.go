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

// Package alias resolves symbolic path prefixes such as "@web" or
// "@public" to concrete paths and URLs.
package alias

import (
	"maps"
	"slices"
	"strings"
)

// Resolver translates an aliased path or URL. Implementations must be pure.
type Resolver interface {
	Resolve(path string) string
}

// Func adapts a plain function to the Resolver interface.
type Func func(string) string

// Resolve implements Resolver.
func (f Func) Resolve(path string) string {
	return f(path)
}

// Identity returns paths unchanged.
var Identity Resolver = Func(func(path string) string { return path })

// Map resolves aliases from a table such as {"@web": "/assets"}. Aliases
// must start with "@". The longest matching alias wins, and alias values
// may themselves start with another alias.
type Map struct {
	aliases map[string]string
	// sorted holds alias names by descending length
	sorted []string
}

// NewMap creates a resolver from an alias table. Trailing slashes on both
// names and values are ignored.
func NewMap(aliases map[string]string) *Map {
	m := &Map{aliases: make(map[string]string, len(aliases))}
	for name, value := range aliases {
		name = strings.TrimRight(name, "/")
		if !strings.HasPrefix(name, "@") {
			name = "@" + name
		}
		m.aliases[name] = strings.TrimRight(value, "/")
	}
	m.sorted = slices.Collect(maps.Keys(m.aliases))
	slices.SortFunc(m.sorted, func(a, b string) int {
		if len(a) != len(b) {
			return len(b) - len(a)
		}
		return strings.Compare(a, b)
	})
	return m
}

// Resolve implements Resolver. Paths without a known alias are returned
// unchanged.
func (m *Map) Resolve(path string) string {
	// bounded so that self-referencing tables cannot loop
	for range len(m.sorted) + 1 {
		resolved, ok := m.resolveOnce(path)
		if !ok {
			return path
		}
		path = resolved
	}
	return path
}

func (m *Map) resolveOnce(path string) (string, bool) {
	if !strings.HasPrefix(path, "@") {
		return path, false
	}
	for _, name := range m.sorted {
		if path == name {
			return m.aliases[name], true
		}
		if strings.HasPrefix(path, name+"/") {
			return m.aliases[name] + path[len(name):], true
		}
	}
	return path, false
}

// Aliases returns a copy of the alias table.
func (m *Map) Aliases() map[string]string {
	return maps.Clone(m.aliases)
}
