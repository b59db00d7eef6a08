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
	"maps"
	"slices"
	"sync"
)

// DependencyGraph records which bundles depend on which, in both
// directions, as bundles are registered.
type DependencyGraph struct {
	mu sync.RWMutex

	// dependsOn maps bundle name -> set of bundles it depends on
	dependsOn map[string]map[string]bool

	// dependents maps bundle name -> set of bundles depending on it
	dependents map[string]map[string]bool
}

// NewDependencyGraph creates an empty dependency graph.
func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		dependsOn:  make(map[string]map[string]bool),
		dependents: make(map[string]map[string]bool),
	}
}

// AddDependency records that name depends on dep.
func (g *DependencyGraph) AddDependency(name, dep string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.dependsOn[name] == nil {
		g.dependsOn[name] = make(map[string]bool)
	}
	g.dependsOn[name][dep] = true

	if g.dependents[dep] == nil {
		g.dependents[dep] = make(map[string]bool)
	}
	g.dependents[dep][name] = true
}

// DependsOn returns the bundles name directly depends on, sorted.
func (g *DependencyGraph) DependsOn(name string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return sortedKeys(g.dependsOn[name])
}

// Dependents returns the bundles that directly depend on name, sorted.
func (g *DependencyGraph) Dependents(name string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return sortedKeys(g.dependents[name])
}

// TransitiveDependents returns every bundle that directly or indirectly
// depends on name, sorted.
func (g *DependencyGraph) TransitiveDependents(name string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	visited := make(map[string]bool)
	queue := []string{name}
	var result []string

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for dep := range g.dependents[current] {
			if !visited[dep] {
				visited[dep] = true
				result = append(result, dep)
				queue = append(queue, dep)
			}
		}
	}

	slices.Sort(result)
	return result
}

// Clone creates a deep copy of the graph.
func (g *DependencyGraph) Clone() *DependencyGraph {
	g.mu.RLock()
	defer g.mu.RUnlock()

	clone := NewDependencyGraph()
	for name, deps := range g.dependsOn {
		clone.dependsOn[name] = maps.Clone(deps)
	}
	for name, deps := range g.dependents {
		clone.dependents[name] = maps.Clone(deps)
	}
	return clone
}

func sortedKeys(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	return slices.Sorted(maps.Keys(set))
}
