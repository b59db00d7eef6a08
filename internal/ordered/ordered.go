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

// Package ordered provides an insertion-ordered map.
package ordered

import "iter"

type item[K comparable, V any] struct {
	key   K
	keyed bool
	value V
}

// Map is a map that remembers insertion order. Setting an existing key
// replaces its value in place, keeping its original slot. Appended values
// have no key and are never replaced. The zero value is ready to use.
type Map[K comparable, V any] struct {
	index map[K]int
	items []item[K, V]
}

// Set stores value under key.
func (m *Map[K, V]) Set(key K, value V) {
	if i, ok := m.index[key]; ok {
		m.items[i].value = value
		return
	}
	if m.index == nil {
		m.index = make(map[K]int)
	}
	m.index[key] = len(m.items)
	m.items = append(m.items, item[K, V]{key: key, keyed: true, value: value})
}

// Append adds a value without a key.
func (m *Map[K, V]) Append(value V) {
	m.items = append(m.items, item[K, V]{value: value})
}

// Get returns the value stored under key.
func (m *Map[K, V]) Get(key K) (V, bool) {
	if i, ok := m.index[key]; ok {
		return m.items[i].value, true
	}
	var zero V
	return zero, false
}

// Has reports whether key is set.
func (m *Map[K, V]) Has(key K) bool {
	_, ok := m.index[key]
	return ok
}

// Len returns the number of values, keyed or not.
func (m *Map[K, V]) Len() int {
	return len(m.items)
}

// Keys returns the keys in insertion order. Appended values are skipped.
func (m *Map[K, V]) Keys() []K {
	keys := make([]K, 0, len(m.index))
	for _, it := range m.items {
		if it.keyed {
			keys = append(keys, it.key)
		}
	}
	return keys
}

// Values returns all values in insertion order.
func (m *Map[K, V]) Values() []V {
	values := make([]V, len(m.items))
	for i, it := range m.items {
		values[i] = it.value
	}
	return values
}

// All iterates over keyed values in insertion order.
func (m *Map[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for _, it := range m.items {
			if it.keyed && !yield(it.key, it.value) {
				return
			}
		}
	}
}

// Merge copies every value of other into m: keyed values with Set,
// appended values with Append.
func (m *Map[K, V]) Merge(other *Map[K, V]) {
	if other == nil {
		return
	}
	for _, it := range other.items {
		if it.keyed {
			m.Set(it.key, it.value)
		} else {
			m.Append(it.value)
		}
	}
}

// Clone returns a copy of m. Values are copied shallowly.
func (m *Map[K, V]) Clone() *Map[K, V] {
	c := &Map[K, V]{items: make([]item[K, V], len(m.items))}
	copy(c.items, m.items)
	if m.index != nil {
		c.index = make(map[K]int, len(m.index))
		for k, v := range m.index {
			c.index[k] = v
		}
	}
	return c
}
