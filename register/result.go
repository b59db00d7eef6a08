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

package register

import (
	"bennypowers.dev/satchel/bundle"
	"bennypowers.dev/satchel/internal/ordered"
)

// File is a registered CSS or JS file.
type File struct {
	// Key is the registry key: the entry's explicit key or its URL.
	Key      string          `json:"key"`
	URL      string          `json:"url"`
	Position bundle.Position `json:"position,omitempty"`
	Options  bundle.Options  `json:"options,omitempty"`
	// Bundle names the bundle that registered the file.
	Bundle string `json:"bundle"`
}

// Inline is a registered CSS or JS code block.
type Inline struct {
	// Key is empty for appended blocks.
	Key      string          `json:"key,omitempty"`
	Content  string          `json:"content"`
	Position bundle.Position `json:"position,omitempty"`
	Options  bundle.Options  `json:"options,omitempty"`
	Bundle   string          `json:"bundle"`
}

// Var is a registered JS variable.
type Var struct {
	Name     string          `json:"name"`
	Value    any             `json:"value"`
	Position bundle.Position `json:"position,omitempty"`
	Bundle   string          `json:"bundle"`
}

// JSKey identifies a JS file. The same key may be registered once per
// position.
type JSKey struct {
	Key      string
	Position bundle.Position
}

// Result holds the ordered registries produced for one or more bundles.
// A keyed entry registered twice keeps its first slot and takes the later
// value.
type Result struct {
	CSSFiles   ordered.Map[string, File]
	CSSStrings ordered.Map[string, Inline]
	JSFiles    ordered.Map[JSKey, File]
	JSStrings  ordered.Map[string, Inline]
	JSVars     ordered.Map[string, Var]
}

// Merge adds every entry of other to r.
func (r *Result) Merge(other *Result) {
	if other == nil {
		return
	}
	r.CSSFiles.Merge(&other.CSSFiles)
	r.CSSStrings.Merge(&other.CSSStrings)
	r.JSFiles.Merge(&other.JSFiles)
	r.JSStrings.Merge(&other.JSStrings)
	r.JSVars.Merge(&other.JSVars)
}

// Empty reports whether nothing is registered.
func (r *Result) Empty() bool {
	return r.CSSFiles.Len() == 0 && r.CSSStrings.Len() == 0 &&
		r.JSFiles.Len() == 0 && r.JSStrings.Len() == 0 && r.JSVars.Len() == 0
}
