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
	"bytes"
	"encoding/json"
	"fmt"
	"maps"

	"gopkg.in/yaml.v3"
)

// Entry is a CSS or JS file reference.
//
// In definition files an entry is a bare URL, a sequence whose first item is
// the URL followed by option mappings, or a mapping with a "url" key and
// optional "key" plus options:
//
//	css:
//	  - css/site.css
//	  - [css/print.css, {media: print}]
//	  - {url: css/theme.css, key: theme, media: screen}
//
// A whole list may also be a mapping from registry key to entry.
type Entry struct {
	// Key is the registry key. When empty, the resolved URL is used.
	Key string
	// URL is a path relative to the bundle base, or an absolute URL.
	URL string
	// Options override the bundle's default options for this file.
	Options Options
}

// Entries is an ordered list of file entries.
type Entries []Entry

// Clone creates a deep copy of the entries.
func (e Entries) Clone() Entries {
	if e == nil {
		return nil
	}
	out := make(Entries, len(e))
	for i, entry := range e {
		out[i] = Entry{Key: entry.Key, URL: entry.URL, Options: maps.Clone(entry.Options)}
	}
	return out
}

// URLs returns the URL of every entry, in order.
func (e Entries) URLs() []string {
	urls := make([]string, len(e))
	for i, entry := range e {
		urls[i] = entry.URL
	}
	return urls
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (e *Entries) UnmarshalYAML(node *yaml.Node) error {
	var out Entries
	switch node.Kind {
	case yaml.SequenceNode:
		for _, item := range node.Content {
			var entry Entry
			if err := entry.UnmarshalYAML(item); err != nil {
				return err
			}
			out = append(out, entry)
		}
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			key := node.Content[i]
			if key.ShortTag() != "!!str" {
				return fmt.Errorf("%w: line %d: entry key %q must be a string", ErrInvalidConfig, key.Line, key.Value)
			}
			var entry Entry
			if err := entry.UnmarshalYAML(node.Content[i+1]); err != nil {
				return err
			}
			entry.Key = key.Value
			out = append(out, entry)
		}
	default:
		return fmt.Errorf("%w: line %d: file entries must be a list", ErrInvalidConfig, node.Line)
	}
	*e = out
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (e *Entry) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.ShortTag() != "!!str" {
			return fmt.Errorf("%w: line %d: file url %q must be a string", ErrInvalidConfig, node.Line, node.Value)
		}
		*e = Entry{URL: node.Value}
		return nil

	case yaml.SequenceNode:
		if len(node.Content) == 0 {
			return fmt.Errorf("%w: line %d: file entry has no url", ErrInvalidConfig, node.Line)
		}
		first := node.Content[0]
		if first.Kind != yaml.ScalarNode || first.ShortTag() != "!!str" {
			return fmt.Errorf("%w: line %d: file url must be a string", ErrInvalidConfig, first.Line)
		}
		entry := Entry{URL: first.Value}
		for i, item := range node.Content[1:] {
			if item.Kind != yaml.MappingNode {
				return fmt.Errorf("%w: line %d: option %d of %q must be a mapping of attribute names", ErrInvalidConfig, item.Line, i+1, first.Value)
			}
			var opts Options
			if err := opts.UnmarshalYAML(item); err != nil {
				return err
			}
			if entry.Options == nil {
				entry.Options = opts
			} else {
				maps.Copy(entry.Options, opts)
			}
		}
		*e = entry
		return nil

	case yaml.MappingNode:
		var opts Options
		if err := opts.UnmarshalYAML(node); err != nil {
			return err
		}
		url, ok := opts["url"]
		if !ok {
			return fmt.Errorf("%w: line %d: file entry has no url", ErrInvalidConfig, node.Line)
		}
		s, ok := url.(string)
		if !ok {
			return fmt.Errorf("%w: line %d: file url must be a string, got %T", ErrInvalidConfig, node.Line, url)
		}
		entry := Entry{URL: s}
		if key, ok := opts["key"]; ok {
			k, ok := key.(string)
			if !ok {
				return fmt.Errorf("%w: line %d: entry key must be a string, got %T", ErrInvalidConfig, node.Line, key)
			}
			entry.Key = k
		}
		delete(opts, "url")
		delete(opts, "key")
		if len(opts) > 0 {
			entry.Options = opts
		}
		*e = entry
		return nil
	}
	return fmt.Errorf("%w: line %d: invalid file entry", ErrInvalidConfig, node.Line)
}

// MarshalJSON encodes entries without options as bare URLs.
func (e Entry) MarshalJSON() ([]byte, error) {
	if e.Key == "" && len(e.Options) == 0 {
		return marshalJSON(e.URL)
	}
	obj := make(map[string]any, len(e.Options)+2)
	maps.Copy(obj, e.Options)
	obj["url"] = e.URL
	if e.Key != "" {
		obj["key"] = e.Key
	}
	return marshalJSON(obj)
}

// MarshalYAML mirrors MarshalJSON so that overrides can round-trip entries.
func (e Entry) MarshalYAML() (any, error) {
	if e.Key == "" && len(e.Options) == 0 {
		return e.URL, nil
	}
	obj := make(map[string]any, len(e.Options)+2)
	maps.Copy(obj, e.Options)
	obj["url"] = e.URL
	if e.Key != "" {
		obj["key"] = e.Key
	}
	return obj, nil
}

// Inline is a block of CSS or JS code rendered in place.
type Inline struct {
	// Key is the registry key. Unkeyed blocks are appended in order.
	Key     string
	Content string
	Options Options
}

// Inlines is an ordered list of inline code blocks.
type Inlines []Inline

// Clone creates a deep copy of the blocks.
func (in Inlines) Clone() Inlines {
	if in == nil {
		return nil
	}
	out := make(Inlines, len(in))
	for i, block := range in {
		out[i] = Inline{Key: block.Key, Content: block.Content, Options: maps.Clone(block.Options)}
	}
	return out
}

// UnmarshalYAML implements yaml.Unmarshaler. Blocks are written like file
// entries, with "content" in place of "url".
func (in *Inlines) UnmarshalYAML(node *yaml.Node) error {
	var out Inlines
	switch node.Kind {
	case yaml.SequenceNode:
		for _, item := range node.Content {
			block, err := decodeInline(item)
			if err != nil {
				return err
			}
			out = append(out, block)
		}
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			key := node.Content[i]
			if key.ShortTag() != "!!str" {
				return fmt.Errorf("%w: line %d: block key %q must be a string", ErrInvalidConfig, key.Line, key.Value)
			}
			block, err := decodeInline(node.Content[i+1])
			if err != nil {
				return err
			}
			block.Key = key.Value
			out = append(out, block)
		}
	default:
		return fmt.Errorf("%w: line %d: inline blocks must be a list", ErrInvalidConfig, node.Line)
	}
	*in = out
	return nil
}

func decodeInline(node *yaml.Node) (Inline, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		return Inline{Content: node.Value}, nil
	case yaml.SequenceNode:
		if len(node.Content) == 0 || node.Content[0].Kind != yaml.ScalarNode {
			return Inline{}, fmt.Errorf("%w: line %d: inline block has no content", ErrInvalidConfig, node.Line)
		}
		block := Inline{Content: node.Content[0].Value}
		for i, item := range node.Content[1:] {
			if item.Kind != yaml.MappingNode {
				return Inline{}, fmt.Errorf("%w: line %d: option %d of inline block must be a mapping of attribute names", ErrInvalidConfig, item.Line, i+1)
			}
			var opts Options
			if err := opts.UnmarshalYAML(item); err != nil {
				return Inline{}, err
			}
			if block.Options == nil {
				block.Options = opts
			} else {
				maps.Copy(block.Options, opts)
			}
		}
		return block, nil
	case yaml.MappingNode:
		var opts Options
		if err := opts.UnmarshalYAML(node); err != nil {
			return Inline{}, err
		}
		content, ok := opts["content"].(string)
		if !ok {
			return Inline{}, fmt.Errorf("%w: line %d: inline block content must be a string", ErrInvalidConfig, node.Line)
		}
		block := Inline{Content: content}
		if key, ok := opts["key"].(string); ok {
			block.Key = key
		}
		delete(opts, "content")
		delete(opts, "key")
		if len(opts) > 0 {
			block.Options = opts
		}
		return block, nil
	}
	return Inline{}, fmt.Errorf("%w: line %d: invalid inline block", ErrInvalidConfig, node.Line)
}

// MarshalJSON implements json.Marshaler.
func (in Inline) MarshalJSON() ([]byte, error) {
	if in.Key == "" && len(in.Options) == 0 {
		return marshalJSON(in.Content)
	}
	return marshalJSON(in.object())
}

// MarshalYAML implements yaml.Marshaler.
func (in Inline) MarshalYAML() (any, error) {
	if in.Key == "" && len(in.Options) == 0 {
		return in.Content, nil
	}
	return in.object(), nil
}

func (in Inline) object() map[string]any {
	obj := make(map[string]any, len(in.Options)+2)
	maps.Copy(obj, in.Options)
	obj["content"] = in.Content
	if in.Key != "" {
		obj["key"] = in.Key
	}
	return obj
}

// Var is a named JS variable rendered as a global assignment.
type Var struct {
	Name  string
	Value any
	// Position falls back to the bundle's JS position when unset.
	Position Position
}

// Vars is an ordered list of JS variables.
type Vars []Var

// UnmarshalYAML implements yaml.Unmarshaler. Variables are either a
// mapping of name to value, or a list whose items are [name, value,
// position?] sequences or single-pair mappings.
func (v *Vars) UnmarshalYAML(node *yaml.Node) error {
	var out Vars
	switch node.Kind {
	case yaml.MappingNode:
		vars, err := decodeVarPairs(node)
		if err != nil {
			return err
		}
		out = vars
	case yaml.SequenceNode:
		for _, item := range node.Content {
			switch item.Kind {
			case yaml.SequenceNode:
				jsVar, err := decodeVarTuple(item)
				if err != nil {
					return err
				}
				out = append(out, jsVar)
			case yaml.MappingNode:
				vars, err := decodeVarPairs(item)
				if err != nil {
					return err
				}
				out = append(out, vars...)
			default:
				return fmt.Errorf("%w: line %d: js variable must be [name, value, position?]", ErrInvalidConfig, item.Line)
			}
		}
	default:
		return fmt.Errorf("%w: line %d: js variables must be a mapping or a list", ErrInvalidConfig, node.Line)
	}
	*v = out
	return nil
}

func decodeVarPairs(node *yaml.Node) (Vars, error) {
	var out Vars
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		if key.ShortTag() != "!!str" {
			return nil, fmt.Errorf("%w: line %d: js variable name %q must be a string", ErrInvalidConfig, key.Line, key.Value)
		}
		var val any
		if err := value.Decode(&val); err != nil {
			return nil, fmt.Errorf("%w: line %d: js variable %q: %v", ErrInvalidConfig, value.Line, key.Value, err)
		}
		out = append(out, Var{Name: key.Value, Value: val})
	}
	return out, nil
}

func decodeVarTuple(node *yaml.Node) (Var, error) {
	if len(node.Content) < 2 || len(node.Content) > 3 {
		return Var{}, fmt.Errorf("%w: line %d: js variable must be [name, value, position?]", ErrInvalidConfig, node.Line)
	}
	name := node.Content[0]
	if name.Kind != yaml.ScalarNode || name.ShortTag() != "!!str" {
		return Var{}, fmt.Errorf("%w: line %d: js variable name must be a string", ErrInvalidConfig, name.Line)
	}
	jsVar := Var{Name: name.Value}
	if err := node.Content[1].Decode(&jsVar.Value); err != nil {
		return Var{}, fmt.Errorf("%w: line %d: js variable %q: %v", ErrInvalidConfig, node.Line, name.Value, err)
	}
	if len(node.Content) == 3 {
		pos := node.Content[2]
		if pos.Kind != yaml.ScalarNode || pos.ShortTag() != "!!int" {
			return Var{}, fmt.Errorf("%w: line %d: position of js variable %q must be an integer", ErrInvalidConfig, pos.Line, name.Value)
		}
		if err := pos.Decode(&jsVar.Position); err != nil {
			return Var{}, err
		}
	}
	return jsVar, nil
}

// MarshalJSON encodes a variable as [name, value] or [name, value, position].
func (v Var) MarshalJSON() ([]byte, error) {
	return marshalJSON(v.tuple())
}

// MarshalYAML implements yaml.Marshaler.
func (v Var) MarshalYAML() (any, error) {
	return v.tuple(), nil
}

func (v Var) tuple() []any {
	if v.Position == PositionUnset {
		return []any{v.Name, v.Value}
	}
	return []any{v.Name, v.Value, int(v.Position)}
}

// Names returns the variable names, in order.
func (v Vars) Names() []string {
	names := make([]string, len(v))
	for i, jsVar := range v {
		names[i] = jsVar.Name
	}
	return names
}

// marshalJSON encodes v without escaping HTML characters, which are
// common in URLs and inline code.
func marshalJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
