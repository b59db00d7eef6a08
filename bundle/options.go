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
	"maps"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Position is the location in the rendered page where a file or block is
// emitted. Lower values render earlier. The zero value means unset.
type Position int

const (
	PositionUnset Position = iota
	PositionHead
	PositionBegin
	PositionEnd
	PositionReady
	PositionLoad
)

var positionNames = map[string]Position{
	"head":  PositionHead,
	"begin": PositionBegin,
	"end":   PositionEnd,
	"ready": PositionReady,
	"load":  PositionLoad,
}

// ParsePosition parses a position from its name ("head", "end", ...) or
// its integer value. An empty string yields PositionUnset.
func ParsePosition(s string) (Position, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return PositionUnset, nil
	}
	if p, ok := positionNames[strings.ToLower(s)]; ok {
		return p, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return PositionUnset, fmt.Errorf("%w: invalid position %q", ErrInvalidConfig, s)
	}
	return Position(n), nil
}

// String returns the position's name, or its number for custom schemes.
func (p Position) String() string {
	for name, v := range positionNames {
		if v == p {
			return name
		}
	}
	if p == PositionUnset {
		return "unset"
	}
	return strconv.Itoa(int(p))
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (p *Position) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("%w: line %d: position must be a scalar", ErrInvalidConfig, node.Line)
	}
	v, err := ParsePosition(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*p = v
	return nil
}

// OptionPosition is the option key carrying a per-entry position override.
const OptionPosition = "position"

// Options are HTML attributes (and the special "position" key) applied to
// rendered files and blocks.
type Options map[string]any

// UnmarshalYAML implements yaml.Unmarshaler. Keys must be attribute names;
// integer keys are rejected.
func (o *Options) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("%w: line %d: options must be a mapping", ErrInvalidConfig, node.Line)
	}
	out := make(Options, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		if err := checkOptionKeyNode(key); err != nil {
			return err
		}
		var v any
		if err := value.Decode(&v); err != nil {
			return fmt.Errorf("%w: line %d: option %q: %v", ErrInvalidConfig, value.Line, key.Value, err)
		}
		out[key.Value] = v
	}
	*o = out
	return nil
}

// Position returns the "position" option when it holds an integer.
func (o Options) Position() (Position, bool) {
	switch v := o[OptionPosition].(type) {
	case Position:
		return v, true
	case int:
		return Position(v), true
	case int64:
		return Position(v), true
	case float64:
		if v == float64(int(v)) {
			return Position(int(v)), true
		}
	case string:
		if p, err := ParsePosition(v); err == nil && p != PositionUnset {
			return p, true
		}
	}
	return PositionUnset, false
}

// MergeOptions returns specific with every key of defaults that specific
// does not set. Values in specific always win. A key that is an integer is
// a configuration error, since it means a positional list was used where
// an attribute map was expected.
func MergeOptions(specific, defaults Options) (Options, error) {
	for k := range specific {
		if err := CheckOptionKey(k); err != nil {
			return nil, err
		}
	}
	out := maps.Clone(specific)
	if out == nil {
		out = make(Options, len(defaults))
	}
	for k, v := range defaults {
		if err := CheckOptionKey(k); err != nil {
			return nil, err
		}
		if _, ok := out[k]; !ok {
			out[k] = v
		}
	}
	return out, nil
}

// CheckOptionKey rejects option keys that are integers.
func CheckOptionKey(key string) error {
	if _, err := strconv.Atoi(key); err == nil {
		return fmt.Errorf("%w: option key %q must be an attribute name, not an index", ErrInvalidConfig, key)
	}
	return nil
}

func checkOptionKeyNode(key *yaml.Node) error {
	if key.Kind != yaml.ScalarNode || key.ShortTag() != "!!str" {
		return fmt.Errorf("%w: line %d: option key %q must be an attribute name", ErrInvalidConfig, key.Line, key.Value)
	}
	return CheckOptionKey(key.Value)
}
