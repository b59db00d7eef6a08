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
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Override replaces bundle fields by their definition-file names, e.g.
// {"basePath": "@public/vendor", "jsPosition": 3}.
type Override map[string]any

// Apply decodes the override on top of the bundle. Fields absent from the
// override keep their values. Unknown fields and values of the wrong type
// are configuration errors.
func (b *Bundle) Apply(o Override) error {
	if len(o) == 0 {
		return nil
	}
	data, err := yaml.Marshal(map[string]any(o))
	if err != nil {
		return fmt.Errorf("%w: bundle %q: encoding override: %v", ErrInvalidConfig, b.Name, err)
	}
	name := b.Name
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(b); err != nil {
		if errors.Is(err, ErrInvalidConfig) {
			return fmt.Errorf("bundle %q override: %w", name, err)
		}
		return fmt.Errorf("%w: bundle %q override: %v", ErrInvalidConfig, name, err)
	}
	b.Name = name
	return nil
}
