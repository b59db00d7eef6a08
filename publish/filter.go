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

package publish

import (
	"fmt"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"bennypowers.dev/satchel/bundle"
)

// filter selects the files of a source tree to publish. Patterns are
// doublestar globs matched against slash-separated paths relative to the
// source root. A pattern without a slash also matches a bare file or
// directory name at any depth.
type filter struct {
	only   []string
	except []string
}

func newFilter(only, except []string) (*filter, error) {
	for _, pattern := range append(append([]string(nil), only...), except...) {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("%w: invalid publish pattern %q", bundle.ErrInvalidConfig, pattern)
		}
	}
	return &filter{only: only, except: except}, nil
}

func matchAny(patterns []string, rel string) bool {
	base := path.Base(rel)
	for _, pattern := range patterns {
		pattern = strings.TrimPrefix(pattern, "/")
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
		if !strings.Contains(pattern, "/") {
			if ok, _ := doublestar.Match(pattern, base); ok {
				return true
			}
		}
	}
	return false
}

// includeDir reports whether the directory may hold published files.
// Only patterns are checked per file, so they never prune directories.
func (f *filter) includeDir(rel string) bool {
	return !matchAny(f.except, rel)
}

func (f *filter) includeFile(rel string) bool {
	if matchAny(f.except, rel) {
		return false
	}
	return len(f.only) == 0 || matchAny(f.only, rel)
}
