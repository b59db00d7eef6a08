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
	"errors"
)

// Sentinel errors. Errors returned by this module wrap one of these, so
// callers can classify them with errors.Is.
var (
	// ErrInvalidConfig reports a configuration problem: missing base
	// path or URL, a missing asset file, a malformed entry or override, or
	// an unusable export target.
	ErrInvalidConfig = errors.New("invalid asset configuration")

	// ErrCircularDependency is returned when a bundle is reached again
	// while its own dependencies are still being registered.
	ErrCircularDependency = errors.New("circular dependency")

	// ErrPositionConflict is returned when a dependency is configured to
	// render later than a bundle that depends on it.
	ErrPositionConflict = errors.New("position conflict")

	// ErrUnknownBundle is returned when no bundle is defined under a name.
	ErrUnknownBundle = errors.New("unknown bundle")

	// ErrNotAllowed is returned when a bundle outside the allow-list is
	// requested.
	ErrNotAllowed = errors.New("bundle not allowed")
)
