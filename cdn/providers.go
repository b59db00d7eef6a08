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

// Package cdn describes CDN providers that serve npm packages, so that CDN
// bundles can name a package and version instead of a full base URL.
package cdn

import "strings"

// Provider represents a CDN provider with a URL template for package files.
type Provider struct {
	Name string
	// ModuleTemplate is the URL template for files of a package.
	// Variables: {package}, {version}, {path}
	ModuleTemplate string
}

// Predefined CDN providers
var (
	// EsmSh is the esm.sh CDN provider.
	EsmSh = Provider{
		Name:           "esm.sh",
		ModuleTemplate: "https://esm.sh/{package}@{version}/{path}",
	}

	// Unpkg is the unpkg CDN provider.
	Unpkg = Provider{
		Name:           "unpkg",
		ModuleTemplate: "https://unpkg.com/{package}@{version}/{path}",
	}

	// Jsdelivr is the jsDelivr CDN provider.
	Jsdelivr = Provider{
		Name:           "jsdelivr",
		ModuleTemplate: "https://cdn.jsdelivr.net/npm/{package}@{version}/{path}",
	}
)

// DefaultProvider serves bundles that name a package but no provider.
var DefaultProvider = Jsdelivr

// ProviderByName returns a CDN provider by name.
// Returns nil if the provider name is not recognized.
func ProviderByName(name string) *Provider {
	switch name {
	case "esm.sh", "esmsh", "esm":
		return &EsmSh
	case "unpkg":
		return &Unpkg
	case "jsdelivr", "jsdelivr.net", "cdn.jsdelivr.net":
		return &Jsdelivr
	default:
		return nil
	}
}

// ProviderNames returns a list of supported CDN provider names.
func ProviderNames() []string {
	return []string{"esm.sh", "unpkg", "jsdelivr"}
}

// URL expands the module template for a file of a package. An empty version
// requests the provider's latest release.
func (p Provider) URL(pkg, version, path string) string {
	result := p.ModuleTemplate
	if version == "" {
		result = strings.ReplaceAll(result, "@{version}", "")
	}
	result = strings.ReplaceAll(result, "{package}", pkg)
	result = strings.ReplaceAll(result, "{version}", version)
	result = strings.ReplaceAll(result, "{path}", strings.TrimPrefix(path, "/"))
	return result
}

// BaseURL returns the URL of a package's root, without a trailing slash.
func (p Provider) BaseURL(pkg, version string) string {
	return strings.TrimRight(p.URL(pkg, version, ""), "/")
}
