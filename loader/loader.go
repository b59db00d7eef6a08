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

// Package loader builds ready-to-use bundles from their definitions and
// resolves the public URL of each asset in a bundle.
package loader

import (
	"cmp"
	"fmt"
	"maps"
	"path/filepath"
	"strings"

	"bennypowers.dev/satchel/alias"
	"bennypowers.dev/satchel/bundle"
	"bennypowers.dev/satchel/cdn"
	"bennypowers.dev/satchel/fs"
)

// Loader resolves bundle locations and asset URLs.
type Loader struct {
	fs                 fs.FileSystem
	registry           *bundle.Registry
	aliases            alias.Resolver
	basePath           string
	baseURL            string
	assetMap           map[string]string
	appendTimestamp    bool
	cssDefaultOptions  bundle.Options
	jsDefaultOptions   bundle.Options
	cssDefaultPosition bundle.Position
	jsDefaultPosition  bundle.Position
}

// New creates a Loader for the bundles declared in registry.
func New(fsys fs.FileSystem, registry *bundle.Registry) *Loader {
	return &Loader{
		fs:       fsys,
		registry: registry,
		aliases:  alias.Identity,
	}
}

func (l *Loader) clone() *Loader {
	clone := *l
	clone.assetMap = maps.Clone(l.assetMap)
	clone.cssDefaultOptions = maps.Clone(l.cssDefaultOptions)
	clone.jsDefaultOptions = maps.Clone(l.jsDefaultOptions)
	return &clone
}

// WithAliases returns a new Loader that resolves path aliases with r.
func (l *Loader) WithAliases(r alias.Resolver) *Loader {
	clone := l.clone()
	clone.aliases = r
	return clone
}

// WithBasePath returns a new Loader whose bundles default to basePath, the
// directory that holds published assets.
func (l *Loader) WithBasePath(basePath string) *Loader {
	clone := l.clone()
	clone.basePath = basePath
	return clone
}

// WithBaseURL returns a new Loader whose bundles default to baseURL, the
// URL under which the base path is served.
func (l *Loader) WithBaseURL(baseURL string) *Loader {
	clone := l.clone()
	clone.baseURL = baseURL
	return clone
}

// WithAssetMap returns a new Loader that rewrites asset references. Keys
// match an asset path exactly or as a suffix of the path; values replace it.
func (l *Loader) WithAssetMap(assetMap map[string]string) *Loader {
	clone := l.clone()
	clone.assetMap = maps.Clone(assetMap)
	return clone
}

// WithAppendTimestamp returns a new Loader that appends ?v=<mtime> to local
// asset URLs.
func (l *Loader) WithAppendTimestamp(appendTimestamp bool) *Loader {
	clone := l.clone()
	clone.appendTimestamp = appendTimestamp
	return clone
}

// WithCSSDefaultOptions returns a new Loader that fills absent CSS options
// of every bundle from opts.
func (l *Loader) WithCSSDefaultOptions(opts bundle.Options) *Loader {
	clone := l.clone()
	clone.cssDefaultOptions = maps.Clone(opts)
	return clone
}

// WithJSDefaultOptions returns a new Loader that fills absent JS options of
// every bundle from opts.
func (l *Loader) WithJSDefaultOptions(opts bundle.Options) *Loader {
	clone := l.clone()
	clone.jsDefaultOptions = maps.Clone(opts)
	return clone
}

// WithCSSDefaultPosition returns a new Loader whose CSS renders at p unless
// a bundle or entry says otherwise.
func (l *Loader) WithCSSDefaultPosition(p bundle.Position) *Loader {
	clone := l.clone()
	clone.cssDefaultPosition = p
	return clone
}

// WithJSDefaultPosition returns a new Loader whose JS renders at p unless a
// bundle or entry says otherwise.
func (l *Loader) WithJSDefaultPosition(p bundle.Position) *Loader {
	clone := l.clone()
	clone.jsDefaultPosition = p
	return clone
}

// FileSystem returns the loader's filesystem.
func (l *Loader) FileSystem() fs.FileSystem { return l.fs }

// Registry returns the bundle registry.
func (l *Loader) Registry() *bundle.Registry { return l.registry }

// Resolve resolves a path or URL alias.
func (l *Loader) Resolve(path string) string { return l.aliases.Resolve(path) }

// BasePath returns the resolved default base path.
func (l *Loader) BasePath() string { return l.aliases.Resolve(l.basePath) }

// BaseURL returns the resolved default base URL.
func (l *Loader) BaseURL() string { return l.aliases.Resolve(l.baseURL) }

// DefaultCSSPosition returns the CSS position used when neither bundle nor
// entry sets one.
func (l *Loader) DefaultCSSPosition() bundle.Position { return l.cssDefaultPosition }

// DefaultJSPosition returns the JS position used when neither bundle nor
// entry sets one.
func (l *Loader) DefaultJSPosition() bundle.Position { return l.jsDefaultPosition }

// LoadBundle creates the bundle declared under name, applies override, and
// resolves its locations and options.
func (l *Loader) LoadBundle(name string, override bundle.Override) (*bundle.Bundle, error) {
	b, err := l.registry.Lookup(name)
	if err != nil {
		return nil, err
	}
	if err := b.Apply(override); err != nil {
		return nil, err
	}
	if err := l.Prepare(b); err != nil {
		return nil, err
	}
	return b, nil
}

// Prepare resolves the locations and options of a bundle in place.
func (l *Loader) Prepare(b *bundle.Bundle) error {
	// a package without a provider is served by the default CDN
	if b.Provider != "" || b.Package != "" {
		b.CDN = true
		if b.BaseURL == "" {
			provider := &cdn.DefaultProvider
			if b.Provider != "" {
				if provider = cdn.ProviderByName(b.Provider); provider == nil {
					return fmt.Errorf("%w: bundle %q: unknown CDN provider %q (known: %s)",
						bundle.ErrInvalidConfig, b.Name, b.Provider, strings.Join(cdn.ProviderNames(), ", "))
				}
			}
			b.BaseURL = provider.BaseURL(cmp.Or(b.Package, b.Name), b.Version)
		}
	}

	if b.CDN {
		b.BasePath = l.aliases.Resolve(b.BasePath)
		b.BaseURL = l.aliases.Resolve(b.BaseURL)
	} else {
		b.BasePath = l.aliases.Resolve(cmp.Or(b.BasePath, l.basePath))
		b.BaseURL = l.aliases.Resolve(cmp.Or(b.BaseURL, l.baseURL))
	}
	if b.SourcePath != "" {
		b.SourcePath = fs.Canonical(l.aliases.Resolve(b.SourcePath))
	}

	var err error
	if b.CSSOptions, err = bundle.MergeOptions(b.CSSOptions, l.cssDefaultOptions); err != nil {
		return fmt.Errorf("bundle %q css options: %w", b.Name, err)
	}
	if b.JSOptions, err = bundle.MergeOptions(b.JSOptions, l.jsDefaultOptions); err != nil {
		return fmt.Errorf("bundle %q js options: %w", b.Name, err)
	}

	// published bundles get their locations from the publisher
	if !b.CDN && b.SourcePath == "" {
		if b.BasePath == "" {
			return fmt.Errorf("%w: bundle %q: base path is not set; set the loader base path or the bundle's basePath", bundle.ErrInvalidConfig, b.Name)
		}
		if b.BaseURL == "" {
			return fmt.Errorf("%w: bundle %q: base URL is not set; set the loader base URL or the bundle's baseUrl", bundle.ErrInvalidConfig, b.Name)
		}
	}
	return nil
}

// AssetURL returns the public URL of assetPath within bundle b.
//
// Asset map hits are returned as mapped. CDN bundles never touch the
// filesystem. Absolute URLs and root-relative paths are returned unchanged.
// Any other path must exist below the bundle's base path.
func (l *Loader) AssetURL(b *bundle.Bundle, assetPath string) (string, error) {
	if mapped, ok := l.mapAsset(b, assetPath); ok {
		return mapped, nil
	}

	if b.CDN {
		if b.BaseURL == "" {
			return assetPath, nil
		}
		return b.BaseURL + "/" + assetPath, nil
	}

	if !IsRelative(assetPath) || strings.HasPrefix(assetPath, "/") {
		return assetPath, nil
	}

	basePath := cmp.Or(b.BasePath, l.BasePath())
	if basePath == "" {
		return "", fmt.Errorf("%w: bundle %q: base path is not set", bundle.ErrInvalidConfig, b.Name)
	}
	baseURL := cmp.Or(b.BaseURL, l.BaseURL())
	if baseURL == "" {
		return "", fmt.Errorf("%w: bundle %q: base URL is not set", bundle.ErrInvalidConfig, b.Name)
	}

	fullPath := filepath.Join(basePath, filepath.FromSlash(assetPath))
	info, err := l.fs.Stat(fullPath)
	if err != nil || info.IsDir() {
		return "", fmt.Errorf("%w: bundle %q: asset file not found: %q", bundle.ErrInvalidConfig, b.Name, fullPath)
	}

	url := strings.TrimRight(baseURL, "/") + "/" + assetPath
	if l.appendTimestamp {
		url = fmt.Sprintf("%s?v=%d", url, info.ModTime().Unix())
	}
	return url, nil
}

// mapAsset looks assetPath up in the asset map: first as an exact key, then
// by the longest key that is a suffix of the path. Relative paths of
// published bundles are matched with their source directory prepended.
func (l *Loader) mapAsset(b *bundle.Bundle, assetPath string) (string, bool) {
	if len(l.assetMap) == 0 {
		return "", false
	}
	if to, ok := l.assetMap[assetPath]; ok {
		return to, true
	}

	candidate := assetPath
	if b.SourcePath != "" && IsRelative(assetPath) {
		candidate = filepath.ToSlash(b.SourcePath) + "/" + assetPath
	}

	var best string
	found := false
	for from := range l.assetMap {
		if !strings.HasSuffix(candidate, from) {
			continue
		}
		if !found || len(from) > len(best) || (len(from) == len(best) && from < best) {
			best, found = from, true
		}
	}
	if !found {
		return "", false
	}
	return l.assetMap[best], true
}

// IsRelative reports whether url is neither protocol-relative ("//host")
// nor carries a scheme ("https://"). Root-relative paths are relative.
func IsRelative(url string) bool {
	return !strings.HasPrefix(url, "//") && !strings.Contains(url, "://")
}

// AssetPath returns the filesystem path of a local asset of b, or "" when
// the asset is served from a CDN or by absolute URL.
func (l *Loader) AssetPath(b *bundle.Bundle, assetPath string) string {
	if b.CDN || !IsRelative(assetPath) || strings.HasPrefix(assetPath, "/") {
		return ""
	}
	basePath := cmp.Or(b.BasePath, l.BasePath())
	if basePath == "" {
		return ""
	}
	return filepath.Join(basePath, filepath.FromSlash(assetPath))
}
