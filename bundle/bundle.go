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

// Package bundle defines asset bundles: named collections of CSS and JS
// files, inline code blocks and variables, together with the metadata that
// controls where they are published and how they are rendered.
package bundle

import (
	"maps"
	"slices"
)

// Bundle is a named collection of assets.
//
// BasePath and BaseURL locate the bundle's files on disk and on the web. When
// SourcePath is set, both are overwritten by the publisher's result, so they
// are not trustworthy before publication.
type Bundle struct {
	// Name identifies the bundle in the dependency graph and registries.
	Name string `yaml:"-" json:"name"`

	BasePath   string `yaml:"basePath,omitempty" json:"basePath,omitempty"`
	BaseURL    string `yaml:"baseUrl,omitempty" json:"baseUrl,omitempty"`
	SourcePath string `yaml:"sourcePath,omitempty" json:"sourcePath,omitempty"`

	// CDN marks a bundle whose files are served from elsewhere. Its URLs are
	// never checked against the filesystem.
	CDN bool `yaml:"cdn,omitempty" json:"cdn,omitempty"`
	// Provider, Package and Version derive BaseURL for CDN bundles from a
	// known CDN provider when BaseURL is not set explicitly. Setting only
	// Package selects jsDelivr.
	Provider string `yaml:"provider,omitempty" json:"provider,omitempty"`
	Package  string `yaml:"package,omitempty" json:"package,omitempty"`
	Version  string `yaml:"version,omitempty" json:"version,omitempty"`

	CSS         Entries  `yaml:"css,omitempty" json:"css,omitempty"`
	CSSStrings  Inlines  `yaml:"cssStrings,omitempty" json:"cssStrings,omitempty"`
	CSSPosition Position `yaml:"cssPosition,omitempty" json:"cssPosition,omitempty"`
	CSSOptions  Options  `yaml:"cssOptions,omitempty" json:"cssOptions,omitempty"`

	JS         Entries  `yaml:"js,omitempty" json:"js,omitempty"`
	JSStrings  Inlines  `yaml:"jsStrings,omitempty" json:"jsStrings,omitempty"`
	JSVars     Vars     `yaml:"jsVars,omitempty" json:"jsVars,omitempty"`
	JSPosition Position `yaml:"jsPosition,omitempty" json:"jsPosition,omitempty"`
	JSOptions  Options  `yaml:"jsOptions,omitempty" json:"jsOptions,omitempty"`

	// ConverterOptions holds per source extension overrides for the
	// converter, e.g. {"scss": {options: "--style compressed"}}.
	ConverterOptions map[string]ConverterOptions `yaml:"converterOptions,omitempty" json:"converterOptions,omitempty"`

	// Depends lists the names of bundles that must be registered first.
	Depends []string `yaml:"depends,omitempty" json:"depends,omitempty"`

	PublishOptions PublishOptions `yaml:"publishOptions,omitempty" json:"publishOptions,omitzero"`

	// Export lists source-relative files handed to third-party bundlers.
	// When empty, the CSS and JS entries are exported instead.
	Export []string `yaml:"export,omitempty" json:"export,omitempty"`
}

// ConverterOptions overrides converter behavior for one source extension.
type ConverterOptions struct {
	// Command replaces the command template, e.g. "sass {options} {from} {to}".
	Command string `yaml:"command,omitempty" json:"command,omitempty"`
	// Options is substituted for the {options} placeholder.
	Options string `yaml:"options,omitempty" json:"options,omitempty"`
	// Target is the output extension when Command introduces a source
	// extension the converter does not know.
	Target string `yaml:"target,omitempty" json:"target,omitempty"`
}

// PublishOptions controls how a bundle's source directory is published.
type PublishOptions struct {
	// ForceCopy overrides the publisher's default when non-nil.
	ForceCopy *bool `yaml:"forceCopy,omitempty" json:"forceCopy,omitempty"`
	// Only and Except are doublestar patterns matched against
	// slash-separated paths relative to the source directory.
	Only   []string `yaml:"only,omitempty" json:"only,omitempty"`
	Except []string `yaml:"except,omitempty" json:"except,omitempty"`
	// Precompress lists encodings ("gzip", "zstd") to write next to each
	// copied text asset.
	Precompress []string `yaml:"precompress,omitempty" json:"precompress,omitempty"`
}

// IsZero reports whether no publish option is set.
func (o PublishOptions) IsZero() bool {
	return o.ForceCopy == nil && len(o.Only) == 0 && len(o.Except) == 0 && len(o.Precompress) == 0
}

// Dummy returns an empty placeholder bundle. Disabled bundles resolve to a
// dummy so that dependents referencing them by name keep working.
func Dummy(name string) *Bundle {
	return &Bundle{Name: name, CDN: true}
}

// Clone creates a deep copy of the bundle.
func (b *Bundle) Clone() *Bundle {
	if b == nil {
		return nil
	}
	c := *b
	c.CSS = b.CSS.Clone()
	c.CSSStrings = b.CSSStrings.Clone()
	c.CSSOptions = maps.Clone(b.CSSOptions)
	c.JS = b.JS.Clone()
	c.JSStrings = b.JSStrings.Clone()
	c.JSVars = slices.Clone(b.JSVars)
	c.JSOptions = maps.Clone(b.JSOptions)
	c.ConverterOptions = maps.Clone(b.ConverterOptions)
	c.Depends = slices.Clone(b.Depends)
	c.Export = slices.Clone(b.Export)
	c.PublishOptions.Only = slices.Clone(b.PublishOptions.Only)
	c.PublishOptions.Except = slices.Clone(b.PublishOptions.Except)
	c.PublishOptions.Precompress = slices.Clone(b.PublishOptions.Precompress)
	if b.PublishOptions.ForceCopy != nil {
		v := *b.PublishOptions.ForceCopy
		c.PublishOptions.ForceCopy = &v
	}
	return &c
}

// EffectiveJSPosition returns the "position" JS option when set, else
// JSPosition.
func (b *Bundle) EffectiveJSPosition() Position {
	if p, ok := b.JSOptions.Position(); ok {
		return p
	}
	return b.JSPosition
}

// EffectiveCSSPosition returns the "position" CSS option when set, else
// CSSPosition.
func (b *Bundle) EffectiveCSSPosition() Position {
	if p, ok := b.CSSOptions.Position(); ok {
		return p
	}
	return b.CSSPosition
}
