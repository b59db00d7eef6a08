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

// Package register turns a loaded bundle into registry entries: resolved
// file URLs, inline blocks and JS variables, each with merged options and
// a render position.
package register

import (
	"cmp"
	"context"
	"fmt"
	"maps"

	"bennypowers.dev/satchel/bundle"
	"bennypowers.dev/satchel/convert"
	"bennypowers.dev/satchel/fs"
	"bennypowers.dev/satchel/internal/ordered"
	"bennypowers.dev/satchel/loader"
)

// Registrar registers the assets of single bundles.
type Registrar struct {
	loader    *loader.Loader
	converter *convert.Converter
}

// New creates a Registrar that resolves URLs with l.
func New(l *loader.Loader) *Registrar {
	return &Registrar{loader: l}
}

// WithConverter returns a new Registrar that converts pre-processor
// sources with c before registering them.
func (r *Registrar) WithConverter(c *convert.Converter) *Registrar {
	clone := *r
	clone.converter = c
	return &clone
}

// Register produces the registry entries of b. The bundle is not modified.
func (r *Registrar) Register(ctx context.Context, b *bundle.Bundle) (*Result, error) {
	res := &Result{}

	css := r.convertEntries(ctx, b, b.CSS)
	for i, entry := range css {
		file, err := r.file(b, entry, b.CSSOptions, b.EffectiveCSSPosition(), r.loader.DefaultCSSPosition())
		if err != nil {
			return nil, fmt.Errorf("bundle %q css entry %d: %w", b.Name, i, err)
		}
		res.CSSFiles.Set(file.Key, file)
	}

	js := r.convertEntries(ctx, b, b.JS)
	for i, entry := range js {
		file, err := r.file(b, entry, b.JSOptions, b.EffectiveJSPosition(), r.loader.DefaultJSPosition())
		if err != nil {
			return nil, fmt.Errorf("bundle %q js entry %d: %w", b.Name, i, err)
		}
		res.JSFiles.Set(JSKey{Key: file.Key, Position: file.Position}, file)
	}

	for i, in := range b.CSSStrings {
		block, err := inline(b, in, b.CSSOptions, b.EffectiveCSSPosition(), r.loader.DefaultCSSPosition())
		if err != nil {
			return nil, fmt.Errorf("bundle %q css string %d: %w", b.Name, i, err)
		}
		setInline(&res.CSSStrings, in.Key, block)
	}

	for i, in := range b.JSStrings {
		block, err := inline(b, in, b.JSOptions, b.EffectiveJSPosition(), r.loader.DefaultJSPosition())
		if err != nil {
			return nil, fmt.Errorf("bundle %q js string %d: %w", b.Name, i, err)
		}
		setInline(&res.JSStrings, in.Key, block)
	}

	for i, v := range b.JSVars {
		if v.Name == "" {
			return nil, fmt.Errorf("%w: bundle %q js variable %d has no name", bundle.ErrInvalidConfig, b.Name, i)
		}
		res.JSVars.Set(v.Name, Var{
			Name:     v.Name,
			Value:    v.Value,
			Position: firstPosition(v.Position, b.EffectiveJSPosition(), r.loader.DefaultJSPosition()),
			Bundle:   b.Name,
		})
	}

	return res, nil
}

// convertEntries returns entries with each existing local pre-processor
// source replaced by its converted output. Conversion runs only when a
// converter is configured and the bundle has both a base path and a base
// URL.
func (r *Registrar) convertEntries(ctx context.Context, b *bundle.Bundle, entries bundle.Entries) bundle.Entries {
	if r.converter == nil || b.BasePath == "" || b.BaseURL == "" {
		return entries
	}
	var out bundle.Entries
	for i, entry := range entries {
		path := r.loader.AssetPath(b, entry.URL)
		if path == "" || !fs.IsFile(r.loader.FileSystem(), path) {
			continue
		}
		converted := r.converter.Convert(ctx, entry.URL, b.BasePath, b.ConverterOptions)
		if converted == entry.URL {
			continue
		}
		if out == nil {
			out = entries.Clone()
		}
		out[i].URL = converted
	}
	if out == nil {
		return entries
	}
	return out
}

func (r *Registrar) file(b *bundle.Bundle, entry bundle.Entry, defaults bundle.Options, fallbacks ...bundle.Position) (File, error) {
	if entry.URL == "" {
		return File{}, fmt.Errorf("%w: URL is empty", bundle.ErrInvalidConfig)
	}
	url, err := r.loader.AssetURL(b, entry.URL)
	if err != nil {
		return File{}, err
	}
	opts, position, err := entryOptions(entry.Options, defaults, fallbacks)
	if err != nil {
		return File{}, err
	}
	return File{Key: cmp.Or(entry.Key, url), URL: url, Position: position, Options: opts, Bundle: b.Name}, nil
}

func inline(b *bundle.Bundle, in bundle.Inline, defaults bundle.Options, fallbacks ...bundle.Position) (Inline, error) {
	opts, position, err := entryOptions(in.Options, defaults, fallbacks)
	if err != nil {
		return Inline{}, err
	}
	return Inline{Key: in.Key, Content: in.Content, Position: position, Options: opts, Bundle: b.Name}, nil
}

func setInline(m *ordered.Map[string, Inline], key string, block Inline) {
	if key == "" {
		m.Append(block)
		return
	}
	m.Set(key, block)
}

// entryOptions merges entry options over the bundle's and moves the
// "position" option out of the attribute map.
func entryOptions(specific, defaults bundle.Options, fallbacks []bundle.Position) (bundle.Options, bundle.Position, error) {
	opts, err := bundle.MergeOptions(specific, defaults)
	if err != nil {
		return nil, bundle.PositionUnset, err
	}
	position := firstPosition(fallbacks...)
	if _, ok := opts[bundle.OptionPosition]; ok {
		p, ok := opts.Position()
		if !ok {
			return nil, bundle.PositionUnset, fmt.Errorf("%w: position %v is not a valid position", bundle.ErrInvalidConfig, opts[bundle.OptionPosition])
		}
		if p != bundle.PositionUnset {
			position = p
		}
		opts = maps.Clone(opts)
		delete(opts, bundle.OptionPosition)
	}
	if len(opts) == 0 {
		opts = nil
	}
	return opts, position, nil
}

func firstPosition(positions ...bundle.Position) bundle.Position {
	for _, p := range positions {
		if p != bundle.PositionUnset {
			return p
		}
	}
	return bundle.PositionUnset
}
