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

package config

import (
	"fmt"
	iofs "io/fs"
	"maps"
	"slices"

	"github.com/spf13/viper"

	"bennypowers.dev/satchel/alias"
	"bennypowers.dev/satchel/bundle"
	"bennypowers.dev/satchel/convert"
	"bennypowers.dev/satchel/fs"
	"bennypowers.dev/satchel/loader"
	"bennypowers.dev/satchel/manager"
	"bennypowers.dev/satchel/publish"
	"bennypowers.dev/satchel/register"
)

// Logger is satisfied by *log.Logger from charmbracelet/log.
type Logger interface {
	Debug(msg any, keyvals ...any)
	Error(msg any, keyvals ...any)
}

// Pipeline is the asset pipeline assembled from Settings.
type Pipeline struct {
	Registry  *bundle.Registry
	Loader    *loader.Loader
	Publisher *publish.Publisher
	Converter *convert.Converter
	Registrar *register.Registrar
	Manager   *manager.Manager
}

// Build loads the bundle definitions and wires the pipeline. The logger
// may be nil.
func (s *Settings) Build(fsys fs.FileSystem, logger Logger) (*Pipeline, error) {
	registry := bundle.NewRegistry()
	if err := LoadDefinitions(fsys, registry, s.Dir, s.Bundles); err != nil {
		return nil, err
	}

	cssPosition, err := bundle.ParsePosition(s.CSSDefaultPosition)
	if err != nil {
		return nil, fmt.Errorf("css-default-position: %w", err)
	}
	jsPosition, err := bundle.ParsePosition(s.JSDefaultPosition)
	if err != nil {
		return nil, fmt.Errorf("js-default-position: %w", err)
	}
	hasher, err := publish.HasherByName(s.Hash)
	if err != nil {
		return nil, err
	}

	aliases := alias.NewMap(s.Aliases)

	l := loader.New(fsys, registry).
		WithAliases(aliases).
		WithBasePath(s.BasePath).
		WithBaseURL(s.BaseURL).
		WithAssetMap(s.AssetMap).
		WithAppendTimestamp(s.AppendTimestamp).
		WithCSSDefaultOptions(s.CSSDefaultOptions).
		WithJSDefaultOptions(s.JSDefaultOptions).
		WithCSSDefaultPosition(cssPosition).
		WithJSDefaultPosition(jsPosition)

	dirMode, fileMode := publish.DefaultDirMode, publish.DefaultFileMode
	if s.DirMode != 0 {
		dirMode = iofs.FileMode(s.DirMode)
	}
	if s.FileMode != 0 {
		fileMode = iofs.FileMode(s.FileMode)
	}
	p := publish.New(fsys, s.BasePath, s.BaseURL).
		WithAliases(aliases).
		WithLinkAssets(s.LinkAssets).
		WithForceCopy(s.ForceCopy).
		WithModes(dirMode, fileMode).
		WithHasher(hasher)
	if logger != nil {
		p = p.WithLogger(logger)
	}

	c := convert.New(fsys, logger).WithForceConvert(s.ForceConvert)
	if s.ConvertTimeout > 0 {
		c = c.WithTimeout(s.ConvertTimeout)
	}
	for _, ext := range slices.Sorted(maps.Keys(s.Commands)) {
		cmd := s.Commands[ext]
		if cmd.Target == "" || cmd.Command == "" {
			return nil, fmt.Errorf("%w: command for %q needs a target and a command", bundle.ErrInvalidConfig, ext)
		}
		c = c.WithCommand(ext, cmd.Target, cmd.Command)
	}
	if s.TrackImports {
		c = c.WithIsOutdated(convert.ImportsOutdated(fsys))
	}

	r := register.New(l).WithConverter(c)

	m := manager.New(l, p, r).
		WithDisabledBundles(s.Disabled...).
		WithAllowedBundles(s.Allowed...).
		WithCustomizedBundles(s.Customize)
	if logger != nil {
		m = m.WithLogger(logger)
	}

	return &Pipeline{
		Registry:  registry,
		Loader:    l,
		Publisher: p,
		Converter: c,
		Registrar: r,
		Manager:   m,
	}, nil
}

// Open loads the settings from v and builds the pipeline.
func Open(fsys fs.FileSystem, v *viper.Viper, logger Logger) (*Settings, *Pipeline, error) {
	s, err := Load(fsys, v)
	if err != nil {
		return nil, nil, err
	}
	p, err := s.Build(fsys, logger)
	if err != nil {
		return nil, nil, err
	}
	return s, p, nil
}
