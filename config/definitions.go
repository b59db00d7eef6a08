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
	"bytes"
	"errors"
	"fmt"
	iofs "io/fs"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"bennypowers.dev/satchel/bundle"
	"bennypowers.dev/satchel/fs"
)

// Definition is a bundle declared in a definition file.
type Definition struct {
	Name   string
	Bundle *bundle.Bundle
}

// ParseDefinitions decodes a definition file: a mapping of bundle name to
// bundle, in YAML, JSON or JSON with comments. Unknown bundle fields are
// errors. Definitions keep their file order.
func ParseDefinitions(path string, data []byte) ([]Definition, error) {
	var doc yaml.Node
	if err := decodeFile(path, data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", bundle.ErrInvalidConfig, path, err)
	}
	if doc.Kind == 0 {
		return nil, nil
	}
	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: %s: bundle definitions must be a mapping of name to bundle", bundle.ErrInvalidConfig, path)
	}

	defs := make([]Definition, 0, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		name := root.Content[i].Value
		b, err := decodeBundle(root.Content[i+1])
		if err != nil {
			return nil, fmt.Errorf("%s: bundle %q: %w", path, name, err)
		}
		b.Name = name
		defs = append(defs, Definition{Name: name, Bundle: b})
	}
	return defs, nil
}

// decodeBundle decodes one bundle strictly. Node.Decode cannot reject
// unknown fields, so the node is re-encoded for a strict decoder.
func decodeBundle(node *yaml.Node) (*bundle.Bundle, error) {
	data, err := yaml.Marshal(node)
	if err != nil {
		return nil, err
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	b := &bundle.Bundle{}
	if err := dec.Decode(b); err != nil {
		if errors.Is(err, bundle.ErrInvalidConfig) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", bundle.ErrInvalidConfig, err)
	}
	return b, nil
}

// LoadDefinitions reads every definition file matched by patterns and
// declares its bundles in registry. Relative patterns are resolved
// against dir. A later definition of a name replaces an earlier one.
func LoadDefinitions(fsys fs.FileSystem, registry *bundle.Registry, dir string, patterns []string) error {
	for _, pattern := range patterns {
		files, err := expand(fsys, dir, pattern)
		if err != nil {
			return err
		}
		for _, file := range files {
			data, err := fsys.ReadFile(file)
			if err != nil {
				return fmt.Errorf("reading bundle definitions: %w", err)
			}
			defs, err := ParseDefinitions(file, data)
			if err != nil {
				return err
			}
			for _, def := range defs {
				registry.Define(def.Name, def.Bundle)
			}
		}
	}
	return nil
}

// expand resolves a path or doublestar pattern to the matching files.
func expand(fsys fs.FileSystem, dir, pattern string) ([]string, error) {
	if !filepath.IsAbs(pattern) {
		pattern = filepath.Join(dir, pattern)
	}
	pattern = filepath.ToSlash(pattern)

	base, rest := doublestar.SplitPattern(pattern)
	if rest == "" || !strings.ContainsAny(rest, "*?[{") {
		if !fsys.Exists(pattern) {
			return nil, fmt.Errorf("%w: bundle definition file %q does not exist", bundle.ErrInvalidConfig, pattern)
		}
		return []string{pattern}, nil
	}

	matches, err := doublestar.Glob(rooted{fsys, base}, rest, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("%w: bundle definition pattern %q: %v", bundle.ErrInvalidConfig, pattern, err)
	}
	files := make([]string, len(matches))
	for i, match := range matches {
		files[i] = path.Join(base, match)
	}
	return files, nil
}

// rooted exposes a directory of a FileSystem as an io/fs.FS.
type rooted struct {
	fs  fs.FileSystem
	dir string
}

func (r rooted) Open(name string) (iofs.File, error) {
	if name == "." {
		return r.fs.Open(r.dir)
	}
	return r.fs.Open(path.Join(r.dir, name))
}
