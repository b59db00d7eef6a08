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

// Package export hands resolved bundles to third-party tooling: as JSON,
// as a flat list of source files, or as a webpack entry module.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"bennypowers.dev/satchel/bundle"
	"bennypowers.dev/satchel/fs"
)

// ErrWrite marks a failure to write an export file.
var ErrWrite = errors.New("export write failed")

// Exporter receives every bundle selected for export, dependencies
// before dependents.
type Exporter interface {
	Export(ctx context.Context, bundles []*bundle.Bundle) error
}

// Func adapts a plain function to the Exporter interface.
type Func func(ctx context.Context, bundles []*bundle.Bundle) error

// Export implements Exporter.
func (f Func) Export(ctx context.Context, bundles []*bundle.Bundle) error {
	return f(ctx, bundles)
}

// BundleJSON writes an object keyed by bundle name to a file.
type BundleJSON struct {
	fs   fs.FileSystem
	path string
}

// NewBundleJSON creates an exporter that writes to path.
func NewBundleJSON(fsys fs.FileSystem, path string) *BundleJSON {
	return &BundleJSON{fs: fsys, path: path}
}

// Export implements Exporter.
func (e *BundleJSON) Export(_ context.Context, bundles []*bundle.Bundle) error {
	var buf bytes.Buffer
	buf.WriteString("{")
	for i, b := range bundles {
		if i > 0 {
			buf.WriteString(",")
		}
		key, err := marshal(b.Name)
		if err != nil {
			return err
		}
		value, err := marshal(b)
		if err != nil {
			return fmt.Errorf("encoding bundle %q: %w", b.Name, err)
		}
		buf.Write(key)
		buf.WriteString(":")
		buf.Write(value)
	}
	buf.WriteString("}")

	var out bytes.Buffer
	if err := json.Indent(&out, buf.Bytes(), "", "  "); err != nil {
		return err
	}
	out.WriteString("\n")
	return writeTarget(e.fs, e.path, out.Bytes())
}

// FileList writes a JSON array of the absolute source paths of every
// exportable file.
type FileList struct {
	fs   fs.FileSystem
	path string
}

// NewFileList creates an exporter that writes to path.
func NewFileList(fsys fs.FileSystem, path string) *FileList {
	return &FileList{fs: fsys, path: path}
}

// Export implements Exporter.
func (e *FileList) Export(_ context.Context, bundles []*bundle.Bundle) error {
	files := SourceFiles(bundles)
	if files == nil {
		files = []string{}
	}
	data, err := marshalIndent(files)
	if err != nil {
		return err
	}
	return writeTarget(e.fs, e.path, data)
}

// Webpack writes one import statement per exportable file, to be used as
// a webpack entry module.
type Webpack struct {
	fs   fs.FileSystem
	path string
}

// NewWebpack creates an exporter that writes to path.
func NewWebpack(fsys fs.FileSystem, path string) *Webpack {
	return &Webpack{fs: fsys, path: path}
}

// Export implements Exporter.
func (e *Webpack) Export(_ context.Context, bundles []*bundle.Bundle) error {
	files := SourceFiles(bundles)
	imports := make([]string, len(files))
	for i, file := range files {
		imports[i] = "import '" + strings.ReplaceAll(file, "'", `\'`) + "';"
	}
	return writeTarget(e.fs, e.path, []byte(strings.Join(imports, "\n")))
}

// SourceFiles returns the deduplicated source paths of the exportable
// files of the bundles that have a source directory and are not served
// from a CDN. A bundle's Export list wins over its CSS and JS entries.
func SourceFiles(bundles []*bundle.Bundle) []string {
	var files []string
	for _, b := range bundles {
		if b.CDN || b.SourcePath == "" {
			continue
		}
		names := b.Export
		if len(names) == 0 {
			names = append(b.CSS.URLs(), b.JS.URLs()...)
		}
		for _, name := range names {
			if !isRelative(name) {
				continue
			}
			file := filepath.ToSlash(filepath.Join(fs.Canonical(b.SourcePath), filepath.FromSlash(name)))
			if !slices.Contains(files, file) {
				files = append(files, file)
			}
		}
	}
	return files
}

func isRelative(path string) bool {
	return !strings.HasPrefix(path, "//") && !strings.Contains(path, "://")
}

func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func marshalIndent(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeTarget writes data to path. The directory must already exist.
func writeTarget(fsys fs.FileSystem, path string, data []byte) error {
	dir := filepath.Dir(path)
	if !fs.IsDir(fsys, dir) {
		return fmt.Errorf("%w: export directory %q does not exist", bundle.ErrInvalidConfig, dir)
	}
	if err := fsys.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("%w: writing %q: %w", ErrWrite, path, err)
	}
	return nil
}
