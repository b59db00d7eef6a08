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
package convert

import (
	_ "embed"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	ts "github.com/tree-sitter/go-tree-sitter"
	tsTypescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"

	"bennypowers.dev/satchel/fs"
)

//go:embed queries/imports.scm
var importsQuery string

var typescript = ts.NewLanguage(tsTypescript.LanguageTypescript())

var parserPool = sync.Pool{
	New: func() any {
		parser := ts.NewParser()
		if err := parser.SetLanguage(typescript); err != nil {
			panic("failed to set TypeScript language: " + err.Error())
		}
		return parser
	},
}

var (
	query     *ts.Query
	queryErr  error
	queryOnce sync.Once
)

func importQuery() (*ts.Query, error) {
	queryOnce.Do(func() {
		q, qerr := ts.NewQuery(typescript, importsQuery)
		if qerr != nil {
			queryErr = fmt.Errorf("failed to parse imports query: %w", qerr)
			return
		}
		query = q
	})
	return query, queryErr
}

// Import is a module specifier found in a script.
type Import struct {
	Specifier string
	Dynamic   bool
	Line      int
}

// ExtractImports parses JavaScript or TypeScript content and returns its
// static, re-exported and dynamic import specifiers in source order.
func ExtractImports(content []byte) ([]Import, error) {
	q, err := importQuery()
	if err != nil {
		return nil, err
	}

	parser := parserPool.Get().(*ts.Parser)
	defer func() {
		parser.Reset()
		parserPool.Put(parser)
	}()

	tree := parser.Parse(content, nil)
	if tree == nil {
		return nil, fmt.Errorf("failed to parse content")
	}
	defer tree.Close()

	cursor := ts.NewQueryCursor()
	defer cursor.Close()

	var imports []Import
	matches := cursor.Matches(q, tree.RootNode(), content)
	captureNames := q.CaptureNames()
	for {
		match := matches.Next()
		if match == nil {
			break
		}
		for _, capture := range match.Captures {
			imp := Import{
				Specifier: capture.Node.Utf8Text(content),
				Line:      int(capture.Node.StartPosition().Row) + 1,
			}
			switch captureNames[capture.Index] {
			case "dynamicImport.spec":
				imp.Dynamic = true
			case "import.spec", "reexport.spec":
			default:
				continue
			}
			imports = append(imports, imp)
		}
	}
	return imports, nil
}

var scriptExtensions = map[string]bool{
	"ts": true, "mts": true, "cts": true,
	"js": true, "mjs": true, "cjs": true,
}

// ImportsOutdated returns a staleness check for script sources: the target
// is outdated when any module the source imports through a relative
// specifier, directly or transitively, changed after the target was built.
// Other source types are never reported outdated.
func ImportsOutdated(fsys fs.FileSystem) IsOutdatedFunc {
	return func(basePath, source, target, sourceExt, targetExt string) bool {
		if !scriptExtensions[sourceExt] {
			return false
		}
		built, err := fs.ModTime(fsys, filepath.Join(basePath, target))
		if err != nil {
			return true
		}
		return importsChangedSince(fsys, filepath.Join(basePath, source), built, make(map[string]bool))
	}
}

func importsChangedSince(fsys fs.FileSystem, file string, since time.Time, seen map[string]bool) bool {
	if seen[file] {
		return false
	}
	seen[file] = true

	content, err := fsys.ReadFile(file)
	if err != nil {
		return false
	}
	imports, err := ExtractImports(content)
	if err != nil {
		return false
	}
	for _, imp := range imports {
		if !strings.HasPrefix(imp.Specifier, "./") && !strings.HasPrefix(imp.Specifier, "../") {
			continue
		}
		dep := resolveImport(fsys, filepath.Join(filepath.Dir(file), filepath.FromSlash(imp.Specifier)))
		if dep == "" {
			continue
		}
		if mtime, err := fs.ModTime(fsys, dep); err == nil && mtime.After(since) {
			return true
		}
		if importsChangedSince(fsys, dep, since, seen) {
			return true
		}
	}
	return false
}

// resolveImport finds the file a relative specifier refers to, trying the
// extension conventions of TypeScript projects.
func resolveImport(fsys fs.FileSystem, path string) string {
	candidates := []string{path}
	switch ext := filepath.Ext(path); ext {
	case ".js", ".mjs", ".cjs":
		stem := strings.TrimSuffix(path, ext)
		candidates = append(candidates, stem+".ts", stem+".mts", stem+".cts")
	case "":
		for _, ext := range []string{".ts", ".mts", ".js", ".mjs"} {
			candidates = append(candidates, path+ext)
		}
		candidates = append(candidates, filepath.Join(path, "index.ts"), filepath.Join(path, "index.js"))
	}
	for _, candidate := range candidates {
		if fs.IsFile(fsys, candidate) {
			return candidate
		}
	}
	return ""
}
