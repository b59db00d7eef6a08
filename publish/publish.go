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

// Package publish materializes bundle source directories below the public
// base path, either by copying them or by linking to them.
package publish

import (
	"cmp"
	"fmt"
	iofs "io/fs"
	"path/filepath"
	"strings"

	"bennypowers.dev/satchel/alias"
	"bennypowers.dev/satchel/bundle"
	"bennypowers.dev/satchel/fs"
)

// Default permission bits for published directories and files.
const (
	DefaultDirMode  iofs.FileMode = 0o755
	DefaultFileMode iofs.FileMode = 0o644
)

// Logger receives debug output about publications.
// *log.Logger from charmbracelet/log satisfies it.
type Logger interface {
	Debug(msg any, keyvals ...any)
}

// Published locates a published source directory.
type Published struct {
	Path string `json:"path"`
	URL  string `json:"url"`
}

// Publisher publishes bundle sources. Each distinct source path is
// published at most once per Publisher, even under concurrent callers.
type Publisher struct {
	fs           fs.FileSystem
	aliases      alias.Resolver
	basePath     string
	baseURL      string
	linkAssets   bool
	forceCopy    bool
	dirMode      iofs.FileMode
	fileMode     iofs.FileMode
	hasher       Hasher
	hashCallback HashCallback
	cache        Cache
	logger       Logger
}

// New creates a Publisher that copies sources below basePath, served at
// baseURL.
func New(fsys fs.FileSystem, basePath, baseURL string) *Publisher {
	return &Publisher{
		fs:       fsys,
		aliases:  alias.Identity,
		basePath: basePath,
		baseURL:  baseURL,
		dirMode:  DefaultDirMode,
		fileMode: DefaultFileMode,
		hasher:   CRC32,
		cache:    NewMemoryCache(),
	}
}

// clone copies the configuration. The copy starts with an empty cache,
// since publications made under one configuration do not hold for another.
func (p *Publisher) clone() *Publisher {
	clone := *p
	clone.cache = NewMemoryCache()
	return &clone
}

// WithAliases returns a new Publisher that resolves path aliases with r.
func (p *Publisher) WithAliases(r alias.Resolver) *Publisher {
	clone := p.clone()
	clone.aliases = r
	return clone
}

// WithLinkAssets returns a new Publisher that symlinks sources instead of
// copying them.
func (p *Publisher) WithLinkAssets(link bool) *Publisher {
	clone := p.clone()
	clone.linkAssets = link
	return clone
}

// WithForceCopy returns a new Publisher that copies sources even when the
// target directory exists. Bundles may override it with
// publishOptions.forceCopy.
func (p *Publisher) WithForceCopy(force bool) *Publisher {
	clone := p.clone()
	clone.forceCopy = force
	return clone
}

// WithModes returns a new Publisher that applies dirMode and fileMode to
// copied directories and files.
func (p *Publisher) WithModes(dirMode, fileMode iofs.FileMode) *Publisher {
	clone := p.clone()
	clone.dirMode = dirMode
	clone.fileMode = fileMode
	return clone
}

// WithHasher returns a new Publisher that names target directories with h.
func (p *Publisher) WithHasher(h Hasher) *Publisher {
	clone := p.clone()
	clone.hasher = h
	return clone
}

// WithHashCallback returns a new Publisher that names target directories
// with f, called with the resolved source path.
func (p *Publisher) WithHashCallback(f HashCallback) *Publisher {
	clone := p.clone()
	clone.hashCallback = f
	return clone
}

// WithCache returns a new Publisher backed by c.
func (p *Publisher) WithCache(c Cache) *Publisher {
	clone := *p
	clone.cache = c
	return &clone
}

// WithLogger returns a new Publisher that logs to logger.
func (p *Publisher) WithLogger(logger Logger) *Publisher {
	clone := *p
	clone.logger = logger
	return &clone
}

// LinkAssets reports whether sources are symlinked.
func (p *Publisher) LinkAssets() bool { return p.linkAssets }

// Publish materializes the source of b and returns its location. Repeated
// calls for the same source path return the first result.
func (p *Publisher) Publish(b *bundle.Bundle) (Published, error) {
	if b.SourcePath == "" {
		return Published{}, fmt.Errorf("%w: bundle %q has no source path", bundle.ErrInvalidConfig, b.Name)
	}
	basePath := p.aliases.Resolve(cmp.Or(b.BasePath, p.basePath))
	if basePath == "" {
		return Published{}, fmt.Errorf("%w: bundle %q: publish base path is not set", bundle.ErrInvalidConfig, b.Name)
	}
	baseURL := p.aliases.Resolve(cmp.Or(b.BaseURL, p.baseURL))
	if baseURL == "" {
		return Published{}, fmt.Errorf("%w: bundle %q: publish base URL is not set", bundle.ErrInvalidConfig, b.Name)
	}

	source := p.source(b.SourcePath)
	return p.cache.GetOrLoad(source, func() (Published, error) {
		return p.publish(b, source, basePath, baseURL)
	})
}

// Published returns the location of an already published source path.
func (p *Publisher) Published(sourcePath string) (Published, bool) {
	return p.cache.Get(p.source(sourcePath))
}

// PublishedPath returns the published directory of sourcePath, or "".
func (p *Publisher) PublishedPath(sourcePath string) string {
	published, _ := p.Published(sourcePath)
	return published.Path
}

// PublishedURL returns the published URL of sourcePath, or "".
func (p *Publisher) PublishedURL(sourcePath string) string {
	published, _ := p.Published(sourcePath)
	return published.URL
}

// Invalidate forgets the publication of sourcePath.
func (p *Publisher) Invalidate(sourcePath string) {
	p.cache.Invalidate(p.source(sourcePath))
}

// source resolves aliases and canonicalizes a source path. Publications
// are keyed and hashed by the result.
func (p *Publisher) source(sourcePath string) string {
	return fs.Canonical(p.aliases.Resolve(sourcePath))
}

func (p *Publisher) publish(b *bundle.Bundle, source, basePath, baseURL string) (Published, error) {
	info, err := p.fs.Stat(source)
	if err != nil {
		return Published{}, fmt.Errorf("%w: bundle %q: source %q does not exist", bundle.ErrInvalidConfig, b.Name, source)
	}
	if err := checkCompressors(b.PublishOptions.Precompress); err != nil {
		return Published{}, fmt.Errorf("bundle %q: %w", b.Name, err)
	}

	dir := source
	if !info.IsDir() {
		dir = filepath.Dir(source)
	}
	hash, err := p.hash(dir)
	if err != nil {
		return Published{}, err
	}

	published := Published{
		Path: filepath.Join(basePath, hash),
		URL:  strings.TrimRight(baseURL, "/") + "/" + hash,
	}

	switch {
	case p.linkAssets:
		err = p.link(source, published.Path, info.IsDir())
	case info.IsDir():
		err = p.copyDir(b, source, published.Path)
	default:
		err = p.copyFile(b, source, published.Path)
	}
	if err != nil {
		return Published{}, fmt.Errorf("bundle %q: %w", b.Name, err)
	}

	if p.logger != nil {
		p.logger.Debug("Published", "bundle", b.Name, "source", source, "path", published.Path, "url", published.URL)
	}
	return published, nil
}

func (p *Publisher) hash(dir string) (string, error) {
	if p.hashCallback != nil {
		return p.hashCallback(dir), nil
	}
	modTime, err := fs.LatestModTime(p.fs, dir)
	if err != nil {
		return "", fmt.Errorf("reading modification time of %q: %w", dir, err)
	}
	return p.hasher(publicationKey(dir, modTime.Unix(), p.linkAssets)), nil
}

// link points target at source. A concurrent publisher may create the
// link first; that is not an error.
func (p *Publisher) link(source, target string, isDir bool) error {
	if !isDir {
		target = filepath.Join(target, filepath.Base(source))
	}
	if p.fs.Exists(target) {
		return nil
	}
	if err := p.fs.MkdirAll(filepath.Dir(target), p.dirMode); err != nil {
		return fmt.Errorf("creating %q: %w", filepath.Dir(target), err)
	}
	if err := p.fs.Symlink(source, target); err != nil {
		if p.fs.Exists(target) {
			return nil
		}
		return fmt.Errorf("linking %q to %q: %w", target, source, err)
	}
	return nil
}

func (p *Publisher) shouldCopy(b *bundle.Bundle, target string) bool {
	force := p.forceCopy
	if b.PublishOptions.ForceCopy != nil {
		force = *b.PublishOptions.ForceCopy
	}
	return force || !p.fs.Exists(target)
}

func (p *Publisher) copyDir(b *bundle.Bundle, source, target string) error {
	if !p.shouldCopy(b, target) {
		return nil
	}
	filter, err := newFilter(b.PublishOptions.Only, b.PublishOptions.Except)
	if err != nil {
		return err
	}
	written, err := p.copyTree(source, target, "", filter)
	if err != nil {
		return err
	}
	return p.precompress(written, b.PublishOptions.Precompress)
}

// copyFile publishes a single file into the target directory.
func (p *Publisher) copyFile(b *bundle.Bundle, source, target string) error {
	dst := filepath.Join(target, filepath.Base(source))
	if !p.shouldCopy(b, dst) {
		return nil
	}
	if err := p.mkdir(target); err != nil {
		return err
	}
	if err := p.writeCopy(source, dst); err != nil {
		return err
	}
	return p.precompress([]string{dst}, b.PublishOptions.Precompress)
}

// copyTree copies the files of src below dst and returns the written
// paths. Directories are created only when they receive a file.
func (p *Publisher) copyTree(src, dst, rel string, filter *filter) ([]string, error) {
	entries, err := p.fs.ReadDir(src)
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", src, err)
	}

	var written []string
	for _, entry := range entries {
		childRel := entry.Name()
		if rel != "" {
			childRel = rel + "/" + entry.Name()
		}
		from := filepath.Join(src, entry.Name())
		to := filepath.Join(dst, entry.Name())

		if entry.IsDir() {
			if !filter.includeDir(childRel) {
				continue
			}
			files, err := p.copyTree(from, to, childRel, filter)
			if err != nil {
				return nil, err
			}
			written = append(written, files...)
			continue
		}

		if !filter.includeFile(childRel) {
			continue
		}
		if err := p.mkdir(dst); err != nil {
			return nil, err
		}
		if err := p.writeCopy(from, to); err != nil {
			return nil, err
		}
		written = append(written, to)
	}
	return written, nil
}

func (p *Publisher) mkdir(dir string) error {
	if p.fs.Exists(dir) {
		return nil
	}
	if err := p.fs.MkdirAll(dir, p.dirMode); err != nil {
		return fmt.Errorf("creating %q: %w", dir, err)
	}
	if err := p.fs.Chmod(dir, p.dirMode); err != nil {
		return fmt.Errorf("setting mode of %q: %w", dir, err)
	}
	return nil
}

func (p *Publisher) writeCopy(from, to string) error {
	data, err := p.fs.ReadFile(from)
	if err != nil {
		return fmt.Errorf("reading %q: %w", from, err)
	}
	if err := p.fs.WriteFile(to, data, p.fileMode); err != nil {
		return fmt.Errorf("writing %q: %w", to, err)
	}
	if err := p.fs.Chmod(to, p.fileMode); err != nil {
		return fmt.Errorf("setting mode of %q: %w", to, err)
	}
	return nil
}
