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

package publish

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"bennypowers.dev/satchel/alias"
	"bennypowers.dev/satchel/bundle"
	"bennypowers.dev/satchel/fs"
	"bennypowers.dev/satchel/internal/mapfs"
)

func newSourceFS() *mapfs.MapFileSystem {
	mfs := mapfs.New()
	mfs.AddDir("/public/assets", 0755)
	mfs.AddFile("/src/lib/lib.js", "export const x = 1;", 0644)
	mfs.AddFile("/src/lib/lib.css", ".x{}", 0644)
	mfs.AddFile("/src/lib/img/logo.svg", "<svg/>", 0644)
	mfs.AddFile("/src/lib/docs/README.md", "# lib", 0644)
	mfs.AddDir("/src/lib/empty", 0755)
	return mfs
}

func libBundle() *bundle.Bundle {
	return &bundle.Bundle{Name: "lib", SourcePath: "/src/lib"}
}

func expectedHash(t *testing.T, fsys fs.FileSystem, dir string, link bool) string {
	t.Helper()
	modTime, err := fs.LatestModTime(fsys, dir)
	if err != nil {
		t.Fatalf("LatestModTime: %v", err)
	}
	return CRC32(publicationKey(dir, modTime.Unix(), link))
}

func TestPublishCopy(t *testing.T) {
	mfs := newSourceFS()
	p := New(mfs, "/public/assets", "/assets")

	got, err := p.Publish(libBundle())
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}

	hash := expectedHash(t, mfs, "/src/lib", false)
	want := Published{Path: "/public/assets/" + hash, URL: "/assets/" + hash}
	if got != want {
		t.Errorf("Publish() = %+v, want %+v", got, want)
	}

	for _, file := range []string{"lib.js", "lib.css", "img/logo.svg", "docs/README.md"} {
		if !fs.IsFile(mfs, filepath.Join(got.Path, file)) {
			t.Errorf("expected %s to be copied", file)
		}
	}
	if mfs.Exists(filepath.Join(got.Path, "empty")) {
		t.Error("empty directories should not be copied")
	}
}

func TestPublishIdempotent(t *testing.T) {
	mfs := newSourceFS()
	p := New(mfs, "/public/assets", "/assets")

	first, err := p.Publish(libBundle())
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}

	// a newer file would change the hash, but the cached result stands
	mfs.AddFile("/src/lib/new.js", "new", 0644)
	mfs.SetModTime("/src/lib/new.js", time.Now())

	second, err := p.Publish(libBundle())
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if first != second {
		t.Errorf("second Publish() = %+v, want %+v", second, first)
	}
	if fs.IsFile(mfs, filepath.Join(first.Path, "new.js")) {
		t.Error("second Publish should not copy again")
	}

	if got := p.PublishedPath("/src/lib"); got != first.Path {
		t.Errorf("PublishedPath() = %q, want %q", got, first.Path)
	}
	if got := p.PublishedURL("/src/lib"); got != first.URL {
		t.Errorf("PublishedURL() = %q, want %q", got, first.URL)
	}

	p.Invalidate("/src/lib")
	third, err := p.Publish(libBundle())
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if third == first {
		t.Error("Publish after Invalidate should pick up the newer tree")
	}
}

func TestPublishConcurrentSingleFlight(t *testing.T) {
	mfs := newSourceFS()
	var calls atomic.Int32
	p := New(mfs, "/public/assets", "/assets").WithHashCallback(func(string) string {
		calls.Add(1)
		return "fixed"
	})

	var wg sync.WaitGroup
	results := make([]Published, 16)
	for i := range results {
		wg.Go(func() {
			published, err := p.Publish(libBundle())
			if err != nil {
				t.Errorf("Publish: %v", err)
			}
			results[i] = published
		})
	}
	wg.Wait()

	if n := calls.Load(); n != 1 {
		t.Errorf("hash callback ran %d times, want 1", n)
	}
	for _, r := range results {
		if r.Path != "/public/assets/fixed" {
			t.Errorf("result path = %q", r.Path)
		}
	}
}

func TestPublishCanonicalSource(t *testing.T) {
	mfs := newSourceFS()
	p := New(mfs, "/public/assets", "/assets").WithAliases(alias.NewMap(map[string]string{"@src": "/src/"}))

	want, err := p.Publish(libBundle())
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	hash := expectedHash(t, mfs, "/src/lib", false)
	if want.Path != "/public/assets/"+hash {
		t.Errorf("Publish() = %+v, want hash of /src/lib", want)
	}

	for _, source := range []string{"/src/lib/", "/src/./lib", "/src/other/../lib", "@src/lib/"} {
		t.Run(source, func(t *testing.T) {
			got, err := p.Publish(&bundle.Bundle{Name: "lib", SourcePath: source})
			if err != nil {
				t.Fatalf("Publish: %v", err)
			}
			if got != want {
				t.Errorf("Publish(%q) = %+v, want %+v", source, got, want)
			}
			if path := p.PublishedPath(source); path != want.Path {
				t.Errorf("PublishedPath(%q) = %q, want %q", source, path, want.Path)
			}
		})
	}

	p.Invalidate("/src/./lib/")
	if _, ok := p.Published("/src/lib"); ok {
		t.Error("Invalidate should forget every spelling of the source")
	}
}

func TestPublishRelativeSourceOS(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "src"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "src", "app.js"), []byte("app"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Chdir(root)

	p := New(fs.NewOSFileSystem(), filepath.Join(root, "public"), "/assets")
	relative, err := p.Publish(&bundle.Bundle{Name: "app", SourcePath: "src"})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	absolute, err := p.Publish(&bundle.Bundle{Name: "app", SourcePath: filepath.Join(root, "src")})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if relative != absolute {
		t.Errorf("relative %+v and absolute %+v spellings published apart", relative, absolute)
	}
	entries, err := os.ReadDir(filepath.Join(root, "public"))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("published %d directories, want 1", len(entries))
	}
}

func TestPublishForceCopy(t *testing.T) {
	mfs := newSourceFS()
	p := New(mfs, "/public/assets", "/assets").WithHashCallback(func(string) string { return "h" })

	// a stale file already sits at the target
	mfs.AddFile("/public/assets/h/lib.js", "stale", 0644)

	if _, err := p.Publish(libBundle()); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	data, _ := mfs.ReadFile("/public/assets/h/lib.js")
	if string(data) != "stale" {
		t.Errorf("existing target should be kept without forceCopy, got %q", data)
	}

	force := true
	b := libBundle()
	b.PublishOptions.ForceCopy = &force
	p.Invalidate("/src/lib")
	if _, err := p.Publish(b); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	data, _ = mfs.ReadFile("/public/assets/h/lib.js")
	if string(data) != "export const x = 1;" {
		t.Errorf("forceCopy should overwrite the target, got %q", data)
	}

	// the bundle can veto the publisher default
	mfs.AddFile("/public/assets/h/lib.js", "stale", 0644)
	noForce := false
	b.PublishOptions.ForceCopy = &noForce
	if _, err := p.WithForceCopy(true).Publish(b); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	data, _ = mfs.ReadFile("/public/assets/h/lib.js")
	if string(data) != "stale" {
		t.Errorf("bundle forceCopy=false should win, got %q", data)
	}
}

func TestPublishFilters(t *testing.T) {
	tests := []struct {
		name    string
		only    []string
		except  []string
		present []string
		absent  []string
	}{
		{
			name:    "only",
			only:    []string{"*.js", "img/**"},
			present: []string{"lib.js", "img/logo.svg"},
			absent:  []string{"lib.css", "docs/README.md"},
		},
		{
			name:    "except directory",
			except:  []string{"docs"},
			present: []string{"lib.js", "lib.css", "img/logo.svg"},
			absent:  []string{"docs/README.md"},
		},
		{
			name:    "except wins over only",
			only:    []string{"**/*"},
			except:  []string{"*.css"},
			present: []string{"lib.js", "docs/README.md"},
			absent:  []string{"lib.css"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mfs := newSourceFS()
			p := New(mfs, "/public/assets", "/assets")
			b := libBundle()
			b.PublishOptions.Only = tt.only
			b.PublishOptions.Except = tt.except

			got, err := p.Publish(b)
			if err != nil {
				t.Fatalf("Publish: %v", err)
			}
			for _, f := range tt.present {
				if !fs.IsFile(mfs, filepath.Join(got.Path, f)) {
					t.Errorf("expected %s to be published", f)
				}
			}
			for _, f := range tt.absent {
				if mfs.Exists(filepath.Join(got.Path, f)) {
					t.Errorf("expected %s to be filtered out", f)
				}
			}
		})
	}
}

func TestPublishErrors(t *testing.T) {
	tests := []struct {
		name    string
		p       func(fs.FileSystem) *Publisher
		b       *bundle.Bundle
		wantErr error
	}{
		{
			name:    "missing source",
			p:       func(f fs.FileSystem) *Publisher { return New(f, "/public/assets", "/assets") },
			b:       &bundle.Bundle{Name: "gone", SourcePath: "/src/gone"},
			wantErr: bundle.ErrInvalidConfig,
		},
		{
			name:    "no source path",
			p:       func(f fs.FileSystem) *Publisher { return New(f, "/public/assets", "/assets") },
			b:       &bundle.Bundle{Name: "bare"},
			wantErr: bundle.ErrInvalidConfig,
		},
		{
			name:    "no base path",
			p:       func(f fs.FileSystem) *Publisher { return New(f, "", "/assets") },
			b:       libBundle(),
			wantErr: bundle.ErrInvalidConfig,
		},
		{
			name:    "no base url",
			p:       func(f fs.FileSystem) *Publisher { return New(f, "/public/assets", "") },
			b:       libBundle(),
			wantErr: bundle.ErrInvalidConfig,
		},
		{
			name: "unknown encoding",
			p:    func(f fs.FileSystem) *Publisher { return New(f, "/public/assets", "/assets") },
			b: &bundle.Bundle{Name: "lib", SourcePath: "/src/lib", PublishOptions: bundle.PublishOptions{
				Precompress: []string{"brotli"},
			}},
			wantErr: bundle.ErrInvalidConfig,
		},
		{
			name: "invalid pattern",
			p:    func(f fs.FileSystem) *Publisher { return New(f, "/public/assets", "/assets") },
			b: &bundle.Bundle{Name: "lib", SourcePath: "/src/lib", PublishOptions: bundle.PublishOptions{
				Only: []string{"[a-"},
			}},
			wantErr: bundle.ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.p(newSourceFS()).Publish(tt.b)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestPublishFile(t *testing.T) {
	mfs := newSourceFS()
	p := New(mfs, "/public/assets", "/assets")

	got, err := p.Publish(&bundle.Bundle{Name: "single", SourcePath: "/src/lib/lib.js"})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if got.Path != "/public/assets/"+expectedHash(t, mfs, "/src/lib", false) {
		t.Errorf("Path = %q", got.Path)
	}
	if !fs.IsFile(mfs, filepath.Join(got.Path, "lib.js")) {
		t.Error("file source should be copied into the target directory")
	}
	if mfs.Exists(filepath.Join(got.Path, "lib.css")) {
		t.Error("siblings of a file source should not be published")
	}
}

func TestPublishPrecompress(t *testing.T) {
	mfs := newSourceFS()
	p := New(mfs, "/public/assets", "/assets")
	b := libBundle()
	b.PublishOptions.Precompress = []string{Gzip, Zstd}

	got, err := p.Publish(b)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}

	gz, err := mfs.ReadFile(filepath.Join(got.Path, "lib.js.gz"))
	if err != nil {
		t.Fatalf("reading gzip sibling: %v", err)
	}
	r, err := gzip.NewReader(bytes.NewReader(gz))
	if err != nil {
		t.Fatalf("gzip.NewReader: %v", err)
	}
	plain, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("reading gzip: %v", err)
	}
	if string(plain) != "export const x = 1;" {
		t.Errorf("gunzipped = %q", plain)
	}

	zst, err := mfs.ReadFile(filepath.Join(got.Path, "img/logo.svg.zst"))
	if err != nil {
		t.Fatalf("reading zstd sibling: %v", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		t.Fatalf("zstd.NewReader: %v", err)
	}
	defer dec.Close()
	plain, err = dec.DecodeAll(zst, nil)
	if err != nil {
		t.Fatalf("decoding zstd: %v", err)
	}
	if string(plain) != "<svg/>" {
		t.Errorf("decoded = %q", plain)
	}

	if mfs.Exists(filepath.Join(got.Path, "docs/README.md.gz")) {
		t.Error("markdown should not be precompressed")
	}
}

func TestHashers(t *testing.T) {
	key := publicationKey("/src/lib", 1700000000, false)
	if key != "/src/lib1700000000|" {
		t.Errorf("publicationKey() = %q", key)
	}
	if linked := publicationKey("/src/lib", 1700000000, true); linked != "/src/lib1700000000|1" {
		t.Errorf("publicationKey(link) = %q", linked)
	}

	if got, want := CRC32("hello"), "3610a686"; got != want {
		t.Errorf("CRC32() = %q, want %q", got, want)
	}

	first := BLAKE3(key)
	if len(first) != 16 {
		t.Errorf("BLAKE3() length = %d, want 16", len(first))
	}
	if BLAKE3(key) != first {
		t.Error("BLAKE3 should be stable")
	}
	if BLAKE3(key+"x") == first {
		t.Error("BLAKE3 should depend on the key")
	}

	if _, err := HasherByName("md5"); !errors.Is(err, bundle.ErrInvalidConfig) {
		t.Errorf("HasherByName(md5) err = %v", err)
	}
	mfs := newSourceFS()
	h, err := HasherByName("blake3")
	if err != nil {
		t.Fatalf("HasherByName: %v", err)
	}
	got, err := New(mfs, "/public/assets", "/assets").WithHasher(h).Publish(libBundle())
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	modTime, _ := fs.LatestModTime(mfs, "/src/lib")
	if want := "/public/assets/" + BLAKE3(publicationKey("/src/lib", modTime.Unix(), false)); got.Path != want {
		t.Errorf("Path = %q, want %q", got.Path, want)
	}
}

func TestPublishLinkMapFS(t *testing.T) {
	mfs := newSourceFS()
	p := New(mfs, "/public/assets", "/assets").WithLinkAssets(true)

	got, err := p.Publish(libBundle())
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if got.Path != "/public/assets/"+expectedHash(t, mfs, "/src/lib", true) {
		t.Errorf("Path = %q", got.Path)
	}
	target, err := mfs.Readlink(got.Path)
	if err != nil {
		t.Fatalf("Readlink: %v", err)
	}
	if target != "/src/lib" {
		t.Errorf("link target = %q, want /src/lib", target)
	}
}

func TestPublishLinkRace(t *testing.T) {
	mfs := newSourceFS()
	p := New(mfs, "/public/assets", "/assets").
		WithLinkAssets(true).
		WithHashCallback(func(string) string { return "h" })

	// another process published first
	if err := mfs.Symlink("/src/lib", "/public/assets/h"); err != nil {
		t.Fatalf("Symlink: %v", err)
	}
	if _, err := p.Publish(libBundle()); err != nil {
		t.Errorf("Publish should tolerate an existing link: %v", err)
	}
}

func TestPublishLinkOS(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "src")
	public := filepath.Join(root, "public")
	if err := os.MkdirAll(src, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(public, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "app.js"), []byte("app"), 0o644); err != nil {
		t.Fatal(err)
	}

	p := New(fs.NewOSFileSystem(), public, "/assets").WithLinkAssets(true)
	got, err := p.Publish(&bundle.Bundle{Name: "app", SourcePath: src})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(got.Path, "app.js"))
	if err != nil {
		t.Fatalf("reading through link: %v", err)
	}
	if string(data) != "app" {
		t.Errorf("content = %q", data)
	}
	info, err := os.Lstat(got.Path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode()&os.ModeSymlink == 0 {
		t.Error("published path should be a symlink")
	}
}

func TestPublishCopyModesOS(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "src")
	public := filepath.Join(root, "public")
	if err := os.MkdirAll(filepath.Join(src, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(public, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "sub", "a.css"), []byte("a"), 0o600); err != nil {
		t.Fatal(err)
	}

	p := New(fs.NewOSFileSystem(), public, "/assets").WithModes(0o750, 0o640)
	got, err := p.Publish(&bundle.Bundle{Name: "app", SourcePath: src})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	info, err := os.Stat(filepath.Join(got.Path, "sub", "a.css"))
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o640 {
		t.Errorf("file mode = %o, want 640", info.Mode().Perm())
	}
	info, err = os.Stat(filepath.Join(got.Path, "sub"))
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o750 {
		t.Errorf("dir mode = %o, want 750", info.Mode().Perm())
	}
}
