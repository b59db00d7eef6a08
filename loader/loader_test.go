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

package loader

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"bennypowers.dev/satchel/alias"
	"bennypowers.dev/satchel/bundle"
	"bennypowers.dev/satchel/internal/mapfs"
)

func newTestLoader(t *testing.T) (*Loader, *mapfs.MapFileSystem) {
	t.Helper()
	mfs := mapfs.New()
	mfs.AddFile("/app/public/css/site.css", "body{}", 0644)
	mfs.AddFile("/app/public/js/app.js", "init()", 0644)
	mfs.AddFile("/app/vendor/jquery/dist/jquery.js", "jq", 0644)

	registry := bundle.NewRegistry()
	registry.Define("site", &bundle.Bundle{
		CSS: bundle.Entries{{URL: "css/site.css"}},
		JS:  bundle.Entries{{URL: "js/app.js"}},
	})
	registry.Define("jquery", &bundle.Bundle{
		SourcePath: "@vendor/jquery/dist",
		JS:         bundle.Entries{{URL: "jquery.js"}},
	})
	registry.Define("lit", &bundle.Bundle{
		Provider: "esm.sh",
		Version:  "3.0.0",
		JS:       bundle.Entries{{URL: "index.js"}},
	})

	l := New(mfs, registry).
		WithAliases(alias.NewMap(map[string]string{
			"@root":   "/app",
			"@public": "@root/public",
			"@vendor": "@root/vendor",
		})).
		WithBasePath("@public").
		WithBaseURL("/assets")
	return l, mfs
}

func TestLoadBundle(t *testing.T) {
	l, _ := newTestLoader(t)

	b, err := l.LoadBundle("site", nil)
	if err != nil {
		t.Fatalf("LoadBundle: %v", err)
	}
	if b.Name != "site" {
		t.Errorf("Name = %q, want site", b.Name)
	}
	if b.BasePath != "/app/public" {
		t.Errorf("BasePath = %q, want /app/public", b.BasePath)
	}
	if b.BaseURL != "/assets" {
		t.Errorf("BaseURL = %q, want /assets", b.BaseURL)
	}

	b, err = l.LoadBundle("jquery", nil)
	if err != nil {
		t.Fatalf("LoadBundle: %v", err)
	}
	if b.SourcePath != "/app/vendor/jquery/dist" {
		t.Errorf("SourcePath = %q, want /app/vendor/jquery/dist", b.SourcePath)
	}
}

func TestLoadBundleCanonicalSourcePath(t *testing.T) {
	l, _ := newTestLoader(t)
	l.Registry().Define("relative", &bundle.Bundle{SourcePath: "./vendor/../vendor/jquery/"})

	b, err := l.LoadBundle("relative", nil)
	if err != nil {
		t.Fatalf("LoadBundle: %v", err)
	}
	want, err := filepath.Abs("vendor/jquery")
	if err != nil {
		t.Fatal(err)
	}
	if b.SourcePath != want {
		t.Errorf("SourcePath = %q, want %q", b.SourcePath, want)
	}
}

func TestLoadBundleOverride(t *testing.T) {
	l, _ := newTestLoader(t)

	b, err := l.LoadBundle("site", bundle.Override{"baseUrl": "https://static.example.com"})
	if err != nil {
		t.Fatalf("LoadBundle: %v", err)
	}
	if b.BaseURL != "https://static.example.com" {
		t.Errorf("BaseURL = %q, want override", b.BaseURL)
	}

	// the template is not modified
	b, err = l.LoadBundle("site", nil)
	if err != nil {
		t.Fatalf("LoadBundle: %v", err)
	}
	if b.BaseURL != "/assets" {
		t.Errorf("BaseURL = %q after override, want /assets", b.BaseURL)
	}
}

func TestLoadBundleCDNProvider(t *testing.T) {
	l, _ := newTestLoader(t)

	b, err := l.LoadBundle("lit", nil)
	if err != nil {
		t.Fatalf("LoadBundle: %v", err)
	}
	if !b.CDN {
		t.Error("provider bundle should be CDN")
	}
	if b.BaseURL != "https://esm.sh/lit@3.0.0" {
		t.Errorf("BaseURL = %q", b.BaseURL)
	}
	if b.BasePath != "" {
		t.Errorf("CDN bundle should not inherit the base path, got %q", b.BasePath)
	}
}

func TestLoadBundleDefaultProvider(t *testing.T) {
	l, _ := newTestLoader(t)
	l.Registry().Define("preact", &bundle.Bundle{Package: "preact", Version: "10.19.3"})

	b, err := l.LoadBundle("preact", nil)
	if err != nil {
		t.Fatalf("LoadBundle: %v", err)
	}
	if !b.CDN {
		t.Error("package bundle should be CDN")
	}
	if b.BaseURL != "https://cdn.jsdelivr.net/npm/preact@10.19.3" {
		t.Errorf("BaseURL = %q", b.BaseURL)
	}
}

func TestLoadBundleErrors(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(r *bundle.Registry, l *Loader) *Loader
		bundle  string
		wantErr error
		wantMsg string
	}{
		{
			name:    "unknown bundle",
			setup:   func(_ *bundle.Registry, l *Loader) *Loader { return l },
			bundle:  "missing",
			wantErr: bundle.ErrUnknownBundle,
		},
		{
			name: "no base path",
			setup: func(r *bundle.Registry, l *Loader) *Loader {
				r.Define("bare", &bundle.Bundle{})
				return l.WithBasePath("")
			},
			bundle:  "bare",
			wantErr: bundle.ErrInvalidConfig,
			wantMsg: "base path",
		},
		{
			name: "no base url",
			setup: func(r *bundle.Registry, l *Loader) *Loader {
				r.Define("bare", &bundle.Bundle{})
				return l.WithBaseURL("")
			},
			bundle:  "bare",
			wantErr: bundle.ErrInvalidConfig,
			wantMsg: "base URL",
		},
		{
			name: "unknown provider",
			setup: func(r *bundle.Registry, l *Loader) *Loader {
				r.Define("bad", &bundle.Bundle{Provider: "nowhere"})
				return l
			},
			bundle:  "bad",
			wantErr: bundle.ErrInvalidConfig,
			wantMsg: "nowhere",
		},
		{
			name: "integer option key",
			setup: func(r *bundle.Registry, l *Loader) *Loader {
				r.Define("opts", &bundle.Bundle{})
				return l.WithJSDefaultOptions(bundle.Options{"0": "x"})
			},
			bundle:  "opts",
			wantErr: bundle.ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, _ := newTestLoader(t)
			l = tt.setup(l.Registry(), l)
			_, err := l.LoadBundle(tt.bundle, nil)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if tt.wantMsg != "" && !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("err = %q, want it to mention %q", err, tt.wantMsg)
			}
		})
	}
}

func TestLoadBundleDefaultOptions(t *testing.T) {
	l, _ := newTestLoader(t)
	l.Registry().Define("deferred", &bundle.Bundle{
		JSOptions: bundle.Options{"defer": true},
		CSS:       bundle.Entries{{URL: "css/site.css"}},
	})
	l = l.
		WithJSDefaultOptions(bundle.Options{"defer": false, "crossorigin": "anonymous"}).
		WithCSSDefaultOptions(bundle.Options{"media": "screen"})

	b, err := l.LoadBundle("deferred", nil)
	if err != nil {
		t.Fatalf("LoadBundle: %v", err)
	}
	if b.JSOptions["defer"] != true {
		t.Errorf("bundle option should win, got defer=%v", b.JSOptions["defer"])
	}
	if b.JSOptions["crossorigin"] != "anonymous" {
		t.Errorf("default option missing, got %v", b.JSOptions)
	}
	if b.CSSOptions["media"] != "screen" {
		t.Errorf("css default missing, got %v", b.CSSOptions)
	}
}

func TestAssetURL(t *testing.T) {
	l, _ := newTestLoader(t)
	site, err := l.LoadBundle("site", nil)
	if err != nil {
		t.Fatalf("LoadBundle: %v", err)
	}

	tests := []struct {
		name  string
		b     *bundle.Bundle
		asset string
		want  string
	}{
		{"local file", site, "css/site.css", "/assets/css/site.css"},
		{"absolute url", site, "https://example.com/x.js", "https://example.com/x.js"},
		{"protocol relative", site, "//example.com/x.js", "//example.com/x.js"},
		{"root relative", site, "/static/x.js", "/static/x.js"},
		{"cdn without base url", &bundle.Bundle{Name: "c", CDN: true}, "https://cdn.example.com/x.js", "https://cdn.example.com/x.js"},
		{"cdn with base url", &bundle.Bundle{Name: "c", CDN: true, BaseURL: "https://cdn.example.com"}, "x.js", "https://cdn.example.com/x.js"},
		{"cdn with base url and absolute path", &bundle.Bundle{Name: "c", CDN: true, BaseURL: "https://cdn.example.com"}, "/x.js", "https://cdn.example.com//x.js"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := l.AssetURL(tt.b, tt.asset)
			if err != nil {
				t.Fatalf("AssetURL: %v", err)
			}
			if got != tt.want {
				t.Errorf("AssetURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAssetURLWithoutBase(t *testing.T) {
	l := New(mapfs.New(), bundle.NewRegistry())
	b := &bundle.Bundle{Name: "bare"}

	for _, asset := range []string{"//cdn.example.com/x.js", "https://cdn.example.com/x.js", "/static/x.js"} {
		got, err := l.AssetURL(b, asset)
		if err != nil {
			t.Errorf("AssetURL(%q): %v", asset, err)
			continue
		}
		if got != asset {
			t.Errorf("AssetURL(%q) = %q, want unchanged", asset, got)
		}
	}

	if _, err := l.AssetURL(b, "js/x.js"); !errors.Is(err, bundle.ErrInvalidConfig) {
		t.Errorf("relative asset: err = %v, want ErrInvalidConfig", err)
	}
}

func TestAssetURLMissingFile(t *testing.T) {
	l, _ := newTestLoader(t)
	site, err := l.LoadBundle("site", nil)
	if err != nil {
		t.Fatalf("LoadBundle: %v", err)
	}

	_, err = l.AssetURL(site, "css/missing.css")
	if !errors.Is(err, bundle.ErrInvalidConfig) {
		t.Fatalf("err = %v, want ErrInvalidConfig", err)
	}
	if !strings.Contains(err.Error(), "/app/public/css/missing.css") {
		t.Errorf("error should name the missing path: %v", err)
	}
}

func TestAssetURLTimestamp(t *testing.T) {
	l, mfs := newTestLoader(t)
	mtime := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	mfs.SetModTime("/app/public/js/app.js", mtime)
	l = l.WithAppendTimestamp(true)

	site, err := l.LoadBundle("site", nil)
	if err != nil {
		t.Fatalf("LoadBundle: %v", err)
	}
	got, err := l.AssetURL(site, "js/app.js")
	if err != nil {
		t.Fatalf("AssetURL: %v", err)
	}
	want := "/assets/js/app.js?v=1709294400"
	if got != want {
		t.Errorf("AssetURL() = %q, want %q", got, want)
	}
}

func TestAssetURLAssetMap(t *testing.T) {
	l, _ := newTestLoader(t)
	jq, err := l.LoadBundle("jquery", nil)
	if err != nil {
		t.Fatalf("LoadBundle: %v", err)
	}
	site, err := l.LoadBundle("site", nil)
	if err != nil {
		t.Fatalf("LoadBundle: %v", err)
	}

	tests := []struct {
		name     string
		assetMap map[string]string
		b        *bundle.Bundle
		asset    string
		want     string
	}{
		{
			name: "exact key wins over suffixes",
			assetMap: map[string]string{
				"jquery.js":             "https://code.jquery.com/jquery-3.7.1.js",
				"jquery/dist/jquery.js": "/mapped/jquery.js",
			},
			b:     jq,
			asset: "jquery.js",
			want:  "https://code.jquery.com/jquery-3.7.1.js",
		},
		{
			name: "longest suffix of source path wins",
			assetMap: map[string]string{
				"dist/jquery.js":        "/short/jquery.js",
				"jquery/dist/jquery.js": "/long/jquery.js",
			},
			b:     jq,
			asset: "jquery.js",
			want:  "/long/jquery.js",
		},
		{
			name:     "mapped value returned verbatim",
			assetMap: map[string]string{"css/site.css": "https://cdn.example.com/site.css"},
			b:        site,
			asset:    "css/site.css",
			want:     "https://cdn.example.com/site.css",
		},
		{
			name:     "mapped missing file",
			assetMap: map[string]string{"css/gone.css": "/elsewhere/gone.css"},
			b:        site,
			asset:    "css/gone.css",
			want:     "/elsewhere/gone.css",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := l.WithAssetMap(tt.assetMap).AssetURL(tt.b, tt.asset)
			if err != nil {
				t.Fatalf("AssetURL: %v", err)
			}
			if got != tt.want {
				t.Errorf("AssetURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAssetPath(t *testing.T) {
	l, _ := newTestLoader(t)
	site, err := l.LoadBundle("site", nil)
	if err != nil {
		t.Fatalf("LoadBundle: %v", err)
	}
	if got := l.AssetPath(site, "css/site.css"); got != "/app/public/css/site.css" {
		t.Errorf("AssetPath() = %q", got)
	}
	if got := l.AssetPath(site, "https://example.com/x.css"); got != "" {
		t.Errorf("AssetPath(absolute) = %q, want empty", got)
	}
	if got := l.AssetPath(&bundle.Bundle{CDN: true}, "x.css"); got != "" {
		t.Errorf("AssetPath(cdn) = %q, want empty", got)
	}
}
