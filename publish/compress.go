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
	"fmt"
	"path/filepath"
	"runtime"
	"slices"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/sync/errgroup"

	"bennypowers.dev/satchel/bundle"
)

// Precompression encodings and the suffix of the files they write.
const (
	Gzip = "gzip"
	Zstd = "zstd"
)

var compressorSuffixes = map[string]string{
	Gzip: ".gz",
	Zstd: ".zst",
}

// compressible lists the extensions worth serving precompressed.
var compressible = []string{".css", ".js", ".mjs", ".cjs", ".map", ".svg", ".json", ".html", ".txt"}

func checkCompressors(encodings []string) error {
	for _, encoding := range encodings {
		if _, ok := compressorSuffixes[encoding]; !ok {
			return fmt.Errorf("%w: unknown precompress encoding %q (known: %s, %s)", bundle.ErrInvalidConfig, encoding, Gzip, Zstd)
		}
	}
	return nil
}

// precompress writes compressed siblings of the compressible files, one
// goroutine per file up to GOMAXPROCS.
func (p *Publisher) precompress(files []string, encodings []string) error {
	if len(encodings) == 0 {
		return nil
	}

	var encoder *zstd.Encoder
	if slices.Contains(encodings, Zstd) {
		var err error
		encoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
		if err != nil {
			return fmt.Errorf("creating zstd encoder: %w", err)
		}
		defer encoder.Close()
	}

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, file := range files {
		if !slices.Contains(compressible, filepath.Ext(file)) {
			continue
		}
		g.Go(func() error {
			data, err := p.fs.ReadFile(file)
			if err != nil {
				return fmt.Errorf("reading %q: %w", file, err)
			}
			for _, encoding := range encodings {
				var out []byte
				switch encoding {
				case Gzip:
					out, err = gzipBytes(data)
				case Zstd:
					out = encoder.EncodeAll(data, nil)
				}
				if err != nil {
					return fmt.Errorf("compressing %q: %w", file, err)
				}
				target := file + compressorSuffixes[encoding]
				if err := p.fs.WriteFile(target, out, p.fileMode); err != nil {
					return fmt.Errorf("writing %q: %w", target, err)
				}
			}
			return nil
		})
	}
	return g.Wait()
}

func gzipBytes(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
