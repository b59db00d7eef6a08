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
	"encoding/hex"
	"fmt"
	"hash/crc32"
	"strconv"

	"github.com/zeebo/blake3"

	"bennypowers.dev/satchel/bundle"
)

// Hasher turns the publication key of a source path into a directory name.
type Hasher func(key string) string

// HashCallback names the published directory of a source path directly,
// bypassing the publication key.
type HashCallback func(sourcePath string) string

// CRC32 formats the IEEE CRC-32 checksum of key as lowercase hex.
func CRC32(key string) string {
	return strconv.FormatUint(uint64(crc32.ChecksumIEEE([]byte(key))), 16)
}

// BLAKE3 formats the first 8 bytes of the BLAKE3 digest of key as hex.
func BLAKE3(key string) string {
	sum := blake3.Sum256([]byte(key))
	return hex.EncodeToString(sum[:8])
}

// HasherByName returns a built-in hasher. An empty name selects CRC32.
func HasherByName(name string) (Hasher, error) {
	switch name {
	case "", "crc32":
		return CRC32, nil
	case "blake3":
		return BLAKE3, nil
	default:
		return nil, fmt.Errorf("%w: unknown hash %q (known: crc32, blake3)", bundle.ErrInvalidConfig, name)
	}
}

// publicationKey combines a source directory, the latest modification
// time in its tree and the link mode, so that edits and mode switches
// publish to a fresh directory.
func publicationKey(dir string, modUnix int64, link bool) string {
	flag := ""
	if link {
		flag = "1"
	}
	return dir + strconv.FormatInt(modUnix, 10) + "|" + flag
}
