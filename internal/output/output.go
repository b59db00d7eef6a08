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

// Package output provides shared output utilities for satchel CLI commands.
package output

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/spf13/viper"

	"bennypowers.dev/satchel/fs"
)

// JSON encodes v as indented JSON and writes it to stdout or a file.
// If viper's "output" flag is set, writes to that file; otherwise prints to stdout.
func JSON(osfs fs.FileSystem, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	return Write(osfs, buf.String())
}

// Write writes text to stdout or to the file named by viper's "output" flag.
func Write(osfs fs.FileSystem, text string) error {
	if outputPath := viper.GetString("output"); outputPath != "" {
		if len(text) == 0 || text[len(text)-1] != '\n' {
			text += "\n"
		}
		return osfs.WriteFile(outputPath, []byte(text), 0644)
	}
	fmt.Print(text)
	if len(text) > 0 && text[len(text)-1] != '\n' {
		fmt.Println()
	}
	return nil
}
