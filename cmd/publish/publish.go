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
// Package publish provides the publish command for satchel.
package publish

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"bennypowers.dev/satchel/config"
	"bennypowers.dev/satchel/fs"
	"bennypowers.dev/satchel/internal/output"
	"bennypowers.dev/satchel/publish"
)

// Cmd is the publish cobra command that copies or links bundle sources.
var Cmd = &cobra.Command{
	Use:   "publish [BUNDLE...]",
	Short: "Publish bundle sources into the web-accessible directory",
	Long: `Publish the source directory of each named bundle, or of every declared
bundle with a source path when none are named. Prints each bundle's
published path and URL.`,
	Example: `  # Publish everything
  satchel publish

  # Symlink instead of copying
  satchel publish --link-assets jquery`,
	RunE: run,
}

func init() {
	Cmd.Flags().Bool("link-assets", false, "Symlink sources instead of copying them")
	Cmd.Flags().Bool("force-copy", false, "Copy even when the target exists")

	_ = viper.BindPFlag("link-assets", Cmd.Flags().Lookup("link-assets"))
	_ = viper.BindPFlag("force-copy", Cmd.Flags().Lookup("force-copy"))
}

// Entry is one published bundle.
type Entry struct {
	Bundle string `json:"bundle"`
	publish.Published
}

func run(cmd *cobra.Command, args []string) error {
	osfs := fs.NewOSFileSystem()
	s, p, err := config.Open(osfs, viper.GetViper(), output.Logger())
	if err != nil {
		return err
	}

	names := args
	if len(names) == 0 {
		names = p.Registry.Names()
	}

	entries := make([]Entry, 0, len(names))
	for _, name := range names {
		b, err := p.Loader.LoadBundle(name, s.Customize[name])
		if err != nil {
			return err
		}
		if b.SourcePath == "" {
			if len(args) > 0 {
				output.Warn("bundle has no source path", "bundle", name)
			}
			continue
		}
		published, err := p.Publisher.Publish(b)
		if err != nil {
			return fmt.Errorf("failed to publish %s: %w", name, err)
		}
		entries = append(entries, Entry{Bundle: name, Published: published})
	}
	return output.JSON(osfs, entries)
}
