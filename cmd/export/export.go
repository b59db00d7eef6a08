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
// Package export provides the export command for satchel.
package export

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"bennypowers.dev/satchel/config"
	"bennypowers.dev/satchel/export"
	"bennypowers.dev/satchel/fs"
	"bennypowers.dev/satchel/internal/output"
)

// Cmd is the export cobra command that writes bundle data for other tools.
var Cmd = &cobra.Command{
	Use:   "export TARGET",
	Short: "Export bundle definitions for third-party bundlers",
	Long: `Export the allowed bundles (or the customized ones, or every declared
bundle) with their dependencies, in dependency order, to TARGET.

Formats:
  json     bundle configuration keyed by name
  files    a JSON array of source file paths
  webpack  an entry module importing every source file`,
	Example: `  satchel export --format webpack assets/entry.js`,
	Args:    cobra.ExactArgs(1),
	RunE:    run,
}

func init() {
	Cmd.Flags().StringP("format", "f", "json", "Output format (json, files, webpack)")

	_ = viper.BindPFlag("export-format", Cmd.Flags().Lookup("format"))
}

func run(cmd *cobra.Command, args []string) error {
	osfs := fs.NewOSFileSystem()
	target := args[0]

	var exporter export.Exporter
	switch format := viper.GetString("export-format"); format {
	case "json":
		exporter = export.NewBundleJSON(osfs, target)
	case "files":
		exporter = export.NewFileList(osfs, target)
	case "webpack":
		exporter = export.NewWebpack(osfs, target)
	default:
		return fmt.Errorf("invalid format %q: must be 'json', 'files' or 'webpack'", format)
	}

	_, p, err := config.Open(osfs, viper.GetViper(), output.Logger())
	if err != nil {
		return err
	}
	if err := p.Manager.Export(cmd.Context(), exporter); err != nil {
		return fmt.Errorf("failed to export: %w", err)
	}
	output.Logger().Info("exported bundles", "target", target)
	return nil
}
