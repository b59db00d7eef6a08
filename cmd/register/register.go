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
// Package register provides the register command for satchel.
package register

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"bennypowers.dev/satchel/bundle"
	"bennypowers.dev/satchel/config"
	"bennypowers.dev/satchel/fs"
	"bennypowers.dev/satchel/internal/output"
	"bennypowers.dev/satchel/register"
)

// Cmd is the register cobra command that resolves bundles into registries.
var Cmd = &cobra.Command{
	Use:   "register BUNDLE...",
	Short: "Register bundles and print the resulting registries",
	Long: `Register bundles together with their dependencies. Bundles with a source
path are published first. The CSS and JS registries are printed as JSON in
registration order.`,
	Example: `  # Register the app bundle and everything it depends on
  satchel register app

  # Render app's scripts at the end of the body
  satchel register app --js-position end`,
	Args: cobra.MinimumNArgs(1),
	RunE: run,
}

func init() {
	Cmd.Flags().String("js-position", "", "Requested JS position (head, begin, end, ready, load)")
	Cmd.Flags().String("css-position", "", "Requested CSS position")

	_ = viper.BindPFlag("js-position", Cmd.Flags().Lookup("js-position"))
	_ = viper.BindPFlag("css-position", Cmd.Flags().Lookup("css-position"))
}

// Report is the printed result of a registration.
type Report struct {
	Bundles    []string          `json:"bundles"`
	CSSFiles   []register.File   `json:"cssFiles"`
	CSSStrings []register.Inline `json:"cssStrings"`
	JSFiles    []register.File   `json:"jsFiles"`
	JSStrings  []register.Inline `json:"jsStrings"`
	JSVars     []register.Var    `json:"jsVars"`
}

func run(cmd *cobra.Command, args []string) error {
	osfs := fs.NewOSFileSystem()

	jsPosition, err := bundle.ParsePosition(viper.GetString("js-position"))
	if err != nil {
		return fmt.Errorf("invalid --js-position: %w", err)
	}
	cssPosition, err := bundle.ParsePosition(viper.GetString("css-position"))
	if err != nil {
		return fmt.Errorf("invalid --css-position: %w", err)
	}

	_, p, err := config.Open(osfs, viper.GetViper(), output.Logger())
	if err != nil {
		return err
	}

	m := p.Manager
	if err := m.Register(cmd.Context(), args, jsPosition, cssPosition); err != nil {
		return fmt.Errorf("failed to register: %w", err)
	}

	return output.JSON(osfs, Report{
		Bundles:    m.RegisteredBundles(),
		CSSFiles:   m.CSSFiles(),
		CSSStrings: m.CSSStrings(),
		JSFiles:    m.JSFiles(),
		JSStrings:  m.JSStrings(),
		JSVars:     m.JSVars(),
	})
}
