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
// Command satchel publishes and registers web asset bundles.
package main

import (
	"errors"
	"fmt"
	"os"
	"runtime/pprof"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"bennypowers.dev/satchel/cmd/export"
	"bennypowers.dev/satchel/cmd/publish"
	"bennypowers.dev/satchel/cmd/register"
	versioncmd "bennypowers.dev/satchel/cmd/version"
	"bennypowers.dev/satchel/config"
	"bennypowers.dev/satchel/internal/output"
	"bennypowers.dev/satchel/internal/version"
)

var (
	cpuprofile     string
	cpuprofileFile *os.File
	rootCmd        = &cobra.Command{
		Use:   "satchel",
		Short: "Publish and register web asset bundles",
		Long: `satchel publishes bundles of CSS and JavaScript into a web-accessible
directory and resolves them, with their dependencies, into ordered
registries of files, inline code and variables.

Settings are read from satchel.yaml (or the file given with --config) and
from SATCHEL_* environment variables. Flags take precedence.`,
		Version:      version.GetVersion(),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			output.SetupLogging(viper.GetBool("verbose"))
			if err := readConfig(); err != nil {
				return err
			}
			if cpuprofile != "" {
				f, err := os.Create(cpuprofile)
				if err != nil {
					return fmt.Errorf("could not create CPU profile: %w", err)
				}
				cpuprofileFile = f
				if err := pprof.StartCPUProfile(f); err != nil {
					closeErr := f.Close()
					return errors.Join(
						fmt.Errorf("could not start CPU profile: %w", err),
						closeErr,
					)
				}
			}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if cpuprofileFile != nil {
				pprof.StopCPUProfile()
				if err := cpuprofileFile.Close(); err != nil {
					return fmt.Errorf("closing CPU profile: %w", err)
				}
			}
			return nil
		},
	}
)

// readConfig reads the config file. A missing satchel.yaml is fine; a
// missing file named with --config is not.
func readConfig() error {
	config.Configure(viper.GetViper())
	if path := viper.GetString("config"); path != "" {
		viper.SetConfigFile(path)
	}
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			output.Logger().Debug("no config file found")
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	output.Logger().Debug("using config file", "path", viper.ConfigFileUsed())
	return nil
}

func init() {
	// Root flags (persistent across all commands)
	rootCmd.PersistentFlags().StringP("config", "c", "", "Config file (default: ./satchel.yaml)")
	rootCmd.PersistentFlags().StringP("output", "o", "", "Output file (default: stdout)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log debug messages")
	rootCmd.PersistentFlags().String("base-path", "", "Directory bundles are published into")
	rootCmd.PersistentFlags().String("base-url", "", "URL of the publish directory")
	rootCmd.PersistentFlags().StringSlice("bundles", nil, "Bundle definition files or patterns")
	rootCmd.PersistentFlags().StringVar(&cpuprofile, "cpuprofile", "", "Write CPU profile to file")

	for _, name := range []string{"config", "output", "verbose", "base-path", "base-url", "bundles"} {
		_ = viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name))
	}

	// Add commands
	rootCmd.AddCommand(register.Cmd)
	rootCmd.AddCommand(publish.Cmd)
	rootCmd.AddCommand(export.Cmd)
	rootCmd.AddCommand(versioncmd.Cmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
