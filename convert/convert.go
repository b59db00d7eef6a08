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

// Package convert turns pre-processor sources (SASS, LESS, TypeScript, ...)
// into CSS and JS by running external commands.
package convert

import (
	"context"
	"maps"
	"path/filepath"
	"strings"
	"time"

	"bennypowers.dev/satchel/bundle"
	"bennypowers.dev/satchel/fs"
)

// Logger receives conversion outcomes. *log.Logger from charmbracelet/log
// satisfies it.
type Logger interface {
	Debug(msg any, keyvals ...any)
	Error(msg any, keyvals ...any)
}

// IsOutdatedFunc reports whether target must be rebuilt from source. Paths
// are relative to basePath; extensions have no leading dot.
type IsOutdatedFunc func(basePath, source, target, sourceExt, targetExt string) bool

// Command converts files of one source extension.
type Command struct {
	// Target is the output extension, e.g. "css".
	Target string
	// Template is the command line. {from} and {to} are replaced by the
	// source and target paths, {options} by the per-bundle options.
	Template string
}

// DefaultCommands is the process-wide command table.
var DefaultCommands = map[string]Command{
	"less": {Target: "css", Template: "lessc {options} {from} {to} --no-color --source-map"},
	"scss": {Target: "css", Template: "sass {options} {from} {to}"},
	"sass": {Target: "css", Template: "sass {options} {from} {to}"},
	"ts":   {Target: "js", Template: "tsc {options} --outFile {to} {from}"},
}

// DefaultTimeout bounds a single conversion command.
const DefaultTimeout = 2 * time.Minute

// Converter runs conversion commands, skipping sources whose output is up
// to date.
type Converter struct {
	fs           fs.FileSystem
	logger       Logger
	commands     map[string]Command
	forceConvert bool
	isOutdated   IsOutdatedFunc
	timeout      time.Duration
}

// New creates a Converter with DefaultCommands. The logger may be nil.
func New(fsys fs.FileSystem, logger Logger) *Converter {
	return &Converter{
		fs:       fsys,
		logger:   logger,
		commands: maps.Clone(DefaultCommands),
		timeout:  DefaultTimeout,
	}
}

func (c *Converter) clone() *Converter {
	clone := *c
	clone.commands = maps.Clone(c.commands)
	return &clone
}

// WithCommand returns a new Converter that converts sourceExt files to
// targetExt with the given command template.
func (c *Converter) WithCommand(sourceExt, targetExt, template string) *Converter {
	clone := c.clone()
	clone.commands[strings.TrimPrefix(sourceExt, ".")] = Command{
		Target:   strings.TrimPrefix(targetExt, "."),
		Template: template,
	}
	return clone
}

// WithForceConvert returns a new Converter that always runs commands.
func (c *Converter) WithForceConvert(force bool) *Converter {
	clone := c.clone()
	clone.forceConvert = force
	return clone
}

// WithIsOutdated returns a new Converter that also rebuilds targets for
// which fn reports true.
func (c *Converter) WithIsOutdated(fn IsOutdatedFunc) *Converter {
	clone := c.clone()
	clone.isOutdated = fn
	return clone
}

// WithTimeout returns a new Converter whose commands are killed after d.
// A zero duration disables the limit.
func (c *Converter) WithTimeout(d time.Duration) *Converter {
	clone := c.clone()
	clone.timeout = d
	return clone
}

// Commands returns a copy of the command table.
func (c *Converter) Commands() map[string]Command {
	return maps.Clone(c.commands)
}

// Convert converts asset, a path relative to basePath, and returns the
// relative path of the result. Assets without a command are returned
// unchanged. Command failures are logged, never returned: the target path
// is returned even when it is stale or missing.
func (c *Converter) Convert(ctx context.Context, asset, basePath string, options map[string]bundle.ConverterOptions) string {
	ext := filepath.Ext(asset)
	if ext == "" {
		return asset
	}
	sourceExt := ext[1:]

	command, ok := c.commands[sourceExt]
	override := options[sourceExt]
	if override.Command != "" {
		command.Template = override.Command
		if override.Target != "" {
			command.Target = override.Target
		}
		ok = command.Target != ""
	}
	if !ok {
		return asset
	}

	result := strings.TrimSuffix(asset, ext) + "." + command.Target
	if c.forceConvert || c.outdated(basePath, asset, result, sourceExt, command.Target) {
		c.run(ctx, command.Template, basePath, asset, result, override.Options)
	}
	return result
}

func (c *Converter) outdated(basePath, source, target, sourceExt, targetExt string) bool {
	targetInfo, err := c.fs.Stat(filepath.Join(basePath, target))
	if err != nil {
		return true
	}
	sourceInfo, err := c.fs.Stat(filepath.Join(basePath, source))
	if err == nil && targetInfo.ModTime().Before(sourceInfo.ModTime()) {
		return true
	}
	if c.isOutdated != nil {
		return c.isOutdated(basePath, source, target, sourceExt, targetExt)
	}
	return false
}
