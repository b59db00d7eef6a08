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
package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/google/shlex"
)

// expandCommand splits a command template into arguments and substitutes
// placeholders. The command is executed without a shell, so substituted
// values need no quoting. An argument that is exactly {options} expands
// to the options split into their own arguments.
func expandCommand(template, from, to, options string) ([]string, error) {
	parts, err := shlex.Split(template)
	if err != nil {
		return nil, fmt.Errorf("parsing command %q: %w", template, err)
	}
	optionArgs, err := shlex.Split(options)
	if err != nil {
		return nil, fmt.Errorf("parsing options %q: %w", options, err)
	}
	replacer := strings.NewReplacer("{from}", from, "{to}", to, "{options}", options)

	args := make([]string, 0, len(parts)+len(optionArgs))
	for _, part := range parts {
		if part == "{options}" {
			args = append(args, optionArgs...)
			continue
		}
		args = append(args, replacer.Replace(part))
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("empty command %q", template)
	}
	return args, nil
}

// run executes a conversion command in basePath. Failures are logged.
func (c *Converter) run(ctx context.Context, template, basePath, from, to, options string) {
	args, err := expandCommand(template, from, to, options)
	if err != nil {
		c.logError("Conversion command is invalid", "from", from, "to", to, "err", err)
		return
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = basePath
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err = cmd.Run()
	elapsed := time.Since(start)

	if err == nil {
		c.logDebug("Converted asset",
			"from", from, "to", to, "command", strings.Join(args, " "),
			"elapsed", elapsed, "stdout", strings.TrimSpace(stdout.String()))
		return
	}

	keyvals := []any{
		"from", from, "to", to, "command", strings.Join(args, " "),
		"stdout", strings.TrimSpace(stdout.String()),
		"stderr", strings.TrimSpace(stderr.String()),
	}
	var exitErr *exec.ExitError
	switch {
	case ctx.Err() != nil:
		keyvals = append(keyvals, "err", fmt.Errorf("timed out after %s: %w", elapsed.Round(time.Millisecond), ctx.Err()))
	case errors.As(err, &exitErr):
		keyvals = append(keyvals, "exit", exitErr.ExitCode())
	default:
		keyvals = append(keyvals, "err", err)
	}
	c.logError("Conversion failed", keyvals...)
}

func (c *Converter) logDebug(msg string, keyvals ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, keyvals...)
	}
}

func (c *Converter) logError(msg string, keyvals ...any) {
	if c.logger != nil {
		c.logger.Error(msg, keyvals...)
	}
}
