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

// Package config reads satchel settings and bundle definition files and
// assembles the asset pipeline from them.
package config

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"bennypowers.dev/satchel/bundle"
	"bennypowers.dev/satchel/fs"
)

// EnvPrefix prefixes environment variables, e.g. SATCHEL_BASE_PATH.
const EnvPrefix = "SATCHEL"

// Command configures the converter for one source extension.
type Command struct {
	Target  string `yaml:"target"`
	Command string `yaml:"command"`
}

// Settings holds every satchel setting.
type Settings struct {
	BasePath        string `yaml:"base-path"`
	BaseURL         string `yaml:"base-url"`
	AppendTimestamp bool   `yaml:"append-timestamp"`

	LinkAssets bool   `yaml:"link-assets"`
	ForceCopy  bool   `yaml:"force-copy"`
	Hash       string `yaml:"hash"`
	// DirMode and FileMode are permission bits; zero selects the default.
	DirMode  uint32 `yaml:"-"`
	FileMode uint32 `yaml:"-"`

	ForceConvert   bool               `yaml:"force-convert"`
	ConvertTimeout time.Duration      `yaml:"convert-timeout"`
	TrackImports   bool               `yaml:"track-imports"`
	Commands       map[string]Command `yaml:"commands"`

	Aliases            map[string]string         `yaml:"aliases"`
	AssetMap           map[string]string         `yaml:"asset-map"`
	CSSDefaultOptions  bundle.Options            `yaml:"css-default-options"`
	JSDefaultOptions   bundle.Options            `yaml:"js-default-options"`
	CSSDefaultPosition string                    `yaml:"css-default-position"`
	JSDefaultPosition  string                    `yaml:"js-default-position"`
	Disabled           []string                  `yaml:"disabled"`
	Allowed            []string                  `yaml:"allowed"`
	Customize          map[string]bundle.Override `yaml:"customize"`

	// Bundles lists bundle definition files. Relative paths and doublestar
	// patterns are resolved against Dir.
	Bundles []string `yaml:"bundles"`

	// Dir is the directory of the config file, or the working directory.
	Dir string `yaml:"-"`
}

// Configure makes v read satchel.yaml (or satchel.json) from the working
// directory and SATCHEL_* environment variables.
func Configure(v *viper.Viper) {
	v.SetConfigName("satchel")
	v.AddConfigPath(".")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	v.SetDefault("convert-timeout", "2m")
	v.SetDefault("track-imports", true)
}

// Load reads the settings. Mappings are read from the config file itself,
// since viper folds map keys to lower case; scalar settings may also come
// from flags and the environment, which take precedence.
func Load(fsys fs.FileSystem, v *viper.Viper) (*Settings, error) {
	s := &Settings{}
	if path := v.ConfigFileUsed(); path != "" {
		data, err := fsys.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := decodeFile(path, data, s); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
		s.Dir = filepath.Dir(path)
	}

	// viper sees the config file too, so this keeps flag > env > file
	// precedence for scalars
	for key, target := range map[string]*string{
		"base-path":            &s.BasePath,
		"base-url":             &s.BaseURL,
		"hash":                 &s.Hash,
		"css-default-position": &s.CSSDefaultPosition,
		"js-default-position":  &s.JSDefaultPosition,
	} {
		if v.IsSet(key) {
			*target = v.GetString(key)
		}
	}
	for key, target := range map[string]*bool{
		"append-timestamp": &s.AppendTimestamp,
		"link-assets":      &s.LinkAssets,
		"force-copy":       &s.ForceCopy,
		"force-convert":    &s.ForceConvert,
		"track-imports":    &s.TrackImports,
	} {
		if v.IsSet(key) {
			*target = v.GetBool(key)
		}
	}
	if v.IsSet("convert-timeout") {
		s.ConvertTimeout = v.GetDuration("convert-timeout")
	}
	for key, target := range map[string]*[]string{
		"bundles":  &s.Bundles,
		"disabled": &s.Disabled,
		"allowed":  &s.Allowed,
	} {
		if v.IsSet(key) {
			*target = v.GetStringSlice(key)
		}
	}

	var err error
	if s.DirMode, err = parseMode("dir-mode", v.Get("dir-mode")); err != nil {
		return nil, err
	}
	if s.FileMode, err = parseMode("file-mode", v.Get("file-mode")); err != nil {
		return nil, err
	}

	if s.Dir == "" {
		s.Dir = "."
	}
	return s, nil
}

// decodeFile decodes YAML, JSON or JSON with comments into out.
func decodeFile(path string, data []byte, out any) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		data = jsonc.ToJSON(data)
	}
	return yaml.Unmarshal(data, out)
}

// parseMode reads a permission setting. Strings are octal ("0755");
// YAML numbers such as 0755 arrive already converted.
func parseMode(key string, value any) (uint32, error) {
	var mode uint64
	switch v := value.(type) {
	case nil:
		return 0, nil
	case int:
		mode = uint64(v)
	case int64:
		mode = uint64(v)
	case uint32:
		mode = uint64(v)
	case float64:
		mode = uint64(v)
	case string:
		if v == "" {
			return 0, nil
		}
		parsed, err := strconv.ParseUint(strings.TrimPrefix(v, "0o"), 8, 32)
		if err != nil {
			return 0, fmt.Errorf("%w: %s %q is not an octal permission", bundle.ErrInvalidConfig, key, v)
		}
		mode = parsed
	default:
		return 0, fmt.Errorf("%w: %s must be an octal permission, got %v", bundle.ErrInvalidConfig, key, value)
	}
	if mode > 0o777 {
		return 0, fmt.Errorf("%w: %s %o is not a permission", bundle.ErrInvalidConfig, key, mode)
	}
	return uint32(mode), nil
}
