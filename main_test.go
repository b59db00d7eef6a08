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
package main

import (
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

func TestMain(m *testing.M) {
	// Build the binary before running tests
	wd := mustGetwd()
	cmd := exec.Command("go", "build", "-o", "satchel_test", ".")
	cmd.Dir = wd
	if out, err := cmd.CombinedOutput(); err != nil {
		panic("failed to build test binary: " + err.Error() + "\n" + string(out))
	}
	code := m.Run()
	_ = os.Remove(filepath.Join(wd, "satchel_test"))
	os.Exit(code)
}

func mustGetwd() string {
	wd, err := os.Getwd()
	if err != nil {
		panic(err)
	}
	return wd
}

// project copies the fixture project into a temporary directory, since
// commands publish into it.
func project(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.CopyFS(dir, os.DirFS(filepath.Join("testdata", "project"))); err != nil {
		t.Fatalf("Failed to copy fixture project: %v", err)
	}
	return dir
}

func runCLI(t *testing.T, dir string, args ...string) (stdout, stderr string, exitCode int) {
	t.Helper()
	binary := filepath.Join(mustGetwd(), "satchel_test")
	cmd := exec.Command(binary, args...)
	cmd.Dir = dir

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	err := cmd.Run()
	stdout = stdoutBuf.String()
	stderr = stderrBuf.String()

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			t.Fatalf("Failed to run CLI: %v", err)
		}
	}

	return stdout, stderr, exitCode
}

type registered struct {
	Bundles  []string `json:"bundles"`
	CSSFiles []struct {
		Key     string         `json:"key"`
		URL     string         `json:"url"`
		Options map[string]any `json:"options"`
		Bundle  string         `json:"bundle"`
	} `json:"cssFiles"`
	JSFiles []struct {
		Key      string         `json:"key"`
		URL      string         `json:"url"`
		Position int            `json:"position"`
		Options  map[string]any `json:"options"`
		Bundle   string         `json:"bundle"`
	} `json:"jsFiles"`
}

func parseRegistered(t *testing.T, stdout string) registered {
	t.Helper()
	var result registered
	if err := json.Unmarshal([]byte(stdout), &result); err != nil {
		t.Fatalf("Failed to parse JSON output: %v\nstdout: %s", err, stdout)
	}
	return result
}

func TestRegister(t *testing.T) {
	dir := project(t)

	stdout, stderr, code := runCLI(t, dir, "register", "app")
	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d\nstderr: %s", code, stderr)
	}
	result := parseRegistered(t, stdout)

	if strings.Join(result.Bundles, ",") != "jquery,app" {
		t.Errorf("Expected jquery before app, got %v", result.Bundles)
	}
	if len(result.JSFiles) != 2 {
		t.Fatalf("Expected 2 JS files, got %d", len(result.JSFiles))
	}

	jquery := result.JSFiles[0]
	if jquery.Bundle != "jquery" {
		t.Errorf("Expected jquery's file first, got %s", jquery.Bundle)
	}
	if !strings.HasPrefix(jquery.URL, "/assets/") || !strings.HasSuffix(jquery.URL, "/jquery.js") {
		t.Errorf("Expected published jquery URL, got %s", jquery.URL)
	}
	if jquery.Options["defer"] != true {
		t.Errorf("Expected default JS options, got %v", jquery.Options)
	}

	// the published copy backs the URL
	published := filepath.Join(dir, "public", filepath.FromSlash(strings.TrimPrefix(jquery.URL, "/")))
	if _, err := os.Stat(published); err != nil {
		t.Errorf("Expected published file %s: %v", published, err)
	}

	if len(result.CSSFiles) != 2 {
		t.Fatalf("Expected 2 CSS files, got %d", len(result.CSSFiles))
	}
	if result.CSSFiles[1].Options["media"] != "print" {
		t.Errorf("Expected print media option, got %v", result.CSSFiles[1].Options)
	}
}

func TestRegisterPosition(t *testing.T) {
	dir := project(t)

	stdout, stderr, code := runCLI(t, dir, "register", "app", "--js-position", "end")
	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d\nstderr: %s", code, stderr)
	}
	for _, file := range parseRegistered(t, stdout).JSFiles {
		if file.Position != 3 {
			t.Errorf("Expected %s at the end position, got %d", file.Key, file.Position)
		}
	}
}

func TestRegisterCDN(t *testing.T) {
	dir := project(t)

	stdout, stderr, code := runCLI(t, dir, "register", "lit")
	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d\nstderr: %s", code, stderr)
	}
	result := parseRegistered(t, stdout)
	if len(result.JSFiles) != 1 || result.JSFiles[0].URL != "https://esm.sh/lit@3.0.0/index.js" {
		t.Errorf("Expected esm.sh URL, got %+v", result.JSFiles)
	}
	if _, err := os.Stat(filepath.Join(dir, "public")); !os.IsNotExist(err) {
		t.Errorf("Expected nothing published for a CDN bundle")
	}
}

func TestRegisterUnknownBundle(t *testing.T) {
	_, stderr, code := runCLI(t, project(t), "register", "nope")
	if code == 0 {
		t.Error("Expected non-zero exit code for unknown bundle")
	}
	if !strings.Contains(stderr, "nope") {
		t.Errorf("Expected bundle name in error, got: %s", stderr)
	}
}

func TestRegisterInvalidPosition(t *testing.T) {
	_, stderr, code := runCLI(t, project(t), "register", "app", "--js-position", "sideways")
	if code == 0 {
		t.Error("Expected non-zero exit code for invalid position")
	}
	if !strings.Contains(stderr, "--js-position") {
		t.Errorf("Expected flag name in error, got: %s", stderr)
	}
}

func TestRegisterMissingArg(t *testing.T) {
	_, _, code := runCLI(t, project(t), "register")
	if code == 0 {
		t.Error("Expected non-zero exit code without bundles")
	}
}

func TestRegisterOutputFile(t *testing.T) {
	dir := project(t)
	outFile := filepath.Join(t.TempDir(), "registry.json")

	stdout, stderr, code := runCLI(t, dir, "register", "jquery", "--output", outFile)
	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d\nstderr: %s", code, stderr)
	}
	if stdout != "" {
		t.Errorf("Expected no stdout when writing to file, got: %s", stdout)
	}
	content, err := os.ReadFile(outFile)
	if err != nil {
		t.Fatalf("Failed to read output file: %v", err)
	}
	if result := parseRegistered(t, string(content)); len(result.JSFiles) != 1 {
		t.Errorf("Expected 1 JS file, got %d", len(result.JSFiles))
	}
}

func TestConfigFlag(t *testing.T) {
	dir := project(t)
	if err := os.Rename(filepath.Join(dir, "satchel.yaml"), filepath.Join(dir, "assets.yaml")); err != nil {
		t.Fatal(err)
	}

	_, stderr, code := runCLI(t, dir, "register", "app")
	if code == 0 {
		t.Error("Expected failure without a config file")
	}
	if !strings.Contains(stderr, "app") {
		t.Errorf("Expected unknown bundle error, got: %s", stderr)
	}

	_, stderr, code = runCLI(t, dir, "register", "app", "-c", "assets.yaml")
	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d\nstderr: %s", code, stderr)
	}

	_, _, code = runCLI(t, dir, "register", "app", "-c", "missing.yaml")
	if code == 0 {
		t.Error("Expected failure for a missing --config file")
	}
}

func TestEnvOverride(t *testing.T) {
	dir := project(t)
	t.Setenv("SATCHEL_BASE_URL", "https://static.example.com")

	stdout, stderr, code := runCLI(t, dir, "register", "jquery")
	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d\nstderr: %s", code, stderr)
	}
	result := parseRegistered(t, stdout)
	if len(result.JSFiles) != 1 || !strings.HasPrefix(result.JSFiles[0].URL, "https://static.example.com/") {
		t.Errorf("Expected URL under the environment's base URL, got %+v", result.JSFiles)
	}
}

func TestPublish(t *testing.T) {
	dir := project(t)

	stdout, stderr, code := runCLI(t, dir, "publish")
	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d\nstderr: %s", code, stderr)
	}

	var entries []struct {
		Bundle string `json:"bundle"`
		Path   string `json:"path"`
		URL    string `json:"url"`
	}
	if err := json.Unmarshal([]byte(stdout), &entries); err != nil {
		t.Fatalf("Failed to parse JSON output: %v\nstdout: %s", err, stdout)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected jquery and app, got %+v", entries)
	}
	for _, e := range entries {
		if !strings.HasPrefix(e.URL, "/assets/") {
			t.Errorf("Expected %s under /assets/, got %s", e.Bundle, e.URL)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, entries[1].Path, "js", "app.js")); err != nil {
		t.Errorf("Expected app.js to be published: %v", err)
	}
}

func TestPublishLink(t *testing.T) {
	dir := project(t)

	stdout, stderr, code := runCLI(t, dir, "publish", "jquery", "--link-assets")
	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d\nstderr: %s", code, stderr)
	}
	var entries []struct {
		Path string `json:"path"`
	}
	if err := json.Unmarshal([]byte(stdout), &entries); err != nil || len(entries) != 1 {
		t.Fatalf("Failed to parse JSON output: %v\nstdout: %s", err, stdout)
	}
	info, err := os.Lstat(filepath.Join(dir, entries[0].Path))
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode()&os.ModeSymlink == 0 {
		t.Errorf("Expected a symlink, got mode %v", info.Mode())
	}
}

func TestExport(t *testing.T) {
	// {dir} stands for the project directory: exported source paths are absolute
	tests := []struct {
		format string
		want   []string
	}{
		{format: "files", want: []string{`"{dir}/vendor/jquery/jquery.js"`, `"{dir}/src/app/js/app.js"`}},
		{format: "webpack", want: []string{"import '{dir}/vendor/jquery/jquery.js';", "import '{dir}/src/app/css/site.css';"}},
		{format: "json", want: []string{`"jquery"`, `"sourcePath": "{dir}/vendor/jquery"`, `"lit"`}},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			dir := project(t)
			_, stderr, code := runCLI(t, dir, "export", "--format", tt.format, "out.txt")
			if code != 0 {
				t.Fatalf("Expected exit code 0, got %d\nstderr: %s", code, stderr)
			}
			content, err := os.ReadFile(filepath.Join(dir, "out.txt"))
			if err != nil {
				t.Fatalf("Failed to read export: %v", err)
			}
			for _, s := range tt.want {
				s = strings.ReplaceAll(s, "{dir}", filepath.ToSlash(dir))
				if !strings.Contains(string(content), s) {
					t.Errorf("Expected %q in export, got:\n%s", s, content)
				}
			}
			if _, err := os.Stat(filepath.Join(dir, "public")); !os.IsNotExist(err) {
				t.Errorf("Expected export not to publish")
			}
		})
	}
}

func TestExportInvalidFormat(t *testing.T) {
	_, stderr, code := runCLI(t, project(t), "export", "--format", "rollup", "out.txt")
	if code == 0 {
		t.Error("Expected non-zero exit code for invalid format")
	}
	if !strings.Contains(stderr, "invalid format") {
		t.Errorf("Expected 'invalid format' error, got: %s", stderr)
	}
}

func TestHelp(t *testing.T) {
	stdout, _, code := runCLI(t, "", "--help")
	if code != 0 {
		t.Fatalf("Expected exit code 0 for help, got %d", code)
	}

	expectedStrings := []string{
		"satchel",
		"register",
		"publish",
		"export",
		"--config",
		"--output",
		"--base-url",
	}

	for _, s := range expectedStrings {
		if !strings.Contains(stdout, s) {
			t.Errorf("Expected %q in help output", s)
		}
	}
}

func TestRegisterHelp(t *testing.T) {
	stdout, _, code := runCLI(t, "", "register", "--help")
	if code != 0 {
		t.Fatalf("Expected exit code 0 for help, got %d", code)
	}

	for _, s := range []string{"--js-position", "--css-position"} {
		if !strings.Contains(stdout, s) {
			t.Errorf("Expected %q in register help output", s)
		}
	}
}

func TestUnknownCommand(t *testing.T) {
	_, stderr, code := runCLI(t, "", "unknown")
	if code == 0 {
		t.Error("Expected non-zero exit code for unknown command")
	}

	if !strings.Contains(stderr, "unknown command") {
		t.Errorf("Expected 'unknown command' error, got: %s", stderr)
	}
}

func TestVersion(t *testing.T) {
	stdout, _, code := runCLI(t, "", "version")
	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d", code)
	}
	if !strings.HasPrefix(stdout, "satchel ") {
		t.Errorf("Expected version line, got: %s", stdout)
	}
}
