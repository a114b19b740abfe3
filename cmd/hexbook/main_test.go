package main

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"hexbook/state"
)

const quietConfig = `version: 1
logging:
  console:
    level: none
  file:
    level: none
`

func writeFile(t *testing.T, fname, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(fname), 0755); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}
	if err := os.WriteFile(fname, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", fname, err)
	}
}

func runApp(t *testing.T, args ...string) error {
	t.Helper()
	ctx := state.ContextWithEnv(context.Background())
	return newApp().Run(ctx, append([]string{"hexbook"}, args...))
}

func TestDumpConfig_Default(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "quiet.yaml")
	writeFile(t, cfgFile, quietConfig)

	out := filepath.Join(dir, "default.yaml")
	if err := runApp(t, "--config", cfgFile, "dumpconfig", "--default", out); err != nil {
		t.Fatalf("dumpconfig error = %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read dumped configuration: %v", err)
	}
	for _, want := range []string{"included_hexes", "hex_key.tex.j2", "pdflatex"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("default configuration does not mention %q", want)
		}
	}
}

func TestBuild_EndToEnd(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh is not available")
	}

	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "hexbook.yaml")
	// every typesetting pass appends a line so we can count them
	writeFile(t, cfgFile, quietConfig+`compiler:
  command: sh
  args: ["-c", "echo \"$0\" >> passes.txt"]
`)
	project := filepath.Join(dir, "adventure")
	writeFile(t, filepath.Join(project, "included_hexes.yml"), "included_hexes: [a.yml]\n")
	writeFile(t, filepath.Join(project, "hexes", "a.yml"), "hex:\n  name: Ruined Tower\n")
	writeFile(t, filepath.Join(project, "templates", "hex_key.tex.j2"), "\\section{\\VAR{.hex.name}}\n")
	writeFile(t, filepath.Join(project, "templates", "main.tex.j2"), "\\BLOCK{range .hexes}\n\\input{\\VAR{.}}\n\\BLOCK{end}\n")

	if err := runApp(t, "--config", cfgFile, "build", project); err != nil {
		t.Fatalf("build error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(project, "adventure.tex"))
	if err != nil {
		t.Fatalf("read master document: %v", err)
	}
	if string(data) != "\\input{tex_files/a.tex}\n" {
		t.Errorf("adventure.tex = %q", data)
	}

	passes, err := os.ReadFile(filepath.Join(project, "passes.txt"))
	if err != nil {
		t.Fatalf("typesetting did not run: %v", err)
	}
	if string(passes) != "adventure.tex\nadventure.tex\n" {
		t.Errorf("passes.txt = %q, want two passes over adventure.tex", passes)
	}
}

func TestBuild_MissingManifest(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "quiet.yaml")
	writeFile(t, cfgFile, quietConfig)

	if err := runApp(t, "--config", cfgFile, "build", dir); err == nil {
		t.Error("Expected error for project without manifest")
	}
}
