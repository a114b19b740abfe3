package config

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func TestReport_Archive(t *testing.T) {
	dir := t.TempDir()
	reportName := filepath.Join(dir, "report.zip")

	r, err := (&ReporterConfig{Destination: reportName}).Prepare()
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}

	src := filepath.Join(dir, "project")
	if err := os.MkdirAll(filepath.Join(src, "tex_files"), 0755); err != nil {
		t.Fatalf("failed to create project: %v", err)
	}
	if err := os.WriteFile(filepath.Join(src, "tex_files", "a.tex"), []byte(`\section{A}`), 0644); err != nil {
		t.Fatalf("failed to write fragment: %v", err)
	}
	if err := os.WriteFile(filepath.Join(src, "adventure.tex"), []byte(`\input{tex_files/a.tex}`), 0644); err != nil {
		t.Fatalf("failed to write source: %v", err)
	}

	if err := r.StoreCopy("build/tex_files", filepath.Join(src, "tex_files")); err != nil {
		t.Fatalf("StoreCopy(dir) error = %v", err)
	}
	if err := r.StoreCopy("build/adventure.tex", filepath.Join(src, "adventure.tex")); err != nil {
		t.Fatalf("StoreCopy(file) error = %v", err)
	}
	r.StoreData("config/hexbook.yaml", []byte("version: 1\n"))

	// snapshot is taken at the time of the call
	if err := os.WriteFile(filepath.Join(src, "adventure.tex"), []byte("changed"), 0644); err != nil {
		t.Fatalf("failed to update source: %v", err)
	}

	if err := r.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	arc, err := zip.OpenReader(reportName)
	if err != nil {
		t.Fatalf("open report: %v", err)
	}
	defer arc.Close()

	var names []string
	for _, f := range arc.File {
		names = append(names, f.Name)
	}
	for _, want := range []string{"MANIFEST", "build/adventure.tex", "build/tex_files/a.tex", "config/hexbook.yaml"} {
		if !slices.Contains(names, want) {
			t.Errorf("report does not contain %s, got %v", want, names)
		}
	}
	if got := readZipEntry(t, arc, "build/adventure.tex"); got != `\input{tex_files/a.tex}` {
		t.Errorf("build/adventure.tex = %q, want content at the time of StoreCopy", got)
	}
}

func readZipEntry(t *testing.T, arc *zip.ReadCloser, name string) string {
	t.Helper()
	f, err := arc.Open(name)
	if err != nil {
		t.Fatalf("open %s in report: %v", name, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("read %s from report: %v", name, err)
	}
	return string(data)
}

func TestReport_LiveAndVersioned(t *testing.T) {
	dir := t.TempDir()
	reportName := filepath.Join(dir, "report.zip")

	r, err := (&ReporterConfig{Destination: reportName}).Prepare()
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}

	logName := filepath.Join(dir, "hexbook.log")
	if err := os.WriteFile(logName, []byte("started\n"), 0644); err != nil {
		t.Fatalf("failed to write log: %v", err)
	}
	r.Store("final.log", logName)
	r.Store("absent.log", filepath.Join(dir, "absent.log"))

	source := filepath.Join(dir, "adventure.tex")
	for _, content := range []string{"first", "second"} {
		if err := os.WriteFile(source, []byte(content), 0644); err != nil {
			t.Fatalf("failed to write source: %v", err)
		}
		if err := r.StoreCopy("build/adventure.tex", source); err != nil {
			t.Fatalf("StoreCopy() error = %v", err)
		}
	}

	// live entries are read when report is closed
	if err := os.WriteFile(logName, []byte("started\nfinished\n"), 0644); err != nil {
		t.Fatalf("failed to update log: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	arc, err := zip.OpenReader(reportName)
	if err != nil {
		t.Fatalf("open report: %v", err)
	}
	defer arc.Close()

	if got := readZipEntry(t, arc, "final.log"); got != "started\nfinished\n" {
		t.Errorf("final.log = %q", got)
	}
	var copies []string
	for _, f := range arc.File {
		switch {
		case f.Name == "absent.log":
			t.Error("absent live file must be skipped")
		case strings.HasPrefix(f.Name, "build/adventure.tex"):
			copies = append(copies, readZipEntry(t, arc, f.Name))
		}
	}
	slices.Sort(copies)
	if want := []string{"first", "second"}; !slices.Equal(copies, want) {
		t.Errorf("stored copies = %q, want %q", copies, want)
	}
}

func TestReport_StoreCopyMissing(t *testing.T) {
	r := &Report{entries: make(map[string]entry)}
	if err := r.StoreCopy("absent", filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Error("Expected error for missing path")
	}
}

func TestReportClose_NilReport(t *testing.T) {
	var r *Report
	if err := r.Close(); err != nil {
		t.Errorf("Close on nil report should not error, got: %v", err)
	}
	if err := r.StoreCopy("x", "y"); err != nil {
		t.Errorf("StoreCopy on nil report should not error, got: %v", err)
	}
	if r.Name() != "" {
		t.Errorf("Name of nil report = %q", r.Name())
	}
}

func TestReportClose_NilFile(t *testing.T) {
	r := &Report{entries: make(map[string]entry)}
	if err := r.Close(); err != nil {
		t.Errorf("Close with nil file should not error, got: %v", err)
	}
}
