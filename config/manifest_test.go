package config_test

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/vpktool/vpk/config"
	"github.com/vpktool/vpk/vpk"
)

func writeManifest(t *testing.T, body string) (path string, cleanup func()) {
	t.Helper()
	dir, err := ioutil.TempDir("", "vpktest-manifest")
	if err != nil {
		t.Fatalf("TempDir: %v", err)
	}
	path = filepath.Join(dir, "manifest.yml")
	if err := ioutil.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path, func() { os.RemoveAll(dir) }
}

func TestLoadAndPackOptions(t *testing.T) {
	path, cleanup := writeManifest(t, `
source: assets/
output: build/pak01
version: 2
strategy: max-archive-size
maxArchiveSize: 200M
maxInlineSize: 8K
alignment: 4096
md5ChunkSize: 1M
`)
	defer cleanup()
	m, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.Source != "assets/" || m.Output != "build/pak01" {
		t.Errorf("Source/Output = %q/%q", m.Source, m.Output)
	}
	opts, err := m.PackOptions()
	if err != nil {
		t.Fatalf("PackOptions: %v", err)
	}
	if opts.Version != 2 {
		t.Errorf("Version = %d, want 2", opts.Version)
	}
	if opts.Strategy != vpk.MaxArchiveSize {
		t.Errorf("Strategy = %v, want MaxArchiveSize", opts.Strategy)
	}
	if opts.MaxArchiveSize != 200*1024*1024 {
		t.Errorf("MaxArchiveSize = %d, want %d", opts.MaxArchiveSize, 200*1024*1024)
	}
	if opts.MaxInlineSize != 8*1024 {
		t.Errorf("MaxInlineSize = %d, want %d", opts.MaxInlineSize, 8*1024)
	}
	if opts.Alignment != 4096 {
		t.Errorf("Alignment = %d, want 4096", opts.Alignment)
	}
	if opts.Md5ChunkSize != 1024*1024 {
		t.Errorf("Md5ChunkSize = %d, want %d", opts.Md5ChunkSize, 1024*1024)
	}
}

func TestPackOptionsDefaultsWhenFieldsOmitted(t *testing.T) {
	m := &config.Manifest{}
	opts, err := m.PackOptions()
	if err != nil {
		t.Fatalf("PackOptions: %v", err)
	}
	want := vpk.DefaultPackOptions()
	if opts.Version != want.Version || opts.MaxInlineSize != want.MaxInlineSize {
		t.Errorf("empty manifest did not fall back to DefaultPackOptions: got %+v, want %+v", opts, want)
	}
}

func TestPackOptionsRejectsUnknownStrategy(t *testing.T) {
	m := &config.Manifest{Strategy: "not-a-strategy"}
	if _, err := m.PackOptions(); err == nil {
		t.Errorf("PackOptions accepted an unknown strategy")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := config.Load("/nonexistent/manifest.yml"); err == nil {
		t.Errorf("Load accepted a missing file")
	}
}
