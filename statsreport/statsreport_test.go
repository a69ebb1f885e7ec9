package statsreport_test

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vpktool/vpk/statsreport"
	"github.com/vpktool/vpk/vpk"
)

func writeFile(t *testing.T, root, rel string, size int) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := ioutil.WriteFile(full, make([]byte, size), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestCompute(t *testing.T) {
	srcDir, err := ioutil.TempDir("", "vpktest-src")
	if err != nil {
		t.Fatalf("TempDir: %v", err)
	}
	defer os.RemoveAll(srcDir)
	outDir, err := ioutil.TempDir("", "vpktest-out")
	if err != nil {
		t.Fatalf("TempDir: %v", err)
	}
	defer os.RemoveAll(outDir)

	writeFile(t, srcDir, "models/a.mdl", 10)
	writeFile(t, srcDir, "models/weapons/b.mdl", 20000)
	writeFile(t, srcDir, "materials/c.vmt", 5)

	opts := vpk.DefaultPackOptions()
	dirPath := filepath.Join(outDir, "pak01_dir.vpk")
	p, err := vpk.Pack(srcDir, dirPath, opts)
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}

	st := statsreport.Compute(p)
	if st.NumFiles != 3 {
		t.Errorf("NumFiles = %d, want 3", st.NumFiles)
	}
	if st.NumDirs != 3 {
		t.Errorf("NumDirs = %d, want 3", st.NumDirs)
	}
	if st.LargestFile != "models/weapons/b.mdl" {
		t.Errorf("LargestFile = %q, want models/weapons/b.mdl", st.LargestFile)
	}
	if st.LargestSize != 20000 {
		t.Errorf("LargestSize = %d, want 20000", st.LargestSize)
	}

	md := st.Markdown()
	if !strings.Contains(md, "Largest file") {
		t.Errorf("Markdown() missing largest-file line: %q", md)
	}
}
