package browse

import (
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vpktool/vpk/vpk"
)

func packSample(t *testing.T) (p *vpk.Package, cleanup func()) {
	t.Helper()
	srcDir, err := ioutil.TempDir("", "vpktest-src")
	if err != nil {
		t.Fatalf("TempDir: %v", err)
	}
	defer os.RemoveAll(srcDir)
	outDir, err := ioutil.TempDir("", "vpktest-out")
	if err != nil {
		t.Fatalf("TempDir: %v", err)
	}
	full := filepath.Join(srcDir, "models", "gun.mdl")
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := ioutil.WriteFile(full, []byte("gun model bytes"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	dirPath := filepath.Join(outDir, "pak01_dir.vpk")
	p, err = vpk.Pack(srcDir, dirPath, vpk.DefaultPackOptions())
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	return p, func() { os.RemoveAll(outDir) }
}

func TestHandleIndex(t *testing.T) {
	p, cleanup := packSample(t)
	defer cleanup()
	s := New(p)
	srv := httptest.NewServer(s.mux())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET / status = %d", resp.StatusCode)
	}
	body, _ := ioutil.ReadAll(resp.Body)
	if !strings.Contains(string(body), "models/gun.mdl") {
		t.Errorf("index page missing entry path: %s", body)
	}
}

func TestHandleStats(t *testing.T) {
	p, cleanup := packSample(t)
	defer cleanup()
	s := New(p)
	srv := httptest.NewServer(s.mux())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/stats")
	if err != nil {
		t.Fatalf("GET /stats: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /stats status = %d", resp.StatusCode)
	}
	body, _ := ioutil.ReadAll(resp.Body)
	if !strings.Contains(string(body), "Files") {
		t.Errorf("stats page missing figures: %s", body)
	}
}

func TestHandleFile(t *testing.T) {
	p, cleanup := packSample(t)
	defer cleanup()
	s := New(p)
	srv := httptest.NewServer(s.mux())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/files/models/gun.mdl")
	if err != nil {
		t.Fatalf("GET /files/models/gun.mdl: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /files/models/gun.mdl status = %d", resp.StatusCode)
	}
	body, _ := ioutil.ReadAll(resp.Body)
	if string(body) != "gun model bytes" {
		t.Errorf("GET /files/models/gun.mdl body = %q, want %q", body, "gun model bytes")
	}
}

func TestHandleFileMissing(t *testing.T) {
	p, cleanup := packSample(t)
	defer cleanup()
	s := New(p)
	srv := httptest.NewServer(s.mux())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/files/nope.txt")
	if err != nil {
		t.Fatalf("GET /files/nope.txt: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("GET /files/nope.txt status = %d, want 404", resp.StatusCode)
	}
}
