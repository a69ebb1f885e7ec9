package vpk_test

import (
	"bytes"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/vpktool/vpk/vpk"
)

func writeSourceFile(t *testing.T, root, rel string, data []byte) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := ioutil.WriteFile(full, data, 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func readFull(t *testing.T, p *vpk.Package, path string) []byte {
	t.Helper()
	entry, err := p.Lookup(path)
	if err != nil {
		t.Fatalf("Lookup(%q): %v", path, err)
	}
	if !entry.IsFile() {
		t.Fatalf("Lookup(%q) is not a file", path)
	}
	cache := vpk.NewArchiveCache(p.Dir, p.Prefix, vpk.ForReading)
	defer cache.Close()
	data, err := entry.File.ReadRange(cache, 0, entry.File.FullSize())
	if err != nil {
		t.Fatalf("ReadRange(%q): %v", path, err)
	}
	return data
}

// small is entirely inline under the default 8 KiB threshold; large
// exceeds the 16-byte MaxInlineSize several tests below use, so those
// tests see it fully archived.
var small = []byte("small file contents")

func makeLarge() []byte {
	data := make([]byte, 4096)
	for i := range data {
		data[i] = byte(i % 251)
	}
	return data
}

func TestPackOpenRoundTripV1(t *testing.T) {
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

	writeSourceFile(t, srcDir, "models/weapons/gun.mdl", makeLarge())
	writeSourceFile(t, srcDir, "materials/metal/floor.vmt", small)

	opts := vpk.DefaultPackOptions()
	opts.MaxInlineSize = 16

	dirPath := filepath.Join(outDir, "pak01_dir.vpk")
	p, err := vpk.Pack(srcDir, dirPath, opts)
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}

	p2, err := vpk.Open(dirPath, vpk.OpenOptions{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	got := readFull(t, p2, "models/weapons/gun.mdl")
	if !bytes.Equal(got, makeLarge()) {
		t.Errorf("round-tripped gun.mdl content mismatch (%d bytes got, %d want)", len(got), len(makeLarge()))
	}
	got2 := readFull(t, p2, "materials/metal/floor.vmt")
	if !bytes.Equal(got2, small) {
		t.Errorf("round-tripped floor.vmt content mismatch: got %q, want %q", got2, small)
	}

	records := vpk.Walk(p.Root, vpk.CanonicalOrder)
	records2 := vpk.Walk(p2.Root, vpk.CanonicalOrder)
	if len(records) != len(records2) {
		t.Fatalf("record count mismatch: packed %d, reopened %d", len(records), len(records2))
	}
	for i := range records {
		if records[i].Path != records2[i].Path {
			t.Errorf("record %d path mismatch: packed %q, reopened %q", i, records[i].Path, records2[i].Path)
		}
		if records[i].File.CRC32 != records2[i].File.CRC32 {
			t.Errorf("record %d CRC32 mismatch: packed %#x, reopened %#x", i, records[i].File.CRC32, records2[i].File.CRC32)
		}
	}
}

func TestPackV2FinalizationRoundTrip(t *testing.T) {
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

	writeSourceFile(t, srcDir, "models/weapons/gun.mdl", makeLarge())
	writeSourceFile(t, srcDir, "materials/metal/floor.vmt", small)

	opts := vpk.DefaultPackOptions()
	opts.Version = 2
	opts.MaxInlineSize = 16
	opts.Md5ChunkSize = 256

	dirPath := filepath.Join(outDir, "pak01_dir.vpk")
	if _, err := vpk.Pack(srcDir, dirPath, opts); err != nil {
		t.Fatalf("Pack: %v", err)
	}

	p, err := vpk.Open(dirPath, vpk.OpenOptions{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !p.HasIndexMd5 || !p.HasArchiveMd5sMd5 || !p.HasEverythingMd5 {
		t.Fatalf("V2 package missing one of the three MD5 sections: %+v", p)
	}
	if len(p.ArchiveMd5Chunks) == 0 {
		t.Fatalf("V2 package has no archive MD5 chunks despite archived content")
	}

	cache := vpk.NewArchiveCache(p.Dir, p.Prefix, vpk.ForReading)
	defer cache.Close()
	report, err := vpk.Check(p, cache, vpk.CheckOptions{})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !report.OK() {
		t.Fatalf("Check reported failures on a freshly packed V2 archive: %+v", report)
	}
}

func TestPackAlignment(t *testing.T) {
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

	sizes := []int{4096, 100, 4096, 777}
	for i, n := range sizes {
		data := make([]byte, n)
		for j := range data {
			data[j] = byte((i*31 + j) % 251)
		}
		writeSourceFile(t, srcDir, filepath.ToSlash(filepath.Join("models", string(rune('a'+i))+".mdl")), data)
	}

	opts := vpk.DefaultPackOptions()
	opts.MaxInlineSize = 0
	opts.Alignment = 512

	dirPath := filepath.Join(outDir, "pak01_dir.vpk")
	p, err := vpk.Pack(srcDir, dirPath, opts)
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}

	cache := vpk.NewArchiveCache(p.Dir, p.Prefix, vpk.ForReading)
	defer cache.Close()
	report, err := vpk.Check(p, cache, vpk.CheckOptions{Alignment: 512})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !report.OK() {
		t.Fatalf("Check reported misaligned or corrupt content: %+v", report)
	}
}

func TestPackMaxArchiveSizeRollsOver(t *testing.T) {
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

	for i := 0; i < 5; i++ {
		writeSourceFile(t, srcDir, filepath.ToSlash(filepath.Join("models", string(rune('a'+i))+".mdl")), makeLarge())
	}

	opts := vpk.DefaultPackOptions()
	opts.MaxInlineSize = 0
	opts.MaxArchiveSize = 4096 // one file's worth; forces a new archive per file

	dirPath := filepath.Join(outDir, "pak01_dir.vpk")
	p, err := vpk.Pack(srcDir, dirPath, opts)
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}

	archives := map[uint16]bool{}
	for _, rec := range vpk.Walk(p.Root, nil) {
		archives[rec.File.ArchiveIndex] = true
	}
	if len(archives) < 2 {
		t.Errorf("expected multiple numbered archives under a tight MaxArchiveSize, got %d", len(archives))
	}
}

func TestPackArchiveFromDirName(t *testing.T) {
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

	writeSourceFile(t, srcDir, "dir/models/gun.mdl", makeLarge())
	writeSourceFile(t, srcDir, "inline/materials/floor.vmt", small)
	writeSourceFile(t, srcDir, "000/sounds/boom.wav", makeLarge())

	opts := vpk.DefaultPackOptions()
	opts.Strategy = vpk.ArchiveFromDirName
	opts.MaxInlineSize = 16

	dirPath := filepath.Join(outDir, "pak01_dir.vpk")
	p, err := vpk.Pack(srcDir, dirPath, opts)
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}

	if _, err := os.Stat(vpk.ArchivePath(p.Dir, p.Prefix, 0)); err != nil {
		t.Errorf("numbered archive pak01_000.vpk was not created: %v", err)
	}

	dirEntry, err := p.Lookup("models/gun.mdl")
	if err != nil {
		t.Fatalf("Lookup(models/gun.mdl): %v", err)
	}
	if dirEntry.File.ArchiveIndex != vpk.DirIndex {
		t.Errorf("dir/ file routed to archive %d, want DirIndex", dirEntry.File.ArchiveIndex)
	}

	inlineEntry, err := p.Lookup("materials/floor.vmt")
	if err != nil {
		t.Fatalf("Lookup(materials/floor.vmt): %v", err)
	}
	if inlineEntry.File.ArchiveIndex != vpk.DirIndex || inlineEntry.File.Size != 0 {
		t.Errorf("inline/ file not fully inlined: archive=%d size=%d", inlineEntry.File.ArchiveIndex, inlineEntry.File.Size)
	}

	numberedEntry, err := p.Lookup("sounds/boom.wav")
	if err != nil {
		t.Fatalf("Lookup(sounds/boom.wav): %v", err)
	}
	if numberedEntry.File.ArchiveIndex != 0 {
		t.Errorf("000/ file routed to archive %d, want 0", numberedEntry.File.ArchiveIndex)
	}
}

func TestPackInlineFolderBoundary(t *testing.T) {
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

	// 65535 bytes is the largest payload a u16 inline_size can carry,
	// and the largest file the gather pass accepts under inline/.
	edge := make([]byte, 65535)
	for i := range edge {
		edge[i] = byte(i % 253)
	}
	writeSourceFile(t, srcDir, "inline/materials/edge.vmt", edge)

	opts := vpk.DefaultPackOptions()
	opts.Strategy = vpk.ArchiveFromDirName

	dirPath := filepath.Join(outDir, "pak01_dir.vpk")
	p, err := vpk.Pack(srcDir, dirPath, opts)
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}

	entry, err := p.Lookup("materials/edge.vmt")
	if err != nil {
		t.Fatalf("Lookup(materials/edge.vmt): %v", err)
	}
	if entry.File.InlineSize != 65535 || entry.File.Size != 0 {
		t.Errorf("65535-byte inline/ file not fully inlined: inline=%d size=%d",
			entry.File.InlineSize, entry.File.Size)
	}

	p2, err := vpk.Open(dirPath, vpk.OpenOptions{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got := readFull(t, p2, "materials/edge.vmt"); !bytes.Equal(got, edge) {
		t.Errorf("round-tripped edge.vmt content mismatch (%d bytes got, %d want)", len(got), len(edge))
	}
}

func TestPackInlineFolderRejectsOversize(t *testing.T) {
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

	writeSourceFile(t, srcDir, "inline/materials/big.vmt", make([]byte, 65536))

	opts := vpk.DefaultPackOptions()
	opts.Strategy = vpk.ArchiveFromDirName

	dirPath := filepath.Join(outDir, "pak01_dir.vpk")
	if _, err := vpk.Pack(srcDir, dirPath, opts); err == nil {
		t.Fatalf("Pack accepted a 65536-byte file under inline/")
	}
}

func TestCheckDetectsCorruption(t *testing.T) {
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

	// Two files under a tight MaxArchiveSize: the dir file's header and
	// index count toward the cap, so neither fits in its data tail;
	// axe.mdl rolls over into pak01_000.vpk and gun.mdl into
	// pak01_001.vpk.
	writeSourceFile(t, srcDir, "models/weapons/axe.mdl", makeLarge())
	writeSourceFile(t, srcDir, "models/weapons/gun.mdl", makeLarge())

	opts := vpk.DefaultPackOptions()
	opts.MaxInlineSize = 0
	opts.MaxArchiveSize = 4096

	dirPath := filepath.Join(outDir, "pak01_dir.vpk")
	p, err := vpk.Pack(srcDir, dirPath, opts)
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}

	archivePath := vpk.ArchivePath(p.Dir, p.Prefix, 0)
	data, err := ioutil.ReadFile(archivePath)
	if err != nil {
		t.Fatalf("ReadFile(%q): %v", archivePath, err)
	}
	data[0] ^= 0xff
	if err := ioutil.WriteFile(archivePath, data, 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cache := vpk.NewArchiveCache(p.Dir, p.Prefix, vpk.ForReading)
	defer cache.Close()
	report, err := vpk.Check(p, cache, vpk.CheckOptions{})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if report.OK() {
		t.Fatalf("Check did not detect corrupted archive content")
	}
	failed := 0
	for _, fc := range report.Files {
		if fc.Err != nil {
			failed++
		}
	}
	if failed != 1 {
		t.Errorf("Check reported %d failing files, want exactly 1: %+v", failed, report.Files)
	}
}
