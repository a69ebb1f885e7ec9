package vpk

import (
	"bytes"
	"crypto/md5"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/vpktool/vpk/errors"
	"github.com/vpktool/vpk/log"
)

// Strategy selects how the packer decides which archive a file's
// bytes land in.
type Strategy int

const (
	// MaxArchiveSize packs files into a single logical stream, rolling
	// over to a fresh numbered archive whenever the current one would
	// exceed MaxArchiveSize.
	MaxArchiveSize Strategy = iota
	// ArchiveFromDirName reads the target archive off each top-level
	// source folder's name: "dir" selects DirIndex, "inline" selects
	// DirIndex and forces full inlining, and a three-digit folder name
	// selects that numbered archive.
	ArchiveFromDirName
)

// PackOptions controls the packer's layout decisions.
type PackOptions struct {
	Version        uint32 // 1 or 2
	Strategy       Strategy
	MaxArchiveSize int64 // bytes; 0 means unbounded (single archive)
	MaxInlineSize  int64 // bytes; upper bound on inline_size
	Alignment      int64 // bytes; 0 disables alignment
	Md5ChunkSize   int64 // V2 only; bytes per MD5 chunk
}

// DefaultPackOptions returns the packer's defaults: V1, MaxArchiveSize
// with no cap, 8 KiB inline threshold, no alignment.
func DefaultPackOptions() PackOptions {
	return PackOptions{
		Version:       1,
		Strategy:      MaxArchiveSize,
		MaxInlineSize: DefaultMaxInlineSize,
		Md5ChunkSize:  DefaultMd5ChunkSize,
	}
}

// gathered is one source file discovered by the gather pass, before
// its offset (and, for MaxArchiveSize, its archive) is decided.
type gathered struct {
	Ext, Dir, Name  string
	SourcePath      string
	Size            int64
	CRC32           uint32
	Preload         []byte
	ArchiveFixed    bool   // true if ArchiveFromDirName already chose the archive
	Archive         uint16 // valid iff ArchiveFixed
	forceFullInline bool   // true if the file lived under an ArchiveFromDirName "inline/" folder
}

var numberedFolder = regexp.MustCompile(`^[0-9]{3}$`)

// Pack scans srcDir and writes a self-consistent package to
// dirFilePath (and, as needed, numbered archives beside it). The
// returned Package holds the same tree, offsets and CRCs a fresh Open
// of dirFilePath parses; its File.Index values follow gather order
// rather than index order, and its V2 ArchiveMd5Chunks stay in write
// order rather than Open's sorted order.
func Pack(srcDir, dirFilePath string, opts PackOptions) (*Package, error) {
	const op = "Pack"
	if opts.Version != 1 && opts.Version != 2 {
		return nil, errors.E(op, errors.IllegalArgument,
			errors.Argument("version"), errors.Given(strconv.Itoa(int(opts.Version))))
	}
	dir, prefix, err := SplitPrefix(dirFilePath)
	if err != nil {
		return nil, errors.E(op, err)
	}

	files, err := gather(srcDir, opts)
	if err != nil {
		return nil, errors.E(op, err)
	}

	maxInline := opts.MaxInlineSize
	if maxInline > 65535 {
		maxInline = 65535
	}

	root := newDirEntry()
	for i, g := range files {
		// Inlining is all or nothing: a file either fits entirely in
		// the index as preload or its payload goes to an archive whole.
		// Files under an ArchiveFromDirName inline/ folder are inlined
		// regardless of MaxInlineSize.
		// InlineSize is a u16, so 65535 is the largest legal preload;
		// gather enforces the same bound for inline/ files.
		var inlineSize int64
		if g.forceFullInline || g.Size <= maxInline {
			inlineSize = g.Size
		}
		if inlineSize > 65535 {
			inlineSize = 65535
		}
		if g.Size-inlineSize > 0x7FFFFFFF {
			return nil, errors.E(op, errors.Path(JoinEntryPath(g.Ext, g.Dir, g.Name)),
				errors.IllegalArgument, errors.Argument("size"),
				errors.Given(strconv.FormatInt(g.Size, 10)),
				errors.Str("archived payload exceeds the format's 2 GiB limit"))
		}
		f := &File{
			CRC32:      g.CRC32,
			InlineSize: uint16(inlineSize),
			Size:       uint32(g.Size - inlineSize),
			Preload:    g.Preload[:inlineSize],
			Index:      i,
		}
		if g.ArchiveFixed {
			f.ArchiveIndex = g.Archive
		} else {
			// The MaxArchiveSize stream starts in the dir file; layout
			// reassigns archived files as the stream rolls over, while
			// fully inlined files keep DirIndex.
			f.ArchiveIndex = DirIndex
		}
		if err := Insert(root, g.Ext, g.Dir, g.Name, f); err != nil {
			return nil, errors.E(op, err)
		}
	}

	records := Walk(root, CanonicalOrder)

	indexSize := computeIndexSize(records)
	var headerSize int64
	if opts.Version == 2 {
		headerSize = V2HeaderSize
	} else {
		headerSize = V1HeaderSize
	}
	dataOffset := headerSize + indexSize

	if err := layout(records, opts, dataOffset); err != nil {
		return nil, errors.E(op, err)
	}

	// Map canonical path back to its source file for emission.
	sourceByPath := make(map[string]string, len(files))
	for _, g := range files {
		sourceByPath[JoinEntryPath(g.Ext, g.Dir, g.Name)] = g.SourcePath
	}

	p := &Package{
		DirPath:    dirFilePath,
		Dir:        dir,
		Prefix:     prefix,
		Version:    opts.Version,
		HeaderSize: headerSize,
		IndexSize:  indexSize,
		DataOffset: dataOffset,
		Root:       root,
	}

	if err := emit(p, records, sourceByPath, opts); err != nil {
		return nil, errors.E(op, err)
	}

	if opts.Version == 2 {
		if err := finalizeV2(p, records, sourceByPath, opts); err != nil {
			return nil, errors.E(op, err)
		}
	}

	return p, nil
}

// gather walks srcDir and produces one entry per regular file, with a
// streamed CRC32 and, for files small enough to become preload, a copy
// of their bytes; archived payload is re-read from SourcePath during
// emission. Filenames without an extension, at the VPK root, or
// starting/ending with '.' are rejected outright: these are pass-1
// errors and fatal.
func gather(srcDir string, opts PackOptions) ([]gathered, error) {
	switch opts.Strategy {
	case ArchiveFromDirName:
		return gatherArchiveFromDirName(srcDir)
	default:
		return gatherMaxArchiveSize(srcDir)
	}
}

func gatherMaxArchiveSize(srcDir string) ([]gathered, error) {
	const op = "gather"
	var out []gathered
	err := filepath.Walk(srcDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		g, err := gatherOne(path, rel)
		if err != nil {
			return err
		}
		out = append(out, g)
		return nil
	})
	if err != nil {
		return nil, errors.E(op, errors.IO, err)
	}
	return out, nil
}

func gatherArchiveFromDirName(srcDir string) ([]gathered, error) {
	const op = "gather"
	topEntries, err := readDirNames(srcDir)
	if err != nil {
		return nil, errors.E(op, errors.Path(srcDir), errors.IO, err)
	}
	var out []gathered
	for _, top := range topEntries {
		var archive uint16
		forceInline := false
		switch {
		case top == "dir":
			archive = DirIndex
		case top == "inline":
			archive = DirIndex
			forceInline = true
		case numberedFolder.MatchString(top):
			n, _ := strconv.Atoi(top)
			archive = uint16(n)
		default:
			log.Printf("vpk: skipping top-level folder %q: not \"dir\", \"inline\", or a three-digit archive number", top)
			continue
		}
		topPath := filepath.Join(srcDir, top)
		err := filepath.Walk(topPath, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				return nil
			}
			rel, err := filepath.Rel(topPath, path)
			if err != nil {
				return err
			}
			rel = filepath.ToSlash(rel)
			g, err := gatherOne(path, rel)
			if err != nil {
				return err
			}
			if forceInline && g.Size > 65535 {
				return errors.E(op, errors.Path(rel), errors.IllegalArgument,
					errors.Argument("size"), errors.Given(strconv.FormatInt(g.Size, 10)),
					errors.Str("files under \"inline/\" must be at most 65535 bytes"))
			}
			g.ArchiveFixed = true
			g.Archive = archive
			if forceInline {
				g.forceFullInline = true
			}
			out = append(out, g)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func readDirNames(dir string) ([]string, error) {
	entries, err := ioutil.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

func gatherOne(sourcePath, relPath string) (gathered, error) {
	const op = "gatherOne"
	ext, dir, name, err := SplitEntryPath(relPath)
	if err != nil {
		return gathered{}, errors.E(op, errors.Path(relPath), err)
	}
	if name[0] == '.' {
		return gathered{}, errors.E(op, errors.Path(relPath), errors.IllegalArgument,
			errors.Argument("path"), errors.Given(relPath),
			errors.Str("file name must not start with '.'"))
	}

	f, err := os.Open(sourcePath)
	if err != nil {
		return gathered{}, errors.E(op, errors.Path(sourcePath), errors.IO, err)
	}
	defer f.Close()

	sum := newCRC32()
	var size int64
	var kept []byte
	buf := make([]byte, BufferSize)
	for {
		n, err := f.Read(buf)
		if n > 0 {
			sum.Write(buf[:n])
			size += int64(n)
			// Keep the bytes around only while the file could still be
			// inlined; anything past the largest possible preload is
			// re-read from SourcePath during emission anyway.
			if size <= 65535 {
				kept = append(kept, buf[:n]...)
			} else {
				kept = nil
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return gathered{}, errors.E(op, errors.Path(sourcePath), errors.IO, err)
		}
	}

	return gathered{
		Ext: ext, Dir: dir, Name: name,
		SourcePath: sourcePath,
		Size:       size,
		CRC32:      sum.Sum32(),
		Preload:    kept,
	}, nil
}

// computeIndexSize returns the exact byte length of the index body
// for records (which must already be in canonical order): the nested
// ext/dir/name cstring grammar plus each fixed-size file record and
// its preload, each level's loop closed by a single NUL terminator.
func computeIndexSize(records []FileRecord) int64 {
	var size int64
	i := 0
	for i < len(records) {
		ext := records[i].Ext
		size += sizeOfCString(ext)
		j := i
		for j < len(records) && records[j].Ext == ext {
			dir := records[j].Dir
			size += sizeOfCString(dir)
			k := j
			for k < len(records) && records[k].Ext == ext && records[k].Dir == dir {
				size += sizeOfCString(records[k].Name)
				size += fileRecordSize
				size += int64(records[k].File.InlineSize)
				k++
			}
			size++ // name-list terminator
			j = k
		}
		size++ // dir-list terminator
		i = j
	}
	size++ // ext-list terminator
	return size
}

// layout assigns every record's ArchiveIndex (MaxArchiveSize only; for
// ArchiveFromDirName it is already fixed) and Offset, walking records
// in canonical order as required by the offset-monotonicity
// invariant. Offsets, like every in-memory File.Offset, are absolute
// within their archive file: the dir file's data tail starts at
// dataOffset, a numbered archive's at zero. Alignment is applied to
// that absolute value.
func layout(records []FileRecord, opts PackOptions, dataOffset int64) error {
	const op = "layout"

	if opts.Strategy == ArchiveFromDirName {
		running := map[uint16]int64{DirIndex: dataOffset}
		for _, rec := range records {
			f := rec.File
			if f.Size == 0 {
				continue
			}
			pos := running[f.ArchiveIndex]
			if opts.Alignment > 0 {
				pos = roundUp(pos, opts.Alignment)
			}
			f.Offset = uint32(pos)
			running[f.ArchiveIndex] = pos + int64(f.Size)
		}
		return nil
	}

	// MaxArchiveSize: one logical stream, starting in the dir file
	// (whose header and index count toward the cap), rolling into
	// numbered archives as the cap fills. A file that cannot fit opens
	// the next archive and goes there whole, even if it alone exceeds
	// the cap.
	curArchive := DirIndex
	archiveSize := dataOffset
	for _, rec := range records {
		f := rec.File
		if f.Size == 0 {
			continue
		}
		if opts.Alignment > 0 {
			archiveSize = roundUp(archiveSize, opts.Alignment)
		}
		size := int64(f.Size)
		if opts.MaxArchiveSize > 0 && archiveSize+size > opts.MaxArchiveSize {
			switch {
			case curArchive == DirIndex:
				curArchive = 0
			case int(curArchive) >= MaxArchiveIndex:
				return errors.E(op, errors.IllegalArgument,
					errors.Argument("max-archive-size"),
					errors.Str("too many archives required"))
			default:
				curArchive++
			}
			f.Offset = 0
			archiveSize = size
		} else {
			f.Offset = uint32(archiveSize)
			archiveSize += size
		}
		f.ArchiveIndex = curArchive
	}
	return nil
}

func roundUp(v, align int64) int64 {
	if v%align == 0 {
		return v
	}
	return v + (align - v%align)
}

// emit creates the dir file (header + canonical index + DirIndex
// payload tail) and every numbered archive the layout referenced,
// streaming each file's archived bytes from its source file.
func emit(p *Package, records []FileRecord, sourceByPath map[string]string, opts PackOptions) error {
	const op = "emit"
	dirFile, err := os.Create(p.DirPath)
	if err != nil {
		return errors.E(op, errors.Path(p.DirPath), errors.IO, err)
	}
	defer dirFile.Close()

	if err := writeHeaderPlaceholder(dirFile, p); err != nil {
		return errors.E(op, err)
	}
	written, err := writeIndex(dirFile, records, p.DataOffset)
	if err != nil {
		return errors.E(op, err)
	}
	if written != p.IndexSize {
		return errors.E(op, errors.SanityCheckFailed,
			errors.Str("written index length does not match computed index_size"))
	}

	cache := NewArchiveCache(p.Dir, p.Prefix, ForWriting)
	defer cache.Close()

	for _, rec := range records {
		f := rec.File
		if f.Size == 0 {
			continue
		}
		src, err := os.Open(sourceByPath[rec.Path])
		if err != nil {
			return errors.E(op, errors.Path(rec.Path), errors.IO, err)
		}
		if f.ArchiveIndex == DirIndex {
			if _, err := dirFile.Seek(int64(f.Offset), io.SeekStart); err != nil {
				src.Close()
				return errors.E(op, errors.Path(rec.Path), errors.IO, err)
			}
			if err := transfer(dirFile, src, int64(f.InlineSize), int64(f.Size)); err != nil {
				src.Close()
				return errors.E(op, errors.Path(rec.Path), err)
			}
		} else {
			dst, err := cache.Get(f.ArchiveIndex)
			if err != nil {
				src.Close()
				return errors.E(op, err)
			}
			if _, err := dst.Seek(int64(f.Offset), io.SeekStart); err != nil {
				src.Close()
				return errors.E(op, errors.Path(rec.Path), errors.IO, err)
			}
			if err := transfer(dst, src, int64(f.InlineSize), int64(f.Size)); err != nil {
				src.Close()
				return errors.E(op, errors.Path(rec.Path), err)
			}
		}
		src.Close()
	}
	return nil
}

func writeHeaderPlaceholder(w io.Writer, p *Package) error {
	if err := writeUint32(w, Magic); err != nil {
		return err
	}
	if err := writeUint32(w, p.Version); err != nil {
		return err
	}
	if err := writeUint32(w, uint32(p.IndexSize)); err != nil {
		return err
	}
	if p.Version == 2 {
		for i := 0; i < 4; i++ {
			if err := writeUint32(w, 0); err != nil {
				return err
			}
		}
	}
	return nil
}

// countingWriter tracks how many bytes have passed through it, so
// emit can assert the index it wrote matches computeIndexSize.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

func writeIndex(w io.Writer, records []FileRecord, dataOffset int64) (int64, error) {
	cw := &countingWriter{w: w}
	i := 0
	for i < len(records) {
		ext := records[i].Ext
		if err := writeCString(cw, ext); err != nil {
			return cw.n, err
		}
		j := i
		for j < len(records) && records[j].Ext == ext {
			dir := records[j].Dir
			if err := writeCString(cw, dir); err != nil {
				return cw.n, err
			}
			k := j
			for k < len(records) && records[k].Ext == ext && records[k].Dir == dir {
				rec := records[k]
				if err := writeCString(cw, rec.Name); err != nil {
					return cw.n, err
				}
				if err := writeFileRecord(cw, rec.File, dataOffset); err != nil {
					return cw.n, err
				}
				k++
			}
			if err := writeCString(cw, ""); err != nil {
				return cw.n, err
			}
			j = k
		}
		if err := writeCString(cw, ""); err != nil {
			return cw.n, err
		}
		i = j
	}
	if err := writeCString(cw, ""); err != nil {
		return cw.n, err
	}
	return cw.n, nil
}

func writeFileRecord(w io.Writer, f *File, dataOffset int64) error {
	if err := writeUint32(w, f.CRC32); err != nil {
		return err
	}
	if err := writeUint16(w, f.InlineSize); err != nil {
		return err
	}
	if err := writeUint16(w, f.ArchiveIndex); err != nil {
		return err
	}
	onDiskOffset := f.Offset
	if f.ArchiveIndex == DirIndex {
		// The single choke point for the inverse of Open's
		// normalization: in-memory offsets are absolute, on disk
		// they're relative to data_offset.
		onDiskOffset -= uint32(dataOffset)
	}
	if err := writeUint32(w, onDiskOffset); err != nil {
		return err
	}
	if err := writeUint32(w, f.Size); err != nil {
		return err
	}
	if err := writeUint16(w, Terminator); err != nil {
		return err
	}
	_, err := w.Write(f.Preload)
	return err
}

// finalizeV2 appends the three MD5 sections a V2 package carries
// beyond what emit already wrote: the per-chunk archive MD5 table,
// then index_md5 and archive_md5s_md5, then (once the header's size
// quadruple is patched in) everything_md5. It runs after emit has
// closed every file it touched, re-opening each one in turn.
func finalizeV2(p *Package, records []FileRecord, sourceByPath map[string]string, opts PackOptions) error {
	const op = "finalizeV2"

	fi, err := os.Stat(p.DirPath)
	if err != nil {
		return errors.E(op, errors.Path(p.DirPath), errors.IO, err)
	}
	p.DataSize = uint32(fi.Size() - p.DataOffset)

	chunkSize := opts.Md5ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultMd5ChunkSize
	}

	var chunks []ArchiveMd5Chunk
	var table bytes.Buffer
	// Chunk offsets are recorded as read: absolute within the dir file
	// (the data tail starts at base = DataOffset there), from zero in a
	// numbered archive.
	hashStream := func(archiveIndex uint16, path string, base, length int64) error {
		offset := base
		end := base + length
		for offset < end {
			size := chunkSize
			if size > end-offset {
				size = end - offset
			}
			sum, err := md5OfRange(path, offset, size)
			if err != nil {
				return errors.E(op, errors.Path(path), errors.IO, err)
			}
			chunk := ArchiveMd5Chunk{
				ArchiveIndex: uint32(archiveIndex),
				Offset:       uint32(offset),
				Size:         uint32(size),
				MD5:          sum,
			}
			chunks = append(chunks, chunk)
			if err := writeUint32(&table, chunk.ArchiveIndex); err != nil {
				return err
			}
			if err := writeUint32(&table, chunk.Offset); err != nil {
				return err
			}
			if err := writeUint32(&table, chunk.Size); err != nil {
				return err
			}
			if _, err := table.Write(chunk.MD5[:]); err != nil {
				return errors.E(op, errors.IO, err)
			}
			offset += size
		}
		return nil
	}

	// DirIndex's data tail is hashed first, then every referenced
	// numbered archive in ascending order, matching Check's expected
	// chunk ordering.
	if err := hashStream(DirIndex, p.DirPath, p.DataOffset, int64(p.DataSize)); err != nil {
		return err
	}

	archiveSet := make(map[uint16]bool)
	for _, rec := range records {
		if rec.File.Size > 0 && rec.File.ArchiveIndex != DirIndex {
			archiveSet[rec.File.ArchiveIndex] = true
		}
	}
	indices := make([]uint16, 0, len(archiveSet))
	for idx := range archiveSet {
		indices = append(indices, idx)
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })

	for _, idx := range indices {
		path := ArchivePath(p.Dir, p.Prefix, idx)
		afi, err := os.Stat(path)
		if err != nil {
			return errors.E(op, errors.Path(path), errors.IO, err)
		}
		if err := hashStream(idx, path, 0, afi.Size()); err != nil {
			return err
		}
	}

	p.ArchiveMd5Chunks = chunks
	p.ArchiveMd5TableRaw = table.Bytes()
	p.ArchiveMd5Size = uint32(len(p.ArchiveMd5TableRaw))

	dirFile, err := os.OpenFile(p.DirPath, os.O_RDWR, 0644)
	if err != nil {
		return errors.E(op, errors.Path(p.DirPath), errors.IO, err)
	}
	defer dirFile.Close()

	if _, err := dirFile.Seek(0, io.SeekEnd); err != nil {
		return errors.E(op, errors.IO, err)
	}
	if _, err := dirFile.Write(p.ArchiveMd5TableRaw); err != nil {
		return errors.E(op, errors.IO, err)
	}

	indexMd5, err := md5OfRange(p.DirPath, p.HeaderSize, p.IndexSize)
	if err != nil {
		return errors.E(op, err)
	}
	p.IndexMd5 = indexMd5
	p.HasIndexMd5 = true

	h := md5.New()
	h.Write(p.ArchiveMd5TableRaw)
	copy(p.ArchiveMd5sMd5[:], h.Sum(nil))
	p.HasArchiveMd5sMd5 = true

	if _, err := dirFile.Write(p.IndexMd5[:]); err != nil {
		return errors.E(op, errors.IO, err)
	}
	if _, err := dirFile.Write(p.ArchiveMd5sMd5[:]); err != nil {
		return errors.E(op, errors.IO, err)
	}

	// other_md5_size covers index_md5, archive_md5s_md5, and
	// everything_md5: always all three, 16 bytes apiece.
	p.OtherMd5Size = 48
	p.SignatureSize = 0

	if _, err := dirFile.Seek(12, io.SeekStart); err != nil {
		return errors.E(op, errors.IO, err)
	}
	if err := writeUint32(dirFile, p.DataSize); err != nil {
		return err
	}
	if err := writeUint32(dirFile, p.ArchiveMd5Size); err != nil {
		return err
	}
	if err := writeUint32(dirFile, p.OtherMd5Size); err != nil {
		return err
	}
	if err := writeUint32(dirFile, p.SignatureSize); err != nil {
		return err
	}
	if err := dirFile.Sync(); err != nil {
		return errors.E(op, errors.IO, err)
	}

	// everything_md5 covers every byte written so far except itself:
	// header through the archive-MD5 table plus index_md5 and
	// archive_md5s_md5, i.e. [0, data_end + archive_md5_size + 32).
	everythingLen := p.DataOffset + int64(p.DataSize) + int64(p.ArchiveMd5Size) + 32
	everythingMd5, err := md5OfRange(p.DirPath, 0, everythingLen)
	if err != nil {
		return errors.E(op, err)
	}
	p.EverythingMd5 = everythingMd5
	p.HasEverythingMd5 = true

	if _, err := dirFile.Seek(0, io.SeekEnd); err != nil {
		return errors.E(op, errors.IO, err)
	}
	if _, err := dirFile.Write(p.EverythingMd5[:]); err != nil {
		return errors.E(op, errors.IO, err)
	}

	return nil
}
