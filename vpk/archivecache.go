package vpk

import (
	"io"
	"os"

	"github.com/vpktool/vpk/errors"
)

// Mode selects the open disposition ArchiveCache uses the first time
// it touches a given archive.
type Mode int

const (
	// ForReading opens archives read-only; used by Check, Unpack, the
	// read-range façade, mount, and browse.
	ForReading Mode = iota
	// ForWriting creates/truncates archives for read-write access;
	// used by Packer while writing payload. The MD5 chunk pass reads
	// archives back through its own handles, not through this cache.
	ForWriting
)

// ArchiveCache is a lazily populated pool of open archive file
// handles, keyed by archive index, scoped to the lifetime of a single
// package operation. There is no eviction: callers bound the handle
// count by bounding the set of archives an operation touches.
type ArchiveCache struct {
	dir, prefix string
	mode        Mode
	handles     map[uint16]*os.File
}

// NewArchiveCache returns a cache rooted at dir/prefix, opening
// archives in the given mode on first use.
func NewArchiveCache(dir, prefix string, mode Mode) *ArchiveCache {
	return &ArchiveCache{
		dir:     dir,
		prefix:  prefix,
		mode:    mode,
		handles: make(map[uint16]*os.File),
	}
}

// ArchivePath returns the on-disk path of archive idx within this
// cache's package.
func (c *ArchiveCache) ArchivePath(idx uint16) string {
	return ArchivePath(c.dir, c.prefix, idx)
}

// Get returns the open handle for archive idx, opening it first if
// necessary.
func (c *ArchiveCache) Get(idx uint16) (*os.File, error) {
	const op = "ArchiveCache.Get"
	if f, ok := c.handles[idx]; ok {
		return f, nil
	}
	path := c.ArchivePath(idx)
	var f *os.File
	var err error
	switch c.mode {
	case ForReading:
		f, err = os.Open(path)
	case ForWriting:
		f, err = os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	}
	if err != nil {
		return nil, errors.E(op, errors.Path(path), errors.IO, err)
	}
	c.handles[idx] = f
	return f, nil
}

// Close closes every handle opened so far, returning the first error
// encountered (but attempting every close regardless).
func (c *ArchiveCache) Close() error {
	var first error
	for idx, f := range c.handles {
		if err := f.Close(); err != nil && first == nil {
			first = errors.E("ArchiveCache.Close", errors.Path(c.ArchivePath(idx)), errors.IO, err)
		}
	}
	c.handles = make(map[uint16]*os.File)
	return first
}

// ReadFileData delivers file's payload to cb: first its preload
// bytes (if any), then, if Size > 0, the archived bytes in fixed
// BufferSize chunks read from entry.Offset in its target archive. It
// stops and returns cb's error the first time cb returns non-nil.
func (c *ArchiveCache) ReadFileData(file *File, cb func([]byte) error) error {
	const op = "ArchiveCache.ReadFileData"
	if len(file.Preload) > 0 {
		if err := cb(file.Preload); err != nil {
			return err
		}
	}
	if file.Size == 0 {
		return nil
	}
	f, err := c.Get(file.ArchiveIndex)
	if err != nil {
		return errors.E(op, err)
	}
	buf := make([]byte, BufferSize)
	off := int64(file.Offset)
	remaining := int64(file.Size)
	for remaining > 0 {
		want := int64(len(buf))
		if want > remaining {
			want = remaining
		}
		n, err := f.ReadAt(buf[:want], off)
		if n > 0 {
			if cberr := cb(buf[:n]); cberr != nil {
				return cberr
			}
			off += int64(n)
			remaining -= int64(n)
		}
		if err != nil {
			if err == io.EOF && remaining == 0 {
				break
			}
			return errors.E(op, errors.Path(c.ArchivePath(file.ArchiveIndex)), errors.IO, err)
		}
	}
	return nil
}

// Transfer writes file's complete payload to dst: its preload bytes
// directly, then its archived bytes (if any) via the platform transfer
// primitive (zero-copy on Linux when dst is a plain *os.File).
func (c *ArchiveCache) Transfer(file *File, dst io.Writer) error {
	const op = "ArchiveCache.Transfer"
	if len(file.Preload) > 0 {
		if _, err := dst.Write(file.Preload); err != nil {
			return errors.E(op, errors.IO, err)
		}
	}
	if file.Size == 0 {
		return nil
	}
	f, err := c.Get(file.ArchiveIndex)
	if err != nil {
		return errors.E(op, err)
	}
	if err := transfer(dst, f, int64(file.Offset), int64(file.Size)); err != nil {
		return errors.E(op, errors.Path(c.ArchivePath(file.ArchiveIndex)), err)
	}
	return nil
}
