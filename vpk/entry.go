package vpk

import (
	"github.com/vpktool/vpk/errors"
	"github.com/vpktool/vpk/log"
)

// File is a single file entry's metadata and its preload bytes.
// Offset is always normalized to an absolute byte offset into its
// target archive, even though the on-disk encoding stores DirIndex
// offsets relative to data_offset (parseFileRecord adds data_offset
// on read and writeFileRecord subtracts it on write).
type File struct {
	CRC32        uint32
	InlineSize   uint16
	ArchiveIndex uint16
	Offset       uint32
	Size         uint32
	Preload      []byte

	// Index is this file's position in parse or insertion order; it
	// exists purely to give a stable sort key when every other key
	// compares equal.
	Index int
}

// FullSize is the total payload length: preload plus archived bytes.
func (f *File) FullSize() int64 {
	return int64(f.InlineSize) + int64(f.Size)
}

// ArchiveSize is the number of bytes of payload stored outside the
// preload, i.e. in the referenced archive.
func (f *File) ArchiveSize() int64 {
	return int64(f.Size)
}

// IsDirIndex reports whether this file's archived bytes (if any) live
// in the dir file itself rather than a numbered archive.
func (f *File) IsDirIndex() bool {
	return f.ArchiveIndex == DirIndex
}

// Entry is a tagged union: exactly one of File or Dir is non-nil.
type Entry struct {
	File *File
	Dir  *Dir
}

// IsFile reports whether this entry is a file.
func (e *Entry) IsFile() bool { return e.File != nil }

// IsDir reports whether this entry is a directory.
func (e *Entry) IsDir() bool { return e.Dir != nil }

// Dir is a directory's mapping from child name to child entry. Child
// names are unique; insertion order is not meaningful, only canonical
// emission order (see Walk) is.
type Dir struct {
	children map[string]*Entry
}

func newDirEntry() *Entry {
	return &Entry{Dir: &Dir{children: make(map[string]*Entry)}}
}

// Get returns the named child, or nil if absent.
func (d *Dir) Get(name string) *Entry {
	return d.children[name]
}

// Names returns the directory's child names in arbitrary order.
func (d *Dir) Names() []string {
	names := make([]string, 0, len(d.children))
	for name := range d.children {
		names = append(names, name)
	}
	return names
}

// Lookup resolves a slash-separated path against root, which must
// itself be a directory. Each non-final component that does not name
// a directory fails with EntryNotADir; a missing component at any
// position fails with NoSuchEntry.
func Lookup(root *Entry, p string) (*Entry, error) {
	const op = "Lookup"
	comps := SplitPath(p)
	cur := root
	for _, c := range comps {
		if !cur.IsDir() {
			return nil, errors.E(op, errors.Path(p), errors.EntryNotADir)
		}
		next := cur.Dir.Get(c.Name)
		if next == nil {
			return nil, errors.E(op, errors.Path(p), errors.NoSuchEntry)
		}
		cur = next
	}
	return cur, nil
}

// insertDir ensures that every directory named by dirPath exists
// under root, creating intermediate directories as needed, and
// returns the final directory. Any existing non-final component that
// is a file is rejected as EntryNotADir.
func insertDir(root *Entry, dirPath string) (*Dir, error) {
	const op = "insertDir"
	cur := root
	if dirPath == "" {
		return cur.Dir, nil
	}
	for _, c := range SplitPath(dirPath) {
		if !cur.IsDir() {
			return nil, errors.E(op, errors.Path(dirPath), errors.EntryNotADir)
		}
		next := cur.Dir.Get(c.Name)
		if next == nil {
			next = newDirEntry()
			cur.Dir.children[c.Name] = next
		} else if !next.IsDir() {
			return nil, errors.E(op, errors.Path(dirPath), errors.EntryNotADir)
		}
		cur = next
	}
	return cur.Dir, nil
}

// Insert places file at ext/dir/name under root, creating
// intermediate directories as needed. A pre-existing entry of the
// same name in the same directory is overwritten ("last wins") and
// logged as a warning.
func Insert(root *Entry, ext, dir, name string, file *File) error {
	d, err := insertDir(root, dir)
	if err != nil {
		return err
	}
	full := JoinEntryPath(ext, dir, name)
	if existing := d.Get(name + "." + ext); existing != nil {
		log.Printf("vpk: duplicate file entry %q, keeping the later definition", full)
	}
	d.children[name+"."+ext] = &Entry{File: file}
	return nil
}
