package vpk

import (
	"sort"
	"strings"

	"github.com/vpktool/vpk/errors"
)

// SortKey names one field a Walk result can be ordered by.
type SortKey int

// The recognized sort keys. Name sorts by the canonical (extension,
// directory, name) tuple, matching on-disk emission order.
const (
	SortName SortKey = iota
	SortInlineSize
	SortArchiveSize
	SortFullSize
	SortCRC32
	SortArchiveIndex
	SortOffset
	SortInsertion
)

var sortKeyNames = map[string]SortKey{
	"name":          SortName,
	"inline-size":   SortInlineSize,
	"archive-size":  SortArchiveSize,
	"full-size":     SortFullSize,
	"crc32":         SortCRC32,
	"archive-index": SortArchiveIndex,
	"offset":        SortOffset,
	"index":         SortInsertion,
}

// SortOrder is one key in a composed sort, optionally reversed.
type SortOrder struct {
	Key     SortKey
	Reverse bool
}

// CanonicalOrder is ascending (extension, directory, name) — the
// order files must appear in within the emitted index.
var CanonicalOrder = []SortOrder{{Key: SortName}}

// PhysicalOrder groups files by archive and then by offset within
// that archive, so a sequential walk in this order reads or writes
// each archive with strictly increasing file offsets. check and unpack
// use this instead of CanonicalOrder
// purely for I/O locality; it has no bearing on what's written to the
// index, only on the order operations touch the data regions.
var PhysicalOrder = []SortOrder{{Key: SortArchiveIndex}, {Key: SortOffset}}

// ParseSortOrder parses a comma-separated list of sort keys, each
// optionally prefixed with '-' to reverse it, e.g. "-full-size,name".
func ParseSortOrder(spec string) ([]SortOrder, error) {
	if spec == "" {
		return CanonicalOrder, nil
	}
	var order []SortOrder
	for _, field := range strings.Split(spec, ",") {
		reverse := false
		if strings.HasPrefix(field, "-") {
			reverse = true
			field = field[1:]
		}
		key, ok := sortKeyNames[field]
		if !ok {
			return nil, errors.E("ParseSortOrder", errors.IllegalArgument,
				errors.Argument("sort"), errors.Given(field))
		}
		order = append(order, SortOrder{Key: key, Reverse: reverse})
	}
	return order, nil
}

// FileRecord is one (path, file) pair produced by Walk, with the
// path's extension/directory/name components split out since the
// canonical sort and the index codec both need them.
type FileRecord struct {
	Path string
	Ext  string
	Dir  string
	Name string
	File *File
}

// Walk returns every file reachable from root in the order described
// by order. A nil or empty order defaults to CanonicalOrder.
func Walk(root *Entry, order []SortOrder) []FileRecord {
	var out []FileRecord
	collect(root, "", &out)
	sortRecords(out, order)
	return out
}

// WalkFrom restricts Walk to the subtrees named by roots (each
// resolved relative to root); a root naming a file yields just that
// file, a root naming a directory yields its whole subtree.
func WalkFrom(root *Entry, roots []string, order []SortOrder) ([]FileRecord, error) {
	if len(roots) == 0 {
		return Walk(root, order), nil
	}
	var out []FileRecord
	for _, p := range roots {
		entry, err := Lookup(root, p)
		if err != nil {
			return nil, err
		}
		collect(entry, p, &out)
	}
	sortRecords(out, order)
	return out, nil
}

func collect(entry *Entry, prefix string, out *[]FileRecord) {
	if entry.IsFile() {
		ext, dir, name, err := SplitEntryPath(prefix)
		if err != nil {
			// Insert accepts a file directly under the root, which
			// SplitEntryPath rejects; such a file is listed with an
			// empty Dir.
			dir, name, ext = "", prefix, ""
			if dot := strings.LastIndexByte(prefix, '.'); dot >= 0 {
				name, ext = prefix[:dot], prefix[dot+1:]
			}
		}
		*out = append(*out, FileRecord{Path: prefix, Ext: ext, Dir: dir, Name: name, File: entry.File})
		return
	}
	for _, name := range entry.Dir.Names() {
		child := entry.Dir.Get(name)
		childPath := name
		if prefix != "" {
			childPath = prefix + "/" + name
		}
		collect(child, childPath, out)
	}
}

func sortRecords(records []FileRecord, order []SortOrder) {
	if len(order) == 0 {
		order = CanonicalOrder
	}
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		for _, key := range order {
			c := compareKey(a, b, key.Key)
			if key.Reverse {
				c = -c
			}
			if c != 0 {
				return c < 0
			}
		}
		return a.File.Index < b.File.Index
	})
}

func compareKey(a, b FileRecord, key SortKey) int {
	switch key {
	case SortName:
		if c := strings.Compare(a.Ext, b.Ext); c != 0 {
			return c
		}
		if c := strings.Compare(a.Dir, b.Dir); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	case SortInlineSize:
		return compareUint64(uint64(a.File.InlineSize), uint64(b.File.InlineSize))
	case SortArchiveSize:
		return compareUint64(uint64(a.File.Size), uint64(b.File.Size))
	case SortFullSize:
		return compareUint64(uint64(a.File.FullSize()), uint64(b.File.FullSize()))
	case SortCRC32:
		return compareUint64(uint64(a.File.CRC32), uint64(b.File.CRC32))
	case SortArchiveIndex:
		return compareUint64(uint64(a.File.ArchiveIndex), uint64(b.File.ArchiveIndex))
	case SortOffset:
		return compareUint64(uint64(a.File.Offset), uint64(b.File.Offset))
	case SortInsertion:
		return compareUint64(uint64(a.File.Index), uint64(b.File.Index))
	}
	return 0
}

func compareUint64(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
