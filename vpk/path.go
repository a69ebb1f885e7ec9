package vpk

import (
	"fmt"
	"path"
	"strings"

	"github.com/vpktool/vpk/errors"
)

// ArchivePath returns the on-disk path of the archive numbered idx
// within a package whose files live under dir and share the filename
// prefix prefix. idx == DirIndex names the dir file itself
// (<dir>/<prefix>_dir.vpk); any other value names a numbered archive
// (<dir>/<prefix>_NNN.vpk, zero-padded to three digits).
func ArchivePath(dir, prefix string, idx uint16) string {
	var name string
	if idx == DirIndex {
		name = prefix + "_dir.vpk"
	} else {
		name = fmt.Sprintf("%s_%03d.vpk", prefix, idx)
	}
	if dir == "" {
		return name
	}
	return path.Join(dir, name)
}

// SplitPrefix separates a dir-file path ("games/hl2/pak01_dir.vpk")
// into its containing directory ("games/hl2") and filename prefix
// ("pak01"), the prefix being everything before "_dir.vpk".
func SplitPrefix(dirFilePath string) (dir, prefix string, err error) {
	const suffix = "_dir.vpk"
	base := path.Base(dirFilePath)
	if !strings.HasSuffix(base, suffix) {
		return "", "", errors.E("SplitPrefix", errors.IllegalArgument,
			errors.Argument("path"), errors.Given(dirFilePath),
			errors.Str("dir file name must end in \"_dir.vpk\""))
	}
	prefix = base[:len(base)-len(suffix)]
	dir = path.Dir(dirFilePath)
	if dir == "." {
		dir = ""
	}
	return dir, prefix, nil
}

// PathComponent is one step produced by SplitPath: the slash-joined
// path of every component up to and including this one, the bare
// component name itself, and whether it is the final component.
type PathComponent struct {
	Prefix string
	Name   string
	IsLast bool
}

// SplitPath walks a forward-slash-delimited VPK path component by
// component, ignoring leading/trailing slashes and empty components
// (so "//a//b/" yields exactly "a" then "b").
func SplitPath(p string) []PathComponent {
	parts := strings.Split(p, "/")
	var names []string
	for _, part := range parts {
		if part != "" {
			names = append(names, part)
		}
	}
	out := make([]PathComponent, 0, len(names))
	for i, name := range names {
		out = append(out, PathComponent{
			Prefix: strings.Join(names[:i+1], "/"),
			Name:   name,
			IsLast: i == len(names)-1,
		})
	}
	return out
}

// SplitEntryPath decomposes a canonical VPK entry path into the
// extension/directory/name triple used by the on-disk index: the last
// component must be "NAME.EXT" with both NAME and EXT non-empty, and
// it must not sit at the package root (DIR must be non-empty).
func SplitEntryPath(p string) (ext, dir, name string, err error) {
	comps := SplitPath(p)
	if len(comps) == 0 {
		return "", "", "", errors.E("SplitEntryPath", errors.IllegalArgument,
			errors.Argument("path"), errors.Given(p), errors.Str("empty path"))
	}
	base := comps[len(comps)-1].Name
	dot := strings.LastIndexByte(base, '.')
	if dot <= 0 || dot == len(base)-1 {
		return "", "", "", errors.E("SplitEntryPath", errors.IllegalArgument,
			errors.Argument("path"), errors.Given(p),
			errors.Str("file name must be of the form NAME.EXT"))
	}
	name = base[:dot]
	ext = base[dot+1:]
	if len(comps) == 1 {
		return "", "", "", errors.E("SplitEntryPath", errors.IllegalArgument,
			errors.Argument("path"), errors.Given(p),
			errors.Str("file cannot live at the package root"))
	}
	dir = comps[len(comps)-2].Prefix
	return ext, dir, name, nil
}

// JoinEntryPath is the inverse of SplitEntryPath: it reconstructs the
// canonical "dir/name.ext" form (with dir "" meaning the root).
func JoinEntryPath(ext, dir, name string) string {
	base := name
	if ext != "" {
		base = name + "." + ext
	}
	if dir == "" {
		return base
	}
	return dir + "/" + base
}
