package vpk

import (
	"github.com/vpktool/vpk/errors"
)

// Lookup resolves path against the package's root directory.
func (p *Package) Lookup(path string) (*Entry, error) {
	return Lookup(p.Root, path)
}

// ReadRange returns up to n bytes of file's payload starting at
// offset, clipped to the file's full extent. mount and browse read
// file content through it; Unpack does not, and copies whole files
// with ArchiveCache.Transfer (or ReadFileData when verifying). The
// preload prefix is sliced directly out of memory, and any remainder
// is read from the backing archive through cache.
func (f *File) ReadRange(cache *ArchiveCache, offset, n int64) ([]byte, error) {
	const op = "File.ReadRange"
	if offset < 0 || n < 0 {
		return nil, errors.E(op, errors.IllegalArgument,
			errors.Argument("offset,length"))
	}
	preloadLen := int64(len(f.Preload))
	full := preloadLen + int64(f.Size)

	if offset >= full {
		return nil, nil
	}
	if offset+n > full {
		n = full - offset
	}

	out := make([]byte, 0, n)

	if offset < preloadLen {
		end := offset + n
		if end > preloadLen {
			end = preloadLen
		}
		out = append(out, f.Preload[offset:end]...)
	}

	consumedFromPreload := int64(len(out))
	remaining := n - consumedFromPreload
	if remaining <= 0 {
		return out, nil
	}

	archiveStart := int64(0)
	if offset > preloadLen {
		archiveStart = offset - preloadLen
	}

	buf := make([]byte, remaining)
	collected := int64(0)
	archiveOffset := int64(f.Offset) + archiveStart
	err := cache.ReadFileData(&File{
		ArchiveIndex: f.ArchiveIndex,
		Offset:       uint32(archiveOffset),
		Size:         uint32(remaining),
	}, func(chunk []byte) error {
		n := copy(buf[collected:], chunk)
		collected += int64(n)
		return nil
	})
	if err != nil {
		return nil, errors.E(op, err)
	}
	out = append(out, buf[:collected]...)
	return out, nil
}
