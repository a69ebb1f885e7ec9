package vpk

import (
	"crypto/md5"
	"io"
	"os"

	"github.com/vpktool/vpk/errors"
)

// CheckOptions controls which checks Check performs and whether it
// keeps going after the first failure.
type CheckOptions struct {
	// Alignment, if non-zero, requires every archived (Size > 0) file's
	// Offset to be a multiple of it.
	Alignment int64
	// StopOnError aborts the whole run at the first CRC, alignment, or
	// MD5 mismatch instead of accumulating every result.
	StopOnError bool
	// Roots restricts the check to these paths (files or directories);
	// empty means the whole package.
	Roots []string
}

// FileCheck is the per-file outcome of Check.
type FileCheck struct {
	Path string
	Err  error // nil iff the file passed every requested check
}

// ChunkCheck is the per-archive-MD5-chunk outcome of Check (V2 only).
type ChunkCheck struct {
	Chunk ArchiveMd5Chunk
	Err   error
}

// Report is the accumulated result of a Check run.
type Report struct {
	Files  []FileCheck
	Chunks []ChunkCheck

	IndexMd5Err       error // nil if absent or matched
	ArchiveMd5sMd5Err error
	EverythingMd5Err  error

	Stopped bool // true if StopOnError cut the run short
}

// OK reports whether every check in the report passed.
func (r *Report) OK() bool {
	for _, f := range r.Files {
		if f.Err != nil {
			return false
		}
	}
	for _, c := range r.Chunks {
		if c.Err != nil {
			return false
		}
	}
	return r.IndexMd5Err == nil && r.ArchiveMd5sMd5Err == nil && r.EverythingMd5Err == nil
}

// Check verifies a package's CRC-32s, alignment, and (V2) layered MD5
// digests. cache is used to stream file payloads; Check does not take
// ownership of it and does not close it. Fatal I/O errors (as opposed
// to content mismatches) are returned as the function's error; content
// mismatches are recorded in the returned Report instead.
func Check(p *Package, cache *ArchiveCache, opts CheckOptions) (*Report, error) {
	const op = "Check"
	records, err := WalkFrom(p.Root, opts.Roots, PhysicalOrder)
	if err != nil {
		return nil, errors.E(op, err)
	}

	report := &Report{}
	for _, rec := range records {
		f := rec.File
		sum := newCRC32()
		readErr := cache.ReadFileData(f, func(chunk []byte) error {
			sum.Write(chunk)
			return nil
		})
		var checkErr error
		switch {
		case readErr != nil:
			checkErr = errors.E(op, errors.Path(rec.Path), errors.IO, readErr)
		case sum.Sum32() != f.CRC32:
			checkErr = errors.E(op, errors.Path(rec.Path), errors.SanityCheckFailed,
				errors.Str("CRC32 sum mismatch"))
		case opts.Alignment > 0 && f.Size > 0 && int64(f.Offset)%opts.Alignment != 0:
			checkErr = errors.E(op, errors.Path(rec.Path), errors.SanityCheckFailed,
				errors.Str("offset is not aligned"))
		}
		report.Files = append(report.Files, FileCheck{Path: rec.Path, Err: checkErr})
		if checkErr != nil && opts.StopOnError {
			report.Stopped = true
			return report, nil
		}
	}

	if p.Version == 2 {
		if err := checkV2(p, report, opts.StopOnError); err != nil {
			return report, errors.E(op, err)
		}
	}

	return report, nil
}

func checkV2(p *Package, report *Report, stopOnError bool) error {
	const op = "checkV2"
	// Chunk offsets are absolute within their archive file: the dir
	// file's chunks start at DataOffset, a numbered archive's at zero.
	for _, chunk := range p.ArchiveMd5Chunks {
		path := ArchivePath(p.Dir, p.Prefix, uint16(chunk.ArchiveIndex))
		sum, err := md5OfRange(path, int64(chunk.Offset), int64(chunk.Size))
		var chunkErr error
		if err != nil {
			chunkErr = errors.E(op, errors.Path(path), errors.IO, err)
		} else if sum != chunk.MD5 {
			chunkErr = errors.E(op, errors.Path(path), errors.SanityCheckFailed,
				errors.Str("archive MD5 chunk mismatch"))
		}
		report.Chunks = append(report.Chunks, ChunkCheck{Chunk: chunk, Err: chunkErr})
		if chunkErr != nil && stopOnError {
			report.Stopped = true
			return nil
		}
	}

	if p.HasIndexMd5 {
		sum, err := md5OfRange(p.DirPath, p.HeaderSize, p.IndexSize)
		if err != nil {
			return errors.E(op, err)
		}
		if sum != p.IndexMd5 {
			report.IndexMd5Err = errors.E(op, errors.SanityCheckFailed, errors.Str("index MD5 mismatch"))
		}
	}

	if p.HasArchiveMd5sMd5 {
		h := md5.New()
		h.Write(p.ArchiveMd5TableRaw)
		var sum [16]byte
		copy(sum[:], h.Sum(nil))
		if sum != p.ArchiveMd5sMd5 {
			report.ArchiveMd5sMd5Err = errors.E(op, errors.SanityCheckFailed,
				errors.Str("archive-md5s MD5 mismatch"))
		}
	}

	if p.HasEverythingMd5 {
		// Coverage is [0, data_end + archive_md5_size + 32), i.e.
		// everything up to and including index_md5 and
		// archive_md5s_md5 but excluding everything_md5 itself.
		dataEnd := p.DataOffset + int64(p.DataSize)
		n := dataEnd + int64(p.ArchiveMd5Size) + 32
		sum, err := md5OfRange(p.DirPath, 0, n)
		if err != nil {
			return errors.E(op, err)
		}
		if sum != p.EverythingMd5 {
			report.EverythingMd5Err = errors.E(op, errors.SanityCheckFailed,
				errors.Str("everything MD5 mismatch"))
		}
	}

	return nil
}

func md5OfRange(path string, offset, n int64) ([16]byte, error) {
	var zero [16]byte
	f, err := os.Open(path)
	if err != nil {
		return zero, err
	}
	defer f.Close()
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return zero, err
	}
	h := md5.New()
	if _, err := io.CopyN(h, f, n); err != nil {
		return zero, err
	}
	var sum [16]byte
	copy(sum[:], h.Sum(nil))
	return sum, nil
}
