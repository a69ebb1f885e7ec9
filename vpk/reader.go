package vpk

import (
	"bufio"
	"io"
	"io/ioutil"
	"os"

	"github.com/vpktool/vpk/errors"
	"github.com/vpktool/vpk/log"
)

// ArchiveMd5Chunk is a V2 integrity record covering one contiguous
// slice of one archive (the dir file's own inline data tail counts as
// archive DirIndex). Offset is absolute within the archive file, so
// DirIndex chunks start at DataOffset rather than zero.
type ArchiveMd5Chunk struct {
	ArchiveIndex uint32
	Offset       uint32
	Size         uint32
	MD5          [16]byte
}

// Package is the parsed form of a dir file and its companion
// archives. It is built once by Open or Pack and never mutated
// afterward; every read operation against it is safe to issue from
// any number of goroutines (see ArchiveCache for the one piece of
// mutable, single-owner state a read needs).
type Package struct {
	DirPath string // path to the *_dir.vpk file this was opened from
	Dir     string // containing directory
	Prefix  string // filename prefix before "_dir.vpk"

	Version    uint32
	HeaderSize int64
	IndexSize  int64
	DataOffset int64 // HeaderSize + IndexSize

	// V2 only.
	DataSize       uint32
	ArchiveMd5Size uint32
	OtherMd5Size   uint32
	SignatureSize  uint32

	ArchiveMd5Chunks []ArchiveMd5Chunk
	// ArchiveMd5TableRaw is the archive-MD5 section exactly as it
	// appears on disk, in its original write order; archive_md5s_md5
	// is defined over these bytes, so Check hashes this directly
	// rather than re-deriving it from the sorted ArchiveMd5Chunks.
	ArchiveMd5TableRaw []byte

	HasIndexMd5       bool
	IndexMd5          [16]byte
	HasArchiveMd5sMd5 bool
	ArchiveMd5sMd5    [16]byte
	HasEverythingMd5  bool
	EverythingMd5     [16]byte

	PublicKey []byte
	Signature []byte

	Root *Entry // always a directory
}

// OpenOptions controls Open's tolerance for nonstandard input.
type OpenOptions struct {
	// AllowV0 permits reading a package with no header at all: the
	// entire dir file is the index, starting at byte 0.
	AllowV0 bool
}

// Open parses the dir file at dirFilePath and returns its populated,
// immutable index model. It does not verify CRCs or MD5s; use Check
// for that.
func Open(dirFilePath string, opts OpenOptions) (*Package, error) {
	const op = "Open"
	dir, prefix, err := SplitPrefix(dirFilePath)
	if err != nil {
		return nil, errors.E(op, err)
	}

	f, err := os.Open(dirFilePath)
	if err != nil {
		return nil, errors.E(op, errors.Path(dirFilePath), errors.IO, err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, errors.E(op, errors.Path(dirFilePath), errors.IO, err)
	}

	br := bufio.NewReaderSize(f, BufferSize)

	p := &Package{
		DirPath: dirFilePath,
		Dir:     dir,
		Prefix:  prefix,
	}

	var magicBuf [4]byte
	if _, err := io.ReadFull(br, magicBuf[:]); err != nil {
		return nil, errors.E(op, errors.Path(dirFilePath), errors.UnexpectedEOF, err)
	}
	magic := uint32(magicBuf[0]) | uint32(magicBuf[1])<<8 | uint32(magicBuf[2])<<16 | uint32(magicBuf[3])<<24

	var indexReader io.Reader
	if magic == Magic {
		version, err := readUint32(br)
		if err != nil {
			return nil, errors.E(op, errors.Path(dirFilePath), err)
		}
		if version == 0 || version > 2 {
			return nil, errors.E(op, errors.Path(dirFilePath), errors.UnsupportedVersion)
		}
		p.Version = version

		indexSize, err := readUint32(br)
		if err != nil {
			return nil, errors.E(op, errors.Path(dirFilePath), err)
		}
		p.IndexSize = int64(indexSize)

		if version == 2 {
			p.HeaderSize = V2HeaderSize
			if p.DataSize, err = readUint32(br); err != nil {
				return nil, errors.E(op, errors.Path(dirFilePath), err)
			}
			if p.ArchiveMd5Size, err = readUint32(br); err != nil {
				return nil, errors.E(op, errors.Path(dirFilePath), err)
			}
			if p.OtherMd5Size, err = readUint32(br); err != nil {
				return nil, errors.E(op, errors.Path(dirFilePath), err)
			}
			if p.SignatureSize, err = readUint32(br); err != nil {
				return nil, errors.E(op, errors.Path(dirFilePath), err)
			}
		} else {
			p.HeaderSize = V1HeaderSize
		}
		p.DataOffset = p.HeaderSize + p.IndexSize
		indexReader = io.LimitReader(br, p.IndexSize)
	} else {
		if !opts.AllowV0 {
			return nil, errors.E(op, errors.Path(dirFilePath), errors.IllegalMagic)
		}
		p.Version = 0
		p.HeaderSize = 0
		p.IndexSize = fi.Size()
		p.DataOffset = 0
		// The four bytes already consumed are themselves the start of
		// the index; splice them back in front of the buffered reader.
		indexReader = io.MultiReader(bytesReader(magicBuf[:]), io.LimitReader(br, p.IndexSize-4))
	}

	root := newDirEntry()
	if err := parseIndex(bufio.NewReaderSize(indexReader, BufferSize), root, p.DataOffset, p.HeaderSize); err != nil {
		return nil, errors.E(op, errors.Path(dirFilePath), err)
	}
	p.Root = root

	if p.Version == 2 {
		if err := parseV2Tail(br, p); err != nil {
			return nil, errors.E(op, errors.Path(dirFilePath), err)
		}
	}

	return p, nil
}

func bytesReader(b []byte) io.Reader {
	cp := make([]byte, len(b))
	copy(cp, b)
	return &sliceReader{b: cp}
}

type sliceReader struct {
	b []byte
}

func (s *sliceReader) Read(p []byte) (int, error) {
	if len(s.b) == 0 {
		return 0, io.EOF
	}
	n := copy(p, s.b)
	s.b = s.b[n:]
	return n, nil
}

// parseIndex implements the ext/dir/name nested-loop grammar of the
// index body, inserting each file into root. dataOffset normalizes
// DirIndex-relative on-disk offsets to absolute ones (the single
// choke point for that adjustment; see Package.DataOffset doc). pos
// tracks the absolute byte offset within the dir file, starting right
// after the header, so a malformed file record's ILLEGAL_TERMINATOR
// can be reported with the offset it was found at.
func parseIndex(r *bufio.Reader, root *Entry, dataOffset, headerSize int64) error {
	const op = "parseIndex"
	counter := 0
	pos := headerSize
	for {
		ext, err := readCString(r)
		if err != nil {
			return errors.E(op, err)
		}
		pos += sizeOfCString(ext)
		if ext == "" {
			break
		}
		for {
			dir, err := readCString(r)
			if err != nil {
				return errors.E(op, err)
			}
			pos += sizeOfCString(dir)
			if dir == "" {
				break
			}
			for {
				name, err := readCString(r)
				if err != nil {
					return errors.E(op, err)
				}
				pos += sizeOfCString(name)
				if name == "" {
					break
				}
				file, err := parseFileRecord(r, dataOffset, &counter, &pos)
				if err != nil {
					return errors.E(op, errors.Path(JoinEntryPath(ext, dir, name)), err)
				}
				if err := Insert(root, ext, dir, name, file); err != nil {
					return errors.E(op, err)
				}
			}
		}
	}
	return nil
}

func parseFileRecord(r *bufio.Reader, dataOffset int64, counter *int, pos *int64) (*File, error) {
	const op = "parseFileRecord"
	crc32, err := readUint32(r)
	if err != nil {
		return nil, errors.E(op, err)
	}
	*pos += 4
	inlineSize, err := readUint16(r)
	if err != nil {
		return nil, errors.E(op, err)
	}
	*pos += 2
	archiveIndex, err := readUint16(r)
	if err != nil {
		return nil, errors.E(op, err)
	}
	*pos += 2
	offset, err := readUint32(r)
	if err != nil {
		return nil, errors.E(op, err)
	}
	*pos += 4
	size, err := readUint32(r)
	if err != nil {
		return nil, errors.E(op, err)
	}
	*pos += 4
	term, err := readUint16(r)
	if err != nil {
		return nil, errors.E(op, err)
	}
	*pos += 2
	if term != Terminator {
		return nil, errors.E(op, errors.IllegalTerminator, errors.Value(term), errors.ByteOffset(*pos-1))
	}

	if archiveIndex == DirIndex {
		offset += uint32(dataOffset)
	}

	preload := make([]byte, inlineSize)
	if _, err := io.ReadFull(r, preload); err != nil {
		return nil, errors.E(op, errors.UnexpectedEOF, err)
	}
	*pos += int64(inlineSize)

	*counter++
	return &File{
		CRC32:        crc32,
		InlineSize:   inlineSize,
		ArchiveIndex: archiveIndex,
		Offset:       offset,
		Size:         size,
		Preload:      preload,
		Index:        *counter,
	}, nil
}

// parseV2Tail reads the archive-MD5 chunk table and the standalone
// MD5/signature sections that follow the data region in a V2 dir
// file. br is positioned immediately after the index at this point;
// DataSize bytes of inline payload tail sit between the index and
// this table, which the caller has not yet consumed, so this function
// discards them first.
func parseV2Tail(br *bufio.Reader, p *Package) error {
	const op = "parseV2Tail"
	if err := discard(br, int64(p.DataSize)); err != nil {
		return errors.E(op, err)
	}

	rawTable := make([]byte, p.ArchiveMd5Size)
	if _, err := io.ReadFull(br, rawTable); err != nil {
		return errors.E(op, errors.UnexpectedEOF, err)
	}
	p.ArchiveMd5TableRaw = rawTable

	n := len(rawTable) / ArchiveMd5RecordSize
	trailing := len(rawTable) % ArchiveMd5RecordSize
	for i := 0; i < n; i++ {
		rec := rawTable[i*ArchiveMd5RecordSize : (i+1)*ArchiveMd5RecordSize]
		archiveIndex := leUint32(rec[0:4])
		offset := leUint32(rec[4:8])
		size := leUint32(rec[8:12])
		var md5 [16]byte
		copy(md5[:], rec[12:28])
		if archiveIndex > 0xFFFF {
			log.Printf("vpk: skipping archive-md5 record with out-of-range archive index %d", archiveIndex)
			continue
		}
		p.ArchiveMd5Chunks = append(p.ArchiveMd5Chunks, ArchiveMd5Chunk{
			ArchiveIndex: archiveIndex, Offset: offset, Size: size, MD5: md5,
		})
	}
	if trailing > 0 {
		log.Printf("vpk: %d trailing bytes in archive-md5 section do not form a full record", trailing)
	}
	sortArchiveMd5Chunks(p.ArchiveMd5Chunks)

	remaining := int(p.OtherMd5Size)
	if remaining >= 16 {
		if _, err := io.ReadFull(br, p.IndexMd5[:]); err != nil {
			return errors.E(op, errors.UnexpectedEOF, err)
		}
		p.HasIndexMd5 = true
		remaining -= 16
	}
	if remaining >= 16 {
		if _, err := io.ReadFull(br, p.ArchiveMd5sMd5[:]); err != nil {
			return errors.E(op, errors.UnexpectedEOF, err)
		}
		p.HasArchiveMd5sMd5 = true
		remaining -= 16
	}
	if remaining >= 16 {
		if _, err := io.ReadFull(br, p.EverythingMd5[:]); err != nil {
			return errors.E(op, errors.UnexpectedEOF, err)
		}
		p.HasEverythingMd5 = true
		remaining -= 16
	}
	if remaining > 0 {
		log.Printf("vpk: skipping %d trailing bytes in other-md5 section", remaining)
		if err := discard(br, int64(remaining)); err != nil {
			return errors.E(op, err)
		}
	}

	if p.SignatureSize >= 4 {
		pubkeyLen, err := readUint32(br)
		if err != nil {
			return errors.E(op, err)
		}
		if p.SignatureSize >= 4+pubkeyLen+4 {
			pubkey := make([]byte, pubkeyLen)
			if _, err := io.ReadFull(br, pubkey); err != nil {
				return errors.E(op, errors.UnexpectedEOF, err)
			}
			sigLen, err := readUint32(br)
			if err != nil {
				return errors.E(op, err)
			}
			sig := make([]byte, sigLen)
			if _, err := io.ReadFull(br, sig); err != nil {
				return errors.E(op, errors.UnexpectedEOF, err)
			}
			p.PublicKey = pubkey
			p.Signature = sig
		}
	}

	return nil
}

func leUint32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func discard(r *bufio.Reader, n int64) error {
	_, err := io.CopyN(ioutil.Discard, r, n)
	if err != nil {
		return errors.E("discard", errors.UnexpectedEOF, err)
	}
	return nil
}

func sortArchiveMd5Chunks(chunks []ArchiveMd5Chunk) {
	// Insertion sort is fine here: chunk counts are small (one per
	// archive fragment, typically well under a few hundred).
	for i := 1; i < len(chunks); i++ {
		for j := i; j > 0; j-- {
			a, b := chunks[j-1], chunks[j]
			if a.ArchiveIndex < b.ArchiveIndex || (a.ArchiveIndex == b.ArchiveIndex && a.Offset <= b.Offset) {
				break
			}
			chunks[j-1], chunks[j] = chunks[j], chunks[j-1]
		}
	}
}
