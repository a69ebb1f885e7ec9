// Package vpk implements the Valve Package (VPK) archive format: a
// directory file carrying a string-interned file index, paired with
// zero or more numbered data archives carrying bulk payload.
package vpk

// Magic is the four bytes every dir file begins with, interpreted as
// a little-endian u32: 0x55AA1234.
const Magic uint32 = 0x55AA1234

// DirIndex is the sentinel archive index meaning "this file's payload
// continues in the dir file itself, after the index."
const DirIndex uint16 = 0x7FFF

// Terminator is the fixed word that must follow every file record.
const Terminator uint16 = 0xFFFF

// V1HeaderSize and V2HeaderSize are the byte lengths of the two header
// shapes this package understands.
const (
	V1HeaderSize = 12
	V2HeaderSize = 28
)

// ArchiveMd5RecordSize is the on-disk size of one archive-MD5 chunk
// record: archive_index:u32, offset:u32, size:u32, md5:16.
const ArchiveMd5RecordSize = 4 + 4 + 4 + 16

// fileRecordSize is the fixed portion of a file's metadata record:
// crc32:u32, inline_size:u16, archive_index:u16, offset:u32, size:u32,
// terminator:u16.
const fileRecordSize = 4 + 2 + 2 + 4 + 4 + 2

// DefaultMaxInlineSize is the default upper bound on a file's preload
// (inline_size) when packing.
const DefaultMaxInlineSize = 8 * 1024

// DefaultMd5ChunkSize is the default width of a V2 per-archive MD5
// chunk.
const DefaultMd5ChunkSize = 1024 * 1024

// BufferSize is the chunk size used by the buffered copy fallback of
// Transfer, by ReadFileData, and by the packer's streaming CRC32
// computation. MD5 computation does not use it.
const BufferSize = 8 * 1024

// MaxArchiveIndex is the largest numbered archive a packer may
// address; DirIndex itself is reserved and excluded from this range.
const MaxArchiveIndex = 999
