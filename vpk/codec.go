package vpk

import (
	"bufio"
	"encoding/binary"
	"hash"
	"hash/crc32"
	"io"

	"github.com/vpktool/vpk/errors"
)

// readUint16 reads a little-endian u16 from r.
func readUint16(r io.Reader) (uint16, error) {
	var buf [2]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, wrapReadErr(err)
	}
	return binary.LittleEndian.Uint16(buf[:]), nil
}

// readUint32 reads a little-endian u32 from r.
func readUint32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, wrapReadErr(err)
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func wrapReadErr(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return errors.E("read", errors.UnexpectedEOF, err)
	}
	return errors.E("read", errors.IO, err)
}

// writeUint16 writes v to w in little-endian order.
func writeUint16(w io.Writer, v uint16) error {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], v)
	_, err := w.Write(buf[:])
	if err != nil {
		return errors.E("write", errors.IO, err)
	}
	return nil
}

// writeUint32 writes v to w in little-endian order.
func writeUint32(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	if err != nil {
		return errors.E("write", errors.IO, err)
	}
	return nil
}

// readCString reads bytes from r up to and including a terminating
// NUL, and returns them as a string with the NUL stripped. Reaching
// EOF before a NUL is UnexpectedEOF: a missing terminator is the same
// failure mode as any other truncated field.
func readCString(r *bufio.Reader) (string, error) {
	b, err := r.ReadBytes(0)
	if err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return "", errors.E("readCString", errors.UnexpectedEOF, err)
		}
		return "", errors.E("readCString", errors.StringDecode, err)
	}
	return string(b[:len(b)-1]), nil
}

// writeCString writes s followed by a NUL byte.
func writeCString(w io.Writer, s string) error {
	if _, err := io.WriteString(w, s); err != nil {
		return errors.E("writeCString", errors.IO, err)
	}
	var zero [1]byte
	if _, err := w.Write(zero[:]); err != nil {
		return errors.E("writeCString", errors.IO, err)
	}
	return nil
}

// sizeOfCString returns the number of bytes s occupies on disk,
// including its terminating NUL.
func sizeOfCString(s string) int64 {
	return int64(len(s)) + 1
}

// newCRC32 returns a streaming CRC-32 (IEEE polynomial) hash, matching
// the checksum every file entry's crc32 field records.
func newCRC32() hash.Hash32 {
	return crc32.NewIEEE()
}
