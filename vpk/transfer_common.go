package vpk

import (
	"io"

	"github.com/vpktool/vpk/errors"
)

// bufferedTransfer copies exactly n bytes from src, starting at
// srcOffset, to dst, in fixed BufferSize chunks. It is the portable
// fallback transfer uses when a platform-specific zero-copy path is
// unavailable or declines the transfer.
func bufferedTransfer(dst io.Writer, src io.ReaderAt, srcOffset int64, n int64) error {
	buf := make([]byte, BufferSize)
	off := srcOffset
	remaining := n
	for remaining > 0 {
		want := int64(len(buf))
		if want > remaining {
			want = remaining
		}
		read, err := src.ReadAt(buf[:want], off)
		if read > 0 {
			if _, werr := dst.Write(buf[:read]); werr != nil {
				return errors.E("transfer", errors.IO, werr)
			}
			off += int64(read)
			remaining -= int64(read)
		}
		if err != nil {
			if err == io.EOF && remaining == 0 {
				break
			}
			return errors.E("transfer", errors.IO, err)
		}
	}
	return nil
}
