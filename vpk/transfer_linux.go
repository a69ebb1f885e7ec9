// +build linux

package vpk

import (
	"io"
	"os"

	"golang.org/x/sys/unix"

	"github.com/vpktool/vpk/errors"
)

// transfer copies exactly n bytes from src, starting at srcOffset, to
// dst's current position. On Linux it uses sendfile(2) for a
// zero-copy kernel-side transfer when both ends are plain *os.File;
// any other case, or a sendfile failure that is not a transient
// EINTR/EAGAIN, falls back to the portable buffered copy.
func transfer(dst io.Writer, src io.ReaderAt, srcOffset int64, n int64) error {
	dstFile, dOK := dst.(*os.File)
	srcFile, sOK := src.(*os.File)
	if !dOK || !sOK {
		return bufferedTransfer(dst, src, srcOffset, n)
	}

	off := srcOffset
	remaining := n
	for remaining > 0 {
		want := remaining
		if want > 1<<30 {
			want = 1 << 30 // sendfile caps a single call's byte count.
		}
		written, err := unix.Sendfile(int(dstFile.Fd()), int(srcFile.Fd()), &off, int(want))
		if err != nil {
			if err == unix.EINTR || err == unix.EAGAIN {
				continue
			}
			if written <= 0 {
				// sendfile can refuse entirely (e.g. across filesystems);
				// fall back rather than fail the whole transfer.
				return bufferedTransfer(dst, src, off, remaining)
			}
			return errors.E("transfer", errors.IO, err)
		}
		if written == 0 {
			return errors.E("transfer", errors.UnexpectedEOF)
		}
		remaining -= int64(written)
	}
	return nil
}
