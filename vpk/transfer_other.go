// +build !linux

package vpk

import "io"

// transfer copies exactly n bytes from src, starting at srcOffset, to
// dst's current position, using a buffered read/write loop. Platforms
// other than Linux have no portable zero-copy file-to-file facility
// wired up here, so this is the only path.
func transfer(dst io.Writer, src io.ReaderAt, srcOffset int64, n int64) error {
	return bufferedTransfer(dst, src, srcOffset, n)
}
