package mount

import (
	"fmt"
	"syscall"

	"bazil.org/fuse"

	"github.com/vpktool/vpk/errors"
	"github.com/vpktool/vpk/log"
)

// fuseError is an error string carrying a POSIX errno, the shape
// bazil.org/fuse requires to report anything other than EIO to the
// kernel.
type fuseError struct {
	errno syscall.Errno
	err   string
}

func (e *fuseError) Error() string { return e.err }

func (e *fuseError) Errno() fuse.Errno { return fuse.Errno(e.errno) }

func mkError(errno syscall.Errno, format string, vars ...interface{}) *fuseError {
	msg := fmt.Sprintf(format, vars...)
	log.Println(msg)
	return &fuseError{errno, msg}
}

func enoent(format string, vars ...interface{}) *fuseError {
	return mkError(syscall.ENOENT, "no such file or directory: "+format, vars...)
}

func enotdir(format string, vars ...interface{}) *fuseError {
	return mkError(syscall.ENOTDIR, "not a directory: "+format, vars...)
}

func eio(format string, vars ...interface{}) *fuseError {
	return mkError(syscall.EIO, format, vars...)
}

func erofs(format string, vars ...interface{}) *fuseError {
	return mkError(syscall.EROFS, "read-only filesystem: "+format, vars...)
}

// translate maps a vpk core error to the matching FUSE errno, driven
// off errors.Kind so every call site reports the same way.
func translate(path string, err error) error {
	switch {
	case errors.Is(errors.NoSuchEntry, err):
		return enoent("%s", path)
	case errors.Is(errors.EntryNotADir, err):
		return enotdir("%s", path)
	default:
		return eio("%s: %s", path, err)
	}
}
