package main

import (
	"flag"
	"hash"
	"hash/crc32"

	"github.com/vpktool/vpk/vpk"
)

// newTrackingCRC returns an IEEE CRC-32 accumulator, matching the one
// the core package uses internally, for callers (like unpack --check)
// that verify while streaming rather than after the fact.
func newTrackingCRC() hash.Hash32 {
	return crc32.NewIEEE()
}

// openFlags are the flags every read-only subcommand shares for
// controlling how a package is opened.
type openFlags struct {
	allowV0 *bool
}

func addOpenFlags(fs *flag.FlagSet) *openFlags {
	return &openFlags{
		allowV0: fs.Bool("allow-v0", false, "permit reading a package with no header"),
	}
}

func (o *openFlags) options() vpk.OpenOptions {
	return vpk.OpenOptions{AllowV0: *o.allowV0}
}

func (s *State) open(path string, o *openFlags) *vpk.Package {
	p, err := vpk.Open(path, o.options())
	if err != nil {
		s.Exit(err)
	}
	return p
}
