package main

import (
	"flag"
	"os"

	"github.com/vpktool/vpk/mount"
)

func (s *State) mount(args ...string) {
	const help = `
Mount serves the package as a read-only FUSE filesystem at mountpoint,
until interrupted.
`
	fs := flag.NewFlagSet("mount", flag.ExitOnError)
	open := addOpenFlags(fs)
	debug := fs.Bool("debug", false, "log every FUSE request")
	s.ParseFlags(fs, args, help, "mount [flags] <dir.vpk> <mountpoint>")

	if fs.NArg() != 2 {
		fs.Usage()
		os.Exit(2)
	}
	p := s.open(fs.Arg(0), open)

	if err := mount.Serve(p, fs.Arg(1), mount.Options{Debug: *debug}); err != nil {
		s.Exit(err)
	}
}
