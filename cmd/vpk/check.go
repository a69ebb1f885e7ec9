package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/vpktool/vpk/vpk"
)

func (s *State) check(args ...string) {
	const help = `
Check verifies every file's CRC-32, and, for V2 packages, the layered
MD5 digests. It prints one line per failure and exits non-zero if any
check failed.
`
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	open := addOpenFlags(fs)
	alignment := fs.Int64("alignment", 0, "require file offsets to be a multiple of N")
	stopOnError := fs.Bool("stop-on-error", false, "abort at the first failure")
	verbose := fs.Bool("v", false, "print OK as well as FAILED lines")
	s.ParseFlags(fs, args, help, "check [flags] <dir.vpk> [paths...]")

	if fs.NArg() < 1 {
		fs.Usage()
		os.Exit(2)
	}
	p := s.open(fs.Arg(0), open)

	cache := vpk.NewArchiveCache(p.Dir, p.Prefix, vpk.ForReading)
	defer cache.Close()

	report, err := vpk.Check(p, cache, vpk.CheckOptions{
		Alignment:   *alignment,
		StopOnError: *stopOnError,
		Roots:       fs.Args()[1:],
	})
	if err != nil {
		s.Exit(err)
	}

	for _, fc := range report.Files {
		switch {
		case fc.Err != nil:
			fmt.Printf("FAILED %s: %s\n", fc.Path, fc.Err)
		case *verbose:
			fmt.Printf("OK %s\n", fc.Path)
		}
	}
	for _, cc := range report.Chunks {
		if cc.Err != nil {
			fmt.Printf("FAILED chunk archive=%d offset=%d: %s\n", cc.Chunk.ArchiveIndex, cc.Chunk.Offset, cc.Err)
		} else if *verbose {
			fmt.Printf("OK chunk archive=%d offset=%d\n", cc.Chunk.ArchiveIndex, cc.Chunk.Offset)
		}
	}
	if report.IndexMd5Err != nil {
		fmt.Printf("FAILED index-md5: %s\n", report.IndexMd5Err)
	}
	if report.ArchiveMd5sMd5Err != nil {
		fmt.Printf("FAILED archive-md5s-md5: %s\n", report.ArchiveMd5sMd5Err)
	}
	if report.EverythingMd5Err != nil {
		fmt.Printf("FAILED everything-md5: %s\n", report.EverythingMd5Err)
	}

	if !report.OK() {
		s.ExitCode = 1
	}
}
