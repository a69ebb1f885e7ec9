package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vpktool/vpk/vpk"
)

func (s *State) unpack(args ...string) {
	const help = `
Unpack extracts every file in the package, or just the given paths,
into outdir, recreating the directory/name hierarchy.
`
	fs := flag.NewFlagSet("unpack", flag.ExitOnError)
	open := addOpenFlags(fs)
	check := fs.Bool("check", false, "verify each file's CRC-32 while extracting")
	s.ParseFlags(fs, args, help, "unpack [flags] <dir.vpk> <outdir> [paths...]")

	if fs.NArg() < 2 {
		fs.Usage()
		os.Exit(2)
	}
	p := s.open(fs.Arg(0), open)
	outDir := fs.Arg(1)

	records, err := vpk.WalkFrom(p.Root, fs.Args()[2:], vpk.PhysicalOrder)
	if err != nil {
		s.Exit(err)
	}

	cache := vpk.NewArchiveCache(p.Dir, p.Prefix, vpk.ForReading)
	defer cache.Close()

	for _, rec := range records {
		dst := filepath.Join(outDir, filepath.FromSlash(rec.Path))
		if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
			s.Errorf("%s: %s", rec.Path, err)
			continue
		}
		f, err := os.Create(dst)
		if err != nil {
			s.Errorf("%s: %s", rec.Path, err)
			continue
		}
		if *check {
			sum := newTrackingCRC()
			err = cache.ReadFileData(rec.File, func(chunk []byte) error {
				sum.Write(chunk)
				_, werr := f.Write(chunk)
				return werr
			})
			if err == nil && sum.Sum32() != rec.File.CRC32 {
				err = fmt.Errorf("CRC32 mismatch")
			}
		} else {
			err = cache.Transfer(rec.File, f)
		}
		cerr := f.Close()
		if err == nil {
			err = cerr
		}
		if err != nil {
			s.Errorf("%s: %s", rec.Path, err)
			continue
		}
	}
}
