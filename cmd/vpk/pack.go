package main

import (
	"flag"
	"os"

	"github.com/vpktool/vpk/config"
	"github.com/vpktool/vpk/sizefmt"
	"github.com/vpktool/vpk/vpk"
)

func (s *State) pack(args ...string) {
	const help = `
Pack scans indir and writes a self-consistent package to dir.vpk (and,
as needed, numbered archives beside it). Options may come from flags
or, with --config, a YAML manifest (see config.Manifest); flags given
alongside --config override the manifest's corresponding field.
`
	fs := flag.NewFlagSet("pack", flag.ExitOnError)
	manifestPath := fs.String("config", "", "load pack options from a YAML manifest")
	version := fs.Int("version", 1, "output format version (1 or 2)")
	maxArchiveSize := fs.String("max-archive-size", "", "roll over to a new archive past this size")
	archiveFromDirname := fs.Bool("archive-from-dirname", false, "use top-level source folder names to pick archives")
	maxInlineSize := fs.String("max-inline-size", "", "upper bound on a file's inline_size")
	alignment := fs.Int64("alignment", 0, "round archived offsets up to a multiple of N")
	md5ChunkSize := fs.String("md5-chunk-size", "", "V2 per-archive MD5 chunk width")
	s.ParseFlags(fs, args, help, "pack [flags] <dir.vpk> <indir>")

	var opts vpk.PackOptions
	var srcDir, dirPath string

	if *manifestPath != "" {
		m, err := config.Load(*manifestPath)
		if err != nil {
			s.Exit(err)
		}
		opts, err = m.PackOptions()
		if err != nil {
			s.Exit(err)
		}
		srcDir = m.Source
		dirPath = m.Output
		if fs.NArg() == 1 {
			dirPath = fs.Arg(0)
		}

		// Flags given alongside --config override the manifest's
		// corresponding field; fs.Visit only calls back for flags the
		// user actually set, so unset flags leave the manifest alone.
		fs.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "version":
				opts.Version = uint32(*version)
			case "archive-from-dirname":
				if *archiveFromDirname {
					opts.Strategy = vpk.ArchiveFromDirName
				} else {
					opts.Strategy = vpk.MaxArchiveSize
				}
			case "max-archive-size":
				n, err := sizefmt.Parse(*maxArchiveSize)
				if err != nil {
					s.Exit(err)
				}
				opts.MaxArchiveSize = n
			case "max-inline-size":
				n, err := sizefmt.Parse(*maxInlineSize)
				if err != nil {
					s.Exit(err)
				}
				opts.MaxInlineSize = n
			case "md5-chunk-size":
				n, err := sizefmt.Parse(*md5ChunkSize)
				if err != nil {
					s.Exit(err)
				}
				opts.Md5ChunkSize = n
			case "alignment":
				opts.Alignment = *alignment
			}
		})
	} else {
		if fs.NArg() != 2 {
			fs.Usage()
			os.Exit(2)
		}
		dirPath = fs.Arg(0)
		srcDir = fs.Arg(1)
		opts = vpk.DefaultPackOptions()
		opts.Version = uint32(*version)
		if *archiveFromDirname {
			opts.Strategy = vpk.ArchiveFromDirName
		}
		if *maxArchiveSize != "" {
			n, err := sizefmt.Parse(*maxArchiveSize)
			if err != nil {
				s.Exit(err)
			}
			opts.MaxArchiveSize = n
		}
		if *maxInlineSize != "" {
			n, err := sizefmt.Parse(*maxInlineSize)
			if err != nil {
				s.Exit(err)
			}
			opts.MaxInlineSize = n
		}
		if *md5ChunkSize != "" {
			n, err := sizefmt.Parse(*md5ChunkSize)
			if err != nil {
				s.Exit(err)
			}
			opts.Md5ChunkSize = n
		}
		opts.Alignment = *alignment
	}

	if _, err := vpk.Pack(srcDir, dirPath, opts); err != nil {
		s.Exit(err)
	}
}
