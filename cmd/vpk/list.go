package main

import (
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/vpktool/vpk/sizefmt"
	"github.com/vpktool/vpk/vpk"
)

func (s *State) list(args ...string) {
	const help = `
List prints every file in the package, or just the given paths,
one per line, with its inline and archive sizes.
`
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	open := addOpenFlags(fs)
	sortSpec := fs.String("sort", "", "comma-separated sort keys, e.g. -full-size,name")
	s.ParseFlags(fs, args, help, "list [flags] <dir.vpk> [paths...]")

	if fs.NArg() < 1 {
		fs.Usage()
		os.Exit(2)
	}
	p := s.open(fs.Arg(0), open)

	order, err := vpk.ParseSortOrder(*sortSpec)
	if err != nil {
		s.Exit(err)
	}
	records, err := vpk.WalkFrom(p.Root, fs.Args()[1:], order)
	if err != nil {
		s.Exit(err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "Path\tInline-Size\tArchive-Size\tArchive\tCRC32")
	for _, rec := range records {
		archive := "dir"
		if !rec.File.IsDirIndex() {
			archive = fmt.Sprintf("%03d", rec.File.ArchiveIndex)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%08x\n",
			rec.Path,
			sizefmt.Human(int64(rec.File.InlineSize)),
			sizefmt.Human(rec.File.ArchiveSize()),
			archive,
			rec.File.CRC32)
	}
	w.Flush()
}
