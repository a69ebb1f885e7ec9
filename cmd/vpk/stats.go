package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/vpktool/vpk/sizefmt"
	"github.com/vpktool/vpk/statsreport"
)

func (s *State) stats(args ...string) {
	const help = `
Stats prints aggregate figures about the package: file and directory
counts, numbered archive count, and total inline/archived bytes.
`
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	open := addOpenFlags(fs)
	s.ParseFlags(fs, args, help, "stats [flags] <dir.vpk>")

	if fs.NArg() != 1 {
		fs.Usage()
		os.Exit(2)
	}
	p := s.open(fs.Arg(0), open)
	st := statsreport.Compute(p)

	fmt.Printf("Version:          %d\n", st.Version)
	fmt.Printf("Files:            %d\n", st.NumFiles)
	fmt.Printf("Directories:      %d\n", st.NumDirs)
	fmt.Printf("Numbered archives: %d\n", st.NumArchives)
	fmt.Printf("Total inline:     %s\n", sizefmt.Human(st.TotalInline))
	fmt.Printf("Total archived:   %s\n", sizefmt.Human(st.TotalArchived))
	if st.LargestFile != "" {
		fmt.Printf("Largest file:     %s (%s)\n", st.LargestFile, sizefmt.Human(st.LargestSize))
	}
}
