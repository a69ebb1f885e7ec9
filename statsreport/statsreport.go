// Package statsreport computes the aggregate figures the stats CLI
// subcommand and the browse collaborator's /stats page both render,
// so the two share one source of truth instead of two divergent
// walks of the index.
package statsreport

import (
	"fmt"
	"strings"

	"github.com/vpktool/vpk/sizefmt"
	"github.com/vpktool/vpk/vpk"
)

// Stats is the aggregate summary of a package.
type Stats struct {
	Version       uint32
	NumFiles      int
	NumDirs       int
	NumArchives   int
	TotalInline   int64
	TotalArchived int64
	LargestFile   string
	LargestSize   int64
}

// Compute walks p and summarizes it.
func Compute(p *vpk.Package) Stats {
	st := Stats{Version: p.Version}
	seen := map[uint16]bool{}
	dirs := map[string]bool{}
	for _, rec := range vpk.Walk(p.Root, nil) {
		st.NumFiles++
		st.TotalInline += int64(rec.File.InlineSize)
		st.TotalArchived += rec.File.ArchiveSize()
		if !rec.File.IsDirIndex() {
			seen[rec.File.ArchiveIndex] = true
		}
		if rec.Dir != "" {
			dirs[rec.Dir] = true
		}
		if rec.File.FullSize() > st.LargestSize {
			st.LargestSize = rec.File.FullSize()
			st.LargestFile = rec.Path
		}
	}
	st.NumArchives = len(seen)
	st.NumDirs = len(dirs)
	return st
}

// Markdown renders the stats as a Markdown document, for the browse
// collaborator to turn into HTML with blackfriday.
func (s Stats) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Package statistics\n\n")
	fmt.Fprintf(&b, "- **Version**: %d\n", s.Version)
	fmt.Fprintf(&b, "- **Files**: %d\n", s.NumFiles)
	fmt.Fprintf(&b, "- **Directories**: %d\n", s.NumDirs)
	fmt.Fprintf(&b, "- **Numbered archives**: %d\n", s.NumArchives)
	fmt.Fprintf(&b, "- **Total inline**: %s\n", sizefmt.Human(s.TotalInline))
	fmt.Fprintf(&b, "- **Total archived**: %s\n", sizefmt.Human(s.TotalArchived))
	if s.LargestFile != "" {
		fmt.Fprintf(&b, "- **Largest file**: %s (%s)\n", s.LargestFile, sizefmt.Human(s.LargestSize))
	}
	return b.String()
}
