package browse

import (
	"fmt"
	"html"
	"net/http"
	"strings"

	"github.com/vpktool/vpk/sizefmt"
	"github.com/vpktool/vpk/vpk"
)

// handleIndex renders a recursive file listing of the whole package
// under Walk's default (canonical) order, the same order
// `vpk list` prints without --sort.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if cached, ok := s.pages.Get(r.URL.Path); ok {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(cached.([]byte))
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<html><head><title>%s</title></head><body>\n", html.EscapeString(s.pkg.Prefix))
	fmt.Fprintf(&b, "<h1>%s</h1>\n<table>\n", html.EscapeString(s.pkg.DirPath))
	fmt.Fprintln(&b, "<tr><th>Path</th><th>Inline</th><th>Archive</th><th>CRC32</th></tr>")
	for _, rec := range vpk.Walk(s.pkg.Root, nil) {
		fmt.Fprintf(&b, "<tr><td><a href=\"/files/%s\">%s</a></td><td>%s</td><td>%s</td><td>%08x</td></tr>\n",
			html.EscapeString(rec.Path), html.EscapeString(rec.Path),
			sizefmt.Human(int64(rec.File.InlineSize)),
			sizefmt.Human(rec.File.ArchiveSize()),
			rec.File.CRC32)
	}
	fmt.Fprintln(&b, "</table></body></html>")

	out := []byte(b.String())
	s.pages.Add(r.URL.Path, out)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(out)
}
