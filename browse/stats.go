package browse

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/russross/blackfriday"

	"github.com/vpktool/vpk/statsreport"
)

// handleStats renders the same figures the stats CLI subcommand
// prints, as a Markdown report turned into HTML through blackfriday.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if cached, ok := s.pages.Get(r.URL.Path); ok {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(cached.([]byte))
		return
	}

	st := statsreport.Compute(s.pkg)
	md := st.Markdown()
	html := blackfriday.MarkdownCommon([]byte(md))

	var b bytes.Buffer
	fmt.Fprintf(&b, "<html><head><title>stats: %s</title></head><body>\n", s.pkg.Prefix)
	b.Write(html)
	b.WriteString("\n</body></html>")

	out := b.Bytes()
	s.pages.Add(r.URL.Path, out)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(out)
}
