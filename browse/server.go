// Package browse serves an HTTP view of an open vpk.Package: a
// recursive directory listing, a /stats page, and /files/<path>
// content streaming. Responses are gzip-compressed via
// github.com/NYTimes/gziphandler; the stats page is Markdown rendered
// with github.com/russross/blackfriday; TLS is optionally provisioned
// with golang.org/x/crypto/acme/autocert.
package browse

import (
	"crypto/tls"
	"fmt"
	"net/http"

	"github.com/NYTimes/gziphandler"
	"golang.org/x/crypto/acme/autocert"

	"github.com/vpktool/vpk/cache"
	"github.com/vpktool/vpk/log"
	"github.com/vpktool/vpk/vpk"
)

// Server serves HTTP views over a single immutable *vpk.Package. Each
// request opens and closes its own ArchiveCache, so the cache's
// single-owner rule holds per request, while the read-only Package is
// shared safely across goroutines.
type Server struct {
	pkg *vpk.Package

	// pages caches rendered listing/stats HTML by request path. It is
	// never invalidated because pkg is immutable for the process
	// lifetime.
	pages *cache.LRU
}

// New returns a Server for pkg, caching up to 128 rendered pages.
func New(pkg *vpk.Package) *Server {
	return &Server{pkg: pkg, pages: cache.NewLRU(128)}
}

func (s *Server) mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/stats", s.handleStats)
	mux.HandleFunc("/files/", s.handleFile)
	return mux
}

// ListenAndServe serves the package at addr. If domain is non-empty,
// it serves TLS via autocert for that domain instead of plain HTTP.
func (s *Server) ListenAndServe(addr, domain string) error {
	handler := gziphandler.GzipHandler(s.mux())

	if domain == "" {
		log.Printf("browse: serving %s on %s", s.pkg.DirPath, addr)
		return http.ListenAndServe(addr, handler)
	}

	m := &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(domain),
		Cache:      autocert.DirCache("autocert-cache"),
	}
	srv := &http.Server{
		Addr:      ":https",
		Handler:   handler,
		TLSConfig: &tls.Config{GetCertificate: m.GetCertificate},
	}
	log.Printf("browse: serving %s on %s (TLS, domain=%s)", s.pkg.DirPath, srv.Addr, domain)
	go http.ListenAndServe(":http", m.HTTPHandler(nil))
	return srv.ListenAndServeTLS("", "")
}

func httpError(w http.ResponseWriter, err error, code int) {
	w.WriteHeader(code)
	fmt.Fprintln(w, err)
}
