package main

import (
	"flag"
	"os"

	"github.com/vpktool/vpk/browse"
)

func (s *State) browse(args ...string) {
	const help = `
Browse serves an HTTP view of the package: a recursive directory
listing, a /stats page, and /files/<path> streaming of file content.
`
	fs := flag.NewFlagSet("browse", flag.ExitOnError)
	open := addOpenFlags(fs)
	httpAddr := fs.String("http-addr", ":8080", "address to serve HTTP on")
	domain := fs.String("domain", "", "if set, serve TLS via autocert for this domain")
	s.ParseFlags(fs, args, help, "browse [flags] <dir.vpk>")

	if fs.NArg() != 1 {
		fs.Usage()
		os.Exit(2)
	}
	p := s.open(fs.Arg(0), open)

	srv := browse.New(p)
	if err := srv.ListenAndServe(*httpAddr, *domain); err != nil {
		s.Exit(err)
	}
}
