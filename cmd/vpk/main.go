// Command vpk reads, writes, verifies, and serves Valve Package (VPK)
// archives.
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
)

var commands = map[string]func(*State, ...string){
	"list":   (*State).list,
	"stats":  (*State).stats,
	"check":  (*State).check,
	"unpack": (*State).unpack,
	"pack":   (*State).pack,
	"mount":  (*State).mount,
	"browse": (*State).browse,
}

func main() {
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
	}

	op := flag.Arg(0)
	fn := commands[op]
	if fn == nil {
		fmt.Fprintf(os.Stderr, "vpk: no such command %q\n", op)
		usage()
	}

	s := NewState(op)
	fn(s, flag.Args()[1:]...)
	os.Exit(s.ExitCode)
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage of vpk:\n")
	fmt.Fprintf(os.Stderr, "\tvpk <command> [flags] <dir.vpk> ...\n")
	fmt.Fprintf(os.Stderr, "Commands:\n")
	var names []string
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(os.Stderr, "\t%s\n", name)
	}
	os.Exit(2)
}
