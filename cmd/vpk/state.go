package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/vpktool/vpk/flags"
)

// State carries the per-invocation context every subcommand shares:
// which operation is running and the process exit code it should
// leave behind.
type State struct {
	Op       string
	ExitCode int
}

// NewState returns a new State for the named subcommand.
func NewState(op string) *State {
	return &State{Op: op}
}

// ParseFlags parses fs against args, printing help and exiting on
// -h/-help. Each subcommand checks its own argument count.
func (s *State) ParseFlags(fs *flag.FlagSet, args []string, help, usage string) {
	flags.Register(fs)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: vpk %s\n", usage)
		if help != "" {
			fmt.Fprintln(os.Stderr, help)
		}
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(2)
	}
}

// Errorf records a failure for the current subcommand. Unlike Exitf
// it does not terminate: callers that can go on with other items
// (unpack, per failed file) call this per item and let the process
// exit non-zero at the end.
func (s *State) Errorf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "vpk %s: %s\n", s.Op, fmt.Sprintf(format, args...))
	s.ExitCode = 1
}

// Exitf prints the error and terminates the process immediately with
// exit code 1.
func (s *State) Exitf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "vpk %s: %s\n", s.Op, fmt.Sprintf(format, args...))
	os.Exit(1)
}

// Exit calls Exitf with err's message.
func (s *State) Exit(err error) {
	s.Exitf("%s", err)
}
