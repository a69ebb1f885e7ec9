// Package flags defines command-line flags shared by every vpk
// subcommand, so they stay consistent between list/stats/check/
// unpack/pack/mount/browse instead of each one inventing its own name
// for the same knob.
package flags

import (
	"flag"

	"github.com/vpktool/vpk/log"
)

// Log is the live value of the --log flag Register adds to a
// flag.FlagSet; it is bound to log.SetLevel, so setting it also
// reconfigures the package-wide logger.
var Log logFlag

type logFlag string

// String implements flag.Value.
func (l *logFlag) String() string {
	return string(*l)
}

// Set implements flag.Value.
func (l *logFlag) Set(level string) error {
	if err := log.SetLevel(level); err != nil {
		return err
	}
	*l = logFlag(level)
	return nil
}

// Get implements flag.Getter.
func (l *logFlag) Get() interface{} {
	return log.GetLevel()
}

// Register adds the --log flag to fs, defaulting to the logger's
// current level. Every vpk subcommand calls this through
// State.ParseFlags so --log behaves identically everywhere.
func Register(fs *flag.FlagSet) {
	Log = logFlag(log.GetLevel())
	fs.Var(&Log, "log", "`level` of logging: debug, info, error, disabled")
}
