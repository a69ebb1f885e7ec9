package flags

import (
	"flag"
	"testing"

	"github.com/vpktool/vpk/log"
)

func TestRegisterSetsLogLevel(t *testing.T) {
	defer log.SetLevel("info")

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	Register(fs)

	if err := fs.Parse([]string{"-log", "debug"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := log.GetLevel(); got != "debug" {
		t.Errorf("log.GetLevel() = %q, want %q", got, "debug")
	}
	if got := Log.String(); got != "debug" {
		t.Errorf("Log.String() = %q, want %q", got, "debug")
	}
}

func TestRegisterRejectsUnknownLevel(t *testing.T) {
	defer log.SetLevel("info")

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	Register(fs)

	if err := fs.Parse([]string{"-log", "bogus"}); err == nil {
		t.Errorf("Parse with unknown level = nil error, want one")
	}
}
