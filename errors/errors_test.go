package errors

import (
	"testing"
)

func TestE(t *testing.T) {
	err := E(Path("sub/a.txt"), "Open", IllegalMagic)
	e, ok := err.(*Error)
	if !ok {
		t.Fatalf("E did not return *Error")
	}
	if e.Path != "sub/a.txt" {
		t.Errorf("Path = %q, want %q", e.Path, "sub/a.txt")
	}
	if e.Op != "Open" {
		t.Errorf("Op = %q, want %q", e.Op, "Open")
	}
	if e.Kind != IllegalMagic {
		t.Errorf("Kind = %v, want %v", e.Kind, IllegalMagic)
	}
}

func TestEPullsUpInnerKind(t *testing.T) {
	inner := E("parseIndex", UnexpectedEOF)
	outer := E("Open", inner)
	e := outer.(*Error)
	if e.Kind != UnexpectedEOF {
		t.Errorf("outer Kind = %v, want %v", e.Kind, UnexpectedEOF)
	}
}

func TestESuppressesDuplicatePath(t *testing.T) {
	inner := E(Path("pak01_dir.vpk"), "parseIndex")
	outer := E(Path("pak01_dir.vpk"), "Open", inner)
	e := outer.(*Error)
	inn := e.Err.(*Error)
	if inn.Path != "" {
		t.Errorf("inner Path = %q, want empty (suppressed)", inn.Path)
	}
}

func TestErrorString(t *testing.T) {
	err := E(Path("pak01_dir.vpk"), "Open", IllegalMagic)
	got := err.Error()
	want := "pak01_dir.vpk: Open: illegal magic number"
	if got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestIs(t *testing.T) {
	err := E("Open", IllegalMagic)
	if !Is(IllegalMagic, err) {
		t.Errorf("Is(IllegalMagic, err) = false, want true")
	}
	if Is(NoSuchEntry, err) {
		t.Errorf("Is(NoSuchEntry, err) = true, want false")
	}
	if Is(IllegalMagic, Str("plain error")) {
		t.Errorf("Is on a non-*Error returned true")
	}
}

func TestIllegalTerminatorDetail(t *testing.T) {
	err := E(Path("pak01_dir.vpk"), "parseIndex", IllegalTerminator, ByteOffset(128), Value(0x1234))
	got := err.Error()
	want := "pak01_dir.vpk: parseIndex: illegal terminator: got 0x1234 at offset 128"
	if got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestIllegalArgumentDetail(t *testing.T) {
	err := E("pack", IllegalArgument, Argument("max-inline-size"), Given("-1"))
	got := err.Error()
	want := "pack: illegal argument: argument max-inline-size=-1"
	if got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
