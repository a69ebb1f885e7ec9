package vpk

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/vpktool/vpk/errors"
)

func TestUint32RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := writeUint32(&buf, 0xdeadbeef); err != nil {
		t.Fatalf("writeUint32: %v", err)
	}
	got, err := readUint32(&buf)
	if err != nil {
		t.Fatalf("readUint32: %v", err)
	}
	if got != 0xdeadbeef {
		t.Errorf("got %#x, want %#x", got, 0xdeadbeef)
	}
}

func TestUint16RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := writeUint16(&buf, 0xbeef); err != nil {
		t.Fatalf("writeUint16: %v", err)
	}
	got, err := readUint16(&buf)
	if err != nil {
		t.Fatalf("readUint16: %v", err)
	}
	if got != 0xbeef {
		t.Errorf("got %#x, want %#x", got, 0xbeef)
	}
}

func TestCStringRoundTrip(t *testing.T) {
	for _, s := range []string{"", "a", "models/weapons", "gun.mdl"} {
		var buf bytes.Buffer
		if err := writeCString(&buf, s); err != nil {
			t.Fatalf("writeCString(%q): %v", s, err)
		}
		if int64(buf.Len()) != sizeOfCString(s) {
			t.Errorf("sizeOfCString(%q) = %d, wrote %d bytes", s, sizeOfCString(s), buf.Len())
		}
		got, err := readCString(bufio.NewReader(&buf))
		if err != nil {
			t.Fatalf("readCString(%q): %v", s, err)
		}
		if got != s {
			t.Errorf("readCString round trip = %q, want %q", got, s)
		}
	}
}

func TestReadCStringTruncated(t *testing.T) {
	r := bufio.NewReader(bytes.NewReader([]byte("no terminator")))
	_, err := readCString(r)
	if err == nil {
		t.Fatalf("readCString on unterminated input: got nil error")
	}
	if !errors.Is(errors.UnexpectedEOF, err) {
		t.Errorf("readCString on unterminated input: got %v, want UnexpectedEOF", err)
	}
}

func TestCRC32Matches(t *testing.T) {
	sum := newCRC32()
	sum.Write([]byte("hello, vpk"))
	if sum.Sum32() == 0 {
		t.Errorf("newCRC32 produced a zero checksum for non-empty input")
	}
}
