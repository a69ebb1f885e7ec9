package sizefmt_test

import (
	"testing"

	"github.com/vpktool/vpk/sizefmt"
)

func TestParse(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"", 0},
		{"0", 0},
		{"65535", 65535},
		{"1K", 1024},
		{"1k", 1024},
		{"200M", 200 * 1024 * 1024},
		{"1G", 1 << 30},
	}
	for _, c := range cases {
		got, err := sizefmt.Parse(c.in)
		if err != nil {
			t.Errorf("Parse(%q): %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("Parse(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	if _, err := sizefmt.Parse("not-a-size"); err == nil {
		t.Errorf("Parse accepted garbage input")
	}
}

func TestFormat(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{0, "0B"},
		{1023, "1023B"},
		{1024, "1K"},
		{1 << 20, "1M"},
		{1<<20 + 1, "1048577B"},
	}
	for _, c := range cases {
		if got := sizefmt.Format(c.in); got != c.want {
			t.Errorf("Format(%d) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestHuman(t *testing.T) {
	if got := sizefmt.Human(512); got != "512B" {
		t.Errorf("Human(512) = %q, want 512B", got)
	}
	if got := sizefmt.Human(1536); got != "1.5K" {
		t.Errorf("Human(1536) = %q, want 1.5K", got)
	}
}
