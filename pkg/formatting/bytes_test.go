package formatting_test

import (
	"math"
	"testing"

	"pgregory.net/rapid"

	"github.com/JaimeStill/kontrib/pkg/formatting"
)

func TestParseBytes(t *testing.T) {
	tests := []struct {
		in   string
		want formatting.Bytes
	}{
		{"2048", 2048},
		{"1MB", formatting.MB},
		{"1 mb", formatting.MB},
		{"512KiB", 512 * formatting.KB},
		{"1.5K", 1536},
		{" 2 GB ", 2 * formatting.GB},
		{"10b", 10},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := formatting.ParseBytes(tt.in)
			if err != nil {
				t.Fatalf("ParseBytes(%q): %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseBytes(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseBytesInvalid(t *testing.T) {
	for _, in := range []string{"", "MB", "-1MB", "12 parsecs", "1..2MB"} {
		t.Run(in, func(t *testing.T) {
			if _, err := formatting.ParseBytes(in); err == nil {
				t.Errorf("ParseBytes(%q) succeeded", in)
			}
		})
	}
}

func TestBytesString(t *testing.T) {
	tests := []struct {
		in   formatting.Bytes
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{formatting.KB, "1 KB"},
		{1536, "1.5 KB"},
		{formatting.MB, "1 MB"},
		{3 * formatting.GB, "3 GB"},
		{-formatting.KB, "-1 KB"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.in.String(); got != tt.want {
				t.Errorf("%d.String() = %q, want %q", int64(tt.in), got, tt.want)
			}
		})
	}
}

func TestBytesUnmarshalText(t *testing.T) {
	var b formatting.Bytes
	if err := b.UnmarshalText([]byte("4MB")); err != nil {
		t.Fatal(err)
	}
	if b != 4*formatting.MB {
		t.Errorf("got %d", b)
	}
	if err := b.UnmarshalText([]byte("lots")); err == nil {
		t.Error("expected error")
	}
}

// Parsing the string form of a size lands within the rounding of one decimal
// place of the original.
func TestBytesRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.Int64Range(0, 1<<20).Draw(t, "n")
		unit := rapid.SampledFrom([]formatting.Bytes{formatting.Byte, formatting.KB, formatting.MB, formatting.GB}).Draw(t, "unit")
		b := formatting.Bytes(n) * unit

		got, err := formatting.ParseBytes(b.String())
		if err != nil {
			t.Fatalf("parse %q: %v", b.String(), err)
		}
		diff := math.Abs(float64(got - b))
		if diff > 0.05*float64(b)+1 {
			t.Fatalf("%d rendered as %q parsed back as %d", int64(b), b.String(), int64(got))
		}
	})
}
