// Package formatting converts request and payload size limits between their
// configured text form ("1MB", "512 KiB") and byte counts.
package formatting

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Bytes is a size in bytes. Units are base-1024.
type Bytes int64

const (
	Byte Bytes = 1 << (10 * iota)
	KB
	MB
	GB
	TB
)

var suffixes = map[string]Bytes{
	"":    Byte,
	"b":   Byte,
	"k":   KB,
	"kb":  KB,
	"kib": KB,
	"m":   MB,
	"mb":  MB,
	"mib": MB,
	"g":   GB,
	"gb":  GB,
	"gib": GB,
	"t":   TB,
	"tb":  TB,
	"tib": TB,
}

var scale = []struct {
	unit Bytes
	name string
}{
	{TB, "TB"},
	{GB, "GB"},
	{MB, "MB"},
	{KB, "KB"},
}

// String renders b in the largest unit that keeps the value at or above one,
// rounded to one decimal place. A trailing ".0" is dropped.
func (b Bytes) String() string {
	if b < 0 {
		return "-" + (-b).String()
	}
	for _, s := range scale {
		if b >= s.unit {
			v := float64(b) / float64(s.unit)
			return strings.TrimSuffix(strconv.FormatFloat(v, 'f', 1, 64), ".0") + " " + s.name
		}
	}
	return strconv.FormatInt(int64(b), 10) + " B"
}

// UnmarshalText accepts the forms ParseBytes accepts.
func (b *Bytes) UnmarshalText(text []byte) error {
	v, err := ParseBytes(string(text))
	if err != nil {
		return err
	}
	*b = v
	return nil
}

// ParseBytes parses sizes such as "1MB", "1.5 mb", "512KiB" or "2048". A bare
// number is a byte count. Units are case-insensitive.
func ParseBytes(s string) (Bytes, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty byte size")
	}

	split := strings.IndexFunc(s, func(r rune) bool {
		return !unicode.IsDigit(r) && r != '.'
	})
	number, suffix := s, ""
	if split >= 0 {
		number, suffix = s[:split], strings.TrimSpace(s[split:])
	}

	unit, ok := suffixes[strings.ToLower(suffix)]
	if !ok {
		return 0, fmt.Errorf("unknown byte size unit %q", suffix)
	}

	v, err := strconv.ParseFloat(number, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid byte size %q", s)
	}
	return Bytes(v * float64(unit)), nil
}
