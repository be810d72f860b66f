// Package bytesize parses human-friendly byte sizes such as "64KB".
package bytesize

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// Units are 1024-based. "K", "KB" and "KiB" mean the same thing.
var units = map[string]int64{
	"":  1,
	"B": 1,
	"K": 1 << 10,
	"M": 1 << 20,
	"G": 1 << 30,
	"T": 1 << 40,
}

// Parse returns the number of bytes in s. A bare number is a byte count.
//
//	Parse("65536") // 65536
//	Parse("64KB")  // 65536
//	Parse("1.5MiB") // 1572864
func Parse(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty size")
	}

	split := strings.IndexFunc(s, func(r rune) bool {
		return !unicode.IsDigit(r) && r != '.'
	})
	number, suffix := s, ""
	if split >= 0 {
		number, suffix = s[:split], strings.TrimSpace(s[split:])
	}
	if number == "" {
		return 0, fmt.Errorf("invalid size %q: missing number", s)
	}

	unit := strings.ToUpper(suffix)
	unit = strings.TrimSuffix(unit, "IB")
	if len(unit) == 2 && unit[1] == 'B' {
		unit = unit[:1]
	}
	multiplier, ok := units[unit]
	if !ok {
		return 0, fmt.Errorf("invalid size %q: unknown unit %q", s, suffix)
	}

	value, err := strconv.ParseFloat(number, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	bytes := value * float64(multiplier)
	if bytes > math.MaxInt64 {
		return 0, fmt.Errorf("size %q is too large", s)
	}
	return int64(bytes), nil
}

// MustParse is Parse for constants. It panics on error.
func MustParse(s string) int64 {
	n, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return n
}
