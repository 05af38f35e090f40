package util

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseSize parses a human-readable size string (e.g. "10MB", "512KB", "2GB")
// into bytes. Returns defaultBytes if the string cannot be parsed.
func ParseSize(s string, defaultBytes int64) int64 {
	n, err := ParseSizeStrict(s)
	if err != nil {
		return defaultBytes
	}
	return n
}

// ParseSizeStrict parses a size string like ParseSize but reports malformed,
// empty or non-positive values as errors.
func ParseSizeStrict(s string) (int64, error) {
	u := strings.ToUpper(strings.TrimSpace(s))
	if u == "" {
		return 0, fmt.Errorf("empty size")
	}

	var multiplier int64 = 1
	switch {
	case strings.HasSuffix(u, "GB"):
		multiplier = 1024 * 1024 * 1024
		u = u[:len(u)-2]
	case strings.HasSuffix(u, "MB"):
		multiplier = 1024 * 1024
		u = u[:len(u)-2]
	case strings.HasSuffix(u, "KB"):
		multiplier = 1024
		u = u[:len(u)-2]
	case strings.HasSuffix(u, "B"):
		u = u[:len(u)-1]
	}

	val, err := strconv.ParseInt(strings.TrimSpace(u), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q", s)
	}
	if val <= 0 {
		return 0, fmt.Errorf("size must be positive (got: %q)", s)
	}
	return val * multiplier, nil
}
