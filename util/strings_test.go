package util

import "testing"

func TestOrDefault(t *testing.T) {
	if got := OrDefault("", "64KB"); got != "64KB" {
		t.Errorf("expected default, got %q", got)
	}
	if got := OrDefault("1MB", "64KB"); got != "1MB" {
		t.Errorf("expected set value, got %q", got)
	}
	if got := OrDefault(0, 5); got != 5 {
		t.Errorf("expected 5, got %d", got)
	}
}

func TestSanitizeEnvValue(t *testing.T) {
	tests := map[string]string{
		`"debug"`:    "debug",
		`'json'`:     "json",
		"  info  ":   "info",
		`"unclosed`:  `"unclosed`,
		`" spaced "`: "spaced",
	}
	for in, want := range tests {
		if got := SanitizeEnvValue(in); got != want {
			t.Errorf("SanitizeEnvValue(%q) = %q, want %q", in, got, want)
		}
	}
}
