package logger

import (
	"fmt"
	"slices"
)

// Levels and formats accepted by Config.
var (
	Levels  = []string{"trace", "debug", "info", "warn", "error", "fatal", "disabled"}
	Formats = []string{FormatJSON, FormatConsole, FormatPretty, "text"}
)

// Config contains logging configuration.
type Config struct {
	Level     string `yaml:"level" mapstructure:"level" validate:"omitempty,oneof=trace debug info warn error fatal disabled"`
	Format    string `yaml:"format" mapstructure:"format" validate:"omitempty,oneof=json console pretty text"`
	Output    string `yaml:"output" mapstructure:"output"`
	NoColor   bool   `yaml:"no_color" mapstructure:"no_color"`
	Timestamp bool   `yaml:"timestamp" mapstructure:"timestamp"`
	Caller    bool   `yaml:"caller" mapstructure:"caller"`
}

// ApplyDefaults logs at info in console format to stderr, with timestamps.
func (c *Config) ApplyDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = FormatConsole
	}
	if c.Output == "" {
		c.Output = "stderr"
	}
	c.Timestamp = true
}

// Validate rejects unknown levels and formats. Standard output is reserved
// for pipeline data.
func (c *Config) Validate() error {
	switch {
	case !slices.Contains(Levels, c.Level):
		return fmt.Errorf("logging.level must be one of %v (got: %s)", Levels, c.Level)
	case !slices.Contains(Formats, c.Format):
		return fmt.Errorf("logging.format must be one of %v (got: %s)", Formats, c.Format)
	case c.Output == "stdout":
		return fmt.Errorf("logging.output must not be stdout: it carries pipeline output")
	}
	return nil
}
