package config

import (
	"fmt"

	"github.com/kbukum/colpipe/logger"
	"github.com/kbukum/colpipe/observability"
	"github.com/kbukum/colpipe/process"
	"github.com/kbukum/colpipe/util"
	"github.com/kbukum/colpipe/validation"
)

// ServiceName names the config files, env prefix and telemetry resource.
const ServiceName = "colpipe"

// DefaultBufferSize is the read and write buffer size used when none is configured.
const DefaultBufferSize = 64 * 1024

// AppConfig is the complete colpipe configuration.
//
//	base:          {name: colpipe, environment: production}
//	logging:       {level: info, format: console, output: stderr}
//	process:       {grace_period: 5s}
//	io:            {read_buffer: 64KB, write_buffer: 64KB}
//	observability: {enabled: false, endpoint: localhost:4318}
type AppConfig struct {
	Base          BaseConfig           `yaml:"base" mapstructure:"base"`
	Logging       logger.Config        `yaml:"logging" mapstructure:"logging"`
	Process       process.Config       `yaml:"process" mapstructure:"process"`
	IO            IOConfig             `yaml:"io" mapstructure:"io"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`
}

// IOConfig sizes the buffers around the subprocess pipes and the output.
type IOConfig struct {
	ReadBuffer  string `yaml:"read_buffer" mapstructure:"read_buffer"`
	WriteBuffer string `yaml:"write_buffer" mapstructure:"write_buffer"`
}

// ReadBufferSize returns the read buffer size in bytes.
func (c IOConfig) ReadBufferSize() int {
	return int(util.ParseSize(c.ReadBuffer, DefaultBufferSize))
}

// WriteBufferSize returns the write buffer size in bytes.
func (c IOConfig) WriteBufferSize() int {
	return int(util.ParseSize(c.WriteBuffer, DefaultBufferSize))
}

// Validate validates the buffer sizes.
func (c IOConfig) Validate() error {
	for key, val := range map[string]string{"io.read_buffer": c.ReadBuffer, "io.write_buffer": c.WriteBuffer} {
		if val == "" {
			continue
		}
		if _, err := util.ParseSizeStrict(val); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	return nil
}

// ApplyDefaults fills every section with its defaults. A debug base
// configuration lowers the default log level to debug.
func (c *AppConfig) ApplyDefaults() {
	c.Base.ApplyDefaults()
	if c.Base.Debug && c.Logging.Level == "" {
		c.Logging.Level = "debug"
	}
	c.Logging.ApplyDefaults()
	c.Process.ApplyDefaults()
	c.IO.ReadBuffer = util.OrDefault(c.IO.ReadBuffer, "64KB")
	c.IO.WriteBuffer = util.OrDefault(c.IO.WriteBuffer, "64KB")
	c.Observability.ApplyDefaults()
}

// Validate checks struct tags first, then the per-section rules.
func (c *AppConfig) Validate() error {
	if err := validation.Validate(c); err != nil {
		return err
	}
	if err := c.Base.Validate(); err != nil {
		return err
	}
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	if err := c.Process.Validate(); err != nil {
		return err
	}
	if err := c.IO.Validate(); err != nil {
		return err
	}
	return c.Observability.Validate()
}

// Load reads, defaults and validates the colpipe configuration.
func Load(opts ...LoaderOption) (*AppConfig, error) {
	var cfg AppConfig
	if err := LoadConfig(ServiceName, &cfg, opts...); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
