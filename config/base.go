package config

import (
	"slices"
	"strings"

	"github.com/kbukum/colpipe/util"
	"github.com/kbukum/colpipe/validation"
)

// Environments accepted in base.environment.
var Environments = []string{"development", "staging", "production"}

// BaseConfig identifies the running instance in logs and telemetry.
type BaseConfig struct {
	Name        string `yaml:"name" mapstructure:"name" validate:"required"`
	Environment string `yaml:"environment" mapstructure:"environment" validate:"oneof=development staging production"`
	Debug       bool   `yaml:"debug" mapstructure:"debug"`
}

// ApplyDefaults fills the name and environment.
func (c *BaseConfig) ApplyDefaults() {
	c.Name = util.OrDefault(c.Name, ServiceName)
	c.Environment = util.OrDefault(c.Environment, "production")
}

// Validate checks the name and environment.
func (c *BaseConfig) Validate() error {
	return validation.New().
		Required("base.name", c.Name).
		Custom(slices.Contains(Environments, c.Environment), "base.environment",
			"must be one of "+strings.Join(Environments, ", ")+" (got: "+c.Environment+")").
		Err()
}
