package process

import (
	"context"
	"fmt"
	"io"
	"time"
)

// Config configures how filter subprocesses are launched.
type Config struct {
	// GracePeriod is the default grace period for SIGTERM→SIGKILL.
	GracePeriod time.Duration `yaml:"grace_period,omitempty" mapstructure:"grace_period" validate:"gte=0"`
	// Dir is the default working directory. Empty means the current directory.
	Dir string `yaml:"dir,omitempty" mapstructure:"dir"`
	// Env lists extra key=value pairs added to every subprocess environment.
	Env []string `yaml:"env,omitempty" mapstructure:"env"`
}

// ApplyDefaults applies default values to the process configuration.
func (c *Config) ApplyDefaults() {
	if c.GracePeriod == 0 {
		c.GracePeriod = defaultGracePeriod
	}
}

// Validate validates the process configuration.
func (c *Config) Validate() error {
	if c.GracePeriod < 0 {
		return fmt.Errorf("process.grace_period must not be negative (got: %s)", c.GracePeriod)
	}
	return nil
}

// Adapter starts subprocesses with configuration-level defaults applied.
type Adapter struct {
	config Config
	stderr io.Writer
}

// NewAdapter creates a new process adapter. stderr receives the standard
// error of every started process; nil means os.Stderr.
func NewAdapter(cfg Config, stderr io.Writer) *Adapter {
	return &Adapter{config: cfg, stderr: stderr}
}

// Start launches cmd, filling unset fields from the adapter configuration.
func (a *Adapter) Start(ctx context.Context, cmd Command) (*Process, error) {
	if cmd.GracePeriod == 0 && a.config.GracePeriod > 0 {
		cmd.GracePeriod = a.config.GracePeriod
	}
	if cmd.Dir == "" {
		cmd.Dir = a.config.Dir
	}
	if len(a.config.Env) > 0 {
		cmd.Env = append(append([]string{}, a.config.Env...), cmd.Env...)
	}
	if cmd.Stderr == nil {
		cmd.Stderr = a.stderr
	}
	return Start(ctx, cmd)
}
