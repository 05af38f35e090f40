// Package config loads colpipe configuration with Viper.
//
// Values come from, highest precedence first: command-line flags bound with
// WithFlag, COLPIPE_* environment variables (a .env.colpipe file is loaded
// into the environment first), and a YAML file. Without --config the file is
// looked up as ./colpipe.yml, ./config/colpipe.yml or
// $XDG_CONFIG_HOME/colpipe/config.yml.
//
// # Usage
//
//	cfg, err := config.Load(config.WithConfigFile(path))
//
// Nested keys map to underscore-separated variables, e.g.
// COLPIPE_PROCESS_GRACE_PERIOD=2s sets process.grace_period.
package config
