package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by the loader.
const EnvPrefix = "COLPIPE"

// FileSystem abstracts the lookups the loader performs so tests can fake them.
type FileSystem interface {
	Exists(path string) bool
	LoadEnv(path string) error
	UserConfigDir() (string, error)
}

// OSFileSystem is the FileSystem backed by the operating system.
type OSFileSystem struct{}

func (OSFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (OSFileSystem) LoadEnv(path string) error { return godotenv.Load(path) }

func (OSFileSystem) UserConfigDir() (string, error) { return os.UserConfigDir() }

// Sources names the files a load reads. Empty fields are skipped.
type Sources struct {
	ConfigFile string
	EnvFile    string
}

// Resolver locates config sources for a service.
type Resolver struct {
	FS FileSystem
}

// Resolve keeps explicit paths and searches for the rest. The config file is
// looked up in the working directory, then in the user config directory. Only
// a service specific .env file is picked up; a bare .env never is.
func (r Resolver) Resolve(service string, explicit Sources) Sources {
	src := explicit
	if src.ConfigFile == "" {
		candidates := []string{
			"./" + service + ".yml",
			"./" + service + ".yaml",
			"./config/" + service + ".yml",
		}
		if dir, err := r.FS.UserConfigDir(); err == nil && dir != "" {
			candidates = append(candidates,
				filepath.Join(dir, service, "config.yml"),
				filepath.Join(dir, service, "config.yaml"),
			)
		}
		src.ConfigFile = r.first(candidates)
	}
	if src.EnvFile == "" {
		src.EnvFile = r.first([]string{".env." + service, "./config/.env." + service})
	}
	return src
}

func (r Resolver) first(paths []string) string {
	for _, p := range paths {
		if r.FS.Exists(p) {
			return p
		}
	}
	return ""
}

type loadOptions struct {
	fs      FileSystem
	sources Sources
	flags   map[string]*pflag.Flag
}

// LoaderOption configures LoadConfig.
type LoaderOption func(*loadOptions)

// WithFileSystem replaces the operating system file access.
func WithFileSystem(fs FileSystem) LoaderOption {
	return func(o *loadOptions) { o.fs = fs }
}

// WithConfigFile loads the given YAML file instead of searching for one.
func WithConfigFile(path string) LoaderOption {
	return func(o *loadOptions) { o.sources.ConfigFile = path }
}

// WithEnvFile loads the given .env file instead of searching for one.
func WithEnvFile(path string) LoaderOption {
	return func(o *loadOptions) { o.sources.EnvFile = path }
}

// WithFlag binds a command-line flag to a config key. Only a flag that was
// set on the command line takes effect.
func WithFlag(key string, flag *pflag.Flag) LoaderOption {
	return func(o *loadOptions) {
		if flag == nil {
			return
		}
		if o.flags == nil {
			o.flags = make(map[string]*pflag.Flag)
		}
		o.flags[key] = flag
	}
}

// LoadConfig unmarshals the configuration for service into cfg.
// Precedence, highest first: flags, COLPIPE_* environment variables (a .env
// file feeds these), the YAML file.
func LoadConfig(service string, cfg any, opts ...LoaderOption) error {
	o := loadOptions{fs: OSFileSystem{}}
	for _, opt := range opts {
		opt(&o)
	}
	if p := o.sources.ConfigFile; p != "" && !o.fs.Exists(p) {
		return fmt.Errorf("config file %s not found", p)
	}
	if p := o.sources.EnvFile; p != "" && !o.fs.Exists(p) {
		return fmt.Errorf("env file %s not found", p)
	}

	src := Resolver{FS: o.fs}.Resolve(service, o.sources)
	v, err := o.build(src)
	if err != nil {
		return err
	}
	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("decoding %s config: %w", service, err)
	}
	return nil
}

func (o loadOptions) build(src Sources) (*viper.Viper, error) {
	v := viper.New()
	if src.ConfigFile != "" {
		v.SetConfigFile(src.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", src.ConfigFile, err)
		}
	}
	if src.EnvFile != "" {
		if err := o.fs.LoadEnv(src.EnvFile); err != nil {
			return nil, fmt.Errorf("reading env file %s: %w", src.EnvFile, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindPrefixedEnv(v, EnvPrefix, os.Environ()); err != nil {
		return nil, err
	}

	for key, flag := range o.flags {
		if err := v.BindPFlag(key, flag); err != nil {
			return nil, fmt.Errorf("binding flag %s: %w", flag.Name, err)
		}
	}
	return v, nil
}

// bindPrefixedEnv binds each PREFIX_* variable in environ to every key it
// could stand for. AutomaticEnv alone misses keys absent from the YAML file.
func bindPrefixedEnv(v *viper.Viper, prefix string, environ []string) error {
	for _, kv := range environ {
		name, _, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		key, ok := strings.CutPrefix(name, prefix+"_")
		if !ok {
			continue
		}
		for _, variant := range envKeyVariants(key) {
			if err := v.BindEnv(variant, name); err != nil {
				return fmt.Errorf("binding env %s: %w", name, err)
			}
		}
	}
	return nil
}

// envKeyVariants lists the dotted keys an env suffix may map to:
//
//	PROCESS_GRACE_PERIOD -> process_grace_period, process.grace.period, process.grace_period
func envKeyVariants(key string) []string {
	lower := strings.ToLower(key)
	parts := strings.Split(lower, "_")
	variants := []string{lower}
	add := func(s string) {
		if !slices.Contains(variants, s) {
			variants = append(variants, s)
		}
	}
	add(strings.Join(parts, "."))
	for i := 1; i < len(parts); i++ {
		add(strings.Join(parts[:i], ".") + "." + strings.Join(parts[i:], "_"))
	}
	return variants
}
