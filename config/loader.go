package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultEnvPrefix prefixes the environment variables read by Load.
const DefaultEnvPrefix = "SCOPED"

// LoaderConfig selects the sources Load reads.
type LoaderConfig struct {
	File      string // YAML settings file (optional)
	EnvFile   string // .env file loaded into the process environment (optional)
	EnvPrefix string // defaults to DefaultEnvPrefix
}

// LoaderOption is a functional option for Load.
type LoaderOption func(*LoaderConfig)

// WithFile sets the settings file path.
func WithFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.File = path }
}

// WithEnvFile sets the .env file path.
func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// WithEnvPrefix sets the environment variable prefix.
func WithEnvPrefix(prefix string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvPrefix = prefix }
}

// Load reads settings from, lowest precedence first: Default(), the YAML
// file, then the environment (after the .env file is loaded into it).
//
// Keys map to variables by upper-casing and replacing dots, so
// validation.implicit_override is SCOPED_VALIDATION_IMPLICIT_OVERRIDE.
func Load(opts ...LoaderOption) (Settings, error) {
	lc := LoaderConfig{EnvPrefix: DefaultEnvPrefix}
	for _, opt := range opts {
		opt(&lc)
	}

	v := viper.New()
	setDefaults(v, Default())

	if lc.File != "" {
		v.SetConfigFile(lc.File)
		if err := v.ReadInConfig(); err != nil {
			return Settings{}, fmt.Errorf("config: reading %s: %w", lc.File, err)
		}
	}
	if lc.EnvFile != "" {
		if _, err := os.Stat(lc.EnvFile); err != nil {
			return Settings{}, fmt.Errorf("config: env file %s: %w", lc.EnvFile, err)
		}
		if err := godotenv.Load(lc.EnvFile); err != nil {
			return Settings{}, fmt.Errorf("config: loading %s: %w", lc.EnvFile, err)
		}
	}

	v.SetEnvPrefix(lc.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("config: decoding settings: %w", err)
	}
	s.ApplyDefaults()
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// setDefaults registers every key so AutomaticEnv can resolve it.
func setDefaults(v *viper.Viper, d Settings) {
	v.SetDefault("validation.nothing_overridden", d.Validation.NothingOverridden)
	v.SetDefault("validation.implicit_override", d.Validation.ImplicitOverride)
	v.SetDefault("validation.nothing_decorated", d.Validation.NothingDecorated)
	v.SetDefault("skip_validation", d.SkipValidation)
	v.SetDefault("lock", d.Lock)
	v.SetDefault("start_scope", d.StartScope)
	v.SetDefault("logging", d.Logging)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.output", d.Log.Output)
	v.SetDefault("log.no_color", d.Log.NoColor)
	v.SetDefault("log.timestamp", d.Log.Timestamp)
	v.SetDefault("log.caller", d.Log.Caller)
}
