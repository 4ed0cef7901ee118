// Package config loads the CLI settings from defaults, an optional config
// file, IMRCAST_* environment variables and command-line flags, in
// increasing precedence.
package config

import (
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/YuminosukeSato/imrcast/pkg/errors"
)

// EnvPrefix prefixes every environment variable, e.g. IMRCAST_TOP_K.
const EnvPrefix = "IMRCAST"

// DefaultTarget is the column estimated by default.
const DefaultTarget = "Infant mortality rate (per 1000 live births)"

// Config holds every setting of a train or predict invocation.
type Config struct {
	Target      string        `mapstructure:"target" validate:"required"`
	TopK        int           `mapstructure:"top_k" validate:"gte=1"`
	Seed        int64         `mapstructure:"seed"`
	TestSize    float64       `mapstructure:"test_size" validate:"gt=0,lt=1"`
	Select      string        `mapstructure:"select" validate:"required,selection"`
	Output      string        `mapstructure:"output" validate:"required"`
	NoPlots     bool          `mapstructure:"no_plots"`
	Positional  bool          `mapstructure:"positional"`
	LogLevel    string        `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	LockTimeout time.Duration `mapstructure:"lock_timeout" validate:"gt=0"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Target:      DefaultTarget,
		TopK:        10,
		Seed:        42,
		TestSize:    0.2,
		Select:      "fixed:Random Forest",
		Output:      "output_plots",
		LogLevel:    "info",
		LockTimeout: 30 * time.Second,
	}
}

// NewViper returns a viper instance with defaults and environment binding.
func NewViper() *viper.Viper {
	v := viper.New()
	d := Default()
	v.SetDefault("target", d.Target)
	v.SetDefault("top_k", d.TopK)
	v.SetDefault("seed", d.Seed)
	v.SetDefault("test_size", d.TestSize)
	v.SetDefault("select", d.Select)
	v.SetDefault("output", d.Output)
	v.SetDefault("no_plots", d.NoPlots)
	v.SetDefault("positional", d.Positional)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("lock_timeout", d.LockTimeout)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads path into v when path is non-empty, then decodes and validates.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var selectionPattern = regexp.MustCompile(`(?i)^(fixed:.+|best:(r2|mae|rmse))$`)

var validate = func() *validator.Validate {
	v := validator.New()
	v.RegisterValidation("selection", func(fl validator.FieldLevel) bool {
		return selectionPattern.MatchString(fl.Field().String())
	})
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("mapstructure")
	})
	return v
}()

// Validate checks field constraints and reports the first offending key.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return errors.NewValueError("config", "invalid "+fe.Field()+": failed "+fe.Tag()+" check")
	}
	return errors.Wrap(err, "validate config")
}
