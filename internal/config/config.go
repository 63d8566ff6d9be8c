package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"factor-backtest/internal/data"
	"factor-backtest/internal/model"
)

// EnvPrefix prefixes environment overrides, e.g. FACTOR_GROUPS=10 or
// FACTOR_LOG_LEVEL=debug.
const EnvPrefix = "FACTOR"

// RunFile is the name of the effective configuration written next to the
// outputs of a run.
const RunFile = "run.yaml"

var ErrInvalid = errors.New("invalid config")

// Config is the resolved run configuration.
type Config struct {
	Path   string
	Start  time.Time
	End    time.Time
	Groups int
	Bench  string
	Fee    decimal.Decimal
	Log    LogConfig
	API    APIConfig
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
}

type APIConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// fileConfig is the on-disk shape.
type fileConfig struct {
	Path   string    `yaml:"path"`
	Start  string    `yaml:"start"`
	End    string    `yaml:"end"`
	Groups int       `yaml:"groups"`
	Bench  string    `yaml:"bench"`
	Fee    string    `yaml:"fee"`
	Log    LogConfig `yaml:"log"`
	API    APIConfig `yaml:"api"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("path", ".")
	v.SetDefault("groups", 5)
	v.SetDefault("bench", "000300.SH")
	v.SetDefault("fee", "0.0015")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("api.addr", ":8080")
	v.SetDefault("api.allowed_origins", []string{"*"})
}

func Load(path string) (*Config, error) {
	c, err := LoadUnchecked(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadUnchecked reads the YAML file at path (optional) with environment
// overrides applied, but does not validate the result.
func LoadUnchecked(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	c := &Config{
		Path:   v.GetString("path"),
		Groups: v.GetInt("groups"),
		Bench:  v.GetString("bench"),
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		API: APIConfig{
			Addr:           v.GetString("api.addr"),
			AllowedOrigins: v.GetStringSlice("api.allowed_origins"),
		},
	}

	var err error
	if c.Start, err = optionalDate("start", v.GetString("start")); err != nil {
		return nil, err
	}
	if c.End, err = optionalDate("end", v.GetString("end")); err != nil {
		return nil, err
	}
	if c.Fee, err = decimal.NewFromString(strings.TrimSpace(v.GetString("fee"))); err != nil {
		return nil, fmt.Errorf("%w: fee: %v", ErrInvalid, err)
	}

	// A relative working directory is taken relative to the config file
	// when that exists, otherwise relative to the current directory.
	if path != "" && c.Path != "" && !filepath.IsAbs(c.Path) {
		cand := filepath.Join(filepath.Dir(path), c.Path)
		if _, err := os.Stat(cand); err == nil {
			c.Path = cand
		}
	}
	return c, nil
}

func optionalDate(key, s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	// viper hands unquoted YAML dates back in time.Time's String layout
	if len(s) > len(model.DateLayout) && s[4] == '-' {
		s = s[:len(model.DateLayout)]
	}
	t, err := model.ParseDate(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s: %v", ErrInvalid, key, err)
	}
	return t, nil
}

func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: config is nil", ErrInvalid)
	}
	if strings.TrimSpace(c.Path) == "" {
		return fmt.Errorf("%w: path is required", ErrInvalid)
	}
	if c.Start.IsZero() || c.End.IsZero() {
		return fmt.Errorf("%w: start and end are required", ErrInvalid)
	}
	if c.End.Before(c.Start) {
		return fmt.Errorf("%w: start %s is after end %s", ErrInvalid, model.FormatDate(c.Start), model.FormatDate(c.End))
	}
	if c.Groups < 1 {
		return fmt.Errorf("%w: groups must be >= 1, got %d", ErrInvalid, c.Groups)
	}
	if c.Fee.IsNegative() {
		return fmt.Errorf("%w: fee must not be negative, got %s", ErrInvalid, c.Fee)
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: log.level: %v", ErrInvalid, err)
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: log.format must be text or json, got %q", ErrInvalid, c.Log.Format)
	}
	return nil
}

func (c *Config) toFile() fileConfig {
	return fileConfig{
		Path:   c.Path,
		Start:  model.FormatDate(c.Start),
		End:    model.FormatDate(c.End),
		Groups: c.Groups,
		Bench:  c.Bench,
		Fee:    c.Fee.String(),
		Log:    c.Log,
		API:    c.API,
	}
}

// MarshalYAML renders the config in its on-disk shape.
func (c *Config) MarshalYAML() (interface{}, error) {
	return c.toFile(), nil
}

// Encode writes the config as YAML.
func (c *Config) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return err
	}
	return enc.Close()
}

// WriteYAML writes the config to file, replacing it atomically.
func (c *Config) WriteYAML(file string) error {
	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		return err
	}
	return data.WriteFileAtomic(file, c.Encode)
}

// SetupLogging applies the log settings to the standard logrus logger.
func SetupLogging(l LogConfig) error {
	level, err := logrus.ParseLevel(l.Level)
	if err != nil {
		return err
	}
	logrus.SetLevel(level)
	if l.Format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return nil
}
