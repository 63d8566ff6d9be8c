package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"factor-backtest/internal/model"
)

const sample = `path: .
start: 2015-01-05
end: "20201231"
groups: 10
bench: "000905.SH"
fee: "0.002"
log:
  level: debug
  format: json
api:
  addr: ":9090"
  allowed_origins: ["http://localhost:5173"]
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func date(s string) time.Time {
	t, err := model.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestLoad(t *testing.T) {
	p := writeConfig(t, sample)
	c, err := Load(p)
	require.NoError(t, err)

	assert.Equal(t, filepath.Dir(p), c.Path)
	assert.Equal(t, date("2015-01-05"), c.Start)
	assert.Equal(t, date("2020-12-31"), c.End)
	assert.Equal(t, 10, c.Groups)
	assert.Equal(t, "000905.SH", c.Bench)
	assert.True(t, decimal.RequireFromString("0.002").Equal(c.Fee))
	assert.Equal(t, LogConfig{Level: "debug", Format: "json"}, c.Log)
	assert.Equal(t, ":9090", c.API.Addr)
	assert.Equal(t, []string{"http://localhost:5173"}, c.API.AllowedOrigins)
}

func TestLoadDefaults(t *testing.T) {
	p := writeConfig(t, "start: 2020-01-02\nend: 2020-03-31\n")
	c, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, 5, c.Groups)
	assert.Equal(t, "000300.SH", c.Bench)
	assert.Equal(t, "0.0015", c.Fee.String())
	assert.Equal(t, "info", c.Log.Level)
	assert.Equal(t, ":8080", c.API.Addr)
	assert.Equal(t, []string{"*"}, c.API.AllowedOrigins)
}

func TestEnvOverrides(t *testing.T) {
	p := writeConfig(t, sample)
	t.Setenv("FACTOR_GROUPS", "3")
	t.Setenv("FACTOR_LOG_LEVEL", "warn")
	t.Setenv("FACTOR_END", "2019-06-28")

	c, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, 3, c.Groups)
	assert.Equal(t, "warn", c.Log.Level)
	assert.Equal(t, date("2019-06-28"), c.End)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Path:   ".",
			Start:  date("2020-01-02"),
			End:    date("2020-12-31"),
			Groups: 5,
			Fee:    decimal.RequireFromString("0.0015"),
			Log:    LogConfig{Level: "info", Format: "text"},
		}
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no path", func(c *Config) { c.Path = " " }},
		{"no start", func(c *Config) { c.Start = time.Time{} }},
		{"reversed", func(c *Config) { c.Start, c.End = c.End, c.Start }},
		{"zero groups", func(c *Config) { c.Groups = 0 }},
		{"negative fee", func(c *Config) { c.Fee = decimal.RequireFromString("-0.001") }},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			assert.True(t, errors.Is(c.Validate(), ErrInvalid))
		})
	}

	var nilConfig *Config
	assert.True(t, errors.Is(nilConfig.Validate(), ErrInvalid))
}

func TestBadValues(t *testing.T) {
	_, err := LoadUnchecked(writeConfig(t, "start: someday\n"))
	assert.True(t, errors.Is(err, ErrInvalid))

	_, err = LoadUnchecked(writeConfig(t, "fee: cheap\n"))
	assert.True(t, errors.Is(err, ErrInvalid))

	_, err = Load(writeConfig(t, "start: 2020-01-02\nend: 2020-03-31\ngroups: 0\n"))
	assert.True(t, errors.Is(err, ErrInvalid))
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	c, err := Load(writeConfig(t, sample))
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "output", RunFile)
	require.NoError(t, c.WriteYAML(out))

	back, err := Load(out)
	require.NoError(t, err)
	assert.Equal(t, c.Start, back.Start)
	assert.Equal(t, c.End, back.End)
	assert.Equal(t, c.Groups, back.Groups)
	assert.True(t, c.Fee.Equal(back.Fee))
	assert.Equal(t, c.API, back.API)

	var buf bytes.Buffer
	require.NoError(t, c.Encode(&buf))
	assert.Contains(t, buf.String(), "start: \"2015-01-05\"")
	assert.Contains(t, buf.String(), "fee: \"0.002\"")
}

func TestSetupLogging(t *testing.T) {
	assert.NoError(t, SetupLogging(LogConfig{Level: "info", Format: "json"}))
	assert.NoError(t, SetupLogging(LogConfig{Level: "info"}))
	assert.Error(t, SetupLogging(LogConfig{Level: "chatty"}))
}
