// Package config layers run configuration from defaults, an optional
// pmrs.toml file, PMRS_* environment variables, and command-line flags,
// in that priority order (flags win).
package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Config holds the settings shared by the subcommands.
type Config struct {
	Output    string   `koanf:"output"`
	Relations []string `koanf:"relations"`
	Port      int      `koanf:"port"`
	Watch     bool     `koanf:"watch"`
	Verbose   bool     `koanf:"verbose"`
	Debug     bool     `koanf:"debug"`
}

// Load resolves configuration against a subcommand's flag set.
func Load(f *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]interface{}{
		"output":    "",
		"relations": []string{},
		"port":      8080,
		"watch":     false,
		"verbose":   false,
		"debug":     false,
	}
	if err := k.Load(mapProvider(defaults), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	// Optional config file; absence is not an error.
	_ = k.Load(file.Provider("pmrs.toml"), toml.Parser())

	if err := k.Load(env.Provider("PMRS_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(
			strings.TrimPrefix(s, "PMRS_")), "_", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	if f != nil {
		if err := k.Load(posflag.Provider(f, ".", k), nil); err != nil {
			return nil, fmt.Errorf("loading flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return &cfg, nil
}

type staticProvider struct {
	m map[string]interface{}
}

func mapProvider(m map[string]interface{}) *staticProvider {
	return &staticProvider{m: m}
}

func (p *staticProvider) Read() (map[string]interface{}, error) {
	return p.m, nil
}

func (p *staticProvider) ReadBytes() ([]byte, error) {
	return nil, fmt.Errorf("not implemented")
}
