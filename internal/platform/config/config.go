// Package config resolves server settings from an optional .env file, an
// optional YAML file and the process environment, in that order of
// increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// EnvFile is loaded when present. Variables already set are not overridden.
	EnvFile = ".env"
	// DefaultFile is the YAML file read when DEVENV_CONFIG is unset.
	DefaultFile = "devenv.config.yml"
)

// Config holds the resolved server settings.
type Config struct {
	Port        string
	LogLevel    string
	LiveReload  bool
	TemplateDir string
	Minify      bool
}

// Default returns the settings used when nothing overrides them.
func Default() Config {
	return Config{
		Port:        "8080",
		LogLevel:    "info",
		LiveReload:  false,
		TemplateDir: "internal/web/templates",
		Minify:      true,
	}
}

// Addr is the listen address for net/http.
func (c Config) Addr() string {
	return ":" + c.Port
}

type fileConfig struct {
	Port        *string `yaml:"port"`
	LogLevel    *string `yaml:"logLevel"`
	LiveReload  *bool   `yaml:"liveReload"`
	TemplateDir *string `yaml:"templateDir"`
	Minify      *bool   `yaml:"minify"`
}

// Load resolves the configuration from the working directory and environment.
func Load() (Config, error) {
	if err := godotenv.Load(EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s: %w", EnvFile, err)
	}
	return load(os.LookupEnv)
}

func load(lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()

	path, explicit := lookup("DEVENV_CONFIG")
	if !explicit || path == "" {
		path, explicit = DefaultFile, false
	}
	if err := applyFile(&cfg, path, explicit); err != nil {
		return Config{}, err
	}
	if err := applyEnv(&cfg, lookup); err != nil {
		return Config{}, err
	}
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyFile(cfg *Config, path string, required bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	if fc.Port != nil {
		cfg.Port = *fc.Port
	}
	if fc.LogLevel != nil {
		cfg.LogLevel = *fc.LogLevel
	}
	if fc.LiveReload != nil {
		cfg.LiveReload = *fc.LiveReload
	}
	if fc.TemplateDir != nil {
		cfg.TemplateDir = *fc.TemplateDir
	}
	if fc.Minify != nil {
		cfg.Minify = *fc.Minify
	}
	return nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if v, ok := lookup("PORT"); ok && v != "" {
		cfg.Port = v
	}
	if v, ok := lookup("LOG_LEVEL"); ok && v != "" {
		cfg.LogLevel = v
	}
	if v, ok := lookup("TEMPLATE_DIR"); ok && v != "" {
		cfg.TemplateDir = v
	}
	for name, dst := range map[string]*bool{"LIVE_RELOAD": &cfg.LiveReload, "MINIFY": &cfg.Minify} {
		v, ok := lookup(name)
		if !ok || v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, v, err)
		}
		*dst = b
	}
	return nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid port %q: must be a number between 1 and 65535", c.Port)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", c.LogLevel)
	}
	if c.LiveReload && c.TemplateDir == "" {
		return errors.New("template dir is required when live reload is enabled")
	}
	return nil
}
