/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package config provides configuration management for the
// realtime-svg server. Precedence, highest first: CLI flags,
// environment variables, YAML file, built-in defaults.
package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the config file consulted when --config is not
// given. A missing default file is not an error.
const DefaultConfigFile = "config.yaml"

// Config holds all configuration options for the server.
type Config struct {
	// RedisURL is the connection URL of the shared store and message
	// bus (redis:// or rediss://).
	RedisURL string `yaml:"redis_url"`

	// Host is the HTTP bind address.
	Host string `yaml:"host"`

	// Port is the HTTP bind port.
	Port uint16 `yaml:"port"`

	// LogLevel is the logging filter threshold.
	LogLevel string `yaml:"log_level"`

	// RequirePassword makes token issuance demand a password instead
	// of issuing by user ID alone.
	RequirePassword bool `yaml:"require_password"`
}

// Default returns the built-in configuration defaults.
func Default() Config {
	return Config{
		RedisURL: "redis://127.0.0.1/",
		Host:     "127.0.0.1",
		Port:     3000,
		LogLevel: "info",
	}
}

// Addr returns the host:port the server binds to.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if !strings.HasPrefix(c.RedisURL, "redis://") && !strings.HasPrefix(c.RedisURL, "rediss://") {
		return fmt.Errorf("redis URL must use the redis:// or rediss:// scheme, got %q", c.RedisURL)
	}
	if c.Host == "" {
		return fmt.Errorf("host cannot be empty")
	}
	if c.Port == 0 {
		return fmt.Errorf("port cannot be zero")
	}
	return nil
}

// Load builds the configuration from args (flags after the program
// name) and the environment, layered over the optional YAML file and
// the defaults.
func Load(args []string, getenv func(string) string) (Config, error) {
	fs := flag.NewFlagSet("realtime-svg", flag.ContinueOnError)
	configFile := fs.String("config", DefaultConfigFile, "Path to YAML config file")
	redisURL := fs.String("redis-url", "", "Redis connection URL")
	host := fs.String("host", "", "HTTP bind address")
	port := fs.Uint("port", 0, "HTTP bind port")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	requirePassword := fs.Bool("require-password", false, "Require a password for token issuance")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg := Default()

	// A --config flag on the command line makes a missing file an
	// error, even when its value equals the default path.
	configExplicit := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "config" {
			configExplicit = true
		}
	})

	if err := applyFile(&cfg, *configFile, configExplicit); err != nil {
		return Config{}, err
	}
	if err := applyEnv(&cfg, getenv); err != nil {
		return Config{}, err
	}

	// Only flags the caller actually set override the lower layers.
	var flagErr error
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "redis-url":
			cfg.RedisURL = *redisURL
		case "host":
			cfg.Host = *host
		case "port":
			if *port > 65535 {
				flagErr = fmt.Errorf("port out of range: %d", *port)
				return
			}
			cfg.Port = uint16(*port)
		case "log-level":
			cfg.LogLevel = *logLevel
		case "require-password":
			cfg.RequirePassword = *requirePassword
		}
	})
	if flagErr != nil {
		return Config{}, flagErr
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyFile layers the YAML file at path onto cfg. Unless the file
// was explicitly requested, a missing file is skipped silently.
func applyFile(cfg *Config, path string, explicit bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// applyEnv layers environment variables onto cfg.
func applyEnv(cfg *Config, getenv func(string) string) error {
	if v := getenv("REDIS_URL"); v != "" {
		cfg.RedisURL = v
	}
	if v := getenv("HOST"); v != "" {
		cfg.Host = v
	}
	if v := getenv("PORT"); v != "" {
		p, err := strconv.ParseUint(v, 10, 16)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		cfg.Port = uint16(p)
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := getenv("REQUIRE_PASSWORD"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid REQUIRE_PASSWORD %q: %w", v, err)
		}
		cfg.RequirePassword = b
	}
	return nil
}
