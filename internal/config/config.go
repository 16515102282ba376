// Package config loads the optional YAML configuration file. Values from
// the file sit between command line flags and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPollInterval = 30 * time.Second
	DefaultTimeout      = 240 * time.Minute
	DefaultNotify       = "All"
	DefaultSMTPPort     = 25
)

// Config is the file representation of solrctl settings.
type Config struct {
	Server             string        `yaml:"server" validate:"omitempty,url"`
	Username           string        `yaml:"username,omitempty"`
	Password           string        `yaml:"password,omitempty"`
	InsecureSkipVerify bool          `yaml:"insecure_skip_verify,omitempty"`
	RequestTimeout     time.Duration `yaml:"request_timeout,omitempty" validate:"gte=0"`
	PollInterval       time.Duration `yaml:"poll_interval,omitempty" validate:"gte=0"`
	Timeout            time.Duration `yaml:"timeout,omitempty" validate:"gte=0"`
	MaxVersionBumps    int           `yaml:"max_version_bumps,omitempty" validate:"gte=0"`
	CursorKey          string        `yaml:"cursor_key,omitempty"`
	Sentinel           Sentinel      `yaml:"sentinel,omitempty"`
	Notify             Notify        `yaml:"notify,omitempty"`
	Log                Log           `yaml:"log,omitempty"`
	History            History       `yaml:"history,omitempty"`
	Metrics            Metrics       `yaml:"metrics,omitempty"`
	Jobs               []Job         `yaml:"jobs,omitempty" validate:"dive"`
}

// Sentinel describes the throwaway document used to bump index versions.
type Sentinel struct {
	ID     string            `yaml:"id,omitempty"`
	Fields map[string]string `yaml:"fields,omitempty"`
}

// Notify holds mail notification settings.
type Notify struct {
	Policy      string `yaml:"policy,omitempty" validate:"omitempty,oneof=All Warnings Errors None all warnings errors none"`
	From        string `yaml:"from,omitempty" validate:"omitempty,email"`
	To          string `yaml:"to,omitempty"`
	SMTPHost    string `yaml:"smtp_host,omitempty"`
	SMTPPort    int    `yaml:"smtp_port,omitempty" validate:"gte=0,lte=65535"`
	Credentials string `yaml:"credentials,omitempty"`
}

// Log holds log output settings.
type Log struct {
	Level      string `yaml:"level,omitempty" validate:"omitempty,oneof=debug info warn error"`
	File       string `yaml:"file,omitempty"`
	MaxSizeMB  int    `yaml:"max_size_mb,omitempty" validate:"gte=0"`
	MaxBackups int    `yaml:"max_backups,omitempty" validate:"gte=0"`
	MaxAgeDays int    `yaml:"max_age_days,omitempty" validate:"gte=0"`
	Compress   bool   `yaml:"compress,omitempty"`
}

// History points at the run history database.
type History struct {
	Path string `yaml:"path,omitempty"`
}

// Metrics points at the Prometheus textfile written after each run.
type Metrics struct {
	Textfile string `yaml:"textfile,omitempty"`
}

// Job is one scheduled invocation.
type Job struct {
	Name string   `yaml:"name" validate:"required"`
	Cron string   `yaml:"cron" validate:"required"`
	Args []string `yaml:"args" validate:"required,min=1"`
}

// Default returns a Config holding only built-in defaults.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load reads, expands and validates the configuration file at path.
// ${VAR} references are expanded from the environment.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("configuration file not found: %s", path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse([]byte(os.ExpandEnv(string(data))))
}

// Parse decodes and validates YAML configuration.
func Parse(data []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks field constraints and job names.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	seen := make(map[string]bool, len(c.Jobs))
	for _, j := range c.Jobs {
		if seen[j.Name] {
			return fmt.Errorf("invalid configuration: duplicate job name %q", j.Name)
		}
		seen[j.Name] = true
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.PollInterval == 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Notify.Policy == "" {
		c.Notify.Policy = DefaultNotify
	}
	if c.Notify.SMTPPort == 0 {
		c.Notify.SMTPPort = DefaultSMTPPort
	}
}

// LoadEnv loads KEY=VALUE pairs from the given .env files into the process
// environment without overriding variables that are already set. Missing
// files are skipped; it returns the files that were loaded.
func LoadEnv(paths ...string) ([]string, error) {
	if len(paths) == 0 {
		paths = []string{".env", ".env.local"}
	}
	var loaded []string
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return loaded, fmt.Errorf("load %s: %w", p, err)
		}
		loaded = append(loaded, p)
	}
	return loaded, nil
}
