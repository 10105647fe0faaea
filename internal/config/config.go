// Package config loads the service configuration from an optional YAML
// file with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every tunable the service reads at startup.
type Config struct {
	// ListenAddr is the HTTP control plane bind address.
	ListenAddr string `yaml:"listen_addr"`
	// DataDir holds the sqlite database and exported result files.
	DataDir string `yaml:"data_dir"`
	// WorkspaceDir is where repositories are cloned, one subdir per run.
	WorkspaceDir string `yaml:"workspace_dir"`
	// DockerImage is the sandbox image for test execution.
	DockerImage string `yaml:"docker_image"`
	// GitHubToken authenticates clones, pushes, and the Actions API.
	GitHubToken string `yaml:"github_token"`

	DefaultRetryLimit int `yaml:"default_retry_limit"`
	MaxRetryLimit     int `yaml:"max_retry_limit"`

	// TestTimeout bounds a single test command inside the sandbox.
	TestTimeout time.Duration `yaml:"test_timeout"`
	// CIPollTimeout bounds one CI polling session.
	CIPollTimeout time.Duration `yaml:"ci_poll_timeout"`
	// CIPollInterval is the fixed delay between CI status checks.
	CIPollInterval time.Duration `yaml:"ci_poll_interval"`

	// UseDocker disables the sandbox when false; tests then run on the
	// host. Intended for local development only.
	UseDocker bool `yaml:"use_docker"`
}

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() Config {
	return Config{
		ListenAddr:        ":8000",
		DataDir:           "data",
		WorkspaceDir:      "workspaces",
		DockerImage:       "python:3.12-slim",
		DefaultRetryLimit: 5,
		MaxRetryLimit:     20,
		TestTimeout:       240 * time.Second,
		CIPollTimeout:     480 * time.Second,
		CIPollInterval:    8 * time.Second,
		UseDocker:         true,
	}
}

// Load reads path if it exists, then applies environment overrides. A
// missing file is not an error; a malformed one is.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// Defaults plus env.
		case err != nil:
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	cfg.applyEnv()

	if cfg.DefaultRetryLimit < 1 {
		return cfg, fmt.Errorf("default_retry_limit must be positive (got %d)", cfg.DefaultRetryLimit)
	}
	if cfg.MaxRetryLimit < cfg.DefaultRetryLimit {
		return cfg, fmt.Errorf("max_retry_limit (%d) must be >= default_retry_limit (%d)",
			cfg.MaxRetryLimit, cfg.DefaultRetryLimit)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("FIXWRIGHT_LISTEN_ADDR"); v != "" {
		c.ListenAddr = v
	}
	if v := os.Getenv("FIXWRIGHT_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("FIXWRIGHT_WORKSPACE_DIR"); v != "" {
		c.WorkspaceDir = v
	}
	if v := os.Getenv("FIXWRIGHT_DOCKER_IMAGE"); v != "" {
		c.DockerImage = v
	}
	if v := os.Getenv("GITHUB_TOKEN"); v != "" {
		c.GitHubToken = v
	}
	if v := os.Getenv("FIXWRIGHT_USE_DOCKER"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.UseDocker = b
		}
	}
	if v := os.Getenv("FIXWRIGHT_TEST_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.TestTimeout = d
		}
	}
	if v := os.Getenv("FIXWRIGHT_CI_POLL_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.CIPollTimeout = d
		}
	}
}
