// Package config provides configuration management for the riffle application.
//
// This package handles all configuration-related functionality including:
//   - Workbench service settings (compose service, endpoint host and port)
//   - Storage settings (backing device, mountpoint, dataset path)
//   - Readiness polling budget (interval, max attempts)
//
// Configuration values are layered: built-in defaults, then workbench.yaml,
// then a .env file in the working directory (the docker compose convention),
// then process environment variables. Later layers win.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/riffle-ml/riffle/internal/logger"
)

const (
	// EnvDevice names the required backing storage device for the dataset
	// volume (a path like /dev/sdb1 or a UUID=... spec understood by mount).
	EnvDevice = "RIFFLE_DEVICE"

	// EnvDataPath names the host directory bind-mounted into the workbench
	// container. It is consumed by docker compose, not validated here.
	EnvDataPath = "RIFFLE_DATA_PATH"

	// EnvMountpoint names the directory the storage device is mounted at.
	EnvMountpoint = "RIFFLE_MOUNTPOINT"

	// DefaultConfigFile is the workbench configuration file name, looked up
	// in the current working directory.
	DefaultConfigFile = "workbench.yaml"

	// DefaultService is the compose service name of the notebook container.
	DefaultService = "workbench"

	// DefaultHost is the host part of the notebook endpoint. The compose
	// file publishes the notebook port on the loopback interface only.
	DefaultHost = "localhost"

	// DefaultPort is the published notebook server port.
	DefaultPort = 8888

	// DefaultMountpoint is where the dataset device is mounted when
	// RIFFLE_MOUNTPOINT is not set.
	DefaultMountpoint = "/mnt/riffle"

	// DefaultPollInterval is the pause between readiness checks.
	DefaultPollInterval = time.Second

	// DefaultPollAttempts bounds the readiness polling loop.
	DefaultPollAttempts = 4
)

// ErrMissingConfiguration indicates a required configuration key is absent.
// This is fatal: callers must not proceed with the bootstrap sequence.
var ErrMissingConfiguration = errors.New("missing configuration")

// RetryBudget bounds the readiness polling loop. It is fixed at load time
// and never adapted while polling: the interval is constant across attempts.
type RetryBudget struct {
	// Interval is the pause between unsuccessful readiness checks.
	Interval time.Duration `yaml:"interval"`

	// MaxAttempts is the number of readiness checks before giving up.
	MaxAttempts int `yaml:"max_attempts"`
}

// Config represents the complete application configuration.
//
// The struct is populated once at process start by Load and passed into the
// bootstrapper explicitly. Nothing in the bootstrap path reads the ambient
// process environment after this point.
type Config struct {
	// Service is the compose service name of the workbench container.
	Service string `yaml:"service"`

	// Host is the host part of the composed notebook endpoint.
	Host string `yaml:"host"`

	// Port is the published notebook server port.
	Port int `yaml:"port"`

	// Device is the backing storage device for the dataset volume.
	// Required; its absence is a fatal precondition failure.
	Device string `yaml:"device"`

	// Mountpoint is the directory the device is mounted at.
	Mountpoint string `yaml:"mountpoint"`

	// DataPath is the dataset directory bind-mounted into the container.
	// Read by docker compose via the environment; not validated here.
	DataPath string `yaml:"data_path"`

	// Poll is the readiness polling budget.
	Poll RetryBudget `yaml:"poll"`

	// Taxonomy holds settings for the taxonomy sync subcommands.
	Taxonomy TaxonomyConfig `yaml:"taxonomy"`
}

// TaxonomyConfig holds settings for the NCBI taxonomy retrieval commands.
type TaxonomyConfig struct {
	// Email is sent to NCBI with every eutils request, as the API
	// guidelines ask. Falls back to the NCBI_EMAIL_ADDR environment
	// variable for compatibility with older setups.
	Email string `yaml:"email"`

	// Tool is the client name sent to NCBI with every request.
	Tool string `yaml:"tool"`

	// CachePath is the JSON file holding retrieved lineage data.
	CachePath string `yaml:"cache_path"`
}

// Load builds the configuration from defaults, workbench.yaml, .env, and the
// process environment, in that order of increasing precedence.
//
// A missing workbench.yaml or .env file is not an error: both are optional
// layers. Returns an error only when a present file cannot be read or parsed.
func Load() (*Config, error) {
	cfg := defaults()

	if err := cfg.loadFile(DefaultConfigFile); err != nil {
		return nil, err
	}

	// .env is the compose convention for per-checkout settings. godotenv
	// merges it into the process environment without overriding variables
	// that are already set, so the env override below sees both.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg.applyEnv()

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Service:    DefaultService,
		Host:       DefaultHost,
		Port:       DefaultPort,
		Mountpoint: DefaultMountpoint,
		Poll: RetryBudget{
			Interval:    DefaultPollInterval,
			MaxAttempts: DefaultPollAttempts,
		},
		Taxonomy: TaxonomyConfig{
			Tool:      "riffle",
			CachePath: "taxonomy.json",
		},
	}
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Debug("No %s found, using defaults", path)
			return nil
		}
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}

	logger.Debug("Loaded configuration from %s", path)
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvDevice); v != "" {
		c.Device = v
	}
	if v := os.Getenv(EnvDataPath); v != "" {
		c.DataPath = v
	}
	if v := os.Getenv(EnvMountpoint); v != "" {
		c.Mountpoint = v
	}
	if v := os.Getenv("RIFFLE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Port = port
		} else {
			logger.Warn("Ignoring invalid RIFFLE_PORT value: %s", v)
		}
	}
	if c.Taxonomy.Email == "" {
		c.Taxonomy.Email = os.Getenv("NCBI_EMAIL_ADDR")
	}
}

// Validate checks that all required configuration values are present.
//
// The storage device identifier is the only hard requirement: without it
// the dataset volume cannot be attached and the bootstrap sequence must
// not run. The returned error wraps ErrMissingConfiguration and names the
// missing key so the diagnostic is actionable.
func (c *Config) Validate() error {
	if c.Device == "" {
		return fmt.Errorf("%w: %s (set it in the environment, .env, or %s)",
			ErrMissingConfiguration, EnvDevice, DefaultConfigFile)
	}
	return nil
}

// BaseURL returns the notebook endpoint base, without the token suffix.
// Format: "http://host:port"
func (c *Config) BaseURL() string {
	return fmt.Sprintf("http://%s:%d", c.Host, c.Port)
}

// DatasetDir returns the directory that holds the per-species image
// directories, used by the taxonomy commands. When DataPath is unset it
// falls back to a "data" directory under the mountpoint.
func (c *Config) DatasetDir() string {
	if c.DataPath != "" {
		return c.DataPath
	}
	return filepath.Join(c.Mountpoint, "data")
}
