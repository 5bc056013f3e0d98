package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config represents the complete configuration for castor
type Config struct {
	// Output is the directory schemas are persisted to. Empty disables persistence.
	Output string `yaml:"output"`
	// Checks enables the application/json content-type checks.
	Checks   bool   `yaml:"checks"`
	LogLevel string `yaml:"log_level"`
	// Indent is the per-level indentation of rendered schemas. Two spaces by default.
	Indent string      `yaml:"indent"`
	Proxy  ProxyConfig `yaml:"proxy"`
}

// ProxyConfig controls the reverse proxy
type ProxyConfig struct {
	Listen        string `yaml:"listen"`
	Target        string `yaml:"target"`
	MetricsListen string `yaml:"metrics_listen"`
	MaxBodyBytes  int64  `yaml:"max_body_bytes"`
}

// Overrides holds values given on the command line or through the
// environment. Empty strings and nil pointers leave the file value alone.
type Overrides struct {
	Output        string
	Checks        *bool
	LogLevel      string
	Listen        string
	Target        string
	MetricsListen string
	MaxBodyBytes  int64
}

// Defaults
const (
	DefaultLogLevel     = "info"
	DefaultIndent       = "  "
	DefaultListen       = ":8080"
	DefaultMaxBodyBytes = 10 << 20
)

// NewConfig creates a new Config with default values
func NewConfig() *Config {
	return &Config{
		Output:   "",
		Checks:   true,
		LogLevel: DefaultLogLevel,
		Indent:   DefaultIndent,
		Proxy: ProxyConfig{
			Listen:       DefaultListen,
			MaxBodyBytes: DefaultMaxBodyBytes,
		},
	}
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Start with defaults
	cfg := NewConfig()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// FindConfigFile searches for a config file in current directory and parents
func FindConfigFile() string {
	configNames := []string{".castor.yml", ".castor.yaml", "castor.yml", "castor.yaml"}

	currentDir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		for _, name := range configNames {
			configPath := filepath.Join(currentDir, name)
			if _, err := os.Stat(configPath); err == nil {
				return configPath
			}
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			break
		}
		currentDir = parentDir
	}

	return ""
}

// Validate checks values that can't be caught by YAML decoding
func (c *Config) Validate() error {
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	if c.Indent == "" || strings.Trim(c.Indent, " \t") != "" {
		return fmt.Errorf("indent must be one or more spaces or tabs, got %q", c.Indent)
	}
	if c.Proxy.MaxBodyBytes <= 0 {
		return fmt.Errorf("proxy.max_body_bytes must be positive, got %d", c.Proxy.MaxBodyBytes)
	}
	if c.Proxy.Target != "" {
		if _, err := c.TargetURL(); err != nil {
			return err
		}
	}
	return nil
}

// TargetURL parses the proxy target
func (c *Config) TargetURL() (*url.URL, error) {
	u, err := url.Parse(c.Proxy.Target)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy target %q: %w", c.Proxy.Target, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid proxy target %q: scheme must be http or https", c.Proxy.Target)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid proxy target %q: missing host", c.Proxy.Target)
	}
	return u, nil
}

// Apply copies every override that was set onto c
func (c *Config) Apply(o Overrides) {
	if o.Output != "" {
		c.Output = o.Output
	}
	if o.Checks != nil {
		c.Checks = *o.Checks
	}
	if o.LogLevel != "" {
		c.LogLevel = o.LogLevel
	}
	if o.Listen != "" {
		c.Proxy.Listen = o.Listen
	}
	if o.Target != "" {
		c.Proxy.Target = o.Target
	}
	if o.MetricsListen != "" {
		c.Proxy.MetricsListen = o.MetricsListen
	}
	if o.MaxBodyBytes > 0 {
		c.Proxy.MaxBodyBytes = o.MaxBodyBytes
	}
}

// LoadConfigWithCLI loads config with CLI argument precedence
func LoadConfigWithCLI(configPath string, o Overrides) (*Config, error) {
	cfg := NewConfig()

	if configPath != "" {
		fileConfig, err := LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
		cfg = fileConfig
	}

	cfg.Apply(o)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
