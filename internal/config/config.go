package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPollInterval  = "5s"
	DefaultTimeout       = "15m"
	DefaultInstanceType  = "ml.m5.xlarge"
	DefaultInstanceCount = 1
	DefaultVariantName   = "AllTraffic"
)

// Config represents the sagedeploy configuration
type Config struct {
	Region        string        `yaml:"region,omitempty"`
	PollInterval  string        `yaml:"poll_interval"`
	Timeout       string        `yaml:"timeout"`
	HistoryPath   string        `yaml:"history_path,omitempty"`
	Notifications Notifications `yaml:"notifications,omitempty"`
	Endpoints     []Endpoint    `yaml:"endpoints"`
}

// Notifications controls where deployment outcomes are reported
type Notifications struct {
	Desktop     bool   `yaml:"desktop,omitempty"`
	SNSTopicARN string `yaml:"sns_topic_arn,omitempty"`
}

// Endpoint represents a deployment target: the model to build and the endpoint serving it
type Endpoint struct {
	Name          string `yaml:"name"`
	ModelName     string `yaml:"model_name,omitempty"`
	ModelData     string `yaml:"model_data,omitempty"`
	Image         string `yaml:"image,omitempty"`
	RoleARN       string `yaml:"role_arn,omitempty"`
	InstanceType  string `yaml:"instance_type,omitempty"`
	InstanceCount int    `yaml:"instance_count,omitempty"`
	VariantName   string `yaml:"variant_name,omitempty"`
	EntryPoint    string `yaml:"entry_point,omitempty"`
}

// WithDefaults returns a copy of the endpoint with empty sizing fields filled in
func (e Endpoint) WithDefaults() Endpoint {
	if e.InstanceType == "" {
		e.InstanceType = DefaultInstanceType
	}
	if e.InstanceCount <= 0 {
		e.InstanceCount = DefaultInstanceCount
	}
	if e.VariantName == "" {
		e.VariantName = DefaultVariantName
	}
	if e.ModelName == "" {
		e.ModelName = e.Name
	}
	return e
}

// GetConfigDir returns the directory holding the config and history files
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", "sagedeploy"), nil
}

// GetConfigPath returns the path to the global config file
func GetConfigPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(dir, "config.yml"), nil
}

// InitConfig creates the config directory and file with default content
func InitConfig(force bool) error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	// Check if config already exists
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("config file already exists at %s (use --force to overwrite)", configPath)
	}

	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(getDefaultConfig()), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadConfig reads and parses the config file
func LoadConfig() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadOrDefault loads the config file, falling back to defaults when it does not exist
func LoadOrDefault() (*Config, error) {
	cfg, err := LoadConfig()
	if err == nil {
		return cfg, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return &Config{PollInterval: DefaultPollInterval, Timeout: DefaultTimeout}, nil
	}
	return nil, err
}

// SaveConfig writes the config back to the file
func SaveConfig(cfg *Config) error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks durations and endpoint names
func (c *Config) Validate() error {
	if _, err := c.PollIntervalDuration(); err != nil {
		return err
	}
	if _, err := c.TimeoutDuration(); err != nil {
		return err
	}

	names := lo.Map(c.Endpoints, func(e Endpoint, _ int) string { return e.Name })
	if lo.Contains(names, "") {
		return fmt.Errorf("every endpoint needs a name")
	}
	if dups := lo.FindDuplicates(names); len(dups) > 0 {
		return fmt.Errorf("duplicate endpoint names: %s", strings.Join(dups, ", "))
	}

	return nil
}

// PollIntervalDuration parses poll_interval, defaulting to 5s
func (c *Config) PollIntervalDuration() (time.Duration, error) {
	return parseDuration("poll_interval", c.PollInterval, DefaultPollInterval)
}

// TimeoutDuration parses timeout, defaulting to 15m
func (c *Config) TimeoutDuration() (time.Duration, error) {
	return parseDuration("timeout", c.Timeout, DefaultTimeout)
}

func parseDuration(field, value, fallback string) (time.Duration, error) {
	if value == "" {
		value = fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration %q: %w", field, value, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s duration %q: must be positive", field, value)
	}
	return d, nil
}

// ResolvedHistoryPath returns history_path or the default location next to the config file
func (c *Config) ResolvedHistoryPath() (string, error) {
	if c.HistoryPath != "" {
		return ResolveEnv(c.HistoryPath), nil
	}
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history.db"), nil
}

// AddEndpoint adds a new endpoint to the config
func (c *Config) AddEndpoint(endpoint Endpoint) error {
	if _, found := c.FindEndpoint(endpoint.Name); found {
		return fmt.Errorf("endpoint with name '%s' already exists", endpoint.Name)
	}

	c.Endpoints = append(c.Endpoints, endpoint)
	return nil
}

// RemoveEndpoint removes an endpoint by name from the config
func (c *Config) RemoveEndpoint(name string) error {
	for i, e := range c.Endpoints {
		if e.Name == name {
			c.Endpoints = append(c.Endpoints[:i], c.Endpoints[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("endpoint '%s' not found", name)
}

// FindEndpoint looks up an endpoint by name
func (c *Config) FindEndpoint(name string) (Endpoint, bool) {
	return lo.Find(c.Endpoints, func(e Endpoint) bool { return e.Name == name })
}

// EndpointNames returns the names of all tracked endpoints
func (c *Config) EndpointNames() []string {
	return lo.Map(c.Endpoints, func(e Endpoint, _ int) string { return e.Name })
}

// getDefaultConfig returns the default configuration as YAML
func getDefaultConfig() string {
	return fmt.Sprintf(`# sagedeploy configuration
# region: us-east-1
poll_interval: %s
timeout: %s

notifications:
  desktop: false
  # sns_topic_arn: arn:aws:sns:us-east-1:123456789012:deployments

# Deployment targets
endpoints:
  - name: artwork-content-endpoint
    model_name: artwork-content-model
    model_data: s3://my-bucket/model/model.tar.gz
    image: ${INFERENCE_IMAGE_URI}
    role_arn: ${SAGEMAKER_ROLE_ARN}
    instance_type: %s
    instance_count: %d
`, DefaultPollInterval, DefaultTimeout, DefaultInstanceType, DefaultInstanceCount)
}

// ResolveEnv replaces environment variable placeholders with actual values
// Supports ${VAR_NAME} syntax
func ResolveEnv(value string) string {
	return os.ExpandEnv(value)
}
