// Package config loads the administrator configuration of burrow.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/cuemby/burrow/pkg/log"
	"github.com/cuemby/burrow/pkg/size"
	"github.com/cuemby/burrow/pkg/types"
	"gopkg.in/yaml.v3"
)

// Defaults used when neither the config file nor the environment sets a value
const (
	DefaultMemoryLimitMB      = 1024
	DefaultMemoryRequestMB    = 200
	DefaultCPULimitCores      = "-1"
	DefaultCPURequestCores    = "-1"
	DefaultProjectsPath       = "/projects"
	DefaultToolingInstallerID = "org.eclipse.che.ws-agent"
)

// Config holds the administrator configuration of the provisioning engine.
// It is loaded once at startup and treated as read-only afterwards.
type Config struct {
	Log                LogConfig       `yaml:"log"`
	Resources          ResourcesConfig `yaml:"resources"`
	Volumes            VolumesConfig   `yaml:"volumes"`
	ToolingInstallerID string          `yaml:"toolingInstallerId"`
	DataDir            string          `yaml:"dataDir"`
}

// LogConfig configures the global logger
type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// ResourcesConfig holds the default machine resources. Memory is in
// megabytes; CPU is a core count string such as "0.5" or "500m".
type ResourcesConfig struct {
	MemoryLimitMB   int64  `yaml:"memoryLimitMB"`
	MemoryRequestMB int64  `yaml:"memoryRequestMB"`
	CPULimit        string `yaml:"cpuLimit"`
	CPURequest      string `yaml:"cpuRequest"`
}

// VolumesConfig configures workspace volumes
type VolumesConfig struct {
	ProjectsPath string `yaml:"projectsPath"`
	ClaimName    string `yaml:"claimName"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Log: LogConfig{Level: string(log.InfoLevel)},
		Resources: ResourcesConfig{
			MemoryLimitMB:   DefaultMemoryLimitMB,
			MemoryRequestMB: DefaultMemoryRequestMB,
			CPULimit:        DefaultCPULimitCores,
			CPURequest:      DefaultCPURequestCores,
		},
		Volumes: VolumesConfig{
			ProjectsPath: DefaultProjectsPath,
		},
		ToolingInstallerID: DefaultToolingInstallerID,
	}
}

// Load builds the configuration from the defaults, the YAML file at path
// (skipped when path is empty) and BURROW_* environment variables, in that
// order of increasing precedence.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := cfg.decode(data); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decode(data []byte) error {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// ApplyEnv overrides values from environment variables
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	ints := map[string]*int64{
		"BURROW_DEFAULT_MEMORY_LIMIT_MB":   &c.Resources.MemoryLimitMB,
		"BURROW_DEFAULT_MEMORY_REQUEST_MB": &c.Resources.MemoryRequestMB,
	}
	for key, target := range ints {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid %s=%q: %w", key, v, err)
			}
			*target = n
		}
	}

	strs := map[string]*string{
		"BURROW_DEFAULT_CPU_LIMIT_CORES":   &c.Resources.CPULimit,
		"BURROW_DEFAULT_CPU_REQUEST_CORES": &c.Resources.CPURequest,
		"BURROW_PROJECTS_PATH":             &c.Volumes.ProjectsPath,
		"BURROW_PROJECTS_CLAIM":            &c.Volumes.ClaimName,
		"BURROW_TOOLING_INSTALLER":         &c.ToolingInstallerID,
		"BURROW_LOG_LEVEL":                 &c.Log.Level,
		"BURROW_DATA_DIR":                  &c.DataDir,
	}
	for key, target := range strs {
		if v, ok := lookup(key); ok && v != "" {
			*target = v
		}
	}

	if v, ok := lookup("BURROW_LOG_JSON"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid BURROW_LOG_JSON=%q: %w", v, err)
		}
		c.Log.JSON = b
	}
	return nil
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	switch log.Level(c.Log.Level) {
	case log.DebugLevel, log.InfoLevel, log.WarnLevel, log.ErrorLevel:
	default:
		return fmt.Errorf("invalid log level %q", c.Log.Level)
	}
	if _, err := size.ParseCores(c.Resources.CPULimit); err != nil {
		return fmt.Errorf("invalid default CPU limit: %w", err)
	}
	if _, err := size.ParseCores(c.Resources.CPURequest); err != nil {
		return fmt.Errorf("invalid default CPU request: %w", err)
	}
	if c.ToolingInstallerID == "" {
		return fmt.Errorf("tooling installer id must not be empty")
	}
	return nil
}

// ResourceDefaults converts the configured defaults into bytes and cores
func (c *Config) ResourceDefaults() (types.ResourceDefaults, error) {
	cpuLimit, err := size.ParseCores(c.Resources.CPULimit)
	if err != nil {
		return types.ResourceDefaults{}, fmt.Errorf("invalid default CPU limit: %w", err)
	}
	cpuRequest, err := size.ParseCores(c.Resources.CPURequest)
	if err != nil {
		return types.ResourceDefaults{}, fmt.Errorf("invalid default CPU request: %w", err)
	}

	return types.ResourceDefaults{
		MemoryLimitBytes:   size.MegabytesToBytes(c.Resources.MemoryLimitMB),
		MemoryRequestBytes: size.MegabytesToBytes(c.Resources.MemoryRequestMB),
		CPULimitCores:      cpuLimit,
		CPURequestCores:    cpuRequest,
	}, nil
}

// LoggerConfig returns the logger configuration
func (c *Config) LoggerConfig() log.Config {
	return log.Config{
		Level:      log.Level(c.Log.Level),
		JSONOutput: c.Log.JSON,
	}
}
