package types

import (
	"maps"
	"time"
)

// Well-known machine attribute keys. Values are string-encoded so they stay
// compatible with every consumer of the machine attribute map.
const (
	MemoryLimitAttribute   = "memoryLimitBytes"
	MemoryRequestAttribute = "memoryRequestBytes"
	CPULimitAttribute      = "cpuLimitCores"
	CPURequestAttribute    = "cpuRequestCores"
)

const (
	// MachineNameEnvVar is set on every machine to the machine's own name
	MachineNameEnvVar = "CHE_MACHINE_NAME"

	// InstallerEnvProperty holds an installer's comma-separated name=value list
	InstallerEnvProperty = "environment"

	// ProjectsVolumeName is the shared volume holding workspace sources
	ProjectsVolumeName = "projects"
)

// RuntimeIdentity identifies the workspace runtime being provisioned
type RuntimeIdentity struct {
	WorkspaceID string
	EnvName     string
	OwnerID     string
}

// ServerConfig declares a network endpoint exposed by a machine
type ServerConfig struct {
	Port       string            `json:"port" yaml:"port"`         // "8080" or "8080/tcp"
	Protocol   string            `json:"protocol" yaml:"protocol"` // URL scheme, e.g. "http"
	Path       string            `json:"path,omitempty" yaml:"path,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// Equal reports whether two server declarations are identical by value.
// A nil and an empty attribute map are considered equal.
func (s ServerConfig) Equal(other ServerConfig) bool {
	return s.Port == other.Port &&
		s.Protocol == other.Protocol &&
		s.Path == other.Path &&
		maps.Equal(s.Attributes, other.Attributes)
}

// VolumeConfig declares where a named volume is mounted in a machine
type VolumeConfig struct {
	Path string `json:"path" yaml:"path"`
}

// Installer describes an agent installed into a machine. Installers are
// supplied externally and are never modified during provisioning.
type Installer struct {
	ID         string                  `json:"id" yaml:"id"`
	Version    string                  `json:"version,omitempty" yaml:"version,omitempty"`
	Properties map[string]string       `json:"properties,omitempty" yaml:"properties,omitempty"`
	Servers    map[string]ServerConfig `json:"servers,omitempty" yaml:"servers,omitempty"`
}

// InternalMachineConfig is the desired configuration of one machine
type InternalMachineConfig struct {
	Attributes map[string]string
	Env        map[string]string
	Installers []Installer
	Servers    map[string]ServerConfig
	Volumes    map[string]VolumeConfig
}

// NewMachineConfig returns a machine config with every map initialized
func NewMachineConfig() *InternalMachineConfig {
	return &InternalMachineConfig{
		Attributes: make(map[string]string),
		Env:        make(map[string]string),
		Servers:    make(map[string]ServerConfig),
		Volumes:    make(map[string]VolumeConfig),
	}
}

// HasInstaller reports whether an installer with the given id is attached
func (m *InternalMachineConfig) HasInstaller(id string) bool {
	for _, installer := range m.Installers {
		if installer.ID == id {
			return true
		}
	}
	return false
}

// Warning is a non-fatal problem found while provisioning an environment
type Warning struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Warning codes
const (
	WarningMalformedInstallerEnv = 4101
	WarningRequestExceedsLimit   = 4102
)

// ProvisionStatus is the outcome of one provisioning attempt
type ProvisionStatus string

const (
	ProvisionStatusSucceeded ProvisionStatus = "succeeded"
	ProvisionStatusFailed    ProvisionStatus = "failed"
)

// ProvisionRecord is the persisted summary of one provisioning attempt
type ProvisionRecord struct {
	ID          string                       `json:"id"`
	WorkspaceID string                       `json:"workspaceId"`
	EnvName     string                       `json:"envName,omitempty"`
	OwnerID     string                       `json:"ownerId,omitempty"`
	Status      ProvisionStatus              `json:"status"`
	Error       string                       `json:"error,omitempty"`
	Warnings    []Warning                    `json:"warnings,omitempty"`
	Machines    map[string]map[string]string `json:"machines,omitempty"` // machine name -> resolved attributes
	CreatedAt   time.Time                    `json:"createdAt"`
	Duration    time.Duration                `json:"duration"`
}

// ResourceDefaults are the administrator-configured fallbacks for machines
// that declare no resources. Built once at startup and never modified.
type ResourceDefaults struct {
	MemoryLimitBytes   int64
	MemoryRequestBytes int64
	CPULimitCores      float64
	CPURequestCores    float64
}
