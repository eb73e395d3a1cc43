package recipe

import "github.com/cuemby/burrow/pkg/types"

// APIVersion is the only recipe version understood by Parse
const APIVersion = "burrow.cuemby.io/v1"

// Kind is the expected recipe kind
const Kind = "Environment"

// Recipe is a declarative description of a workspace environment: the pods
// to run and the machine configuration behind each container.
type Recipe struct {
	APIVersion string   `yaml:"apiVersion" json:"apiVersion"`
	Kind       string   `yaml:"kind" json:"kind"`
	Metadata   Metadata `yaml:"metadata" json:"metadata"`
	Pods       []Pod    `yaml:"pods" json:"pods"`
}

// Metadata identifies the workspace runtime
type Metadata struct {
	WorkspaceID string `yaml:"workspaceId" json:"workspaceId"`
	Owner       string `yaml:"owner,omitempty" json:"owner,omitempty"`
	Environment string `yaml:"environment,omitempty" json:"environment,omitempty"`
}

// Pod is one pod of the environment
type Pod struct {
	Name        string            `yaml:"name" json:"name"`
	Labels      map[string]string `yaml:"labels,omitempty" json:"labels,omitempty"`
	Annotations map[string]string `yaml:"annotations,omitempty" json:"annotations,omitempty"`
	Containers  []Container       `yaml:"containers" json:"containers"`
}

// Container is a container together with the machine it realizes.
// MachineName overrides the default "<pod>/<container>" name.
type Container struct {
	Name        string                        `yaml:"name" json:"name"`
	Image       string                        `yaml:"image" json:"image"`
	MachineName string                        `yaml:"machineName,omitempty" json:"machineName,omitempty"`
	Command     []string                      `yaml:"command,omitempty" json:"command,omitempty"`
	Args        []string                      `yaml:"args,omitempty" json:"args,omitempty"`
	Resources   Resources                     `yaml:"resources,omitempty" json:"resources,omitempty"`
	Attributes  map[string]string             `yaml:"attributes,omitempty" json:"attributes,omitempty"`
	Env         map[string]string             `yaml:"env,omitempty" json:"env,omitempty"`
	Installers  []types.Installer             `yaml:"installers,omitempty" json:"installers,omitempty"`
	Servers     map[string]types.ServerConfig `yaml:"servers,omitempty" json:"servers,omitempty"`
	Volumes     map[string]types.VolumeConfig `yaml:"volumes,omitempty" json:"volumes,omitempty"`
}

// Resources are the container-level resources. Memory accepts docker style
// sizes ("512m", "1g") or Kubernetes quantities ("512Mi"); CPU accepts core
// counts ("1.5") or millicores ("500m").
type Resources struct {
	MemoryLimit   string `yaml:"memoryLimit,omitempty" json:"memoryLimit,omitempty"`
	MemoryRequest string `yaml:"memoryRequest,omitempty" json:"memoryRequest,omitempty"`
	CPULimit      string `yaml:"cpuLimit,omitempty" json:"cpuLimit,omitempty"`
	CPURequest    string `yaml:"cpuRequest,omitempty" json:"cpuRequest,omitempty"`
}
