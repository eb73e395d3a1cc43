package recipe

import (
	"fmt"
	"maps"
	"os"

	"github.com/cuemby/burrow/pkg/environment"
	"github.com/cuemby/burrow/pkg/size"
	"github.com/cuemby/burrow/pkg/types"
	"gopkg.in/yaml.v3"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// LoadFile reads and parses a recipe file
func LoadFile(path string) (*Recipe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read recipe: %w", err)
	}
	return Parse(data)
}

// Parse validates a YAML recipe against the schema, decodes it and checks
// the cross-references the schema cannot express.
func Parse(data []byte) (*Recipe, error) {
	if err := ValidateSchema(data); err != nil {
		return nil, err
	}

	var r Recipe
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to decode recipe: %w", err)
	}
	if err := Validate(&r); err != nil {
		return nil, err
	}
	return &r, nil
}

// Validate checks names are unique and resource values parse
func Validate(r *Recipe) error {
	if r == nil {
		return fmt.Errorf("recipe must not be nil")
	}
	if r.Metadata.WorkspaceID == "" {
		return fmt.Errorf("metadata.workspaceId must not be empty")
	}

	pods := make(map[string]struct{}, len(r.Pods))
	machines := make(map[string]string)
	for i, pod := range r.Pods {
		if _, dup := pods[pod.Name]; dup {
			return fmt.Errorf("pods[%d]: duplicate pod name %q", i, pod.Name)
		}
		pods[pod.Name] = struct{}{}

		containers := make(map[string]struct{}, len(pod.Containers))
		for j, c := range pod.Containers {
			where := fmt.Sprintf("pods[%d].containers[%d]", i, j)
			if _, dup := containers[c.Name]; dup {
				return fmt.Errorf("%s: duplicate container name %q", where, c.Name)
			}
			containers[c.Name] = struct{}{}

			name := machineName(pod, c)
			if other, dup := machines[name]; dup {
				return fmt.Errorf("%s: machine %q is already realized by %s", where, name, other)
			}
			machines[name] = where

			if _, err := c.Resources.requirements(); err != nil {
				return fmt.Errorf("%s (%q): %w", where, c.Name, err)
			}
		}
	}
	return nil
}

// Build turns a recipe into the runtime identity and the environment the
// provisioning pipeline works on.
func Build(r *Recipe) (types.RuntimeIdentity, *environment.InternalEnvironment, error) {
	identity := types.RuntimeIdentity{
		WorkspaceID: r.Metadata.WorkspaceID,
		EnvName:     r.Metadata.Environment,
		OwnerID:     r.Metadata.Owner,
	}

	env := environment.New()
	for _, p := range r.Pods {
		pod := &corev1.Pod{
			ObjectMeta: metav1.ObjectMeta{
				Name:        p.Name,
				Labels:      maps.Clone(p.Labels),
				Annotations: maps.Clone(p.Annotations),
			},
		}

		for _, c := range p.Containers {
			requirements, err := c.Resources.requirements()
			if err != nil {
				return identity, nil, fmt.Errorf("container %q in pod %q: %w", c.Name, p.Name, err)
			}
			pod.Spec.Containers = append(pod.Spec.Containers, corev1.Container{
				Name:      c.Name,
				Image:     c.Image,
				Command:   c.Command,
				Args:      c.Args,
				Resources: requirements,
			})

			if c.MachineName != "" {
				if pod.Annotations == nil {
					pod.Annotations = make(map[string]string)
				}
				pod.Annotations[environment.MachineNameAnnotation(c.Name)] = c.MachineName
			}
			env.AddMachine(machineName(p, c), machineConfig(c))
		}
		env.AddPod(pod)
	}

	if err := env.Validate(); err != nil {
		return identity, nil, err
	}
	return identity, env, nil
}

func machineName(pod Pod, c Container) string {
	if c.MachineName != "" {
		return c.MachineName
	}
	meta := metav1.ObjectMeta{Name: pod.Name, Annotations: pod.Annotations}
	return environment.MachineName(&meta, &corev1.Container{Name: c.Name})
}

func machineConfig(c Container) *types.InternalMachineConfig {
	cfg := types.NewMachineConfig()
	maps.Copy(cfg.Attributes, c.Attributes)
	maps.Copy(cfg.Env, c.Env)
	maps.Copy(cfg.Servers, c.Servers)
	maps.Copy(cfg.Volumes, c.Volumes)
	for _, installer := range c.Installers {
		installer.Properties = maps.Clone(installer.Properties)
		installer.Servers = maps.Clone(installer.Servers)
		cfg.Installers = append(cfg.Installers, installer)
	}
	return cfg
}

func (r Resources) requirements() (corev1.ResourceRequirements, error) {
	var req corev1.ResourceRequirements

	if r.MemoryLimit != "" {
		n, err := size.ParseMemory(r.MemoryLimit)
		if err != nil {
			return req, fmt.Errorf("memoryLimit: %w", err)
		}
		if n > 0 {
			req.Limits = withQuantity(req.Limits, corev1.ResourceMemory, size.BytesQuantity(n))
		}
	}
	if r.MemoryRequest != "" {
		n, err := size.ParseMemory(r.MemoryRequest)
		if err != nil {
			return req, fmt.Errorf("memoryRequest: %w", err)
		}
		if n > 0 {
			req.Requests = withQuantity(req.Requests, corev1.ResourceMemory, size.BytesQuantity(n))
		}
	}
	if r.CPULimit != "" {
		cores, err := size.ParseCores(r.CPULimit)
		if err != nil {
			return req, fmt.Errorf("cpuLimit: %w", err)
		}
		milli, err := size.MilliCores(cores)
		if err != nil {
			return req, fmt.Errorf("cpuLimit: %w", err)
		}
		if milli > 0 {
			req.Limits = withQuantity(req.Limits, corev1.ResourceCPU, size.MilliCoresQuantity(milli))
		}
	}
	if r.CPURequest != "" {
		cores, err := size.ParseCores(r.CPURequest)
		if err != nil {
			return req, fmt.Errorf("cpuRequest: %w", err)
		}
		milli, err := size.MilliCores(cores)
		if err != nil {
			return req, fmt.Errorf("cpuRequest: %w", err)
		}
		if milli > 0 {
			req.Requests = withQuantity(req.Requests, corev1.ResourceCPU, size.MilliCoresQuantity(milli))
		}
	}
	return req, nil
}

// withQuantity stores q under name. Callers skip amounts that are not
// positive so the container is left without that resource.
func withQuantity(list corev1.ResourceList, name corev1.ResourceName, q resource.Quantity) corev1.ResourceList {
	if list == nil {
		list = corev1.ResourceList{}
	}
	list[name] = q
	return list
}
