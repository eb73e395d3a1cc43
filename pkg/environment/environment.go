package environment

import (
	"fmt"
	"maps"
	"slices"

	"github.com/cuemby/burrow/pkg/types"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// machineNameAnnotationFmt overrides the default "<pod>/<container>" machine name
const machineNameAnnotationFmt = "burrow.cuemby.io/%s.machine-name"

// PodData is the orchestrator-native object that realizes one or more
// machines: the pod metadata and the pod spec holding its containers.
type PodData struct {
	Meta *metav1.ObjectMeta
	Spec *corev1.PodSpec
}

// NewPodData wraps a pod so provisioners mutate it in place
func NewPodData(pod *corev1.Pod) *PodData {
	return &PodData{
		Meta: &pod.ObjectMeta,
		Spec: &pod.Spec,
	}
}

// Name returns the pod name
func (p *PodData) Name() string {
	return p.Meta.Name
}

// InternalEnvironment is the desired runtime shape of one workspace start
// attempt. It is mutated in place by every provisioner and must not be
// shared between goroutines.
type InternalEnvironment struct {
	Machines map[string]*types.InternalMachineConfig
	Pods     map[string]*PodData
	Warnings []types.Warning
}

// New creates an empty environment
func New() *InternalEnvironment {
	return &InternalEnvironment{
		Machines: make(map[string]*types.InternalMachineConfig),
		Pods:     make(map[string]*PodData),
	}
}

// AddPod registers a pod under its name
func (e *InternalEnvironment) AddPod(pod *corev1.Pod) *PodData {
	data := NewPodData(pod)
	e.Pods[pod.Name] = data
	return data
}

// AddMachine registers a machine config, initializing any nil maps
func (e *InternalEnvironment) AddMachine(name string, cfg *types.InternalMachineConfig) {
	if cfg.Attributes == nil {
		cfg.Attributes = make(map[string]string)
	}
	if cfg.Env == nil {
		cfg.Env = make(map[string]string)
	}
	if cfg.Servers == nil {
		cfg.Servers = make(map[string]types.ServerConfig)
	}
	if cfg.Volumes == nil {
		cfg.Volumes = make(map[string]types.VolumeConfig)
	}
	e.Machines[name] = cfg
}

// AddWarning records a non-fatal problem
func (e *InternalEnvironment) AddWarning(code int, format string, args ...interface{}) {
	e.Warnings = append(e.Warnings, types.Warning{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	})
}

// MachineNames returns the machine names in sorted order
func (e *InternalEnvironment) MachineNames() []string {
	return slices.Sorted(maps.Keys(e.Machines))
}

// Container is one container of the environment together with the machine
// it realizes. Spec points into the owning pod spec, so writes through it
// mutate the pod.
type Container struct {
	MachineName string
	Pod         *PodData
	Spec        *corev1.Container
}

// Containers lists every container ordered by pod name, then by position in
// the pod spec.
func (e *InternalEnvironment) Containers() []Container {
	var containers []Container
	for _, podName := range slices.Sorted(maps.Keys(e.Pods)) {
		pod := e.Pods[podName]
		if pod.Spec == nil {
			continue
		}
		for i := range pod.Spec.Containers {
			c := &pod.Spec.Containers[i]
			containers = append(containers, Container{
				MachineName: MachineName(pod.Meta, c),
				Pod:         pod,
				Spec:        c,
			})
		}
	}
	return containers
}

// Validate checks that every machine is backed by a container and every
// container belongs to a machine.
func (e *InternalEnvironment) Validate() error {
	backed := make(map[string]bool, len(e.Machines))
	for _, c := range e.Containers() {
		if _, ok := e.Machines[c.MachineName]; !ok {
			return fmt.Errorf("container %q in pod %q has no machine config (expected machine %q)",
				c.Spec.Name, c.Pod.Name(), c.MachineName)
		}
		if backed[c.MachineName] {
			return fmt.Errorf("machine %q is realized by more than one container", c.MachineName)
		}
		backed[c.MachineName] = true
	}
	for _, name := range e.MachineNames() {
		if !backed[name] {
			return fmt.Errorf("machine %q has no backing container", name)
		}
	}
	return nil
}

// MachineName returns the name of the machine a container realizes. A pod
// annotation may override the default "<pod>/<container>" form.
func MachineName(meta *metav1.ObjectMeta, container *corev1.Container) string {
	if meta != nil {
		if name, ok := meta.Annotations[MachineNameAnnotation(container.Name)]; ok && name != "" {
			return name
		}
		return meta.Name + "/" + container.Name
	}
	return container.Name
}

// MachineNameAnnotation returns the pod annotation key that names the
// machine of the given container.
func MachineNameAnnotation(containerName string) string {
	return fmt.Sprintf(machineNameAnnotationFmt, containerName)
}
