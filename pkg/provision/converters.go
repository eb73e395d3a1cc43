package provision

import (
	"fmt"
	"maps"
	"path"
	"slices"
	"strconv"
	"strings"

	"github.com/cuemby/burrow/pkg/environment"
	"github.com/cuemby/burrow/pkg/types"
	corev1 "k8s.io/api/core/v1"
)

// EnvVarsProvisioner copies each machine's environment onto its container.
// Machine values replace container values of the same name.
type EnvVarsProvisioner struct{}

// NewEnvVarsProvisioner creates an env vars provisioner
func NewEnvVarsProvisioner() *EnvVarsProvisioner {
	return &EnvVarsProvisioner{}
}

// Name returns the provisioner name
func (p *EnvVarsProvisioner) Name() string {
	return "env-vars"
}

// Provision writes machine env vars to containers
func (p *EnvVarsProvisioner) Provision(identity types.RuntimeIdentity, env *environment.InternalEnvironment) error {
	for _, c := range env.Containers() {
		machine, ok := env.Machines[c.MachineName]
		if !ok {
			return machineError(identity, c.MachineName, ErrMissingMachine)
		}
		for _, name := range slices.Sorted(maps.Keys(machine.Env)) {
			setEnv(c.Spec, name, machine.Env[name])
		}
	}
	return nil
}

func setEnv(container *corev1.Container, name, value string) {
	for i := range container.Env {
		if container.Env[i].Name == name {
			container.Env[i].Value = value
			container.Env[i].ValueFrom = nil
			return
		}
	}
	container.Env = append(container.Env, corev1.EnvVar{Name: name, Value: value})
}

// ServersProvisioner exposes every machine server as a container port
type ServersProvisioner struct{}

// NewServersProvisioner creates a servers provisioner
func NewServersProvisioner() *ServersProvisioner {
	return &ServersProvisioner{}
}

// Name returns the provisioner name
func (p *ServersProvisioner) Name() string {
	return "servers"
}

// Provision adds container ports, deduplicated by port and protocol
func (p *ServersProvisioner) Provision(identity types.RuntimeIdentity, env *environment.InternalEnvironment) error {
	for _, c := range env.Containers() {
		machine, ok := env.Machines[c.MachineName]
		if !ok {
			return machineError(identity, c.MachineName, ErrMissingMachine)
		}
		for _, name := range slices.Sorted(maps.Keys(machine.Servers)) {
			port, protocol, err := ParseServerPort(machine.Servers[name].Port)
			if err != nil {
				return machineError(identity, c.MachineName, fmt.Errorf("%w: server %q: %v", ErrInvalidServer, name, err))
			}
			addPort(c.Spec, port, protocol)
		}
	}
	return nil
}

// ParseServerPort parses "8080" or "8080/tcp" into a port and protocol
func ParseServerPort(value string) (int32, corev1.Protocol, error) {
	number, proto, _ := strings.Cut(strings.TrimSpace(value), "/")
	port, err := strconv.ParseInt(number, 10, 32)
	if err != nil || port < 1 || port > 65535 {
		return 0, "", fmt.Errorf("port %q is not a valid port number", value)
	}

	switch strings.ToLower(proto) {
	case "", "tcp":
		return int32(port), corev1.ProtocolTCP, nil
	case "udp":
		return int32(port), corev1.ProtocolUDP, nil
	case "sctp":
		return int32(port), corev1.ProtocolSCTP, nil
	default:
		return 0, "", fmt.Errorf("port %q has unsupported protocol %q", value, proto)
	}
}

func addPort(container *corev1.Container, port int32, protocol corev1.Protocol) {
	for _, existing := range container.Ports {
		existingProtocol := existing.Protocol
		if existingProtocol == "" {
			existingProtocol = corev1.ProtocolTCP
		}
		if existing.ContainerPort == port && existingProtocol == protocol {
			return
		}
	}
	container.Ports = append(container.Ports, corev1.ContainerPort{
		ContainerPort: port,
		Protocol:      protocol,
	})
}

// VolumesProvisioner turns machine volumes into pod volumes and container
// mounts. With a claim name every volume is a sub path of that persistent
// volume claim, scoped by workspace; otherwise volumes are emptyDirs.
type VolumesProvisioner struct {
	claimName string
}

// NewVolumesProvisioner creates a volumes provisioner
func NewVolumesProvisioner(claimName string) *VolumesProvisioner {
	return &VolumesProvisioner{claimName: claimName}
}

// Name returns the provisioner name
func (p *VolumesProvisioner) Name() string {
	return "volumes"
}

// Provision mounts every machine volume into its container. Machines of
// the same pod that declare the same volume name share one pod volume.
func (p *VolumesProvisioner) Provision(identity types.RuntimeIdentity, env *environment.InternalEnvironment) error {
	for _, c := range env.Containers() {
		machine, ok := env.Machines[c.MachineName]
		if !ok {
			return machineError(identity, c.MachineName, ErrMissingMachine)
		}
		for _, name := range slices.Sorted(maps.Keys(machine.Volumes)) {
			mountPath := machine.Volumes[name].Path
			if !path.IsAbs(mountPath) {
				return machineError(identity, c.MachineName,
					fmt.Errorf("%w: volume %q path %q must be absolute", ErrInvalidVolume, name, mountPath))
			}
			p.addPodVolume(c.Pod, name)
			p.addMount(identity, c.Spec, name, mountPath)
		}
	}
	return nil
}

func (p *VolumesProvisioner) addPodVolume(pod *environment.PodData, name string) {
	volume := corev1.Volume{Name: name}
	if p.claimName != "" {
		volume.Name = p.claimName
		volume.PersistentVolumeClaim = &corev1.PersistentVolumeClaimVolumeSource{ClaimName: p.claimName}
	} else {
		volume.EmptyDir = &corev1.EmptyDirVolumeSource{}
	}

	for _, v := range pod.Spec.Volumes {
		if v.Name == volume.Name {
			return
		}
	}
	pod.Spec.Volumes = append(pod.Spec.Volumes, volume)
}

func (p *VolumesProvisioner) addMount(identity types.RuntimeIdentity, container *corev1.Container, name, mountPath string) {
	mount := corev1.VolumeMount{Name: name, MountPath: mountPath}
	if p.claimName != "" {
		mount.Name = p.claimName
		mount.SubPath = identity.WorkspaceID + "/" + name
	}

	for _, m := range container.VolumeMounts {
		if m.MountPath == mount.MountPath {
			return
		}
	}
	container.VolumeMounts = append(container.VolumeMounts, mount)
}
