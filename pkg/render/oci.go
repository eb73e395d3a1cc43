package render

import (
	"fmt"

	"github.com/cuemby/burrow/pkg/environment"
	"github.com/cuemby/burrow/pkg/volume"
	specs "github.com/opencontainers/runtime-spec/specs-go"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// Annotations placed on every rendered OCI spec
const (
	AnnotationMachineName = "burrow.cuemby.io/machine-name"
	AnnotationImage       = "burrow.cuemby.io/image"
	AnnotationPod         = "burrow.cuemby.io/pod"
)

// CFS period used to turn a CPU limit into a quota
const cpuPeriod uint64 = 100000

var podTypeMeta = metav1.TypeMeta{APIVersion: "v1", Kind: "Pod"}

// MachineSpec is the OCI runtime spec of one machine's container
type MachineSpec struct {
	Machine   string      `json:"machine"`
	Pod       string      `json:"pod"`
	Container string      `json:"container"`
	Spec      *specs.Spec `json:"spec"`
}

// OCISpecs renders one spec per container, in pod then container order.
// Volume sources are host directories laid out by driver.
func OCISpecs(env *environment.InternalEnvironment, driver *volume.LocalDriver) ([]MachineSpec, error) {
	var out []MachineSpec
	for _, c := range env.Containers() {
		spec, err := OCISpec(c.Pod, c.Spec, c.MachineName, driver)
		if err != nil {
			return nil, fmt.Errorf("machine %q: %w", c.MachineName, err)
		}
		out = append(out, MachineSpec{
			Machine:   c.MachineName,
			Pod:       c.Pod.Name(),
			Container: c.Spec.Name,
			Spec:      spec,
		})
	}
	return out, nil
}

// OCISpec renders the runtime spec of a single container
func OCISpec(pod *environment.PodData, container *corev1.Container, machine string, driver *volume.LocalDriver) (*specs.Spec, error) {
	mounts, err := ociMounts(pod, container, driver)
	if err != nil {
		return nil, err
	}

	env := make([]string, 0, len(container.Env))
	for _, e := range container.Env {
		// references resolved by a cluster have no value outside of it
		if e.ValueFrom != nil {
			continue
		}
		env = append(env, e.Name+"="+e.Value)
	}

	args := append(append([]string{}, container.Command...), container.Args...)

	return &specs.Spec{
		Version:  specs.Version,
		Hostname: container.Name,
		Root:     &specs.Root{Path: "rootfs"},
		Process: &specs.Process{
			Cwd:  "/",
			Args: args,
			Env:  env,
		},
		Mounts: mounts,
		Annotations: map[string]string{
			AnnotationMachineName: machine,
			AnnotationImage:       container.Image,
			AnnotationPod:         pod.Name(),
		},
		Linux: &specs.Linux{
			Resources: ociResources(container.Resources),
		},
	}, nil
}

func ociMounts(pod *environment.PodData, container *corev1.Container, driver *volume.LocalDriver) ([]specs.Mount, error) {
	mounts := make([]specs.Mount, 0, len(container.VolumeMounts))
	for _, m := range container.VolumeMounts {
		source, err := volumeSource(pod, m, driver)
		if err != nil {
			return nil, err
		}

		mount := specs.Mount{
			Source:      source,
			Destination: m.MountPath,
			Type:        "bind",
			Options:     []string{"rbind"},
		}
		if m.ReadOnly {
			mount.Options = append(mount.Options, "ro")
		} else {
			mount.Options = append(mount.Options, "rw")
		}
		mounts = append(mounts, mount)
	}
	return mounts, nil
}

func volumeSource(pod *environment.PodData, m corev1.VolumeMount, driver *volume.LocalDriver) (string, error) {
	for _, v := range pod.Spec.Volumes {
		if v.Name != m.Name {
			continue
		}
		switch {
		case v.PersistentVolumeClaim != nil:
			return driver.ClaimPath(v.PersistentVolumeClaim.ClaimName, m.SubPath), nil
		case v.EmptyDir != nil:
			return driver.EmptyDirPath(pod.Name(), v.Name, m.SubPath), nil
		default:
			return "", fmt.Errorf("volume %q has an unsupported source", v.Name)
		}
	}
	return "", fmt.Errorf("mount %q refers to unknown pod volume %q", m.MountPath, m.Name)
}

func ociResources(req corev1.ResourceRequirements) *specs.LinuxResources {
	res := &specs.LinuxResources{}

	if q, ok := req.Limits[corev1.ResourceMemory]; ok && q.Value() > 0 {
		limit := q.Value()
		res.Memory = &specs.LinuxMemory{Limit: &limit}
	}
	if q, ok := req.Requests[corev1.ResourceMemory]; ok && q.Value() > 0 {
		reservation := q.Value()
		if res.Memory == nil {
			res.Memory = &specs.LinuxMemory{}
		}
		res.Memory.Reservation = &reservation
	}

	if q, ok := req.Limits[corev1.ResourceCPU]; ok && q.MilliValue() > 0 {
		quota := q.MilliValue() * int64(cpuPeriod) / 1000
		period := cpuPeriod
		res.CPU = &specs.LinuxCPU{Quota: &quota, Period: &period}
	}
	if q, ok := req.Requests[corev1.ResourceCPU]; ok && q.MilliValue() > 0 {
		shares := milliCPUToShares(q.MilliValue())
		if res.CPU == nil {
			res.CPU = &specs.LinuxCPU{}
		}
		res.CPU.Shares = &shares
	}
	return res
}

// milliCPUToShares follows the kubelet conversion: 1024 shares per core,
// never below the kernel minimum of 2.
func milliCPUToShares(milli int64) uint64 {
	shares := uint64(milli) * 1024 / 1000
	if shares < 2 {
		return 2
	}
	return shares
}
