package render

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/cuemby/burrow/pkg/environment"
	"github.com/cuemby/burrow/pkg/types"
	"github.com/cuemby/burrow/pkg/volume"
	specs "github.com/opencontainers/runtime-spec/specs-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

var identity = types.RuntimeIdentity{WorkspaceID: "workspace123", EnvName: "default", OwnerID: "owner"}

func provisionedEnv() *environment.InternalEnvironment {
	env := environment.New()
	env.AddPod(&corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{Name: "ws"},
		Spec: corev1.PodSpec{
			Volumes: []corev1.Volume{
				{Name: "claim-che", VolumeSource: corev1.VolumeSource{
					PersistentVolumeClaim: &corev1.PersistentVolumeClaimVolumeSource{ClaimName: "claim-che"},
				}},
				{Name: "cache", VolumeSource: corev1.VolumeSource{EmptyDir: &corev1.EmptyDirVolumeSource{}}},
			},
			Containers: []corev1.Container{
				{
					Name:    "dev",
					Image:   "eclipse/che-dev",
					Command: []string{"/bin/sh"},
					Args:    []string{"-c", "sleep infinity"},
					Env: []corev1.EnvVar{
						{Name: "CHE_MACHINE_NAME", Value: "ws/dev"},
						{Name: "JAVA_OPTS", Value: "-Xmx1g"},
					},
					Resources: corev1.ResourceRequirements{
						Limits: corev1.ResourceList{
							corev1.ResourceMemory: resource.MustParse("1Gi"),
							corev1.ResourceCPU:    resource.MustParse("1500m"),
						},
						Requests: corev1.ResourceList{
							corev1.ResourceMemory: resource.MustParse("200Mi"),
							corev1.ResourceCPU:    resource.MustParse("250m"),
						},
					},
					VolumeMounts: []corev1.VolumeMount{
						{Name: "claim-che", MountPath: "/projects", SubPath: "workspace123/projects"},
						{Name: "cache", MountPath: "/cache", ReadOnly: true},
					},
				},
				{Name: "db", Image: "mysql"},
			},
		},
	})

	dev := types.NewMachineConfig()
	dev.Attributes[types.MemoryLimitAttribute] = "1073741824"
	env.AddMachine("ws/dev", dev)
	env.AddMachine("ws/db", types.NewMachineConfig())
	env.AddWarning(types.WarningMalformedInstallerEnv, "bad entry %q", "FOO")
	return env
}

func TestNewResult(t *testing.T) {
	env := provisionedEnv()
	result := NewResult(identity, env)

	assert.Equal(t, "workspace123", result.WorkspaceID)
	require.Len(t, result.Pods, 1)
	assert.Equal(t, "Pod", result.Pods[0].Kind)
	assert.Equal(t, "ws", result.Pods[0].Name)
	assert.Equal(t, "1073741824", result.Machines["ws/dev"][types.MemoryLimitAttribute])
	assert.Len(t, result.Warnings, 1)

	// the result is a snapshot
	env.Pods["ws"].Spec.Containers[0].Image = "changed"
	env.Machines["ws/dev"].Attributes[types.MemoryLimitAttribute] = "1"
	assert.Equal(t, "eclipse/che-dev", result.Pods[0].Spec.Containers[0].Image)
	assert.Equal(t, "1073741824", result.Machines["ws/dev"][types.MemoryLimitAttribute])
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, NewResult(identity, provisionedEnv())))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "workspace123", decoded["workspaceId"])
	assert.Contains(t, buf.String(), `"memory": "1Gi"`)
	assert.Contains(t, buf.String(), `"subPath": "workspace123/projects"`)
}

func TestOCISpecs(t *testing.T) {
	out, err := OCISpecs(provisionedEnv(), volume.NewLocalDriver("/var/lib/burrow/volumes"))
	require.NoError(t, err)
	require.Len(t, out, 2)

	dev := out[0]
	assert.Equal(t, "ws/dev", dev.Machine)
	assert.Equal(t, "ws", dev.Pod)
	assert.Equal(t, "dev", dev.Container)

	spec := dev.Spec
	assert.Equal(t, specs.Version, spec.Version)
	assert.Equal(t, []string{"/bin/sh", "-c", "sleep infinity"}, spec.Process.Args)
	assert.Equal(t, []string{"CHE_MACHINE_NAME=ws/dev", "JAVA_OPTS=-Xmx1g"}, spec.Process.Env)
	assert.Equal(t, "ws/dev", spec.Annotations[AnnotationMachineName])
	assert.Equal(t, "eclipse/che-dev", spec.Annotations[AnnotationImage])

	assert.Equal(t, []specs.Mount{
		{
			Source:      "/var/lib/burrow/volumes/claims/claim-che/workspace123/projects",
			Destination: "/projects",
			Type:        "bind",
			Options:     []string{"rbind", "rw"},
		},
		{
			Source:      "/var/lib/burrow/volumes/pods/ws/cache",
			Destination: "/cache",
			Type:        "bind",
			Options:     []string{"rbind", "ro"},
		},
	}, spec.Mounts)

	resources := spec.Linux.Resources
	require.NotNil(t, resources.Memory)
	assert.Equal(t, int64(1<<30), *resources.Memory.Limit)
	assert.Equal(t, int64(200<<20), *resources.Memory.Reservation)
	require.NotNil(t, resources.CPU)
	assert.Equal(t, int64(150000), *resources.CPU.Quota)
	assert.Equal(t, uint64(100000), *resources.CPU.Period)
	assert.Equal(t, uint64(256), *resources.CPU.Shares)

	db := out[1]
	assert.Equal(t, "ws/db", db.Machine)
	assert.Nil(t, db.Spec.Linux.Resources.Memory)
	assert.Nil(t, db.Spec.Linux.Resources.CPU)
	assert.Empty(t, db.Spec.Mounts)
}

func TestOCISpecSkipsReferencedEnv(t *testing.T) {
	env := provisionedEnv()
	container := &env.Pods["ws"].Spec.Containers[0]
	container.Env = append(container.Env, corev1.EnvVar{
		Name: "POD_NAME",
		ValueFrom: &corev1.EnvVarSource{
			FieldRef: &corev1.ObjectFieldSelector{FieldPath: "metadata.name"},
		},
	})

	out, err := OCISpecs(env, volume.NewLocalDriver("/var/lib/burrow/volumes"))
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, []string{"CHE_MACHINE_NAME=ws/dev", "JAVA_OPTS=-Xmx1g"}, out[0].Spec.Process.Env)
}

func TestOCISpecUnknownVolume(t *testing.T) {
	env := provisionedEnv()
	container := &env.Pods["ws"].Spec.Containers[1]
	container.VolumeMounts = []corev1.VolumeMount{{Name: "missing", MountPath: "/data"}}

	_, err := OCISpecs(env, volume.NewLocalDriver("/tmp"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `machine "ws/db"`)
}

func TestMilliCPUToShares(t *testing.T) {
	assert.Equal(t, uint64(2), milliCPUToShares(1))
	assert.Equal(t, uint64(1024), milliCPUToShares(1000))
	assert.Equal(t, uint64(512), milliCPUToShares(500))
}
