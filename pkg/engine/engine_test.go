package engine

import (
	"testing"

	"github.com/cuemby/burrow/pkg/config"
	"github.com/cuemby/burrow/pkg/environment"
	"github.com/cuemby/burrow/pkg/provision"
	"github.com/cuemby/burrow/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

var identity = types.RuntimeIdentity{WorkspaceID: "workspace42", EnvName: "default", OwnerID: "owner"}

func singleMachineEnv() *environment.InternalEnvironment {
	env := environment.New()
	env.AddPod(&corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{Name: "ws"},
		Spec: corev1.PodSpec{
			Containers: []corev1.Container{{Name: "dev", Image: "eclipse/che-dev"}},
		},
	})
	env.AddMachine("ws/dev", types.NewMachineConfig())
	return env
}

func envValue(c corev1.Container, name string) (string, bool) {
	for _, e := range c.Env {
		if e.Name == name {
			return e.Value, true
		}
	}
	return "", false
}

func TestCanonicalOrder(t *testing.T) {
	pipeline, err := New(config.Default())
	require.NoError(t, err)

	var names []string
	for _, p := range pipeline.Provisioners() {
		names = append(names, p.Name())
	}
	assert.Equal(t, []string{
		"machine-name",
		"installer-config",
		"resource-limits",
		"projects-volume",
		"env-vars",
		"servers",
		"volumes",
	}, names)
}

func TestNewRejectsInvalidDefaults(t *testing.T) {
	cfg := config.Default()
	cfg.Resources.CPULimit = "many"

	_, err := New(cfg)
	assert.Error(t, err)
}

func TestDefaultMemoryLimitEndToEnd(t *testing.T) {
	env := singleMachineEnv()
	env.Pods["ws"].Spec.Containers[0].Resources.Limits = corev1.ResourceList{
		corev1.ResourceMemory: resource.MustParse("0"),
	}

	cfg := config.Default()
	cfg.Resources.MemoryLimitMB = 1024
	pipeline, err := New(cfg)
	require.NoError(t, err)

	require.NoError(t, pipeline.Provision(identity, env))

	assert.Equal(t, "1073741824", env.Machines["ws/dev"].Attributes[types.MemoryLimitAttribute])
	limit := env.Pods["ws"].Spec.Containers[0].Resources.Limits[corev1.ResourceMemory]
	assert.Equal(t, int64(1073741824), limit.Value())
}

func TestExplicitCPULimitEndToEnd(t *testing.T) {
	env := singleMachineEnv()
	env.Machines["ws/dev"].Attributes[types.CPULimitAttribute] = "2.0"

	cfg := config.Default()
	cfg.Resources.CPULimit = "0.5"
	pipeline, err := New(cfg)
	require.NoError(t, err)

	require.NoError(t, pipeline.Provision(identity, env))

	assert.Equal(t, "2.0", env.Machines["ws/dev"].Attributes[types.CPULimitAttribute])
	limit := env.Pods["ws"].Spec.Containers[0].Resources.Limits[corev1.ResourceCPU]
	assert.Equal(t, "2", limit.String())
}

func TestConflictingInstallerServersEndToEnd(t *testing.T) {
	env := singleMachineEnv()
	env.Machines["ws/dev"].Installers = []types.Installer{
		{ID: "installer-a", Servers: map[string]types.ServerConfig{"ssh": {Port: "22/tcp", Protocol: "ssh"}}},
		{ID: "installer-b", Servers: map[string]types.ServerConfig{"ssh": {Port: "2222/tcp", Protocol: "ssh"}}},
	}

	pipeline, err := New(config.Default())
	require.NoError(t, err)

	err = pipeline.Provision(identity, env)
	require.Error(t, err)
	assert.ErrorIs(t, err, provision.ErrConflictingServer)
	assert.Contains(t, err.Error(), `machine "ws/dev"`)
	assert.Contains(t, err.Error(), `installer "installer-b"`)
	assert.Contains(t, err.Error(), `"ssh"`)
	assert.Contains(t, err.Error(), `provisioner "installer-config"`)
}

func TestFullEnvironmentEndToEnd(t *testing.T) {
	env := environment.New()
	env.AddPod(&corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{Name: "ws"},
		Spec: corev1.PodSpec{
			Containers: []corev1.Container{
				{Name: "dev", Image: "eclipse/che-dev"},
				{
					Name:  "db",
					Image: "postgres",
					Resources: corev1.ResourceRequirements{
						Limits: corev1.ResourceList{corev1.ResourceMemory: resource.MustParse("512Mi")},
					},
				},
			},
		},
	})

	dev := types.NewMachineConfig()
	dev.Installers = []types.Installer{
		{
			ID:         config.DefaultToolingInstallerID,
			Properties: map[string]string{types.InstallerEnvProperty: "CHE_API=http://che/api,BROKEN"},
			Servers: map[string]types.ServerConfig{
				"wsagent/http": {Port: "4401/tcp", Protocol: "http", Path: "/api"},
			},
		},
		{
			ID:      "org.eclipse.che.terminal",
			Servers: map[string]types.ServerConfig{"terminal": {Port: "4411/tcp", Protocol: "ws", Path: "/pty"}},
		},
	}
	dev.Attributes[types.CPULimitAttribute] = "1.5"
	env.AddMachine("ws/dev", dev)
	env.AddMachine("ws/db", types.NewMachineConfig())

	cfg := config.Default()
	cfg.Resources.CPURequest = "250m"
	cfg.Volumes.ClaimName = "claim-workspace"
	pipeline, err := New(cfg)
	require.NoError(t, err)

	require.NoError(t, pipeline.Provision(identity, env))

	devContainer := env.Pods["ws"].Spec.Containers[0]
	dbContainer := env.Pods["ws"].Spec.Containers[1]

	// identity and installer env on the container
	v, ok := envValue(devContainer, types.MachineNameEnvVar)
	assert.True(t, ok)
	assert.Equal(t, "ws/dev", v)
	v, _ = envValue(devContainer, "CHE_API")
	assert.Equal(t, "http://che/api", v)
	v, _ = envValue(dbContainer, types.MachineNameEnvVar)
	assert.Equal(t, "ws/db", v)

	// resources
	devCPU := devContainer.Resources.Limits[corev1.ResourceCPU]
	assert.Equal(t, "1500m", devCPU.String())
	devCPURequest := devContainer.Resources.Requests[corev1.ResourceCPU]
	assert.Equal(t, "250m", devCPURequest.String())
	dbMemory := dbContainer.Resources.Limits[corev1.ResourceMemory]
	assert.Equal(t, "512Mi", dbMemory.String())
	_, hasDBCPULimit := dbContainer.Resources.Limits[corev1.ResourceCPU]
	assert.False(t, hasDBCPULimit)

	// servers
	assert.ElementsMatch(t, []corev1.ContainerPort{
		{ContainerPort: 4401, Protocol: corev1.ProtocolTCP},
		{ContainerPort: 4411, Protocol: corev1.ProtocolTCP},
	}, devContainer.Ports)
	assert.Empty(t, dbContainer.Ports)

	// projects volume only on the tooling machine
	assert.Equal(t, []corev1.VolumeMount{
		{Name: "claim-workspace", MountPath: "/projects", SubPath: "workspace42/projects"},
	}, devContainer.VolumeMounts)
	assert.Empty(t, dbContainer.VolumeMounts)
	require.Len(t, env.Pods["ws"].Spec.Volumes, 1)

	// the malformed env entry became a warning
	require.Len(t, env.Warnings, 1)
	assert.Equal(t, types.WarningMalformedInstallerEnv, env.Warnings[0].Code)
}
