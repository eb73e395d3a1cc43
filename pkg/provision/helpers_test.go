package provision

import (
	"strings"

	"github.com/cuemby/burrow/pkg/environment"
	"github.com/cuemby/burrow/pkg/types"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

var testIdentity = types.RuntimeIdentity{
	WorkspaceID: "workspace123",
	EnvName:     "default",
	OwnerID:     "user1",
}

// newTestEnv builds an environment from "<pod>/<container>" machine names
func newTestEnv(machines ...string) *environment.InternalEnvironment {
	env := environment.New()
	for _, machine := range machines {
		podName, containerName, _ := strings.Cut(machine, "/")
		pod, ok := env.Pods[podName]
		if !ok {
			pod = env.AddPod(&corev1.Pod{ObjectMeta: metav1.ObjectMeta{Name: podName}})
		}
		pod.Spec.Containers = append(pod.Spec.Containers, corev1.Container{Name: containerName})
		env.AddMachine(machine, types.NewMachineConfig())
	}
	return env
}

// container returns the container realizing a machine
func container(env *environment.InternalEnvironment, machine string) *corev1.Container {
	for _, c := range env.Containers() {
		if c.MachineName == machine {
			return c.Spec
		}
	}
	return nil
}
