// Package render turns a provisioned environment into output documents:
// the pods as JSON and one OCI runtime spec fragment per machine.
package render

import (
	"encoding/json"
	"io"
	"maps"
	"slices"

	"github.com/cuemby/burrow/pkg/environment"
	"github.com/cuemby/burrow/pkg/types"
	corev1 "k8s.io/api/core/v1"
)

// Result is the JSON document describing a provisioned environment
type Result struct {
	WorkspaceID string                       `json:"workspaceId"`
	EnvName     string                       `json:"envName,omitempty"`
	OwnerID     string                       `json:"ownerId,omitempty"`
	Pods        []corev1.Pod                 `json:"pods"`
	Machines    map[string]map[string]string `json:"machines"`
	Warnings    []types.Warning              `json:"warnings,omitempty"`
}

// NewResult snapshots env. Pods are ordered by name.
func NewResult(identity types.RuntimeIdentity, env *environment.InternalEnvironment) *Result {
	r := &Result{
		WorkspaceID: identity.WorkspaceID,
		EnvName:     identity.EnvName,
		OwnerID:     identity.OwnerID,
		Machines:    MachineAttributes(env),
		Warnings:    slices.Clone(env.Warnings),
	}
	for _, name := range slices.Sorted(maps.Keys(env.Pods)) {
		pod := env.Pods[name]
		r.Pods = append(r.Pods, corev1.Pod{
			TypeMeta:   podTypeMeta,
			ObjectMeta: *pod.Meta.DeepCopy(),
			Spec:       *pod.Spec.DeepCopy(),
		})
	}
	return r
}

// MachineAttributes copies the attributes of every machine
func MachineAttributes(env *environment.InternalEnvironment) map[string]map[string]string {
	out := make(map[string]map[string]string, len(env.Machines))
	for name, machine := range env.Machines {
		out[name] = maps.Clone(machine.Attributes)
	}
	return out
}

// WriteJSON writes v as indented JSON
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
