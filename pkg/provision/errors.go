package provision

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cuemby/burrow/pkg/environment"
	"github.com/cuemby/burrow/pkg/types"
)

var (
	// ErrInvalidEnvironment is returned when the environment violates the
	// machine/container invariant before provisioning starts
	ErrInvalidEnvironment = errors.New("invalid environment")

	// ErrInvalidAttribute is returned for unparseable resource attributes
	ErrInvalidAttribute = environment.ErrInvalidAttribute

	// ErrConflictingServer is returned when two sources declare different
	// servers under the same name
	ErrConflictingServer = errors.New("conflicting server declaration")

	// ErrInvalidServer is returned for servers whose port cannot be exposed
	ErrInvalidServer = errors.New("invalid server declaration")

	// ErrInvalidVolume is returned for volumes that cannot be mounted
	ErrInvalidVolume = errors.New("invalid volume declaration")

	// ErrMissingMachine is returned when a container has no machine config
	ErrMissingMachine = errors.New("missing machine config")

	// ErrAmbiguousToolingMachine is returned when more than one machine
	// hosts the tooling agent
	ErrAmbiguousToolingMachine = errors.New("more than one machine hosts the tooling agent")
)

// InfrastructureError is the error returned by a failed provisioning run.
// It carries enough context for an operator to fix the environment
// definition: the workspace, the provisioner, the machine and the cause.
type InfrastructureError struct {
	WorkspaceID string
	Provisioner string
	Machine     string
	Err         error
}

func (e *InfrastructureError) Error() string {
	var parts []string
	if e.WorkspaceID != "" {
		parts = append(parts, fmt.Sprintf("workspace %q", e.WorkspaceID))
	}
	if e.Provisioner != "" {
		parts = append(parts, fmt.Sprintf("provisioner %q", e.Provisioner))
	}
	if e.Machine != "" {
		parts = append(parts, fmt.Sprintf("machine %q", e.Machine))
	}
	if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}
	return strings.Join(parts, ": ")
}

func (e *InfrastructureError) Unwrap() error {
	return e.Err
}

// machineError builds an InfrastructureError for one machine
func machineError(identity types.RuntimeIdentity, machine string, err error) *InfrastructureError {
	return &InfrastructureError{
		WorkspaceID: identity.WorkspaceID,
		Machine:     machine,
		Err:         err,
	}
}

// asInfrastructureError converts any provisioner error into an
// InfrastructureError attributed to the given provisioner.
func asInfrastructureError(identity types.RuntimeIdentity, provisioner string, err error) *InfrastructureError {
	var infraErr *InfrastructureError
	if errors.As(err, &infraErr) {
		if infraErr.WorkspaceID == "" {
			infraErr.WorkspaceID = identity.WorkspaceID
		}
		if infraErr.Provisioner == "" {
			infraErr.Provisioner = provisioner
		}
		return infraErr
	}
	return &InfrastructureError{
		WorkspaceID: identity.WorkspaceID,
		Provisioner: provisioner,
		Err:         err,
	}
}
