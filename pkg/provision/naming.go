package provision

import (
	"github.com/cuemby/burrow/pkg/environment"
	"github.com/cuemby/burrow/pkg/types"
)

// MachineNameProvisioner sets CHE_MACHINE_NAME on every machine so that
// processes inside a container can tell which machine they belong to.
type MachineNameProvisioner struct{}

// NewMachineNameProvisioner creates a machine name provisioner
func NewMachineNameProvisioner() *MachineNameProvisioner {
	return &MachineNameProvisioner{}
}

// Name returns the provisioner name
func (p *MachineNameProvisioner) Name() string {
	return "machine-name"
}

// Provision never fails
func (p *MachineNameProvisioner) Provision(_ types.RuntimeIdentity, env *environment.InternalEnvironment) error {
	for name, machine := range env.Machines {
		if machine.Env == nil {
			machine.Env = make(map[string]string)
		}
		machine.Env[types.MachineNameEnvVar] = name
	}
	return nil
}
