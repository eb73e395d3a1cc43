package provision

import (
	"fmt"
	"strings"

	"github.com/cuemby/burrow/pkg/environment"
	"github.com/cuemby/burrow/pkg/types"
)

// DefaultProjectsPath is where the projects volume is mounted when no path
// is configured
const DefaultProjectsPath = "/projects"

// MachineFinder returns the single machine hosting the workspace tooling
// agent, if the environment has one.
type MachineFinder func(env *environment.InternalEnvironment) (string, bool, error)

// InstallerMachineFinder finds the machine carrying the given installer.
// More than one match is an error.
func InstallerMachineFinder(installerID string) MachineFinder {
	return func(env *environment.InternalEnvironment) (string, bool, error) {
		var found []string
		for _, name := range env.MachineNames() {
			if env.Machines[name].HasInstaller(installerID) {
				found = append(found, name)
			}
		}
		switch len(found) {
		case 0:
			return "", false, nil
		case 1:
			return found[0], true, nil
		default:
			return "", false, fmt.Errorf("%w: installer %q is attached to machines %s",
				ErrAmbiguousToolingMachine, installerID, strings.Join(found, ", "))
		}
	}
}

// ProjectsVolumeProvisioner attaches the shared projects volume to the
// machine hosting the tooling agent. Environments without such a machine are
// left untouched.
type ProjectsVolumeProvisioner struct {
	finder    MachineFinder
	mountPath string
}

// NewProjectsVolumeProvisioner creates a projects volume provisioner. The
// mount path is made absolute if it is not already.
func NewProjectsVolumeProvisioner(finder MachineFinder, mountPath string) *ProjectsVolumeProvisioner {
	return &ProjectsVolumeProvisioner{
		finder:    finder,
		mountPath: NormalizeMountPath(mountPath),
	}
}

// Name returns the provisioner name
func (p *ProjectsVolumeProvisioner) Name() string {
	return "projects-volume"
}

// MountPath returns the normalized mount path
func (p *ProjectsVolumeProvisioner) MountPath() string {
	return p.mountPath
}

// Provision adds the projects volume to the tooling machine, if any
func (p *ProjectsVolumeProvisioner) Provision(identity types.RuntimeIdentity, env *environment.InternalEnvironment) error {
	name, found, err := p.finder(env)
	if err != nil {
		return &InfrastructureError{WorkspaceID: identity.WorkspaceID, Err: err}
	}
	if !found {
		return nil
	}

	machine, ok := env.Machines[name]
	if !ok {
		return machineError(identity, name, fmt.Errorf("%w: tooling machine is not part of the environment", ErrMissingMachine))
	}
	if machine.Volumes == nil {
		machine.Volumes = make(map[string]types.VolumeConfig)
	}
	machine.Volumes[types.ProjectsVolumeName] = types.VolumeConfig{Path: p.mountPath}
	return nil
}

// NormalizeMountPath prefixes a path with "/" when it is relative. An empty
// path yields DefaultProjectsPath.
func NormalizeMountPath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return DefaultProjectsPath
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}
