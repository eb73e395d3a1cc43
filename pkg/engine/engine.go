// Package engine is the composition root of the provisioning engine. It
// turns the administrator configuration into the canonical, ordered
// provisioning pipeline.
package engine

import (
	"fmt"

	"github.com/cuemby/burrow/pkg/config"
	"github.com/cuemby/burrow/pkg/provision"
	"github.com/cuemby/burrow/pkg/types"
)

// New builds the canonical pipeline from cfg
func New(cfg *config.Config, opts ...provision.Option) (*provision.Pipeline, error) {
	defaults, err := cfg.ResourceDefaults()
	if err != nil {
		return nil, fmt.Errorf("failed to build resource defaults: %w", err)
	}
	return provision.NewPipeline(Provisioners(cfg, defaults), opts...), nil
}

// Provisioners returns the canonical provisioner order. Resource limits run
// after installer config so they see what installers contributed; the
// converters run last and copy the finished machine configs onto the pods.
func Provisioners(cfg *config.Config, defaults types.ResourceDefaults) []provision.Provisioner {
	return []provision.Provisioner{
		provision.NewMachineNameProvisioner(),
		provision.NewInstallerConfigProvisioner(),
		provision.NewResourceLimitProvisioner(defaults),
		provision.NewProjectsVolumeProvisioner(
			provision.InstallerMachineFinder(cfg.ToolingInstallerID),
			cfg.Volumes.ProjectsPath,
		),
		provision.NewEnvVarsProvisioner(),
		provision.NewServersProvisioner(),
		provision.NewVolumesProvisioner(cfg.Volumes.ClaimName),
	}
}
