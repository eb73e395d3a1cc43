package provision

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/cuemby/burrow/pkg/environment"
	"github.com/cuemby/burrow/pkg/log"
	"github.com/cuemby/burrow/pkg/metrics"
	"github.com/cuemby/burrow/pkg/types"
)

// InstallerConfigProvisioner folds the environment variables and servers
// contributed by each installer into the machine it is attached to.
//
// Environment variables are last-writer-wins. Servers are not: a server name
// already present on the machine must carry an identical declaration.
type InstallerConfigProvisioner struct{}

// NewInstallerConfigProvisioner creates an installer config provisioner
func NewInstallerConfigProvisioner() *InstallerConfigProvisioner {
	return &InstallerConfigProvisioner{}
}

// Name returns the provisioner name
func (p *InstallerConfigProvisioner) Name() string {
	return "installer-config"
}

// Provision merges installer configuration, failing on the first
// conflicting server declaration.
func (p *InstallerConfigProvisioner) Provision(identity types.RuntimeIdentity, env *environment.InternalEnvironment) error {
	for _, name := range env.MachineNames() {
		machine := env.Machines[name]
		for _, installer := range machine.Installers {
			p.mergeEnv(identity, env, name, machine, installer)
			if err := mergeServers(machine, installer); err != nil {
				metrics.ServerConflictsTotal.Inc()
				return machineError(identity, name, err)
			}
		}
	}
	return nil
}

// mergeEnv applies the installer's "environment" property. An installer
// without the property is skipped; malformed entries are skipped one by one.
func (p *InstallerConfigProvisioner) mergeEnv(identity types.RuntimeIdentity, env *environment.InternalEnvironment,
	machineName string, machine *types.InternalMachineConfig, installer types.Installer) {
	raw := strings.TrimSpace(installer.Properties[types.InstallerEnvProperty])
	if raw == "" {
		return
	}
	if machine.Env == nil {
		machine.Env = make(map[string]string)
	}

	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		key, value, ok := strings.Cut(entry, "=")
		if !ok || key == "" || value == "" {
			metrics.InstallerEnvSkippedTotal.Inc()
			env.AddWarning(types.WarningMalformedInstallerEnv,
				"Installer %q on machine %q has malformed environment entry %q, skipped", installer.ID, machineName, entry)
			logger := log.WithMachine(identity.WorkspaceID, machineName)
			logger.Warn().
				Str("component", p.Name()).
				Str("installer", installer.ID).
				Str("entry", entry).
				Msg("Skipping malformed installer environment entry")
			continue
		}
		machine.Env[key] = value
	}
}

func mergeServers(machine *types.InternalMachineConfig, installer types.Installer) error {
	if machine.Servers == nil {
		machine.Servers = make(map[string]types.ServerConfig)
	}
	for _, serverName := range slices.Sorted(maps.Keys(installer.Servers)) {
		server := installer.Servers[serverName]
		existing, ok := machine.Servers[serverName]
		if !ok {
			machine.Servers[serverName] = copyServer(server)
			continue
		}
		if !existing.Equal(server) {
			return fmt.Errorf("%w: installer %q declares server %q as %s, but it is already declared as %s",
				ErrConflictingServer, installer.ID, serverName, describeServer(server), describeServer(existing))
		}
	}
	return nil
}

func copyServer(server types.ServerConfig) types.ServerConfig {
	server.Attributes = maps.Clone(server.Attributes)
	return server
}

func describeServer(s types.ServerConfig) string {
	d := fmt.Sprintf("port=%s protocol=%s", s.Port, s.Protocol)
	if s.Path != "" {
		d += " path=" + s.Path
	}
	return "{" + d + "}"
}
