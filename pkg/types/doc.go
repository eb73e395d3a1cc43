/*
Package types defines the data structures shared by every burrow package.

The machine-level model mirrors what a workspace environment declares before it
is realized by the container orchestrator:

  - RuntimeIdentity: which workspace runtime is being provisioned
  - InternalMachineConfig: attributes, env, installers, servers and volumes of
    one machine
  - Installer: a read-only descriptor of an agent attached to a machine
  - ServerConfig and VolumeConfig: endpoint and mount declarations
  - Warning: a non-fatal problem collected during provisioning
  - ProvisionRecord: the persisted outcome of a provisioning attempt

# Well-known keys

Machine attributes are a plain string map so that consumers outside this
module keep working with the same keys. Resource attributes always use:

	memoryLimitBytes    int64, bytes
	memoryRequestBytes  int64, bytes
	cpuLimitCores       float64, cores
	cpuRequestCores     float64, cores

A non-positive value means "no limit configured". Typed accessors for these
keys live in the environment package.

The machine name environment variable (CHE_MACHINE_NAME), the installer
environment property ("environment") and the projects volume name
("projects") are also fixed here.
*/
package types
