/*
Package provision implements the workspace provisioning pipeline.

A Provisioner is one synchronous transformation of an
environment.InternalEnvironment: it reads and mutates the machine configs and
the pods that realize them, or fails. A Pipeline runs a fixed, ordered list of
provisioners against one environment and stops at the first failure. There
are no retries: every failure is a defect in the environment definition and
the caller discards the environment.

# Provisioners

The canonical order (see engine.New) is:

	machine-name      CHE_MACHINE_NAME=<machine> on every machine
	installer-config  installer env vars (last writer wins) and servers
	                  (conflicting declarations fail the run)
	resource-limits   memory/CPU limit and request: attribute, then container
	                  value, then administrator default; non-positive values
	                  are never written to the container
	projects-volume   "projects" volume on the tooling agent machine, if any
	env-vars          machine env onto container env
	servers           machine servers onto container ports
	volumes           machine volumes onto pod volumes and container mounts

# Errors

Every error returned by Pipeline.Provision is an *InfrastructureError naming
the workspace, the provisioner and, where relevant, the machine. The cause can
be matched with errors.Is:

	err := pipeline.Provision(identity, env)
	if errors.Is(err, provision.ErrConflictingServer) {
		// two installers declared the same server differently
	}

Malformed installer env entries are not errors; they are skipped, logged and
recorded as environment warnings.
*/
package provision
