/*
Package metrics provides Prometheus metrics for the provisioning engine.

All metrics are registered with the default Prometheus registry when the
package is initialized. The engine runs as a short-lived command rather than
a server, so instead of an HTTP endpoint the burrow command can dump the
registry into a node_exporter textfile with WriteTextfile.

# Metrics

Pipeline:

	burrow_provision_runs_total{result}           runs by result (succeeded, failed)
	burrow_provision_duration_seconds             full pipeline duration
	burrow_provision_warnings_total{code}         warnings by code

Provisioners:

	burrow_provisioner_duration_seconds{provisioner}
	burrow_provisioner_failures_total{provisioner}

Installers:

	burrow_server_conflicts_total                 conflicting server declarations
	burrow_installer_env_skipped_total            malformed env entries skipped

# Timing

	timer := metrics.NewTimer()
	err := p.Provision(identity, env)
	timer.ObserveDurationVec(metrics.ProvisionerDuration, p.Name())

# Textfile export

	if err := metrics.WriteTextfile("/var/lib/node_exporter/burrow.prom"); err != nil {
		log.Errorf("Failed to write metrics", err)
	}
*/
package metrics
