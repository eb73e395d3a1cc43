package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Pipeline metrics
	ProvisionRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "burrow_provision_runs_total",
			Help: "Total number of provisioning runs by result",
		},
		[]string{"result"},
	)

	ProvisionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "burrow_provision_duration_seconds",
			Help:    "Time taken by a full provisioning pipeline run in seconds",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
		},
	)

	// Provisioner metrics
	ProvisionerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "burrow_provisioner_duration_seconds",
			Help:    "Time taken by a single provisioner in seconds",
			Buckets: []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .1},
		},
		[]string{"provisioner"},
	)

	ProvisionerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "burrow_provisioner_failures_total",
			Help: "Total number of provisioner failures by provisioner",
		},
		[]string{"provisioner"},
	)

	// Installer metrics
	ServerConflictsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "burrow_server_conflicts_total",
			Help: "Total number of conflicting server declarations rejected",
		},
	)

	InstallerEnvSkippedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "burrow_installer_env_skipped_total",
			Help: "Total number of malformed installer environment entries skipped",
		},
	)

	WarningsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "burrow_provision_warnings_total",
			Help: "Total number of provisioning warnings by code",
		},
		[]string{"code"},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(ProvisionRunsTotal)
	prometheus.MustRegister(ProvisionDuration)
	prometheus.MustRegister(ProvisionerDuration)
	prometheus.MustRegister(ProvisionerFailures)
	prometheus.MustRegister(ServerConflictsTotal)
	prometheus.MustRegister(InstallerEnvSkippedTotal)
	prometheus.MustRegister(WarningsTotal)
}

// WriteTextfile dumps the default registry in the text exposition format,
// for node_exporter's textfile collector.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
