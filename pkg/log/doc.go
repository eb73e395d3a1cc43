/*
Package log provides structured logging for burrow using zerolog.

The package keeps a single global zerolog.Logger that every other package
derives child loggers from. Until Init is called the logger discards output,
so library users and tests never see stray log lines.

# Usage

Initializing the logger (normally done once by the burrow command):

	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
		Output:     os.Stderr,
	})

Component and context loggers:

	logger := log.WithComponent("pipeline")
	logger.Info().Str("workspace_id", id).Msg("provisioning started")

	mlog := log.WithMachine(identity.WorkspaceID, "ws/dev")
	mlog.Warn().Str("entry", entry).Msg("skipping malformed installer env entry")

# Fields

Fields used across burrow:

  - component: the package or provisioner emitting the line
  - workspace_id: the workspace being provisioned
  - machine: the machine name ("<pod>/<container>" unless overridden)
  - provisioner: the provisioner name inside the pipeline
  - installer: the installer id for installer related messages

Levels follow the usual split: debug for per-step tracing, info for pipeline
start/finish, warn for best-effort skips, error for failed provisioning.
*/
package log
