package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cuemby/burrow/pkg/engine"
	"github.com/cuemby/burrow/pkg/environment"
	"github.com/cuemby/burrow/pkg/events"
	"github.com/cuemby/burrow/pkg/log"
	"github.com/cuemby/burrow/pkg/metrics"
	"github.com/cuemby/burrow/pkg/provision"
	"github.com/cuemby/burrow/pkg/recipe"
	"github.com/cuemby/burrow/pkg/render"
	"github.com/cuemby/burrow/pkg/storage"
	"github.com/cuemby/burrow/pkg/types"
	"github.com/cuemby/burrow/pkg/volume"
	"github.com/spf13/cobra"
)

var provisionCmd = &cobra.Command{
	Use:   "provision",
	Short: "Provision a workspace environment from a recipe",
	Long: `Provision a workspace environment described by a recipe file.

Examples:
  # Print the provisioned pods as JSON
  burrow provision -f workspace.yaml

  # Print one OCI runtime spec per machine
  burrow provision -f workspace.yaml --output oci

  # Mount the projects volume from a persistent volume claim
  burrow provision -f workspace.yaml --projects-claim claim-che-workspace`,
	RunE: runProvision,
}

func init() {
	provisionCmd.Flags().StringP("file", "f", "", "Recipe file to provision (required)")
	provisionCmd.Flags().StringP("output", "o", "json", "Output format: json or oci")
	provisionCmd.Flags().String("projects-claim", "", "Persistent volume claim backing workspace volumes")
	provisionCmd.Flags().String("projects-path", "", "Mount path of the projects volume")
	provisionCmd.Flags().String("metrics-textfile", "", "Write provisioning metrics to this file")
	provisionCmd.Flags().Bool("no-history", false, "Do not record this run in the history")
	provisionCmd.Flags().Bool("prepare-volumes", false, "Create the host directories of OCI mounts (oci output only)")
	provisionCmd.Flags().Int("keep", 20, "Runs kept in the history per workspace (0 keeps all)")
	_ = provisionCmd.MarkFlagRequired("file")
}

func runProvision(cmd *cobra.Command, args []string) error {
	filename, _ := cmd.Flags().GetString("file")
	output, _ := cmd.Flags().GetString("output")
	metricsFile, _ := cmd.Flags().GetString("metrics-textfile")
	noHistory, _ := cmd.Flags().GetBool("no-history")
	keep, _ := cmd.Flags().GetInt("keep")
	prepareVolumes, _ := cmd.Flags().GetBool("prepare-volumes")

	if output != "json" && output != "oci" {
		return fmt.Errorf("unsupported output format %q (want json or oci)", output)
	}

	r, err := recipe.LoadFile(filename)
	if err != nil {
		return err
	}
	identity, env, err := recipe.Build(r)
	if err != nil {
		return fmt.Errorf("failed to build environment: %w", err)
	}

	broker := events.NewBroker()
	broker.Start()
	stopEvents := logEvents(broker)
	defer stopEvents()

	pipeline, err := engine.New(cfg,
		provision.WithLogger(log.WithComponent("pipeline")),
		provision.WithBroker(broker),
	)
	if err != nil {
		return err
	}

	timer := metrics.NewTimer()
	provisionErr := pipeline.Provision(identity, env)

	if !noHistory {
		if err := recordRun(identity, env, provisionErr, timer, keep); err != nil {
			log.Errorf("Failed to record provisioning run", err)
		}
	}
	if metricsFile != "" {
		if err := metrics.WriteTextfile(metricsFile); err != nil {
			log.Errorf("Failed to write metrics textfile", err)
		}
	}
	if provisionErr != nil {
		return provisionErr
	}

	for _, w := range env.Warnings {
		log.Logger.Warn().Int("code", w.Code).Msg(w.Message)
	}

	out := cmd.OutOrStdout()
	if output == "oci" {
		driver := volume.NewLocalDriver(filepath.Join(cfg.DataDir, "volumes"))
		specs, err := render.OCISpecs(env, driver)
		if err != nil {
			return err
		}
		if prepareVolumes {
			if err := createVolumeDirs(driver, specs); err != nil {
				return err
			}
		}
		return render.WriteJSON(out, specs)
	}
	return render.WriteJSON(out, render.NewResult(identity, env))
}

// logEvents forwards broker events to the log until the returned function
// is called.
func logEvents(broker *events.Broker) func() {
	sub := broker.Subscribe()
	logger := log.WithComponent("events")
	done := make(chan struct{})

	go func() {
		defer close(done)
		for ev := range sub {
			logger.Debug().
				Str("event_id", ev.ID).
				Str("type", string(ev.Type)).
				Str("workspace_id", ev.WorkspaceID).
				Interface("metadata", ev.Metadata).
				Msg(ev.Message)
		}
	}()

	return func() {
		broker.Stop()
		<-done
	}
}

func recordRun(identity types.RuntimeIdentity, env *environment.InternalEnvironment, provisionErr error, timer *metrics.Timer, keep int) error {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}
	store, err := storage.NewBoltStore(cfg.DataDir)
	if err != nil {
		return err
	}
	defer store.Close()

	record := &types.ProvisionRecord{
		WorkspaceID: identity.WorkspaceID,
		EnvName:     identity.EnvName,
		OwnerID:     identity.OwnerID,
		Status:      types.ProvisionStatusSucceeded,
		Warnings:    env.Warnings,
		Machines:    render.MachineAttributes(env),
		Duration:    timer.Duration(),
	}
	if provisionErr != nil {
		record.Status = types.ProvisionStatusFailed
		record.Error = provisionErr.Error()
	}
	if err := store.SaveRecord(record); err != nil {
		return err
	}

	if keep > 0 {
		removed, err := store.PruneWorkspace(identity.WorkspaceID, keep)
		if err != nil {
			return err
		}
		if removed > 0 {
			logger := log.WithWorkspaceID(identity.WorkspaceID)
			logger.Debug().Int("removed", removed).Msg("Pruned provisioning history")
		}
	}
	return nil
}

func createVolumeDirs(driver *volume.LocalDriver, specs []render.MachineSpec) error {
	for _, ms := range specs {
		for _, m := range ms.Spec.Mounts {
			if err := driver.Create(m.Source); err != nil {
				return fmt.Errorf("machine %q: %w", ms.Machine, err)
			}
		}
	}
	return nil
}
