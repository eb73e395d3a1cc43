package main

import (
	"fmt"

	"github.com/cuemby/burrow/pkg/size"
	"github.com/spf13/cobra"
)

var defaultsCmd = &cobra.Command{
	Use:   "defaults",
	Short: "Show the effective provisioning defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := cfg.ResourceDefaults()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Resource defaults:")
		fmt.Fprintf(out, "  Memory limit:   %s\n", size.HumanBytes(defaults.MemoryLimitBytes))
		fmt.Fprintf(out, "  Memory request: %s\n", size.HumanBytes(defaults.MemoryRequestBytes))
		fmt.Fprintf(out, "  CPU limit:      %s\n", formatCores(defaults.CPULimitCores))
		fmt.Fprintf(out, "  CPU request:    %s\n", formatCores(defaults.CPURequestCores))
		fmt.Fprintln(out, "Volumes:")
		fmt.Fprintf(out, "  Projects path:  %s\n", cfg.Volumes.ProjectsPath)
		fmt.Fprintf(out, "  Claim:          %s\n", orNone(cfg.Volumes.ClaimName))
		fmt.Fprintf(out, "Tooling installer: %s\n", cfg.ToolingInstallerID)
		fmt.Fprintf(out, "Data directory:    %s\n", cfg.DataDir)
		return nil
	},
}

func formatCores(cores float64) string {
	if cores <= 0 {
		return "unlimited"
	}
	return size.FormatCores(cores)
}

func orNone(s string) string {
	if s == "" {
		return "(none, emptyDir volumes)"
	}
	return s
}
