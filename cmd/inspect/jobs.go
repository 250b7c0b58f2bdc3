// cmd/inspect/jobs.go

package inspect

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/RiptideSecurity/scour/pkg/app"
	"github.com/RiptideSecurity/scour/pkg/display"
	"github.com/RiptideSecurity/scour/pkg/jobs"
	"github.com/RiptideSecurity/scour/pkg/scour_cli"
	"github.com/RiptideSecurity/scour/pkg/scour_err"
	"github.com/RiptideSecurity/scour/pkg/scour_io"
)

// InspectJobCmd shows one job in full detail.
var InspectJobCmd = &cobra.Command{
	Use:   "job <job-id>",
	Short: "Show the full record of a single job",
	Args:  cobra.ExactArgs(1),
	RunE: scour_cli.Wrap(func(rc *scour_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		a, err := app.Build(rc, app.BuildOptions{})
		if err != nil {
			return err
		}

		snap, err := a.Registry.GetStatus(args[0])
		if err != nil {
			return scour_err.NewExpectedError(err)
		}

		format, _ := cmd.Flags().GetString("format")
		if format != display.FormatTable {
			return display.Render(os.Stdout, format, snap)
		}
		return renderJobDetail(snap)
	}),
}

// InspectJobsCmd lists jobs newest first.
var InspectJobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List sanitization jobs",
	Args:  cobra.NoArgs,
	RunE: scour_cli.Wrap(func(rc *scour_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		a, err := app.Build(rc, app.BuildOptions{})
		if err != nil {
			return err
		}

		snaps := a.Registry.List()
		if !mustBool(cmd, "all") {
			active := snaps[:0]
			for _, s := range snaps {
				if !s.State.IsTerminal() {
					active = append(active, s)
				}
			}
			snaps = active
		}

		format, _ := cmd.Flags().GetString("format")
		if format != display.FormatTable {
			return display.Render(os.Stdout, format, snaps)
		}

		if len(snaps) == 0 {
			fmt.Println("No jobs found.")
			return nil
		}
		table := display.NewTable().WithHeaders("ID", "Target", "Standard", "State", "Progress", "Created")
		for _, s := range snaps {
			table.AddRow(
				s.ID,
				s.TargetRef,
				string(s.Standard),
				display.StateBadge(s.State),
				fmt.Sprintf("%.1f%%", s.Progress),
				s.CreatedAt.Local().Format(time.RFC3339),
			)
		}
		return table.Render()
	}),
}

func init() {
	scour_cli.AddBoolFlag(InspectJobsCmd, "all", "A", false, "Include terminal jobs")
}

func mustBool(cmd *cobra.Command, name string) bool {
	v, _ := cmd.Flags().GetBool(name)
	return v
}

func renderJobDetail(snap jobs.Snapshot) error {
	fmt.Printf("Job      %s\n", snap.ID)
	fmt.Printf("Target   %s (%s)\n", snap.TargetRef, snap.TargetPath)
	fmt.Printf("Standard %s (%d passes)\n", snap.Standard, snap.RequestedPasses)
	fmt.Printf("State    %s\n", display.StateBadge(snap.State))
	fmt.Printf("Progress %.1f%%\n", snap.Progress)
	if snap.ExtentSize > 0 {
		fmt.Printf("Extent   %d bytes\n", snap.ExtentSize)
	}
	if snap.Error != "" {
		fmt.Printf("Error    %s\n", snap.Error)
	}
	if snap.Interrupted {
		fmt.Println("Note     job was interrupted by a process restart")
	}

	if len(snap.PassRecords) > 0 {
		fmt.Println()
		table := display.NewTable().WithHeaders("Pass", "Pattern", "Started", "Completed", "Hash")
		for _, p := range snap.PassRecords {
			table.AddRow(
				fmt.Sprintf("%d", p.PassIndex),
				p.Pattern,
				p.StartedAt.Local().Format(time.TimeOnly),
				p.CompletedAt.Local().Format(time.TimeOnly),
				p.VerificationHash[:16],
			)
		}
		if err := table.Render(); err != nil {
			return err
		}
	}

	if snap.Residue != nil {
		fmt.Printf("\nResidue  %s (score %.2f, %d/%d bytes mismatched)\n",
			snap.Residue.Status, snap.Residue.Score,
			snap.Residue.MismatchedBytes, snap.Residue.BytesSampled)
	}
	return nil
}
