// cmd/wipe/wipe.go

package wipe

import (
	"fmt"
	"strings"

	cerr "github.com/cockroachdb/errors"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/RiptideSecurity/scour/pkg/app"
	"github.com/RiptideSecurity/scour/pkg/display"
	"github.com/RiptideSecurity/scour/pkg/interaction"
	"github.com/RiptideSecurity/scour/pkg/jobs"
	"github.com/RiptideSecurity/scour/pkg/patterns"
	"github.com/RiptideSecurity/scour/pkg/scour_cli"
	"github.com/RiptideSecurity/scour/pkg/scour_err"
	"github.com/RiptideSecurity/scour/pkg/scour_io"
)

// WipeCmd sanitizes one or more targets inside the configured sandbox.
var WipeCmd = &cobra.Command{
	Use:   "wipe <target>...",
	Short: "Overwrite and remove targets with a sanitization standard",
	Long: `Wipe submits one sanitization job per target and waits for all of them.
Each job overwrites the extent pass by pass per the selected standard,
journals its progress, and removes the extent on completion.

Interrupting with Ctrl-C cancels jobs at their next pass boundary.`,
	Args: cobra.MinimumNArgs(1),
	RunE: scour_cli.Wrap(runWipe),
}

func init() {
	scour_cli.AddStringFlag(WipeCmd, "standard", "s", string(patterns.StandardZeroFill),
		"Sanitization standard (see `scour inspect standards`)", false)
	scour_cli.AddBoolFlag(WipeCmd, "force", "f", false, "Skip the confirmation prompt")
	scour_cli.AddBoolFlag(WipeCmd, "analyze", "a", false, "Analyze residue after the final pass")
	scour_cli.AddBoolFlag(WipeCmd, "dry-run", "n", false, "Print the pass plan without writing")
}

func runWipe(rc *scour_io.RuntimeContext, cmd *cobra.Command, args []string) error {
	log := otelzap.Ctx(rc.Ctx)

	standardFlag, _ := cmd.Flags().GetString("standard")
	force, _ := cmd.Flags().GetBool("force")
	analyze, _ := cmd.Flags().GetBool("analyze")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	std, err := patterns.ParseStandard(standardFlag)
	if err != nil {
		return scour_err.NewExpectedError(err)
	}

	if dryRun {
		return printPlan(std, args)
	}

	if !force {
		ok, err := interaction.PromptYesNo(fmt.Sprintf(
			"Overwrite and remove %d target(s) with %s? This cannot be undone", len(args), std))
		if err != nil {
			return err
		}
		if !ok {
			return scour_err.NewUserCancelledError("wipe aborted by operator")
		}
	}

	a, err := app.Build(rc, app.BuildOptions{AnalyzeResidue: analyze})
	if err != nil {
		return err
	}

	handler := scour_cli.NewSignalHandler(rc.Ctx)
	defer handler.Stop()
	handler.OnSignal(func() {
		a.Registry.CancelAll(rc)
	})

	var submitErrs *multierror.Error
	jobIDs := make([]string, 0, len(args))
	for _, target := range args {
		jobID, err := a.Registry.Submit(rc, target, std)
		if err != nil {
			submitErrs = multierror.Append(submitErrs,
				cerr.Wrapf(err, "submit %s", target))
			continue
		}
		log.Info("Job submitted",
			zap.String("job_id", jobID),
			zap.String("target", target),
			zap.String("standard", string(std)))
		jobIDs = append(jobIDs, jobID)
	}

	var failed int
	for _, jobID := range jobIDs {
		snap, err := a.Registry.Wait(rc.Ctx, jobID)
		if err != nil {
			submitErrs = multierror.Append(submitErrs, cerr.Wrapf(err, "wait for job %s", jobID))
			continue
		}
		reportOutcome(snap)
		if snap.State != jobs.StateCompleted {
			failed++
		}
	}

	if err := submitErrs.ErrorOrNil(); err != nil {
		return err
	}
	if failed > 0 {
		return scour_err.NewSanitizationError(
			fmt.Sprintf("%d of %d job(s) did not complete", failed, len(jobIDs)), nil)
	}
	return nil
}

func printPlan(std patterns.Standard, targets []string) error {
	seq, err := patterns.Sequence(std)
	if err != nil {
		return scour_err.NewExpectedError(err)
	}

	labels := make([]string, len(seq))
	for i, desc := range seq {
		labels[i] = desc.Label()
	}
	fmt.Printf("Standard %s: %d pass(es): %s\n", std, len(seq), strings.Join(labels, ", "))

	table := display.NewTable().WithHeaders("Target", "Passes", "Barrier")
	for _, target := range targets {
		table.AddRow(target, fmt.Sprintf("%d", len(seq)), "one sync per pass")
	}
	return table.Render()
}

func reportOutcome(snap jobs.Snapshot) {
	switch snap.State {
	case jobs.StateCompleted:
		fmt.Printf("✅ %s: %s completed, %d pass(es), extent removed\n",
			snap.ID, snap.TargetRef, len(snap.PassRecords))
		if snap.Residue != nil {
			fmt.Printf("   residue: %s (score %.2f over %d sampled bytes)\n",
				snap.Residue.Status, snap.Residue.Score, snap.Residue.BytesSampled)
		}
	case jobs.StateCancelled:
		fmt.Printf("⚠️  %s: %s cancelled after %d completed pass(es)\n",
			snap.ID, snap.TargetRef, len(snap.PassRecords))
	default:
		fmt.Printf("❌ %s: %s %s: %s\n", snap.ID, snap.TargetRef, snap.State, snap.Error)
	}
}
