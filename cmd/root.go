// cmd/root.go

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/RiptideSecurity/scour/cmd/attest"
	"github.com/RiptideSecurity/scour/cmd/inspect"
	"github.com/RiptideSecurity/scour/cmd/purge"
	"github.com/RiptideSecurity/scour/cmd/telemetry"
	"github.com/RiptideSecurity/scour/cmd/verify"
	"github.com/RiptideSecurity/scour/cmd/wipe"

	"github.com/RiptideSecurity/scour/pkg/logger"
	"github.com/RiptideSecurity/scour/pkg/scour_cli"
	"github.com/RiptideSecurity/scour/pkg/scour_err"
	"github.com/RiptideSecurity/scour/pkg/scour_io"
	"github.com/RiptideSecurity/scour/pkg/shared"
)

// RootCmd is the base command for scour.
var RootCmd = &cobra.Command{
	Use:   "scour",
	Short: "Verifiable secure-erase engine for files and block devices",
	Long: `Scour overwrites storage extents with configurable sanitization standards,
journals every job for audit, and issues signed attestation certificates
that third parties can verify offline.`,
	Version: shared.Version,
	RunE: scour_cli.Wrap(func(rc *scour_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		fmt.Println("⚠️  No subcommand provided. Try `scour help`.")
		return cmd.Help()
	}),
}

// RegisterCommands adds all subcommands to the root command.
func RegisterCommands() {
	RootCmd.PersistentFlags().Bool("debug", false, "Show full error chains and stack traces")
	RootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if debug, _ := cmd.Flags().GetBool("debug"); debug {
			scour_err.SetDebugMode(true)
		}
	}

	for _, subCmd := range []*cobra.Command{
		wipe.WipeCmd,
		inspect.InspectCmd,
		attest.AttestCmd,
		verify.VerifyCmd,
		purge.PurgeCmd,
		telemetry.TelemetryCmd,
	} {
		RootCmd.AddCommand(subCmd)
	}
}

// Execute runs the root command and maps errors to exit codes.
func Execute() {
	defer logger.Sync()

	RegisterCommands()

	if err := RootCmd.Execute(); err != nil {
		if scour_err.IsExpectedUserError(err) {
			scour_err.PrintError("request rejected", err)
			os.Exit(scour_err.GetExitCode(err))
		}
		scour_err.PrintError("command failed", err)
		os.Exit(scour_err.GetExitCode(err))
	}
}
