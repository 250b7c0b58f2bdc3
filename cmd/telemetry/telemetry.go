// cmd/telemetry/telemetry.go

package telemetry

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/RiptideSecurity/scour/pkg/scour_cli"
	"github.com/RiptideSecurity/scour/pkg/scour_io"
	"github.com/RiptideSecurity/scour/pkg/telemetry"
)

// TelemetryCmd controls local span collection.
var TelemetryCmd = &cobra.Command{
	Use:   "telemetry",
	Short: "Control local telemetry collection",
	Long: `Telemetry is off by default. When enabled, command spans are written
to a local trace file only; nothing leaves the machine.`,
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

var telemetryOnCmd = &cobra.Command{
	Use:   "on",
	Short: "Enable local span collection",
	Args:  cobra.NoArgs,
	RunE: scour_cli.Wrap(func(rc *scour_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		if err := telemetry.Enable(); err != nil {
			return err
		}
		fmt.Printf("✅ Telemetry enabled, spans written to %s\n", telemetry.TraceFilePath())
		return nil
	}),
}

var telemetryOffCmd = &cobra.Command{
	Use:   "off",
	Short: "Disable local span collection",
	Args:  cobra.NoArgs,
	RunE: scour_cli.Wrap(func(rc *scour_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		if err := telemetry.Disable(); err != nil {
			return err
		}
		fmt.Println("✅ Telemetry disabled")
		return nil
	}),
}

var telemetryStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether telemetry is enabled",
	Args:  cobra.NoArgs,
	RunE: scour_cli.Wrap(func(rc *scour_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		if telemetry.IsEnabled() {
			fmt.Printf("Telemetry is enabled, trace file: %s\n", telemetry.TraceFilePath())
		} else {
			fmt.Println("Telemetry is disabled")
		}
		return nil
	}),
}

func init() {
	TelemetryCmd.AddCommand(telemetryOnCmd)
	TelemetryCmd.AddCommand(telemetryOffCmd)
	TelemetryCmd.AddCommand(telemetryStatusCmd)
}
