// cmd/inspect/certificates.go

package inspect

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/RiptideSecurity/scour/pkg/app"
	"github.com/RiptideSecurity/scour/pkg/attest"
	"github.com/RiptideSecurity/scour/pkg/display"
	"github.com/RiptideSecurity/scour/pkg/scour_cli"
	"github.com/RiptideSecurity/scour/pkg/scour_io"
)

// InspectCertificatesCmd lists issued attestation certificates.
var InspectCertificatesCmd = &cobra.Command{
	Use:     "certificates [job-id]",
	Short:   "List issued attestation certificates",
	Aliases: []string{"certs"},
	Args:    cobra.MaximumNArgs(1),
	RunE: scour_cli.Wrap(func(rc *scour_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		a, err := app.Build(rc, app.BuildOptions{})
		if err != nil {
			return err
		}

		jobID := ""
		if len(args) == 1 {
			jobID = args[0]
		}
		records, err := a.Certs.List(jobID)
		if err != nil {
			return err
		}

		format, _ := cmd.Flags().GetString("format")
		if format != display.FormatTable {
			return display.Render(os.Stdout, format, records)
		}

		if len(records) == 0 {
			fmt.Println("No certificates found.")
			return nil
		}
		table := display.NewTable().WithHeaders("Job", "Standard", "Issued", "Key", "Valid")
		for _, rec := range records {
			table.AddRow(
				rec.JobID,
				rec.Standard,
				rec.IssuedAt.Local().Format(time.RFC3339),
				rec.KeyID,
				fmt.Sprintf("%t", attest.Verify(rec)),
			)
		}
		return table.Render()
	}),
}
