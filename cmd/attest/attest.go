// cmd/attest/attest.go

package attest

import (
	"fmt"
	"os"

	cerr "github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/RiptideSecurity/scour/pkg/app"
	attestpkg "github.com/RiptideSecurity/scour/pkg/attest"
	"github.com/RiptideSecurity/scour/pkg/display"
	"github.com/RiptideSecurity/scour/pkg/jobs"
	"github.com/RiptideSecurity/scour/pkg/scour_cli"
	"github.com/RiptideSecurity/scour/pkg/scour_err"
	"github.com/RiptideSecurity/scour/pkg/scour_io"
)

// AttestCmd issues a signed certificate for a completed job.
var AttestCmd = &cobra.Command{
	Use:   "attest <job-id>",
	Short: "Issue a signed attestation certificate for a completed job",
	Long: `Attest builds a certificate over the job's target, standard, and pass
records, signs it with the configured key, and stores it read-only in the
state directory. Only completed jobs are attestable.`,
	Args: cobra.ExactArgs(1),
	RunE: scour_cli.Wrap(runAttest),
}

func init() {
	scour_cli.AddStringFlag(AttestCmd, "out", "", "", "Also write the certificate to this path", false)
	AttestCmd.Flags().StringP("format", "o", "json", "Output format: json or yaml")
}

func runAttest(rc *scour_io.RuntimeContext, cmd *cobra.Command, args []string) error {
	log := otelzap.Ctx(rc.Ctx)
	jobID := args[0]

	a, err := app.Build(rc, app.BuildOptions{})
	if err != nil {
		return err
	}

	rec, err := a.Attest.Attest(rc, jobID)
	if cerr.Is(err, jobs.ErrJobNotFound) || cerr.Is(err, attestpkg.ErrJobNotCompleted) {
		return scour_err.NewExpectedError(err)
	}
	if err != nil {
		return err
	}

	outPath, _ := cmd.Flags().GetString("out")
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return cerr.Wrapf(err, "create %s", outPath)
		}
		defer f.Close()
		if err := display.JSONTo(f, rec); err != nil {
			return cerr.Wrap(err, "write certificate")
		}
		log.Info("Certificate exported", zap.String("path", outPath))
		fmt.Printf("✅ Certificate for job %s written to %s\n", jobID, outPath)
		return nil
	}

	format, _ := cmd.Flags().GetString("format")
	return display.Render(os.Stdout, format, rec)
}
