// cmd/verify/verify.go

package verify

import (
	"fmt"

	cerr "github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/RiptideSecurity/scour/pkg/attest"
	"github.com/RiptideSecurity/scour/pkg/display"
	"github.com/RiptideSecurity/scour/pkg/scour_cli"
	"github.com/RiptideSecurity/scour/pkg/scour_err"
	"github.com/RiptideSecurity/scour/pkg/scour_io"
)

// VerifyCmd checks an attestation certificate offline.
var VerifyCmd = &cobra.Command{
	Use:   "verify <certificate.json>",
	Short: "Verify an attestation certificate",
	Long: `Verify recomputes the certificate digest and checks the Ed25519
signature against the embedded public key. It needs no network access and
no local state; any copy of the certificate file can be checked anywhere.`,
	Args: cobra.ExactArgs(1),
	RunE: scour_cli.Wrap(func(rc *scour_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		log := otelzap.Ctx(rc.Ctx)

		rec, err := attest.LoadFile(args[0])
		if err != nil {
			return scour_err.NewExpectedError(cerr.Wrapf(err, "load certificate %s", args[0]))
		}

		ok := attest.Verify(rec)
		log.Info("Certificate verification finished",
			zap.String("path", args[0]),
			zap.String("job_id", rec.JobID),
			zap.Bool("valid", ok))

		fmt.Println(display.VerifyBanner(ok))
		if !ok {
			return scour_err.NewExpectedError(
				cerr.Newf("certificate %s failed verification", args[0]))
		}

		fmt.Printf("  job       %s\n", rec.JobID)
		fmt.Printf("  target    %s (%d bytes)\n", rec.Target.Path, rec.Target.SizeBytes)
		fmt.Printf("  standard  %s (%d passes)\n", rec.Standard, len(rec.PassRecords))
		fmt.Printf("  issued    %s\n", rec.IssuedAt.Local())
		fmt.Printf("  key       %s\n", rec.KeyID)
		return nil
	}),
}
