// cmd/purge/purge.go

package purge

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/RiptideSecurity/scour/pkg/app"
	"github.com/RiptideSecurity/scour/pkg/scour_cli"
	"github.com/RiptideSecurity/scour/pkg/scour_io"
)

// PurgeCmd retires old terminal job records from the journal.
var PurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Remove terminal job records older than a cutoff",
	Long: `Purge deletes completed, failed, and cancelled job records whose
completion time is older than the cutoff. Running and pending jobs are
never touched. Attestation certificates are kept.`,
	Args: cobra.NoArgs,
	RunE: scour_cli.Wrap(func(rc *scour_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		log := otelzap.Ctx(rc.Ctx)

		olderThan, _ := cmd.Flags().GetDuration("older-than")

		a, err := app.Build(rc, app.BuildOptions{})
		if err != nil {
			return err
		}

		purged, err := a.Registry.Purge(rc, olderThan)
		if err != nil {
			return err
		}

		log.Info("Purge finished",
			zap.Duration("older_than", olderThan),
			zap.Int("purged", purged))
		fmt.Printf("✅ Purged %d job record(s) older than %s\n", purged, olderThan)
		return nil
	}),
}

func init() {
	scour_cli.AddDurationFlag(PurgeCmd, "older-than", "", 30*24*time.Hour,
		"Retire terminal records older than this duration")
}
