// cmd/inspect/inspect.go

package inspect

import (
	"github.com/spf13/cobra"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// InspectCmd is the root command for read-only queries.
var InspectCmd = &cobra.Command{
	Use:     "inspect",
	Short:   "Inspect jobs, certificates, and sanitization standards",
	Aliases: []string{"read", "get", "ls"},
	Run: func(cmd *cobra.Command, args []string) {
		log := otelzap.Ctx(cmd.Context())
		log.Info("No subcommand provided for inspect", zap.String("command", cmd.Use))
		_ = cmd.Help()
	},
}

func init() {
	InspectCmd.AddCommand(InspectJobCmd)
	InspectCmd.AddCommand(InspectJobsCmd)
	InspectCmd.AddCommand(InspectStandardsCmd)
	InspectCmd.AddCommand(InspectCertificatesCmd)

	InspectCmd.PersistentFlags().StringP("format", "o", "table", "Output format: table, json, or yaml")
}
