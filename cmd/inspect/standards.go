// cmd/inspect/standards.go

package inspect

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/RiptideSecurity/scour/pkg/display"
	"github.com/RiptideSecurity/scour/pkg/patterns"
	"github.com/RiptideSecurity/scour/pkg/scour_cli"
	"github.com/RiptideSecurity/scour/pkg/scour_io"
)

// InspectStandardsCmd lists the supported sanitization standards.
var InspectStandardsCmd = &cobra.Command{
	Use:   "standards",
	Short: "List supported sanitization standards",
	Args:  cobra.NoArgs,
	RunE: scour_cli.Wrap(func(rc *scour_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		catalog := patterns.Catalog()

		format, _ := cmd.Flags().GetString("format")
		if format != display.FormatTable {
			return display.Render(os.Stdout, format, catalog)
		}

		table := display.NewTable().WithHeaders("Standard", "Passes", "Sequence", "Description")
		for _, info := range catalog {
			table.AddRow(
				string(info.Name),
				fmt.Sprintf("%d", info.Passes),
				strings.Join(info.PassLabels, " > "),
				info.Description,
			)
		}
		return table.Render()
	}),
}
