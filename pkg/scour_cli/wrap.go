// pkg/scour_cli/wrap.go

package scour_cli

import (
	cerr "github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/RiptideSecurity/scour/pkg/logger"
	"github.com/RiptideSecurity/scour/pkg/scour_err"
	"github.com/RiptideSecurity/scour/pkg/scour_io"
)

// Wrap adapts a business function to cobra RunE, ensuring panic recovery,
// telemetry, and lifecycle logging around every command.
func Wrap(fn func(rc *scour_io.RuntimeContext, cmd *cobra.Command, args []string) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		// L() installs the console fallback when main has not initialized
		// logging yet (tests, direct command invocation).
		_ = logger.L()

		rc := scour_io.NewContext(cmd.Context(), cmd.Name())
		defer rc.End(&err)

		defer func() {
			if r := recover(); r != nil {
				err = cerr.AssertionFailedf("panic: %v", r)
				rc.Log.Error("Panic recovered", zap.Any("panic", r))
			}
		}()

		err = fn(rc, cmd, args)
		if err != nil && !scour_err.IsExpectedUserError(err) {
			err = cerr.WithStack(err)
		}
		return err
	}
}
